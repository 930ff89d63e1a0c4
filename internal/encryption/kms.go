package encryption

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
)

// KMSEncryptor encrypts payloads with an AES-256 data key generated by (or
// pre-generated against) a KMS key. The plaintext data key is cached for
// the lifetime of the encryptor; the envelope only ever carries the
// KMS-encrypted form.
type KMSEncryptor struct {
	kmsClient *kms.Client
	keyID     string
	dataKey   *DataKey
}

// NewKMSEncryptor creates a KMSEncryptor for the given key in the given
// region.
func NewKMSEncryptor(ctx context.Context, keyID, region string) (*KMSEncryptor, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	client := kms.NewFromConfig(cfg, func(o *kms.Options) {
		if region != "" {
			o.Region = region
		}
	})

	return &KMSEncryptor{
		kmsClient: client,
		keyID:     keyID,
	}, nil
}

// SetDataKey installs a pre-generated data key (from generate-datakey). If
// only the encrypted half is present, the plaintext half is recovered
// through KMS on first use.
func (e *KMSEncryptor) SetDataKey(dataKey *DataKey) {
	e.dataKey = dataKey
}

// GenerateDataKey asks KMS for a fresh AES-256 data key.
func (e *KMSEncryptor) GenerateDataKey(ctx context.Context) (*DataKey, error) {
	output, err := e.kmsClient.GenerateDataKey(ctx, &kms.GenerateDataKeyInput{
		KeyId:   aws.String(e.keyID),
		KeySpec: "AES_256",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate data key: %w", err)
	}

	return &DataKey{
		Plaintext: output.Plaintext,
		Encrypted: output.CiphertextBlob,
	}, nil
}

// Encrypt seals the payload with the data key, generating one through KMS
// if none was installed.
func (e *KMSEncryptor) Encrypt(ctx context.Context, plaintext []byte) (*Envelope, error) {
	if e.dataKey == nil {
		dataKey, err := e.GenerateDataKey(ctx)
		if err != nil {
			return nil, err
		}
		e.dataKey = dataKey
	}
	key, err := e.plaintextKey(ctx, e.dataKey.Encrypted)
	if err != nil {
		return nil, err
	}

	ciphertext, err := sealAESGCM(key, plaintext)
	if err != nil {
		return nil, err
	}

	return &Envelope{
		EncryptedKey: e.dataKey.Encrypted,
		Ciphertext:   ciphertext,
	}, nil
}

// Decrypt recovers the data key through KMS and opens the envelope.
func (e *KMSEncryptor) Decrypt(ctx context.Context, env *Envelope) ([]byte, error) {
	encryptedKey := env.EncryptedKey
	if len(encryptedKey) == 0 && e.dataKey != nil {
		encryptedKey = e.dataKey.Encrypted
	}

	key, err := e.plaintextKey(ctx, encryptedKey)
	if err != nil {
		return nil, err
	}
	return openAESGCM(key, env.Ciphertext)
}

// plaintextKey returns the plaintext data key, decrypting through KMS only
// when the cached key does not already match.
func (e *KMSEncryptor) plaintextKey(ctx context.Context, encryptedKey []byte) ([]byte, error) {
	if e.dataKey != nil && len(e.dataKey.Plaintext) > 0 {
		return e.dataKey.Plaintext, nil
	}

	output, err := e.kmsClient.Decrypt(ctx, &kms.DecryptInput{
		KeyId:          aws.String(e.keyID),
		CiphertextBlob: encryptedKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt data key: %w", err)
	}

	if e.dataKey == nil {
		e.dataKey = &DataKey{Encrypted: encryptedKey}
	}
	e.dataKey.Plaintext = output.Plaintext
	return output.Plaintext, nil
}

// StaticEncryptor seals and opens envelopes with a fixed plaintext key and
// no KMS round-trips. Used for offline decryption with a known data key and
// in tests.
type StaticEncryptor struct {
	dataKey DataKey
}

// NewStaticEncryptor creates a StaticEncryptor. encrypted may be nil when
// the key never came from KMS.
func NewStaticEncryptor(plaintext, encrypted []byte) *StaticEncryptor {
	return &StaticEncryptor{dataKey: DataKey{Plaintext: plaintext, Encrypted: encrypted}}
}

func (e *StaticEncryptor) Encrypt(ctx context.Context, plaintext []byte) (*Envelope, error) {
	ciphertext, err := sealAESGCM(e.dataKey.Plaintext, plaintext)
	if err != nil {
		return nil, err
	}
	return &Envelope{
		EncryptedKey: e.dataKey.Encrypted,
		Ciphertext:   ciphertext,
	}, nil
}

func (e *StaticEncryptor) Decrypt(ctx context.Context, env *Envelope) ([]byte, error) {
	return openAESGCM(e.dataKey.Plaintext, env.Ciphertext)
}

// sealAESGCM encrypts plaintext with AES-GCM; the nonce is prepended to the
// returned ciphertext.
func sealAESGCM(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AES cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM mode: %w", err)
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return aesGCM.Seal(nonce, nonce, plaintext, nil), nil
}

// openAESGCM reverses sealAESGCM.
func openAESGCM(key, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AES cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM mode: %w", err)
	}

	if len(ciphertext) < aesGCM.NonceSize() {
		return nil, fmt.Errorf("ciphertext is shorter than the nonce")
	}
	nonce := ciphertext[:aesGCM.NonceSize()]

	plaintext, err := aesGCM.Open(nil, nonce, ciphertext[aesGCM.NonceSize():], nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt data: %w", err)
	}
	return plaintext, nil
}
