// Package encryption implements envelope encryption for snapshots at rest:
// a data key encrypts the payload with AES-GCM, and the data key itself is
// protected by KMS (or supplied pre-generated).
package encryption

import "context"

// DataKey pairs a plaintext data key with its KMS-encrypted form. The
// plaintext half never leaves the process; only the encrypted half is
// stored alongside ciphertext.
type DataKey struct {
	Plaintext []byte
	Encrypted []byte
}

// Envelope is one encrypted payload plus the encrypted data key needed to
// open it.
type Envelope struct {
	EncryptedKey []byte
	Ciphertext   []byte
}

// Encryptor encrypts and decrypts payloads as envelopes.
type Encryptor interface {
	Encrypt(ctx context.Context, plaintext []byte) (*Envelope, error)
	Decrypt(ctx context.Context, env *Envelope) ([]byte, error)
}
