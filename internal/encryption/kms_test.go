package encryption

import (
	"context"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestStaticEncryptorRoundTrip(t *testing.T) {
	enc := NewStaticEncryptor(newTestKey(t), []byte("kms-blob"))
	ctx := context.Background()

	plaintext := []byte(`{"timestamp":"2024-03-05T04:05:06Z","users":[]}`)
	env, err := enc.Encrypt(ctx, plaintext)
	require.NoError(t, err)
	assert.Equal(t, []byte("kms-blob"), env.EncryptedKey)
	assert.NotContains(t, string(env.Ciphertext), "timestamp")

	got, err := enc.Decrypt(ctx, env)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestStaticEncryptorFreshNoncePerSeal(t *testing.T) {
	enc := NewStaticEncryptor(newTestKey(t), nil)
	ctx := context.Background()

	first, err := enc.Encrypt(ctx, []byte("payload"))
	require.NoError(t, err)
	second, err := enc.Encrypt(ctx, []byte("payload"))
	require.NoError(t, err)

	assert.NotEqual(t, first.Ciphertext, second.Ciphertext)
}

func TestStaticEncryptorRejectsTamperedCiphertext(t *testing.T) {
	enc := NewStaticEncryptor(newTestKey(t), nil)
	ctx := context.Background()

	env, err := enc.Encrypt(ctx, []byte("payload"))
	require.NoError(t, err)
	env.Ciphertext[len(env.Ciphertext)-1] ^= 0xff

	_, err = enc.Decrypt(ctx, env)
	assert.Error(t, err)
}

func TestStaticEncryptorRejectsWrongKey(t *testing.T) {
	ctx := context.Background()
	env, err := NewStaticEncryptor(newTestKey(t), nil).Encrypt(ctx, []byte("payload"))
	require.NoError(t, err)

	_, err = NewStaticEncryptor(newTestKey(t), nil).Decrypt(ctx, env)
	assert.Error(t, err)
}

func TestStaticEncryptorRejectsShortCiphertext(t *testing.T) {
	enc := NewStaticEncryptor(newTestKey(t), nil)

	_, err := enc.Decrypt(context.Background(), &Envelope{Ciphertext: []byte("short")})
	assert.Error(t, err)
}

func TestStaticEncryptorRejectsBadKeyLength(t *testing.T) {
	enc := NewStaticEncryptor([]byte("too-short"), nil)

	_, err := enc.Encrypt(context.Background(), []byte("payload"))
	assert.Error(t, err)
}
