package encryption

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	env := &Envelope{
		EncryptedKey: []byte("encrypted-data-key"),
		Ciphertext:   []byte("sealed-payload"),
	}

	data, err := MarshalEnvelope(env)
	require.NoError(t, err)
	assert.True(t, IsEnvelope(data))

	got, err := UnmarshalEnvelope(data)
	require.NoError(t, err)
	assert.Equal(t, env.EncryptedKey, got.EncryptedKey)
	assert.Equal(t, env.Ciphertext, got.Ciphertext)
}

func TestEnvelopeRoundTripEmptyKey(t *testing.T) {
	data, err := MarshalEnvelope(&Envelope{Ciphertext: []byte("sealed")})
	require.NoError(t, err)

	got, err := UnmarshalEnvelope(data)
	require.NoError(t, err)
	assert.Empty(t, got.EncryptedKey)
	assert.Equal(t, []byte("sealed"), got.Ciphertext)
}

func TestIsEnvelopeRejectsPlaintext(t *testing.T) {
	assert.False(t, IsEnvelope([]byte(`{"users":[]}`)))
	assert.False(t, IsEnvelope(nil))
	assert.False(t, IsEnvelope([]byte("PSNAP")))
}

func TestUnmarshalEnvelopeRejectsPlaintext(t *testing.T) {
	_, err := UnmarshalEnvelope([]byte(`{"users":[]}`))
	assert.Error(t, err)
}

func TestUnmarshalEnvelopeRejectsTruncatedHeader(t *testing.T) {
	data, err := MarshalEnvelope(&Envelope{
		EncryptedKey: []byte("key"),
		Ciphertext:   []byte("ct"),
	})
	require.NoError(t, err)

	_, err = UnmarshalEnvelope(data[:len(envelopeMagic)+4])
	assert.Error(t, err)
}

func TestUnmarshalEnvelopeRejectsTruncatedBody(t *testing.T) {
	data, err := MarshalEnvelope(&Envelope{
		EncryptedKey: []byte("encrypted-data-key"),
		Ciphertext:   []byte("sealed-payload"),
	})
	require.NoError(t, err)

	_, err = UnmarshalEnvelope(data[:len(data)-5])
	assert.Error(t, err)
}
