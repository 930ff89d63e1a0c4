package encryption

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// envelopeMagic prefixes every serialized envelope so stored objects can be
// told apart from plaintext ones.
var envelopeMagic = []byte("PSNAPENC1")

// MarshalEnvelope serializes an envelope.
// Layout: | magic | 4 bytes key length | 4 bytes ciphertext length |
// encrypted data key | ciphertext |, lengths little-endian.
func MarshalEnvelope(env *Envelope) ([]byte, error) {
	var buf bytes.Buffer
	buf.Write(envelopeMagic)

	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(env.EncryptedKey))); err != nil {
		return nil, fmt.Errorf("failed to write encrypted data key length: %w", err)
	}
	if err := binary.Write(&buf, binary.LittleEndian, uint32(len(env.Ciphertext))); err != nil {
		return nil, fmt.Errorf("failed to write ciphertext length: %w", err)
	}
	buf.Write(env.EncryptedKey)
	buf.Write(env.Ciphertext)

	return buf.Bytes(), nil
}

// UnmarshalEnvelope parses data produced by MarshalEnvelope.
func UnmarshalEnvelope(data []byte) (*Envelope, error) {
	if !IsEnvelope(data) {
		return nil, fmt.Errorf("data is not an encrypted envelope")
	}
	data = data[len(envelopeMagic):]
	if len(data) < 8 {
		return nil, fmt.Errorf("envelope header is truncated: %d bytes", len(data))
	}

	keyLen := binary.LittleEndian.Uint32(data[0:4])
	ctLen := binary.LittleEndian.Uint32(data[4:8])
	body := data[8:]
	if uint64(len(body)) < uint64(keyLen)+uint64(ctLen) {
		return nil, fmt.Errorf("incomplete envelope: expected %d bytes, got %d", keyLen+ctLen, len(body))
	}

	return &Envelope{
		EncryptedKey: body[:keyLen],
		Ciphertext:   body[keyLen : uint64(keyLen)+uint64(ctLen)],
	}, nil
}

// IsEnvelope reports whether data carries the envelope magic.
func IsEnvelope(data []byte) bool {
	return bytes.HasPrefix(data, envelopeMagic)
}
