package restore

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// PasswordSource supplies the temporary credential assigned to each
// restored user.
type PasswordSource interface {
	TemporaryPassword(username string) (string, error)
}

// StaticPassword hands every user the same caller-supplied credential.
type StaticPassword string

func (p StaticPassword) TemporaryPassword(string) (string, error) {
	return string(p), nil
}

// GeneratedPasswords generates a fresh random credential per user. The
// fixed prefix guarantees one character from each class a pool password
// policy can require.
type GeneratedPasswords struct{}

func (GeneratedPasswords) TemporaryPassword(string) (string, error) {
	buf := make([]byte, 18)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate temporary password: %w", err)
	}
	return "Tp1!" + base64.RawStdEncoding.EncodeToString(buf), nil
}
