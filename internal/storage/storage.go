// Package storage abstracts the durable object store that snapshots are
// written to and read from.
package storage

import (
	"context"
	"errors"

	"github.com/poolsnap/poolsnap/internal/encryption"
)

// ErrNotFound marks a Get for a key the store does not hold. Returned
// wrapped so errors.Is works.
var ErrNotFound = errors.New("object not found")

// Store is the archive capability set. Keys are slash-separated and
// relative to the store's root (bucket/prefix or directory). When an
// encryptor is installed, Put seals payloads into envelopes and Get opens
// envelope-formatted objects transparently.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns the keys under prefix whose names match the regular
	// expression pattern.
	List(ctx context.Context, prefix, pattern string) ([]string, error)

	// Location renders a key as a full URI for reporting.
	Location(key string) string

	SetEncryptor(encryptor encryption.Encryptor)
}
