package storage

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/poolsnap/poolsnap/internal/encryption"
)

// LocalStorage implements Store on a local directory.
type LocalStorage struct {
	root      string
	encryptor encryption.Encryptor
}

// NewLocalStorage creates a LocalStorage rooted at the given directory,
// creating it if necessary.
func NewLocalStorage(root string) (*LocalStorage, error) {
	if root == "" {
		return nil, fmt.Errorf("storage root is not specified")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &LocalStorage{root: root}, nil
}

func (s *LocalStorage) filePath(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

// Put writes one object, sealing it first when an encryptor is installed.
// The content type is advisory and not recorded on the filesystem.
func (s *LocalStorage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if s.encryptor != nil {
		env, err := s.encryptor.Encrypt(ctx, data)
		if err != nil {
			return fmt.Errorf("failed to encrypt object: %w", err)
		}
		data, err = encryption.MarshalEnvelope(env)
		if err != nil {
			return fmt.Errorf("failed to serialize encrypted object: %w", err)
		}
	}

	target := s.filePath(key)
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	if err := os.WriteFile(target, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// Get reads one object, opening the envelope when the payload carries one
// and an encryptor is installed.
func (s *LocalStorage) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(s.filePath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return maybeDecrypt(ctx, s.encryptor, data)
}

// List returns the keys under prefix matching the pattern, relative to the
// storage root. A missing prefix directory yields an empty list.
func (s *LocalStorage) List(ctx context.Context, prefix, pattern string) ([]string, error) {
	regex, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern: %w", err)
	}

	start := s.filePath(prefix)
	if _, err := os.Stat(start); os.IsNotExist(err) {
		return nil, nil
	}

	var keys []string
	err = filepath.WalkDir(start, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if regex.MatchString(key) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk storage root: %w", err)
	}
	return keys, nil
}

// Location renders a key as a file:// URI.
func (s *LocalStorage) Location(key string) string {
	abs, err := filepath.Abs(s.filePath(key))
	if err != nil {
		abs = s.filePath(key)
	}
	return "file://" + filepath.ToSlash(abs)
}

// SetEncryptor installs envelope encryption for subsequent Put/Get calls.
func (s *LocalStorage) SetEncryptor(encryptor encryption.Encryptor) {
	s.encryptor = encryptor
}
