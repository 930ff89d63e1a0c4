package cmd

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/poolsnap/poolsnap/internal/config"
	"github.com/poolsnap/poolsnap/internal/encryption"
	"github.com/poolsnap/poolsnap/internal/storage"
)

const (
	storageTypeS3   = "s3"
	storageTypeFile = "file"
)

// storageInfo is a parsed storage URI.
type storageInfo struct {
	storageType string // "s3" or "file"
	bucket      string // bucket name for s3
	path        string // key prefix (s3) or directory (file)
}

func parseStorageURI(uri string) (*storageInfo, error) {
	if uri == "" {
		return nil, fmt.Errorf("URI is not specified")
	}

	switch {
	case strings.HasPrefix(uri, "s3://"):
		// s3://bucket or s3://bucket/prefix
		rest := strings.TrimPrefix(uri, "s3://")
		parts := strings.SplitN(rest, "/", 2)
		if parts[0] == "" {
			return nil, fmt.Errorf("invalid S3 URI format: %s", uri)
		}
		info := &storageInfo{storageType: storageTypeS3, bucket: parts[0]}
		if len(parts) == 2 {
			info.path = parts[1]
		}
		return info, nil
	case strings.HasPrefix(uri, "file://"):
		// file:///path/to/dir
		return &storageInfo{
			storageType: storageTypeFile,
			path:        strings.TrimPrefix(uri, "file://"),
		}, nil
	}

	return nil, fmt.Errorf("invalid URI format: %s", uri)
}

// resolveURI falls back to the bucket from the environment when no URI was
// given on the command line.
func resolveURI(uri string, cfg *config.Config) (string, error) {
	if uri != "" {
		return uri, nil
	}
	if cfg.Bucket != "" {
		return "s3://" + cfg.Bucket, nil
	}
	return "", fmt.Errorf("no storage URI: pass --uri or set BACKUP_BUCKET_NAME")
}

func newStore(ctx context.Context, info *storageInfo) (storage.Store, error) {
	switch info.storageType {
	case storageTypeS3:
		store, err := storage.NewS3Storage(ctx, info.bucket, info.path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		return store, nil
	case storageTypeFile:
		store, err := storage.NewLocalStorage(info.path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize local storage: %w", err)
		}
		return store, nil
	}
	return nil, fmt.Errorf("unsupported storage type: %s", info.storageType)
}

func newLogger() (*zap.Logger, error) {
	logger, err := zap.NewProduction()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}

// readDataKey loads and parses a data key file written by generate-datakey.
func readDataKey(ctx context.Context, uri string) (*encryption.DataKey, error) {
	info, err := parseStorageURI(uri)
	if err != nil {
		return nil, fmt.Errorf("failed to parse data key path: %w", err)
	}

	var data []byte
	switch info.storageType {
	case storageTypeS3:
		store, err := storage.NewS3Storage(ctx, info.bucket, "")
		if err != nil {
			return nil, err
		}
		data, err = store.Get(ctx, info.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read data key file: %w", err)
		}
	case storageTypeFile:
		data, err = os.ReadFile(info.path)
		if err != nil {
			return nil, fmt.Errorf("failed to read data key file: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", info.storageType)
	}

	var result DataKeyResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse data key file: %w", err)
	}

	dataKey := &encryption.DataKey{}
	if result.EncryptedDataKey != "" {
		dataKey.Encrypted, err = base64.StdEncoding.DecodeString(result.EncryptedDataKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decode encrypted data key: %w", err)
		}
	}
	if result.PlaintextDataKey != "" {
		dataKey.Plaintext, err = base64.StdEncoding.DecodeString(result.PlaintextDataKey)
		if err != nil {
			return nil, fmt.Errorf("failed to decode plaintext data key: %w", err)
		}
	}
	return dataKey, nil
}

func printResult(result any) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
