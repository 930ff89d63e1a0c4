package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/poolsnap/poolsnap/internal/config"
	"github.com/poolsnap/poolsnap/internal/encryption"
	"github.com/poolsnap/poolsnap/internal/storage"
)

func Decrypt(ctx context.Context, cli *CLI) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	inputInfo, err := parseStorageURI(cli.Decrypt.Input)
	if err != nil {
		return fmt.Errorf("failed to parse input path: %w", err)
	}
	outputInfo, err := parseStorageURI(cli.Decrypt.Output)
	if err != nil {
		return fmt.Errorf("failed to parse output path: %w", err)
	}
	if inputInfo.storageType == storageTypeS3 || outputInfo.storageType == storageTypeS3 {
		if err := config.ValidateAWSCredentials(ctx); err != nil {
			return err
		}
	}

	dataKey, err := readDataKey(ctx, cli.Decrypt.DataKeyPath)
	if err != nil {
		return err
	}

	// With a plaintext data key at hand no KMS round-trip is needed.
	var encryptor encryption.Encryptor
	if len(dataKey.Plaintext) > 0 {
		encryptor = encryption.NewStaticEncryptor(dataKey.Plaintext, dataKey.Encrypted)
	} else {
		kmsEncryptor, err := encryption.NewKMSEncryptor(ctx, cli.Decrypt.KMSKeyID, cli.Decrypt.KMSRegion)
		if err != nil {
			return fmt.Errorf("failed to initialize KMS encryption: %w", err)
		}
		kmsEncryptor.SetDataKey(dataKey)
		encryptor = kmsEncryptor
	}

	inputStore, inputKey, err := objectStore(ctx, inputInfo)
	if err != nil {
		return err
	}
	// The input store decrypts on Get; the output store writes plaintext.
	inputStore.SetEncryptor(encryptor)

	outputStore, outputKey, err := objectStore(ctx, outputInfo)
	if err != nil {
		return err
	}

	data, err := inputStore.Get(ctx, inputKey)
	if err != nil {
		return fmt.Errorf("failed to read encrypted snapshot: %w", err)
	}

	if err := outputStore.Put(ctx, outputKey, data, "application/json"); err != nil {
		return fmt.Errorf("failed to save decrypted snapshot: %w", err)
	}

	fmt.Printf("Decryption completed: %s\n", cli.Decrypt.Output)
	return nil
}

// objectStore builds a store addressing a single object URI, returning the
// key of that object within the store.
func objectStore(ctx context.Context, info *storageInfo) (storage.Store, string, error) {
	switch info.storageType {
	case storageTypeS3:
		store, err := newStore(ctx, &storageInfo{storageType: storageTypeS3, bucket: info.bucket})
		return store, info.path, err
	case storageTypeFile:
		store, err := newStore(ctx, &storageInfo{storageType: storageTypeFile, path: "/"})
		return store, info.path, err
	}
	return nil, "", fmt.Errorf("unsupported storage type: %s", info.storageType)
}
