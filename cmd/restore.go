package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/poolsnap/poolsnap/internal/backup"
	"github.com/poolsnap/poolsnap/internal/config"
	"github.com/poolsnap/poolsnap/internal/directory"
	"github.com/poolsnap/poolsnap/internal/encryption"
	"github.com/poolsnap/poolsnap/internal/invoke"
	"github.com/poolsnap/poolsnap/internal/restore"
)

func Restore(ctx context.Context, cli *CLI) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	uri, err := resolveURI(cli.Restore.URI, cfg)
	if err != nil {
		return err
	}
	info, err := parseStorageURI(uri)
	if err != nil {
		return err
	}
	if info.storageType == storageTypeS3 {
		if err := config.ValidateAWSCredentials(ctx); err != nil {
			return err
		}
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	dir, err := directory.NewCognitoClient(ctx, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize Cognito client: %w", err)
	}

	store, err := newStore(ctx, info)
	if err != nil {
		return err
	}

	kmsKeyID := cli.Restore.KMSKeyID
	if kmsKeyID == "" && cfg.KMS.Enabled {
		kmsKeyID = cfg.KMS.KeyID
	}
	if kmsKeyID != "" {
		kmsRegion := cli.Restore.KMSRegion
		if kmsRegion == "" {
			kmsRegion = cfg.KMS.Region
		}
		encryptor, err := encryption.NewKMSEncryptor(ctx, kmsKeyID, kmsRegion)
		if err != nil {
			return fmt.Errorf("failed to initialize KMS encryption: %w", err)
		}
		store.SetEncryptor(encryptor)
		logger.Info("KMS decryption enabled")
	}

	restorer := restore.NewRestorer(dir, store, logger)
	if cli.Restore.TemporaryPassword != "" {
		restorer.SetPasswordSource(restore.StaticPassword(cli.Restore.TemporaryPassword))
	}

	handler := invoke.NewHandler(backup.NewBuilder(dir, store, logger), restorer)
	result, err := handler.Handle(ctx, invoke.Request{
		Operation:    invoke.OperationRestore,
		SnapshotKey:  cli.Restore.Key,
		TargetPoolID: cli.Restore.TargetPoolID,
	})
	if err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}

	return printResult(result)
}
