package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/poolsnap/poolsnap/internal/config"
)

func List(ctx context.Context, cli *CLI) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	uri, err := resolveURI(cli.List.URI, cfg)
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

	store, err := newStore(ctx, info)
	if err != nil {
		return err
	}

	keys, err := store.List(ctx, "", cli.List.Pattern)
	if err != nil {
		return fmt.Errorf("failed to list snapshots: %w", err)
	}

	if len(keys) == 0 {
		fmt.Println("No snapshots found matching the specified pattern")
		return nil
	}

	fmt.Printf("Snapshots (Total: %d)\n", len(keys))
	fmt.Println("----------------------------------------")
	for _, key := range keys {
		fmt.Printf("%s\n  %s\n", key, store.Location(key))
	}

	return nil
}
