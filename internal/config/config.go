package config

import (
	"context"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/config"
)

// KMSConfig holds the snapshot-encryption settings.
type KMSConfig struct {
	Enabled     bool   `json:"enabled"`
	KeyID       string `json:"key_id"`
	Region      string `json:"region"`
	DataKeyPath string `json:"data_key_path"`
}

// Config holds the application settings read from the environment.
type Config struct {
	AWSRegion string
	Bucket    string    `json:"bucket"`
	KMS       KMSConfig `json:"kms"`
}

// LoadConfig reads settings from environment variables. BACKUP_BUCKET_NAME
// names the default snapshot bucket used when no URI is given on the
// command line; encryption is enabled whenever KMS_KEY_ID is set.
func LoadConfig() (*Config, error) {
	region := os.Getenv("AWS_REGION")

	kmsKeyID := os.Getenv("KMS_KEY_ID")
	kmsRegion := os.Getenv("KMS_REGION")
	if kmsRegion == "" {
		kmsRegion = region
	}

	return &Config{
		AWSRegion: region,
		Bucket:    os.Getenv("BACKUP_BUCKET_NAME"),
		KMS: KMSConfig{
			Enabled:     kmsKeyID != "",
			KeyID:       kmsKeyID,
			Region:      kmsRegion,
			DataKeyPath: os.Getenv("KMS_DATA_KEY_PATH"),
		},
	}, nil
}

// ValidateAWSCredentials checks that the default AWS configuration chain
// resolves.
func ValidateAWSCredentials(ctx context.Context) error {
	if _, err := config.LoadDefaultConfig(ctx); err != nil {
		return fmt.Errorf("failed to load AWS credentials: %w", err)
	}
	return nil
}
