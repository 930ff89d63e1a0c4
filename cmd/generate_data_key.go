package cmd

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/poolsnap/poolsnap/internal/config"
	"github.com/poolsnap/poolsnap/internal/encryption"
)

// DataKeyResult is the serialized form of a generated data key, consumed
// later through --data-key-path.
type DataKeyResult struct {
	KMSKeyID         string `json:"kms_key_id"`
	EncryptedDataKey string `json:"encrypted_data_key"`
	PlaintextDataKey string `json:"plaintext_data_key,omitempty"`
	KeySpec          string `json:"key_spec"`
	GeneratedAt      string `json:"generated_at"`
}

func GenerateDatakey(ctx context.Context, cli *CLI) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cli.GenerateDatakey.Test {
		return generateTestDatakey(cli)
	}

	if err := config.ValidateAWSCredentials(ctx); err != nil {
		return err
	}

	encryptor, err := encryption.NewKMSEncryptor(ctx, cli.GenerateDatakey.KMSKeyID, cli.GenerateDatakey.KMSRegion)
	if err != nil {
		return fmt.Errorf("failed to initialize KMS encryption: %w", err)
	}

	dataKey, err := encryptor.GenerateDataKey(ctx)
	if err != nil {
		return err
	}

	result := DataKeyResult{
		KMSKeyID:         cli.GenerateDatakey.KMSKeyID,
		EncryptedDataKey: base64.StdEncoding.EncodeToString(dataKey.Encrypted),
		KeySpec:          cli.GenerateDatakey.Spec,
		GeneratedAt:      time.Now().UTC().Format(time.RFC3339),
	}

	return writeDataKeyResult(cli, result, dataKey.Plaintext, dataKey.Encrypted)
}

// generateTestDatakey produces a dummy data key locally without any KMS
// call, for offline testing of the encryption pipeline.
func generateTestDatakey(cli *CLI) error {
	plaintextKey := make([]byte, 32)  // AES-256
	encryptedKey := make([]byte, 128) // dummy blob
	if _, err := rand.Read(plaintextKey); err != nil {
		return fmt.Errorf("failed to generate test data key: %w", err)
	}
	if _, err := rand.Read(encryptedKey); err != nil {
		return fmt.Errorf("failed to generate test encrypted key: %w", err)
	}

	result := DataKeyResult{
		KMSKeyID:         cli.GenerateDatakey.KMSKeyID + "-TEST",
		EncryptedDataKey: base64.StdEncoding.EncodeToString(encryptedKey),
		KeySpec:          cli.GenerateDatakey.Spec,
		GeneratedAt:      time.Now().UTC().Format(time.RFC3339),
	}

	return writeDataKeyResult(cli, result, plaintextKey, encryptedKey)
}

func writeDataKeyResult(cli *CLI, result DataKeyResult, plaintextKey, encryptedKey []byte) error {
	var output string
	switch cli.GenerateDatakey.Format {
	case "json":
		result.PlaintextDataKey = base64.StdEncoding.EncodeToString(plaintextKey)
		jsonData, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to convert to JSON: %w", err)
		}
		output = string(jsonData)
	case "base64":
		output = fmt.Sprintf("# Encrypted Data Key (Base64)\n%s\n\n# Plaintext Data Key (Base64) - Handle with care\n%s\n",
			base64.StdEncoding.EncodeToString(encryptedKey),
			base64.StdEncoding.EncodeToString(plaintextKey))
	}

	// Clear the plaintext key from memory once rendered.
	for i := range plaintextKey {
		plaintextKey[i] = 0
	}

	if cli.GenerateDatakey.Output != "" {
		if err := os.WriteFile(cli.GenerateDatakey.Output, []byte(output), 0600); err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}
		fmt.Printf("Data key saved to %s\n", cli.GenerateDatakey.Output)
		return nil
	}
	fmt.Print(output)
	return nil
}
