package cmd

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poolsnap/poolsnap/internal/config"
)

func TestParseStorageURI(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		want storageInfo
	}{
		{
			name: "s3 bucket only",
			uri:  "s3://my-backups",
			want: storageInfo{storageType: storageTypeS3, bucket: "my-backups"},
		},
		{
			name: "s3 bucket with prefix",
			uri:  "s3://my-backups/team/prod",
			want: storageInfo{storageType: storageTypeS3, bucket: "my-backups", path: "team/prod"},
		},
		{
			name: "s3 bucket with trailing slash",
			uri:  "s3://my-backups/",
			want: storageInfo{storageType: storageTypeS3, bucket: "my-backups", path: ""},
		},
		{
			name: "file",
			uri:  "file:///var/backups/pools",
			want: storageInfo{storageType: storageTypeFile, path: "/var/backups/pools"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := parseStorageURI(tt.uri)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *info)
		})
	}
}

func TestParseStorageURIRejectsBadInput(t *testing.T) {
	for _, uri := range []string{"", "s3://", "https://example.com/x", "/var/backups"} {
		_, err := parseStorageURI(uri)
		assert.Error(t, err, "uri %q", uri)
	}
}

func TestResolveURIPrefersExplicitURI(t *testing.T) {
	got, err := resolveURI("file:///tmp/backups", &config.Config{Bucket: "env-bucket"})
	require.NoError(t, err)
	assert.Equal(t, "file:///tmp/backups", got)
}

func TestResolveURIFallsBackToBucket(t *testing.T) {
	got, err := resolveURI("", &config.Config{Bucket: "env-bucket"})
	require.NoError(t, err)
	assert.Equal(t, "s3://env-bucket", got)
}

func TestResolveURIErrorsWithoutAnySource(t *testing.T) {
	_, err := resolveURI("", &config.Config{})
	assert.Error(t, err)
}

func TestNewStoreFile(t *testing.T) {
	dir := t.TempDir()
	store, err := newStore(context.Background(), &storageInfo{storageType: storageTypeFile, path: dir})
	require.NoError(t, err)
	assert.Equal(t, "file://"+dir+"/snap.json", store.Location("snap.json"))
}

func TestReadDataKeyFromFile(t *testing.T) {
	plaintext := []byte("0123456789abcdef0123456789abcdef")
	encrypted := []byte("kms-ciphertext-blob")
	result := DataKeyResult{
		KMSKeyID:         "alias/pool-backups",
		EncryptedDataKey: base64.StdEncoding.EncodeToString(encrypted),
		PlaintextDataKey: base64.StdEncoding.EncodeToString(plaintext),
		KeySpec:          "AES_256",
	}
	raw, err := json.Marshal(result)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "datakey.json")
	require.NoError(t, os.WriteFile(path, raw, 0600))

	dataKey, err := readDataKey(context.Background(), "file://"+path)
	require.NoError(t, err)
	assert.Equal(t, plaintext, dataKey.Plaintext)
	assert.Equal(t, encrypted, dataKey.Encrypted)
}

func TestReadDataKeyRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "datakey.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0600))

	_, err := readDataKey(context.Background(), "file://"+path)
	assert.Error(t, err)
}

func TestReadDataKeyRejectsBadBase64(t *testing.T) {
	raw, err := json.Marshal(DataKeyResult{EncryptedDataKey: "%%%"})
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "datakey.json")
	require.NoError(t, os.WriteFile(path, raw, 0600))

	_, err = readDataKey(context.Background(), "file://"+path)
	assert.Error(t, err)
}
