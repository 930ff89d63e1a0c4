package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/poolsnap/poolsnap/internal/encryption"
)

// S3Storage implements Store on an S3 bucket, optionally under a key
// prefix.
type S3Storage struct {
	client    *s3.Client
	bucket    string
	prefix    string
	encryptor encryption.Encryptor
}

// NewS3Storage creates an S3Storage for the bucket, re-resolving the client
// against the bucket's own region when it differs from the default one.
func NewS3Storage(ctx context.Context, bucket, prefix string) (*S3Storage, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
	}
	client := s3.NewFromConfig(cfg)

	location, err := client.GetBucketLocation(ctx, &s3.GetBucketLocationInput{
		Bucket: aws.String(bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get bucket location: %w", err)
	}
	if region := string(location.LocationConstraint); region != "" && client.Options().Region != region {
		cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS configuration: %w", err)
		}
		client = s3.NewFromConfig(cfg)
	}

	return &S3Storage{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
	}, nil
}

func (s *S3Storage) objectKey(key string) string {
	return path.Join(s.prefix, key)
}

// Put uploads one object, sealing it first when an encryptor is installed.
func (s *S3Storage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if s.encryptor != nil {
		env, err := s.encryptor.Encrypt(ctx, data)
		if err != nil {
			return fmt.Errorf("failed to encrypt object: %w", err)
		}
		data, err = encryption.MarshalEnvelope(env)
		if err != nil {
			return fmt.Errorf("failed to serialize encrypted object: %w", err)
		}
		contentType = "application/octet-stream"
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(key)),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("failed to upload to S3: %w", err)
	}
	return nil
}

// Get downloads one object, opening the envelope when the payload carries
// one and an encryptor is installed.
func (s *S3Storage) Get(ctx context.Context, key string) ([]byte, error) {
	output, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.objectKey(key)),
	})
	if err != nil {
		var noSuchKey *s3types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to download from S3: %w", err)
	}
	defer output.Body.Close()

	data, err := io.ReadAll(output.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object body: %w", err)
	}

	return maybeDecrypt(ctx, s.encryptor, data)
}

// List returns the keys under prefix matching the pattern, relative to the
// store's own prefix.
func (s *S3Storage) List(ctx context.Context, prefix, pattern string) ([]string, error) {
	regex, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regex pattern: %w", err)
	}

	var keys []string
	var continuationToken *string
	for {
		output, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.bucket),
			Prefix:            aws.String(s.objectKey(prefix)),
			ContinuationToken: continuationToken,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list objects: %w", err)
		}

		for _, obj := range output.Contents {
			key := aws.ToString(obj.Key)
			if s.prefix != "" {
				key = strings.TrimPrefix(key, s.prefix+"/")
			}
			if regex.MatchString(key) {
				keys = append(keys, key)
			}
		}

		if output.IsTruncated == nil || !*output.IsTruncated {
			break
		}
		continuationToken = output.NextContinuationToken
	}

	return keys, nil
}

// Location renders a key as an s3:// URI.
func (s *S3Storage) Location(key string) string {
	return "s3://" + path.Join(s.bucket, s.objectKey(key))
}

// SetEncryptor installs envelope encryption for subsequent Put/Get calls.
func (s *S3Storage) SetEncryptor(encryptor encryption.Encryptor) {
	s.encryptor = encryptor
}

// maybeDecrypt opens an envelope-formatted payload when an encryptor is
// available; plaintext payloads pass through unchanged.
func maybeDecrypt(ctx context.Context, encryptor encryption.Encryptor, data []byte) ([]byte, error) {
	if encryptor == nil || !encryption.IsEnvelope(data) {
		return data, nil
	}

	env, err := encryption.UnmarshalEnvelope(data)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize encrypted object: %w", err)
	}
	plaintext, err := encryptor.Decrypt(ctx, env)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt object: %w", err)
	}
	return plaintext, nil
}
