package store

import (
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"bqdesc-backupper/internal/errors"
)

// GCSBucket keeps objects in a Google Cloud Storage bucket
type GCSBucket struct {
	client     *storage.Client
	bucketName string
	prefix     string
}

// NewGCSBucket creates a GCS client using the key file or default credentials
func NewGCSBucket(ctx context.Context, config GCSConfig) (*GCSBucket, error) {
	if config.Bucket == "" {
		return nil, errors.NewConfigurationError("GCS bucket is required", nil)
	}

	var opts []option.ClientOption
	if config.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsPath))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, errors.WrapError(err, "failed to create GCS client")
	}

	return &GCSBucket{
		client:     client,
		bucketName: config.Bucket,
		prefix:     normalizePrefix(config.Prefix),
	}, nil
}

// Read downloads one object
func (b *GCSBucket) Read(ctx context.Context, key string) ([]byte, error) {
	reader, err := b.client.Bucket(b.bucketName).Object(b.prefix + key).NewReader(ctx)
	if err == storage.ErrObjectNotExist {
		return nil, errors.NewNotFoundError(fmt.Sprintf("object %s not found", key), err)
	}
	if err != nil {
		return nil, errors.WrapError(err, fmt.Sprintf("failed to open gs://%s/%s%s", b.bucketName, b.prefix, key))
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.WrapError(err, "failed to read object from GCS")
	}
	return data, nil
}

// Write uploads one object
func (b *GCSBucket) Write(ctx context.Context, key string, data []byte) error {
	writer := b.client.Bucket(b.bucketName).Object(b.prefix + key).NewWriter(ctx)
	writer.ContentType = contentType(key)

	if _, err := writer.Write(data); err != nil {
		writer.Close()
		return errors.WrapError(err, "failed to write object to GCS")
	}
	if err := writer.Close(); err != nil {
		return errors.WrapError(err, "failed to upload object to GCS")
	}
	return nil
}

// Keys lists objects under prefix
func (b *GCSBucket) Keys(ctx context.Context, prefix string) ([]string, error) {
	it := b.client.Bucket(b.bucketName).Objects(ctx, &storage.Query{Prefix: b.prefix + prefix})

	var keys []string
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, errors.WrapError(err, "failed to list objects in GCS")
		}
		keys = append(keys, strings.TrimPrefix(attrs.Name, b.prefix))
	}
	return keys, nil
}

// Location returns the gs:// url of the store
func (b *GCSBucket) Location() string {
	return fmt.Sprintf("gs://%s/%s", b.bucketName, b.prefix)
}

// Close releases the client
func (b *GCSBucket) Close() error {
	return b.client.Close()
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}

func contentType(key string) string {
	if strings.HasSuffix(key, documentSuffix) {
		return "application/json"
	}
	return "application/octet-stream"
}
