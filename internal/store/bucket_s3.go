package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"

	"bqdesc-backupper/internal/errors"
)

// S3Bucket keeps objects in Amazon S3 or an S3 compatible service
type S3Bucket struct {
	client *s3.S3
	bucket string
	prefix string
}

// NewS3Bucket creates an S3 client. Static keys are used when configured,
// otherwise the default AWS credential chain applies.
func NewS3Bucket(config S3Config) (*S3Bucket, error) {
	if config.Bucket == "" || config.Region == "" {
		return nil, errors.NewConfigurationError("S3 bucket and region are required", nil)
	}

	awsConfig := &aws.Config{Region: aws.String(config.Region)}
	if config.AccessKey != "" {
		awsConfig.Credentials = credentials.NewStaticCredentials(config.AccessKey, config.SecretKey, "")
	}
	if config.Endpoint != "" {
		awsConfig.Endpoint = aws.String(config.Endpoint)
		awsConfig.S3ForcePathStyle = aws.Bool(true)
	}

	sess, err := session.NewSession(awsConfig)
	if err != nil {
		return nil, errors.NewConfigurationError("failed to create AWS session", err)
	}

	return &S3Bucket{
		client: s3.New(sess),
		bucket: config.Bucket,
		prefix: normalizePrefix(config.Prefix),
	}, nil
}

// Read downloads one object
func (b *S3Bucket) Read(ctx context.Context, key string) ([]byte, error) {
	result, err := b.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(b.prefix + key),
	})
	if err != nil {
		return nil, b.classify(err, fmt.Sprintf("failed to download s3://%s/%s%s", b.bucket, b.prefix, key))
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, errors.WrapError(err, "failed to read object from S3")
	}
	return data, nil
}

// Write uploads one object
func (b *S3Bucket) Write(ctx context.Context, key string, data []byte) error {
	_, err := b.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(b.bucket),
		Key:         aws.String(b.prefix + key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType(key)),
	})
	if err != nil {
		return b.classify(err, "failed to upload object to S3")
	}
	return nil
}

// Keys lists objects under prefix
func (b *S3Bucket) Keys(ctx context.Context, prefix string) ([]string, error) {
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(b.prefix + prefix),
	}

	var keys []string
	err := b.client.ListObjectsV2PagesWithContext(ctx, input,
		func(page *s3.ListObjectsV2Output, lastPage bool) bool {
			for _, obj := range page.Contents {
				keys = append(keys, strings.TrimPrefix(aws.StringValue(obj.Key), b.prefix))
			}
			return true
		})
	if err != nil {
		return nil, b.classify(err, "failed to list objects in S3")
	}
	return keys, nil
}

// Location returns the s3:// url of the store
func (b *S3Bucket) Location() string {
	return fmt.Sprintf("s3://%s/%s", b.bucket, b.prefix)
}

// Close is a no-op; the SDK keeps no open connections per client
func (b *S3Bucket) Close() error {
	return nil
}

func (b *S3Bucket) classify(err error, message string) error {
	if aerr, ok := err.(awserr.Error); ok {
		switch aerr.Code() {
		case s3.ErrCodeNoSuchKey:
			return errors.NewNotFoundError(message, err)
		case s3.ErrCodeNoSuchBucket:
			return errors.NewConfigurationError(message, err)
		case "AccessDenied":
			return errors.NewAppError(errors.ErrorTypePermission, message, err)
		}
	}
	return errors.WrapError(err, message)
}
