package store

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/Azure/azure-storage-blob-go/azblob"

	"bqdesc-backupper/internal/errors"
)

// AzureBucket keeps objects in an Azure Blob Storage container
type AzureBucket struct {
	containerURL  azblob.ContainerURL
	containerName string
	prefix        string
}

// NewAzureBucket creates a container client with a shared key credential
func NewAzureBucket(config AzureConfig) (*AzureBucket, error) {
	if config.AccountName == "" || config.AccountKey == "" || config.ContainerName == "" {
		return nil, errors.NewConfigurationError("Azure account name, key and container are required", nil)
	}

	credential, err := azblob.NewSharedKeyCredential(config.AccountName, config.AccountKey)
	if err != nil {
		return nil, errors.NewConfigurationError("failed to create Azure credentials", err)
	}

	pipeline := azblob.NewPipeline(credential, azblob.PipelineOptions{})

	serviceURL, err := url.Parse(fmt.Sprintf("https://%s.blob.core.windows.net", config.AccountName))
	if err != nil {
		return nil, errors.NewConfigurationError("failed to parse Azure service URL", err)
	}

	return &AzureBucket{
		containerURL:  azblob.NewServiceURL(*serviceURL, pipeline).NewContainerURL(config.ContainerName),
		containerName: config.ContainerName,
		prefix:        normalizePrefix(config.Prefix),
	}, nil
}

// Read downloads one blob
func (b *AzureBucket) Read(ctx context.Context, key string) ([]byte, error) {
	blobURL := b.containerURL.NewBlockBlobURL(b.prefix + key)

	resp, err := blobURL.Download(ctx, 0, azblob.CountToEnd, azblob.BlobAccessConditions{}, false, azblob.ClientProvidedKeyOptions{})
	if err != nil {
		return nil, b.classify(err, fmt.Sprintf("failed to download %s from Azure", key))
	}

	body := resp.Body(azblob.RetryReaderOptions{MaxRetryRequests: 20})
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.WrapError(err, "failed to read blob data")
	}
	return data, nil
}

// Write uploads one blob
func (b *AzureBucket) Write(ctx context.Context, key string, data []byte) error {
	blobURL := b.containerURL.NewBlockBlobURL(b.prefix + key)

	_, err := azblob.UploadBufferToBlockBlob(ctx, data, blobURL, azblob.UploadToBlockBlobOptions{
		BlockSize:   4 * 1024 * 1024,
		Parallelism: 4,
		BlobHTTPHeaders: azblob.BlobHTTPHeaders{
			ContentType: contentType(key),
		},
	})
	if err != nil {
		return b.classify(err, "failed to upload blob to Azure")
	}
	return nil
}

// Keys lists blobs under prefix
func (b *AzureBucket) Keys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for marker := (azblob.Marker{}); marker.NotDone(); {
		resp, err := b.containerURL.ListBlobsFlatSegment(ctx, marker, azblob.ListBlobsSegmentOptions{
			Prefix: b.prefix + prefix,
		})
		if err != nil {
			return nil, b.classify(err, "failed to list blobs in Azure")
		}
		for _, blob := range resp.Segment.BlobItems {
			keys = append(keys, strings.TrimPrefix(blob.Name, b.prefix))
		}
		marker = resp.NextMarker
	}
	return keys, nil
}

// Location returns the azure:// url of the store
func (b *AzureBucket) Location() string {
	return fmt.Sprintf("azure://%s/%s", b.containerName, b.prefix)
}

// Close is a no-op
func (b *AzureBucket) Close() error {
	return nil
}

func (b *AzureBucket) classify(err error, message string) error {
	if serr, ok := err.(azblob.StorageError); ok {
		switch serr.ServiceCode() {
		case azblob.ServiceCodeBlobNotFound:
			return errors.NewNotFoundError(message, err)
		case azblob.ServiceCodeContainerNotFound:
			return errors.NewConfigurationError(message, err)
		case azblob.ServiceCodeType("AuthenticationFailed"), azblob.ServiceCodeType("InsufficientAccountPermissions"):
			return errors.NewAppError(errors.ErrorTypePermission, message, err)
		}
	}
	return errors.WrapError(err, message)
}
