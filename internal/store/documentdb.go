package store

import (
	"context"
	"fmt"

	"bqdesc-backupper/internal/description"
	"bqdesc-backupper/internal/errors"
	"bqdesc-backupper/internal/logging"
)

// Document is one stored record. Err is set instead of Record when the stored
// bytes could not be decoded.
type Document struct {
	ID     string
	Record *description.Record
	Err    error
}

// DocumentDB is the collection/document primitive every backend provides
type DocumentDB interface {
	// Get returns a NotFound error when the document does not exist
	Get(ctx context.Context, collection, id string) (*description.Record, error)
	Set(ctx context.Context, collection, id string, record *description.Record) error
	// List returns every document of a collection; an unknown collection is empty
	List(ctx context.Context, collection string) ([]Document, error)
	// Collections returns the ids of every collection holding documents
	Collections(ctx context.Context) ([]string, error)
	Close() error
}

// collectionCopier is implemented by backends that can copy a collection
// faster than a document-by-document List and Set
type collectionCopier interface {
	CopyCollection(ctx context.Context, src, dst string) (int, error)
}

// OpenDocumentDB creates the DocumentDB selected by config
func OpenDocumentDB(ctx context.Context, config Config, logger *logging.Logger) (DocumentDB, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Backend {
	case BackendFirestore:
		return NewFirestoreDB(ctx, config.Firestore)
	}

	compressor, err := GetCompressor(config.Compression)
	if err != nil {
		return nil, err
	}

	var bucket Bucket
	switch config.Backend {
	case BackendLocal:
		bucket, err = NewLocalBucket(config.Local)
	case BackendGCS:
		bucket, err = NewGCSBucket(ctx, config.GCS)
	case BackendS3:
		bucket, err = NewS3Bucket(config.S3)
	case BackendAzure:
		bucket, err = NewAzureBucket(config.Azure)
	default:
		return nil, errors.NewConfigurationError(fmt.Sprintf("unsupported backend: %s", config.Backend), nil)
	}
	if err != nil {
		return nil, err
	}

	logger.WithFields(map[string]interface{}{
		"backend":     config.Backend,
		"location":    bucket.Location(),
		"compression": config.Compression,
	}).Debug("Object store opened")

	return NewObjectDB(bucket, compressor), nil
}
