// Package store keeps dataset and table descriptions in the backup store and
// manages dated snapshots of it.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"bqdesc-backupper/internal/description"
	"bqdesc-backupper/internal/logging"
)

// Store is the backup store adapter over a DocumentDB
type Store struct {
	db                DocumentDB
	datasetCollection string
	tableCollection   string
	logger            *logging.Logger
	now               func() time.Time
}

// Option customizes a Store
type Option func(*Store)

// WithClock replaces the clock used to stamp created_at
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithCollections overrides the collection names
func WithCollections(datasetCollection, tableCollection string) Option {
	return func(s *Store) {
		if datasetCollection != "" {
			s.datasetCollection = datasetCollection
		}
		if tableCollection != "" {
			s.tableCollection = tableCollection
		}
	}
}

// New creates a Store over db
func New(db DocumentDB, logger *logging.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	s := &Store{
		db:                db,
		datasetCollection: DefaultDatasetCollection,
		tableCollection:   DefaultTableCollection,
		logger:            logger,
		now:               time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open creates the backend selected by config and wraps it in a Store
func Open(ctx context.Context, config Config, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	db, err := OpenDocumentDB(ctx, config, logger)
	if err != nil {
		return nil, err
	}
	return New(db, logger, WithCollections(config.DatasetCollection, config.TableCollection)), nil
}

// Close closes the underlying DocumentDB
func (s *Store) Close() error {
	return s.db.Close()
}

// DatasetCollection returns the live dataset collection name
func (s *Store) DatasetCollection() string {
	return s.datasetCollection
}

// TableCollection returns the live table collection name
func (s *Store) TableCollection() string {
	return s.tableCollection
}

// GetDatasetDescription reads a stored dataset description
func (s *Store) GetDatasetDescription(ctx context.Context, datasetID string) (*description.DatasetDescription, error) {
	record, err := s.db.Get(ctx, s.datasetCollection, datasetID)
	if err != nil {
		return nil, err
	}
	return description.DatasetFromRecord(record)
}

// GetTableDescription reads a stored table description
func (s *Store) GetTableDescription(ctx context.Context, datasetID, tableID string) (*description.TableDescription, error) {
	record, err := s.db.Get(ctx, s.tableCollection, description.TableDocumentID(datasetID, tableID))
	if err != nil {
		return nil, err
	}
	return description.TableFromRecord(record)
}

// PutDatasetDescription overwrites the stored description of datasetID
func (s *Store) PutDatasetDescription(ctx context.Context, datasetID string, d *description.DatasetDescription) error {
	record := d.ToRecord()
	s.stamp(record)
	return s.db.Set(ctx, s.datasetCollection, datasetID, record)
}

// PutTableDescription overwrites the stored description of datasetID.tableID
func (s *Store) PutTableDescription(ctx context.Context, datasetID, tableID string, t *description.TableDescription) error {
	record := t.ToRecord()
	s.stamp(record)
	return s.db.Set(ctx, s.tableCollection, description.TableDocumentID(datasetID, tableID), record)
}

// ListAllDatasetDescriptions returns every stored dataset description.
// Documents that cannot be decoded are skipped and reported through a
// *multierror.Error; the decodable descriptions are returned alongside it.
func (s *Store) ListAllDatasetDescriptions(ctx context.Context) ([]*description.DatasetDescription, error) {
	docs, err := s.db.List(ctx, s.datasetCollection)
	if err != nil {
		return nil, err
	}

	var result *multierror.Error
	descs := make([]*description.DatasetDescription, 0, len(docs))
	for _, doc := range docs {
		d, err := decodeDataset(doc)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s/%s: %w", s.datasetCollection, doc.ID, err))
			continue
		}
		descs = append(descs, d)
	}
	return descs, result.ErrorOrNil()
}

// ListAllTableDescriptions returns every stored table description, with the
// same partial-result contract as ListAllDatasetDescriptions
func (s *Store) ListAllTableDescriptions(ctx context.Context) ([]*description.TableDescription, error) {
	docs, err := s.db.List(ctx, s.tableCollection)
	if err != nil {
		return nil, err
	}

	var result *multierror.Error
	descs := make([]*description.TableDescription, 0, len(docs))
	for _, doc := range docs {
		t, err := decodeTable(doc)
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("%s/%s: %w", s.tableCollection, doc.ID, err))
			continue
		}
		descs = append(descs, t)
	}
	return descs, result.ErrorOrNil()
}

func (s *Store) stamp(record *description.Record) {
	now := s.now().UTC()
	record.CreatedAt = &now
}

func decodeDataset(doc Document) (*description.DatasetDescription, error) {
	if doc.Err != nil {
		return nil, doc.Err
	}
	return description.DatasetFromRecord(doc.Record)
}

func decodeTable(doc Document) (*description.TableDescription, error) {
	if doc.Err != nil {
		return nil, doc.Err
	}
	return description.TableFromRecord(doc.Record)
}

// IsPartialListError reports whether err from a ListAll call only describes
// undecodable documents, and returns them
func IsPartialListError(err error) ([]error, bool) {
	merr, ok := err.(*multierror.Error)
	if !ok {
		return nil, false
	}
	return merr.Errors, true
}
