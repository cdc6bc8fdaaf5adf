// Package warehouse reads and writes dataset and table descriptions in BigQuery.
package warehouse

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"bqdesc-backupper/internal/description"
	"bqdesc-backupper/internal/errors"
	"bqdesc-backupper/internal/logging"
)

// Config holds the settings needed to reach BigQuery
type Config struct {
	ProjectID       string
	CredentialsPath string
	Location        string
}

// Validate checks the BigQuery configuration
func (c *Config) Validate() error {
	if c.ProjectID == "" {
		return errors.NewConfigurationError("BigQuery project id is required", nil)
	}
	return nil
}

// BigQuery is the warehouse adapter backed by the BigQuery API
type BigQuery struct {
	client    *bigquery.Client
	projectID string
	logger    *logging.Logger
}

// NewBigQuery creates a BigQuery adapter using application default credentials
// or the configured key file
func NewBigQuery(ctx context.Context, config *Config, logger *logging.Logger) (*BigQuery, error) {
	if config == nil {
		return nil, errors.NewConfigurationError("BigQuery configuration is required", nil)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	var opts []option.ClientOption
	if config.CredentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(config.CredentialsPath))
	}

	client, err := bigquery.NewClient(ctx, config.ProjectID, opts...)
	if err != nil {
		return nil, errors.WrapError(err, "failed to create BigQuery client")
	}
	if config.Location != "" {
		client.Location = config.Location
	}

	return &BigQuery{
		client:    client,
		projectID: config.ProjectID,
		logger:    logger,
	}, nil
}

// Close releases the underlying client
func (b *BigQuery) Close() error {
	return b.client.Close()
}

// ProjectID returns the project the adapter works on
func (b *BigQuery) ProjectID() string {
	return b.projectID
}

// GetDatasetDescription reads the description of a dataset
func (b *BigQuery) GetDatasetDescription(ctx context.Context, datasetID string) (*description.DatasetDescription, error) {
	md, err := b.client.Dataset(datasetID).Metadata(ctx)
	if err != nil {
		return nil, b.wrap(err, fmt.Sprintf("failed to get dataset %s", datasetID)).
			WithContext("dataset", datasetID)
	}

	d := description.NewDatasetDescription(b.projectID, datasetID, md.Description)
	d.ETag = md.ETag
	return d, nil
}

// GetTableDescription reads the description of a table and its schema
func (b *BigQuery) GetTableDescription(ctx context.Context, datasetID, tableID string) (*description.TableDescription, error) {
	md, err := b.client.Dataset(datasetID).Table(tableID).Metadata(ctx)
	if err != nil {
		return nil, b.wrap(err, fmt.Sprintf("failed to get table %s.%s", datasetID, tableID)).
			WithContext("dataset", datasetID).
			WithContext("table", tableID)
	}

	t := description.NewTableDescription(b.projectID, datasetID, tableID, md.Description, fieldsFromSchema(md.Schema))
	t.ETag = md.ETag
	return t, nil
}

// WriteDatasetDescription replaces the description of a dataset. When d carries
// the ETag observed at read time the update is conditional on it.
func (b *BigQuery) WriteDatasetDescription(ctx context.Context, d *description.DatasetDescription) error {
	update := bigquery.DatasetMetadataToUpdate{Description: d.Description}

	if _, err := b.client.Dataset(d.DatasetID).Update(ctx, update, d.ETag); err != nil {
		return b.wrap(err, fmt.Sprintf("failed to update dataset %s", d.DatasetID)).
			WithContext("dataset", d.DatasetID)
	}

	b.logger.WithFields(map[string]interface{}{
		"dataset": d.DatasetID,
	}).Debug("Dataset description updated")
	return nil
}

// WriteTableDescription writes the table description and field descriptions of
// t onto the live table. The schema is re-read and only descriptions are
// changed on it, so every other column attribute survives the update.
// If t carries an ETag that no longer matches, a conflict error is returned.
func (b *BigQuery) WriteTableDescription(ctx context.Context, t *description.TableDescription) error {
	ref := b.client.Dataset(t.DatasetID).Table(t.TableID)

	md, err := ref.Metadata(ctx)
	if err != nil {
		return b.wrap(err, fmt.Sprintf("failed to get table %s.%s", t.DatasetID, t.TableID)).
			WithContext("dataset", t.DatasetID).
			WithContext("table", t.TableID)
	}

	if t.ETag != "" && md.ETag != t.ETag {
		return errors.NewConflictError(
			fmt.Sprintf("table %s.%s was modified since it was read", t.DatasetID, t.TableID), nil).
			WithContext("read_etag", t.ETag).
			WithContext("live_etag", md.ETag)
	}

	changed := applyFieldDescriptions(md.Schema, t.Fields)

	update := bigquery.TableMetadataToUpdate{
		Description: t.Description,
		Schema:      md.Schema,
	}
	if _, err := ref.Update(ctx, update, md.ETag); err != nil {
		return b.wrap(err, fmt.Sprintf("failed to update table %s.%s", t.DatasetID, t.TableID)).
			WithContext("dataset", t.DatasetID).
			WithContext("table", t.TableID)
	}

	b.logger.WithFields(map[string]interface{}{
		"dataset":        t.DatasetID,
		"table":          t.TableID,
		"fields_changed": changed,
	}).Debug("Table description updated")
	return nil
}

// ListDatasetIDs lists the datasets of the project selected by filter
func (b *BigQuery) ListDatasetIDs(ctx context.Context, filter *Filter) ([]string, error) {
	it := b.client.Datasets(ctx)
	it.ProjectID = b.projectID

	var ids []string
	for {
		ds, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, b.wrap(err, "failed to list datasets")
		}
		if filter.Match(ds.DatasetID) {
			ids = append(ids, ds.DatasetID)
		}
	}
	return ids, nil
}

// ListTableIDs lists the tables of a dataset selected by filter
func (b *BigQuery) ListTableIDs(ctx context.Context, datasetID string, filter *Filter) ([]string, error) {
	it := b.client.Dataset(datasetID).Tables(ctx)

	var ids []string
	for {
		t, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, b.wrap(err, fmt.Sprintf("failed to list tables of %s", datasetID)).
				WithContext("dataset", datasetID)
		}
		if filter.Match(t.TableID) {
			ids = append(ids, t.TableID)
		}
	}
	return ids, nil
}

func (b *BigQuery) wrap(err error, message string) *errors.AppError {
	classified := errors.NewErrorClassifier().ClassifyError(err)
	return errors.NewAppError(classified.Type, message, err)
}
