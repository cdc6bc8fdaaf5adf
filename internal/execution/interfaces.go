package execution

import (
	"context"

	"bqdesc-backupper/internal/description"
	"bqdesc-backupper/internal/warehouse"
)

// Warehouse is the live side of a backup or restore
type Warehouse interface {
	GetDatasetDescription(ctx context.Context, datasetID string) (*description.DatasetDescription, error)
	GetTableDescription(ctx context.Context, datasetID, tableID string) (*description.TableDescription, error)
	WriteDatasetDescription(ctx context.Context, d *description.DatasetDescription) error
	WriteTableDescription(ctx context.Context, t *description.TableDescription) error
	ListDatasetIDs(ctx context.Context, filter *warehouse.Filter) ([]string, error)
	ListTableIDs(ctx context.Context, datasetID string, filter *warehouse.Filter) ([]string, error)
}

// BackupStore is the durable side. ListAll* may return items together with a
// partial error (see store.IsPartialListError).
type BackupStore interface {
	GetDatasetDescription(ctx context.Context, datasetID string) (*description.DatasetDescription, error)
	GetTableDescription(ctx context.Context, datasetID, tableID string) (*description.TableDescription, error)
	PutDatasetDescription(ctx context.Context, datasetID string, d *description.DatasetDescription) error
	PutTableDescription(ctx context.Context, datasetID, tableID string, t *description.TableDescription) error
	ListAllDatasetDescriptions(ctx context.Context) ([]*description.DatasetDescription, error)
	ListAllTableDescriptions(ctx context.Context) ([]*description.TableDescription, error)
}
