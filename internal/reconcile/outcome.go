package reconcile

import "bqdesc-backupper/internal/description"

// Kind classifies the result of reconciling one dataset or table.
// The string values are the labels used in logs and batch summaries.
type Kind string

const (
	// KindSame means the live description already matches, nothing is written
	KindSame Kind = "same"
	// KindUpdate means the live description is overwritten with the proposed one
	KindUpdate Kind = "update"
	// KindDatasetNotFound means the dataset does not exist in the warehouse
	KindDatasetNotFound Kind = "dataset not found"
	// KindTableNotFound means the table does not exist in the warehouse
	KindTableNotFound Kind = "table not found"
	// KindTooManyDeletions means the write was refused because it would drop several column descriptions
	KindTooManyDeletions Kind = "too many deletion"
)

// Kinds lists every outcome kind in reporting order
var Kinds = []Kind{KindSame, KindUpdate, KindDatasetNotFound, KindTableNotFound, KindTooManyDeletions}

// Outcome is what a reconciliation decided. Success is independent of Kind:
// not-found outcomes may be configured as successful no-ops.
type Outcome struct {
	Kind    Kind   `json:"kind" yaml:"kind"`
	Success bool   `json:"success" yaml:"success"`
	Detail  string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// Policy carries the restore-time options that affect outcomes
type Policy struct {
	IgnoreDatasetNotFound bool
	IgnoreTableNotFound   bool
}

// DatasetDecision is the result of ReconcileDataset. Write is nil when nothing
// has to be written to the warehouse.
type DatasetDecision struct {
	Outcome Outcome
	Write   *description.DatasetDescription
}

// TableDecision is the result of ReconcileTable. Write is the merged table to
// write, or nil.
type TableDecision struct {
	Outcome Outcome
	Write   *description.TableDescription
}
