package description

import (
	"encoding/json"
	"time"

	"bqdesc-backupper/internal/errors"
)

// Record is the canonical document shape exchanged with the backup store.
// It mirrors the subset of the BigQuery REST resource that carries descriptions.
type Record struct {
	Description      string     `json:"description" firestore:"description"`
	Schema           *Schema    `json:"schema,omitempty" firestore:"schema,omitempty"`
	DatasetReference *Reference `json:"datasetReference,omitempty" firestore:"datasetReference,omitempty"`
	TableReference   *Reference `json:"tableReference,omitempty" firestore:"tableReference,omitempty"`
	CreatedAt        *time.Time `json:"created_at,omitempty" firestore:"created_at,omitempty"`
}

// Schema holds the field list of a table record
type Schema struct {
	Fields []Field `json:"fields" firestore:"fields"`
}

// Reference identifies the dataset or table a record belongs to
type Reference struct {
	ProjectID string `json:"projectId" firestore:"projectId"`
	DatasetID string `json:"datasetId" firestore:"datasetId"`
	TableID   string `json:"tableId,omitempty" firestore:"tableId,omitempty"`
}

// IsTable reports whether the record describes a table
func (r *Record) IsTable() bool {
	return r.TableReference != nil
}

// ToRecord converts the dataset description to its canonical record
func (d *DatasetDescription) ToRecord() *Record {
	return &Record{
		Description: d.Description,
		DatasetReference: &Reference{
			ProjectID: d.ProjectID,
			DatasetID: d.DatasetID,
		},
	}
}

// ToRecord converts the table description to its canonical record
func (t *TableDescription) ToRecord() *Record {
	fields := cloneFields(t.Fields)
	if fields == nil {
		fields = []Field{}
	}
	return &Record{
		Description: t.Description,
		Schema:      &Schema{Fields: fields},
		TableReference: &Reference{
			ProjectID: t.ProjectID,
			DatasetID: t.DatasetID,
			TableID:   t.TableID,
		},
	}
}

// DatasetFromRecord decodes a dataset record
func DatasetFromRecord(r *Record) (*DatasetDescription, error) {
	if r == nil || r.DatasetReference == nil {
		return nil, errors.NewValidationError("record has no datasetReference", nil)
	}
	if r.DatasetReference.DatasetID == "" {
		return nil, errors.NewValidationError("datasetReference has no datasetId", nil)
	}
	return NewDatasetDescription(r.DatasetReference.ProjectID, r.DatasetReference.DatasetID, r.Description), nil
}

// TableFromRecord decodes a table record
func TableFromRecord(r *Record) (*TableDescription, error) {
	if r == nil || r.TableReference == nil {
		return nil, errors.NewValidationError("record has no tableReference", nil)
	}
	ref := r.TableReference
	if ref.DatasetID == "" || ref.TableID == "" {
		return nil, errors.NewValidationError("tableReference is incomplete", nil).
			WithContext("dataset", ref.DatasetID).
			WithContext("table", ref.TableID)
	}
	var fields []Field
	if r.Schema != nil {
		fields = cloneFields(r.Schema.Fields)
	}
	return NewTableDescription(ref.ProjectID, ref.DatasetID, ref.TableID, r.Description, fields), nil
}

// MarshalRecord encodes a record as JSON
func MarshalRecord(r *Record) ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, errors.NewValidationError("failed to encode record", err)
	}
	return data, nil
}

// UnmarshalRecord decodes a JSON record
func UnmarshalRecord(data []byte) (*Record, error) {
	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, errors.NewValidationError("failed to decode record", err)
	}
	return &r, nil
}
