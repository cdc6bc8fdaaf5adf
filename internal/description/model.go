package description

import "fmt"

// DatasetDescription is the description state of one BigQuery dataset
type DatasetDescription struct {
	ProjectID   string
	DatasetID   string
	Description string

	// ETag is the version token observed when the dataset was read from the warehouse.
	// It is empty for descriptions decoded from the backup store.
	ETag string
}

// TableDescription is the description state of one table and its columns
type TableDescription struct {
	ProjectID   string
	DatasetID   string
	TableID     string
	Description string
	Fields      []Field

	ETag string
}

// Field is a column of a table schema. Type, Mode and nested Fields are carried
// verbatim and never interpreted.
type Field struct {
	Name        string  `json:"name" firestore:"name"`
	Type        string  `json:"type,omitempty" firestore:"type,omitempty"`
	Mode        string  `json:"mode,omitempty" firestore:"mode,omitempty"`
	Description string  `json:"description" firestore:"description"`
	Fields      []Field `json:"fields,omitempty" firestore:"fields,omitempty"`
}

// NewDatasetDescription creates a dataset description
func NewDatasetDescription(projectID, datasetID, desc string) *DatasetDescription {
	return &DatasetDescription{
		ProjectID:   projectID,
		DatasetID:   datasetID,
		Description: desc,
	}
}

// NewTableDescription creates a table description
func NewTableDescription(projectID, datasetID, tableID, desc string, fields []Field) *TableDescription {
	return &TableDescription{
		ProjectID:   projectID,
		DatasetID:   datasetID,
		TableID:     tableID,
		Description: desc,
		Fields:      fields,
	}
}

// IsNoDescription reports whether the dataset carries no description
func (d *DatasetDescription) IsNoDescription() bool {
	return d.Description == ""
}

// ID returns the document id used for the dataset in the backup store
func (d *DatasetDescription) ID() string {
	return d.DatasetID
}

func (d *DatasetDescription) String() string {
	return fmt.Sprintf("%s:%s", d.ProjectID, d.DatasetID)
}

// IsNoDescription reports whether neither the table nor any of its top-level fields is described
func (t *TableDescription) IsNoDescription() bool {
	return t.Description == "" && t.CountOfFieldsWithDescription() == 0
}

// FieldNames returns the top-level field names in schema order
func (t *TableDescription) FieldNames() []string {
	names := make([]string, 0, len(t.Fields))
	for _, f := range t.Fields {
		names = append(names, f.Name)
	}
	return names
}

// CountOfFieldsWithDescription counts top-level fields with a non-empty description
func (t *TableDescription) CountOfFieldsWithDescription() int {
	count := 0
	for _, f := range t.Fields {
		if f.Description != "" {
			count++
		}
	}
	return count
}

// FieldsByName indexes the top-level fields by name. With duplicate names the
// first field wins.
func (t *TableDescription) FieldsByName() map[string]*Field {
	byName := make(map[string]*Field, len(t.Fields))
	for i := range t.Fields {
		if _, exists := byName[t.Fields[i].Name]; !exists {
			byName[t.Fields[i].Name] = &t.Fields[i]
		}
	}
	return byName
}

// ID returns the document id used for the table in the backup store
func (t *TableDescription) ID() string {
	return TableDocumentID(t.DatasetID, t.TableID)
}

func (t *TableDescription) String() string {
	return fmt.Sprintf("%s:%s.%s", t.ProjectID, t.DatasetID, t.TableID)
}

// Clone returns a deep copy, so a merge can never alias the caller's schema
func (t *TableDescription) Clone() *TableDescription {
	if t == nil {
		return nil
	}
	c := *t
	c.Fields = cloneFields(t.Fields)
	return &c
}

func cloneFields(fields []Field) []Field {
	if fields == nil {
		return nil
	}
	out := make([]Field, len(fields))
	for i, f := range fields {
		out[i] = f
		out[i].Fields = cloneFields(f.Fields)
	}
	return out
}

// TableDocumentID joins dataset and table ids the way the backup store keys tables
func TableDocumentID(datasetID, tableID string) string {
	return datasetID + "." + tableID
}
