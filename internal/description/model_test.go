package description

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bqdesc-backupper/internal/errors"
)

func TestTableDescription_IsNoDescription(t *testing.T) {
	tests := []struct {
		name  string
		table *TableDescription
		want  bool
	}{
		{
			name:  "empty table",
			table: NewTableDescription("p", "d", "t", "", nil),
			want:  true,
		},
		{
			name:  "fields without descriptions",
			table: NewTableDescription("p", "d", "t", "", []Field{{Name: "a"}, {Name: "b"}}),
			want:  true,
		},
		{
			name:  "table description only",
			table: NewTableDescription("p", "d", "t", "orders", []Field{{Name: "a"}}),
			want:  false,
		},
		{
			name:  "one described field",
			table: NewTableDescription("p", "d", "t", "", []Field{{Name: "a"}, {Name: "b", Description: "amount"}}),
			want:  false,
		},
		{
			name: "only nested field described",
			table: NewTableDescription("p", "d", "t", "", []Field{
				{Name: "rec", Type: "RECORD", Fields: []Field{{Name: "x", Description: "nested"}}},
			}),
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.table.IsNoDescription())
		})
	}
}

func TestDatasetDescription_IsNoDescription(t *testing.T) {
	assert.True(t, NewDatasetDescription("p", "d", "").IsNoDescription())
	assert.False(t, NewDatasetDescription("p", "d", "sales data").IsNoDescription())
}

func TestFieldNamesAndCount(t *testing.T) {
	table := NewTableDescription("p", "d", "t", "", []Field{
		{Name: "id", Description: "key"},
		{Name: "name"},
		{Name: "amount", Description: "yen"},
	})

	assert.Equal(t, []string{"id", "name", "amount"}, table.FieldNames())
	assert.Equal(t, 2, table.CountOfFieldsWithDescription())
	assert.Equal(t, "d.t", table.ID())
}

func TestFieldsByName_FirstWins(t *testing.T) {
	table := NewTableDescription("p", "d", "t", "", []Field{
		{Name: "a", Description: "first"},
		{Name: "a", Description: "second"},
	})

	byName := table.FieldsByName()
	require.Len(t, byName, 1)
	assert.Equal(t, "first", byName["a"].Description)
}

func TestClone_IsDeep(t *testing.T) {
	orig := NewTableDescription("p", "d", "t", "desc", []Field{
		{Name: "rec", Fields: []Field{{Name: "x", Description: "inner"}}},
	})

	c := orig.Clone()
	c.Fields[0].Fields[0].Description = "changed"
	c.Description = "changed"

	assert.Equal(t, "inner", orig.Fields[0].Fields[0].Description)
	assert.Equal(t, "desc", orig.Description)
}

func TestTableRecordRoundTrip(t *testing.T) {
	orig := NewTableDescription("proj", "sales", "orders", "all orders", []Field{
		{Name: "id", Type: "INTEGER", Mode: "REQUIRED", Description: "order id"},
		{Name: "note", Type: "STRING"},
		{Name: "items", Type: "RECORD", Mode: "REPEATED", Fields: []Field{
			{Name: "sku", Type: "STRING", Description: "stock keeping unit"},
		}},
	})

	data, err := MarshalRecord(orig.ToRecord())
	require.NoError(t, err)

	record, err := UnmarshalRecord(data)
	require.NoError(t, err)
	assert.True(t, record.IsTable())

	got, err := TableFromRecord(record)
	require.NoError(t, err)

	if diff := cmp.Diff(orig, got, cmpopts.IgnoreFields(TableDescription{}, "ETag")); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDatasetRecordRoundTrip(t *testing.T) {
	orig := NewDatasetDescription("proj", "sales", "sales mart")

	data, err := MarshalRecord(orig.ToRecord())
	require.NoError(t, err)

	record, err := UnmarshalRecord(data)
	require.NoError(t, err)
	assert.False(t, record.IsTable())

	got, err := DatasetFromRecord(record)
	require.NoError(t, err)
	assert.Equal(t, orig, got)
}

func TestRecordWireShape(t *testing.T) {
	table := NewTableDescription("proj", "sales", "orders", "d", []Field{{Name: "id", Type: "INTEGER", Description: "x"}})
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	record := table.ToRecord()
	record.CreatedAt = &now

	data, err := MarshalRecord(record)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))

	assert.Equal(t, "d", raw["description"])
	assert.Contains(t, raw, "schema")
	assert.Contains(t, raw, "tableReference")
	assert.Contains(t, raw, "created_at")
	assert.NotContains(t, raw, "datasetReference")

	ref := raw["tableReference"].(map[string]interface{})
	assert.Equal(t, "proj", ref["projectId"])
	assert.Equal(t, "sales", ref["datasetId"])
	assert.Equal(t, "orders", ref["tableId"])
}

func TestFromRecord_MissingIdentity(t *testing.T) {
	_, err := TableFromRecord(&Record{Description: "x"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeValidation, errors.GetErrorType(err))

	_, err = DatasetFromRecord(&Record{Description: "x"})
	require.Error(t, err)

	_, err = TableFromRecord(&Record{TableReference: &Reference{ProjectID: "p", DatasetID: "d"}})
	require.Error(t, err)

	_, err = UnmarshalRecord([]byte("{not json"))
	require.Error(t, err)
}
