package reconcile

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bqdesc-backupper/internal/description"
)

func table(desc string, fields ...description.Field) *description.TableDescription {
	return description.NewTableDescription("proj", "sales", "orders", desc, fields)
}

func field(name, desc string) description.Field {
	return description.Field{Name: name, Type: "STRING", Description: desc}
}

func TestReconcileDataset(t *testing.T) {
	tests := []struct {
		name       string
		current    *description.DatasetDescription
		proposed   *description.DatasetDescription
		policy     Policy
		wantKind   Kind
		wantOK     bool
		wantDetail string
		wantWrite  bool
	}{
		{
			name:     "not found, not ignored",
			current:  nil,
			proposed: description.NewDatasetDescription("proj", "sales", "x"),
			wantKind: KindDatasetNotFound,
			wantOK:   false,
		},
		{
			name:     "not found, ignored",
			current:  nil,
			proposed: description.NewDatasetDescription("proj", "sales", "x"),
			policy:   Policy{IgnoreDatasetNotFound: true},
			wantKind: KindDatasetNotFound,
			wantOK:   true,
		},
		{
			name:       "same",
			current:    description.NewDatasetDescription("proj", "sales", "x"),
			proposed:   description.NewDatasetDescription("proj", "sales", "x"),
			wantKind:   KindSame,
			wantOK:     true,
			wantDetail: "do nothing",
		},
		{
			name:       "update",
			current:    description.NewDatasetDescription("proj", "sales", "old"),
			proposed:   description.NewDatasetDescription("proj", "sales", "new"),
			wantKind:   KindUpdate,
			wantOK:     true,
			wantDetail: "old -> new",
			wantWrite:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReconcileDataset(tt.current, tt.proposed, tt.policy)
			assert.Equal(t, tt.wantKind, got.Outcome.Kind)
			assert.Equal(t, tt.wantOK, got.Outcome.Success)
			assert.Equal(t, tt.wantDetail, got.Outcome.Detail)
			if tt.wantWrite {
				require.NotNil(t, got.Write)
				assert.Equal(t, tt.proposed.Description, got.Write.Description)
				assert.Equal(t, tt.current.DatasetID, got.Write.DatasetID)
			} else {
				assert.Nil(t, got.Write)
			}
		})
	}
}

func TestReconcileDataset_Idempotent(t *testing.T) {
	current := description.NewDatasetDescription("proj", "sales", "old")
	proposed := description.NewDatasetDescription("proj", "sales", "new")

	first := ReconcileDataset(current, proposed, Policy{})
	require.Equal(t, KindUpdate, first.Outcome.Kind)

	second := ReconcileDataset(first.Write, proposed, Policy{})
	assert.Equal(t, KindSame, second.Outcome.Kind)
	assert.Nil(t, second.Write)
}

func TestReconcileTable_NotFound(t *testing.T) {
	got := ReconcileTable(nil, table("x"), Policy{})
	assert.Equal(t, KindTableNotFound, got.Outcome.Kind)
	assert.False(t, got.Outcome.Success)
	assert.Nil(t, got.Write)

	got = ReconcileTable(nil, table("x"), Policy{IgnoreTableNotFound: true})
	assert.Equal(t, KindTableNotFound, got.Outcome.Kind)
	assert.True(t, got.Outcome.Success)
}

func TestReconcileTable_ScenarioA(t *testing.T) {
	current := table("", field("col1", ""))
	proposed := table("x", field("col1", "y"))

	got := ReconcileTable(current, proposed, Policy{})

	assert.Equal(t, KindUpdate, got.Outcome.Kind)
	assert.True(t, got.Outcome.Success)
	require.NotNil(t, got.Write)
	assert.Equal(t, "x", got.Write.Description)
	assert.Equal(t, "y", got.Write.Fields[0].Description)
	assert.Equal(t,
		"table description is different  != x.,field(col1) description is different  != y.",
		got.Outcome.Detail)
}

func TestReconcileTable_ScenarioB(t *testing.T) {
	current := table("x", field("a", "1"), field("b", "2"))
	proposed := current.Clone()

	got := ReconcileTable(current, proposed, Policy{})

	assert.Equal(t, KindSame, got.Outcome.Kind)
	assert.True(t, got.Outcome.Success)
	assert.Equal(t, "do nothing", got.Outcome.Detail)
	assert.Nil(t, got.Write)
}

func TestReconcileTable_ScenarioC(t *testing.T) {
	current := table("x", field("col1", "a"), field("col2", "b"))
	proposed := table("x", field("col1", "a2"), field("col9", "new column"))

	got := ReconcileTable(current, proposed, Policy{})

	require.Equal(t, KindUpdate, got.Outcome.Kind)
	require.NotNil(t, got.Write)
	assert.Equal(t, []string{"col1", "col2"}, got.Write.FieldNames())
	assert.Equal(t, "a2", got.Write.Fields[0].Description)
	assert.Equal(t, "b", got.Write.Fields[1].Description)
}

func TestReconcileTable_FieldCountDiff(t *testing.T) {
	current := table("x", field("a", "1"))
	proposed := table("x", field("a", "1"), field("b", ""))

	got := ReconcileTable(current, proposed, Policy{})

	assert.Equal(t, KindUpdate, got.Outcome.Kind)
	assert.Equal(t, "number of fields is different 2 != 1", got.Outcome.Detail)
	require.NotNil(t, got.Write)
	assert.Len(t, got.Write.Fields, 1)
}

func TestReconcileTable_DeletionGateBoundary(t *testing.T) {
	current := table("x", field("a", "1"), field("b", "2"), field("c", "3"))

	tests := []struct {
		name     string
		proposed *description.TableDescription
		wantKind Kind
		wantOK   bool
	}{
		{
			name:     "3/3 to 0/3 is refused",
			proposed: table("x", field("a", ""), field("b", ""), field("c", "")),
			wantKind: KindTooManyDeletions,
			wantOK:   false,
		},
		{
			name:     "3/3 to 1/3 is refused",
			proposed: table("x", field("a", "1"), field("b", ""), field("c", "")),
			wantKind: KindTooManyDeletions,
			wantOK:   false,
		},
		{
			name:     "3/3 to 2/3 is applied",
			proposed: table("x", field("a", "1"), field("b", "2"), field("c", "")),
			wantKind: KindUpdate,
			wantOK:   true,
		},
		{
			name:     "single proposed field bypasses the gate",
			proposed: table("x", field("a", "")),
			wantKind: KindUpdate,
			wantOK:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ReconcileTable(current, tt.proposed, Policy{})
			assert.Equal(t, tt.wantKind, got.Outcome.Kind)
			assert.Equal(t, tt.wantOK, got.Outcome.Success)
			if tt.wantKind == KindTooManyDeletions {
				assert.Nil(t, got.Write)
			}
		})
	}
}

func TestReconcileTable_GateFiresForUnrelatedSchemas(t *testing.T) {
	current := table("x", field("a", "1"), field("b", "2"), field("c", "3"))
	proposed := table("y", field("p", "9"), field("q", ""), field("r", ""))

	got := ReconcileTable(current, proposed, Policy{})
	assert.Equal(t, KindTooManyDeletions, got.Outcome.Kind)
	assert.Equal(t, "field description: existing=3/3 new=1/3.", got.Outcome.Detail)
}

func TestReconcileTable_OneDescribedToZero(t *testing.T) {
	current := table("x", field("a", "1"), field("b", ""), field("c", ""))
	proposed := table("x", field("a", ""), field("b", ""), field("c", ""))

	got := ReconcileTable(current, proposed, Policy{})
	assert.Equal(t, KindUpdate, got.Outcome.Kind)
	assert.True(t, got.Outcome.Success)
	require.NotNil(t, got.Write)
	assert.Equal(t, 0, got.Write.CountOfFieldsWithDescription())
}

func TestMerge_PreservesCardinalityAndAttributes(t *testing.T) {
	current := table("old",
		description.Field{Name: "id", Type: "INTEGER", Mode: "REQUIRED", Description: "key"},
		description.Field{Name: "items", Type: "RECORD", Mode: "REPEATED", Fields: []description.Field{
			{Name: "sku", Type: "STRING", Description: "inner"},
		}},
		description.Field{Name: "legacy", Type: "STRING", Description: "kept"},
	)
	proposed := table("new",
		description.Field{Name: "id", Type: "STRING", Description: "primary key"},
		description.Field{Name: "items", Type: "RECORD", Description: "line items"},
		description.Field{Name: "added", Type: "STRING", Description: "ignored"},
	)

	merged := Merge(current, proposed)

	want := table("new",
		description.Field{Name: "id", Type: "INTEGER", Mode: "REQUIRED", Description: "primary key"},
		description.Field{Name: "items", Type: "RECORD", Mode: "REPEATED", Description: "line items", Fields: []description.Field{
			{Name: "sku", Type: "STRING", Description: "inner"},
		}},
		description.Field{Name: "legacy", Type: "STRING", Description: "kept"},
	)
	if diff := cmp.Diff(want, merged); diff != "" {
		t.Errorf("Merge() mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "key", current.Fields[0].Description, "current must not be mutated")
}

func TestMerge_Cardinality(t *testing.T) {
	cases := []struct {
		current  *description.TableDescription
		proposed *description.TableDescription
	}{
		{table("", field("a", "")), table("x")},
		{table("", field("a", ""), field("b", "")), table("", field("c", "1"), field("d", "2"), field("e", "3"))},
		{table(""), table("", field("a", "1"))},
	}
	for _, c := range cases {
		assert.Len(t, Merge(c.current, c.proposed).Fields, len(c.current.Fields))
	}
}

func TestDiff_NoDifferences(t *testing.T) {
	a := table("x", field("a", "1"))
	assert.Empty(t, Diff(a, a.Clone()))
}
