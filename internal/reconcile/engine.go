// Package reconcile decides whether a proposed description has to be written
// over the one currently in the warehouse, and what exactly to write.
// Everything here is pure and safe for concurrent use.
package reconcile

import (
	"fmt"
	"strings"

	"bqdesc-backupper/internal/description"
)

const (
	// minFieldsForDeletionGate is the field count both sides need before the gate applies
	minFieldsForDeletionGate = 2
	// maxLostFieldDescriptions is the number of lost field descriptions that trips the gate
	maxLostFieldDescriptions = 2
)

// ReconcileDataset compares the live dataset (nil when it does not exist) with
// the proposed one. Datasets are written wholesale.
func ReconcileDataset(current, proposed *description.DatasetDescription, policy Policy) DatasetDecision {
	if current == nil {
		return DatasetDecision{Outcome: Outcome{
			Kind:    KindDatasetNotFound,
			Success: policy.IgnoreDatasetNotFound,
		}}
	}

	if current.Description == proposed.Description {
		return DatasetDecision{Outcome: Outcome{Kind: KindSame, Success: true, Detail: "do nothing"}}
	}

	write := *current
	write.Description = proposed.Description
	return DatasetDecision{
		Outcome: Outcome{
			Kind:    KindUpdate,
			Success: true,
			Detail:  fmt.Sprintf("%s -> %s", current.Description, proposed.Description),
		},
		Write: &write,
	}
}

// ReconcileTable compares the live table (nil when it or its dataset does not
// exist) with the proposed one and returns the merged table to write.
func ReconcileTable(current, proposed *description.TableDescription, policy Policy) TableDecision {
	if current == nil {
		return TableDecision{Outcome: Outcome{
			Kind:    KindTableNotFound,
			Success: policy.IgnoreTableNotFound,
		}}
	}

	reasons := Diff(current, proposed)
	if len(reasons) == 0 {
		return TableDecision{Outcome: Outcome{Kind: KindSame, Success: true, Detail: "do nothing"}}
	}

	if tooManyDeletions(current, proposed) {
		return TableDecision{Outcome: Outcome{
			Kind:    KindTooManyDeletions,
			Success: false,
			Detail: fmt.Sprintf("field description: existing=%d/%d new=%d/%d.",
				current.CountOfFieldsWithDescription(), len(current.Fields),
				proposed.CountOfFieldsWithDescription(), len(proposed.Fields)),
		}}
	}

	return TableDecision{
		Outcome: Outcome{Kind: KindUpdate, Success: true, Detail: strings.Join(reasons, ",")},
		Write:   Merge(current, proposed),
	}
}

// Diff lists every difference between current and proposed: table description,
// field count, and the description of each field present on both sides.
// An empty result means the two are the same.
func Diff(current, proposed *description.TableDescription) []string {
	var reasons []string

	if current.Description != proposed.Description {
		reasons = append(reasons, fmt.Sprintf("table description is different %s != %s.",
			current.Description, proposed.Description))
	}

	if len(current.Fields) != len(proposed.Fields) {
		reasons = append(reasons, fmt.Sprintf("number of fields is different %d != %d",
			len(proposed.Fields), len(current.Fields)))
	}

	currentByName := current.FieldsByName()
	for _, pf := range proposed.Fields {
		cf, ok := currentByName[pf.Name]
		if !ok || cf.Description == pf.Description {
			continue
		}
		reasons = append(reasons, fmt.Sprintf("field(%s) description is different %s != %s.",
			pf.Name, cf.Description, pf.Description))
	}

	return reasons
}

// Merge returns a copy of current with the table description taken from
// proposed and every same-name field's description refreshed from proposed.
// Fields only in proposed are not added and fields only in current are kept,
// so the field list of current is never reshaped.
func Merge(current, proposed *description.TableDescription) *description.TableDescription {
	merged := current.Clone()
	merged.Description = proposed.Description

	proposedByName := proposed.FieldsByName()
	for i := range merged.Fields {
		if pf, ok := proposedByName[merged.Fields[i].Name]; ok {
			merged.Fields[i].Description = pf.Description
		}
	}
	return merged
}

func tooManyDeletions(current, proposed *description.TableDescription) bool {
	if len(current.Fields) < minFieldsForDeletionGate || len(proposed.Fields) < minFieldsForDeletionGate {
		return false
	}
	lost := current.CountOfFieldsWithDescription() - proposed.CountOfFieldsWithDescription()
	return lost >= maxLostFieldDescriptions
}
