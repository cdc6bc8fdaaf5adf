package store

import (
	"context"
	"fmt"

	"bqdesc-backupper/internal/description"
)

// Problem is one document that failed inspection
type Problem struct {
	Collection string `json:"collection" yaml:"collection"`
	DocumentID string `json:"document_id" yaml:"document_id"`
	Reason     string `json:"reason" yaml:"reason"`
}

// Stats summarizes the content of the live collections
type Stats struct {
	Datasets                 int       `json:"datasets" yaml:"datasets"`
	DatasetsWithDescription  int       `json:"datasets_with_description" yaml:"datasets_with_description"`
	Tables                   int       `json:"tables" yaml:"tables"`
	TablesWithDescription    int       `json:"tables_with_description" yaml:"tables_with_description"`
	Fields                   int       `json:"fields" yaml:"fields"`
	FieldsWithDescription    int       `json:"fields_with_description" yaml:"fields_with_description"`
	TablesWithoutDescription []string  `json:"tables_without_description,omitempty" yaml:"tables_without_description,omitempty"`
	Problems                 []Problem `json:"problems,omitempty" yaml:"problems,omitempty"`
}

// OK reports whether no document failed inspection
func (s *Stats) OK() bool {
	return len(s.Problems) == 0
}

// Inspect reads every live document, checks that it decodes and that its id
// matches the identity it carries, and collects description statistics
func (s *Store) Inspect(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	datasetDocs, err := s.db.List(ctx, s.datasetCollection)
	if err != nil {
		return nil, err
	}
	for _, doc := range datasetDocs {
		d, err := decodeDataset(doc)
		if err != nil {
			stats.addProblem(s.datasetCollection, doc.ID, err.Error())
			continue
		}
		if d.ID() != doc.ID {
			stats.addProblem(s.datasetCollection, doc.ID, fmt.Sprintf("document id does not match datasetReference %s", d.ID()))
		}
		stats.Datasets++
		if !d.IsNoDescription() {
			stats.DatasetsWithDescription++
		}
	}

	tableDocs, err := s.db.List(ctx, s.tableCollection)
	if err != nil {
		return nil, err
	}
	for _, doc := range tableDocs {
		t, err := decodeTable(doc)
		if err != nil {
			stats.addProblem(s.tableCollection, doc.ID, err.Error())
			continue
		}
		if t.ID() != doc.ID {
			stats.addProblem(s.tableCollection, doc.ID, fmt.Sprintf("document id does not match tableReference %s", t.ID()))
		}
		s.countTable(stats, t)
	}

	s.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"datasets": stats.Datasets,
		"tables":   stats.Tables,
		"fields":   stats.Fields,
		"problems": len(stats.Problems),
	}).Info("Backup store inspected")

	return stats, nil
}

func (s *Store) countTable(stats *Stats, t *description.TableDescription) {
	stats.Tables++
	stats.Fields += len(t.Fields)
	stats.FieldsWithDescription += t.CountOfFieldsWithDescription()
	if t.Description != "" {
		stats.TablesWithDescription++
	}
	if t.IsNoDescription() {
		stats.TablesWithoutDescription = append(stats.TablesWithoutDescription, t.ID())
	}
}

func (s *Stats) addProblem(collection, id, reason string) {
	s.Problems = append(s.Problems, Problem{Collection: collection, DocumentID: id, Reason: reason})
}
