package execution

import (
	"sort"
	"sync"
	"time"
)

// Direction of a batch run
type Direction string

const (
	DirectionBackup  Direction = "backup"
	DirectionRestore Direction = "restore"
)

// Labels used by the backup direction
const (
	LabelOK   = "ok"
	LabelSkip = "skip"
)

// Entity tags used in log lines and item results
const (
	EntityDataset = "D"
	EntityTable   = "T"
)

// ItemResult records what happened to one dataset or table
type ItemResult struct {
	Entity  string `json:"entity" yaml:"entity"`
	ID      string `json:"id" yaml:"id"`
	Label   string `json:"label" yaml:"label"`
	Success bool   `json:"success" yaml:"success"`
	Detail  string `json:"detail,omitempty" yaml:"detail,omitempty"`
}

// BatchSummary accumulates the outcome of BackupAll or RestoreAll. It is safe
// for concurrent use.
type BatchSummary struct {
	Direction Direction      `json:"direction" yaml:"direction"`
	DryRun    bool           `json:"dry_run" yaml:"dry_run"`
	Counts    map[string]int `json:"counts" yaml:"counts"`
	Exception int            `json:"exception" yaml:"exception"`
	Failed    int            `json:"failed" yaml:"failed"`
	Items     []ItemResult   `json:"items,omitempty" yaml:"items,omitempty"`
	Duration  time.Duration  `json:"duration" yaml:"duration"`

	mu sync.Mutex
}

// NewBatchSummary returns an empty summary for direction
func NewBatchSummary(direction Direction, dryRun bool) *BatchSummary {
	return &BatchSummary{
		Direction: direction,
		DryRun:    dryRun,
		Counts:    make(map[string]int),
	}
}

// Record adds one item result
func (s *BatchSummary) Record(item ItemResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Counts[item.Label]++
	if !item.Success {
		s.Failed++
	}
	s.Items = append(s.Items, item)
}

// RecordException counts n failures that produced no outcome
func (s *BatchSummary) RecordException(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Exception += n
}

// Success reports whether the batch had no exception and, for restores, every
// outcome was successful. Backup skips are not failures of the batch.
func (s *BatchSummary) Success() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Exception > 0 {
		return false
	}
	if s.Direction == DirectionRestore {
		return s.Failed == 0
	}
	return true
}

// Labels returns the labels seen so far, sorted
func (s *BatchSummary) Labels() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	labels := make([]string, 0, len(s.Counts))
	for label := range s.Counts {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// Total is the number of items with an outcome
func (s *BatchSummary) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, n := range s.Counts {
		total += n
	}
	return total
}

// sortItems puts items in a stable order once all workers are done
func (s *BatchSummary) sortItems() {
	s.mu.Lock()
	defer s.mu.Unlock()

	sort.SliceStable(s.Items, func(i, j int) bool {
		if s.Items[i].Entity != s.Items[j].Entity {
			return s.Items[i].Entity < s.Items[j].Entity
		}
		return s.Items[i].ID < s.Items[j].ID
	})
}
