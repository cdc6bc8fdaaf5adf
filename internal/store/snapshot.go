package store

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"bqdesc-backupper/internal/description"
	"bqdesc-backupper/internal/errors"
)

// SnapshotIDLayout is the time layout of snapshot ids
const SnapshotIDLayout = "20060102"

var snapshotIDPattern = regexp.MustCompile(`^\d{8}$`)

// ValidateSnapshotID checks that id looks like YYYYMMDD
func ValidateSnapshotID(id string) error {
	if !snapshotIDPattern.MatchString(id) {
		return errors.NewValidationError(fmt.Sprintf("invalid snapshot id %q, expected YYYYMMDD", id), nil)
	}
	return nil
}

func snapshotCollection(collection, snapshotID string) string {
	return collection + "-" + snapshotID
}

// MakeSnapshot copies both live collections into collections suffixed with the
// date of now and returns the snapshot id. Running it twice on one day
// overwrites that day's snapshot.
func (s *Store) MakeSnapshot(ctx context.Context, now time.Time) (string, error) {
	id := now.Format(SnapshotIDLayout)
	s.logger.WithContext(ctx).Info("Make backup store snapshot collections")

	for _, src := range []string{s.tableCollection, s.datasetCollection} {
		dst := snapshotCollection(src, id)
		s.logger.WithContext(ctx).Infof("copy %s -> %s", src, dst)

		copied, err := s.copyCollection(ctx, src, dst)
		if err != nil {
			return "", errors.WrapError(err, fmt.Sprintf("failed to copy %s to %s", src, dst))
		}
		s.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"collection": dst,
			"documents":  copied,
		}).Debug("Snapshot collection written")
	}
	return id, nil
}

// ListSnapshots returns the ids of every snapshot of the table collection, sorted
func (s *Store) ListSnapshots(ctx context.Context) ([]string, error) {
	collections, err := s.db.Collections(ctx)
	if err != nil {
		return nil, err
	}

	prefix := s.tableCollection + "-"
	var ids []string
	for _, c := range collections {
		if !strings.HasPrefix(c, prefix) {
			continue
		}
		id := strings.TrimPrefix(c, prefix)
		if snapshotIDPattern.MatchString(id) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

// RecoverTable copies one table document from a snapshot back into the live collection
func (s *Store) RecoverTable(ctx context.Context, datasetID, tableID, snapshotID string) error {
	if err := ValidateSnapshotID(snapshotID); err != nil {
		return err
	}
	docID := description.TableDocumentID(datasetID, tableID)
	s.logger.WithContext(ctx).Infof("Recover table data from snapshot. table=%s, snapshot_id=%s", docID, snapshotID)
	return s.copyDocument(ctx, snapshotCollection(s.tableCollection, snapshotID), s.tableCollection, docID)
}

// RecoverDataset copies one dataset document from a snapshot back into the live collection
func (s *Store) RecoverDataset(ctx context.Context, datasetID, snapshotID string) error {
	if err := ValidateSnapshotID(snapshotID); err != nil {
		return err
	}
	s.logger.WithContext(ctx).Infof("Recover dataset data from snapshot. dataset=%s, snapshot_id=%s", datasetID, snapshotID)
	return s.copyDocument(ctx, snapshotCollection(s.datasetCollection, snapshotID), s.datasetCollection, datasetID)
}

func (s *Store) copyCollection(ctx context.Context, src, dst string) (int, error) {
	if copier, ok := s.db.(collectionCopier); ok {
		return copier.CopyCollection(ctx, src, dst)
	}

	docs, err := s.db.List(ctx, src)
	if err != nil {
		return 0, err
	}
	copied := 0
	var skipped *multierror.Error
	for _, doc := range docs {
		if doc.Err != nil {
			skipped = multierror.Append(skipped, fmt.Errorf("%s/%s: %w", src, doc.ID, doc.Err))
			continue
		}
		if err := s.db.Set(ctx, dst, doc.ID, doc.Record); err != nil {
			return copied, err
		}
		copied++
	}
	if err := skipped.ErrorOrNil(); err != nil {
		return copied, errors.NewValidationError(fmt.Sprintf("%d document(s) of %s could not be copied", len(skipped.Errors), src), err)
	}
	return copied, nil
}

func (s *Store) copyDocument(ctx context.Context, src, dst, id string) error {
	record, err := s.db.Get(ctx, src, id)
	if err != nil {
		if errors.IsNotFound(err) {
			return errors.NewNotFoundError(fmt.Sprintf("collection=%s document_id=%s is not found", src, id), err).
				WithContext("collection", src).
				WithContext("document_id", id)
		}
		return err
	}

	s.logger.WithContext(ctx).Infof("copy %s:%s -> %s:%s", src, id, dst, id)
	return s.db.Set(ctx, dst, id, record)
}
