package execution

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"bqdesc-backupper/internal/description"
	"bqdesc-backupper/internal/errors"
	"bqdesc-backupper/internal/logging"
	"bqdesc-backupper/internal/reconcile"
	"bqdesc-backupper/internal/store"
	"bqdesc-backupper/internal/warehouse"
)

// ExecutionConfig holds configuration for the execution service
type ExecutionConfig struct {
	Policy        reconcile.Policy
	DatasetFilter *warehouse.Filter
	TableFilter   *warehouse.Filter
	Concurrency   int
	DryRun        bool
}

// Executor moves descriptions between the warehouse and the backup store
type Executor struct {
	config    ExecutionConfig
	warehouse Warehouse
	store     BackupStore
	logger    *logging.Logger
}

// NewExecutor creates a new executor with the given configuration
func NewExecutor(config ExecutionConfig, wh Warehouse, st BackupStore, logger *logging.Logger) *Executor {
	if config.Concurrency < 1 {
		config.Concurrency = 1
	}
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Executor{
		config:    config,
		warehouse: wh,
		store:     st,
		logger:    logger,
	}
}

// GetLogger returns the executor's logger
func (e *Executor) GetLogger() *logging.Logger {
	return e.logger
}

// BackupDataset copies the live description of datasetID into the store.
// It returns false without writing when the dataset has no description.
func (e *Executor) BackupDataset(ctx context.Context, datasetID string) (bool, error) {
	d, err := e.warehouse.GetDatasetDescription(ctx, datasetID)
	if err != nil {
		return false, err
	}
	if d.IsNoDescription() {
		e.logLine(ctx, "BACKUP", EntityDataset, LabelSkip, datasetID, "dataset has no description.")
		return false, nil
	}

	if !e.config.DryRun {
		if err := e.store.PutDatasetDescription(ctx, datasetID, d); err != nil {
			return false, err
		}
	}
	e.logLine(ctx, "BACKUP", EntityDataset, LabelOK, datasetID, e.dryRunDetail())
	return true, nil
}

// BackupTable copies the live description of datasetID.tableID into the store
func (e *Executor) BackupTable(ctx context.Context, datasetID, tableID string) (bool, error) {
	id := description.TableDocumentID(datasetID, tableID)

	t, err := e.warehouse.GetTableDescription(ctx, datasetID, tableID)
	if err != nil {
		return false, err
	}
	if t.IsNoDescription() {
		e.logLine(ctx, "BACKUP", EntityTable, LabelSkip, id, "table has no description.")
		return false, nil
	}

	if !e.config.DryRun {
		if err := e.store.PutTableDescription(ctx, datasetID, tableID, t); err != nil {
			return false, err
		}
	}
	e.logLine(ctx, "BACKUP", EntityTable, LabelOK, id, e.dryRunDetail())
	return true, nil
}

// BackupAll backs up every filtered dataset and its filtered tables. Failures
// of single items, including listing one dataset's tables, are counted as
// exceptions. Only a failure to list datasets aborts the run.
func (e *Executor) BackupAll(ctx context.Context) (*BatchSummary, error) {
	start := time.Now()
	done := e.logger.LogOperationStart("backup_all", map[string]interface{}{
		"dataset_filter": e.config.DatasetFilter.String(),
		"table_filter":   e.config.TableFilter.String(),
		"concurrency":    e.config.Concurrency,
	})

	summary := NewBatchSummary(DirectionBackup, e.config.DryRun)

	datasetIDs, err := e.warehouse.ListDatasetIDs(ctx, e.config.DatasetFilter)
	if err != nil {
		err = errors.WrapError(err, "failed to list datasets")
		done(err)
		return summary, err
	}

	g := e.newGroup()
	for _, datasetID := range datasetIDs {
		g.Go(func() error {
			e.backupItem(ctx, summary, EntityDataset, datasetID, func() (bool, error) {
				return e.BackupDataset(ctx, datasetID)
			})
			return nil
		})

		tableIDs, err := e.warehouse.ListTableIDs(ctx, datasetID, e.config.TableFilter)
		if err != nil {
			e.exception(ctx, summary, "BACKUP", EntityTable, datasetID, errors.WrapError(err, "failed to list tables"))
			continue
		}
		for _, tableID := range tableIDs {
			g.Go(func() error {
				e.backupItem(ctx, summary, EntityTable, description.TableDocumentID(datasetID, tableID), func() (bool, error) {
					return e.BackupTable(ctx, datasetID, tableID)
				})
				return nil
			})
		}
	}
	_ = g.Wait()

	summary.sortItems()
	summary.Duration = time.Since(start)
	e.logSummary(ctx, summary)
	done(nil)
	return summary, nil
}

func (e *Executor) backupItem(ctx context.Context, summary *BatchSummary, entity, id string, run func() (bool, error)) {
	written, err := run()
	if err != nil {
		e.exception(ctx, summary, "BACKUP", entity, id, err)
		return
	}

	label := LabelOK
	if !written {
		label = LabelSkip
	}
	summary.Record(ItemResult{Entity: entity, ID: id, Label: label, Success: true, Detail: e.dryRunDetail()})
}

// RestoreDataset writes the stored description of datasetID back to the
// warehouse when it differs. A dataset missing from the store is an error.
func (e *Executor) RestoreDataset(ctx context.Context, datasetID string) (reconcile.Outcome, error) {
	proposed, err := e.store.GetDatasetDescription(ctx, datasetID)
	if err != nil {
		return reconcile.Outcome{}, errors.WrapError(err, "failed to read dataset description from store")
	}
	return e.restoreDataset(ctx, proposed)
}

// RestoreTable writes the stored description of datasetID.tableID back to the
// warehouse, field by field
func (e *Executor) RestoreTable(ctx context.Context, datasetID, tableID string) (reconcile.Outcome, error) {
	proposed, err := e.store.GetTableDescription(ctx, datasetID, tableID)
	if err != nil {
		return reconcile.Outcome{}, errors.WrapError(err, "failed to read table description from store")
	}
	return e.restoreTable(ctx, proposed)
}

func (e *Executor) restoreDataset(ctx context.Context, proposed *description.DatasetDescription) (reconcile.Outcome, error) {
	current, err := e.warehouse.GetDatasetDescription(ctx, proposed.DatasetID)
	if err != nil {
		if !errors.IsNotFound(err) {
			return reconcile.Outcome{}, err
		}
		current = nil
	}

	decision := reconcile.ReconcileDataset(current, proposed, e.config.Policy)
	if decision.Write != nil && !e.config.DryRun {
		if err := e.warehouse.WriteDatasetDescription(ctx, decision.Write); err != nil {
			return reconcile.Outcome{}, err
		}
	}

	e.logLine(ctx, "RESTORE", EntityDataset, string(decision.Outcome.Kind), proposed.DatasetID, e.withDryRun(decision.Outcome.Detail))
	return decision.Outcome, nil
}

func (e *Executor) restoreTable(ctx context.Context, proposed *description.TableDescription) (reconcile.Outcome, error) {
	current, err := e.warehouse.GetTableDescription(ctx, proposed.DatasetID, proposed.TableID)
	if err != nil {
		if !errors.IsNotFound(err) {
			return reconcile.Outcome{}, err
		}
		current = nil
	}

	decision := reconcile.ReconcileTable(current, proposed, e.config.Policy)
	if decision.Write != nil && !e.config.DryRun {
		if err := e.warehouse.WriteTableDescription(ctx, decision.Write); err != nil {
			return reconcile.Outcome{}, err
		}
	}

	e.logLine(ctx, "RESTORE", EntityTable, string(decision.Outcome.Kind), proposed.ID(), e.withDryRun(decision.Outcome.Detail))
	return decision.Outcome, nil
}

// RestoreAll restores every stored dataset and then every stored table that
// passes the dataset and table filters. Stored documents that cannot be
// decoded count as exceptions and the rest are still restored.
func (e *Executor) RestoreAll(ctx context.Context) (*BatchSummary, error) {
	start := time.Now()
	done := e.logger.LogOperationStart("restore_all", map[string]interface{}{
		"dataset_filter": e.config.DatasetFilter.String(),
		"table_filter":   e.config.TableFilter.String(),
		"concurrency":    e.config.Concurrency,
		"dry_run":        e.config.DryRun,
	})

	summary := NewBatchSummary(DirectionRestore, e.config.DryRun)

	datasets, err := e.store.ListAllDatasetDescriptions(ctx)
	e.listFailures(ctx, summary, EntityDataset, err)
	g := e.newGroup()
	for _, d := range datasets {
		if !e.config.DatasetFilter.Match(d.DatasetID) {
			continue
		}
		g.Go(func() error {
			e.restoreItem(ctx, summary, EntityDataset, d.DatasetID, func() (reconcile.Outcome, error) {
				return e.restoreDataset(ctx, d)
			})
			return nil
		})
	}
	_ = g.Wait()

	tables, err := e.store.ListAllTableDescriptions(ctx)
	e.listFailures(ctx, summary, EntityTable, err)
	g = e.newGroup()
	for _, t := range tables {
		if !e.config.DatasetFilter.Match(t.DatasetID) || !e.config.TableFilter.Match(t.TableID) {
			continue
		}
		g.Go(func() error {
			e.restoreItem(ctx, summary, EntityTable, t.ID(), func() (reconcile.Outcome, error) {
				return e.restoreTable(ctx, t)
			})
			return nil
		})
	}
	_ = g.Wait()

	summary.sortItems()
	summary.Duration = time.Since(start)
	e.logSummary(ctx, summary)
	if !summary.Success() {
		done(fmt.Errorf("restore finished with %d exception(s) and %d unsuccessful outcome(s)", summary.Exception, summary.Failed))
	} else {
		done(nil)
	}
	return summary, nil
}

func (e *Executor) restoreItem(ctx context.Context, summary *BatchSummary, entity, id string, run func() (reconcile.Outcome, error)) {
	outcome, err := run()
	if err != nil {
		e.exception(ctx, summary, "RESTORE", entity, id, err)
		return
	}
	summary.Record(ItemResult{
		Entity:  entity,
		ID:      id,
		Label:   string(outcome.Kind),
		Success: outcome.Success,
		Detail:  e.withDryRun(outcome.Detail),
	})
}

// listFailures counts the documents a ListAll call could not decode. Any
// other listing error counts as a single exception.
func (e *Executor) listFailures(ctx context.Context, summary *BatchSummary, entity string, err error) {
	if err == nil {
		return
	}
	if partial, ok := store.IsPartialListError(err); ok {
		for _, perr := range partial {
			e.exception(ctx, summary, "RESTORE", entity, "store", perr)
		}
		return
	}
	e.exception(ctx, summary, "RESTORE", entity, "store", errors.WrapError(err, "failed to list stored descriptions"))
}

func (e *Executor) exception(ctx context.Context, summary *BatchSummary, direction, entity, id string, err error) {
	summary.RecordException(1)

	appErr := errors.NewErrorClassifier().ClassifyError(err)
	fields := map[string]interface{}{
		"error_type": string(appErr.Type),
	}
	for k, v := range appErr.Context {
		fields[k] = v
	}
	e.logger.WithContext(ctx).WithFields(fields).WithError(err).
		Errorf("[%s] [%s] [exception] [%s]", direction, entity, id)
}

func (e *Executor) logLine(ctx context.Context, direction, entity, label, id, detail string) {
	line := fmt.Sprintf("[%s] [%s] [%s] [%s]", direction, entity, label, id)
	if detail != "" {
		line += " " + detail
	}
	e.logger.WithContext(ctx).Info(line)
}

func (e *Executor) logSummary(ctx context.Context, summary *BatchSummary) {
	fields := map[string]interface{}{
		"exception": summary.Exception,
		"duration":  summary.Duration.String(),
	}
	for _, label := range summary.Labels() {
		fields[label] = summary.Counts[label]
	}
	e.logger.WithContext(ctx).WithFields(fields).Infof("[%s] summary", upper(summary.Direction))
}

func (e *Executor) newGroup() *errgroup.Group {
	g := new(errgroup.Group)
	g.SetLimit(e.config.Concurrency)
	return g
}

func (e *Executor) dryRunDetail() string {
	if e.config.DryRun {
		return "(dry run)"
	}
	return ""
}

func (e *Executor) withDryRun(detail string) string {
	if !e.config.DryRun {
		return detail
	}
	if detail == "" {
		return "(dry run)"
	}
	return detail + " (dry run)"
}

func upper(d Direction) string {
	switch d {
	case DirectionBackup:
		return "BACKUP"
	case DirectionRestore:
		return "RESTORE"
	default:
		return string(d)
	}
}
