package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"bqdesc-backupper/internal/description"
	appErrors "bqdesc-backupper/internal/errors"
	"bqdesc-backupper/internal/execution"
)

func newBackupCommand(opts *globalOptions) *cobra.Command {
	backupCmd := &cobra.Command{
		Use:   "backup",
		Short: "Copy live descriptions from BigQuery into the backup store",
	}
	backupCmd.AddCommand(
		newBackupTableCommand(opts),
		newBackupDatasetCommand(opts),
		newBackupAllCommand(opts),
	)
	return backupCmd
}

func newBackupTableCommand(opts *globalOptions) *cobra.Command {
	var datasetID, tableID string
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Back up the descriptions of one table and its columns",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = opts.run("backup table", func(ctx context.Context) error {
		executor, err := opts.app.Executor(ctx)
		if err != nil {
			return err
		}
		written, err := executor.BackupTable(ctx, datasetID, tableID)
		if err != nil {
			return err
		}
		id := description.TableDocumentID(datasetID, tableID)
		if err := opts.renderer.Backup(execution.EntityTable, id, written); err != nil {
			return err
		}
		return skipError(id, written)
	})
	addDatasetFlag(cmd, &datasetID)
	addTableFlag(cmd, &tableID)
	return cmd
}

func newBackupDatasetCommand(opts *globalOptions) *cobra.Command {
	var datasetID string
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Back up the description of one dataset",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = opts.run("backup dataset", func(ctx context.Context) error {
		executor, err := opts.app.Executor(ctx)
		if err != nil {
			return err
		}
		written, err := executor.BackupDataset(ctx, datasetID)
		if err != nil {
			return err
		}
		if err := opts.renderer.Backup(execution.EntityDataset, datasetID, written); err != nil {
			return err
		}
		return skipError(datasetID, written)
	})
	addDatasetFlag(cmd, &datasetID)
	return cmd
}

func newBackupAllCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "all",
		Short: "Back up every dataset and table that passes the filters",
		Long: `Back up every dataset and table that passes the filters.

Datasets and tables without a description are skipped. A failure on one item
is counted as an exception and does not stop the others.`,
		Args: cobra.NoArgs,
	}
	cmd.RunE = opts.run("backup all", func(ctx context.Context) error {
		executor, err := opts.app.Executor(ctx)
		if err != nil {
			return err
		}
		summary, err := executor.BackupAll(ctx)
		if err != nil {
			return err
		}
		return opts.finish(summary)
	})
	return cmd
}

// finish renders a batch summary and turns an unsuccessful one into an error
func (opts *globalOptions) finish(summary *execution.BatchSummary) error {
	if err := opts.renderer.Summary(summary); err != nil {
		return err
	}
	if summary.Success() {
		return nil
	}
	return appErrors.NewValidationError(
		fmt.Sprintf("%s finished with %d failed item(s) and %d exception(s)", summary.Direction, summary.Failed, summary.Exception), nil).
		WithContext("failed", summary.Failed).
		WithContext("exception", summary.Exception)
}

func skipError(id string, written bool) error {
	if written {
		return nil
	}
	return appErrors.NewValidationError(fmt.Sprintf("%s has no description, nothing was backed up", id), nil)
}

func addDatasetFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "dataset", "d", "", "dataset id")
	_ = cmd.MarkFlagRequired("dataset")
}

func addTableFlag(cmd *cobra.Command, target *string) {
	cmd.Flags().StringVarP(target, "table", "t", "", "table id")
	_ = cmd.MarkFlagRequired("table")
}
