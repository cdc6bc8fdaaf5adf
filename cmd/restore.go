package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"bqdesc-backupper/internal/description"
	appErrors "bqdesc-backupper/internal/errors"
	"bqdesc-backupper/internal/execution"
	"bqdesc-backupper/internal/reconcile"
)

func newRestoreCommand(opts *globalOptions) *cobra.Command {
	restoreCmd := &cobra.Command{
		Use:   "restore",
		Short: "Write backed up descriptions back to BigQuery",
		Long: `Write backed up descriptions back to BigQuery.

Only empty or changed descriptions are written. Column descriptions are merged
by name, and a table update is refused when it would drop several existing
column descriptions ("too many deletion"). Use --dry-run to see the outcomes
without writing.`,
	}
	restoreCmd.AddCommand(
		newRestoreTableCommand(opts),
		newRestoreDatasetCommand(opts),
		newRestoreAllCommand(opts),
	)
	return restoreCmd
}

func newRestoreTableCommand(opts *globalOptions) *cobra.Command {
	var datasetID, tableID string
	cmd := &cobra.Command{
		Use:   "table",
		Short: "Restore the descriptions of one table and its columns",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = opts.run("restore table", func(ctx context.Context) error {
		executor, err := opts.app.Executor(ctx)
		if err != nil {
			return err
		}
		outcome, err := executor.RestoreTable(ctx, datasetID, tableID)
		if err != nil {
			return err
		}
		id := description.TableDocumentID(datasetID, tableID)
		if err := opts.renderer.Outcome(execution.EntityTable, id, outcome); err != nil {
			return err
		}
		return outcomeError(id, outcome)
	})
	addDatasetFlag(cmd, &datasetID)
	addTableFlag(cmd, &tableID)
	return cmd
}

func newRestoreDatasetCommand(opts *globalOptions) *cobra.Command {
	var datasetID string
	cmd := &cobra.Command{
		Use:   "dataset",
		Short: "Restore the description of one dataset",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = opts.run("restore dataset", func(ctx context.Context) error {
		executor, err := opts.app.Executor(ctx)
		if err != nil {
			return err
		}
		outcome, err := executor.RestoreDataset(ctx, datasetID)
		if err != nil {
			return err
		}
		if err := opts.renderer.Outcome(execution.EntityDataset, datasetID, outcome); err != nil {
			return err
		}
		return outcomeError(datasetID, outcome)
	})
	addDatasetFlag(cmd, &datasetID)
	return cmd
}

func newRestoreAllCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "all",
		Short: "Restore every dataset and table in the backup store that passes the filters",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = opts.run("restore all", func(ctx context.Context) error {
		executor, err := opts.app.Executor(ctx)
		if err != nil {
			return err
		}
		summary, err := executor.RestoreAll(ctx)
		if err != nil {
			return err
		}
		return opts.finish(summary)
	})
	return cmd
}

func outcomeError(id string, outcome reconcile.Outcome) error {
	if outcome.Success {
		return nil
	}
	err := appErrors.NewValidationError(fmt.Sprintf("restore of %s ended with %q", id, outcome.Kind), nil)
	if outcome.Detail != "" {
		err = err.WithContext("detail", outcome.Detail)
	}
	return err
}
