package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"bqdesc-backupper/internal/description"
	"bqdesc-backupper/internal/store"
)

func newSnapshotCommand(opts *globalOptions) *cobra.Command {
	snapshotCmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Manage dated snapshots of the backup store",
		Long: `Manage dated snapshots of the backup store.

A snapshot copies the dataset and table collections into collections suffixed
with the date (YYYYMMDD). Recovering copies a single document from a snapshot
back into the live collection; run 'restore' afterwards to write it to BigQuery.`,
	}
	snapshotCmd.AddCommand(
		newSnapshotMakeCommand(opts),
		newSnapshotListCommand(opts),
		newSnapshotRecoverTableCommand(opts),
		newSnapshotRecoverDatasetCommand(opts),
	)
	return snapshotCmd
}

func newSnapshotMakeCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "make",
		Short: "Snapshot the backup store under today's date",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = opts.run("snapshot make", func(ctx context.Context) error {
		st, err := opts.app.Store(ctx)
		if err != nil {
			return err
		}
		if opts.app.Config().DryRun {
			id := time.Now().Format(store.SnapshotIDLayout)
			return opts.renderer.Message(fmt.Sprintf("snapshot %s would be created (dry run)", id), map[string]string{"snapshot": id})
		}
		id, err := st.MakeSnapshot(ctx, time.Now())
		if err != nil {
			return err
		}
		return opts.renderer.Message(fmt.Sprintf("snapshot %s created", id), map[string]string{"snapshot": id})
	})
	return cmd
}

func newSnapshotListCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the available snapshots",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = opts.run("snapshot list", func(ctx context.Context) error {
		st, err := opts.app.Store(ctx)
		if err != nil {
			return err
		}
		ids, err := st.ListSnapshots(ctx)
		if err != nil {
			return err
		}
		return opts.renderer.Snapshots(ids)
	})
	return cmd
}

func newSnapshotRecoverTableCommand(opts *globalOptions) *cobra.Command {
	var datasetID, tableID, snapshotID string
	var yes bool
	cmd := &cobra.Command{
		Use:   "recover-table",
		Short: "Replace the backup of one table with its copy from a snapshot",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = opts.run("snapshot recover-table", func(ctx context.Context) error {
		if err := store.ValidateSnapshotID(snapshotID); err != nil {
			return err
		}
		id := description.TableDocumentID(datasetID, tableID)
		return opts.recoverDocument(ctx, id, snapshotID, yes, func(st *store.Store) error {
			return st.RecoverTable(ctx, datasetID, tableID, snapshotID)
		})
	})
	addDatasetFlag(cmd, &datasetID)
	addTableFlag(cmd, &tableID)
	addSnapshotFlags(cmd, &snapshotID, &yes)
	return cmd
}

func newSnapshotRecoverDatasetCommand(opts *globalOptions) *cobra.Command {
	var datasetID, snapshotID string
	var yes bool
	cmd := &cobra.Command{
		Use:   "recover-dataset",
		Short: "Replace the backup of one dataset with its copy from a snapshot",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = opts.run("snapshot recover-dataset", func(ctx context.Context) error {
		if err := store.ValidateSnapshotID(snapshotID); err != nil {
			return err
		}
		return opts.recoverDocument(ctx, datasetID, snapshotID, yes, func(st *store.Store) error {
			return st.RecoverDataset(ctx, datasetID, snapshotID)
		})
	})
	addDatasetFlag(cmd, &datasetID)
	addSnapshotFlags(cmd, &snapshotID, &yes)
	return cmd
}

// recoverDocument asks for confirmation and runs fn against the store
func (opts *globalOptions) recoverDocument(ctx context.Context, id, snapshotID string, yes bool, fn func(*store.Store) error) error {
	fields := map[string]string{"id": id, "snapshot": snapshotID}
	if opts.app.Config().DryRun {
		return opts.renderer.Message(fmt.Sprintf("%s would be recovered from snapshot %s (dry run)", id, snapshotID), fields)
	}

	question := fmt.Sprintf("Overwrite the backup of %s with snapshot %s?", id, snapshotID)
	ok, err := opts.confirmer().Confirm(question, yes)
	if err != nil {
		return err
	}
	if !ok {
		return opts.renderer.Message("recovery cancelled", fields)
	}

	st, err := opts.app.Store(ctx)
	if err != nil {
		return err
	}
	if err := fn(st); err != nil {
		return err
	}
	return opts.renderer.Message(fmt.Sprintf("%s recovered from snapshot %s", id, snapshotID), fields)
}

func addSnapshotFlags(cmd *cobra.Command, snapshotID *string, yes *bool) {
	cmd.Flags().StringVarP(snapshotID, "snapshot", "s", "", "snapshot id (YYYYMMDD)")
	_ = cmd.MarkFlagRequired("snapshot")
	cmd.Flags().BoolVarP(yes, "yes", "y", false, "skip the confirmation prompt")
}
