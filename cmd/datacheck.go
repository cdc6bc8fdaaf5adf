package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	appErrors "bqdesc-backupper/internal/errors"
)

func newDatacheckCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datacheck",
		Short: "Inspect the backup store and report coverage and unreadable documents",
		Long: `Inspect the backup store.

Counts the backed up datasets, tables and columns, and how many of them carry a
description. Documents that cannot be decoded, or whose id does not match their
reference, are reported as problems and make the command fail.`,
		Args: cobra.NoArgs,
	}
	cmd.RunE = opts.run("datacheck", func(ctx context.Context) error {
		st, err := opts.app.Store(ctx)
		if err != nil {
			return err
		}
		stats, err := st.Inspect(ctx)
		if err != nil {
			return err
		}
		if err := opts.renderer.Stats(stats); err != nil {
			return err
		}
		if stats.OK() {
			return nil
		}
		return appErrors.NewValidationError(fmt.Sprintf("backup store has %d problem(s)", len(stats.Problems)), nil)
	})
	return cmd
}
