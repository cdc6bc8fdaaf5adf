package cmd

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"bqdesc-backupper/internal/config"
	"bqdesc-backupper/internal/display"
)

func newVersionCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Show version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipSetup: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(opts.out, "bqdesc-backupper %s\n", version)
			fmt.Fprintf(opts.out, "Built: %s\n", buildTime)
			fmt.Fprintf(opts.out, "Commit: %s\n", gitCommit)
			gv := goVersion
			if gv == "unknown" {
				gv = runtime.Version()
			}
			fmt.Fprintf(opts.out, "Go version: %s\n", gv)
		},
	}
}

func newConfigCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print a sample configuration file",
		Long: `Print a sample configuration file with every key and its default.

Save it as .bqdesc-backupper.yaml in the working directory or in $HOME, or pass
it with --config. Every key can also be set through an environment variable
with the BQDESC_BACKUPPER_ prefix, e.g. BQDESC_BACKUPPER_STORE_BACKEND=local.`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipSetup: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			sample, err := config.Sample()
			if err != nil {
				return err
			}
			return display.NewRendererTo(display.FormatText, opts.out).Raw(sample)
		},
	}
}
