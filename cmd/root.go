package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"bqdesc-backupper/internal/application"
	"bqdesc-backupper/internal/config"
	"bqdesc-backupper/internal/confirmation"
	"bqdesc-backupper/internal/display"
	"bqdesc-backupper/internal/logging"
)

// Version information (set by build flags)
var (
	version   = "dev"
	buildTime = "unknown"
	gitCommit = "unknown"
	goVersion = "unknown"
)

// skipSetup marks commands that run without configuration
const skipSetup = "skip-setup"

// globalOptions holds the persistent flags and the state shared by subcommands
type globalOptions struct {
	cfgFile     string
	project     string
	verbose     bool
	quiet       bool
	logFormat   string
	logFile     string
	timeout     time.Duration
	dryRun      bool
	concurrency int
	format      string
	noColor     bool

	out      io.Writer
	app      *application.Application
	renderer *display.Renderer
	confirm  *confirmation.Service

	// appOptions are passed to application.New; tests use them to inject fakes
	appOptions []application.Option
}

// NewRootCommand builds the command tree
func NewRootCommand() *cobra.Command {
	return newRootCommand(&globalOptions{out: os.Stdout})
}

func newRootCommand(opts *globalOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "bqdesc-backupper",
		Short: "Back up and restore BigQuery dataset, table and column descriptions",
		Long: `bqdesc-backupper keeps the human-written descriptions of BigQuery datasets,
tables and columns in a backup store (Firestore, a local directory, GCS, S3 or
Azure Blob Storage) and writes them back when they are lost.

Restores merge field by field and refuse updates that would wipe out several
column descriptions at once. Dated snapshots of the backup store allow
point-in-time recovery of single tables and datasets.

Examples:
  # Back up every dataset and table of the project
  bqdesc-backupper backup all --project my-project

  # Show what a restore would change without writing anything
  bqdesc-backupper restore all --dry-run

  # Restore one table
  bqdesc-backupper restore table -d sales -t orders

  # Snapshot the backup store, then recover a table from it later
  bqdesc-backupper snapshot make
  bqdesc-backupper snapshot recover-table -d sales -t orders -s 20240315`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Annotations[skipSetup] == "true" {
				return nil
			}
			if err := opts.setup(cmd); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
				return reported{err}
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.app == nil {
				return nil
			}
			return opts.app.Close()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (default is ./.bqdesc-backupper.yaml or $HOME/.bqdesc-backupper.yaml)")
	flags.StringVar(&opts.project, "project", "", "Google Cloud project of the BigQuery datasets")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	flags.BoolVarP(&opts.quiet, "quiet", "q", false, "suppress non-error output")
	flags.StringVar(&opts.logFormat, "log-format", "text", "log format (text, json)")
	flags.StringVar(&opts.logFile, "log-file", "", "also write logs to file")
	flags.DurationVar(&opts.timeout, "timeout", config.DefaultTimeout, "timeout for the whole command")
	flags.BoolVar(&opts.dryRun, "dry-run", false, "compute outcomes without writing")
	flags.IntVar(&opts.concurrency, "concurrency", config.DefaultConcurrency, "number of datasets and tables processed in parallel")
	flags.StringVar(&opts.format, "format", "text", "output format (text, json, yaml)")
	flags.BoolVar(&opts.noColor, "no-color", false, "disable color output")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	rootCmd.AddCommand(
		newBackupCommand(opts),
		newRestoreCommand(opts),
		newSnapshotCommand(opts),
		newDatacheckCommand(opts),
		newConfigCommand(opts),
		newVersionCommand(opts),
	)
	return rootCmd
}

// setup loads the configuration and creates the application for cmd
func (opts *globalOptions) setup(cmd *cobra.Command) error {
	loader := config.NewLoader()
	bindings := map[string]string{
		"project":        "project",
		"log.format":     "log-format",
		"log.file":       "log-file",
		"timeout":        "timeout",
		"dry_run":        "dry-run",
		"concurrency":    "concurrency",
		"display.format": "format",
	}
	for key, flag := range bindings {
		if err := loader.BindFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return err
		}
	}

	cfg, err := loader.Load(opts.cfgFile)
	if err != nil {
		return err
	}

	if opts.noColor {
		cfg.Display.NoColor = true
	}
	switch {
	case opts.verbose:
		cfg.Log.Level = string(logging.LogLevelVerbose)
	case opts.quiet:
		cfg.Log.Level = string(logging.LogLevelQuiet)
	}

	format, err := display.ParseFormat(cfg.Display.Format)
	if err != nil {
		return err
	}
	if opts.out == io.Writer(os.Stdout) {
		opts.renderer = display.NewRenderer(format, cfg.Display.NoColor)
	} else {
		opts.renderer = display.NewRendererTo(format, opts.out)
	}

	app, err := application.New(cfg, opts.appOptions...)
	if err != nil {
		return err
	}
	opts.app = app

	if used := loader.ConfigFileUsed(); used != "" {
		app.GetLogger().WithField("config_file", used).Debug("Using config file")
	}
	return nil
}

func (opts *globalOptions) confirmer() *confirmation.Service {
	if opts.confirm == nil {
		opts.confirm = confirmation.NewService()
	}
	return opts.confirm
}

// run wraps a command body with the command context and error reporting
func (opts *globalOptions) run(command string, fn func(ctx context.Context) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx, cancel := opts.app.Context(cmd.Context())
		defer cancel()

		done := opts.app.GetLogger().LogOperationStart(command, map[string]interface{}{
			"run_id": opts.app.RunID(),
		})
		err := fn(ctx)
		done(err)
		if err := opts.app.HandleError(ctx, command, err); err != nil {
			return reported{err}
		}
		return nil
	}
}

// reported marks an error that was already shown to the user
type reported struct {
	error
}

func (r reported) Unwrap() error {
	return r.error
}

// Execute runs the command line and exits non-zero on failure
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		var r reported
		if !errors.As(err, &r) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// SetVersionInfo sets the version information from build flags
func SetVersionInfo(v, bt, gc, gv string) {
	version = v
	buildTime = bt
	gitCommit = gc
	goVersion = gv
}
