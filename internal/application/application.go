// Package application wires configuration, logging, adapters and alerting
// together for one command run.
package application

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"bqdesc-backupper/internal/config"
	appErrors "bqdesc-backupper/internal/errors"
	"bqdesc-backupper/internal/execution"
	"bqdesc-backupper/internal/logging"
	"bqdesc-backupper/internal/notify"
	"bqdesc-backupper/internal/store"
	"bqdesc-backupper/internal/warehouse"
)

// Application holds everything a command needs. Adapters are opened lazily so
// that commands only touch the services they use.
type Application struct {
	config   *config.Config
	logger   *logging.Logger
	runID    string
	notifier notify.Notifier
	errOut   io.Writer

	warehouse *warehouse.BigQuery
	store     *store.Store

	// overridable in tests
	openWarehouse func(ctx context.Context) (execution.Warehouse, error)
}

// Option customizes an Application
type Option func(*Application)

// WithLogger replaces the logger built from the configuration
func WithLogger(logger *logging.Logger) Option {
	return func(app *Application) { app.logger = logger }
}

// WithErrorOutput redirects user facing error messages, stderr by default
func WithErrorOutput(w io.Writer) Option {
	return func(app *Application) { app.errOut = w }
}

// WithNotifier replaces the notifier built from the configuration
func WithNotifier(n notify.Notifier) Option {
	return func(app *Application) { app.notifier = n }
}

// WithWarehouse replaces the BigQuery adapter
func WithWarehouse(wh execution.Warehouse) Option {
	return func(app *Application) {
		app.openWarehouse = func(context.Context) (execution.Warehouse, error) { return wh, nil }
	}
}

// New creates a new application instance for cfg
func New(cfg *config.Config, opts ...Option) (*Application, error) {
	app := &Application{
		config: cfg,
		runID:  uuid.NewString(),
		errOut: os.Stderr,
	}
	for _, opt := range opts {
		opt(app)
	}

	if app.logger == nil {
		loggerConfig, err := cfg.Logging()
		if err != nil {
			return nil, err
		}
		loggerConfig.Output = os.Stderr
		logger, err := logging.NewLogger(loggerConfig)
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
		app.logger = logger
	}

	if app.notifier == nil {
		app.notifier = notify.Nop{}
		if cfg.Slack.Enabled {
			app.notifier = notify.NewSlackChannel(app.logger, notify.SlackConfig{
				WebhookURL: cfg.Slack.WebhookURL,
				Channel:    cfg.Slack.Channel,
				Username:   cfg.Slack.Username,
			})
		}
	}

	if app.openWarehouse == nil {
		app.openWarehouse = func(ctx context.Context) (execution.Warehouse, error) {
			if app.warehouse == nil {
				wh, err := warehouse.NewBigQuery(ctx, app.config.Warehouse(), app.logger)
				if err != nil {
					return nil, err
				}
				app.warehouse = wh
			}
			return app.warehouse, nil
		}
	}

	return app, nil
}

// Config returns the effective configuration
func (app *Application) Config() *config.Config {
	return app.config
}

// GetLogger returns the application logger
func (app *Application) GetLogger() *logging.Logger {
	return app.logger
}

// RunID identifies this command run in logs and alerts
func (app *Application) RunID() string {
	return app.runID
}

// Context derives the context of a command: it carries the run id, expires
// after the configured timeout and is canceled on SIGINT or SIGTERM.
func (app *Application) Context(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	ctx := logging.CreateContextWithRunID(parent, app.runID)
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithTimeout(ctx, app.config.Timeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

// Store opens the backup store on first use
func (app *Application) Store(ctx context.Context) (*store.Store, error) {
	if app.store == nil {
		s, err := store.Open(ctx, app.config.Store, app.logger)
		if err != nil {
			return nil, err
		}
		app.store = s
	}
	return app.store, nil
}

// Warehouse opens the BigQuery adapter on first use
func (app *Application) Warehouse(ctx context.Context) (execution.Warehouse, error) {
	return app.openWarehouse(ctx)
}

// Executor builds an executor over the warehouse and the store
func (app *Application) Executor(ctx context.Context) (*execution.Executor, error) {
	datasets, tables, err := app.config.Filters.Build()
	if err != nil {
		return nil, err
	}
	wh, err := app.Warehouse(ctx)
	if err != nil {
		return nil, err
	}
	st, err := app.Store(ctx)
	if err != nil {
		return nil, err
	}
	return execution.NewExecutor(execution.ExecutionConfig{
		Policy:        app.config.Policy.Reconcile(),
		DatasetFilter: datasets,
		TableFilter:   tables,
		Concurrency:   app.config.Concurrency,
		DryRun:        app.config.DryRun,
	}, wh, st, app.logger), nil
}

// HandleError reports a failed command: it logs the classified error, prints
// a short message with hints and sends an alert. It returns err unchanged.
func (app *Application) HandleError(ctx context.Context, command string, err error) error {
	if err == nil {
		return nil
	}

	appErr := appErrors.NewErrorClassifier().ClassifyError(err)
	fields := map[string]interface{}{
		"command":    command,
		"error_type": string(appErr.Type),
	}
	for k, v := range appErr.Context {
		fields[k] = v
	}
	app.logger.WithContext(ctx).WithFields(fields).WithError(err).Error("Command failed")

	fmt.Fprintf(app.errOut, "Error: %v\n", err)
	app.provideTroubleshootingHints(appErr)

	app.Alert(ctx, command, err.Error(), map[string]string{"error_type": string(appErr.Type)})
	return err
}

// Alert sends a failure alert when alerting is enabled. Delivery problems are
// logged and never fail the command.
func (app *Application) Alert(ctx context.Context, command, message string, fields map[string]string) {
	if !app.notifier.IsEnabled() {
		return
	}
	alert := notify.Alert{
		Title:   fmt.Sprintf("bqdesc-backupper %s failed", command),
		Message: message,
		Command: command,
		RunID:   app.runID,
		Fields:  fields,
	}
	// the command context may already be expired
	if err := app.notifier.Notify(context.WithoutCancel(ctx), alert); err != nil {
		app.logger.WithContext(ctx).WithError(err).Warn("Failed to send alert")
	}
}

func (app *Application) provideTroubleshootingHints(appErr *appErrors.AppError) {
	var hints []string
	switch appErr.Type {
	case appErrors.ErrorTypePermission:
		hints = []string{
			"Check the credentials key file or application default credentials",
			"Ensure the account can read and update BigQuery metadata and the backup store",
		}
	case appErrors.ErrorTypeConfiguration:
		hints = []string{
			"Run 'bqdesc-backupper config' for a sample configuration",
			"Environment variables use the BQDESC_BACKUPPER_ prefix",
		}
	case appErrors.ErrorTypeConflict:
		hints = []string{"The table or dataset changed while it was being restored; run the command again"}
	case appErrors.ErrorTypeTimeout:
		hints = []string{"Try increasing --timeout or lowering --concurrency"}
	case appErrors.ErrorTypeNotFound:
		hints = []string{"Check the dataset and table ids, and that a backup exists for them"}
	}
	if len(hints) == 0 {
		return
	}
	fmt.Fprintf(app.errOut, "\nTroubleshooting hints:\n")
	for _, h := range hints {
		fmt.Fprintf(app.errOut, "- %s\n", h)
	}
}

// Close releases the adapters that were opened
func (app *Application) Close() error {
	var result *multierror.Error
	if app.store != nil {
		result = multierror.Append(result, app.store.Close())
	}
	if app.warehouse != nil {
		result = multierror.Append(result, app.warehouse.Close())
	}
	return result.ErrorOrNil()
}
