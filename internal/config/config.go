// Package config holds the typed configuration of bqdesc-backupper and loads
// it from a YAML file, BQDESC_BACKUPPER_* environment variables and flags.
package config

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"bqdesc-backupper/internal/errors"
	"bqdesc-backupper/internal/logging"
	"bqdesc-backupper/internal/reconcile"
	"bqdesc-backupper/internal/store"
	"bqdesc-backupper/internal/warehouse"
)

const (
	DefaultConcurrency = 1
	DefaultTimeout     = 10 * time.Minute
)

// Config is the complete application configuration
type Config struct {
	Project     string        `mapstructure:"project" yaml:"project"`
	Credentials string        `mapstructure:"credentials" yaml:"credentials"`
	Location    string        `mapstructure:"location" yaml:"location"`
	Store       store.Config  `mapstructure:"store" yaml:"store"`
	Filters     FiltersConfig `mapstructure:"filters" yaml:"filters"`
	Policy      PolicyConfig  `mapstructure:"policy" yaml:"policy"`
	Log         LogConfig     `mapstructure:"log" yaml:"log"`
	Slack       SlackConfig   `mapstructure:"slack" yaml:"slack"`
	Display     DisplayConfig `mapstructure:"display" yaml:"display"`
	Concurrency int           `mapstructure:"concurrency" yaml:"concurrency"`
	Timeout     time.Duration `mapstructure:"timeout" yaml:"timeout"`
	DryRun      bool          `mapstructure:"dry_run" yaml:"dry_run"`
}

// FiltersConfig selects datasets and tables for the batch commands
type FiltersConfig struct {
	DatasetInclude string `mapstructure:"dataset_include" yaml:"dataset_include"`
	DatasetExclude string `mapstructure:"dataset_exclude" yaml:"dataset_exclude"`
	TableInclude   string `mapstructure:"table_include" yaml:"table_include"`
	TableExclude   string `mapstructure:"table_exclude" yaml:"table_exclude"`
}

// PolicyConfig controls whether missing restore targets count as failures
type PolicyConfig struct {
	IgnoreDatasetNotFound bool `mapstructure:"ignore_dataset_not_found" yaml:"ignore_dataset_not_found"`
	IgnoreTableNotFound   bool `mapstructure:"ignore_table_not_found" yaml:"ignore_table_not_found"`
}

// LogConfig configures the logger
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	File   string `mapstructure:"file" yaml:"file"`
}

// SlackConfig configures failure alerts
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled" yaml:"enabled"`
	WebhookURL string `mapstructure:"webhook_url" yaml:"webhook_url"`
	Channel    string `mapstructure:"channel" yaml:"channel"`
	Username   string `mapstructure:"username" yaml:"username"`
}

// DisplayConfig controls how results are printed
type DisplayConfig struct {
	Format  string `mapstructure:"format" yaml:"format"`
	NoColor bool   `mapstructure:"no_color" yaml:"no_color"`
}

// Default returns the configuration used when nothing is set
func Default() *Config {
	return &Config{
		Store: store.DefaultConfig(),
		Filters: FiltersConfig{
			DatasetInclude: warehouse.MatchAll,
			DatasetExclude: warehouse.MatchNone,
			TableInclude:   warehouse.MatchAll,
			TableExclude:   warehouse.MatchNone,
		},
		Log: LogConfig{
			Level:  string(logging.LogLevelNormal),
			Format: "text",
		},
		Slack: SlackConfig{
			Username: "bqdesc-backupper",
		},
		Display: DisplayConfig{
			Format: "text",
		},
		Concurrency: DefaultConcurrency,
		Timeout:     DefaultTimeout,
	}
}

// SetDefaults fills unset values. The Firestore backend inherits the project
// and credentials of the warehouse unless it has its own.
func (c *Config) SetDefaults() {
	def := Default()

	if c.Store.Backend == "" {
		c.Store.Backend = def.Store.Backend
	}
	if c.Store.DatasetCollection == "" {
		c.Store.DatasetCollection = def.Store.DatasetCollection
	}
	if c.Store.TableCollection == "" {
		c.Store.TableCollection = def.Store.TableCollection
	}
	if c.Store.Compression == "" {
		c.Store.Compression = def.Store.Compression
	}
	if c.Store.Local.Permissions == 0 {
		c.Store.Local.Permissions = def.Store.Local.Permissions
	}
	if c.Store.Firestore.ProjectID == "" {
		c.Store.Firestore.ProjectID = c.Project
	}
	if c.Store.Firestore.CredentialsPath == "" {
		c.Store.Firestore.CredentialsPath = c.Credentials
	}
	if c.Store.GCS.CredentialsPath == "" {
		c.Store.GCS.CredentialsPath = c.Credentials
	}

	if c.Filters.DatasetInclude == "" {
		c.Filters.DatasetInclude = def.Filters.DatasetInclude
	}
	if c.Filters.DatasetExclude == "" {
		c.Filters.DatasetExclude = def.Filters.DatasetExclude
	}
	if c.Filters.TableInclude == "" {
		c.Filters.TableInclude = def.Filters.TableInclude
	}
	if c.Filters.TableExclude == "" {
		c.Filters.TableExclude = def.Filters.TableExclude
	}

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
	if c.Slack.Username == "" {
		c.Slack.Username = def.Slack.Username
	}
	if c.Display.Format == "" {
		c.Display.Format = def.Display.Format
	}
	if c.Concurrency == 0 {
		c.Concurrency = def.Concurrency
	}
	if c.Timeout == 0 {
		c.Timeout = def.Timeout
	}
}

// Validate checks the whole configuration and reports every problem at once
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.Project == "" {
		result = multierror.Append(result, fmt.Errorf("project is required"))
	}
	if err := c.Store.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if _, _, err := c.Filters.Build(); err != nil {
		result = multierror.Append(result, err)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		result = multierror.Append(result, err)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		result = multierror.Append(result, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	switch c.Display.Format {
	case "text", "json", "yaml":
	default:
		result = multierror.Append(result, fmt.Errorf("display.format must be text, json or yaml, got %q", c.Display.Format))
	}
	if c.Slack.Enabled && c.Slack.WebhookURL == "" {
		result = multierror.Append(result, fmt.Errorf("slack.webhook_url is required when slack is enabled"))
	}
	if c.Concurrency < 1 {
		result = multierror.Append(result, fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency))
	}
	if c.Timeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("timeout must be greater than 0"))
	}

	if err := result.ErrorOrNil(); err != nil {
		return errors.NewConfigurationError("invalid configuration", err)
	}
	return nil
}

// Build compiles the dataset and table filters
func (f FiltersConfig) Build() (*warehouse.Filter, *warehouse.Filter, error) {
	datasets, err := warehouse.NewFilter(f.DatasetInclude, f.DatasetExclude)
	if err != nil {
		return nil, nil, err
	}
	tables, err := warehouse.NewFilter(f.TableInclude, f.TableExclude)
	if err != nil {
		return nil, nil, err
	}
	return datasets, tables, nil
}

// Reconcile converts the policy into engine options
func (p PolicyConfig) Reconcile() reconcile.Policy {
	return reconcile.Policy{
		IgnoreDatasetNotFound: p.IgnoreDatasetNotFound,
		IgnoreTableNotFound:   p.IgnoreTableNotFound,
	}
}

// Warehouse returns the BigQuery settings
func (c *Config) Warehouse() *warehouse.Config {
	return &warehouse.Config{
		ProjectID:       c.Project,
		CredentialsPath: c.Credentials,
		Location:        c.Location,
	}
}

// Logging returns the logger settings
func (c *Config) Logging() (logging.Config, error) {
	level, err := logging.ParseLevel(c.Log.Level)
	if err != nil {
		return logging.Config{}, errors.NewConfigurationError("invalid log level", err)
	}
	return logging.Config{
		Level:      level,
		Format:     c.Log.Format,
		ShowCaller: level == logging.LogLevelDebug,
		LogFile:    c.Log.File,
	}, nil
}

// Sample renders the default configuration as YAML, for the config command
func Sample() ([]byte, error) {
	sample := Default()
	sample.Project = "my-project"
	return yaml.Marshal(sample)
}
