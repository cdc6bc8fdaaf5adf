package store

import (
	"fmt"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"

	"bqdesc-backupper/internal/errors"
)

// BackendType selects where documents are kept
type BackendType string

const (
	BackendFirestore BackendType = "firestore"
	BackendLocal     BackendType = "local"
	BackendGCS       BackendType = "gcs"
	BackendS3        BackendType = "s3"
	BackendAzure     BackendType = "azure"
)

const (
	DefaultDatasetCollection = "bqdesc-backupper-dataset-desc"
	DefaultTableCollection   = "bqdesc-backupper-table-desc"
)

// Config defines the backup store
type Config struct {
	Backend           BackendType     `mapstructure:"backend" yaml:"backend"`
	DatasetCollection string          `mapstructure:"dataset_collection" yaml:"dataset_collection"`
	TableCollection   string          `mapstructure:"table_collection" yaml:"table_collection"`
	Compression       CompressionType `mapstructure:"compression" yaml:"compression"`
	Firestore         FirestoreConfig `mapstructure:"firestore" yaml:"firestore"`
	Local             LocalConfig     `mapstructure:"local" yaml:"local"`
	GCS               GCSConfig       `mapstructure:"gcs" yaml:"gcs"`
	S3                S3Config        `mapstructure:"s3" yaml:"s3"`
	Azure             AzureConfig     `mapstructure:"azure" yaml:"azure"`
}

// FirestoreConfig for the Firestore backend
type FirestoreConfig struct {
	ProjectID       string `mapstructure:"project_id" yaml:"project_id"`
	DatabaseID      string `mapstructure:"database_id" yaml:"database_id"`
	CredentialsPath string `mapstructure:"credentials_path" yaml:"credentials_path"`
}

// LocalConfig for a directory on the local file system
type LocalConfig struct {
	BasePath    string      `mapstructure:"base_path" yaml:"base_path"`
	Permissions os.FileMode `mapstructure:"permissions" yaml:"permissions"`
}

// GCSConfig for Google Cloud Storage
type GCSConfig struct {
	Bucket          string `mapstructure:"bucket" yaml:"bucket"`
	Prefix          string `mapstructure:"prefix" yaml:"prefix"`
	CredentialsPath string `mapstructure:"credentials_path" yaml:"credentials_path"`
}

// S3Config for Amazon S3
type S3Config struct {
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix"`
	Region    string `mapstructure:"region" yaml:"region"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
}

// AzureConfig for Azure Blob Storage
type AzureConfig struct {
	AccountName   string `mapstructure:"account_name" yaml:"account_name"`
	AccountKey    string `mapstructure:"account_key" yaml:"account_key"`
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
	Prefix        string `mapstructure:"prefix" yaml:"prefix"`
}

// DefaultConfig returns a Firestore-backed configuration with the default collections
func DefaultConfig() Config {
	return Config{
		Backend:           BackendFirestore,
		DatasetCollection: DefaultDatasetCollection,
		TableCollection:   DefaultTableCollection,
		Compression:       CompressionTypeNone,
		Local:             LocalConfig{Permissions: 0755},
	}
}

// SupportedBackends lists every backend type
func SupportedBackends() []BackendType {
	return []BackendType{BackendFirestore, BackendLocal, BackendGCS, BackendS3, BackendAzure}
}

// Validate checks the store configuration and reports every problem found
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.DatasetCollection == "" {
		result = multierror.Append(result, fmt.Errorf("dataset_collection is required"))
	}
	if c.TableCollection == "" {
		result = multierror.Append(result, fmt.Errorf("table_collection is required"))
	}
	if c.DatasetCollection != "" && c.DatasetCollection == c.TableCollection {
		result = multierror.Append(result, fmt.Errorf("dataset_collection and table_collection must differ"))
	}
	if strings.Contains(c.DatasetCollection, "/") || strings.Contains(c.TableCollection, "/") {
		result = multierror.Append(result, fmt.Errorf("collection names cannot contain '/'"))
	}
	if !IsSupportedCompression(c.Compression) {
		result = multierror.Append(result, fmt.Errorf("unsupported compression %q", c.Compression))
	}

	switch c.Backend {
	case BackendFirestore:
		if c.Compression != CompressionTypeNone && c.Compression != "" {
			result = multierror.Append(result, fmt.Errorf("compression is not supported by the firestore backend"))
		}
	case BackendLocal:
		if c.Local.BasePath == "" {
			result = multierror.Append(result, fmt.Errorf("local.base_path is required for the local backend"))
		}
	case BackendGCS:
		if c.GCS.Bucket == "" {
			result = multierror.Append(result, fmt.Errorf("gcs.bucket is required for the gcs backend"))
		}
	case BackendS3:
		if c.S3.Bucket == "" {
			result = multierror.Append(result, fmt.Errorf("s3.bucket is required for the s3 backend"))
		}
		if c.S3.Region == "" {
			result = multierror.Append(result, fmt.Errorf("s3.region is required for the s3 backend"))
		}
	case BackendAzure:
		if c.Azure.AccountName == "" {
			result = multierror.Append(result, fmt.Errorf("azure.account_name is required for the azure backend"))
		}
		if c.Azure.AccountKey == "" {
			result = multierror.Append(result, fmt.Errorf("azure.account_key is required for the azure backend"))
		}
		if c.Azure.ContainerName == "" {
			result = multierror.Append(result, fmt.Errorf("azure.container_name is required for the azure backend"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("unsupported backend %q", c.Backend))
	}

	if err := result.ErrorOrNil(); err != nil {
		return errors.NewConfigurationError("invalid store configuration", err)
	}
	return nil
}
