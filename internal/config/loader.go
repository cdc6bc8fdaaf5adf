package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"bqdesc-backupper/internal/errors"
)

const (
	// EnvPrefix is prepended to every environment variable, e.g. BQDESC_BACKUPPER_STORE_BACKEND
	EnvPrefix = "BQDESC_BACKUPPER"
	// FileName is the config file looked up in the working and home directories
	FileName = ".bqdesc-backupper"
)

// Loader handles loading configuration from various sources
type Loader struct {
	viper *viper.Viper
}

// NewLoader creates a new configuration loader
func NewLoader() *Loader {
	return &Loader{viper: viper.New()}
}

// BindFlag binds a command line flag to a configuration key
func (l *Loader) BindFlag(key string, flag *pflag.Flag) error {
	if flag == nil {
		return fmt.Errorf("no flag for key %s", key)
	}
	return l.viper.BindPFlag(key, flag)
}

// Load reads configFile, or .bqdesc-backupper.yaml from the working or home
// directory when empty, overlays environment variables and bound flags, then
// applies defaults and validates.
func (l *Loader) Load(configFile string) (*Config, error) {
	if configFile != "" {
		l.viper.SetConfigFile(configFile)
	} else {
		l.viper.SetConfigName(FileName)
		l.viper.SetConfigType("yaml")
		l.viper.AddConfigPath(".")
		l.viper.AddConfigPath("$HOME")
	}

	l.viper.SetEnvPrefix(EnvPrefix)
	l.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.viper.AutomaticEnv()

	// AutomaticEnv only resolves keys viper already knows about
	for key, value := range defaultsOf(Default()) {
		l.viper.SetDefault(key, value)
	}

	if err := l.viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.NewConfigurationError("error reading config file", err)
		}
	}

	var config Config
	if err := l.viper.Unmarshal(&config); err != nil {
		return nil, errors.NewConfigurationError("error unmarshaling config", err)
	}

	config.SetDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// ConfigFileUsed returns the path of the config file that was read, if any
func (l *Loader) ConfigFileUsed() string {
	return l.viper.ConfigFileUsed()
}

// defaultsOf maps the dotted mapstructure key of every leaf in v to its value
func defaultsOf(v interface{}) map[string]interface{} {
	defaults := make(map[string]interface{})
	collectDefaults(reflect.Indirect(reflect.ValueOf(v)), "", defaults)
	return defaults
}

func collectDefaults(v reflect.Value, prefix string, defaults map[string]interface{}) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		if field.Type.Kind() == reflect.Struct {
			collectDefaults(v.Field(i), key, defaults)
			continue
		}
		defaults[key] = v.Field(i).Interface()
	}
}
