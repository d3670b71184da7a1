// Package config loads dittoshare configuration from a YAML or TOML file,
// DITTOSHARE_* environment variables and built-in defaults, and turns it
// into the options a share is opened with.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/marmos91/dittoshare/internal/bytesize"
)

// EnvPrefix prefixes every environment override, e.g.
// DITTOSHARE_LOGGING_LEVEL=DEBUG or DITTOSHARE_SHARE_ROOT=/srv/share.
const EnvPrefix = "DITTOSHARE"

// Config is the complete dittoshare configuration.
//
// Sources in order of precedence:
//  1. CLI flags (applied by the caller)
//  2. Environment variables (DITTOSHARE_*)
//  3. Configuration file
//  4. Defaults
type Config struct {
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`

	// Share selects the share directory and the name used to create it.
	Share ShareConfig `mapstructure:"share" yaml:"share"`

	// Metadata selects the metadata store engine.
	Metadata MetadataConfig `mapstructure:"metadata" yaml:"metadata"`

	// Blob selects where file contents live.
	Blob BlobConfig `mapstructure:"blob" yaml:"blob"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is DEBUG, INFO, WARN or ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format is text or json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output is stdout, stderr or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	// Enabled turns on span export. Default: false
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP gRPC collector (host:port). Default: localhost:4317
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure disables TLS towards the collector. Default: true
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate is the fraction of traces kept (0.0 to 1.0). Default: 1.0
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`

	// ShutdownTimeout bounds the final span flush when a command exits.
	// Default: 5s
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gte=0" yaml:"shutdown_timeout"`

	// Profiling configures Pyroscope continuous profiling.
	Profiling ProfilingConfig `mapstructure:"profiling" yaml:"profiling"`
}

// ProfilingConfig controls Pyroscope continuous profiling.
type ProfilingConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the Pyroscope server URL. Default: http://localhost:4040
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// ProfileTypes lists the profiles to collect.
	ProfileTypes []string `mapstructure:"profile_types" validate:"dive,oneof=cpu alloc_objects alloc_space inuse_objects inuse_space goroutines mutex_count mutex_duration block_count block_duration" yaml:"profile_types"`
}

// MetricsConfig controls Prometheus metrics. The CLI runs one command per
// process, so metrics are written to a textfile for the node_exporter
// textfile collector instead of being served over HTTP.
type MetricsConfig struct {
	// Enabled turns on collection. Default: false
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// TextfilePath receives the metrics after every command. Required when
	// Enabled.
	TextfilePath string `mapstructure:"textfile_path" validate:"required_if=Enabled true" yaml:"textfile_path,omitempty"`
}

// ShareConfig selects the share.
type ShareConfig struct {
	// Root is the share directory. Created on first use.
	Root string `mapstructure:"root" yaml:"root"`

	// Name is the instance name used when Root does not exist yet.
	Name string `mapstructure:"name" yaml:"name,omitempty"`

	// StrangePaths allows \ : * ? " < > | in file names.
	StrangePaths bool `mapstructure:"strange_paths" yaml:"strange_paths"`
}

// MetadataConfig selects the metadata store.
type MetadataConfig struct {
	// Type is sqlite, postgres, badger or memory. Default: sqlite
	Type string `mapstructure:"type" validate:"required,oneof=sqlite postgres badger memory" yaml:"type"`

	SQLite   SQLiteConfig   `mapstructure:"sqlite" yaml:"sqlite,omitempty"`
	Postgres PostgresConfig `mapstructure:"postgres" yaml:"postgres,omitempty"`
	Badger   BadgerConfig   `mapstructure:"badger" yaml:"badger,omitempty"`
}

// SQLiteConfig configures the SQLite store.
type SQLiteConfig struct {
	// Path overrides the database file. Default: <root>/.dittoshare/database
	Path string `mapstructure:"path" yaml:"path,omitempty"`
}

// PostgresConfig configures the PostgreSQL store. A share owns its
// database; two shares must not point at the same one.
type PostgresConfig struct {
	// DSN, when set, replaces the individual fields.
	DSN string `mapstructure:"dsn" yaml:"dsn,omitempty"`

	Host         string `mapstructure:"host" yaml:"host,omitempty"`
	Port         int    `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port,omitempty"`
	Database     string `mapstructure:"database" yaml:"database,omitempty"`
	User         string `mapstructure:"user" yaml:"user,omitempty"`
	Password     string `mapstructure:"password" yaml:"password,omitempty"`
	SSLMode      string `mapstructure:"sslmode" validate:"omitempty,oneof=disable require verify-ca verify-full" yaml:"sslmode,omitempty"`
	MaxOpenConns int    `mapstructure:"max_open_conns" validate:"omitempty,gte=1" yaml:"max_open_conns,omitempty"`
	MaxIdleConns int    `mapstructure:"max_idle_conns" validate:"omitempty,gte=0" yaml:"max_idle_conns,omitempty"`
}

// BadgerConfig configures the BadgerDB store.
type BadgerConfig struct {
	// Path overrides the database directory. Default: <root>/.dittoshare/database
	Path string `mapstructure:"path" yaml:"path,omitempty"`

	// BlockCacheSize and IndexCacheSize accept sizes like "64Mi".
	BlockCacheSize bytesize.ByteSize `mapstructure:"block_cache_size" yaml:"block_cache_size,omitempty"`
	IndexCacheSize bytesize.ByteSize `mapstructure:"index_cache_size" yaml:"index_cache_size,omitempty"`
}

// BlobConfig selects the blob store.
type BlobConfig struct {
	// Type is fs, s3 or memory. Default: fs
	Type string `mapstructure:"type" validate:"required,oneof=fs s3 memory" yaml:"type"`

	S3 S3Config `mapstructure:"s3" yaml:"s3,omitempty"`
}

// S3Config configures the S3 blob store. Every share stores its blobs
// under "<prefix><instance filename>/".
type S3Config struct {
	Bucket         string `mapstructure:"bucket" yaml:"bucket,omitempty"`
	Region         string `mapstructure:"region" yaml:"region,omitempty"`
	Endpoint       string `mapstructure:"endpoint" validate:"omitempty,url" yaml:"endpoint,omitempty"`
	KeyPrefix      string `mapstructure:"key_prefix" yaml:"key_prefix,omitempty"`
	ForcePathStyle bool   `mapstructure:"force_path_style" yaml:"force_path_style,omitempty"`

	// AccessKeyID and SecretAccessKey replace the default AWS credential
	// chain when both are set.
	AccessKeyID     string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty"`
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key,omitempty"`
}

// Load reads configuration from configPath (or the default location when
// empty), applies defaults and validates the result. A missing file yields
// the defaults with environment overrides applied.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	setupViper(v, configPath)

	if _, err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

// SaveConfig writes cfg to path as YAML, creating parent directories.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// 0600: the file may carry database or S3 credentials.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func setupViper(v *viper.Viper, configPath string) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only applies to keys viper already knows, so every key
	// gets a default of its zero value.
	bindKeys(v, "", reflect.TypeOf(Config{}))

	if configPath != "" {
		v.SetConfigFile(configPath)
		return
	}
	v.AddConfigPath(getConfigDir())
	v.SetConfigName("config")
	v.SetConfigType("yaml")
}

// bindKeys registers every mapstructure key below t with viper.
func bindKeys(v *viper.Viper, prefix string, t reflect.Type) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		key := f.Tag.Get("mapstructure")
		if key == "" {
			continue
		}
		if prefix != "" {
			key = prefix + "." + key
		}
		if f.Type.Kind() == reflect.Struct {
			bindKeys(v, key, f.Type)
			continue
		}
		v.SetDefault(key, reflect.Zero(f.Type).Interface())
	}
}

// readConfigFile reports whether a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}
	return true, nil
}

func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		byteSizeDecodeHook(),
		durationDecodeHook(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// byteSizeDecodeHook accepts "64Mi", "1GB" or plain numbers for
// bytesize.ByteSize fields.
func byteSizeDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(bytesize.ByteSize(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return bytesize.Parse(v)
		case int:
			return bytesize.ByteSize(v), nil
		case int64:
			return bytesize.ByteSize(v), nil
		case uint64:
			return bytesize.ByteSize(v), nil
		case float64:
			return bytesize.ByteSize(v), nil
		default:
			return data, nil
		}
	}
}

// durationDecodeHook accepts "30s", "5m" or nanoseconds for durations.
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns $XDG_CONFIG_HOME/dittoshare, ~/.config/dittoshare,
// or "." when the home directory is unknown.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "dittoshare")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".config", "dittoshare")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists reports whether a file exists at the default path.
func DefaultConfigExists() bool {
	_, err := os.Stat(GetDefaultConfigPath())
	return err == nil
}

// GetConfigDir returns the configuration directory.
func GetConfigDir() string {
	return getConfigDir()
}
