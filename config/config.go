package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/alekLukanen/errs"
	"gopkg.in/yaml.v3"

	arrowops "github.com/alekLukanen/ecdsETL/arrowOps"
)

const (
	DefaultSourceURL     = "https://files.digital.nhs.uk/77/2ED6D3/AE_2324_ECDS_open_data_csv.csv"
	DefaultRawKey        = "AE_2324_ECDS_open_data_csv.csv"
	DefaultCleanedPrefix = "cleaned_AE_2324_ECDS"

	// selects the in process object storage instead of an s3 endpoint
	ObjectStorageEndpointMemory = "memory"

	SecretsStoreEnv  = "env"
	SecretsStoreDapr = "dapr"
)

type Config struct {
	Source        SourceConfig        `yaml:"source"`
	Raw           RawConfig           `yaml:"raw"`
	Cleaned       CleanedConfig       `yaml:"cleaned"`
	ObjectStorage ObjectStorageConfig `yaml:"object_storage"`
	Secrets       SecretsConfig       `yaml:"secrets"`
	Processing    ProcessingConfig    `yaml:"processing"`
	Redis         RedisConfig         `yaml:"redis"`
	Metrics       MetricsConfig       `yaml:"metrics"`
	Logging       LoggingConfig       `yaml:"logging"`
}

type SourceConfig struct {
	URL      string        `yaml:"url"`
	Timeout  time.Duration `yaml:"timeout"`
	RetryMax int           `yaml:"retry_max"`
}

type RawConfig struct {
	Key string `yaml:"key"`
}

type CleanedConfig struct {
	Prefix         string `yaml:"prefix"`
	RejectedPrefix string `yaml:"rejected_prefix"` // empty disables the rejects object
	Compression    string `yaml:"compression"`
	MaxObjectRows  int    `yaml:"max_object_rows"`
}

type ObjectStorageConfig struct {
	Endpoint     string `yaml:"endpoint"`
	Region       string `yaml:"region"`
	UsePathStyle bool   `yaml:"use_path_style"`
}

type SecretsConfig struct {
	Store     string `yaml:"store"`
	DaprStore string `yaml:"dapr_store"`
	EnvPrefix string `yaml:"env_prefix"`
}

type ProcessingConfig struct {
	ChunkRows int `yaml:"chunk_rows"`
	Workers   int `yaml:"workers"`
}

// RedisConfig enables the run lock and run result log when Address is set.
type RedisConfig struct {
	Address   string        `yaml:"address"`
	Password  string        `yaml:"password"`
	KeyPrefix string        `yaml:"key_prefix"`
	LockTTL   time.Duration `yaml:"lock_ttl"`
	ResultTTL time.Duration `yaml:"result_ttl"`
}

func (obj RedisConfig) Enabled() bool {
	return obj.Address != ""
}

// MetricsConfig enables pushing run metrics when PushgatewayURL is set.
type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

func (obj MetricsConfig) Enabled() bool {
	return obj.PushgatewayURL != ""
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

/*
* Loads a yaml config file. An empty path returns the defaults. Defaults are
* applied before validation so that an empty file is a valid config.
 */
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errs.NewStackError(fmt.Errorf("%w| %s: %w", ErrConfigRead, path, err))
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errs.NewStackError(fmt.Errorf("%w| failed to parse yaml %s: %w", ErrConfigRead, path, err))
		}
	}

	cfg.SetDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (obj *Config) SetDefaults() {
	if obj.Source.URL == "" {
		obj.Source.URL = DefaultSourceURL
	}
	if obj.Source.Timeout == 0 {
		obj.Source.Timeout = 5 * time.Minute
	}

	if obj.Raw.Key == "" {
		obj.Raw.Key = DefaultRawKey
	}

	if obj.Cleaned.Prefix == "" {
		obj.Cleaned.Prefix = DefaultCleanedPrefix
	}
	if obj.Cleaned.Compression == "" {
		obj.Cleaned.Compression = "snappy"
	}
	if obj.Cleaned.MaxObjectRows == 0 {
		obj.Cleaned.MaxObjectRows = 1_000_000
	}

	if obj.ObjectStorage.Region == "" {
		obj.ObjectStorage.Region = "us-east-1"
	}

	if obj.Secrets.Store == "" {
		obj.Secrets.Store = SecretsStoreEnv
	}
	if obj.Secrets.DaprStore == "" {
		obj.Secrets.DaprStore = "keys"
	}
	if obj.Secrets.EnvPrefix == "" {
		obj.Secrets.EnvPrefix = "ECDS_"
	}

	if obj.Processing.ChunkRows == 0 {
		obj.Processing.ChunkRows = 65_536
	}
	if obj.Processing.Workers == 0 {
		obj.Processing.Workers = 4
	}

	if obj.Redis.KeyPrefix == "" {
		obj.Redis.KeyPrefix = "ecdsETL"
	}
	if obj.Redis.LockTTL == 0 {
		obj.Redis.LockTTL = time.Hour
	}
	if obj.Redis.ResultTTL == 0 {
		obj.Redis.ResultTTL = 24 * time.Hour
	}

	if obj.Metrics.Job == "" {
		obj.Metrics.Job = "ecds_etl"
	}

	if obj.Logging.Level == "" {
		obj.Logging.Level = "info"
	}
	if obj.Logging.Format == "" {
		obj.Logging.Format = "json"
	}
}

func (obj *Config) Validate() error {
	if err := obj.Source.Validate(); err != nil {
		return errs.NewStackError(fmt.Errorf("%w| source: %w", ErrConfigInvalid, err))
	}
	if obj.Raw.Key == "" {
		return errs.NewStackError(fmt.Errorf("%w| raw: key is required", ErrConfigInvalid))
	}
	if err := obj.Cleaned.Validate(); err != nil {
		return errs.NewStackError(fmt.Errorf("%w| cleaned: %w", ErrConfigInvalid, err))
	}
	if err := obj.Secrets.Validate(); err != nil {
		return errs.NewStackError(fmt.Errorf("%w| secrets: %w", ErrConfigInvalid, err))
	}
	if obj.Processing.ChunkRows < 1 || obj.Processing.Workers < 1 {
		return errs.NewStackError(fmt.Errorf("%w| processing: chunk_rows and workers must be positive", ErrConfigInvalid))
	}
	if obj.Redis.LockTTL < 0 || obj.Redis.ResultTTL < 0 {
		return errs.NewStackError(fmt.Errorf("%w| redis: ttls must not be negative", ErrConfigInvalid))
	}
	if obj.Metrics.Enabled() {
		if _, err := url.ParseRequestURI(obj.Metrics.PushgatewayURL); err != nil {
			return errs.NewStackError(fmt.Errorf("%w| metrics: pushgateway_url: %w", ErrConfigInvalid, err))
		}
	}
	if _, err := obj.Logging.SlogLevel(); err != nil {
		return errs.NewStackError(fmt.Errorf("%w| logging: %w", ErrConfigInvalid, err))
	}
	if obj.Logging.Format != "json" && obj.Logging.Format != "text" {
		return errs.NewStackError(fmt.Errorf("%w| logging: unknown format %s", ErrConfigInvalid, obj.Logging.Format))
	}
	return nil
}

func (obj *SourceConfig) Validate() error {
	parsed, err := url.ParseRequestURI(obj.URL)
	if err != nil {
		return err
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %s", parsed.Scheme)
	}
	if obj.RetryMax < 0 {
		return fmt.Errorf("retry_max must not be negative")
	}
	if obj.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative")
	}
	return nil
}

func (obj *CleanedConfig) Validate() error {
	prefix := strings.Trim(obj.Prefix, "/")
	if prefix == "" {
		return fmt.Errorf("prefix is required")
	}
	if strings.Trim(obj.RejectedPrefix, "/") == prefix {
		return fmt.Errorf("rejected_prefix must differ from prefix")
	}
	if _, err := arrowops.ParseCompression(obj.Compression); err != nil {
		return err
	}
	if obj.MaxObjectRows < 1 {
		return fmt.Errorf("max_object_rows must be positive")
	}
	return nil
}

func (obj *SecretsConfig) Validate() error {
	switch obj.Store {
	case SecretsStoreEnv, SecretsStoreDapr:
		return nil
	default:
		return fmt.Errorf("unknown store %s", obj.Store)
	}
}

func (obj LoggingConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(obj.Level)); err != nil {
		return slog.LevelInfo, err
	}
	return level, nil
}

// NewLogger builds the process logger writing to stdout.
func (obj LoggingConfig) NewLogger() *slog.Logger {
	level, err := obj.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	options := &slog.HandlerOptions{Level: level}
	if obj.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, options))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, options))
}
