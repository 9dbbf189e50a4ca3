package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, joined by an underscore.
const EnvPrefix = "TABMAP"

type Config struct {
	Preview PreviewConfig `json:"preview" yaml:"preview" mapstructure:"preview"`
	Storage StorageConfig `json:"storage" yaml:"storage" mapstructure:"storage"`
	Log     LogConfig     `json:"log" yaml:"log" mapstructure:"log"`
	Metrics MetricsConfig `json:"metrics" yaml:"metrics" mapstructure:"metrics"`
}

type PreviewConfig struct {
	MaxRows int `json:"max_rows" yaml:"max_rows" mapstructure:"max_rows"`
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`
}

type StorageConfig struct {
	Type     string   `json:"type" yaml:"type" mapstructure:"type"`
	LocalDir string   `json:"local_dir" yaml:"local_dir" mapstructure:"local_dir"`
	S3       S3Config `json:"s3" yaml:"s3" mapstructure:"s3"`
}

type S3Config struct {
	Endpoint        string `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`
	Region          string `json:"region" yaml:"region" mapstructure:"region"`
	Bucket          string `json:"bucket" yaml:"bucket" mapstructure:"bucket"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id" mapstructure:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key" mapstructure:"secret_access_key"`
	UseSSL          bool   `json:"use_ssl" yaml:"use_ssl" mapstructure:"use_ssl"`
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level" mapstructure:"level"`
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

type MetricsConfig struct {
	Textfile string `json:"textfile" yaml:"textfile" mapstructure:"textfile"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Preview: PreviewConfig{MaxRows: 1000, Workers: 4},
		Storage: StorageConfig{Type: "local", LocalDir: "."},
		Log:     LogConfig{Level: "info", Format: "console"},
	}
}

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(?::-([^}]*))?\}`)

// SubstituteEnvVars expands ${VAR} and ${VAR:-default} references.
func SubstituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(m string) string {
		parts := envVarPattern.FindStringSubmatch(m)
		if v, ok := os.LookupEnv(parts[1]); ok && v != "" {
			return v
		}
		return parts[2]
	})
}

// NewViper returns a viper instance preloaded with Default and reading
// TABMAP_* environment variables, e.g. TABMAP_PREVIEW_MAX_ROWS or
// TABMAP_STORAGE_S3_REGION.
func NewViper() *viper.Viper {
	v := viper.New()
	d := Default()
	v.SetDefault("preview.max_rows", d.Preview.MaxRows)
	v.SetDefault("preview.workers", d.Preview.Workers)
	v.SetDefault("storage.type", d.Storage.Type)
	v.SetDefault("storage.local_dir", d.Storage.LocalDir)
	v.SetDefault("storage.s3.endpoint", d.Storage.S3.Endpoint)
	v.SetDefault("storage.s3.region", d.Storage.S3.Region)
	v.SetDefault("storage.s3.bucket", d.Storage.S3.Bucket)
	v.SetDefault("storage.s3.access_key_id", d.Storage.S3.AccessKeyID)
	v.SetDefault("storage.s3.secret_access_key", d.Storage.S3.SecretAccessKey)
	v.SetDefault("storage.s3.use_ssl", d.Storage.S3.UseSSL)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("metrics.textfile", d.Metrics.Textfile)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load resolves the configuration held by v: defaults, then the config file,
// then environment variables, then flags bound on v. An empty path searches
// .tabmap.yaml, .tabmap.json and the other viper formats in the working
// directory and $HOME; a missing file is not an error then. Environment
// references inside the file are expanded.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path == "" {
		v.SetConfigName(".tabmap")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
		path = v.ConfigFileUsed()
	}
	if path != "" {
		if err := readConfigFile(v, path); err != nil {
			return nil, err
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

func readConfigFile(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to open config file: %w", err)
	}
	v.SetConfigFile(path)
	if err := v.ReadConfig(strings.NewReader(SubstituteEnvVars(string(data)))); err != nil {
		return fmt.Errorf("failed to decode config file %s: %w", path, err)
	}
	return nil
}

// Save writes cfg as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	var errs []string
	if c.Preview.MaxRows < 0 {
		errs = append(errs, "preview.max_rows must not be negative")
	}
	if c.Preview.Workers < 0 {
		errs = append(errs, "preview.workers must not be negative")
	}
	switch strings.ToLower(c.Storage.Type) {
	case "", "local":
	case "s3":
		if c.Storage.S3.Region == "" && c.Storage.S3.Endpoint == "" {
			errs = append(errs, "storage.s3 needs a region or an endpoint")
		}
	default:
		errs = append(errs, fmt.Sprintf("unknown storage type: %s", c.Storage.Type))
	}
	switch strings.ToLower(c.Log.Level) {
	case "", "trace", "debug", "info", "warn", "error", "disabled":
	default:
		errs = append(errs, fmt.Sprintf("unknown log level: %s", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "json", "console":
	default:
		errs = append(errs, fmt.Sprintf("unknown log format: %s", c.Log.Format))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(errs, "; "))
	}
	return nil
}
