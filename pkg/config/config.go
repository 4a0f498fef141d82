package config

import (
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for the dataset service.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Database configuration (PostgreSQL)
	Database DatabaseConfig `yaml:"database"`

	// Upload handling
	Upload UploadConfig `yaml:"upload"`

	// Chart generation limits
	Charts ChartsConfig `yaml:"charts"`

	// Preview rendering limits
	Preview PreviewConfig `yaml:"preview"`

	// Activity roll-forward schedule (cron expression, server local time)
	RollForwardSchedule string `yaml:"roll_forward_schedule" env:"ROLL_FORWARD_SCHEDULE" env-default:"0 0 * * *"`

	// SessionKey signs the session cookie carrying the actor identity.
	// Server will fail to start if this is not set.
	SessionKey string `yaml:"-" env:"SESSION_KEY"` // Secret - not in YAML
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"mldata"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"mldata"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	MigrationsPath string `yaml:"migrations_path" env:"MIGRATIONS_PATH" env-default:"migrations"`
}

// URL builds a pgx-compatible connection URL.
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// UploadConfig holds raw dataset file storage settings.
type UploadConfig struct {
	// Dir is the directory holding one {id}.csv file per dataset.
	Dir string `yaml:"dir" env:"UPLOAD_DIR" env-default:"uploads"`
}

// ChartsConfig bounds the auto-visualization pipeline so pathological
// uploads cannot consume unbounded memory or CPU.
type ChartsConfig struct {
	// MaxColumns is how many leading columns are considered for charting.
	MaxColumns int `yaml:"max_columns" env:"CHARTS_MAX_COLUMNS" env-default:"30"`
	// MaxRows is how many rows are sampled per column.
	MaxRows int `yaml:"max_rows" env:"CHARTS_MAX_ROWS" env-default:"100000"`
	// MaxCategories is the distinct-value threshold for categorical detection.
	MaxCategories int `yaml:"max_categories" env:"CHARTS_MAX_CATEGORIES" env-default:"7"`
}

// PreviewConfig bounds the dataset preview projection.
type PreviewConfig struct {
	MaxRows    int `yaml:"max_rows" env:"PREVIEW_MAX_ROWS" env-default:"100"`
	MaxColumns int `yaml:"max_columns" env:"PREVIEW_MAX_COLUMNS" env-default:"50"`
}

// Load reads configuration from config.yaml with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		return nil, fmt.Errorf("failed to read config.yaml: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.SessionKey == "" {
		return fmt.Errorf("SESSION_KEY must be set")
	}
	if c.Upload.Dir == "" {
		return fmt.Errorf("upload dir must not be empty")
	}
	if c.Charts.MaxColumns <= 0 || c.Charts.MaxRows <= 0 || c.Charts.MaxCategories <= 0 {
		return fmt.Errorf("chart limits must be positive")
	}
	if err := os.MkdirAll(c.Upload.Dir, 0o755); err != nil {
		return fmt.Errorf("failed to create upload dir: %w", err)
	}
	return nil
}
