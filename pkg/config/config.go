package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// DefaultConfigFile is read when present; environment variables override it.
const DefaultConfigFile = "config.yaml"

// Config holds all configuration for ekaya-csvloader.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8501"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// Target PostgreSQL server
	Postgres PostgresConfig `yaml:"postgres"`

	Session SessionConfig `yaml:"session"`
	Upload  UploadConfig  `yaml:"upload"`
}

// PostgresConfig holds the server whose databases are listed and loaded into.
// No database name is configured; it is chosen per upload.
type PostgresConfig struct {
	Host              string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port              int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User              string `yaml:"user" env:"PGUSER" env-default:"postgres"`
	Password          string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	SSLMode           string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"prefer"`
	BootstrapDatabase string `yaml:"bootstrap_database" env:"PGBOOTSTRAP_DATABASE" env-default:"postgres"`
	PoolMaxConns      int32  `yaml:"pool_max_conns" env:"PGPOOL_MAX_CONNS" env-default:"4"`
}

// SessionConfig controls the cookie that remembers the selected database.
type SessionConfig struct {
	// Secret signs the session cookie. When empty a random key is generated
	// at startup and sessions do not survive restarts.
	Secret string `yaml:"-" env:"SESSION_SECRET"` // Secret - not in YAML
	MaxAge int    `yaml:"max_age" env:"SESSION_MAX_AGE" env-default:"86400"`
	Secure bool   `yaml:"secure" env:"SESSION_SECURE" env-default:"false"`
}

// UploadConfig bounds multipart uploads and the rendered preview.
type UploadConfig struct {
	MaxUploadMB int64 `yaml:"max_upload_mb" env:"MAX_UPLOAD_MB" env-default:"200"`
	PreviewRows int   `yaml:"preview_rows" env:"PREVIEW_ROWS" env-default:"20"`
}

// Load reads configuration with environment variable overrides.
// A .env file in the working directory is loaded first if present; values
// already in the environment win. config.yaml is optional.
func Load(version string) (*Config, error) {
	return LoadFile(DefaultConfigFile, version)
}

// LoadFile is Load with an explicit YAML path.
func LoadFile(path, version string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
		return fmt.Errorf("invalid postgres port %d", c.Postgres.Port)
	}
	if c.Postgres.Host == "" {
		return errors.New("postgres host is required")
	}
	if c.Upload.MaxUploadMB <= 0 {
		return fmt.Errorf("max_upload_mb must be positive, got %d", c.Upload.MaxUploadMB)
	}
	if c.Upload.PreviewRows < 0 {
		return fmt.Errorf("preview_rows must not be negative, got %d", c.Upload.PreviewRows)
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.BindAddr + ":" + c.Port
}

// MaxUploadBytes returns the multipart size limit in bytes.
func (c *UploadConfig) MaxUploadBytes() int64 {
	return c.MaxUploadMB << 20
}
