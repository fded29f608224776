// Package config loads tq settings: defaults, then ~/.taskquest/config.yaml,
// then TASKQUEST_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Config struct {
	UserID   string `yaml:"user_id" mapstructure:"user_id"`
	DBPath   string `yaml:"db_path" mapstructure:"db_path"`
	Timezone string `yaml:"timezone" mapstructure:"timezone"`

	Sync   SyncConfig   `yaml:"sync" mapstructure:"sync"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Backup BackupConfig `yaml:"backup" mapstructure:"backup"`
}

// SyncConfig is the client side of project sharing.
type SyncConfig struct {
	ServerURL      string        `yaml:"server_url" mapstructure:"server_url"`
	PollInterval   time.Duration `yaml:"poll_interval" mapstructure:"poll_interval"`
	MaxFailures    int           `yaml:"max_failures" mapstructure:"max_failures"`
	RequestTimeout time.Duration `yaml:"request_timeout" mapstructure:"request_timeout"`
}

// ServerConfig is used by `tq serve`.
type ServerConfig struct {
	Addr   string `yaml:"addr" mapstructure:"addr"`
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

type BackupConfig struct {
	Bucket  string `yaml:"bucket" mapstructure:"bucket"`
	Region  string `yaml:"region" mapstructure:"region"`
	Profile string `yaml:"profile" mapstructure:"profile"`
	Prefix  string `yaml:"prefix" mapstructure:"prefix"`
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() *Config {
	user := os.Getenv("USER")
	if user == "" {
		user = "player"
	}
	return &Config{
		UserID:   user,
		Timezone: "Local",
		Sync: SyncConfig{
			ServerURL:      "http://localhost:8080",
			PollInterval:   5 * time.Second,
			MaxFailures:    3,
			RequestTimeout: 10 * time.Second,
		},
		Server: ServerConfig{
			Addr:   ":8080",
			Driver: "sqlite",
			DSN:    filepath.Join(Dir(), "server.db"),
		},
		Backup: BackupConfig{
			Region: "us-east-1",
			Prefix: "taskquest",
		},
	}
}

// Dir is the per-user settings directory.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".taskquest"
	}
	return filepath.Join(home, ".taskquest")
}

// DefaultConfigPath returns ~/.taskquest/config.yaml.
func DefaultConfigPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// Load reads path (or the default path when empty) over the defaults and
// applies environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = DefaultConfigPath()
	}

	if err := loadFile(path, cfg); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return err
	}

	return v.Unmarshal(cfg)
}

func applyEnv(cfg *Config) {
	cfg.UserID = getEnv("TASKQUEST_USER_ID", cfg.UserID)
	cfg.DBPath = getEnv("TASKQUEST_DB_PATH", cfg.DBPath)
	cfg.Timezone = getEnv("TASKQUEST_TZ", cfg.Timezone)

	cfg.Sync.ServerURL = getEnv("TASKQUEST_SERVER_URL", cfg.Sync.ServerURL)
	cfg.Sync.PollInterval = getEnvAsDuration("TASKQUEST_POLL_INTERVAL", cfg.Sync.PollInterval)
	cfg.Sync.MaxFailures = getEnvAsInt("TASKQUEST_MAX_FAILURES", cfg.Sync.MaxFailures)

	cfg.Server.Addr = getEnv("TASKQUEST_SERVER_ADDR", cfg.Server.Addr)
	cfg.Server.Driver = getEnv("TASKQUEST_SERVER_DRIVER", cfg.Server.Driver)
	cfg.Server.DSN = getEnv("TASKQUEST_SERVER_DSN", cfg.Server.DSN)

	cfg.Backup.Bucket = getEnv("TASKQUEST_BACKUP_BUCKET", cfg.Backup.Bucket)
}

// Validate checks values that would otherwise fail much later.
func (c *Config) Validate() error {
	if c.UserID == "" {
		return errors.New("config: user_id is required")
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.Sync.PollInterval <= 0 {
		return fmt.Errorf("config: sync.poll_interval must be positive, got %s", c.Sync.PollInterval)
	}
	if c.Sync.MaxFailures <= 0 {
		return fmt.Errorf("config: sync.max_failures must be positive, got %d", c.Sync.MaxFailures)
	}
	switch c.Server.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: server.driver must be sqlite or postgres, got %q", c.Server.Driver)
	}
	return nil
}

// Location resolves Timezone. Empty and "Local" mean the system zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// WriteDefault writes the default configuration to path. It refuses to
// overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config %s already exists", path)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshal default config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
