// config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Port string `yaml:"port"`
}

// DatabaseConfig selects one of the supported drivers. DSN, when set, is used
// as-is; otherwise it is built from the host/user fields (mysql, postgres) or
// Path (sqlite).
type DatabaseConfig struct {
	Driver             string `yaml:"driver"` // mysql, postgres or sqlite
	Host               string `yaml:"host"`
	Port               string `yaml:"port"`
	User               string `yaml:"user"`
	Password           string `yaml:"password"`
	DBName             string `yaml:"dbname"`
	Path               string `yaml:"path"`
	DSN                string `yaml:"dsn"`
	MaxOpenConns       int    `yaml:"max_open_conns"`
	ConnMaxLifetimeStr string `yaml:"conn_max_lifetime"`
	ConnMaxLifetime    time.Duration
}

type IngestConfig struct {
	BatchSize       int    `yaml:"batch_size"` // change events per INSERT statement
	Delimiter       string `yaml:"delimiter"`
	Timezone        string `yaml:"timezone"` // resolves "today" when no capture date is given
	SourceName      string `yaml:"source_name"`
	DownloadDir     string `yaml:"download_dir"`
	SourceURL       string `yaml:"source_url"`
	HTTPTimeoutStr  string `yaml:"http_timeout"`
	HTTPTimeout     time.Duration
	SyncIntervalStr string `yaml:"sync_interval"` // serve polls source_url when set
	SyncInterval    time.Duration
	Location        *time.Location `yaml:"-"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Logging  LoggingConfig  `yaml:"logging"`
}

var AppConfig Config

// Environment variables that override the file.
const (
	EnvConfigPath = "PRICEDIFF_CONFIG"
	EnvDBDriver   = "PRICEDIFF_DB_DRIVER"
	EnvDBDSN      = "PRICEDIFF_DB_DSN"
	EnvPort       = "PRICEDIFF_PORT"
	EnvLogLevel   = "PRICEDIFF_LOG_LEVEL"
)

var defaultConfigPaths = []string{
	"config.yaml",
	"config/config.yaml",
}

// LoadConfig reads a .env file if present, then the YAML config at configPath
// (or the first of the default locations), expands ${VAR} references, applies
// env overrides and defaults and validates the result into AppConfig.
// A missing config file is not an error: defaults plus env are enough to run
// against sqlite.
func LoadConfig(configPath string) error {
	_ = godotenv.Load() // .env is optional

	cfg, err := Load(configPath)
	if err != nil {
		return err
	}
	AppConfig = *cfg
	return nil
}

// Load builds a Config without touching AppConfig.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = os.Getenv(EnvConfigPath)
	}
	if configPath == "" {
		for _, p := range defaultConfigPaths {
			if _, err := os.Stat(p); err == nil {
				configPath = p
				break
			}
		}
	}

	var cfg Config
	if configPath != "" {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := Parse(file, &cfg); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.finalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Parse expands environment references in data and unmarshals it into cfg.
func Parse(data []byte, cfg *Config) error {
	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := envString(EnvDBDriver, ""); v != "" {
		cfg.Database.Driver = v
	}
	if v := envString(EnvDBDSN, ""); v != "" {
		cfg.Database.DSN = v
	}
	if v := envString(EnvPort, ""); v != "" {
		cfg.Server.Port = v
	}
	if v := envString(EnvLogLevel, ""); v != "" {
		cfg.Logging.Level = v
	}
}

func (c *Config) finalize() error {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	c.Database.Driver = strings.ToLower(strings.TrimSpace(c.Database.Driver))
	if c.Database.Driver == "sqlite" && c.Database.Path == "" && c.Database.DSN == "" {
		c.Database.Path = "pricediff.db"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Ingest.BatchSize == 0 {
		c.Ingest.BatchSize = 200
	}
	if c.Ingest.Delimiter == "" {
		c.Ingest.Delimiter = ","
	}
	if c.Ingest.SourceName == "" {
		c.Ingest.SourceName = "price_list"
	}
	if c.Ingest.DownloadDir == "" {
		c.Ingest.DownloadDir = "./temp_data"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	var err error
	if c.Database.ConnMaxLifetime, err = parseDuration(c.Database.ConnMaxLifetimeStr, 5*time.Minute); err != nil {
		return fmt.Errorf("failed to parse database.conn_max_lifetime: %w", err)
	}
	if c.Ingest.HTTPTimeout, err = parseDuration(c.Ingest.HTTPTimeoutStr, 30*time.Second); err != nil {
		return fmt.Errorf("failed to parse ingest.http_timeout: %w", err)
	}
	if c.Ingest.SyncInterval, err = parseDuration(c.Ingest.SyncIntervalStr, 0); err != nil {
		return fmt.Errorf("failed to parse ingest.sync_interval: %w", err)
	}

	c.Ingest.Location = time.Local
	if c.Ingest.Timezone != "" {
		loc, err := time.LoadLocation(c.Ingest.Timezone)
		if err != nil {
			return fmt.Errorf("failed to load ingest.timezone %q: %w", c.Ingest.Timezone, err)
		}
		c.Ingest.Location = loc
	}

	return c.Validate()
}

// Validate reports configuration that cannot work.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "mysql", "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q (want mysql, postgres or sqlite)", c.Database.Driver)
	}
	if c.Database.Driver != "sqlite" && c.Database.DSN == "" && (c.Database.Host == "" || c.Database.DBName == "") {
		return fmt.Errorf("database.host and database.dbname are required for %s", c.Database.Driver)
	}
	if c.Ingest.BatchSize < 0 {
		return fmt.Errorf("ingest.batch_size must be positive, got %d", c.Ingest.BatchSize)
	}
	if _, err := c.Ingest.DelimiterRune(); err != nil {
		return err
	}
	return nil
}

// DelimiterRune returns the configured delimiter; "tab" and "\t" both mean a tab.
func (c IngestConfig) DelimiterRune() (rune, error) {
	switch c.Delimiter {
	case "", ",":
		return ',', nil
	case "tab", `\t`, "\t":
		return '\t', nil
	}
	r := []rune(c.Delimiter)
	if len(r) != 1 || r[0] == '"' || r[0] == '\n' || r[0] == '\r' {
		return 0, fmt.Errorf("invalid ingest.delimiter %q", c.Delimiter)
	}
	return r[0], nil
}

func parseDuration(s string, def time.Duration) (time.Duration, error) {
	if strings.TrimSpace(s) == "" {
		return def, nil
	}
	return time.ParseDuration(strings.TrimSpace(s))
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

// EnvString returns the trimmed value of key, or def when it is unset.
func EnvString(key, def string) string { return envString(key, def) }

// EnvBool reads a boolean environment variable, falling back to def when it
// is unset or unrecognised.
func EnvBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch strings.ToLower(v) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	}
	return def
}
