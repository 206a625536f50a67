package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Provider kinds
const (
	ProviderStatic = "static" // built-in demo fixtures
	ProviderStore  = "store"  // vectors persisted in PostgreSQL
	ProviderRPC    = "rpc"    // HTTP JSON-RPC engine
	ProviderWS     = "ws"     // WebSocket JSON-RPC engine
)

var validProviders = []string{ProviderStatic, ProviderStore, ProviderRPC, ProviderWS}

// Config holds all settings of the impact tool.
type Config struct {
	Dataset string `yaml:"dataset"`

	Provider   ProviderConfig   `yaml:"provider"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	Clickhouse ClickhouseConfig `yaml:"clickhouse"`
	Output     OutputConfig     `yaml:"output"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
}

// ProviderConfig selects and tunes the result provider.
type ProviderConfig struct {
	Kind       string `yaml:"kind"`
	Endpoint   string `yaml:"endpoint"`
	Timeout    string `yaml:"timeout"`
	MaxRetries int    `yaml:"max_retries"`
}

// PostgresConfig configures the vector store.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	MaxConns int32  `yaml:"max_conns"`
}

// ClickhouseConfig configures the chart row store. Empty DSN keeps rows in memory.
type ClickhouseConfig struct {
	DSN string `yaml:"dsn"`
}

// OutputConfig configures report files.
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Mode  string `yaml:"mode"`  // production, development
	Level string `yaml:"level"` // debug, info, warn, error
}

// MetricsConfig configures the prometheus registry.
type MetricsConfig struct {
	Namespace    string `yaml:"namespace"`
	TextfilePath string `yaml:"textfile_path"` // empty disables the textfile export
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Dataset: "demo",
		Provider: ProviderConfig{
			Kind:       ProviderStatic,
			Timeout:    "30s",
			MaxRetries: 3,
		},
		Postgres: PostgresConfig{
			MaxConns: 10,
		},
		Output: OutputConfig{
			Dir: "reports",
		},
		Logging: LoggingConfig{
			Mode:  "production",
			Level: "info",
		},
		Metrics: MetricsConfig{
			Namespace: "policy_impact_lab",
		},
	}
}

// Load reads a YAML config file and applies environment overrides.
// A missing file yields the defaults. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from a .env file into the process
// environment. Existing variables win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	setString(&c.Dataset, "IMPACT_DATASET")
	setString(&c.Provider.Kind, "IMPACT_PROVIDER")
	setString(&c.Provider.Endpoint, "IMPACT_PROVIDER_ENDPOINT")
	setString(&c.Provider.Timeout, "IMPACT_PROVIDER_TIMEOUT")
	if v := os.Getenv("IMPACT_PROVIDER_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Provider.MaxRetries = n
		}
	}
	setString(&c.Postgres.DSN, "POSTGRES_DSN")
	setString(&c.Clickhouse.DSN, "CLICKHOUSE_DSN")
	setString(&c.Output.Dir, "IMPACT_OUTPUT_DIR")
	setString(&c.Logging.Mode, "LOG_MODE")
	setString(&c.Logging.Level, "LOG_LEVEL")
	setString(&c.Metrics.TextfilePath, "METRICS_TEXTFILE")
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// ProviderTimeout returns the parsed provider timeout, 30s when unset or invalid.
func (c *Config) ProviderTimeout() time.Duration {
	if d, err := time.ParseDuration(c.Provider.Timeout); err == nil && d > 0 {
		return d
	}
	return 30 * time.Second
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var problems []string

	if c.Dataset == "" {
		problems = append(problems, "dataset cannot be empty")
	}

	validKind := false
	for _, k := range validProviders {
		if c.Provider.Kind == k {
			validKind = true
			break
		}
	}
	if !validKind {
		problems = append(problems, fmt.Sprintf("invalid provider kind '%s': must be one of %v", c.Provider.Kind, validProviders))
	}

	switch c.Provider.Kind {
	case ProviderRPC:
		problems = append(problems, checkEndpoint(c.Provider.Endpoint, "http", "https")...)
	case ProviderWS:
		problems = append(problems, checkEndpoint(c.Provider.Endpoint, "ws", "wss")...)
	case ProviderStore:
		if c.Postgres.DSN == "" {
			problems = append(problems, "postgres dsn is required when using the store provider")
		}
	}

	if c.Provider.Timeout != "" {
		if d, err := time.ParseDuration(c.Provider.Timeout); err != nil || d <= 0 {
			problems = append(problems, fmt.Sprintf("invalid provider timeout '%s'", c.Provider.Timeout))
		}
	}
	if c.Provider.MaxRetries < 0 {
		problems = append(problems, fmt.Sprintf("invalid max retries %d: must not be negative", c.Provider.MaxRetries))
	}
	if c.Postgres.MaxConns < 0 {
		problems = append(problems, fmt.Sprintf("invalid postgres max conns %d: must not be negative", c.Postgres.MaxConns))
	}

	if c.Output.Dir == "" {
		problems = append(problems, "output dir cannot be empty")
	}

	switch c.Logging.Mode {
	case "production", "development":
	default:
		problems = append(problems, fmt.Sprintf("invalid logging mode '%s': must be production or development", c.Logging.Mode))
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("invalid logging level '%s'", c.Logging.Level))
	}

	if c.Metrics.Namespace == "" {
		problems = append(problems, "metrics namespace cannot be empty")
	}

	if len(problems) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

func checkEndpoint(endpoint string, schemes ...string) []string {
	if endpoint == "" {
		return []string{"provider endpoint is required"}
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return []string{fmt.Sprintf("invalid provider endpoint '%s': %v", endpoint, err)}
	}
	for _, s := range schemes {
		if u.Scheme == s {
			return nil
		}
	}
	return []string{fmt.Sprintf("invalid provider endpoint scheme '%s': must be one of %v", u.Scheme, schemes)}
}
