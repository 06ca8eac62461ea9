package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string        `toml:"environment" validate:"oneof=development production"`
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Logging     LoggingConfig `toml:"logging"`
	Themes      ThemesConfig  `toml:"themes"`
	Gdelt       GdeltConfig   `toml:"gdelt"`
	Extract     ExtractConfig `toml:"extract"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port" validate:"min=1,max=65535"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path" validate:"required"`
	ResetOnStartup bool   `toml:"reset_on_startup"` // delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level  string   `toml:"level" validate:"oneof=debug info warn error"`
	Output []string `toml:"output"` // "stdout", "file"
}

// ThemesConfig locates theme definition files (./themes/*.toml).
type ThemesConfig struct {
	Dir string `toml:"dir"`
}

// GdeltConfig tunes the candidate-source client and query builder.
type GdeltConfig struct {
	BaseURL        string        `toml:"base_url"`
	UserAgent      string        `toml:"user_agent"`
	MaxQueryLength int           `toml:"max_query_length" validate:"min=20"` // ceiling for the OR-term portion of a query
	MaxRecords     int           `toml:"max_records" validate:"min=1"`       // default per-batch record ceiling
	RequestTimeout time.Duration `toml:"request_timeout"`
	BatchInterval  time.Duration `toml:"batch_interval"` // minimum interval between upstream requests
	RetryAttempts  int           `toml:"retry_attempts" validate:"min=1"`
	RetryBackoff   time.Duration `toml:"retry_backoff"` // initial backoff, doubled per retry
}

// ExtractConfig tunes article fetching and extraction.
type ExtractConfig struct {
	UserAgent    string        `toml:"user_agent"`
	FetchTimeout time.Duration `toml:"fetch_timeout"` // per-page HTTP timeout
	UnitTimeout  time.Duration `toml:"unit_timeout"`  // outer guard around one unit's whole extraction
	MaxBodySize  int64         `toml:"max_body_size"` // response body cap in bytes
}

// DefaultConfig returns the built-in defaults, applied before any file or
// environment override.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "localhost",
			Port: 8180,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{Path: "./data/colligo"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Themes: ThemesConfig{Dir: "./themes"},
		Gdelt: GdeltConfig{
			BaseURL:        "https://api.gdeltproject.org/api/v2/doc/doc",
			UserAgent:      "colligo/" + Version + " (+https://github.com/ternarybob/colligo)",
			MaxQueryLength: 200,
			MaxRecords:     75,
			RequestTimeout: 30 * time.Second,
			BatchInterval:  5 * time.Second,
			RetryAttempts:  3,
			RetryBackoff:   time.Second,
		},
		Extract: ExtractConfig{
			UserAgent:    "colligo/" + Version + " (+https://github.com/ternarybob/colligo)",
			FetchTimeout: 15 * time.Second,
			UnitTimeout:  30 * time.Second,
			MaxBodySize:  10 * 1024 * 1024,
		},
	}
}

// LoadConfig reads TOML configuration (when path is non-empty) over the
// defaults and applies environment overrides, then validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := toml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ApplyFlagOverrides applies CLI flag values; flags win over file and env.
func ApplyFlagOverrides(cfg *Config, port int, host string) {
	if port > 0 {
		cfg.Server.Port = port
	}
	if host != "" {
		cfg.Server.Host = host
	}
}

// Validate checks the configuration against struct tags.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("COLLIGO_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("COLLIGO_HOST"); v != "" {
		c.Server.Host = v
	}
	if v := os.Getenv("COLLIGO_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("COLLIGO_BADGER_PATH"); v != "" {
		c.Storage.Badger.Path = v
	}
	if v := os.Getenv("COLLIGO_THEMES_DIR"); v != "" {
		c.Themes.Dir = v
	}
	if v := os.Getenv("COLLIGO_GDELT_URL"); v != "" {
		c.Gdelt.BaseURL = v
	}
}
