package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/lipidong/dong/internal/guard"
	"github.com/lipidong/dong/internal/logger"
)

// ConfigFileName is the file looked up inside the dong home directory.
const ConfigFileName = "config.yaml"

// HistoryConfig controls the run journal
type HistoryConfig struct {
	// Enabled records every run attempt
	Enabled bool `yaml:"enabled"`

	// DBPath is the SQLite file, relative paths resolve against the home dir
	DBPath string `yaml:"db_path"`
}

// GuardConfig controls how command failures are reported
type GuardConfig struct {
	// OnFailure is one of log, rethrow, handler
	OnFailure string `yaml:"on_failure"`

	// PostMortem names the inspection hook: "" (none) or "goroutines"
	PostMortem string `yaml:"post_mortem"`
}

// Config represents dong configuration options
type Config struct {
	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogFile, when set, also appends log lines to this file
	LogFile string `yaml:"log_file"`

	// Quiet restricts console logging to errors
	Quiet bool `yaml:"quiet"`

	// MaxRetries bounds retries of a failing command
	MaxRetries int `yaml:"max_retries"`

	// RetryDelay pauses between attempts (0 = retry immediately)
	RetryDelay time.Duration `yaml:"retry_delay"`

	// Timeout limits each attempt (0 = no limit)
	Timeout time.Duration `yaml:"timeout"`

	// MetricsFile, when set, receives a Prometheus textfile after each run
	MetricsFile string `yaml:"metrics_file"`

	History HistoryConfig `yaml:"history"`
	Guard   GuardConfig   `yaml:"guard"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		LogLevel:   "info",
		MaxRetries: 3,
		History: HistoryConfig{
			Enabled: false,
			DBPath:  "history.db",
		},
		Guard: GuardConfig{
			OnFailure: "rethrow",
		},
	}
}

// LoadConfig loads configuration from the specified file path.
// A missing file yields the defaults; a malformed one is an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Durations are strings in YAML ("500ms", "2m").
	type yamlConfig struct {
		LogLevel    string   `yaml:"log_level"`
		LogFile     string   `yaml:"log_file"`
		Quiet       *bool    `yaml:"quiet"`
		MaxRetries  *int     `yaml:"max_retries"`
		RetryDelay  string   `yaml:"retry_delay"`
		Timeout     string   `yaml:"timeout"`
		MetricsFile string   `yaml:"metrics_file"`
		History     *struct {
			Enabled *bool  `yaml:"enabled"`
			DBPath  string `yaml:"db_path"`
		} `yaml:"history"`
		Guard *GuardConfig `yaml:"guard"`
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yc.LogLevel != "" {
		cfg.LogLevel = yc.LogLevel
	}
	if yc.LogFile != "" {
		cfg.LogFile = yc.LogFile
	}
	if yc.Quiet != nil {
		cfg.Quiet = *yc.Quiet
	}
	if yc.MaxRetries != nil {
		cfg.MaxRetries = *yc.MaxRetries
	}
	if yc.RetryDelay != "" {
		d, err := time.ParseDuration(yc.RetryDelay)
		if err != nil {
			return nil, fmt.Errorf("invalid retry_delay format %q: %w", yc.RetryDelay, err)
		}
		cfg.RetryDelay = d
	}
	if yc.Timeout != "" {
		d, err := time.ParseDuration(yc.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout format %q: %w", yc.Timeout, err)
		}
		cfg.Timeout = d
	}
	if yc.MetricsFile != "" {
		cfg.MetricsFile = yc.MetricsFile
	}
	if yc.History != nil {
		if yc.History.Enabled != nil {
			cfg.History.Enabled = *yc.History.Enabled
		}
		if yc.History.DBPath != "" {
			cfg.History.DBPath = yc.History.DBPath
		}
	}
	if yc.Guard != nil {
		if yc.Guard.OnFailure != "" {
			cfg.Guard.OnFailure = yc.Guard.OnFailure
		}
		cfg.Guard.PostMortem = yc.Guard.PostMortem
	}

	return cfg, nil
}

// LoadConfigFromDir loads config.yaml from the given home directory
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, ConfigFileName))
}

// MergeWithFlags merges CLI flags into the configuration.
// Non-nil flag values override configuration values.
func (c *Config) MergeWithFlags(maxRetries *int, retryDelay, timeout *time.Duration, logLevel *string, quiet, history *bool) {
	if maxRetries != nil {
		c.MaxRetries = *maxRetries
	}
	if retryDelay != nil {
		c.RetryDelay = *retryDelay
	}
	if timeout != nil {
		c.Timeout = *timeout
	}
	if logLevel != nil {
		c.LogLevel = *logLevel
	}
	if quiet != nil {
		c.Quiet = *quiet
	}
	if history != nil {
		c.History.Enabled = *history
	}
}

// ResolvePaths makes relative file settings absolute against home
func (c *Config) ResolvePaths(home string) {
	resolve := func(p string) string {
		if p == "" || p == ":memory:" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(home, p)
	}
	c.LogFile = resolve(c.LogFile)
	c.MetricsFile = resolve(c.MetricsFile)
	c.History.DBPath = resolve(c.History.DBPath)
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if !logger.ValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must be >= 0, got %d", c.MaxRetries)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry_delay must be >= 0, got %v", c.RetryDelay)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}
	if c.History.Enabled && c.History.DBPath == "" {
		return fmt.Errorf("history.db_path cannot be empty when history is enabled")
	}
	if _, err := guard.ParseMode(c.Guard.OnFailure); err != nil {
		return fmt.Errorf("guard.on_failure: %w", err)
	}
	switch c.Guard.PostMortem {
	case "", "goroutines":
	default:
		return fmt.Errorf("guard.post_mortem %q, must be empty or goroutines", c.Guard.PostMortem)
	}
	return nil
}
