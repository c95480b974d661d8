// Package config provides configuration loading and validation for the CLI
// and the API server.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Defaults used by MergeWithDefaults.
const (
	DefaultDataDir       = "data"
	DefaultWorkers       = 1
	DefaultFetchTimeout  = 30 * time.Second
	DefaultCacheTTL      = 7 * 24 * time.Hour
	DefaultMinImportance = 1
	DefaultProcessMode   = "all"
	DefaultBatchSize     = 3
	DefaultAgentType     = "voice"
	DefaultPort          = 8080
)

// Environment variables read by ApplyEnv.
const (
	EnvAPIKey      = "GEMINI_API_KEY"
	EnvDatabaseURL = "DATABASE_URL"
	EnvDataDir     = "VOICE_AGENT_DATA_DIR"
)

// Config represents the configuration that can be loaded from a YAML or JSON
// file. All fields are optional; missing values use defaults or CLI flags.
type Config struct {
	// Discovery
	SeedURL       string   `json:"seed_url,omitempty" yaml:"seed_url,omitempty" validate:"omitempty,url"`
	Workers       int      `json:"workers,omitempty" yaml:"workers,omitempty" validate:"min=0,max=64"`
	MaxPages      int      `json:"max_pages,omitempty" yaml:"max_pages,omitempty" validate:"min=0"`
	FetchTimeout  Duration `json:"fetch_timeout,omitempty" yaml:"fetch_timeout,omitempty"`
	UserAgent     string   `json:"user_agent,omitempty" yaml:"user_agent,omitempty"`
	MinImportance int      `json:"min_importance,omitempty" yaml:"min_importance,omitempty" validate:"omitempty,min=1,max=3"`
	MaxScrape     int      `json:"max_scrape,omitempty" yaml:"max_scrape,omitempty" validate:"min=0"`

	// Storage
	DataDir     string   `json:"data_dir,omitempty" yaml:"data_dir,omitempty"`
	CacheDir    string   `json:"cache_dir,omitempty" yaml:"cache_dir,omitempty"`
	CacheTTL    Duration `json:"cache_ttl,omitempty" yaml:"cache_ttl,omitempty"`
	DatabaseURL string   `json:"database_url,omitempty" yaml:"database_url,omitempty"`

	// Processing
	ProcessMode string `json:"process_mode,omitempty" yaml:"process_mode,omitempty" validate:"omitempty,oneof=all batch"`
	BatchSize   int    `json:"batch_size,omitempty" yaml:"batch_size,omitempty" validate:"min=0"`
	AgentType   string `json:"agent_type,omitempty" yaml:"agent_type,omitempty" validate:"omitempty,oneof=voice text"`
	APIKey      string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Behavior
	Verbose bool `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	Port    int  `json:"port,omitempty" yaml:"port,omitempty" validate:"min=0,max=65535"`
}

// Duration is a time.Duration written as a Go duration string ("30s", "2h")
// in config files. Plain numbers are read as seconds.
type Duration time.Duration

// Std returns d as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

func parseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		return Duration(d), nil
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return Duration(secs * float64(time.Second)), nil
	}
	return 0, fmt.Errorf("invalid duration %q", s)
}

// UnmarshalJSON accepts a duration string or a number of seconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case string:
		parsed, err := parseDuration(v)
		if err != nil {
			return err
		}
		*d = parsed
	case float64:
		*d = Duration(v * float64(time.Second))
	case nil:
		*d = 0
	default:
		return fmt.Errorf("invalid duration %s", string(data))
	}
	return nil
}

// MarshalJSON writes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalYAML accepts a duration string or a number of seconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := parseDuration(node.Value)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalYAML writes the duration as a string.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// LoadConfig loads configuration from a file. Files ending in .yaml or .yml
// are read as YAML, everything else as JSON.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config JSON: %w", err)
		}
	}

	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// Validate checks that the configuration has valid values. Required fields
// are checked by the commands that need them, after merging with flags.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		ve := validationErrors[0]
		return fmt.Errorf("config error: '%s' failed '%s' check", ve.Field(), ve.Tag())
	}
	return fmt.Errorf("config error: %w", err)
}

// ApplyEnv fills empty fields from the environment.
func (c *Config) ApplyEnv() {
	if c.APIKey == "" {
		c.APIKey = os.Getenv(EnvAPIKey)
	}
	if c.DatabaseURL == "" {
		c.DatabaseURL = os.Getenv(EnvDatabaseURL)
	}
	if c.DataDir == "" {
		c.DataDir = os.Getenv(EnvDataDir)
	}
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Workers:       DefaultWorkers,
		FetchTimeout:  Duration(DefaultFetchTimeout),
		MinImportance: DefaultMinImportance,
		DataDir:       DefaultDataDir,
		CacheTTL:      Duration(DefaultCacheTTL),
		ProcessMode:   DefaultProcessMode,
		BatchSize:     DefaultBatchSize,
		AgentType:     DefaultAgentType,
		Port:          DefaultPort,
	}
}

// MergeWithDefaults returns a new Config with zero fields filled from defaults.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.SeedURL == "" {
		result.SeedURL = defaults.SeedURL
	}
	if result.UserAgent == "" {
		result.UserAgent = defaults.UserAgent
	}
	if result.DataDir == "" {
		result.DataDir = defaults.DataDir
	}
	if result.CacheDir == "" {
		result.CacheDir = defaults.CacheDir
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.ProcessMode == "" {
		result.ProcessMode = defaults.ProcessMode
	}
	if result.AgentType == "" {
		result.AgentType = defaults.AgentType
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}

	if result.Workers == 0 {
		result.Workers = defaults.Workers
	}
	if result.MaxPages == 0 {
		result.MaxPages = defaults.MaxPages
	}
	if result.MaxScrape == 0 {
		result.MaxScrape = defaults.MaxScrape
	}
	if result.MinImportance == 0 {
		result.MinImportance = defaults.MinImportance
	}
	if result.BatchSize == 0 {
		result.BatchSize = defaults.BatchSize
	}
	if result.Port == 0 {
		result.Port = defaults.Port
	}
	if result.FetchTimeout == 0 {
		result.FetchTimeout = defaults.FetchTimeout
	}
	if result.CacheTTL == 0 {
		result.CacheTTL = defaults.CacheTTL
	}

	// Bool fields: true wins
	if defaults.Verbose {
		result.Verbose = true
	}

	return result
}
