// Package config loads project-level settings from scope.yml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultElectricityActivity is the USEEIO "Electricity; at consumer" activity,
// the only Scope 2 candidate in that database.
const DefaultElectricityActivity int64 = 53

// Config holds project settings loaded from scope.yml.
type Config struct {
	Database         string        `yaml:"database,omitempty"`
	Method           string        `yaml:"method,omitempty"`
	Amount           float64       `yaml:"amount,omitempty"`
	Cutoff           float64       `yaml:"cutoff,omitempty"`
	MaxCalc          int           `yaml:"maxCalc,omitempty"`
	Scope2Activities []int64       `yaml:"scope2Activities,omitempty"`
	LogLevel         string        `yaml:"logLevel,omitempty"`
	LogFormat        string        `yaml:"logFormat,omitempty"`
	SPARQLEndpoint   string        `yaml:"sparqlEndpoint,omitempty"`
	SPARQLTimeout    time.Duration `yaml:"sparqlTimeout,omitempty"`
}

// Default returns the settings used when no config file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load attempts to read scope.yml or scope.yaml from the given directory.
// Returns the default config (not an error) if no config file exists; a file
// that exists but cannot be read is an error.
func Load(dir string) (*Config, error) {
	for _, name := range []string{"scope.yml", "scope.yaml"} {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return Parse(data)
	}
	return Default(), nil
}

// Parse decodes YAML config data, fills defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Method == "" {
		c.Method = "GCC"
	}
	if c.Amount == 0 {
		c.Amount = 1
	}
	if c.Cutoff == 0 {
		c.Cutoff = 0.10
	}
	if c.MaxCalc == 0 {
		c.MaxCalc = 10000
	}
	if c.Scope2Activities == nil {
		c.Scope2Activities = []int64{DefaultElectricityActivity}
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.SPARQLTimeout == 0 {
		c.SPARQLTimeout = 30 * time.Second
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	if c.Cutoff <= 0 || c.Cutoff > 1 {
		return fmt.Errorf("cutoff must be in (0, 1], got %g", c.Cutoff)
	}
	if c.Amount < 0 {
		return fmt.Errorf("amount must not be negative, got %g", c.Amount)
	}
	if c.MaxCalc < 1 {
		return errors.New("maxCalc must be at least 1")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("logFormat must be text or json, got %q", c.LogFormat)
	}
	return nil
}
