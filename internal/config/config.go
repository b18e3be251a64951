// Package config loads the tool configuration from a YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"detgeom/internal/extract"
)

// Config holds all detgeom configuration.
type Config struct {
	// Engine settings for the geometry extraction passes.
	Engine extract.Config `yaml:"engine"`

	// Store selects where extraction runs are recorded.
	Store StoreConfig `yaml:"store"`

	// Blob selects where bundle artifacts are published.
	Blob BlobConfig `yaml:"blob"`
}

// StoreConfig configures the run store backend.
type StoreConfig struct {
	Driver string `yaml:"driver"` // sqlite, postgres or none
	Path   string `yaml:"path"`   // sqlite database file
	DSN    string `yaml:"dsn"`    // postgres connection string
}

// BlobConfig configures the artifact publisher backend.
type BlobConfig struct {
	Driver    string `yaml:"driver"` // fs, s3, memory or none
	Root      string `yaml:"root"`   // fs directory root
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Endpoint  string `yaml:"endpoint"`
	PathStyle bool   `yaml:"path_style"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Engine: extract.DefaultConfig(),
		Store:  StoreConfig{Driver: "none"},
		Blob:   BlobConfig{Driver: "none"},
	}
}

// Load reads and parses the YAML file at path. An empty path returns
// defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the backends cannot honor.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case "", "none", "sqlite", "postgres":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	switch c.Blob.Driver {
	case "", "none", "fs", "s3", "memory":
	default:
		return fmt.Errorf("unknown blob driver %q", c.Blob.Driver)
	}
	if c.Blob.Driver == "s3" && c.Blob.Bucket == "" {
		return fmt.Errorf("blob driver s3 requires a bucket")
	}
	if c.Engine.Epsilon <= 0 {
		return fmt.Errorf("engine epsilon must be positive, got %v", c.Engine.Epsilon)
	}
	return nil
}
