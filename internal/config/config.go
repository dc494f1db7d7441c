package config

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v4"
)

// Config is the top-level host configuration.
type Config struct {
	LogLevel  string     `yaml:"log_level"`
	ImportDir string     `yaml:"import_dir"`
	DataDir   string     `yaml:"data_dir"`
	Sink      Sink       `yaml:"sink"`
	Keyring   Keyring    `yaml:"keyring"`
	Importers []Importer `yaml:"importers"`
}

// Sink selects where normalized records go.
type Sink struct {
	Driver string `yaml:"driver"` // "sqlite" or "stdout"
	DSN    string `yaml:"dsn"`
}

// Keyring configures the credential store used for *_keyring properties.
type Keyring struct {
	Enabled bool   `yaml:"enabled"`
	FileKey string `yaml:"file_key"`
}

// Importer describes one configured importer instance.
type Importer struct {
	Name            string            `yaml:"name"`
	Print           string            `yaml:"print"`
	Type            string            `yaml:"type"`
	IntervalSeconds int               `yaml:"interval_seconds"`
	Properties      map[string]string `yaml:"properties"`
}

// CheckInterval returns the polling interval as a time.Duration.
func (i *Importer) CheckInterval() time.Duration {
	if i.IntervalSeconds <= 0 {
		return 60 * time.Second
	}
	return time.Duration(i.IntervalSeconds) * time.Second
}

// DisplayName returns Print, falling back to Name.
func (i *Importer) DisplayName() string {
	if i.Print == "" {
		return i.Name
	}
	return i.Print
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates YAML configuration.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{
		LogLevel:  "info",
		ImportDir: ".",
		DataDir:   "data",
		Sink:      Sink{Driver: "sqlite"},
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Sink.Driver {
	case "stdout":
	case "sqlite":
		if c.Sink.DSN == "" {
			return fmt.Errorf("sink.dsn is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("sink.driver must be sqlite or stdout")
	}
	if len(c.Importers) == 0 {
		return fmt.Errorf("at least one importer is required")
	}

	seen := make(map[string]bool, len(c.Importers))
	for i, imp := range c.Importers {
		label := imp.Name
		if label == "" {
			return fmt.Errorf("importer #%d: name is required", i)
		}
		if seen[label] {
			return fmt.Errorf("importer %s: duplicate name", label)
		}
		seen[label] = true
		if imp.Type == "" {
			return fmt.Errorf("importer %s: type is required", label)
		}
	}
	return nil
}
