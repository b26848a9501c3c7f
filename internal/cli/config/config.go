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

// CLIConfig is the configuration for crudkv-cli.
type CLIConfig struct {
	Server      string        `yaml:"server"`
	Collection  string        `yaml:"collection"`
	ContentType string        `yaml:"content_type"`
	Output      string        `yaml:"output"` // table, json, yaml
	Timeout     time.Duration `yaml:"timeout"`
	CAFile      string        `yaml:"ca_file,omitempty"`
}

// Default returns the default CLI configuration.
func Default() *CLIConfig {
	return &CLIConfig{
		Server:      "http://127.0.0.1:5080",
		Collection:  "resources",
		ContentType: "application/octet-stream",
		Output:      "table",
		Timeout:     30 * time.Second,
	}
}

// DefaultConfigPath returns the default CLI config file path.
func DefaultConfigPath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".crudkv", "cli.yaml")
	}
	return filepath.Join(homeDir, ".crudkv", "cli.yaml")
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*CLIConfig, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read cli config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse cli config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes cfg to path with owner-only permissions.
func Save(cfg *CLIConfig, path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
