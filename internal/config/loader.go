package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvRestURL = "KITCHEN_API_URL"
	EnvAPIKey  = "KITCHEN_API_KEY"
	EnvWSURL   = "KITCHEN_WS_URL"
	EnvWSBase  = "KITCHEN_WS_BASE_URL"
)

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*AgentConfig, error) {
	if err := loadDotEnv(filepath.Dir(path)); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand ${VAR} environment variables
	expanded := os.ExpandEnv(string(data))

	var cfg AgentConfig
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	cfg.overrideWithEnv()

	return &cfg, nil
}

// LoadWithDefaults loads config and applies default values.
func LoadWithDefaults(path string) (*AgentConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// LoadAndValidate loads config, applies defaults, and validates.
func LoadAndValidate(path string) (*AgentConfig, error) {
	cfg, err := LoadWithDefaults(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}

// loadDotEnv loads .env from dir, falling back to the working directory.
// Variables already set in the process environment win.
func loadDotEnv(dir string) error {
	for _, candidate := range []string{filepath.Join(dir, ".env"), ".env"} {
		if _, err := os.Stat(candidate); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(candidate); err != nil {
			return fmt.Errorf("load %s: %w", candidate, err)
		}
		return nil
	}
	return nil
}

func (c *AgentConfig) overrideWithEnv() {
	if v := os.Getenv(EnvRestURL); v != "" {
		c.API.RestURL = v
	}
	if v := os.Getenv(EnvAPIKey); v != "" {
		c.API.APIKey = v
	}
	if v := os.Getenv(EnvWSURL); v != "" {
		c.Realtime.URL = v
	}
	if v := os.Getenv(EnvWSBase); v != "" {
		c.Realtime.BaseURL = v
	}
}
