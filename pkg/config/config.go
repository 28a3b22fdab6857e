// Package config loads the companion's YAML configuration and hot-reloads it
// when the file changes on disk.
package config

import (
	"fmt"
	"os"

	"github.com/kmorrow/ava/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Config holds the application settings, loaded from a YAML file.
type Config struct {
	// Addr is the address the HTTP server listens on.
	Addr string `yaml:"addr"`

	// DBPath is the SQLite database file holding the conversation log.
	DBPath string `yaml:"db-path"`

	// GeminiAPIKey authenticates backend calls. When empty, the
	// GEMINI_API_KEY environment variable is used instead.
	GeminiAPIKey string `yaml:"gemini-api-key"`

	// Tier selects the chat model capability level: lite, standard, or pro.
	Tier domain.Tier `yaml:"tier"`

	// ReferenceImages are candidate reference photo URLs for selfie
	// generation. At most one is attached per request.
	ReferenceImages []string `yaml:"reference-images"`

	// Debug enables debug-level logging.
	Debug bool `yaml:"debug"`
}

// Load reads the YAML config at path, applies environment fallbacks, and
// fills defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()
	return &config, nil
}

// Default returns the configuration used when no config file exists.
func Default() *Config {
	config := &Config{}
	config.applyDefaults()
	return config
}

func (c *Config) applyDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.DBPath == "" {
		c.DBPath = "ava.db"
	}
	if c.GeminiAPIKey == "" {
		c.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	}
	c.Tier = domain.NormalizeTier(c.Tier)
}
