// Package config loads storyloom configuration from a .storyloom.yaml file
// discovered by walking up from the working directory.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

const ConfigFileName = ".storyloom.yaml"

// ServerEnvVar overrides the configured backend URL when set.
const ServerEnvVar = "STORYLOOM_SERVER"

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Project ProjectConfig `yaml:"project"`
	Suggest SuggestConfig `yaml:"suggest"`
	Feed    FeedConfig    `yaml:"feed"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	// URL is the base HTTP URL of the generation backend,
	// e.g. http://localhost:8000.
	URL string `yaml:"url"`
}

type ProjectConfig struct {
	ID int `yaml:"id"`
}

type SuggestConfig struct {
	// Count is the number of candidate continuations requested per batch.
	// The backend accepts 1..5.
	Count int `yaml:"count"`

	// Hint is an optional guidance string forwarded with every suggest call.
	Hint string `yaml:"hint"`

	// RegenDelayMS is the settling delay between a successful line commit
	// and the automatic regeneration of the next suggestion batch.
	RegenDelayMS int `yaml:"regen_delay_ms"`
}

type FeedConfig struct {
	// ReconnectInitialMS and ReconnectMaxMS bound the exponential backoff
	// used when the streaming channel drops.
	ReconnectInitialMS int `yaml:"reconnect_initial_ms"`
	ReconnectMaxMS     int `yaml:"reconnect_max_ms"`
}

type LogConfig struct {
	// Limit caps the activity log ring buffer.
	Limit int `yaml:"limit"`
}

func DefaultConfig() *Config {
	return &Config{
		Server:  ServerConfig{URL: "http://localhost:8000"},
		Suggest: SuggestConfig{Count: 3, RegenDelayMS: 400},
		Feed:    FeedConfig{ReconnectInitialMS: 500, ReconnectMaxMS: 30000},
		Log:     LogConfig{Limit: 100},
	}
}

func (c *SuggestConfig) RegenDelay() time.Duration {
	return time.Duration(c.RegenDelayMS) * time.Millisecond
}

func (c *FeedConfig) ReconnectInitial() time.Duration {
	return time.Duration(c.ReconnectInitialMS) * time.Millisecond
}

func (c *FeedConfig) ReconnectMax() time.Duration {
	return time.Duration(c.ReconnectMaxMS) * time.Millisecond
}

// FindProjectRoot walks up from the current directory until it finds a
// directory containing .storyloom.yaml.
func FindProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(dir, ConfigFileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("no %s found (run 'storyloom init' or create one)", ConfigFileName)
		}
		dir = parent
	}
}

// Load reads the config file under root, applies defaults for unset fields,
// and applies the STORYLOOM_SERVER environment override.
func Load(root string) (*Config, error) {
	path := filepath.Join(root, ConfigFileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ConfigFileName, err)
	}
	cfg.applyDefaults()

	if v := os.Getenv(ServerEnvVar); v != "" {
		cfg.Server.URL = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Server.URL == "" {
		c.Server.URL = def.Server.URL
	}
	if c.Suggest.Count == 0 {
		c.Suggest.Count = def.Suggest.Count
	}
	if c.Suggest.RegenDelayMS == 0 {
		c.Suggest.RegenDelayMS = def.Suggest.RegenDelayMS
	}
	if c.Feed.ReconnectInitialMS == 0 {
		c.Feed.ReconnectInitialMS = def.Feed.ReconnectInitialMS
	}
	if c.Feed.ReconnectMaxMS == 0 {
		c.Feed.ReconnectMaxMS = def.Feed.ReconnectMaxMS
	}
	if c.Log.Limit == 0 {
		c.Log.Limit = def.Log.Limit
	}
}

func (c *Config) Validate() error {
	if c.Project.ID <= 0 {
		return fmt.Errorf("project.id must be a positive integer, got %d", c.Project.ID)
	}
	if c.Suggest.Count < 1 || c.Suggest.Count > 5 {
		return fmt.Errorf("suggest.count must be in 1..5, got %d", c.Suggest.Count)
	}
	return nil
}
