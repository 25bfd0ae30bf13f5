package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines client configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Store   StoreConfig   `yaml:"store"`
	Session SessionConfig `yaml:"session"`
	Log     LogConfig     `yaml:"log"`
}

type APIConfig struct {
	BaseURL string `yaml:"base_url"`
}

type StoreConfig struct {
	// Backend selects the credential store: "file" or "sqlite".
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

type SessionConfig struct {
	Lifetime      time.Duration `yaml:"lifetime"`
	CheckInterval time.Duration `yaml:"check_interval"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load(path string) (Config, error) {
	cfg := Config{
		API: APIConfig{
			BaseURL: "http://localhost:3000",
		},
		Store: StoreConfig{
			Backend: "file",
			Path:    defaultStorePath(),
		},
		Session: SessionConfig{
			Lifetime:      2 * time.Hour,
			CheckInterval: time.Minute,
		},
		Log: LogConfig{
			Level: "info",
		},
	}

	if path == "" {
		path = os.Getenv("TASKDECK_CONFIG_PATH")
	}
	if path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if baseURL := os.Getenv("TASKDECK_API_URL"); baseURL != "" {
		cfg.API.BaseURL = baseURL
	}
	if backend := os.Getenv("TASKDECK_STORE_BACKEND"); backend != "" {
		cfg.Store.Backend = backend
	}
	if storePath := os.Getenv("TASKDECK_STORE_PATH"); storePath != "" {
		cfg.Store.Path = storePath
	}
	if lifetime := os.Getenv("TASKDECK_SESSION_LIFETIME"); lifetime != "" {
		d, err := time.ParseDuration(lifetime)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TASKDECK_SESSION_LIFETIME: %w", err)
		}
		cfg.Session.Lifetime = d
	}
	if interval := os.Getenv("TASKDECK_SESSION_CHECK_INTERVAL"); interval != "" {
		d, err := time.ParseDuration(interval)
		if err != nil {
			return Config{}, fmt.Errorf("invalid TASKDECK_SESSION_CHECK_INTERVAL: %w", err)
		}
		cfg.Session.CheckInterval = d
	}
	if level := os.Getenv("TASKDECK_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func validate(cfg Config) error {
	switch cfg.Store.Backend {
	case "file", "sqlite":
	default:
		return fmt.Errorf("invalid store backend %q", cfg.Store.Backend)
	}
	if cfg.Session.Lifetime <= 0 {
		return fmt.Errorf("session lifetime must be positive")
	}
	if cfg.Session.CheckInterval <= 0 {
		return fmt.Errorf("session check interval must be positive")
	}
	return nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func defaultStorePath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "taskdeck-credentials.json"
	}
	return filepath.Join(dir, "taskdeck", "credentials.json")
}
