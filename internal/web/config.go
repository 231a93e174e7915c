package web

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/epi-triangulate/internal/config"
	"github.com/epi-triangulate/internal/engine"
	"github.com/epi-triangulate/internal/utilization"
)

// Config represents the web server configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	Auth     AuthConfig     `json:"auth"`
	Features FeatureConfig  `json:"features"`
	Matching MatchingConfig `json:"matching"`
	LogLevel string         `json:"log_level"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port int    `json:"port"`
	Host string `json:"host"`
}

// DatabaseConfig contains database connection settings. An empty URL runs the server
// without a database.
type DatabaseConfig struct {
	URL            string `json:"url"`
	MaxConnections int    `json:"max_connections"`
}

// AuthConfig contains authentication settings
type AuthConfig struct {
	Enabled bool   `json:"enabled"`
	APIKey  string `json:"api_key"`
}

// FeatureConfig contains feature toggles
type FeatureConfig struct {
	ExportEnabled  bool `json:"export_enabled"`
	PersistEnabled bool `json:"persist_enabled"`
}

// MatchingConfig holds the matching defaults used when a request does not override them.
type MatchingConfig struct {
	Thresholds  engine.Thresholds  `json:"thresholds"`
	Workers     int                `json:"workers"`
	SortTargets bool               `json:"sort_targets"`
	Utilization utilization.Lookup `json:"utilization"`
}

// LoadConfig loads configuration from a JSON file over DefaultConfig
func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filename, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return cfg, nil
}

// Validate checks the settings a server cannot start without.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("port %d is out of range", c.Server.Port)
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth is enabled but no api_key is set")
	}
	if c.Matching.Workers < 0 {
		return fmt.Errorf("workers must not be negative")
	}
	if err := c.Matching.Thresholds.Validate(); err != nil {
		return err
	}
	return c.Matching.Utilization.Validate()
}

// DefaultConfig returns a default configuration, taking secrets and thresholds from the environment
func DefaultConfig() *Config {
	apiKey := config.GetEnv("RECONCILE_API_KEY", "")
	return &Config{
		Server: ServerConfig{
			Port: config.GetEnvInt("PORT", 8080),
			Host: "0.0.0.0",
		},
		Database: DatabaseConfig{
			URL:            config.GetEnv("DATABASE_URL", ""),
			MaxConnections: 10,
		},
		Auth: AuthConfig{
			Enabled: apiKey != "",
			APIKey:  apiKey,
		},
		Features: FeatureConfig{
			ExportEnabled:  true,
			PersistEnabled: true,
		},
		Matching: MatchingConfig{
			Thresholds:  config.ThresholdsFromEnv(),
			Workers:     config.GetEnvInt(config.EnvWorkers, 0),
			Utilization: utilization.DefaultLookup(),
		},
		LogLevel: "info",
	}
}
