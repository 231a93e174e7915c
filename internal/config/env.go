package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/epi-triangulate/internal/engine"
)

// Environment variables read by the tools.
const (
	EnvRegionThreshold = "RECONCILE_REGION_THRESHOLD"
	EnvZoneThreshold   = "RECONCILE_ZONE_THRESHOLD"
	EnvWoredaThreshold = "RECONCILE_WOREDA_THRESHOLD"
	EnvWorkers         = "RECONCILE_WORKERS"
)

// LoadEnv loads environment variables from a .env file in the working directory or one of
// its two parents. The first file found wins; variables already set are left alone.
func LoadEnv() error {
	envPaths := []string{".env", filepath.Join("..", ".env"), filepath.Join("..", "..", ".env")}

	for _, envPath := range envPaths {
		data, err := os.ReadFile(envPath)
		if err != nil {
			continue
		}
		for _, line := range strings.Split(string(data), "\n") {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			line = strings.TrimPrefix(line, "export ")

			parts := strings.SplitN(line, "=", 2)
			if len(parts) != 2 {
				continue
			}
			key := strings.TrimSpace(parts[0])
			value := unquote(strings.TrimSpace(parts[1]))

			// Only set if not already set
			if os.Getenv(key) == "" {
				if err := os.Setenv(key, value); err != nil {
					return err
				}
			}
		}
		break
	}
	return nil
}

func unquote(v string) string {
	if len(v) >= 2 && (v[0] == '"' || v[0] == '\'') && v[len(v)-1] == v[0] {
		return v[1 : len(v)-1]
	}
	return v
}

// GetEnv gets environment variable with default
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvInt gets integer environment variable with default
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvFloat gets float environment variable with default
func GetEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// GetEnvBool gets boolean environment variable with default
func GetEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return defaultValue
}

// ThresholdsFromEnv returns the default thresholds with any RECONCILE_*_THRESHOLD overrides.
func ThresholdsFromEnv() engine.Thresholds {
	th := engine.DefaultThresholds()
	th.Region = GetEnvFloat(EnvRegionThreshold, th.Region)
	th.Zone = GetEnvFloat(EnvZoneThreshold, th.Zone)
	th.Woreda = GetEnvFloat(EnvWoredaThreshold, th.Woreda)
	return th
}
