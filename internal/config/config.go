package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when the config file leaves fields unset.
const (
	defaultListenAddr    = ":8317"
	defaultDatabaseDSN   = "file:data/convoflow.db"
	defaultSessionExpiry = 72 * time.Hour
)

// ErrMissingMasterSecret indicates no credential master secret was provided
// by file or environment. The server refuses to start without one.
var ErrMissingMasterSecret = errors.New("config: missing credential master secret")

// LogConfig controls process logging output.
type LogConfig struct {
	Level      string `yaml:"level"`       // logrus level name; default "info".
	File       string `yaml:"file"`        // Rotating log file path; empty logs to stderr only.
	MaxSizeMB  int    `yaml:"max-size-mb"` // Rotation threshold per file.
	MaxBackups int    `yaml:"max-backups"` // Rotated files to keep.
	MaxAgeDays int    `yaml:"max-age-days"`
}

// Config holds process configuration loaded from YAML with environment
// overrides.
type Config struct {
	ListenAddr  string `yaml:"listen-addr"`
	DatabaseDSN string `yaml:"database-dsn"`

	// CredentialMasterSecret keys the AEAD cipher for stored provider keys.
	// Supplied via file or CONVOFLOW_MASTER_SECRET; never logged.
	CredentialMasterSecret string `yaml:"credential-master-secret"`

	JWTSecret          string `yaml:"jwt-secret"`
	SessionExpiryHours int    `yaml:"session-expiry-hours"`

	Log LogConfig `yaml:"log"`
}

// SessionExpiry returns the configured session lifetime.
func (c Config) SessionExpiry() time.Duration {
	if c.SessionExpiryHours <= 0 {
		return defaultSessionExpiry
	}
	return time.Duration(c.SessionExpiryHours) * time.Hour
}

// Load reads the YAML file at path (optional: a missing file falls back to
// defaults), applies environment overrides, and validates the result.
func Load(path string) (Config, error) {
	cfg := Config{
		ListenAddr:  defaultListenAddr,
		DatabaseDSN: defaultDatabaseDSN,
		Log:         LogConfig{Level: "info", MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 30},
	}

	if strings.TrimSpace(path) != "" {
		data, errRead := os.ReadFile(path)
		switch {
		case errRead == nil:
			if errUnmarshal := yaml.Unmarshal(data, &cfg); errUnmarshal != nil {
				return Config{}, fmt.Errorf("config: parse %s: %w", path, errUnmarshal)
			}
		case os.IsNotExist(errRead):
			// Fall through to defaults and environment.
		default:
			return Config{}, fmt.Errorf("config: read %s: %w", path, errRead)
		}
	}

	applyEnvOverrides(&cfg)

	if strings.TrimSpace(cfg.CredentialMasterSecret) == "" {
		return Config{}, ErrMissingMasterSecret
	}
	if strings.TrimSpace(cfg.JWTSecret) == "" {
		return Config{}, errors.New("config: missing jwt secret")
	}
	return cfg, nil
}

// applyEnvOverrides lets deployment environments win over the file.
func applyEnvOverrides(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("CONVOFLOW_LISTEN_ADDR")); v != "" {
		cfg.ListenAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		cfg.DatabaseDSN = v
	}
	if v := strings.TrimSpace(os.Getenv("CONVOFLOW_MASTER_SECRET")); v != "" {
		cfg.CredentialMasterSecret = v
	}
	if v := strings.TrimSpace(os.Getenv("CONVOFLOW_JWT_SECRET")); v != "" {
		cfg.JWTSecret = v
	}
	if v := strings.TrimSpace(os.Getenv("CONVOFLOW_LOG_LEVEL")); v != "" {
		cfg.Log.Level = v
	}
}
