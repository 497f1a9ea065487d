// Package config provides configuration management for the QTc servers.
// This file contains the lightweight configuration for the standalone MCP binary.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no external databases and uses sensible defaults.
type LiteConfig struct {
	// Data storage
	DataDir string // Base directory for the history database and exports

	// History settings
	HistorySize  int    // Recent evaluations kept in memory
	CriteriaFile string // Optional YAML file with extra criteria

	// Engine defaults
	DefaultFormula   string
	DefaultCriterion string
	DefaultUnits     string

	// Transport settings
	Transport string // Transport type: stdio

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".qtc-mcp")

	return &LiteConfig{
		DataDir:          dataDir,
		HistorySize:      256,
		DefaultFormula:   "qtcBzt",
		DefaultCriterion: "aha2009",
		DefaultUnits:     "msec",
		Transport:        "stdio",
		LogLevel:         "info",
		LogFormat:        "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("QTC_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	if v := os.Getenv("QTC_HISTORY_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HistorySize = n
		}
	}
	if v := os.Getenv("QTC_CRITERIA_FILE"); v != "" {
		cfg.CriteriaFile = v
	}

	if v := os.Getenv("QTC_DEFAULT_FORMULA"); v != "" {
		cfg.DefaultFormula = v
	}
	if v := os.Getenv("QTC_DEFAULT_CRITERION"); v != "" {
		cfg.DefaultCriterion = v
	}
	if v := os.Getenv("QTC_DEFAULT_UNITS"); v != "" {
		cfg.DefaultUnits = strings.ToLower(v)
	}

	if v := os.Getenv("QTC_TRANSPORT"); v != "" {
		cfg.Transport = v
	}

	if v := os.Getenv("QTC_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("QTC_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// HistoryDBPath returns the path to the evaluation history SQLite database.
func (c *LiteConfig) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// ExportDir returns the directory for JSON exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}
