// Package config holds all deskhand configuration. Config is loaded from a
// YAML file under the data directory, with optional .env loading and
// DESKHAND_* environment overrides applied on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all deskhand configuration.
type Config struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`

	// DataDir is where the SQLite database, delete stash, and logs live.
	DataDir string `yaml:"data_dir"`

	LLM      LLMConfig      `yaml:"llm"`
	Store    StoreConfig    `yaml:"store"`
	Safety   SafetyConfig   `yaml:"safety"`
	Workflow WorkflowConfig `yaml:"workflow"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LLMConfig configures the local inference backend used for fallback
// classification.
type LLMConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Model   string `yaml:"model"`
	Timeout string `yaml:"timeout"`
}

// TimeoutDuration parses the configured timeout, defaulting to 10s.
func (c LLMConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return 10 * time.Second
	}
	return d
}

// StoreConfig configures the context store.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
	// RecentWindow bounds the session's in-memory recent-intent ring.
	RecentWindow int `yaml:"recent_window"`
	// HistoryDepth bounds the navigation back-stack.
	HistoryDepth int `yaml:"history_depth"`
	// PersistEvery flushes the session snapshot after this many dispatches.
	PersistEvery int `yaml:"persist_every"`
}

// SafetyConfig configures the undo ledger.
type SafetyConfig struct {
	// StashDir receives copies of deleted files so deletes stay reversible.
	StashDir string `yaml:"stash_dir"`
	// RetentionDays expires ledger records and stashed copies.
	RetentionDays int `yaml:"retention_days"`
}

// WorkflowConfig configures plan compilation and execution.
type WorkflowConfig struct {
	// GuardTimeout bounds a single guard evaluation.
	GuardTimeout string `yaml:"guard_timeout"`
	// MaxSteps rejects runaway plans at compile time.
	MaxSteps int `yaml:"max_steps"`
}

// LoggingConfig configures the categorized logger.
type LoggingConfig struct {
	Debug bool   `yaml:"debug"`
	File  string `yaml:"file"`
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	dataDir := filepath.Join(home, ".deskhand")

	return &Config{
		Name:    "deskhand",
		Version: "1.0.0",
		DataDir: dataDir,
		LLM: LLMConfig{
			Enabled: false,
			Host:    "http://localhost:11434",
			Model:   "llama3.1:8b",
			Timeout: "10s",
		},
		Store: StoreConfig{
			DatabasePath: filepath.Join(dataDir, "deskhand.db"),
			RecentWindow: 50,
			HistoryDepth: 32,
			PersistEvery: 10,
		},
		Safety: SafetyConfig{
			StashDir:      filepath.Join(dataDir, "stash"),
			RetentionDays: 30,
		},
		Workflow: WorkflowConfig{
			GuardTimeout: "2s",
			MaxSteps:     64,
		},
		Logging: LoggingConfig{
			Debug: false,
			File:  filepath.Join(dataDir, "logs", "deskhand.log"),
		},
	}
}

// Load reads config from path, falling back to defaults when the file does
// not exist, then applies .env and environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	// .env beside the config file, if any. Missing files are fine.
	_ = godotenv.Load(filepath.Join(filepath.Dir(path), ".env"))

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the config as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("DESKHAND_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("DESKHAND_DB_PATH"); v != "" {
		c.Store.DatabasePath = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		c.LLM.Host = v
		c.LLM.Enabled = true
	}
	if v := os.Getenv("DESKHAND_LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("DESKHAND_LLM_TIMEOUT"); v != "" {
		c.LLM.Timeout = v
	}
	if v := os.Getenv("DESKHAND_DEBUG"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Logging.Debug = b
		}
	}
}
