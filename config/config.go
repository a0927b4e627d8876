// Package config loads and validates bridge settings from YAML files and
// environment variables. Precedence is defaults, then file, then
// environment, so an operator can override any file setting without
// editing it.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variable names. All bridge settings live under one prefix.
const (
	EnvModelPath      = "LLMBRIDGE_MODEL_PATH"
	EnvContextSize    = "LLMBRIDGE_CONTEXT_SIZE"
	EnvThreads        = "LLMBRIDGE_THREADS"
	EnvWorkers        = "LLMBRIDGE_WORKERS"
	EnvRetentionCap   = "LLMBRIDGE_RETENTION_CAP"
	EnvEngineURL      = "LLMBRIDGE_ENGINE_URL"
	EnvEngineAPIKey   = "LLMBRIDGE_ENGINE_API_KEY"
	EnvEngineModel    = "LLMBRIDGE_ENGINE_MODEL"
	EnvJournalPath    = "LLMBRIDGE_JOURNAL_PATH"
	EnvLogLevel       = "LLMBRIDGE_LOG_LEVEL"
	EnvLogFile        = "LLMBRIDGE_LOG_FILE"
	EnvDevMode        = "LLMBRIDGE_DEV_MODE"
	EnvCloseTimeoutMS = "LLMBRIDGE_CLOSE_TIMEOUT_MS"
)

// Config holds every tunable of the bridge and its tooling.
type Config struct {
	// Model is the local model file to load at startup.
	Model ModelConfig `yaml:"model"`

	// Runtime tunes the bridge runtime itself.
	Runtime RuntimeConfig `yaml:"runtime"`

	// Engine points at an OpenAI-compatible inference server. Empty URL
	// selects the built-in placeholder engine.
	Engine EngineConfig `yaml:"engine"`

	// Journal configures completion journaling. Empty path disables it.
	Journal JournalConfig `yaml:"journal"`

	// Log configures structured logging.
	Log LogConfig `yaml:"log"`
}

type ModelConfig struct {
	Path        string `yaml:"path"`
	ContextSize int    `yaml:"context_size"`
	Threads     int    `yaml:"threads"`
}

type RuntimeConfig struct {
	Workers      int           `yaml:"workers"`
	RetentionCap int           `yaml:"retention_cap"`
	CloseTimeout time.Duration `yaml:"close_timeout"`
}

type EngineConfig struct {
	URL          string `yaml:"url"`
	APIKey       string `yaml:"api_key"`
	Model        string `yaml:"model"`
	SystemPrompt string `yaml:"system_prompt"`
}

type JournalConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	File        string `yaml:"file"`
	Development bool   `yaml:"development"`
}

// Default returns the baseline configuration before file and environment
// overrides.
func Default() Config {
	return Config{
		Model: ModelConfig{
			ContextSize: 2048,
			Threads:     4,
		},
		Runtime: RuntimeConfig{
			CloseTimeout: 30 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load builds the effective configuration: defaults, then the YAML file at
// path (skipped when path is empty), then environment variables. A .env
// file in the working directory is folded into the environment first, so
// local development does not need exported variables.
func Load(path string) (Config, error) {
	// Missing .env is fine; a present-but-broken one is not.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, ErrEnvFileBroken(err)
	}

	cfg := Default()
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.mergeEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// mergeFile overlays the YAML file at path onto cfg.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrConfigFileMissing(path)
		}
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return ErrConfigFileInvalid(path, err)
	}
	return nil
}

// mergeEnv overlays environment variables onto cfg.
func (c *Config) mergeEnv() {
	c.Model.Path = getEnv(EnvModelPath, c.Model.Path)
	c.Model.ContextSize = parseIntEnv(EnvContextSize, c.Model.ContextSize)
	c.Model.Threads = parseIntEnv(EnvThreads, c.Model.Threads)

	c.Runtime.Workers = parseIntEnv(EnvWorkers, c.Runtime.Workers)
	c.Runtime.RetentionCap = parseIntEnv(EnvRetentionCap, c.Runtime.RetentionCap)
	if ms := parseIntEnv(EnvCloseTimeoutMS, 0); ms > 0 {
		c.Runtime.CloseTimeout = time.Duration(ms) * time.Millisecond
	}

	c.Engine.URL = getEnv(EnvEngineURL, c.Engine.URL)
	c.Engine.APIKey = getEnv(EnvEngineAPIKey, c.Engine.APIKey)
	c.Engine.Model = getEnv(EnvEngineModel, c.Engine.Model)

	c.Journal.Path = getEnv(EnvJournalPath, c.Journal.Path)

	c.Log.Level = getEnv(EnvLogLevel, c.Log.Level)
	c.Log.File = getEnv(EnvLogFile, c.Log.File)
	c.Log.Development = parseBoolEnv(EnvDevMode, c.Log.Development)
}

// Validate checks cross-field constraints. Zero values that the runtime
// clamps or defaults itself (workers, retention) pass; contradictory
// settings do not.
func (c *Config) Validate() error {
	if c.Model.ContextSize < 0 {
		return ErrInvalidSetting("model.context_size", fmt.Sprintf("%d", c.Model.ContextSize), "must be zero or positive")
	}
	if c.Model.Threads < 0 {
		return ErrInvalidSetting("model.threads", fmt.Sprintf("%d", c.Model.Threads), "must be zero or positive")
	}
	if c.Runtime.Workers < 0 {
		return ErrInvalidSetting("runtime.workers", fmt.Sprintf("%d", c.Runtime.Workers), "must be zero or positive")
	}
	if c.Runtime.RetentionCap < 0 {
		return ErrInvalidSetting("runtime.retention_cap", fmt.Sprintf("%d", c.Runtime.RetentionCap), "must be zero or positive")
	}
	if c.Runtime.CloseTimeout < 0 {
		return ErrInvalidSetting("runtime.close_timeout", c.Runtime.CloseTimeout.String(), "must be zero or positive")
	}
	if c.Engine.URL != "" && c.Engine.Model == "" {
		return ErrEngineIncomplete()
	}
	return nil
}

// UsesRemoteEngine reports whether an OpenAI-compatible engine endpoint is
// configured.
func (c *Config) UsesRemoteEngine() bool {
	return c.Engine.URL != ""
}
