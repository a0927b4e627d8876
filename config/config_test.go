package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// =============================================================================
// Test Fixtures
// =============================================================================

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bridge.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

// clearBridgeEnv unsets every bridge variable for the test's duration.
func clearBridgeEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		EnvModelPath, EnvContextSize, EnvThreads, EnvWorkers,
		EnvRetentionCap, EnvEngineURL, EnvEngineAPIKey, EnvEngineModel,
		EnvJournalPath, EnvLogLevel, EnvLogFile, EnvDevMode, EnvCloseTimeoutMS,
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

// =============================================================================
// Load Tests
// =============================================================================

func TestLoadDefaults(t *testing.T) {
	clearBridgeEnv(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Model.ContextSize != 2048 {
		t.Errorf("ContextSize = %d, want 2048", cfg.Model.ContextSize)
	}
	if cfg.Model.Threads != 4 {
		t.Errorf("Threads = %d, want 4", cfg.Model.Threads)
	}
	if cfg.Runtime.CloseTimeout != 30*time.Second {
		t.Errorf("CloseTimeout = %v, want 30s", cfg.Runtime.CloseTimeout)
	}
	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want info", cfg.Log.Level)
	}
	if cfg.UsesRemoteEngine() {
		t.Error("zero config claims a remote engine")
	}
}

func TestLoadFromFile(t *testing.T) {
	clearBridgeEnv(t)

	path := writeConfigFile(t, `
model:
  path: /models/smol.gguf
  context_size: 4096
  threads: 8
runtime:
  workers: 4
  retention_cap: 128
engine:
  url: http://127.0.0.1:8080/v1
  model: local-model
log:
  level: debug
  development: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Model.Path != "/models/smol.gguf" {
		t.Errorf("Model.Path = %q", cfg.Model.Path)
	}
	if cfg.Model.ContextSize != 4096 || cfg.Model.Threads != 8 {
		t.Errorf("model tuning = %d/%d, want 4096/8", cfg.Model.ContextSize, cfg.Model.Threads)
	}
	if cfg.Runtime.Workers != 4 || cfg.Runtime.RetentionCap != 128 {
		t.Errorf("runtime tuning = %d/%d, want 4/128", cfg.Runtime.Workers, cfg.Runtime.RetentionCap)
	}
	if !cfg.UsesRemoteEngine() || cfg.Engine.Model != "local-model" {
		t.Errorf("engine = %+v, want remote engine", cfg.Engine)
	}
	if !cfg.Log.Development || cfg.Log.Level != "debug" {
		t.Errorf("log = %+v, want debug development", cfg.Log)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	// DOING: set env vars that contradict the file.
	// EXPECT: environment wins.
	clearBridgeEnv(t)
	path := writeConfigFile(t, `
model:
  path: /models/from-file.gguf
  context_size: 1024
`)

	t.Setenv(EnvModelPath, "/models/from-env.gguf")
	t.Setenv(EnvContextSize, "8192")
	t.Setenv(EnvWorkers, "6")
	t.Setenv(EnvDevMode, "yes")
	t.Setenv(EnvCloseTimeoutMS, "1500")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Model.Path != "/models/from-env.gguf" {
		t.Errorf("Model.Path = %q, want the env value", cfg.Model.Path)
	}
	if cfg.Model.ContextSize != 8192 {
		t.Errorf("ContextSize = %d, want 8192", cfg.Model.ContextSize)
	}
	if cfg.Runtime.Workers != 6 {
		t.Errorf("Workers = %d, want 6", cfg.Runtime.Workers)
	}
	if !cfg.Log.Development {
		t.Error("DevMode env not applied")
	}
	if cfg.Runtime.CloseTimeout != 1500*time.Millisecond {
		t.Errorf("CloseTimeout = %v, want 1.5s", cfg.Runtime.CloseTimeout)
	}
}

func TestLoadMissingFile(t *testing.T) {
	clearBridgeEnv(t)

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Code != CodeConfigFileMissing {
		t.Errorf("Load = %v, want CONFIG_FILE_MISSING", err)
	}
}

func TestLoadBrokenYAML(t *testing.T) {
	clearBridgeEnv(t)
	path := writeConfigFile(t, "model: [not: closed")

	_, err := Load(path)
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Code != CodeConfigFileInvalid {
		t.Errorf("Load = %v, want CONFIG_FILE_INVALID", err)
	}
}

// =============================================================================
// Validation Tests
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		wantCode string
	}{
		{"defaults pass", func(c *Config) {}, ""},
		{"negative context size", func(c *Config) { c.Model.ContextSize = -1 }, CodeInvalidSetting},
		{"negative threads", func(c *Config) { c.Model.Threads = -2 }, CodeInvalidSetting},
		{"negative workers", func(c *Config) { c.Runtime.Workers = -1 }, CodeInvalidSetting},
		{"negative retention", func(c *Config) { c.Runtime.RetentionCap = -5 }, CodeInvalidSetting},
		{"negative close timeout", func(c *Config) { c.Runtime.CloseTimeout = -time.Second }, CodeInvalidSetting},
		{"engine url without model", func(c *Config) { c.Engine.URL = "http://x/v1" }, CodeEngineIncomplete},
		{"complete engine passes", func(c *Config) {
			c.Engine.URL = "http://x/v1"
			c.Engine.Model = "m"
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantCode == "" {
				if err != nil {
					t.Errorf("Validate failed: %v", err)
				}
				return
			}
			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) || cfgErr.Code != tt.wantCode {
				t.Errorf("Validate = %v, want code %s", err, tt.wantCode)
			}
		})
	}
}

func TestConfigErrorMessage(t *testing.T) {
	err := ErrInvalidSetting("runtime.workers", "-1", "must be zero or positive")
	msg := err.Error()
	if msg == "" || msg == err.Message {
		t.Errorf("Error() = %q, want message plus action", msg)
	}
}

// =============================================================================
// Env Atom Tests
// =============================================================================

func TestParseBoolEnv(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"true", true}, {"1", true}, {"YES", true}, {"on", true},
		{"false", false}, {"0", false}, {"no", false}, {"OFF", false},
		{"maybe", true}, // unparseable keeps fallback
	}
	for _, tt := range tests {
		t.Setenv("LLMBRIDGE_TEST_BOOL", tt.value)
		if got := parseBoolEnv("LLMBRIDGE_TEST_BOOL", true); got != tt.want {
			t.Errorf("parseBoolEnv(%q) = %t, want %t", tt.value, got, tt.want)
		}
	}
}

func TestParseIntEnv(t *testing.T) {
	t.Setenv("LLMBRIDGE_TEST_INT", "42")
	if got := parseIntEnv("LLMBRIDGE_TEST_INT", 7); got != 42 {
		t.Errorf("parseIntEnv = %d, want 42", got)
	}
	t.Setenv("LLMBRIDGE_TEST_INT", "not a number")
	if got := parseIntEnv("LLMBRIDGE_TEST_INT", 7); got != 7 {
		t.Errorf("parseIntEnv fallback = %d, want 7", got)
	}
	os.Unsetenv("LLMBRIDGE_TEST_INT")
	if got := parseIntEnv("LLMBRIDGE_TEST_INT", 7); got != 7 {
		t.Errorf("parseIntEnv unset = %d, want 7", got)
	}
}
