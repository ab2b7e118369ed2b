package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Name != "deskhand" {
		t.Errorf("expected Name=deskhand, got %s", cfg.Name)
	}
	if cfg.LLM.Model != "llama3.1:8b" {
		t.Errorf("expected Model=llama3.1:8b, got %s", cfg.LLM.Model)
	}
	if cfg.Store.HistoryDepth != 32 {
		t.Errorf("expected HistoryDepth=32, got %d", cfg.Store.HistoryDepth)
	}
	if cfg.LLM.Enabled {
		t.Error("LLM should be disabled by default")
	}
}

func TestConfig_SaveLoad(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "")
	t.Setenv("DESKHAND_DB_PATH", "")

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.yaml")

	cfg := DefaultConfig()
	cfg.LLM.Model = "mistral:7b"
	cfg.Store.RecentWindow = 7

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.LLM.Model != "mistral:7b" {
		t.Errorf("expected Model=mistral:7b, got %s", loaded.LLM.Model)
	}
	if loaded.Store.RecentWindow != 7 {
		t.Errorf("expected RecentWindow=7, got %d", loaded.Store.RecentWindow)
	}
}

func TestConfig_LoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "")
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load of missing file should not error, got %v", err)
	}
	if cfg.Name != "deskhand" {
		t.Errorf("expected defaults, got Name=%s", cfg.Name)
	}
}

func TestConfig_EnvOverrides(t *testing.T) {
	t.Setenv("OLLAMA_HOST", "http://10.0.0.5:11434")
	t.Setenv("DESKHAND_LLM_TIMEOUT", "3s")
	t.Setenv("DESKHAND_DEBUG", "true")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LLM.Host != "http://10.0.0.5:11434" {
		t.Errorf("OLLAMA_HOST override not applied, got %s", cfg.LLM.Host)
	}
	if !cfg.LLM.Enabled {
		t.Error("setting OLLAMA_HOST should enable the LLM backend")
	}
	if cfg.LLM.TimeoutDuration() != 3*time.Second {
		t.Errorf("expected 3s timeout, got %v", cfg.LLM.TimeoutDuration())
	}
	if !cfg.Logging.Debug {
		t.Error("DESKHAND_DEBUG override not applied")
	}
}

func TestLLMConfig_TimeoutDurationFallback(t *testing.T) {
	c := LLMConfig{Timeout: "garbage"}
	if c.TimeoutDuration() != 10*time.Second {
		t.Errorf("expected 10s fallback, got %v", c.TimeoutDuration())
	}
}
