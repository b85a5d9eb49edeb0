package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := &Config{
		DefaultProfile: "work",
		API:            API{BaseURL: "https://staging.gigwire.app", Token: "tok"},
	}
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultProfile != "work" {
		t.Errorf("DefaultProfile = %q, want %q", loaded.DefaultProfile, "work")
	}
	if loaded.API.BaseURL != "https://staging.gigwire.app" {
		t.Errorf("BaseURL = %q, want staging URL", loaded.API.BaseURL)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestLoadAppliesDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")
	if err := Save(path, &Config{DefaultProfile: "main"}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.API.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want default %q", cfg.API.BaseURL, DefaultBaseURL)
	}
	if cfg.Net.ProbeURL != DefaultBaseURL+"/health" {
		t.Errorf("ProbeURL = %q, want base URL + /health", cfg.Net.ProbeURL)
	}
	if cfg.Net.ProbeIntervalSecs != DefaultProbeIntervalSecs {
		t.Errorf("ProbeIntervalSecs = %d, want %d", cfg.Net.ProbeIntervalSecs, DefaultProbeIntervalSecs)
	}
	if cfg.Queue.DrainIntervalSecs != DefaultDrainIntervalSecs {
		t.Errorf("DrainIntervalSecs = %d, want %d", cfg.Queue.DrainIntervalSecs, DefaultDrainIntervalSecs)
	}
}

func TestProbeURLFollowsCustomBase(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")
	if err := Save(path, &Config{API: API{BaseURL: "https://on-prem.example.com"}}); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Net.ProbeURL != "https://on-prem.example.com/health" {
		t.Errorf("ProbeURL = %q, want custom base + /health", cfg.Net.ProbeURL)
	}
}

func TestLoadOrDefaultMissingFile(t *testing.T) {
	cfg := LoadOrDefault("/nonexistent/config.toml")
	if cfg.API.BaseURL != DefaultBaseURL {
		t.Errorf("BaseURL = %q, want default", cfg.API.BaseURL)
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, &Config{DefaultProfile: "main"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}
