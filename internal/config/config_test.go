package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetDefaultConfig(t *testing.T) {
	cfg := GetDefaultConfig()
	if cfg.DownloadDir == "" {
		t.Error("default config should have a download directory")
	}
	if cfg.StorePath == "" {
		t.Error("default config should have a store path")
	}
	if cfg.MaxRetryAttempts <= 0 || cfg.MaxConcurrentFetch <= 0 || cfg.FetchRatePerMinute <= 0 {
		t.Errorf("default limits must be positive: %+v", cfg)
	}
}

func TestApplyDefaultsFillsGaps(t *testing.T) {
	cfg := &Config{DownloadDir: "/custom", MaxConcurrentFetch: -1}
	cfg.ApplyDefaults()

	if cfg.DownloadDir != "/custom" {
		t.Errorf("DownloadDir = %q, explicit value must survive", cfg.DownloadDir)
	}
	if cfg.StorePath == "" {
		t.Error("StorePath not backfilled")
	}
	if cfg.MaxConcurrentFetch <= 0 {
		t.Errorf("MaxConcurrentFetch = %d, non-positive value must be replaced", cfg.MaxConcurrentFetch)
	}
}

func TestValidateRequiresCredentials(t *testing.T) {
	cfg := GetDefaultConfig()
	if err := cfg.Validate(); err == nil {
		t.Error("config without credentials should fail validation")
	}

	cfg.SpotifyClientID = "id"
	cfg.SpotifyClientSecret = "secret"
	if err := cfg.Validate(); err != nil {
		t.Errorf("config with credentials should be valid: %v", err)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("SPOTIFY_CLIENT_ID", "env-id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "env-secret")

	cfg := &Config{SpotifyClientID: "file-id"}
	cfg.ApplyEnvOverrides()

	if cfg.SpotifyClientID != "env-id" || cfg.SpotifyClientSecret != "env-secret" {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	original := &Config{
		SpotifyClientID:     "id",
		SpotifyClientSecret: "secret",
		DownloadDir:         "/music",
		MaxRetryAttempts:    5,
	}

	if err := SaveConfig(path, original); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded := &Config{}
	if err := LoadConfig(path, loaded); err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.SpotifyClientID != "id" || loaded.DownloadDir != "/music" || loaded.MaxRetryAttempts != 5 {
		t.Errorf("loaded config = %+v", loaded)
	}
	// Load backfills what the file omitted.
	if loaded.StorePath == "" || loaded.MaxConcurrentFetch <= 0 {
		t.Errorf("defaults not applied on load: %+v", loaded)
	}
}

func TestEnsureConfigExists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	if err := EnsureConfigExists(path); err != nil {
		t.Fatalf("EnsureConfigExists: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config file not created: %v", err)
	}

	// A second call leaves the existing file alone.
	if err := os.WriteFile(path, []byte(`{"DownloadDir":"/keep"}`), 0644); err != nil {
		t.Fatal(err)
	}
	if err := EnsureConfigExists(path); err != nil {
		t.Fatalf("EnsureConfigExists on existing file: %v", err)
	}
	cfg := &Config{}
	if err := LoadConfig(path, cfg); err != nil {
		t.Fatal(err)
	}
	if cfg.DownloadDir != "/keep" {
		t.Errorf("existing config overwritten: %+v", cfg)
	}
}
