package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cmpdchtr/Sluhay/internal/shared"
)

// Configuration structure
type Config struct {
	SpotifyClientID     string `json:"SpotifyClientID"`
	SpotifyClientSecret string `json:"SpotifyClientSecret"`
	DownloadDir         string `json:"DownloadDir"`
	StorePath           string `json:"StorePath"`           // per-user settings store file
	MaxRetryAttempts    int    `json:"MaxRetryAttempts"`    // acquisition retry attempts per source
	MaxConcurrentFetch  int    `json:"MaxConcurrentFetch"`  // global bound on in-flight acquisitions
	FetchRatePerMinute  int    `json:"FetchRatePerMinute"`  // acquisition start rate across all sessions
}

// GetDefaultConfig returns a configuration with sensible defaults applied.
func GetDefaultConfig() *Config {
	return &Config{
		DownloadDir:        "downloads",
		StorePath:          "user_settings.json",
		MaxRetryAttempts:   2,
		MaxConcurrentFetch: 4,
		FetchRatePerMinute: 20,
	}
}

// ApplyDefaults fills any zero-valued fields with their defaults.
func (cfg *Config) ApplyDefaults() {
	defaults := GetDefaultConfig()
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = defaults.DownloadDir
	}
	if cfg.StorePath == "" {
		cfg.StorePath = defaults.StorePath
	}
	if cfg.MaxRetryAttempts <= 0 {
		cfg.MaxRetryAttempts = defaults.MaxRetryAttempts
	}
	if cfg.MaxConcurrentFetch <= 0 {
		cfg.MaxConcurrentFetch = defaults.MaxConcurrentFetch
	}
	if cfg.FetchRatePerMinute <= 0 {
		cfg.FetchRatePerMinute = defaults.FetchRatePerMinute
	}
}

// ApplyEnvOverrides lets credentials come from the environment so they never
// have to live in the config file.
func (cfg *Config) ApplyEnvOverrides() {
	if v := os.Getenv("SPOTIFY_CLIENT_ID"); v != "" {
		cfg.SpotifyClientID = v
	}
	if v := os.Getenv("SPOTIFY_CLIENT_SECRET"); v != "" {
		cfg.SpotifyClientSecret = v
	}
}

// Validate checks that the configuration is usable.
func (cfg *Config) Validate() error {
	if cfg.SpotifyClientID == "" || cfg.SpotifyClientSecret == "" {
		return fmt.Errorf("spotify credentials are required (config file or SPOTIFY_CLIENT_ID / SPOTIFY_CLIENT_SECRET)")
	}
	if cfg.DownloadDir == "" {
		return fmt.Errorf("download directory is required")
	}
	return nil
}

// CreateDirIfNotExists creates a directory if it does not exist
func CreateDirIfNotExists(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return os.MkdirAll(dir, 0755)
	}
	return nil
}

// LoadConfig loads configuration from a JSON file
func LoadConfig(filePath string, config *Config) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}
	config.ApplyDefaults()
	return nil
}

// SaveConfig saves configuration to a JSON file
func SaveConfig(filePath string, config *Config) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	dir := filepath.Dir(filePath)
	if err := CreateDirIfNotExists(dir); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// EnsureConfigExists writes a default config file when none is present, so a
// first run leaves something editable behind.
func EnsureConfigExists(filePath string) error {
	if !shared.FileExists(filePath) {
		return SaveConfig(filePath, GetDefaultConfig())
	}
	return nil
}
