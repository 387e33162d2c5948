// ABOUTME: Application configuration and credential management
// ABOUTME: Handles config storage at XDG paths, environment variable overrides, and device ID generation
package config

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"github.com/oklog/ulid/v2"
)

// Config stores remote store credentials and generator settings.
type Config struct {
	RemoteURL    string `json:"remote_url"`
	UserID       string `json:"user_id"`
	Token        string `json:"token,omitempty"`
	GeminiAPIKey string `json:"gemini_api_key,omitempty"`
	GeminiModel  string `json:"gemini_model,omitempty"`
	DeviceID     string `json:"device_id"`
	DataDir      string `json:"data_dir,omitempty"`
	AutoSync     bool   `json:"auto_sync"`
}

// Dir returns the XDG-compliant directory for radar data and config.
func Dir() string {
	return filepath.Join(xdg.DataHome, "radar")
}

// Path returns the XDG-compliant path of the config file.
func Path() string {
	return filepath.Join(Dir(), "config.json")
}

// Load reads configuration from the XDG data directory. A missing file
// yields a default config. Environment variables override file values:
// - RADAR_REMOTE_URL
// - RADAR_USER_ID
// - RADAR_TOKEN
// - RADAR_GEMINI_API_KEY
// - RADAR_GEMINI_MODEL
// - RADAR_DATA_DIR
// - RADAR_AUTO_SYNC.
func Load() (*Config, error) {
	cfg := &Config{
		RemoteURL: "http://localhost:8090",
		AutoSync:  true,
	}

	f, err := os.Open(Path())
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if err := json.NewDecoder(f).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("RADAR_REMOTE_URL"); v != "" {
		cfg.RemoteURL = v
	}
	if v := os.Getenv("RADAR_USER_ID"); v != "" {
		cfg.UserID = v
	}
	if v := os.Getenv("RADAR_TOKEN"); v != "" {
		cfg.Token = v
	}
	if v := os.Getenv("RADAR_GEMINI_API_KEY"); v != "" {
		cfg.GeminiAPIKey = v
	}
	if v := os.Getenv("RADAR_GEMINI_MODEL"); v != "" {
		cfg.GeminiModel = v
	}
	if v := os.Getenv("RADAR_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("RADAR_AUTO_SYNC"); v != "" {
		cfg.AutoSync = v == "true" || v == "1"
	}
}

// Save writes the config file with restricted permissions.
func Save(cfg *Config) error {
	dir := filepath.Dir(Path())
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.OpenFile(Path(), os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() { _ = f.Close() }()

	encoder := json.NewEncoder(f)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// IsConfigured checks that the session credentials needed for sync exist.
func (c *Config) IsConfigured() bool {
	return c.RemoteURL != "" && c.UserID != "" && c.DeviceID != ""
}

// StoreDir returns the durable store directory, honoring DataDir.
func (c *Config) StoreDir() string {
	if c.DataDir != "" {
		return c.DataDir
	}
	return filepath.Join(Dir(), "store")
}

// GenerateDeviceID generates a new ULID for device identification.
func GenerateDeviceID() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
