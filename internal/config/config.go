package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
)

// ErrMissingAPIKey means no upstream credentials are configured. It is the
// one condition that stops a collection run before it starts.
var ErrMissingAPIKey = errors.New("config: NewsAPI key not configured")

// Config is the persistent application configuration
type Config struct {
	// Upstream article API
	News NewsConfig `json:"news"`

	// Admin HTTP surface
	Admin AdminConfig `json:"admin"`

	// Collection schedule
	Collection CollectionConfig `json:"collection"`

	// Database path; empty means <dataDir>/sentinel.db
	DBPath string `json:"db_path,omitempty"`

	// Optional taxonomy rules file (YAML); empty uses built-in buckets
	TaxonomyFile string `json:"taxonomy_file,omitempty"`
}

// NewsConfig holds upstream API settings
type NewsConfig struct {
	APIKey  string `json:"api_key,omitempty"`
	BaseURL string `json:"base_url,omitempty"` // Empty uses production
}

// AdminConfig holds the admin HTTP listener settings
type AdminConfig struct {
	Addr  string `json:"addr"`
	Token string `json:"token,omitempty"` // Bearer token guarding the surface
}

// CollectionConfig holds scheduler settings
type CollectionConfig struct {
	IntervalMinutes int `json:"interval_minutes"`
	LookbackHours   int `json:"lookback_hours"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Admin: AdminConfig{
			Addr: ":8085",
		},
		Collection: CollectionConfig{
			IntervalMinutes: 120,
			LookbackHours:   2,
		},
	}
}

// DataDir returns the default application data directory, ~/.sentinel.
func DataDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".sentinel")
}

// ConfigPath returns the path to the config file
func ConfigPath(dataDir string) string {
	return filepath.Join(dataDir, "config.json")
}

// Load reads config from dataDir, or returns defaults
func Load(dataDir string) (*Config, error) {
	data, err := os.ReadFile(ConfigPath(dataDir))
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults and try to auto-populate from environment
			cfg := DefaultConfig()
			cfg.AutoPopulateFromEnv()
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	cfg.AutoPopulateFromEnv()
	if cfg.Admin.Addr == "" {
		cfg.Admin.Addr = ":8085"
	}
	if cfg.Collection.IntervalMinutes <= 0 {
		cfg.Collection.IntervalMinutes = 120
	}
	if cfg.Collection.LookbackHours <= 0 {
		cfg.Collection.LookbackHours = 2
	}

	return &cfg, nil
}

// Save writes config to dataDir
func (c *Config) Save(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(ConfigPath(dataDir), data, 0600) // Restrictive permissions for API keys
}

// AutoPopulateFromEnv fills in settings from environment variables.
// Environment values only apply where the config file left a blank.
func (c *Config) AutoPopulateFromEnv() {
	if c.News.APIKey == "" {
		c.News.APIKey = os.Getenv("NEWSAPI_KEY")
	}
	if c.News.BaseURL == "" {
		c.News.BaseURL = os.Getenv("NEWSAPI_BASE_URL")
	}
	if c.Admin.Token == "" {
		c.Admin.Token = os.Getenv("SENTINEL_ADMIN_TOKEN")
	}
	if c.DBPath == "" {
		c.DBPath = os.Getenv("SENTINEL_DB")
	}
}

// DatabasePath resolves the SQLite path for the given data dir.
func (c *Config) DatabasePath(dataDir string) string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(dataDir, "sentinel.db")
}

// ValidateForCollection checks the settings a collection run cannot start
// without.
func (c *Config) ValidateForCollection() error {
	if c.News.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}
