// Package config loads the tabsync daemon configuration from a YAML
// file, with environment overrides for credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// TokenEnvVar overrides the configured API token when set.
const TokenEnvVar = "TABSYNC_TOKEN"

// Duration wraps time.Duration so YAML values like "30s" parse.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// Config holds everything the daemon needs to run.
type Config struct {
	// StoreDir is the shared store directory (file backend) or the
	// parent directory of the database (sqlite backend).
	StoreDir string `yaml:"store_dir"`

	// StoreBackend selects "file" (default, watchable) or "sqlite"
	// (transactional, poll-only).
	StoreBackend string `yaml:"store_backend"`

	// APIBaseURL is the remote profile/history service. Empty disables
	// the remote entirely.
	APIBaseURL string `yaml:"api_base_url"`

	// APIToken is the bearer token. TABSYNC_TOKEN overrides it.
	APIToken string `yaml:"api_token"`

	SyncInterval      Duration `yaml:"sync_interval"`
	FocusCooldown     Duration `yaml:"focus_cooldown"`
	HeartbeatInterval Duration `yaml:"heartbeat_interval"`

	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file"`
}

// Default returns the configuration used when no file exists.
func Default() Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return Config{
		StoreDir:          filepath.Join(home, ".local", "share", "tabsync", "store"),
		StoreBackend:      "file",
		SyncInterval:      Duration(30 * time.Second),
		FocusCooldown:     Duration(10 * time.Second),
		HeartbeatInterval: Duration(30 * time.Second),
		LogLevel:          "info",
	}
}

// Load reads the config file at path, layering it over Default. A
// missing file is not an error; a malformed file is.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnv(&cfg)
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config %q: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %q: %w", path, err)
	}

	if cfg.StoreBackend != "file" && cfg.StoreBackend != "sqlite" {
		return cfg, fmt.Errorf("invalid store_backend %q: must be file or sqlite", cfg.StoreBackend)
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if token := os.Getenv(TokenEnvVar); token != "" {
		cfg.APIToken = token
	}
}
