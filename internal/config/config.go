// Package config reads the global trail configuration stored at
// ~/.config/trail/config.json. Every knob has a TRAIL_* env override that
// takes priority over the file.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// SyncConfig holds sync-related settings.
type SyncConfig struct {
	URL      string `json:"url"`
	Auto     *bool  `json:"auto,omitempty"`     // nil = default true
	Debounce string `json:"debounce,omitempty"` // duration string, default "500ms"
}

// AgentConfig holds background agent settings.
type AgentConfig struct {
	ProbeInterval string `json:"probe_interval,omitempty"` // duration string, default "15s"
	ReplyTimeout  string `json:"reply_timeout,omitempty"`  // duration string, default "3s"
}

// Config is the global trail config stored at ~/.config/trail/config.json.
type Config struct {
	Sync  SyncConfig  `json:"sync"`
	Agent AgentConfig `json:"agent"`
}

const defaultServerURL = "http://localhost:8080"

// Dir returns ~/.config/trail, creating it if necessary.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".config", "trail")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// Load reads the global config from ~/.config/trail/config.json.
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the global config to ~/.config/trail/config.json.
func Save(cfg *Config) error {
	dir, err := Dir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0644)
}

// ServerURL returns the drive server URL.
// Priority: TRAIL_SYNC_URL env > config.json > default.
func ServerURL() string {
	if v := os.Getenv("TRAIL_SYNC_URL"); v != "" {
		return v
	}
	cfg, err := Load()
	if err == nil && cfg.Sync.URL != "" {
		return cfg.Sync.URL
	}
	return defaultServerURL
}

// AutoSyncEnabled returns whether mutations trigger the debounced sync.
// Priority: TRAIL_SYNC_AUTO env > config.json sync.auto > true.
func AutoSyncEnabled() bool {
	if v := parseBoolEnv("TRAIL_SYNC_AUTO"); v != nil {
		return *v
	}
	cfg, err := Load()
	if err == nil && cfg.Sync.Auto != nil {
		return *cfg.Sync.Auto
	}
	return true
}

// SyncDebounce returns the debounce window for coalescing mutations into
// one remote write.
// Priority: TRAIL_SYNC_DEBOUNCE env > config.json sync.debounce > 500ms.
func SyncDebounce() time.Duration {
	if v := os.Getenv("TRAIL_SYNC_DEBOUNCE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	cfg, err := Load()
	if err == nil && cfg.Sync.Debounce != "" {
		if d, err := time.ParseDuration(cfg.Sync.Debounce); err == nil {
			return d
		}
	}
	return 500 * time.Millisecond
}

// AgentProbeInterval returns the base interval for the agent's
// connectivity probe.
// Priority: TRAIL_AGENT_PROBE env > config.json agent.probe_interval > 15s.
func AgentProbeInterval() time.Duration {
	if v := os.Getenv("TRAIL_AGENT_PROBE"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	cfg, err := Load()
	if err == nil && cfg.Agent.ProbeInterval != "" {
		if d, err := time.ParseDuration(cfg.Agent.ProbeInterval); err == nil {
			return d
		}
	}
	return 15 * time.Second
}

// AgentReplyTimeout returns how long message senders wait for the agent
// before treating it as "not ready".
// Priority: TRAIL_AGENT_TIMEOUT env > config.json agent.reply_timeout > 3s.
func AgentReplyTimeout() time.Duration {
	if v := os.Getenv("TRAIL_AGENT_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	cfg, err := Load()
	if err == nil && cfg.Agent.ReplyTimeout != "" {
		if d, err := time.ParseDuration(cfg.Agent.ReplyTimeout); err == nil {
			return d
		}
	}
	return 3 * time.Second
}

// parseBoolEnv returns nil if env not set, pointer to bool if set.
func parseBoolEnv(envKey string) *bool {
	v := os.Getenv(envKey)
	if v == "" {
		return nil
	}
	v = strings.ToLower(v)
	if v == "1" || v == "true" {
		b := true
		return &b
	}
	if v == "0" || v == "false" {
		b := false
		return &b
	}
	return nil
}
