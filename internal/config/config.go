// Package config manages client configuration under ~/.config/perch:
// config.json for settings, auth.json for the session.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Config is the global perch config stored at ~/.config/perch/config.json.
type Config struct {
	ServerURL    string `json:"server_url,omitempty"`
	PageSize     int    `json:"page_size,omitempty"`
	PollInterval string `json:"poll_interval,omitempty"` // duration string, default "2m"
	DataDir      string `json:"data_dir,omitempty"`
}

// AuthCredentials stores the session at ~/.config/perch/auth.json.
type AuthCredentials struct {
	Token     string `json:"token"`
	UserID    int64  `json:"user_id"`
	Login     string `json:"login"`
	Name      string `json:"name,omitempty"`
	ServerURL string `json:"server_url"`
}

const (
	defaultServerURL    = "http://localhost:8466"
	defaultPageSize     = 10
	defaultPollInterval = 2 * time.Minute
)

// ConfigDir returns ~/.config/perch, creating it if necessary.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".config", "perch")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create config dir: %w", err)
	}
	return dir, nil
}

// Load reads the global config from ~/.config/perch/config.json.
func Load() (*Config, error) {
	dir, err := ConfigDir()
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

// Save writes the global config using an atomic write (temp file + rename).
func Save(cfg *Config) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(dir, "config.json"), data, 0644)
}

// LoadAuth reads the session from ~/.config/perch/auth.json. A missing file
// means not logged in and returns nil, nil.
func LoadAuth() (*AuthCredentials, error) {
	dir, err := ConfigDir()
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(dir, "auth.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var creds AuthCredentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

// SaveAuth writes the session to ~/.config/perch/auth.json (0600 perms).
func SaveAuth(creds *AuthCredentials) error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(filepath.Join(dir, "auth.json"), data, 0600)
}

// ClearAuth removes auth.json.
func ClearAuth() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(dir, "auth.json"))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func writeAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, perm); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// ServerURL returns the feed server base URL.
// Priority: PERCH_SERVER_URL env > config.json > auth.json (server logged
// into) > default.
func ServerURL() string {
	if v := os.Getenv("PERCH_SERVER_URL"); v != "" {
		return v
	}
	if cfg, err := Load(); err == nil && cfg.ServerURL != "" {
		return cfg.ServerURL
	}
	if creds, err := LoadAuth(); err == nil && creds != nil && creds.ServerURL != "" {
		return creds.ServerURL
	}
	return defaultServerURL
}

// Token returns the session token.
// Priority: PERCH_TOKEN env > auth.json.
func Token() string {
	if v := os.Getenv("PERCH_TOKEN"); v != "" {
		return v
	}
	if creds, err := LoadAuth(); err == nil && creds != nil {
		return creds.Token
	}
	return ""
}

// IsAuthenticated reports whether a session token is available.
func IsAuthenticated() bool {
	return Token() != ""
}

// PageSize returns how many posts a timeline page asks for.
// Priority: PERCH_PAGE_SIZE env > config.json > default (10).
func PageSize() int {
	if v := os.Getenv("PERCH_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	if cfg, err := Load(); err == nil && cfg.PageSize > 0 {
		return cfg.PageSize
	}
	return defaultPageSize
}

// PollInterval returns the freshness poll interval.
// Priority: PERCH_POLL_INTERVAL env > config.json > default (2m).
func PollInterval() time.Duration {
	if v := os.Getenv("PERCH_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	if cfg, err := Load(); err == nil && cfg.PollInterval != "" {
		if d, err := time.ParseDuration(cfg.PollInterval); err == nil && d > 0 {
			return d
		}
	}
	return defaultPollInterval
}

// DataDir returns where the local feed cache lives.
// Priority: PERCH_DATA_DIR env > config.json > $XDG_DATA_HOME/perch >
// ~/.local/share/perch.
func DataDir() (string, error) {
	if v := os.Getenv("PERCH_DATA_DIR"); v != "" {
		return v, nil
	}
	if cfg, err := Load(); err == nil && cfg.DataDir != "" {
		return cfg.DataDir, nil
	}
	if v := os.Getenv("XDG_DATA_HOME"); v != "" {
		return filepath.Join(v, "perch"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".local", "share", "perch"), nil
}
