package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Config is the root configuration for timegrid, stored in
// ~/.timegrid/config.json. The file supports single-line // comments.
type Config struct {
	Server  ServerConfig  `json:"server"`
	Auth    AuthConfig    `json:"auth"`
	Serve   ServeConfig   `json:"serve"`
	Session SessionConfig `json:"session"`
}

// ServerConfig locates the timesheet REST API used by the client commands.
type ServerConfig struct {
	// BaseURL is the scheme and host of the API, without the /rest suffix.
	BaseURL string `json:"base_url"`
	// TimeoutSeconds bounds every HTTP request.
	TimeoutSeconds int `json:"timeout_seconds"`
}

// Timeout returns TimeoutSeconds as a duration.
func (s ServerConfig) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// AuthConfig holds the OAuth2 settings used to obtain bearer tokens.
type AuthConfig struct {
	TokenURL      string `json:"token_url"`
	DeviceAuthURL string `json:"device_auth_url"`
	ClientID      string `json:"client_id"`
	// ClientSecret switches login to the client-credentials grant.
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes"`
}

// ServeConfig configures `timegrid serve`.
type ServeConfig struct {
	Addr   string `json:"addr"`
	DBPath string `json:"db_path"`
	// DevMode accepts any bearer token as the login it names.
	DevMode bool `json:"dev_mode"`
}

// SessionConfig tunes the interactive editor.
type SessionConfig struct {
	// IdleMinutes is the inactivity warning threshold; 0 disables it.
	IdleMinutes int `json:"idle_minutes"`
}

const (
	DefaultBaseURL        = "http://localhost:8080"
	DefaultTimeoutSeconds = 30
	DefaultClientID       = "timegrid-cli"
	DefaultAddr           = ":8080"
	DefaultDBFile         = "timegrid.db"
	DefaultIdleMinutes    = 30
)

// defaultConfig returns a Config pre-filled with sensible defaults.
func defaultConfig() Config {
	cfg := Config{Session: SessionConfig{IdleMinutes: DefaultIdleMinutes}}
	fillDefaults(&cfg)
	return cfg
}

func fillDefaults(cfg *Config) {
	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = DefaultBaseURL
	}
	if cfg.Server.TimeoutSeconds <= 0 {
		cfg.Server.TimeoutSeconds = DefaultTimeoutSeconds
	}
	if cfg.Auth.TokenURL == "" {
		cfg.Auth.TokenURL = cfg.Server.BaseURL + "/oauth/token"
	}
	if cfg.Auth.ClientID == "" {
		cfg.Auth.ClientID = DefaultClientID
	}
	if cfg.Serve.Addr == "" {
		cfg.Serve.Addr = DefaultAddr
	}
	if cfg.Session.IdleMinutes < 0 {
		cfg.Session.IdleMinutes = 0
	}
}

// configTemplate is the annotated config written on first run.
// Lines whose trimmed content starts with // are stripped before JSON parsing.
const configTemplate = `// timegrid configuration: ~/.timegrid/config.json
//
// All settings are optional; the defaults below talk to a local
// "timegrid serve" instance.
{
  // ── Timesheet API ────────────────────────────────────────────────────────
  "server": {
    // Base URL of the API. Requests go to <base_url>/rest/user/...
    "base_url": "http://localhost:8080",

    // Per-request timeout.
    "timeout_seconds": 30
  },

  // ── OAuth2 ───────────────────────────────────────────────────────────────
  "auth": {
    // Token endpoint. Defaults to <base_url>/oauth/token.
    "token_url": "",

    // Device authorization endpoint for "timegrid login" without a secret.
    "device_auth_url": "",

    "client_id": "timegrid-cli",

    // Set a secret to use the client-credentials grant instead of the
    // device code flow.
    "client_secret": "",

    "scopes": []
  },

  // ── timegrid serve ───────────────────────────────────────────────────────
  "serve": {
    "addr": ":8080",

    // SQLite database file. Empty = ~/.timegrid/timegrid.db
    "db_path": "",

    // Accept any bearer token as the login it names. Never enable in production.
    "dev_mode": false
  },

  // ── Interactive editor ───────────────────────────────────────────────────
  "session": {
    // Warn after this many idle minutes. 0 disables the warning.
    "idle_minutes": 30
  }
}
`

// BaseDir returns the timegrid data directory (~/.timegrid).
func BaseDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, ".timegrid"), nil
}

// configFilePath returns the path to ~/.timegrid/config.json.
func configFilePath() (string, error) {
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "config.json"), nil
}

// stripLineComments removes lines whose leading non-whitespace content starts
// with //. Only full-line comments are handled; inline comments are not stripped.
func stripLineComments(data []byte) []byte {
	var out []byte
	for _, line := range bytes.Split(data, []byte("\n")) {
		if bytes.HasPrefix(bytes.TrimLeft(line, " \t"), []byte("//")) {
			continue
		}
		out = append(out, line...)
		out = append(out, '\n')
	}
	return out
}

// Load reads ~/.timegrid/config.json, creating it with annotated defaults on
// first run.
func Load() (Config, error) {
	path, err := configFilePath()
	if err != nil {
		return defaultConfig(), err
	}
	return LoadFile(path)
}

// LoadFile reads the config at path, writing the annotated template there if
// the file does not exist yet.
func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if writeErr := writeDefault(path); writeErr != nil {
			fmt.Fprintf(os.Stderr, "Warning: could not create config file %s: %v\n", path, writeErr)
		}
		return defaultConfig(), nil
	}
	if err != nil {
		return defaultConfig(), fmt.Errorf("reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(stripLineComments(data), &cfg); err != nil {
		return defaultConfig(), fmt.Errorf("parsing config file %s: %w\nTip: delete the file to regenerate defaults", path, err)
	}
	fillDefaults(&cfg)
	return cfg, nil
}

// DBPath returns the configured database path, defaulting to
// ~/.timegrid/timegrid.db.
func (c Config) DBPath() (string, error) {
	if c.Serve.DBPath != "" {
		return c.Serve.DBPath, nil
	}
	base, err := BaseDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, DefaultDBFile), nil
}

// writeDefault creates the config directory and writes the annotated default
// config template.
func writeDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(configTemplate), 0o600); err != nil {
		return fmt.Errorf("writing default config: %w", err)
	}
	return nil
}
