// Package config loads and validates the foreman TOML configuration.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Duration is a time.Duration that unmarshals from TOML strings like "10s" or "2m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

type Config struct {
	General General `toml:"general"`
	Backend Backend `toml:"backend"`
	Serve   Serve   `toml:"serve"`
}

type General struct {
	LogLevel string `toml:"log_level"`
	TokenDB  string `toml:"token_db"`
}

// Backend points at the external scheduling REST API.
type Backend struct {
	BaseURL string   `toml:"base_url"`
	Timeout Duration `toml:"timeout"`
}

// Serve configures the local read-only API surface.
type Serve struct {
	Bind             string   `toml:"bind"`
	AuthEnabled      bool     `toml:"auth_enabled"`
	AllowedTokens    []string `toml:"allowed_tokens"`
	RequireLocalOnly bool     `toml:"require_local_only"`
	AuditLog         string   `toml:"audit_log"`
}

// Load reads, defaults, and validates the config at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	applyDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no config file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.General.LogLevel == "" {
		cfg.General.LogLevel = "info"
	}
	if cfg.General.TokenDB == "" {
		cfg.General.TokenDB = "~/.foreman/tokens.db"
	}
	if cfg.Backend.BaseURL == "" {
		cfg.Backend.BaseURL = "http://localhost:8000"
	}
	if cfg.Backend.Timeout.Duration == 0 {
		cfg.Backend.Timeout.Duration = 10 * time.Second
	}
	if cfg.Serve.Bind == "" {
		cfg.Serve.Bind = "127.0.0.1:8787"
	}
}

func validate(cfg *Config) error {
	base := strings.TrimSpace(cfg.Backend.BaseURL)
	parsed, err := url.Parse(base)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("backend.base_url %q is not a valid URL", cfg.Backend.BaseURL)
	}
	if cfg.Backend.Timeout.Duration < 0 {
		return fmt.Errorf("backend.timeout must not be negative")
	}
	if cfg.Serve.AuthEnabled && len(cfg.Serve.AllowedTokens) == 0 {
		return fmt.Errorf("serve.auth_enabled requires at least one serve.allowed_tokens entry")
	}
	return nil
}

// ExpandHome expands a leading ~ to the user's home directory.
func ExpandHome(path string) string {
	if len(path) == 0 {
		return path
	}
	if path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[1:])
	}
	return path
}
