// Package config handles the configuration directory, the settings file and
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	// AppName is the application directory name.
	AppName = "taskmate"

	// SettingsFile is the settings filename.
	SettingsFile = "config.yaml"

	// SessionFile is the stored session filename.
	SessionFile = "session.json"
)

// Environment variables overriding the settings file.
const (
	EnvAPIURL      = "TASKMATE_API_URL"
	EnvAuthDomain  = "TASKMATE_AUTH_DOMAIN"
	EnvClientID    = "TASKMATE_CLIENT_ID"
	EnvRedirectURI = "TASKMATE_REDIRECT_URI"
	EnvLogoutURI   = "TASKMATE_LOGOUT_URI"
)

// Config holds configuration paths and settings.
type Config struct {
	// Dir is the configuration directory path.
	Dir string

	// Debug enables debug logging.
	Debug bool

	// Quiet suppresses informational output.
	Quiet bool

	// Settings are the backend and identity provider endpoints.
	Settings Settings
}

// Settings are read from config.yaml and then overridden by the
// environment. None of them has a default.
type Settings struct {
	// APIURL is the base URL of the task REST API.
	APIURL string `yaml:"api_url"`

	Auth AuthSettings `yaml:"auth"`
}

// AuthSettings describe the OIDC identity provider.
type AuthSettings struct {
	// Domain is the identity provider base URL (the OIDC authority).
	Domain string `yaml:"domain"`

	ClientID string `yaml:"client_id"`

	// RedirectURI must point at a loopback address; login listens on it.
	RedirectURI string `yaml:"redirect_uri"`

	// LogoutURI is where the provider sends the browser after sign-out.
	LogoutURI string `yaml:"logout_uri"`
}

// New creates a new Config with the default or specified config directory
// and loads the settings. A missing settings file is not an error.
func New(configDir string) (*Config, error) {
	dir := configDir
	if dir == "" {
		dir = DefaultConfigDir()
	}
	cfg := &Config{Dir: dir}
	if err := cfg.Load(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DefaultConfigDir returns the default configuration directory.
// Uses XDG_CONFIG_HOME if set, otherwise $HOME/.config.
func DefaultConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return AppName
	}
	return filepath.Join(home, ".config", AppName)
}

// Load reads the settings file (if any) and applies environment overrides.
func (c *Config) Load() error {
	data, err := os.ReadFile(c.SettingsPath())
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return fmt.Errorf("failed to read %s: %w", SettingsFile, err)
	default:
		if err := yaml.Unmarshal(data, &c.Settings); err != nil {
			return fmt.Errorf("invalid %s: %w", SettingsFile, err)
		}
	}
	c.Settings.applyEnv(os.LookupEnv)
	return nil
}

func (s *Settings) applyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(&s.APIURL, EnvAPIURL)
	set(&s.Auth.Domain, EnvAuthDomain)
	set(&s.Auth.ClientID, EnvClientID)
	set(&s.Auth.RedirectURI, EnvRedirectURI)
	set(&s.Auth.LogoutURI, EnvLogoutURI)
}

// RequireAPI reports a missing API base URL.
func (s Settings) RequireAPI() error {
	if s.APIURL == "" {
		return fmt.Errorf("api_url not configured (set %s or api_url in %s)", EnvAPIURL, SettingsFile)
	}
	return nil
}

// RequireAuth reports the first missing identity provider setting.
// LogoutURI is optional.
func (s Settings) RequireAuth() error {
	switch {
	case s.Auth.Domain == "":
		return fmt.Errorf("auth.domain not configured (set %s)", EnvAuthDomain)
	case s.Auth.ClientID == "":
		return fmt.Errorf("auth.client_id not configured (set %s)", EnvClientID)
	case s.Auth.RedirectURI == "":
		return fmt.Errorf("auth.redirect_uri not configured (set %s)", EnvRedirectURI)
	}
	return nil
}

// SettingsPath returns the path to the settings file.
func (c *Config) SettingsPath() string {
	return filepath.Join(c.Dir, SettingsFile)
}

// SessionPath returns the path to the stored session file.
func (c *Config) SessionPath() string {
	return filepath.Join(c.Dir, SessionFile)
}

// EnsureDir creates the config directory if it doesn't exist.
// Directory is created with mode 0700.
func (c *Config) EnsureDir() error {
	return os.MkdirAll(c.Dir, 0700)
}

// RemoveSession deletes the session file.
func (c *Config) RemoveSession() error {
	return os.Remove(c.SessionPath())
}
