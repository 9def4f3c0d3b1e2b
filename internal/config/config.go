package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// CalDAVConfig describes the CalDAV backend every request is proxied to.
type CalDAVConfig struct {
	// BaseURL is the CalDAV server endpoint, e.g. "https://dav.example.com/".
	BaseURL string `yaml:"base_url" json:"base_url"`
	// Username / Password are sent with HTTP Basic Auth on every request.
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
	// TimeoutSeconds bounds a single CalDAV HTTP request.
	TimeoutSeconds int `yaml:"timeout_seconds" json:"timeout_seconds"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for the Web UI/API.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// ShareConfig describes a calendar shared with the configured user, along
// with the custom properties that override the calendar's own ones.
//
// Properties may still use the legacy plain keys ("displayname", "color");
// they are migrated to namespaced keys when the share registry is built.
type ShareConfig struct {
	ID         string            `yaml:"id,omitempty" json:"id,omitempty"`
	Calendar   string            `yaml:"calendar" json:"calendar"`
	Owner      string            `yaml:"owner" json:"owner"`
	With       string            `yaml:"with" json:"with"`
	Writable   bool              `yaml:"writable" json:"writable"`
	Properties map[string]string `yaml:"properties,omitempty" json:"properties,omitempty"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the Web UI and API.
	Listen string `yaml:"listen" json:"listen"`

	// Timezone is the IANA timezone the refresh schedule is evaluated in.
	Timezone string `yaml:"timezone" json:"timezone"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// RefreshCron is a cron-style schedule string (e.g. "*/15 * * * *")
	// used to refresh the cached calendar list.
	RefreshCron string `yaml:"refresh" json:"refresh"`

	CalDAV CalDAVConfig `yaml:"caldav" json:"caldav"`

	// BasicAuth, if non-nil, enables HTTP Basic Authentication on all endpoints
	// except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"basic_auth,omitempty"`

	Shares []ShareConfig `yaml:"shares" json:"shares"`
}

const (
	defaultListen         = "127.0.0.1:8080"
	defaultTimezone       = "UTC"
	defaultLogLevel       = "info"
	defaultRefreshCron    = "*/15 * * * *"
	defaultTimeoutSeconds = 20
)

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:      defaultListen,
		Timezone:    defaultTimezone,
		LogLevel:    defaultLogLevel,
		RefreshCron: defaultRefreshCron,
		CalDAV: CalDAVConfig{
			BaseURL:        "http://localhost:5232/",
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		BasicAuth: nil,
		Shares:    []ShareConfig{},
	}
}

// Normalize fills in missing/zero values with sensible defaults so that
// partially-filled configs still behave correctly.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = defaultListen
	}
	if c.Timezone == "" {
		c.Timezone = defaultTimezone
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
		c.LogLevel = strings.ToLower(c.LogLevel)
	default:
		c.LogLevel = defaultLogLevel
	}
	if c.RefreshCron == "" {
		c.RefreshCron = defaultRefreshCron
	}
	if c.CalDAV.TimeoutSeconds <= 0 {
		c.CalDAV.TimeoutSeconds = defaultTimeoutSeconds
	}
	if c.Shares == nil {
		c.Shares = []ShareConfig{}
	}
}

// Validate reports configuration that cannot work at all.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.CalDAV.BaseURL) == "" {
		return errors.New("caldav.base_url is empty")
	}
	for i, s := range c.Shares {
		if s.Calendar == "" {
			return fmt.Errorf("shares[%d].calendar is empty", i)
		}
	}
	return nil
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist, a default config is written with 0600
//     perms and returned.
//   - Otherwise the YAML is unmarshalled and defaults are filled in.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			// First run: create default config file.
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				// Even if save fails, return cfg with error so caller can decide.
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()

	return cfg, nil
}

// Save writes the given configuration to the specified path atomically
// (temp file + rename) with 0600 permissions.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".davcal-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
