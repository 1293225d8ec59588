// Package config loads the calassist configuration file.
//
// Configuration lives in a TOML file (default ~/.config/calassist/config.toml,
// overridable via the --config flag or the CALASSIST_CONFIG environment
// variable). OAuth client credentials can also be supplied through
// environment variables, which take precedence over the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Defaults applied when the config file is absent or leaves fields unset.
const (
	DefaultHTTPTimeout       = 30 * time.Second
	DefaultWindowDays        = 7
	defaultOutlookTenant     = "common"
	defaultConfigFileName    = "config.toml"
	defaultTokenDirName      = "tokens"
	defaultConfigDirName     = "calassist"
	envConfigPath            = "CALASSIST_CONFIG"
	envTokenDir              = "CALASSIST_TOKEN_DIR"
	envGoogleClientID        = "CALASSIST_GOOGLE_CLIENT_ID"
	envGoogleClientSecret    = "CALASSIST_GOOGLE_CLIENT_SECRET"
	envOutlookClientID       = "CALASSIST_OUTLOOK_CLIENT_ID"
	envOutlookClientSecret   = "CALASSIST_OUTLOOK_CLIENT_SECRET"
	envOutlookTenant         = "CALASSIST_OUTLOOK_TENANT"
)

// Duration wraps time.Duration so it can be written as "30s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler for TOML decoding.
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = parsed
	return nil
}

// GoogleConfig holds the Google OAuth client registration.
type GoogleConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
}

// OutlookConfig holds the Azure AD application registration. ClientSecret is
// optional; public clients authenticate with the client ID alone.
type OutlookConfig struct {
	ClientID     string `toml:"client_id"`
	ClientSecret string `toml:"client_secret"`
	Tenant       string `toml:"tenant"`
}

// Config is the full calassist configuration.
type Config struct {
	TokenDir          string        `toml:"token_dir"`
	HTTPTimeout       Duration      `toml:"http_timeout"`
	DefaultWindowDays int           `toml:"default_window_days"`
	Google            GoogleConfig  `toml:"google"`
	Outlook           OutlookConfig `toml:"outlook"`
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(configDir(), defaultConfigFileName)
}

// Load reads the configuration. An empty path selects CALASSIST_CONFIG, then
// the default location. A missing file is not an error; defaults and
// environment variables still apply. A present but malformed file is an
// error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if path == "" {
		path = os.Getenv(envConfigPath)
		explicit = path != ""
	}
	if path == "" {
		path = DefaultPath()
	}

	cfg := &Config{}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if os.IsNotExist(err) && !explicit {
			// No config file; run on defaults and environment.
		} else {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(envTokenDir); v != "" {
		c.TokenDir = v
	}
	if v := os.Getenv(envGoogleClientID); v != "" {
		c.Google.ClientID = v
	}
	if v := os.Getenv(envGoogleClientSecret); v != "" {
		c.Google.ClientSecret = v
	}
	if v := os.Getenv(envOutlookClientID); v != "" {
		c.Outlook.ClientID = v
	}
	if v := os.Getenv(envOutlookClientSecret); v != "" {
		c.Outlook.ClientSecret = v
	}
	if v := os.Getenv(envOutlookTenant); v != "" {
		c.Outlook.Tenant = v
	}
}

func (c *Config) applyDefaults() {
	if c.TokenDir == "" {
		c.TokenDir = filepath.Join(configDir(), defaultTokenDirName)
	}
	c.TokenDir = expandHome(c.TokenDir)
	if c.HTTPTimeout.Duration <= 0 {
		c.HTTPTimeout.Duration = DefaultHTTPTimeout
	}
	if c.DefaultWindowDays <= 0 {
		c.DefaultWindowDays = DefaultWindowDays
	}
	if c.Outlook.Tenant == "" {
		c.Outlook.Tenant = defaultOutlookTenant
	}
}

func configDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, defaultConfigDirName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".config", defaultConfigDirName)
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
