// Copyright 2026 The Event Control Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for the event control
// dashboard and its companion tools.
//
// Configuration is loaded from a single YAML file specified by:
//   - EVENT_CONTROL_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery. This ensures
// deterministic, auditable configuration with no hidden overrides.
//
// The config file may contain environment-specific sections
// (development, staging, production) that override base values when
// the environment matches.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	// Development is for local development machines.
	Development Environment = "development"
	// Staging is for pre-production testing.
	Staging Environment = "staging"
	// Production is for production deployments (the show-day laptop).
	Production Environment = "production"
)

// Config is the master configuration for the event control tools.
type Config struct {
	// Environment identifies the deployment type.
	Environment Environment `yaml:"environment"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths"`

	// Backend configures the data backend.
	Backend BackendConfig `yaml:"backend"`

	// Weather configures the venue weather panel.
	Weather WeatherConfig `yaml:"weather"`

	// Per-environment overrides, applied after the base config.
	Development *ConfigOverrides `yaml:"development,omitempty"`
	Staging     *ConfigOverrides `yaml:"staging,omitempty"`
	Production  *ConfigOverrides `yaml:"production,omitempty"`
}

// ConfigOverrides contains fields that can be overridden per
// environment.
type ConfigOverrides struct {
	Paths   *PathsConfig   `yaml:"paths,omitempty"`
	Backend *BackendConfig `yaml:"backend,omitempty"`
	Weather *WeatherConfig `yaml:"weather,omitempty"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the base directory for dashboard data.
	Root string `yaml:"root"`

	// Cache is the snapshot cache database file. Empty disables the
	// cache.
	Cache string `yaml:"cache"`

	// LogOutput is a file that receives JSON log records in TUI
	// mode, where stderr is occupied by the interface. Empty
	// disables file logging.
	LogOutput string `yaml:"log_output"`
}

// BackendMode selects how the dashboard reaches its data.
type BackendMode string

const (
	// ModeHosted reads over the hosted service's HTTP API and
	// websocket changefeed.
	ModeHosted BackendMode = "hosted"
	// ModePostgres connects straight to Postgres with LISTEN/NOTIFY.
	ModePostgres BackendMode = "postgres"
)

// BackendConfig configures the data backend.
type BackendConfig struct {
	// Mode is "hosted" or "postgres".
	Mode BackendMode `yaml:"mode"`

	// BaseURL is the hosted service root. Required in hosted mode.
	BaseURL string `yaml:"base_url"`

	// ServiceKeyFile is the path to the service key. A ".age" suffix
	// selects decryption with IdentityFile. Required in hosted mode.
	ServiceKeyFile string `yaml:"service_key_file"`

	// IdentityFile is the age identity used to decrypt an encrypted
	// service key file.
	IdentityFile string `yaml:"identity_file"`

	// DSN is the Postgres connection string. Required in postgres
	// mode.
	DSN string `yaml:"dsn"`
}

// WeatherConfig configures the venue weather panel.
type WeatherConfig struct {
	// Enabled turns the weather panel on. Requires the active event
	// to carry venue coordinates.
	Enabled bool `yaml:"enabled"`

	// BaseURL overrides the public forecast endpoint.
	BaseURL string `yaml:"base_url"`

	// RefreshInterval is how often conditions are re-fetched.
	// Default: 15m.
	RefreshInterval Duration `yaml:"refresh_interval"`
}

// Duration decodes Go duration strings ("15m", "1h30m") from YAML.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the default configuration. These defaults are a
// base for the loaded file, not a substitute for it — the config file
// is required.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	defaultRoot := filepath.Join(homeDir, ".cache", "event-control")

	return &Config{
		Environment: Development,
		Paths: PathsConfig{
			Root:  defaultRoot,
			Cache: filepath.Join(defaultRoot, "snapshots.db"),
		},
		Backend: BackendConfig{
			Mode: ModeHosted,
		},
		Weather: WeatherConfig{
			Enabled:         true,
			RefreshInterval: Duration(15 * time.Minute),
		},
	}
}

// Load loads configuration from the EVENT_CONTROL_CONFIG environment
// variable. There are no fallbacks: if the variable is not set, this
// fails.
func Load() (*Config, error) {
	configPath := os.Getenv("EVENT_CONTROL_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("EVENT_CONTROL_CONFIG environment variable not set; " +
			"set it to the path of your event-control.yaml config file, or use --config flag")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path.
//
// The config file is the single source of truth. Environment
// variables do not override config values. The only expansion
// performed is ${HOME} and similar path variables for portability.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.applyEnvironmentOverrides()
	cfg.expandVariables()

	return cfg, nil
}

// applyEnvironmentOverrides applies the section matching Environment.
func (c *Config) applyEnvironmentOverrides() {
	var overrides *ConfigOverrides

	switch c.Environment {
	case Development:
		overrides = c.Development
	case Staging:
		overrides = c.Staging
	case Production:
		overrides = c.Production
	}
	if overrides == nil {
		return
	}

	if overrides.Paths != nil {
		if overrides.Paths.Root != "" {
			c.Paths.Root = overrides.Paths.Root
		}
		if overrides.Paths.Cache != "" {
			c.Paths.Cache = overrides.Paths.Cache
		}
		if overrides.Paths.LogOutput != "" {
			c.Paths.LogOutput = overrides.Paths.LogOutput
		}
	}

	if overrides.Backend != nil {
		if overrides.Backend.Mode != "" {
			c.Backend.Mode = overrides.Backend.Mode
		}
		if overrides.Backend.BaseURL != "" {
			c.Backend.BaseURL = overrides.Backend.BaseURL
		}
		if overrides.Backend.ServiceKeyFile != "" {
			c.Backend.ServiceKeyFile = overrides.Backend.ServiceKeyFile
		}
		if overrides.Backend.IdentityFile != "" {
			c.Backend.IdentityFile = overrides.Backend.IdentityFile
		}
		if overrides.Backend.DSN != "" {
			c.Backend.DSN = overrides.Backend.DSN
		}
	}

	if overrides.Weather != nil {
		c.Weather.Enabled = overrides.Weather.Enabled
		if overrides.Weather.BaseURL != "" {
			c.Weather.BaseURL = overrides.Weather.BaseURL
		}
		if overrides.Weather.RefreshInterval != 0 {
			c.Weather.RefreshInterval = overrides.Weather.RefreshInterval
		}
	}
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in
// paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"EVENT_CONTROL_ROOT": c.Paths.Root,
		"HOME":               os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["EVENT_CONTROL_ROOT"] = c.Paths.Root // for dependent paths

	c.Paths.Cache = expandVars(c.Paths.Cache, vars)
	c.Paths.LogOutput = expandVars(c.Paths.LogOutput, vars)
	c.Backend.ServiceKeyFile = expandVars(c.Backend.ServiceKeyFile, vars)
	c.Backend.IdentityFile = expandVars(c.Backend.IdentityFile, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default} patterns.
func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}

		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}

		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Environment != Development && c.Environment != Staging && c.Environment != Production {
		errs = append(errs, fmt.Errorf("invalid environment: %s", c.Environment))
	}

	if c.Paths.Root == "" {
		errs = append(errs, fmt.Errorf("paths.root is required"))
	}

	switch c.Backend.Mode {
	case ModeHosted:
		if c.Backend.BaseURL == "" {
			errs = append(errs, fmt.Errorf("backend.base_url is required in hosted mode"))
		}
		if c.Backend.ServiceKeyFile == "" {
			errs = append(errs, fmt.Errorf("backend.service_key_file is required in hosted mode"))
		}
	case ModePostgres:
		if c.Backend.DSN == "" {
			errs = append(errs, fmt.Errorf("backend.dsn is required in postgres mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("backend.mode must be %q or %q", ModeHosted, ModePostgres))
	}

	if c.Weather.Enabled && c.Weather.RefreshInterval.Std() < time.Minute {
		errs = append(errs, fmt.Errorf("weather.refresh_interval must be at least 1m"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// EnsurePaths creates the configured directories if they do not
// exist.
func (c *Config) EnsurePaths() error {
	paths := []string{c.Paths.Root}
	if c.Paths.Cache != "" {
		paths = append(paths, filepath.Dir(c.Paths.Cache))
	}
	if c.Paths.LogOutput != "" {
		paths = append(paths, filepath.Dir(c.Paths.LogOutput))
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}
