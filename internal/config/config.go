package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppDirName is the directory under the user config dir that holds the
// config file and logs.
const AppDirName = "ananicy-rule-o-matic"

// FileName is the config file name inside AppDirName.
const FileName = "config.yaml"

var (
	// ErrPathExists is returned when adding a rule path that is already listed.
	ErrPathExists = errors.New("rule path already configured")
	// ErrPathNotFound is returned when removing a rule path that is not listed.
	ErrPathNotFound = errors.New("rule path not configured")
	// ErrNoConfigDir is returned when no user config directory can be determined.
	ErrNoConfigDir = errors.New("could not determine config directory")
)

// Config holds ruleomatic configuration.
type Config struct {
	// Rule base directories, lowest precedence first.
	RulePaths []string `yaml:"rule_paths"`

	// How often the interactive view rescans processes.
	RefreshInterval string `yaml:"refresh_interval"`
	// How often the interactive view polls for input.
	TickInterval string `yaml:"tick_interval"`

	// Procfs mount point.
	ProcRoot string `yaml:"proc_root,omitempty"`

	Logging LoggingConfig `yaml:"logging"`
}

// DefaultRulePaths returns the stock ananicy rule locations: system
// defaults, then distribution rules, then the user's own overrides.
func DefaultRulePaths() []string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return []string{
		"/etc/ananicy.d",
		"/usr/lib/ananicy.d",
		filepath.Join(home, ".config", "ananicy.d"),
	}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		RulePaths:       DefaultRulePaths(),
		RefreshInterval: "1s",
		TickInterval:    "250ms",
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// Dir returns the directory holding the config file.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		var err error
		base, err = os.UserConfigDir()
		if err != nil || base == "" {
			return "", ErrNoConfigDir
		}
	}
	return filepath.Join(base, AppDirName), nil
}

// DefaultPath returns the config file location. RULEOMATIC_CONFIG wins over
// the user config directory.
func DefaultPath() (string, error) {
	if p := os.Getenv("RULEOMATIC_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}

// Load loads configuration from a YAML file for use. A missing file is
// created with the defaults. Environment overrides and "~" expansion are
// applied to the result.
func Load(path string) (*Config, error) {
	cfg, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()
	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReadFile loads the file as stored, creating it with the defaults when it
// does not exist. Use it when the result will be saved back.
func ReadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := cfg.Save(path); err != nil {
			return nil, fmt.Errorf("failed to write default config: %w", err)
		}
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if paths := os.Getenv("RULEOMATIC_RULE_PATHS"); paths != "" {
		c.RulePaths = nil
		for _, p := range filepath.SplitList(paths) {
			if p = strings.TrimSpace(p); p != "" {
				c.RulePaths = append(c.RulePaths, p)
			}
		}
	}
	if level := os.Getenv("RULEOMATIC_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if root := os.Getenv("RULEOMATIC_PROC_ROOT"); root != "" {
		c.ProcRoot = root
	}
}

func (c *Config) expandPaths() {
	for i, p := range c.RulePaths {
		c.RulePaths[i] = ExpandHome(p)
	}
	c.Logging.File = ExpandHome(c.Logging.File)
}

// ExpandHome replaces a leading "~/" with the home directory.
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}

// GetRefreshInterval returns the process refresh interval.
func (c *Config) GetRefreshInterval() time.Duration {
	return parseDuration(c.RefreshInterval, time.Second)
}

// GetTickInterval returns the input polling interval.
func (c *Config) GetTickInterval() time.Duration {
	return parseDuration(c.TickInterval, 250*time.Millisecond)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	for _, field := range []struct{ name, value string }{
		{"refresh_interval", c.RefreshInterval},
		{"tick_interval", c.TickInterval},
	} {
		if field.value == "" {
			continue
		}
		d, err := time.ParseDuration(field.value)
		if err != nil {
			return fmt.Errorf("invalid %s %q: %w", field.name, field.value, err)
		}
		if d <= 0 {
			return fmt.Errorf("invalid %s %q: must be positive", field.name, field.value)
		}
	}
	for _, p := range c.RulePaths {
		if strings.TrimSpace(p) == "" {
			return errors.New("rule_paths contains an empty entry")
		}
	}
	return nil
}

// AddRulePath appends path as the highest-precedence rule directory.
func (c *Config) AddRulePath(path string) error {
	path = filepath.Clean(ExpandHome(path))
	if c.indexOf(path) >= 0 {
		return fmt.Errorf("%s: %w", path, ErrPathExists)
	}
	c.RulePaths = append(c.RulePaths, path)
	return nil
}

// RemoveRulePath removes path from the rule directories.
func (c *Config) RemoveRulePath(path string) error {
	path = filepath.Clean(ExpandHome(path))
	i := c.indexOf(path)
	if i < 0 {
		return fmt.Errorf("%s: %w", path, ErrPathNotFound)
	}
	c.RulePaths = append(c.RulePaths[:i], c.RulePaths[i+1:]...)
	return nil
}

func (c *Config) indexOf(path string) int {
	for i, p := range c.RulePaths {
		if filepath.Clean(ExpandHome(p)) == path {
			return i
		}
	}
	return -1
}
