// Package config loads and validates doctest configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// HistoryConfig configures the run-history store.
type HistoryConfig struct {
	// Enabled records every verification run in the history database
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the history database
	DBPath string `yaml:"db_path"`
}

// SmokeConfig configures the git-over-HTTP smoke harness.
type SmokeConfig struct {
	// Port is the fixed port the throwaway git server listens on
	Port int `yaml:"port"`

	// Mode selects the server flavor: "cgi" (git-http-backend, push works)
	// or "dumb" (static HTTPS serving, push expected to fail)
	Mode string `yaml:"mode"`

	// LockPath is the host-wide lock file serializing smoke runs
	LockPath string `yaml:"lock_path"`

	// RequiredBinaries must be on PATH before a smoke run starts
	RequiredBinaries []string `yaml:"required_binaries"`
}

// Config represents doctest configuration options
type Config struct {
	// FenceLanguage is the fence tag marking executable blocks
	FenceLanguage string `yaml:"fence_language"`

	// FixtureDir is where expected-output fixtures live (empty = document's
	// directory)
	FixtureDir string `yaml:"fixture_dir"`

	// VerifyCommand is appended to the assembled script when non-empty
	VerifyCommand string `yaml:"verify_command"`

	// Strict halts the script on the first failing command
	Strict bool `yaml:"strict"`

	// Timeout is the maximum execution time for the assembled script
	Timeout time.Duration `yaml:"timeout"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// RequiredBinaries must be on PATH before a verification starts
	RequiredBinaries []string `yaml:"required_binaries"`

	// EnvOverrides replaces the frozen identity/timestamp set when non-empty
	EnvOverrides map[string]string `yaml:"env_overrides"`

	// History contains run-history store configuration
	History HistoryConfig `yaml:"history"`

	// Smoke contains smoke harness configuration
	Smoke SmokeConfig `yaml:"smoke"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		FenceLanguage:    "bash",
		FixtureDir:       "",
		VerifyCommand:    "",
		Strict:           true,
		Timeout:          10 * time.Minute,
		LogLevel:         "info",
		RequiredBinaries: []string{"git", "ssh-keygen"},
		History: HistoryConfig{
			Enabled: true,
			DBPath:  ".doctest/history.db",
		},
		Smoke: SmokeConfig{
			Port:             8000,
			Mode:             "cgi",
			LockPath:         filepath.Join(os.TempDir(), "doctest-smoke.lock"),
			RequiredBinaries: []string{"git", "openssl", "git-http-backend"},
		},
	}
}

// LoadConfig loads configuration from the specified file path.
// If the file doesn't exist, returns default configuration without error.
// If the file exists but is malformed, returns an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Use a temporary struct so durations parse from strings and absent
	// booleans don't clobber defaults.
	type yamlSmoke struct {
		Port             int      `yaml:"port"`
		Mode             string   `yaml:"mode"`
		LockPath         string   `yaml:"lock_path"`
		RequiredBinaries []string `yaml:"required_binaries"`
	}
	type yamlHistory struct {
		Enabled *bool  `yaml:"enabled"`
		DBPath  string `yaml:"db_path"`
	}
	type yamlConfig struct {
		FenceLanguage    string            `yaml:"fence_language"`
		FixtureDir       string            `yaml:"fixture_dir"`
		VerifyCommand    string            `yaml:"verify_command"`
		Strict           *bool             `yaml:"strict"`
		Timeout          string            `yaml:"timeout"`
		LogLevel         string            `yaml:"log_level"`
		RequiredBinaries []string          `yaml:"required_binaries"`
		EnvOverrides     map[string]string `yaml:"env_overrides"`
		History          yamlHistory       `yaml:"history"`
		Smoke            yamlSmoke         `yaml:"smoke"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if yamlCfg.FenceLanguage != "" {
		cfg.FenceLanguage = yamlCfg.FenceLanguage
	}
	if yamlCfg.FixtureDir != "" {
		cfg.FixtureDir = yamlCfg.FixtureDir
	}
	if yamlCfg.VerifyCommand != "" {
		cfg.VerifyCommand = yamlCfg.VerifyCommand
	}
	if yamlCfg.Strict != nil {
		cfg.Strict = *yamlCfg.Strict
	}
	if yamlCfg.Timeout != "" {
		timeout, err := time.ParseDuration(yamlCfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout format %q: %w", yamlCfg.Timeout, err)
		}
		cfg.Timeout = timeout
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if len(yamlCfg.RequiredBinaries) > 0 {
		cfg.RequiredBinaries = yamlCfg.RequiredBinaries
	}
	if len(yamlCfg.EnvOverrides) > 0 {
		cfg.EnvOverrides = yamlCfg.EnvOverrides
	}
	if yamlCfg.History.Enabled != nil {
		cfg.History.Enabled = *yamlCfg.History.Enabled
	}
	if yamlCfg.History.DBPath != "" {
		cfg.History.DBPath = yamlCfg.History.DBPath
	}
	if yamlCfg.Smoke.Port != 0 {
		cfg.Smoke.Port = yamlCfg.Smoke.Port
	}
	if yamlCfg.Smoke.Mode != "" {
		cfg.Smoke.Mode = yamlCfg.Smoke.Mode
	}
	if yamlCfg.Smoke.LockPath != "" {
		cfg.Smoke.LockPath = yamlCfg.Smoke.LockPath
	}
	if len(yamlCfg.Smoke.RequiredBinaries) > 0 {
		cfg.Smoke.RequiredBinaries = yamlCfg.Smoke.RequiredBinaries
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .doctest/config.yaml in the
// specified directory. If the directory or file doesn't exist, returns
// default configuration without error.
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, ".doctest", "config.yaml"))
}

// MergeWithFlags merges CLI flags into the configuration.
// Non-nil flag values override configuration values.
func (c *Config) MergeWithFlags(fence *string, strict *bool, timeout *time.Duration, verifyCommand *string) {
	if fence != nil {
		c.FenceLanguage = *fence
	}
	if strict != nil {
		c.Strict = *strict
	}
	if timeout != nil {
		c.Timeout = *timeout
	}
	if verifyCommand != nil {
		c.VerifyCommand = *verifyCommand
	}
}

// FixturePath returns the expected-output fixture path for a document on the
// given platform. Fixtures are platform-named because command echoes differ:
// <doc-base>-expected-unix.txt on linux/darwin, -windows.txt on windows.
func (c *Config) FixturePath(docPath, goos string) string {
	dir := c.FixtureDir
	if dir == "" {
		dir = filepath.Dir(docPath)
	}

	base := filepath.Base(docPath)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	suffix := "unix"
	if goos == "windows" {
		suffix = "windows"
	}

	return filepath.Join(dir, fmt.Sprintf("%s-expected-%s.txt", base, suffix))
}

// Validate validates the configuration values.
// Returns an error if any values are invalid.
func (c *Config) Validate() error {
	if c.FenceLanguage == "" {
		return fmt.Errorf("fence_language cannot be empty")
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	// Timeout must be positive: a hung script must never block forever.
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be > 0, got %v", c.Timeout)
	}

	if c.History.Enabled && c.History.DBPath == "" {
		return fmt.Errorf("history.db_path cannot be empty when history is enabled")
	}

	if c.Smoke.Port <= 0 || c.Smoke.Port > 65535 {
		return fmt.Errorf("smoke.port must be in 1..65535, got %d", c.Smoke.Port)
	}
	if c.Smoke.Mode != "cgi" && c.Smoke.Mode != "dumb" {
		return fmt.Errorf("invalid smoke.mode %q, must be one of: cgi, dumb", c.Smoke.Mode)
	}

	return nil
}
