/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Config covers process level configuration read from environment variables.
type Config struct {
	Environment string
	ConfigHome  string // GEM_CONFIG_HOME, holds gem.conf, consoles.conf, emulators.conf
	DataHome    string // GEM_DATA_HOME, holds the database, the lock and the log
	Debug       bool
	Program     string // Executable name expected in the lock holder's command line
}

// ErrMissingHome is returned when neither the explicit root nor a home
// directory fallback can be determined.
var ErrMissingHome = errors.New("cannot determine home directory")

// Load reads environment variables, applies defaults, and validates the result.
func Load() (*Config, error) {
	cfg := &Config{
		Environment: getEnvAny([]string{"GEM_ENV"}, "production"),
		ConfigHome:  getEnvAny([]string{"GEM_CONFIG_HOME"}, ""),
		DataHome:    getEnvAny([]string{"GEM_DATA_HOME"}, ""),
		Debug:       getEnvBoolAny([]string{"GEM_DEBUG"}, false),
		Program:     getEnvAny([]string{"GEM_PROGRAM"}, "gem"),
	}

	if cfg.ConfigHome == "" {
		dir, err := xdgDir("XDG_CONFIG_HOME", ".config")
		if err != nil {
			return nil, err
		}
		cfg.ConfigHome = dir
	}
	if cfg.DataHome == "" {
		dir, err := xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
		if err != nil {
			return nil, err
		}
		cfg.DataHome = dir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the engine cannot work with.
func (c *Config) Validate() error {
	if c.ConfigHome == "" || c.DataHome == "" {
		return fmt.Errorf("config and data roots must be set")
	}
	if !filepath.IsAbs(c.ConfigHome) {
		return fmt.Errorf("GEM_CONFIG_HOME must be an absolute path, got %q", c.ConfigHome)
	}
	if !filepath.IsAbs(c.DataHome) {
		return fmt.Errorf("GEM_DATA_HOME must be an absolute path, got %q", c.DataHome)
	}
	if strings.TrimSpace(c.Program) == "" {
		return fmt.Errorf("GEM_PROGRAM must not be empty")
	}
	return nil
}

// IsDevelopment reports whether the process runs outside production.
func (c *Config) IsDevelopment() bool {
	return c != nil && !strings.EqualFold(c.Environment, "production")
}

// xdgDir returns $<env>/gem, or ~/<fallback>/gem when the variable is unset.
func xdgDir(env, fallback string) (string, error) {
	if base := os.Getenv(env); base != "" && filepath.IsAbs(base) {
		return filepath.Join(base, "gem"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "", fmt.Errorf("%w: %v", ErrMissingHome, err)
	}
	return filepath.Join(home, fallback, "gem"), nil
}

// getEnvAny returns the first non-empty environment variable value from keys, or def if none set.
func getEnvAny(keys []string, def string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return def
}

// getEnvBoolAny returns the first set boolean environment variable value from keys, or def.
func getEnvBoolAny(keys []string, def bool) bool {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			v = strings.ToLower(strings.TrimSpace(v))
			if v == "true" || v == "1" || v == "yes" {
				return true
			}
			if v == "false" || v == "0" || v == "no" {
				return false
			}
		}
	}
	return def
}
