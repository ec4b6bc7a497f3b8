// Package config provides configuration management for the ferry CLI.
package config

import (
	"os"
	"path/filepath"
)

// FileName is the name of the config file inside Dir.
const FileName = "config.yaml"

// Dir returns the ferry config directory.
// Uses XDG_CONFIG_HOME/ferry, defaulting to ~/.config/ferry.
func Dir() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, "ferry"), nil
}

// Path returns the default config file path.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, FileName), nil
}
