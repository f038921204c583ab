// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Hello Web App Contributors

// Package xdg resolves the XDG base directory paths used by hellowebapp.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "hellowebapp"

// ConfigFileName is the file looked up in ConfigDir when no --config is given.
const ConfigFileName = "config.yaml"

// ConfigDir returns the XDG config directory for hellowebapp.
// Checks XDG_CONFIG_HOME first, falls back to ~/.config.
// It returns "" when neither XDG_CONFIG_HOME nor HOME is set.
func ConfigDir() string {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home := os.Getenv("HOME")
		if home == "" {
			return ""
		}
		base = filepath.Join(home, ".config")
	}
	return filepath.Join(base, appName)
}

// DefaultConfigFile returns the path of the config file in ConfigDir and
// whether a regular file exists there.
func DefaultConfigFile() (string, bool) {
	dir := ConfigDir()
	if dir == "" {
		return "", false
	}
	path := filepath.Join(dir, ConfigFileName)
	info, err := os.Stat(path)
	if err != nil || !info.Mode().IsRegular() {
		return path, false
	}
	return path, true
}
