package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	// DefaultXDGConfigDir is used when XDG_CONFIG_DIRS gives no usable entry.
	DefaultXDGConfigDir = "/etc/xdg"

	// ConfigFileName is the configuration file path relative to a config dir.
	ConfigFileName = "cla-proxy/config.toml"
)

// ConfigPath returns the configuration file location derived from the
// XDG_CONFIG_DIRS environment variable.
func ConfigPath() string {
	return filepath.Join(configDir(os.Getenv("XDG_CONFIG_DIRS"), dirExists), ConfigFileName)
}

// configDir picks the base directory from a colon separated XDG_CONFIG_DIRS
// value. A single entry is used as is. With several entries the first one
// that exists wins.
func configDir(xdgDirs string, exists func(string) bool) string {
	if xdgDirs == "" {
		return DefaultXDGConfigDir
	}

	dirs := strings.Split(xdgDirs, ":")
	if len(dirs) == 1 {
		return dirs[0]
	}

	for _, dir := range dirs {
		if dir != "" && exists(dir) {
			return dir
		}
	}
	return DefaultXDGConfigDir
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
