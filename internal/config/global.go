package config

import (
	"os"
	"path/filepath"
)

const (
	// AppDir is the directory name under XDG_CONFIG_HOME and XDG_DATA_HOME.
	AppDir = "gaiaoffline"
	// ConfigFile is the config file name.
	ConfigFile = "config.yml"
)

// Path returns the path to the settings file.
// Respects GAIAOFFLINE_CONFIG, then XDG_CONFIG_HOME, defaulting to
// ~/.config/gaiaoffline/config.yml.
func Path() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return ExpandPath(p)
	}
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ConfigFile
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, AppDir, ConfigFile)
}

// DefaultDataDir returns the default database directory.
// Respects XDG_DATA_HOME, defaulting to ~/.local/share/gaiaoffline.
func DefaultDataDir() string {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, AppDir)
	}
	return "~/.local/share/" + AppDir
}

// ExpandPath expands ~ to the user's home directory.
// Returns the original path unchanged if it doesn't start with ~.
func ExpandPath(path string) string {
	if len(path) == 0 || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path // Return original if we can't get home directory
	}

	return filepath.Join(home, path[1:])
}
