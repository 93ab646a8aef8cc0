// Package paths provides XDG-compliant path resolution for chartview.
//
// Resolution order:
// 1. CHARTVIEW_HOME (portable root) → $CHARTVIEW_HOME/{config,state}
// 2. XDG env vars → $XDG_*_HOME/chartview
// 3. Platform defaults → ~/.config/chartview, ~/.local/state/chartview
package paths

import (
	"os"
	"path/filepath"
)

const appName = "chartview"

// getConfigHome returns the base config home directory.
func getConfigHome() string {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return xdgConfigHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config")
	}
	return ""
}

// getStateHome returns the base state home directory.
func getStateHome() string {
	if xdgStateHome := os.Getenv("XDG_STATE_HOME"); xdgStateHome != "" {
		return xdgStateHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".local", "state")
	}
	return ""
}

// ConfigDir returns the chartview configuration directory.
// The global chartview.yml lives here.
func ConfigDir() string {
	if home := os.Getenv("CHARTVIEW_HOME"); home != "" {
		return filepath.Join(home, "config")
	}
	base := getConfigHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, appName)
}

// StateDir returns the chartview state directory.
// Used for runtime state and logs.
func StateDir() string {
	if home := os.Getenv("CHARTVIEW_HOME"); home != "" {
		return filepath.Join(home, "state")
	}
	base := getStateHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, appName)
}

// LogDir returns the directory for default log files.
func LogDir() string {
	state := StateDir()
	if state == "" {
		return ""
	}
	return filepath.Join(state, "logs")
}

// GlobalConfigPath returns the path of the global chartview.yml.
func GlobalConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "chartview.yml")
}
