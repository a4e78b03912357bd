// Package paths resolves where typegraph keeps its configuration and its
// database.
//
// A project directory is any directory holding a .typegraph config dir.
// Commands run anywhere below it pick it up, the same way git finds .git.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

// Directory names relative to a project root.
const (
	ConfigDirName = ".typegraph"
	DataDirName   = ".typegraph-db"
	appName       = "typegraph"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "TYPEGRAPH_CONFIG_DIR"
	EnvDataDir   = "TYPEGRAPH_DATA_DIR"
)

// platformDir holds platform lookups that tests override.
var platformDir = struct {
	goos          string
	getwd         func() (string, error)
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	goos:          runtime.GOOS,
	getwd:         os.Getwd,
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// xdgDir returns $env/typegraph, else ~/fallback/typegraph on Linux and
// the user config dir elsewhere.
func xdgDir(env string, fallback ...string) (string, error) {
	if platformDir.goos != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, appName), nil
	}
	if v := os.Getenv(env); v != "" {
		return filepath.Join(v, appName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(append(append([]string{home}, fallback...), appName)...), nil
}

// DefaultConfigDir returns the platform configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/typegraph (fallback ~/.config/typegraph)
// macOS:   ~/Library/Application Support/typegraph
// Windows: %APPDATA%/typegraph
func DefaultConfigDir() (string, error) {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform data directory.
//
// Linux:   $XDG_DATA_HOME/typegraph (fallback ~/.local/share/typegraph)
// macOS and Windows: same as the config dir.
func DefaultDataDir() (string, error) {
	return xdgDir("XDG_DATA_HOME", ".local", "share")
}

// FindProjectRoot walks up from the working directory and returns the first
// directory containing a .typegraph directory. ok is false when none does.
func FindProjectRoot() (string, bool, error) {
	dir, err := platformDir.getwd()
	if err != nil {
		return "", false, err
	}
	for {
		info, err := os.Stat(filepath.Join(dir, ConfigDirName))
		if err == nil && info.IsDir() {
			return dir, true, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false, nil
		}
		dir = parent
	}
}

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > TYPEGRAPH_CONFIG_DIR > enclosing project >
// DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	root, ok, err := FindProjectRoot()
	if err != nil {
		return "", err
	}
	if ok {
		return filepath.Join(root, ConfigDirName), nil
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the data directory following the precedence chain:
// flag > config.yaml data_dir > TYPEGRAPH_DATA_DIR > enclosing project >
// $(CWD)/.typegraph-db.
//
// A relative data_dir from config.yaml is taken relative to the directory
// holding configDir, so a checked-in config works from any subdirectory.
func ResolveDataDir(flag, configValue, configDir string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if configValue != "" {
		if !filepath.IsAbs(configValue) && configDir != "" {
			return filepath.Join(filepath.Dir(configDir), configValue), nil
		}
		return filepath.Abs(configValue)
	}
	if env := os.Getenv(EnvDataDir); env != "" {
		return filepath.Abs(env)
	}
	root, ok, err := FindProjectRoot()
	if err != nil {
		return "", err
	}
	if ok {
		return filepath.Join(root, DataDirName), nil
	}
	cwd, err := platformDir.getwd()
	if err != nil {
		return "", err
	}
	return filepath.Join(cwd, DataDirName), nil
}
