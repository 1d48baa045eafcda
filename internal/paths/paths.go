package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	xdgConfigHome = "XDG_CONFIG_HOME"
	dotConfig     = ".config"
	appName       = "whoopsync"
	dbName        = "whoopsync.db"
)

// Dir is $XDG_CONFIG_HOME/whoopsync, falling back to ~/.config/whoopsync on
// every platform so the database is easy to find.
func Dir() (string, error) {
	if xdg := os.Getenv(xdgConfigHome); filepath.IsAbs(xdg) {
		return filepath.Join(xdg, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, dotConfig, appName), nil
}

func EnsureDir() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", appName, err)
	}
	return dir, nil
}

// DB returns the default database path, creating its directory.
func DB() (string, error) {
	dir, err := EnsureDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, dbName), nil
}

// DBOrDefault returns override when set, otherwise the default database path.
func DBOrDefault(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	return DB()
}
