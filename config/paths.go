package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
)

const (
	appDirName     = "WindSend"
	configFileName = "config.yaml"
	tlsDirName     = "tls"
	logDirName     = "logs"
	iconFileName   = "icon-192.png"
)

// Paths locates the on-disk artifacts of one installation.
type Paths struct {
	ConfigFile string
	TLSDir     string
	LogDir     string
}

// DefaultPaths returns the paths for goos. macOS keeps everything under the
// user's application support and log directories; other systems use paths
// relative to the working directory.
func DefaultPaths(goos string) Paths {
	return pathsFor(goos, os.UserConfigDir, os.UserHomeDir)
}

// CurrentPaths returns DefaultPaths for the running OS.
func CurrentPaths() Paths {
	return DefaultPaths(runtime.GOOS)
}

func pathsFor(goos string, configDir, homeDir func() (string, error)) Paths {
	relative := Paths{
		ConfigFile: configFileName,
		TLSDir:     "./" + tlsDirName,
		LogDir:     "./" + logDirName,
	}
	if goos != "darwin" {
		return relative
	}

	paths := relative
	if dir, err := configDir(); err == nil {
		paths.ConfigFile = filepath.Join(dir, appDirName, configFileName)
		paths.TLSDir = filepath.Join(dir, appDirName, tlsDirName)
	}
	if home, err := homeDir(); err == nil {
		paths.LogDir = filepath.Join(home, "Library", "Logs", appDirName, logDirName)
	}
	return paths
}

// DesktopPath returns the user's desktop directory if it exists.
func DesktopPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	desktop := filepath.Join(home, "Desktop")
	info, err := os.Stat(desktop)
	if err != nil {
		return "", fmt.Errorf("failed to stat desktop directory: %w", err)
	}
	if !info.IsDir() {
		return "", errors.New("desktop path is not a directory")
	}
	return desktop, nil
}

// AppIconPath returns the icon location next to the working directory,
// or "./icon-192.png" if the working directory is unknown.
func AppIconPath(log *slog.Logger) string {
	wd, err := os.Getwd()
	if err != nil {
		log.Warn("Failed to get current directory, using relative icon path", "err", err)
		return "./" + iconFileName
	}
	return filepath.Join(wd, iconFileName)
}
