package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
)

const (
	// ProjectConfigFile is the project-level config file name, searched
	// upward from the working directory.
	ProjectConfigFile = "specdrift.yaml"
	// UserConfigDir is the user-level config directory under $HOME.
	UserConfigDir = ".config/specdrift"
	// UserConfigFile is the user-level config file name.
	UserConfigFile = "config.yaml"
)

// Loader loads configuration with layered precedence.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a configuration loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load builds the effective configuration: defaults, then the user
// config (~/.config/specdrift/config.yaml), then the project config
// (specdrift.yaml in the working directory or a parent). The result is
// NOT validated; callers overlay CLI flags first and validate after.
func (l *Loader) Load() (*Config, error) {
	config := DefaultConfig()

	userPath := l.userConfigPath()
	if userPath != "" {
		if userConfig, err := LoadFromFile(userPath); err == nil {
			l.logger.Debug("loaded user config", slog.String("path", userPath))
			config.Merge(userConfig)
		} else if !errors.Is(err, os.ErrNotExist) {
			l.logger.Warn("failed to load user config",
				slog.String("path", userPath),
				slog.String("error", err.Error()))
		}
	}

	projectPath := l.findProjectConfig()
	if projectPath == "" {
		l.logger.Debug("no project config found")
		return config, nil
	}
	projectConfig, err := LoadFromFile(projectPath)
	if err != nil {
		l.logger.Warn("failed to load project config",
			slog.String("path", projectPath),
			slog.String("error", err.Error()))
		return config, nil
	}
	l.logger.Debug("loaded project config", slog.String("path", projectPath))
	config.Merge(projectConfig)
	return config, nil
}

// EnsureUserConfig writes a default user config file if none exists.
func (l *Loader) EnsureUserConfig() error {
	path := l.userConfigPath()
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := DefaultConfig().SaveToFile(path); err != nil {
		return err
	}
	l.logger.Info("created default user config", slog.String("path", path))
	return nil
}

func (l *Loader) userConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, UserConfigDir, UserConfigFile)
}

// findProjectConfig walks from the working directory toward the root
// looking for specdrift.yaml.
func (l *Loader) findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		path := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(path); err == nil {
			return path
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
