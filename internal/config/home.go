package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnv overrides the dong home directory.
const HomeEnv = "DONG_HOME"

// GetHome returns the dong home directory, creating it if needed.
// Priority order:
//  1. DONG_HOME environment variable (if set)
//  2. ~/.dong
//  3. ./.dong when the user home cannot be determined
func GetHome() (string, error) {
	home, err := homeDir()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create dong home directory: %w", err)
	}
	return home, nil
}

func homeDir() (string, error) {
	if home := os.Getenv(HomeEnv); home != "" {
		return home, nil
	}
	if userHome, err := os.UserHomeDir(); err == nil && userHome != "" {
		return filepath.Join(userHome, ".dong"), nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	return filepath.Join(cwd, ".dong"), nil
}

// Load resolves the home directory and loads its config.yaml with relative
// paths resolved against it. An explicit path, when non-empty, is used
// instead of the home config file.
func Load(explicitPath string) (*Config, string, error) {
	home, err := GetHome()
	if err != nil {
		return nil, "", err
	}

	var cfg *Config
	if explicitPath != "" {
		cfg, err = LoadConfig(explicitPath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config from %s: %w", explicitPath, err)
		}
	} else {
		cfg, err = LoadConfigFromDir(home)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load config: %w", err)
		}
	}
	cfg.ResolvePaths(home)
	return cfg, home, nil
}
