package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/Faultbox/paintcore/internal/paint"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	cfg := Default()

	// Explicit path takes priority
	configPath := ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}

	applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the engine cannot run with.
func (c *Config) Validate() error {
	if _, ok := paint.ParseStateMode(c.Paint.StateMode); !ok {
		return fmt.Errorf("paint.state_mode: unknown mode %q", c.Paint.StateMode)
	}
	if c.Paint.ReadPixelsBudget < 0 {
		return fmt.Errorf("paint.read_pixels_budget: must not be negative, got %d", c.Paint.ReadPixelsBudget)
	}
	return nil
}

// StateMode returns the parsed paint.state_mode.
func (c *Config) StateMode() paint.StateMode {
	mode, _ := paint.ParseStateMode(c.Paint.StateMode)
	return mode
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./paintcore.yaml",
		"./paintcore.toml",
		filepath.Join(ConfigDir(), "config.yaml"),
		filepath.Join(ConfigDir(), "config.toml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Paintcore")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Paintcore")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "paintcore")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "paintcore")
	}
}

// loadFromFile merges a YAML or TOML file into cfg, picked by extension.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		_, err := toml.Decode(string(data), cfg)
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
