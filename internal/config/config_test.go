package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Faultbox/paintcore/internal/paint"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Paint.ReadPixelsBudget != 4096 {
		t.Errorf("expected budget 4096, got %d", cfg.Paint.ReadPixelsBudget)
	}
	if cfg.Paint.StateLimit != 10 {
		t.Errorf("expected state limit 10, got %d", cfg.Paint.StateLimit)
	}
	if cfg.StateMode() != paint.FullTextureCopy {
		t.Errorf("expected full texture copy, got %v", cfg.StateMode())
	}
	if cfg.Paint.DownsampleSteps != 3 {
		t.Errorf("expected 3 downsample steps, got %d", cfg.Paint.DownsampleSteps)
	}
	if !cfg.Paint.AsyncReadback {
		t.Error("expected async readback to be enabled by default")
	}

	if cfg.Logging.Level != "info" {
		t.Errorf("expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Journal.Path != "" || cfg.Metrics.Listen != "" {
		t.Error("expected journal and metrics to be disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadFromFile(t *testing.T) {
	tmpDir := t.TempDir()

	yamlContent := `
paint:
  read_pixels_budget: 1024
  state_limit: 25
  state_mode: local
  downsample_steps: 1
  async_readback: false

logging:
  level: "debug"
  log_file: "paint.log"

journal:
  path: "session.db"

metrics:
  listen: ":9100"
`
	tomlContent := `
[paint]
read_pixels_budget = 1024
state_limit = 25
state_mode = "local"
downsample_steps = 1
async_readback = false

[logging]
level = "debug"
log_file = "paint.log"

[journal]
path = "session.db"

[metrics]
listen = ":9100"
`

	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"yaml", "config.yaml", yamlContent},
		{"toml", "config.toml", tomlContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(tmpDir, tt.file)
			if err := os.WriteFile(configPath, []byte(tt.content), 0o644); err != nil {
				t.Fatalf("failed to write test config: %v", err)
			}

			cfg := Default()
			if err := loadFromFile(cfg, configPath); err != nil {
				t.Fatalf("failed to load config: %v", err)
			}

			if cfg.Paint.ReadPixelsBudget != 1024 {
				t.Errorf("expected budget 1024, got %d", cfg.Paint.ReadPixelsBudget)
			}
			if cfg.Paint.StateLimit != 25 {
				t.Errorf("expected state limit 25, got %d", cfg.Paint.StateLimit)
			}
			if cfg.StateMode() != paint.LocalCommandCopy {
				t.Errorf("expected local command copy, got %v", cfg.StateMode())
			}
			if cfg.Paint.DownsampleSteps != 1 {
				t.Errorf("expected 1 downsample step, got %d", cfg.Paint.DownsampleSteps)
			}
			if cfg.Paint.AsyncReadback {
				t.Error("expected async readback to be disabled")
			}
			if cfg.Logging.Level != "debug" {
				t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
			}
			if cfg.Logging.LogFile != "paint.log" {
				t.Errorf("expected log file 'paint.log', got %s", cfg.Logging.LogFile)
			}
			if cfg.Journal.Path != "session.db" {
				t.Errorf("expected journal 'session.db', got %s", cfg.Journal.Path)
			}
			if cfg.Metrics.Listen != ":9100" {
				t.Errorf("expected metrics ':9100', got %s", cfg.Metrics.Listen)
			}
		})
	}
}

func TestLoadFromFileInvalid(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		file    string
		content string
	}{
		{"invalid.yaml", "paint:\n  state_limit: not a number\n  invalid syntax here\n"},
		{"invalid.toml", "[paint\nstate_limit = \n"},
	}

	for _, tt := range tests {
		configPath := filepath.Join(tmpDir, tt.file)
		if err := os.WriteFile(configPath, []byte(tt.content), 0o644); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg := Default()
		if err := loadFromFile(cfg, configPath); err == nil {
			t.Errorf("%s: expected error, got nil", tt.file)
		}
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg := Default()
	err := loadFromFile(cfg, "/nonexistent/path/config.yaml")
	if err == nil {
		t.Error("expected error loading missing file, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"local mode", func(c *Config) { c.Paint.StateMode = "local" }, false},
		{"unknown mode", func(c *Config) { c.Paint.StateMode = "diff" }, true},
		{"negative budget", func(c *Config) { c.Paint.ReadPixelsBudget = -1 }, true},
		{"zero budget", func(c *Config) { c.Paint.ReadPixelsBudget = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestConfigDir(t *testing.T) {
	dir := ConfigDir()

	if dir == "" {
		t.Error("ConfigDir returned empty string")
	}
	if !filepath.IsAbs(dir) {
		t.Errorf("ConfigDir should return absolute path, got %s", dir)
	}
}

func TestFindConfigFile(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	tmpDir := t.TempDir()
	origDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(tmpDir); err != nil {
		t.Fatalf("failed to chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(origDir) })

	// No config file exists - should return empty
	if path := findConfigFile(); path != "" {
		t.Errorf("expected empty path when no config exists, got %s", path)
	}

	if err := os.WriteFile(filepath.Join(tmpDir, "paintcore.toml"), []byte("[paint]\nstate_limit = 3\n"), 0o644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}
	if path := findConfigFile(); path != "./paintcore.toml" {
		t.Errorf("expected ./paintcore.toml, got %q", path)
	}

	// YAML wins when both exist
	if err := os.WriteFile(filepath.Join(tmpDir, "paintcore.yaml"), []byte("paint:\n  state_limit: 3\n"), 0o644); err != nil {
		t.Fatalf("failed to create test config: %v", err)
	}
	if path := findConfigFile(); path != "./paintcore.yaml" {
		t.Errorf("expected ./paintcore.yaml, got %q", path)
	}
}

func TestApplyFlags(t *testing.T) {
	tests := []struct {
		name     string
		setup    func()
		verify   func(*testing.T, *Config)
		teardown func()
	}{
		{
			name:  "debug flag",
			setup: func() { *flagDebug = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Logging.Level != "debug" {
					t.Errorf("expected log level 'debug', got %s", cfg.Logging.Level)
				}
			},
			teardown: func() { *flagDebug = false },
		},
		{
			name:  "budget flag",
			setup: func() { *flagBudget = 0 },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Paint.ReadPixelsBudget != 0 {
					t.Errorf("expected budget 0, got %d", cfg.Paint.ReadPixelsBudget)
				}
			},
			teardown: func() { *flagBudget = -1 },
		},
		{
			name: "state flags",
			setup: func() {
				*flagStateLimit = 4
				*flagStateMode = "local"
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Paint.StateLimit != 4 {
					t.Errorf("expected state limit 4, got %d", cfg.Paint.StateLimit)
				}
				if cfg.StateMode() != paint.LocalCommandCopy {
					t.Errorf("expected local mode, got %v", cfg.StateMode())
				}
			},
			teardown: func() {
				*flagStateLimit = 0
				*flagStateMode = ""
			},
		},
		{
			name:  "sync flag",
			setup: func() { *flagSync = true },
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Paint.AsyncReadback {
					t.Error("expected async readback to be disabled with sync flag")
				}
			},
			teardown: func() { *flagSync = false },
		},
		{
			name: "journal and metrics flags",
			setup: func() {
				*flagJournal = "out/journal.db"
				*flagMetrics = "127.0.0.1:9090"
			},
			verify: func(t *testing.T, cfg *Config) {
				if cfg.Journal.Path != "out/journal.db" {
					t.Errorf("expected journal path, got %s", cfg.Journal.Path)
				}
				if cfg.Metrics.Listen != "127.0.0.1:9090" {
					t.Errorf("expected metrics address, got %s", cfg.Metrics.Listen)
				}
			},
			teardown: func() {
				*flagJournal = ""
				*flagMetrics = ""
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setup()
			defer tt.teardown()

			cfg := Default()
			applyFlags(cfg)
			tt.verify(t, cfg)
		})
	}
}

func TestLoadPriority(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
paint:
  read_pixels_budget: 2048
  state_limit: 5
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}

	// Set flag to override config file
	*flagConfig = configPath
	*flagStateLimit = 20
	defer func() {
		*flagConfig = ""
		*flagStateLimit = 0
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	// State limit from flag, budget from file
	if cfg.Paint.StateLimit != 20 {
		t.Errorf("expected state limit 20 from flag, got %d", cfg.Paint.StateLimit)
	}
	if cfg.Paint.ReadPixelsBudget != 2048 {
		t.Errorf("expected budget 2048 from file, got %d", cfg.Paint.ReadPixelsBudget)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte("paint:\n  state_mode: diff\n"), 0o644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	*flagConfig = configPath
	defer func() { *flagConfig = "" }()

	if _, err := Load(); err == nil {
		t.Error("expected an unknown state mode to fail loading")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()

	for _, name := range []string{"out/config.yaml", "out/config.toml"} {
		cfg := Default()
		cfg.Paint.StateMode = "local"
		cfg.Journal.Path = "j.db"

		path := filepath.Join(tmpDir, name)
		if err := cfg.SaveTo(path); err != nil {
			t.Fatalf("%s: save failed: %v", name, err)
		}

		loaded := &Config{}
		if err := loadFromFile(loaded, path); err != nil {
			t.Fatalf("%s: load failed: %v", name, err)
		}
		if *loaded != *cfg {
			t.Errorf("%s: expected %+v, got %+v", name, *cfg, *loaded)
		}
	}
}
