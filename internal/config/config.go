// Package config handles paintcore configuration loading and management.
package config

// Config holds all engine settings.
type Config struct {
	Paint   PaintConfig   `yaml:"paint" toml:"paint"`
	Logging LoggingConfig `yaml:"logging" toml:"logging"`
	Journal JournalConfig `yaml:"journal" toml:"journal"`
	Metrics MetricsConfig `yaml:"metrics" toml:"metrics"`
}

// PaintConfig holds scheduler, history and readback settings.
type PaintConfig struct {
	ReadPixelsBudget int    `yaml:"read_pixels_budget" toml:"read_pixels_budget"` // Texels read back per frame
	StateLimit       int    `yaml:"state_limit" toml:"state_limit"`               // Undo states per target
	StateMode        string `yaml:"state_mode" toml:"state_mode"`                 // "full" or "local"
	DownsampleSteps  int    `yaml:"downsample_steps" toml:"downsample_steps"`     // Counter downsampling
	AsyncReadback    bool   `yaml:"async_readback" toml:"async_readback"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" toml:"level"`
	LogFile string `yaml:"log_file" toml:"log_file"`
}

// JournalConfig holds command journal settings. An empty path disables it.
type JournalConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// MetricsConfig holds the prometheus endpoint. An empty address disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen" toml:"listen"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Paint: PaintConfig{
			ReadPixelsBudget: 4096,
			StateLimit:       10,
			StateMode:        "full",
			DownsampleSteps:  3,
			AsyncReadback:    true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
