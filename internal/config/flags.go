package config

import "flag"

var (
	flagConfig     = flag.String("config", "", "Path to config file (.yaml or .toml)")
	flagDebug      = flag.Bool("debug", false, "Enable debug logging")
	flagBudget     = flag.Int("budget", -1, "Texels read back per frame")
	flagStateLimit = flag.Int("state-limit", 0, "Undo states kept per target")
	flagStateMode  = flag.String("state-mode", "", "Undo state mode: full or local")
	flagSync       = flag.Bool("sync", false, "Disable asynchronous readback")
	flagJournal    = flag.String("journal", "", "Record commands to this sqlite file")
	flagMetrics    = flag.String("metrics", "", "Serve prometheus metrics on this address")
)

// ParseFlags parses command-line flags. Call this early in main().
func ParseFlags() {
	flag.Parse()
}

// ConfigPath returns the explicit config path if provided via --config flag.
func ConfigPath() string {
	return *flagConfig
}

// Args returns the positional arguments left after flag parsing.
func Args() []string {
	return flag.Args()
}

// applyFlags applies CLI flag overrides to the config.
func applyFlags(cfg *Config) {
	if *flagDebug {
		cfg.Logging.Level = "debug"
	}
	if *flagBudget >= 0 {
		cfg.Paint.ReadPixelsBudget = *flagBudget
	}
	if *flagStateLimit != 0 {
		cfg.Paint.StateLimit = *flagStateLimit
	}
	if *flagStateMode != "" {
		cfg.Paint.StateMode = *flagStateMode
	}
	if *flagSync {
		cfg.Paint.AsyncReadback = false
	}
	if *flagJournal != "" {
		cfg.Journal.Path = *flagJournal
	}
	if *flagMetrics != "" {
		cfg.Metrics.Listen = *flagMetrics
	}
}
