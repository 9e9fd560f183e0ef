package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// envPrefix namespaces the environment, e.g. AMPLIPI_PREFS_ADDR.
const envPrefix = "amplipi_prefs"

// Config is the daemon configuration. Values come from the environment
// (optionally via a .env file) and are overridden by command-line flags.
type Config struct {
	Addr       string  `envconfig:"ADDR" default:":8080"`
	ConfigDir  string  `envconfig:"CONFIG_DIR"`
	Store      string  `envconfig:"STORE" default:"json"`
	Debug      bool    `envconfig:"DEBUG"`
	LogFile    string  `envconfig:"LOG_FILE"`
	WriteRate  float64 `envconfig:"WRITE_RATE" default:"20"`
	WriteBurst int     `envconfig:"WRITE_BURST" default:"40"`
	Zeroconf   bool    `envconfig:"ZEROCONF" default:"true"`
	Name       string  `envconfig:"NAME"`
}

func loadConfig(args []string) (Config, error) {
	// A missing .env is fine.
	_ = godotenv.Load(".env")

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return cfg, err
	}

	fs := flag.NewFlagSet("amplipi-prefs", flag.ContinueOnError)
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "HTTP listen address")
	fs.StringVar(&cfg.ConfigDir, "config-dir", cfg.ConfigDir, "config directory (default: ~/.config/amplipi)")
	fs.StringVar(&cfg.Store, "store", cfg.Store, "backing store: json, sqlite or memory")
	fs.BoolVar(&cfg.Debug, "debug", cfg.Debug, "enable debug logging")
	fs.StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "also write logs to this rotated file")
	fs.Float64Var(&cfg.WriteRate, "write-rate", cfg.WriteRate, "max setting writes per second through the API (0 disables the limit)")
	fs.IntVar(&cfg.WriteBurst, "write-burst", cfg.WriteBurst, "burst size for the API write limit")
	fs.BoolVar(&cfg.Zeroconf, "zeroconf", cfg.Zeroconf, "advertise the API over mDNS")
	fs.StringVar(&cfg.Name, "name", cfg.Name, "mDNS instance name (default: hostname)")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	switch cfg.Store {
	case "json", "sqlite", "memory":
	default:
		return cfg, fmt.Errorf("unknown store %q (want json, sqlite or memory)", cfg.Store)
	}
	if cfg.WriteRate < 0 || cfg.WriteBurst < 0 {
		return cfg, fmt.Errorf("write limit must not be negative")
	}

	if cfg.ConfigDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cfg, fmt.Errorf("cannot determine home directory: %w", err)
		}
		cfg.ConfigDir = filepath.Join(home, ".config", "amplipi")
	}
	if cfg.Name == "" {
		cfg.Name, _ = os.Hostname()
	}
	return cfg, nil
}
