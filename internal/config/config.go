package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the data directory.
const FileName = "config.yaml"

// Storage backends for the session token.
const (
	StorageFile   = "file"
	StorageSQLite = "sqlite"
	StorageMemory = "memory"
)

// Environment variables read by ApplyEnv.
const (
	EnvServer  = "GESTION_SERVER"
	EnvStorage = "GESTION_STORAGE"
)

// Config holds configuration for the gestion CLI.
type Config struct {
	Server        string        `yaml:"server"`         // API base URL
	Storage       string        `yaml:"storage"`        // file, sqlite or memory
	DataDir       string        `yaml:"data_dir"`       // credentials and database location (default ~/.gestion)
	LogLevel      string        `yaml:"log_level"`      // debug, info, warn, error
	LogFormat     string        `yaml:"log_format"`     // text, json
	RedirectDelay time.Duration `yaml:"redirect_delay"` // pause before leaving a rejected session
}

// Default returns sensible defaults.
func Default() Config {
	return Config{
		Server:        "http://127.0.0.1:3000",
		Storage:       StorageFile,
		DataDir:       DefaultDataDir(),
		LogLevel:      "info",
		LogFormat:     "text",
		RedirectDelay: 500 * time.Millisecond,
	}
}

// DefaultDataDir returns ~/.gestion, or .gestion when the home directory
// is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gestion"
	}
	return filepath.Join(home, ".gestion")
}

// Load reads a YAML file over cfg. A missing file is not an error unless
// required is set.
func Load(cfg Config, path string, required bool) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !required {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overrides cfg with GESTION_* variables.
func ApplyEnv(cfg Config, getenv func(string) string) Config {
	if v := strings.TrimSpace(getenv(EnvServer)); v != "" {
		cfg.Server = v
	}
	if v := strings.TrimSpace(getenv(EnvStorage)); v != "" {
		cfg.Storage = v
	}
	return cfg
}

// Validate checks that the configuration can be used.
func (c Config) Validate() error {
	u, err := url.Parse(c.Server)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid server URL %q", c.Server)
	}
	switch c.Storage {
	case StorageFile, StorageSQLite, StorageMemory:
	default:
		return fmt.Errorf("unknown storage %q (want %s, %s or %s)", c.Storage, StorageFile, StorageSQLite, StorageMemory)
	}
	if c.RedirectDelay < 0 {
		return fmt.Errorf("redirect_delay must not be negative")
	}
	return nil
}

// Path returns the default config file location.
func (c Config) Path() string {
	return filepath.Join(c.DataDir, FileName)
}
