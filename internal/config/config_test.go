package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.Storage != StorageFile {
		t.Errorf("Storage = %q, want file", cfg.Storage)
	}
	if cfg.RedirectDelay != 500*time.Millisecond {
		t.Errorf("RedirectDelay = %v", cfg.RedirectDelay)
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	data := "server: https://gestion.example.com\nstorage: sqlite\nredirect_delay: 250ms\n"
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(Default(), path, true)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server != "https://gestion.example.com" || cfg.Storage != StorageSQLite {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.RedirectDelay != 250*time.Millisecond {
		t.Errorf("RedirectDelay = %v, want 250ms", cfg.RedirectDelay)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("unset field lost its default: LogFormat = %q", cfg.LogFormat)
	}
}

func TestLoad_Missing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.yaml")

	cfg, err := Load(Default(), path, false)
	if err != nil {
		t.Fatalf("optional missing file: %v", err)
	}
	if cfg.Server != Default().Server {
		t.Errorf("Server = %q", cfg.Server)
	}

	if _, err := Load(Default(), path, true); err == nil {
		t.Error("expected error for required missing file")
	}
}

func TestLoad_Malformed(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	os.WriteFile(path, []byte("server: [unclosed\n"), 0600)

	if _, err := Load(Default(), path, false); err == nil || !strings.Contains(err.Error(), "parse config file") {
		t.Errorf("err = %v, want parse error", err)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		EnvServer:  "http://10.0.0.5:3000",
		EnvStorage: " memory ",
	}
	cfg := ApplyEnv(Default(), func(k string) string { return env[k] })
	if cfg.Server != "http://10.0.0.5:3000" || cfg.Storage != StorageMemory {
		t.Errorf("cfg = %+v", cfg)
	}

	unchanged := ApplyEnv(Default(), func(string) string { return "" })
	if unchanged.Server != Default().Server {
		t.Errorf("empty env changed Server to %q", unchanged.Server)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"ok", func(*Config) {}, false},
		{"relative server", func(c *Config) { c.Server = "localhost:3000" }, true},
		{"unknown storage", func(c *Config) { c.Storage = "redis" }, true},
		{"negative delay", func(c *Config) { c.RedirectDelay = -time.Second }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
