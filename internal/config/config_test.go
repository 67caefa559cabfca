package config

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func TestDefaultValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Expected default config to be valid, got %v", err)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
store:
  driver: sqlite3
  dsn: /tmp/klawiter.db
extract:
  window: 4096
  blob_ids: [3, 1]
output:
  format: parquet
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Store.Driver != "sqlite3" {
		t.Errorf("Expected driver sqlite3, got %s", cfg.Store.Driver)
	}
	if cfg.Store.TablePrefix != "zweig_" {
		t.Errorf("Expected default table prefix to survive, got %q", cfg.Store.TablePrefix)
	}
	if cfg.Extract.Window != 4096 {
		t.Errorf("Expected window 4096, got %d", cfg.Extract.Window)
	}
	if cfg.Extract.Lead != 10 {
		t.Errorf("Expected default lead 10, got %d", cfg.Extract.Lead)
	}
	if !slices.Equal(cfg.Extract.BlobIDs, []int64{3, 1}) {
		t.Errorf("Expected blob ids [3 1], got %v", cfg.Extract.BlobIDs)
	}
	if cfg.Output.Format != "parquet" {
		t.Errorf("Expected format parquet, got %s", cfg.Output.Format)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected loaded config to be valid, got %v", err)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	malformed := filepath.Join(dir, "malformed.yaml")
	if err := os.WriteFile(malformed, []byte("store: [unclosed"), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	for _, path := range []string{filepath.Join(dir, "nope.yaml"), malformed} {
		if _, err := Load(path); err == nil {
			t.Errorf("Expected error loading %s", path)
		}
	}
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvDSN, "root:@tcp(localhost:3306)/klawiter")
	t.Setenv(EnvDriver, "mysql")
	t.Setenv(EnvTablePrefix, "")
	t.Setenv(EnvOutput, "/data/out")

	cfg := Default()
	cfg.Store.Driver = "sqlite3"
	cfg.ApplyEnv()

	if cfg.Store.DSN != "root:@tcp(localhost:3306)/klawiter" {
		t.Errorf("Expected DSN from environment, got %q", cfg.Store.DSN)
	}
	if cfg.Store.Driver != "mysql" {
		t.Errorf("Expected driver mysql, got %s", cfg.Store.Driver)
	}
	if cfg.Store.TablePrefix != "" {
		t.Errorf("Expected empty table prefix, got %q", cfg.Store.TablePrefix)
	}
	if cfg.Output.Dir != "/data/out" {
		t.Errorf("Expected output dir /data/out, got %s", cfg.Output.Dir)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"driver", func(c *Config) { c.Store.Driver = "postgres" }},
		{"encoding", func(c *Config) { c.Extract.Encoding = "ebcdic" }},
		{"unescape", func(c *Config) { c.Extract.Unescape = "shell" }},
		{"format", func(c *Config) { c.Output.Format = "xml" }},
		{"window", func(c *Config) { c.Extract.Window = 0 }},
		{"window not larger than lead", func(c *Config) { c.Extract.Window = 10 }},
		{"max window", func(c *Config) { c.Extract.MaxWindow = 100 }},
		{"batch size", func(c *Config) { c.Extract.BatchSize = -1 }},
		{"lead", func(c *Config) { c.Extract.Lead = -5 }},
		{"sample", func(c *Config) { c.Extract.Sample = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Expected validation error, got nil")
			}
		})
	}

	cfg := Default()
	cfg.Store.Driver = ""
	cfg.Store.Dumps = []string{"zt_00.sql.gz"}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected dump files to need no driver, got %v", err)
	}
}
