// Package config loads wikiblob settings from YAML, the environment and
// command-line flags, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

// AppName is used for the config directory.
const AppName = "wikiblob"

// Config is the full set of settings.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Extract ExtractConfig `yaml:"extract"`
	Output  OutputConfig  `yaml:"output"`
}

// StoreConfig selects where blobs and page metadata come from.
type StoreConfig struct {
	Driver      string `yaml:"driver"`
	DSN         string `yaml:"dsn"`
	TablePrefix string `yaml:"table_prefix"`
	// Dumps, when set, loads blobs from these dump files into memory
	// instead of querying a database.
	Dumps []string `yaml:"dumps,omitempty"`
	// Pages is a CSV of page_id, page_title, content_address used with
	// Dumps, since dump files carry no page metadata.
	Pages string `yaml:"pages,omitempty"`
}

// ExtractConfig tunes lookups and batch runs.
type ExtractConfig struct {
	Encoding      string  `yaml:"encoding"`
	Unescape      string  `yaml:"unescape"`
	Window        int64   `yaml:"window"`
	Lead          int64   `yaml:"lead"`
	MaxWindow     int64   `yaml:"max_window"`
	MaxCandidates int     `yaml:"max_candidates"`
	BatchSize     int     `yaml:"batch_size"`
	ProgressEvery int     `yaml:"progress_every"`
	Limit         int     `yaml:"limit"`
	Sample        int     `yaml:"sample"`
	Namespace     int     `yaml:"namespace"`
	BlobIDs       []int64 `yaml:"blob_ids,omitempty"`
}

// OutputConfig controls where results are written.
type OutputConfig struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format"`
}

// Default returns the built-in settings.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Driver:      "mysql",
			TablePrefix: "zweig_",
		},
		Extract: ExtractConfig{
			Encoding:      "latin1",
			Unescape:      "quotes",
			Window:        2000,
			Lead:          10,
			MaxWindow:     1 << 20,
			MaxCandidates: 8,
			BatchSize:     500,
			ProgressEvery: 50,
		},
		Output: OutputConfig{
			Dir:    "output",
			Format: "csv",
		},
	}
}

// DefaultPath is $XDG_CONFIG_HOME/wikiblob/config.yaml.
func DefaultPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// Load reads path over the defaults. An empty path reads DefaultPath if it
// exists; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return cfg, nil
}

// Environment variables that override file settings.
const (
	EnvDSN         = "WIKIBLOB_DSN"
	EnvDriver      = "WIKIBLOB_DRIVER"
	EnvTablePrefix = "WIKIBLOB_TABLE_PREFIX"
	EnvOutput      = "WIKIBLOB_OUTPUT"
)

// ApplyEnv overrides settings from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvDSN); v != "" {
		c.Store.DSN = v
	}
	if v := os.Getenv(EnvDriver); v != "" {
		c.Store.Driver = v
	}
	if v, ok := os.LookupEnv(EnvTablePrefix); ok {
		c.Store.TablePrefix = v
	}
	if v := os.Getenv(EnvOutput); v != "" {
		c.Output.Dir = v
	}
}

// Validate checks the settings for values no run can use.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Store.Dumps) == 0 {
		switch c.Store.Driver {
		case "mysql", "sqlite3":
		default:
			errs = append(errs, fmt.Errorf("unsupported store driver %q (supported: mysql, sqlite3)", c.Store.Driver))
		}
	}
	switch strings.ToLower(c.Extract.Encoding) {
	case "latin1", "iso-8859-1", "cp1252", "windows-1252", "utf-8", "utf8":
	default:
		errs = append(errs, fmt.Errorf("unsupported encoding %q", c.Extract.Encoding))
	}
	switch c.Extract.Unescape {
	case "quotes", "mysql":
	default:
		errs = append(errs, fmt.Errorf("unsupported unescape mode %q (supported: quotes, mysql)", c.Extract.Unescape))
	}
	switch c.Output.Format {
	case "csv", "jsonl", "parquet":
	default:
		errs = append(errs, fmt.Errorf("unsupported output format %q (supported: csv, jsonl, parquet)", c.Output.Format))
	}

	positive := map[string]int64{
		"window":         c.Extract.Window,
		"max_window":     c.Extract.MaxWindow,
		"max_candidates": int64(c.Extract.MaxCandidates),
		"batch_size":     int64(c.Extract.BatchSize),
		"progress_every": int64(c.Extract.ProgressEvery),
	}
	for _, name := range []string{"window", "max_window", "max_candidates", "batch_size", "progress_every"} {
		if positive[name] <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", name, positive[name]))
		}
	}
	if c.Extract.MaxWindow < c.Extract.Window {
		errs = append(errs, fmt.Errorf("max_window %d is smaller than window %d", c.Extract.MaxWindow, c.Extract.Window))
	}
	if c.Extract.Lead < 0 {
		errs = append(errs, fmt.Errorf("lead must not be negative, got %d", c.Extract.Lead))
	}
	if c.Extract.Window > 0 && c.Extract.Window <= c.Extract.Lead {
		errs = append(errs, fmt.Errorf("window %d must be larger than lead %d", c.Extract.Window, c.Extract.Lead))
	}
	if c.Extract.Limit < 0 || c.Extract.Sample < 0 {
		errs = append(errs, errors.New("limit and sample must not be negative"))
	}
	return errors.Join(errs...)
}
