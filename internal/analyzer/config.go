package analyzer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/penwyp/go-alloc-timeline/internal/core/allocation"
	"github.com/penwyp/go-alloc-timeline/internal/core/resample"
	"github.com/penwyp/go-alloc-timeline/internal/data/watcher"
	"github.com/penwyp/go-alloc-timeline/internal/presentation/formatter"
)

const (
	DefaultCacheDir = "~/.go-alloc-timeline/cache"
	DefaultLogFile  = "~/.go-alloc-timeline/logs/app.log"
)

// Config carries every option of a run. Defaults come from ALLOC_* env vars;
// command-line flags override them.
type Config struct {
	DataDir  string `env:"ALLOC_DATA_DIR" envDefault:"."`
	File     string `env:"ALLOC_FILE"`
	CacheDir string `env:"ALLOC_CACHE_DIR" envDefault:"~/.go-alloc-timeline/cache"`
	NoCache  bool   `env:"ALLOC_NO_CACHE"`
	LogFile  string `env:"ALLOC_LOG_FILE" envDefault:"~/.go-alloc-timeline/logs/app.log"`
	LogLevel string `env:"ALLOC_LOG_LEVEL" envDefault:"info"`

	OutputFormat string  `env:"ALLOC_OUTPUT" envDefault:"table"`
	Timezone     string  `env:"ALLOC_TIMEZONE" envDefault:"UTC"`
	Groups       []int64 `env:"ALLOC_GROUPS" envSeparator:","`
	Limit        int     `env:"ALLOC_LIMIT"`

	SubgroupMode       string `env:"ALLOC_SUBGROUP_MODE" envDefault:"all"`
	Lookback           string `env:"ALLOC_LOOKBACK" envDefault:"all"`
	FreezeStale        bool   `env:"ALLOC_FREEZE_STALE"`
	InvisibleSubgroups string `env:"ALLOC_INVISIBLE_SUBGROUPS" envDefault:"exclude"`

	Concurrency   int           `env:"ALLOC_CONCURRENCY"`
	WatchDebounce time.Duration `env:"ALLOC_WATCH_DEBOUNCE" envDefault:"500ms"`
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	return &cfg, nil
}

// Validate fills unset fields with defaults, expands paths and rejects
// unknown option values.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		c.DataDir = "."
	}
	if c.CacheDir == "" {
		c.CacheDir = DefaultCacheDir
	}
	if c.OutputFormat == "" {
		c.OutputFormat = formatter.FormatTable
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.WatchDebounce <= 0 {
		c.WatchDebounce = watcher.DefaultDebounce
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative, got %d", c.Concurrency)
	}
	if c.Limit < 0 {
		return fmt.Errorf("limit must not be negative, got %d", c.Limit)
	}

	c.DataDir = ExpandPath(c.DataDir)
	c.CacheDir = ExpandPath(c.CacheDir)
	if c.File != "" {
		c.File = ExpandPath(c.File)
	}
	if c.LogFile != "" {
		c.LogFile = ExpandPath(c.LogFile)
	}

	switch strings.ToLower(c.OutputFormat) {
	case formatter.FormatTable, formatter.FormatJSON, formatter.FormatCSV, formatter.FormatSummary:
	default:
		return fmt.Errorf("unknown output format %q (want table, json, csv or summary)", c.OutputFormat)
	}

	if _, err := c.Options(); err != nil {
		return err
	}
	return nil
}

// Options converts the option strings into transform options.
func (c *Config) Options() (allocation.Options, error) {
	var opts allocation.Options
	var err error

	if opts.SubgroupOutput, err = allocation.ParseSubgroupOutputMode(c.SubgroupMode); err != nil {
		return opts, err
	}
	if opts.Lookback, err = resample.ParseLookbackWindow(c.Lookback); err != nil {
		return opts, err
	}
	if opts.InvisibleSubgroups, err = allocation.ParseInvisibleSubgroupPolicy(c.InvisibleSubgroups); err != nil {
		return opts, err
	}
	opts.FreezeStaleGroupValue = c.FreezeStale
	return opts, opts.Validate()
}

// ExpandPath resolves a leading ~/ and makes path absolute.
func ExpandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}
