package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/penwyp/go-alloc-timeline/internal/analyzer"
	"github.com/penwyp/go-alloc-timeline/internal/data/cache"
	"github.com/penwyp/go-alloc-timeline/internal/util"
)

// options holds the command line state shared by the root command and its
// subcommands. Flag defaults come from the ALLOC_* environment.
type options struct {
	config    *analyzer.Config
	configErr error
	debug     bool
	reset     bool
	out       io.Writer
}

// NewRootCmd builds the command tree writing reports to out.
func NewRootCmd(out io.Writer) *cobra.Command {
	opts := &options{out: out}
	opts.config, opts.configErr = analyzer.LoadConfig()
	if opts.config == nil {
		opts.config = &analyzer.Config{}
	}
	cfg := opts.config

	rootCmd := &cobra.Command{
		Use:   "go-alloc-timeline [flags]",
		Short: "Hourly effective allocation timelines",
		Long: `go-alloc-timeline rebuilds the hourly allocation history of groups and their sub-groups.

It reads JSONL exports of group and sub-group change events, replays them hour by hour and
reports, for every hour, the value each visible sub-group held, the group value and the
part of the group left to its users.

Examples:
  go-alloc-timeline --dir /path/to/exports              # Report every group found
  go-alloc-timeline --file events.jsonl -o json         # One file, JSON output
  go-alloc-timeline --group 42 --limit 24               # Last 24 hours of group 42
  go-alloc-timeline --subgroup-mode max --lookback last-year
  go-alloc-timeline watch --dir /path/to/exports        # Re-run on every change`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd.Context(), false)
		},
	}

	flags := rootCmd.PersistentFlags()

	// Input
	flags.StringVar(&cfg.DataDir, "dir", cfg.DataDir,
		"Directory scanned for .jsonl event exports")
	flags.StringVar(&cfg.File, "file", cfg.File,
		"Read a single event file instead of scanning --dir")

	// Transform options
	flags.StringVar(&cfg.SubgroupMode, "subgroup-mode", cfg.SubgroupMode,
		"Sub-group rows to report (all, max)")
	flags.StringVar(&cfg.Lookback, "lookback", cfg.Lookback,
		"Hours covered (all, last-year)")
	flags.BoolVar(&cfg.FreezeStale, "freeze-stale", cfg.FreezeStale,
		"Hold the group value at its group record when the plan saw no revision in the last year")
	flags.StringVar(&cfg.InvisibleSubgroups, "invisible-subgroups", cfg.InvisibleSubgroups,
		"Whether not yet visible sub-groups count toward the group users value (exclude, include)")

	// Output
	flags.StringVarP(&cfg.OutputFormat, "output", "o", cfg.OutputFormat,
		"Output format (table, json, csv, summary)")
	flags.Int64SliceVar(&cfg.Groups, "group", cfg.Groups,
		"Only report these group ids (repeatable or comma separated)")
	flags.IntVar(&cfg.Limit, "limit", cfg.Limit,
		"Newest hours to report per group (0 = unlimited)")
	flags.StringVar(&cfg.Timezone, "timezone", cfg.Timezone,
		"Timezone for table and summary hours (e.g., Asia/Shanghai, UTC, Local)")

	// System and debugging
	flags.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency,
		"Groups transformed in parallel (0 = number of CPUs)")
	flags.StringVar(&cfg.CacheDir, "cache-dir", cfg.CacheDir,
		"Directory holding decoded event files")
	flags.BoolVar(&cfg.NoCache, "no-cache", cfg.NoCache,
		"Parse every file, neither reading nor writing the cache")
	flags.BoolVarP(&opts.reset, "reset", "r", false,
		"Clear cache before analysis")
	flags.BoolVar(&opts.debug, "debug", false,
		"Enable debug mode")

	rootCmd.AddCommand(newWatchCmd(opts))
	rootCmd.SetOut(out)
	return rootCmd
}

// run prepares logging and the cache, then reports once or keeps watching.
func (o *options) run(ctx context.Context, watch bool) error {
	if o.configErr != nil {
		return o.configErr
	}
	cfg := o.config

	if o.debug {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.LogFile != "" {
		if err := ensureDir(filepath.Dir(cfg.LogFile)); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
	}
	if err := util.InitLogger(cfg.LogLevel, cfg.LogFile, o.debug); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer util.CloseLogger()

	if err := util.InitializeTimeProvider(cfg.Timezone); err != nil {
		return err
	}

	if o.reset {
		if err := clearCache(cfg.CacheDir); err != nil {
			return fmt.Errorf("failed to clear cache: %w", err)
		}
		util.LogInfo("Cache cleared")
	}

	a, err := analyzer.New(cfg, o.out, nil)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if !watch {
		return a.Run(ctx)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Watch(ctx)
}

// Execute runs the command line with os.Args.
func Execute() error {
	return NewRootCmd(os.Stdout).Execute()
}

// Helper functions

func ensureDir(dir string) error {
	return os.MkdirAll(dir, 0755)
}

func clearCache(cacheDir string) error {
	if _, err := os.Stat(cacheDir); os.IsNotExist(err) {
		return nil
	}
	fileCache, err := cache.NewFileCache(cacheDir, nil)
	if err != nil {
		return err
	}
	return fileCache.Clear()
}
