package analyzer

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/penwyp/go-alloc-timeline/internal/core/model"
	"github.com/penwyp/go-alloc-timeline/internal/data/aggregator"
	"github.com/penwyp/go-alloc-timeline/internal/data/cache"
	"github.com/penwyp/go-alloc-timeline/internal/data/parser"
	"github.com/penwyp/go-alloc-timeline/internal/data/scanner"
	"github.com/penwyp/go-alloc-timeline/internal/data/watcher"
	"github.com/penwyp/go-alloc-timeline/internal/presentation/formatter"
	"github.com/penwyp/go-alloc-timeline/internal/util"
)

type Analyzer struct {
	config     *Config
	cache      cache.Cache
	parser     *parser.Parser
	aggregator *aggregator.Aggregator
	formatter  formatter.Formatter
	clock      clockwork.Clock
	out        io.Writer
}

// New builds an Analyzer writing to out. config must have been validated.
// A nil clock uses the real clock.
func New(config *Config, out io.Writer, clock clockwork.Clock) (*Analyzer, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if out == nil {
		out = os.Stdout
	}

	opts, err := config.Options()
	if err != nil {
		return nil, err
	}

	tp, err := util.NewTimeProvider(config.Timezone, clock)
	if err != nil {
		return nil, err
	}
	f, err := formatter.New(config.OutputFormat, tp)
	if err != nil {
		return nil, err
	}

	a := &Analyzer{
		config:     config,
		parser:     parser.NewParser(config.Concurrency),
		aggregator: aggregator.NewAggregator(opts, config.Concurrency, clock),
		formatter:  f,
		clock:      clock,
		out:        out,
	}

	if !config.NoCache {
		fileCache, err := cache.NewFileCache(config.CacheDir, clock)
		if err != nil {
			util.LogWarnf("Cache disabled, unable to open %s: %v", config.CacheDir, err)
		} else {
			a.cache = fileCache
		}
	}
	return a, nil
}

// Run builds the reports and writes them with the configured formatter.
func (a *Analyzer) Run(ctx context.Context) error {
	reports, err := a.Reports(ctx)
	if err != nil {
		return err
	}

	outputStart := a.clock.Now()
	err = a.formatter.Format(a.out, reports)
	util.LogDebugf("Output duration: %s", util.FormatDuration(a.clock.Since(outputStart)))
	return err
}

// Reports reads the input files and computes one report per group, in
// ascending group id order.
func (a *Analyzer) Reports(ctx context.Context) ([]aggregator.GroupReport, error) {
	runID := uuid.NewString()
	startTime := a.clock.Now()
	util.LogInfo("Starting allocation timeline run",
		util.Field{Key: "run_id", Value: runID},
		util.Field{Key: "options", Value: a.aggregator.Options().Fingerprint()})

	// Phase 1: Resolve input files
	scanStart := a.clock.Now()
	files, err := scanner.Resolve(a.config.DataDir, a.config.File)
	if err != nil {
		return nil, fmt.Errorf("failed to scan files: %w", err)
	}
	scanDuration := a.clock.Since(scanStart)
	util.LogDebugf("Phase 1 - File scan duration: %s, found %d files", util.FormatDuration(scanDuration), len(files))

	if len(files) == 0 {
		return nil, fmt.Errorf("no %s files found in %s", scanner.DefaultExtension, a.config.DataDir)
	}

	// Phase 2: Load rows, from cache where it is still valid
	loadStart := a.clock.Now()
	rows, err := a.loadRows(files, runID)
	if err != nil {
		return nil, err
	}
	loadDuration := a.clock.Since(loadStart)
	util.LogDebugf("Phase 2 - Load duration: %s, total rows: %d", util.FormatDuration(loadDuration), len(rows))

	// Phase 3: Partition by group
	groups := parser.GroupRows(rows, a.config.Groups)
	util.LogDebugf("Phase 3 - Partitioned into %d groups", len(groups))

	// Phase 4: Transform
	transformStart := a.clock.Now()
	reports, err := a.aggregator.Run(ctx, groups)
	if err != nil {
		return nil, err
	}
	transformDuration := a.clock.Since(transformStart)
	util.LogDebugf("Phase 4 - Transform duration: %s", util.FormatDuration(transformDuration))

	if a.config.Limit > 0 {
		for i := range reports {
			reports[i] = reports[i].LimitHours(a.config.Limit)
		}
	}

	util.LogInfo("Run finished",
		util.Field{Key: "run_id", Value: runID},
		util.Field{Key: "files", Value: len(files)},
		util.Field{Key: "groups", Value: len(reports)},
		util.Field{Key: "duration", Value: util.FormatDuration(a.clock.Since(startTime))})
	return reports, nil
}

// loadRows returns the rows of every file, concatenated in file order.
// Files with a valid cache entry are not parsed again. A file that fails to
// parse aborts the run.
func (a *Analyzer) loadRows(files []string, runID string) ([]model.EventRow, error) {
	if a.cache == nil {
		return a.parser.ParseAll(files)
	}

	stats := NewCacheStats()
	perFile := make(map[string][]model.EventRow, len(files))

	var toParse []string
	missReasons := make(map[string]cache.CacheMissReason)

	validated := a.cache.BatchValidate(files)
	for _, file := range files {
		stats.IncrementTotal()
		result := validated[file]
		if !result.Valid {
			toParse = append(toParse, file)
			missReasons[file] = result.MissReason
			continue
		}
		cached := a.cache.Get(file)
		if !cached.Found {
			toParse = append(toParse, file)
			missReasons[file] = cached.MissReason
			continue
		}
		stats.IncrementHit()
		perFile[file] = cached.Entry.Rows
	}

	util.LogDebugf("Cache hit for %d files, need to parse %d files", len(perFile), len(toParse))

	var firstErr error
	for result := range a.parser.ParseFiles(toParse) {
		if result.Error != nil {
			stats.IncrementFailure()
			if firstErr == nil {
				firstErr = fmt.Errorf("parse %s: %w", result.File, result.Error)
			}
			continue
		}
		perFile[result.File] = result.Rows

		stats.IncrementMiss(result.File, missReasons[result.File])
		if err := a.cache.Set(result.File, result.Rows); err != nil {
			util.LogWarnf("Failed to save cache for %s: %v", result.File, err)
		}
	}

	stats.PrintFinalStats(runID)
	if firstErr != nil {
		return nil, firstErr
	}

	var rows []model.EventRow
	for _, file := range files {
		rows = append(rows, perFile[file]...)
	}
	return rows, nil
}

// Watch runs once, then again every time an input file changes, until ctx
// is cancelled. Errors of later runs are logged and do not stop watching.
func (a *Analyzer) Watch(ctx context.Context) error {
	if err := a.Run(ctx); err != nil {
		return err
	}

	root := a.config.DataDir
	matches := scanner.NewFileScanner(root).Matches
	if a.config.File != "" {
		root = a.config.File
		target := a.config.File
		matches = func(path string) bool { return path == target }
	}

	fw, err := watcher.NewFileWatcher(watchRoot(root), matches, a.config.WatchDebounce, a.clock)
	if err != nil {
		return fmt.Errorf("failed to watch %s: %w", root, err)
	}
	defer fw.Close()

	util.LogInfof("Watching %s for changes", root)
	return fw.Run(ctx, func(ctx context.Context, changed []string) error {
		util.LogInfof("%d files changed, rebuilding report", len(changed))
		return a.Run(ctx)
	})
}

// watchRoot returns the directory to watch for path.
func watchRoot(path string) string {
	if info, err := os.Stat(path); err == nil && !info.IsDir() {
		return filepath.Dir(path)
	}
	return path
}
