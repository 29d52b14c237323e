package parser

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/bytedance/sonic"

	"github.com/penwyp/go-alloc-timeline/internal/core/model"
	"github.com/penwyp/go-alloc-timeline/internal/util"
)

// Parser reads JSONL event exports.
type Parser struct {
	concurrency int
	mu          sync.Mutex
	cache       map[string]cachedFile
}

type cachedFile struct {
	info util.FileInfo
	rows []model.EventRow
}

// ParseResult represents the result of parsing a single file.
type ParseResult struct {
	File  string
	Rows  []model.EventRow
	Error error
}

// GroupColumns is the column set of one group, rows in file order.
type GroupColumns struct {
	GroupID int64
	Columns model.Columns
}

// NewParser creates a new Parser instance.
func NewParser(concurrency int) *Parser {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Parser{
		concurrency: concurrency,
		cache:       make(map[string]cachedFile),
	}
}

// ParseFile reads the event rows of one file. Lines that are not valid JSON
// are skipped. Results are memoized until the file's size or mtime change.
func (p *Parser) ParseFile(path string) ([]model.EventRow, error) {
	info, err := util.GetFileInfo(path)
	if err != nil {
		util.LogDebugf("Failed to stat file: %s - %v", path, err)
		return nil, err
	}

	p.mu.Lock()
	if cached, ok := p.cache[path]; ok && cached.info.Same(*info) {
		p.mu.Unlock()
		return cached.rows, nil
	}
	p.mu.Unlock()

	util.LogDebugf("Start parsing file: %s", path)

	file, err := os.Open(path)
	if err != nil {
		util.LogDebugf("Failed to open file: %s - %v", path, err)
		return nil, err
	}
	defer file.Close()

	var rows []model.EventRow
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	lineCount := 0
	skipped := 0
	for scanner.Scan() {
		lineCount++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var row model.EventRow
		if err := sonic.Unmarshal(line, &row); err != nil {
			skipped++
			util.LogDebugf("Skip invalid JSON line %s:%d - %v", path, lineCount, err)
			continue
		}
		rows = append(rows, row)
	}

	if err := scanner.Err(); err != nil {
		util.LogDebugf("Error scanning file: %s - %v", path, err)
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	if skipped > 0 {
		util.LogWarnf("Skipped %d invalid lines in %s", skipped, path)
	}

	p.mu.Lock()
	p.cache[path] = cachedFile{info: *info, rows: rows}
	p.mu.Unlock()

	return rows, nil
}

// ParseFiles parses multiple files concurrently and returns a channel of ParseResult.
func (p *Parser) ParseFiles(files []string) <-chan ParseResult {
	start := time.Now()
	results := make(chan ParseResult, len(files))
	var wg sync.WaitGroup

	util.LogDebugf("Start concurrent parsing of %d files, concurrency: %d", len(files), p.concurrency)

	semaphore := make(chan struct{}, p.concurrency)

	for _, file := range files {
		wg.Add(1)
		go func(f string) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			fileStart := time.Now()
			rows, err := p.ParseFile(f)
			if err != nil {
				util.LogDebugf("File parsing failed: %s, duration %v - %v", f, time.Since(fileStart), err)
			}

			results <- ParseResult{
				File:  f,
				Rows:  rows,
				Error: err,
			}
		}(file)
	}

	go func() {
		wg.Wait()
		close(results)
		util.LogDebugf("Concurrent parsing finished, total duration: %v", time.Since(start))
	}()

	return results
}

// ParseAll parses files concurrently and returns their rows concatenated in
// the order files were given. The first failing file aborts the result.
func (p *Parser) ParseAll(files []string) ([]model.EventRow, error) {
	position := make(map[string]int, len(files))
	for i, f := range files {
		position[f] = i
	}

	perFile := make([][]model.EventRow, len(files))
	var firstErr error
	for result := range p.ParseFiles(files) {
		if result.Error != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("parse %s: %w", result.File, result.Error)
			}
			continue
		}
		perFile[position[result.File]] = result.Rows
	}
	if firstErr != nil {
		return nil, firstErr
	}

	var rows []model.EventRow
	for _, r := range perFile {
		rows = append(rows, r...)
	}
	return rows, nil
}

// GroupRows partitions rows by group id, keeping input order within each
// group. Groups come back in ascending id order. A non-empty only keeps the
// listed groups.
func GroupRows(rows []model.EventRow, only []int64) []GroupColumns {
	keep := make(map[int64]bool, len(only))
	for _, id := range only {
		keep[id] = true
	}

	byGroup := make(map[int64]*model.Columns)
	for _, row := range rows {
		if len(keep) > 0 && !keep[row.GroupID] {
			continue
		}
		cols, ok := byGroup[row.GroupID]
		if !ok {
			cols = &model.Columns{}
			byGroup[row.GroupID] = cols
		}
		cols.Append(row)
	}

	groups := make([]GroupColumns, 0, len(byGroup))
	for id, cols := range byGroup {
		groups = append(groups, GroupColumns{GroupID: id, Columns: *cols})
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].GroupID < groups[j].GroupID
	})
	return groups
}
