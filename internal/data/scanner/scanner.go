package scanner

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/penwyp/go-alloc-timeline/internal/util"
)

// DefaultExtension is the suffix of event export files.
const DefaultExtension = ".jsonl"

// FileScanner finds event files under a directory.
type FileScanner struct {
	baseDir   string
	extension string
}

// NewFileScanner creates a new FileScanner instance
func NewFileScanner(baseDir string) *FileScanner {
	return &FileScanner{
		baseDir:   baseDir,
		extension: DefaultExtension,
	}
}

// BaseDir returns the directory the scanner walks.
func (s *FileScanner) BaseDir() string {
	return s.baseDir
}

// Matches reports whether path looks like an event file.
func (s *FileScanner) Matches(path string) bool {
	return strings.HasSuffix(strings.ToLower(path), s.extension)
}

// Scan returns every event file below the base directory in lexical order.
// Hidden directories are skipped, unreadable entries are logged and skipped.
// A missing base directory is an error.
func (s *FileScanner) Scan() ([]string, error) {
	start := time.Now()

	info, err := os.Stat(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", s.baseDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("scan %s: not a directory", s.baseDir)
	}

	var files []string
	dirCount := 0
	totalCount := 0

	util.LogDebugf("Start scanning directory: %s", s.baseDir)

	err = filepath.WalkDir(s.baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			util.LogDebugf("Skip entry (error): %s - %v", path, err)
			if d != nil && d.IsDir() && path != s.baseDir {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if path != s.baseDir && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			dirCount++
			return nil
		}

		totalCount++
		if s.Matches(path) {
			files = append(files, path)
		}
		return nil
	})

	sort.Strings(files)

	util.LogDebugf("File scan completed: duration %v, scanned %d directories, %d files, found %d event files",
		time.Since(start), dirCount, totalCount, len(files))

	return files, err
}

// Resolve returns the files a run reads: file when set, otherwise the
// result of scanning dir.
func Resolve(dir, file string) ([]string, error) {
	if file != "" {
		if _, err := util.GetFileInfo(file); err != nil {
			return nil, fmt.Errorf("input file %s: %w", file, err)
		}
		return []string{file}, nil
	}
	return NewFileScanner(dir).Scan()
}
