package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"

	"github.com/penwyp/go-alloc-timeline/internal/util"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 500 * time.Millisecond

// ChangeFunc receives the event files touched since the previous call,
// sorted and deduplicated.
type ChangeFunc func(ctx context.Context, changed []string) error

// FileWatcher reports changes to event files below a directory. Bursts of
// writes are collapsed into one callback.
type FileWatcher struct {
	watcher  *fsnotify.Watcher
	root     string
	matches  func(path string) bool
	clock    clockwork.Clock
	debounce time.Duration
}

// NewFileWatcher watches root and every directory below it.
func NewFileWatcher(root string, matches func(path string) bool, debounce time.Duration, clock clockwork.Clock) (*FileWatcher, error) {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	fw := &FileWatcher{
		watcher:  watcher,
		root:     root,
		matches:  matches,
		clock:    clock,
		debounce: debounce,
	}

	if err := fw.addTree(root); err != nil {
		watcher.Close()
		return nil, err
	}
	return fw, nil
}

func (fw *FileWatcher) addTree(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return fw.watcher.Add(p)
	})
}

// Run delivers debounced changes to onChange until ctx is done. An error from
// onChange is logged and watching continues.
func (fw *FileWatcher) Run(ctx context.Context, onChange ChangeFunc) error {
	pending := make(map[string]struct{})
	var timer clockwork.Timer
	var fire <-chan time.Time

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return errors.New("file watcher closed")
			}
			if !fw.accept(event) {
				continue
			}
			pending[event.Name] = struct{}{}
			if timer == nil {
				timer = fw.clock.NewTimer(fw.debounce)
				fire = timer.Chan()
			} else {
				timer.Reset(fw.debounce)
			}

		case <-fire:
			timer = nil
			fire = nil

			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			pending = make(map[string]struct{})

			util.LogDebugf("Detected changes in %d files", len(changed))
			if err := onChange(ctx, changed); err != nil {
				util.LogErrorf("Refresh after file change failed: %v", err)
			}

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return errors.New("file watcher closed")
			}
			util.LogError("File monitoring error: " + err.Error())
		}
	}
}

// accept filters events down to event files, watching new directories as
// they appear.
func (fw *FileWatcher) accept(event fsnotify.Event) bool {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := fw.addTree(event.Name); err != nil {
				util.LogWarnf("Failed to watch new directory %s: %v", event.Name, err)
			}
			return false
		}
	}
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return false
	}
	return fw.matches == nil || fw.matches(event.Name)
}

// Close stops watching.
func (fw *FileWatcher) Close() error {
	return fw.watcher.Close()
}
