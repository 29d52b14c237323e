package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/jonboulle/clockwork"

	"github.com/penwyp/go-alloc-timeline/internal/core/model"
	"github.com/penwyp/go-alloc-timeline/internal/util"
)

// entryVersion is bumped whenever Entry's layout changes.
const entryVersion = 1

// fingerprintGrace is how long a file must stay untouched before its content
// fingerprint is no longer rechecked.
const fingerprintGrace = 48 * time.Hour

type CacheMissReason int

const (
	MissReasonNone CacheMissReason = iota
	MissReasonError
	MissReasonInode
	MissReasonSize
	MissReasonModTime
	MissReasonFingerprint
	MissReasonNoFingerprint
	MissReasonNotFound
	MissReasonVersion
)

func (r CacheMissReason) String() string {
	switch r {
	case MissReasonNone:
		return "none"
	case MissReasonError:
		return "Cache read error"
	case MissReasonInode:
		return "File inode changed"
	case MissReasonSize:
		return "File size changed"
	case MissReasonModTime:
		return "Modification time changed"
	case MissReasonFingerprint:
		return "File fingerprint changed"
	case MissReasonNoFingerprint:
		return "Cached file has no fingerprint"
	case MissReasonNotFound:
		return "Cache not found"
	case MissReasonVersion:
		return "Cache layout outdated"
	default:
		return "Unknown reason"
	}
}

// Entry is the cached decode of one input file.
type Entry struct {
	Version            int              `json:"version"`
	FilePath           string           `json:"file_path"`
	Info               util.FileInfo    `json:"info"`
	ContentFingerprint string           `json:"content_fingerprint,omitempty"`
	Rows               []model.EventRow `json:"rows"`
}

type CacheResult struct {
	Entry      *Entry
	Found      bool
	MissReason CacheMissReason
}

type BatchValidateResult struct {
	Valid      bool
	MissReason CacheMissReason
}

type Cache interface {
	Get(path string) CacheResult
	Set(path string, rows []model.EventRow) error
	Clear() error
	BatchValidate(paths []string) map[string]BatchValidateResult
}

type FileCache struct {
	baseDir     string
	clock       clockwork.Clock
	mu          sync.RWMutex
	memoryCache map[string]*Entry
}

func NewFileCache(baseDir string, clock clockwork.Clock) (*FileCache, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, err
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}

	return &FileCache{
		baseDir:     baseDir,
		clock:       clock,
		memoryCache: make(map[string]*Entry),
	}, nil
}

// cacheKey maps an input path to its cache file name.
func cacheKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])
}

func (c *FileCache) entryPath(path string) string {
	return filepath.Join(c.baseDir, cacheKey(path)+".json")
}

func (c *FileCache) Get(path string) CacheResult {
	key := cacheKey(path)

	c.mu.RLock()
	memData, exists := c.memoryCache[key]
	c.mu.RUnlock()

	if exists {
		if ret := c.validate(memData); ret.Valid {
			return CacheResult{Entry: memData, Found: true, MissReason: MissReasonNone}
		}
		c.mu.Lock()
		delete(c.memoryCache, key)
		c.mu.Unlock()
	}

	return c.getFromFile(path)
}

func (c *FileCache) getFromFile(path string) CacheResult {
	data, err := os.ReadFile(c.entryPath(path))
	if err != nil {
		return CacheResult{Found: false, MissReason: MissReasonNotFound}
	}

	var entry Entry
	if err := sonic.Unmarshal(data, &entry); err != nil {
		util.LogDebugf("Cache entry for %s is unreadable: %v", path, err)
		return CacheResult{Found: false, MissReason: MissReasonError}
	}

	if ret := c.validate(&entry); !ret.Valid {
		return CacheResult{Found: false, MissReason: ret.MissReason}
	}

	c.mu.Lock()
	c.memoryCache[cacheKey(path)] = &entry
	c.mu.Unlock()

	return CacheResult{Entry: &entry, Found: true, MissReason: MissReasonNone}
}

func (c *FileCache) validate(entry *Entry) BatchValidateResult {
	if entry.Version != entryVersion {
		return BatchValidateResult{MissReason: MissReasonVersion}
	}

	current, err := util.GetFileInfo(entry.FilePath)
	if err != nil {
		util.LogDebugf("Cache validation failed for %s: unable to get file info: %v", entry.FilePath, err)
		return BatchValidateResult{MissReason: MissReasonError}
	}

	if current.Inode != entry.Info.Inode {
		util.LogDebugf("Cache invalidated for %s: inode changed (cached: %d, current: %d)",
			entry.FilePath, entry.Info.Inode, current.Inode)
		return BatchValidateResult{MissReason: MissReasonInode}
	}
	if current.Size != entry.Info.Size {
		util.LogDebugf("Cache invalidated for %s: size changed (cached: %d, current: %d)",
			entry.FilePath, entry.Info.Size, current.Size)
		return BatchValidateResult{MissReason: MissReasonSize}
	}
	if current.ModTime != entry.Info.ModTime {
		util.LogDebugf("Cache invalidated for %s: modtime changed (cached: %d, current: %d)",
			entry.FilePath, entry.Info.ModTime, current.ModTime)
		return BatchValidateResult{MissReason: MissReasonModTime}
	}

	if c.clock.Since(time.Unix(0, current.ModTime)) > fingerprintGrace {
		return BatchValidateResult{Valid: true, MissReason: MissReasonNone}
	}

	if entry.ContentFingerprint == "" {
		util.LogDebugf("Cache invalidated for %s: no fingerprint in cached data", entry.FilePath)
		return BatchValidateResult{MissReason: MissReasonNoFingerprint}
	}

	fingerprint, err := util.CalculateFileFingerprint(entry.FilePath)
	if err != nil {
		util.LogDebugf("Cache invalidated for %s: unable to calculate fingerprint: %v", entry.FilePath, err)
		return BatchValidateResult{MissReason: MissReasonNoFingerprint}
	}
	if fingerprint != entry.ContentFingerprint {
		util.LogDebugf("Cache invalidated for %s: fingerprint mismatch (cached: %s, current: %s)",
			entry.FilePath, entry.ContentFingerprint, fingerprint)
		return BatchValidateResult{MissReason: MissReasonFingerprint}
	}
	return BatchValidateResult{Valid: true, MissReason: MissReasonNone}
}

// Set stores rows as the decode of path at its current version.
func (c *FileCache) Set(path string, rows []model.EventRow) error {
	info, err := util.GetFileInfo(path)
	if err != nil {
		return err
	}

	entry := &Entry{
		Version:  entryVersion,
		FilePath: path,
		Info:     *info,
		Rows:     rows,
	}
	if fingerprint, err := util.CalculateFileFingerprint(path); err == nil {
		entry.ContentFingerprint = fingerprint
	}

	data, err := sonic.ConfigStd.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache entry for %s: %w", path, err)
	}

	// write then rename so readers never see a partial entry
	target := c.entryPath(path)
	tmp, err := os.CreateTemp(c.baseDir, ".entry-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return err
	}

	c.mu.Lock()
	c.memoryCache[cacheKey(path)] = entry
	c.mu.Unlock()
	return nil
}

func (c *FileCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.memoryCache = make(map[string]*Entry)

	entries, err := os.ReadDir(c.baseDir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		if err := os.Remove(filepath.Join(c.baseDir, e.Name())); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (c *FileCache) BatchValidate(paths []string) map[string]BatchValidateResult {
	result := make(map[string]BatchValidateResult, len(paths))

	validCount := 0
	for _, path := range paths {
		r := c.Get(path)
		result[path] = BatchValidateResult{Valid: r.Found, MissReason: r.MissReason}
		if r.Found {
			validCount++
		}
	}

	util.LogDebugf("Batch validation complete: %d files, %d valid", len(paths), validCount)
	return result
}

// GetCacheStats counts the entries held in memory and on disk.
func (c *FileCache) GetCacheStats() (memoryCount, fileCount int) {
	c.mu.RLock()
	memoryCount = len(c.memoryCache)
	c.mu.RUnlock()

	entries, err := os.ReadDir(c.baseDir)
	if err != nil {
		return memoryCount, 0
	}
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			fileCount++
		}
	}
	return memoryCount, fileCount
}
