package analyzer

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/penwyp/go-alloc-timeline/internal/data/cache"
	"github.com/penwyp/go-alloc-timeline/internal/util"
)

// CacheStats holds statistics for cache usage
type CacheStats struct {
	totalFiles  int64
	cacheHits   int64
	cacheMisses int64
	failures    int64
	mu          sync.Mutex
	missDetails []MissDetail
}

// MissDetail records details of a cache miss
type MissDetail struct {
	FilePath string
	Reason   cache.CacheMissReason
}

// NewCacheStats creates a new CacheStats instance
func NewCacheStats() *CacheStats {
	return &CacheStats{
		missDetails: make([]MissDetail, 0),
	}
}

// IncrementTotal increases the total file count
func (cs *CacheStats) IncrementTotal() {
	atomic.AddInt64(&cs.totalFiles, 1)
}

// IncrementHit increases the cache hit count
func (cs *CacheStats) IncrementHit() {
	atomic.AddInt64(&cs.cacheHits, 1)
}

// IncrementMiss increases the cache miss count and records the miss detail
func (cs *CacheStats) IncrementMiss(filePath string, reason cache.CacheMissReason) {
	atomic.AddInt64(&cs.cacheMisses, 1)

	cs.mu.Lock()
	cs.missDetails = append(cs.missDetails, MissDetail{
		FilePath: filePath,
		Reason:   reason,
	})
	cs.mu.Unlock()
}

// IncrementFailure increases the failure count
func (cs *CacheStats) IncrementFailure() {
	atomic.AddInt64(&cs.failures, 1)
}

// GetStats returns the current statistics and hit rate
func (cs *CacheStats) GetStats() (total, hits, misses, failures int64, hitRate float64) {
	total = atomic.LoadInt64(&cs.totalFiles)
	hits = atomic.LoadInt64(&cs.cacheHits)
	misses = atomic.LoadInt64(&cs.cacheMisses)
	failures = atomic.LoadInt64(&cs.failures)

	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	return
}

// MissReasonCounts tallies misses per reason.
func (cs *CacheStats) MissReasonCounts() map[cache.CacheMissReason]int {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	counts := make(map[cache.CacheMissReason]int)
	for _, detail := range cs.missDetails {
		counts[detail.Reason]++
	}
	return counts
}

// PrintFinalStats logs the cache statistics and a summary of miss reasons
func (cs *CacheStats) PrintFinalStats(runID string) {
	total, hits, misses, failures, hitRate := cs.GetStats()

	util.LogInfof("Cache statistics: total files %d, hit rate %.1f%% (%d hits/%d misses/%d failures) run_id=%s",
		total, hitRate, hits, misses, failures, runID)

	if misses == 0 {
		return
	}

	cs.mu.Lock()
	details := make([]MissDetail, len(cs.missDetails))
	copy(details, cs.missDetails)
	cs.mu.Unlock()

	for _, detail := range details {
		util.LogDebugf("  cache miss %s (%s)", detail.FilePath, detail.Reason)
	}

	counts := cs.MissReasonCounts()
	reasons := make([]cache.CacheMissReason, 0, len(counts))
	for reason := range counts {
		reasons = append(reasons, reason)
	}
	sort.Slice(reasons, func(i, j int) bool { return reasons[i] < reasons[j] })
	for _, reason := range reasons {
		util.LogInfof("  %s: %d files", reason, counts[reason])
	}
}
