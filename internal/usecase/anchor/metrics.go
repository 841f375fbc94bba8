package anchor

import (
	"sync"
	"time"

	"github.com/bkyoung/comment-anchor/internal/domain"
)

// Metrics records operational counters for diff fetching and remapping.
type Metrics interface {
	RecordDiffFetch(duration time.Duration, err error)
	RecordCacheHit()
	RecordCacheMiss()
	RecordCacheCoalesced()
	RecordCacheInvalidation(entries int)
	RecordSyncOutcome(outcome domain.SyncOutcome)
}

// Stats is a point-in-time snapshot of collected metrics.
type Stats struct {
	DiffFetches        int64
	DiffFetchErrors    int64
	DiffFetchTotal     time.Duration
	CacheHits          int64
	CacheMisses        int64
	CacheCoalesced     int64
	CacheInvalidations int64
	OutcomeCounts      map[domain.SyncOutcome]int64
}

// DefaultMetrics is an in-memory Metrics implementation safe for
// concurrent use.
type DefaultMetrics struct {
	mu    sync.RWMutex
	stats Stats
}

// NewDefaultMetrics creates an empty metrics collector.
func NewDefaultMetrics() *DefaultMetrics {
	return &DefaultMetrics{
		stats: Stats{OutcomeCounts: make(map[domain.SyncOutcome]int64)},
	}
}

// RecordDiffFetch counts a diff fetch and its duration.
func (m *DefaultMetrics) RecordDiffFetch(duration time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.DiffFetches++
	m.stats.DiffFetchTotal += duration
	if err != nil {
		m.stats.DiffFetchErrors++
	}
}

// RecordCacheHit counts a cache hit.
func (m *DefaultMetrics) RecordCacheHit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.CacheHits++
}

// RecordCacheMiss counts a cache miss that triggered a fetch.
func (m *DefaultMetrics) RecordCacheMiss() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.CacheMisses++
}

// RecordCacheCoalesced counts a request that joined an in-flight fetch.
func (m *DefaultMetrics) RecordCacheCoalesced() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.CacheCoalesced++
}

// RecordCacheInvalidation counts entries dropped by an invalidation.
func (m *DefaultMetrics) RecordCacheInvalidation(entries int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.CacheInvalidations += int64(entries)
}

// RecordSyncOutcome counts a per-thread sync result.
func (m *DefaultMetrics) RecordSyncOutcome(outcome domain.SyncOutcome) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stats.OutcomeCounts[outcome]++
}

// GetStats returns a copy of the current counters.
func (m *DefaultMetrics) GetStats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snapshot := m.stats
	snapshot.OutcomeCounts = make(map[domain.SyncOutcome]int64, len(m.stats.OutcomeCounts))
	for outcome, count := range m.stats.OutcomeCounts {
		snapshot.OutcomeCounts[outcome] = count
	}
	return snapshot
}

// NopMetrics discards all measurements.
type NopMetrics struct{}

func (NopMetrics) RecordDiffFetch(time.Duration, error) {}
func (NopMetrics) RecordCacheHit()                      {}
func (NopMetrics) RecordCacheMiss()                     {}
func (NopMetrics) RecordCacheCoalesced()                {}
func (NopMetrics) RecordCacheInvalidation(int)          {}
func (NopMetrics) RecordSyncOutcome(domain.SyncOutcome) {}

