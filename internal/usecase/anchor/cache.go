package anchor

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bkyoung/comment-anchor/internal/diff"
	"github.com/bkyoung/comment-anchor/internal/domain"
)

// DiffKey identifies a cached diff by repository, file, and revision pair.
type DiffKey struct {
	Repo string
	Path string
	From string
	To   string
}

// pendingFetch tracks an in-flight fetch so concurrent requests for the
// same key share one underlying call. done is closed when the result is
// ready. stale means an invalidation arrived mid-flight: the result is
// still handed to waiters but never cached.
type pendingFetch struct {
	done  chan struct{}
	model *diff.Model
	err   error
	stale bool
}

// RevisionDiffCache caches parsed diff models per revision pair and
// coalesces concurrent fetches for the same key. Fetch errors propagate
// to every waiter but are never cached, so the next request retries.
type RevisionDiffCache struct {
	source  DiffSource
	metrics Metrics
	logger  zerolog.Logger

	mu      sync.Mutex
	entries map[DiffKey]*diff.Model
	pending map[DiffKey]*pendingFetch
}

// NewRevisionDiffCache creates a cache backed by the given source.
func NewRevisionDiffCache(source DiffSource, metrics Metrics, logger zerolog.Logger) *RevisionDiffCache {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &RevisionDiffCache{
		source:  source,
		metrics: metrics,
		logger:  logger,
		entries: make(map[DiffKey]*diff.Model),
		pending: make(map[DiffKey]*pendingFetch),
	}
}

// Get returns the diff model for the key, fetching it from the source on
// a miss. Concurrent callers for the same key block on a single fetch.
func (c *RevisionDiffCache) Get(ctx context.Context, key DiffKey) (*diff.Model, error) {
	c.mu.Lock()

	if model, ok := c.entries[key]; ok {
		c.mu.Unlock()
		c.metrics.RecordCacheHit()
		return model, nil
	}

	if p, ok := c.pending[key]; ok {
		c.mu.Unlock()
		c.metrics.RecordCacheCoalesced()
		select {
		case <-p.done:
			return p.model, p.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	p := &pendingFetch{done: make(chan struct{})}
	c.pending[key] = p
	c.mu.Unlock()
	c.metrics.RecordCacheMiss()

	start := time.Now()
	model, err := c.source.FileDiff(ctx, key.Repo, key.Path, key.From, key.To)
	c.metrics.RecordDiffFetch(time.Since(start), err)

	c.mu.Lock()
	p.model = model
	p.err = err
	if err == nil && !p.stale {
		c.entries[key] = model
	}
	if p.stale {
		c.logger.Debug().
			Ctx(ctx).
			Str("repo", key.Repo).
			Str("path", key.Path).
			Msg("diff fetch completed after invalidation, result not cached")
	}
	delete(c.pending, key)
	close(p.done)
	c.mu.Unlock()

	return model, err
}

// InvalidateWorking drops every cached diff for the file whose target is
// the working revision. Committed revision pairs are immutable and stay.
func (c *RevisionDiffCache) InvalidateWorking(repo, path string) {
	c.invalidate(repo, path, true)
}

// InvalidateFile drops every cached diff touching the file, regardless of
// revision pair.
func (c *RevisionDiffCache) InvalidateFile(repo, path string) {
	c.invalidate(repo, path, false)
}

func (c *RevisionDiffCache) invalidate(repo, path string, workingOnly bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := 0
	for key := range c.entries {
		if key.Repo != repo || key.Path != path {
			continue
		}
		if workingOnly && key.To != domain.WorkingRevision {
			continue
		}
		delete(c.entries, key)
		dropped++
	}

	for key, p := range c.pending {
		if key.Repo != repo || key.Path != path {
			continue
		}
		if workingOnly && key.To != domain.WorkingRevision {
			continue
		}
		p.stale = true
	}

	if dropped > 0 {
		c.metrics.RecordCacheInvalidation(dropped)
	}
}

// Clear drops every cached entry and marks all in-flight fetches stale.
func (c *RevisionDiffCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	dropped := len(c.entries)
	c.entries = make(map[DiffKey]*diff.Model)
	for _, p := range c.pending {
		p.stale = true
	}

	if dropped > 0 {
		c.metrics.RecordCacheInvalidation(dropped)
	}
}

// Len returns the number of cached entries.
func (c *RevisionDiffCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
