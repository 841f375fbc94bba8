package anchor

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bkyoung/comment-anchor/internal/diff"
	"github.com/bkyoung/comment-anchor/internal/domain"
	"github.com/bkyoung/comment-anchor/internal/logging"
)

// Target names the revision threads should be displayed against.
type Target struct {
	Repo     string
	Revision string
}

// DisplayListener is notified when a thread's display range changes.
// Either range may be nil: old is nil on the first placement, new is nil
// when a previously placed thread becomes unresolvable.
type DisplayListener func(threadID string, old, new *domain.Range)

type fileKey struct {
	repo string
	path string
}

type registration struct {
	thread  domain.Thread
	display *domain.Range
	outcome domain.SyncOutcome
	reason  string
	placed  bool
}

// SyncState is the last published state of a registered thread. Display
// is nil when the thread is unplaced, unresolvable, or its last sync
// failed; Reason carries the failure or unresolvability detail.
type SyncState struct {
	Outcome domain.SyncOutcome
	Display *domain.Range
	Reason  string
	Placed  bool
}

// SynchronizerDeps wires the synchronizer's collaborators.
type SynchronizerDeps struct {
	Cache    *RevisionDiffCache
	Resolver RevisionResolver
	Metrics  Metrics
	Logger   zerolog.Logger
}

// Synchronizer tracks registered threads and recomputes their display
// ranges against a target revision. Edits to a file bump a per-file
// generation counter; a sync pass that started before the last edit
// discards its results instead of publishing stale positions.
type Synchronizer struct {
	cache    *RevisionDiffCache
	resolver RevisionResolver
	metrics  Metrics
	logger   zerolog.Logger
	clock    func() time.Time

	mu            sync.Mutex
	registrations map[string]*registration
	generations   map[fileKey]uint64
	listeners     map[int]DisplayListener
	nextListener  int
}

// NewSynchronizer creates a synchronizer.
func NewSynchronizer(deps SynchronizerDeps) *Synchronizer {
	metrics := deps.Metrics
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Synchronizer{
		cache:         deps.Cache,
		resolver:      deps.Resolver,
		metrics:       metrics,
		logger:        deps.Logger,
		clock:         time.Now,
		registrations: make(map[string]*registration),
		generations:   make(map[fileKey]uint64),
		listeners:     make(map[int]DisplayListener),
	}
}

// Register starts tracking a thread. Re-registering the same ID replaces
// the thread but keeps its last published display range.
func (s *Synchronizer) Register(thread domain.Thread) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.registrations[thread.ID]; ok {
		existing.thread = thread
		return
	}
	s.registrations[thread.ID] = &registration{thread: thread}
}

// Unregister stops tracking a thread.
func (s *Synchronizer) Unregister(threadID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.registrations, threadID)
}

// GetDisplayRange returns the last published display range for a thread.
// The second return is false if the thread is unknown or has not been
// placed by any sync pass. A placed thread whose anchor became
// unresolvable returns (nil, true).
func (s *Synchronizer) GetDisplayRange(threadID string) (*domain.Range, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.registrations[threadID]
	if !ok || !reg.placed {
		return nil, false
	}
	return copyRange(reg.display), true
}

// GetSyncState returns the full last published state for a thread. The
// second return is false if the thread is unknown.
func (s *Synchronizer) GetSyncState(threadID string) (SyncState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg, ok := s.registrations[threadID]
	if !ok {
		return SyncState{}, false
	}
	return SyncState{
		Outcome: reg.outcome,
		Display: copyRange(reg.display),
		Reason:  reg.reason,
		Placed:  reg.placed,
	}, true
}

// OnDisplayRangeChanged subscribes to display range changes. The returned
// function removes the subscription.
func (s *Synchronizer) OnDisplayRangeChanged(fn DisplayListener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// NoteBufferChanged records that a file's working content changed. Cached
// working diffs for the file are dropped and any sync pass that read the
// file before the change will discard its results for it.
func (s *Synchronizer) NoteBufferChanged(repo, path string) {
	s.mu.Lock()
	s.generations[fileKey{repo: repo, path: path}]++
	s.mu.Unlock()

	s.cache.InvalidateWorking(repo, path)
}

// ReleaseFile forgets generation bookkeeping for a file and drops all of
// its cached diffs. Call when a file is closed or deleted.
func (s *Synchronizer) ReleaseFile(repo, path string) {
	s.mu.Lock()
	delete(s.generations, fileKey{repo: repo, path: path})
	s.mu.Unlock()

	s.cache.InvalidateFile(repo, path)
}

// Sync recomputes display ranges for every registered thread in the
// target's repository and returns a report. Threads are grouped by file
// and anchor revision so each group costs one diff. A failure in one
// group does not abort the others; affected threads get a failed entry.
func (s *Synchronizer) Sync(ctx context.Context, target Target) (domain.SyncReport, error) {
	ctx = logging.WithRepo(ctx, target.Repo)

	targetRevision := target.Revision
	if targetRevision != domain.WorkingRevision {
		resolved, err := s.resolver.ResolveRevision(ctx, target.Repo, target.Revision)
		if err != nil {
			return domain.SyncReport{}, fmt.Errorf("resolve target revision %q: %w", target.Revision, err)
		}
		targetRevision = resolved
	}

	threads, generations := s.snapshot(target.Repo)

	groups := make(map[DiffKey][]domain.Thread)
	for _, thread := range threads {
		key := DiffKey{
			Repo: thread.Repo,
			Path: thread.Path,
			From: thread.AnchorRevision,
			To:   targetRevision,
		}
		groups[key] = append(groups[key], thread)
	}

	report := domain.SyncReport{
		Repository:     target.Repo,
		TargetRevision: targetRevision,
		SyncedAt:       s.clock(),
	}

	for key, group := range groups {
		entries := s.syncGroup(logging.WithPath(ctx, key.Path), key, group)
		report.Entries = append(report.Entries, entries...)
	}

	sort.Slice(report.Entries, func(i, j int) bool {
		a, b := report.Entries[i], report.Entries[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Anchor.Start != b.Anchor.Start {
			return a.Anchor.Start < b.Anchor.Start
		}
		return a.ThreadID < b.ThreadID
	})

	for _, entry := range report.Entries {
		s.metrics.RecordSyncOutcome(entry.Outcome)
	}

	s.publish(ctx, report.Entries, generations)

	return report, nil
}

// syncGroup computes entries for threads sharing a file and anchor
// revision against one target revision.
func (s *Synchronizer) syncGroup(ctx context.Context, key DiffKey, group []domain.Thread) []domain.SyncEntry {
	if key.From == key.To {
		entries := make([]domain.SyncEntry, 0, len(group))
		for _, thread := range group {
			anchor := thread.Anchor
			entries = append(entries, newSyncEntry(thread, domain.SyncOutcomeIdentity, &anchor, ""))
		}
		return entries
	}

	model, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn().
			Ctx(ctx).
			Err(err).
			Str("from", key.From).
			Str("to", key.To).
			Msg("diff unavailable for thread group")

		entries := make([]domain.SyncEntry, 0, len(group))
		for _, thread := range group {
			entries = append(entries, newSyncEntry(thread, domain.SyncOutcomeFailed, nil, err.Error()))
		}
		return entries
	}

	entries := make([]domain.SyncEntry, 0, len(group))
	for _, thread := range group {
		entries = append(entries, remapThread(model, thread))
	}
	return entries
}

func remapThread(model *diff.Model, thread domain.Thread) domain.SyncEntry {
	result := diff.RemapRange(model, thread.Anchor.Start, thread.Anchor.End)

	// Columns carry over unchanged: a line-level diff cannot know about
	// intra-line edits.
	switch result.Outcome {
	case diff.OutcomeMapped:
		display := thread.Anchor.WithLines(result.Start, result.End)
		return newSyncEntry(thread, domain.SyncOutcomeMapped, &display, "")
	case diff.OutcomeMoved:
		display := thread.Anchor.WithLines(result.Start, result.End)
		return newSyncEntry(thread, domain.SyncOutcomeMoved, &display, "")
	default:
		return newSyncEntry(thread, domain.SyncOutcomeUnresolvable, nil, "anchored lines no longer exist in the target content")
	}
}

func newSyncEntry(thread domain.Thread, outcome domain.SyncOutcome, display *domain.Range, reason string) domain.SyncEntry {
	return domain.SyncEntry{
		ThreadID:       thread.ID,
		Path:           thread.Path,
		Title:          thread.Title,
		State:          thread.State,
		Anchor:         thread.Anchor,
		AnchorRevision: thread.AnchorRevision,
		Outcome:        outcome,
		Display:        display,
		Reason:         reason,
	}
}

// snapshot copies the registered threads for a repository along with the
// generation counter of each involved file.
func (s *Synchronizer) snapshot(repo string) ([]domain.Thread, map[fileKey]uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var threads []domain.Thread
	generations := make(map[fileKey]uint64)
	for _, reg := range s.registrations {
		if reg.thread.Repo != repo {
			continue
		}
		threads = append(threads, reg.thread)
		key := fileKey{repo: reg.thread.Repo, path: reg.thread.Path}
		generations[key] = s.generations[key]
	}
	return threads, generations
}

// publish stores new display ranges and notifies listeners. Entries for
// files whose generation moved since the snapshot are discarded; the edit
// that bumped the generation triggers its own sync.
func (s *Synchronizer) publish(ctx context.Context, entries []domain.SyncEntry, generations map[fileKey]uint64) {
	type change struct {
		threadID string
		old, new *domain.Range
	}

	var changes []change
	var listeners []DisplayListener

	s.mu.Lock()
	for _, entry := range entries {
		reg, ok := s.registrations[entry.ThreadID]
		if !ok {
			continue
		}
		key := fileKey{repo: reg.thread.Repo, path: entry.Path}
		if s.generations[key] != generations[key] {
			s.logger.Debug().
				Ctx(ctx).
				Str("path", entry.Path).
				Str("thread", entry.ThreadID).
				Msg("discarding stale sync result")
			continue
		}
		// A failed fetch leaves the thread's position unknown. The old
		// range must not keep being reported as current: the display
		// becomes undefined with the failure reason attached.
		old := reg.display
		unchanged := reg.placed && rangesEqual(old, entry.Display)
		reg.display = copyRange(entry.Display)
		reg.outcome = entry.Outcome
		reg.reason = entry.Reason
		reg.placed = true

		if unchanged {
			continue
		}
		if old == nil && entry.Display == nil {
			continue
		}
		changes = append(changes, change{
			threadID: entry.ThreadID,
			old:      copyRange(old),
			new:      copyRange(entry.Display),
		})
	}
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	// Listeners run outside the lock so they can call back in.
	for _, c := range changes {
		for _, fn := range listeners {
			fn(c.threadID, c.old, c.new)
		}
	}
}

func rangesEqual(a, b *domain.Range) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func copyRange(r *domain.Range) *domain.Range {
	if r == nil {
		return nil
	}
	c := *r
	return &c
}
