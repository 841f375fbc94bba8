package anchor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/bkyoung/comment-anchor/internal/domain"
	"github.com/bkyoung/comment-anchor/internal/logging"
)

// ServiceDeps wires the service's collaborators. Markdown and JSON
// writers are optional; sync reports are only written when a destination
// directory is requested.
type ServiceDeps struct {
	Store        ThreadStore
	Resolver     RevisionResolver
	Synchronizer *Synchronizer
	Markdown     MarkdownWriter
	JSON         JSONWriter
	Logger       zerolog.Logger
}

// Service implements the thread management operations behind the CLI.
type Service struct {
	store    ThreadStore
	resolver RevisionResolver
	sync     *Synchronizer
	markdown MarkdownWriter
	json     JSONWriter
	logger   zerolog.Logger
	clock    func() time.Time
}

// NewService creates a thread management service.
func NewService(deps ServiceDeps) *Service {
	return &Service{
		store:    deps.Store,
		resolver: deps.Resolver,
		sync:     deps.Synchronizer,
		markdown: deps.Markdown,
		json:     deps.JSON,
		logger:   deps.Logger,
		clock:    time.Now,
	}
}

// AddThreadInput captures a new thread request.
type AddThreadInput struct {
	Repo  string
	Path  string
	Start int
	End   int
	Ref   string
	Title string
	Body  string
}

// AddThread creates a thread anchored at the given range and ref. The ref
// is resolved to a full revision at creation time so the anchor stays
// meaningful as branches move. An optional body becomes the first comment.
func (s *Service) AddThread(ctx context.Context, input AddThreadInput) (domain.Thread, error) {
	ctx = logging.WithRepo(ctx, input.Repo)

	revision := input.Ref
	if revision != domain.WorkingRevision {
		resolved, err := s.resolver.ResolveRevision(ctx, input.Repo, input.Ref)
		if err != nil {
			return domain.Thread{}, fmt.Errorf("resolve anchor revision %q: %w", input.Ref, err)
		}
		revision = resolved
	}

	thread, err := domain.NewThread(domain.ThreadInput{
		Repo:           input.Repo,
		Path:           input.Path,
		Anchor:         domain.NewRange(input.Start, input.End),
		AnchorRevision: revision,
		Title:          input.Title,
		CreatedAt:      s.clock(),
	})
	if err != nil {
		return domain.Thread{}, err
	}

	// Same topic already open on this file means the discussion should
	// continue there, even if the anchor moved. Untitled threads have no
	// topic to compare.
	if input.Title != "" {
		existing, err := s.findDuplicate(ctx, thread)
		if err != nil {
			return domain.Thread{}, err
		}
		if existing != nil {
			return domain.Thread{}, fmt.Errorf("%w: %s is open at %s:%s with the same topic",
				ErrDuplicateThread, existing.ID, existing.Path, existing.Anchor.String())
		}
	}

	if err := s.store.SaveThread(ctx, thread); err != nil {
		return domain.Thread{}, fmt.Errorf("save thread: %w", err)
	}

	if input.Body != "" {
		comment, err := domain.NewComment(thread.ID, "", input.Body, thread.CreatedAt)
		if err != nil {
			return domain.Thread{}, err
		}
		if err := s.store.AddComment(ctx, comment); err != nil {
			return domain.Thread{}, fmt.Errorf("save initial comment: %w", err)
		}
	}

	s.logger.Info().
		Ctx(ctx).
		Str("thread", thread.ID).
		Str("path", thread.Path).
		Str("anchor", thread.Anchor.String()).
		Str("revision", revision).
		Msg("thread created")

	return thread, nil
}

// findDuplicate looks for an open thread on the same file whose
// fingerprint matches. Fingerprints ignore the anchor, so a thread
// recreated after its code moved still counts as the same discussion.
func (s *Service) findDuplicate(ctx context.Context, thread domain.Thread) (*domain.Thread, error) {
	candidates, err := s.store.ListThreads(ctx, ThreadFilter{
		Repo:  thread.Repo,
		Path:  thread.Path,
		State: domain.ThreadStateOpen,
	})
	if err != nil {
		return nil, fmt.Errorf("check for duplicate thread: %w", err)
	}

	fingerprint := thread.Fingerprint()
	for i := range candidates {
		if candidates[i].ID == thread.ID {
			continue
		}
		if candidates[i].Fingerprint() == fingerprint {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

// ThreadSummary is a thread decorated with listing context.
type ThreadSummary struct {
	Thread       domain.Thread
	CommentCount int
	LastSync     *SyncRecord
}

// ListThreads returns threads matching the filter with comment counts and
// the latest sync result attached.
func (s *Service) ListThreads(ctx context.Context, filter ThreadFilter) ([]ThreadSummary, error) {
	threads, err := s.store.ListThreads(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	if len(threads) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(threads))
	for _, thread := range threads {
		ids = append(ids, thread.ID)
	}

	counts, err := s.store.CommentCounts(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("count comments: %w", err)
	}

	summaries := make([]ThreadSummary, 0, len(threads))
	for _, thread := range threads {
		summary := ThreadSummary{
			Thread:       thread,
			CommentCount: counts[thread.ID],
		}
		record, err := s.store.LatestSync(ctx, thread.ID)
		switch {
		case err == nil:
			summary.LastSync = &record
		case isNoHistory(err):
			// never synced, leave LastSync nil
		default:
			return nil, fmt.Errorf("load sync history for %s: %w", thread.ID, err)
		}
		summaries = append(summaries, summary)
	}

	return summaries, nil
}

// GetThread returns a thread with its comments.
func (s *Service) GetThread(ctx context.Context, threadID string) (domain.Thread, []domain.Comment, error) {
	thread, err := s.store.GetThread(ctx, threadID)
	if err != nil {
		return domain.Thread{}, nil, err
	}

	comments, err := s.store.CommentsByThread(ctx, threadID)
	if err != nil {
		return domain.Thread{}, nil, fmt.Errorf("load comments: %w", err)
	}

	return thread, comments, nil
}

// Comment appends a comment to an existing thread.
func (s *Service) Comment(ctx context.Context, threadID, author, body string) (domain.Comment, error) {
	thread, err := s.store.GetThread(ctx, threadID)
	if err != nil {
		return domain.Comment{}, err
	}

	comment, err := domain.NewComment(thread.ID, author, body, s.clock())
	if err != nil {
		return domain.Comment{}, err
	}

	if err := s.store.AddComment(ctx, comment); err != nil {
		return domain.Comment{}, fmt.Errorf("save comment: %w", err)
	}

	return comment, nil
}

// Resolve marks a thread resolved.
func (s *Service) Resolve(ctx context.Context, threadID string) (domain.Thread, error) {
	return s.transition(ctx, threadID, func(thread *domain.Thread, at time.Time) error {
		if thread.IsResolved() {
			return fmt.Errorf("thread %s is already resolved", threadID)
		}
		thread.Resolve(at)
		return nil
	})
}

// Reopen returns a resolved thread to the open state.
func (s *Service) Reopen(ctx context.Context, threadID string) (domain.Thread, error) {
	return s.transition(ctx, threadID, func(thread *domain.Thread, at time.Time) error {
		if !thread.IsResolved() {
			return fmt.Errorf("thread %s is not resolved", threadID)
		}
		thread.Reopen(at)
		return nil
	})
}

func (s *Service) transition(ctx context.Context, threadID string, apply func(*domain.Thread, time.Time) error) (domain.Thread, error) {
	thread, err := s.store.GetThread(ctx, threadID)
	if err != nil {
		return domain.Thread{}, err
	}

	if err := apply(&thread, s.clock()); err != nil {
		return domain.Thread{}, err
	}

	if err := s.store.SaveThread(ctx, thread); err != nil {
		return domain.Thread{}, fmt.Errorf("save thread: %w", err)
	}

	return thread, nil
}

// Remove deletes a thread along with its comments and sync history.
func (s *Service) Remove(ctx context.Context, threadID string) error {
	if err := s.store.DeleteThread(ctx, threadID); err != nil {
		return err
	}
	s.sync.Unregister(threadID)
	return nil
}

// SyncInput describes a sync pass over stored threads.
type SyncInput struct {
	Repo        string
	TargetRef   string
	MarkdownDir string
	JSONDir     string
}

// SyncResult is a sync report plus the artifact paths written for it.
type SyncResult struct {
	Report       domain.SyncReport
	MarkdownPath string
	JSONPath     string
}

// SyncThreads loads the repository's threads, recomputes display ranges
// against the target ref, persists the results, and writes any requested
// report artifacts.
func (s *Service) SyncThreads(ctx context.Context, input SyncInput) (SyncResult, error) {
	ctx = logging.WithRepo(ctx, input.Repo)

	threads, err := s.store.ListThreads(ctx, ThreadFilter{Repo: input.Repo})
	if err != nil {
		return SyncResult{}, fmt.Errorf("list threads: %w", err)
	}
	for _, thread := range threads {
		s.sync.Register(thread)
	}

	report, err := s.sync.Sync(ctx, Target{Repo: input.Repo, Revision: input.TargetRef})
	if err != nil {
		return SyncResult{}, err
	}

	if err := s.store.SaveSyncReport(ctx, report); err != nil {
		return SyncResult{}, fmt.Errorf("persist sync report: %w", err)
	}

	result := SyncResult{Report: report}

	if input.MarkdownDir != "" && s.markdown != nil {
		path, err := s.markdown.Write(ctx, domain.MarkdownArtifact{
			OutputDir:  input.MarkdownDir,
			Repository: input.Repo,
			TargetRef:  input.TargetRef,
			Report:     report,
		})
		if err != nil {
			return SyncResult{}, fmt.Errorf("write markdown report: %w", err)
		}
		result.MarkdownPath = path
	}

	if input.JSONDir != "" && s.json != nil {
		path, err := s.json.Write(ctx, domain.JSONArtifact{
			OutputDir:  input.JSONDir,
			Repository: input.Repo,
			TargetRef:  input.TargetRef,
			Report:     report,
		})
		if err != nil {
			return SyncResult{}, fmt.Errorf("write json report: %w", err)
		}
		result.JSONPath = path
	}

	s.logger.Info().
		Ctx(ctx).
		Str("target", report.TargetRevision).
		Int("threads", len(report.Entries)).
		Int("resolved", report.ResolvedCount()).
		Int("unresolvable", report.UnresolvableCount()).
		Int("failed", report.FailedCount()).
		Msg("sync pass complete")

	return result, nil
}

func isNoHistory(err error) bool {
	return errors.Is(err, ErrNoSyncHistory)
}
