// Package anchor keeps comment threads attached to the right lines as the
// code underneath them changes. It resolves revisions, fetches and caches
// per-file diffs, and remaps each thread's anchor range into display
// coordinates for a target revision.
package anchor

import (
	"context"
	"errors"
	"time"

	"github.com/bkyoung/comment-anchor/internal/diff"
	"github.com/bkyoung/comment-anchor/internal/domain"
)

// ErrThreadNotFound indicates the requested thread does not exist.
var ErrThreadNotFound = errors.New("thread not found")

// ErrNoSyncHistory indicates a thread has never been through a sync pass.
var ErrNoSyncHistory = errors.New("no sync history")

// ErrDuplicateThread indicates an open thread on the same file already
// covers the same topic.
var ErrDuplicateThread = errors.New("duplicate thread")

// DiffSource produces a line-edit model describing how a file changed
// between two revisions. The special revision domain.WorkingRevision
// denotes live working content rather than a committed tree.
type DiffSource interface {
	FileDiff(ctx context.Context, repo, path, from, to string) (*diff.Model, error)
}

// RevisionResolver canonicalizes a user-supplied ref (branch, tag,
// abbreviated hash) into a full revision hash.
type RevisionResolver interface {
	ResolveRevision(ctx context.Context, repo, ref string) (string, error)
}

// DocumentProvider serves the current text of a file as the user sees it,
// which may differ from any committed revision.
type DocumentProvider interface {
	Content(repo, path string) ([]byte, bool, error)
}

// ThreadFilter narrows a thread listing. Empty fields match everything.
type ThreadFilter struct {
	Repo  string
	Path  string
	State domain.ThreadState
}

// SyncRecord is a thread's most recent sync result as persisted.
type SyncRecord struct {
	SyncID         string
	TargetRevision string
	Outcome        domain.SyncOutcome
	Display        *domain.Range
	Reason         string
	SyncedAt       time.Time
}

// ThreadStore persists threads, their comments, and sync history.
type ThreadStore interface {
	SaveThread(ctx context.Context, thread domain.Thread) error
	GetThread(ctx context.Context, threadID string) (domain.Thread, error)
	ListThreads(ctx context.Context, filter ThreadFilter) ([]domain.Thread, error)
	DeleteThread(ctx context.Context, threadID string) error

	AddComment(ctx context.Context, comment domain.Comment) error
	CommentsByThread(ctx context.Context, threadID string) ([]domain.Comment, error)
	CommentCounts(ctx context.Context, threadIDs []string) (map[string]int, error)

	SaveSyncReport(ctx context.Context, report domain.SyncReport) error
	LatestSync(ctx context.Context, threadID string) (SyncRecord, error)
}

// MarkdownWriter persists a human-readable sync report.
type MarkdownWriter interface {
	Write(ctx context.Context, artifact domain.MarkdownArtifact) (string, error)
}

// JSONWriter persists a machine-readable sync report.
type JSONWriter interface {
	Write(ctx context.Context, artifact domain.JSONArtifact) (string, error)
}
