package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// WorkingRevision is the reserved revision marker for live working-tree
// content. Git revisions are full hex hashes, so the marker cannot collide.
const WorkingRevision = "WORKING"

// ShortRevision abbreviates a full revision hash for display. Symbolic
// names and the working-revision marker pass through unchanged.
func ShortRevision(rev string) string {
	if len(rev) <= 8 || !isHex(rev) {
		return rev
	}
	return rev[:8]
}

func isHex(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'f':
		case r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// Range is a 1-based inclusive span within a file. Columns are optional
// refinements: zero means the whole line. Remapping operates on lines
// only; columns ride along unchanged because a line-level diff cannot
// know about intra-line edits.
type Range struct {
	Start       int `json:"start"`
	StartColumn int `json:"startColumn,omitempty"`
	End         int `json:"end"`
	EndColumn   int `json:"endColumn,omitempty"`
}

// NewRange constructs a whole-line Range, normalizing a zero End to a
// single line.
func NewRange(start, end int) Range {
	if end == 0 {
		end = start
	}
	return Range{Start: start, End: end}
}

// IsValid returns true if the range is well formed.
func (r Range) IsValid() bool {
	if r.Start < 1 || r.End < r.Start {
		return false
	}
	if r.StartColumn < 0 || r.EndColumn < 0 {
		return false
	}
	if r.Start == r.End && r.StartColumn > 0 && r.EndColumn > 0 && r.EndColumn < r.StartColumn {
		return false
	}
	return true
}

// WithLines returns a copy of the range repositioned to new lines,
// keeping the column refinements.
func (r Range) WithLines(start, end int) Range {
	r.Start = start
	r.End = end
	return r
}

// Lines returns the number of lines the range spans.
func (r Range) Lines() int {
	if !r.IsValid() {
		return 0
	}
	return r.End - r.Start + 1
}

// String renders the range as "12" or "12-15".
func (r Range) String() string {
	if r.Start == r.End {
		return fmt.Sprintf("%d", r.Start)
	}
	return fmt.Sprintf("%d-%d", r.Start, r.End)
}

// ThreadState represents the lifecycle state of a comment thread.
type ThreadState string

const (
	// ThreadStateOpen indicates the thread still needs attention.
	ThreadStateOpen ThreadState = "open"
	// ThreadStateResolved indicates the discussion concluded.
	ThreadStateResolved ThreadState = "resolved"
)

// IsValid returns true if the state is a recognized value.
func (s ThreadState) IsValid() bool {
	switch s {
	case ThreadStateOpen, ThreadStateResolved:
		return true
	default:
		return false
	}
}

// Thread is a comment thread anchored to a file range as of a specific
// repository revision. The anchor never changes once created; display
// positions for newer revisions are derived by remapping.
type Thread struct {
	ID             string      `json:"id"`
	Repo           string      `json:"repo"`
	Path           string      `json:"path"`
	Anchor         Range       `json:"anchor"`
	AnchorRevision string      `json:"anchorRevision"`
	Title          string      `json:"title"`
	State          ThreadState `json:"state"`
	CreatedAt      time.Time   `json:"createdAt"`
	UpdatedAt      time.Time   `json:"updatedAt"`
	ResolvedAt     *time.Time  `json:"resolvedAt,omitempty"`
}

// ThreadInput captures the information required to create a Thread.
type ThreadInput struct {
	Repo           string
	Path           string
	Anchor         Range
	AnchorRevision string
	Title          string
	CreatedAt      time.Time
}

// NewThread constructs a Thread with a deterministic ID.
func NewThread(input ThreadInput) (Thread, error) {
	if input.Repo == "" {
		return Thread{}, fmt.Errorf("repo is required")
	}
	if input.Path == "" {
		return Thread{}, fmt.Errorf("path is required")
	}
	if !input.Anchor.IsValid() {
		return Thread{}, fmt.Errorf("invalid anchor range %d-%d", input.Anchor.Start, input.Anchor.End)
	}
	if input.AnchorRevision == "" {
		return Thread{}, fmt.Errorf("anchor revision is required")
	}

	id := hashThread(input)
	return Thread{
		ID:             id,
		Repo:           input.Repo,
		Path:           input.Path,
		Anchor:         input.Anchor,
		AnchorRevision: input.AnchorRevision,
		Title:          input.Title,
		State:          ThreadStateOpen,
		CreatedAt:      input.CreatedAt,
		UpdatedAt:      input.CreatedAt,
	}, nil
}

func hashThread(input ThreadInput) string {
	payload := fmt.Sprintf("%s|%s|%d.%d|%d.%d|%s|%s",
		input.Repo,
		input.Path,
		input.Anchor.Start,
		input.Anchor.StartColumn,
		input.Anchor.End,
		input.Anchor.EndColumn,
		input.AnchorRevision,
		input.Title,
	)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// IsResolved returns true if the thread has been resolved.
func (t Thread) IsResolved() bool {
	return t.State == ThreadStateResolved
}

// Resolve marks the thread resolved.
func (t *Thread) Resolve(at time.Time) {
	t.State = ThreadStateResolved
	t.ResolvedAt = &at
	t.UpdatedAt = at
}

// Reopen returns a resolved thread to the open state.
func (t *Thread) Reopen(at time.Time) {
	t.State = ThreadStateOpen
	t.ResolvedAt = nil
	t.UpdatedAt = at
}

// ThreadFingerprint identifies the same discussion across re-anchoring.
// It's stable when a thread is recreated at a new revision or range for
// the same file and topic.
type ThreadFingerprint string

// NewThreadFingerprint creates a stable identifier for a thread.
// Uses repo + path + normalized title prefix. The anchor range and
// revision are intentionally excluded so the fingerprint survives code
// movement.
func NewThreadFingerprint(repo, path, title string) ThreadFingerprint {
	// Use first 100 chars of title to allow minor wording changes
	titlePrefix := title
	if len(titlePrefix) > 100 {
		titlePrefix = titlePrefix[:100]
	}

	payload := fmt.Sprintf("%s|%s|%s", repo, path, titlePrefix)
	sum := sha256.Sum256([]byte(payload))
	return ThreadFingerprint(hex.EncodeToString(sum[:16])) // 32 hex chars
}

// Fingerprint creates a fingerprint from an existing Thread.
func (t Thread) Fingerprint() ThreadFingerprint {
	return NewThreadFingerprint(t.Repo, t.Path, t.Title)
}

// Comment is a single message within a thread.
type Comment struct {
	ID        string    `json:"id"`
	ThreadID  string    `json:"threadId"`
	Author    string    `json:"author"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewComment constructs a Comment with a fresh unique ID.
func NewComment(threadID, author, body string, at time.Time) (Comment, error) {
	if threadID == "" {
		return Comment{}, fmt.Errorf("thread ID is required")
	}
	if body == "" {
		return Comment{}, fmt.Errorf("comment body is required")
	}

	return Comment{
		ID:        uuid.NewString(),
		ThreadID:  threadID,
		Author:    author,
		Body:      body,
		CreatedAt: at,
	}, nil
}
