package store

import (
	"context"
	"errors"
	"time"
)

// ErrThreadNotFound is returned when a thread lookup misses.
var ErrThreadNotFound = errors.New("thread not found")

// Store defines the persistence layer interface for threads, comments,
// and sync history.
type Store interface {
	// Thread management
	SaveThread(ctx context.Context, thread ThreadRecord) error
	GetThread(ctx context.Context, threadID string) (ThreadRecord, error)
	ListThreads(ctx context.Context, filter ThreadFilter) ([]ThreadRecord, error)
	DeleteThread(ctx context.Context, threadID string) error

	// Comment persistence
	AddComment(ctx context.Context, comment CommentRecord) error
	GetCommentsByThread(ctx context.Context, threadID string) ([]CommentRecord, error)
	CountCommentsByThread(ctx context.Context, threadIDs []string) (map[string]int, error)

	// Sync history
	SaveSyncEntries(ctx context.Context, entries []SyncEntryRecord) error
	GetLatestSyncEntry(ctx context.Context, threadID string) (SyncEntryRecord, error)

	// Utility
	Close() error
}

// ThreadRecord is the persisted form of a comment thread. The anchor
// columns record where the thread was created and never change; display
// positions live in sync entries.
type ThreadRecord struct {
	ThreadID       string
	Repo           string
	Path           string
	AnchorStart    int
	AnchorStartCol int
	AnchorEnd      int
	AnchorEndCol   int
	AnchorRevision string
	Title          string
	State          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ResolvedAt     *time.Time
}

// CommentRecord is a single persisted message within a thread.
type CommentRecord struct {
	CommentID string
	ThreadID  string
	Author    string
	Body      string
	CreatedAt time.Time
}

// SyncEntryRecord stores the outcome of remapping one thread during a
// sync pass. Display columns are meaningful only when Resolved is true.
type SyncEntryRecord struct {
	SyncID          string
	ThreadID        string
	TargetRevision  string
	Outcome         string
	Resolved        bool
	DisplayStart    int
	DisplayStartCol int
	DisplayEnd      int
	DisplayEndCol   int
	Reason          string
	SyncedAt        time.Time
}

// ThreadFilter narrows ListThreads results. Zero-value fields match
// everything.
type ThreadFilter struct {
	Repo  string
	Path  string
	State string
}
