// Package store adapts the record-level store to the anchor usecase's
// thread store port.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/bkyoung/comment-anchor/internal/domain"
	"github.com/bkyoung/comment-anchor/internal/store"
	"github.com/bkyoung/comment-anchor/internal/usecase/anchor"
)

// Bridge adapts store.Store to the anchor.ThreadStore interface.
// This avoids circular dependencies between packages.
type Bridge struct {
	store store.Store
}

// NewBridge creates a new store adapter.
func NewBridge(s store.Store) *Bridge {
	return &Bridge{store: s}
}

// SaveThread converts and saves a thread.
func (b *Bridge) SaveThread(ctx context.Context, thread domain.Thread) error {
	record := store.ThreadRecord{
		ThreadID:       thread.ID,
		Repo:           thread.Repo,
		Path:           thread.Path,
		AnchorStart:    thread.Anchor.Start,
		AnchorStartCol: thread.Anchor.StartColumn,
		AnchorEnd:      thread.Anchor.End,
		AnchorEndCol:   thread.Anchor.EndColumn,
		AnchorRevision: thread.AnchorRevision,
		Title:          thread.Title,
		State:          string(thread.State),
		CreatedAt:      thread.CreatedAt,
		UpdatedAt:      thread.UpdatedAt,
		ResolvedAt:     thread.ResolvedAt,
	}
	return b.store.SaveThread(ctx, record)
}

// GetThread retrieves a thread by ID.
func (b *Bridge) GetThread(ctx context.Context, threadID string) (domain.Thread, error) {
	record, err := b.store.GetThread(ctx, threadID)
	if err != nil {
		return domain.Thread{}, translateNotFound(err, threadID)
	}
	return threadFromRecord(record), nil
}

// ListThreads retrieves threads matching the filter.
func (b *Bridge) ListThreads(ctx context.Context, filter anchor.ThreadFilter) ([]domain.Thread, error) {
	records, err := b.store.ListThreads(ctx, store.ThreadFilter{
		Repo:  filter.Repo,
		Path:  filter.Path,
		State: string(filter.State),
	})
	if err != nil {
		return nil, err
	}

	threads := make([]domain.Thread, len(records))
	for i, record := range records {
		threads[i] = threadFromRecord(record)
	}
	return threads, nil
}

// DeleteThread removes a thread and its dependent records.
func (b *Bridge) DeleteThread(ctx context.Context, threadID string) error {
	if err := b.store.DeleteThread(ctx, threadID); err != nil {
		return translateNotFound(err, threadID)
	}
	return nil
}

// AddComment converts and saves a comment.
func (b *Bridge) AddComment(ctx context.Context, comment domain.Comment) error {
	return b.store.AddComment(ctx, store.CommentRecord{
		CommentID: comment.ID,
		ThreadID:  comment.ThreadID,
		Author:    comment.Author,
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt,
	})
}

// CommentsByThread retrieves a thread's comments in posting order.
func (b *Bridge) CommentsByThread(ctx context.Context, threadID string) ([]domain.Comment, error) {
	records, err := b.store.GetCommentsByThread(ctx, threadID)
	if err != nil {
		return nil, err
	}

	comments := make([]domain.Comment, len(records))
	for i, record := range records {
		comments[i] = domain.Comment{
			ID:        record.CommentID,
			ThreadID:  record.ThreadID,
			Author:    record.Author,
			Body:      record.Body,
			CreatedAt: record.CreatedAt,
		}
	}
	return comments, nil
}

// CommentCounts retrieves comment counts for the given thread IDs.
func (b *Bridge) CommentCounts(ctx context.Context, threadIDs []string) (map[string]int, error) {
	return b.store.CountCommentsByThread(ctx, threadIDs)
}

// SaveSyncReport persists each report entry under a generated sync ID.
func (b *Bridge) SaveSyncReport(ctx context.Context, report domain.SyncReport) error {
	if len(report.Entries) == 0 {
		return nil
	}

	syncID := store.GenerateSyncID(report.SyncedAt, report.Repository, report.TargetRevision)
	records := make([]store.SyncEntryRecord, len(report.Entries))
	for i, entry := range report.Entries {
		record := store.SyncEntryRecord{
			SyncID:         syncID,
			ThreadID:       entry.ThreadID,
			TargetRevision: report.TargetRevision,
			Outcome:        string(entry.Outcome),
			Resolved:       entry.Outcome.Resolved(),
			Reason:         entry.Reason,
			SyncedAt:       report.SyncedAt,
		}
		if entry.Display != nil {
			record.DisplayStart = entry.Display.Start
			record.DisplayStartCol = entry.Display.StartColumn
			record.DisplayEnd = entry.Display.End
			record.DisplayEndCol = entry.Display.EndColumn
		}
		records[i] = record
	}
	return b.store.SaveSyncEntries(ctx, records)
}

// LatestSync retrieves the most recent sync record for a thread.
func (b *Bridge) LatestSync(ctx context.Context, threadID string) (anchor.SyncRecord, error) {
	record, err := b.store.GetLatestSyncEntry(ctx, threadID)
	if err != nil {
		if errors.Is(err, store.ErrThreadNotFound) {
			return anchor.SyncRecord{}, fmt.Errorf("%w: %s", anchor.ErrNoSyncHistory, threadID)
		}
		return anchor.SyncRecord{}, err
	}

	result := anchor.SyncRecord{
		SyncID:         record.SyncID,
		TargetRevision: record.TargetRevision,
		Outcome:        domain.SyncOutcome(record.Outcome),
		Reason:         record.Reason,
		SyncedAt:       record.SyncedAt,
	}
	if record.Resolved {
		display := domain.Range{
			Start:       record.DisplayStart,
			StartColumn: record.DisplayStartCol,
			End:         record.DisplayEnd,
			EndColumn:   record.DisplayEndCol,
		}
		result.Display = &display
	}
	return result, nil
}

func threadFromRecord(record store.ThreadRecord) domain.Thread {
	anchor := domain.Range{
		Start:       record.AnchorStart,
		StartColumn: record.AnchorStartCol,
		End:         record.AnchorEnd,
		EndColumn:   record.AnchorEndCol,
	}
	return domain.Thread{
		ID:             record.ThreadID,
		Repo:           record.Repo,
		Path:           record.Path,
		Anchor:         anchor,
		AnchorRevision: record.AnchorRevision,
		Title:          record.Title,
		State:          domain.ThreadState(record.State),
		CreatedAt:      record.CreatedAt,
		UpdatedAt:      record.UpdatedAt,
		ResolvedAt:     record.ResolvedAt,
	}
}

func translateNotFound(err error, threadID string) error {
	if errors.Is(err, store.ErrThreadNotFound) {
		return fmt.Errorf("%w: %s", anchor.ErrThreadNotFound, threadID)
	}
	return err
}
