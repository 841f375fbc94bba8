// Package sqlite persists threads, comments, and sync history in a local
// SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bkyoung/comment-anchor/internal/store"
)

// Store implements the store.Store interface using SQLite.
type Store struct {
	db *sql.DB
}

// NewStore creates a new SQLite store at the given path.
// Use ":memory:" for in-memory database (useful for testing).
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db}

	if err := s.createSchema(); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return s, nil
}

// createSchema creates all tables and indexes if they don't exist.
func (s *Store) createSchema() error {
	schema := `
	-- Comment threads anchored to a file range at a revision
	CREATE TABLE IF NOT EXISTS threads (
		thread_id TEXT PRIMARY KEY,
		repo TEXT NOT NULL,
		path TEXT NOT NULL,
		anchor_start INTEGER NOT NULL,
		anchor_start_col INTEGER NOT NULL DEFAULT 0,
		anchor_end INTEGER NOT NULL,
		anchor_end_col INTEGER NOT NULL DEFAULT 0,
		anchor_revision TEXT NOT NULL,
		title TEXT,
		state TEXT NOT NULL CHECK(state IN ('open', 'resolved')),
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		resolved_at INTEGER
	);

	-- Messages within a thread
	CREATE TABLE IF NOT EXISTS comments (
		comment_id TEXT PRIMARY KEY,
		thread_id TEXT NOT NULL,
		author TEXT,
		body TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (thread_id) REFERENCES threads(thread_id) ON DELETE CASCADE
	);

	-- Per-thread outcome of each sync pass
	CREATE TABLE IF NOT EXISTS sync_entries (
		entry_id INTEGER PRIMARY KEY AUTOINCREMENT,
		sync_id TEXT NOT NULL,
		thread_id TEXT NOT NULL,
		target_revision TEXT NOT NULL,
		outcome TEXT NOT NULL,
		resolved INTEGER NOT NULL DEFAULT 0,
		display_start INTEGER,
		display_start_col INTEGER,
		display_end INTEGER,
		display_end_col INTEGER,
		reason TEXT,
		synced_at INTEGER NOT NULL,
		FOREIGN KEY (thread_id) REFERENCES threads(thread_id) ON DELETE CASCADE
	);

	-- Indexes for performance
	CREATE INDEX IF NOT EXISTS idx_threads_repo_path ON threads(repo, path);
	CREATE INDEX IF NOT EXISTS idx_threads_state ON threads(state);
	CREATE INDEX IF NOT EXISTS idx_comments_thread ON comments(thread_id);
	CREATE INDEX IF NOT EXISTS idx_sync_entries_thread ON sync_entries(thread_id, synced_at DESC);
	CREATE INDEX IF NOT EXISTS idx_sync_entries_sync ON sync_entries(sync_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveThread inserts or updates a thread. The anchor columns are written
// on every save but never change for an existing ID: thread IDs hash the
// anchor, so a new anchor is a new thread.
func (s *Store) SaveThread(ctx context.Context, thread store.ThreadRecord) error {
	query := `
		INSERT INTO threads (thread_id, repo, path, anchor_start, anchor_start_col, anchor_end, anchor_end_col, anchor_revision, title, state, created_at, updated_at, resolved_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(thread_id) DO UPDATE SET
			title = excluded.title,
			state = excluded.state,
			updated_at = excluded.updated_at,
			resolved_at = excluded.resolved_at
	`

	_, err := s.db.ExecContext(ctx, query,
		thread.ThreadID,
		thread.Repo,
		thread.Path,
		thread.AnchorStart,
		thread.AnchorStartCol,
		thread.AnchorEnd,
		thread.AnchorEndCol,
		thread.AnchorRevision,
		thread.Title,
		thread.State,
		thread.CreatedAt.Unix(),
		thread.UpdatedAt.Unix(),
		nullableUnix(thread.ResolvedAt),
	)

	if err != nil {
		return fmt.Errorf("failed to save thread: %w", err)
	}

	return nil
}

// GetThread retrieves a thread by ID.
func (s *Store) GetThread(ctx context.Context, threadID string) (store.ThreadRecord, error) {
	query := `
		SELECT thread_id, repo, path, anchor_start, anchor_start_col, anchor_end, anchor_end_col, anchor_revision, title, state, created_at, updated_at, resolved_at
		FROM threads
		WHERE thread_id = ?
	`

	row := s.db.QueryRowContext(ctx, query, threadID)
	thread, err := scanThread(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return store.ThreadRecord{}, fmt.Errorf("%w: %s", store.ErrThreadNotFound, threadID)
		}
		return store.ThreadRecord{}, fmt.Errorf("failed to get thread: %w", err)
	}

	return thread, nil
}

// ListThreads retrieves threads matching the filter, ordered by path and
// anchor position.
func (s *Store) ListThreads(ctx context.Context, filter store.ThreadFilter) ([]store.ThreadRecord, error) {
	query := `
		SELECT thread_id, repo, path, anchor_start, anchor_start_col, anchor_end, anchor_end_col, anchor_revision, title, state, created_at, updated_at, resolved_at
		FROM threads
	`

	var conditions []string
	var args []interface{}
	if filter.Repo != "" {
		conditions = append(conditions, "repo = ?")
		args = append(args, filter.Repo)
	}
	if filter.Path != "" {
		conditions = append(conditions, "path = ?")
		args = append(args, filter.Path)
	}
	if filter.State != "" {
		conditions = append(conditions, "state = ?")
		args = append(args, filter.State)
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY path ASC, anchor_start ASC, thread_id ASC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list threads: %w", err)
	}
	defer rows.Close()

	var threads []store.ThreadRecord
	for rows.Next() {
		thread, err := scanThread(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan thread: %w", err)
		}
		threads = append(threads, thread)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating threads: %w", err)
	}

	return threads, nil
}

// DeleteThread removes a thread; its comments and sync entries cascade.
func (s *Store) DeleteThread(ctx context.Context, threadID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM threads WHERE thread_id = ?`, threadID)
	if err != nil {
		return fmt.Errorf("failed to delete thread: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", store.ErrThreadNotFound, threadID)
	}

	return nil
}

// AddComment stores a comment on an existing thread.
func (s *Store) AddComment(ctx context.Context, comment store.CommentRecord) error {
	query := `
		INSERT INTO comments (comment_id, thread_id, author, body, created_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		comment.CommentID,
		comment.ThreadID,
		comment.Author,
		comment.Body,
		comment.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to add comment: %w", err)
	}

	return nil
}

// GetCommentsByThread retrieves all comments for a thread in posting order.
func (s *Store) GetCommentsByThread(ctx context.Context, threadID string) ([]store.CommentRecord, error) {
	query := `
		SELECT comment_id, thread_id, author, body, created_at
		FROM comments
		WHERE thread_id = ?
		ORDER BY created_at ASC, comment_id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to get comments: %w", err)
	}
	defer rows.Close()

	var comments []store.CommentRecord
	for rows.Next() {
		var comment store.CommentRecord
		var createdAt int64

		if err := rows.Scan(
			&comment.CommentID,
			&comment.ThreadID,
			&comment.Author,
			&comment.Body,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}

		comment.CreatedAt = time.Unix(createdAt, 0)
		comments = append(comments, comment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comments: %w", err)
	}

	return comments, nil
}

// CountCommentsByThread returns comment counts for the given thread IDs.
// Threads with no comments are absent from the result.
func (s *Store) CountCommentsByThread(ctx context.Context, threadIDs []string) (map[string]int, error) {
	counts := make(map[string]int)
	if len(threadIDs) == 0 {
		return counts, nil
	}

	placeholders := strings.Repeat("?,", len(threadIDs))
	placeholders = placeholders[:len(placeholders)-1]
	query := fmt.Sprintf(`
		SELECT thread_id, COUNT(*)
		FROM comments
		WHERE thread_id IN (%s)
		GROUP BY thread_id
	`, placeholders)

	args := make([]interface{}, len(threadIDs))
	for i, id := range threadIDs {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count comments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var threadID string
		var count int
		if err := rows.Scan(&threadID, &count); err != nil {
			return nil, fmt.Errorf("failed to scan comment count: %w", err)
		}
		counts[threadID] = count
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating comment counts: %w", err)
	}

	return counts, nil
}

// SaveSyncEntries stores the results of a sync pass in a single transaction.
func (s *Store) SaveSyncEntries(ctx context.Context, entries []store.SyncEntryRecord) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sync_entries (sync_id, thread_id, target_revision, outcome, resolved, display_start, display_start_col, display_end, display_end_col, reason, synced_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, entry := range entries {
		resolved := 0
		if entry.Resolved {
			resolved = 1
		}

		if _, err := stmt.ExecContext(ctx,
			entry.SyncID,
			entry.ThreadID,
			entry.TargetRevision,
			entry.Outcome,
			resolved,
			entry.DisplayStart,
			entry.DisplayStartCol,
			entry.DisplayEnd,
			entry.DisplayEndCol,
			entry.Reason,
			entry.SyncedAt.Unix(),
		); err != nil {
			return fmt.Errorf("failed to insert sync entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetLatestSyncEntry retrieves the most recent sync entry for a thread.
func (s *Store) GetLatestSyncEntry(ctx context.Context, threadID string) (store.SyncEntryRecord, error) {
	query := `
		SELECT sync_id, thread_id, target_revision, outcome, resolved, display_start, display_start_col, display_end, display_end_col, reason, synced_at
		FROM sync_entries
		WHERE thread_id = ?
		ORDER BY synced_at DESC, entry_id DESC
		LIMIT 1
	`

	var entry store.SyncEntryRecord
	var resolved int
	var syncedAt int64

	err := s.db.QueryRowContext(ctx, query, threadID).Scan(
		&entry.SyncID,
		&entry.ThreadID,
		&entry.TargetRevision,
		&entry.Outcome,
		&resolved,
		&entry.DisplayStart,
		&entry.DisplayStartCol,
		&entry.DisplayEnd,
		&entry.DisplayEndCol,
		&entry.Reason,
		&syncedAt,
	)

	if err != nil {
		if err == sql.ErrNoRows {
			return store.SyncEntryRecord{}, fmt.Errorf("%w: no sync entries for %s", store.ErrThreadNotFound, threadID)
		}
		return store.SyncEntryRecord{}, fmt.Errorf("failed to get sync entry: %w", err)
	}

	entry.Resolved = resolved == 1
	entry.SyncedAt = time.Unix(syncedAt, 0)
	return entry, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanThread(row rowScanner) (store.ThreadRecord, error) {
	var thread store.ThreadRecord
	var createdAt, updatedAt int64
	var resolvedAt sql.NullInt64

	if err := row.Scan(
		&thread.ThreadID,
		&thread.Repo,
		&thread.Path,
		&thread.AnchorStart,
		&thread.AnchorStartCol,
		&thread.AnchorEnd,
		&thread.AnchorEndCol,
		&thread.AnchorRevision,
		&thread.Title,
		&thread.State,
		&createdAt,
		&updatedAt,
		&resolvedAt,
	); err != nil {
		return store.ThreadRecord{}, err
	}

	thread.CreatedAt = time.Unix(createdAt, 0)
	thread.UpdatedAt = time.Unix(updatedAt, 0)
	if resolvedAt.Valid {
		t := time.Unix(resolvedAt.Int64, 0)
		thread.ResolvedAt = &t
	}

	return thread, nil
}

func nullableUnix(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Unix()
}
