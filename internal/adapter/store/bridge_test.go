package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	adapter "github.com/bkyoung/comment-anchor/internal/adapter/store"
	"github.com/bkyoung/comment-anchor/internal/adapter/store/sqlite"
	"github.com/bkyoung/comment-anchor/internal/domain"
	"github.com/bkyoung/comment-anchor/internal/usecase/anchor"
)

func setupBridge(t *testing.T) *adapter.Bridge {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})

	return adapter.NewBridge(s)
}

func bridgeThread(t *testing.T, title string) domain.Thread {
	t.Helper()
	thread, err := domain.NewThread(domain.ThreadInput{
		Repo:           "repo-a",
		Path:           "internal/server/handler.go",
		Anchor:         domain.NewRange(10, 12),
		AnchorRevision: "1111111111111111111111111111111111111111",
		Title:          title,
		CreatedAt:      time.Unix(1700000000, 0),
	})
	require.NoError(t, err)
	return thread
}

func TestBridgeThreadRoundTrip(t *testing.T) {
	bridge := setupBridge(t)
	ctx := context.Background()

	thread := bridgeThread(t, "nil check missing")
	require.NoError(t, bridge.SaveThread(ctx, thread))

	got, err := bridge.GetThread(ctx, thread.ID)
	require.NoError(t, err)

	assert.Equal(t, thread.ID, got.ID)
	assert.Equal(t, thread.Anchor, got.Anchor)
	assert.Equal(t, thread.AnchorRevision, got.AnchorRevision)
	assert.Equal(t, thread.State, got.State)
	assert.True(t, thread.CreatedAt.Equal(got.CreatedAt))
}

func TestBridgeColumnAnchorRoundTrip(t *testing.T) {
	bridge := setupBridge(t)
	ctx := context.Background()

	thread, err := domain.NewThread(domain.ThreadInput{
		Repo:           "repo-a",
		Path:           "internal/server/handler.go",
		Anchor:         domain.Range{Start: 10, StartColumn: 3, End: 10, EndColumn: 21},
		AnchorRevision: "1111111111111111111111111111111111111111",
		Title:          "narrow span",
		CreatedAt:      time.Unix(1700000000, 0),
	})
	require.NoError(t, err)
	require.NoError(t, bridge.SaveThread(ctx, thread))

	got, err := bridge.GetThread(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, thread.Anchor, got.Anchor)

	display := domain.Range{Start: 12, StartColumn: 3, End: 12, EndColumn: 21}
	report := domain.SyncReport{
		Repository:     "repo-a",
		TargetRevision: "2222222222222222222222222222222222222222",
		SyncedAt:       time.Unix(1700000300, 0),
		Entries: []domain.SyncEntry{
			{
				ThreadID: thread.ID,
				Path:     thread.Path,
				Anchor:   thread.Anchor,
				Outcome:  domain.SyncOutcomeMapped,
				Display:  &display,
			},
		},
	}
	require.NoError(t, bridge.SaveSyncReport(ctx, report))

	record, err := bridge.LatestSync(ctx, thread.ID)
	require.NoError(t, err)
	require.NotNil(t, record.Display)
	assert.Equal(t, display, *record.Display)
}

func TestBridgeTranslatesNotFound(t *testing.T) {
	bridge := setupBridge(t)
	ctx := context.Background()

	_, err := bridge.GetThread(ctx, "missing")
	assert.True(t, errors.Is(err, anchor.ErrThreadNotFound))

	err = bridge.DeleteThread(ctx, "missing")
	assert.True(t, errors.Is(err, anchor.ErrThreadNotFound))
}

func TestBridgeResolvedThreadRoundTrip(t *testing.T) {
	bridge := setupBridge(t)
	ctx := context.Background()

	thread := bridgeThread(t, "to be resolved")
	thread.Resolve(time.Unix(1700001000, 0))
	require.NoError(t, bridge.SaveThread(ctx, thread))

	got, err := bridge.GetThread(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ThreadStateResolved, got.State)
	require.NotNil(t, got.ResolvedAt)
	assert.True(t, thread.ResolvedAt.Equal(*got.ResolvedAt))
}

func TestBridgeCommentsAndCounts(t *testing.T) {
	bridge := setupBridge(t)
	ctx := context.Background()

	thread := bridgeThread(t, "discussion")
	require.NoError(t, bridge.SaveThread(ctx, thread))

	first, err := domain.NewComment(thread.ID, "alice", "seen this before", time.Unix(1700000100, 0))
	require.NoError(t, err)
	second, err := domain.NewComment(thread.ID, "bob", "same in the other handler", time.Unix(1700000200, 0))
	require.NoError(t, err)

	require.NoError(t, bridge.AddComment(ctx, first))
	require.NoError(t, bridge.AddComment(ctx, second))

	comments, err := bridge.CommentsByThread(ctx, thread.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, "alice", comments[0].Author)
	assert.Equal(t, "bob", comments[1].Author)

	counts, err := bridge.CommentCounts(ctx, []string{thread.ID})
	require.NoError(t, err)
	assert.Equal(t, 2, counts[thread.ID])
}

func TestBridgeSyncReportRoundTrip(t *testing.T) {
	bridge := setupBridge(t)
	ctx := context.Background()

	thread := bridgeThread(t, "tail range")
	require.NoError(t, bridge.SaveThread(ctx, thread))

	display := domain.Range{Start: 14, End: 16}
	report := domain.SyncReport{
		Repository:     "repo-a",
		TargetRevision: "2222222222222222222222222222222222222222",
		SyncedAt:       time.Unix(1700000300, 0),
		Entries: []domain.SyncEntry{
			{
				ThreadID: thread.ID,
				Path:     thread.Path,
				Anchor:   thread.Anchor,
				Outcome:  domain.SyncOutcomeMapped,
				Display:  &display,
			},
		},
	}
	require.NoError(t, bridge.SaveSyncReport(ctx, report))

	record, err := bridge.LatestSync(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncOutcomeMapped, record.Outcome)
	assert.Equal(t, report.TargetRevision, record.TargetRevision)
	require.NotNil(t, record.Display)
	assert.Equal(t, display, *record.Display)
	assert.NotEmpty(t, record.SyncID)
}

func TestBridgeLatestSyncWithoutHistory(t *testing.T) {
	bridge := setupBridge(t)
	ctx := context.Background()

	thread := bridgeThread(t, "never synced")
	require.NoError(t, bridge.SaveThread(ctx, thread))

	_, err := bridge.LatestSync(ctx, thread.ID)
	assert.True(t, errors.Is(err, anchor.ErrNoSyncHistory))

	require.NoError(t, bridge.SaveSyncReport(ctx, domain.SyncReport{}))
}

func TestBridgeUnresolvableEntryHasNoDisplay(t *testing.T) {
	bridge := setupBridge(t)
	ctx := context.Background()

	thread := bridgeThread(t, "gone")
	require.NoError(t, bridge.SaveThread(ctx, thread))

	report := domain.SyncReport{
		Repository:     "repo-a",
		TargetRevision: "2222222222222222222222222222222222222222",
		SyncedAt:       time.Unix(1700000300, 0),
		Entries: []domain.SyncEntry{
			{
				ThreadID: thread.ID,
				Path:     thread.Path,
				Anchor:   thread.Anchor,
				Outcome:  domain.SyncOutcomeUnresolvable,
				Reason:   "anchored lines no longer exist in the target content",
			},
		},
	}
	require.NoError(t, bridge.SaveSyncReport(ctx, report))

	record, err := bridge.LatestSync(ctx, thread.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SyncOutcomeUnresolvable, record.Outcome)
	assert.Nil(t, record.Display)
	assert.NotEmpty(t, record.Reason)
}
