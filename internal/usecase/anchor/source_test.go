package anchor_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkyoung/comment-anchor/internal/diff"
	"github.com/bkyoung/comment-anchor/internal/domain"
	"github.com/bkyoung/comment-anchor/internal/usecase/anchor"
)

func TestRoutedDiffSource(t *testing.T) {
	committed := &stubDiffSource{model: diff.NewModel()}
	working := &stubDiffSource{model: diff.NewModel()}
	source := anchor.NewRoutedDiffSource(committed, working)
	ctx := context.Background()

	_, err := source.FileDiff(ctx, "repo-a", "pkg/server.go", "aaaa", "bbbb")
	require.NoError(t, err)
	assert.Equal(t, int64(1), committed.calls.Load())
	assert.Equal(t, int64(0), working.calls.Load())

	_, err = source.FileDiff(ctx, "repo-a", "pkg/server.go", "aaaa", domain.WorkingRevision)
	require.NoError(t, err)
	assert.Equal(t, int64(1), committed.calls.Load())
	assert.Equal(t, int64(1), working.calls.Load())
}
