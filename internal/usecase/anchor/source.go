package anchor

import (
	"context"

	"github.com/bkyoung/comment-anchor/internal/diff"
	"github.com/bkyoung/comment-anchor/internal/domain"
)

// RoutedDiffSource dispatches diff requests by target revision: working
// targets go to the live differ, everything else to the repository source.
type RoutedDiffSource struct {
	committed DiffSource
	working   DiffSource
}

// NewRoutedDiffSource creates a source that routes between a committed
// revision source and a working content source.
func NewRoutedDiffSource(committed, working DiffSource) *RoutedDiffSource {
	return &RoutedDiffSource{committed: committed, working: working}
}

// FileDiff routes the request based on the target revision.
func (s *RoutedDiffSource) FileDiff(ctx context.Context, repo, path, from, to string) (*diff.Model, error) {
	if to == domain.WorkingRevision {
		return s.working.FileDiff(ctx, repo, path, from, to)
	}
	return s.committed.FileDiff(ctx, repo, path, from, to)
}
