package git_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bkyoung/comment-anchor/internal/adapter/git"
)

func TestErrorTypeString(t *testing.T) {
	tests := []struct {
		errType git.ErrorType
		want    string
	}{
		{git.ErrTypeRevisionNotFound, "revision not found"},
		{git.ErrTypeRepoUnavailable, "repository unavailable"},
		{git.ErrTypeDiffFailed, "diff failed"},
		{git.ErrTypeBinaryFile, "binary file"},
		{git.ErrTypeUnknown, "unknown error"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.errType.String())
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name      string
		err       *git.Error
		errType   git.ErrorType
		retryable bool
	}{
		{"revision not found", git.NewRevisionNotFoundError("repo", "no such ref"), git.ErrTypeRevisionNotFound, false},
		{"repo unavailable", git.NewRepoUnavailableError("repo", "clone in progress"), git.ErrTypeRepoUnavailable, true},
		{"diff failed", git.NewDiffFailedError("repo", "encode error"), git.ErrTypeDiffFailed, false},
		{"binary file", git.NewBinaryFileError("repo", "image.png"), git.ErrTypeBinaryFile, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.errType, tt.err.Type)
			assert.Equal(t, tt.retryable, tt.err.IsRetryable())
			assert.Contains(t, tt.err.Error(), tt.errType.String())
		})
	}
}

func TestErrorIsMatchesByType(t *testing.T) {
	err := git.NewRevisionNotFoundError("repo-a", "missing")
	target := git.NewRevisionNotFoundError("repo-b", "other message")

	assert.True(t, errors.Is(err, target))
	assert.False(t, errors.Is(err, git.NewRepoUnavailableError("repo-a", "down")))
}

func TestErrorIsThroughWrapping(t *testing.T) {
	inner := git.NewRepoUnavailableError("repo", "locked")
	wrapped := fmt.Errorf("sync failed: %w", inner)

	var gitErr *git.Error
	assert.True(t, errors.As(wrapped, &gitErr))
	assert.Equal(t, git.ErrTypeRepoUnavailable, gitErr.Type)
}
