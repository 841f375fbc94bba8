// Package git implements the SCM ports backed by go-git: revision
// resolution, per-file zero-context diffs, and blob content at a revision.
package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	goGit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	formatdiff "github.com/go-git/go-git/v5/plumbing/format/diff"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/rs/zerolog"

	"github.com/bkyoung/comment-anchor/internal/diff"
	"github.com/bkyoung/comment-anchor/internal/logging"
)

// contextLines is the number of unchanged lines the unified encoder emits
// around each hunk. The remap algebra reconstructs unchanged lines itself,
// so context would only inflate the parsed models.
const contextLines = 0

// Engine implements the DiffSource, RevisionResolver, and content-source
// ports backed by go-git.
type Engine struct {
	repoDir string
	retry   RetryConfig
	logger  zerolog.Logger
}

// NewEngine constructs a Git engine for the provided repository directory.
func NewEngine(repoDir string, retry RetryConfig) *Engine {
	return &Engine{
		repoDir: repoDir,
		retry:   retry,
		logger:  logging.Component("git"),
	}
}

// ResolveRevision translates a symbolic revision (HEAD, branch, tag, short
// hash) into the canonical commit hash.
func (e *Engine) ResolveRevision(ctx context.Context, repo, ref string) (string, error) {
	var hash string
	op := func(ctx context.Context) error {
		r, err := e.open(repo)
		if err != nil {
			return err
		}
		commit, err := resolveCommit(r, repo, ref)
		if err != nil {
			return err
		}
		hash = commit.Hash.String()
		return nil
	}
	if err := RetryWithBackoff(ctx, op, e.retry); err != nil {
		return "", err
	}
	return hash, nil
}

// FileDiff computes the zero-context unified diff for one file between two
// committed revisions and parses it into an edit model. A file untouched
// between the revisions yields an empty model.
func (e *Engine) FileDiff(ctx context.Context, repo, path, from, to string) (*diff.Model, error) {
	var model *diff.Model
	op := func(ctx context.Context) error {
		m, err := e.fileDiff(ctx, repo, path, from, to)
		if err != nil {
			return err
		}
		model = m
		return nil
	}
	if err := RetryWithBackoff(ctx, op, e.retry); err != nil {
		return nil, err
	}
	return model, nil
}

// FileContent returns the blob content of path at the given revision, and
// whether the file exists in that revision's tree.
func (e *Engine) FileContent(ctx context.Context, repo, path, rev string) ([]byte, bool, error) {
	var content []byte
	var found bool
	op := func(ctx context.Context) error {
		r, err := e.open(repo)
		if err != nil {
			return err
		}
		commit, err := resolveCommit(r, repo, rev)
		if err != nil {
			return err
		}
		file, err := commit.File(path)
		if err != nil {
			if errors.Is(err, object.ErrFileNotFound) {
				content, found = nil, false
				return nil
			}
			return NewDiffFailedError(repo, fmt.Sprintf("read %s at %s: %v", path, rev, err))
		}
		text, err := file.Contents()
		if err != nil {
			return NewDiffFailedError(repo, fmt.Sprintf("read %s at %s: %v", path, rev, err))
		}
		content, found = []byte(text), true
		return nil
	}
	if err := RetryWithBackoff(ctx, op, e.retry); err != nil {
		return nil, false, err
	}
	return content, found, nil
}

func (e *Engine) fileDiff(ctx context.Context, repo, path, from, to string) (*diff.Model, error) {
	r, err := e.open(repo)
	if err != nil {
		return nil, err
	}

	fromCommit, err := resolveCommit(r, repo, from)
	if err != nil {
		return nil, err
	}
	toCommit, err := resolveCommit(r, repo, to)
	if err != nil {
		return nil, err
	}

	patch, err := fromCommit.PatchContext(ctx, toCommit)
	if err != nil {
		return nil, NewDiffFailedError(repo, fmt.Sprintf("compute patch %s..%s: %v", from, to, err))
	}

	fp := findFilePatch(patch, path)
	if fp == nil {
		e.logger.Debug().Ctx(ctx).Str("path", path).Msg("file unchanged between revisions")
		return diff.NewModel(), nil
	}
	if fp.IsBinary() {
		return nil, NewBinaryFileError(repo, fmt.Sprintf("%s is binary at %s..%s", path, from, to))
	}

	patchText, err := encodeFilePatch(fp)
	if err != nil {
		return nil, NewDiffFailedError(repo, fmt.Sprintf("encode patch for %s: %v", path, err))
	}

	e.logger.Debug().
		Ctx(ctx).
		Str("path", path).
		Str("from", from).
		Str("to", to).
		Str("patch", logging.Truncate(patchText)).
		Msg("parsed file diff")

	return diff.Parse(patchText)
}

func (e *Engine) open(repo string) (*goGit.Repository, error) {
	r, err := goGit.PlainOpenWithOptions(e.repoDir, &goGit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, NewRepoUnavailableError(repo, fmt.Sprintf("open %s: %v", e.repoDir, err))
	}
	return r, nil
}

func resolveCommit(r *goGit.Repository, repo, ref string) (*object.Commit, error) {
	candidates := []string{
		ref,
		fmt.Sprintf("refs/heads/%s", ref),
		fmt.Sprintf("refs/remotes/origin/%s", ref),
		fmt.Sprintf("refs/tags/%s", ref),
	}

	var lastErr error
	for _, candidate := range candidates {
		name := plumbing.Revision(candidate)
		hash, err := r.ResolveRevision(name)
		if err != nil {
			lastErr = err
			continue
		}
		commit, err := r.CommitObject(*hash)
		if err != nil {
			lastErr = err
			continue
		}
		return commit, nil
	}
	if lastErr != nil {
		return nil, NewRevisionNotFoundError(repo, fmt.Sprintf("resolve %s: %v", ref, lastErr))
	}
	return nil, NewRevisionNotFoundError(repo, fmt.Sprintf("resolve %s", ref))
}

// findFilePatch selects the patch for one path out of a whole-tree patch.
// The after-side path wins so that edits to a renamed file still match its
// current name.
func findFilePatch(patch *object.Patch, path string) formatdiff.FilePatch {
	for _, fp := range patch.FilePatches() {
		from, to := fp.Files()
		if to != nil && to.Path() == path {
			return fp
		}
		if to == nil && from != nil && from.Path() == path {
			return fp
		}
	}
	return nil
}

func encodeFilePatch(fp formatdiff.FilePatch) (string, error) {
	var buf bytes.Buffer
	encoder := formatdiff.NewUnifiedEncoder(&buf, contextLines)
	if err := encoder.Encode(singlePatch{fp: fp}); err != nil {
		return "", err
	}
	return buf.String(), nil
}

type singlePatch struct {
	fp formatdiff.FilePatch
}

func (s singlePatch) FilePatches() []formatdiff.FilePatch {
	return []formatdiff.FilePatch{s.fp}
}

func (s singlePatch) Message() string {
	return ""
}
