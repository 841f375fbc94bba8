// Package buffer derives edit models for unsaved working content by
// line-diffing a revision's blob against the live file, feeding the same
// remap algebra as committed-to-committed diffs.
package buffer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/bkyoung/comment-anchor/internal/diff"
	"github.com/bkyoung/comment-anchor/internal/domain"
	"github.com/bkyoung/comment-anchor/internal/logging"
)

// ContentSource supplies file content as of a committed revision.
type ContentSource interface {
	FileContent(ctx context.Context, repo, path, rev string) ([]byte, bool, error)
}

// Documents supplies current working content of files.
type Documents interface {
	Content(repo, path string) ([]byte, bool, error)
}

// Differ implements the DiffSource port for revision-to-working targets.
type Differ struct {
	base   ContentSource
	docs   Documents
	logger zerolog.Logger
}

// NewDiffer constructs a working-content differ.
func NewDiffer(base ContentSource, docs Documents) *Differ {
	return &Differ{
		base:   base,
		docs:   docs,
		logger: logging.Component("buffer"),
	}
}

// FileDiff builds an edit model from the committed content at `from` to
// the current working content of the file. The `to` argument must be the
// working-revision marker; committed targets belong to the git engine.
func (d *Differ) FileDiff(ctx context.Context, repo, path, from, to string) (*diff.Model, error) {
	if to != domain.WorkingRevision {
		return nil, fmt.Errorf("buffer differ targets working content, got revision %q", to)
	}

	oldContent, oldFound, err := d.base.FileContent(ctx, repo, path, from)
	if err != nil {
		return nil, fmt.Errorf("base content for %s at %s: %w", path, from, err)
	}
	if !oldFound {
		oldContent = nil
	}

	newContent, newFound, err := d.docs.Content(repo, path)
	if err != nil {
		return nil, fmt.Errorf("working content for %s: %w", path, err)
	}
	if !newFound {
		newContent = nil
	}

	model := Diff(string(oldContent), string(newContent))

	d.logger.Debug().
		Ctx(ctx).
		Str("path", path).
		Str("from", from).
		Int("edits", len(model.Edits)).
		Msg("built working-content diff")

	return model, nil
}

// Diff line-diffs two texts into an edit model. It uses diffmatchpatch's
// line-mode pipeline (lines to placeholder chars, char diff, back to
// lines) so the result is a pure line diff with no intra-line splits.
func Diff(oldText, newText string) *diff.Model {
	model := diff.NewModel()
	if oldText == newText {
		return model
	}

	dmp := diffmatchpatch.New()
	chars1, chars2, lineArray := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffMain(chars1, chars2, false)
	lineDiffs := dmp.DiffCharsToLines(diffs, lineArray)

	oldLine := 1
	newLine := 1
	for _, d := range lineDiffs {
		lines := splitDiffLines(d.Text)
		switch d.Type {
		case diffmatchpatch.DiffEqual:
			oldLine += len(lines)
			newLine += len(lines)
		case diffmatchpatch.DiffDelete:
			for _, line := range lines {
				model.Append(diff.LineEdit{
					Type:       diff.LineDeletion,
					BeforeLine: oldLine,
					AfterLine:  newLine,
					Content:    line,
				})
				oldLine++
			}
		case diffmatchpatch.DiffInsert:
			for _, line := range lines {
				model.Append(diff.LineEdit{
					Type:       diff.LineAddition,
					BeforeLine: oldLine,
					AfterLine:  newLine,
					Content:    line,
				})
				newLine++
			}
		}
	}

	return model
}

// splitDiffLines splits diffmatchpatch segment text into lines. Each line
// in the segment carries its trailing newline, so the spurious empty
// element after the final newline is dropped; a last line without a
// newline still counts as a line.
func splitDiffLines(text string) []string {
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
