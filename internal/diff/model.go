package diff

import "strings"

// LineType represents the kind of edit a record describes.
type LineType int

const (
	// LineAddition represents an added line (starts with '+').
	LineAddition LineType = iota
	// LineDeletion represents a deleted line (starts with '-').
	LineDeletion
)

// LineEdit is one parsed diff record. Context lines are not recorded;
// surviving lines are reconstructed algebraically during remapping.
type LineEdit struct {
	// Type is the kind of edit.
	Type LineType
	// BeforeLine is 1-indexed in the before-file. For deletions it is the
	// deleted line itself; for additions it is the first before-line the
	// insertion shifts down.
	BeforeLine int
	// AfterLine is 1-indexed in the after-file. Meaningful for additions.
	AfterLine int
	// Content is the line's text without the leading diff marker.
	Content string
}

// Delta returns the line-count contribution of the edit.
func (e LineEdit) Delta() int {
	if e.Type == LineAddition {
		return 1
	}
	return -1
}

// MatchKind distinguishes the three possible results of a move-target
// lookup.
type MatchKind int

const (
	// MatchNone means the content does not appear among added lines.
	MatchNone MatchKind = iota
	// MatchUnique means the content appears on exactly one added line.
	MatchUnique
	// MatchAmbiguous means two or more added lines share the content, so
	// no confident move target exists.
	MatchAmbiguous
)

// Match is the tagged result of a move-target lookup. Line is meaningful
// only when Kind is MatchUnique.
type Match struct {
	Kind MatchKind
	Line int
}

// moveTarget is an added-index entry. Once a second line collides on the
// same key the entry degrades to ambiguous and never recovers.
type moveTarget struct {
	afterLine int
	ambiguous bool
}

// Model owns the ordered edit records for one file pair, plus the lookup
// indices move detection and deletion checks run against.
type Model struct {
	Edits []LineEdit

	addedExact    map[string]*moveTarget
	addedTrimmed  map[string]*moveTarget
	deletedByLine map[int]LineEdit
}

// NewModel returns an empty model. An empty model remaps every line to
// itself.
func NewModel() *Model {
	return &Model{
		addedExact:    make(map[string]*moveTarget),
		addedTrimmed:  make(map[string]*moveTarget),
		deletedByLine: make(map[int]LineEdit),
	}
}

// Append records one edit and maintains the derived indices. Non-parser
// diff sources build models through this same path so the remapping
// algebra sees identical structure regardless of origin.
func (m *Model) Append(edit LineEdit) {
	m.Edits = append(m.Edits, edit)

	switch edit.Type {
	case LineAddition:
		indexMoveTarget(m.addedExact, edit.Content, edit.AfterLine)
		trimmed := strings.TrimSpace(edit.Content)
		if trimmed != "" {
			indexMoveTarget(m.addedTrimmed, trimmed, edit.AfterLine)
		}
	case LineDeletion:
		m.deletedByLine[edit.BeforeLine] = edit
	}
}

func indexMoveTarget(index map[string]*moveTarget, key string, afterLine int) {
	if existing, ok := index[key]; ok {
		existing.ambiguous = true
		return
	}
	index[key] = &moveTarget{afterLine: afterLine}
}

// Deleted reports whether the given before-line was deleted, and the
// deleting edit when it was.
func (m *Model) Deleted(beforeLine int) (LineEdit, bool) {
	edit, ok := m.deletedByLine[beforeLine]
	return edit, ok
}

// ExactMoveTarget looks up content in the exact-content index of added
// lines.
func (m *Model) ExactMoveTarget(content string) Match {
	return lookupMoveTarget(m.addedExact, content)
}

// TrimmedMoveTarget looks up content in the whitespace-trimmed index of
// added lines. The argument is trimmed before lookup; lines that trim to
// nothing never match.
func (m *Model) TrimmedMoveTarget(content string) Match {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return Match{Kind: MatchNone}
	}
	return lookupMoveTarget(m.addedTrimmed, trimmed)
}

// MoveTarget applies the two-tier move-detection policy for a deleted
// line's content: an exact content match wins; only when the exact index
// has no entry at all does the trimmed index get consulted. An ambiguous
// exact match stays ambiguous, since the trimmed index coarsens keys and
// cannot disambiguate it.
func (m *Model) MoveTarget(content string) Match {
	exact := m.ExactMoveTarget(content)
	if exact.Kind != MatchNone {
		return exact
	}
	return m.TrimmedMoveTarget(content)
}

func lookupMoveTarget(index map[string]*moveTarget, key string) Match {
	target, ok := index[key]
	if !ok {
		return Match{Kind: MatchNone}
	}
	if target.ambiguous {
		return Match{Kind: MatchAmbiguous}
	}
	return Match{Kind: MatchUnique, Line: target.afterLine}
}
