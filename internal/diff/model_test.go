package diff_test

import (
	"testing"

	"github.com/bkyoung/comment-anchor/internal/diff"
)

// Models in these tests are built through Append, the same path
// non-parser diff sources use.

func TestModel_MoveTarget_Unique(t *testing.T) {
	model := diff.NewModel()
	model.Append(diff.LineEdit{Type: diff.LineDeletion, BeforeLine: 10, Content: "helper()"})
	model.Append(diff.LineEdit{Type: diff.LineAddition, BeforeLine: 41, AfterLine: 40, Content: "helper()"})

	match := model.MoveTarget("helper()")
	if match.Kind != diff.MatchUnique {
		t.Fatalf("MoveTarget kind = %v, want MatchUnique", match.Kind)
	}
	if match.Line != 40 {
		t.Errorf("MoveTarget line = %d, want 40", match.Line)
	}
}

func TestModel_MoveTarget_NoMatch(t *testing.T) {
	model := diff.NewModel()
	model.Append(diff.LineEdit{Type: diff.LineAddition, BeforeLine: 5, AfterLine: 5, Content: "other line"})

	match := model.MoveTarget("helper()")
	if match.Kind != diff.MatchNone {
		t.Errorf("MoveTarget kind = %v, want MatchNone", match.Kind)
	}
}

func TestModel_MoveTarget_AmbiguousExact(t *testing.T) {
	model := diff.NewModel()
	model.Append(diff.LineEdit{Type: diff.LineAddition, BeforeLine: 20, AfterLine: 20, Content: "return nil"})
	model.Append(diff.LineEdit{Type: diff.LineAddition, BeforeLine: 45, AfterLine: 45, Content: "return nil"})

	match := model.MoveTarget("return nil")
	if match.Kind != diff.MatchAmbiguous {
		t.Errorf("MoveTarget kind = %v, want MatchAmbiguous", match.Kind)
	}
}

func TestModel_MoveTarget_TrimmedFallback(t *testing.T) {
	model := diff.NewModel()
	model.Append(diff.LineEdit{Type: diff.LineAddition, BeforeLine: 30, AfterLine: 30, Content: "x := 1"})

	// Exact lookup fails on the indented form; the trimmed tier recovers it.
	match := model.MoveTarget("  x := 1")
	if match.Kind != diff.MatchUnique {
		t.Fatalf("MoveTarget kind = %v, want MatchUnique", match.Kind)
	}
	if match.Line != 30 {
		t.Errorf("MoveTarget line = %d, want 30", match.Line)
	}
}

func TestModel_MoveTarget_TrimmedAmbiguous(t *testing.T) {
	// Two added lines that differ only in indentation collide in the
	// trimmed index.
	model := diff.NewModel()
	model.Append(diff.LineEdit{Type: diff.LineAddition, BeforeLine: 20, AfterLine: 20, Content: "x := 1"})
	model.Append(diff.LineEdit{Type: diff.LineAddition, BeforeLine: 45, AfterLine: 45, Content: "    x := 1"})

	match := model.MoveTarget("  x := 1")
	if match.Kind != diff.MatchAmbiguous {
		t.Errorf("MoveTarget kind = %v, want MatchAmbiguous", match.Kind)
	}
}

func TestModel_MoveTarget_BlankLinesNeverMatchTrimmed(t *testing.T) {
	model := diff.NewModel()
	model.Append(diff.LineEdit{Type: diff.LineAddition, BeforeLine: 8, AfterLine: 8, Content: "    "})

	// A deleted blank line must not "move" to an unrelated blank line.
	match := model.MoveTarget("  ")
	if match.Kind != diff.MatchNone {
		t.Errorf("MoveTarget kind = %v, want MatchNone", match.Kind)
	}
}

func TestModel_ExactWinsOverTrimmed(t *testing.T) {
	model := diff.NewModel()
	model.Append(diff.LineEdit{Type: diff.LineAddition, BeforeLine: 12, AfterLine: 12, Content: "  x := 1"})
	model.Append(diff.LineEdit{Type: diff.LineAddition, BeforeLine: 80, AfterLine: 80, Content: "x := 1"})

	// The exact form exists at line 12; the trimmed collision at line 80
	// must not override it.
	match := model.MoveTarget("  x := 1")
	if match.Kind != diff.MatchUnique {
		t.Fatalf("MoveTarget kind = %v, want MatchUnique", match.Kind)
	}
	if match.Line != 12 {
		t.Errorf("MoveTarget line = %d, want 12", match.Line)
	}
}

func TestModel_Deleted(t *testing.T) {
	model := diff.NewModel()
	model.Append(diff.LineEdit{Type: diff.LineDeletion, BeforeLine: 7, Content: "foo"})

	edit, ok := model.Deleted(7)
	if !ok {
		t.Fatal("Deleted(7) = false, want true")
	}
	if edit.Content != "foo" {
		t.Errorf("deleted content = %q, want %q", edit.Content, "foo")
	}

	if _, ok := model.Deleted(8); ok {
		t.Error("Deleted(8) = true, want false")
	}
}

func TestModel_TrimmedMoveTarget_TrimsArgument(t *testing.T) {
	model := diff.NewModel()
	model.Append(diff.LineEdit{Type: diff.LineAddition, BeforeLine: 3, AfterLine: 3, Content: "\tvalue := compute()"})

	match := model.TrimmedMoveTarget("  value := compute()  ")
	if match.Kind != diff.MatchUnique {
		t.Fatalf("TrimmedMoveTarget kind = %v, want MatchUnique", match.Kind)
	}
	if match.Line != 3 {
		t.Errorf("TrimmedMoveTarget line = %d, want 3", match.Line)
	}
}
