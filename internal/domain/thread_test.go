package domain_test

import (
	"testing"
	"time"

	"github.com/bkyoung/comment-anchor/internal/domain"
)

func threadInput() domain.ThreadInput {
	return domain.ThreadInput{
		Repo:           "/work/project",
		Path:           "internal/server.go",
		Anchor:         domain.NewRange(10, 12),
		AnchorRevision: "a1b2c3d4",
		Title:          "tighten the timeout handling",
		CreatedAt:      time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC),
	}
}

func TestThreadDeterministicID(t *testing.T) {
	thread, err := domain.NewThread(threadInput())
	if err != nil {
		t.Fatalf("NewThread: %v", err)
	}

	again, err := domain.NewThread(threadInput())
	if err != nil {
		t.Fatalf("NewThread: %v", err)
	}

	if thread.ID != again.ID {
		t.Fatalf("expected deterministic IDs, got %s and %s", thread.ID, again.ID)
	}
}

func TestNewThread_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*domain.ThreadInput)
	}{
		{"missing repo", func(in *domain.ThreadInput) { in.Repo = "" }},
		{"missing path", func(in *domain.ThreadInput) { in.Path = "" }},
		{"missing revision", func(in *domain.ThreadInput) { in.AnchorRevision = "" }},
		{"zero start line", func(in *domain.ThreadInput) { in.Anchor = domain.Range{Start: 0, End: 3} }},
		{"negative start line", func(in *domain.ThreadInput) { in.Anchor = domain.Range{Start: -1, End: 3} }},
		{"end before start", func(in *domain.ThreadInput) { in.Anchor = domain.Range{Start: 5, End: 3} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			input := threadInput()
			tt.mutate(&input)

			if _, err := domain.NewThread(input); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestNewThread_StartsOpen(t *testing.T) {
	thread, err := domain.NewThread(threadInput())
	if err != nil {
		t.Fatalf("NewThread: %v", err)
	}

	if thread.State != domain.ThreadStateOpen {
		t.Errorf("new thread state = %s, want %s", thread.State, domain.ThreadStateOpen)
	}
	if thread.IsResolved() {
		t.Error("new thread should not be resolved")
	}
	if thread.ResolvedAt != nil {
		t.Error("new thread should have nil ResolvedAt")
	}
}

func TestThread_ResolveAndReopen(t *testing.T) {
	thread, err := domain.NewThread(threadInput())
	if err != nil {
		t.Fatalf("NewThread: %v", err)
	}

	resolvedAt := thread.CreatedAt.Add(2 * time.Hour)
	thread.Resolve(resolvedAt)

	if !thread.IsResolved() {
		t.Fatal("thread should be resolved after Resolve")
	}
	if thread.ResolvedAt == nil || !thread.ResolvedAt.Equal(resolvedAt) {
		t.Errorf("ResolvedAt = %v, want %v", thread.ResolvedAt, resolvedAt)
	}
	if !thread.UpdatedAt.Equal(resolvedAt) {
		t.Errorf("UpdatedAt = %v, want %v", thread.UpdatedAt, resolvedAt)
	}

	reopenedAt := resolvedAt.Add(time.Hour)
	thread.Reopen(reopenedAt)

	if thread.IsResolved() {
		t.Fatal("thread should be open after Reopen")
	}
	if thread.ResolvedAt != nil {
		t.Error("ResolvedAt should be nil after Reopen")
	}
}

func TestThread_Fingerprint_StableAcrossAnchorChanges(t *testing.T) {
	// Same discussion re-anchored at a new revision and range should share
	// a fingerprint.
	first, err := domain.NewThread(threadInput())
	if err != nil {
		t.Fatalf("NewThread: %v", err)
	}

	input := threadInput()
	input.Anchor = domain.NewRange(50, 55)
	input.AnchorRevision = "ffeeddcc"
	second, err := domain.NewThread(input)
	if err != nil {
		t.Fatalf("NewThread: %v", err)
	}

	if first.ID == second.ID {
		t.Error("IDs should differ when the anchor differs")
	}
	if first.Fingerprint() != second.Fingerprint() {
		t.Errorf("fingerprints should be stable across anchor changes: %s != %s",
			first.Fingerprint(), second.Fingerprint())
	}
}

func TestThread_Fingerprint_Format(t *testing.T) {
	fp := domain.NewThreadFingerprint("/work/project", "main.go", "check error handling")

	if len(fp) != 32 {
		t.Errorf("fingerprint should be 32 hex characters, got %d: %s", len(fp), fp)
	}
	for _, c := range string(fp) {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			t.Errorf("fingerprint should be lowercase hex, found char: %c in %s", c, fp)
			break
		}
	}
}

func TestThread_Fingerprint_DifferentForDifferentPaths(t *testing.T) {
	a := domain.NewThreadFingerprint("/work/project", "main.go", "check error handling")
	b := domain.NewThreadFingerprint("/work/project", "db.go", "check error handling")

	if a == b {
		t.Error("fingerprints should differ for different paths")
	}
}

func TestNewComment_AssignsUniqueIDs(t *testing.T) {
	at := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)

	first, err := domain.NewComment("thread-1", "reviewer", "looks wrong", at)
	if err != nil {
		t.Fatalf("NewComment: %v", err)
	}
	second, err := domain.NewComment("thread-1", "reviewer", "looks wrong", at)
	if err != nil {
		t.Fatalf("NewComment: %v", err)
	}

	if first.ID == second.ID {
		t.Error("comment IDs should be unique")
	}
}

func TestNewComment_Validation(t *testing.T) {
	at := time.Date(2025, 11, 3, 9, 0, 0, 0, time.UTC)

	if _, err := domain.NewComment("", "reviewer", "body", at); err == nil {
		t.Error("expected error for missing thread ID")
	}
	if _, err := domain.NewComment("thread-1", "reviewer", "", at); err == nil {
		t.Error("expected error for empty body")
	}
}

func TestRange_Validity(t *testing.T) {
	tests := []struct {
		name  string
		r     domain.Range
		valid bool
		lines int
	}{
		{"single line", domain.Range{Start: 4, End: 4}, true, 1},
		{"multi line", domain.Range{Start: 4, End: 9}, true, 6},
		{"zero start", domain.Range{Start: 0, End: 4}, false, 0},
		{"inverted", domain.Range{Start: 9, End: 4}, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.IsValid(); got != tt.valid {
				t.Errorf("IsValid() = %v, want %v", got, tt.valid)
			}
			if got := tt.r.Lines(); got != tt.lines {
				t.Errorf("Lines() = %d, want %d", got, tt.lines)
			}
		})
	}
}

func TestRange_String(t *testing.T) {
	if got := domain.NewRange(7, 0).String(); got != "7" {
		t.Errorf("String() = %q, want %q", got, "7")
	}
	if got := domain.NewRange(7, 11).String(); got != "7-11" {
		t.Errorf("String() = %q, want %q", got, "7-11")
	}
}

func TestShortRevision(t *testing.T) {
	tests := []struct {
		name string
		rev  string
		want string
	}{
		{"full hash", "0123456789abcdef0123456789abcdef01234567", "01234567"},
		{"short hash passes through", "abc123", "abc123"},
		{"symbolic name passes through", "feature/remap", "feature/remap"},
		{"working marker passes through", "WORKING", "WORKING"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := domain.ShortRevision(tt.rev); got != tt.want {
				t.Fatalf("ShortRevision(%q) = %q, want %q", tt.rev, got, tt.want)
			}
		})
	}
}

func TestRange_ColumnsValidation(t *testing.T) {
	tests := []struct {
		name  string
		r     domain.Range
		valid bool
	}{
		{"whole lines", domain.Range{Start: 3, End: 5}, true},
		{"columns on distinct lines", domain.Range{Start: 3, StartColumn: 10, End: 5, EndColumn: 2}, true},
		{"ordered columns on one line", domain.Range{Start: 3, StartColumn: 2, End: 3, EndColumn: 9}, true},
		{"inverted columns on one line", domain.Range{Start: 3, StartColumn: 9, End: 3, EndColumn: 2}, false},
		{"negative column", domain.Range{Start: 3, StartColumn: -1, End: 5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.IsValid(); got != tt.valid {
				t.Fatalf("IsValid() = %v, want %v for %+v", got, tt.valid, tt.r)
			}
		})
	}
}

func TestRange_WithLinesKeepsColumns(t *testing.T) {
	anchor := domain.Range{Start: 3, StartColumn: 4, End: 5, EndColumn: 12}

	moved := anchor.WithLines(7, 9)

	if moved.Start != 7 || moved.End != 9 {
		t.Fatalf("expected lines 7-9, got %d-%d", moved.Start, moved.End)
	}
	if moved.StartColumn != 4 || moved.EndColumn != 12 {
		t.Fatalf("columns must carry over unchanged, got %d/%d", moved.StartColumn, moved.EndColumn)
	}
}
