package store_test

import (
	"strings"
	"testing"
	"time"

	"github.com/bkyoung/comment-anchor/internal/store"
)

func TestGenerateSyncID(t *testing.T) {
	ts := time.Date(2026, 8, 26, 14, 30, 52, 0, time.UTC)

	id := store.GenerateSyncID(ts, "test-repo", "abc123")

	if !strings.HasPrefix(id, "sync-20260826T143052Z-") {
		t.Fatalf("unexpected id format: %s", id)
	}

	parts := strings.Split(id, "-")
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts, got %d: %s", len(parts), id)
	}
	if len(parts[2]) != 6 {
		t.Fatalf("expected 6 character hash, got %q", parts[2])
	}
}

func TestGenerateSyncIDUniquePerInstant(t *testing.T) {
	a := store.GenerateSyncID(time.Now(), "repo", "rev")
	b := store.GenerateSyncID(time.Now(), "repo", "rev")

	if a == b {
		t.Fatalf("expected distinct ids, both were %s", a)
	}
}
