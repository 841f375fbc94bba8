package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// GenerateSyncID creates a unique, time-ordered sync pass ID.
// Format: sync-<timestamp>-<hash>
// Example: sync-20260826T143052Z-a3f9c2
func GenerateSyncID(timestamp time.Time, repo, targetRevision string) string {
	ts := timestamp.UTC().Format("20060102T150405Z")

	// Short hash from repo, target, and nanoseconds for uniqueness
	input := fmt.Sprintf("%s|%s|%d", repo, targetRevision, timestamp.UnixNano())
	hash := sha256.Sum256([]byte(input))
	shortHash := hex.EncodeToString(hash[:3])

	return fmt.Sprintf("sync-%s-%s", ts, shortHash)
}
