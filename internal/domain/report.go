package domain

import "time"

// SyncOutcome describes how a thread's display range was derived during a
// sync pass.
type SyncOutcome string

const (
	// SyncOutcomeIdentity indicates the anchor revision already matches the
	// target, so the anchor range is the display range.
	SyncOutcomeIdentity SyncOutcome = "identity"
	// SyncOutcomeMapped indicates the anchor survived and shifted by the
	// surrounding edits.
	SyncOutcomeMapped SyncOutcome = "mapped"
	// SyncOutcomeMoved indicates the anchored lines were relocated and found
	// again by content matching.
	SyncOutcomeMoved SyncOutcome = "moved"
	// SyncOutcomeUnresolvable indicates the anchored lines no longer exist
	// in the target content.
	SyncOutcomeUnresolvable SyncOutcome = "unresolvable"
	// SyncOutcomeFailed indicates the diff for the thread's group could not
	// be obtained or parsed.
	SyncOutcomeFailed SyncOutcome = "failed"
)

// IsValid returns true if the outcome is a recognized value.
func (o SyncOutcome) IsValid() bool {
	switch o {
	case SyncOutcomeIdentity, SyncOutcomeMapped, SyncOutcomeMoved,
		SyncOutcomeUnresolvable, SyncOutcomeFailed:
		return true
	default:
		return false
	}
}

// Resolved returns true if the outcome produced a display range.
func (o SyncOutcome) Resolved() bool {
	switch o {
	case SyncOutcomeIdentity, SyncOutcomeMapped, SyncOutcomeMoved:
		return true
	default:
		return false
	}
}

// SyncEntry is the per-thread result of a sync pass.
type SyncEntry struct {
	ThreadID       string      `json:"threadId"`
	Path           string      `json:"path"`
	Title          string      `json:"title"`
	State          ThreadState `json:"state"`
	Anchor         Range       `json:"anchor"`
	AnchorRevision string      `json:"anchorRevision"`
	Outcome        SyncOutcome `json:"outcome"`
	Display        *Range      `json:"display,omitempty"`
	Reason         string      `json:"reason,omitempty"`
}

// SyncReport aggregates the results of syncing a set of threads against a
// target revision.
type SyncReport struct {
	Repository     string      `json:"repository"`
	TargetRevision string      `json:"targetRevision"`
	SyncedAt       time.Time   `json:"syncedAt"`
	Entries        []SyncEntry `json:"entries"`
}

// ResolvedCount returns the number of entries with a display range.
func (r SyncReport) ResolvedCount() int {
	count := 0
	for _, e := range r.Entries {
		if e.Outcome.Resolved() {
			count++
		}
	}
	return count
}

// UnresolvableCount returns the number of entries whose anchors no longer
// exist in the target content.
func (r SyncReport) UnresolvableCount() int {
	count := 0
	for _, e := range r.Entries {
		if e.Outcome == SyncOutcomeUnresolvable {
			count++
		}
	}
	return count
}

// FailedCount returns the number of entries whose diff could not be
// obtained.
func (r SyncReport) FailedCount() int {
	count := 0
	for _, e := range r.Entries {
		if e.Outcome == SyncOutcomeFailed {
			count++
		}
	}
	return count
}

// MarkdownArtifact encapsulates the Markdown generation inputs.
type MarkdownArtifact struct {
	OutputDir  string
	Repository string
	TargetRef  string
	Report     SyncReport
}

// JSONArtifact encapsulates the JSON generation inputs.
type JSONArtifact struct {
	OutputDir  string
	Repository string
	TargetRef  string
	Report     SyncReport
}
