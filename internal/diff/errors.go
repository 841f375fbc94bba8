package diff

import "fmt"

const maxFragmentLength = 80

// MalformedDiffError reports diff text that violates the unified-diff
// grammar. The whole diff is rejected; there is no partial model.
type MalformedDiffError struct {
	// LineNumber is the 1-indexed line within the diff text.
	LineNumber int
	// Fragment is the offending line, shortened for diagnostics.
	Fragment string
	// Reason describes the grammar violation.
	Reason string
}

func newMalformedDiffError(lineNumber int, fragment, reason string) *MalformedDiffError {
	if len(fragment) > maxFragmentLength {
		fragment = fragment[:maxFragmentLength] + "..."
	}
	return &MalformedDiffError{
		LineNumber: lineNumber,
		Fragment:   fragment,
		Reason:     reason,
	}
}

// Error implements the error interface.
func (e *MalformedDiffError) Error() string {
	return fmt.Sprintf("malformed diff at line %d: %s (%q)", e.LineNumber, e.Reason, e.Fragment)
}
