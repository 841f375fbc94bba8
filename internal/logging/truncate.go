package logging

import "fmt"

// MaxLoggedTextLength is the maximum length of diff or buffer text to
// include in logs. Longer payloads are truncated so log aggregators never
// receive whole source files.
const MaxLoggedTextLength = 200

// Truncate shortens a text payload for logging purposes.
// Returns the first MaxLoggedTextLength bytes plus a truncation indicator
// when the payload is longer.
func Truncate(text string) string {
	if len(text) <= MaxLoggedTextLength {
		return text
	}
	return text[:MaxLoggedTextLength] + fmt.Sprintf("... [truncated, total length=%d bytes]", len(text))
}
