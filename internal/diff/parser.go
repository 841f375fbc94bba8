package diff

import (
	"fmt"
	"strconv"
	"strings"
)

// Parse parses a unified diff string into a Model.
// It handles standard git diff output including file headers, multiple
// hunks, zero-context diffs, and "\ No newline at end of file" markers.
//
// The diff grammar is enforced strictly: a hunk header that does not parse,
// a body line without a recognized marker, or a hunk whose body disagrees
// with its declared line counts all reject the whole diff with
// *MalformedDiffError.
func Parse(patch string) (*Model, error) {
	model := NewModel()
	if patch == "" {
		return model, nil
	}

	lines := strings.Split(patch, "\n")

	beforeLine := 0
	afterLine := 0
	remainingBefore := 0
	remainingAfter := 0

	for i, line := range lines {
		lineNumber := i + 1
		inHunk := remainingBefore > 0 || remainingAfter > 0

		if strings.HasPrefix(line, "@@") {
			if inHunk {
				return nil, newMalformedDiffError(lineNumber, line, "hunk header before previous hunk completed")
			}

			header, err := parseHunkHeader(lineNumber, line)
			if err != nil {
				return nil, err
			}

			beforeLine = header.beforeStart
			if header.beforeCount == 0 {
				// A zero-length before-range names the line preceding the
				// gap, not the first line of it.
				beforeLine++
			}
			afterLine = header.afterStart
			if header.afterCount == 0 {
				afterLine++
			}
			remainingBefore = header.beforeCount
			remainingAfter = header.afterCount
			continue
		}

		if !inHunk {
			// Preamble and file headers between hunks carry no edits.
			continue
		}

		if line == "" {
			return nil, newMalformedDiffError(lineNumber, line, "missing line marker")
		}

		switch line[0] {
		case '+':
			if remainingAfter == 0 {
				return nil, newMalformedDiffError(lineNumber, line, "more added lines than the hunk header declared")
			}
			model.Append(LineEdit{
				Type:       LineAddition,
				BeforeLine: beforeLine,
				AfterLine:  afterLine,
				Content:    line[1:],
			})
			afterLine++
			remainingAfter--
		case '-':
			if remainingBefore == 0 {
				return nil, newMalformedDiffError(lineNumber, line, "more deleted lines than the hunk header declared")
			}
			model.Append(LineEdit{
				Type:       LineDeletion,
				BeforeLine: beforeLine,
				AfterLine:  afterLine,
				Content:    line[1:],
			})
			beforeLine++
			remainingBefore--
		case ' ':
			if remainingBefore == 0 || remainingAfter == 0 {
				return nil, newMalformedDiffError(lineNumber, line, "context line outside the declared hunk ranges")
			}
			beforeLine++
			afterLine++
			remainingBefore--
			remainingAfter--
		case '\\':
			// "\ No newline at end of file": no edit, no line consumed.
		default:
			return nil, newMalformedDiffError(lineNumber, line, "unrecognized line marker")
		}
	}

	if remainingBefore > 0 || remainingAfter > 0 {
		return nil, newMalformedDiffError(len(lines), lines[len(lines)-1], "diff truncated mid-hunk")
	}

	return model, nil
}

// hunkHeader holds the ranges declared by an "@@ -a,b +c,d @@" line.
type hunkHeader struct {
	beforeStart int
	beforeCount int
	afterStart  int
	afterCount  int
}

// parseHunkHeader parses a hunk header line like "@@ -10,7 +10,8 @@ optional context".
func parseHunkHeader(lineNumber int, line string) (hunkHeader, error) {
	parts := strings.Split(line, "@@")
	if len(parts) < 3 {
		return hunkHeader{}, newMalformedDiffError(lineNumber, line, "unterminated hunk header")
	}

	fields := strings.Fields(strings.TrimSpace(parts[1]))
	if len(fields) != 2 || !strings.HasPrefix(fields[0], "-") || !strings.HasPrefix(fields[1], "+") {
		return hunkHeader{}, newMalformedDiffError(lineNumber, line, "hunk header ranges must be '-start[,count] +start[,count]'")
	}

	beforeStart, beforeCount, err := parseRange(strings.TrimPrefix(fields[0], "-"))
	if err != nil {
		return hunkHeader{}, newMalformedDiffError(lineNumber, line, fmt.Sprintf("invalid before-range: %v", err))
	}

	afterStart, afterCount, err := parseRange(strings.TrimPrefix(fields[1], "+"))
	if err != nil {
		return hunkHeader{}, newMalformedDiffError(lineNumber, line, fmt.Sprintf("invalid after-range: %v", err))
	}

	return hunkHeader{
		beforeStart: beforeStart,
		beforeCount: beforeCount,
		afterStart:  afterStart,
		afterCount:  afterCount,
	}, nil
}

// parseRange parses "start,count" or "start" format, defaulting count to 1
// when omitted.
func parseRange(s string) (start, count int, err error) {
	countText := ""
	startText := s
	if idx := strings.Index(s, ","); idx >= 0 {
		startText = s[:idx]
		countText = s[idx+1:]
	}

	start, err = strconv.Atoi(startText)
	if err != nil {
		return 0, 0, fmt.Errorf("bad start %q", startText)
	}

	count = 1
	if countText != "" {
		count, err = strconv.Atoi(countText)
		if err != nil {
			return 0, 0, fmt.Errorf("bad count %q", countText)
		}
	}

	if start < 0 || count < 0 {
		return 0, 0, fmt.Errorf("negative range %q", s)
	}
	return start, count, nil
}
