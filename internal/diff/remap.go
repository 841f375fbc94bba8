package diff

// Outcome classifies a remapping result. Remapping never fails with an
// error; a line that cannot be placed is reported as unresolvable.
type Outcome int

const (
	// OutcomeMapped means the line survived and shifted by the surrounding
	// edits.
	OutcomeMapped Outcome = iota
	// OutcomeMoved means the line was deleted but its content reappeared
	// verbatim (or re-indented) on exactly one added line.
	OutcomeMoved
	// OutcomeUnresolvable means no confident after-position exists.
	OutcomeUnresolvable
)

// String renders the outcome for logs and reports.
func (o Outcome) String() string {
	switch o {
	case OutcomeMapped:
		return "mapped"
	case OutcomeMoved:
		return "moved"
	case OutcomeUnresolvable:
		return "unresolvable"
	default:
		return "unknown"
	}
}

// LineResult is the outcome of remapping a single before-line. Line is
// meaningful only when Outcome is not OutcomeUnresolvable.
type LineResult struct {
	Outcome Outcome
	Line    int
}

// RangeResult is the outcome of remapping a before-range. Start and End
// are meaningful only when Outcome is not OutcomeUnresolvable.
type RangeResult struct {
	Outcome Outcome
	Start   int
	End     int
}

// RemapLine maps a 1-indexed before-file line through the model into the
// after-file.
//
// A line that was not deleted shifts by the cumulative delta of every edit
// at or before it in before-file coordinates. A deleted line goes through
// move detection: a unique content match among the added lines relocates
// it; no match or an ambiguous match makes it unresolvable.
func RemapLine(m *Model, beforeLine int) LineResult {
	if beforeLine < 1 {
		return LineResult{Outcome: OutcomeUnresolvable}
	}

	if deleted, ok := m.Deleted(beforeLine); ok {
		match := m.MoveTarget(deleted.Content)
		if match.Kind == MatchUnique {
			return LineResult{Outcome: OutcomeMoved, Line: match.Line}
		}
		return LineResult{Outcome: OutcomeUnresolvable}
	}

	offset := 0
	for _, edit := range m.Edits {
		if edit.BeforeLine <= beforeLine {
			offset += edit.Delta()
		}
	}
	return LineResult{Outcome: OutcomeMapped, Line: beforeLine + offset}
}

// RemapRange maps a 1-indexed inclusive before-range through the model.
// Endpoints remap independently; losing either makes the whole range
// unresolvable, as does an endpoint crossing (remapped start after
// remapped end). A range whose interior was partially deleted but whose
// endpoints both resolve is accepted.
func RemapRange(m *Model, start, end int) RangeResult {
	startResult := RemapLine(m, start)
	endResult := RemapLine(m, end)

	if startResult.Outcome == OutcomeUnresolvable || endResult.Outcome == OutcomeUnresolvable {
		return RangeResult{Outcome: OutcomeUnresolvable}
	}
	if startResult.Line > endResult.Line {
		return RangeResult{Outcome: OutcomeUnresolvable}
	}

	outcome := OutcomeMapped
	if startResult.Outcome == OutcomeMoved || endResult.Outcome == OutcomeMoved {
		outcome = OutcomeMoved
	}
	return RangeResult{
		Outcome: outcome,
		Start:   startResult.Line,
		End:     endResult.Line,
	}
}
