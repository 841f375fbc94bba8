// Package diff parses unified diff text into a queryable per-line edit
// model and remaps line ranges from the before-file into the after-file.
//
// The model records added and deleted lines only; unchanged lines are
// reconstructed algebraically from the cumulative line deltas. Deleted
// lines additionally go through move detection, which matches their
// content against the added lines (exactly first, whitespace-trimmed as a
// fallback) so that cut-and-paste relocations keep their anchors. A
// duplicated content match is never trusted: guessing the wrong target is
// worse than reporting the position unknown.
//
// Diffs are expected to carry zero lines of context to keep models
// compact, but contextful diffs parse and remap correctly too.
package diff
