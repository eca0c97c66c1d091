// Package textdiff computes line-level diffs using the Myers
// shortest-edit-script algorithm, with a linear-time coarse fallback for
// inputs past a configurable size.
//
// Results are structural hunks — (kind, old range, new range) — rather
// than rendered text, so callers can project, merge, and splice them.
// Window supports incremental recomputation: re-diff just the region
// around an edit and splice the result into an existing hunk set.
// Unified renders hunks in the familiar unified diff format.
package textdiff
