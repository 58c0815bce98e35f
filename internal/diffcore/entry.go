// Package diffcore holds the two-sided diff model: an ordered, cursor-based
// line container per side (List) and the state machine that merges a
// stream of single-sided "<"/">" lines into a normal-format diff keyed by
// absolute (not chunk-local) line numbers (Manager).
package diffcore

// Side identifies which input a line belongs to. Encoding the side as a
// two-valued tag (rather than duplicating fields/methods per side, as the
// original C implementation's difflistA/difflistB split does) lets Manager
// stay symmetric under A/B.
type Side int

const (
	// SideA is the "from" input (the lines prefixed "< " in diff's output).
	SideA Side = iota
	// SideB is the "to" input (the lines prefixed "> ").
	SideB
)

// String returns a human-readable name for the side, used in log fields.
func (s Side) String() string {
	if s == SideA {
		return "A"
	}
	return "B"
}

// Entry is a single stored line: an absolute source line number paired with
// its text (tag stripped, trailing newline preserved). Entries are owned
// exclusively by the LineList that holds them.
type Entry struct {
	N    int64
	Text string
}
