package diffcore

import (
	"fmt"
	"io"
)

// Manager holds the two per-side LineLists plus the cursors needed to merge
// a stream of single-sided "<"/">" lines (numbered by absolute source line,
// not chunk-local) into one coherent normal-format diff. It is touched by a
// single goroutine; see internal/subproc and internal/driver for how the
// surrounding pipeline guarantees that.
type Manager struct {
	lists [2]*List

	// maxSeen is the largest absolute line number ever ingested per side.
	maxSeen [2]int64

	// emitCursor is the absolute line number, per side, up to which Output
	// has produced text. Between emitted blocks it holds the first line not
	// yet emitted; Output resumes at the first entry numbered >= emitCursor.
	emitCursor [2]int64

	// pruneCursor is the absolute line number, per side, up to which
	// RemoveCommon has scanned. The next line to examine is pruneCursor.
	pruneCursor [2]int64
}

// NewManager returns an empty Manager.
func NewManager() *Manager {
	return &Manager{lists: [2]*List{NewList(), NewList()}}
}

// Input ingests one raw "< text\n" or "> text\n" line at the given absolute
// line number. The second character must be a space; anything else is a
// malformed-line protocol error. The stored text starts at character index
// 2 (the tag and the following space are stripped; the trailing newline is
// kept). Inserting an absolute line number already present on that side
// panics via List.Insert (see ErrDuplicateLineNumber) — that is a bug in
// the caller's own offset bookkeeping, not a protocol error.
func (m *Manager) Input(line string, absoluteN int64) error {
	if len(line) < 2 || line[1] != ' ' {
		return fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}

	var side Side
	switch line[0] {
	case '<':
		side = SideA
	case '>':
		side = SideB
	default:
		return fmt.Errorf("%w: %q", ErrMalformedLine, line)
	}

	m.lists[side].Insert(absoluteN, line[2:])
	if absoluteN > m.maxSeen[side] {
		m.maxSeen[side] = absoluteN
	}
	return nil
}

// MaxSeen returns the largest absolute line number ever ingested on side.
func (m *Manager) MaxSeen(side Side) int64 { return m.maxSeen[side] }

// RemoveCommon scans both sides from their prune cursors upward, up to
// min(maxSeenA, maxSeenB) or upper (upper == 0 means "as far as ingested").
// Positions where both sides hold byte-equal bodies (including the trailing
// newline) are pruned from both lists. Prune cursors persist across calls
// so already-scanned regions are never rewalked.
//
// Advancement: when both sides have an entry at their respective cursor,
// both cursors advance together (after comparing/removing). When the
// cursors disagree and only one side's position holds an entry, only that
// position is a candidate for a match anyway; rather than the original
// implementation's rule of advancing whichever side happens to hold an
// entry, this advances whichever cursor is numerically behind, so the two
// cursors can never drift apart by more than one step. See DESIGN.md for
// the reasoning (this is one of spec's flagged Open Questions).
func (m *Manager) RemoveCommon(upper int64) {
	bound := min64(m.maxSeen[SideA], m.maxSeen[SideB])
	if upper != 0 && upper < bound {
		bound = upper
	}

	for m.pruneCursor[SideA] <= bound || m.pruneCursor[SideB] <= bound {
		if upper != 0 && min64(m.pruneCursor[SideA], m.pruneCursor[SideB]) >= upper {
			return
		}

		switch {
		case m.pruneCursor[SideA] < m.pruneCursor[SideB]:
			m.pruneCursor[SideA]++
		case m.pruneCursor[SideB] < m.pruneCursor[SideA]:
			m.pruneCursor[SideB]++
		default:
			n := m.pruneCursor[SideA]
			ca := m.lists[SideA].Find(n)
			cb := m.lists[SideB].Find(n)
			if ca.Valid() && cb.Valid() && ca.Entry().Text == cb.Entry().Text {
				m.lists[SideA].Remove(n)
				m.lists[SideB].Remove(n)
			}
			m.pruneCursor[SideA]++
			m.pruneCursor[SideB]++
		}

		if m.pruneCursor[SideA] > bound && m.pruneCursor[SideB] > bound {
			return
		}
	}
}

// Output renders accumulated entries in normal-diff format up to absolute
// line upper (0 means "everything ingested so far") and writes them to w.
// It is re-entrant: a later call with a larger upper continues from the
// stored emit cursors without re-emitting or skipping lines, so callers may
// flush in several passes as memory pressure requires (see Discard).
func (m *Manager) Output(w io.Writer, upper int64) error {
	listA, listB := m.lists[SideA], m.lists[SideB]

	maxA := lastN(listA)
	maxB := lastN(listB)

	itA := seekCurrent(listA, m.emitCursor[SideA])
	itB := seekCurrent(listB, m.emitCursor[SideB])

	for m.emitCursor[SideA] <= maxA || m.emitCursor[SideB] <= maxB {
		if upper != 0 && min64(m.emitCursor[SideA], m.emitCursor[SideB]) >= upper {
			return nil
		}

		delta := m.emitCursor[SideB] - m.emitCursor[SideA]

		var step int64
		switch {
		case itA.Valid() && itB.Valid():
			step = min64(itA.Entry().N-m.emitCursor[SideA], itB.Entry().N-m.emitCursor[SideB])
		case itA.Valid():
			step = itA.Entry().N - m.emitCursor[SideA]
		case itB.Valid():
			step = itB.Entry().N - m.emitCursor[SideB]
		default:
			return nil
		}

		nextLine := min64(m.emitCursor[SideA]+step, m.emitCursor[SideB]+step-delta)
		if upper != 0 && nextLine >= upper {
			return nil
		}

		m.emitCursor[SideA] += step
		m.emitCursor[SideB] += step

		var lineA, lineB int64
		if itA.Valid() {
			lineA = itA.Entry().N
		}
		if itB.Valid() {
			lineB = itB.Entry().N
		}
		virtualA := lineA + delta

		switch {
		case itA.Valid() && itB.Valid() && virtualA == lineB:
			startA, startB := m.emitCursor[SideA], m.emitCursor[SideB]
			endA, endB := startA, startB

			textsA := []string{itA.Entry().Text}
			itA = listA.Next(itA)
			for itA.Valid() && itA.Entry().N == endA+1 {
				endA = itA.Entry().N
				textsA = append(textsA, itA.Entry().Text)
				itA = listA.Next(itA)
			}

			textsB := []string{itB.Entry().Text}
			itB = listB.Next(itB)
			for itB.Valid() && itB.Entry().N == endB+1 {
				endB = itB.Entry().N
				textsB = append(textsB, itB.Entry().Text)
				itB = listB.Next(itB)
			}

			// Edge case: remove_common was bypassed and the first pair in
			// this block is already textually identical. Skip emitting the
			// block but still advance past it.
			if textsA[0] != textsB[0] {
				writeChangeHeader(w, startA, endA, startB, endB)
				for _, t := range textsA {
					fmt.Fprintf(w, "< %s", t)
				}
				io.WriteString(w, "---\n")
				for _, t := range textsB {
					fmt.Fprintf(w, "> %s", t)
				}
			}

			m.emitCursor[SideA] = endA
			m.emitCursor[SideB] = endB

		case itA.Valid() && (!itB.Valid() || virtualA < lineB):
			startA := m.emitCursor[SideA]
			endA := startA

			texts := []string{itA.Entry().Text}
			itA = listA.Next(itA)
			for itA.Valid() && itA.Entry().N == endA+1 {
				endA = itA.Entry().N
				texts = append(texts, itA.Entry().Text)
				itA = listA.Next(itA)
			}

			m.emitCursor[SideB]--
			writeDeleteHeader(w, startA, endA, m.emitCursor[SideB])
			for _, t := range texts {
				fmt.Fprintf(w, "< %s", t)
			}
			m.emitCursor[SideA] = endA

		case itB.Valid():
			startB := m.emitCursor[SideB]
			endB := startB

			texts := []string{itB.Entry().Text}
			itB = listB.Next(itB)
			for itB.Valid() && itB.Entry().N == endB+1 {
				endB = itB.Entry().N
				texts = append(texts, itB.Entry().Text)
				itB = listB.Next(itB)
			}

			m.emitCursor[SideA]--
			writeInsertHeader(w, m.emitCursor[SideA], startB, endB)
			for _, t := range texts {
				fmt.Fprintf(w, "> %s", t)
			}
			m.emitCursor[SideB] = endB

		default:
			// Both sides exhausted; loop condition above will terminate.
		}

		m.emitCursor[SideA]++
		m.emitCursor[SideB]++
	}
	return nil
}

// Discard frees every entry with n <= upper from both lists. upper == 0
// discards everything.
func (m *Manager) Discard(upper int64) {
	for _, l := range m.lists {
		for {
			first := l.First()
			if !first.Valid() {
				break
			}
			n := first.Entry().N
			if upper != 0 && n > upper {
				break
			}
			l.Remove(n)
		}
	}
}

func lastN(l *List) int64 {
	if c := l.Last(); c.Valid() {
		return c.Entry().N
	}
	return 0
}

// seekCurrent locates the leftmost entry with number >= n, starting from
// the list's own hint (mirroring the original's "current, else first, then
// walk forward" sequence).
func seekCurrent(l *List, n int64) Cursor {
	c := l.Current()
	if !c.Valid() {
		c = l.First()
	}
	if !c.Valid() {
		return Cursor{}
	}
	return l.GoGE(c, n)
}

func writeChangeHeader(w io.Writer, a1, a2, b1, b2 int64) {
	if a1 != a2 {
		fmt.Fprintf(w, "%d,%d", a1, a2)
	} else {
		fmt.Fprintf(w, "%d", a1)
	}
	if b1 != b2 {
		fmt.Fprintf(w, "c%d,%d\n", b1, b2)
	} else {
		fmt.Fprintf(w, "c%d\n", b1)
	}
}

func writeDeleteHeader(w io.Writer, a1, a2, b1 int64) {
	if a1 != a2 {
		fmt.Fprintf(w, "%d,%dd%d\n", a1, a2, b1)
	} else {
		fmt.Fprintf(w, "%dd%d\n", a1, b1)
	}
}

func writeInsertHeader(w io.Writer, a1, b1, b2 int64) {
	if b1 != b2 {
		fmt.Fprintf(w, "%da%d,%d\n", a1, b1, b2)
	} else {
		fmt.Fprintf(w, "%da%d\n", a1, b1)
	}
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
