package diffcore

import "fmt"

// node is one link in the list's backing doubly-linked chain. Entries are
// strictly sorted by Entry.N with no duplicates.
type node struct {
	entry      Entry
	prev, next *node
}

// Cursor is a detached reference to a position in a List. It does not own
// the entry it points to: removing the entry a Cursor references leaves the
// Cursor stale, and it must be repositioned before further use. A stale
// Cursor is not detected: Valid still reports true for it. A zero Cursor is
// invalid ("unset").
//
// Cursor objects are cheap value types; List operations take and return
// them rather than mutating a single shared iterator, so callers may hold
// several independent positions into the same list (the emit cursor and the
// prune cursor in Manager, for instance).
type Cursor struct {
	n *node
}

// Valid reports whether the cursor is set. It does not detect a cursor whose
// entry has since been removed from the list.
func (c Cursor) Valid() bool { return c.n != nil }

// Entry returns the entry the cursor references. Calling it on an invalid
// cursor panics; callers must check Valid first.
func (c Cursor) Entry() Entry {
	if c.n == nil {
		panic("diffcore: Entry called on an unset Cursor")
	}
	return c.n.entry
}

// List is an ordered collection of Entry values keyed by strictly ascending
// line number, with a movable internal hint cursor that biases insertion,
// removal and lookup toward O(local) instead of O(log n) or O(n): callers
// that walk the list in line-number order (the common case for both the
// subprocess driver feeding it and Manager draining it) pay for a short scan
// from the last touched position rather than a binary search from scratch.
type List struct {
	head, tail *node
	hint       *node // last-touched node; nil means "unpositioned"
	len        int
}

// NewList returns an empty list.
func NewList() *List {
	return &List{}
}

// Len returns the number of entries currently stored.
func (l *List) Len() int { return l.len }

// Insert adds a new entry at line number n. Inserting a line number that
// already exists is an invariant violation: the driver's absolute-line
// bookkeeping must never produce the same (side, n) pair twice, so this
// panics rather than returning an error (see ErrDuplicateLineNumber).
func (l *List) Insert(n int64, text string) Cursor {
	if n <= 0 {
		panic(fmt.Sprintf("diffcore: Insert called with non-positive line number %d", n))
	}

	at := l.seek(n)
	if at != nil && at.entry.N == n {
		panic(fmt.Errorf("%w: line %d", ErrDuplicateLineNumber, n))
	}

	nn := &node{entry: Entry{N: n, Text: text}}

	switch {
	case at == nil && l.tail == nil:
		// Empty list.
		l.head, l.tail = nn, nn
	case at == nil:
		// seek walked past every entry: n is larger than all of them.
		nn.prev = l.tail
		l.tail.next = nn
		l.tail = nn
	case at.entry.N > n && at.prev == nil:
		// n is smaller than every entry: insert at head.
		nn.next = at
		at.prev = nn
		l.head = nn
	case at.entry.N > n:
		// Insert strictly before at.
		nn.prev = at.prev
		nn.next = at
		at.prev.next = nn
		at.prev = nn
	default:
		// at.entry.N < n (can't be ==, handled above): insert strictly after at.
		nn.prev = at
		nn.next = at.next
		if at.next != nil {
			at.next.prev = nn
		} else {
			l.tail = nn
		}
		at.next = nn
	}

	l.len++
	l.hint = nn
	return Cursor{n: nn}
}

// Remove deletes the entry at line number n, if present. It is a silent
// no-op if no such entry exists. The hint cursor moves to the removed
// entry's successor, falling back to its predecessor, falling back to
// unset.
func (l *List) Remove(n int64) {
	target := l.seek(n)
	if target == nil || target.entry.N != n {
		return
	}

	if target.prev != nil {
		target.prev.next = target.next
	} else {
		l.head = target.next
	}
	if target.next != nil {
		target.next.prev = target.prev
	} else {
		l.tail = target.prev
	}
	l.len--

	switch {
	case target.next != nil:
		l.hint = target.next
	case target.prev != nil:
		l.hint = target.prev
	default:
		l.hint = nil
	}
}

// First returns a cursor to the lowest-numbered entry, or an unset cursor
// if the list is empty. It repositions the internal hint.
func (l *List) First() Cursor {
	l.hint = l.head
	return Cursor{n: l.head}
}

// Last returns a cursor to the highest-numbered entry, or an unset cursor
// if the list is empty. It repositions the internal hint.
func (l *List) Last() Cursor {
	l.hint = l.tail
	return Cursor{n: l.tail}
}

// Current returns the internal hint cursor without moving it.
func (l *List) Current() Cursor {
	return Cursor{n: l.hint}
}

// Find returns a cursor to the entry at line number n, or an unset cursor
// if absent. On a miss the hint is left at the nearest entry with number
// <= n (mirroring GoLE), which is usually where the next Insert/Find will
// land.
func (l *List) Find(n int64) Cursor {
	at := l.seek(n)
	if at != nil && at.entry.N == n {
		l.hint = at
		return Cursor{n: at}
	}
	if at != nil {
		l.hint = at.prev
	} else {
		l.hint = l.tail
	}
	return Cursor{}
}

// GoGE moves from c to the leftmost entry with number >= n, walking
// bidirectionally from c's position (or from the hint if c is unset). The
// result is unset iff every stored entry is < n.
func (l *List) GoGE(c Cursor, n int64) Cursor {
	start := c.n
	if start == nil {
		start = l.hint
	}
	at := l.seekFrom(start, n)
	l.hint = at
	if at != nil && at.entry.N >= n {
		return Cursor{n: at}
	}
	return Cursor{}
}

// GoLE moves from c to the rightmost entry with number <= n, walking
// bidirectionally. The result is unset iff every stored entry is > n.
func (l *List) GoLE(c Cursor, n int64) Cursor {
	start := c.n
	if start == nil {
		start = l.hint
	}
	at := l.seekFrom(start, n)
	if at != nil && at.entry.N > n {
		at = at.prev
	}
	l.hint = at
	if at != nil {
		return Cursor{n: at}
	}
	return Cursor{}
}

// Next returns a cursor to the entry immediately after c, or unset at the
// tail.
func (l *List) Next(c Cursor) Cursor {
	if c.n == nil {
		return Cursor{}
	}
	return Cursor{n: c.n.next}
}

// Prev returns a cursor to the entry immediately before c, or unset at the
// head.
func (l *List) Prev(c Cursor) Cursor {
	if c.n == nil {
		return Cursor{}
	}
	return Cursor{n: c.n.prev}
}

// seek returns the first node with entry.N >= n, starting the bidirectional
// scan from the current hint (or from head if unpositioned). It returns nil
// if every stored entry is < n.
func (l *List) seek(n int64) *node {
	return l.seekFrom(l.hint, n)
}

// seekFrom performs the bidirectional locality scan described in the
// List doc, starting from start rather than the list's own hint. start
// may be nil, in which case the scan begins at head.
func (l *List) seekFrom(start *node, n int64) *node {
	if start == nil {
		start = l.head
		if start == nil {
			return nil
		}
	}
	if start.entry.N < n {
		cur := start
		for cur != nil && cur.entry.N < n {
			cur = cur.next
		}
		return cur
	}
	// start.entry.N >= n: walk backward while the predecessor still qualifies.
	cur := start
	for cur.prev != nil && cur.prev.entry.N >= n {
		cur = cur.prev
	}
	return cur
}
