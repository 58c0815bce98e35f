package driver

import (
	"fmt"
	"regexp"
	"strconv"
)

// headerRe matches a normal-format diff header: N1[,N2]('a'|'c'|'d')N3[,N4].
var headerRe = regexp.MustCompile(`^(\d+)(?:,\d+)?([acd])(\d+)(?:,\d+)?$`)

// headerState tracks the local (chunk-relative) line counters used to
// number body lines within the block a header just introduced. A fresh
// state per iteration's output stream mirrors how each diff(1) child
// numbers its chunk's lines from 1, independently of earlier chunks.
type headerState struct {
	curA, curB int64
}

// parse updates curA/curB from a header line's A-range/B-range start
// values. It does not validate that op is consistent with which body lines
// follow; that is diff(1)'s contract, not this tool's to re-check.
func (h *headerState) parse(line string) error {
	m := headerRe.FindStringSubmatch(line)
	if m == nil {
		return fmt.Errorf("%w: %q", ErrMalformedHeader, line)
	}

	a1, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrMalformedHeader, line)
	}
	b1, err := strconv.ParseInt(m[3], 10, 64)
	if err != nil {
		return fmt.Errorf("%w: %q", ErrMalformedHeader, line)
	}

	h.curA = a1
	h.curB = b1
	return nil
}
