package diffcore

import "errors"

// Errors returned or panicked by the diffcore package: one var block of
// plain sentinels for conditions callers are expected to match with
// errors.Is. Structured detail (the offending line or line number) is added
// by wrapping with fmt.Errorf.
var (
	// ErrDuplicateLineNumber indicates an attempt to insert a line number
	// already present on that side. This is a programmer error: it means
	// the driver's absolute-line bookkeeping has produced the same
	// (side, n) pair twice. List.Insert panics with this error wrapped in;
	// the panic is not recovered by the driver but by cmd/lfdiff's run(),
	// which reports it as a fatal invariant violation rather than a normal
	// error return.
	ErrDuplicateLineNumber = errors.New("diffcore: duplicate line number")

	// ErrMalformedLine indicates a line passed to Manager.Input did not
	// begin with "< " or "> ". Unlike ErrDuplicateLineNumber this is a
	// protocol error: it means the external diff program emitted something
	// outside the grammar this package understands, not a bug in this
	// process's own state.
	ErrMalformedLine = errors.New("diffcore: malformed diff line")
)
