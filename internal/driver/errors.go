package driver

import "errors"

// ErrMalformedHeader indicates a line from the diff child that was neither
// a body line ("< "/"> "), a separator ("---"), nor a normal-format
// change/delete/insert header. It is a protocol error: the child emitted
// something outside the grammar this tool understands (this includes a
// "\ No newline at end of file" marker, which the original implementation
// also treats as unrecognised rather than modeling it).
var ErrMalformedHeader = errors.New("driver: malformed diff header line")
