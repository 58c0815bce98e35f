package subproc

import "errors"

var (
	// ErrChildSignaled indicates the diff child process was terminated by a
	// signal rather than exiting normally. This is a fatal I/O-class error:
	// the iteration's output cannot be trusted.
	ErrChildSignaled = errors.New("subproc: child process terminated by signal")

	// ErrChildExitCode indicates the diff child exited with a status other
	// than 0 (inputs equal) or 1 (inputs differ). diff(1) reserves exit
	// code 2 for usage/I-O trouble on its own side.
	ErrChildExitCode = errors.New("subproc: child process exited with unexpected status")
)
