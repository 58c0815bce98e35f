// Package subproc drives one window ("iteration") of the external diff(1)
// process: it wires two anonymous pipes to the child's extra file
// descriptors, a third to its stdout, starts two concurrent feeders that
// copy a bounded window of each input across, and a reader that hands the
// child's output back to the caller one line at a time. Nothing in this
// package knows about diff's normal-format grammar or absolute line
// numbers; that parsing lives in the driver package that calls it.
package subproc

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// childFDA and childFDB are the file descriptor numbers the spawned diff
// process sees its two inputs on. os/exec always hands the child fds 0-2
// (stdin/stdout/stderr); ExtraFiles is appended starting at 3, so with two
// extra files A lands on 3 and B on 4. The child is invoked with
// "/dev/fd/3" and "/dev/fd/4" as its two filename arguments, the same
// mechanism the original C implementation used via execlp.
const (
	childFDA = 3
	childFDB = 4
)

// FeedFunc copies up to one window of an input's bytes to w, stopping at
// the first line boundary at or after the byte limit it was constructed
// with, and returns how many whole lines it copied. It must not close w;
// the caller manages the pipe's lifetime.
type FeedFunc func(w io.Writer) (linesCopied int64, err error)

// NewLineFeeder returns a FeedFunc that copies whole lines from r to its
// writer until at least limit bytes have been copied or r is exhausted. A
// line straddling the limit is copied in full rather than split, so chunk
// boundaries never fall mid-line.
func NewLineFeeder(r *bufio.Reader, limit int64) FeedFunc {
	return func(w io.Writer) (int64, error) {
		var lines, copied int64
		for copied < limit {
			line, err := r.ReadString('\n')
			if len(line) > 0 {
				if _, werr := io.WriteString(w, line); werr != nil {
					return lines, fmt.Errorf("feed: write chunk: %w", werr)
				}
				lines++
				copied += int64(len(line))
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					return lines, nil
				}
				return lines, fmt.Errorf("feed: read input: %w", err)
			}
		}
		return lines, nil
	}
}

// Result reports what one iteration of the diff child produced.
type Result struct {
	// LinesA and LinesB are the lines copied count returned by feedA/feedB,
	// used by the driver to advance its per-side absolute line offsets.
	LinesA int64
	LinesB int64

	// Equal is true when the child exited 0 (byte-identical chunk window);
	// false when it exited 1 (the chunks differ). Both are successful
	// iterations; only other exit paths are errors.
	Equal bool
}

// Orchestrator runs diff(1) iterations. The zero value is not usable; call
// New.
type Orchestrator struct {
	diffBin string
	log     *zap.Logger
}

// New returns an Orchestrator that invokes diffBin (looked up on PATH if it
// has no slash) for each iteration, logging at Debug via log. A nil logger
// is replaced with zap.NewNop().
func New(diffBin string, log *zap.Logger) *Orchestrator {
	if diffBin == "" {
		diffBin = "diff"
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Orchestrator{diffBin: diffBin, log: log}
}

// RunIteration spawns one diff(1) child, runs feedA and feedB concurrently
// to fill its two inputs, and calls onLine once per line of the child's
// stdout (including the trailing newline, exactly as the child wrote it).
// cmd.Wait is guaranteed to be called before RunIteration returns on every
// path, including when a feeder or the reader fails first, so the child is
// always reaped and never left a zombie.
func (o *Orchestrator) RunIteration(ctx context.Context, feedA, feedB FeedFunc, onLine func(line string) error) (Result, error) {
	id := uuid.New().String()

	pipeAR, pipeAW, err := os.Pipe()
	if err != nil {
		return Result{}, fmt.Errorf("subproc: open pipe A: %w", err)
	}
	pipeBR, pipeBW, err := os.Pipe()
	if err != nil {
		multierr.AppendInto(&err, pipeAR.Close())
		multierr.AppendInto(&err, pipeAW.Close())
		return Result{}, fmt.Errorf("subproc: open pipe B: %w", err)
	}
	pipeOutR, pipeOutW, err := os.Pipe()
	if err != nil {
		multierr.AppendInto(&err, pipeAR.Close())
		multierr.AppendInto(&err, pipeAW.Close())
		multierr.AppendInto(&err, pipeBR.Close())
		multierr.AppendInto(&err, pipeBW.Close())
		return Result{}, fmt.Errorf("subproc: open pipe out: %w", err)
	}

	cmd := exec.CommandContext(ctx, o.diffBin,
		fmt.Sprintf("/dev/fd/%d", childFDA),
		fmt.Sprintf("/dev/fd/%d", childFDB),
	)
	cmd.ExtraFiles = []*os.File{pipeAR, pipeBR}
	cmd.Stdout = pipeOutW
	cmd.Stderr = os.Stderr

	o.log.Debug("starting diff iteration", zap.String("iteration_id", id), zap.String("bin", o.diffBin))

	if startErr := cmd.Start(); startErr != nil {
		var closeErr error
		multierr.AppendInto(&closeErr, pipeAR.Close())
		multierr.AppendInto(&closeErr, pipeAW.Close())
		multierr.AppendInto(&closeErr, pipeBR.Close())
		multierr.AppendInto(&closeErr, pipeBW.Close())
		multierr.AppendInto(&closeErr, pipeOutR.Close())
		multierr.AppendInto(&closeErr, pipeOutW.Close())
		return Result{}, multierr.Append(fmt.Errorf("subproc: start diff: %w", startErr), closeErr)
	}

	// The child now holds its own duplicates of the fds it needs; the
	// parent's copies of the read ends it passed via ExtraFiles and of the
	// write end it handed over as stdout must close or the child's EOF on
	// those descriptors never arrives.
	var closeErr error
	multierr.AppendInto(&closeErr, pipeAR.Close())
	multierr.AppendInto(&closeErr, pipeBR.Close())
	multierr.AppendInto(&closeErr, pipeOutW.Close())

	eg, egCtx := errgroup.WithContext(ctx)
	var linesA, linesB int64

	eg.Go(func() error {
		defer pipeAW.Close()
		n, ferr := feedA(pipeAW)
		linesA = n
		return ferr
	})
	eg.Go(func() error {
		defer pipeBW.Close()
		n, ferr := feedB(pipeBW)
		linesB = n
		return ferr
	})
	// onLine runs driver-supplied parsing code (ultimately
	// diffcore.Manager.Input, which panics on a violated bookkeeping
	// invariant such as a duplicate absolute line number). recover only
	// unwinds the panicking goroutine's own stack — the reader goroutine
	// below, not RunIteration's caller — so without catching it here the
	// whole process would crash with a raw stack trace instead of letting
	// main's top-level recover classify it as a programmer error. readerPanic
	// carries the recovered value across so it can be re-panicked in the
	// caller's own goroutine once the child has been reaped.
	var readerPanic any

	eg.Go(func() (err error) {
		defer pipeOutR.Close()
		defer func() {
			if r := recover(); r != nil {
				readerPanic = r
				err = fmt.Errorf("subproc: panic handling diff output line: %v", r)
			}
		}()
		reader := bufio.NewReader(pipeOutR)
		for {
			if egCtx.Err() != nil {
				return egCtx.Err()
			}
			line, rerr := reader.ReadString('\n')
			if len(line) > 0 {
				if lerr := onLine(line); lerr != nil {
					return lerr
				}
			}
			if rerr != nil {
				if errors.Is(rerr, io.EOF) {
					return nil
				}
				return fmt.Errorf("subproc: read diff output: %w", rerr)
			}
		}
	})

	feedErr := eg.Wait()

	// Always reap the child, feeder error or not.
	waitErr := cmd.Wait()
	equal, statusErr := interpretExit(waitErr)

	if readerPanic != nil {
		// Child reaped; safe to re-raise now in RunIteration's own
		// goroutine, where it propagates to main's recover like any other
		// programmer-error panic.
		panic(readerPanic)
	}

	var runErr error
	if feedErr != nil {
		multierr.AppendInto(&runErr, feedErr)
	}
	if statusErr != nil {
		multierr.AppendInto(&runErr, statusErr)
	}
	if closeErr != nil {
		multierr.AppendInto(&runErr, closeErr)
	}
	if runErr != nil {
		return Result{}, runErr
	}

	o.log.Debug("diff iteration complete",
		zap.String("iteration_id", id),
		zap.Int64("lines_a", linesA),
		zap.Int64("lines_b", linesB),
		zap.Bool("equal", equal),
	)

	return Result{LinesA: linesA, LinesB: linesB, Equal: equal}, nil
}

// interpretExit classifies cmd.Wait's result per diff(1)'s exit code
// convention: 0 means the chunks were identical, 1 means they differed
// (both are successful iterations), anything else — including signal
// termination — is fatal.
func interpretExit(waitErr error) (equal bool, err error) {
	if waitErr == nil {
		return true, nil
	}

	var exitErr *exec.ExitError
	if !errors.As(waitErr, &exitErr) {
		return false, fmt.Errorf("subproc: wait diff: %w", waitErr)
	}

	if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return false, fmt.Errorf("%w: %s", ErrChildSignaled, status.Signal())
	}

	if code := exitErr.ExitCode(); code == 1 {
		return false, nil
	}
	return false, fmt.Errorf("%w: exit status %d", ErrChildExitCode, exitErr.ExitCode())
}
