// Package driver ties internal/subproc (one windowed diff(1) child per
// iteration) to internal/diffcore (the absolute-line two-sided model) into
// the end-to-end comparison described by the rest of this tool: read both
// inputs in bounded chunks, classify each line of normal-format output the
// child produces, feed it into the diff manager keyed by absolute line
// number, and emit one coherent diff once both inputs are exhausted.
package driver

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/dshills/lfdiff/internal/diffcore"
	"github.com/dshills/lfdiff/internal/subproc"
)

// iterationRunner is the subset of *subproc.Orchestrator the driver
// depends on, narrowed to a consumer-defined interface so tests can supply
// a fake without spawning a real child process.
type iterationRunner interface {
	RunIteration(ctx context.Context, feedA, feedB subproc.FeedFunc, onLine func(line string) error) (subproc.Result, error)
}

// Options configures a Driver.
type Options struct {
	// DiffBin is the diff(1) executable to invoke; empty means "diff" on
	// PATH.
	DiffBin string
	// SplitSize bounds how many bytes of each input are fed to a single
	// diff(1) child per iteration.
	SplitSize int64
	// Logger receives per-iteration and summary log lines. A nil Logger is
	// replaced with zap.NewNop().
	Logger *zap.Logger
}

// Driver runs one end-to-end comparison of two inputs.
type Driver struct {
	orch      iterationRunner
	mgr       *diffcore.Manager
	splitSize int64
	log       *zap.Logger

	offsetA, offsetB int64
}

// New returns a Driver configured per opts, backed by a real
// subproc.Orchestrator.
func New(opts Options) *Driver {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Driver{
		orch:      subproc.New(opts.DiffBin, log),
		mgr:       diffcore.NewManager(),
		splitSize: opts.SplitSize,
		log:       log,
	}
}

// Run compares inputA against inputB chunk by chunk, writing the combined
// normal-format diff to out. It returns true if every chunk compared equal
// (the two inputs are identical).
func (d *Driver) Run(ctx context.Context, inputA, inputB io.Reader, out io.Writer) (bool, error) {
	ra := bufio.NewReader(inputA)
	rb := bufio.NewReader(inputB)

	equal := true
	iteration := 0

	for {
		feedA := subproc.NewLineFeeder(ra, d.splitSize)
		feedB := subproc.NewLineFeeder(rb, d.splitSize)

		hs := &headerState{}
		result, err := d.orch.RunIteration(ctx, feedA, feedB, func(line string) error {
			return d.handleLine(hs, line)
		})
		if err != nil {
			return false, fmt.Errorf("driver: iteration %d: %w", iteration, err)
		}

		if !result.Equal {
			equal = false
		}

		d.offsetA += result.LinesA
		d.offsetB += result.LinesB
		iteration++

		d.log.Debug("iteration advanced offsets",
			zap.Int("iteration", iteration),
			zap.Int64("offset_a", d.offsetA),
			zap.Int64("offset_b", d.offsetB),
		)

		if result.LinesA == 0 && result.LinesB == 0 {
			break
		}
	}

	if err := d.mgr.Output(out, 0); err != nil {
		return false, fmt.Errorf("driver: emit diff: %w", err)
	}

	d.log.Info("comparison complete",
		zap.Int("iterations", iteration),
		zap.Int64("lines_a", d.offsetA),
		zap.Int64("lines_b", d.offsetB),
		zap.Bool("equal", equal),
	)

	return equal, nil
}

// handleLine classifies one line of the child's normal-format output and
// either updates hs's block-local counters (a header) or feeds a body line
// into the diff manager at its absolute line number.
func (d *Driver) handleLine(hs *headerState, raw string) error {
	switch {
	case raw == "---\n", raw == "---":
		return nil
	case strings.HasPrefix(raw, "< "):
		n := d.offsetA + hs.curA
		hs.curA++
		return d.mgr.Input(raw, n)
	case strings.HasPrefix(raw, "> "):
		n := d.offsetB + hs.curB
		hs.curB++
		return d.mgr.Input(raw, n)
	default:
		return hs.parse(strings.TrimRight(raw, "\n"))
	}
}
