package subproc

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func requireDiffBinary(t *testing.T) string {
	t.Helper()
	path, err := exec.LookPath("diff")
	if err != nil {
		t.Skip("diff(1) not found on PATH, skipping subprocess integration test")
	}
	return path
}

func TestRunIterationEqualChunks(t *testing.T) {
	bin := requireDiffBinary(t)
	o := New(bin, nil)

	feedA := NewLineFeeder(bufio.NewReader(strings.NewReader("one\ntwo\n")), 1<<20)
	feedB := NewLineFeeder(bufio.NewReader(strings.NewReader("one\ntwo\n")), 1<<20)

	var lines []string
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := o.RunIteration(ctx, feedA, feedB, func(line string) error {
		lines = append(lines, line)
		return nil
	})
	if err != nil {
		t.Fatalf("RunIteration: %v", err)
	}
	want := Result{LinesA: 2, LinesB: 2, Equal: true}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Fatalf("RunIteration result mismatch (-want +got):\n%s", diff)
	}
	if len(lines) != 0 {
		t.Fatalf("expected no diff output for identical chunks, got %v", lines)
	}
}

func TestRunIterationDifferingChunks(t *testing.T) {
	bin := requireDiffBinary(t)
	o := New(bin, nil)

	feedA := NewLineFeeder(bufio.NewReader(strings.NewReader("alpha\nbeta\n")), 1<<20)
	feedB := NewLineFeeder(bufio.NewReader(strings.NewReader("alpha\ngamma\n")), 1<<20)

	var lines []string
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	result, err := o.RunIteration(ctx, feedA, feedB, func(line string) error {
		lines = append(lines, line)
		return nil
	})
	if err != nil {
		t.Fatalf("RunIteration: %v", err)
	}
	if result.Equal {
		t.Fatalf("expected Equal=false for differing chunks")
	}
	if len(lines) == 0 {
		t.Fatalf("expected diff output for differing chunks")
	}

	joined := strings.Join(lines, "")
	if !strings.Contains(joined, "< beta") || !strings.Contains(joined, "> gamma") {
		t.Fatalf("unexpected diff output: %q", joined)
	}
}

func TestRunIterationReapsChildOnFeederError(t *testing.T) {
	bin := requireDiffBinary(t)
	o := New(bin, nil)

	feedA := FeedFunc(func(w io.Writer) (int64, error) {
		return 0, errFeedBoom
	})
	feedB := NewLineFeeder(bufio.NewReader(strings.NewReader("x\n")), 1<<20)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := o.RunIteration(ctx, feedA, feedB, func(string) error { return nil })
	if err == nil {
		t.Fatal("expected error from failing feeder")
	}
}

// TestNewLineFeederSumOfLinesCopiedCoversWholeSource exercises the chunked
// feeder-correctness property: repeatedly calling the FeedFunc a small
// window at a time until the source is exhausted must copy every line
// exactly once, in order, regardless of where the window boundaries fall
// relative to line boundaries.
func TestNewLineFeederSumOfLinesCopiedCoversWholeSource(t *testing.T) {
	const totalLines = 97
	var source strings.Builder
	for i := 1; i <= totalLines; i++ {
		fmt.Fprintf(&source, "line-%03d\n", i)
	}

	r := bufio.NewReader(strings.NewReader(source.String()))
	const window = 23 // does not divide evenly into any line's length

	var (
		sumLines int64
		got      strings.Builder
	)
	for {
		feed := NewLineFeeder(r, window)
		var buf strings.Builder
		n, err := feed(&buf)
		if err != nil {
			t.Fatalf("feed: %v", err)
		}
		sumLines += n
		got.WriteString(buf.String())
		if n == 0 {
			break
		}
	}

	if sumLines != totalLines {
		t.Fatalf("sum of lines copied = %d, want %d", sumLines, totalLines)
	}
	if got.String() != source.String() {
		t.Fatalf("concatenated feeder output does not match source byte-for-byte")
	}
}

func TestRunIterationRepanicsOnLinePanicInCallerGoroutine(t *testing.T) {
	bin := requireDiffBinary(t)
	o := New(bin, nil)

	feedA := NewLineFeeder(bufio.NewReader(strings.NewReader("alpha\nbeta\n")), 1<<20)
	feedB := NewLineFeeder(bufio.NewReader(strings.NewReader("alpha\ngamma\n")), 1<<20)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan any, 1)
	func() {
		defer func() { done <- recover() }()
		_, _ = o.RunIteration(ctx, feedA, feedB, func(string) error {
			panic("onLine invariant violated")
		})
	}()

	r := <-done
	if r == nil {
		t.Fatal("expected RunIteration to re-panic in the caller's goroutine")
	}
	if msg, ok := r.(string); !ok || msg != "onLine invariant violated" {
		t.Fatalf("unexpected recovered value: %#v", r)
	}
}

var errFeedBoom = errFeedBoomType{}

type errFeedBoomType struct{}

func (errFeedBoomType) Error() string { return "synthetic feed failure" }
