package driver

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// requireBinary skips the test when name is not on PATH, the same guard
// internal/subproc's own tests use for diff(1).
func requireBinary(t *testing.T, name string) string {
	t.Helper()
	path, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("%s not found on PATH, skipping integration test", name)
	}
	return path
}

// buildLines returns n lines of the form "lineNN\n", applying edits (a map
// of 1-based line number to replacement text, or "" to delete the line) to
// produce a second version from the same base sequence.
func buildLines(n int, edits map[int]string) string {
	var sb strings.Builder
	for i := 1; i <= n; i++ {
		if text, edited := edits[i]; edited {
			if text == "" {
				continue // deleted
			}
			fmt.Fprintf(&sb, "%s\n", text)
			continue
		}
		fmt.Fprintf(&sb, "line%02d\n", i)
	}
	return sb.String()
}

// TestDriverRunWithRealOrchestratorForcesMultipleIterations exercises the
// driver against the real subproc.Orchestrator (not fakeRunner) with a
// split size small enough that a ~30-line input is guaranteed to span
// several diff(1) child invocations, and checks that the absolute line
// numbers in the stitched-together output are still correct across the
// iteration boundaries by round-tripping the result through patch(1).
func TestDriverRunWithRealOrchestratorForcesMultipleIterations(t *testing.T) {
	requireBinary(t, "diff")
	patchBin := requireBinary(t, "patch")

	inputA := buildLines(30, map[int]string{
		5:  "line05-changed",
		20: "line20-changed",
	})
	inputB := buildLines(30, map[int]string{
		5:  "line05-changed-in-b",
		20: "line20-changed-in-b",
	})

	core, logs := observer.New(zap.DebugLevel)
	logger := zap.New(core)

	// "line01\n" is 7 bytes; a 40-byte window holds roughly 5-6 lines, so a
	// 30-line input needs 5+ iterations per side.
	d := New(Options{SplitSize: 40, Logger: logger})

	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	equal, err := d.Run(ctx, strings.NewReader(inputA), strings.NewReader(inputB), &out)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if equal {
		t.Fatal("expected equal=false, inputs differ")
	}

	iterations := logs.FilterMessage("iteration advanced offsets").Len()
	if iterations < 2 {
		t.Fatalf("expected the small split size to force multiple iterations, got %d", iterations)
	}

	assertPatchRoundTrip(t, patchBin, inputA, inputB, out.String())
}

// TestDriverRunSingleChunkRoundTrip is the single-iteration counterpart:
// the whole input fits in one window, so this exercises the real
// orchestrator without the multi-iteration offset bookkeeping, still
// verified end to end via patch(1).
func TestDriverRunSingleChunkRoundTrip(t *testing.T) {
	requireBinary(t, "diff")
	patchBin := requireBinary(t, "patch")

	inputA := "one\ntwo\nthree\nfour\nfive\n"
	inputB := "one\nTWO\nthree\nfour\nFIVE\nsix\n"

	d := New(Options{SplitSize: 1 << 20})

	var out bytes.Buffer
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	equal, err := d.Run(ctx, strings.NewReader(inputA), strings.NewReader(inputB), &out)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if equal {
		t.Fatal("expected equal=false, inputs differ")
	}

	assertPatchRoundTrip(t, patchBin, inputA, inputB, out.String())
}

// assertPatchRoundTrip writes inputA and the emitted diff to a temp
// directory, applies the diff to inputA with patch(1), and checks the
// result is byte-for-byte inputB — the round-trip property from the
// testable-properties section: applying Output's emitted text against
// input 1 with patch must yield input 2.
func assertPatchRoundTrip(t *testing.T, patchBin, inputA, inputB, diffText string) {
	t.Helper()

	dir := t.TempDir()
	targetPath := filepath.Join(dir, "target.txt")
	diffPath := filepath.Join(dir, "change.diff")

	if err := os.WriteFile(targetPath, []byte(inputA), 0o644); err != nil {
		t.Fatalf("write target: %v", err)
	}
	if err := os.WriteFile(diffPath, []byte(diffText), 0o644); err != nil {
		t.Fatalf("write diff: %v", err)
	}

	cmd := exec.Command(patchBin, targetPath, diffPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.Fatalf("patch failed: %v\nstderr: %s\ndiff applied:\n%s", err, stderr.String(), diffText)
	}

	patched, err := os.ReadFile(targetPath)
	if err != nil {
		t.Fatalf("read patched target: %v", err)
	}
	if string(patched) != inputB {
		t.Fatalf("patch round-trip mismatch:\ngot:  %q\nwant: %q", string(patched), inputB)
	}
}
