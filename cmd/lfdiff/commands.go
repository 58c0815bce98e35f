package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/lfdiff/internal/app"
	"github.com/dshills/lfdiff/internal/driver"
	"github.com/dshills/lfdiff/internal/sizeflag"
)

// ErrUsage marks an argument/flag problem — spec's Usage-error taxonomy
// class — as distinct from an I/O or protocol failure.
var ErrUsage = errors.New("usage error")

const (
	exitCodeGeneralError    = 1
	exitCodeUsageError      = 2
	exitCodeProgrammerError = 70 // sysexits EX_SOFTWARE
)

func exitCodeFor(err error) int {
	if errors.Is(err, ErrUsage) {
		return exitCodeUsageError
	}
	return exitCodeGeneralError
}

// newRootCmd builds the lfdiff command tree: a single command (no
// subcommands) taking two positional inputs and the flags listed in its Use
// line.
func newRootCmd() *cobra.Command {
	var (
		outputPath string
		splitSize  = sizeflag.New()
		verbose    bool
		showVer    bool
	)

	if envBytes := os.Getenv("LFDIFF_SPLIT_SIZE"); envBytes != "" {
		_ = splitSize.Set(envBytes)
	}

	cmd := &cobra.Command{
		Use:           "lfdiff [-h] [-V] [-v] [-o OUTPUT] [-s SPLITSIZE] [--] INPUT1 INPUT2",
		Short:         "Line-oriented diff of two large inputs with bounded memory",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVer {
				fmt.Fprintf(cmd.OutOrStdout(), "lfdiff %s (commit %s, built %s)\n", version, commit, date)
				return nil
			}
			return runCompare(cmd, args[0], args[1], outputPath, splitSize.Bytes, verbose)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "write the diff to FILE instead of stdout (\"-\" or omitted means stdout)")
	cmd.Flags().VarP(splitSize, "split-size", "s", "bytes per chunk fed to each diff(1) child (accepts k/kB/M/MB/G/GB suffixes)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level logging")
	cmd.Flags().BoolVarP(&showVer, "version", "V", false, "print version information and exit")

	return cmd
}

func runCompare(cmd *cobra.Command, input1, input2, outputPath string, splitSizeBytes int64, verbose bool) error {
	if input1 == "-" && input2 == "-" {
		return fmt.Errorf("%w: INPUT1 and INPUT2 cannot both be \"-\"", ErrUsage)
	}
	if input1 == input2 {
		return fmt.Errorf("%w: INPUT1 and INPUT2 are the same file, no need to compare", ErrUsage)
	}

	logger, err := app.NewLogger(verbose)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	inA, closeA, err := openInput(input1)
	if err != nil {
		return err
	}
	defer closeA()

	inB, closeB, err := openInput(input2)
	if err != nil {
		return err
	}
	defer closeB()

	out, closeOut, err := openOutput(outputPath)
	if err != nil {
		return err
	}
	defer closeOut()

	d := driver.New(driver.Options{
		DiffBin:   os.Getenv("LFDIFF_DIFF_BIN"),
		SplitSize: splitSizeBytes,
		Logger:    logger,
	})

	// lfdiff reports whether it ran to completion, not whether the inputs
	// were equal: a successful comparison exits 0 either way, matching the
	// original implementation.
	_, err = d.Run(context.Background(), inA, inB, out)
	return err
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open output %s: %w", path, err)
	}
	return f, func() { f.Close() }, nil
}
