// Package sizeflag implements a pflag.Value for byte-size flags that accept
// an optional k/kB/M/MB/G/GB suffix, so cobra validates -s/--split-size at
// flag-parse time instead of the driver validating it after the fact.
package sizeflag

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultSplitSize is used when -s/--split-size is not given, matching the
// original implementation's fixed 2GB window (lfdiff.c's BUFSIZE).
const DefaultSplitSize int64 = 2 * 1024 * 1024 * 1024

// Size is a pflag.Value wrapping an int64 byte count.
type Size struct {
	Bytes int64
}

// New returns a Size initialized to DefaultSplitSize.
func New() *Size {
	return &Size{Bytes: DefaultSplitSize}
}

// String implements pflag.Value.
func (s *Size) String() string {
	if s == nil {
		return "0"
	}
	return strconv.FormatInt(s.Bytes, 10)
}

// Type implements pflag.Value, naming this flag's type in cobra's generated
// usage text.
func (s *Size) Type() string { return "size" }

// suffixes lists two-character suffixes before one-character ones. No
// one-character suffix is a trailing part of a two-character one ("GB" ends
// in "B", not "G"), so the order does not change which entry matches.
var suffixes = []struct {
	suffix string
	factor int64
}{
	{"GB", 1 << 30},
	{"MB", 1 << 20},
	{"kB", 1 << 10},
	{"G", 1 << 30},
	{"M", 1 << 20},
	{"k", 1 << 10},
}

// Set implements pflag.Value. Accepts a bare integer (bytes) or an integer
// immediately followed by one of k, kB, M, MB, G, GB.
func (s *Size) Set(raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fmt.Errorf("sizeflag: empty size")
	}

	numPart := raw
	factor := int64(1)
	for _, suf := range suffixes {
		if strings.HasSuffix(raw, suf.suffix) {
			numPart = strings.TrimSuffix(raw, suf.suffix)
			factor = suf.factor
			break
		}
	}

	n, err := strconv.ParseInt(strings.TrimSpace(numPart), 10, 64)
	if err != nil {
		return fmt.Errorf("sizeflag: invalid size %q: %w", raw, err)
	}
	if n <= 0 {
		return fmt.Errorf("sizeflag: size %q must be positive", raw)
	}
	if factor != 1 && n > math.MaxInt64/factor {
		return fmt.Errorf("sizeflag: size %q overflows int64", raw)
	}

	s.Bytes = n * factor
	return nil
}
