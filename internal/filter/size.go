package filter

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

// ParseSize parses a human-readable size into bytes. A bare single-letter
// suffix (K, M, G, T, P) is binary, as in rsync: "1M" is 1048576. Explicit
// units are taken literally: "1MB" is 1000000 and "1MiB" is 1048576.
func ParseSize(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size string")
	}

	if strings.ContainsAny(strings.ToUpper(s[len(s)-1:]), "KMGTP") {
		s += "iB"
	}

	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("size %q out of range", s)
	}
	return int64(n), nil
}
