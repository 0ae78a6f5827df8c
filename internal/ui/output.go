package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/bamsammich/dedup/internal/engine"
)

// WritePairs prints one "later  ->  original" line per pair.
func WritePairs(w io.Writer, pairs []engine.DuplicatePair) error {
	bw := bufio.NewWriter(w)
	for _, p := range pairs {
		suffix := ""
		if p.SameInode {
			suffix = "  (same inode)"
		}
		fmt.Fprintf(bw, "%s  ->  %s%s\n", p.Path, p.Original, suffix)
	}
	return bw.Flush()
}

// WritePaths prints one path per line.
func WritePaths(w io.Writer, paths []string) error {
	bw := bufio.NewWriter(w)
	for _, p := range paths {
		fmt.Fprintln(bw, p)
	}
	return bw.Flush()
}

// WriteSkipped prints one line per skipped path.
func WriteSkipped(w io.Writer, errs []error) error {
	bw := bufio.NewWriter(w)
	for _, err := range errs {
		fmt.Fprintf(bw, "skipped (%s): %v\n", errorKind(err), err)
	}
	return bw.Flush()
}

// WriteOutcomes prints the result of each removal. In a dry run nothing
// was removed, so successes read "would remove".
func WriteOutcomes(w io.Writer, outcomes []engine.Outcome, dryRun bool) error {
	verb := "removed"
	if dryRun {
		verb = "would remove"
	}
	bw := bufio.NewWriter(w)
	for _, o := range outcomes {
		if o.OK() {
			fmt.Fprintf(bw, "%s  %s\n", verb, o.Path)
		} else {
			fmt.Fprintf(bw, "failed   %v\n", o.Err)
		}
	}
	return bw.Flush()
}

// ReadPaths reads newline-separated paths, skipping blank lines.
func ReadPaths(r io.Reader) ([]string, error) {
	var paths []string
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		paths = append(paths, line)
	}
	return paths, sc.Err()
}
