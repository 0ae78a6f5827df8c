package ui

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/facette/natsort"
	"github.com/klauspost/compress/zstd"

	"github.com/bamsammich/dedup/internal/engine"
	"github.com/bamsammich/dedup/internal/stats"
)

// Report is the exported form of a scan result.
type Report struct {
	ScanID      string                 `json:"scan_id"`
	Root        string                 `json:"root"`
	Algorithm   string                 `json:"algorithm"`
	GeneratedAt time.Time              `json:"generated_at"`
	Pairs       []engine.DuplicatePair `json:"pairs"`
	Groups      []Group                `json:"groups"`
	Skipped     []SkippedEntry         `json:"skipped"`
	Stats       ReportStats            `json:"stats"`
}

// Group collects every copy anchored at one original. Groups are ordered
// by original path, copies within a group likewise, both naturally sorted
// ("file2" before "file10").
type Group struct {
	Original string        `json:"original"`
	Digest   engine.Digest `json:"digest"`
	Size     int64         `json:"size"`
	Copies   []string      `json:"copies"`
}

// SkippedEntry describes one path left out of the scan.
type SkippedEntry struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"` // traversal, read, collision
	Error string `json:"error"`
}

// ReportStats is the subset of counters worth exporting.
type ReportStats struct {
	FilesFound       int64   `json:"files_found"`
	BytesFound       int64   `json:"bytes_found"`
	FilesHashed      int64   `json:"files_hashed"`
	BytesHashed      int64   `json:"bytes_hashed"`
	Duplicates       int64   `json:"duplicates"`
	BytesReclaimable int64   `json:"bytes_reclaimable"`
	Collisions       int64   `json:"collisions"`
	ElapsedSeconds   float64 `json:"elapsed_seconds"`
}

// NewReport builds a Report from a scan result.
func NewReport(res engine.Result) Report {
	pairs := res.Pairs
	if pairs == nil {
		pairs = []engine.DuplicatePair{}
	}
	return Report{
		ScanID:      res.ScanID,
		Root:        res.Root,
		Algorithm:   string(res.Algorithm),
		GeneratedAt: time.Now().UTC(),
		Pairs:       pairs,
		Groups:      GroupPairs(res.Pairs),
		Skipped:     skippedEntries(res.Skipped),
		Stats:       reportStats(res.Stats),
	}
}

// GroupPairs folds pairs into one Group per original.
func GroupPairs(pairs []engine.DuplicatePair) []Group {
	byOrig := make(map[string]*Group)
	var originals []string
	for _, p := range pairs {
		g, ok := byOrig[p.Original]
		if !ok {
			g = &Group{Original: p.Original, Digest: p.Digest, Size: p.Size}
			byOrig[p.Original] = g
			originals = append(originals, p.Original)
		}
		g.Copies = append(g.Copies, p.Path)
	}

	natsort.Sort(originals)
	groups := make([]Group, 0, len(originals))
	for _, o := range originals {
		g := byOrig[o]
		natsort.Sort(g.Copies)
		groups = append(groups, *g)
	}
	return groups
}

func skippedEntries(errs []error) []SkippedEntry {
	out := make([]SkippedEntry, 0, len(errs))
	for _, err := range errs {
		out = append(out, SkippedEntry{
			Path:  engine.ErrorPath(err),
			Kind:  errorKind(err),
			Error: err.Error(),
		})
	}
	return out
}

func errorKind(err error) string {
	var (
		te *engine.TraversalError
		re *engine.ReadError
		ce *engine.CollisionError
		de *engine.DeletionError
	)
	switch {
	case errors.As(err, &te):
		return "traversal"
	case errors.As(err, &re):
		return "read"
	case errors.As(err, &ce):
		return "collision"
	case errors.As(err, &de):
		return "deletion"
	default:
		return "other"
	}
}

func reportStats(s stats.Snapshot) ReportStats {
	return ReportStats{
		FilesFound:       s.FilesFound,
		BytesFound:       s.BytesFound,
		FilesHashed:      s.FilesHashed,
		BytesHashed:      s.BytesHashed,
		Duplicates:       s.Duplicates,
		BytesReclaimable: s.BytesReclaimable,
		Collisions:       s.Collisions,
		ElapsedSeconds:   s.Elapsed.Seconds(),
	}
}

// WriteReport encodes r as indented JSON.
func WriteReport(w io.Writer, r Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// WriteReportFile writes r to path, zstd-compressed when path ends in ".zst".
func WriteReportFile(path string, r Report) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close report: %w", cerr)
		}
	}()

	if !strings.HasSuffix(path, ".zst") {
		return WriteReport(f, r)
	}

	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return fmt.Errorf("zstd encoder: %w", err)
	}
	if err := WriteReport(enc, r); err != nil {
		enc.Close()
		return err
	}
	return enc.Close()
}

// ReadReportFile decodes a report written by WriteReportFile.
func ReadReportFile(path string) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return Report{}, fmt.Errorf("open report: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return Report{}, fmt.Errorf("zstd decoder: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	var rep Report
	if err := json.NewDecoder(r).Decode(&rep); err != nil {
		return Report{}, fmt.Errorf("decode report: %w", err)
	}
	return rep, nil
}
