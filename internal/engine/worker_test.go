package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/dedup/internal/event"
	"github.com/bamsammich/dedup/internal/stats"
)

func newTestWorkerPool(t *testing.T, opts ...func(*WorkerConfig)) (*WorkerPool, *stats.Collector) {
	t.Helper()
	s := stats.NewCollector()
	cfg := WorkerConfig{NumWorkers: 2, Stats: s}
	for _, o := range opts {
		o(&cfg)
	}
	return NewWorkerPool(cfg), s
}

// runPool feeds entries through wp in order and collects what it delivers.
func runPool(ctx context.Context, wp *WorkerPool, entries []FileEntry) []hashResult {
	jobs := make(chan hashJob)
	go func() {
		defer close(jobs)
		for i, e := range entries {
			if !wp.Admit(ctx) {
				return
			}
			jobs <- hashJob{seq: i, entry: e}
		}
	}()

	var out []hashResult
	wp.Run(ctx, jobs, func(r hashResult) { out = append(out, r) })
	return out
}

func TestWorker_DeliversInOrder(t *testing.T) {
	root := t.TempDir()
	var entries []FileEntry
	for i := range 300 {
		name := fmt.Sprintf("f%03d", i)
		// Vary sizes so workers finish out of order.
		writeFiles(t, root, map[string]string{name: fmt.Sprintf("%0*d", (i%17)*512, i)})
		entries = append(entries, FileEntry{Path: filepath.Join(root, name)})
	}

	wp, s := newTestWorkerPool(t, func(c *WorkerConfig) { c.NumWorkers = 8 })
	results := runPool(context.Background(), wp, entries)

	require.Len(t, results, len(entries))
	for i, r := range results {
		assert.Equal(t, i, r.seq)
		assert.Equal(t, entries[i].Path, r.entry.Path)
		assert.NoError(t, r.err)
		assert.NotEmpty(t, r.digest)
	}
	assert.Equal(t, int64(300), s.Snapshot().FilesHashed)
}

func TestWorker_MatchesHashFile(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a": "alpha", "b": "beta"})
	entries := []FileEntry{{Path: filepath.Join(root, "a")}, {Path: filepath.Join(root, "b")}}

	wp, _ := newTestWorkerPool(t, func(c *WorkerConfig) { c.Hash = HashOptions{Algorithm: SHA256} })
	results := runPool(context.Background(), wp, entries)
	require.Len(t, results, 2)

	for i, e := range entries {
		want, err := HashFile(e.Path, HashOptions{Algorithm: SHA256})
		require.NoError(t, err)
		assert.Equal(t, want, results[i].digest)
	}
}

func TestWorker_ReadError(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"ok": "fine"})
	entries := []FileEntry{
		{Path: filepath.Join(root, "gone")},
		{Path: filepath.Join(root, "ok")},
	}

	wp, s := newTestWorkerPool(t)
	results := runPool(context.Background(), wp, entries)
	require.Len(t, results, 2)

	var re *ReadError
	require.ErrorAs(t, results[0].err, &re)
	assert.Equal(t, entries[0].Path, re.Path)
	assert.NoError(t, results[1].err)
	assert.Equal(t, int64(1), s.Snapshot().FilesHashed)
}

func TestWorker_Events(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a": "x"})

	events := make(chan event.Event, 10)
	wp, _ := newTestWorkerPool(t, func(c *WorkerConfig) { c.Events = events })
	runPool(context.Background(), wp, []FileEntry{{Path: filepath.Join(root, "a"), Size: 1}})
	close(events)

	var got []event.Event
	for e := range events {
		got = append(got, e)
	}
	require.Len(t, got, 1)
	assert.Equal(t, event.FileHashed, got[0].Type)
	assert.Equal(t, int64(1), got[0].Size)
}

func TestWorker_DefaultWorkers(t *testing.T) {
	wp := NewWorkerPool(WorkerConfig{})
	assert.Positive(t, wp.cfg.NumWorkers)
	assert.LessOrEqual(t, wp.cfg.NumWorkers, 8)
	assert.Equal(t, wp.cfg.NumWorkers*16, cap(wp.window))
}
