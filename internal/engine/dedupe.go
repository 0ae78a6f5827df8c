package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/bamsammich/dedup/internal/event"
	"github.com/bamsammich/dedup/internal/filter"
	"github.com/bamsammich/dedup/internal/stats"
)

// Config describes a duplicate scan.
type Config struct {
	Root     string
	Symlinks SymlinkPolicy
	Filter   *filter.Chain
	Workers  int // hash workers; output does not depend on it
	Hash     HashOptions

	// Verify compares bytes with the canonical file before reporting a
	// pair. A mismatch is reported as a *CollisionError instead.
	Verify bool
	// SizePrefilter collects the whole tree first and only hashes files
	// whose size occurs more than once. Pairs are unchanged.
	SizePrefilter bool

	Stats  *stats.Collector   // optional, created if nil
	Events chan<- event.Event // optional, never blocks the scan
	Logger *slog.Logger       // optional, slog.Default() if nil
	OnPair func(DuplicatePair)
}

// Result is the outcome of one scan.
type Result struct {
	ScanID    string
	Root      string
	Algorithm Algorithm
	Pairs     []DuplicatePair // in traversal order of DuplicatePair.Path
	Skipped   []error         // *TraversalError first, then *ReadError and *CollisionError
	Stats     stats.Snapshot
}

// FindDuplicates walks cfg.Root and returns every file whose digest was
// already seen, paired with the first file seen with that digest.
//
// Only a missing or non-directory root is an error. Unreadable
// directories and files are recorded in Result.Skipped and the scan
// carries on. If ctx is cancelled the partial result is returned with
// ctx.Err().
func FindDuplicates(ctx context.Context, cfg Config) (Result, error) {
	if err := CheckRoot(cfg.Root); err != nil {
		return Result{}, err
	}
	if cfg.Hash.Algorithm == "" {
		cfg.Hash.Algorithm = DefaultAlgorithm
	}
	if _, err := cfg.Hash.hasher(); err != nil {
		return Result{}, err
	}

	collector := cfg.Stats
	if collector == nil {
		collector = stats.NewCollector()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	res := Result{
		ScanID:    uuid.NewString(),
		Root:      cfg.Root,
		Algorithm: cfg.Hash.Algorithm,
	}
	logger = logger.With("scan_id", res.ScanID)
	logger.Info("scan started",
		"root", cfg.Root,
		"algorithm", string(cfg.Hash.Algorithm),
		"symlinks", cfg.Symlinks.String(),
		"verify", cfg.Verify,
	)
	event.Emit(cfg.Events, event.Event{Type: event.ScanStarted, Path: cfg.Root})

	scanner := NewScanner(ScannerConfig{
		Root:     cfg.Root,
		Symlinks: cfg.Symlinks,
		Filter:   cfg.Filter,
		Logger:   logger,
	})
	entries, scanErrs := scanner.Scan(ctx)

	pool := NewWorkerPool(WorkerConfig{
		NumWorkers: cfg.Workers,
		Hash:       cfg.Hash,
		Stats:      collector,
		Events:     cfg.Events,
	})

	f := &feeder{cfg: cfg, pool: pool, stats: collector, logger: logger}
	jobs := make(chan hashJob)
	feedDone := make(chan struct{})
	go func() {
		defer close(feedDone)
		defer close(jobs)
		f.run(ctx, entries, scanErrs, jobs)
	}()

	g := &grouper{
		ctx:    ctx,
		cfg:    cfg,
		index:  NewDigestIndex(),
		stats:  collector,
		logger: logger,
	}
	pool.Run(ctx, jobs, g.observe)
	<-feedDone

	res.Pairs = g.pairs
	res.Skipped = append(f.errs, g.errs...)
	res.Stats = collector.Snapshot()

	event.Emit(cfg.Events, event.Event{
		Type:      event.ScanComplete,
		Path:      cfg.Root,
		Total:     res.Stats.FilesFound,
		TotalSize: res.Stats.BytesFound,
	})

	if err := ctx.Err(); err != nil {
		logger.Warn("scan cancelled", "error", err)
		return res, fmt.Errorf("scan %s: %w", cfg.Root, err)
	}

	logger.Info("scan complete",
		"files", res.Stats.FilesFound,
		"hashed", res.Stats.FilesHashed,
		"digests", g.index.Len(),
		"pairs", len(res.Pairs),
		"skipped", len(res.Skipped),
		"elapsed", res.Stats.Elapsed,
	)
	return res, nil
}

// feeder numbers scanner output in traversal order and queues it for the
// worker pool. Traversal errors are collected here.
type feeder struct {
	cfg    Config
	pool   *WorkerPool
	stats  *stats.Collector
	logger *slog.Logger

	seq  int
	errs []error
}

func (f *feeder) run(ctx context.Context, entries <-chan FileEntry, scanErrs <-chan error, jobs chan<- hashJob) {
	var held []FileEntry

	for entries != nil || scanErrs != nil {
		select {
		case e, ok := <-entries:
			if !ok {
				entries = nil
				continue
			}
			f.stats.AddFilesFound(1)
			f.stats.AddBytesFound(e.Size)
			event.Emit(f.cfg.Events, event.Event{Type: event.FileFound, Path: e.Path, Size: e.Size})
			if f.cfg.SizePrefilter {
				held = append(held, e)
				continue
			}
			if !f.send(ctx, e, jobs) {
				return
			}

		case err, ok := <-scanErrs:
			if !ok {
				scanErrs = nil
				continue
			}
			f.errs = append(f.errs, err)
			f.stats.AddPathsSkipped(1)
			f.logger.Warn("skipping path", "path", ErrorPath(err), "error", err)
			event.Emit(f.cfg.Events, event.Event{Type: event.PathSkipped, Path: ErrorPath(err), Error: err})

		case <-ctx.Done():
			return
		}
	}

	if !f.cfg.SizePrefilter {
		return
	}
	sizes := make(map[int64]int, len(held))
	for _, e := range held {
		sizes[e.Size]++
	}
	f.logger.Debug("size prefilter", "files", len(held), "distinct_sizes", len(sizes))
	for _, e := range held {
		if sizes[e.Size] < 2 {
			continue
		}
		if !f.send(ctx, e, jobs) {
			return
		}
	}
}

func (f *feeder) send(ctx context.Context, e FileEntry, jobs chan<- hashJob) bool {
	if !f.pool.Admit(ctx) {
		return false
	}
	select {
	case jobs <- hashJob{seq: f.seq, entry: e}:
		f.seq++
		return true
	case <-ctx.Done():
		return false
	}
}

// grouper owns the DigestIndex. Results arrive in traversal order.
type grouper struct {
	ctx    context.Context
	cfg    Config
	index  *DigestIndex
	stats  *stats.Collector
	logger *slog.Logger

	pairs []DuplicatePair
	errs  []error
}

func (g *grouper) observe(r hashResult) {
	if g.ctx.Err() != nil {
		return
	}
	if r.err != nil {
		g.fail(r.entry, r.err)
		return
	}

	canonical, hit := g.index.Observe(r.digest, r.entry)
	if !hit {
		return
	}

	sameInode := r.entry.DevIno.known() && r.entry.DevIno == canonical.DevIno
	if g.cfg.Verify && !sameInode {
		same, err := sameContent(r.entry.Path, canonical.Path)
		if err != nil {
			g.fail(r.entry, &ReadError{Path: r.entry.Path, Err: err})
			return
		}
		if !same {
			ce := &CollisionError{Path: r.entry.Path, Original: canonical.Path, Digest: r.digest}
			g.errs = append(g.errs, ce)
			g.stats.AddCollisions(1)
			g.logger.Warn("digest collision", "path", ce.Path, "original", ce.Original, "digest", string(ce.Digest))
			event.Emit(g.cfg.Events, event.Event{
				Type:     event.CollisionFound,
				Path:     ce.Path,
				Original: ce.Original,
				Size:     r.entry.Size,
				Error:    ce,
			})
			return
		}
	}

	pair := DuplicatePair{
		Path:      r.entry.Path,
		Original:  canonical.Path,
		Digest:    r.digest,
		Size:      r.entry.Size,
		SameInode: sameInode,
	}
	g.pairs = append(g.pairs, pair)
	g.stats.AddDuplicates(1)
	if !sameInode {
		g.stats.AddBytesReclaimable(pair.Size)
	}
	g.logger.Debug("duplicate", "path", pair.Path, "original", pair.Original, "size", pair.Size)
	event.Emit(g.cfg.Events, event.Event{
		Type:     event.DuplicateFound,
		Path:     pair.Path,
		Original: pair.Original,
		Size:     pair.Size,
	})
	if g.cfg.OnPair != nil {
		g.cfg.OnPair(pair)
	}
}

func (g *grouper) fail(e FileEntry, err error) {
	g.errs = append(g.errs, err)
	g.stats.AddFilesFailed(1)
	g.logger.Warn("skipping unreadable file", "path", e.Path, "error", err)
	event.Emit(g.cfg.Events, event.Event{Type: event.FileFailed, Path: e.Path, Size: e.Size, Error: err})
}
