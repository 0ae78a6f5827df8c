package engine

import (
	"context"
	"runtime"
	"sync"

	"github.com/bamsammich/dedup/internal/event"
	"github.com/bamsammich/dedup/internal/stats"
)

// hashJob is one unit of work, numbered in traversal order.
type hashJob struct {
	seq   int
	entry FileEntry
}

// hashResult carries a job's digest, or the *ReadError that replaced it.
type hashResult struct {
	seq    int
	entry  FileEntry
	digest Digest
	err    error
}

// WorkerConfig controls the hash worker pool.
type WorkerConfig struct {
	NumWorkers int
	Hash       HashOptions
	Stats      stats.Writer
	Events     chan<- event.Event
}

// WorkerPool hashes files concurrently and hands results back strictly in
// job order, so grouping sees the same sequence for any worker count.
type WorkerPool struct {
	cfg    WorkerConfig
	window chan struct{} // bounds jobs in flight ahead of the next result due
}

// NewWorkerPool creates a pool. NumWorkers <= 0 means min(NumCPU, 8).
func NewWorkerPool(cfg WorkerConfig) *WorkerPool {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = min(runtime.NumCPU(), 8)
	}
	return &WorkerPool{
		cfg:    cfg,
		window: make(chan struct{}, cfg.NumWorkers*16),
	}
}

// Admit blocks until the job with the next sequence number may be queued.
// Producers call it before every send on the jobs channel.
func (wp *WorkerPool) Admit(ctx context.Context) bool {
	select {
	case wp.window <- struct{}{}:
		return true
	case <-ctx.Done():
		return false
	}
}

// Run consumes jobs until the channel closes and calls deliver once per
// job, in ascending seq order, from the calling goroutine. Sequence
// numbers must start at 0 and have no gaps. Jobs still queued after ctx is
// cancelled are delivered with a *ReadError wrapping the context error.
func (wp *WorkerPool) Run(ctx context.Context, jobs <-chan hashJob, deliver func(hashResult)) {
	results := make(chan hashResult, wp.cfg.NumWorkers*2)

	var wg sync.WaitGroup
	for id := range wp.cfg.NumWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			wp.work(ctx, id, jobs, results)
		}()
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	pending := make(map[int]hashResult)
	next := 0
	for r := range results {
		pending[r.seq] = r
		for {
			due, ok := pending[next]
			if !ok {
				break
			}
			delete(pending, next)
			next++
			<-wp.window
			deliver(due)
		}
	}
}

func (wp *WorkerPool) work(ctx context.Context, id int, jobs <-chan hashJob, results chan<- hashResult) {
	h, err := wp.cfg.Hash.hasher()
	buf := wp.cfg.Hash.buffer()

	for job := range jobs {
		res := hashResult{seq: job.seq, entry: job.entry}
		if err != nil {
			res.err = &ReadError{Path: job.entry.Path, Err: err}
		} else if ctx.Err() != nil {
			res.err = &ReadError{Path: job.entry.Path, Err: ctx.Err()}
		} else {
			var n int64
			res.digest, n, res.err = hashFile(ctx, job.entry.Path, h, buf, wp.cfg.Hash.Limiter)
			if wp.cfg.Stats != nil {
				wp.cfg.Stats.AddBytesHashed(n)
			}
		}

		if res.err == nil {
			if wp.cfg.Stats != nil {
				wp.cfg.Stats.AddFilesHashed(1)
			}
			event.Emit(wp.cfg.Events, event.Event{
				Type:     event.FileHashed,
				Path:     job.entry.Path,
				Size:     job.entry.Size,
				WorkerID: id,
			})
		}
		results <- res
	}
}
