package stats

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const ringSize = 60

// Writer is the write side of a Collector, used by the engine.
type Writer interface {
	AddFilesFound(n int64)
	AddBytesFound(n int64)
	AddFilesHashed(n int64)
	AddBytesHashed(n int64)
	AddFilesFailed(n int64)
	AddPathsSkipped(n int64)
	AddDuplicates(n int64)
	AddBytesReclaimable(n int64)
	AddCollisions(n int64)
	AddFilesDeleted(n int64)
	AddDeleteFailed(n int64)
}

// Reader is the read side of a Collector, used by presenters.
type Reader interface {
	Snapshot() Snapshot
}

// ReadTicker is a Reader that also owns the throughput ring buffer.
type ReadTicker interface {
	Reader
	Tick()
	RollingSpeed(seconds int) float64
	RollingFilesPerSec(seconds int) float64
	SparklineData(n int) []float64
}

// Collector tracks scan and delete statistics using lock-free atomic counters.
type Collector struct {
	filesFound       atomic.Int64
	bytesFound       atomic.Int64
	filesHashed      atomic.Int64
	bytesHashed      atomic.Int64
	filesFailed      atomic.Int64
	pathsSkipped      atomic.Int64
	duplicates       atomic.Int64
	bytesReclaimable atomic.Int64
	collisions       atomic.Int64
	filesDeleted     atomic.Int64
	deleteFailed     atomic.Int64
	startTime        time.Time

	// Ring buffer, written only by the presenter's Tick().
	mu          sync.Mutex
	throughput  [ringSize]int64 // bytes hashed per second
	filesPerSec [ringSize]int64 // files hashed per second
	ringIdx     int
	ringCount   int
	lastBytes   int64
	lastFiles   int64
}

var (
	_ Writer     = (*Collector)(nil)
	_ ReadTicker = (*Collector)(nil)
)

// NewCollector creates a Collector with startTime set to now.
func NewCollector() *Collector {
	return &Collector{startTime: time.Now()}
}

// Snapshot is a point-in-time read of all counters.
type Snapshot struct {
	FilesFound       int64
	BytesFound       int64
	FilesHashed      int64
	BytesHashed      int64
	FilesFailed      int64
	PathsSkipped      int64
	Duplicates       int64
	BytesReclaimable int64
	Collisions       int64
	FilesDeleted     int64
	DeleteFailed     int64
	Elapsed          time.Duration
}

func (c *Collector) AddFilesFound(n int64)       { c.filesFound.Add(n) }
func (c *Collector) AddBytesFound(n int64)       { c.bytesFound.Add(n) }
func (c *Collector) AddFilesHashed(n int64)      { c.filesHashed.Add(n) }
func (c *Collector) AddBytesHashed(n int64)      { c.bytesHashed.Add(n) }
func (c *Collector) AddFilesFailed(n int64)      { c.filesFailed.Add(n) }
func (c *Collector) AddPathsSkipped(n int64)      { c.pathsSkipped.Add(n) }
func (c *Collector) AddDuplicates(n int64)       { c.duplicates.Add(n) }
func (c *Collector) AddBytesReclaimable(n int64) { c.bytesReclaimable.Add(n) }
func (c *Collector) AddCollisions(n int64)       { c.collisions.Add(n) }
func (c *Collector) AddFilesDeleted(n int64)     { c.filesDeleted.Add(n) }
func (c *Collector) AddDeleteFailed(n int64)     { c.deleteFailed.Add(n) }

// Snapshot returns a consistent point-in-time read of all counters.
func (c *Collector) Snapshot() Snapshot {
	return Snapshot{
		FilesFound:       c.filesFound.Load(),
		BytesFound:       c.bytesFound.Load(),
		FilesHashed:      c.filesHashed.Load(),
		BytesHashed:      c.bytesHashed.Load(),
		FilesFailed:      c.filesFailed.Load(),
		PathsSkipped:      c.pathsSkipped.Load(),
		Duplicates:       c.duplicates.Load(),
		BytesReclaimable: c.bytesReclaimable.Load(),
		Collisions:       c.collisions.Load(),
		FilesDeleted:     c.filesDeleted.Load(),
		DeleteFailed:     c.deleteFailed.Load(),
		Elapsed:          c.Elapsed(),
	}
}

// Tick snapshots byte/file deltas into the ring buffer. Called 1/sec by the presenter.
func (c *Collector) Tick() {
	currentBytes := c.bytesHashed.Load()
	currentFiles := c.filesHashed.Load()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.throughput[c.ringIdx] = currentBytes - c.lastBytes
	c.filesPerSec[c.ringIdx] = currentFiles - c.lastFiles
	c.lastBytes = currentBytes
	c.lastFiles = currentFiles

	c.ringIdx = (c.ringIdx + 1) % ringSize
	if c.ringCount < ringSize {
		c.ringCount++
	}
}

// RollingSpeed returns average hashed bytes/sec over the last n samples.
func (c *Collector) RollingSpeed(seconds int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollingAvg(c.throughput[:], seconds)
}

// RollingFilesPerSec returns average hashed files/sec over the last n samples.
func (c *Collector) RollingFilesPerSec(seconds int) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rollingAvg(c.filesPerSec[:], seconds)
}

func (c *Collector) rollingAvg(buf []int64, n int) float64 {
	count := min(n, c.ringCount)
	if count <= 0 {
		return 0
	}
	var sum int64
	for i := range count {
		idx := (c.ringIdx - 1 - i + ringSize) % ringSize
		sum += buf[idx]
	}
	return float64(sum) / float64(count)
}

// SparklineData returns the last n bytes/sec samples, oldest first.
func (c *Collector) SparklineData(n int) []float64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := min(n, c.ringCount)
	if count <= 0 {
		return nil
	}

	data := make([]float64, count)
	for i := range count {
		idx := (c.ringIdx - count + i + ringSize) % ringSize
		data[i] = float64(c.throughput[idx])
	}
	return data
}

// Elapsed returns time since collector creation.
func (c *Collector) Elapsed() time.Duration {
	return time.Since(c.startTime)
}

func (s Snapshot) String() string {
	return fmt.Sprintf(
		"found=%d hashed=%d failed=%d skipped_paths=%d duplicates=%d collisions=%d deleted=%d delete_failed=%d",
		s.FilesFound, s.FilesHashed, s.FilesFailed, s.PathsSkipped,
		s.Duplicates, s.Collisions, s.FilesDeleted, s.DeleteFailed,
	)
}

// Errors returns the number of non-fatal failures recorded.
func (s Snapshot) Errors() int64 {
	return s.FilesFailed + s.PathsSkipped + s.Collisions + s.DeleteFailed
}
