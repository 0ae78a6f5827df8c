package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/bamsammich/dedup/internal/stats"
)

// plainPresenter writes one line per notable event and, when interval is
// set, a progress line at that interval. Used when output is not a TTY.
type plainPresenter struct {
	w        io.Writer
	stats    stats.ReadTicker
	root     string
	verbose  bool
	interval time.Duration // zero disables periodic progress
}

func (p *plainPresenter) Run(events <-chan Event) error {
	var tick <-chan time.Time
	if p.interval > 0 {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.handleEvent(ev)
		case <-tick:
			p.printProgress()
		}
	}
}

func (p *plainPresenter) handleEvent(ev Event) {
	path := StripRoot(p.root, ev.Path)
	switch ev.Type {
	case FileFailed, PathSkipped:
		fmt.Fprintf(p.w, "skip: %s  %s\n", path, errText(ev.Error))
	case CollisionFound:
		fmt.Fprintf(p.w, "COLLISION: %s  %s\n", path, StripRoot(p.root, ev.Original))
	case DuplicateFound:
		if p.verbose {
			fmt.Fprintf(p.w, "duplicate: %s  ->  %s  %s\n", path, StripRoot(p.root, ev.Original), FormatBytes(ev.Size))
		}
	case DeleteFile:
		fmt.Fprintf(p.w, "delete: %s\n", path)
	case DeleteFailed:
		fmt.Fprintf(p.w, "delete failed: %s  %s\n", path, errText(ev.Error))
	}
}

func (p *plainPresenter) printProgress() {
	snap := p.stats.Snapshot()
	fmt.Fprintf(p.w, "progress: %s/%s files hashed  %s  %s  duplicates %s\n",
		FormatCount(snap.FilesHashed), FormatCount(snap.FilesFound),
		FormatBytes(snap.BytesHashed),
		FormatRate(p.stats.RollingSpeed(10)),
		FormatCount(snap.Duplicates),
	)
}

func (p *plainPresenter) Summary() string {
	return CompletionSummary(p.stats.Snapshot())
}

func errText(err error) string {
	if err == nil {
		return "error"
	}
	return err.Error()
}
