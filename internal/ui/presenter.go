package ui

import (
	"io"
	"time"

	"github.com/bamsammich/dedup/internal/stats"
)

// Presenter consumes events and displays progress.
type Presenter interface {
	// Run consumes events until the channel closes. Blocks until done.
	Run(events <-chan Event) error
	// Summary returns the final summary line.
	Summary() string
}

// Config configures a Presenter. Presenters write progress to Writer,
// normally stderr, leaving stdout for results.
type Config struct {
	Writer     io.Writer
	Stats      stats.ReadTicker
	Root       string // stripped from displayed paths
	IsTTY      bool
	Width      int // terminal columns for the HUD, 0 for no limit
	Quiet      bool
	Verbose    bool
	ForceFeed  bool
	ForceRate  bool
	NoProgress bool
}

// NewPresenter creates the appropriate presenter based on configuration.
//
//nolint:ireturn // factory function returns interface by design
func NewPresenter(cfg Config) Presenter {
	if cfg.Quiet {
		return quietPresenter{}
	}
	if !cfg.IsTTY || cfg.NoProgress {
		p := &plainPresenter{
			w:       cfg.Writer,
			stats:   cfg.Stats,
			root:    cfg.Root,
			verbose: cfg.Verbose,
		}
		if !cfg.NoProgress {
			p.interval = 5 * time.Second
		}
		return p
	}
	return &hudPresenter{
		w:         cfg.Writer,
		stats:     cfg.Stats,
		forceFeed: cfg.ForceFeed,
		forceRate: cfg.ForceRate,
		root:      cfg.Root,
		width:     cfg.Width,
	}
}
