package engine

import (
	"context"
	"fmt"
	"os"

	"github.com/bamsammich/dedup/internal/event"
	"github.com/bamsammich/dedup/internal/stats"
)

// RemoveConfig controls a removal pass.
type RemoveConfig struct {
	DryRun bool
	// Confirm re-reads each path and its entry in Originals before
	// removing it, refusing with ErrContentChanged if they differ.
	Confirm   bool
	Originals map[string]string
	Events    chan<- event.Event
	Stats     stats.Writer
}

// Outcome is the result of removing one path. Err is a *DeletionError or nil.
type Outcome struct {
	Path string
	Err  error
}

// OK reports whether the path was removed (or would have been, in a dry run).
func (o Outcome) OK() bool { return o.Err == nil }

// Remove deletes each path in order and reports one Outcome per distinct
// path. A failure affects only its own path. Directories and special
// files are refused; a symlink is removed, never its target.
// Once ctx is cancelled the remaining paths fail with the context error.
func Remove(ctx context.Context, cfg RemoveConfig, paths []string) []Outcome {
	seen := make(map[string]struct{}, len(paths))
	outcomes := make([]Outcome, 0, len(paths))

	for _, p := range paths {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}

		var err error
		if ctx.Err() != nil {
			err = ctx.Err()
		} else {
			err = removeOne(cfg, p)
		}

		if err != nil {
			err = &DeletionError{Path: p, Err: err}
			if cfg.Stats != nil {
				cfg.Stats.AddDeleteFailed(1)
			}
			event.Emit(cfg.Events, event.Event{Type: event.DeleteFailed, Path: p, Error: err})
		} else {
			if cfg.Stats != nil {
				cfg.Stats.AddFilesDeleted(1)
			}
			event.Emit(cfg.Events, event.Event{Type: event.DeleteFile, Path: p, Original: cfg.Originals[p]})
		}
		outcomes = append(outcomes, Outcome{Path: p, Err: err})
	}
	return outcomes
}

func removeOne(cfg RemoveConfig, p string) error {
	info, err := os.Lstat(p)
	if err != nil {
		return err
	}
	switch {
	case info.IsDir():
		return ErrIsDirectory
	case !info.Mode().IsRegular() && info.Mode()&os.ModeSymlink == 0:
		return ErrNotRegular
	}

	if cfg.Confirm {
		orig, ok := cfg.Originals[p]
		if !ok || orig == "" || orig == p {
			return ErrNoOriginal
		}
		same, err := sameContent(p, orig)
		if err != nil {
			return fmt.Errorf("confirm: %w", err)
		}
		if !same {
			return ErrContentChanged
		}
	}

	if cfg.DryRun {
		return nil
	}
	return os.Remove(p)
}

// Failed returns the outcomes that did not succeed.
func Failed(outcomes []Outcome) []Outcome {
	var out []Outcome
	for _, o := range outcomes {
		if !o.OK() {
			out = append(out, o)
		}
	}
	return out
}
