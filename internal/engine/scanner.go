package engine

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"

	"github.com/bamsammich/dedup/internal/filter"
)

// ScannerConfig controls scanner behavior.
type ScannerConfig struct {
	Root     string
	Symlinks SymlinkPolicy
	Filter   *filter.Chain // nil admits everything
	Logger   *slog.Logger  // optional, slog.Default() if nil
}

// Scanner walks a directory tree depth-first and emits every regular file.
//
// Entries of one directory are visited in os.ReadDir order (sorted by
// name), and a subdirectory is walked completely at the point where it
// appears in its parent's listing. The order is therefore stable for a
// given filesystem snapshot.
//
// With SymlinkFollow every directory is walked once. A directory reached
// again through a link is passed over quietly unless it is an ancestor of
// the link, which is a cycle and reported as ErrSymlinkCycle.
type Scanner struct {
	cfg     ScannerConfig
	logger  *slog.Logger
	entries chan FileEntry
	errs    chan error
	visited map[DevIno]struct{} // directories walked so far
	active  map[DevIno]struct{} // directories on the current walk path
}

// NewScanner creates a scanner with the given config.
func NewScanner(cfg ScannerConfig) *Scanner {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{
		cfg:     cfg,
		logger:  logger,
		entries: make(chan FileEntry, 64),
		errs:    make(chan error, 16),
		visited: make(map[DevIno]struct{}),
		active:  make(map[DevIno]struct{}),
	}
}

// Scan starts the walk and returns channels for entries and errors. Every
// error is a *TraversalError. Sends block, so the caller must consume from
// both channels until they close. A Scanner can be used once.
func (s *Scanner) Scan(ctx context.Context) (<-chan FileEntry, <-chan error) {
	go func() {
		defer close(s.entries)
		defer close(s.errs)
		s.scanRoot(ctx)
	}()

	return s.entries, s.errs
}

func (s *Scanner) scanRoot(ctx context.Context) {
	info, err := statPath(s.cfg.Root, true)
	if err != nil {
		s.sendErr(ctx, &TraversalError{Path: s.cfg.Root, Err: err})
		return
	}
	if info.kind != kindDir {
		s.sendErr(ctx, &TraversalError{Path: s.cfg.Root, Err: ErrRootNotDir})
		return
	}
	s.enterDir(ctx, info.id, s.cfg.Root, "")
}

// enterDir walks dir while recording it as visited and on the walk path.
func (s *Scanner) enterDir(ctx context.Context, id DevIno, dir, rel string) bool {
	if !id.known() {
		return s.scanDir(ctx, dir, rel)
	}
	s.visited[id] = struct{}{}
	s.active[id] = struct{}{}
	defer delete(s.active, id)
	return s.scanDir(ctx, dir, rel)
}

// scanDir walks one directory. rel is its slash-separated path below the
// root, used for filter matching. It returns false once ctx is done.
func (s *Scanner) scanDir(ctx context.Context, dir, rel string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		// ReadDir may return the entries it read before failing.
		if !s.sendErr(ctx, &TraversalError{Path: dir, Err: err}) {
			return false
		}
	}

	for _, entry := range entries {
		if ctx.Err() != nil {
			return false
		}
		name := entry.Name()
		if !s.processEntry(ctx, filepath.Join(dir, name), path.Join(rel, name)) {
			return false
		}
	}
	return true
}

func (s *Scanner) processEntry(ctx context.Context, entryPath, rel string) bool {
	info, err := statPath(entryPath, false)
	if err != nil {
		return s.sendErr(ctx, &TraversalError{Path: entryPath, Err: err})
	}

	viaLink := false
	if info.kind == kindSymlink {
		if s.cfg.Symlinks == SymlinkSkip {
			return true
		}
		info, err = statPath(entryPath, true)
		if err != nil {
			return s.sendErr(ctx, &TraversalError{Path: entryPath, Err: fmt.Errorf("dangling symlink: %w", err)})
		}
		viaLink = true
	}

	switch info.kind {
	case kindDir:
		if !s.cfg.Filter.MatchDir(rel) {
			return true
		}
		if viaLink && !canTrackDirs {
			return true
		}
		if info.id.known() {
			if _, cycle := s.active[info.id]; cycle {
				return s.sendErr(ctx, &TraversalError{Path: entryPath, Err: ErrSymlinkCycle})
			}
			if _, seen := s.visited[info.id]; seen {
				s.logger.Debug("directory already walked", "path", entryPath)
				return true
			}
		}
		return s.enterDir(ctx, info.id, entryPath, rel)

	case kindRegular:
		if !s.cfg.Filter.MatchFile(rel, info.size) {
			return true
		}
		return s.sendEntry(ctx, FileEntry{Path: entryPath, Size: info.size, DevIno: info.id})

	default:
		// Devices, sockets and pipes have no content to compare.
		return true
	}
}

func (s *Scanner) sendEntry(ctx context.Context, e FileEntry) bool {
	select {
	case s.entries <- e:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Scanner) sendErr(ctx context.Context, err error) bool {
	select {
	case s.errs <- err:
		return true
	case <-ctx.Done():
		return false
	}
}

// CheckRoot verifies that root exists and is a directory. It is the only
// scan failure that aborts the whole operation.
func CheckRoot(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return fmt.Errorf("root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root %s: %w", root, ErrRootNotDir)
	}
	return nil
}
