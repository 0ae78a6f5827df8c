package engine

import (
	"fmt"
	"strings"
)

// DevIno identifies an inode. The zero value means "unknown".
type DevIno struct {
	Dev uint64
	Ino uint64
}

func (d DevIno) known() bool { return d != DevIno{} }

// FileEntry is a regular file found by the Scanner. It is a reference to
// the file, not its content; the content is read on demand.
type FileEntry struct {
	Path   string // root joined with the path below it
	Size   int64  // size observed during traversal
	DevIno DevIno
}

// DuplicatePair records that Path has the same digest as Original, which
// was seen earlier in traversal order and is the canonical file.
type DuplicatePair struct {
	Path      string `json:"path"`
	Original  string `json:"original"`
	Digest    Digest `json:"digest"`
	Size      int64  `json:"size"`
	SameInode bool   `json:"same_inode,omitempty"` // both names refer to one inode
}

// Redundant returns the later-seen side of each pair, in pair order,
// skipping pairs whose two names share an inode: removing one of those
// reclaims nothing and may remove the only copy reachable from the root.
// Canonical files are never included.
func Redundant(pairs []DuplicatePair) []string {
	seen := make(map[string]struct{}, len(pairs))
	out := make([]string, 0, len(pairs))
	for _, p := range pairs {
		if p.SameInode {
			continue
		}
		if _, dup := seen[p.Path]; dup {
			continue
		}
		seen[p.Path] = struct{}{}
		out = append(out, p.Path)
	}
	return out
}

// Originals maps each later-seen path to its canonical file, for
// RemoveConfig.Originals.
func Originals(pairs []DuplicatePair) map[string]string {
	m := make(map[string]string, len(pairs))
	for _, p := range pairs {
		m[p.Path] = p.Original
	}
	return m
}

// SymlinkPolicy controls how the Scanner treats symbolic links.
type SymlinkPolicy int

const (
	// SymlinkFollow hashes the target of a file link under the link's own
	// path and descends into directory links. Every directory is walked at
	// most once, which breaks cycles.
	SymlinkFollow SymlinkPolicy = iota
	// SymlinkSkip ignores symbolic links entirely.
	SymlinkSkip
)

func (p SymlinkPolicy) String() string {
	switch p {
	case SymlinkFollow:
		return "follow"
	case SymlinkSkip:
		return "skip"
	default:
		return fmt.Sprintf("SymlinkPolicy(%d)", int(p))
	}
}

// ParseSymlinkPolicy parses "follow" or "skip".
func ParseSymlinkPolicy(s string) (SymlinkPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "follow", "":
		return SymlinkFollow, nil
	case "skip":
		return SymlinkSkip, nil
	default:
		return 0, fmt.Errorf("unknown symlink policy %q (use follow or skip)", s)
	}
}
