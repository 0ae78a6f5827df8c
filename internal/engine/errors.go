package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrRootNotDir is returned when the scan root exists but is not a directory.
	ErrRootNotDir = errors.New("root is not a directory")
	// ErrSymlinkCycle marks a symlink that leads back to one of its own
	// parent directories.
	ErrSymlinkCycle = errors.New("symlink cycle")
	// ErrIsDirectory is returned when a path selected for removal is a directory.
	ErrIsDirectory = errors.New("is a directory")
	// ErrNotRegular is returned when a path selected for removal is neither a
	// regular file nor a symbolic link.
	ErrNotRegular = errors.New("not a regular file")
	// ErrContentChanged is returned by a confirmed removal when the file no
	// longer matches its original byte for byte.
	ErrContentChanged = errors.New("content differs from original")
	// ErrNoOriginal is returned by a confirmed removal for a path with no
	// known original to compare against.
	ErrNoOriginal = errors.New("no original to confirm against")
)

// TraversalError reports a directory or link the Scanner could not follow.
// The walk continues past it.
type TraversalError struct {
	Path string
	Err  error
}

func (e *TraversalError) Error() string { return fmt.Sprintf("traverse %s: %v", e.Path, e.Err) }
func (e *TraversalError) Unwrap() error { return e.Err }

// ReadError reports a file that could not be opened or read while hashing.
// The file is left out of the scan's results.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string { return fmt.Sprintf("read %s: %v", e.Path, e.Err) }
func (e *ReadError) Unwrap() error { return e.Err }

// DeletionError reports a removal that failed. Other removals in the same
// batch are unaffected.
type DeletionError struct {
	Path string
	Err  error
}

func (e *DeletionError) Error() string { return fmt.Sprintf("remove %s: %v", e.Path, e.Err) }
func (e *DeletionError) Unwrap() error { return e.Err }

// CollisionError reports two files with equal digests whose bytes differ.
// Only produced when byte verification is enabled.
type CollisionError struct {
	Path     string
	Original string
	Digest   Digest
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("digest collision: %s and %s share %s but differ", e.Path, e.Original, e.Digest)
}

// ErrorPath returns the path carried by one of the engine's error types,
// or "" for any other error.
func ErrorPath(err error) string {
	var (
		te *TraversalError
		re *ReadError
		de *DeletionError
		ce *CollisionError
	)
	switch {
	case errors.As(err, &te):
		return te.Path
	case errors.As(err, &re):
		return re.Path
	case errors.As(err, &de):
		return de.Path
	case errors.As(err, &ce):
		return ce.Path
	default:
		return ""
	}
}
