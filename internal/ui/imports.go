package ui

import "github.com/bamsammich/dedup/internal/event"

// Event is re-exported so presenters read without the package prefix.
type Event = event.Event

// Re-export event types for convenience.
const (
	ScanStarted    = event.ScanStarted
	ScanComplete   = event.ScanComplete
	FileFound      = event.FileFound
	FileHashed     = event.FileHashed
	FileFailed     = event.FileFailed
	PathSkipped    = event.PathSkipped
	DuplicateFound = event.DuplicateFound
	CollisionFound = event.CollisionFound
	DeleteFile     = event.DeleteFile
	DeleteFailed   = event.DeleteFailed
)
