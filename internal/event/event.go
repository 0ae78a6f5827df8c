package event

import "time"

// Type identifies the kind of event.
type Type int

const (
	ScanStarted Type = iota + 1
	ScanComplete
	FileFound
	FileHashed
	FileFailed
	PathSkipped
	DuplicateFound
	CollisionFound
	DeleteFile
	DeleteFailed
)

var typeNames = [...]string{
	ScanStarted:    "ScanStarted",
	ScanComplete:   "ScanComplete",
	FileFound:      "FileFound",
	FileHashed:     "FileHashed",
	FileFailed:     "FileFailed",
	PathSkipped:    "PathSkipped",
	DuplicateFound: "DuplicateFound",
	CollisionFound: "CollisionFound",
	DeleteFile:     "DeleteFile",
	DeleteFailed:   "DeleteFailed",
}

func (t Type) String() string {
	if t > 0 && int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "Unknown"
}

// Event represents a single progress event from the engine.
type Event struct {
	Type      Type
	Timestamp time.Time
	Path      string // file the event is about
	Original  string // canonical file (DuplicateFound, CollisionFound)
	Size      int64
	Total     int64 // files found (ScanComplete)
	TotalSize int64 // bytes found (ScanComplete)
	Error     error
	WorkerID  int
}

// Emit sends e on ch without blocking, stamping the time. Events are
// advisory: a full or nil channel drops them.
func Emit(ch chan<- Event, e Event) {
	if ch == nil {
		return
	}
	e.Timestamp = time.Now()
	select {
	case ch <- e:
	default:
	}
}
