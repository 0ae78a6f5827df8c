package engine

type entryKind int

const (
	kindOther entryKind = iota
	kindRegular
	kindDir
	kindSymlink
)

// statInfo is the part of a stat result the scanner needs.
type statInfo struct {
	kind entryKind
	size int64
	id   DevIno
}
