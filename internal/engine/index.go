package engine

// DigestIndex maps each digest to the first file seen with it during one
// scan. It is owned by a single goroutine and never shared between scans.
type DigestIndex struct {
	first map[Digest]FileEntry
}

// NewDigestIndex returns an empty index.
func NewDigestIndex() *DigestIndex {
	return &DigestIndex{first: make(map[Digest]FileEntry)}
}

// Observe looks d up. On a hit it returns the canonical entry and true and
// leaves the index unchanged; on a miss it records e as canonical for d.
func (ix *DigestIndex) Observe(d Digest, e FileEntry) (FileEntry, bool) {
	if canonical, ok := ix.first[d]; ok {
		return canonical, true
	}
	ix.first[d] = e
	return FileEntry{}, false
}

// Len returns the number of distinct digests seen.
func (ix *DigestIndex) Len() int { return len(ix.first) }
