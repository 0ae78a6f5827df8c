package engine

import (
	"context"
	"crypto/md5" //nolint:gosec // content fingerprint, not a security boundary
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/minio/highwayhash"
	"github.com/zeebo/blake3"
	"github.com/zeebo/xxh3"
	"golang.org/x/time/rate"
)

// Algorithm names a content digest function.
type Algorithm string

const (
	BLAKE3  Algorithm = "blake3"
	XXHash  Algorithm = "xxhash"
	XXH3    Algorithm = "xxh3"
	Highway Algorithm = "highway"
	MD5     Algorithm = "md5"
	SHA256  Algorithm = "sha256"
)

// DefaultAlgorithm is used when none is configured.
const DefaultAlgorithm = BLAKE3

// DefaultBufSize is the chunk size files are read in while hashing.
const DefaultBufSize = 8 * 1024

// highwayKey is fixed so HighwayHash digests are comparable across runs.
var highwayKey = []byte("dedup/highwayhash/content-key/v1")

// Algorithms lists the supported algorithms.
func Algorithms() []Algorithm {
	return []Algorithm{BLAKE3, XXHash, XXH3, Highway, MD5, SHA256}
}

// ParseAlgorithm resolves a name to an Algorithm. Empty means the default.
func ParseAlgorithm(s string) (Algorithm, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultAlgorithm, nil
	}
	for _, a := range Algorithms() {
		if string(a) == s {
			return a, nil
		}
	}
	return "", fmt.Errorf("unknown hash algorithm %q", s)
}

// New returns a fresh streaming hash for the algorithm.
func (a Algorithm) New() (hash.Hash, error) {
	switch a {
	case BLAKE3, "":
		return blake3.New(), nil
	case XXHash:
		return xxhash.New(), nil
	case XXH3:
		return xxh3.New(), nil
	case Highway:
		return highwayhash.New(highwayKey)
	case MD5:
		return md5.New(), nil //nolint:gosec // see import
	case SHA256:
		return sha256.New(), nil
	default:
		return nil, fmt.Errorf("unknown hash algorithm %q", string(a))
	}
}

// Digest is the lowercase hex encoding of a file's content hash. Its
// length is fixed for a given Algorithm.
type Digest string

// HashOptions controls how files are read while hashing.
type HashOptions struct {
	Algorithm Algorithm
	BufSize   int           // read chunk size, DefaultBufSize if <= 0
	Limiter   *rate.Limiter // optional shared read throttle

	newHash func() (hash.Hash, error) // overrides Algorithm in tests
}

func (o HashOptions) hasher() (hash.Hash, error) {
	if o.newHash != nil {
		return o.newHash()
	}
	return o.Algorithm.New()
}

func (o HashOptions) buffer() []byte {
	if o.BufSize <= 0 {
		return make([]byte, DefaultBufSize)
	}
	return make([]byte, o.BufSize)
}

// HashFile computes the digest of the file at path. Failures are
// returned as *ReadError.
func HashFile(path string, opts HashOptions) (Digest, error) {
	return HashFileContext(context.Background(), path, opts)
}

// HashFileContext is HashFile with a context for the rate limiter.
func HashFileContext(ctx context.Context, path string, opts HashOptions) (Digest, error) {
	h, err := opts.hasher()
	if err != nil {
		return "", err
	}
	d, _, err := hashFile(ctx, path, h, opts.buffer(), opts.Limiter)
	return d, err
}

// hashFile streams the file through h one buffer at a time, so peak memory
// is len(buf) whatever the file size. h is reset first; workers reuse both
// h and buf across files. It also returns the number of bytes read.
func hashFile(ctx context.Context, path string, h hash.Hash, buf []byte, lim *rate.Limiter) (Digest, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, &ReadError{Path: path, Err: err}
	}
	defer f.Close()

	var r io.Reader = f
	if lim != nil {
		r = newRateLimitedReader(ctx, f, lim)
	}

	h.Reset()
	var total int64
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n]) // hash.Hash.Write never fails
			total += int64(n)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", total, &ReadError{Path: path, Err: err}
		}
	}

	return Digest(hex.EncodeToString(h.Sum(nil))), total, nil
}
