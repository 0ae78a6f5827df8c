package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeFiles creates each file under root, with parent directories.
func writeFiles(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		p := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
}

// scanAll runs a Scanner to completion and returns what it emitted.
func scanAll(t *testing.T, cfg ScannerConfig) ([]FileEntry, []error) {
	t.Helper()
	entries, errs := NewScanner(cfg).Scan(context.Background())

	var errList []error
	done := make(chan struct{})
	go func() {
		for err := range errs {
			errList = append(errList, err)
		}
		close(done)
	}()

	var entryList []FileEntry
	for e := range entries {
		entryList = append(entryList, e)
	}
	<-done
	return entryList, errList
}

// relPaths strips root from each entry path.
func relPaths(t *testing.T, root string, entries []FileEntry) []string {
	t.Helper()
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		rel, err := filepath.Rel(root, e.Path)
		require.NoError(t, err)
		out = append(out, filepath.ToSlash(rel))
	}
	return out
}

// find runs FindDuplicates with test defaults.
func find(t *testing.T, cfg Config) Result {
	t.Helper()
	res, err := FindDuplicates(context.Background(), cfg)
	require.NoError(t, err)
	return res
}

// constHash maps every input to the same digest.
type constHash struct{}

func (constHash) Write(p []byte) (int, error) { return len(p), nil }
func (constHash) Sum(b []byte) []byte         { return append(b, 0xde, 0xad, 0xbe, 0xef) }
func (constHash) Reset()                      {}
func (constHash) Size() int                   { return 4 }
func (constHash) BlockSize() int              { return 1 }
