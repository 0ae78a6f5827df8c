package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/dedup/internal/filter"
)

func TestScanner_FlatDir(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.txt": "A", "b.txt": "BB"})

	entries, errs := scanAll(t, ScannerConfig{Root: root})
	require.Empty(t, errs)
	require.Len(t, entries, 2)
	assert.Equal(t, []string{"a.txt", "b.txt"}, relPaths(t, root, entries))
	assert.Equal(t, int64(1), entries[0].Size)
	assert.Equal(t, int64(2), entries[1].Size)
}

func TestScanner_NestedDirsDepthFirst(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.txt":           "a",
		"m/x.txt":         "x",
		"m/deep/y.txt":    "y",
		"m/z.txt":         "z",
		"z.txt":           "zz",
		"empty/.keep.txt": "",
	})

	entries, errs := scanAll(t, ScannerConfig{Root: root})
	require.Empty(t, errs)
	assert.Equal(t, []string{
		"a.txt",
		"empty/.keep.txt",
		"m/deep/y.txt",
		"m/x.txt",
		"m/z.txt",
		"z.txt",
	}, relPaths(t, root, entries))
}

func TestScanner_StableOrder(t *testing.T) {
	root := t.TempDir()
	for i := range 50 {
		writeFiles(t, root, map[string]string{fmt.Sprintf("d%d/f%d.txt", i%7, i): "data"})
	}

	first, _ := scanAll(t, ScannerConfig{Root: root})
	second, _ := scanAll(t, ScannerConfig{Root: root})
	assert.Equal(t, first, second)
	assert.Len(t, first, 50)
}

func TestScanner_SymlinkFollow(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"real/f.txt": "content"})
	require.NoError(t, os.Symlink("real/f.txt", filepath.Join(root, "link.txt")))

	entries, errs := scanAll(t, ScannerConfig{Root: root, Symlinks: SymlinkFollow})
	require.Empty(t, errs)
	assert.Equal(t, []string{"link.txt", "real/f.txt"}, relPaths(t, root, entries))
	assert.Equal(t, entries[0].DevIno, entries[1].DevIno)
}

func TestScanner_SymlinkSkip(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"real/f.txt": "content"})
	require.NoError(t, os.Symlink("real/f.txt", filepath.Join(root, "link.txt")))
	require.NoError(t, os.Symlink("real", filepath.Join(root, "linkdir")))

	entries, errs := scanAll(t, ScannerConfig{Root: root, Symlinks: SymlinkSkip})
	require.Empty(t, errs)
	assert.Equal(t, []string{"real/f.txt"}, relPaths(t, root, entries))
}

func TestScanner_SymlinkCycle(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"sub/f.txt": "content"})
	require.NoError(t, os.Symlink("..", filepath.Join(root, "sub", "up")))

	entries, errs := scanAll(t, ScannerConfig{Root: root})
	assert.Equal(t, []string{"sub/f.txt"}, relPaths(t, root, entries))
	require.Len(t, errs, 1)

	var te *TraversalError
	require.ErrorAs(t, errs[0], &te)
	assert.Equal(t, filepath.Join(root, "sub", "up"), te.Path)
	assert.ErrorIs(t, errs[0], ErrSymlinkCycle)
}

func TestScanner_DirLinkWalkedOnce(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"b/f.txt": "content"})
	require.NoError(t, os.Symlink("b", filepath.Join(root, "a")))

	entries, errs := scanAll(t, ScannerConfig{Root: root})
	// "a" sorts first, so the walk enters b through the link and passes
	// over b itself without an error.
	assert.Equal(t, []string{"a/f.txt"}, relPaths(t, root, entries))
	assert.Empty(t, errs)
}

func TestScanner_DirLinkAfterTarget(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"photos/x.jpg": "x", "photos/y.jpg": "y"})
	require.NoError(t, os.Symlink("photos", filepath.Join(root, "pics")))

	entries, errs := scanAll(t, ScannerConfig{Root: root})
	assert.Equal(t, []string{"photos/x.jpg", "photos/y.jpg"}, relPaths(t, root, entries))
	assert.Empty(t, errs)
}

func TestScanner_SymlinkCycleToAncestor(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a/b/c/f.txt": "content"})
	loop := filepath.Join(root, "a", "b", "c", "loop")
	require.NoError(t, os.Symlink(filepath.Join(root, "a"), loop))

	entries, errs := scanAll(t, ScannerConfig{Root: root})
	assert.Equal(t, []string{"a/b/c/f.txt"}, relPaths(t, root, entries))
	require.Len(t, errs, 1)

	var te *TraversalError
	require.ErrorAs(t, errs[0], &te)
	assert.Equal(t, loop, te.Path)
	assert.ErrorIs(t, errs[0], ErrSymlinkCycle)
}

func TestScanner_DanglingSymlink(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"ok.txt": "ok"})
	require.NoError(t, os.Symlink("missing.txt", filepath.Join(root, "broken")))

	entries, errs := scanAll(t, ScannerConfig{Root: root})
	assert.Equal(t, []string{"ok.txt"}, relPaths(t, root, entries))
	require.Len(t, errs, 1)

	var te *TraversalError
	require.ErrorAs(t, errs[0], &te)
	assert.Equal(t, filepath.Join(root, "broken"), te.Path)
	assert.ErrorIs(t, errs[0], os.ErrNotExist)
}

func TestScanner_PermissionDenied(t *testing.T) {
	if os.Getuid() == 0 {
		t.Skip("running as root, cannot test permission denied")
	}

	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"a.txt":           "a",
		"forbidden/x.txt": "x",
		"z.txt":           "z",
	})
	forbidden := filepath.Join(root, "forbidden")
	require.NoError(t, os.Chmod(forbidden, 0o000))
	defer func() { _ = os.Chmod(forbidden, 0o755) }() //nolint:errcheck // best-effort cleanup in test

	entries, errs := scanAll(t, ScannerConfig{Root: root})
	assert.Equal(t, []string{"a.txt", "z.txt"}, relPaths(t, root, entries))
	require.Len(t, errs, 1)

	var te *TraversalError
	require.ErrorAs(t, errs[0], &te)
	assert.Equal(t, forbidden, te.Path)
	assert.ErrorIs(t, errs[0], os.ErrPermission)
}

func TestScanner_EmptyDirYieldsNothing(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"a.txt": "a"})
	require.NoError(t, os.Mkdir(filepath.Join(root, "emptydir"), 0o755))

	entries, errs := scanAll(t, ScannerConfig{Root: root})
	require.Empty(t, errs)
	assert.Equal(t, []string{"a.txt"}, relPaths(t, root, entries))
}

func TestScanner_ExcludeFilter(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"keep.txt":      "keep",
		"skip.log":      "skip",
		"cache/big.bin": "bin",
		"sub/also.log":  "skip",
	})

	chain := filter.NewChain()
	require.NoError(t, chain.AddExclude("*.log"))
	require.NoError(t, chain.AddExclude("cache/"))

	entries, errs := scanAll(t, ScannerConfig{Root: root, Filter: chain})
	require.Empty(t, errs)
	assert.Equal(t, []string{"keep.txt"}, relPaths(t, root, entries))
}

func TestScanner_SizeFilter(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{
		"small.txt": "s",
		"big.txt":   "0123456789",
	})

	chain := filter.NewChain()
	chain.SetMinSize(5)

	entries, _ := scanAll(t, ScannerConfig{Root: root, Filter: chain})
	assert.Equal(t, []string{"big.txt"}, relPaths(t, root, entries))
}

func TestScanner_RootNotDir(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "f.txt")
	writeFiles(t, root, map[string]string{"f.txt": "x"})

	entries, errs := scanAll(t, ScannerConfig{Root: file})
	assert.Empty(t, entries)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], ErrRootNotDir)
}

func TestScanner_ContextCancel(t *testing.T) {
	root := t.TempDir()
	for i := range 100 {
		writeFiles(t, root, map[string]string{fmt.Sprintf("file%03d", i): "data"})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entries, errs := NewScanner(ScannerConfig{Root: root}).Scan(ctx)
	count := 0
	for range entries {
		count++
	}
	for range errs {
	}
	t.Logf("got %d entries with immediate cancel", count)
	assert.Less(t, count, 100)
}

func TestCheckRoot(t *testing.T) {
	root := t.TempDir()
	writeFiles(t, root, map[string]string{"f.txt": "x"})

	require.NoError(t, CheckRoot(root))
	assert.ErrorIs(t, CheckRoot(filepath.Join(root, "f.txt")), ErrRootNotDir)

	err := CheckRoot(filepath.Join(root, "missing"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
