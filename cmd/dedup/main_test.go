package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bamsammich/dedup/internal/config"
	"github.com/bamsammich/dedup/internal/ui"
)

// syncBuffer is safe for the presenter and logger writing concurrently.
type syncBuffer struct {
	mu sync.Mutex
	b  bytes.Buffer
}

func (s *syncBuffer) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.Write(p)
}

func (s *syncBuffer) String() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.b.String()
}

type cliResult struct {
	stdout string
	stderr string
	code   int
}

func runCLI(t *testing.T, stdin string, args ...string) cliResult {
	t.Helper()
	var stdout, stderr syncBuffer
	code := execute(args, strings.NewReader(stdin), &stdout, &stderr)
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), code: code}
}

// isolateConfig points the config lookup at an empty directory and
// returns the path the config file would be read from.
func isolateConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	return filepath.Join(dir, "dedup", "config.toml")
}

func writeConfig(t *testing.T, body string) {
	t.Helper()
	path := isolateConfig(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

// duplicateTree creates a.txt, b.txt and sub/d.txt with equal content and
// a distinct c.txt.
func duplicateTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"a.txt":     "hello",
		"b.txt":     "hello",
		"c.txt":     "world",
		"sub/d.txt": "hello",
	}
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestVersion(t *testing.T) {
	isolateConfig(t)
	res := runCLI(t, "", "--version")
	assert.Equal(t, 0, res.code)
	assert.Equal(t, "dedup dev\n", res.stdout)
}

func TestScan_PrintsPairs(t *testing.T) {
	isolateConfig(t)
	root := duplicateTree(t)

	res := runCLI(t, "", "scan", root)
	require.Equal(t, 0, res.code, res.stderr)

	a := filepath.Join(root, "a.txt")
	want := filepath.Join(root, "b.txt") + "  ->  " + a + "\n" +
		filepath.Join(root, "sub", "d.txt") + "  ->  " + a + "\n"
	assert.Equal(t, want, res.stdout)
	assert.Contains(t, res.stderr, "duplicates 2")
}

func TestScan_Quiet(t *testing.T) {
	isolateConfig(t)
	root := duplicateTree(t)

	res := runCLI(t, "", "scan", "-q", root)
	require.Equal(t, 0, res.code)
	assert.NotEmpty(t, res.stdout, "results are printed even when quiet")
	assert.Empty(t, res.stderr)
}

func TestScan_PathsOnly(t *testing.T) {
	isolateConfig(t)
	root := duplicateTree(t)

	res := runCLI(t, "", "scan", "--paths", root)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t,
		filepath.Join(root, "b.txt")+"\n"+filepath.Join(root, "sub", "d.txt")+"\n",
		res.stdout)
}

func TestScan_JSON(t *testing.T) {
	isolateConfig(t)
	root := duplicateTree(t)

	res := runCLI(t, "", "scan", "--json", "--algorithm", "sha256", root)
	require.Equal(t, 0, res.code, res.stderr)

	var rep ui.Report
	require.NoError(t, json.Unmarshal([]byte(res.stdout), &rep))
	assert.Equal(t, root, rep.Root)
	assert.Equal(t, "sha256", rep.Algorithm)
	assert.NotEmpty(t, rep.ScanID)
	assert.Len(t, rep.Pairs, 2)
	require.Len(t, rep.Groups, 1)
	assert.Equal(t, filepath.Join(root, "a.txt"), rep.Groups[0].Original)
}

func TestScan_Delete(t *testing.T) {
	isolateConfig(t)
	root := duplicateTree(t)

	res := runCLI(t, "", "scan", "--delete", root)
	require.Equal(t, 0, res.code, res.stderr)

	assert.Contains(t, res.stdout, "removed  "+filepath.Join(root, "b.txt"))
	assert.Contains(t, res.stdout, "removed  "+filepath.Join(root, "sub", "d.txt"))
	assert.FileExists(t, filepath.Join(root, "a.txt"))
	assert.FileExists(t, filepath.Join(root, "c.txt"))
	assert.NoFileExists(t, filepath.Join(root, "b.txt"))
	assert.NoFileExists(t, filepath.Join(root, "sub", "d.txt"))
}

func TestScan_DeleteDryRun(t *testing.T) {
	isolateConfig(t)
	root := duplicateTree(t)

	res := runCLI(t, "", "scan", "--delete", "--dry-run", root)
	require.Equal(t, 0, res.code, res.stderr)

	assert.Contains(t, res.stdout, "would remove  "+filepath.Join(root, "b.txt"))
	assert.NotContains(t, res.stdout, "removed  ")
	assert.FileExists(t, filepath.Join(root, "b.txt"))
	assert.FileExists(t, filepath.Join(root, "sub", "d.txt"))
}

func TestScan_ReportThenRemove(t *testing.T) {
	isolateConfig(t)
	root := duplicateTree(t)
	report := filepath.Join(t.TempDir(), "scan.json.zst")

	res := runCLI(t, "", "scan", "--report", report, root)
	require.Equal(t, 0, res.code, res.stderr)
	require.FileExists(t, report)

	rep, err := ui.ReadReportFile(report)
	require.NoError(t, err)
	assert.Len(t, rep.Pairs, 2)

	res = runCLI(t, "", "rm", "--report", report, "--confirm")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stderr, "removed 2, 0 failed")
	assert.FileExists(t, filepath.Join(root, "a.txt"))
	assert.NoFileExists(t, filepath.Join(root, "b.txt"))
}

func TestRm_ConfirmRefusesChangedCopy(t *testing.T) {
	isolateConfig(t)
	root := duplicateTree(t)
	report := filepath.Join(t.TempDir(), "scan.json")

	res := runCLI(t, "", "scan", "--report", report, root)
	require.Equal(t, 0, res.code, res.stderr)

	changed := filepath.Join(root, "b.txt")
	require.NoError(t, os.WriteFile(changed, []byte("edited"), 0o644))

	res = runCLI(t, "", "rm", "--report", report, "--confirm")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stdout, "failed")
	assert.FileExists(t, changed)
	assert.NoFileExists(t, filepath.Join(root, "sub", "d.txt"))
}

func TestScan_MissingRoot(t *testing.T) {
	isolateConfig(t)
	res := runCLI(t, "", "scan", filepath.Join(t.TempDir(), "missing"))
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, "Error:")
	assert.Empty(t, res.stdout)
}

func TestScan_InvalidFlags(t *testing.T) {
	isolateConfig(t)
	root := duplicateTree(t)

	tests := []struct {
		name string
		args []string
	}{
		{"algorithm", []string{"--algorithm", "crc32"}},
		{"symlinks", []string{"--symlinks", "sometimes"}},
		{"buffer", []string{"--buffer", "0"}},
		{"min size", []string{"--min-size", "lots"}},
		{"exclusive outputs", []string{"--json", "--paths"}},
		{"no root", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"scan"}, tt.args...)
			if tt.args != nil {
				args = append(args, root)
			}
			res := runCLI(t, "", args...)
			assert.Equal(t, 2, res.code)
			assert.Empty(t, res.stdout)
		})
	}
}

func TestScan_UnreadableFileIsPartialFailure(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read everything")
	}
	isolateConfig(t)
	root := duplicateTree(t)
	locked := filepath.Join(root, "c.txt")
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { os.Chmod(locked, 0o644) }) //nolint:errcheck // best effort

	res := runCLI(t, "", "scan", root)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stdout, filepath.Join(root, "b.txt"))
	assert.Contains(t, res.stderr, "1 paths skipped")
	assert.Contains(t, res.stderr, "skipped (read)")
}

func TestScan_DirectorySymlinkExitsZero(t *testing.T) {
	isolateConfig(t)
	root := duplicateTree(t)
	require.NoError(t, os.Symlink("sub", filepath.Join(root, "alias")))

	res := runCLI(t, "", "scan", "--paths", root)
	require.Equal(t, 0, res.code, res.stderr)
	assert.NotContains(t, res.stderr, "skipped")
	// The alias sorts before sub, so d.txt is seen through it.
	assert.Equal(t,
		filepath.Join(root, "alias", "d.txt")+"\n"+filepath.Join(root, "b.txt")+"\n",
		res.stdout)
}

func TestScan_Filters(t *testing.T) {
	isolateConfig(t)
	root := duplicateTree(t)

	res := runCLI(t, "", "scan", "--paths", "--exclude", "sub/", root)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, filepath.Join(root, "b.txt")+"\n", res.stdout)
}

func TestScan_ConfigDefaults(t *testing.T) {
	writeConfig(t, `
[defaults]
algorithm = "crc32"
exclude = ["b.txt"]
`)
	root := duplicateTree(t)

	// The config algorithm is invalid and applies when the flag is unset.
	res := runCLI(t, "", "scan", root)
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, "invalid --algorithm")

	// An explicit flag wins; the config exclude still applies.
	res = runCLI(t, "", "scan", "--paths", "--algorithm", "xxh3", root)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, filepath.Join(root, "sub", "d.txt")+"\n", res.stdout)
}

func TestApplyConfigDefaults(t *testing.T) {
	workers := 8
	verify := true
	follow := false
	bwlimit := "10M"
	defaults := config.DefaultsConfig{
		Workers:        &workers,
		Verify:         &verify,
		FollowSymlinks: &follow,
		BWLimit:        &bwlimit,
	}

	cmd := newScanCmd(&globalOptions{})
	require.NoError(t, cmd.ParseFlags([]string{"--workers", "3", "--bwlimit", "1M"}))

	var opts scanOptions
	opts.workers = 3
	opts.bwLimit = "1M"
	opts.symlinks = "follow"
	applyConfigDefaults(cmd.Flags(), defaults, &opts)

	assert.Equal(t, 3, opts.workers, "explicit flag wins")
	assert.Equal(t, "1M", opts.bwLimit, "explicit flag wins")
	assert.True(t, opts.verify)
	assert.Equal(t, "skip", opts.symlinks)
	assert.Empty(t, opts.algorithm, "unset config field leaves the flag alone")
}

func TestScan_LogFile(t *testing.T) {
	isolateConfig(t)
	root := duplicateTree(t)
	logFile := filepath.Join(t.TempDir(), "dedup.log")

	res := runCLI(t, "", "scan", "--log", logFile, root)
	require.Equal(t, 0, res.code, res.stderr)

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"scan_id"`)
	assert.Contains(t, string(data), `"msg":"dedup.event"`)
	assert.Contains(t, string(data), `"type":"DuplicateFound"`)
}

func TestRm_FromStdin(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(a, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("y"), 0o644))
	missing := filepath.Join(dir, "missing")

	res := runCLI(t, a+"\n\n"+missing+"\n", "rm", "--from", "-", b)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stdout, "removed  "+a)
	assert.Contains(t, res.stdout, "removed  "+b)
	assert.Contains(t, res.stdout, "failed   remove "+missing)
	assert.Contains(t, res.stderr, "removed 2, 1 failed")
	assert.NoFileExists(t, a)
	assert.NoFileExists(t, b)
}

func TestRm_FromFileDryRun(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	require.NoError(t, os.WriteFile(a, []byte("x"), 0o644))
	list := filepath.Join(dir, "list.txt")
	require.NoError(t, os.WriteFile(list, []byte(a+"\n"), 0o644))

	res := runCLI(t, "", "rm", "--dry-run", "--from", list)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "would remove  "+a)
	assert.Contains(t, res.stderr, "would remove 1, 0 failed")
	assert.FileExists(t, a)
}

func TestRm_Usage(t *testing.T) {
	isolateConfig(t)

	res := runCLI(t, "", "rm")
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, "no paths to remove")

	res = runCLI(t, "", "rm", "--confirm", "/tmp/x")
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, "--confirm needs --report")
}

func TestGenDocs(t *testing.T) {
	isolateConfig(t)
	dir := t.TempDir()

	res := runCLI(t, "", "gen-docs", "--format", "markdown", "--dir", dir)
	require.Equal(t, 0, res.code, res.stderr)
	assert.FileExists(t, filepath.Join(dir, "dedup.md"))
	assert.FileExists(t, filepath.Join(dir, "dedup_scan.md"))
	assert.FileExists(t, filepath.Join(dir, "dedup_rm.md"))

	res = runCLI(t, "", "gen-docs", "--format", "pdf", "--dir", dir)
	assert.Equal(t, 2, res.code)
}
