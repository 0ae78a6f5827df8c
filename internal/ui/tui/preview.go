package tui

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	previewBytes    = 4096
	previewHexBytes = 256
)

// previewMsg carries the rendered head of a file.
type previewMsg struct {
	path string
	text string
	err  error
}

// loadPreview reads the start of path off the UI goroutine.
func loadPreview(path string) tea.Cmd {
	return func() tea.Msg {
		text, err := readPreview(path)
		return previewMsg{path: path, text: text, err: err}
	}
}

func readPreview(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	buf := make([]byte, previewBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return "", err
	}
	return renderPreview(buf[:n]), nil
}

// renderPreview shows text as-is with tabs expanded, and anything else as
// a hex dump of its first bytes.
func renderPreview(data []byte) string {
	if len(data) == 0 {
		return "(empty file)"
	}
	if isBinary(data) {
		head := data[:min(len(data), previewHexBytes)]
		return fmt.Sprintf("binary content\n\n%s", hex.Dump(head))
	}
	text := string(trimPartialRune(data))
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\t", "    ")
}

func isBinary(data []byte) bool {
	if bytes.IndexByte(data, 0) >= 0 {
		return true
	}
	return !utf8.Valid(trimPartialRune(data))
}

// trimPartialRune drops a multi-byte rune cut off by the read limit.
func trimPartialRune(b []byte) []byte {
	for i := len(b) - 1; i >= 0 && i >= len(b)-utf8.UTFMax; i-- {
		if utf8.RuneStart(b[i]) {
			if !utf8.FullRune(b[i:]) {
				return b[:i]
			}
			return b
		}
	}
	return b
}

// clipLines cuts text to height lines of at most width runes.
func clipLines(text string, width, height int) string {
	lines := strings.Split(text, "\n")
	if len(lines) > height {
		lines = lines[:height]
	}
	for i, line := range lines {
		if r := []rune(line); len(r) > width {
			lines[i] = string(r[:width])
		}
	}
	return strings.Join(lines, "\n")
}
