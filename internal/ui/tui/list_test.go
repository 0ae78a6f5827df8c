package tui

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bamsammich/dedup/internal/engine"
)

func TestListViewKeepsCursorVisible(t *testing.T) {
	var pairs []engine.DuplicatePair
	for i := range 50 {
		pairs = append(pairs, engine.DuplicatePair{Path: fmt.Sprintf("/r/f%02d", i), Original: "/r/o"})
	}
	l := newListView(pairs, "/r")

	l.move(30)
	out := l.view(60, 10)
	assert.Len(t, strings.Split(strings.TrimRight(out, "\n"), "\n"), 10)
	assert.Contains(t, out, "f30")
	assert.NotContains(t, out, "f20")

	l.top()
	out = l.view(60, 10)
	assert.Contains(t, out, "f00")
	assert.Equal(t, 0, l.offset)
}

func TestListViewApplyIgnoresUnknownPaths(t *testing.T) {
	l := newListView([]engine.DuplicatePair{{Path: "/r/a", Original: "/r/o"}}, "/r")
	removed, failed := l.apply([]engine.Outcome{{Path: "/elsewhere"}})
	assert.Zero(t, removed)
	assert.Zero(t, failed)
}
