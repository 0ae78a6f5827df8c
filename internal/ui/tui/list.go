package tui

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bamsammich/dedup/internal/engine"
	"github.com/bamsammich/dedup/internal/ui"
)

// row is one duplicate pair in the selection list.
type row struct {
	pair     engine.DuplicatePair
	selected bool
	removed  bool
	err      string // last removal failure
}

// selectable reports whether removing the row's path can reclaim space.
func (r row) selectable() bool {
	return !r.removed && !r.pair.SameInode
}

type listView struct {
	rows   []row
	index  map[string]int // pair path -> row
	cursor int
	offset int // first visible row
	root   string
}

func newListView(pairs []engine.DuplicatePair, root string) listView {
	l := listView{
		rows:  make([]row, len(pairs)),
		index: make(map[string]int, len(pairs)),
		root:  root,
	}
	for i, p := range pairs {
		l.rows[i] = row{pair: p}
		l.index[p.Path] = i
	}
	return l
}

func (l *listView) current() (row, bool) {
	if l.cursor < 0 || l.cursor >= len(l.rows) {
		return row{}, false
	}
	return l.rows[l.cursor], true
}

func (l *listView) move(delta int) {
	if len(l.rows) == 0 {
		return
	}
	l.cursor = max(0, min(l.cursor+delta, len(l.rows)-1))
}

func (l *listView) top()    { l.cursor = 0 }
func (l *listView) bottom() { l.cursor = max(0, len(l.rows)-1) }

// toggle flips the selection at the cursor. It returns a reason when the
// row cannot be selected.
func (l *listView) toggle() string {
	if l.cursor >= len(l.rows) {
		return ""
	}
	r := &l.rows[l.cursor]
	switch {
	case r.removed:
		return "already removed"
	case r.pair.SameInode:
		return "same inode as original: removing it reclaims nothing"
	}
	r.selected = !r.selected
	return ""
}

func (l *listView) selectAll() int {
	n := 0
	for i := range l.rows {
		if l.rows[i].selectable() {
			l.rows[i].selected = true
			n++
		}
	}
	return n
}

func (l *listView) unselectAll() {
	for i := range l.rows {
		l.rows[i].selected = false
	}
}

func (l *listView) selectedPaths() []string {
	var paths []string
	for _, r := range l.rows {
		if r.selected {
			paths = append(paths, r.pair.Path)
		}
	}
	return paths
}

func (l *listView) selectedSize() int64 {
	var n int64
	for _, r := range l.rows {
		if r.selected {
			n += r.pair.Size
		}
	}
	return n
}

// apply records removal outcomes on their rows and returns the counts.
func (l *listView) apply(outcomes []engine.Outcome) (removed, failed int) {
	for _, o := range outcomes {
		i, ok := l.index[o.Path]
		if !ok {
			continue
		}
		r := &l.rows[i]
		r.selected = false
		if o.OK() {
			r.removed = true
			r.err = ""
			removed++
		} else {
			r.err = o.Err.Error()
			failed++
		}
	}
	return removed, failed
}

func (l *listView) view(width, height int) string {
	if len(l.rows) == 0 {
		return styleFileSize.Render("  no duplicates found") + "\n"
	}
	height = max(height, 1)

	// Keep the cursor inside the viewport.
	if l.cursor < l.offset {
		l.offset = l.cursor
	}
	if l.cursor >= l.offset+height {
		l.offset = l.cursor - height + 1
	}
	l.offset = max(0, min(l.offset, len(l.rows)-height))

	end := min(l.offset+height, len(l.rows))

	var b strings.Builder
	for i := l.offset; i < end; i++ {
		b.WriteString(l.renderRow(i, width))
		b.WriteByte('\n')
	}
	return b.String()
}

func (l *listView) renderRow(i, width int) string {
	r := l.rows[i]

	cursor := "  "
	if i == l.cursor {
		cursor = styleCursor.Render("› ")
	}

	var box string
	switch {
	case r.removed:
		box = styleRemoved.Render("[-]")
	case r.err != "":
		box = styleIconFailed.Render("[!]")
	case r.pair.SameInode:
		box = styleSameInode.Render("[=]")
	case r.selected:
		box = styleChecked.Render("[x]")
	default:
		box = styleUnchecked.Render("[ ]")
	}

	size := fmt.Sprintf("%10s", ui.FormatBytes(r.pair.Size))
	// cursor + box + spaces + size.
	room := max(width-2-3-1-2-len(size), 8)
	path := ui.TruncateLeft(ui.StripRoot(l.root, r.pair.Path), room)
	if r.removed {
		path = styleRemoved.Render(path)
	} else {
		path = styledPath(path)
	}

	return cursor + box + " " + path + "  " + styleFileSize.Render(size)
}

// styledPath dims the directory part of a display path.
func styledPath(path string) string {
	dir := filepath.Dir(path)
	base := filepath.Base(path)
	if dir == "." || dir == "" {
		return styleFilePath.Render(base)
	}
	return styleFileDir.Render(dir+"/") + styleFilePath.Render(base)
}
