package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bamsammich/dedup/internal/engine"
	"github.com/bamsammich/dedup/internal/ui"
)

// RemoveFunc deletes the given paths and reports one outcome per path.
type RemoveFunc func(paths []string) []engine.Outcome

// Bubble Tea messages.
type removeResultMsg struct{ outcomes []engine.Outcome }
type saveResultMsg struct {
	path string
	err  error
}

// saveModal manages the text input overlay for saving the report.
type saveModal struct {
	active bool
	input  []rune
	cursor int
}

func (s *saveModal) set(v string) {
	s.input = []rune(v)
	s.cursor = len(s.input)
}

func (s *saveModal) value() string { return string(s.input) }

func (s *saveModal) insertRune(r rune) {
	s.input = append(s.input[:s.cursor], append([]rune{r}, s.input[s.cursor:]...)...)
	s.cursor++
}

func (s *saveModal) backspace() {
	if s.cursor > 0 {
		s.input = append(s.input[:s.cursor-1], s.input[s.cursor:]...)
		s.cursor--
	}
}

func (s *saveModal) deleteChar() {
	if s.cursor < len(s.input) {
		s.input = append(s.input[:s.cursor], s.input[s.cursor+1:]...)
	}
}

func (s *saveModal) moveLeft() {
	if s.cursor > 0 {
		s.cursor--
	}
}

func (s *saveModal) moveRight() {
	if s.cursor < len(s.input) {
		s.cursor++
	}
}

func (s *saveModal) render() string {
	prompt := styleSavePrompt.Render("Save report to: ")
	before := string(s.input[:s.cursor])
	after := string(s.input[s.cursor:])
	cursor := styleSaveInput.Render("█")
	return "  " + prompt + styleSaveInput.Render(before) + cursor + styleSaveInput.Render(after)
}

// preview is the rendered head of the highlighted file.
type preview struct {
	path string
	text string
	err  error
}

// Model is the root Bubble Tea model of the selection view.
type Model struct {
	result engine.Result
	list   listView
	remove RemoveFunc
	dryRun bool // remove only reports what it would do

	preview      preview
	showOriginal bool // preview the original instead of the copy
	width        int
	height       int
	statusMsg    string // transient notification
	confirming   bool   // waiting for y/n before removing
	busy         bool   // removal in progress
	quitting     bool

	outcomes []engine.Outcome // every removal performed so far

	// Save modal.
	save saveModal
}

// NewModel creates a selection model over the pairs of res.
func NewModel(res engine.Result, remove RemoveFunc) Model {
	return Model{
		result: res,
		list:   newListView(res.Pairs, res.Root),
		remove: remove,
		width:  80,
		height: 24,
	}
}

// Outcomes returns every removal performed in the session.
func (m Model) Outcomes() []engine.Outcome { return m.outcomes }

func (m Model) Init() tea.Cmd {
	return m.previewCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case previewMsg:
		// Ignore previews that arrive after the cursor moved on.
		if r, ok := m.list.current(); ok && m.previewPath(r) == msg.path {
			m.preview = preview(msg)
		}
		return m, nil

	case removeResultMsg:
		m.busy = false
		m.outcomes = append(m.outcomes, msg.outcomes...)
		removed, failed := m.list.apply(msg.outcomes)
		verb := "removed"
		if m.dryRun {
			verb = "would remove"
		}
		m.statusMsg = fmt.Sprintf("%s %d", verb, removed)
		if failed > 0 {
			m.statusMsg += fmt.Sprintf(", %d failed: %s", failed, firstFailure(msg.outcomes))
		}
		return m, m.previewCmd()

	case saveResultMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("save failed: %v", msg.err)
		} else {
			m.statusMsg = fmt.Sprintf("saved to %s", msg.path)
		}
		m.save.active = false
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// When save modal is active, capture all input.
	if m.save.active {
		return m.handleSaveKey(msg)
	}
	if m.confirming {
		return m.handleConfirmKey(msg)
	}

	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "j", "down":
		m.list.move(1)
		return m, m.previewCmd()

	case "k", "up":
		m.list.move(-1)
		return m, m.previewCmd()

	case "pgdown", "ctrl+d":
		m.list.move(m.listHeight())
		return m, m.previewCmd()

	case "pgup", "ctrl+u":
		m.list.move(-m.listHeight())
		return m, m.previewCmd()

	case "g", "home":
		m.list.top()
		return m, m.previewCmd()

	case "G", "end":
		m.list.bottom()
		return m, m.previewCmd()

	case " ", "x":
		m.statusMsg = m.list.toggle()
		return m, nil

	case "o", "tab":
		m.showOriginal = !m.showOriginal
		return m, m.previewCmd()

	case "a":
		n := m.list.selectAll()
		m.statusMsg = fmt.Sprintf("selected %d", n)
		return m, nil

	case "n":
		m.list.unselectAll()
		m.statusMsg = "selection cleared"
		return m, nil

	case "d", "enter":
		if m.busy {
			return m, nil
		}
		paths := m.list.selectedPaths()
		if len(paths) == 0 {
			m.statusMsg = "nothing selected"
			return m, nil
		}
		m.confirming = true
		m.statusMsg = ""
		return m, nil

	case "s":
		m.save.active = true
		m.save.set("dedup-report.json")
		if id := m.result.ScanID; len(id) >= 8 {
			m.save.set(fmt.Sprintf("dedup-%s.json", id[:8]))
		}
		m.statusMsg = ""
		return m, nil
	}

	return m, nil
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		m.confirming = false
		if m.remove == nil {
			m.statusMsg = "removal not available"
			return m, nil
		}
		paths := m.list.selectedPaths()
		m.busy = true
		m.statusMsg = fmt.Sprintf("removing %d files...", len(paths))
		remove := m.remove
		return m, func() tea.Msg {
			return removeResultMsg{outcomes: remove(paths)}
		}

	case "n", "N", "esc", "q":
		m.confirming = false
		m.statusMsg = "delete cancelled"
		return m, nil
	}
	return m, nil
}

func (m Model) handleSaveKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEscape:
		m.save.active = false
		m.statusMsg = ""
		return m, nil

	case tea.KeyEnter:
		return m, m.writeReport(m.save.value())

	case tea.KeyBackspace:
		m.save.backspace()
		return m, nil

	case tea.KeyDelete:
		m.save.deleteChar()
		return m, nil

	case tea.KeyLeft:
		m.save.moveLeft()
		return m, nil

	case tea.KeyRight:
		m.save.moveRight()
		return m, nil

	case tea.KeyRunes, tea.KeySpace:
		for _, r := range msg.Runes {
			m.save.insertRune(r)
		}
		return m, nil
	}

	return m, nil
}

func (m Model) writeReport(path string) tea.Cmd {
	rep := ui.NewReport(m.result)
	return func() tea.Msg {
		return saveResultMsg{path: path, err: ui.WriteReportFile(path, rep)}
	}
}

func (m Model) previewCmd() tea.Cmd {
	r, ok := m.list.current()
	if !ok {
		return nil
	}
	return loadPreview(m.previewPath(r))
}

// previewPath is the file shown in the preview pane for r.
func (m Model) previewPath(r row) string {
	if m.showOriginal {
		return r.pair.Original
	}
	return r.pair.Path
}

func (m Model) listHeight() int {
	return max(m.height-3, 3) // header (1) + footer (1) + status (1)
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	// Header (1 line).
	b.WriteString(m.renderHeader())
	b.WriteByte('\n')

	// Content area: list, plus a preview pane when there is room.
	height := m.listHeight()
	listWidth := m.width
	if m.width >= 60 {
		listWidth = m.width * 3 / 5
	}
	list := m.list.view(listWidth, height)
	if listWidth < m.width {
		pane := m.renderPreview(m.width-listWidth-2, height)
		list = lipgloss.JoinHorizontal(lipgloss.Top,
			lipgloss.NewStyle().Width(listWidth).Render(strings.TrimRight(list, "\n")),
			pane,
		)
		list += "\n"
	}
	b.WriteString(list)

	// Save modal, confirmation or status message.
	switch {
	case m.save.active:
		b.WriteString(m.save.render())
	case m.confirming:
		b.WriteString(styleConfirm.Render(fmt.Sprintf("  delete %d files (%s)? y/n",
			len(m.list.selectedPaths()), ui.FormatBytes(m.list.selectedSize()))))
	case m.statusMsg != "":
		b.WriteString(styleStatus.Render("  " + m.statusMsg))
	}
	b.WriteByte('\n')

	// Footer.
	b.WriteString(m.renderFooter())

	return b.String()
}

func (m Model) renderHeader() string {
	selected := m.list.selectedPaths()
	header := fmt.Sprintf("  %s  %s pairs  %s selected (%s)  reclaimable %s",
		styleHeaderLabel.Render("dedup"),
		styleBigNumber.Render(ui.FormatCount(int64(len(m.list.rows)))),
		ui.FormatCount(int64(len(selected))),
		ui.FormatBytes(m.list.selectedSize()),
		ui.FormatBytes(m.result.Stats.BytesReclaimable),
	)
	return styleHeader.Render(header)
}

func (m Model) renderPreview(width, height int) string {
	width = max(width, 10)
	inner := width - 1 // left padding
	r, ok := m.list.current()
	if !ok {
		return stylePreview.Width(width).Height(height).Render("")
	}

	label, other := "original ", r.pair.Original
	if m.showOriginal {
		label, other = "copy ", r.pair.Path
	}
	var b strings.Builder
	b.WriteString(styleOriginal.Render(label + ui.TruncateLeft(ui.StripRoot(m.result.Root, other), inner-len(label))))
	b.WriteByte('\n')
	b.WriteString(styleDivider.Render(strings.Repeat("─", inner)))
	b.WriteByte('\n')

	body := height - 2
	switch {
	case m.preview.path != m.previewPath(r):
		b.WriteString(styleFileSize.Render("loading..."))
	case m.preview.err != nil:
		b.WriteString(styleError.Render(clipLines(m.preview.err.Error(), inner, body)))
	default:
		b.WriteString(stylePreviewText.Render(clipLines(m.preview.text, inner, body)))
	}
	if r.err != "" {
		b.WriteByte('\n')
		b.WriteString(styleError.Render(clipLines(r.err, inner, 2)))
	}

	return stylePreview.Width(width).MaxHeight(height).Render(b.String())
}

func (m Model) renderFooter() string {
	type keybind struct {
		key   string
		label string
	}

	binds := []keybind{
		{"space", "toggle"},
		{"a", "all"},
		{"n", "none"},
		{"d", "delete"},
		{"s", "save"},
		{"o", "swap preview"},
		{"j/k", "move"},
		{"q", "quit"},
	}
	if m.confirming {
		binds = []keybind{{"y", "confirm"}, {"n", "cancel"}}
	}

	var parts []string
	for _, kb := range binds {
		parts = append(parts,
			styleKeybindKey.Render(kb.key)+" "+styleKeybindLabel.Render(kb.label))
	}

	return "  " + strings.Join(parts, "   ")
}

func firstFailure(outcomes []engine.Outcome) string {
	for _, o := range outcomes {
		if !o.OK() {
			return o.Err.Error()
		}
	}
	return ""
}
