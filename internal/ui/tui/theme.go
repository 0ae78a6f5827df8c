package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/bamsammich/dedup/internal/config"
)

// Catppuccin Mocha palette. Mutable so config can override it.
var (
	ColorGreen  = lipgloss.Color("#a6e3a1")
	ColorBlue   = lipgloss.Color("#89b4fa")
	ColorYellow = lipgloss.Color("#f9e2af")
	ColorRed    = lipgloss.Color("#f38ba8")
	ColorTeal   = lipgloss.Color("#94e2d5")
	ColorMauve  = lipgloss.Color("#cba6f7")
	ColorMuted  = lipgloss.Color("#5a6278")
	ColorDim    = lipgloss.Color("#3a4055")
	ColorBright = lipgloss.Color("#cdd6f4")
)

// Pre-built styles, rebuilt by rebuildStyles() after color changes.
var (
	styleHeader       lipgloss.Style
	styleHeaderLabel  lipgloss.Style
	styleDivider      lipgloss.Style
	styleCursor       lipgloss.Style
	styleChecked      lipgloss.Style
	styleUnchecked    lipgloss.Style
	styleRemoved      lipgloss.Style
	styleSameInode    lipgloss.Style
	styleIconFailed   lipgloss.Style
	styleFilePath     lipgloss.Style
	styleFileDir      lipgloss.Style
	styleFileSize     lipgloss.Style
	styleOriginal     lipgloss.Style
	styleError        lipgloss.Style
	styleKeybindKey   lipgloss.Style
	styleKeybindLabel lipgloss.Style
	styleBigNumber    lipgloss.Style
	styleStatus       lipgloss.Style
	styleConfirm      lipgloss.Style
	styleSavePrompt   lipgloss.Style
	styleSaveInput    lipgloss.Style
	stylePreview      lipgloss.Style
	stylePreviewText  lipgloss.Style
)

func init() {
	rebuildStyles()
}

// rebuildStyles reconstructs all lipgloss styles from the current color vars.
func rebuildStyles() {
	styleHeader = lipgloss.NewStyle().Bold(true).Foreground(ColorBright)
	styleHeaderLabel = lipgloss.NewStyle().Bold(true).Foreground(ColorMauve)
	styleDivider = lipgloss.NewStyle().Foreground(ColorDim)
	styleCursor = lipgloss.NewStyle().Foreground(ColorMauve).Bold(true)
	styleChecked = lipgloss.NewStyle().Foreground(ColorGreen).Bold(true)
	styleUnchecked = lipgloss.NewStyle().Foreground(ColorMuted)
	styleRemoved = lipgloss.NewStyle().Foreground(ColorDim).Strikethrough(true)
	styleSameInode = lipgloss.NewStyle().Foreground(ColorTeal)
	styleIconFailed = lipgloss.NewStyle().Foreground(ColorRed)
	styleFilePath = lipgloss.NewStyle().Foreground(ColorBright)
	styleFileDir = lipgloss.NewStyle().Foreground(ColorMuted)
	styleFileSize = lipgloss.NewStyle().Foreground(ColorMuted)
	styleOriginal = lipgloss.NewStyle().Foreground(ColorBlue)
	styleError = lipgloss.NewStyle().Foreground(ColorRed)
	styleKeybindKey = lipgloss.NewStyle().Foreground(ColorMauve).Bold(true)
	styleKeybindLabel = lipgloss.NewStyle().Foreground(ColorMuted)
	styleBigNumber = lipgloss.NewStyle().Bold(true).Foreground(ColorGreen)
	styleStatus = lipgloss.NewStyle().Foreground(ColorYellow).Italic(true)
	styleConfirm = lipgloss.NewStyle().Foreground(ColorRed).Bold(true)
	styleSavePrompt = lipgloss.NewStyle().Foreground(ColorMuted)
	styleSaveInput = lipgloss.NewStyle().Foreground(ColorBright)
	stylePreview = lipgloss.NewStyle().
		Border(lipgloss.NormalBorder(), false, false, false, true).
		BorderForeground(ColorDim).
		PaddingLeft(1)
	stylePreviewText = lipgloss.NewStyle().Foreground(ColorBright)
}

// ApplyTheme overrides colors from a config ThemeConfig and rebuilds all styles.
func ApplyTheme(tc config.ThemeConfig) {
	set := func(dst *lipgloss.Color, v *string) {
		if v != nil {
			*dst = lipgloss.Color(*v)
		}
	}
	set(&ColorGreen, tc.Green)
	set(&ColorBlue, tc.Blue)
	set(&ColorYellow, tc.Yellow)
	set(&ColorRed, tc.Red)
	set(&ColorTeal, tc.Teal)
	set(&ColorMauve, tc.Mauve)
	set(&ColorMuted, tc.Muted)
	set(&ColorDim, tc.Dim)
	set(&ColorBright, tc.Bright)
	rebuildStyles()
}
