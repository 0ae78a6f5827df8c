package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/bamsammich/dedup/internal/config"
	"github.com/bamsammich/dedup/internal/engine"
)

// Config configures the interactive selection view.
type Config struct {
	Result engine.Result
	Remove RemoveFunc
	DryRun bool
	Theme  config.ThemeConfig
}

// Run shows the pairs of cfg.Result for selection and blocks until the
// user quits. It returns every removal performed.
func Run(cfg Config) ([]engine.Outcome, error) {
	ApplyTheme(cfg.Theme)
	m := NewModel(cfg.Result, cfg.Remove)
	m.dryRun = cfg.DryRun
	prog := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithoutSignalHandler(),
	)
	finalModel, err := prog.Run()
	if err != nil {
		return nil, err
	}
	return finalModel.(Model).Outcomes(), nil
}
