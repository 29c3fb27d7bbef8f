package explorer

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
)

// Run starts the explorer and blocks until the user quits
func Run(o Options) error {
	if !isatty() {
		return fmt.Errorf("not running in a terminal, use the query command instead")
	}

	m, err := New(o)
	if err != nil {
		return err
	}
	defer m.Close()

	// Hover needs motion events without a button held
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseAllMotion(),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}

// isatty checks if we're running in a terminal
func isatty() bool {
	fileInfo, _ := os.Stdout.Stat()
	return fileInfo != nil && (fileInfo.Mode()&os.ModeCharDevice) != 0
}
