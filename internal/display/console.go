package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5B8DEF")).
			Padding(0, 1)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	textStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC"))
)

// Console renders the panel as a bordered box on a terminal.
type Console struct {
	w io.Writer
}

// NewConsole returns a Console writing to w.
func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Render writes one framed panel.
func (c *Console) Render(lines Lines) error {
	rows := make([]string, len(lines))
	for i, line := range lines {
		style := textStyle
		if i == 0 {
			style = statusStyle
		}
		rows[i] = style.Render(fit(line))
	}
	if _, err := fmt.Fprintln(c.w, panelStyle.Render(strings.Join(rows, "\n"))); err != nil {
		return fmt.Errorf("console render: %w", err)
	}
	return nil
}

// Close is a no-op.
func (c *Console) Close() error {
	return nil
}
