package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	totalStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
	nameStyle  = lipgloss.NewStyle().Bold(true)
	infoStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	idStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Faint(true)
	emptyStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("245"))
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// Terminal writes the view as a boxed list for the command line.
func Terminal(w io.Writer, view View) error {
	var b strings.Builder
	b.WriteString(totalStyle.Render(fmt.Sprintf("Total: %d kcal", view.Total)))
	b.WriteString("\n")

	if len(view.Rows) == 0 {
		b.WriteString(emptyStyle.Render("Nothing logged today."))
	}
	for i, row := range view.Rows {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(nameStyle.Render(row.Food))
		b.WriteString("  ")
		b.WriteString(infoStyle.Render(row.Info))
		b.WriteString("  ")
		b.WriteString(idStyle.Render(row.ID))
	}

	_, err := fmt.Fprintln(w, boxStyle.Render(b.String()))
	return err
}
