package output

import (
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Styles holds the lipgloss styles used in text mode.
type Styles struct {
	Header1 lipgloss.Style
	Header2 lipgloss.Style
	Bold    lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
	Info    lipgloss.Style
	Table   lipgloss.Style
	Column  lipgloss.Style
}

// NewStyles builds styles bound to w. Without a terminal every style
// renders plain text.
func NewStyles(w io.Writer, isTTY bool) *Styles {
	re := lipgloss.NewRenderer(w)
	if !isTTY {
		re.SetColorProfile(termenv.Ascii)
	}

	return &Styles{
		Header1: re.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Header2: re.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		Bold:    re.NewStyle().Bold(true),
		Muted:   re.NewStyle().Foreground(lipgloss.Color("8")),
		Success: re.NewStyle().Foreground(lipgloss.Color("2")),
		Warning: re.NewStyle().Foreground(lipgloss.Color("3")),
		Error:   re.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		Info:    re.NewStyle().Foreground(lipgloss.Color("4")),
		Table:   re.NewStyle().Foreground(lipgloss.Color("13")),
		Column:  re.NewStyle().Foreground(lipgloss.Color("6")),
	}
}
