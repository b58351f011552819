package ui

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles of the editor
type Styles struct {
	Header     lipgloss.Style
	Address    lipgloss.Style
	Axis       lipgloss.Style
	Cell       lipgloss.Style
	Selected   lipgloss.Style
	Editing    lipgloss.Style
	ErrorValue lipgloss.Style
	Status     lipgloss.Style
	StatusErr  lipgloss.Style
	Help       lipgloss.Style
}

// DefaultStyles returns the default color scheme
func DefaultStyles() Styles {
	primary := lipgloss.Color("#7D56F4")
	muted := lipgloss.Color("#6C6C6C")

	return Styles{
		Header: lipgloss.NewStyle().
			Background(primary).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 1),
		Address: lipgloss.NewStyle().
			Foreground(primary).
			Bold(true),
		Axis: lipgloss.NewStyle().
			Foreground(muted),
		Cell: lipgloss.NewStyle(),
		Selected: lipgloss.NewStyle().
			Reverse(true),
		Editing: lipgloss.NewStyle().
			Background(primary).
			Foreground(lipgloss.Color("#ffffff")),
		ErrorValue: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87")),
		Status: lipgloss.NewStyle().
			Foreground(muted),
		StatusErr: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF5F87")).
			Bold(true),
		Help: lipgloss.NewStyle().
			Foreground(muted).
			Italic(true),
	}
}
