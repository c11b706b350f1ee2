// Package styles provides colour themes and styling for the TUI.
package styles

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme defines the colour palette of the TUI.
type Theme struct {
	Primary lipgloss.Color
	Muted   lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
}

// DefaultTheme returns the xkit palette.
func DefaultTheme() *Theme {
	return &Theme{
		Primary: lipgloss.Color("#6675FF"), // Indigo
		Muted:   lipgloss.Color("#7B8088"), // Gray
		Success: lipgloss.Color("#A6E3A1"), // Green
		Error:   lipgloss.Color("#F38BA8"), // Red
	}
}

// Styles contains pre-configured lipgloss styles.
type Styles struct {
	// Title style for the view header.
	Title lipgloss.Style

	// Active marks the step in progress.
	Active lipgloss.Style

	// Pending marks steps not reached yet.
	Pending lipgloss.Style

	// Done marks completed steps.
	Done lipgloss.Style

	// Error style for failures.
	Error lipgloss.Style

	// Help style for the key hints.
	Help lipgloss.Style
}

// NewStyles creates styles from a theme.
func NewStyles(theme *Theme) *Styles {
	if theme == nil {
		theme = DefaultTheme()
	}

	return &Styles{
		Title:   lipgloss.NewStyle().Bold(true).Foreground(theme.Primary).MarginBottom(1),
		Active:  lipgloss.NewStyle().Bold(true),
		Pending: lipgloss.NewStyle().Foreground(theme.Muted),
		Done:    lipgloss.NewStyle().Foreground(theme.Success),
		Error:   lipgloss.NewStyle().Foreground(theme.Error),
		Help:    lipgloss.NewStyle().Foreground(theme.Muted).MarginTop(1),
	}
}

// DefaultStyles returns styles for the default theme.
func DefaultStyles() *Styles {
	return NewStyles(nil)
}
