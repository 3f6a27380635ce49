package render

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used for terminal output.
type Styles struct {
	Header  lipgloss.Style
	ID      lipgloss.Style
	Text    lipgloss.Style
	URL     lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Failure lipgloss.Style
	Box     lipgloss.Style
}

// DefaultStyles returns the colored palette.
func DefaultStyles() Styles {
	border := lipgloss.Color("#5F6368")
	return Styles{
		Header:  lipgloss.NewStyle().Foreground(lipgloss.Color("#8AB4F8")).Bold(true),
		ID:      lipgloss.NewStyle().Foreground(lipgloss.Color("#FBBC04")),
		Text:    lipgloss.NewStyle().Foreground(lipgloss.Color("#E8EAED")),
		URL:     lipgloss.NewStyle().Foreground(lipgloss.Color("#4285F4")).Underline(true),
		Muted:   lipgloss.NewStyle().Foreground(lipgloss.Color("#9AA0A6")),
		Success: lipgloss.NewStyle().Foreground(lipgloss.Color("#34A853")).Bold(true),
		Failure: lipgloss.NewStyle().Foreground(lipgloss.Color("#EA4335")).Bold(true),
		Box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(border).
			Padding(0, 1),
	}
}

// PlainStyles renders without color or borders, for pipes and tests.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Header:  plain,
		ID:      plain,
		Text:    plain,
		URL:     plain,
		Muted:   plain,
		Success: plain,
		Failure: plain,
		Box:     plain,
	}
}
