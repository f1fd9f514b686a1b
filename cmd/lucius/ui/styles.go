// Package ui provides the visual styling for the Lucius chat interface.
package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Dark mode colors (default)
	DarkBackground = lipgloss.Color("#14141f")
	DarkForeground = lipgloss.Color("#e6e6f0")
	DarkPrimary    = lipgloss.Color("#7aa2f7") // Blue
	DarkAccent     = lipgloss.Color("#9ece6a") // Green
	DarkMuted      = lipgloss.Color("#565f89")
	DarkBorder     = lipgloss.Color("#3b4261")

	// Light mode colors
	LightBackground = lipgloss.Color("#f5f5fa")
	LightForeground = lipgloss.Color("#24283b")
	LightPrimary    = lipgloss.Color("#2e5cb8")
	LightAccent     = lipgloss.Color("#4d7a1f")
	LightMuted      = lipgloss.Color("#9699a8")
	LightBorder     = lipgloss.Color("#c8cbd8")

	// Semantic colors (same in both modes)
	Destructive = lipgloss.Color("#f7768e") // Red
	Warning     = lipgloss.Color("#e0af68") // Yellow
	Success     = lipgloss.Color("#9ece6a") // Green
)

// Theme holds the current color scheme.
type Theme struct {
	Background lipgloss.Color
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	IsDark     bool
}

// DarkTheme returns the dark mode theme.
func DarkTheme() Theme {
	return Theme{
		Background: DarkBackground,
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		IsDark:     true,
	}
}

// LightTheme returns the light mode theme.
func LightTheme() Theme {
	return Theme{
		Background: LightBackground,
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Muted:      LightMuted,
		Border:     LightBorder,
		IsDark:     false,
	}
}

// DetectTheme picks a theme from the LUCIUS_THEME env var, defaulting to dark.
func DetectTheme() Theme {
	if strings.EqualFold(os.Getenv("LUCIUS_THEME"), "light") {
		return LightTheme()
	}
	return DarkTheme()
}

// Styles bundles the lipgloss styles the chat view uses.
type Styles struct {
	Theme Theme

	Header    lipgloss.Style
	Footer    lipgloss.Style
	UserLabel lipgloss.Style
	BotLabel  lipgloss.Style
	ToolLine  lipgloss.Style
	Muted     lipgloss.Style
	Error     lipgloss.Style
	Online    lipgloss.Style
	Offline   lipgloss.Style
	Selected  lipgloss.Style
	Dialog    lipgloss.Style
}

// NewStyles builds the style set for a theme.
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Primary).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(theme.Border),
		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(theme.Border),
		UserLabel: lipgloss.NewStyle().Bold(true).Foreground(theme.Primary),
		BotLabel:  lipgloss.NewStyle().Bold(true).Foreground(theme.Accent),
		ToolLine:  lipgloss.NewStyle().Foreground(theme.Muted).Italic(true),
		Muted:     lipgloss.NewStyle().Foreground(theme.Muted),
		Error:     lipgloss.NewStyle().Foreground(Destructive),
		Online:    lipgloss.NewStyle().Foreground(Success),
		Offline:   lipgloss.NewStyle().Foreground(Destructive),
		Selected:  lipgloss.NewStyle().Bold(true).Foreground(theme.Accent),
		Dialog: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(Warning).
			Padding(1, 2),
	}
}
