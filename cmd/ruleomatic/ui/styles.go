// Package ui renders rule reports for the terminal: the one-shot search
// report, the inspect dossier and the interactive rule browser.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Semantic colors, shared by both themes.
var (
	Destructive = lipgloss.Color("#e53935") // mismatch, shadowed
	Success     = lipgloss.Color("#8BC34A") // ok, active
	Warning     = lipgloss.Color("#FFC107") // nice values
	Info        = lipgloss.Color("#2196F3") // categories
	Latency     = lipgloss.Color("#ba68c8") // latency hints
)

// Theme holds the current color scheme.
type Theme struct {
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme.
func LightTheme() Theme {
	return Theme{
		Foreground: lipgloss.Color("#101F38"),
		Primary:    lipgloss.Color("#101F38"),
		Accent:     lipgloss.Color("#00838f"),
		Muted:      lipgloss.Color("#6b7280"),
		Border:     lipgloss.Color("#dce0e5"),
	}
}

// DarkTheme returns the dark mode theme.
func DarkTheme() Theme {
	return Theme{
		Foreground: lipgloss.Color("#f2f2f2"),
		Primary:    lipgloss.Color("#8BC34A"),
		Accent:     lipgloss.Color("#4dd0e1"),
		Muted:      lipgloss.Color("#8a94a6"),
		Border:     lipgloss.Color("#2a3850"),
		IsDark:     true,
	}
}

// DetectTheme picks a theme from COLORFGBG, then RULEOMATIC_DARK_MODE,
// defaulting to light.
func DetectTheme() Theme {
	// COLORFGBG is "foreground;background"; background 0-6 or 8 is dark.
	if parts := strings.Split(os.Getenv("COLORFGBG"), ";"); len(parts) == 2 {
		if bg, err := strconv.Atoi(parts[1]); err == nil && ((bg >= 0 && bg <= 6) || bg == 8) {
			return DarkTheme()
		}
	}
	if os.Getenv("RULEOMATIC_DARK_MODE") == "1" {
		return DarkTheme()
	}
	return LightTheme()
}

// Styles holds all the styled components.
type Styles struct {
	Theme Theme

	// Layout
	Header lipgloss.Style
	Footer lipgloss.Style
	Table  lipgloss.Style
	Detail lipgloss.Style

	// Text
	Title    lipgloss.Style
	Muted    lipgloss.Style
	Italic   lipgloss.Style
	Category lipgloss.Style
	Name     lipgloss.Style
	Value    lipgloss.Style

	// Rule fields
	Nice    lipgloss.Style
	Latency lipgloss.Style

	// Status
	Active   lipgloss.Style
	Shadowed lipgloss.Style
	OK       lipgloss.Style
	Mismatch lipgloss.Style
	Error    lipgloss.Style
	Badge    lipgloss.Style
}

// NewStyles creates a new Styles instance with the given theme.
func NewStyles(theme Theme) Styles {
	return Styles{
		Theme: theme,

		Header: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true).
			Padding(0, 1),

		Footer: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Padding(0, 1),

		Table: lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(theme.Border),

		Detail: lipgloss.NewStyle().
			Padding(0, 1).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Accent),

		Title: lipgloss.NewStyle().
			Foreground(theme.Primary).
			Bold(true),

		Muted: lipgloss.NewStyle().
			Foreground(theme.Muted),

		Italic: lipgloss.NewStyle().
			Foreground(theme.Muted).
			Italic(true),

		Category: lipgloss.NewStyle().
			Foreground(Info),

		Name: lipgloss.NewStyle().
			Foreground(theme.Accent).
			Bold(true),

		Value: lipgloss.NewStyle().
			Foreground(theme.Foreground),

		Nice: lipgloss.NewStyle().
			Foreground(Warning),

		Latency: lipgloss.NewStyle().
			Foreground(Latency),

		Active: lipgloss.NewStyle().
			Foreground(Success).
			Bold(true),

		Shadowed: lipgloss.NewStyle().
			Foreground(Destructive),

		OK: lipgloss.NewStyle().
			Foreground(Success),

		Mismatch: lipgloss.NewStyle().
			Foreground(Destructive).
			Bold(true),

		Error: lipgloss.NewStyle().
			Foreground(Destructive).
			Bold(true),

		Badge: lipgloss.NewStyle().
			Background(theme.Accent).
			Foreground(lipgloss.Color("#ffffff")).
			Padding(0, 1).
			Bold(true),
	}
}

// DefaultStyles returns styles for the detected theme.
func DefaultStyles() Styles {
	return NewStyles(DetectTheme())
}

// PlainStyles returns styles that add no formatting, for piped output.
func PlainStyles() Styles {
	plain := lipgloss.NewStyle()
	return Styles{
		Theme:    LightTheme(),
		Header:   plain,
		Footer:   plain,
		Table:    plain,
		Detail:   plain,
		Title:    plain,
		Muted:    plain,
		Italic:   plain,
		Category: plain,
		Name:     plain,
		Value:    plain,
		Nice:     plain,
		Latency:  plain,
		Active:   plain,
		Shadowed: plain,
		OK:       plain,
		Mismatch: plain,
		Error:    plain,
		Badge:    plain,
	}
}
