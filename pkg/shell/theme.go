package shell

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// ColourMode is the colour scheme of the interactive interface.
type ColourMode int

// Possible values of ColourMode.
const (
	Dark ColourMode = iota
	Light
)

// ParseColourMode parses the colour-mode setting. An empty string means Dark.
// For invalid values, it returns Dark along with an error.
func ParseColourMode(s string) (ColourMode, error) {
	switch s {
	case "", "dark":
		return Dark, nil
	case "light":
		return Light, nil
	}
	return Dark, fmt.Errorf("invalid colour mode %q, want light or dark", s)
}

func (m ColourMode) String() string {
	if m == Light {
		return "light"
	}
	return "dark"
}

// Toggle returns the other colour mode.
func (m ColourMode) Toggle() ColourMode {
	if m == Light {
		return Dark
	}
	return Light
}

type theme struct {
	prompt   lipgloss.Style
	preview  lipgloss.Style
	expr     lipgloss.Style
	result   lipgloss.Style
	selected lipgloss.Style
	errText  lipgloss.Style
	status   lipgloss.Style
}

func themeFor(m ColourMode) theme {
	fg, dim, accent, bad := lipgloss.Color("252"), lipgloss.Color("244"), lipgloss.Color("86"), lipgloss.Color("203")
	if m == Light {
		fg, dim, accent, bad = lipgloss.Color("235"), lipgloss.Color("242"), lipgloss.Color("25"), lipgloss.Color("160")
	}
	return theme{
		prompt:   lipgloss.NewStyle().Foreground(accent).Bold(true),
		preview:  lipgloss.NewStyle().Foreground(dim),
		expr:     lipgloss.NewStyle().Foreground(fg),
		result:   lipgloss.NewStyle().Foreground(accent),
		selected: lipgloss.NewStyle().Reverse(true),
		errText:  lipgloss.NewStyle().Foreground(bad),
		status:   lipgloss.NewStyle().Foreground(dim).Italic(true),
	}
}
