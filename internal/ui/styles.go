package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/samsaffron/term-chat/internal/config"
)

// Status indicators
const (
	SuccessIcon = "✓"
	FailIcon    = "✗"
	CancelIcon  = "⊘"
)

// Theme is the color palette shared by every TUI component.
type Theme struct {
	Primary   lipgloss.Color
	Secondary lipgloss.Color
	Success   lipgloss.Color
	Error     lipgloss.Color
	Muted     lipgloss.Color
	Text      lipgloss.Color
	Border    lipgloss.Color
	UserMsgBg lipgloss.Color
}

func DefaultTheme() Theme {
	return Theme{
		Primary:   lipgloss.Color("4"),
		Secondary: lipgloss.Color("6"),
		Success:   lipgloss.Color("10"),
		Error:     lipgloss.Color("9"),
		Muted:     lipgloss.Color("8"),
		Text:      lipgloss.Color("15"),
		Border:    lipgloss.Color("8"),
		UserMsgBg: lipgloss.Color("236"),
	}
}

// ThemeFromConfig overlays configured colors on the default theme.
func ThemeFromConfig(cfg config.ThemeConfig) Theme {
	theme := DefaultTheme()
	override := func(dst *lipgloss.Color, value string) {
		if value = strings.TrimSpace(value); value != "" {
			*dst = lipgloss.Color(value)
		}
	}
	override(&theme.Primary, cfg.Primary)
	override(&theme.Muted, cfg.Muted)
	override(&theme.Error, cfg.Error)
	override(&theme.Success, cfg.Success)
	return theme
}

// Styles returns styled text helpers bound to a renderer
type Styles struct {
	renderer *lipgloss.Renderer
	theme    Theme

	Title       lipgloss.Style
	Success     lipgloss.Style
	Error       lipgloss.Style
	Muted       lipgloss.Style
	Bold        lipgloss.Style
	Highlighted lipgloss.Style

	UserLabel  lipgloss.Style
	ModelLabel lipgloss.Style
	UserText   lipgloss.Style
	// Selected marks the turn picked for copying.
	Selected   lipgloss.Style
	Unselected lipgloss.Style
	Input      lipgloss.Style
	InputBlur  lipgloss.Style
	Flash      lipgloss.Style
}

// NewStyles creates a new Styles instance for the given output
func NewStyles(output *os.File, theme Theme) *Styles {
	r := lipgloss.NewRenderer(output)

	return &Styles{
		renderer: r,
		theme:    theme,

		Title: r.NewStyle().
			Bold(true).
			Foreground(theme.Primary),

		Success: r.NewStyle().
			Foreground(theme.Success),

		Error: r.NewStyle().
			Foreground(theme.Error),

		Muted: r.NewStyle().
			Foreground(theme.Muted),

		Bold: r.NewStyle().
			Bold(true),

		Highlighted: r.NewStyle().
			Bold(true).
			Foreground(theme.Success),

		UserLabel: r.NewStyle().
			Bold(true).
			Foreground(theme.Primary),

		ModelLabel: r.NewStyle().
			Bold(true).
			Foreground(theme.Secondary),

		UserText: r.NewStyle().
			Background(theme.UserMsgBg),

		Selected: r.NewStyle().
			Border(lipgloss.ThickBorder(), false, false, false, true).
			BorderForeground(theme.Primary).
			PaddingLeft(1),

		Unselected: r.NewStyle().
			PaddingLeft(2),

		Input: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Primary),

		InputBlur: r.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border),

		Flash: r.NewStyle().
			Bold(true).
			Foreground(theme.Success),
	}
}

// DefaultStyles returns styles for stderr (default TUI output)
func DefaultStyles() *Styles {
	return NewStyles(os.Stderr, DefaultTheme())
}

func (s *Styles) Theme() Theme {
	return s.theme
}

// FormatResult returns a styled success/fail result
func (s *Styles) FormatResult(success bool, msg string) string {
	if success {
		return s.Success.Render(SuccessIcon+" ") + msg
	}
	return s.Error.Render(FailIcon+" ") + msg
}

// Truncate shortens s to width terminal cells, keeping escape codes intact.
func Truncate(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(s, width, "…")
}
