package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
)

// TermProfile is the color profile of stdout, detected once.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeFg returns hex on 256-color terminals and above, ANSI white below.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

// ThemeBg returns hex on TrueColor terminals only.
func ThemeBg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.TrueColor {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(hex)
}

type Theme struct {
	Renderer *lipgloss.Renderer

	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor
	Error     lipgloss.AdaptiveColor
	Success   lipgloss.AdaptiveColor

	// Node kinds, keyed by the _type attribute.
	Event    lipgloss.AdaptiveColor
	Entity   lipgloss.AdaptiveColor
	Relation lipgloss.AdaptiveColor
	Outlink  lipgloss.AdaptiveColor
	Gate     lipgloss.AdaptiveColor

	Base      lipgloss.Style
	Header    lipgloss.Style
	Edge      lipgloss.Style
	Cursor    lipgloss.Style
	Removed   lipgloss.Style
	StatusOK  lipgloss.Style
	StatusErr lipgloss.Style
	HelpText  lipgloss.Style
}

// DefaultTheme returns the Dracula-inspired adaptive theme.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"},
		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Muted:     lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
		Error:     lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"},
		Success:   lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"},

		Event:    lipgloss.AdaptiveColor{Light: "#B06800", Dark: "#FFB86C"},
		Entity:   lipgloss.AdaptiveColor{Light: "#2684FF", Dark: "#4C9AFF"},
		Relation: lipgloss.AdaptiveColor{Light: "#36B37E", Dark: "#57D9A3"},
		Outlink:  lipgloss.AdaptiveColor{Light: "#006080", Dark: "#8BE9FD"},
		Gate:     lipgloss.AdaptiveColor{Light: "#CC0077", Dark: "#FF79C6"},
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"})
	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)
	t.Edge = r.NewStyle().Foreground(t.Secondary)
	t.Cursor = r.NewStyle().Background(ThemeBg("#44475A")).Foreground(ThemeFg("#BD93F9")).Bold(true).Reverse(TermProfile < colorprofile.TrueColor)
	t.Removed = r.NewStyle().Foreground(t.Muted).Strikethrough(true)
	t.StatusOK = r.NewStyle().Foreground(t.Success)
	t.StatusErr = r.NewStyle().Foreground(t.Error).Bold(true)
	t.HelpText = r.NewStyle().Foreground(t.Subtext).Italic(true)
	return t
}

// KindColor returns the colour for a node _type.
func (t Theme) KindColor(kind string) lipgloss.AdaptiveColor {
	switch kind {
	case "event":
		return t.Event
	case "entity":
		return t.Entity
	case "relation":
		return t.Relation
	case "outlink":
		return t.Outlink
	case "gate":
		return t.Gate
	default:
		return t.Subtext
	}
}

// ShapeGlyph returns the single-cell glyph drawn in front of a node label.
func ShapeGlyph(shape string) string {
	switch shape {
	case "diamond":
		return "◆"
	case "rectangle":
		return "■"
	case "roundrectangle":
		return "▢"
	case "triangle":
		return "▲"
	case "hexagon":
		return "⬢"
	default:
		return "●"
	}
}

// TestTheme returns a theme suitable for use in tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
