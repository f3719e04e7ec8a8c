package ui

import (
	"os"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/taxview/pkg/model"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeBg returns the given hex color for TrueColor terminals and
// lipgloss.NoColor{} otherwise, so 16/256-color terminals keep their own
// background.
func ThemeBg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.TrueColor {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(hex)
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

// Node palette shared with the image export.
const (
	hexRoot              = "#2563eb"
	hexCategoryOpen      = "#10b981"
	hexCategoryCollapsed = "#059669"
	hexPurityHigh        = "#10b981"
	hexPurityMid         = "#f59e0b"
	hexPurityLow         = "#ef4444"
	hexLeaf              = "#6b7280"
	hexHighlight         = "#facc15"
)

type Theme struct {
	Renderer *lipgloss.Renderer

	// Colors
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor
	Success   lipgloss.AdaptiveColor
	Danger    lipgloss.AdaptiveColor

	// UI Elements
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor

	// Styles
	Base     lipgloss.Style
	Selected lipgloss.Style
	Header   lipgloss.Style
	Pane     lipgloss.Style

	// Pre-computed styles, created once instead of per frame
	MutedText   lipgloss.Style
	PrimaryBold lipgloss.Style
	Focused     lipgloss.Style // search highlight
	StatusOK    lipgloss.Style
	StatusErr   lipgloss.Style
	KeyHint     lipgloss.Style
	BarHigh     lipgloss.Style
	BarLow      lipgloss.Style
}

// DefaultTheme returns the standard Dracula-inspired theme (adaptive)
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}, // Purple
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"}, // Gray
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"}, // Dim
		Success:   lipgloss.AdaptiveColor{Light: "#007700", Dark: "#50FA7B"},
		Danger:    lipgloss.AdaptiveColor{Light: "#CC0000", Dark: "#FF5555"},

		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Muted:     lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"})

	t.Selected = r.NewStyle().
		Background(t.Highlight).
		Bold(true)

	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)

	t.Pane = r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border)

	t.MutedText = r.NewStyle().Foreground(t.Muted)
	t.PrimaryBold = r.NewStyle().Foreground(t.Primary).Bold(true)
	t.Focused = r.NewStyle().Foreground(ThemeFg(hexHighlight)).Bold(true)
	t.StatusOK = r.NewStyle().Foreground(t.Success).Bold(true).Padding(0, 1)
	t.StatusErr = r.NewStyle().Foreground(t.Danger).Bold(true).Padding(0, 1)
	t.KeyHint = r.NewStyle().Foreground(t.Subtext)
	t.BarHigh = r.NewStyle().Foreground(ThemeFg(hexPurityHigh))
	t.BarLow = r.NewStyle().Foreground(t.Secondary)

	return t
}

// NodeColor returns the label color for n. Collapsed categories are
// darker, clusters are colored by purity.
func (t Theme) NodeColor(n *model.Node, expanded bool) lipgloss.TerminalColor {
	if n == nil {
		return t.Subtext
	}
	switch n.Kind {
	case model.KindRoot:
		return ThemeFg(hexRoot)
	case model.KindCategory:
		if expanded {
			return ThemeFg(hexCategoryOpen)
		}
		return ThemeFg(hexCategoryCollapsed)
	case model.KindCluster:
		return PurityColor(n.Purity)
	default:
		return ThemeFg(hexLeaf)
	}
}

// PurityColor maps a purity fraction to green, amber or red.
func PurityColor(p float64) lipgloss.TerminalColor {
	switch {
	case p > 0.9:
		return ThemeFg(hexPurityHigh)
	case p > 0.8:
		return ThemeFg(hexPurityMid)
	default:
		return ThemeFg(hexPurityLow)
	}
}

// TestTheme returns a theme suitable for use in tests.
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
