package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// MarkdownRenderer renders the details pane. The underlying glamour
// renderer is rebuilt when the width changes.
type MarkdownRenderer struct {
	width    int
	renderer *glamour.TermRenderer
}

// NewMarkdownRenderer creates a renderer wrapping at width cells.
func NewMarkdownRenderer(width int) *MarkdownRenderer {
	m := &MarkdownRenderer{}
	m.SetWidth(width)
	return m
}

// SetWidth changes the wrap width.
func (m *MarkdownRenderer) SetWidth(width int) {
	if width < 20 {
		width = 20
	}
	if width == m.width && m.renderer != nil {
		return
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		m.renderer = nil
		return
	}
	m.width = width
	m.renderer = r
}

// Render converts markdown to styled terminal output. Without a renderer
// the source is returned unchanged.
func (m *MarkdownRenderer) Render(md string) (string, error) {
	if m.renderer == nil {
		return md, nil
	}
	out, err := m.renderer.Render(md)
	if err != nil {
		return "", err
	}
	// glamour pads with blank lines
	return strings.Trim(out, "\n"), nil
}
