package ui

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/taxview/pkg/layout"
	"github.com/vanderheijden86/taxview/pkg/metrics"
	"github.com/vanderheijden86/taxview/pkg/model"
)

// baseIndent is the number of cells per depth level at zoom 1.
const baseIndent = 4

// indentWidth scales the depth indentation with the zoom level.
func indentWidth(k float64) int {
	w := int(math.Round(baseIndent * k))
	if w < 1 {
		return 1
	}
	if w > 12 {
		return 12
	}
	return w
}

// treeLine is one row of the tree pane before styling.
type treeLine struct {
	id      string
	indent  int
	exiting bool
}

// treeLines places the visible nodes into height rows starting at offset.
// While transitions run, rows and indentation follow the interpolated
// layout positions so nodes slide into place.
func (m Model) treeLines(now time.Time, height int) []treeLine {
	v := m.state.View()
	indent := indentWidth(v.Transform().K)
	rows := make([]treeLine, height)

	if !v.Animating(now) {
		for i, id := range v.Window(m.offset, height) {
			n, ok := v.Semantic(id)
			if !ok {
				continue
			}
			rows[i] = treeLine{id: id, indent: n.Depth() * indent}
		}
		return rows
	}

	for _, p := range v.Frame(now) {
		row := int(math.Round(p.Point.X/layout.NodeSpacingX)) - m.offset
		if row < 0 || row >= height {
			continue
		}
		// Settled and entering nodes win a shared row over exiting ones.
		if rows[row].id != "" && p.Phase == layout.PhaseExit {
			continue
		}
		rows[row] = treeLine{
			id:      p.ID,
			indent:  int(math.Round(p.Point.Y / layout.NodeSpacingY * float64(indent))),
			exiting: p.Phase == layout.PhaseExit,
		}
	}
	return rows
}

// renderTree draws the tree pane.
func (m Model) renderTree(width, height int) string {
	start := time.Now()
	defer func() { metrics.LayoutRender.Record(time.Since(start)) }()

	if height <= 0 || width <= 0 {
		return ""
	}
	v := m.state.View()
	if root := v.Root(); root == nil || len(root.Children) == 0 {
		return m.renderEmptyTree(width, height)
	}

	cursorID := m.cursorID()
	var sb strings.Builder
	for i, line := range m.treeLines(m.now(), height) {
		if i > 0 {
			sb.WriteString("\n")
		}
		if line.id == "" {
			continue
		}
		n, ok := v.Semantic(line.id)
		if !ok {
			continue
		}
		sb.WriteString(m.renderNode(n, line, width, line.id == cursorID))
	}
	return sb.String()
}

func (m Model) renderEmptyTree(width, height int) string {
	t := m.theme
	msg := fmt.Sprintf("No clusters at purity ≥ %d%%.", m.state.Threshold())
	hint := "Lower the threshold with ← or {."
	body := t.PrimaryBold.Render(msg) + "\n\n" + t.MutedText.Render(hint)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, body)
}

// renderNode renders one row: indentation, expand indicator, label and a
// kind-specific summary.
func (m Model) renderNode(n *model.Node, line treeLine, width int, isCursor bool) string {
	t := m.theme
	v := m.state.View()
	expanded := v.IsExpanded(n.ID)

	indicator := "•"
	if n.HasChildren() {
		indicator = "▸"
		if expanded {
			indicator = "▾"
		}
	}

	label := n.Name
	if n.Kind == model.KindLeaf {
		label = fmt.Sprintf("%s  %.1f%% (%d)", n.Name, n.Percentage, n.Count)
	}
	meta := nodeMeta(n)

	prefix := strings.Repeat(" ", line.indent) + indicator + " "
	avail := width - len([]rune(prefix)) - 1
	if meta != "" {
		avail -= len([]rune(meta)) + 2
	}
	label = truncate(label, avail)

	labelStyle := t.Renderer.NewStyle().Foreground(t.NodeColor(n, expanded))
	if n.Kind != model.KindLeaf {
		labelStyle = labelStyle.Bold(true)
	}
	if v.Highlight() == n.ID {
		labelStyle = t.Focused
		indicator = "★"
		prefix = strings.Repeat(" ", line.indent) + indicator + " "
	}

	out := prefix + labelStyle.Render(label)
	if meta != "" {
		out += "  " + t.MutedText.Render(meta)
	}
	switch {
	case isCursor:
		out = t.Selected.Width(width).Render(out)
	case line.exiting:
		out = t.MutedText.Faint(true).Render(out)
	}
	return out
}

// nodeMeta is the dim summary printed after a label.
func nodeMeta(n *model.Node) string {
	switch n.Kind {
	case model.KindRoot:
		return fmt.Sprintf("%d categories", len(n.Children))
	case model.KindCategory:
		return fmt.Sprintf("%d clusters · %d items", len(n.Children), n.AggregateSize)
	case model.KindCluster:
		return fmt.Sprintf("%s · %d items", formatPercent(n.Purity), n.Size)
	default:
		return ""
	}
}
