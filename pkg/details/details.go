// Package details produces the content of the details panel for a
// selected node. Describe is pure; Markdown and PlainText format its
// result for the glamour-rendered pane and the clipboard.
package details

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/vanderheijden86/taxview/pkg/model"
)

const (
	// Placeholder is shown when nothing describable is selected.
	Placeholder = "Select a Category or Cluster to view details."
	// NoBreakdown is shown for clusters without breakdown data.
	NoBreakdown = "No breakdown details available."
	// CategorySubtitle labels category content.
	CategorySubtitle = "Category Group"
	// BreakdownHeading introduces the breakdown list.
	BreakdownHeading = "Top Categories in Cluster"
)

// Entry is one breakdown line with its visual weight.
type Entry struct {
	Name       string
	Percentage float64
	Count      int
	// Weight is Percentage/100 clamped to [0,1]; it drives bar length.
	Weight float64
}

// Content is the display model of the details panel.
type Content struct {
	Kind     model.Kind
	Empty    bool // true when showing the placeholder
	Title    string
	Subtitle string
	Fields   []Field
	Heading  string
	Entries  []Entry
	Notice   string
}

// Field is a labelled value line.
type Field struct {
	Label string
	Value string
}

// Describe builds panel content for n. A nil node or the root yields the
// placeholder.
func Describe(n *model.Node) Content {
	if n == nil {
		return placeholder()
	}
	switch n.Kind {
	case model.KindCluster:
		return describeCluster(n)
	case model.KindCategory:
		return Content{
			Kind:     model.KindCategory,
			Title:    n.Name,
			Subtitle: CategorySubtitle,
			Fields: []Field{
				{Label: "Clusters", Value: fmt.Sprintf("Contains %d Clusters.", len(n.Children))},
				{Label: "Total size", Value: fmt.Sprintf("%d", n.AggregateSize)},
			},
		}
	case model.KindLeaf:
		c := placeholder()
		c.Kind = model.KindLeaf
		c.Title = n.Name
		c.Fields = []Field{
			{Label: "Share", Value: formatPercent(n.Percentage)},
			{Label: "Count", Value: fmt.Sprintf("%d", n.Count)},
		}
		return c
	default:
		return placeholder()
	}
}

func placeholder() Content {
	return Content{Kind: model.KindRoot, Empty: true, Notice: Placeholder}
}

func describeCluster(n *model.Node) Content {
	c := Content{
		Kind:  model.KindCluster,
		Title: fmt.Sprintf("Cluster #%d", n.ClusterID),
		Fields: []Field{
			{Label: "Purity", Value: formatPercent(n.Purity * 100)},
			{Label: "Size", Value: fmt.Sprintf("%d", n.Size)},
		},
		Heading: BreakdownHeading,
	}
	if n.Parent != nil && n.Parent.Kind == model.KindCategory {
		c.Subtitle = n.Parent.Name
	}

	for _, leaf := range n.Children {
		if leaf.Kind != model.KindLeaf {
			continue
		}
		c.Entries = append(c.Entries, Entry{
			Name:       leaf.Name,
			Percentage: leaf.Percentage,
			Count:      leaf.Count,
			Weight:     Weight(leaf.Percentage),
		})
	}
	sort.SliceStable(c.Entries, func(i, j int) bool {
		return c.Entries[i].Percentage > c.Entries[j].Percentage
	})
	if len(c.Entries) == 0 {
		c.Notice = NoBreakdown
	}
	return c
}

// Weight maps a percentage to a monotonic visual weight in [0,1].
func Weight(pct float64) float64 {
	if math.IsNaN(pct) {
		return 0
	}
	return math.Min(1, math.Max(0, pct/100))
}

func formatPercent(p float64) string {
	return fmt.Sprintf("%.1f%%", p)
}

// Bar renders a weight as a fixed-width text bar.
func Bar(weight float64, width int) string {
	if width <= 0 {
		return ""
	}
	filled := int(math.Round(Weight(weight*100) * float64(width)))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// Markdown formats content for the glamour renderer.
func Markdown(c Content) string {
	var sb strings.Builder
	if c.Title != "" {
		fmt.Fprintf(&sb, "## %s\n\n", c.Title)
	}
	if c.Subtitle != "" {
		fmt.Fprintf(&sb, "*%s*\n\n", c.Subtitle)
	}
	for _, f := range c.Fields {
		fmt.Fprintf(&sb, "- **%s:** %s\n", f.Label, f.Value)
	}
	if len(c.Fields) > 0 {
		sb.WriteString("\n")
	}
	if c.Heading != "" {
		fmt.Fprintf(&sb, "### %s\n\n", c.Heading)
	}
	if len(c.Entries) > 0 {
		sb.WriteString("| Name | Count | Share | |\n|---|---:|---:|---|\n")
		for _, e := range c.Entries {
			fmt.Fprintf(&sb, "| %s | %d | %s | `%s` |\n",
				escapeCell(e.Name), e.Count, formatPercent(e.Percentage), Bar(e.Weight, 10))
		}
		sb.WriteString("\n")
	}
	if c.Notice != "" {
		fmt.Fprintf(&sb, "_%s_\n", c.Notice)
	}
	return sb.String()
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}

// PlainText formats content for the clipboard.
func PlainText(c Content) string {
	var lines []string
	if c.Title != "" {
		lines = append(lines, c.Title)
	}
	if c.Subtitle != "" {
		lines = append(lines, c.Subtitle)
	}
	for _, f := range c.Fields {
		lines = append(lines, f.Label+": "+f.Value)
	}
	if len(c.Entries) > 0 {
		lines = append(lines, "", c.Heading)
		for _, e := range c.Entries {
			lines = append(lines, fmt.Sprintf("  %s\t%d\t%s", e.Name, e.Count, formatPercent(e.Percentage)))
		}
	}
	if c.Notice != "" {
		lines = append(lines, c.Notice)
	}
	return strings.Join(lines, "\n")
}
