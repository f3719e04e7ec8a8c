package ui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/taxview/pkg/stats"
)

// truncateRunesHelper truncates a string to max visual width (cells), adding suffix if needed.
// Uses go-runewidth to handle wide characters correctly.
func truncateRunesHelper(s string, maxWidth int, suffix string) string {
	if maxWidth <= 0 {
		return ""
	}

	width := runewidth.StringWidth(s)
	if width <= maxWidth {
		return s
	}

	suffixWidth := runewidth.StringWidth(suffix)
	if suffixWidth > maxWidth {
		return runewidth.Truncate(suffix, maxWidth, "")
	}

	targetWidth := maxWidth - suffixWidth
	return runewidth.Truncate(s, targetWidth, "") + suffix
}

// truncate truncates string s to maxWidth cells with an ellipsis.
func truncate(s string, maxWidth int) string {
	return truncateRunesHelper(s, maxWidth, "…")
}

// padRight pads s with spaces to the given cell width.
func padRight(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

// formatPercent renders a fraction as "95.0%".
func formatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

var sparkLevels = []rune("▁▂▃▄▅▆▇█")

// sparkline draws one cell per histogram bin, scaled to the tallest bin.
// Empty bins render as a space.
func sparkline(h stats.Histogram) []string {
	out := make([]string, len(h))
	max := h.Max()
	for i, c := range h {
		if c == 0 || max == 0 {
			out[i] = " "
			continue
		}
		lvl := c * (len(sparkLevels) - 1) / max
		out[i] = string(sparkLevels[lvl])
	}
	return out
}

// sliderBar draws the purity threshold as a fixed-width gauge.
func sliderBar(value, max, width int) string {
	if width <= 0 || max <= 0 {
		return ""
	}
	filled := value * width / max
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("━", filled) + "●" + strings.Repeat("─", width-filled)
}
