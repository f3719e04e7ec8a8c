package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/huh"
	"golang.org/x/term"
)

// PromptResult is what the interactive export prompt collects.
type PromptResult struct {
	Path   string
	Format Format
	Width  int
	Height int
}

// IsTerminal reports whether stdin is connected to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// newForm creates a form with appropriate settings based on TTY detection.
func newForm(groups ...*huh.Group) *huh.Form {
	form := huh.NewForm(groups...).WithTheme(huh.ThemeDracula())
	if !IsTerminal() {
		form = form.WithAccessible(true)
	}
	return form
}

// Prompt asks for an export path, format and viewport size, starting from
// the given defaults.
func Prompt(dir string, def PromptResult) (PromptResult, error) {
	format := string(def.Format)
	if format == "" {
		format = string(FormatPNG)
	}
	width := strconv.Itoa(def.Width)
	height := strconv.Itoa(def.Height)
	path := def.Path

	form := newForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Export format").
				Options(
					huh.NewOption("PNG image", string(FormatPNG)),
					huh.NewOption("SVG vector", string(FormatSVG)),
				).
				Value(&format),
			huh.NewInput().
				Title("Width (px)").
				Value(&width).
				Validate(positiveInt),
			huh.NewInput().
				Title("Height (px)").
				Value(&height).
				Validate(positiveInt),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Output file").
				Description("Leave empty to write into " + dir).
				Value(&path),
		),
	)
	if err := form.Run(); err != nil {
		return PromptResult{}, err
	}

	res := PromptResult{Format: Format(format)}
	res.Width, _ = strconv.Atoi(strings.TrimSpace(width))
	res.Height, _ = strconv.Atoi(strings.TrimSpace(height))
	res.Path = strings.TrimSpace(path)
	if res.Path == "" {
		res.Path = filepath.Join(dir, DefaultFilename(res.Format, time.Now()))
	}
	return res, nil
}

func positiveInt(s string) error {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n <= 0 {
		return fmt.Errorf("enter a positive number")
	}
	return nil
}
