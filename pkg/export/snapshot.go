// Package export rasterizes (PNG) or vectorizes (SVG) the current diagram
// view.
package export

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"github.com/disintegration/imaging"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/taxview/pkg/debug"
	"github.com/vanderheijden86/taxview/pkg/layout"
	"github.com/vanderheijden86/taxview/pkg/metrics"
	"github.com/vanderheijden86/taxview/pkg/model"
)

// Format is an output encoding.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

var (
	// ErrNothingToExport is returned when the view has no visible nodes.
	ErrNothingToExport = errors.New("nothing to export")
	// ErrUnsupportedFormat is returned for formats other than png and svg.
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

const (
	nodeW       = 180.0
	nodeH       = 30.0
	labelRunes  = 25
	headerH     = 64.0
	minLabelK   = 0.5
	supersample = 2
)

// Options controls a single export.
type Options struct {
	// Path is the output file for Save. Format is inferred from its
	// extension when Format is empty.
	Path   string
	Format string
	Dir    string // used when Path is empty
	Scene  Scene
	// Header lines are drawn in a band across the top.
	Header     []string
	Background color.Color
}

// ResolveFormat picks the output format from an explicit value or the
// path extension, defaulting to PNG.
func ResolveFormat(format, path string) (Format, error) {
	f := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(format), "."))
	if f == "" {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".svg":
			f = string(FormatSVG)
		default:
			f = string(FormatPNG)
		}
	}
	switch Format(f) {
	case FormatPNG, FormatSVG:
		return Format(f), nil
	default:
		return "", fmt.Errorf("%w %q (want png or svg)", ErrUnsupportedFormat, f)
	}
}

// DefaultFilename names an export taken at t.
func DefaultFilename(f Format, t time.Time) string {
	return fmt.Sprintf("taxonomy_%s.%s", t.Format("20060102_150405"), f)
}

// Render encodes the scene and returns the bytes.
func Render(opts Options) ([]byte, Format, error) {
	defer metrics.Timer(metrics.Export)()

	format, err := ResolveFormat(opts.Format, opts.Path)
	if err != nil {
		return nil, "", err
	}
	if len(opts.Scene.Nodes) == 0 {
		return nil, format, ErrNothingToExport
	}
	if opts.Scene.Width <= 0 || opts.Scene.Height <= 0 {
		return nil, format, fmt.Errorf("invalid viewport %dx%d", opts.Scene.Width, opts.Scene.Height)
	}

	var buf bytes.Buffer
	switch format {
	case FormatPNG:
		err = renderPNG(&buf, opts)
	case FormatSVG:
		err = renderSVG(&buf, opts)
	}
	if err != nil {
		return nil, format, fmt.Errorf("encoding %s: %w", format, err)
	}
	return buf.Bytes(), format, nil
}

// Save renders and writes the export, returning the path written. With an
// empty Path the file goes into Dir under DefaultFilename.
func Save(opts Options) (string, error) {
	data, format, err := Render(opts)
	if err != nil {
		return "", err
	}
	path := opts.Path
	if path == "" {
		path = filepath.Join(opts.Dir, DefaultFilename(format, time.Now()))
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("create parent dir: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	debug.Log("export: wrote %s (%d bytes)", path, len(data))
	return path, nil
}

// --- colors ------------------------------------------------------------------

var (
	colorBackdrop  = color.RGBA{0x11, 0x18, 0x27, 0xff}
	colorHeaderBG  = color.RGBA{0x1f, 0x29, 0x37, 0xff}
	colorRoot      = color.RGBA{0x25, 0x63, 0xeb, 0xff}
	colorCatClosed = color.RGBA{0x05, 0x96, 0x69, 0xff}
	colorCatOpen   = color.RGBA{0x10, 0xb9, 0x81, 0xff}
	colorPure      = color.RGBA{0x10, 0xb9, 0x81, 0xff}
	colorMixed     = color.RGBA{0xf5, 0x9e, 0x0b, 0xff}
	colorImpure    = color.RGBA{0xef, 0x44, 0x44, 0xff}
	colorLeaf      = color.RGBA{0x6b, 0x72, 0x80, 0xff}
	colorStroke    = color.RGBA{0xff, 0xff, 0xff, 0xff}
	colorHighlight = color.RGBA{0xfa, 0xcc, 0x15, 0xff}
	colorLink      = color.RGBA{0x55, 0x5f, 0x6d, 0xff}
	colorText      = color.RGBA{0xff, 0xff, 0xff, 0xff}
	colorSubtle    = color.RGBA{0x9c, 0xa3, 0xaf, 0xff}
)

// NodeColor is the fill for a node: blue root, green categories (darker
// when collapsed), clusters banded by purity and grey leaves.
func NodeColor(n SceneNode) color.RGBA {
	switch n.Kind {
	case model.KindRoot:
		return colorRoot
	case model.KindCategory:
		if n.Collapsed {
			return colorCatClosed
		}
		return colorCatOpen
	case model.KindCluster:
		switch {
		case n.Purity > 0.9:
			return colorPure
		case n.Purity > 0.8:
			return colorMixed
		default:
			return colorImpure
		}
	default:
		return colorLeaf
	}
}

func opaque(c color.Color) color.NRGBA {
	if c == nil {
		c = colorBackdrop
	}
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = 0xff
	return n
}

// --- PNG ---------------------------------------------------------------------

// renderPNG draws at supersample resolution with gg, then resizes to the
// viewport and flattens onto an opaque canvas with imaging.
func renderPNG(w io.Writer, opts Options) error {
	s := opts.Scene
	bg := opaque(opts.Background)

	dc := gg.NewContext(s.Width*supersample, s.Height*supersample)
	dc.Scale(supersample, supersample)
	dc.SetColor(bg)
	dc.Clear()
	dc.SetFontFace(basicfont.Face7x13)

	pos := positions(s)

	dc.Push()
	dc.Translate(s.Transform.TX, s.Transform.TY+headerOffset(opts))
	dc.Scale(s.Transform.K, s.Transform.K)

	dc.SetColor(colorLink)
	dc.SetLineWidth(1.5)
	for _, n := range s.Nodes {
		parent, ok := pos[n.ParentID]
		if !ok {
			continue
		}
		x0, y0 := parent.x+nodeW, parent.y
		x1, y1 := pos[n.ID].x, pos[n.ID].y
		mx := (x0 + x1) / 2
		dc.MoveTo(x0, y0)
		dc.CubicTo(mx, y0, mx, y1, x1, y1)
		dc.Stroke()
	}

	for _, n := range s.Nodes {
		p := pos[n.ID]
		dc.SetColor(NodeColor(n))
		dc.DrawRoundedRectangle(p.x, p.y-nodeH/2, nodeW, nodeH, 6)
		dc.Fill()
		if n.ID == s.Highlight {
			dc.SetColor(colorHighlight)
			dc.SetLineWidth(4)
		} else {
			dc.SetColor(colorStroke)
			dc.SetLineWidth(1)
		}
		dc.DrawRoundedRectangle(p.x, p.y-nodeH/2, nodeW, nodeH, 6)
		dc.Stroke()
		if s.Transform.K >= minLabelK {
			dc.SetColor(colorText)
			dc.DrawStringAnchored(truncate(n.Label, labelRunes), p.x+10, p.y, 0, 0.35)
		}
	}
	dc.Pop()

	drawHeader(dc, s.Width, opts.Header)

	fitted := imaging.Resize(dc.Image(), s.Width, s.Height, imaging.Lanczos)
	canvas := imaging.New(s.Width, s.Height, bg)
	flat := imaging.Overlay(canvas, fitted, image.Pt(0, 0), 1.0)
	return imaging.Encode(w, flat, imaging.PNG)
}

func drawHeader(dc *gg.Context, width int, lines []string) {
	if len(lines) == 0 {
		return
	}
	dc.SetColor(colorHeaderBG)
	dc.DrawRoundedRectangle(8, 8, float64(width)-16, headerH-16, 8)
	dc.Fill()
	for i, line := range lines {
		if i == 0 {
			dc.SetColor(colorText)
		} else {
			dc.SetColor(colorSubtle)
		}
		dc.DrawStringAnchored(line, 20, 22+float64(i)*16, 0, 0.5)
	}
}

// --- SVG ---------------------------------------------------------------------

func renderSVG(w io.Writer, opts Options) error {
	s := opts.Scene
	bg := opaque(opts.Background)
	pos := positions(s)

	canvas := svg.New(w)
	canvas.Start(s.Width, s.Height)
	canvas.Rect(0, 0, s.Width, s.Height, fmt.Sprintf("fill:%s", css(bg)))

	canvas.Gtransform(fmt.Sprintf("translate(%.2f,%.2f) scale(%.4f)", s.Transform.TX, s.Transform.TY+headerOffset(opts), s.Transform.K))
	for _, n := range s.Nodes {
		parent, ok := pos[n.ParentID]
		if !ok {
			continue
		}
		x0, y0 := parent.x+nodeW, parent.y
		x1, y1 := pos[n.ID].x, pos[n.ID].y
		mx := (x0 + x1) / 2
		canvas.Path(fmt.Sprintf("M %.1f %.1f C %.1f %.1f, %.1f %.1f, %.1f %.1f", x0, y0, mx, y0, mx, y1, x1, y1),
			fmt.Sprintf("fill:none;stroke:%s;stroke-width:1.5", css(colorLink)))
	}
	for _, n := range s.Nodes {
		p := pos[n.ID]
		stroke, width := colorStroke, 1
		if n.ID == s.Highlight {
			stroke, width = colorHighlight, 4
		}
		x, y := int(p.x), int(p.y-nodeH/2)
		canvas.Roundrect(x, y, int(nodeW), int(nodeH), 6, 6,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:%d", css(NodeColor(n)), css(stroke), width))
		canvas.Text(x+10, int(p.y)+4, truncate(n.Label, labelRunes),
			fmt.Sprintf("fill:%s;font-size:11px;font-family:sans-serif", css(colorText)))
	}
	canvas.Gend()

	if len(opts.Header) > 0 {
		canvas.Roundrect(8, 8, s.Width-16, int(headerH-16), 8, 8, fmt.Sprintf("fill:%s", css(colorHeaderBG)))
		for i, line := range opts.Header {
			c := colorSubtle
			if i == 0 {
				c = colorText
			}
			canvas.Text(20, 26+i*16, line, fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(c)))
		}
	}

	canvas.End()
	return nil
}

// --- helpers -----------------------------------------------------------------

// headerOffset pushes the diagram below the header band.
func headerOffset(opts Options) float64 {
	if len(opts.Header) == 0 {
		return 0
	}
	return headerH
}

type xy struct{ x, y float64 }

// positions maps node ids to pre-transform drawing coordinates: x across
// depths, y down rows, both offset by layout.Origin.
func positions(s Scene) map[string]xy {
	out := make(map[string]xy, len(s.Nodes))
	for _, n := range s.Nodes {
		out[n.ID] = xy{x: n.Pos.Y + layout.Origin.Y, y: n.Pos.X + layout.Origin.X}
	}
	return out
}

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.Color) string {
	r, g, b, _ := c.RGBA()
	return fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8)
}
