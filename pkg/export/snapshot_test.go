package export

import (
	"bytes"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/vanderheijden86/taxview/pkg/layout"
	"github.com/vanderheijden86/taxview/pkg/model"
	"github.com/vanderheijden86/taxview/pkg/taxonomy"
	"github.com/vanderheijden86/taxview/pkg/testutil"
)

func scenarioScene(t *testing.T, width, height float64) Scene {
	t.Helper()
	v := layout.New(width, height)
	v.Render(taxonomy.BuildTree(testutil.ScenarioClusters(), testutil.ScenarioRich(), 0))
	v.Toggle("cat:A")
	v.Focus("cluster:1")
	return SceneFromView(v)
}

func TestSceneFromView(t *testing.T) {
	s := scenarioScene(t, 800, 600)

	if len(s.Nodes) != 5 {
		t.Fatalf("expected 5 visible nodes, got %d", len(s.Nodes))
	}
	if s.Highlight != "cluster:1" || s.Width != 800 || s.Height != 600 {
		t.Errorf("scene header = %q %dx%d", s.Highlight, s.Width, s.Height)
	}
	byID := map[string]SceneNode{}
	for _, n := range s.Nodes {
		byID[n.ID] = n
	}
	if !byID["cat:B"].Collapsed || byID["cat:A"].Collapsed {
		t.Errorf("collapsed flags wrong: A=%v B=%v", byID["cat:A"].Collapsed, byID["cat:B"].Collapsed)
	}
	if byID["cluster:1"].ParentID != "cat:A" {
		t.Errorf("parent id = %q", byID["cluster:1"].ParentID)
	}
}

func TestRender_PNGMatchesViewport(t *testing.T) {
	s := scenarioScene(t, 640, 360)
	data, format, err := Render(Options{Scene: s, Header: []string{"Taxonomy", "data_hash: abc"}})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if format != FormatPNG {
		t.Errorf("default format = %s", format)
	}

	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 640 || b.Dy() != 360 {
		t.Errorf("PNG is %dx%d, want 640x360", b.Dx(), b.Dy())
	}
	_, _, _, a := img.At(639, 359).RGBA()
	if a != 0xffff {
		t.Errorf("background should be opaque, alpha = %#x", a)
	}
}

func TestRender_SVG(t *testing.T) {
	s := scenarioScene(t, 640, 360)
	data, format, err := Render(Options{Scene: s, Format: "SVG"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if format != FormatSVG {
		t.Errorf("format = %s", format)
	}
	out := string(data)
	for _, want := range []string{"<svg", "Cluster 1", "#facc15", "scale(1.5000)"} {
		if !strings.Contains(out, want) {
			t.Errorf("svg missing %q", want)
		}
	}
}

func TestRender_Errors(t *testing.T) {
	_, _, err := Render(Options{Scene: Scene{Width: 10, Height: 10}})
	if !errors.Is(err, ErrNothingToExport) {
		t.Errorf("empty scene: got %v", err)
	}

	s := scenarioScene(t, 100, 100)
	_, _, err = Render(Options{Scene: s, Format: "gif"})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("gif: got %v", err)
	}

	s.Width = 0
	if _, _, err = Render(Options{Scene: s}); err == nil {
		t.Error("zero viewport should fail")
	}
}

func TestResolveFormat(t *testing.T) {
	tests := []struct {
		format, path string
		want         Format
	}{
		{"", "view.svg", FormatSVG},
		{"", "view.PNG", FormatPNG},
		{"", "", FormatPNG},
		{".svg", "view.png", FormatSVG},
	}
	for _, tt := range tests {
		got, err := ResolveFormat(tt.format, tt.path)
		if err != nil || got != tt.want {
			t.Errorf("ResolveFormat(%q,%q) = %s, %v", tt.format, tt.path, got, err)
		}
	}
}

func TestSave_IntoDirAndExplicitPath(t *testing.T) {
	dir := t.TempDir()
	s := scenarioScene(t, 320, 200)

	path, err := Save(Options{Scene: s, Dir: filepath.Join(dir, "exports")})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if filepath.Dir(path) != filepath.Join(dir, "exports") || !strings.HasSuffix(path, ".png") {
		t.Errorf("unexpected path %s", path)
	}

	explicit := filepath.Join(dir, "nested", "view.svg")
	path, err = Save(Options{Scene: s, Path: explicit})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 || path != explicit {
		t.Errorf("explicit save failed: %s %v", path, err)
	}
}

func TestSave_SurfacesWriteErrors(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := Save(Options{Scene: scenarioScene(t, 100, 100), Path: filepath.Join(blocker, "view.png")})
	if err == nil {
		t.Fatal("writing below a regular file should fail")
	}
}

func TestNodeColor(t *testing.T) {
	cases := []struct {
		n    SceneNode
		want string
	}{
		{SceneNode{Kind: model.KindRoot}, "#2563eb"},
		{SceneNode{Kind: model.KindCategory, Collapsed: true}, "#059669"},
		{SceneNode{Kind: model.KindCategory}, "#10b981"},
		{SceneNode{Kind: model.KindCluster, Purity: 0.95}, "#10b981"},
		{SceneNode{Kind: model.KindCluster, Purity: 0.85}, "#f59e0b"},
		{SceneNode{Kind: model.KindCluster, Purity: 0.5}, "#ef4444"},
		{SceneNode{Kind: model.KindLeaf}, "#6b7280"},
	}
	for _, c := range cases {
		if got := css(NodeColor(c.n)); got != c.want {
			t.Errorf("NodeColor(%+v) = %s, want %s", c.n, got, c.want)
		}
	}
}

func TestDefaultFilename(t *testing.T) {
	ts := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	if got := DefaultFilename(FormatSVG, ts); got != "taxonomy_20250304_050607.svg" {
		t.Errorf("DefaultFilename = %s", got)
	}
}

func TestTruncate(t *testing.T) {
	long := "Consumer Electronics Accessories"
	if got := truncate(long, 25); got != "Consumer Electronics A..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("short", 25); got != "short" {
		t.Errorf("truncate short = %q", got)
	}
}
