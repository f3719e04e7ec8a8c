package layout

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/vanderheijden86/taxview/pkg/taxonomy"
	"github.com/vanderheijden86/taxview/pkg/testutil"
)

func newTestView(t *testing.T) (*View, *time.Time) {
	t.Helper()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	v := New(1600, 900)
	v.SetClock(func() time.Time { return now })
	return v, &now
}

func TestRender_CollapsedBelowRoot(t *testing.T) {
	v, _ := newTestView(t)
	root := taxonomy.BuildTree(testutil.ScenarioClusters(), testutil.ScenarioRich(), 0)

	res := v.Render(root)

	want := []string{"root", "cat:A", "cat:B"}
	if !reflect.DeepEqual(v.Visible(), want) {
		t.Fatalf("visible = %v, want %v", v.Visible(), want)
	}
	if !reflect.DeepEqual(res.Entered, want) {
		t.Errorf("first render should enter every visible node, got %v", res.Entered)
	}
	if v.IsExpanded("cat:A") || !v.IsExpanded("root") {
		t.Errorf("only the root should start expanded")
	}

	p, _ := v.Position("cat:B")
	if p.X != 2*NodeSpacingX || p.Y != NodeSpacingY {
		t.Errorf("cat:B at %+v, want row 2 depth 1", p)
	}
}

func TestToggle_ShowsAndHidesChildren(t *testing.T) {
	v, _ := newTestView(t)
	v.Render(taxonomy.BuildTree(testutil.ScenarioClusters(), nil, 0))

	res, ok := v.Toggle("cat:A")
	if !ok {
		t.Fatal("toggle on a category should succeed")
	}
	want := []string{"root", "cat:A", "cluster:1", "cluster:2", "cat:B"}
	if !reflect.DeepEqual(v.Visible(), want) {
		t.Fatalf("visible = %v, want %v", v.Visible(), want)
	}
	if !reflect.DeepEqual(res.Entered, []string{"cluster:1", "cluster:2"}) {
		t.Errorf("entered = %v", res.Entered)
	}

	// Entering nodes start at the anchor's previous position.
	anchorPrev := Point{X: NodeSpacingX, Y: NodeSpacingY}
	for _, tr := range res.Transitions {
		if tr.Phase == PhaseEnter && tr.From != anchorPrev {
			t.Errorf("%s enters from %+v, want %+v", tr.ID, tr.From, anchorPrev)
		}
	}

	res, _ = v.Toggle("cat:A")
	if !reflect.DeepEqual(res.Exited, []string{"cluster:1", "cluster:2"}) {
		t.Errorf("exited = %v", res.Exited)
	}
	for _, tr := range res.Transitions {
		if tr.Phase == PhaseExit && tr.To != anchorPrev {
			t.Errorf("%s exits to %+v, want anchor %+v", tr.ID, tr.To, anchorPrev)
		}
	}
}

func TestToggle_UnknownAndLeafAreNoOps(t *testing.T) {
	v, _ := newTestView(t)
	v.Render(taxonomy.BuildTree(testutil.ScenarioClusters(), nil, 0))
	before := append([]string(nil), v.Visible()...)

	if _, ok := v.Toggle("cat:nope"); ok {
		t.Error("unknown id should be a no-op")
	}
	if _, ok := v.Toggle("cluster:2"); ok {
		t.Error("childless cluster should be a no-op")
	}
	if !reflect.DeepEqual(v.Visible(), before) {
		t.Errorf("visible changed: %v", v.Visible())
	}
}

func TestReset_RecollapsesOnRebuild(t *testing.T) {
	v, _ := newTestView(t)
	clusters := testutil.ScenarioClusters()
	v.Render(taxonomy.BuildTree(clusters, nil, 0))
	v.Toggle("cat:A")
	v.Toggle("cat:B")

	v.Reset()
	res := v.Render(taxonomy.BuildTree(clusters, nil, 0.8))

	if !reflect.DeepEqual(v.Visible(), []string{"root", "cat:A", "cat:B"}) {
		t.Errorf("visible after rebuild = %v", v.Visible())
	}
	if !reflect.DeepEqual(res.Exited, []string{"cluster:1", "cluster:2", "cluster:3"}) {
		t.Errorf("previously shown clusters should exit, got %v", res.Exited)
	}
}

func TestRender_PrunesRemovedNodes(t *testing.T) {
	v, _ := newTestView(t)
	clusters := testutil.ScenarioClusters()
	v.Render(taxonomy.BuildTree(clusters, nil, 0))
	v.Toggle("cat:A")

	v.Render(taxonomy.BuildTree(clusters, nil, 0.97))
	if _, ok := v.Node("cat:A"); ok {
		t.Error("view state for a vanished category should be dropped")
	}
	if !reflect.DeepEqual(v.Visible(), []string{"root", "cat:B"}) {
		t.Errorf("visible = %v", v.Visible())
	}
}

func TestExpandPath(t *testing.T) {
	v, _ := newTestView(t)
	v.Render(taxonomy.BuildTree(testutil.ScenarioClusters(), testutil.ScenarioRich(), 0))

	res, ok := v.ExpandPath("leaf:1:1")
	if !ok {
		t.Fatal("ExpandPath on a known leaf should succeed")
	}
	if res.Anchor != "cat:A" {
		t.Errorf("anchor = %s, want cat:A", res.Anchor)
	}
	if !v.IsVisible("leaf:1:1") {
		t.Error("leaf should be visible after expanding its path")
	}
	if _, ok := v.ExpandPath("cluster:99"); ok {
		t.Error("unknown id should report false")
	}
}

func TestFrame_Interpolates(t *testing.T) {
	v, now := newTestView(t)
	v.Render(taxonomy.BuildTree(testutil.ScenarioClusters(), nil, 0))
	start := *now
	v.Toggle("cat:A")

	mid := v.Frame(start.Add(Duration / 2))
	if !v.Animating(start.Add(Duration / 2)) {
		t.Error("should be animating halfway through")
	}
	var c2 Placement
	for _, p := range mid {
		if p.ID == "cluster:2" {
			c2 = p
		}
	}
	// Halfway through cubic in-out is exactly 0.5.
	wantX := NodeSpacingX + (3*NodeSpacingX-NodeSpacingX)*0.5
	if math.Abs(c2.X-wantX) > 1e-9 {
		t.Errorf("cluster:2 midway X = %v, want %v", c2.X, wantX)
	}

	end := v.Frame(start.Add(Duration))
	if v.Animating(start.Add(Duration)) {
		t.Error("animation should be finished")
	}
	if len(end) != len(v.Visible()) {
		t.Errorf("final frame has %d placements, want %d", len(end), len(v.Visible()))
	}
	for i, p := range end {
		if p.ID != v.Visible()[i] {
			t.Errorf("final frame order %d = %s, want %s", i, p.ID, v.Visible()[i])
		}
	}
}

func TestFrame_DropsExitedWhenDone(t *testing.T) {
	v, now := newTestView(t)
	v.Render(taxonomy.BuildTree(testutil.ScenarioClusters(), nil, 0))
	v.Toggle("cat:A")
	v.Toggle("cat:A")

	during := v.Frame(now.Add(Duration / 4))
	if len(during) != 5 {
		t.Errorf("exiting nodes should still be drawn mid-animation, got %d", len(during))
	}
	after := v.Frame(now.Add(2 * Duration))
	if len(after) != 3 {
		t.Errorf("exited nodes should be gone after the animation, got %d", len(after))
	}
}

func TestWindow(t *testing.T) {
	v, _ := newTestView(t)
	v.Render(taxonomy.BuildTree(testutil.ScenarioClusters(), nil, 0))
	v.Toggle("cat:A")

	if got := v.Window(1, 2); !reflect.DeepEqual(got, []string{"cat:A", "cluster:1"}) {
		t.Errorf("Window(1,2) = %v", got)
	}
	if got := v.Window(4, 10); !reflect.DeepEqual(got, []string{"cat:B"}) {
		t.Errorf("Window past end = %v", got)
	}
	if got := v.Window(10, 2); got != nil {
		t.Errorf("Window beyond rows = %v", got)
	}
}
