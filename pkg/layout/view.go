// Package layout owns the view-state tree that sits beside the semantic
// taxonomy tree. It keeps per-node expand state and cached positions keyed
// by node ID, reconciles them against each new semantic tree, and produces
// enter/update/exit transitions for animation.
//
// Coordinates follow the horizontal tree convention: X grows down the rows
// and Y grows across depths.
package layout

import (
	"math"
	"sort"
	"time"

	"github.com/vanderheijden86/taxview/pkg/debug"
	"github.com/vanderheijden86/taxview/pkg/metrics"
	"github.com/vanderheijden86/taxview/pkg/model"
)

const (
	// NodeSpacingX separates consecutive rows.
	NodeSpacingX = 40.0
	// NodeSpacingY separates depth levels.
	NodeSpacingY = 200.0
	// Duration is the length of every transition.
	Duration = 250 * time.Millisecond
)

// ViewNode is the transient UI state of one node.
type ViewNode struct {
	ID       string
	Expanded bool
	// X, Y is the position from the latest render. PrevX, PrevY is where
	// the node was before it (the animation start).
	X, Y         float64
	PrevX, PrevY float64
	Depth        int
	Row          int
	Children     []string
}

// Phase classifies a transition.
type Phase int

const (
	PhaseEnter Phase = iota
	PhaseUpdate
	PhaseExit
)

func (p Phase) String() string {
	switch p {
	case PhaseEnter:
		return "enter"
	case PhaseUpdate:
		return "update"
	case PhaseExit:
		return "exit"
	default:
		return "unknown"
	}
}

// Point is a layout coordinate.
type Point struct{ X, Y float64 }

// Transition moves one node between two layout positions.
type Transition struct {
	ID       string
	Phase    Phase
	From, To Point
}

// RenderResult describes what a render changed.
type RenderResult struct {
	Anchor      string
	Entered     []string
	Updated     []string
	Exited      []string
	Transitions []Transition
}

// View is the explicit view-state tree. It is not safe for concurrent use;
// the UI loop owns it.
type View struct {
	nodes map[string]*ViewNode
	tree  map[string]*model.Node
	root  *model.Node

	visible  []string
	onScreen map[string]Point

	transitions []Transition
	started     time.Time
	now         func() time.Time

	width, height float64
	transform     Transform
	highlight     string
}

// New returns an empty view for a viewport of the given pixel size.
func New(width, height float64) *View {
	return &View{
		nodes:     make(map[string]*ViewNode),
		onScreen:  make(map[string]Point),
		now:       time.Now,
		width:     width,
		height:    height,
		transform: Identity(),
	}
}

// SetClock replaces the time source used to stamp transitions.
func (v *View) SetClock(now func() time.Time) { v.now = now }

// SetViewport updates the viewport size used by Focus and zoom.
func (v *View) SetViewport(width, height float64) {
	v.width, v.height = width, height
}

// Viewport returns the viewport size.
func (v *View) Viewport() (width, height float64) { return v.width, v.height }

// Reset drops all expand state so the next Render collapses everything
// below the root. On-screen positions are kept so the old nodes can
// animate out.
func (v *View) Reset() {
	v.nodes = make(map[string]*ViewNode)
	v.highlight = ""
}

// Render reconciles root against the view state and lays out the visible
// nodes, animating from the root.
func (v *View) Render(root *model.Node) RenderResult {
	v.root = root
	v.tree = model.Index(root)
	for id := range v.nodes {
		if _, ok := v.tree[id]; !ok {
			delete(v.nodes, id)
		}
	}
	model.Walk(root, func(n *model.Node) bool {
		v.ensure(n)
		return true
	})
	if v.highlight != "" {
		if _, ok := v.tree[v.highlight]; !ok {
			v.highlight = ""
		}
	}
	return v.render(model.RootID)
}

// Toggle swaps the expanded state of a node with children and re-renders
// with that node as the anchor. Unknown or childless ids are a no-op.
func (v *View) Toggle(id string) (RenderResult, bool) {
	n, ok := v.tree[id]
	if !ok || !n.HasChildren() {
		return RenderResult{}, false
	}
	vn := v.nodes[id]
	vn.Expanded = !vn.Expanded
	debug.Log("layout: toggle %s expanded=%v", id, vn.Expanded)
	return v.render(id), true
}

// ExpandPath expands every ancestor of id and re-renders anchored on the
// outermost ancestor that changed. It reports false for unknown ids.
func (v *View) ExpandPath(id string) (RenderResult, bool) {
	n, ok := v.tree[id]
	if !ok {
		return RenderResult{}, false
	}
	anchor := ""
	for _, a := range n.Ancestors() {
		vn := v.nodes[a.ID]
		if !vn.Expanded {
			vn.Expanded = true
			if anchor == "" {
				anchor = a.ID
			}
		}
	}
	if anchor == "" {
		return RenderResult{Anchor: id}, true
	}
	return v.render(anchor), true
}

func (v *View) render(anchorID string) RenderResult {
	defer metrics.Timer(metrics.LayoutRender)()

	prevOrder := v.visible
	prevPos := v.onScreen

	order, pos := v.layout()

	anchorNew := pos[anchorID]
	anchorPrev, had := prevPos[anchorID]
	if !had {
		anchorPrev = anchorNew
	}

	res := RenderResult{Anchor: anchorID}
	for _, id := range order {
		to := pos[id]
		vn := v.nodes[id]
		if from, ok := prevPos[id]; ok {
			res.Updated = append(res.Updated, id)
			res.Transitions = append(res.Transitions, Transition{ID: id, Phase: PhaseUpdate, From: from, To: to})
			vn.PrevX, vn.PrevY = from.X, from.Y
		} else {
			res.Entered = append(res.Entered, id)
			res.Transitions = append(res.Transitions, Transition{ID: id, Phase: PhaseEnter, From: anchorPrev, To: to})
			vn.PrevX, vn.PrevY = anchorPrev.X, anchorPrev.Y
		}
		vn.X, vn.Y = to.X, to.Y
	}
	for _, id := range prevOrder {
		if _, still := pos[id]; still {
			continue
		}
		res.Exited = append(res.Exited, id)
		res.Transitions = append(res.Transitions, Transition{ID: id, Phase: PhaseExit, From: prevPos[id], To: anchorNew})
	}

	v.visible = order
	v.onScreen = pos
	v.transitions = res.Transitions
	v.started = v.now()

	debug.Log("layout: render anchor=%s enter=%d update=%d exit=%d",
		anchorID, len(res.Entered), len(res.Updated), len(res.Exited))
	return res
}

// layout walks the semantic tree in pre-order, skipping collapsed
// subtrees, and assigns row/depth coordinates.
func (v *View) layout() ([]string, map[string]Point) {
	var order []string
	pos := make(map[string]Point)
	row := 0
	model.Walk(v.root, func(n *model.Node) bool {
		vn := v.nodes[n.ID]
		depth := n.Depth()
		p := Point{X: float64(row) * NodeSpacingX, Y: float64(depth) * NodeSpacingY}
		vn.Depth, vn.Row = depth, row
		order = append(order, n.ID)
		pos[n.ID] = p
		row++
		return vn.Expanded
	})
	return order, pos
}

// ensure creates view state for nodes seen for the first time: collapsed,
// except the root.
func (v *View) ensure(n *model.Node) *ViewNode {
	vn, ok := v.nodes[n.ID]
	if !ok {
		vn = &ViewNode{ID: n.ID, Expanded: n.Kind == model.KindRoot}
		v.nodes[n.ID] = vn
	}
	vn.Children = vn.Children[:0]
	for _, c := range n.Children {
		vn.Children = append(vn.Children, c.ID)
	}
	return vn
}

// Visible lists the ids of visible nodes in display order.
func (v *View) Visible() []string { return v.visible }

// Window returns up to n visible ids starting at row start.
func (v *View) Window(start, n int) []string {
	if start < 0 {
		start = 0
	}
	if start >= len(v.visible) || n <= 0 {
		return nil
	}
	end := min(start+n, len(v.visible))
	return v.visible[start:end]
}

// Node returns the view state of a node.
func (v *View) Node(id string) (*ViewNode, bool) {
	vn, ok := v.nodes[id]
	return vn, ok
}

// Semantic returns the semantic node for id in the current tree.
func (v *View) Semantic(id string) (*model.Node, bool) {
	n, ok := v.tree[id]
	return n, ok
}

// Root returns the semantic tree last passed to Render.
func (v *View) Root() *model.Node { return v.root }

// IsExpanded reports the expand state of id.
func (v *View) IsExpanded(id string) bool {
	vn, ok := v.nodes[id]
	return ok && vn.Expanded
}

// IsVisible reports whether id has no collapsed ancestor.
func (v *View) IsVisible(id string) bool {
	_, ok := v.onScreen[id]
	return ok
}

// Position returns the laid-out position of a visible node.
func (v *View) Position(id string) (Point, bool) {
	p, ok := v.onScreen[id]
	return p, ok
}

// Row returns the display row of a visible node, or -1.
func (v *View) Row(id string) int {
	if !v.IsVisible(id) {
		return -1
	}
	return v.nodes[id].Row
}

// Highlight returns the highlighted node id, if any.
func (v *View) Highlight() string { return v.highlight }

// Placement is a node's interpolated position at one instant.
type Placement struct {
	ID    string
	Phase Phase
	Point
	// Progress is the eased animation progress in [0,1].
	Progress float64
}

// Animating reports whether transitions are still running at t.
func (v *View) Animating(t time.Time) bool {
	return len(v.transitions) > 0 && t.Sub(v.started) < Duration
}

// Frame samples every transition at t. Exiting nodes are included until
// the animation finishes. The result is ordered by interpolated row.
func (v *View) Frame(t time.Time) []Placement {
	progress := 1.0
	if d := t.Sub(v.started); d < Duration {
		progress = easeCubicInOut(math.Max(0, float64(d)/float64(Duration)))
	}

	out := make([]Placement, 0, len(v.transitions))
	for _, tr := range v.transitions {
		if tr.Phase == PhaseExit && progress >= 1 {
			continue
		}
		out = append(out, Placement{
			ID:       tr.ID,
			Phase:    tr.Phase,
			Point:    lerp(tr.From, tr.To, progress),
			Progress: progress,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].X < out[j].X })
	return out
}

func lerp(a, b Point, t float64) Point {
	return Point{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t}
}

// easeCubicInOut matches the default d3 transition easing.
func easeCubicInOut(t float64) float64 {
	if t >= 1 {
		return 1
	}
	t *= 2
	if t <= 1 {
		return t * t * t / 2
	}
	t -= 2
	return (t*t*t + 2) / 2
}
