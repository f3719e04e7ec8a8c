package export

import (
	"github.com/vanderheijden86/taxview/pkg/layout"
	"github.com/vanderheijden86/taxview/pkg/model"
)

// SceneNode is one visible node as it will be drawn.
type SceneNode struct {
	ID       string
	ParentID string
	Label    string
	Kind     model.Kind
	Purity   float64
	// Collapsed is true for nodes whose children are hidden.
	Collapsed bool
	Pos       layout.Point
}

// Scene is a frozen copy of the current diagram view.
type Scene struct {
	Nodes     []SceneNode
	Transform layout.Transform
	Highlight string
	Width     int
	Height    int
}

// SceneFromView captures the visible nodes of v at their laid-out
// positions along with the view transform and highlight.
func SceneFromView(v *layout.View) Scene {
	w, h := v.Viewport()
	s := Scene{
		Transform: v.Transform(),
		Highlight: v.Highlight(),
		Width:     int(w),
		Height:    int(h),
	}
	for _, id := range v.Visible() {
		n, ok := v.Semantic(id)
		if !ok {
			continue
		}
		pos, _ := v.Position(id)
		sn := SceneNode{
			ID:        id,
			Label:     n.Name,
			Kind:      n.Kind,
			Purity:    n.Purity,
			Collapsed: n.HasChildren() && !v.IsExpanded(id),
			Pos:       pos,
		}
		if n.Parent != nil {
			sn.ParentID = n.Parent.ID
		}
		s.Nodes = append(s.Nodes, sn)
	}
	return s
}
