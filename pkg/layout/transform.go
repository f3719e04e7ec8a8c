package layout

import "math"

const (
	MinScale      = 0.1
	MaxScale      = 4.0
	FocusScale    = 1.5
	ZoomInFactor  = 1.2
	ZoomOutFactor = 0.8
)

// Origin offsets layout space inside the viewport so the root is not
// flush against the corner.
var Origin = Point{X: NodeSpacingX, Y: NodeSpacingY / 2}

// Transform maps layout coordinates to viewport pixels:
//
//	screenX = TX + K*(p.Y + Origin.Y)
//	screenY = TY + K*(p.X + Origin.X)
type Transform struct {
	TX, TY float64
	K      float64
}

// Identity is the unzoomed, unpanned transform.
func Identity() Transform { return Transform{K: 1} }

// Apply returns the viewport pixel position of a layout point.
func (t Transform) Apply(p Point) (sx, sy float64) {
	return t.TX + t.K*(p.Y+Origin.Y), t.TY + t.K*(p.X+Origin.X)
}

func clampScale(k float64) float64 {
	return math.Min(MaxScale, math.Max(MinScale, k))
}

// Transform returns the current view transform.
func (v *View) Transform() Transform { return v.transform }

// Focus centers the node in the viewport at FocusScale and moves the
// highlight to it. Ids that are unknown or not visible are a no-op.
func (v *View) Focus(id string) bool {
	p, ok := v.onScreen[id]
	if !ok {
		return false
	}
	k := FocusScale
	v.transform = Transform{
		TX: v.width/2 - k*(p.Y+Origin.Y),
		TY: v.height/2 - k*(p.X+Origin.X),
		K:  k,
	}
	v.highlight = id
	return true
}

// ClearHighlight removes the highlight marker.
func (v *View) ClearHighlight() { v.highlight = "" }

// ZoomIn scales by ZoomInFactor around the viewport center.
func (v *View) ZoomIn() Transform { return v.scaleBy(ZoomInFactor) }

// ZoomOut scales by ZoomOutFactor around the viewport center.
func (v *View) ZoomOut() Transform { return v.scaleBy(ZoomOutFactor) }

// ZoomFit restores the identity transform.
func (v *View) ZoomFit() Transform {
	v.transform = Identity()
	return v.transform
}

func (v *View) scaleBy(factor float64) Transform {
	t := v.transform
	k := clampScale(t.K * factor)
	cx, cy := v.width/2, v.height/2
	ratio := k / t.K
	v.transform = Transform{
		TX: cx - (cx-t.TX)*ratio,
		TY: cy - (cy-t.TY)*ratio,
		K:  k,
	}
	return v.transform
}
