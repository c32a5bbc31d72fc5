package layout

import (
	"math"

	"github.com/vanderheijden86/graphcanvas/pkg/element"
)

// Zoom bounds used by the canvas.
const (
	DefaultMinZoom = 0.87
	DefaultMaxZoom = 2.0
)

// Viewport maps model coordinates to rendered coordinates:
// rendered = model*Zoom + Pan.
type Viewport struct {
	Zoom float64
	PanX float64
	PanY float64
}

// Identity is the untransformed viewport.
var Identity = Viewport{Zoom: 1}

// Apply maps a model point to rendered coordinates.
func (v Viewport) Apply(p Point) Point {
	z := v.Zoom
	if z == 0 {
		z = 1
	}
	return Point{X: p.X*z + v.PanX, Y: p.Y*z + v.PanY}
}

// Invert maps a rendered point back to model coordinates.
func (v Viewport) Invert(p Point) Point {
	z := v.Zoom
	if z == 0 {
		z = 1
	}
	return Point{X: (p.X - v.PanX) / z, Y: (p.Y - v.PanY) / z}
}

// Fit returns the viewport that shows all of b inside a w×h area with
// padding on every side. Zoom is clamped to [minZoom, maxZoom] and the box is
// centred.
func Fit(b Rect, w, h, padding, minZoom, maxZoom float64) Viewport {
	if b.Empty() || w <= 0 || h <= 0 {
		return Viewport{Zoom: clamp(1, minZoom, maxZoom)}
	}
	availW := math.Max(w-2*padding, 1)
	availH := math.Max(h-2*padding, 1)
	zoom := math.Inf(1)
	if b.W() > 0 {
		zoom = availW / b.W()
	}
	if b.H() > 0 {
		zoom = math.Min(zoom, availH/b.H())
	}
	if math.IsInf(zoom, 1) {
		zoom = 1
	}
	zoom = clamp(zoom, minZoom, maxZoom)
	return Viewport{
		Zoom: zoom,
		PanX: (w - zoom*(b.X1+b.X2)) / 2,
		PanY: (h - zoom*(b.Y1+b.Y2)) / 2,
	}
}

// ZoomAround scales the viewport by factor keeping the rendered point c fixed.
func (v Viewport) ZoomAround(factor float64, c Point, minZoom, maxZoom float64) Viewport {
	z := v.Zoom
	if z == 0 {
		z = 1
	}
	nz := clamp(z*factor, minZoom, maxZoom)
	model := v.Invert(c)
	return Viewport{Zoom: nz, PanX: c.X - model.X*nz, PanY: c.Y - model.Y*nz}
}

// Interpolate blends node positions from one layout to the next.
// t is clamped to [0,1] and eased with a smoothstep curve. Nodes absent from
// from appear directly at their target position.
func Interpolate(from, to []element.Element, t float64) []element.Element {
	t = clamp(t, 0, 1)
	t = t * t * (3 - 2*t)
	prev := make(map[string]element.Position, len(from))
	for _, e := range from {
		if e.IsNode() && e.Position != nil {
			prev[e.ID()] = *e.Position
		}
	}
	out := make([]element.Element, len(to))
	for i, e := range to {
		out[i] = e
		if !e.IsNode() || e.Position == nil {
			continue
		}
		p, ok := prev[e.ID()]
		if !ok {
			continue
		}
		out[i] = e.WithPosition(element.Position{
			X: p.X + (e.Position.X-p.X)*t,
			Y: p.Y + (e.Position.Y-p.Y)*t,
		})
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if lo > 0 && v < lo {
		return lo
	}
	if hi > 0 && v > hi {
		return hi
	}
	return v
}
