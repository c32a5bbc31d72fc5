package canvas

import (
	"github.com/vanderheijden86/graphcanvas/pkg/layout"
)

// Resize records the viewport size and refits when fitting is enabled.
func (s State) Resize(w, h float64) State {
	s.width, s.height = w, h
	if s.opts.Layout.Fit {
		return s.Fit()
	}
	return s
}

// Fit sets zoom and pan so every element is visible with the configured
// padding. It does nothing until a size has been recorded.
func (s State) Fit() State {
	if s.width <= 0 || s.height <= 0 {
		return s
	}
	b := layout.Bounds(s.elements, s.opts.Layout.IncludeLabels)
	s.viewport = layout.Fit(b, s.width, s.height, s.opts.Layout.Padding, s.opts.MinZoom, s.opts.MaxZoom)
	return s
}

// ZoomBy scales the view by factor around the viewport centre.
func (s State) ZoomBy(factor float64) State {
	if factor <= 0 {
		return s
	}
	c := layout.Point{X: s.width / 2, Y: s.height / 2}
	s.viewport = s.viewport.ZoomAround(factor, c, s.opts.MinZoom, s.opts.MaxZoom)
	return s
}

// PanBy moves the view by dx, dy rendered units.
func (s State) PanBy(dx, dy float64) State {
	s.viewport.PanX += dx
	s.viewport.PanY += dy
	return s
}

// VisibleRect returns the model-space region shown in the viewport, or nil
// before a size has been recorded.
func (s State) VisibleRect() *layout.Rect {
	if s.width <= 0 || s.height <= 0 {
		return nil
	}
	tl := s.viewport.Invert(layout.Point{})
	br := s.viewport.Invert(layout.Point{X: s.width, Y: s.height})
	return &layout.Rect{X1: tl.X, Y1: tl.Y, X2: br.X, Y2: br.Y}
}

// BeginExport records the temporary download location of a running export.
func (s State) BeginExport(url string) State {
	s.downloadURL = url
	return s
}

// EndExport releases the download location.
func (s State) EndExport() State {
	s.downloadURL = ""
	return s
}

// Exporting reports whether an export is in progress.
func (s State) Exporting() bool { return s.downloadURL != "" }
