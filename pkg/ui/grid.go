package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/graphcanvas/pkg/element"
	"github.com/vanderheijden86/graphcanvas/pkg/layout"
)

// Model units covered by one terminal cell. Cells are roughly twice as tall
// as they are wide.
const (
	cellWidth  = 8.0
	cellHeight = 16.0

	maxLabelCells = 18
)

type cell struct {
	r     rune // 0 marks the trailing half of a wide rune
	style int
	id    string
}

// grid is the rasterised canvas: one rune, style and element id per cell.
type grid struct {
	w, h   int
	cells  []cell
	styles []lipgloss.Style
	boxes  map[string]cellRect
}

type cellRect struct{ x1, y1, x2, y2 int } // inclusive

func (r cellRect) contains(x, y int) bool {
	return x >= r.x1 && x <= r.x2 && y >= r.y1 && y <= r.y2
}

func (r cellRect) center() (int, int) {
	return (r.x1 + r.x2) / 2, (r.y1 + r.y2) / 2
}

func newGrid(w, h int, base lipgloss.Style) *grid {
	w, h = max(w, 0), max(h, 0)
	g := &grid{
		w:      w,
		h:      h,
		cells:  make([]cell, w*h),
		styles: []lipgloss.Style{base},
		boxes:  make(map[string]cellRect),
	}
	for i := range g.cells {
		g.cells[i].r = ' '
	}
	return g
}

func (g *grid) addStyle(s lipgloss.Style) int {
	g.styles = append(g.styles, s)
	return len(g.styles) - 1
}

func (g *grid) inside(x, y int) bool { return x >= 0 && y >= 0 && x < g.w && y < g.h }

func (g *grid) set(x, y int, r rune, style int, id string) {
	if !g.inside(x, y) {
		return
	}
	g.cells[y*g.w+x] = cell{r: r, style: style, id: id}
}

// text writes s starting at (x, y). Wide runes take two cells.
func (g *grid) text(x, y int, s string, style int, id string) {
	for _, r := range s {
		rw := runewidth.RuneWidth(r)
		if rw == 0 {
			continue
		}
		g.set(x, y, r, style, id)
		if rw == 2 {
			g.set(x+1, y, 0, style, id)
		}
		x += rw
	}
}

// hit returns the id of the element drawn at (x, y), or "".
func (g *grid) hit(x, y int) string {
	if !g.inside(x, y) {
		return ""
	}
	return g.cells[y*g.w+x].id
}

// String renders the grid, batching runs of equally styled cells.
func (g *grid) String() string {
	var b strings.Builder
	var run strings.Builder
	for y := 0; y < g.h; y++ {
		cur := -1
		flush := func() {
			if run.Len() == 0 {
				return
			}
			b.WriteString(g.styles[cur].Render(run.String()))
			run.Reset()
		}
		for x := 0; x < g.w; x++ {
			c := g.cells[y*g.w+x]
			if c.r == 0 {
				continue
			}
			if c.style != cur {
				flush()
				cur = c.style
			}
			run.WriteRune(c.r)
		}
		flush()
		if y < g.h-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// toCell converts a rendered (viewport-applied) point to a cell position.
func toCell(p layout.Point) (int, int) {
	return int(math.Round(p.X / cellWidth)), int(math.Round(p.Y / cellHeight))
}

func nodeText(d element.Data) string {
	return ShapeGlyph(d.String(element.KeyShape)) + " " + truncate(d.Label(), maxLabelCells)
}

// drawCanvas rasterises els through vp into a w×h grid. The cursor element is
// highlighted.
func drawCanvas(els []element.Element, vp layout.Viewport, w, h int, cursor string, theme Theme) *grid {
	g := newGrid(w, h, theme.Base)
	r := theme.Renderer
	edgeStyle := g.addStyle(theme.Edge)
	cursorStyle := g.addStyle(theme.Cursor)
	kindStyles := make(map[string]int)

	// Boxes first so edges can be clipped against them.
	for _, e := range els {
		if !e.IsNode() || e.Position == nil {
			continue
		}
		cx, cy := toCell(vp.Apply(layout.Point{X: e.Position.X, Y: e.Position.Y}))
		tw := runewidth.StringWidth(nodeText(e.Data))
		x1 := cx - tw/2
		g.boxes[e.ID()] = cellRect{x1: x1, y1: cy, x2: x1 + tw - 1, y2: cy}
	}

	for _, e := range els {
		if !e.IsEdge() {
			continue
		}
		src, ok1 := g.boxes[e.Data.Source()]
		dst, ok2 := g.boxes[e.Data.Target()]
		if !ok1 || !ok2 || e.Data.Source() == e.Data.Target() {
			continue
		}
		style := edgeStyle
		if e.ID() == cursor {
			style = cursorStyle
		}
		g.drawEdge(src, dst, style, e.ID())
	}

	for _, e := range els {
		box, ok := g.boxes[e.ID()]
		if !ok || !e.IsNode() {
			continue
		}
		style := cursorStyle
		if e.ID() != cursor {
			kind := e.Data.String(element.KeyType)
			s, seen := kindStyles[kind]
			if !seen {
				s = g.addStyle(r.NewStyle().Foreground(theme.KindColor(kind)))
				kindStyles[kind] = s
			}
			style = s
		}
		g.text(box.x1, box.y1, nodeText(e.Data), style, e.ID())
	}
	return g
}

// drawEdge draws a dotted line between two boxes with an arrow head just
// outside the target box.
func (g *grid) drawEdge(src, dst cellRect, style int, id string) {
	x0, y0 := src.center()
	x1, y1 := dst.center()
	var last [2]int
	have := false
	line(x0, y0, x1, y1, func(x, y int) {
		if src.contains(x, y) || dst.contains(x, y) {
			return
		}
		g.set(x, y, '·', style, id)
		last, have = [2]int{x, y}, true
	})
	if have {
		g.set(last[0], last[1], arrow(x1-x0, 2*(y1-y0)), style, id)
	}
}

func arrow(dx, dy int) rune {
	if abs(dx) >= abs(dy) {
		if dx >= 0 {
			return '▸'
		}
		return '◂'
	}
	if dy > 0 {
		return '▾'
	}
	return '▴'
}

// line walks the cells from (x0, y0) to (x1, y1) with Bresenham's algorithm.
func line(x0, y0, x1, y1 int, plot func(x, y int)) {
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	err := dx + dy
	for {
		plot(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
