package export

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"strings"

	"git.sr.ht/~sbinet/gg"
	svg "github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/graphcanvas/pkg/element"
	"github.com/vanderheijden86/graphcanvas/pkg/layout"
)

// --- scene -----------------------------------------------------------------

type sceneNode struct {
	ID    string
	Label string
	Shape string
	Type  string
	CX    float64
	CY    float64
	W     float64
	H     float64
}

type sceneEdge struct {
	From, To sceneNode
	Label    string
}

type scene struct {
	Nodes  []sceneNode
	Edges  []sceneEdge
	Width  float64 // model units, before scaling
	Height float64
}

// buildScene positions the nodes (laying them out when any lacks a position)
// and translates everything so the bounds start at the layout padding.
func buildScene(els []element.Element, opts Options) scene {
	if !layout.Positioned(els) {
		els = layout.Apply(els, layout.Run(els, opts.Layout))
	}
	b := layout.Bounds(els, opts.Layout.IncludeLabels)
	margin := opts.Layout.Padding
	if w := opts.Window; w != nil && w.W() > 0 && w.H() > 0 {
		b, margin = *w, 0
	}

	sc := scene{
		Width:  b.W() + 2*margin,
		Height: b.H() + 2*margin,
	}
	byID := make(map[string]sceneNode)
	for _, e := range els {
		if !e.IsNode() || e.Position == nil {
			continue
		}
		sz := layout.NodeSize(e.Data, opts.Layout.IncludeLabels)
		n := sceneNode{
			ID:    e.ID(),
			Label: truncate(e.Data.Label(), 32),
			Shape: strings.ToLower(e.Data.String(element.KeyShape)),
			Type:  e.Data.String(element.KeyType),
			CX:    e.Position.X - b.X1 + margin,
			CY:    e.Position.Y - b.Y1 + margin,
			W:     sz.W,
			H:     sz.H,
		}
		byID[n.ID] = n
		sc.Nodes = append(sc.Nodes, n)
	}
	for _, e := range els {
		if !e.IsEdge() {
			continue
		}
		from, ok1 := byID[e.Data.Source()]
		to, ok2 := byID[e.Data.Target()]
		if !ok1 || !ok2 || from.ID == to.ID {
			continue
		}
		label := ""
		if _, ok := e.Data[element.KeyLabel]; ok {
			label = truncate(e.Data.Label(), 24)
		}
		sc.Edges = append(sc.Edges, sceneEdge{From: from, To: to, Label: label})
	}
	return sc
}

// --- geometry --------------------------------------------------------------

type point struct{ X, Y float64 }

// outline returns the polygon of n's shape. Ellipses and rounded rectangles
// return nil and are drawn natively.
func outline(n sceneNode) []point {
	hw, hh := n.W/2, n.H/2
	switch n.Shape {
	case "rectangle":
		return []point{{n.CX - hw, n.CY - hh}, {n.CX + hw, n.CY - hh}, {n.CX + hw, n.CY + hh}, {n.CX - hw, n.CY + hh}}
	case "diamond":
		return []point{{n.CX, n.CY - hh}, {n.CX + hw, n.CY}, {n.CX, n.CY + hh}, {n.CX - hw, n.CY}}
	case "triangle":
		return []point{{n.CX, n.CY - hh}, {n.CX + hw, n.CY + hh}, {n.CX - hw, n.CY + hh}}
	case "hexagon":
		q := hw / 2
		return []point{
			{n.CX - hw, n.CY}, {n.CX - q, n.CY - hh}, {n.CX + q, n.CY - hh},
			{n.CX + hw, n.CY}, {n.CX + q, n.CY + hh}, {n.CX - q, n.CY + hh},
		}
	}
	return nil
}

// boxEdge returns where the segment from n's centre towards p leaves n's box.
func boxEdge(n sceneNode, p point) point {
	dx, dy := p.X-n.CX, p.Y-n.CY
	if dx == 0 && dy == 0 {
		return point{n.CX, n.CY}
	}
	t := math.Inf(1)
	if dx != 0 {
		t = math.Min(t, (n.W/2)/math.Abs(dx))
	}
	if dy != 0 {
		t = math.Min(t, (n.H/2)/math.Abs(dy))
	}
	t = math.Min(t, 1)
	return point{n.CX + dx*t, n.CY + dy*t}
}

func edgeEnds(e sceneEdge) (point, point) {
	from := boxEdge(e.From, point{e.To.CX, e.To.CY})
	to := boxEdge(e.To, point{e.From.CX, e.From.CY})
	return from, to
}

// arrowHead returns the three corners of an arrow pointing at tip along the
// direction from tail.
func arrowHead(tail, tip point) [3]point {
	const size = 7.0
	ang := math.Atan2(tip.Y-tail.Y, tip.X-tail.X)
	left := point{tip.X - size*math.Cos(ang-math.Pi/7), tip.Y - size*math.Sin(ang-math.Pi/7)}
	right := point{tip.X - size*math.Cos(ang+math.Pi/7), tip.Y - size*math.Sin(ang+math.Pi/7)}
	return [3]point{tip, left, right}
}

// --- palette ---------------------------------------------------------------

var (
	colorStroke = color.RGBA{0x33, 0x33, 0x33, 0xff}
	colorEdge   = color.RGBA{0x9e, 0x9e, 0x9e, 0xff}
	colorText   = color.RGBA{0x11, 0x11, 0x11, 0xff}
	colorNode   = color.RGBA{0xb0, 0xbe, 0xc5, 0xff}
)

var typeColors = map[string]color.RGBA{
	"event":    {0xff, 0xe0, 0x82, 0xff},
	"gate":     {0xef, 0x9a, 0x9a, 0xff},
	"entity":   {0x90, 0xca, 0xf9, 0xff},
	"relation": {0xa5, 0xd6, 0xa7, 0xff},
	"outlink":  {0xce, 0x93, 0xd8, 0xff},
}

func nodeColor(n sceneNode) color.RGBA {
	if c, ok := typeColors[n.Type]; ok {
		return c
	}
	return colorNode
}

// --- PNG -------------------------------------------------------------------

// RenderPNG draws els as a PNG image.
func RenderPNG(w io.Writer, els []element.Element, opts Options) error {
	if !hasNodes(els) {
		return ErrNoElements
	}
	scale := opts.Scale
	if scale <= 0 {
		scale = DefaultScale
	}
	sc := buildScene(els, opts)

	dc := gg.NewContext(int(math.Ceil(sc.Width*scale)), int(math.Ceil(sc.Height*scale)))
	dc.SetColor(ParseHexColor(opts.Background))
	dc.Clear()
	dc.Scale(scale, scale)
	dc.SetFontFace(basicfont.Face7x13)

	dc.SetLineWidth(1.5)
	for _, e := range sc.Edges {
		from, to := edgeEnds(e)
		dc.SetColor(colorEdge)
		dc.DrawLine(from.X, from.Y, to.X, to.Y)
		dc.Stroke()
		head := arrowHead(from, to)
		dc.NewSubPath()
		dc.MoveTo(head[0].X, head[0].Y)
		dc.LineTo(head[1].X, head[1].Y)
		dc.LineTo(head[2].X, head[2].Y)
		dc.ClosePath()
		dc.Fill()
		if e.Label != "" {
			dc.SetColor(colorText)
			dc.DrawStringAnchored(e.Label, (from.X+to.X)/2, (from.Y+to.Y)/2, 0.5, 0.5)
		}
	}

	for _, n := range sc.Nodes {
		drawShape(dc, n)
		dc.SetColor(nodeColor(n))
		dc.FillPreserve()
		dc.SetColor(colorStroke)
		dc.SetLineWidth(1.2)
		dc.Stroke()

		dc.SetColor(colorText)
		dc.DrawStringAnchored(n.Label, n.CX, n.CY, 0.5, 0.5)
	}

	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

func drawShape(dc *gg.Context, n sceneNode) {
	switch n.Shape {
	case "roundrectangle", "round-rectangle":
		dc.DrawRoundedRectangle(n.CX-n.W/2, n.CY-n.H/2, n.W, n.H, 6)
		return
	}
	pts := outline(n)
	if pts == nil {
		dc.DrawEllipse(n.CX, n.CY, n.W/2, n.H/2)
		return
	}
	dc.NewSubPath()
	dc.MoveTo(pts[0].X, pts[0].Y)
	for _, p := range pts[1:] {
		dc.LineTo(p.X, p.Y)
	}
	dc.ClosePath()
}

// --- SVG -------------------------------------------------------------------

// RenderSVG draws els as an SVG document.
func RenderSVG(w io.Writer, els []element.Element, opts Options) error {
	if !hasNodes(els) {
		return ErrNoElements
	}
	scale := opts.Scale
	if scale <= 0 {
		scale = DefaultScale
	}
	sc := buildScene(els, opts)
	px := func(v float64) int { return int(math.Round(v * scale)) }

	canvas := svg.New(w)
	canvas.Start(px(sc.Width), px(sc.Height))
	canvas.Rect(0, 0, px(sc.Width), px(sc.Height), "fill:"+css(ParseHexColor(opts.Background)))

	edgeStyle := fmt.Sprintf("stroke:%s;stroke-width:%.1f", css(colorEdge), 1.5*scale)
	for _, e := range sc.Edges {
		from, to := edgeEnds(e)
		canvas.Line(px(from.X), px(from.Y), px(to.X), px(to.Y), edgeStyle)
		head := arrowHead(from, to)
		canvas.Polygon(
			[]int{px(head[0].X), px(head[1].X), px(head[2].X)},
			[]int{px(head[0].Y), px(head[1].Y), px(head[2].Y)},
			"fill:"+css(colorEdge),
		)
		if e.Label != "" {
			canvas.Text(px((from.X+to.X)/2), px((from.Y+to.Y)/2), e.Label, textStyle(scale))
		}
	}

	for _, n := range sc.Nodes {
		style := fmt.Sprintf("fill:%s;stroke:%s;stroke-width:%.1f", css(nodeColor(n)), css(colorStroke), 1.2*scale)
		switch pts := outline(n); {
		case n.Shape == "roundrectangle" || n.Shape == "round-rectangle":
			canvas.Roundrect(px(n.CX-n.W/2), px(n.CY-n.H/2), px(n.W), px(n.H), px(6), px(6), style)
		case pts == nil:
			canvas.Ellipse(px(n.CX), px(n.CY), px(n.W/2), px(n.H/2), style)
		default:
			xs := make([]int, len(pts))
			ys := make([]int, len(pts))
			for i, p := range pts {
				xs[i], ys[i] = px(p.X), px(p.Y)
			}
			canvas.Polygon(xs, ys, style)
		}
		canvas.Text(px(n.CX), px(n.CY), n.Label, textStyle(scale))
	}

	canvas.End()
	return nil
}

func textStyle(scale float64) string {
	return fmt.Sprintf("fill:%s;font-size:%.0fpx;font-family:monospace;text-anchor:middle;dominant-baseline:middle",
		css(colorText), 12*scale)
}

// --- helpers ---------------------------------------------------------------

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

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
