// Package layout computes deterministic breadth-first positions for canvas
// elements and the viewport transform that fits them on screen.
package layout

import (
	"math"
	"sort"
	"time"

	"github.com/mattn/go-runewidth"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/vanderheijden86/graphcanvas/pkg/element"
	"github.com/vanderheijden86/graphcanvas/pkg/metrics"
)

// Options mirrors the breadth-first layout settings of the canvas.
type Options struct {
	Directed          bool
	Padding           float64
	ComponentSpacing  float64
	NodeOverlap       float64
	SpacingFactor     float64
	IncludeLabels     bool
	Fit               bool
	Animate           bool
	AnimationDuration time.Duration
	Refresh           int // animation frames per second
}

// Node box defaults, in model units.
const (
	DefaultNodeWidth  = 40.0
	DefaultNodeHeight = 30.0
	labelCharWidth    = 7.0
	labelPadding      = 16.0
)

// DefaultOptions returns the canvas defaults.
func DefaultOptions() Options {
	return Options{
		Directed:          true,
		Padding:           30,
		ComponentSpacing:  40,
		NodeOverlap:       4,
		SpacingFactor:     1.75,
		IncludeLabels:     true,
		Fit:               true,
		Animate:           true,
		AnimationDuration: 750 * time.Millisecond,
		Refresh:           60,
	}
}

// Point is a model-space coordinate.
type Point struct{ X, Y float64 }

// Size is a node box size.
type Size struct{ W, H float64 }

// Rect is an axis-aligned bounding box.
type Rect struct{ X1, Y1, X2, Y2 float64 }

// W returns the rectangle width.
func (r Rect) W() float64 { return r.X2 - r.X1 }

// H returns the rectangle height.
func (r Rect) H() float64 { return r.Y2 - r.Y1 }

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return r.W() <= 0 && r.H() <= 0 }

// Result holds node centres, box sizes and BFS levels.
type Result struct {
	Positions map[string]Point
	Sizes     map[string]Size
	Levels    map[string]int
	Bounds    Rect
}

// NodeSize returns the box size of a node, widened to its label when
// includeLabels is set.
func NodeSize(d element.Data, includeLabels bool) Size {
	s := Size{W: DefaultNodeWidth, H: DefaultNodeHeight}
	if includeLabels {
		w := float64(runewidth.StringWidth(d.Label()))*labelCharWidth + labelPadding
		if w > s.W {
			s.W = w
		}
	}
	return s
}

// Run lays out the nodes in els level by level. Roots are nodes without
// incoming edges (or the first node of a component with none), levels are
// breadth-first depths, and components are placed side by side. The result
// depends only on the element order and attributes.
func Run(els []element.Element, opts Options) Result {
	defer metrics.Timer(metrics.LayoutRun)()

	if opts.SpacingFactor <= 0 {
		opts.SpacingFactor = 1
	}

	var nodes []element.Element
	for _, e := range els {
		if e.IsNode() {
			nodes = append(nodes, e)
		}
	}
	res := Result{
		Positions: make(map[string]Point, len(nodes)),
		Sizes:     make(map[string]Size, len(nodes)),
		Levels:    make(map[string]int, len(nodes)),
	}
	if len(nodes) == 0 {
		return res
	}

	index := make(map[string]int64, len(nodes))
	directed := simple.NewDirectedGraph()
	undirected := simple.NewUndirectedGraph()
	maxW, maxH := 0.0, 0.0
	for i, n := range nodes {
		index[n.ID()] = int64(i)
		directed.AddNode(simple.Node(i))
		undirected.AddNode(simple.Node(i))
		size := NodeSize(n.Data, opts.IncludeLabels)
		res.Sizes[n.ID()] = size
		maxW = math.Max(maxW, size.W)
		maxH = math.Max(maxH, size.H)
	}
	for _, e := range els {
		if !e.IsEdge() {
			continue
		}
		from, okF := index[e.Data.Source()]
		to, okT := index[e.Data.Target()]
		if !okF || !okT || from == to {
			continue
		}
		directed.SetEdge(directed.NewEdge(simple.Node(from), simple.Node(to)))
		undirected.SetEdge(undirected.NewEdge(simple.Node(from), simple.Node(to)))
	}

	var walkGraph traverse.Graph = undirected
	if opts.Directed {
		walkGraph = directed
	}

	components := topo.ConnectedComponents(undirected)
	for _, comp := range components {
		sort.Slice(comp, func(i, j int) bool { return comp[i].ID() < comp[j].ID() })
	}
	sort.Slice(components, func(i, j int) bool { return components[i][0].ID() < components[j][0].ID() })

	cellW := (maxW + opts.NodeOverlap) * opts.SpacingFactor
	cellH := (maxH + opts.NodeOverlap) * opts.SpacingFactor * 2

	offsetX := 0.0
	first := true
	for _, comp := range components {
		levels := componentLevels(comp, walkGraph, directed, opts.Directed)

		widest := 0
		byLevel := map[int][]int64{}
		maxLevel := 0
		for _, n := range comp {
			lvl := levels[n.ID()]
			byLevel[lvl] = append(byLevel[lvl], n.ID())
			if lvl > maxLevel {
				maxLevel = lvl
			}
		}
		for lvl := 0; lvl <= maxLevel; lvl++ {
			if len(byLevel[lvl]) > widest {
				widest = len(byLevel[lvl])
			}
		}

		if !first {
			offsetX += opts.ComponentSpacing
		}
		first = false
		compW := float64(widest) * cellW
		for lvl := 0; lvl <= maxLevel; lvl++ {
			row := byLevel[lvl]
			rowW := float64(len(row)) * cellW
			startX := offsetX + (compW-rowW)/2 + cellW/2
			for i, id := range row {
				n := nodes[id]
				res.Positions[n.ID()] = Point{X: startX + float64(i)*cellW, Y: float64(lvl)*cellH + cellH/2}
				res.Levels[n.ID()] = lvl
			}
		}
		offsetX += compW
	}

	// Shift so the bounding box starts at (padding, padding).
	b := bounds(res.Positions, res.Sizes)
	dx := opts.Padding - b.X1
	dy := opts.Padding - b.Y1
	for id, p := range res.Positions {
		res.Positions[id] = Point{X: p.X + dx, Y: p.Y + dy}
	}
	res.Bounds = bounds(res.Positions, res.Sizes)
	return res
}

// componentLevels assigns breadth-first depths to the nodes of one component.
func componentLevels(comp []graph.Node, g traverse.Graph, directed *simple.DirectedGraph, isDirected bool) map[int64]int {
	levels := make(map[int64]int, len(comp))

	var roots []graph.Node
	if isDirected {
		for _, n := range comp {
			if directed.To(n.ID()).Len() == 0 {
				roots = append(roots, n)
			}
		}
	}
	if len(roots) == 0 {
		roots = []graph.Node{comp[0]}
	}

	var bf traverse.BreadthFirst
	visit := func(n graph.Node, d int) bool {
		if _, seen := levels[n.ID()]; !seen {
			levels[n.ID()] = d
		}
		return false
	}
	for _, r := range roots {
		if bf.Visited(r) {
			continue
		}
		bf.Walk(g, r, visit)
	}
	// Cycles in directed mode can leave nodes unreachable from any root.
	for _, n := range comp {
		if !bf.Visited(n) {
			base := 0
			for _, lvl := range levels {
				if lvl+1 > base {
					base = lvl + 1
				}
			}
			bf.Walk(g, n, func(m graph.Node, d int) bool {
				if _, seen := levels[m.ID()]; !seen {
					levels[m.ID()] = base + d
				}
				return false
			})
		}
	}
	return levels
}

func bounds(pos map[string]Point, sizes map[string]Size) Rect {
	if len(pos) == 0 {
		return Rect{}
	}
	r := Rect{X1: math.Inf(1), Y1: math.Inf(1), X2: math.Inf(-1), Y2: math.Inf(-1)}
	for id, p := range pos {
		s := sizes[id]
		r.X1 = math.Min(r.X1, p.X-s.W/2)
		r.Y1 = math.Min(r.Y1, p.Y-s.H/2)
		r.X2 = math.Max(r.X2, p.X+s.W/2)
		r.Y2 = math.Max(r.Y2, p.Y+s.H/2)
	}
	return r
}

// Apply writes the layout positions into a copy of els.
func Apply(els []element.Element, res Result) []element.Element {
	out := make([]element.Element, len(els))
	for i, e := range els {
		if p, ok := res.Positions[e.ID()]; ok && e.IsNode() {
			out[i] = e.WithPosition(element.Position{X: p.X, Y: p.Y})
			continue
		}
		out[i] = e
	}
	return out
}

// Bounds returns the bounding box of the positioned nodes in els.
func Bounds(els []element.Element, includeLabels bool) Rect {
	pos := make(map[string]Point)
	sizes := make(map[string]Size)
	for _, e := range els {
		if !e.IsNode() || e.Position == nil {
			continue
		}
		pos[e.ID()] = Point{X: e.Position.X, Y: e.Position.Y}
		sizes[e.ID()] = NodeSize(e.Data, includeLabels)
	}
	return bounds(pos, sizes)
}

// Positioned reports whether every node in els has a position.
func Positioned(els []element.Element) bool {
	for _, e := range els {
		if e.IsNode() && e.Position == nil {
			return false
		}
	}
	return true
}
