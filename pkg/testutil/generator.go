// Package testutil provides element fixtures for various graph topologies.
// All generators produce deterministic output for reproducible tests.
package testutil

import (
	"fmt"
	"math/rand"

	"github.com/vanderheijden86/graphcanvas/pkg/element"
)

// GraphFixture is an abstract graph used to build element lists.
type GraphFixture struct {
	Description string     `json:"description"`
	Nodes       []string   `json:"nodes"`
	Edges       [][2]int   `json:"edges"` // [from_idx, to_idx]
	Properties  Properties `json:"properties,omitempty"`
}

// Properties holds optional metadata about the fixture.
type Properties struct {
	HasCycles     bool `json:"has_cycles,omitempty"`
	IsConnected   bool `json:"is_connected,omitempty"`
	ExpectedDepth int  `json:"expected_depth,omitempty"`
}

// GeneratorConfig controls element generation.
type GeneratorConfig struct {
	Seed      int64    // 0 = fixed default seed
	Shapes    []string // _shape values to cycle through (nil = none)
	Types     []string // _type values to pick from (nil = none)
	Positions bool     // give nodes a grid position
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{Seed: 42}
}

// Generator creates fixtures with various topologies.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = 42
	}
	return &Generator{cfg: cfg, rng: rand.New(rand.NewSource(seed))}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

// Chain creates n0 -> n1 -> ... -> n{size-1}.
func (g *Generator) Chain(size int) GraphFixture {
	nodes := make([]string, size)
	var edges [][2]int
	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		if i > 0 {
			edges = append(edges, [2]int{i - 1, i})
		}
	}
	return GraphFixture{
		Description: fmt.Sprintf("chain of %d nodes", size),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{IsConnected: true, ExpectedDepth: max(size-1, 0)},
	}
}

// Star creates a hub pointing at each spoke.
func (g *Generator) Star(spokes int) GraphFixture {
	nodes := []string{"hub"}
	var edges [][2]int
	for i := 1; i <= spokes; i++ {
		nodes = append(nodes, fmt.Sprintf("spoke%d", i))
		edges = append(edges, [2]int{0, i})
	}
	return GraphFixture{
		Description: fmt.Sprintf("star with %d spokes", spokes),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{IsConnected: true, ExpectedDepth: 1},
	}
}

// Diamond creates top -> mid1..midN -> bottom.
func (g *Generator) Diamond(width int) GraphFixture {
	width = max(width, 1)
	size := width + 2
	nodes := make([]string, size)
	nodes[0], nodes[size-1] = "top", "bottom"
	var edges [][2]int
	for i := 1; i <= width; i++ {
		nodes[i] = fmt.Sprintf("mid%d", i)
		edges = append(edges, [2]int{0, i}, [2]int{i, size - 1})
	}
	return GraphFixture{
		Description: fmt.Sprintf("diamond with %d middle nodes", width),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{IsConnected: true, ExpectedDepth: 2},
	}
}

// Cycle creates n0 -> n1 -> ... -> n0.
func (g *Generator) Cycle(size int) GraphFixture {
	nodes := make([]string, size)
	edges := make([][2]int, size)
	for i := 0; i < size; i++ {
		nodes[i] = fmt.Sprintf("n%d", i)
		edges[i] = [2]int{i, (i + 1) % size}
	}
	return GraphFixture{
		Description: fmt.Sprintf("cycle of %d nodes", size),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{HasCycles: true, IsConnected: true},
	}
}

// SelfLoop creates a single node with an edge to itself.
func (g *Generator) SelfLoop() GraphFixture {
	return GraphFixture{
		Description: "single node with self-loop",
		Nodes:       []string{"n0"},
		Edges:       [][2]int{{0, 0}},
		Properties:  Properties{HasCycles: true, IsConnected: true},
	}
}

// Tree creates a tree of the given depth where every inner node has breadth
// children.
func (g *Generator) Tree(depth, breadth int) GraphFixture {
	depth, breadth = max(depth, 1), max(breadth, 1)
	nodes := []string{"n0"}
	var edges [][2]int
	level := []int{0}
	for d := 0; d < depth; d++ {
		var next []int
		for _, parent := range level {
			for b := 0; b < breadth; b++ {
				child := len(nodes)
				nodes = append(nodes, fmt.Sprintf("n%d", child))
				edges = append(edges, [2]int{parent, child})
				next = append(next, child)
			}
		}
		level = next
	}
	return GraphFixture{
		Description: fmt.Sprintf("tree depth=%d breadth=%d (%d nodes)", depth, breadth, len(nodes)),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{IsConnected: true, ExpectedDepth: depth},
	}
}

// Disconnected creates several isolated chains.
func (g *Generator) Disconnected(components, componentSize int) GraphFixture {
	var nodes []string
	var edges [][2]int
	for c := 0; c < components; c++ {
		for i := 0; i < componentSize; i++ {
			nodes = append(nodes, fmt.Sprintf("c%d_n%d", c, i))
			if i > 0 {
				edges = append(edges, [2]int{len(nodes) - 2, len(nodes) - 1})
			}
		}
	}
	return GraphFixture{
		Description: fmt.Sprintf("%d disconnected chains of %d nodes", components, componentSize),
		Nodes:       nodes,
		Edges:       edges,
		Properties:  Properties{ExpectedDepth: max(componentSize-1, 0)},
	}
}

// RandomDAG creates a random DAG; density is the edge probability.
func (g *Generator) RandomDAG(size int, density float64) GraphFixture {
	density = min(max(density, 0), 1)
	nodes := make([]string, size)
	var edges [][2]int
	for i := range nodes {
		nodes[i] = fmt.Sprintf("n%d", i)
	}
	for i := 0; i < size; i++ {
		for j := i + 1; j < size; j++ {
			if g.rng.Float64() < density {
				edges = append(edges, [2]int{i, j})
			}
		}
	}
	return GraphFixture{
		Description: fmt.Sprintf("random DAG with %d nodes, density=%.2f (%d edges)", size, density, len(edges)),
		Nodes:       nodes,
		Edges:       edges,
	}
}

// ToElements converts a fixture to normalized canvas elements. Nodes come
// first, in fixture order, followed by edges with ids "<src>-><tgt>".
func (g *Generator) ToElements(gf GraphFixture) []element.Element {
	els := make([]element.Element, 0, len(gf.Nodes)+len(gf.Edges))
	for i, id := range gf.Nodes {
		d := element.Data{element.KeyID: id, element.KeyLabel: id}
		if len(g.cfg.Shapes) > 0 {
			d[element.KeyShape] = g.cfg.Shapes[i%len(g.cfg.Shapes)]
		}
		if len(g.cfg.Types) > 0 {
			d[element.KeyType] = g.cfg.Types[g.rng.Intn(len(g.cfg.Types))]
		}
		el := element.Element{Group: element.GroupNodes, Data: d}
		if g.cfg.Positions {
			el.Position = &element.Position{X: float64(i%10) * 100, Y: float64(i/10) * 100}
		}
		els = append(els, el)
	}
	for _, e := range gf.Edges {
		src, tgt := gf.Nodes[e[0]], gf.Nodes[e[1]]
		els = append(els, element.Element{
			Group: element.GroupEdges,
			Data: element.Data{
				element.KeyID:     src + "->" + tgt,
				element.KeySource: src,
				element.KeyTarget: tgt,
			},
		})
	}
	return element.Normalize(els)
}

// QuickChain returns a chain as elements using the default generator.
func QuickChain(size int) []element.Element {
	g := NewDefault()
	return g.ToElements(g.Chain(size))
}

// QuickStar returns a star as elements.
func QuickStar(spokes int) []element.Element {
	g := NewDefault()
	return g.ToElements(g.Star(spokes))
}

// QuickTree returns a tree as elements.
func QuickTree(depth, breadth int) []element.Element {
	g := NewDefault()
	return g.ToElements(g.Tree(depth, breadth))
}

// QuickDisconnected returns disconnected chains as elements.
func QuickDisconnected(components, size int) []element.Element {
	g := NewDefault()
	return g.ToElements(g.Disconnected(components, size))
}

// Node returns a single node element with optional extra attributes given as
// key/value pairs.
func Node(id string, kv ...string) element.Element {
	d := element.Data{element.KeyID: id}
	for i := 0; i+1 < len(kv); i += 2 {
		d[kv[i]] = kv[i+1]
	}
	return element.Element{Group: element.GroupNodes, Data: d}
}

// Edge returns an edge element src -> tgt.
func Edge(src, tgt string) element.Element {
	return element.Element{
		Group: element.GroupEdges,
		Data: element.Data{
			element.KeyID:     src + "->" + tgt,
			element.KeySource: src,
			element.KeyTarget: tgt,
		},
	}
}
