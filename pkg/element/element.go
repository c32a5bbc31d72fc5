// Package element defines the node/edge element model shared by the canvas,
// layout, export and data sources.
//
// Elements use the Cytoscape element shape:
//
//	{"group": "nodes", "data": {"id": "a", "label": "A", "_shape": "diamond"}}
//	{"group": "edges", "data": {"id": "a->b", "source": "a", "target": "b"}}
package element

import (
	"fmt"
	"reflect"
	"sort"
)

// Group distinguishes nodes from edges.
type Group string

const (
	GroupNodes Group = "nodes"
	GroupEdges Group = "edges"
)

// Well-known data keys.
const (
	KeyID     = "id"
	KeySource = "source"
	KeyTarget = "target"
	KeyLabel  = "label"
	KeyType   = "_type"
	KeyShape  = "_shape"
)

// Position is a node position in model coordinates.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Data is the free-form attribute mapping of an element.
type Data map[string]any

// Element is a single node or edge.
type Element struct {
	Group    Group     `json:"group" yaml:"group"`
	Data     Data      `json:"data" yaml:"data"`
	Position *Position `json:"position,omitempty" yaml:"position,omitempty"`
	Classes  string    `json:"classes,omitempty" yaml:"classes,omitempty"`
}

// ID returns the element id.
func (e Element) ID() string { return e.Data.ID() }

// IsNode reports whether the element is a node.
func (e Element) IsNode() bool { return e.Group == GroupNodes }

// IsEdge reports whether the element is an edge.
func (e Element) IsEdge() bool { return e.Group == GroupEdges }

// Clone returns a deep copy of the element.
func (e Element) Clone() Element {
	out := Element{Group: e.Group, Data: e.Data.Clone(), Classes: e.Classes}
	if e.Position != nil {
		p := *e.Position
		out.Position = &p
	}
	return out
}

// WithPosition returns a copy of the element placed at p.
func (e Element) WithPosition(p Position) Element {
	out := e
	out.Position = &p
	return out
}

// ID returns the "id" attribute as a string.
func (d Data) ID() string { return d.String(KeyID) }

// Source returns the "source" attribute of an edge.
func (d Data) Source() string { return d.String(KeySource) }

// Target returns the "target" attribute of an edge.
func (d Data) Target() string { return d.String(KeyTarget) }

// Label returns the display label, falling back to the id.
func (d Data) Label() string {
	if l := d.String(KeyLabel); l != "" {
		return l
	}
	return d.ID()
}

// String returns the attribute formatted as a string, or "" when absent.
func (d Data) String(key string) string {
	v, ok := d[key]
	if !ok || v == nil {
		return ""
	}
	switch x := v.(type) {
	case string:
		return x
	case float64:
		// JSON numbers decode as float64; render integral ids without a fraction.
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	default:
		return fmt.Sprint(x)
	}
}

// Keys returns the attribute names in sorted order.
func (d Data) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clone returns a deep copy of the data map.
func (d Data) Clone() Data {
	if d == nil {
		return nil
	}
	out := make(Data, len(d))
	for k, v := range d {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, vv := range x {
			m[k] = cloneValue(vv)
		}
		return m
	case Data:
		return x.Clone()
	case []any:
		s := make([]any, len(x))
		for i, vv := range x {
			s[i] = cloneValue(vv)
		}
		return s
	default:
		return v
	}
}

// Clone deep-copies a list of elements.
func Clone(els []Element) []Element {
	if els == nil {
		return nil
	}
	out := make([]Element, len(els))
	for i, e := range els {
		out[i] = e.Clone()
	}
	return out
}

// DataOf returns the data portion of every element, in order.
func DataOf(els []Element) []Data {
	out := make([]Data, len(els))
	for i, e := range els {
		out[i] = e.Data.Clone()
	}
	return out
}

// Equal reports whether two element lists are deeply equal after normalization.
func Equal(a, b []Element) bool {
	if len(a) != len(b) {
		return false
	}
	return reflect.DeepEqual(Normalize(a), Normalize(b))
}

// Index maps element ids to their position in els.
func Index(els []Element) map[string]int {
	idx := make(map[string]int, len(els))
	for i, e := range els {
		idx[e.ID()] = i
	}
	return idx
}

// Find returns the element with the given id.
func Find(els []Element, id string) (Element, bool) {
	for _, e := range els {
		if e.ID() == id {
			return e, true
		}
	}
	return Element{}, false
}

// Incident returns the edges in els that touch node id.
func Incident(els []Element, id string) []Element {
	var out []Element
	for _, e := range els {
		if e.IsEdge() && (e.Data.Source() == id || e.Data.Target() == id) {
			out = append(out, e)
		}
	}
	return out
}
