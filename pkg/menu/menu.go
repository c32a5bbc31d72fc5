// Package menu declares the canvas context-menu table: which actions apply to
// which elements, independent of how the menu is drawn.
package menu

import "github.com/vanderheijden86/graphcanvas/pkg/element"

// Action identifies a context-menu entry.
type Action string

const (
	ActionEdit        Action = "edit-node"
	ActionRemove      Action = "remove-node"
	ActionAddOutlink  Action = "add-outlink"
	ActionAddChild    Action = "add-child-event"
	ActionAddEntity   Action = "add-entity"
	ActionAddRelation Action = "add-relation"
	ActionUndo        Action = "undo"
)

// Match is an attribute equality test, e.g. _shape = "diamond".
type Match struct {
	Key   string
	Value string
}

// Selector describes the targets an item applies to. An element matches when
// its group is allowed and, if AnyOf is non-empty, at least one attribute
// matches. Core selects the canvas background.
type Selector struct {
	Nodes bool
	Edges bool
	AnyOf []Match
	Core  bool
}

// Item is one row of the menu table.
type Item struct {
	Action   Action
	Label    string
	Selector Selector
}

var table = []Item{
	{ActionEdit, "Edit", Selector{Nodes: true, Edges: true}},
	{ActionRemove, "Remove", Selector{Nodes: true, Edges: true}},
	{ActionAddOutlink, "Add Outlink", Selector{Nodes: true, AnyOf: []Match{
		{element.KeyShape, "diamond"},
		{element.KeyShape, "ellipse"},
	}}},
	{ActionAddChild, "Add Child", Selector{Nodes: true, AnyOf: []Match{
		{element.KeyShape, "diamond"},
		{element.KeyType, "gate"},
	}}},
	{ActionAddEntity, "Add Entity", Selector{Nodes: true, AnyOf: []Match{
		{element.KeyShape, "ellipse"},
	}}},
	{ActionAddRelation, "Add Relation", Selector{Nodes: true, AnyOf: []Match{
		{element.KeyType, "entity"},
	}}},
	{ActionUndo, "Undo", Selector{Nodes: true, Edges: true, Core: true}},
}

// Table returns a copy of the full menu table in display order.
func Table() []Item {
	out := make([]Item, len(table))
	copy(out, table)
	return out
}

// Matches reports whether the selector applies to target. A nil target is the
// canvas background.
func (s Selector) Matches(target *element.Element) bool {
	if target == nil {
		return s.Core
	}
	switch {
	case target.IsNode() && !s.Nodes:
		return false
	case target.IsEdge() && !s.Edges:
		return false
	case !target.IsNode() && !target.IsEdge():
		return false
	}
	if len(s.AnyOf) == 0 {
		return true
	}
	for _, m := range s.AnyOf {
		if target.Data.String(m.Key) == m.Value {
			return true
		}
	}
	return false
}

// ItemsFor returns the items applicable to target, in table order.
func ItemsFor(target *element.Element) []Item {
	var out []Item
	for _, it := range table {
		if it.Selector.Matches(target) {
			out = append(out, it)
		}
	}
	return out
}

// Allowed reports whether action may be applied to target.
func Allowed(action Action, target *element.Element) bool {
	it, ok := Lookup(action)
	return ok && it.Selector.Matches(target)
}

// Lookup returns the table row for action.
func Lookup(action Action) (Item, bool) {
	for _, it := range table {
		if it.Action == action {
			return it, true
		}
	}
	return Item{}, false
}

// IsAdd reports whether action creates a new element.
func IsAdd(action Action) bool {
	switch action {
	case ActionAddOutlink, ActionAddChild, ActionAddEntity, ActionAddRelation:
		return true
	}
	return false
}
