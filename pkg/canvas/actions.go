package canvas

import (
	"fmt"

	"github.com/vanderheijden86/graphcanvas/pkg/element"
	"github.com/vanderheijden86/graphcanvas/pkg/menu"
)

type template struct {
	kind  string
	shape string
}

var templates = map[menu.Action]template{
	menu.ActionAddOutlink:  {"outlink", "roundrectangle"},
	menu.ActionAddChild:    {"event", "diamond"},
	menu.ActionAddEntity:   {"entity", "rectangle"},
	menu.ActionAddRelation: {"relation", "ellipse"},
}

// Apply performs a context-menu action on the element with the given id, or
// on the background when targetID is empty. Actions the menu table does not
// allow for the target are rejected with false.
func (s State) Apply(action menu.Action, targetID string) (State, bool) {
	var target *element.Element
	if targetID != "" {
		el, ok := s.Element(targetID)
		if !ok {
			return s, false
		}
		target = &el
	}
	if !menu.Allowed(action, target) {
		return s, false
	}

	switch action {
	case menu.ActionEdit:
		return s.OpenEdit(targetID), true
	case menu.ActionRemove:
		return s.Remove(targetID), true
	case menu.ActionUndo:
		return s.Undo(), true
	}
	if menu.IsAdd(action) {
		next, _, ok := s.Add(action, targetID)
		return next, ok
	}
	return s, false
}

// Add creates a templated node for action, linked from the target node by a
// new edge, and re-runs the layout. It returns the new node id.
func (s State) Add(action menu.Action, targetID string) (State, string, bool) {
	tpl, ok := templates[action]
	if !ok {
		return s, "", false
	}
	target, ok := s.Element(targetID)
	if !ok || !target.IsNode() {
		return s, "", false
	}

	ids := element.Index(s.elements)
	var id string
	for {
		s.addSeq++
		id = fmt.Sprintf("%s-%s-%d", targetID, tpl.kind, s.addSeq)
		if _, taken := ids[id]; !taken {
			break
		}
	}

	node := element.Element{
		Group: element.GroupNodes,
		Data: element.Data{
			element.KeyID:    id,
			element.KeyLabel: fmt.Sprintf("%s %d", tpl.kind, s.addSeq),
			element.KeyType:  tpl.kind,
			element.KeyShape: tpl.shape,
		},
	}
	edge := element.Element{
		Group: element.GroupEdges,
		Data: element.Data{
			element.KeyID:     targetID + "->" + id,
			element.KeySource: targetID,
			element.KeyTarget: id,
		},
	}
	s = s.relaid(merge(s.elements, []element.Element{node, edge}))
	return s.pushSnapshot(), id, true
}
