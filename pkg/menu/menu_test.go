package menu

import (
	"reflect"
	"testing"

	"github.com/vanderheijden86/graphcanvas/pkg/element"
)

func node(attrs element.Data) *element.Element {
	return &element.Element{Group: element.GroupNodes, Data: attrs}
}

func actions(items []Item) []Action {
	var out []Action
	for _, it := range items {
		out = append(out, it.Action)
	}
	return out
}

func TestItemsFor(t *testing.T) {
	edge := &element.Element{Group: element.GroupEdges, Data: element.Data{"id": "e", "source": "a", "target": "b"}}

	tests := []struct {
		name   string
		target *element.Element
		want   []Action
	}{
		{
			name:   "plain node",
			target: node(element.Data{"id": "n"}),
			want:   []Action{ActionEdit, ActionRemove, ActionUndo},
		},
		{
			name:   "diamond",
			target: node(element.Data{"id": "n", "_shape": "diamond"}),
			want:   []Action{ActionEdit, ActionRemove, ActionAddOutlink, ActionAddChild, ActionUndo},
		},
		{
			name:   "ellipse",
			target: node(element.Data{"id": "n", "_shape": "ellipse"}),
			want:   []Action{ActionEdit, ActionRemove, ActionAddOutlink, ActionAddEntity, ActionUndo},
		},
		{
			name:   "gate",
			target: node(element.Data{"id": "n", "_type": "gate"}),
			want:   []Action{ActionEdit, ActionRemove, ActionAddChild, ActionUndo},
		},
		{
			name:   "entity",
			target: node(element.Data{"id": "n", "_type": "entity"}),
			want:   []Action{ActionEdit, ActionRemove, ActionAddRelation, ActionUndo},
		},
		{
			name:   "edge with node attributes",
			target: &element.Element{Group: element.GroupEdges, Data: element.Data{"id": "e", "_shape": "diamond"}},
			want:   []Action{ActionEdit, ActionRemove, ActionUndo},
		},
		{
			name:   "edge",
			target: edge,
			want:   []Action{ActionEdit, ActionRemove, ActionUndo},
		},
		{
			name:   "background",
			target: nil,
			want:   []Action{ActionUndo},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := actions(ItemsFor(tt.target))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ItemsFor() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAllowed(t *testing.T) {
	if Allowed(ActionAddRelation, node(element.Data{"_shape": "ellipse"})) {
		t.Error("add-relation must require _type entity")
	}
	if !Allowed(ActionUndo, nil) {
		t.Error("undo must be allowed on the background")
	}
	if Allowed(ActionEdit, nil) {
		t.Error("edit must not be allowed on the background")
	}
	if Allowed(Action("bogus"), node(nil)) {
		t.Error("unknown actions must be rejected")
	}
}

func TestTableIsACopy(t *testing.T) {
	tbl := Table()
	tbl[0].Label = "changed"
	if it, _ := Lookup(ActionEdit); it.Label != "Edit" {
		t.Error("Table must not expose the backing slice")
	}
}

func TestIsAdd(t *testing.T) {
	for _, a := range []Action{ActionAddOutlink, ActionAddChild, ActionAddEntity, ActionAddRelation} {
		if !IsAdd(a) {
			t.Errorf("expected %s to be an add action", a)
		}
	}
	if IsAdd(ActionRemove) {
		t.Error("remove is not an add action")
	}
}
