package canvas

import (
	"github.com/vanderheijden86/graphcanvas/pkg/element"
)

// Reload resets the view to the normalized original elements, discarding any
// expansion, and re-runs the layout.
func (s State) Reload() State {
	s.hasSubtree = false
	s = s.relaid(element.Clone(s.original))
	return s.pushSnapshot()
}

// CollapseSubtree removes the shown expansion by fully reloading.
func (s State) CollapseSubtree() State {
	return s.Reload()
}

// SetElements replaces the parent-supplied elements. Input deeply equal to the
// current original is ignored and reported with false. Otherwise the top tree
// is recomputed, requests in flight become stale, and the view reloads.
func (s State) SetElements(raw []element.Element) (State, bool) {
	normalized := element.Normalize(raw)
	if element.Equal(normalized, s.original) {
		return s, false
	}
	s = s.withOriginal(normalized)
	s.epoch++
	s.inflight = nil
	return s.Reload(), true
}

// Relayout re-runs the layout on the current elements.
func (s State) Relayout() State {
	return s.relaid(s.elements)
}

// Remove detaches the element with the given id. Removing a node also detaches
// its incident edges. The removal replaces any previous one as the single
// restorable item.
func (s State) Remove(id string) State {
	el, ok := s.Element(id)
	if !ok {
		return s
	}
	rm := &Removal{Element: el}
	drop := map[string]bool{id: true}
	if el.IsNode() {
		rm.Edges = element.Incident(s.elements, id)
		for _, e := range rm.Edges {
			drop[e.ID()] = true
		}
	}

	kept := make([]element.Element, 0, len(s.elements))
	for _, e := range s.elements {
		if !drop[e.ID()] {
			kept = append(kept, e)
		}
	}
	s.elements = kept
	s.removed = rm
	if s.editTarget != nil && drop[s.editTarget.ID()] {
		s.editTarget = nil
	}
	if s.sidebar != nil && drop[s.sidebar.ID()] {
		s.sidebar = nil
	}
	return s.pushSnapshot()
}

// Restore re-inserts the last removed element with its prior attributes,
// along with those removed edges whose endpoints are present. A second
// Restore without an intervening Remove is a no-op.
func (s State) Restore() State {
	if s.removed == nil {
		return s
	}
	rm := s.removed
	s.removed = nil

	restored := []element.Element{rm.Element}
	restored = append(restored, rm.Edges...)
	s.elements = merge(s.elements, restored)
	return s.pushSnapshot()
}

// Undo restores the previous snapshot. With a single snapshot it does nothing.
func (s State) Undo() State {
	next, prev, ok := s.snapshots.Pop()
	if !ok {
		return s
	}
	s.snapshots = next
	s.elements = prev.Elements
	s.hasSubtree = prev.HasSubtree
	if s.editTarget != nil {
		if _, ok := s.Element(s.editTarget.ID()); !ok {
			s.editTarget = nil
		}
	}
	return s
}

// CanUndo reports whether Undo would change the view.
func (s State) CanUndo() bool { return s.snapshots.Len() > 1 }
