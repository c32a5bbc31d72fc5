package canvas

import (
	"github.com/vanderheijden86/graphcanvas/pkg/element"
)

// DialogOpen reports whether the edit dialog is shown. It is derived from the
// edit target and has no state of its own.
func (s State) DialogOpen() bool { return s.editTarget != nil }

// EditTarget returns the data being edited, or nil.
func (s State) EditTarget() element.Data { return s.editTarget }

// OpenEdit opens the edit dialog on the element with the given id.
func (s State) OpenEdit(id string) State {
	el, ok := s.Element(id)
	if !ok {
		return s
	}
	s.editTarget = el.Data.Clone()
	return s
}

// Select sets the edit target from an external selection. A nil selection
// closes the dialog.
func (s State) Select(d element.Data) State {
	if d == nil {
		s.editTarget = nil
		return s
	}
	s.editTarget = d.Clone()
	return s
}

// CloseEdit closes the edit dialog without applying anything.
func (s State) CloseEdit() State {
	s.editTarget = nil
	return s
}

// SubmitEdit applies d to the edit target and closes the dialog. The id and,
// for edges, the endpoints are kept from the target. Submitting with no dialog
// open does nothing.
func (s State) SubmitEdit(d element.Data) State {
	if s.editTarget == nil {
		return s
	}
	id := s.editTarget.ID()
	s.editTarget = nil

	idx, ok := element.Index(s.elements)[id]
	if !ok {
		return s
	}
	cur := s.elements[idx]
	next := d.Clone()
	if next == nil {
		next = element.Data{}
	}
	for _, k := range []string{element.KeyID, element.KeySource, element.KeyTarget} {
		if v, ok := cur.Data[k]; ok {
			next[k] = v
		} else {
			delete(next, k)
		}
	}

	els := make([]element.Element, len(s.elements))
	copy(els, s.elements)
	updated := cur.Clone()
	updated.Data = next
	els[idx] = updated
	s.elements = els
	if s.sidebar != nil && s.sidebar.ID() == id {
		s.sidebar = next.Clone()
	}
	return s.pushSnapshot()
}

// ShowSidebar reports the element with the given id to the sidebar.
func (s State) ShowSidebar(id string) State {
	el, ok := s.Element(id)
	if !ok {
		return s
	}
	s.sidebar = el.Data.Clone()
	return s
}

// HideSidebar clears the sidebar selection.
func (s State) HideSidebar() State {
	s.sidebar = nil
	return s
}

// Sidebar returns the data last reported to the sidebar, or nil.
func (s State) Sidebar() element.Data { return s.sidebar }
