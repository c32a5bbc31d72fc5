package canvas

import (
	"fmt"

	"github.com/vanderheijden86/graphcanvas/pkg/element"
)

// BeginExpand registers a subtree request for node id. It returns false when
// id is not a node in view or a request for it is already in flight.
func (s State) BeginExpand(id string) (State, Request, bool) {
	el, ok := s.Element(id)
	if !ok || !el.IsNode() {
		return s, Request{}, false
	}
	if _, busy := s.inflight[id]; busy {
		return s, Request{}, false
	}
	s.seq++
	req := Request{NodeID: id, Token: s.seq, Epoch: s.epoch}
	s.inflight = s.copyInflight()
	s.inflight[id] = req.Token
	return s, req, true
}

// InFlight reports whether a subtree request for id is pending.
func (s State) InFlight(id string) bool {
	_, ok := s.inflight[id]
	return ok
}

// Pending returns the number of subtree requests in flight.
func (s State) Pending() int { return len(s.inflight) }

// ApplySubtree merges a fetched subtree into the view. Stale responses are
// dropped and reported with false: the token no longer matches the node's
// in-flight request, or the parent elements changed after the request began.
// A response older than the last applied expansion is also dropped when
// merging it would undo that expansion: it would reset the view, or its node
// is no longer shown. Older responses that only add elements are merged.
//
// When a subtree is already shown and the node belongs to the top tree, the
// view is first reset to the original elements so only one top-level
// expansion is visible at a time.
func (s State) ApplySubtree(req Request, subtree []element.Element) (State, bool) {
	if tok, ok := s.inflight[req.NodeID]; !ok || tok != req.Token {
		return s, false
	}
	s.inflight = s.copyInflight()
	delete(s.inflight, req.NodeID)
	if req.Epoch != s.epoch {
		return s, false
	}

	reset := s.hasSubtree && s.InTopTree(req.NodeID)
	if req.Token < s.applied {
		if _, shown := s.Element(req.NodeID); reset || !shown {
			return s, false
		}
	}

	base := s.elements
	if reset {
		base = element.Clone(s.original)
	}
	s.hasSubtree = true
	s.applied = max(s.applied, req.Token)
	s.err = nil
	s = s.relaid(merge(base, element.Normalize(subtree)))
	return s.pushSnapshot(), true
}

// FailExpand records a failed fetch so it can be shown to the user. Failures
// for requests that are no longer in flight are ignored.
func (s State) FailExpand(req Request, err error) State {
	if tok, ok := s.inflight[req.NodeID]; !ok || tok != req.Token {
		return s
	}
	s.inflight = s.copyInflight()
	delete(s.inflight, req.NodeID)
	s.err = fmt.Errorf("expand %s: %w", req.NodeID, err)
	return s
}

// merge appends the elements of add that are not already present. Edges whose
// endpoints are missing after the merge are skipped.
func merge(base, add []element.Element) []element.Element {
	out := make([]element.Element, 0, len(base)+len(add))
	out = append(out, base...)
	ids := element.Index(base)
	var edges []element.Element
	for _, e := range add {
		if _, dup := ids[e.ID()]; dup {
			continue
		}
		if e.IsEdge() {
			edges = append(edges, e)
			continue
		}
		ids[e.ID()] = len(out)
		out = append(out, e)
	}
	for _, e := range edges {
		if _, dup := ids[e.ID()]; dup {
			continue
		}
		if !hasNode(out, ids, e.Data.Source()) || !hasNode(out, ids, e.Data.Target()) {
			continue
		}
		ids[e.ID()] = len(out)
		out = append(out, e)
	}
	return out
}

func hasNode(els []element.Element, ids map[string]int, id string) bool {
	i, ok := ids[id]
	return ok && els[i].IsNode()
}
