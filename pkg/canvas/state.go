// Package canvas holds the graph canvas state and its transitions.
//
// State is immutable: every transition has a value receiver and returns a new
// State, leaving the receiver untouched. Nothing here renders or performs I/O;
// subtree fetches are split into BeginExpand / ApplySubtree / FailExpand so the
// caller can run the request elsewhere and feed the result back.
package canvas

import (
	"github.com/vanderheijden86/graphcanvas/pkg/element"
	"github.com/vanderheijden86/graphcanvas/pkg/history"
	"github.com/vanderheijden86/graphcanvas/pkg/layout"
	"github.com/vanderheijden86/graphcanvas/pkg/metrics"
)

// DefaultFileName is the name exported images are saved under.
const DefaultFileName = "graph.png"

// Options configures a canvas.
type Options struct {
	Layout       layout.Options
	MinZoom      float64
	MaxZoom      float64
	HistoryLimit int
	FileName     string
}

// DefaultOptions returns the canvas defaults.
func DefaultOptions() Options {
	return Options{
		Layout:       layout.DefaultOptions(),
		MinZoom:      layout.DefaultMinZoom,
		MaxZoom:      layout.DefaultMaxZoom,
		HistoryLimit: history.DefaultLimit,
		FileName:     DefaultFileName,
	}
}

// Snapshot is one undo entry: the full element set and expansion flag.
type Snapshot struct {
	Elements   []element.Element
	HasSubtree bool
}

// Removal is the single restorable soft-delete.
type Removal struct {
	Element element.Element
	Edges   []element.Element // incident edges detached with a node
}

// Request identifies one subtree fetch.
type Request struct {
	NodeID string
	Token  uint64
	Epoch  uint64
}

// State is the canvas state. The zero value is not usable; call New.
type State struct {
	opts Options

	original   []element.Element
	topTree    []element.Data
	topIDs     map[string]bool
	elements   []element.Element
	hasSubtree bool

	removed    *Removal
	editTarget element.Data
	sidebar    element.Data

	snapshots history.Stack[Snapshot]

	inflight map[string]uint64
	seq      uint64
	applied  uint64
	epoch    uint64

	width, height float64
	viewport      layout.Viewport

	downloadURL string
	err         error
	addSeq      int
}

// New initializes a canvas from the parent-supplied elements: they are
// normalized, recorded as the reset state and top tree, laid out, and pushed
// as the first snapshot.
func New(raw []element.Element, opts Options) State {
	if opts.FileName == "" {
		opts.FileName = DefaultFileName
	}
	s := State{
		opts:      opts,
		snapshots: history.New[Snapshot](opts.HistoryLimit),
		viewport:  layout.Identity,
	}
	s = s.withOriginal(element.Normalize(raw))
	s.elements = s.layout(element.Clone(s.original))
	return s.pushSnapshot()
}

func (s State) withOriginal(normalized []element.Element) State {
	s.original = normalized
	s.topTree = element.DataOf(normalized)
	s.topIDs = make(map[string]bool, len(normalized))
	for _, e := range normalized {
		s.topIDs[e.ID()] = true
	}
	return s
}

// Options returns the canvas options.
func (s State) Options() Options { return s.opts }

// Elements returns the elements currently in view. The slice is shared with
// the state and must be treated as read-only.
func (s State) Elements() []element.Element { return s.elements }

// Original returns the normalized parent-supplied elements.
func (s State) Original() []element.Element { return s.original }

// TopTree returns the data of the originally displayed elements.
func (s State) TopTree() []element.Data { return s.topTree }

// InTopTree reports whether id belongs to the originally displayed elements.
func (s State) InTopTree(id string) bool { return s.topIDs[id] }

// HasSubtree reports whether an expansion is currently shown.
func (s State) HasSubtree() bool { return s.hasSubtree }

// Element returns the element with the given id in the current view.
func (s State) Element(id string) (element.Element, bool) {
	return element.Find(s.elements, id)
}

// Removed returns the restorable removal, or nil.
func (s State) Removed() *Removal { return s.removed }

// Snapshots returns the number of undo snapshots held.
func (s State) Snapshots() int { return s.snapshots.Len() }

// Viewport returns the current zoom and pan.
func (s State) Viewport() layout.Viewport { return s.viewport }

// Size returns the viewport size recorded by Resize.
func (s State) Size() (w, h float64) { return s.width, s.height }

// DownloadURL returns the temporary export location while an export runs,
// and "" otherwise.
func (s State) DownloadURL() string { return s.downloadURL }

// FileName returns the name exported images are saved under.
func (s State) FileName() string { return s.opts.FileName }

// Err returns the most recent expansion failure.
func (s State) Err() error { return s.err }

// ClearErr dismisses the recorded expansion failure.
func (s State) ClearErr() State {
	s.err = nil
	return s
}

// layout returns els positioned by the breadth-first layout.
func (s State) layout(els []element.Element) []element.Element {
	return layout.Apply(els, layout.Run(els, s.opts.Layout))
}

// relaid lays out els as the current view and refits when fitting is enabled.
func (s State) relaid(els []element.Element) State {
	s.elements = s.layout(els)
	if s.opts.Layout.Fit {
		s = s.Fit()
	}
	return s
}

func (s State) pushSnapshot() State {
	defer metrics.Timer(metrics.SnapshotPush)()
	s.snapshots = s.snapshots.Push(Snapshot{
		Elements:   s.elements,
		HasSubtree: s.hasSubtree,
	})
	return s
}

func (s State) copyInflight() map[string]uint64 {
	m := make(map[string]uint64, len(s.inflight)+1)
	for k, v := range s.inflight {
		m[k] = v
	}
	return m
}
