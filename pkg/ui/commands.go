package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/graphcanvas/pkg/canvas"
	"github.com/vanderheijden86/graphcanvas/pkg/debug"
	"github.com/vanderheijden86/graphcanvas/pkg/element"
	"github.com/vanderheijden86/graphcanvas/pkg/export"
	"github.com/vanderheijden86/graphcanvas/pkg/metrics"
	"github.com/vanderheijden86/graphcanvas/pkg/remote"
	"github.com/vanderheijden86/graphcanvas/pkg/watcher"
)

// SubtreeMsg carries the result of a subtree fetch for one expansion request.
type SubtreeMsg struct {
	Req      canvas.Request
	Elements []element.Element
	Err      error
}

// Element list sources.
const (
	SourceFile = "file"
	SourceLive = "live"
)

// ElementsMsg replaces the parent elements.
type ElementsMsg struct {
	Elements []element.Element
	Source   string
	Err      error
}

// FileChangedMsg is sent when the watched elements file changes on disk.
type FileChangedMsg struct{}

// FeedClosedMsg is sent when the live feed ends.
type FeedClosedMsg struct{ Err error }

// ExportDoneMsg reports a finished image export.
type ExportDoneMsg struct {
	Path string
	Err  error
}

type animFrameMsg struct {
	gen int
	at  time.Time
}

// Loader re-reads the parent elements, e.g. from the elements file.
type Loader func(ctx context.Context) ([]element.Element, error)

// FetchSubtreeCmd fetches the subtree for req outside the event loop.
func FetchSubtreeCmd(ctx context.Context, src remote.SubtreeSource, req canvas.Request) tea.Cmd {
	return func() tea.Msg {
		done := metrics.Timer(metrics.SubtreeFetch)
		defer done()
		els, err := src.Subtree(ctx, req.NodeID)
		if err != nil {
			debug.Log("subtree %s (token %d): %v", req.NodeID, req.Token, err)
		}
		return SubtreeMsg{Req: req, Elements: els, Err: err}
	}
}

// WatchFileCmd blocks until the watcher reports a change.
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return FileChangedMsg{}
	}
}

// ReloadCmd runs load and wraps the result.
func ReloadCmd(ctx context.Context, load Loader) tea.Cmd {
	return func() tea.Msg {
		els, err := load(ctx)
		return ElementsMsg{Elements: els, Source: SourceFile, Err: err}
	}
}

// FeedCmd waits for the next live update.
func FeedCmd(f *remote.Feed) tea.Cmd {
	return func() tea.Msg {
		els, ok := <-f.Updates()
		if !ok {
			return FeedClosedMsg{Err: f.Err()}
		}
		return ElementsMsg{Elements: els, Source: SourceLive}
	}
}

// ExportCmd renders els to disk.
func ExportCmd(els []element.Element, opts export.Options) tea.Cmd {
	return func() tea.Msg {
		path, err := export.SaveImage(els, opts)
		return ExportDoneMsg{Path: path, Err: err}
	}
}

func animTick(gen int, fps int) tea.Cmd {
	if fps <= 0 {
		fps = 60
	}
	return tea.Tick(time.Second/time.Duration(fps), func(t time.Time) tea.Msg {
		return animFrameMsg{gen: gen, at: t}
	})
}
