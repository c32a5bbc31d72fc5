package ui

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/graphcanvas/pkg/canvas"
	"github.com/vanderheijden86/graphcanvas/pkg/debug"
	"github.com/vanderheijden86/graphcanvas/pkg/element"
	"github.com/vanderheijden86/graphcanvas/pkg/export"
	"github.com/vanderheijden86/graphcanvas/pkg/layout"
	"github.com/vanderheijden86/graphcanvas/pkg/menu"
	"github.com/vanderheijden86/graphcanvas/pkg/remote"
	"github.com/vanderheijden86/graphcanvas/pkg/watcher"
)

// clipboardWrite is swapped in tests.
var clipboardWrite = clipboard.WriteAll

const (
	headerHeight = 1
	statusHeight = 1
	zoomStep     = 1.25
	panCells     = 4
)

type mode int

const (
	modeCanvas mode = iota
	modeMenu
	modeEdit
	modeExport
)

// Options wires the model to its collaborators. Everything but Canvas and
// Export is optional.
type Options struct {
	Canvas canvas.Options
	Export export.Options
	Title  string

	Source  remote.SubtreeSource // subtree fetches; nil disables expansion
	Loader  Loader               // re-reads the parent elements on file changes
	Watcher *watcher.Watcher     // started by the caller
	Feed    *remote.Feed         // live parent element updates
}

// SelectMsg sets or clears the edit target from outside the canvas.
type SelectMsg struct{ Data element.Data }

type animation struct {
	from   []element.Element
	start  time.Time
	gen    int
	t      float64
	active bool
}

// Model is the bubbletea model of the graph canvas.
type Model struct {
	ctx    context.Context
	cancel context.CancelFunc

	state   canvas.State
	opts    Options
	theme   Theme
	keys    KeyMap
	help    help.Model
	sidebar *sidebarRenderer

	width, height int
	mode          mode
	menu          ContextMenu
	edit          EditModal
	exportForm    ExportForm

	cursor      string
	showSidebar bool
	showHelp    bool

	statusMsg     string
	statusIsError bool

	anim     animation
	now      func() time.Time
	quitting bool
}

// NewModel builds the canvas model over the parent elements. The context is
// cancelled when the model quits, aborting in-flight fetches.
func NewModel(ctx context.Context, elements []element.Element, opts Options) Model {
	ctx, cancel := context.WithCancel(ctx)
	if opts.Export.FileName == "" {
		opts.Export = export.DefaultOptions()
	}
	m := Model{
		ctx:     ctx,
		cancel:  cancel,
		state:   canvas.New(elements, opts.Canvas),
		opts:    opts,
		theme:   DefaultTheme(lipgloss.DefaultRenderer()),
		keys:    DefaultKeyMap,
		help:    help.New(),
		sidebar: &sidebarRenderer{},
		now:     time.Now,
	}
	m.fixCursor()
	return m
}

// WithTheme replaces the theme.
func (m Model) WithTheme(t Theme) Model {
	m.theme = t
	return m
}

func (m Model) State() canvas.State { return m.state }
func (m Model) Cursor() string      { return m.cursor }
func (m Model) Status() (string, bool) {
	return m.statusMsg, m.statusIsError
}

func (m Model) Init() tea.Cmd {
	var cmds []tea.Cmd
	if m.opts.Watcher != nil {
		cmds = append(cmds, WatchFileCmd(m.opts.Watcher))
	}
	if m.opts.Feed != nil {
		cmds = append(cmds, FeedCmd(m.opts.Feed))
	}
	return tea.Batch(cmds...)
}

func (m *Model) setStatus(format string, args ...any) {
	m.statusMsg = fmt.Sprintf(format, args...)
	m.statusIsError = false
}

func (m *Model) setError(format string, args ...any) {
	m.statusMsg = fmt.Sprintf(format, args...)
	m.statusIsError = true
	debug.Log("ui error: %s", m.statusMsg)
}

// canvasSize returns the grid size in cells.
func (m Model) canvasSize() (cols, rows int) {
	cols = m.width
	if m.sidebarVisible() {
		cols -= sidebarWidth
	}
	rows = m.height - headerHeight - statusHeight - m.helpHeight()
	return max(cols, 0), max(rows, 0)
}

func (m Model) sidebarVisible() bool {
	return (m.showSidebar || m.mode == modeMenu) && m.width > sidebarWidth+20
}

func (m Model) helpHeight() int {
	if m.showHelp {
		return len(m.keys.FullHelp()[0])
	}
	return 1
}

func (m *Model) resize() {
	cols, rows := m.canvasSize()
	m.state = m.state.Resize(float64(cols)*cellWidth, float64(rows)*cellHeight)
}

// displayed returns the elements as currently drawn, mid-animation included.
func (m Model) displayed() []element.Element {
	if !m.anim.active {
		return m.state.Elements()
	}
	return layout.Interpolate(m.anim.from, m.state.Elements(), m.anim.t)
}

// commit adopts next and starts an animation when node positions moved.
func (m Model) commit(next canvas.State) (Model, tea.Cmd) {
	prev := m.displayed()
	m.state = next
	m.fixCursor()

	lo := next.Options().Layout
	if !lo.Animate || lo.AnimationDuration <= 0 || !moved(prev, next.Elements()) {
		m.anim.active = false
		return m, nil
	}
	m.anim = animation{from: prev, start: m.now(), gen: m.anim.gen + 1, active: true}
	return m, animTick(m.anim.gen, lo.Refresh)
}

func moved(from, to []element.Element) bool {
	prev := make(map[string]element.Position, len(from))
	for _, e := range from {
		if e.IsNode() && e.Position != nil {
			prev[e.ID()] = *e.Position
		}
	}
	for _, e := range to {
		if p, ok := prev[e.ID()]; ok && e.Position != nil && p != *e.Position {
			return true
		}
	}
	return false
}

func (m *Model) fixCursor() {
	if _, ok := m.state.Element(m.cursor); ok {
		return
	}
	m.cursor = ""
	for _, e := range m.state.Elements() {
		if e.IsNode() {
			m.cursor = e.ID()
			return
		}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.edit.SetSize(msg.Width, msg.Height)
		m.resize()
		return m, nil

	case SubtreeMsg:
		return m.applySubtree(msg)

	case ElementsMsg:
		var rearm tea.Cmd
		if msg.Source == SourceLive && m.opts.Feed != nil {
			rearm = FeedCmd(m.opts.Feed)
		}
		if msg.Err != nil {
			m.setError("Reload failed: %v", msg.Err)
			return m, rearm
		}
		next, changed := m.state.SetElements(msg.Elements)
		if !changed {
			return m, rearm
		}
		m.setStatus("Parent elements updated from %s (%d elements)", msg.Source, len(next.Original()))
		var cmd tea.Cmd
		m, cmd = m.commit(next)
		return m, tea.Batch(cmd, rearm)

	case FileChangedMsg:
		var cmds []tea.Cmd
		if m.opts.Watcher != nil {
			cmds = append(cmds, WatchFileCmd(m.opts.Watcher))
		}
		if m.opts.Loader != nil {
			cmds = append(cmds, ReloadCmd(m.ctx, m.opts.Loader))
		}
		return m, tea.Batch(cmds...)

	case FeedClosedMsg:
		if msg.Err != nil {
			m.setError("Live feed closed: %v", msg.Err)
		} else {
			m.setStatus("Live feed closed")
		}
		return m, nil

	case ExportDoneMsg:
		m.state = m.state.EndExport()
		if msg.Err != nil {
			m.setError("Export failed: %v", msg.Err)
		} else {
			m.setStatus("Saved %s", msg.Path)
		}
		return m, nil

	case SelectMsg:
		m.state = m.state.Select(msg.Data)
		if m.state.DialogOpen() {
			m.openEditModal()
		} else if m.mode == modeEdit {
			m.mode = modeCanvas
		}
		return m, nil

	case animFrameMsg:
		if !m.anim.active || msg.gen != m.anim.gen {
			return m, nil
		}
		lo := m.state.Options().Layout
		m.anim.t = float64(msg.at.Sub(m.anim.start)) / float64(lo.AnimationDuration)
		if m.anim.t >= 1 {
			m.anim.active = false
			return m, nil
		}
		return m, animTick(m.anim.gen, lo.Refresh)

	case tea.MouseMsg:
		if m.mode != modeCanvas {
			return m, nil
		}
		return m.handleMouse(msg)

	case tea.KeyMsg:
		switch m.mode {
		case modeMenu:
			return m.updateMenu(msg)
		case modeEdit:
			return m.updateEdit(msg)
		case modeExport:
			return m.updateExport(msg)
		}
		return m.handleKey(msg)
	}

	if m.mode == modeExport {
		return m.updateExport(msg)
	}
	return m, nil
}

func (m Model) applySubtree(msg SubtreeMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		next := m.state.FailExpand(msg.Req, msg.Err)
		if err := next.Err(); err != nil && err != m.state.Err() {
			m.setError("%v", err)
		}
		m.state = next
		return m, nil
	}
	next, ok := m.state.ApplySubtree(msg.Req, msg.Elements)
	if !ok {
		debug.Log("ui: dropping stale subtree for %s (token %d)", msg.Req.NodeID, msg.Req.Token)
		m.state = next
		return m, nil
	}
	m.setStatus("Expanded %s (%d elements)", msg.Req.NodeID, len(msg.Elements))
	return m.commit(next)
}

// tap expands node id.
func (m Model) tap(id string) (tea.Model, tea.Cmd) {
	el, ok := m.state.Element(id)
	if !ok || !el.IsNode() {
		return m, nil
	}
	if m.opts.Source == nil {
		m.setError("No node server configured")
		return m, nil
	}
	next, req, ok := m.state.BeginExpand(id)
	if !ok {
		m.setStatus("Already loading %s…", el.Data.Label())
		return m, nil
	}
	m.state = next
	m.setStatus("Loading %s…", el.Data.Label())
	return m, FetchSubtreeCmd(m.ctx, m.opts.Source, req)
}

// cxttap reports the element to the sidebar and opens its context menu.
func (m Model) cxttap(id string) (tea.Model, tea.Cmd) {
	el, ok := m.state.Element(id)
	if !ok {
		return m.openCoreMenu()
	}
	m.cursor = id
	m.state = m.state.ShowSidebar(id)
	m.showSidebar = true
	m.menu = NewContextMenu(&el)
	m.mode = modeMenu
	m.resize()
	return m, nil
}

func (m Model) openCoreMenu() (tea.Model, tea.Cmd) {
	m.menu = NewContextMenu(nil)
	m.mode = modeMenu
	m.resize()
	return m, nil
}

func (m *Model) openEditModal() {
	m.edit = NewEditModal(m.state.EditTarget(), m.theme)
	m.edit.SetSize(m.width, m.height)
	m.mode = modeEdit
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		m.cancel()
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, k.Help):
		m.showHelp = !m.showHelp
		m.resize()

	case key.Matches(msg, k.Expand):
		return m.tap(m.cursor)

	case key.Matches(msg, k.Menu):
		return m.cxttap(m.cursor)

	case key.Matches(msg, k.CoreMenu):
		return m.openCoreMenu()

	case key.Matches(msg, k.Edit):
		m.state = m.state.OpenEdit(m.cursor)
		if m.state.DialogOpen() {
			m.openEditModal()
		}

	case key.Matches(msg, k.Remove):
		return m.applyAction(menu.ActionRemove, m.cursor)

	case key.Matches(msg, k.Restore):
		r := m.state.Removed()
		if r == nil {
			m.setStatus("Nothing to restore")
			return m, nil
		}
		m.setStatus("Restored %s", r.Element.ID())
		m.cursor = r.Element.ID()
		return m.commit(m.state.Restore())

	case key.Matches(msg, k.Undo):
		if !m.state.CanUndo() {
			m.setStatus("Nothing to undo")
			return m, nil
		}
		m.setStatus("Undone")
		return m.commit(m.state.Undo())

	case key.Matches(msg, k.Reload):
		m.setStatus("Reloaded %d elements", len(m.state.Original()))
		return m.commit(m.state.Reload())

	case key.Matches(msg, k.Collapse):
		if !m.state.HasSubtree() {
			m.setStatus("No subtree shown")
			return m, nil
		}
		m.setStatus("Collapsed")
		return m.commit(m.state.CollapseSubtree())

	case key.Matches(msg, k.Fit):
		m.state = m.state.Fit()

	case key.Matches(msg, k.Export):
		if m.state.Exporting() {
			m.setStatus("Export already running")
			return m, nil
		}
		m.exportForm = NewExportForm(m.opts.Export).WithWidth(min(max(m.width-10, 30), 60))
		m.mode = modeExport
		return m, m.exportForm.Init()

	case key.Matches(msg, k.Copy):
		return m.copyCursor()

	case key.Matches(msg, k.Sidebar):
		m.showSidebar = !m.showSidebar
		if m.showSidebar {
			m.state = m.state.ShowSidebar(m.cursor)
		} else {
			m.state = m.state.HideSidebar()
		}
		m.resize()

	case key.Matches(msg, k.ZoomIn):
		m.state = m.state.ZoomBy(zoomStep)
	case key.Matches(msg, k.ZoomOut):
		m.state = m.state.ZoomBy(1 / zoomStep)

	case key.Matches(msg, k.PanLeft):
		m.state = m.state.PanBy(panCells*cellWidth, 0)
	case key.Matches(msg, k.PanRight):
		m.state = m.state.PanBy(-panCells*cellWidth, 0)
	case key.Matches(msg, k.PanUp):
		m.state = m.state.PanBy(0, panCells*cellHeight/2)
	case key.Matches(msg, k.PanDown):
		m.state = m.state.PanBy(0, -panCells*cellHeight/2)

	case key.Matches(msg, k.Next):
		m.cycleCursor(1)
	case key.Matches(msg, k.Prev):
		m.cycleCursor(-1)
	case key.Matches(msg, k.Left):
		m.moveCursor(-1, 0)
	case key.Matches(msg, k.Right):
		m.moveCursor(1, 0)
	case key.Matches(msg, k.Up):
		m.moveCursor(0, -1)
	case key.Matches(msg, k.Down):
		m.moveCursor(0, 1)
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.state = m.state.ZoomBy(zoomStep)
		return m, nil
	case tea.MouseButtonWheelDown:
		m.state = m.state.ZoomBy(1 / zoomStep)
		return m, nil
	}
	if msg.Action != tea.MouseActionPress {
		return m, nil
	}
	id := m.hit(msg.X, msg.Y-headerHeight)
	switch msg.Button {
	case tea.MouseButtonLeft:
		if id == "" {
			return m, nil
		}
		m.cursor = id
		return m.tap(id)
	case tea.MouseButtonRight:
		if id == "" {
			return m.openCoreMenu()
		}
		return m.cxttap(id)
	}
	return m, nil
}

// hit returns the element drawn at canvas cell (x, y).
func (m Model) hit(x, y int) string {
	cols, rows := m.canvasSize()
	if x < 0 || y < 0 || x >= cols || y >= rows {
		return ""
	}
	return drawCanvas(m.displayed(), m.state.Viewport(), cols, rows, m.cursor, m.theme).hit(x, y)
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.menu = m.menu.Update(msg)
	if m.menu.Cancelled() {
		m.mode = modeCanvas
		m.resize()
		return m, nil
	}
	action, ok := m.menu.Chosen()
	if !ok {
		return m, nil
	}
	m.mode = modeCanvas
	m.resize()
	return m.applyAction(action, m.menu.TargetID())
}

// applyAction runs a context-menu action through the canvas.
func (m Model) applyAction(action menu.Action, target string) (tea.Model, tea.Cmd) {
	before := element.Index(m.state.Elements())
	next, ok := m.state.Apply(action, target)
	if !ok {
		item, _ := menu.Lookup(action)
		m.setError("%s is not available here", item.Label)
		return m, nil
	}

	switch {
	case action == menu.ActionEdit:
		m.state = next
		m.openEditModal()
		return m, nil
	case action == menu.ActionRemove:
		m.setStatus("Removed %s (R to restore)", target)
	case action == menu.ActionUndo:
		m.setStatus("Undone")
	case menu.IsAdd(action):
		for _, e := range next.Elements() {
			if _, old := before[e.ID()]; !old && e.IsNode() {
				m.cursor = e.ID()
				m.setStatus("Added %s", e.ID())
				break
			}
		}
	}
	return m.commit(next)
}

func (m Model) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.edit, cmd = m.edit.Update(msg)
	switch {
	case m.edit.IsSaveRequested():
		m.mode = modeCanvas
		id := m.state.EditTarget().ID()
		m.setStatus("Updated %s", id)
		return m.commit(m.state.SubmitEdit(m.edit.Data()))
	case m.edit.IsCancelRequested():
		m.mode = modeCanvas
		m.state = m.state.CloseEdit()
		return m, nil
	}
	return m, cmd
}

func (m Model) updateExport(msg tea.Msg) (tea.Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok && km.String() == "esc" {
		m.mode = modeCanvas
		m.setStatus("Export cancelled")
		return m, nil
	}
	var cmd tea.Cmd
	m.exportForm, cmd = m.exportForm.Update(msg)
	switch {
	case m.exportForm.Aborted():
		m.mode = modeCanvas
		m.setStatus("Export cancelled")
		return m, nil
	case m.exportForm.Done():
		return m.startExport()
	}
	return m, cmd
}

// startExport saves the image chosen in the export form. The visible area
// is the viewport as currently shown.
func (m Model) startExport() (tea.Model, tea.Cmd) {
	m.mode = modeCanvas
	opts := m.exportForm.Options()
	if m.exportForm.Visible() {
		opts.Window = m.state.VisibleRect()
	}
	path, _, err := export.Target(opts)
	if err != nil {
		m.setError("Export failed: %v", err)
		return m, nil
	}
	m.state = m.state.BeginExport("file://" + path)
	m.setStatus("Saving %s…", path)
	return m, ExportCmd(m.state.Elements(), opts)
}

func (m Model) copyCursor() (tea.Model, tea.Cmd) {
	el, ok := m.state.Element(m.cursor)
	if !ok {
		m.setStatus("Nothing selected")
		return m, nil
	}
	data, err := json.MarshalIndent(el, "", "  ")
	if err == nil {
		err = clipboardWrite(string(data))
	}
	if err != nil {
		m.setError("Copy failed: %v", err)
		return m, nil
	}
	m.setStatus("Copied %s", el.ID())
	return m, nil
}

func (m *Model) cycleCursor(step int) {
	els := m.state.Elements()
	if len(els) == 0 {
		return
	}
	i := element.Index(els)[m.cursor]
	if _, ok := m.state.Element(m.cursor); !ok {
		i = -step
	}
	m.cursor = els[(i+step+len(els))%len(els)].ID()
}

// moveCursor jumps to the nearest node in direction (dx, dy). Off-axis
// distance counts double.
func (m *Model) moveCursor(dx, dy int) {
	from, ok := m.anchor()
	if !ok {
		m.fixCursor()
		return
	}
	best, bestScore := "", math.Inf(1)
	for _, e := range m.state.Elements() {
		if !e.IsNode() || e.Position == nil || e.ID() == m.cursor {
			continue
		}
		ax, ay := e.Position.X-from.X, e.Position.Y-from.Y
		along := ax*float64(dx) + ay*float64(dy)
		if along <= 0 {
			continue
		}
		across := math.Abs(ax*float64(dy)) + math.Abs(ay*float64(dx))
		if score := along + 2*across; score < bestScore {
			best, bestScore = e.ID(), score
		}
	}
	if best != "" {
		m.cursor = best
	}
}

// anchor is the position of the cursor node, or of an edge cursor's source.
func (m Model) anchor() (element.Position, bool) {
	el, ok := m.state.Element(m.cursor)
	if !ok {
		return element.Position{}, false
	}
	if el.IsEdge() {
		if el, ok = m.state.Element(el.Data.Source()); !ok {
			return element.Position{}, false
		}
	}
	if el.Position == nil {
		return element.Position{}, false
	}
	return *el.Position, true
}
