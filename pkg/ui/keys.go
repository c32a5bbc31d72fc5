package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap lists the canvas bindings. It implements help.KeyMap.
type KeyMap struct {
	Expand   key.Binding
	Menu     key.Binding
	CoreMenu key.Binding
	Edit     key.Binding
	Remove   key.Binding
	Restore  key.Binding
	Undo     key.Binding
	Reload   key.Binding
	Collapse key.Binding
	Fit      key.Binding
	Export   key.Binding
	Copy     key.Binding
	Sidebar  key.Binding
	ZoomIn   key.Binding
	ZoomOut  key.Binding
	PanLeft  key.Binding
	PanDown  key.Binding
	PanUp    key.Binding
	PanRight key.Binding
	Next     key.Binding
	Prev     key.Binding
	Left     key.Binding
	Right    key.Binding
	Up       key.Binding
	Down     key.Binding
	Help     key.Binding
	Quit     key.Binding
}

// DefaultKeyMap is the standard binding set.
var DefaultKeyMap = KeyMap{
	Expand:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "expand")),
	Menu:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "menu")),
	CoreMenu: key.NewBinding(key.WithKeys("M"), key.WithHelp("M", "canvas menu")),
	Edit:     key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
	Remove:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "remove")),
	Restore:  key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "restore")),
	Undo:     key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "undo")),
	Reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
	Collapse: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "collapse")),
	Fit:      key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "fit")),
	Export:   key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save image")),
	Copy:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy json")),
	Sidebar:  key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "details")),
	ZoomIn:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+/-", "zoom")),
	ZoomOut:  key.NewBinding(key.WithKeys("-", "_")),
	PanLeft:  key.NewBinding(key.WithKeys("H"), key.WithHelp("HJKL", "pan")),
	PanDown:  key.NewBinding(key.WithKeys("J")),
	PanUp:    key.NewBinding(key.WithKeys("K")),
	PanRight: key.NewBinding(key.WithKeys("L")),
	Next:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next element")),
	Prev:     key.NewBinding(key.WithKeys("shift+tab")),
	Left:     key.NewBinding(key.WithKeys("left", "h")),
	Right:    key.NewBinding(key.WithKeys("right", "l")),
	Up:       key.NewBinding(key.WithKeys("up", "k")),
	Down:     key.NewBinding(key.WithKeys("down", "j")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Expand, k.Menu, k.Export, k.Undo, k.Fit, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Expand, k.Menu, k.CoreMenu, k.Edit, k.Remove, k.Restore},
		{k.Undo, k.Reload, k.Collapse, k.Export, k.Copy, k.Sidebar},
		{k.Fit, k.ZoomIn, k.PanLeft, k.Next, k.Help, k.Quit},
	}
}
