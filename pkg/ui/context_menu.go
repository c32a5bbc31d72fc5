package ui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/graphcanvas/pkg/element"
	"github.com/vanderheijden86/graphcanvas/pkg/menu"
)

// ContextMenu is the popup listing the actions that apply to one element, or
// to the canvas background when the target id is "".
type ContextMenu struct {
	targetID string
	title    string
	items    []menu.Item
	cursor   int

	chosen    menu.Action
	cancelled bool
}

// NewContextMenu builds the menu for target; nil is the background.
func NewContextMenu(target *element.Element) ContextMenu {
	cm := ContextMenu{items: menu.ItemsFor(target), title: "Canvas"}
	if target != nil {
		cm.targetID = target.ID()
		cm.title = target.Data.Label()
	}
	return cm
}

func (c ContextMenu) TargetID() string   { return c.targetID }
func (c ContextMenu) Items() []menu.Item { return c.items }

// Chosen returns the picked action once the user confirmed one.
func (c ContextMenu) Chosen() (menu.Action, bool) { return c.chosen, c.chosen != "" }

func (c ContextMenu) Cancelled() bool { return c.cancelled }

func (c ContextMenu) Update(msg tea.Msg) ContextMenu {
	km, ok := msg.(tea.KeyMsg)
	if !ok {
		return c
	}
	switch km.String() {
	case "esc", "q", "m", "M":
		c.cancelled = true
	case "up", "k", "shift+tab":
		if len(c.items) > 0 {
			c.cursor = (c.cursor - 1 + len(c.items)) % len(c.items)
		}
	case "down", "j", "tab":
		if len(c.items) > 0 {
			c.cursor = (c.cursor + 1) % len(c.items)
		}
	case "enter", " ":
		if len(c.items) == 0 {
			c.cancelled = true
			break
		}
		c.chosen = c.items[c.cursor].Action
	default:
		// digits pick directly
		if s := km.String(); len(s) == 1 && s[0] >= '1' && s[0] <= '9' {
			if i := int(s[0] - '1'); i < len(c.items) {
				c.cursor = i
				c.chosen = c.items[i].Action
			}
		}
	}
	return c
}

func (c ContextMenu) View(theme Theme) string {
	r := theme.Renderer
	var b strings.Builder
	b.WriteString(r.NewStyle().Bold(true).Foreground(theme.Primary).Render(truncate(c.title, 24)))
	b.WriteString("\n")
	if len(c.items) == 0 {
		b.WriteString(theme.HelpText.Render("no actions"))
	}
	for i, it := range c.items {
		line := padRight(string(rune('1'+i))+"  "+it.Label, 18)
		if i == c.cursor {
			line = theme.Cursor.Render(line)
		}
		b.WriteString(line)
		if i < len(c.items)-1 {
			b.WriteString("\n")
		}
	}
	return r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Padding(0, 1).
		Render(b.String())
}
