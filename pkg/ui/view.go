package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/graphcanvas/pkg/metrics"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading…"
	}
	defer metrics.Timer(metrics.UIRender)()

	switch m.mode {
	case modeEdit:
		return m.edit.View()
	case modeExport:
		box := m.theme.Renderer.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(m.theme.Primary).
			Padding(1, 2).
			Render(m.exportForm.View())
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
	}

	cols, rows := m.canvasSize()
	body := drawCanvas(m.displayed(), m.state.Viewport(), cols, rows, m.cursor, m.theme).String()
	if m.sidebarVisible() {
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, m.renderSidebar(rows))
	}

	var help string
	if m.showHelp {
		help = m.help.FullHelpView(m.keys.FullHelp())
	} else {
		help = m.help.ShortHelpView(m.keys.ShortHelp())
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.renderStatus(),
		help,
	)
}

func (m Model) renderHeader() string {
	nodes, edges := 0, 0
	for _, e := range m.state.Elements() {
		if e.IsNode() {
			nodes++
		} else {
			edges++
		}
	}
	title := m.opts.Title
	if title == "" {
		title = "graph canvas"
	}
	parts := []string{
		m.theme.Header.Render(" " + title + " "),
		fmt.Sprintf("%d nodes · %d edges", nodes, edges),
		fmt.Sprintf("zoom %.0f%%", m.state.Viewport().Zoom*100),
	}
	if m.state.HasSubtree() {
		parts = append(parts, "subtree")
	}
	if n := m.state.Pending(); n > 0 {
		parts = append(parts, fmt.Sprintf("loading %d", n))
	}
	if m.state.Exporting() {
		parts = append(parts, "saving")
	}
	return truncate(strings.Join(parts, "  "), max(m.width, 1))
}

func (m Model) renderStatus() string {
	if m.statusMsg == "" {
		return m.theme.HelpText.Render(truncate("enter expand · m menu · s save image · ? help", max(m.width, 1)))
	}
	style := m.theme.StatusOK
	if m.statusIsError {
		style = m.theme.StatusErr
	}
	return style.Render(truncate(m.statusMsg, max(m.width, 1)))
}

// renderSidebar stacks the open menu over the details of the sidebar element.
func (m Model) renderSidebar(rows int) string {
	width := sidebarWidth - 1
	var sections []string
	if m.mode == modeMenu {
		sections = append(sections, m.menu.View(m.theme))
	}
	if d := m.state.Sidebar(); d != nil {
		sections = append(sections, m.sidebar.render(d, width))
	} else if m.mode != modeMenu {
		sections = append(sections, m.theme.HelpText.Render("No element selected"))
	}
	return m.theme.Renderer.NewStyle().
		Width(width).
		MaxWidth(width).
		Height(rows).
		MaxHeight(rows).
		PaddingLeft(1).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(m.theme.Border).
		Render(strings.Join(sections, "\n"))
}
