package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/graphcanvas/pkg/element"
)

const sidebarWidth = 36

// elementMarkdown describes d as a markdown heading plus attribute table.
func elementMarkdown(d element.Data) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", escapeMarkdown(d.Label()))
	if d.Source() != "" && d.Target() != "" {
		fmt.Fprintf(&b, "`%s` → `%s`\n\n", d.Source(), d.Target())
	}
	b.WriteString("| key | value |\n|---|---|\n")
	for _, k := range d.Keys() {
		fmt.Fprintf(&b, "| %s | %s |\n", escapeMarkdown(k), escapeMarkdown(formatAttr(d[k])))
	}
	return b.String()
}

func formatAttr(v any) string {
	switch v.(type) {
	case map[string]any, []any:
		data, err := json.Marshal(v)
		if err == nil {
			return string(data)
		}
	}
	return formatValue(v)
}

func escapeMarkdown(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}

// sidebarRenderer lazily builds the glamour renderer for the panel width.
type sidebarRenderer struct {
	width int
	r     *glamour.TermRenderer
}

func (s *sidebarRenderer) render(d element.Data, width int) string {
	md := elementMarkdown(d)
	if s.r == nil || s.width != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle("dark"),
			glamour.WithWordWrap(max(width-4, 10)),
		)
		if err != nil {
			return md
		}
		s.r, s.width = r, width
	}
	out, err := s.r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n ")
}
