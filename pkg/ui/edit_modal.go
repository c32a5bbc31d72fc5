package ui

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/graphcanvas/pkg/element"
)

// EditFieldType defines the type of edit field
type EditFieldType int

const (
	EditFieldText EditFieldType = iota
	EditFieldTextArea
	EditFieldSelect
)

// shapeOptions are the node shapes the renderers draw.
var shapeOptions = []string{"ellipse", "diamond", "rectangle", "roundrectangle", "triangle", "hexagon"}

// EditField is one editable data attribute.
type EditField struct {
	Label    string
	Key      string // data key
	Type     EditFieldType
	Input    textinput.Model
	TextArea textarea.Model
	Options  []string
	Selected int
	Original string
	raw      any // original value, kept when the text is unchanged
}

// EditModal edits the data of one element. The id, source and target are
// shown but cannot be changed.
type EditModal struct {
	fields       []EditField
	focusedField int
	width        int
	height       int
	theme        Theme
	data         element.Data
	isEdge       bool

	dirty           bool
	saveRequested   bool
	cancelRequested bool
}

// NewEditModal creates a modal pre-populated from d.
func NewEditModal(d element.Data, theme Theme) EditModal {
	m := EditModal{
		theme:  theme,
		data:   d.Clone(),
		isEdge: d.Source() != "" && d.Target() != "",
	}

	m.fields = append(m.fields, makeTextField("Label", element.KeyLabel, d[element.KeyLabel]))
	if !m.isEdge {
		shape := d.String(element.KeyShape)
		if shape == "" {
			shape = "ellipse"
		}
		m.fields = append(m.fields,
			makeSelectField("Shape", element.KeyShape, shape, shapeOptions),
			makeTextField("Type", element.KeyType, d[element.KeyType]),
		)
	}
	for _, k := range d.Keys() {
		switch k {
		case element.KeyID, element.KeySource, element.KeyTarget,
			element.KeyLabel, element.KeyShape, element.KeyType:
			continue
		}
		if s, ok := d[k].(string); ok && strings.Contains(s, "\n") {
			m.fields = append(m.fields, makeTextAreaField(k, k, s))
			continue
		}
		m.fields = append(m.fields, makeTextField(k, k, d[k]))
	}
	m.fields[0] = m.focusField(m.fields[0])
	return m
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

func makeTextField(label, key string, value any) EditField {
	ti := textinput.New()
	ti.SetValue(formatValue(value))
	ti.CharLimit = 200
	ti.Width = 50
	return EditField{
		Label:    label,
		Key:      key,
		Type:     EditFieldText,
		Input:    ti,
		Original: ti.Value(),
		raw:      value,
	}
}

func makeTextAreaField(label, key, value string) EditField {
	ta := textarea.New()
	ta.SetValue(value)
	ta.SetWidth(50)
	ta.SetHeight(3)
	ta.CharLimit = 5000
	return EditField{
		Label:    label,
		Key:      key,
		Type:     EditFieldTextArea,
		TextArea: ta,
		Original: value,
		raw:      value,
	}
}

func makeSelectField(label, key, value string, options []string) EditField {
	selected := 0
	for i, opt := range options {
		if opt == value {
			selected = i
			break
		}
	}
	return EditField{
		Label:    label,
		Key:      key,
		Type:     EditFieldSelect,
		Options:  options,
		Selected: selected,
		Original: value,
		raw:      value,
	}
}

// Update handles input for the edit modal
func (m EditModal) Update(msg tea.Msg) (EditModal, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch keyMsg.String() {
	case "ctrl+s":
		m.saveRequested = true
		return m, nil
	case "esc":
		m.cancelRequested = true
		return m, nil
	case "tab", "shift+tab":
		step := 1
		if keyMsg.String() == "shift+tab" {
			step = len(m.fields) - 1
		}
		m.fields[m.focusedField] = m.blurField(m.fields[m.focusedField])
		m.focusedField = (m.focusedField + step) % len(m.fields)
		m.fields[m.focusedField] = m.focusField(m.fields[m.focusedField])
		return m, nil
	case "left", "right":
		if f := &m.fields[m.focusedField]; f.Type == EditFieldSelect {
			n := len(f.Options)
			if keyMsg.String() == "left" {
				f.Selected = (f.Selected - 1 + n) % n
			} else {
				f.Selected = (f.Selected + 1) % n
			}
			m.updateDirtyFlag()
			return m, nil
		}
	}

	var cmd tea.Cmd
	field := &m.fields[m.focusedField]
	switch field.Type {
	case EditFieldText:
		field.Input, cmd = field.Input.Update(msg)
	case EditFieldTextArea:
		field.TextArea, cmd = field.TextArea.Update(msg)
	}
	m.updateDirtyFlag()
	return m, cmd
}

func (m EditModal) focusField(field EditField) EditField {
	switch field.Type {
	case EditFieldText:
		field.Input.Focus()
	case EditFieldTextArea:
		field.TextArea.Focus()
	}
	return field
}

func (m EditModal) blurField(field EditField) EditField {
	switch field.Type {
	case EditFieldText:
		field.Input.Blur()
	case EditFieldTextArea:
		field.TextArea.Blur()
	}
	return field
}

func (m *EditModal) updateDirtyFlag() {
	m.dirty = false
	for _, field := range m.fields {
		if currentValue(field) != field.Original {
			m.dirty = true
			return
		}
	}
}

func currentValue(field EditField) string {
	switch field.Type {
	case EditFieldText:
		return field.Input.Value()
	case EditFieldTextArea:
		return field.TextArea.Value()
	case EditFieldSelect:
		if field.Selected >= 0 && field.Selected < len(field.Options) {
			return field.Options[field.Selected]
		}
	}
	return ""
}

// parseValue keeps numbers and booleans typed when the user edits them.
func parseValue(s string) any {
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	if b, err := strconv.ParseBool(s); err == nil && (s == "true" || s == "false") {
		return b
	}
	return s
}

// Data returns the edited attributes. Unchanged fields keep their original
// values and types. Fields cleared to "" are dropped, except the label.
func (m EditModal) Data() element.Data {
	out := m.data.Clone()
	for _, f := range m.fields {
		cur := currentValue(f)
		if cur == f.Original {
			continue
		}
		switch {
		case cur == "" && f.Key != element.KeyLabel:
			delete(out, f.Key)
		case f.Type == EditFieldText && f.Key != element.KeyLabel:
			if _, wasString := f.raw.(string); wasString {
				out[f.Key] = cur
			} else {
				out[f.Key] = parseValue(cur)
			}
		default:
			out[f.Key] = cur
		}
	}
	return out
}

func (m EditModal) View() string {
	r := m.theme.Renderer

	boxWidth := clampInt(m.width-10, 60, 80)

	headerStyle := r.NewStyle().Bold(true).Foreground(m.theme.Primary)
	labelStyle := r.NewStyle().Foreground(m.theme.Secondary).Width(12).Align(lipgloss.Right)
	focusedLabelStyle := r.NewStyle().Foreground(m.theme.Primary).Bold(true).Width(12).Align(lipgloss.Right)
	selectStyle := r.NewStyle().Foreground(m.theme.Primary)
	subtextStyle := r.NewStyle().Foreground(m.theme.Subtext).Italic(true)

	var content strings.Builder
	title := fmt.Sprintf("Edit node: %s", m.data.ID())
	if m.isEdge {
		title = fmt.Sprintf("Edit edge: %s → %s", m.data.Source(), m.data.Target())
	}
	if m.dirty {
		title += " *"
	}
	content.WriteString(headerStyle.Render(title))
	content.WriteString("\n\n")

	for i, field := range m.fields {
		focused := i == m.focusedField
		label := truncate(field.Label, 11) + ":"
		if focused {
			content.WriteString(focusedLabelStyle.Render(label))
		} else {
			content.WriteString(labelStyle.Render(label))
		}
		content.WriteString(" ")

		switch field.Type {
		case EditFieldText:
			content.WriteString(field.Input.View())
		case EditFieldTextArea:
			lines := strings.Split(field.TextArea.View(), "\n")
			content.WriteString(strings.Join(lines, "\n"+strings.Repeat(" ", 13)))
			content.WriteString("\n")
		case EditFieldSelect:
			val := field.Options[field.Selected]
			if focused {
				val = selectStyle.Render(fmt.Sprintf("< %s >", val))
			}
			content.WriteString(val)
		}
		content.WriteString("\n")
	}

	content.WriteString("\n")
	instructions := "[Tab] Next field   [Ctrl+S] Save   [Esc] Cancel"
	if m.fields[m.focusedField].Type == EditFieldSelect {
		instructions = "[←/→] Change   " + instructions
	}
	content.WriteString(subtextStyle.Render(instructions))

	box := r.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(m.theme.Primary).
		Padding(1, 2).
		Width(boxWidth).
		Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

func (m *EditModal) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m EditModal) IsSaveRequested() bool   { return m.saveRequested }
func (m EditModal) IsCancelRequested() bool { return m.cancelRequested }
func (m EditModal) IsDirty() bool           { return m.dirty }
