package ui

import (
	"errors"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/vanderheijden86/graphcanvas/pkg/export"
)

// exportValues is shared by pointer with the huh fields, so it survives
// copies of the model.
type exportValues struct {
	format  string
	path    string
	visible bool
}

// ExportForm asks for the image format and target path.
type ExportForm struct {
	form   *huh.Form
	values *exportValues
	base   export.Options
}

// NewExportForm builds the form, seeded from opts.
func NewExportForm(opts export.Options) ExportForm {
	path, format, err := export.Target(opts)
	if err != nil {
		path, format = filepath.Join(opts.Dir, export.DefaultFileName), export.FormatPNG
	}
	v := &exportValues{format: string(format), path: path, visible: true}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Format").
				Options(
					huh.NewOption("PNG image", string(export.FormatPNG)),
					huh.NewOption("SVG drawing", string(export.FormatSVG)),
				).
				Value(&v.format),
			huh.NewInput().
				Title("Save to").
				Value(&v.path).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return errors.New("a file name is required")
					}
					return nil
				}),
			huh.NewConfirm().
				Title("Area").
				Affirmative("Visible area").
				Negative("Whole graph").
				Value(&v.visible),
		),
	).WithTheme(huh.ThemeDracula()).WithShowHelp(false)

	return ExportForm{form: form, values: v, base: opts}
}

func (f ExportForm) Init() tea.Cmd { return f.form.Init() }

func (f ExportForm) Update(msg tea.Msg) (ExportForm, tea.Cmd) {
	m, cmd := f.form.Update(msg)
	if form, ok := m.(*huh.Form); ok {
		f.form = form
	}
	return f, cmd
}

func (f ExportForm) View() string { return f.form.View() }

func (f ExportForm) Done() bool    { return f.form.State == huh.StateCompleted }
func (f ExportForm) Aborted() bool { return f.form.State == huh.StateAborted }

func (f ExportForm) WithWidth(w int) ExportForm {
	f.form = f.form.WithWidth(w)
	return f
}

// Visible reports whether only the visible area should be exported.
func (f ExportForm) Visible() bool { return f.values.visible }

// Options returns the export options with the chosen format and path.
func (f ExportForm) Options() export.Options {
	opts := f.base
	path := strings.TrimSpace(f.values.path)
	opts.Dir, opts.FileName = filepath.Split(path)
	if opts.Dir == "" {
		opts.Dir = "."
	}
	opts.Format = export.Format(f.values.format)
	ext := "." + f.values.format
	if e := filepath.Ext(opts.FileName); e != "" && !strings.EqualFold(e, ext) {
		opts.FileName = strings.TrimSuffix(opts.FileName, e) + ext
	}
	return opts
}
