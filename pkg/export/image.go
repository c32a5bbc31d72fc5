// Package export renders canvas elements to PNG or SVG images.
package export

import (
	"errors"
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/vanderheijden86/graphcanvas/pkg/debug"
	"github.com/vanderheijden86/graphcanvas/pkg/element"
	"github.com/vanderheijden86/graphcanvas/pkg/layout"
	"github.com/vanderheijden86/graphcanvas/pkg/metrics"
)

// Format is an image format.
type Format string

const (
	FormatPNG Format = "png"
	FormatSVG Format = "svg"
)

// Export defaults.
const (
	DefaultFileName   = "graph.png"
	DefaultScale      = 1.5
	DefaultBackground = "#ffffff"
)

var (
	// ErrNoElements is returned when there are no nodes to draw.
	ErrNoElements = errors.New("no elements to export")
	// ErrUnsupportedFormat is returned for formats other than png and svg.
	ErrUnsupportedFormat = errors.New("unsupported image format")
)

// Options controls image export.
type Options struct {
	Dir        string  // target directory ("" = current directory)
	FileName   string  // target name; the extension selects the format when Format is empty
	Format     Format  // png or svg
	Scale      float64 // output pixels per model unit
	Background string  // CSS hex colour
	Layout     layout.Options

	// Window limits the image to a model-space region, such as the visible
	// viewport. nil draws the whole graph.
	Window *layout.Rect
}

// DefaultOptions returns the export defaults: PNG on a white background at
// scale 1.5, saved as graph.png.
func DefaultOptions() Options {
	return Options{
		Dir:        ".",
		FileName:   DefaultFileName,
		Scale:      DefaultScale,
		Background: DefaultBackground,
		Layout:     layout.DefaultOptions(),
	}
}

// ParseFormat parses a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))); f {
	case FormatPNG, FormatSVG:
		return f, nil
	case "":
		return FormatPNG, nil
	default:
		return "", fmt.Errorf("%w: %q (want png or svg)", ErrUnsupportedFormat, s)
	}
}

// Target resolves the output path and format for opts. A file name without
// an extension gets the format's extension.
func Target(opts Options) (string, Format, error) {
	name := opts.FileName
	if name == "" {
		name = DefaultFileName
	}
	format := opts.Format
	if format == "" {
		var err error
		if format, err = ParseFormat(filepath.Ext(name)); err != nil {
			return "", "", err
		}
	} else if _, err := ParseFormat(string(format)); err != nil {
		return "", "", err
	}
	if filepath.Ext(name) == "" {
		name += "." + string(format)
	}
	dir := opts.Dir
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, name), format, nil
}

// SaveImage renders els and writes the image atomically: it is drawn into a
// temporary file next to the target and renamed into place. The temporary file
// never outlives the call. It returns the written path.
func SaveImage(els []element.Element, opts Options) (string, error) {
	defer metrics.Timer(metrics.ImageExport)()

	path, format, err := Target(opts)
	if err != nil {
		return "", err
	}
	if !hasNodes(els) {
		return "", ErrNoElements
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".gcv-export-*")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	debug.Log("export: rendering %s via %s", path, tmpName)

	if err := Render(tmp, format, els, opts); err != nil {
		tmp.Close()
		return "", err
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return "", fmt.Errorf("rename export: %w", err)
	}
	return path, nil
}

// Render writes els to w in the given format.
func Render(w io.Writer, format Format, els []element.Element, opts Options) error {
	switch format {
	case FormatPNG, "":
		return RenderPNG(w, els, opts)
	case FormatSVG:
		return RenderSVG(w, els, opts)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

func hasNodes(els []element.Element) bool {
	for _, e := range els {
		if e.IsNode() {
			return true
		}
	}
	return false
}

// ParseHexColor parses #rgb or #rrggbb. Invalid input yields white.
func ParseHexColor(s string) color.RGBA {
	white := color.RGBA{0xff, 0xff, 0xff, 0xff}
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return white
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return white
	}
	return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 0xff}
}
