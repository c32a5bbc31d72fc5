package export

import (
	"bytes"
	"encoding/xml"
	"errors"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/graphcanvas/pkg/element"
	"github.com/vanderheijden86/graphcanvas/pkg/layout"
	"github.com/vanderheijden86/graphcanvas/pkg/testutil"
)

func shapedGraph() []element.Element {
	g := testutil.New(testutil.GeneratorConfig{
		Shapes: []string{"diamond", "ellipse", "rectangle", "roundrectangle", "hexagon", "triangle"},
		Types:  []string{"event", "entity", "gate"},
	})
	return g.ToElements(g.Tree(2, 3))
}

func TestSaveImage_PNGAndSVG(t *testing.T) {
	els := shapedGraph()
	tmp := t.TempDir()

	cases := []struct {
		name   string
		file   string
		format Format
	}{
		{"png default", "", ""},
		{"svg by extension", "graph.svg", ""},
		{"explicit svg without extension", "snapshot", FormatSVG},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.Dir = tmp
			opts.FileName = tc.file
			opts.Format = tc.format

			path, err := SaveImage(els, opts)
			if err != nil {
				t.Fatalf("SaveImage: %v", err)
			}
			info, err := os.Stat(path)
			if err != nil {
				t.Fatalf("output not created: %v", err)
			}
			if info.Size() == 0 {
				t.Fatal("output file is empty")
			}
		})
	}

	entries, err := os.ReadDir(tmp)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".gcv-export-") {
			t.Errorf("temporary file left behind: %s", e.Name())
		}
	}
	for _, want := range []string{"graph.png", "graph.svg", "snapshot.svg"} {
		if _, err := os.Stat(filepath.Join(tmp, want)); err != nil {
			t.Errorf("expected %s: %v", want, err)
		}
	}
}

func TestSaveImage_Errors(t *testing.T) {
	tmp := t.TempDir()
	opts := DefaultOptions()
	opts.Dir = tmp

	if _, err := SaveImage(nil, opts); !errors.Is(err, ErrNoElements) {
		t.Errorf("expected ErrNoElements, got %v", err)
	}
	edgesOnly := []element.Element{testutil.Edge("a", "b")}
	if _, err := SaveImage(edgesOnly, opts); !errors.Is(err, ErrNoElements) {
		t.Errorf("edges without nodes: expected ErrNoElements, got %v", err)
	}

	opts.FileName = "graph.txt"
	if _, err := SaveImage(testutil.QuickChain(2), opts); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}

	entries, _ := os.ReadDir(tmp)
	if len(entries) != 0 {
		t.Errorf("failed exports must leave nothing behind, found %d entries", len(entries))
	}
}

func TestRenderPNG_ScaleAndBackground(t *testing.T) {
	els := layout.Apply(testutil.QuickChain(2), layout.Run(testutil.QuickChain(2), layout.DefaultOptions()))
	opts := DefaultOptions()

	var buf bytes.Buffer
	if err := RenderPNG(&buf, els, opts); err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	b := layout.Bounds(els, true)
	wantW := int((b.W() + 2*opts.Layout.Padding) * opts.Scale)
	if got := img.Bounds().Dx(); got < wantW || got > wantW+1 {
		t.Errorf("width = %d, want about %d", got, wantW)
	}

	r, g, bl, _ := img.At(0, 0).RGBA()
	if r>>8 != 0xff || g>>8 != 0xff || bl>>8 != 0xff {
		t.Errorf("expected white background, got %x %x %x", r>>8, g>>8, bl>>8)
	}
}

func TestRenderPNG_Window(t *testing.T) {
	els := layout.Apply(testutil.QuickChain(4), layout.Run(testutil.QuickChain(4), layout.DefaultOptions()))
	opts := DefaultOptions()
	opts.Scale = 1
	opts.Window = &layout.Rect{X1: 10, Y1: 20, X2: 110, Y2: 70}

	var buf bytes.Buffer
	if err := RenderPNG(&buf, els, opts); err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := img.Bounds(); got.Dx() != 100 || got.Dy() != 50 {
		t.Errorf("size = %dx%d, want the 100x50 window", got.Dx(), got.Dy())
	}

	// A degenerate window falls back to the whole graph.
	opts.Window = &layout.Rect{}
	sc := buildScene(els, opts)
	b := layout.Bounds(els, opts.Layout.IncludeLabels)
	if sc.Width != b.W()+2*opts.Layout.Padding {
		t.Errorf("width = %v, want whole graph %v", sc.Width, b.W()+2*opts.Layout.Padding)
	}
}

func TestRenderSVG_ValidXML(t *testing.T) {
	els := shapedGraph()
	els = append(els, testutil.Node("esc", element.KeyLabel, `<&"odd">`))

	var buf bytes.Buffer
	if err := RenderSVG(&buf, els, DefaultOptions()); err != nil {
		t.Fatalf("RenderSVG: %v", err)
	}
	dec := xml.NewDecoder(&buf)
	var root string
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("SVG is not valid XML: %v", err)
		}
		if se, ok := tok.(xml.StartElement); ok && root == "" {
			root = se.Name.Local
		}
	}
	if root != "svg" {
		t.Errorf("root element = %q, want svg", root)
	}
}

func TestRenderSVG_ContainsShapes(t *testing.T) {
	els := []element.Element{
		testutil.Node("a", element.KeyShape, "diamond"),
		testutil.Node("b", element.KeyShape, "roundrectangle"),
		testutil.Node("c"),
		testutil.Edge("a", "b"),
		testutil.Edge("a", "c"),
	}
	var buf bytes.Buffer
	if err := RenderSVG(&buf, els, DefaultOptions()); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	for _, want := range []string{"<polygon", "<rect", "<ellipse", "<line", ">a<", ">b<"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in SVG output", want)
		}
	}
	if n := strings.Count(out, "<line"); n != 2 {
		t.Errorf("expected 2 edges, got %d", n)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"png", FormatPNG, false},
		{".SVG", FormatSVG, false},
		{"", FormatPNG, false},
		{"jpeg", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestParseHexColor(t *testing.T) {
	if c := ParseHexColor("#000"); c.R != 0 || c.A != 0xff {
		t.Errorf("short form: %+v", c)
	}
	if c := ParseHexColor("#336699"); c.R != 0x33 || c.G != 0x66 || c.B != 0x99 {
		t.Errorf("long form: %+v", c)
	}
	if c := ParseHexColor("nope"); c.R != 0xff || c.G != 0xff {
		t.Errorf("invalid input should fall back to white: %+v", c)
	}
}

func TestBoxEdgeStaysOnBorder(t *testing.T) {
	n := sceneNode{CX: 0, CY: 0, W: 40, H: 20}
	p := boxEdge(n, point{100, 0})
	if p.X != 20 || p.Y != 0 {
		t.Errorf("boxEdge right = %+v", p)
	}
	p = boxEdge(n, point{0, -100})
	if p.X != 0 || p.Y != -10 {
		t.Errorf("boxEdge up = %+v", p)
	}
}
