package datasource

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/vanderheijden86/graphcanvas/pkg/element"
	"github.com/vanderheijden86/graphcanvas/pkg/remote"
	"github.com/vanderheijden86/graphcanvas/pkg/testutil"
)

var _ remote.SubtreeSource = (*Store)(nil)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// graphDoc is a -> b -> c, a -> d, with c -> a closing a cycle and an
// unrelated island x.
func graphDoc() Document {
	graph := []element.Element{
		testutil.Node("a"), testutil.Node("b"), testutil.Node("c"), testutil.Node("d"), testutil.Node("x"),
		testutil.Edge("a", "b"), testutil.Edge("b", "c"), testutil.Edge("a", "d"), testutil.Edge("c", "a"),
	}
	return Document{Top: []element.Element{testutil.Node("a"), testutil.Node("x")}, Graph: graph}
}

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "graph.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Import(context.Background(), graphDoc()); err != nil {
		t.Fatalf("Import: %v", err)
	}
	return s
}

func TestStore_TopElements(t *testing.T) {
	s := openStore(t)
	top, err := s.TopElements(context.Background())
	if err != nil {
		t.Fatalf("TopElements: %v", err)
	}
	if got := []string{top[0].ID(), top[1].ID()}; len(top) != 2 || !reflect.DeepEqual(got, []string{"a", "x"}) {
		t.Errorf("unexpected top elements %v", testutil.IDs(top))
	}
}

func TestStore_Subtree(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	sub, err := s.Subtree(ctx, "b")
	if err != nil {
		t.Fatalf("Subtree: %v", err)
	}
	want := []string{"a", "a->b", "a->d", "b", "b->c", "c", "c->a", "d"}
	if got := testutil.IDs(sub); !reflect.DeepEqual(got, want) {
		t.Errorf("Subtree(b) = %v, want %v", got, want)
	}
	testutil.AssertEdgesResolved(t, sub)

	leaf, err := s.Subtree(ctx, "x")
	if err != nil {
		t.Fatal(err)
	}
	if len(leaf) != 1 || leaf[0].ID() != "x" {
		t.Errorf("Subtree(x) = %v", testutil.IDs(leaf))
	}

	if _, err := s.Subtree(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := s.Subtree(ctx, "a->b"); !errors.Is(err, ErrNotFound) {
		t.Errorf("edges are not subtree roots, got %v", err)
	}
}

func TestStore_ImportReplaces(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	if err := s.Import(ctx, Document{Top: testutil.QuickChain(2)}); err != nil {
		t.Fatal(err)
	}
	nodes, edges, err := s.Counts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if nodes != 2 || edges != 1 {
		t.Errorf("expected 2 nodes / 1 edge after reimport, got %d / %d", nodes, edges)
	}
}

func TestStore_PreservesDataAndPosition(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "g.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	n := testutil.Node("p", element.KeyShape, "diamond")
	n.Data["weight"] = 2.5
	n = n.WithPosition(element.Position{X: 3, Y: 4})
	if err := s.Import(context.Background(), Document{Top: []element.Element{n}}); err != nil {
		t.Fatal(err)
	}
	top, err := s.TopElements(context.Background())
	if err != nil || len(top) != 1 {
		t.Fatalf("TopElements: %v %v", top, err)
	}
	if !reflect.DeepEqual(top[0].Data, n.Data) {
		t.Errorf("data mismatch: %v vs %v", top[0].Data, n.Data)
	}
	if top[0].Position == nil || *top[0].Position != (element.Position{X: 3, Y: 4}) {
		t.Errorf("position mismatch: %+v", top[0].Position)
	}
}

func TestOpenReadOnly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ro.db")
	s, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Import(context.Background(), graphDoc()); err != nil {
		t.Fatal(err)
	}
	s.Close()

	ro, err := OpenReadOnly(path)
	if err != nil {
		t.Fatalf("OpenReadOnly: %v", err)
	}
	defer ro.Close()
	if err := ro.Import(context.Background(), graphDoc()); err == nil {
		t.Error("expected writes to fail on a read-only store")
	}
}

func TestDetectSource(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "store.bin")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	s.Import(context.Background(), graphDoc())
	s.Close()

	tests := []struct {
		name    string
		path    string
		want    SourceType
		wantErr bool
	}{
		{"json ext", writeFile(t, dir, "a.json", `[]`), SourceJSON, false},
		{"yaml ext", writeFile(t, dir, "a.yml", `- data: {id: a}`), SourceYAML, false},
		{"sniffed json", writeFile(t, dir, "elements", `  {"nodes": []}`), SourceJSON, false},
		{"sqlite magic", dbPath, SourceSQLite, false},
		{"unknown", writeFile(t, dir, "notes.txt", `hello`), "", true},
		{"missing", filepath.Join(dir, "nope.json"), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectSource(tt.path)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DetectSource err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("DetectSource = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestLoadElements(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	jsonPath := testutil.WriteElementsFile(t, dir, "els.json", testutil.QuickChain(3))
	els, err := LoadElements(ctx, jsonPath)
	if err != nil {
		t.Fatalf("LoadElements json: %v", err)
	}
	testutil.AssertElementCount(t, els, 3, 2)

	yamlPath := writeFile(t, dir, "els.yaml", "nodes:\n  - data: {id: a}\n  - data: {id: b}\nedges:\n  - data: {source: a, target: b}\n")
	els, err = LoadElements(ctx, yamlPath)
	if err != nil {
		t.Fatalf("LoadElements yaml: %v", err)
	}
	testutil.AssertHasElement(t, els, "a->b")

	dbPath := filepath.Join(dir, "g.db")
	s, err := Open(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Import(ctx, graphDoc()); err != nil {
		t.Fatal(err)
	}
	s.Close()
	els, err = LoadElements(ctx, dbPath)
	if err != nil {
		t.Fatalf("LoadElements sqlite: %v", err)
	}
	if len(els) != 2 {
		t.Errorf("expected the two top-level nodes, got %v", testutil.IDs(els))
	}
}

func TestReadDocument(t *testing.T) {
	dir := t.TempDir()

	explicit := writeFile(t, dir, "doc.json", `{
		"top": [{"data": {"id": "a"}}],
		"graph": {"nodes": [{"data": {"id": "a"}}, {"data": {"id": "b"}}],
		          "edges": [{"data": {"source": "a", "target": "b"}}]}
	}`)
	doc, err := ReadDocument(explicit)
	if err != nil {
		t.Fatalf("ReadDocument: %v", err)
	}
	if len(doc.Top) != 1 || len(doc.Graph) != 3 {
		t.Errorf("unexpected document %d top / %d graph", len(doc.Top), len(doc.Graph))
	}

	implicit := writeFile(t, dir, "doc.yaml", `
graph:
  - data: {id: root}
  - data: {id: leaf}
  - data: {source: root, target: leaf}
  - data: {id: lone}
`)
	doc, err = ReadDocument(implicit)
	if err != nil {
		t.Fatalf("ReadDocument yaml: %v", err)
	}
	if got := testutil.IDs(doc.Top); !reflect.DeepEqual(got, []string{"lone", "root"}) {
		t.Errorf("expected roots as top, got %v", got)
	}
}
