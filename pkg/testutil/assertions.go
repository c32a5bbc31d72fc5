package testutil

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/graphcanvas/pkg/element"
)

// AssertElementCount verifies the number of nodes and edges.
func AssertElementCount(t *testing.T, els []element.Element, nodes, edges int) {
	t.Helper()
	var n, e int
	for _, el := range els {
		switch {
		case el.IsNode():
			n++
		case el.IsEdge():
			e++
		}
	}
	if n != nodes || e != edges {
		t.Errorf("expected %d nodes / %d edges, got %d / %d", nodes, edges, n, e)
	}
}

// AssertNoDuplicateIDs verifies all element ids are unique.
func AssertNoDuplicateIDs(t *testing.T, els []element.Element) {
	t.Helper()
	seen := make(map[string]bool)
	for _, el := range els {
		if seen[el.ID()] {
			t.Errorf("duplicate element id: %s", el.ID())
		}
		seen[el.ID()] = true
	}
}

// AssertEdgesResolved verifies every edge endpoint is a node in els.
func AssertEdgesResolved(t *testing.T, els []element.Element) {
	t.Helper()
	nodes := make(map[string]bool)
	for _, el := range els {
		if el.IsNode() {
			nodes[el.ID()] = true
		}
	}
	for _, el := range els {
		if !el.IsEdge() {
			continue
		}
		if !nodes[el.Data.Source()] || !nodes[el.Data.Target()] {
			t.Errorf("edge %s has a dangling endpoint (%s -> %s)", el.ID(), el.Data.Source(), el.Data.Target())
		}
	}
}

// AssertHasElement verifies an element with id is present.
func AssertHasElement(t *testing.T, els []element.Element, id string) element.Element {
	t.Helper()
	el, ok := element.Find(els, id)
	if !ok {
		t.Errorf("element %s not found in %v", id, IDs(els))
	}
	return el
}

// AssertNoElement verifies no element with id is present.
func AssertNoElement(t *testing.T, els []element.Element, id string) {
	t.Helper()
	if _, ok := element.Find(els, id); ok {
		t.Errorf("element %s unexpectedly present", id)
	}
}

// AssertJSONEqual compares two values after JSON encoding.
func AssertJSONEqual(t *testing.T, expected, actual any) {
	t.Helper()
	want, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}
	got, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}
	if string(want) != string(got) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual:   %s", want, got)
	}
}

// GoldenFile handles golden file comparisons.
type GoldenFile struct {
	t      *testing.T
	dir    string
	name   string
	update bool
}

// NewGoldenFile creates a golden file helper. Setting GENERATE_GOLDEN
// rewrites the golden files instead of comparing.
func NewGoldenFile(t *testing.T, dir, name string) *GoldenFile {
	t.Helper()
	return &GoldenFile{
		t:      t,
		dir:    dir,
		name:   name,
		update: os.Getenv("GENERATE_GOLDEN") != "",
	}
}

// Path returns the full path to the golden file.
func (g *GoldenFile) Path() string {
	return filepath.Join(g.dir, g.name)
}

// Assert compares actual against the golden file.
func (g *GoldenFile) Assert(actual string) {
	g.t.Helper()
	path := g.Path()
	if g.update {
		if err := os.MkdirAll(g.dir, 0o755); err != nil {
			g.t.Fatalf("failed to create golden dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(actual), 0o644); err != nil {
			g.t.Fatalf("failed to write golden file: %v", err)
		}
		g.t.Logf("updated golden file: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			g.t.Fatalf("golden file does not exist: %s\nRun with GENERATE_GOLDEN=1 to create it", path)
		}
		g.t.Fatalf("failed to read golden file: %v", err)
	}
	if string(expected) == actual {
		return
	}
	want := strings.Split(string(expected), "\n")
	got := strings.Split(actual, "\n")
	for i := 0; i < len(want) || i < len(got); i++ {
		var w, a string
		if i < len(want) {
			w = want[i]
		}
		if i < len(got) {
			a = got[i]
		}
		if w != a {
			g.t.Errorf("golden file mismatch at line %d:\nexpected: %s\nactual:   %s", i+1, w, a)
			return
		}
	}
	g.t.Errorf("golden file mismatch (length differs)")
}

// WriteElementsFile writes els as JSON into dir/name and returns the path.
func WriteElementsFile(t *testing.T, dir, name string, els []element.Element) string {
	t.Helper()
	data, err := element.Marshal(els)
	if err != nil {
		t.Fatalf("marshal elements: %v", err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write elements file: %v", err)
	}
	return path
}

// IDs returns the sorted element ids.
func IDs(els []element.Element) []string {
	ids := make([]string, 0, len(els))
	for _, el := range els {
		ids = append(ids, el.ID())
	}
	sort.Strings(ids)
	return ids
}
