package datasource

import (
	"context"
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/graphcanvas/pkg/element"
	"github.com/vanderheijden86/graphcanvas/pkg/metrics"
)

// LoadElements returns the top-level elements of the source at path,
// dispatching on DetectSource.
func LoadElements(ctx context.Context, path string) ([]element.Element, error) {
	defer metrics.Timer(metrics.ElementsLoad)()

	typ, err := DetectSource(path)
	if err != nil {
		return nil, err
	}
	switch typ {
	case SourceSQLite:
		store, err := OpenReadOnly(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite source %s: %w", path, err)
		}
		defer store.Close()
		return store.TopElements(ctx)

	case SourceJSON, SourceYAML:
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read elements: %w", err)
		}
		if typ == SourceYAML {
			return element.ParseYAML(data)
		}
		return element.Parse(data)

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSource, typ)
	}
}

// rawDocument is the on-disk import format. Each field holds an element
// collection in either accepted shape.
type rawDocument struct {
	Top   any `json:"top" yaml:"top"`
	Graph any `json:"graph" yaml:"graph"`
}

// ReadDocument parses an import document from a JSON or YAML file:
//
//	{"top": [...], "graph": {"nodes": [...], "edges": [...]}}
//
// When "top" is absent the root nodes of the graph (those without incoming
// edges) become the top-level elements.
func ReadDocument(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Document{}, fmt.Errorf("read document: %w", err)
	}
	typ, err := DetectSource(path)
	if err != nil {
		return Document{}, err
	}

	var raw rawDocument
	switch typ {
	case SourceJSON:
		err = json.Unmarshal(data, &raw)
	case SourceYAML:
		err = yaml.Unmarshal(data, &raw)
	default:
		return Document{}, fmt.Errorf("%w: documents must be JSON or YAML", ErrUnknownSource)
	}
	if err != nil {
		return Document{}, fmt.Errorf("parse document: %w", err)
	}

	var doc Document
	if doc.Graph, err = collection(raw.Graph); err != nil {
		return Document{}, fmt.Errorf("graph: %w", err)
	}
	if doc.Top, err = collection(raw.Top); err != nil {
		return Document{}, fmt.Errorf("top: %w", err)
	}
	if raw.Top == nil {
		doc.Top = Roots(doc.Graph)
	}
	return doc, nil
}

func collection(v any) ([]element.Element, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return element.Parse(data)
}

// Roots returns the nodes of els without incoming edges.
func Roots(els []element.Element) []element.Element {
	hasParent := make(map[string]bool)
	for _, e := range els {
		if e.IsEdge() && e.Data.Source() != e.Data.Target() {
			hasParent[e.Data.Target()] = true
		}
	}
	var out []element.Element
	for _, e := range els {
		if e.IsNode() && !hasParent[e.ID()] {
			out = append(out, e.Clone())
		}
	}
	return out
}
