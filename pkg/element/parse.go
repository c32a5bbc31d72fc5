package element

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// ErrEmptyInput is returned when there is nothing to parse.
var ErrEmptyInput = errors.New("empty element input")

// collection is the object form accepted by Parse:
// {"nodes": [...], "edges": [...]} optionally wrapped in {"elements": ...}.
type collection struct {
	Nodes    []Element `json:"nodes" yaml:"nodes"`
	Edges    []Element `json:"edges" yaml:"edges"`
	Elements any       `json:"elements" yaml:"elements"`
}

// Parse decodes a JSON element collection, either a flat array or an object
// with "nodes" and "edges" arrays, and returns it normalized.
func Parse(data []byte) ([]Element, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrEmptyInput
	}
	switch data[0] {
	case '[':
		var els []Element
		if err := json.Unmarshal(data, &els); err != nil {
			return nil, fmt.Errorf("decoding element array: %w", err)
		}
		return Normalize(els), nil
	case '{':
		var c collection
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("decoding element object: %w", err)
		}
		if c.Elements != nil {
			inner, err := json.Marshal(c.Elements)
			if err != nil {
				return nil, fmt.Errorf("re-encoding elements: %w", err)
			}
			return Parse(inner)
		}
		return fromCollection(c), nil
	default:
		return nil, fmt.Errorf("unexpected element input starting with %q", data[0])
	}
}

// ParseYAML decodes a YAML element collection in either accepted shape.
func ParseYAML(data []byte) ([]Element, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyInput
	}
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("parsing yaml elements: %w", err)
	}
	root := &node
	if root.Kind == yaml.DocumentNode && len(root.Content) > 0 {
		root = root.Content[0]
	}
	switch root.Kind {
	case yaml.SequenceNode:
		var els []Element
		if err := root.Decode(&els); err != nil {
			return nil, fmt.Errorf("decoding yaml element list: %w", err)
		}
		return Normalize(els), nil
	case yaml.MappingNode:
		var c collection
		if err := root.Decode(&c); err != nil {
			return nil, fmt.Errorf("decoding yaml element object: %w", err)
		}
		if c.Elements != nil {
			inner, err := yaml.Marshal(c.Elements)
			if err != nil {
				return nil, fmt.Errorf("re-encoding elements: %w", err)
			}
			return ParseYAML(inner)
		}
		return fromCollection(c), nil
	default:
		return nil, fmt.Errorf("unexpected yaml element document")
	}
}

// ReadFile loads elements from a .json, .yaml or .yml file.
func ReadFile(path string) ([]Element, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading elements: %w", err)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return ParseYAML(data)
	default:
		return Parse(data)
	}
}

// Marshal encodes elements as an indented JSON array.
func Marshal(els []Element) ([]byte, error) {
	if els == nil {
		els = []Element{}
	}
	return json.MarshalIndent(els, "", "  ")
}

func fromCollection(c collection) []Element {
	all := make([]Element, 0, len(c.Nodes)+len(c.Edges))
	for _, n := range c.Nodes {
		n.Group = GroupNodes
		all = append(all, n)
	}
	for _, e := range c.Edges {
		e.Group = GroupEdges
		all = append(all, e)
	}
	return Normalize(all)
}
