//go:build ignore

// generate_testdata.go writes sample graph documents for gcv-nodes -import
// and for manual runs of gcv.
// Usage: go run scripts/generate_testdata.go
//
// Creates:
//
//	testdata/graphs/small.json   (100 nodes)
//	testdata/graphs/medium.json  (1000 nodes)
//	testdata/graphs/large.json   (5000 nodes)
package main

import (
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/graphcanvas/internal/datasource"
	"github.com/vanderheijden86/graphcanvas/pkg/element"
	"github.com/vanderheijden86/graphcanvas/pkg/testutil"
)

type datasetSpec struct {
	name    string
	size    int
	density float64
}

var datasets = []datasetSpec{
	{"small", 100, 0.1},
	{"medium", 1000, 0.05},
	{"large", 5000, 0.02},
}

var labels = []string{
	"gateway", "auth", "billing", "search", "catalog",
	"queue", "worker", "cache", "mailer", "reports",
}

type document struct {
	Top   []element.Element `json:"top"`
	Graph struct {
		Nodes []element.Element `json:"nodes"`
		Edges []element.Element `json:"edges"`
	} `json:"graph"`
}

func main() {
	outputDir := "testdata/graphs"
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for _, ds := range datasets {
		fmt.Printf("Generating %s graph (%d nodes)...\n", ds.name, ds.size)

		gen := testutil.New(testutil.GeneratorConfig{
			Seed:   int64(ds.size),
			Shapes: []string{"ellipse", "rectangle", "diamond", "round-rectangle"},
			Types:  []string{"service", "store", "job"},
		})
		els := gen.ToElements(gen.RandomDAG(ds.size, ds.density))

		var doc document
		for i, e := range els {
			if e.IsEdge() {
				doc.Graph.Edges = append(doc.Graph.Edges, e)
				continue
			}
			e.Data[element.KeyLabel] = fmt.Sprintf("%s-%d", labels[i%len(labels)], i)
			doc.Graph.Nodes = append(doc.Graph.Nodes, e)
		}
		doc.Top = datasource.Roots(els)

		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode %s: %v\n", ds.name, err)
			os.Exit(1)
		}
		outputPath := filepath.Join(outputDir, ds.name+".json")
		if err := os.WriteFile(outputPath, data, 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", outputPath, err)
			os.Exit(1)
		}
		fmt.Printf("  Written %s (%d bytes, %d top-level)\n", outputPath, len(data), len(doc.Top))
	}

	fmt.Println("\nDone! Graphs created in", outputDir)
}
