// Package datasource loads canvas elements from files and from the SQLite
// graph store that backs the node endpoint.
package datasource

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// SourceType identifies the kind of element source.
type SourceType string

const (
	// SourceJSON is a JSON element file.
	SourceJSON SourceType = "json"
	// SourceYAML is a YAML element file.
	SourceYAML SourceType = "yaml"
	// SourceSQLite is a SQLite graph store.
	SourceSQLite SourceType = "sqlite"
)

// ErrUnknownSource is returned when a path is not a recognised source.
var ErrUnknownSource = errors.New("unknown element source")

var sqliteMagic = []byte("SQLite format 3\x00")

// DetectSource decides the source type of path. The SQLite header wins over
// the extension; otherwise the extension decides, and extensionless files are
// sniffed for JSON.
func DetectSource(path string) (SourceType, error) {
	head, err := readHead(path, 64)
	if err != nil {
		return "", err
	}
	if bytes.HasPrefix(head, sqliteMagic) {
		return SourceSQLite, nil
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return SourceJSON, nil
	case ".yaml", ".yml":
		return SourceYAML, nil
	case ".db", ".sqlite", ".sqlite3":
		if len(head) == 0 {
			return SourceSQLite, nil
		}
	}

	trimmed := bytes.TrimSpace(head)
	if len(trimmed) > 0 && (trimmed[0] == '[' || trimmed[0] == '{') {
		return SourceJSON, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownSource, path)
}

func readHead(path string, n int) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open source: %w", err)
	}
	defer f.Close()
	buf := make([]byte, n)
	got, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read source: %w", err)
	}
	return buf[:got], nil
}
