package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/graphcanvas/pkg/debug"
	"github.com/vanderheijden86/graphcanvas/pkg/element"
)

// ErrNotFound is returned by Subtree for unknown node ids.
var ErrNotFound = errors.New("node not found")

const schema = `
CREATE TABLE IF NOT EXISTS elements (
	id      TEXT PRIMARY KEY,
	grp     TEXT NOT NULL,
	source  TEXT,
	target  TEXT,
	data    TEXT NOT NULL,
	pos_x   REAL,
	pos_y   REAL,
	classes TEXT,
	top     INTEGER NOT NULL DEFAULT 0,
	ord     INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_elements_source ON elements(source);
CREATE INDEX IF NOT EXISTS idx_elements_top ON elements(top, ord);
`

// elementColumns must match scanElement.
const elementColumns = `id, grp, data, pos_x, pos_y, classes, ord`

// Store is a SQLite graph store. Top-level elements are what the canvas shows
// first; the rest of the graph is reachable through Subtree.
type Store struct {
	db   *sql.DB
	path string
}

// Document is an importable graph: the top-level elements and the full graph
// behind them.
type Document struct {
	Top   []element.Element
	Graph []element.Element
}

// Open opens (creating if needed) a writable store at path.
func Open(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	s := &Store{db: db, path: path}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return s, nil
}

// OpenReadOnly opens an existing store without write access.
func OpenReadOnly(path string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Import replaces the stored graph with doc in one transaction. Elements of
// doc.Top are marked top-level; doc.Graph adds everything else.
func (s *Store) Import(ctx context.Context, doc Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM elements`); err != nil {
		return fmt.Errorf("clear elements: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO elements (id, grp, source, target, data, pos_x, pos_y, classes, top, ord)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET top = MAX(top, excluded.top)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	ord := 0
	insert := func(els []element.Element, top int) error {
		for _, e := range element.Normalize(els) {
			data, err := json.Marshal(e.Data)
			if err != nil {
				return fmt.Errorf("encode %s: %w", e.ID(), err)
			}
			var x, y sql.NullFloat64
			if e.Position != nil {
				x = sql.NullFloat64{Float64: e.Position.X, Valid: true}
				y = sql.NullFloat64{Float64: e.Position.Y, Valid: true}
			}
			if _, err := stmt.ExecContext(ctx,
				e.ID(), string(e.Group), stringToNull(e.Data.Source()), stringToNull(e.Data.Target()),
				string(data), x, y, stringToNull(e.Classes), top, ord,
			); err != nil {
				return fmt.Errorf("insert %s: %w", e.ID(), err)
			}
			ord++
		}
		return nil
	}
	if err := insert(doc.Top, 1); err != nil {
		return err
	}
	if err := insert(doc.Graph, 0); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit import: %w", err)
	}
	debug.Log("datasource: imported %d elements into %s", ord, s.path)
	return nil
}

// TopElements returns the top-level elements in import order.
func (s *Store) TopElements(ctx context.Context) ([]element.Element, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+elementColumns+` FROM elements WHERE top = 1 ORDER BY ord`)
	if err != nil {
		return nil, fmt.Errorf("query top elements: %w", err)
	}
	return scanElements(rows)
}

// Subtree returns the node id, every node reachable from it along edges, and
// the edges among them. Cycles are followed once.
func (s *Store) Subtree(ctx context.Context, id string) ([]element.Element, error) {
	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM elements WHERE id = ? AND grp = 'nodes'`, id).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("lookup %s: %w", id, err)
	}
	if exists == 0 {
		return nil, fmt.Errorf("subtree %s: %w", id, ErrNotFound)
	}

	rows, err := s.db.QueryContext(ctx, `
		WITH RECURSIVE reach(id) AS (
			SELECT ?
			UNION
			SELECT e.target FROM elements e JOIN reach r ON e.source = r.id
			WHERE e.grp = 'edges'
		)
		SELECT `+elementColumns+` FROM (
			SELECT * FROM elements
			WHERE grp = 'nodes' AND id IN (SELECT id FROM reach)
			UNION ALL
			SELECT * FROM elements
			WHERE grp = 'edges'
			  AND source IN (SELECT id FROM reach)
			  AND target IN (SELECT id FROM reach)
		)
		ORDER BY ord`, id)
	if err != nil {
		return nil, fmt.Errorf("query subtree %s: %w", id, err)
	}
	return scanElements(rows)
}

// Counts returns the number of stored nodes and edges.
func (s *Store) Counts(ctx context.Context) (nodes, edges int, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN grp = 'nodes' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN grp = 'edges' THEN 1 ELSE 0 END), 0)
		FROM elements`).Scan(&nodes, &edges)
	if err != nil {
		return 0, 0, fmt.Errorf("count elements: %w", err)
	}
	return nodes, edges, nil
}

func scanElements(rows *sql.Rows) ([]element.Element, error) {
	defer rows.Close()
	var out []element.Element
	for rows.Next() {
		e, err := scanElement(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate elements: %w", err)
	}
	return out, nil
}

func scanElement(rows *sql.Rows) (element.Element, error) {
	var (
		id, grp, data string
		x, y          sql.NullFloat64
		classes       sql.NullString
		ord           int
	)
	if err := rows.Scan(&id, &grp, &data, &x, &y, &classes, &ord); err != nil {
		return element.Element{}, fmt.Errorf("scan element: %w", err)
	}
	e := element.Element{Group: element.Group(grp), Classes: nullToString(classes)}
	if err := json.Unmarshal([]byte(data), &e.Data); err != nil {
		return element.Element{}, fmt.Errorf("decode %s: %w", id, err)
	}
	if x.Valid && y.Valid && e.IsNode() {
		e.Position = &element.Position{X: x.Float64, Y: y.Float64}
	}
	return e, nil
}

func stringToNull(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}
