// Package sqlite persists model documents in a SQLite database using the
// pure-Go modernc.org/sqlite driver. Each store transaction maps to one
// database transaction.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/chazu/strata/pkg/model"
	"github.com/chazu/strata/pkg/store"
)

// Compile-time interface checks.
var (
	_ store.Backend = (*Store)(nil)
	_ store.Store   = (*txStore)(nil)
)

// schemaV1 defines the initial database schema.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS levels (
	level_id  TEXT PRIMARY KEY,
	name      TEXT NOT NULL DEFAULT '',
	elevation REAL NOT NULL DEFAULT 0.0
);

CREATE TABLE IF NOT EXISTS wall_types (
	type_id   TEXT PRIMARY KEY,
	name      TEXT NOT NULL,
	name_fold TEXT NOT NULL UNIQUE,
	kind      TEXT NOT NULL DEFAULT 'basic'
);

CREATE TABLE IF NOT EXISTS type_layers (
	type_id       TEXT NOT NULL REFERENCES wall_types(type_id) ON DELETE CASCADE,
	layer_index   INTEGER NOT NULL,
	function      TEXT NOT NULL,
	material_id   TEXT NOT NULL DEFAULT '',
	material_name TEXT NOT NULL DEFAULT '',
	thickness     REAL NOT NULL,
	PRIMARY KEY (type_id, layer_index)
);

CREATE TABLE IF NOT EXISTS walls (
	wall_id         TEXT PRIMARY KEY,
	type_id         TEXT NOT NULL REFERENCES wall_types(type_id),
	has_curve       INTEGER NOT NULL DEFAULT 0,
	x0              REAL NOT NULL DEFAULT 0.0,
	y0              REAL NOT NULL DEFAULT 0.0,
	z0              REAL NOT NULL DEFAULT 0.0,
	x1              REAL NOT NULL DEFAULT 0.0,
	y1              REAL NOT NULL DEFAULT 0.0,
	z1              REAL NOT NULL DEFAULT 0.0,
	justification   TEXT NOT NULL DEFAULT 'wall-centerline',
	flipped         INTEGER NOT NULL DEFAULT 0,
	height          REAL NOT NULL DEFAULT 0.0,
	level_id        TEXT NOT NULL DEFAULT '',
	attributes_json TEXT NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_walls_type ON walls(type_id);
`

// Store is a SQLite-backed model store.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path with recommended
// pragmas and runs the schema migration.
func Open(path string) (*Store, error) {
	db, err := NewDB(path)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// NewDB opens a SQLite database at the given path and migrates it.
func NewDB(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)", path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// One writer; keeps transactions strictly serialised.
	db.SetMaxOpenConns(1)

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return db, nil
}

func migrate(db *sql.DB) error {
	_, err := db.ExecContext(context.Background(), schemaV1)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunInTransaction runs fn inside one database transaction, committing only
// if fn returns nil.
func (s *Store) RunInTransaction(ctx context.Context, name string, fn func(store.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("transaction %q: begin: %w", name, err)
	}
	if err := fn(&txStore{tx: tx}); err != nil {
		tx.Rollback()
		return fmt.Errorf("transaction %q: %w", name, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("transaction %q: commit: %w", name, err)
	}
	return nil
}

// Load replaces the database contents with doc. Documents with
// error-severity validation findings are rejected.
func (s *Store) Load(ctx context.Context, doc model.Document) error {
	if findings := model.Validate(doc); model.HasErrors(findings) {
		return fmt.Errorf("load: invalid document: %v", findings)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("load: begin: %w", err)
	}
	defer tx.Rollback()

	for _, q := range []string{`DELETE FROM walls`, `DELETE FROM type_layers`, `DELETE FROM wall_types`, `DELETE FROM levels`} {
		if _, err := tx.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("load: clear: %w", err)
		}
	}
	for _, l := range doc.Levels {
		if err := insertLevel(ctx, tx, l); err != nil {
			return fmt.Errorf("load: %w", err)
		}
	}
	for _, t := range doc.Types {
		if err := insertType(ctx, tx, t); err != nil {
			return fmt.Errorf("load: %w", err)
		}
	}
	for _, w := range doc.Walls {
		if err := insertWall(ctx, tx, w); err != nil {
			return fmt.Errorf("load: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("load: commit: %w", err)
	}
	return nil
}

// Document reads the whole model.
func (s *Store) Document(ctx context.Context) (model.Document, error) {
	var doc model.Document
	var err error
	if doc.Levels, err = listLevels(ctx, s.db); err != nil {
		return model.Document{}, err
	}
	if doc.Types, err = listTypes(ctx, s.db); err != nil {
		return model.Document{}, err
	}
	if doc.Walls, err = listWalls(ctx, s.db, ""); err != nil {
		return model.Document{}, err
	}
	return doc, nil
}
