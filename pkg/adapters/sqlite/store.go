// Package sqlite persists documents and patch history in an embedded
// SQLite database (pure-Go driver, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/aretw0/introspection"
	_ "modernc.org/sqlite"

	"github.com/pashist/patchhistory/pkg/core"
)

// Config holds the configuration for the sqlite store.
type Config struct {
	// Path is the database file. Use ":memory:" for tests.
	Path string

	// Collection is the documents table name. Defaults to "documents".
	Collection string

	// PatchCollection overrides the patches table name.
	// Defaults to "<Collection>_patches".
	PatchCollection string

	Logger *slog.Logger
}

// Store implements core.DocumentStore and core.PatchStore on SQLite.
type Store struct {
	db     *sql.DB
	config Config
}

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Open opens (or creates) the database file.
func Open(config Config) (*Store, error) {
	if config.Collection == "" {
		config.Collection = "documents"
	}
	if config.PatchCollection == "" {
		config.PatchCollection = config.Collection + "_patches"
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	// Table names are interpolated into DDL and queries; reject anything
	// that is not a plain identifier.
	for _, name := range []string{config.Collection, config.PatchCollection} {
		if !identRe.MatchString(name) {
			return nil, core.NewValidationError(fmt.Sprintf("invalid table name %q", name))
		}
	}

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite at %s: %w", config.Path, err)
	}
	// The driver serializes writes; a single connection avoids SQLITE_BUSY
	// on concurrent use.
	db.SetMaxOpenConns(1)

	return &Store{db: db, config: config}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Initialize creates the schema if missing.
func (s *Store) Initialize(ctx context.Context) error {
	schema := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
	id         TEXT PRIMARY KEY,
	fields     TEXT NOT NULL,
	created_at TEXT,
	updated_at TEXT
);
CREATE TABLE IF NOT EXISTS %[2]s (
	id       TEXT PRIMARY KEY,
	ref      TEXT NOT NULL,
	date     TEXT NOT NULL,
	ops      TEXT NOT NULL,
	includes TEXT
);
CREATE INDEX IF NOT EXISTS idx_%[2]s_ref ON %[2]s (ref, id);
`, s.config.Collection, s.config.PatchCollection)

	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Save persists a document (insert or update).
func (s *Store) Save(ctx context.Context, doc core.Document) error {
	if doc.ID == "" {
		return core.NewValidationError("document has no ID")
	}
	fields, err := json.Marshal(doc.Fields)
	if err != nil {
		return fmt.Errorf("failed to serialize document: %w", err)
	}

	query := fmt.Sprintf(`
INSERT INTO %[1]s (id, fields, created_at, updated_at) VALUES (?, ?, ?, ?)
ON CONFLICT (id) DO UPDATE SET fields = excluded.fields, updated_at = excluded.updated_at
`, s.config.Collection)

	_, err = s.db.ExecContext(ctx, query, doc.ID, string(fields),
		doc.CreatedAt.UTC().Format(time.RFC3339Nano),
		doc.UpdatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

// Get retrieves a document by ID.
func (s *Store) Get(ctx context.Context, id string) (core.Document, error) {
	query := fmt.Sprintf(`SELECT fields, created_at, updated_at FROM %s WHERE id = ?`, s.config.Collection)

	var fields, createdAt, updatedAt string
	err := s.db.QueryRowContext(ctx, query, id).Scan(&fields, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Document{}, core.ErrNotFound
		}
		return core.Document{}, err
	}
	return s.scanDocument(id, fields, createdAt, updatedAt)
}

// List returns all documents ordered by ID.
func (s *Store) List(ctx context.Context) ([]core.Document, error) {
	query := fmt.Sprintf(`SELECT id, fields, created_at, updated_at FROM %s ORDER BY id ASC`, s.config.Collection)

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []core.Document
	for rows.Next() {
		var id, fields, createdAt, updatedAt string
		if err := rows.Scan(&id, &fields, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		doc, err := s.scanDocument(id, fields, createdAt, updatedAt)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

func (s *Store) scanDocument(id, fields, createdAt, updatedAt string) (core.Document, error) {
	doc := core.Document{ID: id}
	if err := json.Unmarshal([]byte(fields), &doc.Fields); err != nil {
		return core.Document{}, fmt.Errorf("corrupt document %s: %w", id, err)
	}
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		doc.CreatedAt = t
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		doc.UpdatedAt = t
	}
	return doc, nil
}

// Delete removes a document by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, s.config.Collection)
	res, err := s.db.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// Create validates and persists a patch row.
func (s *Store) Create(ctx context.Context, p core.Patch) (core.Patch, error) {
	if p.ID == "" {
		p.ID = core.NewPatchID()
	}
	if p.Date.IsZero() {
		p.Date = time.Now().UTC()
	}
	if err := core.ValidatePatch(p); err != nil {
		return core.Patch{}, err
	}

	ops, err := json.Marshal(p.Ops)
	if err != nil {
		return core.Patch{}, fmt.Errorf("failed to serialize operations: %w", err)
	}
	var includes []byte
	if len(p.Includes) > 0 {
		includes, err = json.Marshal(p.Includes)
		if err != nil {
			return core.Patch{}, fmt.Errorf("failed to serialize includes: %w", err)
		}
	}

	query := fmt.Sprintf(`INSERT INTO %s (id, ref, date, ops, includes) VALUES (?, ?, ?, ?, ?)`,
		s.config.PatchCollection)
	_, err = s.db.ExecContext(ctx, query, p.ID, p.Ref,
		p.Date.UTC().Format(time.RFC3339Nano), string(ops), nullable(includes))
	if err != nil {
		return core.Patch{}, err
	}
	return p, nil
}

func nullable(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

// Find retrieves patches matching the query.
func (s *Store) Find(ctx context.Context, q core.PatchQuery) ([]core.Patch, error) {
	query := fmt.Sprintf(`SELECT id, ref, date, ops, includes FROM %s WHERE ref = ?`, s.config.PatchCollection)
	args := []any{q.Ref}

	if q.MinID != "" {
		query += ` AND id >= ?`
		args = append(args, q.MinID)
	}
	if q.MaxID != "" {
		query += ` AND id <= ?`
		args = append(args, q.MaxID)
	}
	if q.Sort == core.SortDesc {
		query += ` ORDER BY id DESC`
	} else {
		query += ` ORDER BY id ASC`
	}
	if q.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, q.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []core.Patch
	for rows.Next() {
		var p core.Patch
		var date, ops string
		var includes sql.NullString
		if err := rows.Scan(&p.ID, &p.Ref, &date, &ops, &includes); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339Nano, date); err == nil {
			p.Date = t
		}
		if err := json.Unmarshal([]byte(ops), &p.Ops); err != nil {
			return nil, fmt.Errorf("corrupt patch %s: %w", p.ID, err)
		}
		if includes.Valid {
			if err := json.Unmarshal([]byte(includes.String), &p.Includes); err != nil {
				return nil, fmt.Errorf("corrupt patch %s: %w", p.ID, err)
			}
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Count returns how many of the ref's patches pass the filter.
func (s *Store) Count(ctx context.Context, ref string, filter core.IDFilter) (int, error) {
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE ref = ?`, s.config.PatchCollection)
	args := []any{ref}

	if filter.Equal != "" {
		query += ` AND id = ?`
		args = append(args, filter.Equal)
	}
	if filter.GTE != "" {
		query += ` AND id >= ?`
		args = append(args, filter.GTE)
	}
	if filter.LTE != "" {
		query += ` AND id <= ?`
		args = append(args, filter.LTE)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// DeleteAll removes every patch of the given ref. Idempotent.
func (s *Store) DeleteAll(ctx context.Context, ref string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE ref = ?`, s.config.PatchCollection)
	_, err := s.db.ExecContext(ctx, query, ref)
	return err
}

// StoreState exposes internal state for observability.
type StoreState struct {
	Path            string `json:"path"`
	Collection      string `json:"collection"`
	PatchCollection string `json:"patch_collection"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	return StoreState{
		Path:            s.config.Path,
		Collection:      s.config.Collection,
		PatchCollection: s.config.PatchCollection,
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "sqlite"
}

var _ core.DocumentStore = (*Store)(nil)
var _ core.PatchStore = (*Store)(nil)
var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
