// Package badger persists documents and patch history in an embedded
// BadgerDB key-value store.
//
// Key layout (0x00 separators, so IDs cannot collide with prefixes):
//
//	d <0> <id>              -> JSON document envelope
//	p <0> <ref> <0> <id>    -> JSON patch record
//
// Badger iterates keys in lexicographic order, so a prefix scan over one
// ref yields its patches in ID (creation) order for free.
package badger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/aretw0/introspection"
	badger "github.com/dgraph-io/badger/v4"

	"github.com/pashist/patchhistory/pkg/core"
)

// Config holds the configuration for the badger store.
type Config struct {
	// Path is the directory for the database files. Ignored when
	// InMemory is set.
	Path string

	// InMemory runs badger without touching disk (for tests).
	InMemory bool

	// SyncWrites makes every write durable before returning.
	SyncWrites bool

	Logger *slog.Logger
}

// Store implements core.DocumentStore and core.PatchStore on BadgerDB.
type Store struct {
	db     *badger.DB
	config Config
}

// Open opens (or creates) the database.
func Open(config Config) (*Store, error) {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}

	opts := badger.DefaultOptions(config.Path).
		WithInMemory(config.InMemory).
		WithSyncWrites(config.SyncWrites).
		WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger at %s: %w", config.Path, err)
	}
	return &Store{db: db, config: config}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Initialize implements core.DocumentStore and core.PatchStore. Opening
// the database already prepares everything.
func (s *Store) Initialize(ctx context.Context) error { return nil }

func docKey(id string) []byte {
	return append(append([]byte("d"), 0), []byte(id)...)
}

func patchPrefix(ref string) []byte {
	key := append(append([]byte("p"), 0), []byte(ref)...)
	return append(key, 0)
}

func patchKey(ref, id string) []byte {
	return append(patchPrefix(ref), []byte(id)...)
}

func validateKeyPart(part string) error {
	if part == "" {
		return core.NewValidationError("identifier cannot be empty")
	}
	if bytes.ContainsRune([]byte(part), 0) {
		return core.NewValidationError("identifier cannot contain NUL bytes")
	}
	return nil
}

// envelope is the stored document shape.
type envelope struct {
	Fields    map[string]any `json:"fields"`
	CreatedAt time.Time      `json:"created_at,omitempty"`
	UpdatedAt time.Time      `json:"updated_at,omitempty"`
}

// Save persists a document.
func (s *Store) Save(ctx context.Context, doc core.Document) error {
	if err := validateKeyPart(doc.ID); err != nil {
		return err
	}
	data, err := json.Marshal(envelope{
		Fields:    doc.Fields,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to serialize document: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(docKey(doc.ID), data)
	})
}

// Get retrieves a document by ID.
func (s *Store) Get(ctx context.Context, id string) (core.Document, error) {
	if err := validateKeyPart(id); err != nil {
		return core.Document{}, err
	}

	var env envelope
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(docKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &env)
		})
	})
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return core.Document{}, core.ErrNotFound
		}
		return core.Document{}, err
	}

	return core.Document{
		ID:        id,
		Fields:    env.Fields,
		CreatedAt: env.CreatedAt,
		UpdatedAt: env.UpdatedAt,
	}, nil
}

// List returns all documents ordered by ID.
func (s *Store) List(ctx context.Context) ([]core.Document, error) {
	prefix := append([]byte("d"), 0)

	var docs []core.Document
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			id := string(item.Key()[len(prefix):])
			var env envelope
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &env)
			}); err != nil {
				return err
			}
			docs = append(docs, core.Document{
				ID:        id,
				Fields:    env.Fields,
				CreatedAt: env.CreatedAt,
				UpdatedAt: env.UpdatedAt,
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// Delete removes a document by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := validateKeyPart(id); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(docKey(id)); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return core.ErrNotFound
			}
			return err
		}
		return txn.Delete(docKey(id))
	})
}

// Create validates and persists a patch.
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
	if err := validateKeyPart(p.Ref); err != nil {
		return core.Patch{}, err
	}
	if err := validateKeyPart(p.ID); err != nil {
		return core.Patch{}, err
	}

	data, err := json.Marshal(p)
	if err != nil {
		return core.Patch{}, fmt.Errorf("failed to serialize patch: %w", err)
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(patchKey(p.Ref, p.ID), data)
	})
	if err != nil {
		return core.Patch{}, err
	}
	return p, nil
}

// Find retrieves patches matching the query, walking the ref's key range
// in the requested direction.
func (s *Store) Find(ctx context.Context, q core.PatchQuery) ([]core.Patch, error) {
	if err := validateKeyPart(q.Ref); err != nil {
		return nil, err
	}
	prefix := patchPrefix(q.Ref)

	var out []core.Patch
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.Reverse = q.Sort == core.SortDesc
		it := txn.NewIterator(opts)
		defer it.Close()

		if opts.Reverse {
			// Reverse iteration needs a seek past the last prefixed key.
			it.Seek(append(append([]byte{}, prefix...), 0xFF))
		} else {
			it.Rewind()
		}

		for ; it.Valid(); it.Next() {
			item := it.Item()
			id := string(item.Key()[len(prefix):])
			if q.MinID != "" && id < q.MinID {
				if opts.Reverse {
					break
				}
				continue
			}
			if q.MaxID != "" && id > q.MaxID {
				if !opts.Reverse {
					break
				}
				continue
			}
			var p core.Patch
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &p)
			}); err != nil {
				return err
			}
			out = append(out, p)
			if q.Limit > 0 && len(out) >= q.Limit {
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Count returns how many of the ref's patches pass the filter.
func (s *Store) Count(ctx context.Context, ref string, filter core.IDFilter) (int, error) {
	if err := validateKeyPart(ref); err != nil {
		return 0, err
	}
	prefix := patchPrefix(ref)

	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			id := string(it.Item().Key()[len(prefix):])
			if filter.Matches(id) {
				n++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// DeleteAll removes every patch of the given ref. Idempotent.
func (s *Store) DeleteAll(ctx context.Context, ref string) error {
	if err := validateKeyPart(ref); err != nil {
		return err
	}
	prefix := patchPrefix(ref)

	var keys [][]byte
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	batch := s.db.NewWriteBatch()
	defer batch.Cancel()
	for _, key := range keys {
		if err := batch.Delete(key); err != nil {
			return err
		}
	}
	return batch.Flush()
}

// StoreState exposes internal state for observability.
type StoreState struct {
	Path     string `json:"path"`
	InMemory bool   `json:"in_memory"`
	LSMSize  int64  `json:"lsm_size"`
	VLogSize int64  `json:"vlog_size"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	lsm, vlog := s.db.Size()
	return StoreState{
		Path:     s.config.Path,
		InMemory: s.config.InMemory,
		LSMSize:  lsm,
		VLogSize: vlog,
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "badger"
}

var _ core.DocumentStore = (*Store)(nil)
var _ core.PatchStore = (*Store)(nil)
var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
