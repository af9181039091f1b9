// Package memory provides the in-memory reference implementation of the
// document and patch stores. It is the default adapter for tests and
// short-lived tooling.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/aretw0/introspection"

	"github.com/pashist/patchhistory/pkg/core"
)

// Store implements core.DocumentStore and core.PatchStore in memory.
// All methods are safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	docs    map[string]core.Document
	patches map[string][]core.Patch // ref -> patches, kept sorted by ID
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		docs:    make(map[string]core.Document),
		patches: make(map[string][]core.Patch),
	}
}

// Initialize implements core.DocumentStore and core.PatchStore.
func (s *Store) Initialize(ctx context.Context) error { return nil }

// Save persists a document, normalizing its fields so stored state is
// decoupled from the caller's maps.
func (s *Store) Save(ctx context.Context, doc core.Document) error {
	if doc.ID == "" {
		return core.NewValidationError("document has no ID")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := core.Document{
		ID:        doc.ID,
		Fields:    core.NormalizeFields(doc.Fields),
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	}
	s.docs[doc.ID] = stored
	return nil
}

// Get retrieves a document by ID.
func (s *Store) Get(ctx context.Context, id string) (core.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return core.Document{}, core.ErrNotFound
	}
	doc.Fields = core.NormalizeFields(doc.Fields)
	return doc, nil
}

// List returns all documents ordered by ID.
func (s *Store) List(ctx context.Context) ([]core.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]core.Document, 0, len(s.docs))
	for _, doc := range s.docs {
		doc.Fields = core.NormalizeFields(doc.Fields)
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// Delete removes a document by ID.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return core.ErrNotFound
	}
	delete(s.docs, id)
	return nil
}

// Create validates and appends a patch to its parent's history.
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

	s.mu.Lock()
	defer s.mu.Unlock()

	list := append(s.patches[p.Ref], p)
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	s.patches[p.Ref] = list
	return p, nil
}

// Find retrieves patches matching the query.
func (s *Store) Find(ctx context.Context, q core.PatchQuery) ([]core.Patch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []core.Patch
	for _, p := range s.patches[q.Ref] {
		if q.MinID != "" && p.ID < q.MinID {
			continue
		}
		if q.MaxID != "" && p.ID > q.MaxID {
			continue
		}
		out = append(out, p)
	}
	if q.Sort == core.SortDesc {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Count returns how many of the parent's patches pass the filter.
func (s *Store) Count(ctx context.Context, ref string, filter core.IDFilter) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, p := range s.patches[ref] {
		if filter.Matches(p.ID) {
			n++
		}
	}
	return n, nil
}

// DeleteAll removes the parent's entire history. Safe to call when there
// are no patches.
func (s *Store) DeleteAll(ctx context.Context, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.patches, ref)
	return nil
}

// StoreState exposes internal state for observability.
type StoreState struct {
	Documents int `json:"documents"`
	Patches   int `json:"patches"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	patches := 0
	for _, list := range s.patches {
		patches += len(list)
	}
	return StoreState{Documents: len(s.docs), Patches: patches}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "memory"
}

var _ core.DocumentStore = (*Store)(nil)
var _ core.PatchStore = (*Store)(nil)
var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
