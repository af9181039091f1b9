package core

import "context"

// DocumentStore defines the contract for persisting documents.
// Adhering to this interface keeps the core independent of the
// underlying storage mechanism (memory, filesystem, KV store, SQL).
type DocumentStore interface {
	// Save persists a document. It creates if not exists, or updates if
	// it does.
	Save(ctx context.Context, doc Document) error

	// Get retrieves a document by its ID. Missing documents are reported
	// with an error matching ErrNotFound.
	Get(ctx context.Context, id string) (Document, error)

	// List returns all stored documents, ordered by ID.
	List(ctx context.Context) ([]Document, error)

	// Delete removes a document by its ID.
	Delete(ctx context.Context, id string) error

	// Initialize ensures the underlying storage is ready (e.g. create
	// directories, open handles, run schema migrations).
	Initialize(ctx context.Context) error
}

// Sort is the traversal direction for patch lookups.
type Sort int

const (
	// SortAsc orders patches oldest first; required for replay.
	SortAsc Sort = iota
	// SortDesc orders patches newest first.
	SortDesc
)

// PatchQuery selects patches of one parent document, optionally bounded
// by an inclusive ID range.
type PatchQuery struct {
	Ref   string
	MinID string // inclusive lower bound, empty for none
	MaxID string // inclusive upper bound, empty for none
	Sort  Sort
	Limit int // 0 for unlimited
}

// IDFilter bounds a patch count by ID. Zero-value fields are ignored.
type IDFilter struct {
	GTE   string
	LTE   string
	Equal string
}

// Matches reports whether the given patch ID passes the filter.
func (f IDFilter) Matches(id string) bool {
	if f.Equal != "" && id != f.Equal {
		return false
	}
	if f.GTE != "" && id < f.GTE {
		return false
	}
	if f.LTE != "" && id > f.LTE {
		return false
	}
	return true
}

// PatchStore defines the contract for the append-only patch collection.
type PatchStore interface {
	// Create validates and persists a new patch, assigning ID and Date
	// when unset, and returns the stored record. Structural violations
	// are reported as validation errors before anything is written.
	Create(ctx context.Context, p Patch) (Patch, error)

	// Find retrieves the patches matching the query, in the requested
	// order.
	Find(ctx context.Context, q PatchQuery) ([]Patch, error)

	// Count returns how many patches of the given parent pass the filter.
	Count(ctx context.Context, ref string, filter IDFilter) (int, error)

	// DeleteAll removes every patch of the given parent. It is
	// idempotent: deleting a parent with no patches succeeds.
	DeleteAll(ctx context.Context, ref string) error

	// Initialize ensures the underlying storage is ready.
	Initialize(ctx context.Context) error
}

// EventType represents the type of change observed in a store.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents an observed change to a stored document.
type Event struct {
	Type      EventType
	ID        string
	Timestamp int64 // Unix timestamp
}

// Watchable defines an interface for document stores that can push
// change notifications.
type Watchable interface {
	// Watch observes changes to documents whose IDs match the glob
	// pattern.
	Watch(ctx context.Context, pattern string) (<-chan Event, error)
}
