package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pashist/patchhistory/pkg/diff"
)

// Config controls the versioning behavior of a Service.
type Config struct {
	// RemovePatches enables cascading patch deletion on document removal.
	RemovePatches bool

	// Includes is the static extraction plan for extra patch fields.
	Includes []IncludeField

	// Logger receives debug output. Defaults to slog.Default().
	Logger *slog.Logger

	// EventBufferSize controls how many store events the Watch relay may
	// buffer before dropping. Defaults to 64.
	EventBufferSize int
}

// DefaultConfig returns the configuration used when none is supplied:
// cascading deletion enabled, no includes.
func DefaultConfig() Config {
	return Config{RemovePatches: true}
}

// Service is the versioning coordinator. It orchestrates the document
// lifecycle: on save it diffs the pending state against the tracker's
// snapshot and appends a patch when the diff is non-empty; on remove it
// optionally cascades deletion to the patch history; rollback re-enters
// the save path with a replayed historical state.
type Service struct {
	mu      sync.RWMutex
	docs    DocumentStore
	patches PatchStore
	cfg     Config
	plan    []IncludeField
	logger  *slog.Logger

	eventBufferSize int
}

// NewService creates a versioning coordinator over the given stores.
// The include plan is resolved once here; a misconfigured plan is a
// setup-time failure, reported before any document instance exists.
func NewService(docs DocumentStore, patches PatchStore, cfg Config) (*Service, error) {
	plan, err := resolveIncludes(cfg.Includes)
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	bufferSize := cfg.EventBufferSize
	if bufferSize <= 0 {
		bufferSize = 64
	}

	return &Service{
		docs:            docs,
		patches:         patches,
		cfg:             cfg,
		plan:            plan,
		logger:          logger,
		eventBufferSize: bufferSize,
	}, nil
}

func resolveIncludes(includes []IncludeField) ([]IncludeField, error) {
	plan := make([]IncludeField, 0, len(includes))
	seen := make(map[string]bool, len(includes))
	for _, f := range includes {
		if f.Name == "" {
			return nil, NewValidationError("include field has no name")
		}
		if seen[f.Name] {
			return nil, NewValidationError(fmt.Sprintf("duplicate include field %q", f.Name))
		}
		seen[f.Name] = true
		if f.Source == "" {
			f.Source = f.Name
		}
		plan = append(plan, f)
	}
	return plan, nil
}

// Get retrieves a document and attaches a fresh tracker snapshot, so the
// next save diffs against the state just loaded.
func (s *Service) Get(ctx context.Context, id string) (*Document, error) {
	if id == "" {
		return nil, NewValidationError("document ID cannot be empty")
	}
	doc, err := s.docs.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, err
		}
		return nil, NewPersistenceError("failed to load document", err)
	}
	d := doc
	d.Tracker().Load(d.Data())
	return &d, nil
}

// List retrieves all documents, each with a fresh tracker snapshot.
func (s *Service) List(ctx context.Context) ([]*Document, error) {
	docs, err := s.docs.List(ctx)
	if err != nil {
		return nil, NewPersistenceError("failed to list documents", err)
	}
	out := make([]*Document, 0, len(docs))
	for i := range docs {
		d := docs[i]
		d.Tracker().Load(d.Data())
		out = append(out, &d)
	}
	return out, nil
}

// Save persists the document and appends a patch recording the change.
//
// The diff baseline is the tracker's snapshot, or the empty object for a
// never-persisted document. An empty diff skips patch creation entirely:
// saving an unmodified document never creates a history entry. The patch
// is written before the document write is acknowledged; if either write
// fails the save fails and the snapshot is left untouched.
func (s *Service) Save(ctx context.Context, doc *Document) error {
	if doc == nil {
		return NewValidationError("document cannot be nil")
	}

	isNew := doc.ID == ""
	if isNew {
		doc.ID = NewDocumentID()
	}

	end, err := doc.Tracker().BeginSave()
	if err != nil {
		return err
	}

	before := Fields{}
	if snap, ok := doc.Tracker().Snapshot(); ok {
		before = snap
	}
	after := doc.Data()

	ops := diff.Compute(before, after)
	if len(ops) > 0 {
		includes, err := s.extractIncludes(doc)
		if err != nil {
			end(false, nil)
			return err
		}
		patch := Patch{
			ID:       NewPatchID(),
			Date:     time.Now().UTC(),
			Ops:      ops,
			Ref:      doc.ID,
			Includes: includes,
		}
		if _, err := s.patches.Create(ctx, patch); err != nil {
			end(false, nil)
			return s.asPersistence("failed to create patch", err)
		}
		s.logger.Debug("patch created", "ref", doc.ID, "patch", patch.ID, "ops", len(ops))
	} else {
		s.logger.Debug("no-op save, patch skipped", "ref", doc.ID)
	}

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	if err := s.docs.Save(ctx, *doc); err != nil {
		end(false, nil)
		return NewPersistenceError("failed to save document", err)
	}

	end(true, after)
	return nil
}

// Remove deletes the document. With cascading enabled, the document's
// entire patch history is deleted first; if that cleanup fails the remove
// fails and the document is not considered removed.
func (s *Service) Remove(ctx context.Context, doc *Document) error {
	if doc == nil || doc.ID == "" {
		return NewValidationError("document ID cannot be empty")
	}

	end, err := doc.Tracker().BeginRemove()
	if err != nil {
		return err
	}

	if s.cfg.RemovePatches {
		if err := s.patches.DeleteAll(ctx, doc.ID); err != nil {
			end(false)
			return NewPersistenceError("failed to remove patches", err)
		}
		s.logger.Debug("patch history removed", "ref", doc.ID)
	}

	if err := s.docs.Delete(ctx, doc.ID); err != nil {
		end(false)
		return NewPersistenceError("failed to delete document", err)
	}

	end(true)
	return nil
}

// History returns the document's patches in ascending creation order.
func (s *Service) History(ctx context.Context, ref string) ([]Patch, error) {
	if ref == "" {
		return nil, NewValidationError("ref cannot be empty")
	}
	patches, err := s.patches.Find(ctx, PatchQuery{Ref: ref, Sort: SortAsc})
	if err != nil {
		return nil, s.asPersistence("failed to load history", err)
	}
	return patches, nil
}

// Patches exposes the underlying patch store.
func (s *Service) Patches() PatchStore {
	return s.patches
}

// extractIncludes evaluates the resolved include plan against the
// document instance: transient values first, then content fields.
func (s *Service) extractIncludes(doc *Document) (Fields, error) {
	if len(s.plan) == 0 {
		return nil, nil
	}
	out := Fields{}
	for _, f := range s.plan {
		value, ok := doc.Transient[f.Source]
		if !ok {
			value, ok = doc.Fields[f.Source]
		}
		if !ok {
			if f.Required {
				return nil, NewValidationError(fmt.Sprintf("required include field %q has no value (source %q)", f.Name, f.Source))
			}
			continue
		}
		out[f.Name] = value
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

// asPersistence wraps store failures while letting already-tagged domain
// errors (e.g. a store-side validation rejection) pass through untouched.
func (s *Service) asPersistence(message string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return NewPersistenceError(message, err)
}

// Watch observes document changes if the underlying store supports it.
// Events are relayed through a buffered channel so a slow consumer does
// not block the store's producer.
func (s *Service) Watch(ctx context.Context, pattern string) (<-chan Event, error) {
	w, ok := s.docs.(Watchable)
	if !ok {
		return nil, errors.New("document store does not support watching")
	}
	upstream, err := w.Watch(ctx, pattern)
	if err != nil {
		return nil, err
	}

	out := make(chan Event, s.eventBufferSize)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-upstream:
				if !ok {
					return
				}
				select {
				case out <- evt:
				default:
					s.logger.Debug("event buffer full, dropping event", "id", evt.ID)
				}
			}
		}
	}()
	return out, nil
}
