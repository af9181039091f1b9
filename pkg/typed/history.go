// Package typed provides a type-safe view over the versioning service:
// document content is marshaled between a user struct and the raw field
// map via a JSON round-trip.
package typed

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/pashist/patchhistory/pkg/core"
)

// DocumentModel wraps a core.Document with typed content.
// It acts as a typed view of a document: the underlying document (and
// its snapshot tracker) travels with the model, so repeated saves diff
// against the right baseline.
type DocumentModel[T any] struct {
	ID   string
	Data T

	doc   *core.Document
	saver Saver[T]
}

// Saver persists typed documents. The interface avoids tight coupling
// between the model and the History wrapper.
type Saver[T any] interface {
	Save(ctx context.Context, doc *DocumentModel[T]) error
}

// Save persists the document using the attached saver.
func (d *DocumentModel[T]) Save(ctx context.Context) error {
	if d.saver == nil {
		return fmt.Errorf("document is detached (missing saver)")
	}
	return d.saver.Save(ctx, d)
}

// SetTransient assigns an instance-local value that is never persisted,
// e.g. the acting user for include extraction.
func (d *DocumentModel[T]) SetTransient(key string, value any) {
	d.document().SetTransient(key, value)
}

func (d *DocumentModel[T]) document() *core.Document {
	if d.doc == nil {
		d.doc = &core.Document{ID: d.ID}
	}
	return d.doc
}

// History wraps a core.Service to provide type-safe access.
type History[T any] struct {
	svc *core.Service
}

// NewHistory creates a type-safe wrapper around an existing service.
func NewHistory[T any](svc *core.Service) *History[T] {
	return &History[T]{svc: svc}
}

// Service exposes the underlying coordinator.
func (h *History[T]) Service() *core.Service {
	return h.svc
}

// Save persists a typed document, producing a patch when the content
// changed.
func (h *History[T]) Save(ctx context.Context, doc *DocumentModel[T]) error {
	fields, err := toFields(doc.Data)
	if err != nil {
		return err
	}

	coreDoc := doc.document()
	coreDoc.Fields = fields

	if err := h.svc.Save(ctx, coreDoc); err != nil {
		return err
	}

	doc.ID = coreDoc.ID
	if doc.saver == nil {
		doc.saver = h
	}
	return nil
}

// Get retrieves a document and unmarshals its content.
func (h *History[T]) Get(ctx context.Context, id string) (*DocumentModel[T], error) {
	coreDoc, err := h.svc.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return h.fromCore(coreDoc)
}

// List returns all documents converted to the typed model.
func (h *History[T]) List(ctx context.Context) ([]*DocumentModel[T], error) {
	coreDocs, err := h.svc.List(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]*DocumentModel[T], 0, len(coreDocs))
	for _, d := range coreDocs {
		model, err := h.fromCore(d)
		if err != nil {
			return nil, fmt.Errorf("failed to process document %s: %w", d.ID, err)
		}
		result = append(result, model)
	}
	return result, nil
}

// Remove deletes a document, cascading to its history when enabled.
func (h *History[T]) Remove(ctx context.Context, doc *DocumentModel[T]) error {
	return h.svc.Remove(ctx, doc.document())
}

// Patches returns the document's history in ascending creation order.
func (h *History[T]) Patches(ctx context.Context, id string) ([]core.Patch, error) {
	return h.svc.History(ctx, id)
}

// Rollback reverts a document to the state at the given patch and
// returns the updated typed model.
func (h *History[T]) Rollback(ctx context.Context, id, patchID string, extra core.Fields) (*DocumentModel[T], error) {
	coreDoc, err := h.svc.Rollback(ctx, id, patchID, extra)
	if err != nil {
		return nil, err
	}
	return h.fromCore(coreDoc)
}

func (h *History[T]) fromCore(coreDoc *core.Document) (*DocumentModel[T], error) {
	data, err := fromFields[T](coreDoc.Fields)
	if err != nil {
		return nil, err
	}
	return &DocumentModel[T]{
		ID:    coreDoc.ID,
		Data:  data,
		doc:   coreDoc,
		saver: h,
	}, nil
}

func toFields[T any](data T) (core.Fields, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal typed data: %w", err)
	}
	var fields core.Fields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, fmt.Errorf("failed to convert typed data to map: %w", err)
	}
	return fields, nil
}

func fromFields[T any](fields core.Fields) (T, error) {
	var data T
	raw, err := json.Marshal(fields)
	if err != nil {
		return data, fmt.Errorf("fields marshal failed: %w", err)
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return data, fmt.Errorf("unmarshal to target type failed: %w", err)
	}
	return data, nil
}
