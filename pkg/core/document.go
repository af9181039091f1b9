// Package core contains the domain model and the versioning coordinator:
// documents, trackers, patches, and the service that ties them together.
package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Fields represents the flexible key-value content of a document.
type Fields map[string]any

// Document is the central entity of the domain.
// It represents a mutable record identified by an ID, whose content lives
// in Fields. Identity and timestamps are metadata: they never appear in
// the Data projection and never participate in diffing.
type Document struct {
	ID        string
	Fields    Fields
	CreatedAt time.Time
	UpdatedAt time.Time

	// Transient holds instance-local values that are never persisted,
	// e.g. an acting user supplied out-of-band. Include extraction reads
	// from here first.
	Transient Fields

	tracker *Tracker
}

// Tracker returns the state tracker attached to this document instance,
// creating one (in the new-document state) on first access.
func (d *Document) Tracker() *Tracker {
	if d.tracker == nil {
		d.tracker = NewTracker()
	}
	return d.tracker
}

// Data returns the document's content projection: a JSON-normalized deep
// copy of Fields. Two projections of the same logical content compare
// structurally equal regardless of metadata or in-memory value types.
func (d *Document) Data() Fields {
	return NormalizeFields(d.Fields)
}

// Set assigns a single content field.
func (d *Document) Set(key string, value any) {
	if d.Fields == nil {
		d.Fields = Fields{}
	}
	d.Fields[key] = value
}

// SetTransient assigns an instance-local value that is never persisted.
func (d *Document) SetTransient(key string, value any) {
	if d.Transient == nil {
		d.Transient = Fields{}
	}
	d.Transient[key] = value
}

// NormalizeFields deep-copies fields through a JSON round-trip so that all
// values take their canonical decoded forms (float64 numbers,
// map[string]any objects, []any arrays). A nil input yields an empty map.
func NormalizeFields(fields Fields) Fields {
	if len(fields) == 0 {
		return Fields{}
	}
	data, err := json.Marshal(fields)
	if err != nil {
		// Fields holding non-serializable values cannot take part in
		// diffing; fail loudly instead of returning a partial copy.
		panic(fmt.Sprintf("core: document fields are not JSON-serializable: %v", err))
	}
	var out Fields
	if err := json.Unmarshal(data, &out); err != nil {
		panic(fmt.Sprintf("core: failed to normalize document fields: %v", err))
	}
	return out
}

// NewDocumentID returns a new time-ordered document identifier.
func NewDocumentID() string {
	return uuid.Must(uuid.NewV7()).String()
}
