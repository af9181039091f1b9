package patchhistory

import (
	"log/slog"

	"github.com/pashist/patchhistory/internal/platform"
	"github.com/pashist/patchhistory/pkg/core"
	"github.com/pashist/patchhistory/pkg/typed"
)

// --- Types ---

// Document is the raw versioned entity.
type Document = core.Document

// Fields is the flexible key-value content of a document.
type Fields = core.Fields

// Patch is one immutable history entry.
type Patch = core.Patch

// IncludeField declares an extra field copied onto each patch.
type IncludeField = core.IncludeField

// Service is the versioning coordinator.
type Service = core.Service

// DocumentModel is a public alias for the typed document model.
type DocumentModel[T any] = typed.DocumentModel[T]

// History is a public alias for the typed history wrapper.
type History[T any] = typed.History[T]

// --- Configuration ---

// Option defines a functional option for configuring the service.
type Option = platform.Option

// WithRemovePatches enables or disables cascading patch deletion on
// document removal. Enabled by default.
func WithRemovePatches(enabled bool) Option {
	return platform.WithRemovePatches(enabled)
}

// WithIncludes declares extra fields copied onto each patch from the
// owning document (e.g. an acting user).
func WithIncludes(fields ...IncludeField) Option {
	return platform.WithIncludes(fields...)
}

// WithCollection sets the document collection name.
func WithCollection(name string) Option {
	return platform.WithCollection(name)
}

// WithPatchCollection overrides the derived patch collection name.
func WithPatchCollection(name string) Option {
	return platform.WithPatchCollection(name)
}

// WithAdapter selects the storage adapter by name
// ("memory", "fs", "badger", "sqlite").
func WithAdapter(name string) Option {
	return platform.WithAdapter(name)
}

// WithAutoInit enables automatic creation of the store location.
func WithAutoInit(auto bool) Option {
	return platform.WithAutoInit(auto)
}

// WithMustExist ensures the store location must already exist.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithDocumentStore allows injecting a custom document store.
func WithDocumentStore(store core.DocumentStore) Option {
	return platform.WithDocumentStore(store)
}

// WithPatchStore allows injecting a custom patch store.
func WithPatchStore(store core.PatchStore) Option {
	return platform.WithPatchStore(store)
}

// WithEventBuffer sets the size of the watch event buffer.
func WithEventBuffer(size int) Option {
	return platform.WithEventBuffer(size)
}

// --- Factory ---

// New creates a new versioning Service.
func New(uri string, opts ...Option) (*core.Service, error) {
	return platform.New(uri, opts...)
}

// NewHistory creates a type-safe wrapper around an existing service.
func NewHistory[T any](svc *core.Service) *History[T] {
	return typed.NewHistory[T](svc)
}
