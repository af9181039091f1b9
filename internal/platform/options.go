package platform

import (
	"log/slog"

	"github.com/pashist/patchhistory/pkg/core"
)

// options holds the internal configuration for the service.
type options struct {
	docStore   core.DocumentStore
	patchStore core.PatchStore
	logger     *slog.Logger
	adapter    string
	config     map[string]interface{}
	includes   []core.IncludeField
}

// Option defines a functional option for configuring the service.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		adapter: "memory",
		config: map[string]interface{}{
			"remove_patches": true,
		},
	}
}

// WithRemovePatches enables or disables cascading patch deletion on
// document removal. Enabled by default.
func WithRemovePatches(enabled bool) Option {
	return func(o *options) {
		o.config["remove_patches"] = enabled
	}
}

// WithIncludes declares extra fields copied onto each patch from the
// owning document.
func WithIncludes(fields ...core.IncludeField) Option {
	return func(o *options) {
		o.includes = append(o.includes, fields...)
	}
}

// WithCollection sets the document collection name (directory or table,
// depending on the adapter). Defaults to "documents".
func WithCollection(name string) Option {
	return func(o *options) {
		o.config["collection"] = name
	}
}

// WithPatchCollection overrides the patch collection name. Defaults to
// "<collection>_patches".
func WithPatchCollection(name string) Option {
	return func(o *options) {
		o.config["patch_collection"] = name
	}
}

// WithAutoInit enables automatic creation of the store location.
func WithAutoInit(auto bool) Option {
	return func(o *options) {
		o.config["auto_init"] = auto
	}
}

// WithMustExist ensures the store location must already exist.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.config["must_exist"] = must
	}
}

// WithLogger sets the logger for the service.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithAdapter selects the storage adapter by name
// ("memory", "fs", "badger", "sqlite"). Defaults to "memory".
func WithAdapter(name string) Option {
	return func(o *options) {
		o.adapter = name
	}
}

// WithDocumentStore injects a custom document store. If provided, the
// adapter selection is skipped for documents.
func WithDocumentStore(store core.DocumentStore) Option {
	return func(o *options) {
		o.docStore = store
	}
}

// WithPatchStore injects a custom patch store.
func WithPatchStore(store core.PatchStore) Option {
	return func(o *options) {
		o.patchStore = store
	}
}

// WithEventBuffer sets the size of the watch event buffer.
func WithEventBuffer(size int) Option {
	return func(o *options) {
		o.config["event_buffer"] = size
	}
}
