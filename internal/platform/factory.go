package platform

import (
	"github.com/pashist/patchhistory/pkg/core"
)

// New creates a new versioning Service over the selected adapter.
//
//	svc, err := patchhistory.New("./data", patchhistory.WithAdapter("fs"))
//
// The uri argument is adapter-specific (directory path for fs/badger,
// database file for sqlite, ignored for memory).
func New(uri string, opts ...Option) (*core.Service, error) {
	docs, patches, err := Init(uri, opts...)
	if err != nil {
		return nil, err
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	removePatches, _ := o.config["remove_patches"].(bool)
	eventBuffer, _ := o.config["event_buffer"].(int)

	return core.NewService(docs, patches, core.Config{
		RemovePatches:   removePatches,
		Includes:        o.includes,
		Logger:          o.logger,
		EventBufferSize: eventBuffer,
	})
}
