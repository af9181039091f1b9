package platform

import (
	"context"
	"fmt"

	adbadger "github.com/pashist/patchhistory/pkg/adapters/badger"
	"github.com/pashist/patchhistory/pkg/adapters/fs"
	"github.com/pashist/patchhistory/pkg/adapters/memory"
	"github.com/pashist/patchhistory/pkg/adapters/sqlite"
	"github.com/pashist/patchhistory/pkg/core"
)

// Init builds and initializes the document and patch stores for the
// selected adapter. The 'uri' argument is adapter-specific: a directory
// path for fs/badger, a database file for sqlite, ignored for memory.
func Init(uri string, opts ...Option) (core.DocumentStore, core.PatchStore, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	docs := o.docStore
	patches := o.patchStore

	if docs == nil || patches == nil {
		builtDocs, builtPatches, err := initAdapter(uri, o)
		if err != nil {
			return nil, nil, err
		}
		if docs == nil {
			docs = builtDocs
		}
		if patches == nil {
			patches = builtPatches
		}
	}

	ctx := context.Background()
	if err := docs.Initialize(ctx); err != nil {
		return nil, nil, err
	}
	if err := patches.Initialize(ctx); err != nil {
		return nil, nil, err
	}
	return docs, patches, nil
}

func initAdapter(uri string, o *options) (core.DocumentStore, core.PatchStore, error) {
	switch o.adapter {
	case "memory":
		store := memory.NewStore()
		return store, store, nil

	case "fs":
		autoInit, _ := o.config["auto_init"].(bool)
		mustExist, _ := o.config["must_exist"].(bool)
		collection, _ := o.config["collection"].(string)
		patchCollection, _ := o.config["patch_collection"].(string)
		repo := fs.NewRepository(fs.Config{
			Path:            uri,
			AutoInit:        autoInit,
			MustExist:       mustExist,
			Logger:          o.logger,
			Collection:      collection,
			PatchCollection: patchCollection,
		})
		return repo, repo, nil

	case "badger":
		store, err := adbadger.Open(adbadger.Config{
			Path:       uri,
			SyncWrites: true,
			Logger:     o.logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil

	case "sqlite":
		collection, _ := o.config["collection"].(string)
		patchCollection, _ := o.config["patch_collection"].(string)
		store, err := sqlite.Open(sqlite.Config{
			Path:            uri,
			Collection:      collection,
			PatchCollection: patchCollection,
			Logger:          o.logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil

	default:
		return nil, nil, fmt.Errorf("unknown adapter: %s", o.adapter)
	}
}
