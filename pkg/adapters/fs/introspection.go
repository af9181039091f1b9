package fs

import (
	"github.com/aretw0/introspection"
)

// RepositoryState exposes internal state for observability.
type RepositoryState struct {
	Path            string `json:"path"`
	SystemDir       string `json:"system_dir"`
	Collection      string `json:"collection"`
	PatchCollection string `json:"patch_collection"`
	WatcherActive   bool   `json:"watcher_active"`
}

// State implements introspection.Introspectable.
func (r *Repository) State() any {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return RepositoryState{
		Path:            r.Path,
		SystemDir:       r.config.SystemDir,
		Collection:      r.config.Collection,
		PatchCollection: r.config.PatchCollection,
		WatcherActive:   r.watcherActive,
	}
}

// ComponentType implements introspection.Component.
func (r *Repository) ComponentType() string {
	return "fs"
}

var _ introspection.Introspectable = (*Repository)(nil)
var _ introspection.Component = (*Repository)(nil)

func (r *Repository) setWatcherActive(active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.watcherActive = active
}
