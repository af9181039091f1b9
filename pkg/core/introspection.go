package core

import (
	"github.com/aretw0/introspection"
)

// ServiceState exposes internal state for observability.
type ServiceState struct {
	RemovePatches   bool   `json:"remove_patches"`
	IncludeFields   int    `json:"include_fields"`
	EventBufferSize int    `json:"event_buffer_size"`
	DocumentStore   string `json:"document_store"`
	PatchStoreType  string `json:"patch_store"`
}

// State implements introspection.Introspectable.
func (s *Service) State() any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docStore := "store"
	if comp, ok := s.docs.(introspection.Component); ok {
		docStore = comp.ComponentType()
	}
	patchStore := "store"
	if comp, ok := s.patches.(introspection.Component); ok {
		patchStore = comp.ComponentType()
	}

	return ServiceState{
		RemovePatches:   s.cfg.RemovePatches,
		IncludeFields:   len(s.plan),
		EventBufferSize: s.eventBufferSize,
		DocumentStore:   docStore,
		PatchStoreType:  patchStore,
	}
}

// ComponentType implements introspection.Component.
func (s *Service) ComponentType() string {
	return "service"
}

var _ introspection.Introspectable = (*Service)(nil)
var _ introspection.Component = (*Service)(nil)
