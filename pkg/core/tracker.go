package core

import (
	"fmt"
	"sync"
)

// State identifies where a document instance sits in the versioning
// lifecycle.
type State string

const (
	// StateNew marks an instance that was never persisted. It has no
	// snapshot: its effective diff baseline is the empty object.
	StateNew State = "new"
	// StateLoaded marks an instance freshly constructed from storage,
	// with a snapshot and no pending patch.
	StateLoaded State = "loaded"
	// StateSaving marks an instance whose diff is in flight.
	StateSaving State = "saving"
	// StateCommitted marks an instance whose latest save completed: a new
	// snapshot was taken and a matching patch was persisted or skipped.
	StateCommitted State = "committed"
	// StateRemoving marks an instance whose cascading patch cleanup is in
	// flight.
	StateRemoving State = "removing"
	// StateRemoved is terminal for that instance.
	StateRemoved State = "removed"
)

// Tracker is the explicit per-document state holder: it keeps the
// last-known committed snapshot and the lifecycle state, updated by the
// Service at well-defined transition points.
//
// The snapshot is owned exclusively by the in-memory document instance.
// It is never persisted and is overwritten, never merged, on every
// load and successful save.
type Tracker struct {
	mu       sync.Mutex
	state    State
	snapshot Fields
	has      bool
}

// NewTracker returns a tracker in the new-document state, with no
// snapshot.
func NewTracker() *Tracker {
	return &Tracker{state: StateNew}
}

// State returns the current lifecycle state.
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Snapshot returns the last committed snapshot and whether one exists.
// The returned map must not be mutated by callers.
func (t *Tracker) Snapshot() (Fields, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshot, t.has
}

// Load records the data projection captured when the document was
// constructed from storage, replacing any prior snapshot.
func (t *Tracker) Load(data Fields) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.snapshot = data
	t.has = true
	t.state = StateLoaded
}

// BeginSave transitions into the saving state. It fails on instances that
// are already saving (single-writer discipline) or removed. The returned
// function ends the save attempt: call it with true after a successful
// commit of the given data projection, or with false to restore the
// pre-save state on failure.
func (t *Tracker) BeginSave() (end func(committed bool, data Fields), err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case StateSaving:
		return nil, NewValidationError("save already in progress for this document")
	case StateRemoving, StateRemoved:
		return nil, NewValidationError(fmt.Sprintf("cannot save a document in state %q", t.state))
	}

	prev := t.state
	t.state = StateSaving

	return func(committed bool, data Fields) {
		t.mu.Lock()
		defer t.mu.Unlock()
		if !committed {
			t.state = prev
			return
		}
		t.snapshot = data
		t.has = true
		t.state = StateCommitted
	}, nil
}

// BeginRemove transitions into the removing state. The returned function
// ends the attempt: true marks the instance removed, false restores the
// pre-remove state.
func (t *Tracker) BeginRemove() (end func(removed bool), err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case StateSaving:
		return nil, NewValidationError("cannot remove a document while a save is in progress")
	case StateRemoving, StateRemoved:
		return nil, NewValidationError(fmt.Sprintf("cannot remove a document in state %q", t.state))
	}

	prev := t.state
	t.state = StateRemoving

	return func(removed bool) {
		t.mu.Lock()
		defer t.mu.Unlock()
		if !removed {
			t.state = prev
			return
		}
		t.state = StateRemoved
	}, nil
}
