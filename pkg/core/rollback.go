package core

import (
	"context"

	"github.com/pashist/patchhistory/pkg/diff"
)

// Rollback reconstructs the document's state as of the target patch and
// commits it as the new current state through the normal save path.
// History is never rewritten: the commit itself appends a brand-new patch
// capturing the transition from the current state to the rolled-back one.
//
// Two rejections, both rollback-kind errors:
//   - the target is the document's latest patch: there is nothing later
//     to roll back from;
//   - the target does not exist in this document's history.
//
// extra is merged over the reconstructed state before committing, e.g. a
// required field that cannot be derived from history.
func (s *Service) Rollback(ctx context.Context, id, patchID string, extra Fields) (*Document, error) {
	if id == "" {
		return nil, NewValidationError("document ID cannot be empty")
	}
	if patchID == "" {
		return nil, NewValidationError("patch ID cannot be empty")
	}

	later, err := s.patches.Count(ctx, id, IDFilter{GTE: patchID})
	if err != nil {
		return nil, s.asPersistence("failed to count patches", err)
	}
	if later == 1 {
		return nil, NewRollbackError("rollback to latest patch", Fields{"ref": id, "patch": patchID})
	}

	state, err := s.replayTo(ctx, id, patchID)
	if err != nil {
		return nil, err
	}

	for k, v := range extra {
		state[k] = v
	}

	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	doc.Fields = state

	if err := s.Save(ctx, doc); err != nil {
		return nil, err
	}
	s.logger.Debug("rolled back", "ref", id, "patch", patchID)
	return doc, nil
}

// StateAt reconstructs the document's state as of the target patch
// without committing anything. It rejects when the target patch does not
// exist in the document's history.
func (s *Service) StateAt(ctx context.Context, id, patchID string) (Fields, error) {
	if id == "" {
		return nil, NewValidationError("document ID cannot be empty")
	}
	if patchID == "" {
		return nil, NewValidationError("patch ID cannot be empty")
	}
	return s.replayTo(ctx, id, patchID)
}

// replayTo fetches the ordered history prefix up to and including the
// target patch and replays it against the empty object.
func (s *Service) replayTo(ctx context.Context, ref, patchID string) (Fields, error) {
	patches, err := s.patches.Find(ctx, PatchQuery{Ref: ref, MaxID: patchID, Sort: SortAsc})
	if err != nil {
		return nil, s.asPersistence("failed to load patches", err)
	}

	found := false
	for _, p := range patches {
		if p.ID == patchID {
			found = true
			break
		}
	}
	if !found {
		return nil, NewRollbackError("patch doesn't exist", Fields{"ref": ref, "patch": patchID})
	}

	state := Fields{}
	for _, p := range patches {
		next, err := diff.Replay(p.Ops, state)
		if err != nil {
			return nil, NewPersistenceError("failed to replay patch "+p.ID, err)
		}
		state = next
	}
	return state, nil
}
