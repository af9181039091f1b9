package diff

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch"
)

// Replay applies an ordered sequence of operations to a base state and
// returns the resulting state. The base is not mutated.
//
// Operations are applied strictly in slice order, so later operations may
// overwrite earlier ones on the same path. Passing a nil base is
// equivalent to replaying against the empty object.
func Replay(ops []Op, base map[string]any) (map[string]any, error) {
	if base == nil {
		base = map[string]any{}
	}
	if len(ops) == 0 {
		return clone(base)
	}

	doc, err := json.Marshal(base)
	if err != nil {
		return nil, fmt.Errorf("failed to encode base state: %w", err)
	}

	raw, err := json.Marshal(ops)
	if err != nil {
		return nil, fmt.Errorf("failed to encode operations: %w", err)
	}

	patch, err := jsonpatch.DecodePatch(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid patch operations: %w", err)
	}

	out, err := patch.Apply(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to apply operations: %w", err)
	}

	var state map[string]any
	if err := json.Unmarshal(out, &state); err != nil {
		return nil, fmt.Errorf("failed to decode replayed state: %w", err)
	}
	return state, nil
}

// clone returns a JSON round-trip copy, keeping Replay's no-mutation
// guarantee for the zero-ops case.
func clone(state map[string]any) (map[string]any, error) {
	data, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("failed to clone state: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to clone state: %w", err)
	}
	return out, nil
}
