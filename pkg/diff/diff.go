// Package diff computes and replays JSON-patch style operations between
// document states.
//
// The engine is pure: it has no knowledge of persistence or document
// identity. Inputs are expected to be JSON-normalized maps (the shape
// produced by core.Document.Data), so scalar comparison is well-defined
// across serialization round-trips.
package diff

import (
	"reflect"
	"sort"
	"strings"
)

// OpKind identifies one of the three supported patch operations.
type OpKind string

const (
	OpAdd     OpKind = "add"
	OpReplace OpKind = "replace"
	OpRemove  OpKind = "remove"
)

// Op is a single patch operation addressed by a JSON pointer path.
// It serializes to the standard RFC 6902 wire shape. Value stays
// explicit (not omitempty) so an add/replace carrying null survives the
// round trip.
type Op struct {
	Kind  OpKind `json:"op"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// Compute returns the ordered sequence of operations that transforms
// before into after under structural equality.
//
// Nested objects are compared recursively; every other value (including
// arrays) is treated as atomic and replaced wholesale when unequal.
// For document creation pass an empty map as before: every present field
// yields an add. The result is deterministic: keys are visited in sorted
// order at every level.
func Compute(before, after map[string]any) []Op {
	var ops []Op
	diffObject("", before, after, &ops)
	return ops
}

func diffObject(prefix string, before, after map[string]any, ops *[]Op) {
	for _, key := range unionKeys(before, after) {
		path := prefix + "/" + escapePointer(key)
		bv, inBefore := before[key]
		av, inAfter := after[key]

		switch {
		case inBefore && !inAfter:
			*ops = append(*ops, Op{Kind: OpRemove, Path: path})
		case !inBefore && inAfter:
			*ops = append(*ops, Op{Kind: OpAdd, Path: path, Value: av})
		default:
			bm, bIsMap := bv.(map[string]any)
			am, aIsMap := av.(map[string]any)
			if bIsMap && aIsMap {
				diffObject(path, bm, am, ops)
				continue
			}
			if !reflect.DeepEqual(bv, av) {
				*ops = append(*ops, Op{Kind: OpReplace, Path: path, Value: av})
			}
		}
	}
}

func unionKeys(a, b map[string]any) []string {
	keys := make([]string, 0, len(a)+len(b))
	for k := range a {
		keys = append(keys, k)
	}
	for k := range b {
		if _, ok := a[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// escapePointer applies RFC 6901 token escaping.
func escapePointer(token string) string {
	token = strings.ReplaceAll(token, "~", "~0")
	return strings.ReplaceAll(token, "/", "~1")
}
