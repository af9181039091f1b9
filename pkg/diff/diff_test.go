package diff_test

import (
	"reflect"
	"testing"

	"github.com/pashist/patchhistory/pkg/diff"
)

func TestCompute_Creation(t *testing.T) {
	ops := diff.Compute(map[string]any{}, map[string]any{"title": "foo"})

	want := []diff.Op{{Kind: diff.OpAdd, Path: "/title", Value: "foo"}}
	if !reflect.DeepEqual(ops, want) {
		t.Errorf("expected %v, got %v", want, ops)
	}
}

func TestCompute_Update(t *testing.T) {
	before := map[string]any{"title": "foo"}
	after := map[string]any{"title": "bar"}

	ops := diff.Compute(before, after)

	want := []diff.Op{{Kind: diff.OpReplace, Path: "/title", Value: "bar"}}
	if !reflect.DeepEqual(ops, want) {
		t.Errorf("expected %v, got %v", want, ops)
	}
}

func TestCompute_Remove(t *testing.T) {
	before := map[string]any{"title": "foo", "draft": true}
	after := map[string]any{"title": "foo"}

	ops := diff.Compute(before, after)

	want := []diff.Op{{Kind: diff.OpRemove, Path: "/draft"}}
	if !reflect.DeepEqual(ops, want) {
		t.Errorf("expected %v, got %v", want, ops)
	}
}

func TestCompute_NoChange(t *testing.T) {
	state := map[string]any{"title": "foo", "tags": []any{"a", "b"}}

	if ops := diff.Compute(state, state); len(ops) != 0 {
		t.Errorf("expected no operations, got %v", ops)
	}
}

func TestCompute_Deterministic(t *testing.T) {
	after := map[string]any{"b": float64(2), "a": float64(1), "c": float64(3)}

	ops := diff.Compute(map[string]any{}, after)

	wantPaths := []string{"/a", "/b", "/c"}
	for i, op := range ops {
		if op.Path != wantPaths[i] {
			t.Fatalf("expected sorted paths %v, got %v", wantPaths, ops)
		}
	}
}

func TestCompute_NestedObjects(t *testing.T) {
	before := map[string]any{"meta": map[string]any{"author": "ann", "year": float64(2020)}}
	after := map[string]any{"meta": map[string]any{"author": "bob", "year": float64(2020)}}

	ops := diff.Compute(before, after)

	want := []diff.Op{{Kind: diff.OpReplace, Path: "/meta/author", Value: "bob"}}
	if !reflect.DeepEqual(ops, want) {
		t.Errorf("expected %v, got %v", want, ops)
	}
}

func TestCompute_ArraysAreAtomic(t *testing.T) {
	before := map[string]any{"tags": []any{"a", "b"}}
	after := map[string]any{"tags": []any{"a", "c"}}

	ops := diff.Compute(before, after)

	want := []diff.Op{{Kind: diff.OpReplace, Path: "/tags", Value: []any{"a", "c"}}}
	if !reflect.DeepEqual(ops, want) {
		t.Errorf("expected %v, got %v", want, ops)
	}
}

func TestCompute_TypeChange(t *testing.T) {
	before := map[string]any{"value": map[string]any{"x": float64(1)}}
	after := map[string]any{"value": "flat"}

	ops := diff.Compute(before, after)

	want := []diff.Op{{Kind: diff.OpReplace, Path: "/value", Value: "flat"}}
	if !reflect.DeepEqual(ops, want) {
		t.Errorf("expected %v, got %v", want, ops)
	}
}

func TestCompute_PointerEscaping(t *testing.T) {
	ops := diff.Compute(map[string]any{}, map[string]any{"a/b~c": "v"})

	if len(ops) != 1 || ops[0].Path != "/a~1b~0c" {
		t.Errorf("expected escaped path /a~1b~0c, got %v", ops)
	}
}
