package badger_test

import (
	"context"
	"errors"
	"testing"

	"github.com/pashist/patchhistory/pkg/adapters/badger"
	"github.com/pashist/patchhistory/pkg/core"
	"github.com/pashist/patchhistory/pkg/diff"
)

func newTestStore(t *testing.T) *badger.Store {
	t.Helper()
	store, err := badger.Open(badger.Config{InMemory: true})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return store
}

func TestStore_Documents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	doc := core.Document{ID: "doc-1", Fields: core.Fields{"title": "foo"}}
	if err := store.Save(ctx, doc); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Get(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Fields["title"] != "foo" {
		t.Errorf("expected title foo, got %v", got.Fields["title"])
	}

	// Overwrites replace the previous state.
	doc.Fields["title"] = "bar"
	if err := store.Save(ctx, doc); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err = store.Get(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Fields["title"] != "bar" {
		t.Errorf("expected title bar, got %v", got.Fields["title"])
	}

	if _, err := store.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := store.Delete(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound on delete, got %v", err)
	}
	if err := store.Delete(ctx, "doc-1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "doc-1"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected document gone, got %v", err)
	}
}

func TestStore_ListOrdersByID(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		if err := store.Save(ctx, core.Document{ID: id, Fields: core.Fields{}}); err != nil {
			t.Fatalf("Save %s failed: %v", id, err)
		}
	}
	docs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(docs) != 3 || docs[0].ID != "a" || docs[2].ID != "c" {
		t.Errorf("expected a,b,c ordering, got %v", docs)
	}
}

func TestStore_RejectsNULIdentifiers(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Save(ctx, core.Document{ID: "a\x00b", Fields: core.Fields{}})
	if !core.IsValidationError(err) {
		t.Errorf("expected validation error, got %v", err)
	}
	_, err = store.Create(ctx, core.Patch{
		Ref: "a\x00b",
		Ops: []diff.Op{{Kind: diff.OpAdd, Path: "/x", Value: 1}},
	})
	if !core.IsValidationError(err) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func seedPatches(t *testing.T, store *badger.Store, ref string, n int) []core.Patch {
	t.Helper()
	ctx := context.Background()
	out := make([]core.Patch, 0, n)
	for i := 0; i < n; i++ {
		p, err := store.Create(ctx, core.Patch{
			Ref: ref,
			Ops: []diff.Op{{Kind: diff.OpAdd, Path: "/n", Value: float64(i)}},
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		out = append(out, p)
	}
	return out
}

func TestStore_PatchIteration(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	seeded := seedPatches(t, store, "doc-1", 3)
	seedPatches(t, store, "doc-2", 2)

	t.Run("Prefix Scan Is Ascending", func(t *testing.T) {
		got, err := store.Find(ctx, core.PatchQuery{Ref: "doc-1", Sort: core.SortAsc})
		if err != nil {
			t.Fatalf("Find failed: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 patches, got %d", len(got))
		}
		for i := range got {
			if got[i].ID != seeded[i].ID {
				t.Errorf("position %d: expected %s, got %s", i, seeded[i].ID, got[i].ID)
			}
		}
	})

	t.Run("Reverse Scan With Limit", func(t *testing.T) {
		got, err := store.Find(ctx, core.PatchQuery{Ref: "doc-1", Sort: core.SortDesc, Limit: 2})
		if err != nil {
			t.Fatalf("Find failed: %v", err)
		}
		if len(got) != 2 || got[0].ID != seeded[2].ID || got[1].ID != seeded[1].ID {
			t.Errorf("expected newest-first pair, got %v", got)
		}
	})

	t.Run("ID Range", func(t *testing.T) {
		got, err := store.Find(ctx, core.PatchQuery{Ref: "doc-1", MinID: seeded[1].ID, MaxID: seeded[1].ID})
		if err != nil {
			t.Fatalf("Find failed: %v", err)
		}
		if len(got) != 1 || got[0].ID != seeded[1].ID {
			t.Errorf("expected exactly the middle patch, got %v", got)
		}
	})

	t.Run("Refs Are Isolated", func(t *testing.T) {
		got, err := store.Find(ctx, core.PatchQuery{Ref: "doc-2"})
		if err != nil {
			t.Fatalf("Find failed: %v", err)
		}
		if len(got) != 2 {
			t.Errorf("expected 2 patches for doc-2, got %d", len(got))
		}
	})

	t.Run("Count", func(t *testing.T) {
		n, err := store.Count(ctx, "doc-1", core.IDFilter{GTE: seeded[1].ID})
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2, got %d", n)
		}
		n, err = store.Count(ctx, "doc-1", core.IDFilter{Equal: seeded[0].ID})
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1, got %d", n)
		}
	})

	t.Run("DeleteAll Leaves Other Refs", func(t *testing.T) {
		if err := store.DeleteAll(ctx, "doc-1"); err != nil {
			t.Fatalf("DeleteAll failed: %v", err)
		}
		n, err := store.Count(ctx, "doc-1", core.IDFilter{})
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if n != 0 {
			t.Errorf("expected empty history, got %d", n)
		}
		n, err = store.Count(ctx, "doc-2", core.IDFilter{})
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if n != 2 {
			t.Errorf("doc-2 history must survive, got %d", n)
		}
		if err := store.DeleteAll(ctx, "doc-1"); err != nil {
			t.Errorf("repeated DeleteAll failed: %v", err)
		}
	})
}

func TestStore_State(t *testing.T) {
	store := newTestStore(t)

	state, ok := store.State().(badger.StoreState)
	if !ok {
		t.Fatalf("unexpected state type %T", store.State())
	}
	if !state.InMemory {
		t.Error("expected in-memory flag to be reported")
	}
	if store.ComponentType() != "badger" {
		t.Errorf("unexpected component type %q", store.ComponentType())
	}
}
