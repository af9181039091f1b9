package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/pashist/patchhistory/pkg/adapters/sqlite"
	"github.com/pashist/patchhistory/pkg/core"
	"github.com/pashist/patchhistory/pkg/diff"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	store, err := sqlite.Open(sqlite.Config{Path: filepath.Join(t.TempDir(), "test.db")})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	return store
}

func TestOpen_RejectsUnsafeTableNames(t *testing.T) {
	for _, name := range []string{"docs; DROP TABLE x", "a b", "1abc", `a"b`} {
		_, err := sqlite.Open(sqlite.Config{Path: ":memory:", Collection: name})
		if !core.IsValidationError(err) {
			t.Errorf("Open(%q): expected validation error, got %v", name, err)
		}
	}
}

func TestStore_Documents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC()
	doc := core.Document{
		ID:        "doc-1",
		Fields:    core.Fields{"title": "foo", "nested": map[string]any{"a": float64(1)}},
		CreatedAt: now,
		UpdatedAt: now,
	}
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
	nested, ok := got.Fields["nested"].(map[string]any)
	if !ok || nested["a"] != float64(1) {
		t.Errorf("nested fields did not survive the round trip: %v", got.Fields["nested"])
	}
	if !got.CreatedAt.Equal(now) {
		t.Errorf("expected created_at %v, got %v", now, got.CreatedAt)
	}

	// Upsert keeps the row, replaces the fields.
	doc.Fields["title"] = "bar"
	if err := store.Save(ctx, doc); err != nil {
		t.Fatalf("upsert Save failed: %v", err)
	}
	got, err = store.Get(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Fields["title"] != "bar" {
		t.Errorf("expected title bar after upsert, got %v", got.Fields["title"])
	}

	docs, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(docs) != 1 || docs[0].ID != "doc-1" {
		t.Errorf("expected one listed document, got %v", docs)
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
}

func TestStore_Patches(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var ids []string
	for i, title := range []string{"v1", "v2", "v3"} {
		p, err := store.Create(ctx, core.Patch{
			Ref: "doc-1",
			Ops: []diff.Op{{Kind: diff.OpReplace, Path: "/title", Value: title}},
			Includes: func() core.Fields {
				if i == 0 {
					return core.Fields{"user": "u-1"}
				}
				return nil
			}(),
		})
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		ids = append(ids, p.ID)
	}

	got, err := store.Find(ctx, core.PatchQuery{Ref: "doc-1", Sort: core.SortAsc})
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 patches, got %d", len(got))
	}
	for i, p := range got {
		if p.ID != ids[i] || p.Ref != "doc-1" {
			t.Errorf("patch %d out of order: %+v", i, p)
		}
		if p.Date.IsZero() {
			t.Errorf("patch %d lost its date", i)
		}
	}
	if got[0].Includes["user"] != "u-1" {
		t.Errorf("includes did not survive: %v", got[0].Includes)
	}
	if got[1].Includes != nil {
		t.Errorf("expected NULL includes to come back nil, got %v", got[1].Includes)
	}
	if op := got[2].Ops[0]; op.Kind != diff.OpReplace || op.Value != "v3" {
		t.Errorf("ops did not survive: %+v", op)
	}

	t.Run("Range Descending Limited", func(t *testing.T) {
		got, err := store.Find(ctx, core.PatchQuery{Ref: "doc-1", MaxID: ids[1], Sort: core.SortDesc, Limit: 1})
		if err != nil {
			t.Fatalf("Find failed: %v", err)
		}
		if len(got) != 1 || got[0].ID != ids[1] {
			t.Errorf("expected the middle patch, got %v", got)
		}
	})

	t.Run("Count", func(t *testing.T) {
		n, err := store.Count(ctx, "doc-1", core.IDFilter{GTE: ids[2]})
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if n != 1 {
			t.Errorf("expected 1 patch at or after the last ID, got %d", n)
		}
		n, err = store.Count(ctx, "doc-1", core.IDFilter{LTE: ids[1]})
		if err != nil {
			t.Fatalf("Count failed: %v", err)
		}
		if n != 2 {
			t.Errorf("expected 2 patches up to the middle ID, got %d", n)
		}
	})

	t.Run("DeleteAll", func(t *testing.T) {
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
		if err := store.DeleteAll(ctx, "doc-1"); err != nil {
			t.Errorf("repeated DeleteAll failed: %v", err)
		}
	})
}

func TestStore_CustomCollections(t *testing.T) {
	store, err := sqlite.Open(sqlite.Config{
		Path:       filepath.Join(t.TempDir(), "test.db"),
		Collection: "notes",
	})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer store.Close()
	ctx := context.Background()
	if err := store.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	if err := store.Save(ctx, core.Document{ID: "n-1", Fields: core.Fields{"x": float64(1)}}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if _, err := store.Get(ctx, "n-1"); err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	state, ok := store.State().(sqlite.StoreState)
	if !ok {
		t.Fatalf("unexpected state type %T", store.State())
	}
	if state.Collection != "notes" || state.PatchCollection != "notes_patches" {
		t.Errorf("unexpected table names: %+v", state)
	}
}
