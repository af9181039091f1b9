package typed_test

import (
	"context"
	"errors"
	"testing"

	"github.com/pashist/patchhistory/pkg/adapters/memory"
	"github.com/pashist/patchhistory/pkg/core"
	"github.com/pashist/patchhistory/pkg/typed"
)

type Article struct {
	Title string   `json:"title"`
	Tags  []string `json:"tags,omitempty"`
	Views int      `json:"views"`
}

func newTestHistory(t *testing.T, cfg core.Config) *typed.History[Article] {
	t.Helper()
	store := memory.NewStore()
	svc, err := core.NewService(store, store, cfg)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	return typed.NewHistory[Article](svc)
}

func TestHistory_SaveAndGet(t *testing.T) {
	h := newTestHistory(t, core.DefaultConfig())
	ctx := context.Background()

	doc := &typed.DocumentModel[Article]{
		Data: Article{Title: "hello", Tags: []string{"go"}, Views: 7},
	}
	if err := h.Save(ctx, doc); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if doc.ID == "" {
		t.Fatal("expected an ID after save")
	}

	got, err := h.Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Data.Title != "hello" || got.Data.Views != 7 {
		t.Errorf("typed round trip lost data: %+v", got.Data)
	}
	if len(got.Data.Tags) != 1 || got.Data.Tags[0] != "go" {
		t.Errorf("tags lost: %v", got.Data.Tags)
	}

	if _, err := h.Get(ctx, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestHistory_RepeatedSavesDiffIncrementally(t *testing.T) {
	h := newTestHistory(t, core.DefaultConfig())
	ctx := context.Background()

	doc := &typed.DocumentModel[Article]{Data: Article{Title: "v1"}}
	if err := h.Save(ctx, doc); err != nil {
		t.Fatalf("save v1: %v", err)
	}

	// The model carries its snapshot: a second save of the same content
	// records nothing.
	if err := doc.Save(ctx); err != nil {
		t.Fatalf("no-op save: %v", err)
	}
	patches, err := h.Patches(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Patches failed: %v", err)
	}
	if len(patches) != 1 {
		t.Fatalf("expected 1 patch after no-op save, got %d", len(patches))
	}

	doc.Data.Title = "v2"
	if err := doc.Save(ctx); err != nil {
		t.Fatalf("save v2: %v", err)
	}
	patches, err = h.Patches(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Patches failed: %v", err)
	}
	if len(patches) != 2 {
		t.Fatalf("expected 2 patches, got %d", len(patches))
	}
	if len(patches[1].Ops) != 1 || patches[1].Ops[0].Path != "/title" {
		t.Errorf("expected an incremental title diff, got %+v", patches[1].Ops)
	}
}

func TestHistory_LoadedModelDiffsAgainstStoredState(t *testing.T) {
	h := newTestHistory(t, core.DefaultConfig())
	ctx := context.Background()

	doc := &typed.DocumentModel[Article]{Data: Article{Title: "v1", Views: 1}}
	if err := h.Save(ctx, doc); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := h.Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	loaded.Data.Views = 2
	if err := loaded.Save(ctx); err != nil {
		t.Fatalf("Save after load failed: %v", err)
	}

	patches, err := h.Patches(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Patches failed: %v", err)
	}
	if len(patches) != 2 {
		t.Fatalf("expected 2 patches, got %d", len(patches))
	}
	ops := patches[1].Ops
	if len(ops) != 1 || ops[0].Path != "/views" {
		t.Errorf("expected a single /views op, got %+v", ops)
	}
}

func TestHistory_TransientIncludes(t *testing.T) {
	h := newTestHistory(t, core.Config{
		RemovePatches: true,
		Includes:      []core.IncludeField{{Name: "user", Required: true}},
	})
	ctx := context.Background()

	doc := &typed.DocumentModel[Article]{Data: Article{Title: "v1"}}
	doc.SetTransient("user", "u-9")
	if err := h.Save(ctx, doc); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	patches, err := h.Patches(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Patches failed: %v", err)
	}
	if patches[0].Includes["user"] != "u-9" {
		t.Errorf("expected include user=u-9, got %v", patches[0].Includes)
	}

	// The transient key never leaks into content.
	got, err := h.Get(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Data.Title != "v1" {
		t.Errorf("content corrupted: %+v", got.Data)
	}
}

func TestHistory_Rollback(t *testing.T) {
	h := newTestHistory(t, core.DefaultConfig())
	ctx := context.Background()

	doc := &typed.DocumentModel[Article]{Data: Article{Title: "v1"}}
	if err := h.Save(ctx, doc); err != nil {
		t.Fatalf("save v1: %v", err)
	}
	doc.Data.Title = "v2"
	if err := doc.Save(ctx); err != nil {
		t.Fatalf("save v2: %v", err)
	}

	patches, err := h.Patches(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Patches failed: %v", err)
	}

	rolled, err := h.Rollback(ctx, doc.ID, patches[0].ID, nil)
	if err != nil {
		t.Fatalf("Rollback failed: %v", err)
	}
	if rolled.Data.Title != "v1" {
		t.Errorf("expected rolled-back title v1, got %q", rolled.Data.Title)
	}

	// The rolled-back model is live: it can be saved again.
	rolled.Data.Title = "v4"
	if err := rolled.Save(ctx); err != nil {
		t.Fatalf("save after rollback: %v", err)
	}
}

func TestHistory_Remove(t *testing.T) {
	h := newTestHistory(t, core.DefaultConfig())
	ctx := context.Background()

	doc := &typed.DocumentModel[Article]{Data: Article{Title: "v1"}}
	if err := h.Save(ctx, doc); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := h.Remove(ctx, doc); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if _, err := h.Get(ctx, doc.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("expected document gone, got %v", err)
	}
	patches, err := h.Patches(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Patches failed: %v", err)
	}
	if len(patches) != 0 {
		t.Errorf("expected cascaded history removal, got %d patches", len(patches))
	}
}

func TestDocumentModel_DetachedSave(t *testing.T) {
	doc := &typed.DocumentModel[Article]{Data: Article{Title: "x"}}
	if err := doc.Save(context.Background()); err == nil {
		t.Fatal("expected detached save to fail")
	}
}
