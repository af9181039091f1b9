package patchhistory_test

import (
	"context"
	"fmt"
	"log"

	"github.com/pashist/patchhistory"
)

// Example_basic demonstrates saving a document and inspecting the patch
// history it accumulates.
func Example_basic() {
	// The in-memory adapter needs no location.
	svc, err := patchhistory.New("")
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	// 1. Save a document: the creation is recorded as a patch.
	doc := &patchhistory.Document{Fields: patchhistory.Fields{"title": "draft"}}
	if err := svc.Save(ctx, doc); err != nil {
		log.Fatal(err)
	}

	// 2. Change it and save again: only the delta is recorded.
	doc.Set("title", "final")
	if err := svc.Save(ctx, doc); err != nil {
		log.Fatal(err)
	}

	patches, err := svc.History(ctx, doc.ID)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("%d patches\n", len(patches))
	for _, p := range patches {
		for _, op := range p.Ops {
			fmt.Printf("%s %s %v\n", op.Kind, op.Path, op.Value)
		}
	}
	// Output:
	// 2 patches
	// add /title draft
	// replace /title final
}

// ExampleNewHistory demonstrates the generic typed wrapper for type
// safety.
func ExampleNewHistory() {
	svc, err := patchhistory.New("")
	if err != nil {
		log.Fatal(err)
	}

	// Define your domain model.
	type User struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}

	users := patchhistory.NewHistory[User](svc)
	ctx := context.Background()

	// Save a typed document.
	doc := &patchhistory.DocumentModel[User]{
		Data: User{Name: "Alice", Email: "alice@example.com"},
	}
	if err := users.Save(ctx, doc); err != nil {
		log.Fatal(err)
	}

	// Retrieve it back.
	got, err := users.Get(ctx, doc.ID)
	if err != nil {
		log.Fatal(err)
	}

	fmt.Printf("User Name: %s\n", got.Data.Name)
	// Output:
	// User Name: Alice
}
