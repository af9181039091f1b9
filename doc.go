// Package patchhistory provides transparent, automatic versioning for
// mutable documents: every create, modify, and delete is recorded as an
// immutable, append-only patch record, and any prior state can be
// reconstructed by replaying history.
//
// Philosophy:
//
// The core is storage-agnostic. It layers a versioning coordinator over
// two small contracts (core.DocumentStore and core.PatchStore), so the
// same engine runs on memory, plain files, BadgerDB, or SQLite.
//
// Features:
//
//   - **Snapshot-based change detection**: saves diff the pending state
//     against the last committed snapshot; unmodified saves leave no trace.
//   - **JSON-patch history**: each change is an ordered add/replace/remove
//     operation sequence tied to its parent document.
//   - **Rollback**: reconstructs a historical state by replay and commits
//     it forward as a new patch. History is never rewritten.
//   - **Cascading deletion**: removing a document removes its history,
//     unless disabled.
//   - **Includes**: extra fields (e.g. the acting user) copied onto each
//     patch from the owning document.
//   - **Typed Retrieval**: generic wrapper (`NewHistory[T]`) for type-safe
//     document access.
//
// Usage:
//
//	svc, err := patchhistory.New("./data",
//		patchhistory.WithAdapter("fs"),
//		patchhistory.WithAutoInit(true),
//	)
//
//	doc := &patchhistory.Document{Fields: patchhistory.Fields{"title": "foo"}}
//	err = svc.Save(ctx, doc)
package patchhistory
