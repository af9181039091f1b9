package core

import (
	"time"

	"github.com/google/uuid"

	"github.com/pashist/patchhistory/pkg/diff"
)

// Patch is one immutable, append-only history entry: the exact semantic
// difference between two successive committed states of a document.
//
// Patches for a given Ref form a total order by ID (and Date) that
// corresponds exactly to the sequence of committed mutations of that
// document.
type Patch struct {
	// ID is a time-ordered UUIDv7, so canonical string comparison matches
	// creation order.
	ID string `json:"id"`

	// Date is the creation timestamp.
	Date time.Time `json:"date"`

	// Ops is the non-empty ordered operation sequence. A patch with zero
	// operations is never persisted.
	Ops []diff.Op `json:"ops"`

	// Ref identifies the parent document.
	Ref string `json:"ref"`

	// Includes carries extra fields copied from the owning document at
	// patch-creation time, annotating who or what caused the change.
	Includes Fields `json:"includes,omitempty"`
}

// IncludeField declares one extra field copied onto each patch from a
// named property of the owning document. The declarative list given at
// setup is the full extraction plan; it is resolved once and evaluated at
// patch-creation time against the document's transient values first, then
// its content fields.
type IncludeField struct {
	// Name is the key the value is stored under on the patch.
	Name string
	// Source is the document property to copy from. Defaults to Name.
	Source string
	// Required makes patch creation fail when the source is absent.
	Required bool
}

// NewPatchID returns a new time-ordered patch identifier.
func NewPatchID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// ValidatePatch checks the structural invariants every store must enforce
// before persisting a patch.
func ValidatePatch(p Patch) error {
	if p.Ref == "" {
		return NewValidationError("patch is missing ref")
	}
	if len(p.Ops) == 0 {
		return NewValidationError("patch has no operations")
	}
	for _, op := range p.Ops {
		switch op.Kind {
		case diff.OpAdd, diff.OpReplace, diff.OpRemove:
		default:
			return NewValidationError("patch contains unknown operation kind " + string(op.Kind))
		}
		if op.Path == "" {
			return NewValidationError("patch operation is missing path")
		}
	}
	return nil
}
