// Package fs persists documents as YAML files and patch history as
// append-only JSON-line logs under a hidden system directory.
package fs

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/pashist/patchhistory/pkg/core"
)

// Config holds the configuration for the filesystem stores.
type Config struct {
	Path      string
	AutoInit  bool
	MustExist bool
	Logger    *slog.Logger

	// SystemDir is the hidden directory holding patch logs and other
	// internals. Defaults to ".patchhistory".
	SystemDir string

	// Collection is the subdirectory holding document files.
	// Defaults to "documents".
	Collection string

	// PatchCollection overrides the patch log directory name.
	// Defaults to "<Collection>_patches".
	PatchCollection string

	// ErrorHandler receives asynchronous watcher errors.
	ErrorHandler func(error)
}

// Repository implements core.DocumentStore and core.PatchStore on the
// filesystem. Document writes are atomic (temp file + rename); patch
// logs are append-only, one file per parent document.
type Repository struct {
	Path   string
	config Config

	mu            sync.RWMutex
	watcherActive bool
}

// NewRepository creates a new filesystem-backed repository.
func NewRepository(config Config) *Repository {
	if config.SystemDir == "" {
		config.SystemDir = ".patchhistory"
	}
	if config.Collection == "" {
		config.Collection = "documents"
	}
	if config.PatchCollection == "" {
		config.PatchCollection = config.Collection + "_patches"
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Repository{
		Path:   config.Path,
		config: config,
	}
}

// Initialize performs the necessary setup for the repository (mkdir).
func (r *Repository) Initialize(ctx context.Context) error {
	if r.config.MustExist {
		info, err := os.Stat(r.Path)
		if os.IsNotExist(err) {
			return fmt.Errorf("store path does not exist: %s", r.Path)
		}
		if err != nil {
			return err
		}
		if !info.IsDir() {
			return fmt.Errorf("store path is not a directory: %s", r.Path)
		}
	} else if !r.config.AutoInit {
		if _, err := os.Stat(r.Path); os.IsNotExist(err) {
			return fmt.Errorf("store path does not exist: %s (enable auto-init to create it)", r.Path)
		}
	}

	for _, dir := range []string{r.docDir(), r.patchDir()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

func (r *Repository) docDir() string {
	return filepath.Join(r.Path, r.config.Collection)
}

func (r *Repository) patchDir() string {
	return filepath.Join(r.Path, r.config.SystemDir, r.config.PatchCollection)
}

func (r *Repository) docPath(id string) string {
	return filepath.Join(r.docDir(), id+".yaml")
}

func (r *Repository) patchLogPath(ref string) string {
	return filepath.Join(r.patchDir(), ref+".jsonl")
}

// envelope is the on-disk document shape.
type envelope struct {
	Fields    map[string]any `yaml:"fields"`
	CreatedAt time.Time      `yaml:"created_at,omitempty"`
	UpdatedAt time.Time      `yaml:"updated_at,omitempty"`
}

func validateID(id string) error {
	if id == "" {
		return core.NewValidationError("document has no ID")
	}
	if strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return core.NewValidationError(fmt.Sprintf("document ID %q is not a valid file name", id))
	}
	return nil
}

// Save persists a document to the filesystem.
//
// Workflow:
//  1. Validate the ID (it doubles as the file name).
//  2. Serialize the envelope as YAML.
//  3. Write atomically to disk (temp file + rename).
func (r *Repository) Save(ctx context.Context, doc core.Document) error {
	if err := validateID(doc.ID); err != nil {
		return err
	}

	data, err := yaml.Marshal(envelope{
		Fields:    doc.Fields,
		CreatedAt: doc.CreatedAt,
		UpdatedAt: doc.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to serialize document: %w", err)
	}

	if err := writeFileAtomic(r.docPath(doc.ID), data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// Get retrieves a document from the filesystem.
func (r *Repository) Get(ctx context.Context, id string) (core.Document, error) {
	if err := validateID(id); err != nil {
		return core.Document{}, err
	}

	data, err := os.ReadFile(r.docPath(id))
	if err != nil {
		if os.IsNotExist(err) {
			return core.Document{}, core.ErrNotFound
		}
		return core.Document{}, err
	}

	var env envelope
	if err := yaml.Unmarshal(data, &env); err != nil {
		return core.Document{}, fmt.Errorf("failed to parse document %s: %w", id, err)
	}

	return core.Document{
		ID: id,
		// YAML may decode nested maps with non-string keys; normalize to
		// the canonical JSON shapes the diff engine expects.
		Fields:    core.NormalizeFields(normalizeYAML(env.Fields)),
		CreatedAt: env.CreatedAt,
		UpdatedAt: env.UpdatedAt,
	}, nil
}

// List scans the document directory.
func (r *Repository) List(ctx context.Context) ([]core.Document, error) {
	entries, err := os.ReadDir(r.docDir())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var docs []core.Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		id := strings.TrimSuffix(entry.Name(), ".yaml")
		doc, err := r.Get(ctx, id)
		if err != nil {
			continue // Skip unparseable
		}
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

// Delete removes a document file.
func (r *Repository) Delete(ctx context.Context, id string) error {
	if err := validateID(id); err != nil {
		return err
	}
	if err := os.Remove(r.docPath(id)); err != nil {
		if os.IsNotExist(err) {
			return core.ErrNotFound
		}
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

// Create appends a patch to the parent's log file. Each record is one
// JSON line; the log is never rewritten.
func (r *Repository) Create(ctx context.Context, p core.Patch) (core.Patch, error) {
	if p.ID == "" {
		p.ID = core.NewPatchID()
	}
	if p.Date.IsZero() {
		p.Date = time.Now().UTC()
	}
	if err := core.ValidatePatch(p); err != nil {
		return core.Patch{}, err
	}
	if err := validateID(p.Ref); err != nil {
		return core.Patch{}, err
	}

	line, err := json.Marshal(p)
	if err != nil {
		return core.Patch{}, fmt.Errorf("failed to serialize patch: %w", err)
	}

	f, err := os.OpenFile(r.patchLogPath(p.Ref), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return core.Patch{}, fmt.Errorf("failed to open patch log: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return core.Patch{}, fmt.Errorf("failed to append patch: %w", err)
	}
	if err := f.Sync(); err != nil {
		return core.Patch{}, fmt.Errorf("failed to sync patch log: %w", err)
	}
	return p, nil
}

// Find retrieves patches matching the query from the parent's log.
func (r *Repository) Find(ctx context.Context, q core.PatchQuery) ([]core.Patch, error) {
	patches, err := r.readLog(q.Ref)
	if err != nil {
		return nil, err
	}

	var out []core.Patch
	for _, p := range patches {
		if q.MinID != "" && p.ID < q.MinID {
			continue
		}
		if q.MaxID != "" && p.ID > q.MaxID {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if q.Sort == core.SortDesc {
			return out[i].ID > out[j].ID
		}
		return out[i].ID < out[j].ID
	})
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// Count returns how many of the parent's patches pass the filter.
func (r *Repository) Count(ctx context.Context, ref string, filter core.IDFilter) (int, error) {
	patches, err := r.readLog(ref)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, p := range patches {
		if filter.Matches(p.ID) {
			n++
		}
	}
	return n, nil
}

// DeleteAll removes the parent's patch log. Missing logs are fine.
func (r *Repository) DeleteAll(ctx context.Context, ref string) error {
	if err := validateID(ref); err != nil {
		return err
	}
	if err := os.Remove(r.patchLogPath(ref)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove patch log: %w", err)
	}
	return nil
}

func (r *Repository) readLog(ref string) ([]core.Patch, error) {
	if err := validateID(ref); err != nil {
		return nil, err
	}

	f, err := os.Open(r.patchLogPath(ref))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	var patches []core.Patch
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var p core.Patch
		if err := json.Unmarshal([]byte(line), &p); err != nil {
			return nil, fmt.Errorf("corrupt patch log for %s: %w", ref, err)
		}
		patches = append(patches, p)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return patches, nil
}

// normalizeYAML converts YAML-decoded values into JSON-compatible shapes
// (string-keyed maps all the way down).
func normalizeYAML(v map[string]any) map[string]any {
	out := make(map[string]any, len(v))
	for k, val := range v {
		out[k] = normalizeYAMLValue(val)
	}
	return out
}

func normalizeYAMLValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return normalizeYAML(val)
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			out[fmt.Sprintf("%v", k)] = normalizeYAMLValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = normalizeYAMLValue(inner)
		}
		return out
	default:
		return v
	}
}

var _ core.DocumentStore = (*Repository)(nil)
var _ core.PatchStore = (*Repository)(nil)
