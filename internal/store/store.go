// Package store persists the workstream hierarchy. One JSON document per
// workstream, written atomically so readers never observe a partial write.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/yourusername/loom/internal/hierarchy"
)

// ErrNotFound is returned when no persisted workstream exists for an id.
var ErrNotFound = errors.New("store: workstream not found")

// Store persists workstream snapshots.
type Store interface {
	Load(id string) (*hierarchy.Workstream, error)
	Save(ws *hierarchy.Workstream) error
	List() ([]Summary, error)
}

// Summary describes a workstream without materializing its task bodies.
type Summary struct {
	ID        string                     `json:"id"`
	Name      string                     `json:"name"`
	Status    hierarchy.WorkstreamStatus `json:"status"`
	PlanCount int                        `json:"plan_count"`
	TaskCount int                        `json:"task_count"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

// FileStore stores each workstream as <id>.json inside a root directory.
type FileStore struct {
	root string
}

// NewFileStore creates a store rooted at dir, creating it if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("store: root directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("store: ensure root: %w", err)
	}
	return &FileStore{root: dir}, nil
}

// Root returns the directory backing this store.
func (s *FileStore) Root() string {
	return s.root
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.root, id+".json")
}

// Load reads the persisted workstream. It never fabricates a workstream:
// an absent file is ErrNotFound.
func (s *FileStore) Load(id string) (*hierarchy.Workstream, error) {
	data, err := os.ReadFile(s.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("store: load %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("store: load %s: %w", id, err)
	}
	var ws hierarchy.Workstream
	if err := json.Unmarshal(data, &ws); err != nil {
		return nil, fmt.Errorf("store: parse %s: %w", id, err)
	}
	if ws.Plans == nil {
		ws.Plans = map[string]*hierarchy.Plan{}
	}
	for _, plan := range ws.Plans {
		if plan.Tasks == nil {
			plan.Tasks = map[string]*hierarchy.Task{}
		}
	}
	return &ws, nil
}

// Save writes the full hierarchy atomically: encode, write a temp file in
// the same directory, then rename over the canonical path. A crash between
// the two steps leaves either the previous or the new state on disk, never
// a truncated document.
func (s *FileStore) Save(ws *hierarchy.Workstream) error {
	if ws == nil || strings.TrimSpace(ws.ID) == "" {
		return fmt.Errorf("store: workstream id is required")
	}
	encoded, err := json.MarshalIndent(ws, "", "  ")
	if err != nil {
		return fmt.Errorf("store: encode %s: %w", ws.ID, err)
	}
	target := s.path(ws.ID)
	tmp := fmt.Sprintf("%s.tmp.%d", target, os.Getpid())
	if err := os.WriteFile(tmp, append(encoded, '\n'), 0o644); err != nil {
		return fmt.Errorf("store: write temp for %s: %w", ws.ID, err)
	}
	if err := os.Rename(tmp, target); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("store: commit %s: %w", ws.ID, err)
	}
	return nil
}

// summaryDoc decodes only the fields List needs; task bodies inside plans
// are skipped via RawMessage counting.
type summaryDoc struct {
	ID        string                     `json:"id"`
	Name      string                     `json:"name"`
	Status    hierarchy.WorkstreamStatus `json:"status"`
	UpdatedAt time.Time                  `json:"updated_at"`
	Plans     map[string]struct {
		Tasks map[string]json.RawMessage `json:"tasks"`
	} `json:"plans"`
}

// List enumerates known workstreams ordered by id. Leftover temp files
// from interrupted saves and unreadable documents are skipped, not fatal.
func (s *FileStore) List() ([]Summary, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("store: list: %w", err)
	}
	var out []Summary
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.root, name))
		if err != nil {
			continue
		}
		var doc summaryDoc
		if err := json.Unmarshal(data, &doc); err != nil {
			continue
		}
		if doc.ID == "" {
			continue
		}
		summary := Summary{
			ID:        doc.ID,
			Name:      doc.Name,
			Status:    doc.Status,
			PlanCount: len(doc.Plans),
			UpdatedAt: doc.UpdatedAt,
		}
		for _, plan := range doc.Plans {
			summary.TaskCount += len(plan.Tasks)
		}
		out = append(out, summary)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
