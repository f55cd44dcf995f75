package recorder

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// globalStream receives records for operations that are not scoped to a
// single workstream, e.g. list_workstreams.
const globalStream = "_global"

// Journal is the append-only JSONL stream of recorded operations, one
// file per workstream. The orchestrator never reads it; it exists for
// downstream consumers (audit, status views).
type Journal struct {
	dir string
	mu  sync.Mutex
}

// NewJournal creates a journal rooted at dir, creating it if needed.
func NewJournal(dir string) (*Journal, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("recorder: journal directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("recorder: ensure journal dir: %w", err)
	}
	return &Journal{dir: dir}, nil
}

// Dir returns the directory backing this journal.
func (j *Journal) Dir() string {
	return j.dir
}

func (j *Journal) path(workstreamID string) string {
	if strings.TrimSpace(workstreamID) == "" {
		workstreamID = globalStream
	}
	return filepath.Join(j.dir, workstreamID+".jsonl")
}

// Append writes one record as a single JSON line.
func (j *Journal) Append(record Record) error {
	encoded, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("recorder: encode record: %w", err)
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	file, err := os.OpenFile(j.path(record.WorkstreamID), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("recorder: open journal: %w", err)
	}
	defer file.Close()
	if _, err := file.Write(append(encoded, '\n')); err != nil {
		return fmt.Errorf("recorder: append journal: %w", err)
	}
	return nil
}

// Tail returns up to maxLines of the most recent records for a
// workstream. Unparseable lines are skipped.
func (j *Journal) Tail(workstreamID string, maxLines int) []Record {
	if maxLines <= 0 {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	file, err := os.Open(j.path(workstreamID))
	if err != nil {
		return nil
	}
	defer file.Close()

	var records []Record
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var record Record
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	if len(records) > maxLines {
		records = records[len(records)-maxLines:]
	}
	return records
}
