package hierarchy

import (
	"sort"
	"strings"
	"time"
)

// WorkstreamStatus enumerates workstream lifecycle states.
type WorkstreamStatus string

const (
	WorkstreamActive   WorkstreamStatus = "active"
	WorkstreamArchived WorkstreamStatus = "archived"
)

// Workstream is the top-level container for one independent unit of
// long-running work. It exclusively owns its plans.
type Workstream struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Status    WorkstreamStatus `json:"status"`
	Plans     map[string]*Plan `json:"plans"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// NewWorkstream constructs an empty active workstream stamped with now.
// The id is derived from the name; see WorkstreamIDFromName.
func NewWorkstream(name string, now time.Time) *Workstream {
	return &Workstream{
		ID:        WorkstreamIDFromName(name),
		Name:      strings.TrimSpace(name),
		Status:    WorkstreamActive,
		Plans:     map[string]*Plan{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Plan returns the plan with the given id, if present.
func (w *Workstream) Plan(id string) (*Plan, bool) {
	p, ok := w.Plans[id]
	return p, ok
}

// PlansByCreation returns the workstream's plans ordered by creation time,
// ties broken by id.
func (w *Workstream) PlansByCreation() []*Plan {
	out := make([]*Plan, 0, len(w.Plans))
	for _, p := range w.Plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// TaskCount returns the total number of tasks across all plans.
func (w *Workstream) TaskCount() int {
	n := 0
	for _, p := range w.Plans {
		n += len(p.Tasks)
	}
	return n
}
