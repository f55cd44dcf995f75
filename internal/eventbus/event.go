package eventbus

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Source distinguishes domain events published by the orchestrator from
// the automatic records the recorder produces around every call.
type Source string

const (
	SourceManual    Source = "manual"
	SourceAutomatic Source = "automatic"
)

// Event captures a single state-change notification.
type Event struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	Time         time.Time      `json:"time"`
	WorkstreamID string         `json:"workstream_id,omitempty"`
	// EntityID names the workstream, plan, or task the event concerns.
	// Delivery order is guaranteed per entity id only.
	EntityID     string         `json:"entity_id"`
	Source       Source         `json:"source"`
	Payload      map[string]any `json:"payload,omitempty"`
}

// NewEvent stamps a fresh event id and normalizes the type tag.
func NewEvent(eventType, workstreamID, entityID string, source Source, payload map[string]any) Event {
	return Event{
		ID:           uuid.NewString(),
		Type:         strings.TrimSpace(eventType),
		Time:         time.Now().UTC(),
		WorkstreamID: workstreamID,
		EntityID:     entityID,
		Source:       source,
		Payload:      payload,
	}
}

// Logger records bus diagnostics. It matches logging.Logger's signature.
type Logger interface {
	Printf(format string, args ...any)
}
