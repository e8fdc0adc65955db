package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Event types.
const (
	// TypeResultsStored is emitted after a scrape commits new rows.
	TypeResultsStored = "results_stored"
)

// Event notifies other components of something that happened, without
// the emitter knowing who reacts to it.
type Event struct {
	ID        uuid.UUID       `json:"id"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"` // decoded with UnmarshalPayload
	CreatedAt time.Time       `json:"created_at"`
}

// ResultsStored is the payload of TypeResultsStored.
type ResultsStored struct {
	Files int `json:"files"`
	Rows  int `json:"rows"`
}

// UnmarshalPayload decodes the payload into v.
func (e *Event) UnmarshalPayload(v any) error {
	return json.Unmarshal(e.Payload, v)
}

// NewEvent stamps payload, encoded as JSON, with a fresh ID and time.
func NewEvent(eventType string, payload any) (*Event, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", eventType, err)
	}

	return &Event{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// EventHandler reacts to events.
type EventHandler interface {
	HandleEvent(ctx context.Context, event *Event) error
}

// EventEmitter delivers events to whoever registered interest.
type EventEmitter interface {
	EmitEvent(ctx context.Context, event *Event) error
}
