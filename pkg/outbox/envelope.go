package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// PayloadEnvelope is the versioned wrapper persisted in outbox_events.payload
// and forwarded to subscribers. EventID doubles as the dedupe key downstream.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Data       json.RawMessage `json:"data"`
}

// seal encodes data inside a new envelope with a fresh event id.
func seal(version int, occurredAt time.Time, data any) (PayloadEnvelope, []byte, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return PayloadEnvelope{}, nil, fmt.Errorf("encode event data: %w", err)
	}
	env := PayloadEnvelope{
		Version:    max(version, 1),
		EventID:    uuid.NewString(),
		OccurredAt: occurredAt.UTC(),
		Data:       raw,
	}
	sealed, err := json.Marshal(env)
	if err != nil {
		return PayloadEnvelope{}, nil, fmt.Errorf("encode envelope: %w", err)
	}
	return env, sealed, nil
}
