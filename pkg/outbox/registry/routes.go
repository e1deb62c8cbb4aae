// Package registry decides where each outbox row is delivered and rejects
// rows that can never be delivered.
package registry

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/eshoplite-backend/pkg/config"
	"github.com/angelmondragon/eshoplite-backend/pkg/db/models"
	"github.com/angelmondragon/eshoplite-backend/pkg/enums"
	"github.com/angelmondragon/eshoplite-backend/pkg/outbox"
	"github.com/angelmondragon/eshoplite-backend/pkg/outbox/payloads"
)

// ErrPoison marks a row that will fail the same way on every attempt.
var ErrPoison = errors.New("undeliverable outbox event")

func poison(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPoison, fmt.Sprintf(format, args...))
}

// Delivery is everything the relay needs to publish one row.
type Delivery struct {
	Topic      string
	EventID    string
	OccurredAt time.Time
	Data       []byte
	Attributes map[string]string
}

type route struct {
	aggregate enums.OutboxAggregateType
	topic     string
	check     func(data json.RawMessage, aggregateID uuid.UUID) error
}

// Routes maps event types to topics.
type Routes struct {
	byType map[enums.OutboxEventType]route
}

// NewRoutes wires the payment events to the configured topic.
func NewRoutes(cfg config.PubSubConfig) (*Routes, error) {
	if cfg.PaymentsTopic == "" {
		return nil, errors.New("payments topic is required")
	}
	return &Routes{byType: map[enums.OutboxEventType]route{
		enums.EventPaymentCreated: {
			aggregate: enums.AggregatePayment,
			topic:     cfg.PaymentsTopic,
			check:     checkPaymentCreated,
		},
	}}, nil
}

// Route validates the row and returns its delivery. Errors wrap ErrPoison.
func (r *Routes) Route(row models.OutboxEvent) (Delivery, error) {
	rt, ok := r.byType[row.EventType]
	if !ok {
		return Delivery{}, poison("no route for event type %q", row.EventType)
	}
	if rt.aggregate != row.AggregateType {
		return Delivery{}, poison("event %s belongs to %s aggregates, row says %s", row.EventType, rt.aggregate, row.AggregateType)
	}
	if row.AggregateID == uuid.Nil {
		return Delivery{}, poison("aggregate id missing")
	}

	var env outbox.PayloadEnvelope
	if err := json.Unmarshal(row.Payload, &env); err != nil {
		return Delivery{}, poison("envelope: %v", err)
	}
	data := bytes.TrimSpace(env.Data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Delivery{}, poison("envelope for %s carries no data", row.EventType)
	}
	if err := rt.check(data, row.AggregateID); err != nil {
		return Delivery{}, err
	}

	return Delivery{
		Topic:      rt.topic,
		EventID:    env.EventID,
		OccurredAt: env.OccurredAt,
		Data:       row.Payload,
		Attributes: map[string]string{
			"event_id":       env.EventID,
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID.String(),
			"occurred_at":    env.OccurredAt.UTC().Format(time.RFC3339Nano),
		},
	}, nil
}

func checkPaymentCreated(data json.RawMessage, aggregateID uuid.UUID) error {
	var evt payloads.PaymentCreatedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		return poison("payment_created payload: %v", err)
	}
	if evt.PaymentID != aggregateID {
		return poison("payment_created payload is for %s, row aggregate is %s", evt.PaymentID, aggregateID)
	}
	return nil
}
