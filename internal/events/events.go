// Package events publishes domain events to Kafka and to connected dashboards.
package events

import (
	"context"
	"encoding/json"
	"time"

	"storefront-admin/internal/logger"

	"github.com/google/uuid"
)

// EventType names a domain event
type EventType string

const (
	EventOrderCreated       EventType = "order.created"
	EventOrderStatusChanged EventType = "order.status_changed"
	EventTaxRuleChanged     EventType = "tax_rule.changed"
	EventChannelChanged     EventType = "channel.changed"
)

// Event is the envelope written to every sink
type Event struct {
	ID            string            `json:"id"`
	Type          EventType         `json:"type"`
	EntityID      string            `json:"entity_id"`
	ActorID       string            `json:"actor_id,omitempty"`
	Data          json.RawMessage   `json:"data"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	Timestamp     time.Time         `json:"timestamp"`
	CorrelationID string            `json:"correlation_id,omitempty"`
}

// NewEvent marshals payload into a fresh envelope
func NewEvent(ctx context.Context, eventType EventType, entityID, actorID string, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		EntityID:      entityID,
		ActorID:       actorID,
		Data:          data,
		Metadata:      map[string]string{},
		Timestamp:     time.Now().UTC(),
		CorrelationID: logger.RequestID(ctx),
	}, nil
}

// Publisher delivers events to a sink
type Publisher interface {
	Publish(ctx context.Context, evt Event) error
}

// Nop discards events
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Fanout delivers to every publisher and returns the first error
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, evt Event) error {
	var first error
	for _, p := range f {
		if err := p.Publish(ctx, evt); err != nil && first == nil {
			first = err
		}
	}
	return first
}
