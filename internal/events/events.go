package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Type names an inventory change.
type Type string

const (
	SweetCreated   Type = "sweet.created"
	SweetUpdated   Type = "sweet.updated"
	SweetPurchased Type = "sweet.purchased"
	SweetRestocked Type = "sweet.restocked"
	SweetDeleted   Type = "sweet.deleted"
)

// Event is published after every successful inventory mutation.
// Quantity is the stock level after the change, except for purchases and
// restocks where it is the amount moved.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Type       Type      `json:"type"`
	SweetID    uint      `json:"sweet_id"`
	Quantity   int       `json:"quantity"`
	ActorID    uint      `json:"actor_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// New stamps an event with a fresh id and the current time.
func New(t Type, sweetID uint, quantity int, actorID uint) Event {
	return Event{
		ID:         uuid.New(),
		Type:       t,
		SweetID:    sweetID,
		Quantity:   quantity,
		ActorID:    actorID,
		OccurredAt: time.Now().UTC(),
	}
}

// Decode parses a message body produced by Publisher.
func Decode(body []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(body, &e); err != nil {
		return Event{}, fmt.Errorf("failed to decode inventory event: %w", err)
	}
	if e.Type == "" {
		return Event{}, errors.New("failed to decode inventory event: missing type")
	}
	return e, nil
}

// Publisher sends inventory events somewhere.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Sender is the transport a BrokerPublisher writes to. *rabbitmq.Client satisfies it.
type Sender interface {
	Publish(ctx context.Context, body []byte) error
}

// BrokerPublisher encodes events as JSON and hands them to a Sender.
type BrokerPublisher struct {
	sender Sender
}

// NewBrokerPublisher creates a BrokerPublisher.
func NewBrokerPublisher(sender Sender) *BrokerPublisher {
	return &BrokerPublisher{sender: sender}
}

// Publish encodes e and sends it.
func (p *BrokerPublisher) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal inventory event: %w", err)
	}
	if err := p.sender.Publish(ctx, body); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", e.Type, err)
	}
	return nil
}

// Nop drops every event. It is used when no broker is configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
