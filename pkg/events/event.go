package events

import (
	"context"
	"time"
)

const (
	CartItemAdded     = "CART_ITEM_ADDED"
	ContactRequested  = "CONTACT_REQUESTED"
	FeedbackSubmitted = "FEEDBACK_SUBMITTED"
	LLMUsage          = "LLM_USAGE"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "CART_ITEM_ADDED").
	EventType() string

	Payload() map[string]interface{}

	Timestamp() time.Time
}

// Publisher is satisfied by the NATS publisher. Callers treat a nil
// publisher as "events disabled".
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func New(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now().UTC()}
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}
