package events

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	EventReservationHeld         = "reservation_held"
	EventReservationConfirmed    = "reservation_confirmed"
	EventReservationCancelled    = "reservation_cancelled"
	EventReservationReprogrammed = "reservation_reprogrammed"
	EventReservationExpired      = "reservation_expired"
	EventReservationTransitioned = "reservation_transitioned"
)

// Wildcard subscribes a handler to every event type.
const Wildcard = "*"

// ReservationEventPayload is the reservation snapshot delivered to
// notification, invoicing and payment consumers.
type ReservationEventPayload struct {
	ReservationID string      `json:"reservation_id"`
	VenueID       string      `json:"venue_id"`
	CourtID       string      `json:"court_id"`
	UserID        string      `json:"user_id"`
	Date          string      `json:"date"`
	Start         string      `json:"start"`
	End           string      `json:"end"`
	PriorState    string      `json:"prior_state,omitempty"`
	State         string      `json:"state"`
	Total         int64       `json:"total"`
	Currency      string      `json:"currency"`
	ActorUserID   string      `json:"actor_user_id,omitempty"`
	Comment       string      `json:"comment,omitempty"`
	Refund        interface{} `json:"refund,omitempty"`
	Delta         interface{} `json:"delta,omitempty"`
	RelatedID     string      `json:"related_id,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	ID        string
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type or Wildcard.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish runs every matching handler synchronously and joins their errors.
// A failing handler does not stop the others.
func (b *EventBus) Publish(event *Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	handlers = append(handlers, b.subscribers[Wildcard]...)
	b.mu.RUnlock()

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	return b.Publish(&event)
}

// NewJSONEvent builds an Event with JSON payload for manual publishing.
func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}

	return Event{ID: uuid.NewString(), Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}
