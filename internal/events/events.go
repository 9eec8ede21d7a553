package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventBookingCreated    = "booking_created"
	EventBookingConfirmed  = "booking_confirmed"
	EventBookingCancelled  = "booking_cancelled"
	EventBookingCheckedIn  = "booking_checked_in"
	EventBookingCheckedOut = "booking_checked_out"
	EventPaymentConfirmed  = "payment_confirmed"
	EventPaymentFailed     = "payment_failed"
	EventPaymentOrphaned   = "payment_orphaned"
	EventErrorRaised       = "error_raised"

	// AllEvents subscribes a handler to every event type.
	AllEvents = "*"
)

// BookingEventPayload is the booking snapshot sent to event consumers.
type BookingEventPayload struct {
	BookingID   int64     `json:"booking_id"`
	PropertyID  int64     `json:"property_id"`
	Status      string    `json:"status"`
	CheckIn     time.Time `json:"check_in"`
	CheckOut    time.Time `json:"check_out"`
	Nights      int       `json:"nights"`
	TotalAmount float64   `json:"total_amount,omitempty"`
	TxHash      string    `json:"tx_hash,omitempty"`
}

type PaymentEventPayload struct {
	ReservationID int64   `json:"reservation_id,omitempty"`
	TxHash        string  `json:"tx_hash,omitempty"`
	AmountEth     float64 `json:"amount_eth,omitempty"`
	Step          string  `json:"step,omitempty"`
	Message       string  `json:"message,omitempty"`
}

// ErrorPayload carries a failure message and the action that raised it.
type ErrorPayload struct {
	Action  string `json:"action"`
	Message string `json:"message"`
}

// Event represents a lightweight domain event.
type Event struct {
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

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for an event type or AllEvents.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish runs every matching handler synchronously and returns the first
// handler error.
func (b *EventBus) Publish(event *Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	handlers = append(handlers, b.subscribers[AllEvents]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	var first error
	for _, handler := range handlers {
		if err := handler(event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}
	ev, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	return b.Publish(&ev)
}

func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Payload: raw, CreatedAt: time.Now()}, nil
}
