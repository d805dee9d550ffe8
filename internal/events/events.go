package events

import (
	"encoding/json"
	"sync"
	"time"

	"turfbook/internal/models"
)

const (
	EventBookingCreated   = "booking_created"
	EventBookingCancelled = "booking_cancelled"
	EventOccupancyChanged = "occupancy_changed"
)

// BookingEventPayload describes the booking snapshot for event consumers.
type BookingEventPayload struct {
	BookingID     string    `json:"booking_id"`
	Ref           string    `json:"ref"`
	Name          string    `json:"name"`
	Phone         string    `json:"phone"`
	Mode          string    `json:"mode"`
	SlotIDs       []string  `json:"slot_ids"`
	Amount        int64     `json:"amount"`
	PaymentStatus string    `json:"payment_status"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
}

// OccupancyEventPayload carries the states of slots touched by a commit.
// Наблюдатели обязаны считать это подсказкой, а не истиной: для решений
// о допуске состояние читается только из хранилища.
type OccupancyEventPayload struct {
	States map[string]models.OccupancyState `json:"states"`
}

// NewBookingPayload builds the event snapshot for a booking.
func NewBookingPayload(b *models.Booking) BookingEventPayload {
	return BookingEventPayload{
		BookingID:     b.ID,
		Ref:           b.Ref,
		Name:          b.Name,
		Phone:         b.Phone,
		Mode:          string(b.Mode),
		SlotIDs:       b.SlotIDs,
		Amount:        b.Amount,
		PaymentStatus: b.PaymentStatus,
		Status:        b.Status,
		CreatedAt:     b.CreatedAt,
	}
}

// Event represents a lightweight domain event.
type Event struct {
	ID        int64
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

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
