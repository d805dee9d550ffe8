package events

import (
	"encoding/json"
	"testing"
	"time"

	"turfbook/internal/models"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus()

	var received *Event
	var callCount int

	bus.Subscribe(EventBookingCreated, func(event *Event) error {
		received = event
		callCount++
		return nil
	})

	booking := &models.Booking{
		ID:      "b-1",
		Ref:     "BK-x-AAAAA",
		Mode:    models.ModeHalf,
		SlotIDs: []string{"2026-04-14#14"},
		Status:  models.StatusActive,
	}
	if err := bus.PublishJSON(EventBookingCreated, NewBookingPayload(booking)); err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}

	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}

	if received.Type != EventBookingCreated {
		t.Errorf("expected type %s, got %s", EventBookingCreated, received.Type)
	}

	var decoded BookingEventPayload
	if err := json.Unmarshal(received.Payload, &decoded); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}

	if decoded.BookingID != "b-1" || decoded.Mode != "half" {
		t.Errorf("unexpected payload: %+v", decoded)
	}
}

func TestEventBusMultipleSubscribers(t *testing.T) {
	bus := NewEventBus()
	var count1, count2 int

	bus.Subscribe("event", func(_ *Event) error { count1++; return nil })
	bus.Subscribe("event", func(_ *Event) error { count2++; return nil })

	bus.Publish(&Event{Type: "event"})

	if count1 != 1 || count2 != 1 {
		t.Errorf("expected both handlers to be called once, got %d and %d", count1, count2)
	}
}

func TestEventBusNoSubscribers(t *testing.T) {
	bus := NewEventBus()
	// Should not panic
	bus.Publish(&Event{Type: "unknown"})
	if err := bus.PublishJSON("unknown", nil); err != nil {
		t.Errorf("PublishJSON failed: %v", err)
	}
}

func TestPublishSetsCreatedAt(t *testing.T) {
	bus := NewEventBus()
	var got time.Time
	bus.Subscribe("event", func(e *Event) error { got = e.CreatedAt; return nil })

	bus.Publish(&Event{Type: "event"})

	if got.IsZero() {
		t.Errorf("expected CreatedAt to be set")
	}
}

func TestOccupancyPayloadRoundTrip(t *testing.T) {
	payload := OccupancyEventPayload{States: map[string]models.OccupancyState{
		"2026-04-14#14": models.OccupancyHalf,
	}}

	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded OccupancyEventPayload
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded.States["2026-04-14#14"] != models.OccupancyHalf {
		t.Errorf("unexpected states: %+v", decoded.States)
	}
}
