package feed

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"turfbook/internal/domain"
	"turfbook/internal/events"
	"turfbook/internal/metrics"
	"turfbook/internal/models"

	"github.com/rs/zerolog"
)

const (
	MessageSnapshot = "snapshot"

	subscriberBuffer = 16
	snapshotTimeout  = 5 * time.Second
)

// Message — единица ленты: либо снимок занятости, либо доменное событие.
type Message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// SnapshotPayload carries the full occupancy picture.
type SnapshotPayload struct {
	States map[string]models.OccupancyState `json:"states"`
}

// Subscription — подключение одного наблюдателя к ленте.
type Subscription struct {
	id     int64
	ch     chan Message
	cancel func()
	// stale: подписчик не успел вычитать событие. Вместо догоняющих
	// событий он получит свежий снимок, когда в канале появится место.
	stale bool
}

// C returns the message channel for the subscriber.
func (s *Subscription) C() <-chan Message { return s.ch }

// Cancel detaches the subscriber and closes its channel.
func (s *Subscription) Cancel() { s.cancel() }

// Hub раздает события брони и занятости подписчикам ленты. Лента
// носит рекомендательный характер: потеря события компенсируется
// повторным снимком, а не воспроизведением истории.
type Hub struct {
	store  domain.Store
	logger *zerolog.Logger

	mu     sync.Mutex
	subs   map[int64]*Subscription
	nextID int64
}

func NewHub(store domain.Store, bus *events.EventBus, logger *zerolog.Logger) *Hub {
	h := &Hub{
		store:  store,
		logger: logger,
		subs:   make(map[int64]*Subscription),
	}

	bus.Subscribe(events.EventBookingCreated, h.onEvent(events.EventBookingCreated))
	bus.Subscribe(events.EventBookingCancelled, h.onEvent(events.EventBookingCancelled))
	bus.Subscribe(events.EventOccupancyChanged, h.onEvent(events.EventOccupancyChanged))
	return h
}

// Subscribe registers a new feed consumer. The first message is always
// a fresh occupancy snapshot read from the store.
func (h *Hub) Subscribe(ctx context.Context) (*Subscription, error) {
	snapshot, err := h.snapshotMessage(ctx)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	h.nextID++
	id := h.nextID
	sub := &Subscription{
		id: id,
		ch: make(chan Message, subscriberBuffer),
	}
	sub.cancel = func() { h.drop(id) }
	h.subs[id] = sub
	h.mu.Unlock()

	sub.ch <- snapshot
	metrics.FeedSubscriberGauge(1)
	return sub, nil
}

func (h *Hub) drop(id int64) {
	h.mu.Lock()
	sub, ok := h.subs[id]
	if ok {
		delete(h.subs, id)
		close(sub.ch)
	}
	h.mu.Unlock()
	if ok {
		metrics.FeedSubscriberGauge(-1)
	}
}

func (h *Hub) onEvent(eventType string) events.EventHandler {
	return func(event *events.Event) error {
		h.broadcast(Message{Type: eventType, Payload: event.Payload})
		return nil
	}
}

func (h *Hub) broadcast(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var snapshot *Message
	for _, sub := range h.subs {
		if sub.stale {
			// Догоняем отставшего подписчика свежим снимком вместо
			// пропущенных событий.
			if snapshot == nil {
				ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
				m, err := h.snapshotMessage(ctx)
				cancel()
				if err != nil {
					h.logger.Error().Err(err).Msg("feed: resync snapshot failed")
					continue
				}
				snapshot = &m
			}
			select {
			case sub.ch <- *snapshot:
				sub.stale = false
			default:
				continue
			}
		}

		select {
		case sub.ch <- msg:
		default:
			sub.stale = true
			h.logger.Warn().Int64("subscriber", sub.id).Msg("feed: slow subscriber, will resync")
		}
	}
}

func (h *Hub) snapshotMessage(ctx context.Context) (Message, error) {
	states, err := h.store.GetOccupancy(ctx)
	if err != nil {
		return Message{}, err
	}
	payload, err := json.Marshal(SnapshotPayload{States: states})
	if err != nil {
		return Message{}, err
	}
	return Message{Type: MessageSnapshot, Payload: payload}, nil
}
