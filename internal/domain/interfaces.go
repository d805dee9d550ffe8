package domain

import (
	"context"
	"time"

	"turfbook/internal/models"
)

// Store — транзакционное хранилище броней. Reserve и Cancel атомарны
// относительно друг друга для пересекающихся слотов; только они мутируют
// занятость.
type Store interface {
	Reserve(ctx context.Context, booking *models.Booking) error
	Cancel(ctx context.Context, bookingID string) error
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	GetBookings(ctx context.Context, limit int, before *time.Time) ([]*models.Booking, error)
	GetBookingsByPhone(ctx context.Context, phone string, limit int, before *time.Time) ([]*models.Booking, error)
	GetOccupancy(ctx context.Context) (map[string]models.OccupancyState, error)
	StatesFor(ctx context.Context, slotIDs []string) (map[string]models.OccupancyState, error)
	StateOf(ctx context.Context, slotID string) (models.OccupancyState, error)
}

// OccupancyCache — рекомендательный кэш занятости для отображения.
// Никогда не является источником истины для контроля допуска.
type OccupancyCache interface {
	Get(ctx context.Context) (map[string]models.OccupancyState, bool, error)
	Set(ctx context.Context, states map[string]models.OccupancyState) error
	Invalidate(ctx context.Context) error
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Notifier доставляет сообщение оператору. Fire-and-forget: сбой
// доставки никогда не откатывает зафиксированную бронь.
type Notifier interface {
	Send(ctx context.Context, message string) error
}

// NotifyEnqueuer ставит уведомление о брони в очередь доставки.
type NotifyEnqueuer interface {
	EnqueueBooking(ctx context.Context, booking *models.Booking) error
}
