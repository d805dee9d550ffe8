package models

const (
	StatusActive    = "active"
	StatusCancelled = "cancelled"
)

const (
	PaymentPending = "pending"
	PaymentPaid    = "paid"
)

const (
	// PriceHalfPerSlot цена за один слот на половине площадки, ₹.
	PriceHalfPerSlot = 500

	// PriceFullPerSlot цена за один слот на всей площадке, ₹.
	PriceFullPerSlot = 1000
)

const (
	// MaxSlotsPerBooking максимальное число слотов в одной брони.
	MaxSlotsPerBooking = 4

	// AdvanceWindowHours горизонт бронирования вперед, часов.
	AdvanceWindowHours = 48

	// DefaultHistoryPageSize размер страницы истории бронирований.
	DefaultHistoryPageSize = 10

	// DefaultBookingsPageSize размер страницы общего списка бронирований.
	DefaultBookingsPageSize = 20

	// WorkerQueueSize размер очереди воркера уведомлений.
	WorkerQueueSize = 128

	// OccupancyCacheTTL время жизни кэша занятости слотов, секунд.
	OccupancyCacheTTL = 5 * 60
)

// SlotPrice returns the per-slot price for a mode.
func SlotPrice(mode BookingMode) int64 {
	if mode == ModeFull {
		return PriceFullPerSlot
	}
	return PriceHalfPerSlot
}

// BookingAmount computes the expected amount for a booking.
func BookingAmount(mode BookingMode, slots int) int64 {
	return SlotPrice(mode) * int64(slots)
}
