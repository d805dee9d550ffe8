package store

import "errors"

var (
	// ErrSlotUnavailable — проигран гонкой за емкость слота либо слот
	// уже занят. Окончательный исход, на уровне транзакции не
	// ретраится.
	ErrSlotUnavailable = errors.New("slot is not available")

	// ErrBookingNotFound — брони с таким идентификатором не существует.
	ErrBookingNotFound = errors.New("booking not found")
)
