package models

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

// BookingMode определяет режим использования площадки на один слот.
type BookingMode string

const (
	// ModeHalf — половина площадки, в одном слоте могут сосуществовать
	// две независимые брони.
	ModeHalf BookingMode = "half"
	// ModeFull — вся площадка, слот занимается эксклюзивно.
	ModeFull BookingMode = "full"
)

// SlotCapacityUnits — полная емкость одного слота в условных единицах.
const SlotCapacityUnits = 2

// Units возвращает количество единиц емкости, потребляемых бронью
// данного режима на каждый слот.
func (m BookingMode) Units() int {
	if m == ModeFull {
		return SlotCapacityUnits
	}
	return 1
}

// Valid reports whether the mode is a known value.
func (m BookingMode) Valid() bool {
	return m == ModeHalf || m == ModeFull
}

// ParseBookingMode normalizes a client-supplied mode string.
// Legacy form aliases 5v5/7v7 are accepted.
func ParseBookingMode(raw string) (BookingMode, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "half", "5v5":
		return ModeHalf, nil
	case "full", "7v7":
		return ModeFull, nil
	default:
		return "", fmt.Errorf("unknown booking mode %q", raw)
	}
}

type Booking struct {
	ID            string      `json:"id"`
	Ref           string      `json:"ref"`
	Name          string      `json:"name"`
	Phone         string      `json:"phone"`
	Mode          BookingMode `json:"mode"`
	SlotIDs       []string    `json:"slot_ids"`
	Amount        int64       `json:"amount"`
	PaymentStatus string      `json:"payment_status"` // pending, paid
	Status        string      `json:"status"`         // active, cancelled
	CreatedAt     time.Time   `json:"created_at"`
	CancelledAt   *time.Time  `json:"cancelled_at,omitempty"`
}

// IsActive reports whether the booking still consumes slot capacity.
func (b *Booking) IsActive() bool {
	return b.Status == StatusActive
}

const refAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewBookingRef генерирует человекочитаемый номер брони.
// Формат: BK-<millis в base36>-<5 случайных символов>.
func NewBookingRef() string {
	var sb strings.Builder
	sb.WriteString("BK-")
	sb.WriteString(strconv.FormatInt(time.Now().UnixMilli(), 36))
	sb.WriteByte('-')
	for i := 0; i < 5; i++ {
		sb.WriteByte(refAlphabet[rand.IntN(len(refAlphabet))])
	}
	return sb.String()
}
