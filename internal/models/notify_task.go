package models

import "time"

// NotifyTask — задача доставки уведомления оператору, хранится в
// таблице notify_queue до успешной отправки.
type NotifyTask struct {
	ID          int64
	BookingID   string
	Payload     string
	Status      string // pending, retry, completed, failed
	RetryCount  int
	LastError   string
	CreatedAt   time.Time
	ProcessedAt *time.Time
	NextRetryAt *time.Time
}
