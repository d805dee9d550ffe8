package worker

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"turfbook/internal/models"
	"turfbook/internal/store"

	"github.com/rs/zerolog"
)

func TestProcessTaskSuccess(t *testing.T) {
	db := newTestStore(t)
	notifier := &fakeNotifier{}
	logger := zerolog.New(io.Discard)
	w := NewNotifyWorker(db, notifier, nil, RetryPolicy{}, &logger)

	booking := testBooking("b1")
	ctx := context.Background()
	if err := w.EnqueueBooking(ctx, booking); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	task, ok := w.tryLocalQueue()
	if !ok {
		t.Fatalf("expected task in local queue")
	}
	w.processTask(ctx, &task)

	status, retryCount, nextRetry := loadTaskStatus(t, db, task.ID)
	if status != "completed" {
		t.Fatalf("expected status=completed, got %s", status)
	}
	if retryCount != 0 {
		t.Fatalf("expected retry_count=0, got %d", retryCount)
	}
	if nextRetry.Valid {
		t.Fatalf("expected next_retry_at NULL on success")
	}
	if notifier.calls != 1 {
		t.Fatalf("expected 1 send call, got %d", notifier.calls)
	}
	if !strings.Contains(notifier.lastMessage, booking.Ref) {
		t.Fatalf("message must contain booking ref, got %q", notifier.lastMessage)
	}
}

func TestProcessTaskRetry(t *testing.T) {
	db := newTestStore(t)
	notifier := &fakeNotifier{err: errors.New("boom")}
	logger := zerolog.New(io.Discard)
	w := NewNotifyWorker(db, notifier, nil, RetryPolicy{MaxRetries: 3, InitialDelay: time.Second}, &logger)

	ctx := context.Background()
	if err := w.EnqueueBooking(ctx, testBooking("b2")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	task, ok := w.tryLocalQueue()
	if !ok {
		t.Fatalf("expected task in local queue")
	}
	w.processTask(ctx, &task)

	status, retryCount, nextRetry := loadTaskStatus(t, db, task.ID)
	if status != "retry" {
		t.Fatalf("expected status=retry, got %s", status)
	}
	if retryCount != 1 {
		t.Fatalf("expected retry_count=1, got %d", retryCount)
	}
	if !nextRetry.Valid || nextRetry.Time.Before(time.Now()) {
		t.Fatalf("expected next_retry_at in future, got %v", nextRetry)
	}
}

func TestProcessTaskFail(t *testing.T) {
	db := newTestStore(t)
	notifier := &fakeNotifier{err: errors.New("fatal")}
	logger := zerolog.New(io.Discard)
	w := NewNotifyWorker(db, notifier, nil, RetryPolicy{MaxRetries: 1}, &logger)

	ctx := context.Background()
	w.EnqueueBooking(ctx, testBooking("b3"))
	task, _ := w.tryLocalQueue()
	w.processTask(ctx, &task)

	status, _, _ := loadTaskStatus(t, db, task.ID)
	if status != "failed" {
		t.Fatalf("expected status=failed, got %s", status)
	}

	failed, err := db.GetFailedNotifyTasks(ctx)
	if err != nil {
		t.Fatalf("failed tasks: %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("expected 1 failed task, got %d", len(failed))
	}
}

func TestEnqueueBookingValidation(t *testing.T) {
	db := newTestStore(t)
	logger := zerolog.New(io.Discard)
	w := NewNotifyWorker(db, &fakeNotifier{}, nil, RetryPolicy{}, &logger)

	ctx := context.Background()
	if err := w.EnqueueBooking(ctx, nil); err == nil {
		t.Fatalf("expected error for nil booking")
	}
	if err := w.EnqueueBooking(ctx, &models.Booking{}); err == nil {
		t.Fatalf("expected error for booking without id")
	}
}

func TestDecodePayload(t *testing.T) {
	logger := zerolog.New(io.Discard)
	w := NewNotifyWorker(nil, nil, nil, RetryPolicy{}, &logger)

	t.Run("ValidPayload", func(t *testing.T) {
		decoded, err := w.decodePayload(`{"booking_id":"abc","message":"hi"}`)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if decoded.BookingID != "abc" || decoded.Message != "hi" {
			t.Fatalf("unexpected decoded payload: %+v", decoded)
		}
	})

	t.Run("InvalidPayload", func(t *testing.T) {
		if _, err := w.decodePayload(`invalid json`); err == nil {
			t.Fatalf("expected error for invalid json")
		}
	})
}

func TestRetryPolicyNextDelay(t *testing.T) {
	policy := RetryPolicy{InitialDelay: time.Second, BackoffFactor: 2, MaxDelay: 5 * time.Second}
	d1 := policy.NextDelay(1)
	d2 := policy.NextDelay(2)
	d3 := policy.NextDelay(5)

	if d1 != time.Second {
		t.Fatalf("attempt1 expected 1s, got %s", d1)
	}
	if d2 != 2*time.Second {
		t.Fatalf("attempt2 expected 2s, got %s", d2)
	}
	if d3 != 5*time.Second {
		t.Fatalf("attempt5 expected capped 5s, got %s", d3)
	}
}

// Helpers

type fakeNotifier struct {
	err         error
	calls       int
	lastMessage string
}

func (f *fakeNotifier) Send(ctx context.Context, message string) error {
	f.calls++
	f.lastMessage = message
	return f.err
}

func testBooking(id string) *models.Booking {
	return &models.Booking{
		ID:            id,
		Ref:           "BK-TEST-" + id,
		Name:          "Tester",
		Phone:         "9876543210",
		Mode:          models.ModeHalf,
		SlotIDs:       []string{"2026-09-01#06"},
		Amount:        500,
		PaymentStatus: models.PaymentPending,
		Status:        models.StatusActive,
		CreatedAt:     time.Now(),
	}
}

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "worker.db")
	logger := zerolog.New(io.Discard)
	db, err := store.New(path, &logger)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func loadTaskStatus(t *testing.T, db *store.Store, id int64) (status string, retryCount int, nextRetry sql.NullTime) {
	t.Helper()
	row := db.QueryRowContext(context.Background(), `SELECT status, retry_count, next_retry_at FROM notify_queue WHERE id = ?`, id)
	if err := row.Scan(&status, &retryCount, &nextRetry); err != nil {
		t.Fatalf("scan task: %v", err)
	}
	return status, retryCount, nextRetry
}
