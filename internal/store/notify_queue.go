package store

import (
	"context"
	"fmt"
	"time"

	"turfbook/internal/models"
)

// CreateNotifyTask ставит уведомление в очередь доставки. Очередь живет
// вне транзакции брони: сбой уведомления не откатывает бронь.
func (s *Store) CreateNotifyTask(ctx context.Context, task *models.NotifyTask) error {
	now := time.Now()
	result, err := s.db.ExecContext(ctx,
		`INSERT INTO notify_queue (booking_id, payload, status, retry_count, last_error, created_at, next_retry_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		task.BookingID,
		task.Payload,
		task.Status,
		task.RetryCount,
		task.LastError,
		now,
		task.NextRetryAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notify task: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	task.ID = id
	task.CreatedAt = now
	return nil
}

// GetPendingNotifyTasks возвращает задачи, готовые к (повторной) доставке.
func (s *Store) GetPendingNotifyTasks(ctx context.Context, limit int) ([]models.NotifyTask, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, booking_id, payload, status, retry_count, last_error, created_at, processed_at, next_retry_at
         FROM notify_queue
         WHERE status IN ('pending', 'retry') AND (next_retry_at IS NULL OR next_retry_at <= ?)
         ORDER BY created_at ASC LIMIT ?`,
		time.Now(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending notify tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.NotifyTask
	for rows.Next() {
		var t models.NotifyTask
		err := rows.Scan(&t.ID, &t.BookingID, &t.Payload, &t.Status, &t.RetryCount, &t.LastError, &t.CreatedAt, &t.ProcessedAt, &t.NextRetryAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notify task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateNotifyTaskStatus переводит задачу в новый статус доставки.
func (s *Store) UpdateNotifyTaskStatus(ctx context.Context, id int64, status, errMsg string, nextRetryAt *time.Time) error {
	var query string
	var args []any
	now := time.Now()

	switch status {
	case "retry":
		query = `UPDATE notify_queue SET status = ?, last_error = ?, next_retry_at = ?, retry_count = retry_count + 1 WHERE id = ?`
		args = []any{status, errMsg, nextRetryAt, id}
	case "completed", "failed":
		query = `UPDATE notify_queue SET status = ?, last_error = ?, next_retry_at = ?, processed_at = ? WHERE id = ?`
		args = []any{status, errMsg, nextRetryAt, &now, id}
	default:
		query = `UPDATE notify_queue SET status = ?, last_error = ?, next_retry_at = ? WHERE id = ?`
		args = []any{status, errMsg, nextRetryAt, id}
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to update notify task status: %w", err)
	}
	return nil
}

// GetFailedNotifyTasks возвращает задачи, исчерпавшие ретраи.
func (s *Store) GetFailedNotifyTasks(ctx context.Context) ([]models.NotifyTask, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, booking_id, payload, status, retry_count, last_error, created_at, processed_at, next_retry_at
         FROM notify_queue WHERE status = 'failed' ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get failed notify tasks: %w", err)
	}
	defer rows.Close()

	var tasks []models.NotifyTask
	for rows.Next() {
		var t models.NotifyTask
		err := rows.Scan(&t.ID, &t.BookingID, &t.Payload, &t.Status, &t.RetryCount, &t.LastError, &t.CreatedAt, &t.ProcessedAt, &t.NextRetryAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notify task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}
