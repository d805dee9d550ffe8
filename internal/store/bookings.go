package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"turfbook/internal/models"
)

// Reserve атомарно допускает бронь: проверка емкости каждого слота
// выполняется на снимке внутри той же транзакции, что и запись, — это
// закрывает окно гонки check-then-act. При любом конфликте транзакция
// откатывается целиком без побочных эффектов.
func (s *Store) Reserve(ctx context.Context, booking *models.Booking) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	need := booking.Mode.Units()
	for _, slotID := range booking.SlotIDs {
		var used int
		err = tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(bs.units), 0)
             FROM booking_slots bs
             JOIN bookings bk ON bk.id = bs.booking_id
             WHERE bs.slot_id = ? AND bk.status = ?`,
			slotID, models.StatusActive,
		).Scan(&used)
		if err != nil {
			return fmt.Errorf("failed to check slot capacity in tx: %w", err)
		}

		if used+need > models.SlotCapacityUnits {
			return fmt.Errorf("%w: %s", ErrSlotUnavailable, slotID)
		}
	}

	now := time.Now()
	_, err = tx.ExecContext(ctx,
		`INSERT INTO bookings (id, ref, customer_name, phone, mode, amount, payment_status, status, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		booking.ID,
		booking.Ref,
		booking.Name,
		booking.Phone,
		string(booking.Mode),
		booking.Amount,
		booking.PaymentStatus,
		models.StatusActive,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to insert booking in tx: %w", err)
	}

	for i, slotID := range booking.SlotIDs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO booking_slots (booking_id, slot_id, units, position) VALUES (?, ?, ?, ?)`,
			booking.ID, slotID, need, i,
		)
		if err != nil {
			return fmt.Errorf("failed to record slot capacity in tx: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit reservation: %w", err)
	}

	booking.Status = models.StatusActive
	booking.CreatedAt = now
	return nil
}

// Cancel атомарно переводит бронь в cancelled и освобождает емкость.
// Повторная отмена идемпотентна: емкость не освобождается дважды.
func (s *Store) Cancel(ctx context.Context, bookingID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM bookings WHERE id = ?`, bookingID).Scan(&status)
	if err == sql.ErrNoRows {
		return fmt.Errorf("%w: %s", ErrBookingNotFound, bookingID)
	}
	if err != nil {
		return fmt.Errorf("failed to read booking in tx: %w", err)
	}

	if status == models.StatusCancelled {
		return tx.Commit()
	}

	// Строки booking_slots остаются на месте: занятость выводится
	// только из активных броней, а история остается полной.
	_, err = tx.ExecContext(ctx,
		`UPDATE bookings SET status = ?, cancelled_at = ? WHERE id = ?`,
		models.StatusCancelled, time.Now(), bookingID,
	)
	if err != nil {
		return fmt.Errorf("failed to cancel booking in tx: %w", err)
	}

	return tx.Commit()
}

// GetBooking возвращает бронь по ID вместе с упорядоченным списком слотов.
func (s *Store) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	var b models.Booking
	var mode string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, ref, customer_name, phone, mode, amount, payment_status, status, created_at, cancelled_at
         FROM bookings WHERE id = ?`, id,
	).Scan(&b.ID, &b.Ref, &b.Name, &b.Phone, &mode, &b.Amount, &b.PaymentStatus, &b.Status, &b.CreatedAt, &b.CancelledAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrBookingNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	b.Mode = models.BookingMode(mode)

	if b.SlotIDs, err = s.slotIDs(ctx, b.ID); err != nil {
		return nil, err
	}
	return &b, nil
}

func (s *Store) slotIDs(ctx context.Context, bookingID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT slot_id FROM booking_slots WHERE booking_id = ? ORDER BY position`, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to get booking slots: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan slot id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetBookings возвращает страницу броней, новые первыми. before задает
// курсор пагинации по created_at.
func (s *Store) GetBookings(ctx context.Context, limit int, before *time.Time) ([]*models.Booking, error) {
	return s.queryBookings(ctx, "", limit, before)
}

// GetBookingsByPhone возвращает страницу броней клиента по номеру телефона.
func (s *Store) GetBookingsByPhone(ctx context.Context, phone string, limit int, before *time.Time) ([]*models.Booking, error) {
	if phone == "" {
		return nil, fmt.Errorf("phone is required")
	}
	return s.queryBookings(ctx, phone, limit, before)
}

func (s *Store) queryBookings(ctx context.Context, phone string, limit int, before *time.Time) ([]*models.Booking, error) {
	if limit <= 0 {
		limit = models.DefaultBookingsPageSize
	}

	query := `SELECT id, ref, customer_name, phone, mode, amount, payment_status, status, created_at, cancelled_at
              FROM bookings WHERE 1=1`
	args := []any{}
	if phone != "" {
		query += ` AND phone = ?`
		args = append(args, phone)
	}
	if before != nil {
		query += ` AND created_at < ?`
		args = append(args, *before)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []*models.Booking
	for rows.Next() {
		b := &models.Booking{}
		var mode string
		err := rows.Scan(&b.ID, &b.Ref, &b.Name, &b.Phone, &mode, &b.Amount, &b.PaymentStatus, &b.Status, &b.CreatedAt, &b.CancelledAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		b.Mode = models.BookingMode(mode)
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, b := range bookings {
		if b.SlotIDs, err = s.slotIDs(ctx, b.ID); err != nil {
			return nil, err
		}
	}
	return bookings, nil
}
