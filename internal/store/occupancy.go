package store

import (
	"context"
	"fmt"

	"turfbook/internal/models"
)

// GetOccupancy возвращает состояние всех слотов, на которые ссылается
// хотя бы одна активная бронь. Слоты без записей считаются empty.
func (s *Store) GetOccupancy(ctx context.Context) (map[string]models.OccupancyState, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT bs.slot_id,
                SUM(CASE WHEN bk.mode = ? THEN 1 ELSE 0 END),
                SUM(CASE WHEN bk.mode = ? THEN 1 ELSE 0 END)
         FROM booking_slots bs
         JOIN bookings bk ON bk.id = bs.booking_id
         WHERE bk.status = ?
         GROUP BY bs.slot_id`,
		string(models.ModeFull), string(models.ModeHalf), models.StatusActive,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query occupancy: %w", err)
	}
	defer rows.Close()

	states := make(map[string]models.OccupancyState)
	for rows.Next() {
		var slotID string
		var fullCount, halfCount int
		if err := rows.Scan(&slotID, &fullCount, &halfCount); err != nil {
			return nil, fmt.Errorf("failed to scan occupancy row: %w", err)
		}

		state, err := models.ReduceOccupancy(fullCount, halfCount)
		if err != nil {
			// Нарушение инварианта емкости — дефект контроля допуска,
			// докладываем, а не сглаживаем.
			s.logger.Error().Err(err).Str("slot_id", slotID).Msg("occupancy integrity violation")
			return nil, fmt.Errorf("slot %s: %w", slotID, err)
		}
		states[slotID] = state
	}
	return states, rows.Err()
}

// StatesFor возвращает состояния запрошенных слотов; неизвестные слоты
// получают empty.
func (s *Store) StatesFor(ctx context.Context, slotIDs []string) (map[string]models.OccupancyState, error) {
	states, err := s.GetOccupancy(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[string]models.OccupancyState, len(slotIDs))
	for _, id := range slotIDs {
		state, ok := states[id]
		if !ok {
			state = models.OccupancyEmpty
		}
		out[id] = state
	}
	return out, nil
}

// StateOf возвращает состояние одного слота.
func (s *Store) StateOf(ctx context.Context, slotID string) (models.OccupancyState, error) {
	var fullCount, halfCount int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN bk.mode = ? THEN 1 ELSE 0 END), 0),
                COALESCE(SUM(CASE WHEN bk.mode = ? THEN 1 ELSE 0 END), 0)
         FROM booking_slots bs
         JOIN bookings bk ON bk.id = bs.booking_id
         WHERE bs.slot_id = ? AND bk.status = ?`,
		string(models.ModeFull), string(models.ModeHalf), slotID, models.StatusActive,
	).Scan(&fullCount, &halfCount)
	if err != nil {
		return "", fmt.Errorf("failed to query slot state: %w", err)
	}

	state, err := models.ReduceOccupancy(fullCount, halfCount)
	if err != nil {
		s.logger.Error().Err(err).Str("slot_id", slotID).Msg("occupancy integrity violation")
		return state, fmt.Errorf("slot %s: %w", slotID, err)
	}
	return state, nil
}
