package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"turfbook/internal/calendar"
	"turfbook/internal/config"
	"turfbook/internal/domain"
	"turfbook/internal/events"
	"turfbook/internal/metrics"
	"turfbook/internal/models"
	"turfbook/internal/store"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ErrInvalidRequest — запрос отвергнут валидацией до обращения к базе.
var ErrInvalidRequest = errors.New("invalid request")

var phonePattern = regexp.MustCompile(`^[0-9]{10}$`)

// ReserveRequest — входные данные на создание брони. Сумму сервис
// всегда вычисляет сам; присланная клиентом принимается только как
// контрольная и при расхождении запрос отвергается.
type ReserveRequest struct {
	Name          string   `json:"name"`
	Phone         string   `json:"phone"`
	Mode          string   `json:"mode"`
	SlotIDs       []string `json:"slot_ids"`
	Amount        int64    `json:"amount,omitempty"`
	PaymentStatus string   `json:"payment_status"`
}

type BookingService struct {
	store    domain.Store
	cache    domain.OccupancyCache
	eventBus domain.EventPublisher
	notify   domain.NotifyEnqueuer
	calendar *calendar.Generator
	cfg      config.BookingConfig
	logger   *zerolog.Logger
}

func NewBookingService(
	st domain.Store,
	cache domain.OccupancyCache,
	eventBus domain.EventPublisher,
	notify domain.NotifyEnqueuer,
	cal *calendar.Generator,
	cfg config.BookingConfig,
	logger *zerolog.Logger,
) *BookingService {
	if cfg.MaxSlotsPerBooking <= 0 {
		cfg.MaxSlotsPerBooking = models.MaxSlotsPerBooking
	}
	if cfg.AdvanceWindowHours <= 0 {
		cfg.AdvanceWindowHours = models.AdvanceWindowHours
	}
	if cfg.PriceHalf <= 0 {
		cfg.PriceHalf = models.PriceHalfPerSlot
	}
	if cfg.PriceFull <= 0 {
		cfg.PriceFull = models.PriceFullPerSlot
	}
	if cfg.CheckRetries <= 0 {
		cfg.CheckRetries = 3
	}
	if cfg.CheckRetryBaseSec <= 0 {
		cfg.CheckRetryBaseSec = 1
	}
	return &BookingService{
		store:    st,
		cache:    cache,
		eventBus: eventBus,
		notify:   notify,
		calendar: cal,
		cfg:      cfg,
		logger:   logger,
	}
}

// ListSlots возвращает вселенную слотов горизонта вместе с занятостью.
func (s *BookingService) ListSlots(ctx context.Context) ([]calendar.Day, map[string]models.OccupancyState, error) {
	days := s.calendar.Days()
	states, err := s.GetOccupancy(ctx)
	if err != nil {
		return nil, nil, err
	}
	return days, states, nil
}

// GetOccupancy возвращает занятость слотов, по возможности из кэша.
// Кэш чисто рекомендательный: промах или сбой просто ведет в базу.
func (s *BookingService) GetOccupancy(ctx context.Context) (map[string]models.OccupancyState, error) {
	if s.cache != nil {
		if states, ok, err := s.cache.Get(ctx); err == nil && ok {
			return states, nil
		}
	}

	states, err := s.store.GetOccupancy(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, states); err != nil {
			s.logger.Warn().Err(err).Msg("occupancy cache set failed")
		}
	}
	return states, nil
}

// CheckAvailability — предварительная проверка слотов перед оформлением.
// Читающий запрос, поэтому при сбоях базы допустимы повторы; сам путь
// записи (Reserve) не ретраится никогда.
func (s *BookingService) CheckAvailability(ctx context.Context, mode string, slotIDs []string) (bool, map[string]models.OccupancyState, error) {
	parsedMode, err := models.ParseBookingMode(mode)
	if err != nil {
		return false, nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if err := s.validateSlotBatch(slotIDs); err != nil {
		return false, nil, err
	}

	var states map[string]models.OccupancyState
	baseDelay := time.Duration(s.cfg.CheckRetryBaseSec * float64(time.Second))
	for attempt := 1; ; attempt++ {
		states, err = s.store.StatesFor(ctx, slotIDs)
		if err == nil {
			break
		}
		if attempt >= s.cfg.CheckRetries {
			return false, nil, err
		}

		delay := baseDelay * time.Duration(1<<(attempt-1))
		s.logger.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("availability check failed, will retry")
		select {
		case <-ctx.Done():
			return false, nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	for _, id := range slotIDs {
		if !states[id].Admits(parsedMode) {
			return false, states, nil
		}
	}
	return true, states, nil
}

// Reserve оформляет бронь. Валидация выполняется до базы; сама проверка
// емкости происходит внутри транзакции хранилища, поэтому положительный
// ответ CheckAvailability здесь ничего не гарантирует.
func (s *BookingService) Reserve(ctx context.Context, req ReserveRequest) (*models.Booking, error) {
	booking, err := s.buildBooking(req)
	if err != nil {
		metrics.IncReservation("invalid")
		return nil, err
	}

	if err := s.store.Reserve(ctx, booking); err != nil {
		if errors.Is(err, store.ErrSlotUnavailable) {
			metrics.IncReservation("conflict")
		} else {
			metrics.IncReservation("error")
		}
		return nil, err
	}
	metrics.IncReservation("accepted")

	s.afterCommit(ctx, booking, events.EventBookingCreated)

	// Уведомление оператору — fire-and-forget, судьбу брони не решает.
	if s.notify != nil {
		if err := s.notify.EnqueueBooking(ctx, booking); err != nil {
			s.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("notify enqueue error")
		}
	}

	return booking, nil
}

// Cancel отменяет бронь по идентификатору. Повторная отмена идемпотентна.
func (s *BookingService) Cancel(ctx context.Context, bookingID string) (*models.Booking, error) {
	if strings.TrimSpace(bookingID) == "" {
		metrics.IncCancellation("invalid")
		return nil, fmt.Errorf("%w: booking id is required", ErrInvalidRequest)
	}

	if err := s.store.Cancel(ctx, bookingID); err != nil {
		if errors.Is(err, store.ErrBookingNotFound) {
			metrics.IncCancellation("not_found")
		} else {
			metrics.IncCancellation("error")
		}
		return nil, err
	}
	metrics.IncCancellation("accepted")

	booking, err := s.store.GetBooking(ctx, bookingID)
	if err != nil {
		// Отмена уже зафиксирована; событие без снимка не публикуем.
		s.logger.Error().Err(err).Str("booking_id", bookingID).Msg("read booking after cancel")
		return nil, err
	}

	s.afterCommit(ctx, booking, events.EventBookingCancelled)
	return booking, nil
}

// GetBooking возвращает бронь по идентификатору.
func (s *BookingService) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	return s.store.GetBooking(ctx, id)
}

// GetBookings возвращает страницу всех броней, новые первыми.
func (s *BookingService) GetBookings(ctx context.Context, limit int, before *time.Time) ([]*models.Booking, error) {
	return s.store.GetBookings(ctx, limit, before)
}

// GetBookingsByPhone возвращает историю клиента по номеру телефона.
func (s *BookingService) GetBookingsByPhone(ctx context.Context, phone string, limit int, before *time.Time) ([]*models.Booking, error) {
	phone = strings.TrimSpace(phone)
	if !phonePattern.MatchString(phone) {
		return nil, fmt.Errorf("%w: phone must be 10 digits", ErrInvalidRequest)
	}
	return s.store.GetBookingsByPhone(ctx, phone, limit, before)
}

// buildBooking валидирует запрос и собирает бронь с серверными полями.
func (s *BookingService) buildBooking(req ReserveRequest) (*models.Booking, error) {
	mode, err := models.ParseBookingMode(req.Mode)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	name := strings.TrimSpace(req.Name)
	if len([]rune(name)) < 2 {
		return nil, fmt.Errorf("%w: name must be at least 2 characters", ErrInvalidRequest)
	}

	phone := strings.TrimSpace(req.Phone)
	if !phonePattern.MatchString(phone) {
		return nil, fmt.Errorf("%w: phone must be 10 digits", ErrInvalidRequest)
	}

	if err := s.validateSlotBatch(req.SlotIDs); err != nil {
		return nil, err
	}

	paymentStatus := strings.ToLower(strings.TrimSpace(req.PaymentStatus))
	switch paymentStatus {
	case "":
		paymentStatus = models.PaymentPending
	case models.PaymentPending, models.PaymentPaid:
	default:
		return nil, fmt.Errorf("%w: unknown payment status %q", ErrInvalidRequest, req.PaymentStatus)
	}

	price := s.cfg.PriceHalf
	if mode == models.ModeFull {
		price = s.cfg.PriceFull
	}
	amount := price * int64(len(req.SlotIDs))
	if req.Amount != 0 && req.Amount != amount {
		return nil, fmt.Errorf("%w: amount mismatch, expected %d", ErrInvalidRequest, amount)
	}

	return &models.Booking{
		ID:            uuid.NewString(),
		Ref:           models.NewBookingRef(),
		Name:          name,
		Phone:         phone,
		Mode:          mode,
		SlotIDs:       append([]string(nil), req.SlotIDs...),
		Amount:        amount,
		PaymentStatus: paymentStatus,
	}, nil
}

// validateSlotBatch проверяет состав партии слотов: размер, формат
// идентификаторов, часы работы, окно бронирования и дубликаты.
func (s *BookingService) validateSlotBatch(slotIDs []string) error {
	if len(slotIDs) == 0 {
		return fmt.Errorf("%w: at least one slot is required", ErrInvalidRequest)
	}
	if len(slotIDs) > s.cfg.MaxSlotsPerBooking {
		return fmt.Errorf("%w: at most %d slots per booking", ErrInvalidRequest, s.cfg.MaxSlotsPerBooking)
	}

	seen := make(map[string]struct{}, len(slotIDs))
	for _, id := range slotIDs {
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate slot %s", ErrInvalidRequest, id)
		}
		seen[id] = struct{}{}

		_, index, err := calendar.DecodeSlotID(id, time.Local)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		if !calendar.Bookable(index) {
			return fmt.Errorf("%w: slot %s is outside opening hours", ErrInvalidRequest, id)
		}

		hours, err := s.calendar.HoursUntil(id)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		if hours < 0 {
			return fmt.Errorf("%w: slot %s is in the past", ErrInvalidRequest, id)
		}
		if hours > float64(s.cfg.AdvanceWindowHours) {
			return fmt.Errorf("%w: slot %s is beyond the %dh window", ErrInvalidRequest, id, s.cfg.AdvanceWindowHours)
		}
	}
	return nil
}

// afterCommit публикует события и освежает кэш после фиксации брони.
func (s *BookingService) afterCommit(ctx context.Context, booking *models.Booking, eventType string) {
	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("occupancy cache invalidate failed")
		}
	}

	if s.eventBus == nil {
		return
	}

	if err := s.eventBus.PublishJSON(eventType, events.NewBookingPayload(booking)); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Str("booking_id", booking.ID).Msg("publish event error")
	}

	states, err := s.store.StatesFor(ctx, booking.SlotIDs)
	if err != nil {
		s.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("read states after commit")
		return
	}
	if err := s.eventBus.PublishJSON(events.EventOccupancyChanged, events.OccupancyEventPayload{States: states}); err != nil {
		s.logger.Error().Err(err).Str("booking_id", booking.ID).Msg("publish occupancy event error")
	}
}
