package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"turfbook/internal/metrics"
	"turfbook/internal/models"
	"turfbook/internal/service"
	"turfbook/internal/store"

	"github.com/gorilla/mux"
)

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// statusFor отображает доменные ошибки на HTTP статусы. Любая
// неклассифицированная ошибка хранилища — это 503: админ-вмешательство,
// а не тихий повтор записи.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrSlotUnavailable):
		return http.StatusConflict
	case errors.Is(err, store.ErrBookingNotFound):
		return http.StatusNotFound
	default:
		return http.StatusServiceUnavailable
	}
}

func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusServiceUnavailable {
		s.logger.Error().Err(err).Msg("storage error")
		writeError(w, status, "service temporarily unavailable")
		return
	}
	writeError(w, status, err.Error())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListSlots(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("slots")

	days, states, err := s.bookings.ListSlots(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"days":      days,
		"occupancy": states,
	})
}

func (s *Server) handleOccupancy(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("occupancy")

	states, err := s.bookings.GetOccupancy(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"occupancy": states})
}

func (s *Server) handleCheckAvailability(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("availability_check")

	var body struct {
		Mode    string   `json:"mode"`
		SlotIDs []string `json:"slot_ids"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	available, states, err := s.bookings.CheckAvailability(r.Context(), body.Mode, body.SlotIDs)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"available": available,
		"states":    states,
	})
}

func (s *Server) handleReserve(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("reserve")

	var req service.ReserveRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	booking, err := s.bookings.Reserve(r.Context(), req)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"booking": booking})
}

func (s *Server) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("get_booking")

	booking, err := s.bookings.GetBooking(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"booking": booking})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("cancel")

	booking, err := s.bookings.Cancel(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"booking": booking})
}

func (s *Server) handleListBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("list_bookings")

	q := r.URL.Query()
	phone := strings.TrimSpace(q.Get("phone"))

	// У истории клиента своя страница короче общего списка.
	limit := models.DefaultBookingsPageSize
	if phone != "" {
		limit = models.DefaultHistoryPageSize
	}
	if raw := strings.TrimSpace(q.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	var before *time.Time
	if raw := strings.TrimSpace(q.Get("before")); raw != "" {
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "before must be RFC3339")
			return
		}
		before = &ts
	}

	var bookings []*models.Booking
	var err error
	if phone != "" {
		bookings, err = s.bookings.GetBookingsByPhone(r.Context(), phone, limit, before)
	} else {
		bookings, err = s.bookings.GetBookings(r.Context(), limit, before)
	}
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	resp := map[string]any{"bookings": bookings}
	if len(bookings) == limit {
		resp["next_before"] = bookings[len(bookings)-1].CreatedAt.Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleExport генерирует Excel выгрузку и отдает файл целиком.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("export")

	filePath, err := s.exports.ExportBookings(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filepath.Base(filePath)))
	http.ServeFile(w, r, filePath)
}

// handleEvents — лента схождения по SSE: первым сообщением приходит
// снимок занятости, дальше события по мере фиксации броней.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("events")

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	sub, err := s.hub.Subscribe(r.Context())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	defer sub.Cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, open := <-sub.C():
			if !open {
				return
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", msg.Type, msg.Payload)
			flusher.Flush()
		}
	}
}

func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}
