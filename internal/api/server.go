package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"turfbook/internal/config"
	"turfbook/internal/feed"
	"turfbook/internal/service"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Server — HTTP фасад поверх сервиса броней. Вся доменная логика живет
// в service; здесь только маршрутизация, кодеки и отображение ошибок.
type Server struct {
	cfg      config.APIConfig
	bookings *service.BookingService
	exports  *service.ExportService
	hub      *feed.Hub
	server   *http.Server
	auth     *Auth
	logger   *zerolog.Logger
}

func NewServer(cfg config.APIConfig, bookings *service.BookingService, exports *service.ExportService, hub *feed.Hub, logger *zerolog.Logger) *Server {
	srv := &Server{
		cfg:      cfg,
		bookings: bookings,
		exports:  exports,
		hub:      hub,
		auth:     NewAuth(cfg),
		logger:   logger,
	}

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/slots", srv.handleListSlots).Methods(http.MethodGet)
	api.HandleFunc("/occupancy", srv.handleOccupancy).Methods(http.MethodGet)
	api.HandleFunc("/availability/check", srv.handleCheckAvailability).Methods(http.MethodPost)
	api.HandleFunc("/bookings", srv.handleReserve).Methods(http.MethodPost)
	api.HandleFunc("/bookings", srv.handleListBookings).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{id}", srv.handleGetBooking).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{id}", srv.handleCancel).Methods(http.MethodDelete)
	api.HandleFunc("/events", srv.handleEvents).Methods(http.MethodGet)
	api.HandleFunc("/export", srv.handleExport).Methods(http.MethodGet)

	r.HandleFunc("/healthz", srv.handleHealth).Methods(http.MethodGet)

	handler := srv.loggingMiddleware(srv.auth.Wrap(r))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return srv
}

func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the configured root handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Flush пробрасывает стриминг для SSE сквозь рекордер статуса.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
