package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"chairbook/internal/config"
	"chairbook/internal/domain"
	"chairbook/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// CalendarExporter renders a resolved calendar as a spreadsheet.
type CalendarExporter interface {
	CalendarWorkbook(chair models.Chair, days []models.DayResolution) ([]byte, error)
}

// HTTPServer exposes slot resolution and booking eligibility to UI clients.
type HTTPServer struct {
	cfg      config.APIConfig
	schedule domain.ScheduleService
	bookings domain.BookingService
	exporter CalendarExporter
	auth     *HTTPAuth
	logger   *zerolog.Logger
	server   *http.Server
	now      func() time.Time
}

func NewHTTPServer(
	cfg config.APIConfig,
	schedule domain.ScheduleService,
	bookings domain.BookingService,
	exporter CalendarExporter,
	logger *zerolog.Logger,
) *HTTPServer {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "http").Logger()

	srv := &HTTPServer{
		cfg:      cfg,
		schedule: schedule,
		bookings: bookings,
		exporter: exporter,
		auth:     NewHTTPAuth(cfg),
		logger:   &l,
		now:      time.Now,
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}
	return srv
}

func (s *HTTPServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(s.logger))

	if len(s.cfg.CORS.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: s.cfg.CORS.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			AllowedHeaders: []string{"Accept", "Content-Type", s.auth.keys.headerKey, s.auth.keys.headerExtra, requestIDHeader},
			ExposedHeaders: []string{requestIDHeader},
			MaxAge:         300,
		}))
	}

	r.Get("/healthz", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.With(s.auth.Require(permReadSlots)).Get("/slots", s.handleSlots)
		r.With(s.auth.Require(permReadSlots)).Get("/overview", s.handleOverview)

		r.Route("/chairs/{id}", func(r chi.Router) {
			r.With(s.auth.Require(permReadSlots)).Get("/slots", s.handleDaySlots)
			r.With(s.auth.Require(permReadSlots)).Get("/slots/check", s.handleCheckSlot)
			r.With(s.auth.Require(permReadSlots)).Get("/calendar", s.handleCalendar)
			r.With(s.auth.Require(permExportCalendars)).Get("/calendar.xlsx", s.handleCalendarExport)
		})

		r.With(s.auth.Require(permReadBookings)).Get("/bookings/{id}/eligibility", s.handleEligibility)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	return r
}

// Handler exposes the router, mainly for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
