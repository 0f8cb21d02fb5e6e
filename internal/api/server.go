// Package api exposes the scheduling engine as a JSON HTTP surface.
// Authentication happens in a fronting proxy; handlers trust the
// identity headers it injects and enforce roles on top.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"waschplan/internal/cache"
	"waschplan/internal/dashboard"
	"waschplan/internal/database"
	"waschplan/internal/models"
	"waschplan/internal/rooftop"
	"waschplan/internal/schedule"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// HTTPServer serves the scheduling API.
type HTTPServer struct {
	server    *http.Server
	db        *database.DB
	guard     *schedule.Guard
	rooftop   *rooftop.Service
	dashboard *dashboard.Service
	cache     *cache.GridCache
	logger    *zerolog.Logger
}

// NewHTTPServer wires all routes. cache may be nil.
func NewHTTPServer(addr string, db *database.DB, guard *schedule.Guard, roof *rooftop.Service, dash *dashboard.Service, gridCache *cache.GridCache, logger *zerolog.Logger) *HTTPServer {
	s := &HTTPServer{
		db:        db,
		guard:     guard,
		rooftop:   roof,
		dashboard: dash,
		cache:     gridCache,
		logger:    logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/laundry/machines", s.handleMachines)
	mux.HandleFunc("/api/laundry/grid", s.handleGrid)
	mux.HandleFunc("/api/laundry/bookings", s.handleBookings)
	mux.HandleFunc("/api/laundry/bookings/batch", s.handleBookingsBatch)
	mux.HandleFunc("/api/laundry/bookings/date/", s.handleBookingsByDate)
	mux.HandleFunc("/api/laundry/bookings/future/me", s.handleMyFutureBookings)
	mux.HandleFunc("/api/laundry/bookings/all/me", s.handleMyBookingHistory)
	mux.HandleFunc("/api/laundry/overrides", s.handleOverrides)
	mux.HandleFunc("/api/laundry/overrides/", s.handleOverrideByID)
	mux.HandleFunc("/api/rooftop/requests", s.handleRequests)
	mux.HandleFunc("/api/rooftop/requests/me", s.handleMyRequests)
	mux.HandleFunc("/api/rooftop/requests/", s.handleRequestAction)
	mux.HandleFunc("/api/rooftop/bookings", s.handleRooftopBookings)
	mux.HandleFunc("/api/rooftop/bookings/me", s.handleMyRooftopBookings)
	mux.HandleFunc("/api/rooftop/bookings/month/", s.handleRooftopBookingsMonth)
	mux.HandleFunc("/api/dashboard/summary", s.handleDashboardSummary)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.withRequestID(mux),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

// Start serves until Shutdown is called.
func (s *HTTPServer) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the routing tree, for tests.
func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

// withRequestID tags every request with a correlation id and logs the
// outcome.
func (s *HTTPServer) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)

		start := time.Now()
		next.ServeHTTP(w, r)
		s.logger.Debug().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("Request handled")
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeDomainError maps the sentinel taxonomy onto HTTP codes. Unknown
// errors stay opaque.
func (s *HTTPServer) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrForbidden):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, models.ErrDuplicateRequest):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrSlotUnavailable),
		errors.Is(err, models.ErrQuotaExceeded),
		errors.Is(err, models.ErrInvalidState),
		errors.Is(err, models.ErrMissingReason),
		errors.Is(err, models.ErrValidation),
		errors.Is(err, models.ErrAlreadyStarted):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.logger.Error().Err(err).Msg("Internal error")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func decodeBody(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}

func parseDateParam(value string) (time.Time, error) {
	return models.ParseDate(value)
}
