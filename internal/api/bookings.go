package api

import (
	"net/http"
	"strconv"
	"strings"

	"waschplan/internal/metrics"
	"waschplan/internal/models"
	"waschplan/internal/schedule"
)

// ClaimRequest is one requested slot in a booking command.
type ClaimRequest struct {
	MachineName string `json:"machine_name"`
	Date        string `json:"date"` // YYYY-MM-DD
	SlotStart   int    `json:"slot_start"`
}

// BatchRequest carries an all-or-nothing set of claims.
type BatchRequest struct {
	Claims []ClaimRequest `json:"claims"`
}

func (c ClaimRequest) toClaim() (schedule.Claim, string) {
	if c.MachineName == "" {
		return schedule.Claim{}, "machine_name is required"
	}
	if c.Date == "" {
		return schedule.Claim{}, "date is required"
	}
	date, err := parseDateParam(c.Date)
	if err != nil {
		return schedule.Claim{}, "invalid date format; expected YYYY-MM-DD"
	}
	return schedule.Claim{MachineName: c.MachineName, Date: date, SlotStart: c.SlotStart}, ""
}

// handleBookings creates and cancels single reservations.
// POST /api/laundry/bookings · DELETE /api/laundry/bookings?id=
func (s *HTTPServer) handleBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings")
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodPost:
		var req ClaimRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		claim, msg := req.toClaim()
		if msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		booking, err := s.guard.Reserve(r.Context(), id.Room, claim)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, booking)

	case http.MethodDelete:
		bookingID, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "id is required")
			return
		}
		if err := s.guard.Cancel(r.Context(), id.Room, bookingID); err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"cancelled": bookingID})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleBookingsBatch commits several claims atomically.
// POST /api/laundry/bookings/batch
func (s *HTTPServer) handleBookingsBatch(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_batch")
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req BatchRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	claims := make([]schedule.Claim, 0, len(req.Claims))
	for _, c := range req.Claims {
		claim, msg := c.toClaim()
		if msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		claims = append(claims, claim)
	}
	bookings, err := s.guard.ReserveBatch(r.Context(), id.Room, claims)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"bookings": bookings})
}

// handleBookingsByDate lists the reservations of one date, optionally
// with the previous day's cross-midnight spills.
// GET /api/laundry/bookings/date/{date}?include_buffer=true
func (s *HTTPServer) handleBookingsByDate(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_by_date")
	if _, ok := s.identity(w, r); !ok {
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	raw := strings.TrimPrefix(r.URL.Path, "/api/laundry/bookings/date/")
	date, err := parseDateParam(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	from := date
	if r.URL.Query().Get("include_buffer") == "true" {
		from = date.AddDate(0, 0, -1)
	}
	all, err := s.db.BookingsBetween(r.Context(), from, date)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	bookings := make([]models.Booking, 0, len(all))
	for _, b := range all {
		if models.SameDate(b.Date, date) || b.CrossesMidnight() {
			bookings = append(bookings, b)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

// handleMyFutureBookings lists the caller's upcoming reservations.
// GET /api/laundry/bookings/future/me
func (s *HTTPServer) handleMyFutureBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_future_me")
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	bookings, err := s.db.FutureBookingsByRoom(r.Context(), id.Room, models.DateOnly(timeNow()))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

// handleMyBookingHistory pages through the caller's booking history.
// GET /api/laundry/bookings/all/me?page=&size=
func (s *HTTPServer) handleMyBookingHistory(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("bookings_all_me")
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	size, _ := strconv.Atoi(r.URL.Query().Get("size"))
	bookings, err := s.db.BookingsByRoomPaged(r.Context(), id.Room, page, size)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings, "page": page})
}
