package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"waschplan/internal/metrics"
	"waschplan/internal/models"
	"waschplan/internal/rooftop"
)

// SubmitRequestBody is a resident's rooftop application.
type SubmitRequestBody struct {
	Date     string `json:"date"`
	Reason   string `json:"reason"`
	Contact  string `json:"contact"`
	TimeSpan string `json:"time_span"`
}

// DecisionBody carries an admin's note or rejection reason.
type DecisionBody struct {
	Reason string `json:"reason"`
}

// RooftopBookingBody is an admin's direct rooftop booking.
type RooftopBookingBody struct {
	RoomNumber string `json:"room_number"`
	Date       string `json:"date"`
	Reason     string `json:"reason"`
}

// handleRequests lists (admin) and submits rooftop requests.
// GET /api/rooftop/requests?room=&status=&from=&to= · POST
func (s *HTTPServer) handleRequests(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("rooftop_requests")
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		if !id.RooftopAdmin() {
			writeError(w, http.StatusForbidden, "rooftop admin role required")
			return
		}
		from, to, msg := dateRange(r)
		if msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		requests, err := s.rooftop.Requests(r.Context(), r.URL.Query().Get("room"),
			models.RequestStatus(r.URL.Query().Get("status")), from, to)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"requests": requests})

	case http.MethodPost:
		var body SubmitRequestBody
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if body.Date == "" {
			writeError(w, http.StatusBadRequest, "date is required")
			return
		}
		date, err := parseDateParam(body.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
		request, err := s.rooftop.Submit(r.Context(), id.Room, rooftop.SubmitInput{
			Date: date, Reason: body.Reason, Contact: body.Contact, TimeSpan: body.TimeSpan,
		})
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, request)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleMyRequests lists the caller's own requests.
// GET /api/rooftop/requests/me?status=
func (s *HTTPServer) handleMyRequests(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("rooftop_requests_me")
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	requests, err := s.rooftop.Requests(r.Context(), id.Room,
		models.RequestStatus(r.URL.Query().Get("status")), time.Time{}, time.Time{})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"requests": requests})
}

// handleRequestAction reads one request or runs a decision on it.
// GET /api/rooftop/requests/{id}
// POST /api/rooftop/requests/{id}/approve|reject|cancel
func (s *HTTPServer) handleRequestAction(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("rooftop_request_action")
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/rooftop/requests/")
	idPart, action, _ := strings.Cut(rest, "/")
	requestID, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid request id")
		return
	}

	if action == "" {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		request, err := s.rooftop.Request(r.Context(), requestID)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		if request.RoomNumber != id.Room && !id.RooftopAdmin() {
			writeError(w, http.StatusForbidden, "not your request")
			return
		}
		writeJSON(w, http.StatusOK, request)
		return
	}

	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body DecisionBody
	if r.ContentLength > 0 {
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}

	switch action {
	case "approve":
		if !id.RooftopAdmin() {
			writeError(w, http.StatusForbidden, "rooftop admin role required")
			return
		}
		request, booking, err := s.rooftop.Approve(r.Context(), requestID, id.Room, body.Reason)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"request": request, "booking": booking})

	case "reject":
		if !id.RooftopAdmin() {
			writeError(w, http.StatusForbidden, "rooftop admin role required")
			return
		}
		request, err := s.rooftop.Reject(r.Context(), requestID, id.Room, body.Reason)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, request)

	case "cancel":
		request, err := s.rooftop.Cancel(r.Context(), requestID, id.Room)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, request)

	default:
		writeError(w, http.StatusNotFound, "unknown action "+action)
	}
}

// handleRooftopBookings is the admin surface over committed rooftop
// bookings.
// GET /api/rooftop/bookings?room=&from=&to= · POST · DELETE ?id=
func (s *HTTPServer) handleRooftopBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("rooftop_bookings")
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if !id.RooftopAdmin() {
		writeError(w, http.StatusForbidden, "rooftop admin role required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		from, to, msg := dateRange(r)
		if msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		bookings, err := s.rooftop.Bookings(r.Context(), r.URL.Query().Get("room"), from, to)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})

	case http.MethodPost:
		var body RooftopBookingBody
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if body.RoomNumber == "" || body.Date == "" {
			writeError(w, http.StatusBadRequest, "room_number and date are required")
			return
		}
		date, err := parseDateParam(body.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
		booking, err := s.rooftop.CreateBooking(r.Context(), body.RoomNumber, date, body.Reason)
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
		if err := s.rooftop.DeleteBooking(r.Context(), bookingID); err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int64{"deleted": bookingID})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleMyRooftopBookings lists the caller's rooftop bookings.
// GET /api/rooftop/bookings/me
func (s *HTTPServer) handleMyRooftopBookings(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("rooftop_bookings_me")
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	bookings, err := s.rooftop.Bookings(r.Context(), id.Room, time.Time{}, time.Time{})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

// handleRooftopBookingsMonth lists the month's rooftop occupancy for
// every resident. Reasons stay private to their booker and admins.
// GET /api/rooftop/bookings/month/{date}
func (s *HTTPServer) handleRooftopBookingsMonth(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("rooftop_bookings_month")
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	raw := strings.TrimPrefix(r.URL.Path, "/api/rooftop/bookings/month/")
	date, err := parseDateParam(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}
	first := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, date.Location())
	last := first.AddDate(0, 1, -1)

	bookings, err := s.rooftop.Bookings(r.Context(), "", first, last)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	for i := range bookings {
		if bookings[i].RoomNumber != id.Room && !id.RooftopAdmin() {
			bookings[i].Reason = ""
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func dateRange(r *http.Request) (from, to time.Time, msg string) {
	var err error
	if raw := r.URL.Query().Get("from"); raw != "" {
		if from, err = parseDateParam(raw); err != nil {
			return from, to, "invalid from date; expected YYYY-MM-DD"
		}
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		if to, err = parseDateParam(raw); err != nil {
			return from, to, "invalid to date; expected YYYY-MM-DD"
		}
	}
	return from, to, ""
}
