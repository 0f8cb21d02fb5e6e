package rooftop

import (
	"context"
	"fmt"
	"time"

	"waschplan/internal/events"
	"waschplan/internal/metrics"
	"waschplan/internal/models"

	"github.com/rs/zerolog"
)

// Store is the persistence surface of the rooftop workflow.
type Store interface {
	CreateRequest(ctx context.Context, r *models.RooftopRequest) error
	GetRequest(ctx context.Context, id int64) (*models.RooftopRequest, error)
	SearchRequests(ctx context.Context, room string, status models.RequestStatus, from, to time.Time) ([]models.RooftopRequest, error)
	UpdateRequestDecision(ctx context.Context, id int64, to models.RequestStatus, reviewedBy, decisionReason string, reviewedAt time.Time) error
	ApproveRequest(ctx context.Context, request *models.RooftopRequest, reviewedBy, decisionReason string, reviewedAt time.Time) (*models.RooftopBooking, error)
	RooftopBookingByDate(ctx context.Context, date time.Time) (*models.RooftopBooking, error)
	GetRooftopBooking(ctx context.Context, id int64) (*models.RooftopBooking, error)
	SearchRooftopBookings(ctx context.Context, room string, from, to time.Time) ([]models.RooftopBooking, error)
	CreateRooftopBooking(ctx context.Context, b *models.RooftopBooking) error
	DeleteRooftopBooking(ctx context.Context, id int64) error
}

// Service runs the rooftop request lifecycle. Decisions serialize on a
// single mutex key since the rooftop is one resource; the store
// transaction re-validates the date at commit time anyway.
type Service struct {
	store    Store
	workflow *Workflow
	bus      *events.Bus
	clock    func() time.Time
	logger   *zerolog.Logger
}

// NewService wires the workflow service. bus may be nil.
func NewService(store Store, bus *events.Bus, logger *zerolog.Logger) *Service {
	return &Service{
		store:    store,
		workflow: NewWorkflow(),
		bus:      bus,
		clock:    time.Now,
		logger:   logger,
	}
}

// WithClock replaces the wall clock, for tests.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// SubmitInput carries a resident's rooftop application.
type SubmitInput struct {
	Date     time.Time `json:"date"`
	Reason   string    `json:"reason"`
	Contact  string    `json:"contact"`
	TimeSpan string    `json:"time_span"`
}

// Submit files a new request for the room. The date must not lie in
// the past; the store rejects duplicate pending requests and dates
// that already carry a booking.
func (s *Service) Submit(ctx context.Context, room string, in SubmitInput) (*models.RooftopRequest, error) {
	if in.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", models.ErrValidation)
	}
	today := models.DateOnly(s.clock())
	if models.DateOnly(in.Date).Before(today) {
		return nil, fmt.Errorf("%w: cannot request a past date", models.ErrValidation)
	}

	request := &models.RooftopRequest{
		RoomNumber: room,
		Date:       models.DateOnly(in.Date),
		Reason:     in.Reason,
		Contact:    in.Contact,
		TimeSpan:   in.TimeSpan,
		CreatedAt:  s.clock(),
	}
	if err := s.store.CreateRequest(ctx, request); err != nil {
		return nil, err
	}

	s.bus.Publish(events.Event{Type: events.RequestSubmitted, Payload: request})
	s.logger.Info().
		Str("room", room).
		Str("date", models.FormatDate(request.Date)).
		Int64("request_id", request.ID).
		Msg("Rooftop request submitted")
	return request, nil
}

// Approve marks a pending request approved and commits the rooftop
// booking for its date in the same transaction.
func (s *Service) Approve(ctx context.Context, id int64, reviewedBy, note string) (*models.RooftopRequest, *models.RooftopBooking, error) {
	request, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !s.workflow.CanTransition(request.Status, models.RequestApproved) {
		return nil, nil, fmt.Errorf("%w: request %d is %s", models.ErrInvalidState, id, request.Status)
	}

	now := s.clock()
	booking, err := s.store.ApproveRequest(ctx, request, reviewedBy, note, now)
	if err != nil {
		return nil, nil, err
	}
	request.Status = models.RequestApproved
	request.ReviewedBy = reviewedBy
	request.ReviewedAt = &now
	request.DecisionReason = note

	metrics.IncRooftopDecision("approved")
	s.bus.Publish(events.Event{Type: events.RequestApproved, Payload: request})
	s.logger.Info().
		Int64("request_id", id).
		Str("reviewed_by", reviewedBy).
		Int64("booking_id", booking.ID).
		Msg("Rooftop request approved")
	return request, booking, nil
}

// Reject marks a pending request rejected. The reason is mandatory so
// the resident always learns why.
func (s *Service) Reject(ctx context.Context, id int64, reviewedBy, reason string) (*models.RooftopRequest, error) {
	if reason == "" {
		return nil, fmt.Errorf("%w: a rejection requires a reason", models.ErrMissingReason)
	}
	request, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.workflow.CanTransition(request.Status, models.RequestRejected) {
		return nil, fmt.Errorf("%w: request %d is %s", models.ErrInvalidState, id, request.Status)
	}

	now := s.clock()
	if err := s.store.UpdateRequestDecision(ctx, id, models.RequestRejected, reviewedBy, reason, now); err != nil {
		return nil, err
	}
	request.Status = models.RequestRejected
	request.ReviewedBy = reviewedBy
	request.ReviewedAt = &now
	request.DecisionReason = reason

	metrics.IncRooftopDecision("rejected")
	s.bus.Publish(events.Event{Type: events.RequestRejected, Payload: request})
	s.logger.Info().
		Int64("request_id", id).
		Str("reviewed_by", reviewedBy).
		Msg("Rooftop request rejected")
	return request, nil
}

// Cancel withdraws a pending request. Only the booker may cancel, and
// only while the requested date has not passed.
func (s *Service) Cancel(ctx context.Context, id int64, room string) (*models.RooftopRequest, error) {
	request, err := s.store.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.RoomNumber != room {
		return nil, fmt.Errorf("%w: request %d belongs to another room", models.ErrForbidden, id)
	}
	if !s.workflow.CanTransition(request.Status, models.RequestCancelled) {
		return nil, fmt.Errorf("%w: request %d is %s", models.ErrInvalidState, id, request.Status)
	}
	if models.DateOnly(request.Date).Before(models.DateOnly(s.clock())) {
		return nil, fmt.Errorf("%w: the requested date has passed", models.ErrValidation)
	}

	now := s.clock()
	if err := s.store.UpdateRequestDecision(ctx, id, models.RequestCancelled, room, "", now); err != nil {
		return nil, err
	}
	request.Status = models.RequestCancelled
	request.ReviewedBy = room
	request.ReviewedAt = &now

	metrics.IncRooftopDecision("cancelled")
	s.bus.Publish(events.Event{Type: events.RequestCancelled, Payload: request})
	s.logger.Info().Int64("request_id", id).Str("room", room).Msg("Rooftop request cancelled")
	return request, nil
}

// Request returns one request by id.
func (s *Service) Request(ctx context.Context, id int64) (*models.RooftopRequest, error) {
	return s.store.GetRequest(ctx, id)
}

// Requests lists requests filtered by room, status and date range.
// Empty/zero filters are ignored.
func (s *Service) Requests(ctx context.Context, room string, status models.RequestStatus, from, to time.Time) ([]models.RooftopRequest, error) {
	if status != "" && !statusValid(status) {
		return nil, fmt.Errorf("%w: unknown status %q", models.ErrValidation, status)
	}
	return s.store.SearchRequests(ctx, room, status, from, to)
}

func statusValid(s models.RequestStatus) bool {
	switch s {
	case models.RequestRequested, models.RequestApproved, models.RequestRejected, models.RequestCancelled:
		return true
	}
	return false
}

// BookingForDate returns the booking occupying the date, if any.
func (s *Service) BookingForDate(ctx context.Context, date time.Time) (*models.RooftopBooking, error) {
	return s.store.RooftopBookingByDate(ctx, date)
}

// Bookings lists rooftop bookings filtered by room and date range.
func (s *Service) Bookings(ctx context.Context, room string, from, to time.Time) ([]models.RooftopBooking, error) {
	return s.store.SearchRooftopBookings(ctx, room, from, to)
}

// CreateBooking commits a rooftop booking directly, without a request.
// Administrators use it for maintenance days and external events.
func (s *Service) CreateBooking(ctx context.Context, room string, date time.Time, reason string) (*models.RooftopBooking, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", models.ErrValidation)
	}
	if models.DateOnly(date).Before(models.DateOnly(s.clock())) {
		return nil, fmt.Errorf("%w: cannot book a past date", models.ErrValidation)
	}

	booking := &models.RooftopBooking{
		RoomNumber: room,
		Date:       models.DateOnly(date),
		Reason:     reason,
		CreatedAt:  s.clock(),
	}
	if err := s.store.CreateRooftopBooking(ctx, booking); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("room", room).
		Str("date", models.FormatDate(booking.Date)).
		Msg("Rooftop booking created directly")
	return booking, nil
}

// DeleteBooking removes a rooftop booking. Past and same-day bookings
// stay on record; the rooftop may already be in use.
func (s *Service) DeleteBooking(ctx context.Context, id int64) error {
	booking, err := s.store.GetRooftopBooking(ctx, id)
	if err != nil {
		return err
	}
	today := models.DateOnly(s.clock())
	if !models.DateOnly(booking.Date).After(today) {
		return fmt.Errorf("%w: booking on %s can no longer be removed",
			models.ErrValidation, models.FormatDate(booking.Date))
	}
	if err := s.store.DeleteRooftopBooking(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Int64("booking_id", id).Msg("Rooftop booking deleted")
	return nil
}
