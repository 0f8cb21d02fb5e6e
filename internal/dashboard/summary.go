// Package dashboard aggregates a resident's scheduling state into one
// read-only summary: their next runs, remaining quota and rooftop
// standing, plus an administrative block for admin roles.
package dashboard

import (
	"context"
	"time"

	"waschplan/internal/models"
	"waschplan/internal/schedule"

	"github.com/rs/zerolog"
)

// Store is the read surface the summary aggregates over.
type Store interface {
	FutureBookingsByRoom(ctx context.Context, room string, from time.Time) ([]models.Booking, error)
	BookingsBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error)
	UsedMinutes(ctx context.Context, room string, mtype models.MachineType, from, to time.Time) (int, error)
	SearchRequests(ctx context.Context, room string, status models.RequestStatus, from, to time.Time) ([]models.RooftopRequest, error)
	SearchRooftopBookings(ctx context.Context, room string, from, to time.Time) ([]models.RooftopBooking, error)
}

// QuotaUsage is the consumed share of one machine-type allowance.
type QuotaUsage struct {
	UsedMinutes int `json:"used_minutes"`
	MaxMinutes  int `json:"max_minutes"`
}

// AdminBlock is the extra aggregate shown to admin roles.
type AdminBlock struct {
	PendingRequests int                     `json:"pending_requests"`
	TodayBookings   int                     `json:"today_bookings"`
	UpcomingRooftop []models.RooftopBooking `json:"upcoming_rooftop"`
}

// Summary is the per-room dashboard aggregate.
type Summary struct {
	RoomNumber      string                 `json:"room_number"`
	NextBooking     *models.Booking        `json:"next_booking,omitempty"`
	UpcomingCount   int                    `json:"upcoming_count"`
	Washer          QuotaUsage             `json:"washer"`
	Dryer           QuotaUsage             `json:"dryer"`
	NextRooftop     *models.RooftopBooking `json:"next_rooftop,omitempty"`
	PendingRequests int                    `json:"pending_requests"`
	Admin           *AdminBlock            `json:"admin,omitempty"`
}

// Service builds dashboard summaries.
type Service struct {
	store  Store
	quotas schedule.QuotaConfig
	clock  func() time.Time
	logger *zerolog.Logger
}

// NewService wires the dashboard reader.
func NewService(store Store, quotas schedule.QuotaConfig, logger *zerolog.Logger) *Service {
	return &Service{store: store, quotas: quotas, clock: time.Now, logger: logger}
}

// WithClock replaces the wall clock, for tests.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.clock = clock
	return s
}

// Summarize aggregates the room's current scheduling state. The admin
// block is only assembled when the caller holds an admin role.
func (s *Service) Summarize(ctx context.Context, room string, admin bool) (*Summary, error) {
	now := s.clock()
	today := models.DateOnly(now)
	summary := &Summary{RoomNumber: room}

	future, err := s.store.FutureBookingsByRoom(ctx, room, today)
	if err != nil {
		return nil, err
	}
	horizon := today.AddDate(0, 0, 7)
	for i := range future {
		b := &future[i]
		if b.IsInPast(now) {
			continue
		}
		if summary.NextBooking == nil {
			summary.NextBooking = b
		}
		if !b.Date.After(horizon) {
			summary.UpcomingCount++
		}
	}

	from, to := schedule.QuotaWindow(today)
	if summary.Washer, err = s.usage(ctx, room, models.MachineWasher, from, to); err != nil {
		return nil, err
	}
	if summary.Dryer, err = s.usage(ctx, room, models.MachineDryer, from, to); err != nil {
		return nil, err
	}

	rooftop, err := s.store.SearchRooftopBookings(ctx, room, today, time.Time{})
	if err != nil {
		return nil, err
	}
	if len(rooftop) > 0 {
		summary.NextRooftop = &rooftop[0]
	}

	pending, err := s.store.SearchRequests(ctx, room, models.RequestRequested, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	summary.PendingRequests = len(pending)

	if admin {
		if summary.Admin, err = s.adminBlock(ctx, today); err != nil {
			return nil, err
		}
	}
	return summary, nil
}

func (s *Service) usage(ctx context.Context, room string, mtype models.MachineType, from, to time.Time) (QuotaUsage, error) {
	used, err := s.store.UsedMinutes(ctx, room, mtype, from, to)
	if err != nil {
		return QuotaUsage{}, err
	}
	return QuotaUsage{UsedMinutes: used, MaxMinutes: s.quotas.MaxFor(mtype)}, nil
}

func (s *Service) adminBlock(ctx context.Context, today time.Time) (*AdminBlock, error) {
	pending, err := s.store.SearchRequests(ctx, "", models.RequestRequested, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	todays, err := s.store.BookingsBetween(ctx, today, today)
	if err != nil {
		return nil, err
	}
	upcoming, err := s.store.SearchRooftopBookings(ctx, "", today, today.AddDate(0, 1, 0))
	if err != nil {
		return nil, err
	}
	return &AdminBlock{
		PendingRequests: len(pending),
		TodayBookings:   len(todays),
		UpcomingRooftop: upcoming,
	}, nil
}
