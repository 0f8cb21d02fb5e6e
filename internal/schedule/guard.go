package schedule

import (
	"context"
	"errors"
	"fmt"
	"time"

	"waschplan/internal/events"
	"waschplan/internal/metrics"
	"waschplan/internal/models"
	"waschplan/internal/slots"

	"github.com/rs/zerolog"
)

// Store is the persistence surface the guard validates and commits
// against.
type Store interface {
	GetMachine(ctx context.Context, name string) (*models.Machine, error)
	BookingsAround(ctx context.Context, machine string, date time.Time) ([]models.Booking, error)
	OverridesForDate(ctx context.Context, machine string, date time.Time) ([]models.Override, error)
	UsedMinutesByDate(ctx context.Context, room string, mtype models.MachineType, from, to time.Time) (map[string]int, error)
	InsertBookings(ctx context.Context, bookings []*models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	DeleteBooking(ctx context.Context, id int64) error
}

// Invalidator drops cached grid views after a committed write.
type Invalidator interface {
	InvalidateGrid(ctx context.Context, dates ...time.Time)
}

// Claim is one requested reservation.
type Claim struct {
	MachineName string    `json:"machine_name"`
	Date        time.Time `json:"date"`
	SlotStart   int       `json:"slot_start"`
}

// Guard validates and commits reservations. All writes serialize per
// machine and per owner; the store transaction re-validates overlap at
// commit time.
type Guard struct {
	store      Store
	locks      *KeyLocks
	cooldown   *Cooldown
	quotas     QuotaConfig
	maxAdvance time.Duration
	bus        *events.Bus
	cache      Invalidator
	clock      func() time.Time
	logger     *zerolog.Logger
}

// NewGuard wires a conflict guard. bus and cache may be nil.
func NewGuard(store Store, quotas QuotaConfig, maxAdvance, cooldown time.Duration, bus *events.Bus, cache Invalidator, logger *zerolog.Logger) *Guard {
	return &Guard{
		store:      store,
		locks:      NewKeyLocks(),
		cooldown:   NewCooldown(cooldown),
		quotas:     quotas,
		maxAdvance: maxAdvance,
		bus:        bus,
		cache:      cache,
		clock:      time.Now,
		logger:     logger,
	}
}

// WithClock replaces the wall clock, for tests.
func (g *Guard) WithClock(clock func() time.Time) *Guard {
	g.clock = clock
	return g
}

// Reserve validates and commits a single reservation for the room.
func (g *Guard) Reserve(ctx context.Context, room string, claim Claim) (*models.Booking, error) {
	booked, err := g.ReserveBatch(ctx, room, []Claim{claim})
	if err != nil {
		return nil, err
	}
	return booked[0], nil
}

// ReserveBatch validates every claim against the hypothetical
// post-batch state and commits all of them in one transaction, or none.
func (g *Guard) ReserveBatch(ctx context.Context, room string, claims []Claim) ([]*models.Booking, error) {
	if len(claims) == 0 {
		return nil, fmt.Errorf("%w: no claims", models.ErrValidation)
	}
	if !g.cooldown.Allow(room) {
		return nil, fmt.Errorf("%w: only one booking command every %s is allowed",
			models.ErrValidation, g.cooldown.Interval())
	}

	keys := []string{"owner/" + room}
	for _, c := range claims {
		keys = append(keys, "machine/"+c.MachineName)
	}
	release := g.locks.Acquire(keys...)
	defer release()

	now := g.clock()
	pending := make([]*models.Booking, 0, len(claims))
	for _, claim := range claims {
		booking, err := g.validateClaim(ctx, room, claim, pending, now)
		if err != nil {
			metrics.IncReservationRejected(rejectionReason(err))
			return nil, err
		}
		pending = append(pending, booking)
	}

	if err := g.store.InsertBookings(ctx, pending); err != nil {
		metrics.IncReservationRejected(rejectionReason(err))
		return nil, err
	}

	dates := make([]time.Time, 0, len(pending))
	for _, b := range pending {
		metrics.IncReservationCreated(string(b.MachineType))
		g.bus.Publish(events.Event{Type: events.ReservationCreated, Payload: b})
		dates = append(dates, b.Date, b.Date.AddDate(0, 0, 1))
	}
	if g.cache != nil {
		g.cache.InvalidateGrid(ctx, dates...)
	}
	g.logger.Info().
		Str("room", room).
		Int("count", len(pending)).
		Msg("Reservations committed")
	return pending, nil
}

func (g *Guard) validateClaim(ctx context.Context, room string, claim Claim, pending []*models.Booking, now time.Time) (*models.Booking, error) {
	machine, err := g.store.GetMachine(ctx, claim.MachineName)
	if err != nil {
		return nil, err
	}
	if machine.Type == models.MachineRooftop {
		return nil, fmt.Errorf("%w: rooftop access is granted through requests, not slots",
			models.ErrValidation)
	}
	if claim.Date.IsZero() {
		return nil, fmt.Errorf("%w: date is required", models.ErrValidation)
	}
	date := models.DateOnly(claim.Date)

	if date.After(models.DateOnly(now).Add(g.maxAdvance)) {
		return nil, fmt.Errorf("%w: cannot book more than %d days in advance",
			models.ErrValidation, int(g.maxAdvance.Hours()/24))
	}

	if claim.SlotStart < 0 || claim.SlotStart >= slots.MinutesPerDay {
		return nil, fmt.Errorf("%w: slot %d is out of range", models.ErrSlotUnavailable, claim.SlotStart)
	}

	overrides, err := g.store.OverridesForDate(ctx, machine.Name, date)
	if err != nil {
		return nil, err
	}

	if !slots.IsValidSlotStart(claim.SlotStart) && !extendedApplies(overrides, date, claim.SlotStart) {
		return nil, fmt.Errorf("%w: invalid slot start %s for machine %s",
			models.ErrSlotUnavailable, slots.FormatSlot(claim.SlotStart), machine.Name)
	}

	booking := &models.Booking{
		RoomNumber:  room,
		MachineName: machine.Name,
		MachineType: machine.Type,
		Date:        date,
		SlotStart:   claim.SlotStart,
		Duration:    machine.SlotDuration,
		CreatedAt:   now,
	}

	if booking.IsInPast(now) {
		return nil, fmt.Errorf("%w: cannot book a slot in the past: %s",
			models.ErrSlotUnavailable, slots.FormatSlotOn(claim.SlotStart, date))
	}

	if err := g.checkBlocked(ctx, booking, overrides); err != nil {
		return nil, err
	}
	if err := g.checkOverlap(ctx, booking, pending); err != nil {
		return nil, err
	}
	if err := g.checkQuota(ctx, booking, pending); err != nil {
		return nil, err
	}
	return booking, nil
}

func extendedApplies(overrides []models.Override, date time.Time, slot int) bool {
	for i := range overrides {
		if overrides[i].Status == models.OverrideExtended && overrides[i].AppliesAt(date, slot) {
			return true
		}
	}
	return false
}

// checkBlocked rejects the claim if any base slot it covers, including
// cross-midnight spillover, falls under a BLOCKED override.
func (g *Guard) checkBlocked(ctx context.Context, b *models.Booking, sameDay []models.Override) error {
	var nextDay []models.Override
	if b.CrossesMidnight() {
		var err error
		nextDay, err = g.store.OverridesForDate(ctx, b.MachineName, b.Date.AddDate(0, 0, 1))
		if err != nil {
			return err
		}
	}
	for _, slot := range slots.CoveredSlots(b.SlotStart, b.Duration) {
		overrides, date, at := sameDay, b.Date, slot
		if slot >= slots.MinutesPerDay {
			overrides, date, at = nextDay, b.Date.AddDate(0, 0, 1), slots.NextDaySlot(slot)
		}
		for i := range overrides {
			if overrides[i].Status == models.OverrideBlocked && overrides[i].AppliesAt(date, at) {
				return fmt.Errorf("%w: slot %s for machine %s is blocked",
					models.ErrSlotUnavailable, slots.FormatSlotOn(at, date), b.MachineName)
			}
		}
	}
	return nil
}

func (g *Guard) checkOverlap(ctx context.Context, b *models.Booking, pending []*models.Booking) error {
	existing, err := g.store.BookingsAround(ctx, b.MachineName, b.Date)
	if err != nil {
		return err
	}
	for i := range existing {
		if b.Overlaps(&existing[i]) {
			return fmt.Errorf("%w: slot %s for machine %s is already booked",
				models.ErrSlotUnavailable, slots.FormatSlotOn(b.SlotStart, b.Date), b.MachineName)
		}
	}
	for _, p := range pending {
		if b.Overlaps(p) {
			return fmt.Errorf("%w: slot %s for machine %s conflicts with another claim in this batch",
				models.ErrSlotUnavailable, slots.FormatSlotOn(b.SlotStart, b.Date), b.MachineName)
		}
	}
	return nil
}

// checkQuota projects the room's usage in every rolling window the new
// claim falls into, including the other claims of this batch. A claim
// dated before an existing reservation still charges the window ending
// on the later date. The read shares the guard's per-owner lock with
// the write it gates.
func (g *Guard) checkQuota(ctx context.Context, b *models.Booking, pending []*models.Booking) error {
	limit := g.quotas.MaxFor(b.MachineType)
	if limit <= 0 {
		return nil
	}
	from := b.Date.AddDate(0, 0, -(QuotaWindowDays - 1))
	to := b.Date.AddDate(0, 0, QuotaWindowDays-1)
	perDay, err := g.store.UsedMinutesByDate(ctx, b.RoomNumber, b.MachineType, from, to)
	if err != nil {
		return err
	}
	for _, p := range pending {
		if p.MachineType == b.MachineType {
			perDay[models.FormatDate(p.Date)] += p.Duration
		}
	}
	perDay[models.FormatDate(b.Date)] += b.Duration

	for end := b.Date; !end.After(to); end = end.AddDate(0, 0, 1) {
		winFrom, winTo := QuotaWindow(end)
		total := 0
		for d := winFrom; !d.After(winTo); d = d.AddDate(0, 0, 1) {
			total += perDay[models.FormatDate(d)]
		}
		if total > limit {
			return fmt.Errorf("%w: %s usage would reach %d of %d allowed minutes per %d days",
				models.ErrQuotaExceeded, b.MachineType, total, limit, QuotaWindowDays)
		}
	}
	return nil
}

// Cancel removes the room's own reservation. Ongoing and past
// reservations are immutable.
func (g *Guard) Cancel(ctx context.Context, room string, id int64) error {
	booking, err := g.store.GetBooking(ctx, id)
	if err != nil {
		return err
	}
	if booking.RoomNumber != room {
		return fmt.Errorf("%w: booking %d belongs to another room", models.ErrForbidden, id)
	}

	release := g.locks.Acquire("machine/"+booking.MachineName, "owner/"+room)
	defer release()

	now := g.clock()
	if booking.IsInPast(now) || booking.IsOngoing(now) {
		return fmt.Errorf("%w: booking %d", models.ErrAlreadyStarted, id)
	}
	if err := g.store.DeleteBooking(ctx, id); err != nil {
		return err
	}

	metrics.IncReservationCancelled()
	g.bus.Publish(events.Event{Type: events.ReservationCancelled, Payload: booking})
	if g.cache != nil {
		g.cache.InvalidateGrid(ctx, booking.Date, booking.Date.AddDate(0, 0, 1))
	}
	g.logger.Info().Str("room", room).Int64("booking_id", id).Msg("Reservation cancelled")
	return nil
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, models.ErrSlotUnavailable):
		return "slot_unavailable"
	case errors.Is(err, models.ErrQuotaExceeded):
		return "quota_exceeded"
	case errors.Is(err, models.ErrValidation):
		return "validation"
	case errors.Is(err, models.ErrNotFound):
		return "not_found"
	}
	return "other"
}
