package rooftop

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"waschplan/internal/database"
	"waschplan/internal/events"
	"waschplan/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testLogger = zerolog.Nop()
	testNow    = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestService(t *testing.T, bus *events.Bus) *Service {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), &testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewService(db, bus, &testLogger).WithClock(func() time.Time { return testNow })
}

func TestSubmit(t *testing.T) {
	bus := events.NewBus()
	var published []events.Event
	bus.Subscribe(events.RequestSubmitted, func(e events.Event) { published = append(published, e) })
	svc := newTestService(t, bus)

	ctx := context.Background()
	request, err := svc.Submit(ctx, "12", SubmitInput{
		Date: date(2026, 3, 7), Reason: "birthday", Contact: "12@haus", TimeSpan: "16:00-22:00",
	})
	require.NoError(t, err)
	assert.NotZero(t, request.ID)
	assert.Equal(t, models.RequestRequested, request.Status)
	assert.Len(t, published, 1)

	stored, err := svc.Request(ctx, request.ID)
	require.NoError(t, err)
	assert.Equal(t, "birthday", stored.Reason)
	assert.Equal(t, "16:00-22:00", stored.TimeSpan)
}

func TestSubmit_Rejections(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	_, err := svc.Submit(ctx, "12", SubmitInput{})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = svc.Submit(ctx, "12", SubmitInput{Date: date(2026, 3, 1)})
	assert.ErrorIs(t, err, models.ErrValidation, "past dates cannot be requested")

	// Same-day requests are allowed.
	_, err = svc.Submit(ctx, "12", SubmitInput{Date: date(2026, 3, 2)})
	assert.NoError(t, err)

	_, err = svc.Submit(ctx, "12", SubmitInput{Date: date(2026, 3, 2)})
	assert.ErrorIs(t, err, models.ErrDuplicateRequest)

	// A second pending request on another date is fine.
	_, err = svc.Submit(ctx, "12", SubmitInput{Date: date(2026, 3, 5)})
	assert.NoError(t, err)
}

func TestApprove(t *testing.T) {
	bus := events.NewBus()
	var approved []events.Event
	bus.Subscribe(events.RequestApproved, func(e events.Event) { approved = append(approved, e) })
	svc := newTestService(t, bus)

	ctx := context.Background()
	request, err := svc.Submit(ctx, "12", SubmitInput{Date: date(2026, 3, 7)})
	require.NoError(t, err)

	updated, booking, err := svc.Approve(ctx, request.ID, "101", "fine by me")
	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, updated.Status)
	assert.Equal(t, "101", updated.ReviewedBy)
	require.NotNil(t, updated.ReviewedAt)
	assert.Equal(t, "12", booking.RoomNumber)
	assert.True(t, models.SameDate(date(2026, 3, 7), booking.Date))
	assert.Len(t, approved, 1)

	occupying, err := svc.BookingForDate(ctx, date(2026, 3, 7))
	require.NoError(t, err)
	assert.Equal(t, booking.ID, occupying.ID)

	// Decided requests cannot be decided again.
	_, _, err = svc.Approve(ctx, request.ID, "101", "")
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestApprove_DateAlreadyBooked(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	first, err := svc.Submit(ctx, "12", SubmitInput{Date: date(2026, 3, 7)})
	require.NoError(t, err)
	second, err := svc.Submit(ctx, "34", SubmitInput{Date: date(2026, 3, 7)})
	require.NoError(t, err)

	_, _, err = svc.Approve(ctx, first.ID, "101", "")
	require.NoError(t, err)

	// The competing request loses and stays pending for a rejection.
	_, _, err = svc.Approve(ctx, second.ID, "101", "")
	assert.ErrorIs(t, err, models.ErrSlotUnavailable)

	pending, err := svc.Request(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RequestRequested, pending.Status)
}

func TestReject(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	request, err := svc.Submit(ctx, "12", SubmitInput{Date: date(2026, 3, 7)})
	require.NoError(t, err)

	_, err = svc.Reject(ctx, request.ID, "101", "")
	assert.ErrorIs(t, err, models.ErrMissingReason)

	updated, err := svc.Reject(ctx, request.ID, "101", "rooftop closed for repairs")
	require.NoError(t, err)
	assert.Equal(t, models.RequestRejected, updated.Status)
	assert.Equal(t, "rooftop closed for repairs", updated.DecisionReason)

	// A rejection leaves the date free for others.
	_, err = svc.Submit(ctx, "34", SubmitInput{Date: date(2026, 3, 7)})
	assert.NoError(t, err)

	// And the rejected booker may apply again for the same date.
	again, err := svc.Submit(ctx, "12", SubmitInput{Date: date(2026, 3, 7)})
	require.NoError(t, err)
	assert.Equal(t, models.RequestRequested, again.Status)
	assert.NotEqual(t, request.ID, again.ID)
}

func TestCancel(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	request, err := svc.Submit(ctx, "12", SubmitInput{Date: date(2026, 3, 7)})
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, request.ID, "34")
	assert.ErrorIs(t, err, models.ErrForbidden)

	updated, err := svc.Cancel(ctx, request.ID, "12")
	require.NoError(t, err)
	assert.Equal(t, models.RequestCancelled, updated.Status)

	_, err = svc.Cancel(ctx, request.ID, "12")
	assert.ErrorIs(t, err, models.ErrInvalidState)
}

func TestRequests_Filters(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	r1, err := svc.Submit(ctx, "12", SubmitInput{Date: date(2026, 3, 5)})
	require.NoError(t, err)
	_, err = svc.Submit(ctx, "34", SubmitInput{Date: date(2026, 3, 6)})
	require.NoError(t, err)
	_, err = svc.Reject(ctx, r1.ID, "101", "no")
	require.NoError(t, err)

	pending, err := svc.Requests(ctx, "", models.RequestRequested, time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "34", pending[0].RoomNumber)

	mine, err := svc.Requests(ctx, "12", "", time.Time{}, time.Time{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, models.RequestRejected, mine[0].Status)

	_, err = svc.Requests(ctx, "", models.RequestStatus("PENDING"), time.Time{}, time.Time{})
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestCreateBooking_Direct(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	booking, err := svc.CreateBooking(ctx, "101", date(2026, 3, 10), "maintenance")
	require.NoError(t, err)
	assert.NotZero(t, booking.ID)

	_, err = svc.CreateBooking(ctx, "12", date(2026, 3, 10), "")
	assert.ErrorIs(t, err, models.ErrSlotUnavailable)

	_, err = svc.CreateBooking(ctx, "101", date(2026, 3, 1), "")
	assert.ErrorIs(t, err, models.ErrValidation)

	// A taken date also blocks new requests.
	_, err = svc.Submit(ctx, "12", SubmitInput{Date: date(2026, 3, 10)})
	assert.ErrorIs(t, err, models.ErrSlotUnavailable)
}

func TestDeleteBooking(t *testing.T) {
	svc := newTestService(t, nil)
	ctx := context.Background()

	future, err := svc.CreateBooking(ctx, "101", date(2026, 3, 10), "")
	require.NoError(t, err)
	sameDay, err := svc.CreateBooking(ctx, "101", date(2026, 3, 2), "")
	require.NoError(t, err)

	require.NoError(t, svc.DeleteBooking(ctx, future.ID))
	_, err = svc.BookingForDate(ctx, date(2026, 3, 10))
	assert.ErrorIs(t, err, models.ErrNotFound)

	assert.ErrorIs(t, svc.DeleteBooking(ctx, sameDay.ID), models.ErrValidation,
		"the rooftop may already be in use today")

	assert.ErrorIs(t, svc.DeleteBooking(ctx, 9999), models.ErrNotFound)
}
