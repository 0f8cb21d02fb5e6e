package dashboard

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"waschplan/internal/database"
	"waschplan/internal/models"
	"waschplan/internal/schedule"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testLogger = zerolog.Nop()
	testNow    = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	testQuotas = schedule.QuotaConfig{WasherMaxMinutes: 540, DryerMaxMinutes: 1080}
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func newTestSetup(t *testing.T) (*database.DB, *Service) {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "test.db"), &testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	svc := NewService(db, testQuotas, &testLogger).WithClock(func() time.Time { return testNow })
	return db, svc
}

func booking(room, machine string, mtype models.MachineType, day time.Time, slot int) *models.Booking {
	return &models.Booking{
		RoomNumber: room, MachineName: machine, MachineType: mtype,
		Date: day, SlotStart: slot, Duration: 90,
	}
}

func TestSummarize_Empty(t *testing.T) {
	_, svc := newTestSetup(t)

	summary, err := svc.Summarize(context.Background(), "12", false)
	require.NoError(t, err)
	assert.Nil(t, summary.NextBooking)
	assert.Zero(t, summary.UpcomingCount)
	assert.Equal(t, QuotaUsage{UsedMinutes: 0, MaxMinutes: 540}, summary.Washer)
	assert.Equal(t, QuotaUsage{UsedMinutes: 0, MaxMinutes: 1080}, summary.Dryer)
	assert.Nil(t, summary.NextRooftop)
	assert.Nil(t, summary.Admin)
}

func TestSummarize_BookingsAndQuota(t *testing.T) {
	db, svc := newTestSetup(t)
	ctx := context.Background()

	require.NoError(t, db.InsertBookings(ctx, []*models.Booking{
		// Already finished this morning; counts toward quota, not upcoming.
		booking("12", "W1", models.MachineWasher, date(2026, 3, 2), 360),
		booking("12", "W1", models.MachineWasher, date(2026, 3, 4), 540),
		booking("12", "D1", models.MachineDryer, date(2026, 3, 5), 720),
		// Beyond the 7-day upcoming window.
		booking("12", "W2", models.MachineWasher, date(2026, 3, 11), 540),
		booking("34", "W1", models.MachineWasher, date(2026, 3, 4), 720),
	}))

	summary, err := svc.Summarize(ctx, "12", false)
	require.NoError(t, err)

	require.NotNil(t, summary.NextBooking)
	assert.Equal(t, "W1", summary.NextBooking.MachineName)
	assert.True(t, models.SameDate(date(2026, 3, 4), summary.NextBooking.Date))
	assert.Equal(t, 2, summary.UpcomingCount)

	// The quota window ends today, so only today's run is charged yet.
	assert.Equal(t, 90, summary.Washer.UsedMinutes)
	assert.Equal(t, 0, summary.Dryer.UsedMinutes)
}

func TestSummarize_Rooftop(t *testing.T) {
	db, svc := newTestSetup(t)
	ctx := context.Background()

	require.NoError(t, db.CreateRooftopBooking(ctx, &models.RooftopBooking{
		RoomNumber: "12", Date: date(2026, 3, 8),
	}))
	require.NoError(t, db.CreateRequest(ctx, &models.RooftopRequest{
		RoomNumber: "12", Date: date(2026, 3, 14),
	}))

	summary, err := svc.Summarize(ctx, "12", false)
	require.NoError(t, err)
	require.NotNil(t, summary.NextRooftop)
	assert.True(t, models.SameDate(date(2026, 3, 8), summary.NextRooftop.Date))
	assert.Equal(t, 1, summary.PendingRequests)
}

func TestSummarize_AdminBlock(t *testing.T) {
	db, svc := newTestSetup(t)
	ctx := context.Background()

	require.NoError(t, db.InsertBookings(ctx, []*models.Booking{
		booking("34", "W1", models.MachineWasher, date(2026, 3, 2), 540),
	}))
	require.NoError(t, db.CreateRequest(ctx, &models.RooftopRequest{
		RoomNumber: "34", Date: date(2026, 3, 14),
	}))
	require.NoError(t, db.CreateRooftopBooking(ctx, &models.RooftopBooking{
		RoomNumber: "56", Date: date(2026, 3, 20),
	}))

	summary, err := svc.Summarize(ctx, "12", true)
	require.NoError(t, err)
	require.NotNil(t, summary.Admin)
	assert.Equal(t, 1, summary.Admin.PendingRequests)
	assert.Equal(t, 1, summary.Admin.TodayBookings)
	require.Len(t, summary.Admin.UpcomingRooftop, 1)
	assert.Equal(t, "56", summary.Admin.UpcomingRooftop[0].RoomNumber)
}
