package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"waschplan/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = zerolog.Nop()

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := NewDB(filepath.Join(t.TempDir(), "test.db"), &testLogger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func booking(room, machine string, mtype models.MachineType, day time.Time, slot, duration int) *models.Booking {
	return &models.Booking{
		RoomNumber: room, MachineName: machine, MachineType: mtype,
		Date: day, SlotStart: slot, Duration: duration,
	}
}

func TestInsertBookings_CrossMidnightOverlap(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	long := booking("12", "D1", models.MachineDryer, date(2026, 3, 3), 1350, 180)
	require.NoError(t, db.InsertBookings(ctx, []*models.Booking{long}))
	assert.NotZero(t, long.ID)

	// The spill into 00:00-00:30 of the next day collides.
	err := db.InsertBookings(ctx, []*models.Booking{
		booking("34", "D1", models.MachineDryer, date(2026, 3, 4), 0, 180),
	})
	assert.ErrorIs(t, err, models.ErrSlotUnavailable)

	// Another machine is untouched.
	require.NoError(t, db.InsertBookings(ctx, []*models.Booking{
		booking("34", "D2", models.MachineDryer, date(2026, 3, 4), 0, 180),
	}))
}

func TestInsertBookings_BatchIsAtomic(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.InsertBookings(ctx, []*models.Booking{
		booking("12", "W1", models.MachineWasher, date(2026, 3, 3), 540, 90),
		booking("12", "W1", models.MachineWasher, date(2026, 3, 3), 540, 90),
	})
	assert.ErrorIs(t, err, models.ErrSlotUnavailable)

	rows, err := db.BookingsBetween(ctx, date(2026, 3, 3), date(2026, 3, 3))
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDeleteBooking(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	b := booking("12", "W1", models.MachineWasher, date(2026, 3, 3), 540, 90)
	require.NoError(t, db.InsertBookings(ctx, []*models.Booking{b}))
	require.NoError(t, db.DeleteBooking(ctx, b.ID))
	assert.ErrorIs(t, db.DeleteBooking(ctx, b.ID), models.ErrNotFound)
}

func TestMachineLifecycle(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	today := date(2026, 3, 2)

	require.NoError(t, db.CreateMachine(ctx, &models.Machine{
		Name: "W1", Type: models.MachineWasher, SlotDuration: 90,
	}))
	err := db.CreateMachine(ctx, &models.Machine{Name: "W1", Type: models.MachineWasher, SlotDuration: 90})
	assert.ErrorIs(t, err, models.ErrValidation)

	require.NoError(t, db.InsertBookings(ctx, []*models.Booking{
		booking("12", "W1", models.MachineWasher, date(2026, 3, 4), 540, 90),
	}))
	assert.ErrorIs(t, db.DeleteMachine(ctx, "W1", today), models.ErrValidation,
		"upcoming reservations pin the machine")

	// With only history left the machine can go; the rows stay.
	require.NoError(t, db.InsertBookings(ctx, []*models.Booking{
		booking("12", "W1", models.MachineWasher, date(2026, 2, 20), 540, 90),
	}))
	bookings, err := db.BookingsBetween(ctx, date(2026, 3, 4), date(2026, 3, 4))
	require.NoError(t, err)
	require.NoError(t, db.DeleteBooking(ctx, bookings[0].ID))

	require.NoError(t, db.DeleteMachine(ctx, "W1", today))
	_, err = db.GetMachine(ctx, "W1")
	assert.ErrorIs(t, err, models.ErrNotFound)

	history, err := db.BookingsBetween(ctx, date(2026, 2, 20), date(2026, 2, 20))
	require.NoError(t, err)
	assert.Len(t, history, 1, "past usage survives machine removal")
}

func TestOverrideCRUD(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	start := 540
	o := &models.Override{
		MachineName: "W1", Status: models.OverrideBlocked,
		StartDate: date(2026, 3, 3), EndDate: date(2026, 3, 5),
		StartSlot: &start, CreatedBy: "101",
	}
	require.NoError(t, db.CreateOverride(ctx, o))
	require.NotZero(t, o.ID)

	loaded, err := db.GetOverride(ctx, o.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.StartSlot)
	assert.Equal(t, 540, *loaded.StartSlot)
	assert.Nil(t, loaded.EndSlot)

	loaded.Status = models.OverrideExtended
	loaded.StartSlot = nil
	require.NoError(t, db.UpdateOverride(ctx, loaded))
	reloaded, err := db.GetOverride(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OverrideExtended, reloaded.Status)
	assert.Nil(t, reloaded.StartSlot)

	require.NoError(t, db.DeleteOverride(ctx, o.ID))
	_, err = db.GetOverride(ctx, o.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestSearchOverrides_WindowOverlap(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.CreateOverride(ctx, &models.Override{
		MachineName: "W1", Status: models.OverrideBlocked,
		StartDate: date(2026, 3, 3), EndDate: date(2026, 3, 5), CreatedBy: "101",
	}))
	require.NoError(t, db.CreateOverride(ctx, &models.Override{
		MachineName: "W2", Status: models.OverrideBlocked,
		StartDate: date(2026, 3, 10), EndDate: date(2026, 3, 10), CreatedBy: "101",
	}))

	hits, err := db.SearchOverrides(ctx, "", date(2026, 3, 4), date(2026, 3, 6))
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "W1", hits[0].MachineName)

	hits, err = db.SearchOverrides(ctx, "W2", time.Time{}, time.Time{})
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	active, err := db.OverridesForDate(ctx, "W1", date(2026, 3, 5))
	require.NoError(t, err)
	assert.Len(t, active, 1)
	active, err = db.OverridesForDate(ctx, "W1", date(2026, 3, 6))
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestUsedMinutes(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.InsertBookings(ctx, []*models.Booking{
		booking("12", "W1", models.MachineWasher, date(2026, 3, 3), 540, 90),
		booking("12", "W1", models.MachineWasher, date(2026, 3, 4), 540, 90),
		booking("12", "D1", models.MachineDryer, date(2026, 3, 3), 540, 180),
		booking("34", "W1", models.MachineWasher, date(2026, 3, 3), 630, 90),
		booking("12", "W1", models.MachineWasher, date(2026, 3, 20), 540, 90),
	}))

	used, err := db.UsedMinutes(ctx, "12", models.MachineWasher, date(2026, 3, 1), date(2026, 3, 7))
	require.NoError(t, err)
	assert.Equal(t, 180, used)

	used, err = db.UsedMinutes(ctx, "12", models.MachineDryer, date(2026, 3, 1), date(2026, 3, 7))
	require.NoError(t, err)
	assert.Equal(t, 180, used)

	used, err = db.UsedMinutes(ctx, "56", models.MachineWasher, date(2026, 3, 1), date(2026, 3, 7))
	require.NoError(t, err)
	assert.Zero(t, used, "no rows sums to zero")
}

func TestUsedMinutesByDate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.InsertBookings(ctx, []*models.Booking{
		booking("12", "W1", models.MachineWasher, date(2026, 3, 3), 540, 90),
		booking("12", "W2", models.MachineWasher, date(2026, 3, 3), 630, 90),
		booking("12", "W1", models.MachineWasher, date(2026, 3, 5), 540, 90),
		booking("12", "D1", models.MachineDryer, date(2026, 3, 3), 540, 180),
		booking("34", "W1", models.MachineWasher, date(2026, 3, 4), 540, 90),
		booking("12", "W1", models.MachineWasher, date(2026, 3, 20), 540, 90),
	}))

	perDay, err := db.UsedMinutesByDate(ctx, "12", models.MachineWasher, date(2026, 3, 1), date(2026, 3, 7))
	require.NoError(t, err)
	assert.Equal(t, map[string]int{
		"2026-03-03": 180,
		"2026-03-05": 90,
	}, perDay)

	perDay, err = db.UsedMinutesByDate(ctx, "56", models.MachineWasher, date(2026, 3, 1), date(2026, 3, 7))
	require.NoError(t, err)
	assert.Empty(t, perDay)
}

func TestBookingsByRoomPaged(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	var all []*models.Booking
	for i := 0; i < 5; i++ {
		all = append(all, booking("12", "W1", models.MachineWasher, date(2026, 3, 3+i), 540, 90))
	}
	require.NoError(t, db.InsertBookings(ctx, all))

	page, err := db.BookingsByRoomPaged(ctx, "12", 0, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.True(t, models.SameDate(date(2026, 3, 7), page[0].Date), "newest first")

	page, err = db.BookingsByRoomPaged(ctx, "12", 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.True(t, models.SameDate(date(2026, 3, 3), page[0].Date))
}
