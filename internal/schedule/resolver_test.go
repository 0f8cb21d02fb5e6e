package schedule

import (
	"testing"
	"time"

	"waschplan/internal/models"
	"waschplan/internal/slots"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = zerolog.Nop()

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func washer(name string) models.Machine {
	return models.Machine{Name: name, Type: models.MachineWasher, SlotDuration: 90}
}

func dryer(name string, duration int) models.Machine {
	return models.Machine{Name: name, Type: models.MachineDryer, SlotDuration: duration}
}

func cellAt(t *testing.T, grid *Grid, machine string, slot int) Cell {
	t.Helper()
	for _, row := range grid.Rows {
		if row.Machine.Name != machine {
			continue
		}
		for _, c := range row.Cells {
			if c.Slot == slot {
				return c
			}
		}
	}
	t.Fatalf("no cell for machine %s slot %d", machine, slot)
	return Cell{}
}

func TestResolveGrid_EmptyDayIsFree(t *testing.T) {
	day := date(2026, 3, 2)
	grid := ResolveGrid([]models.Machine{washer("W1")}, nil, nil, day, &testLogger)

	require.Len(t, grid.Rows, 1)
	require.Len(t, grid.Rows[0].Cells, slots.SlotsPerDay+1)
	for _, c := range grid.Rows[0].Cells {
		assert.Equal(t, CellFree, c.State, "slot %d", c.Slot)
		assert.Equal(t, 1, c.RowSpan)
		assert.False(t, c.Buffer)
	}
	assert.Equal(t, slots.BoundarySlot, grid.Rows[0].Cells[slots.SlotsPerDay].Slot)
}

func TestResolveGrid_BookingSpansAndCovers(t *testing.T) {
	day := date(2026, 3, 2)
	bookings := []models.Booking{{
		ID: 1, RoomNumber: "12", MachineName: "D1", MachineType: models.MachineDryer,
		Date: day, SlotStart: 540, Duration: 180,
	}}
	grid := ResolveGrid([]models.Machine{dryer("D1", 180)}, bookings, nil, day, &testLogger)

	booked := cellAt(t, grid, "D1", 540)
	assert.Equal(t, CellBooked, booked.State)
	assert.Equal(t, 2, booked.RowSpan)
	require.NotNil(t, booked.Booking)
	assert.Equal(t, int64(1), booked.Booking.ID)

	covered := cellAt(t, grid, "D1", 630)
	assert.Equal(t, CellCovered, covered.State)
	assert.Equal(t, 0, covered.RowSpan)

	assert.Equal(t, CellFree, cellAt(t, grid, "D1", 720).State)
}

func TestResolveGrid_CrossMidnightBuffers(t *testing.T) {
	day := date(2026, 3, 2)
	next := day.AddDate(0, 0, 1)
	bookings := []models.Booking{{
		ID: 7, RoomNumber: "12", MachineName: "D1", MachineType: models.MachineDryer,
		Date: day, SlotStart: 1350, Duration: 180,
	}}
	machines := []models.Machine{dryer("D1", 180)}

	grid := ResolveGrid(machines, bookings, nil, day, &testLogger)
	start := cellAt(t, grid, "D1", 1350)
	assert.Equal(t, CellBooked, start.State)
	assert.Equal(t, 1, start.RowSpan, "span is cut at the day boundary")
	assert.False(t, start.Buffer)

	boundary := cellAt(t, grid, "D1", slots.BoundarySlot)
	assert.Equal(t, CellBooked, boundary.State)
	assert.True(t, boundary.Buffer)
	require.NotNil(t, boundary.Booking)
	assert.Equal(t, int64(7), boundary.Booking.ID)

	nextGrid := ResolveGrid(machines, bookings, nil, next, &testLogger)
	spill := cellAt(t, nextGrid, "D1", 0)
	assert.Equal(t, CellBooked, spill.State)
	assert.True(t, spill.Buffer)
	assert.Equal(t, 1, spill.RowSpan)

	// The buffer marks the spill only; the following slot stays open.
	assert.Equal(t, CellFree, cellAt(t, nextGrid, "D1", 90).State)
	assert.Equal(t, CellFree, cellAt(t, nextGrid, "D1", slots.BoundarySlot).State)
}

func TestResolveGrid_Overrides(t *testing.T) {
	day := date(2026, 3, 2)
	from, to := 540, 630
	overrides := []models.Override{
		{ID: 1, MachineName: "W1", Status: models.OverrideBlocked, StartDate: day, EndDate: day, StartSlot: &from, EndSlot: &to},
		{ID: 2, MachineName: "W1", Status: models.OverrideExtended, StartDate: day.AddDate(0, 0, 1), EndDate: day.AddDate(0, 0, 1)},
	}
	machines := []models.Machine{washer("W1")}

	grid := ResolveGrid(machines, nil, overrides, day, &testLogger)
	blocked := cellAt(t, grid, "W1", 540)
	assert.Equal(t, CellBlocked, blocked.State)
	require.NotNil(t, blocked.Override)
	assert.Equal(t, int64(1), blocked.Override.ID)
	assert.Equal(t, CellBlocked, cellAt(t, grid, "W1", 630).State)
	assert.Equal(t, CellFree, cellAt(t, grid, "W1", 720).State, "rule inactive on this date stays out")

	nextGrid := ResolveGrid(machines, nil, overrides, day.AddDate(0, 0, 1), &testLogger)
	assert.Equal(t, CellExtended, cellAt(t, nextGrid, "W1", 540).State)
	assert.Equal(t, CellFree, cellAt(t, nextGrid, "W1", slots.BoundarySlot).State,
		"overrides never reach the boundary cell")
}

func TestResolveGrid_BlockedWinsOverExtended(t *testing.T) {
	day := date(2026, 3, 2)
	overrides := []models.Override{
		{ID: 1, MachineName: "W1", Status: models.OverrideExtended, StartDate: day, EndDate: day},
		{ID: 2, MachineName: "W1", Status: models.OverrideBlocked, StartDate: day, EndDate: day},
	}
	grid := ResolveGrid([]models.Machine{washer("W1")}, nil, overrides, day, &testLogger)

	c := cellAt(t, grid, "W1", 540)
	assert.Equal(t, CellBlocked, c.State)
	require.NotNil(t, c.Override)
	assert.Equal(t, int64(2), c.Override.ID)
}

func TestResolveGrid_BookingOutranksOverride(t *testing.T) {
	day := date(2026, 3, 2)
	bookings := []models.Booking{{
		ID: 3, RoomNumber: "12", MachineName: "W1", MachineType: models.MachineWasher,
		Date: day, SlotStart: 540, Duration: 90,
	}}
	overrides := []models.Override{
		{ID: 1, MachineName: "W1", Status: models.OverrideBlocked, StartDate: day, EndDate: day},
	}
	grid := ResolveGrid([]models.Machine{washer("W1")}, bookings, overrides, day, &testLogger)

	assert.Equal(t, CellBooked, cellAt(t, grid, "W1", 540).State)
	assert.Equal(t, CellBlocked, cellAt(t, grid, "W1", 630).State)
}

func TestStateAt(t *testing.T) {
	day := date(2026, 3, 2)
	machine := washer("W1")
	bookings := []models.Booking{{
		ID: 1, RoomNumber: "12", MachineName: "W1", MachineType: models.MachineWasher,
		Date: day, SlotStart: 540, Duration: 90,
	}}
	overrides := []models.Override{
		{ID: 1, MachineName: "W1", Status: models.OverrideBlocked, StartDate: day, EndDate: day, StartSlot: intPtr(720), EndSlot: intPtr(720)},
		{ID: 2, MachineName: "W2", Status: models.OverrideBlocked, StartDate: day, EndDate: day},
	}

	assert.Equal(t, CellBooked, StateAt(machine, bookings, overrides, day, 540))
	assert.Equal(t, CellBlocked, StateAt(machine, bookings, overrides, day, 720))
	assert.Equal(t, CellFree, StateAt(machine, bookings, overrides, day, 900),
		"another machine's rule does not apply")
}

func intPtr(v int) *int { return &v }
