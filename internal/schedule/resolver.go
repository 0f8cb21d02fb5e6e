// Package schedule holds the availability resolver and the conflict
// guard: the pure grid derivation on one side and the validating,
// serializing commit path on the other.
package schedule

import (
	"time"

	"waschplan/internal/models"
	"waschplan/internal/slots"

	"github.com/rs/zerolog"
)

// CellState is the resolved availability of one grid cell.
type CellState string

const (
	CellFree     CellState = "FREE"
	CellBooked   CellState = "BOOKED"
	CellCovered  CellState = "COVERED"
	CellBlocked  CellState = "BLOCKED"
	CellExtended CellState = "EXTENDED"
)

// Cell is one resolved grid cell: a (machine, slot) position on the
// grid's date. Buffer cells carry a reservation that belongs to an
// adjacent date and are never independently selectable.
type Cell struct {
	Slot     int              `json:"slot"`
	State    CellState        `json:"state"`
	RowSpan  int              `json:"row_span"`
	Buffer   bool             `json:"buffer,omitempty"`
	Booking  *models.Booking  `json:"booking,omitempty"`
	Override *models.Override `json:"override,omitempty"`
}

// MachineRow is the resolved column of cells for one machine.
type MachineRow struct {
	Machine models.Machine `json:"machine"`
	Cells   []Cell         `json:"cells"`
}

// Grid is the fully resolved availability view for one date. Each
// machine row has one cell per base slot plus the virtual boundary
// cell at 1440, in slot order.
type Grid struct {
	Date time.Time    `json:"date"`
	Rows []MachineRow `json:"rows"`
}

// ResolveGrid derives the availability grid for date. It is a pure
// function of its inputs: bookings must include the date's neighbors so
// cross-midnight reservations surface as buffer cells; overrides must
// include every rule active on the date. Resolution order per cell:
// booked (or covered) first, then blocked, then extended, else free.
// An override never displaces an existing booking.
func ResolveGrid(machines []models.Machine, bookings []models.Booking, overrides []models.Override, date time.Time, logger *zerolog.Logger) *Grid {
	date = models.DateOnly(date)
	grid := &Grid{Date: date, Rows: make([]MachineRow, 0, len(machines))}

	overridesByMachine := make(map[string][]models.Override)
	for i := range overrides {
		o := overrides[i]
		if o.CoversDate(date) {
			overridesByMachine[o.MachineName] = append(overridesByMachine[o.MachineName], o)
		}
	}

	for i := range machines {
		machine := machines[i]
		row := MachineRow{
			Machine: machine,
			Cells:   resolveRow(machine, bookings, overridesByMachine[machine.Name], date, logger),
		}
		grid.Rows = append(grid.Rows, row)
	}
	return grid
}

// rowBooking is a booking placed onto the grid's slot scale.
type rowBooking struct {
	booking *models.Booking
	buffer  bool
}

func resolveRow(machine models.Machine, bookings []models.Booking, overrides []models.Override, date time.Time, logger *zerolog.Logger) []Cell {
	placed := placeBookings(machine, bookings, date)

	daySlots := slots.SlotsOfDay()
	cells := make([]Cell, 0, len(daySlots)+1)
	for _, slot := range append(daySlots, slots.BoundarySlot) {
		cells = append(cells, resolveCell(machine, placed, overrides, date, slot, logger))
	}
	return cells
}

// placeBookings maps the relevant bookings onto the date's slot scale:
// same-date bookings at their start slot, the previous date's
// cross-midnight spill at slot 0, and the date's own cross-midnight
// span additionally at the boundary slot.
func placeBookings(machine models.Machine, bookings []models.Booking, date time.Time) map[int]rowBooking {
	placed := make(map[int]rowBooking)
	for i := range bookings {
		b := bookings[i]
		if b.MachineName != machine.Name {
			continue
		}
		switch {
		case models.SameDate(b.Date, date):
			placed[b.SlotStart] = rowBooking{booking: &bookings[i]}
			if b.CrossesMidnight() {
				placed[slots.BoundarySlot] = rowBooking{booking: &bookings[i], buffer: true}
			}
		case models.SameDate(b.Date, date.AddDate(0, 0, -1)) && b.CrossesMidnight():
			placed[0] = rowBooking{booking: &bookings[i], buffer: true}
		}
	}
	return placed
}

func resolveCell(machine models.Machine, placed map[int]rowBooking, overrides []models.Override, date time.Time, slot int, logger *zerolog.Logger) Cell {
	if rb, ok := placed[slot]; ok {
		span := 1
		if !rb.buffer {
			span = (rb.booking.Duration + slots.BaseSlotDuration - 1) / slots.BaseSlotDuration
			// A span crossing midnight is cut at the boundary; the
			// spill surfaces as its own buffer cell instead.
			if remaining := (slots.MinutesPerDay - slot) / slots.BaseSlotDuration; span > remaining {
				span = remaining
			}
		}
		return Cell{Slot: slot, State: CellBooked, RowSpan: span, Buffer: rb.buffer, Booking: rb.booking}
	}

	// A slot inside another booking's span is covered: occupied but
	// not independently selectable. Buffer placements never cover
	// their following slots on this date.
	for start, rb := range placed {
		if rb.buffer || start >= slot {
			continue
		}
		if slot < start+rb.booking.Duration {
			return Cell{Slot: slot, State: CellCovered, RowSpan: 0, Booking: rb.booking}
		}
	}

	if slot == slots.BoundarySlot {
		// The boundary row only ever carries a spilling booking.
		return Cell{Slot: slot, State: CellFree, RowSpan: 1}
	}

	var blocked, extended *models.Override
	for i := range overrides {
		o := &overrides[i]
		if !o.AppliesTo(slot) {
			continue
		}
		switch o.Status {
		case models.OverrideBlocked:
			if blocked == nil {
				blocked = o
			}
		case models.OverrideExtended:
			if extended == nil {
				extended = o
			}
		}
	}
	if blocked != nil {
		if extended != nil && logger != nil {
			// Overlapping BLOCKED and EXTENDED rules are a config
			// ambiguity; BLOCKED wins as the fail-safe reading.
			logger.Warn().
				Str("machine", machine.Name).
				Str("date", models.FormatDate(date)).
				Int("slot", slot).
				Int64("blocked_override", blocked.ID).
				Int64("extended_override", extended.ID).
				Msg("Overlapping BLOCKED and EXTENDED overrides; resolving as BLOCKED")
		}
		return Cell{Slot: slot, State: CellBlocked, RowSpan: 1, Override: blocked}
	}
	if extended != nil {
		return Cell{Slot: slot, State: CellExtended, RowSpan: 1, Override: extended}
	}
	return Cell{Slot: slot, State: CellFree, RowSpan: 1}
}

// StateAt resolves a single (machine, slot) cell from the same inputs
// as ResolveGrid, for callers that need one state without building the
// whole grid.
func StateAt(machine models.Machine, bookings []models.Booking, overrides []models.Override, date time.Time, slot int) CellState {
	date = models.DateOnly(date)
	var active []models.Override
	for i := range overrides {
		if overrides[i].MachineName == machine.Name && overrides[i].CoversDate(date) {
			active = append(active, overrides[i])
		}
	}
	placed := placeBookings(machine, bookings, date)
	return resolveCell(machine, placed, active, date, slot, nil).State
}
