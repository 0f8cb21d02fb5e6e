// Package slots defines the fixed 90-minute partition of a day and the
// integer-minute slot arithmetic used by the availability resolver and
// the conflict guard. All arithmetic is in whole minutes; slots are
// offsets from local midnight.
package slots

import (
	"fmt"
	"time"
)

const (
	// BaseSlotDuration is the smallest schedulable granularity in minutes.
	BaseSlotDuration = 90

	// MinutesPerDay is the number of minutes in a calendar day.
	MinutesPerDay = 1440

	// BoundarySlot is the virtual row at end of day. It is never
	// bookable; it only carries a reservation that began on this date
	// and is still running at midnight.
	BoundarySlot = MinutesPerDay
)

// SlotsPerDay is the number of base slots in a day (16 for a 90-minute base).
const SlotsPerDay = MinutesPerDay / BaseSlotDuration

// SlotsOfDay returns the ordered base slot offsets [0, 90, ..., 1350].
// The virtual boundary slot at 1440 is not included; grid builders
// append it explicitly when rendering buffer rows.
func SlotsOfDay() []int {
	out := make([]int, 0, SlotsPerDay)
	for s := 0; s < MinutesPerDay; s += BaseSlotDuration {
		out = append(out, s)
	}
	return out
}

// LastSlotOfDay returns the offset of the final base slot (1350).
func LastSlotOfDay() int {
	return MinutesPerDay - BaseSlotDuration
}

// IsValidSlotStart reports whether s is a bookable, base-aligned slot
// within the day.
func IsValidSlotStart(s int) bool {
	if s < 0 || s >= MinutesPerDay {
		return false
	}
	return s%BaseSlotDuration == 0
}

// CoveredSlots returns the base slot offsets a reservation starting at
// start with the given duration occupies. Offsets at or past 1440
// belong to the next calendar day; use NextDaySlot to map them.
func CoveredSlots(start, duration int) []int {
	if duration <= 0 {
		return nil
	}
	n := (duration + BaseSlotDuration - 1) / BaseSlotDuration
	out := make([]int, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, start+i*BaseSlotDuration)
	}
	return out
}

// CrossesMidnight reports whether a reservation starting at start with
// the given duration runs past the end of its calendar day.
func CrossesMidnight(start, duration int) bool {
	return start+duration > MinutesPerDay
}

// NextDaySlot maps an offset past the day boundary onto the following
// day's slot scale.
func NextDaySlot(s int) int {
	return s - MinutesPerDay
}

// FormatSlot renders a slot offset as H:MM. Offsets past midnight wrap
// onto the next day's scale (1530 renders as 1:30).
func FormatSlot(slot int) string {
	if slot >= MinutesPerDay {
		return FormatSlot(slot - MinutesPerDay)
	}
	return fmt.Sprintf("%d:%02d", slot/60, slot%60)
}

// FormatSlotOn renders a slot together with its date.
func FormatSlotOn(slot int, date time.Time) string {
	return date.Format("2006-01-02") + " " + FormatSlot(slot)
}
