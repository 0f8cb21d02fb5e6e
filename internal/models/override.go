package models

import "time"

// OverrideStatus is the kind of administrative slot override.
type OverrideStatus string

const (
	OverrideBlocked  OverrideStatus = "BLOCKED"
	OverrideExtended OverrideStatus = "EXTENDED"
)

// Valid reports whether the status is a known override kind.
func (s OverrideStatus) Valid() bool {
	return s == OverrideBlocked || s == OverrideExtended
}

// Override is an administrator rule that blocks or extends availability
// of one machine over an inclusive date range. StartSlot/EndSlot are
// aligned slot starts and cover slots inclusively; nil means the whole
// day.
type Override struct {
	ID          int64          `json:"id"`
	MachineName string         `json:"machine_name"`
	Status      OverrideStatus `json:"status"`
	StartDate   time.Time      `json:"start_date"`
	EndDate     time.Time      `json:"end_date"`
	StartSlot   *int           `json:"start_slot"`
	EndSlot     *int           `json:"end_slot"`
	CreatedBy   string         `json:"created_by"`
	CreatedAt   time.Time      `json:"created_at"`
}

// CoversDate reports whether the override is active on the given date.
func (o *Override) CoversDate(date time.Time) bool {
	d := DateOnly(date)
	return !d.Before(DateOnly(o.StartDate)) && !d.After(DateOnly(o.EndDate))
}

// AppliesTo reports whether the override covers the given slot on a
// date it is active. A nil boundary is open-ended within the day.
func (o *Override) AppliesTo(slot int) bool {
	afterStart := o.StartSlot == nil || slot >= *o.StartSlot
	beforeEnd := o.EndSlot == nil || slot <= *o.EndSlot
	return afterStart && beforeEnd
}

// AppliesAt combines the date and slot checks.
func (o *Override) AppliesAt(date time.Time, slot int) bool {
	return o.CoversDate(date) && o.AppliesTo(slot)
}
