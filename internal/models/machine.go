package models

import "time"

// MachineType classifies a bookable resource.
type MachineType string

const (
	MachineWasher  MachineType = "WASHER"
	MachineDryer   MachineType = "DRYER"
	MachineRooftop MachineType = "ROOFTOP"
)

// Valid reports whether the type is one of the known machine types.
func (t MachineType) Valid() bool {
	switch t {
	case MachineWasher, MachineDryer, MachineRooftop:
		return true
	}
	return false
}

// Machine is a bookable resource. Name is the unique key.
// SlotDuration is in minutes and must be a positive multiple of the
// base slot duration for timed machines.
type Machine struct {
	Name         string      `json:"name"`
	Type         MachineType `json:"type"`
	SlotDuration int         `json:"slot_duration"`
	CreatedAt    time.Time   `json:"created_at"`
}

// DateOnly truncates t to local midnight.
func DateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// SameDate reports whether a and b fall on the same calendar day.
func SameDate(a, b time.Time) bool {
	return DateOnly(a).Equal(DateOnly(b))
}

// FormatDate renders a date as YYYY-MM-DD for keys and API payloads.
func FormatDate(t time.Time) string {
	return t.Format("2006-01-02")
}

// ParseDate parses a YYYY-MM-DD date string.
func ParseDate(s string) (time.Time, error) {
	return time.Parse("2006-01-02", s)
}
