package models

import "time"

// Booking is a committed laundry reservation. Duration is denormalized
// from the machine at booking time so that overlap and quota math stay
// correct even if the machine is later edited.
type Booking struct {
	ID          int64       `json:"id"`
	RoomNumber  string      `json:"room_number"`
	MachineName string      `json:"machine_name"`
	MachineType MachineType `json:"machine_type"`
	Date        time.Time   `json:"date"`
	SlotStart   int         `json:"slot_start"`
	Duration    int         `json:"duration"`
	CreatedAt   time.Time   `json:"created_at"`
}

// SlotStartTime returns the wall-clock start of the booking.
func (b *Booking) SlotStartTime() time.Time {
	return DateOnly(b.Date).Add(time.Duration(b.SlotStart) * time.Minute)
}

// SlotEndTime returns the wall-clock end of the booking. It may fall on
// the next calendar day when the booking crosses midnight.
func (b *Booking) SlotEndTime() time.Time {
	return DateOnly(b.Date).Add(time.Duration(b.SlotStart+b.Duration) * time.Minute)
}

// IsOngoing reports whether the booking has started but not yet ended.
func (b *Booking) IsOngoing(now time.Time) bool {
	return !b.IsInPast(now) && b.SlotStartTime().Before(now)
}

// IsInPast reports whether the booking has already ended.
func (b *Booking) IsInPast(now time.Time) bool {
	return !b.SlotEndTime().After(now)
}

// CrossesMidnight reports whether the booking spills into the next
// calendar day.
func (b *Booking) CrossesMidnight() bool {
	return b.SlotStart+b.Duration > 1440
}

// Overlaps reports whether two bookings on the same machine claim
// intersecting time windows. Bookings on different machines never
// overlap.
func (b *Booking) Overlaps(other *Booking) bool {
	if b.MachineName != other.MachineName {
		return false
	}
	return b.SlotStartTime().Before(other.SlotEndTime()) &&
		b.SlotEndTime().After(other.SlotStartTime())
}
