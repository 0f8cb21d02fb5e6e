package models

import "time"

// RequestStatus is the lifecycle state of a rooftop access request.
type RequestStatus string

const (
	RequestRequested RequestStatus = "REQUESTED"
	RequestApproved  RequestStatus = "APPROVED"
	RequestRejected  RequestStatus = "REJECTED"
	RequestCancelled RequestStatus = "CANCELLED"
)

// Terminal reports whether the status admits no further transitions.
func (s RequestStatus) Terminal() bool {
	return s != RequestRequested
}

// RooftopRequest is a resident's application for whole-day rooftop
// access. At most one non-terminal request per (booker, date) exists.
type RooftopRequest struct {
	ID             int64         `json:"id"`
	RoomNumber     string        `json:"room_number"`
	Date           time.Time     `json:"date"`
	Reason         string        `json:"reason"`
	Contact        string        `json:"contact"`
	TimeSpan       string        `json:"time_span"`
	Status         RequestStatus `json:"status"`
	ReviewedBy     string        `json:"reviewed_by,omitempty"`
	ReviewedAt     *time.Time    `json:"reviewed_at,omitempty"`
	DecisionReason string        `json:"decision_reason,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// RooftopBooking is a committed whole-day rooftop reservation. The
// rooftop is single-occupant: at most one booking per date.
type RooftopBooking struct {
	ID         int64     `json:"id"`
	RoomNumber string    `json:"room_number"`
	Date       time.Time `json:"date"`
	Reason     string    `json:"reason,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
