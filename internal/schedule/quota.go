package schedule

import (
	"time"

	"waschplan/internal/models"
)

// QuotaWindowDays is the length of the rolling usage window.
const QuotaWindowDays = 7

// QuotaConfig caps cumulative reserved minutes per room and machine
// type within the rolling window.
type QuotaConfig struct {
	WasherMaxMinutes int
	DryerMaxMinutes  int
}

// MaxFor returns the cap for a machine type. Types without a cap
// (rooftop) return 0, meaning not quota-managed.
func (q QuotaConfig) MaxFor(t models.MachineType) int {
	switch t {
	case models.MachineWasher:
		return q.WasherMaxMinutes
	case models.MachineDryer:
		return q.DryerMaxMinutes
	}
	return 0
}

// QuotaWindow returns the inclusive rolling window a booking on date is
// charged against: the 7 days ending on that date.
func QuotaWindow(date time.Time) (from, to time.Time) {
	to = models.DateOnly(date)
	from = to.AddDate(0, 0, -(QuotaWindowDays - 1))
	return from, to
}
