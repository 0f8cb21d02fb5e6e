package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	reservationCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "waschplan",
			Name:      "reservation_created_total",
			Help:      "Count of laundry reservations created by machine type.",
		},
		[]string{"machine_type"},
	)

	reservationCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "waschplan",
			Name:      "reservation_cancelled_total",
			Help:      "Count of laundry reservations cancelled by residents.",
		},
	)

	reservationRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "waschplan",
			Name:      "reservation_rejected_total",
			Help:      "Count of reservation attempts rejected by reason.",
		},
		[]string{"reason"},
	)

	rooftopDecision = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "waschplan",
			Name:      "rooftop_decision_total",
			Help:      "Count of admin decisions over rooftop requests.",
		},
		[]string{"decision"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "waschplan",
			Name:      "http_requests_total",
			Help:      "Count of handled HTTP requests by handler.",
		},
		[]string{"handler"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(reservationCreated, reservationCancelled, reservationRejected, rooftopDecision, httpRequests)
	})
}

func IncReservationCreated(machineType string) {
	reservationCreated.WithLabelValues(machineType).Inc()
}

func IncReservationCancelled() {
	reservationCancelled.Inc()
}

func IncReservationRejected(reason string) {
	reservationRejected.WithLabelValues(reason).Inc()
}

func IncRooftopDecision(decision string) {
	rooftopDecision.WithLabelValues(decision).Inc()
}

func IncHTTP(handler string) {
	httpRequests.WithLabelValues(handler).Inc()
}
