// Package rooftop implements the request-and-approve workflow for
// whole-day rooftop access: residents submit requests, administrators
// decide them, and an approval commits the date's single booking.
package rooftop

import "waschplan/internal/models"

// Workflow is the request lifecycle state machine.
type Workflow struct {
	transitions map[models.RequestStatus][]models.RequestStatus
}

// NewWorkflow creates the state machine with the fixed lifecycle:
// every decision is terminal, nothing leaves a decided state.
func NewWorkflow() *Workflow {
	return &Workflow{
		transitions: map[models.RequestStatus][]models.RequestStatus{
			models.RequestRequested: {models.RequestApproved, models.RequestRejected, models.RequestCancelled},
			models.RequestApproved:  {},
			models.RequestRejected:  {},
			models.RequestCancelled: {},
		},
	}
}

// CanTransition checks if the transition is allowed. Decided states
// are terminal and admit nothing.
func (w *Workflow) CanTransition(from, to models.RequestStatus) bool {
	if from.Terminal() {
		return false
	}
	allowed, ok := w.transitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}
