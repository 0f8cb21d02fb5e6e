package rooftop

import (
	"testing"

	"waschplan/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestWorkflowTransitions(t *testing.T) {
	w := NewWorkflow()

	tests := []struct {
		name string
		from models.RequestStatus
		to   models.RequestStatus
		want bool
	}{
		{"approve pending", models.RequestRequested, models.RequestApproved, true},
		{"reject pending", models.RequestRequested, models.RequestRejected, true},
		{"cancel pending", models.RequestRequested, models.RequestCancelled, true},
		{"reopen approved", models.RequestApproved, models.RequestRequested, false},
		{"reject approved", models.RequestApproved, models.RequestRejected, false},
		{"approve rejected", models.RequestRejected, models.RequestApproved, false},
		{"cancel cancelled", models.RequestCancelled, models.RequestCancelled, false},
		{"unknown state", models.RequestStatus("PENDING"), models.RequestApproved, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, w.CanTransition(tt.from, tt.to))
		})
	}
}

func TestWorkflowTerminalStates(t *testing.T) {
	w := NewWorkflow()
	all := []models.RequestStatus{
		models.RequestRequested, models.RequestApproved,
		models.RequestRejected, models.RequestCancelled,
	}

	assert.False(t, models.RequestRequested.Terminal())
	for _, from := range all[1:] {
		assert.True(t, from.Terminal(), string(from))
		for _, to := range all {
			assert.False(t, w.CanTransition(from, to), "%s -> %s", from, to)
		}
	}
}
