package api

import (
	"net/http"

	"waschplan/internal/metrics"
	"waschplan/internal/models"
	"waschplan/internal/slots"
)

// CreateMachineRequest is the body for registering a machine.
type CreateMachineRequest struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	SlotDuration int    `json:"slot_duration"`
}

// handleMachines lists, creates and deletes machines.
// GET/POST/DELETE /api/laundry/machines
func (s *HTTPServer) handleMachines(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("machines")
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		machines, err := s.db.ListMachines(r.Context())
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"machines": machines})

	case http.MethodPost:
		if !id.LaundryAdmin() {
			writeError(w, http.StatusForbidden, "laundry admin role required")
			return
		}
		var req CreateMachineRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		machine := models.Machine{
			Name:         req.Name,
			Type:         models.MachineType(req.Type),
			SlotDuration: req.SlotDuration,
		}
		if err := validateMachine(&machine); err != "" {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		if err := s.db.CreateMachine(r.Context(), &machine); err != nil {
			s.writeDomainError(w, err)
			return
		}
		s.invalidateVisibleGrids(r)
		writeJSON(w, http.StatusCreated, machine)

	case http.MethodDelete:
		if !id.LaundryAdmin() {
			writeError(w, http.StatusForbidden, "laundry admin role required")
			return
		}
		name := r.URL.Query().Get("name")
		if name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}
		if err := s.db.DeleteMachine(r.Context(), name, models.DateOnly(timeNow())); err != nil {
			s.writeDomainError(w, err)
			return
		}
		s.invalidateVisibleGrids(r)
		writeJSON(w, http.StatusOK, map[string]string{"deleted": name})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func validateMachine(m *models.Machine) string {
	if m.Name == "" {
		return "name is required"
	}
	if !m.Type.Valid() {
		return "type must be WASHER, DRYER or ROOFTOP"
	}
	if m.Type == models.MachineRooftop {
		if m.SlotDuration == 0 {
			m.SlotDuration = slots.MinutesPerDay
		}
		return ""
	}
	if m.SlotDuration <= 0 || m.SlotDuration%slots.BaseSlotDuration != 0 {
		return "slot_duration must be a positive multiple of 90"
	}
	return ""
}
