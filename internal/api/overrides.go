package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"waschplan/internal/metrics"
	"waschplan/internal/models"
	"waschplan/internal/slots"
)

// OverrideRequest is the body for creating an override rule.
type OverrideRequest struct {
	MachineName string `json:"machine_name"`
	Status      string `json:"status"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	StartSlot   *int   `json:"start_slot"`
	EndSlot     *int   `json:"end_slot"`
}

// OverridePatch carries a partial update. Absent fields keep their
// value; whole_day clears the slot window.
type OverridePatch struct {
	Status    *string `json:"status"`
	StartDate *string `json:"start_date"`
	EndDate   *string `json:"end_date"`
	StartSlot *int    `json:"start_slot"`
	EndSlot   *int    `json:"end_slot"`
	WholeDay  bool    `json:"whole_day"`
}

// handleOverrides searches and creates override rules.
// GET /api/laundry/overrides?machine=&from=&to= · POST
func (s *HTTPServer) handleOverrides(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("overrides")
	id, ok := s.identity(w, r)
	if !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		var from, to time.Time
		var err error
		if raw := r.URL.Query().Get("from"); raw != "" {
			if from, err = parseDateParam(raw); err != nil {
				writeError(w, http.StatusBadRequest, "invalid from date; expected YYYY-MM-DD")
				return
			}
		}
		if raw := r.URL.Query().Get("to"); raw != "" {
			if to, err = parseDateParam(raw); err != nil {
				writeError(w, http.StatusBadRequest, "invalid to date; expected YYYY-MM-DD")
				return
			}
		}
		overrides, err := s.db.SearchOverrides(r.Context(), r.URL.Query().Get("machine"), from, to)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"overrides": overrides})

	case http.MethodPost:
		if !id.LaundryAdmin() {
			writeError(w, http.StatusForbidden, "laundry admin role required")
			return
		}
		var req OverrideRequest
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		override, msg := s.buildOverride(r, &req, id.Room)
		if msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		if err := s.db.CreateOverride(r.Context(), override); err != nil {
			s.writeDomainError(w, err)
			return
		}
		s.invalidateOverrideGrids(r, override)
		writeJSON(w, http.StatusCreated, override)

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *HTTPServer) buildOverride(r *http.Request, req *OverrideRequest, createdBy string) (*models.Override, string) {
	if req.MachineName == "" {
		return nil, "machine_name is required"
	}
	if _, err := s.db.GetMachine(r.Context(), req.MachineName); err != nil {
		return nil, "unknown machine " + req.MachineName
	}
	o := &models.Override{
		MachineName: req.MachineName,
		Status:      models.OverrideStatus(req.Status),
		StartSlot:   req.StartSlot,
		EndSlot:     req.EndSlot,
		CreatedBy:   createdBy,
	}
	if req.StartDate == "" || req.EndDate == "" {
		return nil, "start_date and end_date are required"
	}
	var err error
	if o.StartDate, err = parseDateParam(req.StartDate); err != nil {
		return nil, "invalid start_date; expected YYYY-MM-DD"
	}
	if o.EndDate, err = parseDateParam(req.EndDate); err != nil {
		return nil, "invalid end_date; expected YYYY-MM-DD"
	}
	if msg := validateOverride(o); msg != "" {
		return nil, msg
	}
	return o, ""
}

func validateOverride(o *models.Override) string {
	if !o.Status.Valid() {
		return "status must be BLOCKED or EXTENDED"
	}
	if o.EndDate.Before(o.StartDate) {
		return "end_date must not precede start_date"
	}
	for _, slot := range []*int{o.StartSlot, o.EndSlot} {
		if slot != nil && !slots.IsValidSlotStart(*slot) {
			return "slots must be aligned starts within the day"
		}
	}
	if o.StartSlot != nil && o.EndSlot != nil && *o.EndSlot < *o.StartSlot {
		return "end_slot must not precede start_slot"
	}
	return ""
}

// handleOverrideByID reads, patches and deletes one override rule.
// GET/PATCH/DELETE /api/laundry/overrides/{id}
func (s *HTTPServer) handleOverrideByID(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("override_by_id")
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	overrideID, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/api/laundry/overrides/"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid override id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		override, err := s.db.GetOverride(r.Context(), overrideID)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, override)

	case http.MethodPatch:
		if !id.LaundryAdmin() {
			writeError(w, http.StatusForbidden, "laundry admin role required")
			return
		}
		var patch OverridePatch
		if err := decodeBody(r, &patch); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		override, err := s.db.GetOverride(r.Context(), overrideID)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		before := *override
		if msg := applyPatch(override, &patch); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		if err := s.db.UpdateOverride(r.Context(), override); err != nil {
			s.writeDomainError(w, err)
			return
		}
		s.invalidateOverrideGrids(r, &before)
		s.invalidateOverrideGrids(r, override)
		writeJSON(w, http.StatusOK, override)

	case http.MethodDelete:
		if !id.LaundryAdmin() {
			writeError(w, http.StatusForbidden, "laundry admin role required")
			return
		}
		override, err := s.db.GetOverride(r.Context(), overrideID)
		if err != nil {
			s.writeDomainError(w, err)
			return
		}
		if err := s.db.DeleteOverride(r.Context(), overrideID); err != nil {
			s.writeDomainError(w, err)
			return
		}
		s.invalidateOverrideGrids(r, override)
		writeJSON(w, http.StatusOK, map[string]int64{"deleted": overrideID})

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func applyPatch(o *models.Override, patch *OverridePatch) string {
	if patch.Status != nil {
		o.Status = models.OverrideStatus(*patch.Status)
	}
	var err error
	if patch.StartDate != nil {
		if o.StartDate, err = parseDateParam(*patch.StartDate); err != nil {
			return "invalid start_date; expected YYYY-MM-DD"
		}
	}
	if patch.EndDate != nil {
		if o.EndDate, err = parseDateParam(*patch.EndDate); err != nil {
			return "invalid end_date; expected YYYY-MM-DD"
		}
	}
	if patch.WholeDay {
		o.StartSlot, o.EndSlot = nil, nil
	}
	if patch.StartSlot != nil {
		o.StartSlot = patch.StartSlot
	}
	if patch.EndSlot != nil {
		o.EndSlot = patch.EndSlot
	}
	return validateOverride(o)
}
