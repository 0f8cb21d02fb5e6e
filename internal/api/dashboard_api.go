package api

import (
	"net/http"

	"waschplan/internal/metrics"
)

// handleDashboardSummary returns the caller's aggregate view.
// GET /api/dashboard/summary
func (s *HTTPServer) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("dashboard_summary")
	id, ok := s.identity(w, r)
	if !ok {
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	summary, err := s.dashboard.Summarize(r.Context(), id.Room, id.Admin())
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
