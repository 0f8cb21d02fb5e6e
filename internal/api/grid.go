package api

import (
	"net/http"
	"time"

	"waschplan/internal/metrics"
	"waschplan/internal/models"
	"waschplan/internal/schedule"
)

// timeNow is swapped out by handler tests.
var timeNow = time.Now

// handleGrid returns the resolved availability grid for one date.
// GET /api/laundry/grid?date=YYYY-MM-DD&machine=
func (s *HTTPServer) handleGrid(w http.ResponseWriter, r *http.Request) {
	metrics.IncHTTP("grid")
	if _, ok := s.identity(w, r); !ok {
		return
	}
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	date := models.DateOnly(timeNow())
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := parseDateParam(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
			return
		}
		date = parsed
	}
	machine := r.URL.Query().Get("machine")

	grid, err := s.resolveGrid(r, date)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	if machine != "" {
		rows := grid.Rows[:0:0]
		for _, row := range grid.Rows {
			if row.Machine.Name == machine {
				rows = append(rows, row)
			}
		}
		if len(rows) == 0 {
			writeError(w, http.StatusNotFound, "unknown machine "+machine)
			return
		}
		grid = &schedule.Grid{Date: grid.Date, Rows: rows}
	}
	writeJSON(w, http.StatusOK, grid)
}

// resolveGrid serves the full grid from cache when possible and
// derives it otherwise.
func (s *HTTPServer) resolveGrid(r *http.Request, date time.Time) (*schedule.Grid, error) {
	if cached := s.cache.Get(r.Context(), date); cached != nil {
		return cached, nil
	}

	all, err := s.db.ListMachines(r.Context())
	if err != nil {
		return nil, err
	}
	machines := make([]models.Machine, 0, len(all))
	for _, m := range all {
		if m.Type != models.MachineRooftop {
			machines = append(machines, m)
		}
	}
	bookings, err := s.db.BookingsBetween(r.Context(), date.AddDate(0, 0, -1), date.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	overrides, err := s.db.SearchOverrides(r.Context(), "", date, date)
	if err != nil {
		return nil, err
	}

	grid := schedule.ResolveGrid(machines, bookings, overrides, date, s.logger)
	s.cache.Put(r.Context(), grid)
	return grid, nil
}

// invalidateVisibleGrids drops every cached grid inside the booking
// horizon after a change that can reshape any of them.
func (s *HTTPServer) invalidateVisibleGrids(r *http.Request) {
	today := models.DateOnly(timeNow())
	dates := make([]time.Time, 0, 9)
	for i := -1; i <= 7; i++ {
		dates = append(dates, today.AddDate(0, 0, i))
	}
	s.cache.InvalidateGrid(r.Context(), dates...)
}

// invalidateOverrideGrids drops the grids an override touches, capped
// to a month past its start.
func (s *HTTPServer) invalidateOverrideGrids(r *http.Request, o *models.Override) {
	start := models.DateOnly(o.StartDate)
	end := models.DateOnly(o.EndDate)
	if limit := start.AddDate(0, 1, 0); end.After(limit) {
		end = limit
	}
	var dates []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		dates = append(dates, d)
	}
	s.cache.InvalidateGrid(r.Context(), dates...)
}
