package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/htm-dashboard/internal/model"
	"github.com/sells-group/htm-dashboard/internal/store"
)

// queryInt parses an optional non-negative integer query parameter.
func queryInt(r *http.Request, key string) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, badRequest("%s must be a non-negative integer, got %q", key, v)
	}
	return n, nil
}

func (s *Server) handleListSnapshots(w http.ResponseWriter, r *http.Request) {
	if s.opts.Store == nil {
		writeError(w, errStoreDisabled)
		return
	}
	var (
		filter store.SnapshotFilter
		err    error
	)
	filter.CreatedBy = r.URL.Query().Get("created_by")
	if filter.Year, err = queryInt(r, "year"); err != nil {
		writeError(w, err)
		return
	}
	if filter.Limit, err = queryInt(r, "limit"); err != nil {
		writeError(w, err)
		return
	}
	if filter.Offset, err = queryInt(r, "offset"); err != nil {
		writeError(w, err)
		return
	}

	snaps, err := s.opts.Store.ListSnapshots(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}
	if snaps == nil {
		snaps = []model.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snaps)
}

func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.opts.Store == nil {
		writeError(w, errStoreDisabled)
		return
	}
	snap, err := s.opts.Store.GetSnapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleListSimulations(w http.ResponseWriter, r *http.Request) {
	if s.opts.Store == nil {
		writeError(w, errStoreDisabled)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, err)
		return
	}
	runs, err := s.opts.Store.ListSimulations(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	if runs == nil {
		runs = []model.SimulationRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}
