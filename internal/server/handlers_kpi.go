package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/htm-dashboard/internal/export"
	"github.com/sells-group/htm-dashboard/internal/kpi"
	"github.com/sells-group/htm-dashboard/internal/model"
)

type kpiResponse struct {
	Columns     map[string][]any `json:"columns"`
	ColumnOrder []string         `json:"column_order"`
	Rows        []model.KPIRow   `json:"rows"`
	Warnings    []kpi.Warning    `json:"warnings"`
	Policy      kpi.RiskPolicy   `json:"policy"`
	SnapshotID  string           `json:"snapshot_id,omitempty"`
}

// computeKPIs runs the engine over the current dataset honouring ?year=.
func (s *Server) computeKPIs(r *http.Request) (*kpi.Result, int, error) {
	year := 0
	if v := r.URL.Query().Get("year"); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y <= 0 {
			return nil, 0, badRequest("year must be a positive integer, got %q", v)
		}
		year = y
	}

	in, err := s.kpiTables(r.Context())
	if err != nil {
		return nil, 0, err
	}
	policy := s.opts.Policy
	res, err := kpi.Compute(in, kpi.Options{Year: year, Policy: &policy})
	if err != nil {
		return nil, 0, err
	}
	if n := len(res.Warnings); n > 0 {
		s.metrics.engineWarning.Add(float64(n))
	}
	return res, year, nil
}

func (s *Server) handleKPIs(w http.ResponseWriter, r *http.Request) {
	res, year, err := s.computeKPIs(r)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := kpiResponse{
		Columns:     kpi.Columns(res.Rows),
		ColumnOrder: kpi.KPIColumns,
		Rows:        res.Rows,
		Warnings:    res.Warnings,
		Policy:      res.Policy,
	}
	if resp.Warnings == nil {
		resp.Warnings = []kpi.Warning{}
	}

	if want, _ := strconv.ParseBool(r.URL.Query().Get("snapshot")); want {
		id, err := s.saveSnapshot(r.Context(), res, year)
		if err != nil {
			writeError(w, err)
			return
		}
		resp.SnapshotID = id
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) saveSnapshot(ctx context.Context, res *kpi.Result, year int) (string, error) {
	if s.opts.Store == nil {
		return "", errStoreDisabled
	}
	policy, err := json.Marshal(res.Policy)
	if err != nil {
		return "", eris.Wrap(err, "server: marshal policy")
	}
	snap := &model.Snapshot{
		CreatedBy: currentUser(ctx),
		Source:    s.sourceName(),
		Year:      year,
		Policy:    policy,
		Rows:      res.Rows,
	}
	for _, w := range res.Warnings {
		snap.Warnings = append(snap.Warnings, w.Message)
	}
	if err := s.opts.Store.SaveSnapshot(ctx, snap); err != nil {
		return "", err
	}
	zap.L().Info("kpi snapshot saved",
		zap.String("id", snap.ID),
		zap.String("user", snap.CreatedBy),
		zap.Int("rows", len(snap.Rows)),
	)
	return snap.ID, nil
}

func (s *Server) handleKPIsCSV(w http.ResponseWriter, r *http.Request) {
	res, _, err := s.computeKPIs(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteKPICSV(&buf, res.Rows); err != nil {
		writeError(w, err)
		return
	}
	writeDownload(w, "text/csv; charset=utf-8", "kpis.csv", buf.Bytes())
}

func (s *Server) handleKPIsXLSX(w http.ResponseWriter, r *http.Request) {
	res, _, err := s.computeKPIs(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, "KPIs", export.KPITable(res.Rows)); err != nil {
		writeError(w, err)
		return
	}
	writeDownload(w, contentTypeXLSX, "kpis.xlsx", buf.Bytes())
}

// handleCountryRecords returns the per-record metrics behind one country's
// KPI row, looked up by ISO3 code.
func (s *Server) handleCountryRecords(w http.ResponseWriter, r *http.Request) {
	iso3 := strings.ToUpper(chi.URLParam(r, "iso3"))
	res, _, err := s.computeKPIs(r)
	if err != nil {
		writeError(w, err)
		return
	}
	for _, row := range res.Rows {
		if strings.EqualFold(row.ISO3, iso3) {
			records := res.CountryRecords(row.CountryID)
			if records == nil {
				records = []model.RecordMetrics{}
			}
			writeJSON(w, http.StatusOK, map[string]any{
				"country": row,
				"records": records,
			})
			return
		}
	}
	writeError(w, notFound("unknown country %q", iso3))
}
