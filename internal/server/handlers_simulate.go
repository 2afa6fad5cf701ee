package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/htm-dashboard/internal/kpi"
	"github.com/sells-group/htm-dashboard/internal/model"
)

// SimulateRequest is the body of POST /api/simulate. Every field is optional.
type SimulateRequest struct {
	NDraws             *int     `json:"n_draws" validate:"omitempty,gte=1"`
	Seed               *uint64  `json:"seed"`
	DelayThresholdDays *float64 `json:"delay_threshold_days" validate:"omitempty,gte=0"`
	StockoutThreshold  *float64 `json:"stockout_threshold" validate:"omitempty,gte=0,lte=1"`
}

type simulateResponse struct {
	*model.SimulationResult
	LeadTimeHistogram    []kpi.Bin `json:"lead_time_histogram"`
	FulfillmentHistogram []kpi.Bin `json:"fulfillment_histogram"`
	RunID                string    `json:"run_id,omitempty"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, badRequest("simulate: decode body: %v", err))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		writeError(w, err)
		return
	}

	opts := kpi.SimulationOptions{Draws: s.opts.DefaultDraws, Seed: s.opts.DefaultSeed}
	if req.NDraws != nil {
		opts.Draws = *req.NDraws
	}
	if opts.Draws > s.opts.MaxDraws {
		writeError(w, &kpi.InvalidArgumentError{Field: "n_draws", Reason: "exceeds the configured maximum"})
		return
	}
	if req.Seed != nil {
		opts.Seed = *req.Seed
	}
	opts.DelayThresholdDays = req.DelayThresholdDays
	opts.StockoutThreshold = req.StockoutThreshold

	in, err := s.kpiTables(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	policy := s.opts.Policy
	res, err := kpi.Compute(in, kpi.Options{Policy: &policy})
	if err != nil {
		writeError(w, err)
		return
	}
	lead, fulfillment := kpi.SampleColumns(res.Records)
	sim, err := kpi.Simulate(r.Context(), lead, fulfillment, opts)
	if err != nil {
		writeError(w, err)
		return
	}
	s.metrics.simulations.Inc()

	resp := simulateResponse{
		SimulationResult:     sim,
		LeadTimeHistogram:    kpi.Histogram(sim.LeadTimes, kpi.DefaultHistogramBins),
		FulfillmentHistogram: kpi.Histogram(sim.Fulfillment, kpi.DefaultHistogramBins),
	}
	if s.opts.Store != nil {
		run := model.NewSimulationRun(currentUser(r.Context()), sim)
		if err := s.opts.Store.SaveSimulation(r.Context(), &run); err != nil {
			zap.L().Warn("save simulation run", zap.Error(err))
		} else {
			resp.RunID = run.ID
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
