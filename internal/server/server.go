// Package server exposes the dashboard over HTTP: the login surface, KPI and
// simulation views, profile tables and document downloads.
package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/sells-group/htm-dashboard/internal/auth"
	"github.com/sells-group/htm-dashboard/internal/dataset"
	"github.com/sells-group/htm-dashboard/internal/kpi"
	"github.com/sells-group/htm-dashboard/internal/model"
	"github.com/sells-group/htm-dashboard/internal/store"
)

// SessionCookie names the cookie carrying the session id.
const SessionCookie = "htm_session"

// datasetTTL bounds how long a loaded dataset is reused.
const datasetTTL = 5 * time.Minute

// maxUploadBytes caps multipart uploads.
const maxUploadBytes = 32 << 20

// Options configure a Server.
type Options struct {
	CORSOrigins []string
	// Source is where tables are read from; nil serves the demo dataset.
	Source       dataset.Source
	Policy       kpi.RiskPolicy
	Credentials  auth.Credentials
	Store        store.Store // optional; snapshot endpoints answer 503 without it
	DefaultDraws int
	MaxDraws     int
	DefaultSeed  uint64
	// SessionIdleTTL drops sessions unused for this long; zero uses
	// auth.DefaultIdleTTL.
	SessionIdleTTL time.Duration
	// Registerer receives the HTTP metrics; nil uses a private registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// Server holds the shared state behind the HTTP handlers.
type Server struct {
	opts     Options
	sessions *auth.Registry
	metrics  *metrics
	validate *validator.Validate

	mu       sync.Mutex
	cached   *model.Dataset
	loadedAt time.Time
}

// New builds a Server. A zero policy and zero draw limits fall back to the
// engine defaults.
func New(opts Options) *Server {
	if opts.Policy == (kpi.RiskPolicy{}) {
		opts.Policy = kpi.DefaultRiskPolicy()
	}
	if opts.DefaultDraws <= 0 {
		opts.DefaultDraws = kpi.DefaultDraws
	}
	if opts.MaxDraws <= 0 {
		opts.MaxDraws = 1_000_000
	}
	if opts.Registerer == nil {
		reg := prometheus.NewRegistry()
		opts.Registerer, opts.Gatherer = reg, reg
	}
	return &Server{
		opts:     opts,
		sessions: auth.NewRegistry(opts.Credentials, opts.SessionIdleTTL),
		metrics:  newMetrics(opts.Registerer),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Sessions exposes the session registry.
func (s *Server) Sessions() *auth.Registry { return s.sessions }

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.opts.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(s.logRequests)
	r.Use(s.metrics.middleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", s.metrics.handler(s.opts.Gatherer))

	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.requireSession)

		r.Get("/me", s.handleMe)

		r.Route("/api", func(r chi.Router) {
			r.Get("/kpis", s.handleKPIs)
			r.Get("/kpis.csv", s.handleKPIsCSV)
			r.Get("/kpis.xlsx", s.handleKPIsXLSX)
			r.Get("/countries/{iso3}/records", s.handleCountryRecords)
			r.Post("/simulate", s.handleSimulate)

			r.Get("/tables/{name}", s.handleTable)
			r.Get("/profiles/{country}", s.handleProfile)
			r.Get("/qa/scores", s.handleQAScores)
			r.Get("/cofinancing/execution", s.handleExecutionRates)
			r.Get("/counts/{table}/{column}", s.handleValueCounts)
			r.Post("/uploads", s.handleUpload)

			r.Get("/snapshots", s.handleListSnapshots)
			r.Get("/snapshots/{id}", s.handleGetSnapshot)
			r.Get("/simulations", s.handleListSimulations)
		})
	})

	return r
}

// dataset returns the cached dataset, reloading it once datasetTTL passes.
// A dataset whose KPI tables failed is served but not cached, so a repaired
// source is picked up on the next request.
func (s *Server) dataset(ctx context.Context) (*model.Dataset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil && time.Since(s.loadedAt) < datasetTTL {
		return s.cached, nil
	}
	ds, err := dataset.Load(ctx, s.opts.Source)
	if err != nil {
		return nil, err
	}
	if ds.KPIErr == nil {
		s.cached, s.loadedAt = ds, time.Now()
	}
	return ds, nil
}

// kpiTables returns the KPI tables of the current dataset.
func (s *Server) kpiTables(ctx context.Context) (model.KPIInput, error) {
	ds, err := s.dataset(ctx)
	if err != nil {
		return model.KPIInput{}, err
	}
	return ds.KPITables()
}

func (s *Server) sourceName() string {
	if s.opts.Source == nil {
		return "demo"
	}
	return s.opts.Source.String()
}
