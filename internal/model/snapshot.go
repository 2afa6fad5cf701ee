package model

import (
	"encoding/json"
	"time"
)

// Snapshot is a persisted KPI table: who computed it, from which source and
// under which risk policy.
type Snapshot struct {
	ID        string          `json:"id"`
	CreatedBy string          `json:"created_by"`
	Source    string          `json:"source"`
	Year      int             `json:"year,omitempty"`
	Policy    json.RawMessage `json:"policy"`
	Rows      []KPIRow        `json:"rows"`
	Warnings  []string        `json:"warnings,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// SimulationRun records the parameters and outcome of one Monte Carlo run.
// Samples are not kept.
type SimulationRun struct {
	ID           string    `json:"id"`
	CreatedBy    string    `json:"created_by"`
	Draws        int       `json:"n_draws"`
	Seed         uint64    `json:"seed"`
	ProbDelay    float64   `json:"p_delay"`
	ProbStockout float64   `json:"p_stockout"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewSimulationRun summarises a simulation result for storage.
func NewSimulationRun(user string, res *SimulationResult) SimulationRun {
	return SimulationRun{
		CreatedBy:    user,
		Draws:        res.Draws,
		Seed:         res.Seed,
		ProbDelay:    res.ProbDelay,
		ProbStockout: res.ProbStockout,
	}
}
