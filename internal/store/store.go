// Package store persists KPI snapshots and simulation runs.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/htm-dashboard/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = eris.New("store: not found")

// SnapshotFilter specifies criteria for listing snapshots.
type SnapshotFilter struct {
	CreatedBy string `json:"created_by,omitempty"`
	Year      int    `json:"year,omitempty"`
	Limit     int    `json:"limit,omitempty"`
	Offset    int    `json:"offset,omitempty"`
}

const defaultListLimit = 100

func (f SnapshotFilter) limit() int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

// Store defines the persistence interface for dashboard history.
type Store interface {
	// Snapshots
	SaveSnapshot(ctx context.Context, snap *model.Snapshot) error
	GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error)
	ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]model.Snapshot, error)

	// Simulations
	SaveSimulation(ctx context.Context, run *model.SimulationRun) error
	ListSimulations(ctx context.Context, limit int) ([]model.SimulationRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open returns the store for driver: "sqlite" (dsn is a file path) or
// "postgres" (dsn is a connection string).
func Open(ctx context.Context, driver, dsn string) (Store, error) {
	switch driver {
	case "", "sqlite":
		s, err := NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres", "postgresql":
		s, err := NewPostgres(ctx, dsn, nil)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, eris.Errorf("store: unknown driver %q", driver)
	}
}
