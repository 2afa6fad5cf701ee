package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/htm-dashboard/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return &PostgresStore{pool: mock}, mock
}

func TestPostgresStore_SaveSnapshot(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO kpi_snapshots \(id,created_by,source,year,policy,rows,warnings,created_at\) VALUES \(\$1,\$2,\$3,\$4,\$5,\$6,\$7,\$8\)`).
		WithArgs(pgxmock.AnyArg(), "admin", "demo", 2024, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	snap := sampleSnapshot("admin", 2024)
	require.NoError(t, s.SaveSnapshot(context.Background(), snap))
	assert.NotEmpty(t, snap.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetSnapshot(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	rows := pgxmock.NewRows(snapshotCols).
		AddRow("snap-1", "admin", "demo", 2024, []byte(`{}`), []byte(`[{"country_id":1,"iso3":"BEN","risk_score":0.5}]`), []byte(`[]`), now)
	mock.ExpectQuery(`SELECT .* FROM kpi_snapshots WHERE id = \$1`).
		WithArgs("snap-1").
		WillReturnRows(rows)

	got, err := s.GetSnapshot(context.Background(), "snap-1")
	require.NoError(t, err)
	assert.Equal(t, "snap-1", got.ID)
	require.Len(t, got.Rows, 1)
	assert.Equal(t, "BEN", got.Rows[0].ISO3)
	assert.InDelta(t, 0.5, got.Rows[0].RiskScore, 1e-12)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetSnapshot_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT .* FROM kpi_snapshots WHERE id = \$1`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetSnapshot(context.Background(), "nonexistent")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListSnapshots_Filter(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM kpi_snapshots WHERE created_by = \$1 AND year = \$2 ORDER BY created_at DESC LIMIT 5 OFFSET 10`).
		WithArgs("analyst", 2024).
		WillReturnRows(pgxmock.NewRows(snapshotCols))

	got, err := s.ListSnapshots(context.Background(), SnapshotFilter{CreatedBy: "analyst", Year: 2024, Limit: 5, Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListSnapshots_QueryError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM kpi_snapshots ORDER BY created_at DESC LIMIT 100`).
		WillReturnError(errors.New("connection reset"))

	_, err := s.ListSnapshots(context.Background(), SnapshotFilter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: list snapshots")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Simulations(t *testing.T) {
	s, mock := newMockPostgresStore(t)
	now := time.Now().UTC()

	mock.ExpectExec(`INSERT INTO simulation_runs`).
		WithArgs(pgxmock.AnyArg(), "admin", 500, int64(7), 0.1, 0.2, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectQuery(`SELECT .* FROM simulation_runs ORDER BY created_at DESC LIMIT 3`).
		WillReturnRows(pgxmock.NewRows(simulationCols).AddRow("sim-1", "admin", 500, int64(7), 0.1, 0.2, now))

	run := model.SimulationRun{CreatedBy: "admin", Draws: 500, Seed: 7, ProbDelay: 0.1, ProbStockout: 0.2}
	require.NoError(t, s.SaveSimulation(context.Background(), &run))

	runs, err := s.ListSimulations(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, uint64(7), runs[0].Seed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS kpi_snapshots`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
