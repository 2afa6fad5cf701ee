package store

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/htm-dashboard/internal/model"
)

// Pool is the subset of pgxpool.Pool used by the store. pgxmock pools
// satisfy it in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var snapshotCols = []string{"id", "created_by", "source", "year", "policy", "rows", "warnings", "created_at"}

var simulationCols = []string{"id", "created_by", "draws", "seed", "prob_delay", "prob_stockout", "created_at"}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS kpi_snapshots (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	created_by TEXT NOT NULL,
	source     TEXT NOT NULL,
	year       INTEGER NOT NULL DEFAULT 0,
	policy     JSONB NOT NULL,
	rows       JSONB NOT NULL,
	warnings   JSONB NOT NULL DEFAULT '[]'::jsonb,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS simulation_runs (
	id            TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	created_by    TEXT NOT NULL,
	draws         INTEGER NOT NULL,
	seed          BIGINT NOT NULL,
	prob_delay    DOUBLE PRECISION NOT NULL,
	prob_stockout DOUBLE PRECISION NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_kpi_snapshots_created_at ON kpi_snapshots(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_kpi_snapshots_created_by ON kpi_snapshots(created_by);
CREATE INDEX IF NOT EXISTS idx_simulation_runs_created_at ON simulation_runs(created_at DESC);
`

// Ping checks connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

// Migrate creates the tables if they do not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// SaveSnapshot assigns an id and timestamp to snap and inserts it.
func (s *PostgresStore) SaveSnapshot(ctx context.Context, snap *model.Snapshot) error {
	cols, err := encodeSnapshot(snap)
	if err != nil {
		return eris.Wrap(err, "postgres: encode snapshot")
	}
	snap.ID = uuid.New().String()
	snap.CreatedAt = time.Now().UTC()

	query, args, err := psql.Insert("kpi_snapshots").
		Columns(snapshotCols...).
		Values(snap.ID, snap.CreatedBy, snap.Source, snap.Year, cols.policy, cols.rows, cols.warnings, snap.CreatedAt).
		ToSql()
	if err != nil {
		return eris.Wrap(err, "postgres: build insert snapshot")
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return eris.Wrap(err, "postgres: insert snapshot")
	}
	return nil
}

// GetSnapshot returns the snapshot with the given id, or ErrNotFound.
func (s *PostgresStore) GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error) {
	query, args, err := psql.Select(snapshotCols...).From("kpi_snapshots").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build get snapshot")
	}
	snap, err := scanPgSnapshot(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: snapshot %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get snapshot")
	}
	return snap, nil
}

// ListSnapshots returns snapshots newest first.
func (s *PostgresStore) ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]model.Snapshot, error) {
	q := psql.Select(snapshotCols...).From("kpi_snapshots")
	if filter.CreatedBy != "" {
		q = q.Where(sq.Eq{"created_by": filter.CreatedBy})
	}
	if filter.Year > 0 {
		q = q.Where(sq.Eq{"year": filter.Year})
	}
	q = q.OrderBy("created_at DESC").Limit(uint64(filter.limit()))
	if filter.Offset > 0 {
		q = q.Offset(uint64(filter.Offset))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build list snapshots")
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list snapshots")
	}
	defer rows.Close()

	var out []model.Snapshot
	for rows.Next() {
		snap, err := scanPgSnapshot(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan snapshot")
		}
		out = append(out, *snap)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list snapshots iterate")
}

// SaveSimulation assigns an id and timestamp to run and inserts it.
func (s *PostgresStore) SaveSimulation(ctx context.Context, run *model.SimulationRun) error {
	run.ID = uuid.New().String()
	run.CreatedAt = time.Now().UTC()

	query, args, err := psql.Insert("simulation_runs").
		Columns(simulationCols...).
		Values(run.ID, run.CreatedBy, run.Draws, int64(run.Seed), run.ProbDelay, run.ProbStockout, run.CreatedAt).
		ToSql()
	if err != nil {
		return eris.Wrap(err, "postgres: build insert simulation")
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return eris.Wrap(err, "postgres: insert simulation")
	}
	return nil
}

// ListSimulations returns the most recent simulation runs.
func (s *PostgresStore) ListSimulations(ctx context.Context, limit int) ([]model.SimulationRun, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	query, args, err := psql.Select(simulationCols...).
		From("simulation_runs").
		OrderBy("created_at DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, eris.Wrap(err, "postgres: build list simulations")
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list simulations")
	}
	defer rows.Close()

	var out []model.SimulationRun
	for rows.Next() {
		var (
			r    model.SimulationRun
			seed int64
		)
		if err := rows.Scan(&r.ID, &r.CreatedBy, &r.Draws, &seed, &r.ProbDelay, &r.ProbStockout, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan simulation")
		}
		r.Seed = uint64(seed)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list simulations iterate")
}

func scanPgSnapshot(row scannable) (*model.Snapshot, error) {
	var (
		snap                   model.Snapshot
		policy, rows, warnings []byte
	)
	if err := row.Scan(&snap.ID, &snap.CreatedBy, &snap.Source, &snap.Year, &policy, &rows, &warnings, &snap.CreatedAt); err != nil {
		return nil, err
	}
	if err := decodeSnapshot(&snap, policy, rows, warnings); err != nil {
		return nil, err
	}
	return &snap, nil
}
