package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/htm-dashboard/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS kpi_snapshots (
	id         TEXT PRIMARY KEY,
	created_by TEXT NOT NULL,
	source     TEXT NOT NULL,
	year       INTEGER NOT NULL DEFAULT 0,
	policy     TEXT NOT NULL,
	rows       TEXT NOT NULL,
	warnings   TEXT NOT NULL DEFAULT '[]',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS simulation_runs (
	id            TEXT PRIMARY KEY,
	created_by    TEXT NOT NULL,
	draws         INTEGER NOT NULL,
	seed          INTEGER NOT NULL,
	prob_delay    REAL NOT NULL,
	prob_stockout REAL NOT NULL,
	created_at    DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_kpi_snapshots_created_at ON kpi_snapshots(created_at);
CREATE INDEX IF NOT EXISTS idx_kpi_snapshots_created_by ON kpi_snapshots(created_by);
CREATE INDEX IF NOT EXISTS idx_simulation_runs_created_at ON simulation_runs(created_at);
`

// Migrate creates the tables if they do not exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveSnapshot assigns an id and timestamp to snap and inserts it.
func (s *SQLiteStore) SaveSnapshot(ctx context.Context, snap *model.Snapshot) error {
	cols, err := encodeSnapshot(snap)
	if err != nil {
		return eris.Wrap(err, "sqlite: encode snapshot")
	}
	snap.ID = uuid.New().String()
	snap.CreatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO kpi_snapshots (id, created_by, source, year, policy, rows, warnings, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.CreatedBy, snap.Source, snap.Year, string(cols.policy), string(cols.rows), string(cols.warnings), snap.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert snapshot")
}

// GetSnapshot returns the snapshot with the given id, or ErrNotFound.
func (s *SQLiteStore) GetSnapshot(ctx context.Context, id string) (*model.Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, created_by, source, year, policy, rows, warnings, created_at FROM kpi_snapshots WHERE id = ?`,
		id,
	)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: snapshot %s", id)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get snapshot")
	}
	return snap, nil
}

// ListSnapshots returns snapshots newest first.
func (s *SQLiteStore) ListSnapshots(ctx context.Context, filter SnapshotFilter) ([]model.Snapshot, error) {
	query := `SELECT id, created_by, source, year, policy, rows, warnings, created_at FROM kpi_snapshots WHERE 1=1`
	var args []any

	if filter.CreatedBy != "" {
		query += ` AND created_by = ?`
		args = append(args, filter.CreatedBy)
	}
	if filter.Year > 0 {
		query += ` AND year = ?`
		args = append(args, filter.Year)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, filter.limit())

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list snapshots")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan snapshot")
		}
		out = append(out, *snap)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list snapshots iterate")
}

// SaveSimulation assigns an id and timestamp to run and inserts it.
func (s *SQLiteStore) SaveSimulation(ctx context.Context, run *model.SimulationRun) error {
	run.ID = uuid.New().String()
	run.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO simulation_runs (id, created_by, draws, seed, prob_delay, prob_stockout, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedBy, run.Draws, int64(run.Seed), run.ProbDelay, run.ProbStockout, run.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert simulation")
}

// ListSimulations returns the most recent simulation runs.
func (s *SQLiteStore) ListSimulations(ctx context.Context, limit int) ([]model.SimulationRun, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, created_by, draws, seed, prob_delay, prob_stockout, created_at FROM simulation_runs ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list simulations")
	}
	defer rows.Close() //nolint:errcheck

	var out []model.SimulationRun
	for rows.Next() {
		var (
			r    model.SimulationRun
			seed int64
		)
		if err := rows.Scan(&r.ID, &r.CreatedBy, &r.Draws, &seed, &r.ProbDelay, &r.ProbStockout, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan simulation")
		}
		r.Seed = uint64(seed)
		out = append(out, r)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list simulations iterate")
}

// helpers

type snapshotColumns struct {
	policy, rows, warnings []byte
}

func encodeSnapshot(snap *model.Snapshot) (snapshotColumns, error) {
	var (
		c   snapshotColumns
		err error
	)
	c.policy = snap.Policy
	if len(c.policy) == 0 {
		c.policy = []byte("{}")
	}
	if c.rows, err = json.Marshal(nonNil(snap.Rows)); err != nil {
		return c, err
	}
	if c.warnings, err = json.Marshal(nonNil(snap.Warnings)); err != nil {
		return c, err
	}
	return c, nil
}

func decodeSnapshot(snap *model.Snapshot, policy, rows, warnings []byte) error {
	snap.Policy = json.RawMessage(policy)
	if err := json.Unmarshal(rows, &snap.Rows); err != nil {
		return eris.Wrap(err, "unmarshal rows")
	}
	if err := json.Unmarshal(warnings, &snap.Warnings); err != nil {
		return eris.Wrap(err, "unmarshal warnings")
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scannable) (*model.Snapshot, error) {
	var (
		snap                   model.Snapshot
		policy, rows, warnings string
	)
	if err := row.Scan(&snap.ID, &snap.CreatedBy, &snap.Source, &snap.Year, &policy, &rows, &warnings, &snap.CreatedAt); err != nil {
		return nil, err
	}
	if err := decodeSnapshot(&snap, []byte(policy), []byte(rows), []byte(warnings)); err != nil {
		return nil, err
	}
	return &snap, nil
}
