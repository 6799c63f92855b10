package quota

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// PgxPool is the subset of pgxpool.Pool the store uses, split out so tests
// can substitute pgxmock.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PostgresStore implements Store using pgx. Admission is a single
// conditional upsert, so concurrent requests for the same key serialize on
// the row without a separate read-then-write.
type PostgresStore struct {
	pool PgxPool
}

// NewPostgres connects a PostgresStore to the given database URL.
func NewPostgres(ctx context.Context, connString string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 10
	cfg.MaxConnLifetime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool}, nil
}

// NewPostgresWithPool wraps an existing pool; used by tests.
func NewPostgresWithPool(pool PgxPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS usage_quotas (
	identity_key TEXT PRIMARY KEY,
	search_count INTEGER NOT NULL DEFAULT 0,
	window_start TIMESTAMPTZ NOT NULL,
	first_seen   TIMESTAMPTZ NOT NULL,
	last_seen    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_usage_quotas_last_seen ON usage_quotas(last_seen);
`

// Migrate creates the usage table.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

// Close implements Store.
func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

// admitSQL claims one search slot in a single statement: the upsert resets
// an elapsed window, increments otherwise, and refuses to fire at all when
// the ceiling is already reached ($4 is the ceiling, <= 0 means none).
const admitSQL = `
INSERT INTO usage_quotas (identity_key, search_count, window_start, first_seen, last_seen)
VALUES ($1, 1, $2, $2, $2)
ON CONFLICT (identity_key) DO UPDATE SET
	search_count = CASE WHEN usage_quotas.window_start <= $3 THEN 1 ELSE usage_quotas.search_count + 1 END,
	window_start = CASE WHEN usage_quotas.window_start <= $3 THEN $2 ELSE usage_quotas.window_start END,
	last_seen    = $2
WHERE $4 <= 0
   OR usage_quotas.window_start <= $3
   OR usage_quotas.search_count < $4
RETURNING search_count, window_start`

// Admit implements Store.
func (s *PostgresStore) Admit(ctx context.Context, req AdmitRequest) (*AdmitResult, error) {
	resetBefore := req.Now.Add(-req.Window)

	var count int
	var windowStart time.Time
	err := s.pool.QueryRow(ctx, admitSQL, req.Key, req.Now, resetBefore, req.Ceiling).
		Scan(&count, &windowStart)
	if err == nil {
		return &AdmitResult{Admitted: true, Count: count, WindowStart: windowStart}, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrap(err, "postgres: admit")
	}

	// Rejected: the upsert did not fire. Read the current count for the caller.
	row := s.pool.QueryRow(ctx,
		`SELECT search_count, window_start FROM usage_quotas WHERE identity_key = $1`, req.Key)
	if err := row.Scan(&count, &windowStart); err != nil {
		return nil, eris.Wrap(err, "postgres: read counter")
	}
	return &AdmitResult{Admitted: false, Count: count, WindowStart: windowStart}, nil
}

// Usage implements Store.
func (s *PostgresStore) Usage(ctx context.Context, key string) (*Usage, error) {
	u := &Usage{Key: key}
	row := s.pool.QueryRow(ctx, `
		SELECT search_count, window_start, first_seen, last_seen
		FROM usage_quotas WHERE identity_key = $1`, key)
	if err := row.Scan(&u.SearchCount, &u.WindowStart, &u.FirstSeen, &u.LastSeen); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "postgres: read usage")
	}
	return u, nil
}

// SweepStale implements Store.
func (s *PostgresStore) SweepStale(ctx context.Context, horizon time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `
		UPDATE usage_quotas SET search_count = 0
		WHERE last_seen < $1 AND search_count > 0`, horizon)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: sweep stale")
	}
	return tag.RowsAffected(), nil
}
