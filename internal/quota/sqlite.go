package quota

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite. Timestamps are
// stored as unix seconds so range comparisons stay exact.
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
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS usage_quotas (
	identity_key TEXT PRIMARY KEY,
	search_count INTEGER NOT NULL DEFAULT 0,
	window_start INTEGER NOT NULL,
	first_seen   INTEGER NOT NULL,
	last_seen    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_usage_quotas_last_seen ON usage_quotas(last_seen);
`

// Migrate creates the usage table.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Admit implements Store. The read-check-increment runs inside one
// transaction so concurrent callers with the same key serialize on the
// row: the conditional UPDATE either claims a slot or affects no rows.
func (s *SQLiteStore) Admit(ctx context.Context, req AdmitRequest) (*AdmitResult, error) {
	now := req.Now.Unix()
	resetBefore := req.Now.Add(-req.Window).Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback() //nolint:errcheck

	_, err = tx.ExecContext(ctx, `
		INSERT INTO usage_quotas (identity_key, search_count, window_start, first_seen, last_seen)
		VALUES (?, 0, ?, ?, ?)
		ON CONFLICT(identity_key) DO NOTHING`,
		req.Key, now, now, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: upsert identity")
	}

	// Lazy window reset, independent of admission.
	_, err = tx.ExecContext(ctx, `
		UPDATE usage_quotas SET search_count = 0, window_start = ?
		WHERE identity_key = ? AND window_start <= ?`,
		now, req.Key, resetBefore,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: reset window")
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE usage_quotas SET search_count = search_count + 1, last_seen = ?
		WHERE identity_key = ? AND (? <= 0 OR search_count < ?)`,
		now, req.Key, req.Ceiling, req.Ceiling,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: increment")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: rows affected")
	}

	var count int
	var windowStart int64
	row := tx.QueryRowContext(ctx,
		`SELECT search_count, window_start FROM usage_quotas WHERE identity_key = ?`, req.Key)
	if err := row.Scan(&count, &windowStart); err != nil {
		return nil, eris.Wrap(err, "sqlite: read counter")
	}

	if err := tx.Commit(); err != nil {
		return nil, eris.Wrap(err, "sqlite: commit")
	}

	return &AdmitResult{
		Admitted:    affected > 0,
		Count:       count,
		WindowStart: time.Unix(windowStart, 0).UTC(),
	}, nil
}

// Usage implements Store.
func (s *SQLiteStore) Usage(ctx context.Context, key string) (*Usage, error) {
	var count int
	var windowStart, firstSeen, lastSeen int64
	row := s.db.QueryRowContext(ctx, `
		SELECT search_count, window_start, first_seen, last_seen
		FROM usage_quotas WHERE identity_key = ?`, key)
	if err := row.Scan(&count, &windowStart, &firstSeen, &lastSeen); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrap(err, "sqlite: read usage")
	}
	return &Usage{
		Key:         key,
		SearchCount: count,
		WindowStart: time.Unix(windowStart, 0).UTC(),
		FirstSeen:   time.Unix(firstSeen, 0).UTC(),
		LastSeen:    time.Unix(lastSeen, 0).UTC(),
	}, nil
}

// SweepStale implements Store.
func (s *SQLiteStore) SweepStale(ctx context.Context, horizon time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE usage_quotas SET search_count = 0
		WHERE last_seen < ? AND search_count > 0`,
		horizon.Unix(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: sweep stale")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: sweep rows affected")
	}
	return n, nil
}
