package quota

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresWithPool(mock), mock
}

func TestPostgresStore_AdmitAdmitted(t *testing.T) {
	s, mock := newTestPostgresStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO usage_quotas").
		WithArgs("ip:1.2.3.4", now, now.Add(-time.Hour), 5).
		WillReturnRows(pgxmock.NewRows([]string{"search_count", "window_start"}).AddRow(3, now))

	r, err := s.Admit(context.Background(), AdmitRequest{
		Key: "ip:1.2.3.4", Ceiling: 5, Window: time.Hour, Now: now,
	})
	require.NoError(t, err)
	assert.True(t, r.Admitted)
	assert.Equal(t, 3, r.Count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AdmitRejected(t *testing.T) {
	s, mock := newTestPostgresStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	windowStart := now.Add(-10 * time.Minute)

	mock.ExpectQuery("INSERT INTO usage_quotas").
		WithArgs("ip:1.2.3.4", now, now.Add(-time.Hour), 5).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT search_count, window_start FROM usage_quotas").
		WithArgs("ip:1.2.3.4").
		WillReturnRows(pgxmock.NewRows([]string{"search_count", "window_start"}).AddRow(5, windowStart))

	r, err := s.Admit(context.Background(), AdmitRequest{
		Key: "ip:1.2.3.4", Ceiling: 5, Window: time.Hour, Now: now,
	})
	require.NoError(t, err)
	assert.False(t, r.Admitted)
	assert.Equal(t, 5, r.Count)
	assert.Equal(t, windowStart, r.WindowStart)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Usage(t *testing.T) {
	s, mock := newTestPostgresStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT search_count, window_start, first_seen, last_seen").
		WithArgs("acct:u1").
		WillReturnRows(pgxmock.NewRows([]string{"search_count", "window_start", "first_seen", "last_seen"}).
			AddRow(7, now, now.Add(-48*time.Hour), now))

	u, err := s.Usage(context.Background(), "acct:u1")
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, 7, u.SearchCount)
	assert.Equal(t, now.Add(-48*time.Hour), u.FirstSeen)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UsageUnknownKey(t *testing.T) {
	s, mock := newTestPostgresStore(t)

	mock.ExpectQuery("SELECT search_count, window_start, first_seen, last_seen").
		WithArgs("never-seen").
		WillReturnError(pgx.ErrNoRows)

	u, err := s.Usage(context.Background(), "never-seen")
	require.NoError(t, err)
	assert.Nil(t, u)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SweepStale(t *testing.T) {
	s, mock := newTestPostgresStore(t)
	horizon := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("UPDATE usage_quotas SET search_count = 0").
		WithArgs(horizon).
		WillReturnResult(pgxmock.NewResult("UPDATE", 3))

	n, err := s.SweepStale(context.Background(), horizon)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Migrate(t *testing.T) {
	s, mock := newTestPostgresStore(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS usage_quotas").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
