package quota

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweepOnce(t *testing.T) {
	s := NewMemoryStore()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := s.Admit(context.Background(), AdmitRequest{Key: "stale", Ceiling: 5, Window: time.Hour, Now: now.Add(-3 * time.Hour)})
	require.NoError(t, err)
	_, err = s.Admit(context.Background(), AdmitRequest{Key: "live", Ceiling: 5, Window: time.Hour, Now: now})
	require.NoError(t, err)

	sw := NewSweeper(s, 24*time.Hour, time.Minute)
	sw.clock = func() time.Time { return now.Add(22 * time.Hour) }

	sw.SweepOnce(context.Background())

	stale, err := s.Usage(context.Background(), "stale")
	require.NoError(t, err)
	assert.Zero(t, stale.SearchCount)

	live, err := s.Usage(context.Background(), "live")
	require.NoError(t, err)
	assert.Equal(t, 1, live.SearchCount)
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	sw := NewSweeper(NewMemoryStore(), time.Hour, time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sw.Run(ctx)
		close(done)
	}()

	time.Sleep(5 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}
