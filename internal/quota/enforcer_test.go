package quota

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuthorize_CeilingReached(t *testing.T) {
	e := NewEnforcer(NewMemoryStore(), DefaultPolicy())
	id := AnonymousIdentity("203.0.113.1")

	for i := 0; i < 5; i++ {
		d, err := e.Authorize(context.Background(), id)
		require.NoError(t, err)
		assert.True(t, d.Admitted, "search %d", i+1)
		assert.Equal(t, 15, d.ResultCap)
		assert.Equal(t, 4-i, d.Remaining)
	}

	d, err := e.Authorize(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, d.Admitted)
	assert.Contains(t, d.Reason, "search limit of 5")
}

func TestAuthorize_RejectionDoesNotConsumeSlot(t *testing.T) {
	e := NewEnforcer(NewMemoryStore(), DefaultPolicy())
	id := AnonymousIdentity("203.0.113.2")

	for i := 0; i < 8; i++ {
		_, err := e.Authorize(context.Background(), id)
		require.NoError(t, err)
	}

	u, err := e.Usage(context.Background(), id.Key)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, 5, u.SearchCount)
}

func TestAuthorize_WindowReset(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	e := NewEnforcer(NewMemoryStore(), DefaultPolicy(),
		WithClock(func() time.Time { return now }))
	id := AnonymousIdentity("203.0.113.3")

	for i := 0; i < 5; i++ {
		d, err := e.Authorize(context.Background(), id)
		require.NoError(t, err)
		require.True(t, d.Admitted)
	}
	d, err := e.Authorize(context.Background(), id)
	require.NoError(t, err)
	require.False(t, d.Admitted)

	// The window elapses; the very next check admits again without any
	// sweep having run.
	now = now.Add(24*time.Hour + time.Minute)
	d, err = e.Authorize(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, d.Admitted)
	assert.Equal(t, 4, d.Remaining)
}

func TestAuthorize_UnlimitedTier(t *testing.T) {
	e := NewEnforcer(NewMemoryStore(), DefaultPolicy())
	id := AccountIdentity("big-spender", TierUnlimited)

	for i := 0; i < 500; i++ {
		d, err := e.Authorize(context.Background(), id)
		require.NoError(t, err)
		require.True(t, d.Admitted)
		assert.Equal(t, -1, d.Remaining)
		assert.Zero(t, d.ResultCap)
	}
}

func TestAuthorize_UnknownTierGetsAnonymousLimits(t *testing.T) {
	e := NewEnforcer(NewMemoryStore(), DefaultPolicy())
	id := Identity{Key: "acct:odd", Tier: Tier("platinum")}

	for i := 0; i < 5; i++ {
		d, err := e.Authorize(context.Background(), id)
		require.NoError(t, err)
		require.True(t, d.Admitted)
	}
	d, err := e.Authorize(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, d.Admitted)
}

func TestIdentityKeys(t *testing.T) {
	assert.Equal(t, Identity{Key: "ip:203.0.113.9", Tier: TierAnonymous},
		AnonymousIdentity("203.0.113.9"))
	assert.Equal(t, Identity{Key: "acct:u1", Tier: TierPro},
		AccountIdentity("u1", TierPro))
}
