// Package quota implements per-caller admission control for lead searches.
// Each identity (anonymous IP or authenticated account) owns a rolling-window
// counter; a search is admitted only while the counter is below the caller's
// tier ceiling. The counter store performs the check-and-increment atomically
// per key so concurrent requests cannot jointly exceed a ceiling.
package quota

import (
	"context"
	"time"
)

// Tier is a caller's privilege class.
type Tier string

const (
	TierAnonymous Tier = "anonymous"
	TierStarter   Tier = "starter"
	TierPro       Tier = "pro"
	TierUnlimited Tier = "unlimited"
)

// Identity names the party a counter belongs to.
type Identity struct {
	Key  string
	Tier Tier
}

// AnonymousIdentity derives an identity from a caller network address.
func AnonymousIdentity(ip string) Identity {
	return Identity{Key: "ip:" + ip, Tier: TierAnonymous}
}

// AccountIdentity derives an identity from an authenticated account.
func AccountIdentity(accountID string, tier Tier) Identity {
	return Identity{Key: "acct:" + accountID, Tier: tier}
}

// Limits holds the per-tier ceilings. A zero ResultCap means uncapped.
type Limits struct {
	// SearchCeiling is the number of admitted searches per window.
	SearchCeiling int
	// ResultCap truncates the lead list returned to this tier.
	ResultCap int
	// Unbounded disables the search ceiling entirely.
	Unbounded bool
}

// Policy maps tiers to limits over a shared rolling window.
type Policy struct {
	Window time.Duration
	Tiers  map[Tier]Limits
}

// DefaultPolicy returns the stock quota policy: anonymous callers get a
// small fixed search ceiling plus a result cap, paid plans scale the
// ceiling, and the top plan is unbounded.
func DefaultPolicy() Policy {
	return Policy{
		Window: 24 * time.Hour,
		Tiers: map[Tier]Limits{
			TierAnonymous: {SearchCeiling: 5, ResultCap: 15},
			TierStarter:   {SearchCeiling: 25},
			TierPro:       {SearchCeiling: 100},
			TierUnlimited: {Unbounded: true},
		},
	}
}

// Usage is the stored counter state for one identity key.
type Usage struct {
	Key         string
	SearchCount int
	WindowStart time.Time
	FirstSeen   time.Time
	LastSeen    time.Time
}

// AdmitRequest asks the store to admit one search for a key. A Ceiling of
// zero or less means no ceiling. The store resets the window lazily when
// WindowStart is at least Window old relative to Now.
type AdmitRequest struct {
	Key     string
	Ceiling int
	Window  time.Duration
	Now     time.Time
}

// AdmitResult reports the outcome of an admit attempt. Count is the
// count-in-window after the attempt (unchanged when not admitted).
type AdmitResult struct {
	Admitted    bool
	Count       int
	WindowStart time.Time
}

// Store is the authoritative usage-counter store. Admit must be atomic per
// key: two concurrent calls for the same key must never both be admitted
// past the ceiling.
type Store interface {
	Admit(ctx context.Context, req AdmitRequest) (*AdmitResult, error)

	// Usage returns the stored state for a key, or nil when never seen.
	Usage(ctx context.Context, key string) (*Usage, error)

	// SweepStale zeroes (never deletes) counters whose last activity
	// predates horizon, returning the number of counters zeroed.
	SweepStale(ctx context.Context, horizon time.Time) (int64, error)

	Close() error
}
