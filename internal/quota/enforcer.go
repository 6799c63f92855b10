package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Decision is the outcome of an authorization check.
type Decision struct {
	Admitted bool
	// ResultCap truncates the caller's lead list; zero means uncapped.
	ResultCap int
	// Remaining is the number of searches left in the window after this
	// one; negative means unbounded.
	Remaining int
	// Reason is set when the search was rejected.
	Reason string
}

// Enforcer applies a Policy against a Store.
type Enforcer struct {
	store  Store
	policy Policy
	clock  func() time.Time
}

// EnforcerOption configures an Enforcer.
type EnforcerOption func(*Enforcer)

// WithClock overrides the time source, for tests.
func WithClock(clock func() time.Time) EnforcerOption {
	return func(e *Enforcer) {
		e.clock = clock
	}
}

// NewEnforcer creates an Enforcer over the given store and policy.
func NewEnforcer(store Store, policy Policy, opts ...EnforcerOption) *Enforcer {
	e := &Enforcer{
		store:  store,
		policy: policy,
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Authorize admits or rejects one search for the identity. Rejection is an
// ordinary outcome, not an error, and does not consume a quota slot. The
// window-elapsed check happens inside the store on every call; the
// background sweep is only a cleanup optimization.
func (e *Enforcer) Authorize(ctx context.Context, id Identity) (*Decision, error) {
	limits, ok := e.policy.Tiers[id.Tier]
	if !ok {
		// Unknown tiers get the anonymous limits rather than a free pass.
		limits = e.policy.Tiers[TierAnonymous]
	}

	ceiling := limits.SearchCeiling
	if limits.Unbounded {
		ceiling = 0
	}

	res, err := e.store.Admit(ctx, AdmitRequest{
		Key:     id.Key,
		Ceiling: ceiling,
		Window:  e.policy.Window,
		Now:     e.clock(),
	})
	if err != nil {
		return nil, eris.Wrap(err, "quota: admit")
	}

	if !res.Admitted {
		zap.L().Info("search rejected by quota",
			zap.String("key", id.Key),
			zap.String("tier", string(id.Tier)),
			zap.Int("ceiling", ceiling),
		)
		return &Decision{
			Admitted: false,
			Reason:   fmt.Sprintf("search limit of %d per window reached", ceiling),
		}, nil
	}

	remaining := -1
	if ceiling > 0 {
		remaining = ceiling - res.Count
	}
	return &Decision{
		Admitted:  true,
		ResultCap: limits.ResultCap,
		Remaining: remaining,
	}, nil
}

// Usage returns the stored counter state for an identity key.
func (e *Enforcer) Usage(ctx context.Context, key string) (*Usage, error) {
	u, err := e.store.Usage(ctx, key)
	if err != nil {
		return nil, eris.Wrap(err, "quota: usage")
	}
	return u, nil
}
