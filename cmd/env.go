package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadfinder/internal/leads"
	"github.com/sells-group/leadfinder/internal/quota"
	"github.com/sells-group/leadfinder/pkg/places"
)

// appEnv holds the initialized store, provider client, and pipeline shared
// by the discover/serve/quota commands.
type appEnv struct {
	Store    quota.Store
	Enforcer *quota.Enforcer
	Pipeline *leads.Pipeline
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates config for the given mode and wires the store, client,
// enforcer, and pipeline. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initQuotaStore(ctx)
	if err != nil {
		return nil, err
	}

	client := places.NewClient(cfg.Google.APIKey,
		places.WithBaseURL(cfg.Google.BaseURL),
		places.WithRateLimit(cfg.Google.RateLimit),
	)

	enforcer := quota.NewEnforcer(st, quotaPolicy())

	normalizer, err := initNormalizer()
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	pipe := leads.NewPipeline(client, enforcer,
		leads.WithNormalizer(normalizer),
		leads.WithPaginator(leads.NewPaginator(client,
			leads.WithTokenDelay(time.Duration(cfg.Pipeline.PageDelaySecs)*time.Second),
			leads.WithMaxPages(cfg.Pipeline.MaxPages),
		)),
		leads.WithEnricher(leads.NewEnricher(client,
			leads.WithFallbackPolicy(leads.FallbackPolicy(cfg.Pipeline.FallbackPolicy)),
			leads.WithWorkers(cfg.Pipeline.EnrichWorkers),
		)),
	)

	return &appEnv{
		Store:    st,
		Enforcer: enforcer,
		Pipeline: pipe,
	}, nil
}

func initQuotaStore(ctx context.Context) (quota.Store, error) {
	switch cfg.Quota.Store {
	case "memory":
		return quota.NewMemoryStore(), nil
	case "sqlite":
		st, err := quota.NewSQLite(cfg.Quota.SQLitePath)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, err
		}
		return st, nil
	case "postgres":
		st, err := quota.NewPostgres(ctx, cfg.Quota.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			_ = st.Close()
			return nil, err
		}
		return st, nil
	default:
		return nil, eris.Errorf("unknown quota store %q", cfg.Quota.Store)
	}
}

func quotaPolicy() quota.Policy {
	return quota.Policy{
		Window: cfg.Quota.Window(),
		Tiers: map[quota.Tier]quota.Limits{
			quota.TierAnonymous: {
				SearchCeiling: cfg.Quota.AnonymousSearches,
				ResultCap:     cfg.Quota.AnonymousResultCap,
			},
			quota.TierStarter:   {SearchCeiling: cfg.Quota.StarterSearches},
			quota.TierPro:       {SearchCeiling: cfg.Quota.ProSearches},
			quota.TierUnlimited: {Unbounded: true},
		},
	}
}

func initNormalizer() (*leads.Normalizer, error) {
	if cfg.Pipeline.SynonymFile == "" {
		return leads.NewNormalizer(nil), nil
	}
	extra, err := leads.LoadSynonyms(cfg.Pipeline.SynonymFile)
	if err != nil {
		return nil, err
	}
	return leads.NewNormalizer(extra), nil
}
