package leads

import (
	"context"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadfinder/internal/quota"
	"github.com/sells-group/leadfinder/pkg/places"
)

// Pipeline wires resolution, normalization, pagination, qualification, and
// enrichment into a single discovery operation gated by quota.
type Pipeline struct {
	resolver   *LocationResolver
	normalizer *Normalizer
	paginator  *Paginator
	enricher   *Enricher
	enforcer   *quota.Enforcer
}

type PipelineOption func(*Pipeline)

// WithNormalizer replaces the built-in synonym table.
func WithNormalizer(n *Normalizer) PipelineOption {
	return func(p *Pipeline) { p.normalizer = n }
}

// WithPaginator replaces the default paginator, e.g. to shorten the token
// delay or cap pages.
func WithPaginator(pg *Paginator) PipelineOption {
	return func(p *Pipeline) { p.paginator = pg }
}

// WithEnricher replaces the default enricher, e.g. to change the fallback
// policy or worker count.
func WithEnricher(e *Enricher) PipelineOption {
	return func(p *Pipeline) { p.enricher = e }
}

func NewPipeline(client places.Client, enforcer *quota.Enforcer, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		resolver:   NewLocationResolver(client),
		normalizer: NewNormalizer(nil),
		paginator:  NewPaginator(client),
		enricher:   NewEnricher(client),
		enforcer:   enforcer,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Result is the outcome of one discovery run.
type Result struct {
	RequestID string   `json:"request_id"`
	Category  string   `json:"category"`
	Center    GeoPoint `json:"center"`
	Leads     []Lead   `json:"leads"`

	// Truncated reports that the caller's tier capped the lead list.
	Truncated bool `json:"truncated"`

	// Remaining is the caller's searches left in the window, -1 when
	// unbounded.
	Remaining int `json:"searches_remaining"`
}

// Discover runs the full pipeline for one request. Quota is charged before
// any provider call, and a rejected caller causes no provider traffic at
// all.
func (p *Pipeline) Discover(ctx context.Context, req SearchRequest) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	decision, err := p.enforcer.Authorize(ctx, req.Caller)
	if err != nil {
		return nil, eris.Wrap(err, "leads: authorize")
	}
	if !decision.Admitted {
		return nil, eris.Wrap(ErrQuotaExceeded, decision.Reason)
	}

	requestID := uuid.NewString()
	log := zap.L().With(
		zap.String("request_id", requestID),
		zap.String("caller", req.Caller.Key),
	)

	center, err := p.center(ctx, req)
	if err != nil {
		return nil, err
	}

	keyword := p.normalizer.Normalize(req.Category)
	radius := req.radiusMeters()
	log.Info("starting discovery",
		zap.String("keyword", keyword),
		zap.Float64("radius_meters", radius),
		zap.Float64("lat", center.Lat),
		zap.Float64("lng", center.Lng))

	candidates, err := p.paginator.Search(ctx, center, keyword, radius)
	if err != nil {
		return nil, err
	}

	qualifier, recheck := qualifierFor(req)
	qualified := candidates[:0:0]
	for _, c := range candidates {
		if qualifier.Qualifies(c) {
			qualified = append(qualified, c)
		}
	}

	leads := p.enricher.EnrichAll(ctx, qualified, EnrichSpec{
		Center:        center,
		Category:      keyword,
		ReviewCeiling: req.ReviewCeiling,
		Recheck:       recheck,
	})

	truncated := false
	if decision.ResultCap > 0 && len(leads) > decision.ResultCap {
		leads = leads[:decision.ResultCap]
		truncated = true
	}

	log.Info("discovery complete",
		zap.Int("candidates", len(candidates)),
		zap.Int("qualified", len(qualified)),
		zap.Int("leads", len(leads)),
		zap.Bool("truncated", truncated))

	return &Result{
		RequestID: requestID,
		Category:  keyword,
		Center:    center,
		Leads:     leads,
		Truncated: truncated,
		Remaining: decision.Remaining,
	}, nil
}

func (p *Pipeline) center(ctx context.Context, req SearchRequest) (GeoPoint, error) {
	if req.Coordinates != nil {
		return *req.Coordinates, nil
	}
	return p.resolver.Resolve(ctx, req.Origin)
}

// qualifierFor picks the screening predicate for a request. Low-competition
// mode also rechecks after enrichment, since the website signal only exists
// once details are fetched.
func qualifierFor(req SearchRequest) (Qualifier, Qualifier) {
	if req.LowCompetition {
		max := req.ReviewCeiling
		if max <= 0 {
			max = DefaultLowCompetitionReviews
		}
		q := LowCompetition{MaxReviews: max}
		return q, q
	}
	return Operational{}, nil
}
