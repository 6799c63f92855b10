package leads

import (
	"context"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadfinder/pkg/places"
)

// FallbackPolicy controls what happens to a candidate whose detail lookup
// fails.
type FallbackPolicy string

const (
	// FallbackLenient keeps the candidate using its coarse search fields.
	FallbackLenient FallbackPolicy = "lenient"
	// FallbackStrict drops the candidate.
	FallbackStrict FallbackPolicy = "strict"
)

const defaultEnrichWorkers = 4

// Enricher fetches place details for qualified candidates in parallel and
// assembles Lead records.
type Enricher struct {
	client  places.Client
	policy  FallbackPolicy
	workers int
}

type EnricherOption func(*Enricher)

// WithFallbackPolicy sets the behavior for failed detail lookups.
func WithFallbackPolicy(p FallbackPolicy) EnricherOption {
	return func(e *Enricher) {
		if p == FallbackStrict {
			e.policy = FallbackStrict
		} else {
			e.policy = FallbackLenient
		}
	}
}

// WithWorkers bounds concurrent detail lookups.
func WithWorkers(n int) EnricherOption {
	return func(e *Enricher) {
		if n > 0 {
			e.workers = n
		}
	}
}

func NewEnricher(client places.Client, opts ...EnricherOption) *Enricher {
	e := &Enricher{
		client:  client,
		policy:  FallbackLenient,
		workers: defaultEnrichWorkers,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EnrichSpec carries the per-batch parameters for enrichment.
type EnrichSpec struct {
	// Center is the search origin; every lead is annotated with its
	// distance from it.
	Center GeoPoint

	// Category labels the resulting leads.
	Category string

	// ReviewCeiling discards leads whose enriched review count exceeds it.
	// Zero disables the cut.
	ReviewCeiling int

	// Recheck, when set, is re-applied against the enriched fields. Used by
	// low-competition mode, whose website signal only exists post-detail.
	Recheck Qualifier
}

// EnrichAll fetches details for every candidate with bounded parallelism.
// Per-candidate failures never fail the batch; provider ordering of the
// survivors is preserved.
func (e *Enricher) EnrichAll(ctx context.Context, candidates []PlaceCandidate, spec EnrichSpec) []Lead {
	slots := make([]*Lead, len(candidates))

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(e.workers)
	for i, c := range candidates {
		eg.Go(func() error {
			slots[i] = e.enrichOne(gctx, c, spec)
			return nil
		})
	}
	_ = eg.Wait()

	leads := make([]Lead, 0, len(candidates))
	for _, l := range slots {
		if l != nil {
			leads = append(leads, *l)
		}
	}
	return leads
}

func (e *Enricher) enrichOne(ctx context.Context, c PlaceCandidate, spec EnrichSpec) *Lead {
	lead := e.fetch(ctx, c)
	if lead == nil {
		return nil
	}
	if spec.ReviewCeiling > 0 && lead.ReviewCount > spec.ReviewCeiling {
		zap.L().Debug("lead over review ceiling",
			zap.String("place_id", lead.PlaceID),
			zap.Int("reviews", lead.ReviewCount))
		return nil
	}
	if spec.Recheck != nil && !spec.Recheck.Qualifies(enrichedView(lead)) {
		zap.L().Debug("lead failed post-enrichment qualification",
			zap.String("place_id", lead.PlaceID))
		return nil
	}

	lead.Category = spec.Category
	lead.DistanceMeters = geo.Distance(
		orb.Point{spec.Center.Lng, spec.Center.Lat},
		orb.Point{lead.Location.Lng, lead.Location.Lat},
	)
	return lead
}

func (e *Enricher) fetch(ctx context.Context, c PlaceCandidate) *Lead {
	resp, err := e.client.FetchDetails(ctx, places.DetailsRequest{
		PlaceID: c.ID,
		Fields:  places.DetailFields,
	})

	switch {
	case err != nil:
		zap.L().Warn("detail lookup failed",
			zap.String("place_id", c.ID),
			zap.Error(err))
	case resp.Status != places.StatusOK || resp.Result == nil:
		zap.L().Warn("detail lookup returned no result",
			zap.String("place_id", c.ID),
			zap.String("status", string(resp.Status)))
	default:
		return leadFromDetail(c, resp.Result)
	}

	if e.policy == FallbackStrict {
		return nil
	}
	return fallbackLead(c)
}

func leadFromDetail(c PlaceCandidate, d *places.PlaceDetail) *Lead {
	lead := &Lead{
		PlaceID:        c.ID,
		Name:           firstNonEmpty(d.Name, c.Name),
		Address:        firstNonEmpty(d.FormattedAddress, c.Vicinity),
		Location:       c.Location,
		Rating:         c.Rating,
		ReviewCount:    c.ReviewCount,
		Phone:          d.FormattedPhoneNumber,
		Website:        d.Website,
		OpeningHours:   formatHours(d.OpeningHours),
		BusinessStatus: firstNonEmpty(d.BusinessStatus, c.BusinessStatus),
	}
	if d.Geometry.Location != (places.LatLng{}) {
		lead.Location = GeoPoint{
			Lat: d.Geometry.Location.Lat,
			Lng: d.Geometry.Location.Lng,
		}
	}
	if d.Rating != 0 {
		lead.Rating = d.Rating
	}
	if d.UserRatingsTotal != 0 {
		lead.ReviewCount = d.UserRatingsTotal
	}
	return lead
}

// fallbackLead builds a lead from the coarse search hit alone.
func fallbackLead(c PlaceCandidate) *Lead {
	return &Lead{
		PlaceID:        c.ID,
		Name:           c.Name,
		Address:        c.Vicinity,
		Location:       c.Location,
		Rating:         c.Rating,
		ReviewCount:    c.ReviewCount,
		OpeningHours:   hoursUnavailable,
		BusinessStatus: c.BusinessStatus,
	}
}

// enrichedView projects a lead back into candidate shape so a Qualifier can
// re-evaluate it with the detail fields filled in.
func enrichedView(l *Lead) PlaceCandidate {
	return PlaceCandidate{
		ID:             l.PlaceID,
		Name:           l.Name,
		Location:       l.Location,
		Rating:         l.Rating,
		ReviewCount:    l.ReviewCount,
		BusinessStatus: l.BusinessStatus,
		Website:        l.Website,
	}
}

func formatHours(h *places.OpeningHours) string {
	if h == nil || len(h.WeekdayText) == 0 {
		return hoursUnavailable
	}
	return strings.Join(h.WeekdayText, "\n")
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
