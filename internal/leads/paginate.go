package leads

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadfinder/pkg/places"
)

const (
	// defaultTokenDelay covers the provider's token warm-up: a continuation
	// token is rejected if presented immediately after issue.
	defaultTokenDelay = 2 * time.Second

	// defaultMaxPages bounds pagination against a provider that keeps
	// issuing tokens. The API itself stops at three pages.
	defaultMaxPages = 10
)

// Paginator walks a nearby search to exhaustion, deduplicating across pages.
type Paginator struct {
	client     places.Client
	tokenDelay time.Duration
	maxPages   int
}

type PaginatorOption func(*Paginator)

// WithTokenDelay overrides the wait before presenting a continuation token.
// Tests set this to zero.
func WithTokenDelay(d time.Duration) PaginatorOption {
	return func(p *Paginator) { p.tokenDelay = d }
}

// WithMaxPages overrides the pagination safety bound.
func WithMaxPages(n int) PaginatorOption {
	return func(p *Paginator) {
		if n > 0 {
			p.maxPages = n
		}
	}
}

func NewPaginator(client places.Client, opts ...PaginatorOption) *Paginator {
	p := &Paginator{
		client:     client,
		tokenDelay: defaultTokenDelay,
		maxPages:   defaultMaxPages,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Search collects every page of a nearby search into a single candidate
// slice. Each place appears at most once even when pages overlap. A failure
// after the first page returns the candidates gathered so far rather than
// discarding them; a failure on the first page is fatal.
func (p *Paginator) Search(ctx context.Context, center GeoPoint, keyword string, radiusMeters float64) ([]PlaceCandidate, error) {
	log := zap.L().With(
		zap.String("keyword", keyword),
		zap.Float64("radius_meters", radiusMeters),
	)

	var out []PlaceCandidate
	seen := make(map[string]struct{})
	token := ""

	for page := 0; page < p.maxPages; page++ {
		if page > 0 {
			if err := p.waitForToken(ctx); err != nil {
				return out, eris.Wrap(err, "leads: pagination interrupted")
			}
		}

		req := places.NearbySearchRequest{PageToken: token}
		if page == 0 {
			req = places.NearbySearchRequest{
				Location:     places.LatLng{Lat: center.Lat, Lng: center.Lng},
				RadiusMeters: radiusMeters,
				Keyword:      keyword,
			}
		}

		resp, err := p.client.SearchNearby(ctx, req)
		if err != nil {
			if page == 0 {
				return nil, eris.Wrapf(ErrUpstreamUnavailable, "nearby search: %v", err)
			}
			log.Warn("search page failed, keeping partial results",
				zap.Int("page", page),
				zap.Int("candidates", len(out)),
				zap.Error(err))
			return out, nil
		}

		switch resp.Status {
		case places.StatusOK:
		case places.StatusZeroResults:
			return out, nil
		case places.StatusRequestDenied:
			return out, eris.Wrapf(ErrRequestDenied, "nearby search: %s", resp.ErrorMessage)
		default:
			if page == 0 {
				return nil, eris.Wrapf(ErrUpstreamUnavailable, "nearby search status %s", resp.Status)
			}
			log.Warn("search page returned bad status, keeping partial results",
				zap.Int("page", page),
				zap.String("status", string(resp.Status)))
			return out, nil
		}

		for _, r := range resp.Results {
			if _, dup := seen[r.PlaceID]; dup {
				continue
			}
			seen[r.PlaceID] = struct{}{}
			out = append(out, candidateFromResult(r))
		}

		if resp.NextPageToken == "" {
			return out, nil
		}
		token = resp.NextPageToken
	}

	log.Warn("pagination stopped at page limit", zap.Int("max_pages", p.maxPages))
	return out, nil
}

func (p *Paginator) waitForToken(ctx context.Context) error {
	if p.tokenDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(p.tokenDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
