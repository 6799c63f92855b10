package leads

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadfinder/pkg/places"
)

// LocationResolver turns free-form location text into a coordinate pair.
type LocationResolver struct {
	client places.Client
}

func NewLocationResolver(client places.Client) *LocationResolver {
	return &LocationResolver{client: client}
}

// Resolve geocodes text. An unresolvable location returns
// ErrLocationNotFound; a denied request returns ErrRequestDenied. Transport
// failures surface as ErrUpstreamUnavailable since nothing downstream can
// proceed without a center.
func (r *LocationResolver) Resolve(ctx context.Context, text string) (GeoPoint, error) {
	resp, err := r.client.Geocode(ctx, text)
	if err != nil {
		return GeoPoint{}, eris.Wrapf(ErrUpstreamUnavailable, "geocode: %v", err)
	}

	switch resp.Status {
	case places.StatusOK:
		if len(resp.Results) == 0 {
			return GeoPoint{}, eris.Wrapf(ErrLocationNotFound, "geocode returned no results for %q", text)
		}
		loc := resp.Results[0].Geometry.Location
		return GeoPoint{Lat: loc.Lat, Lng: loc.Lng}, nil
	case places.StatusRequestDenied:
		return GeoPoint{}, eris.Wrapf(ErrRequestDenied, "geocode: %s", resp.ErrorMessage)
	default:
		// ZERO_RESULTS and transient provider statuses alike mean the
		// caller's text did not resolve this time.
		zap.L().Debug("geocode did not resolve",
			zap.String("query", text),
			zap.String("status", string(resp.Status)))
		return GeoPoint{}, eris.Wrapf(ErrLocationNotFound, "geocode status %s for %q", resp.Status, text)
	}
}
