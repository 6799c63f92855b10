// Package leads discovers qualified business leads around a location by
// geocoding an origin, paging a nearby search, qualifying candidates, and
// enriching the survivors with contact detail.
package leads

import (
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadfinder/internal/quota"
	"github.com/sells-group/leadfinder/pkg/places"
)

const (
	// MetersPerMile converts user-facing radii to the provider's unit.
	MetersPerMile = 1609.34

	// DefaultRadiusMiles is used when a request carries no radius.
	DefaultRadiusMiles = 3.0

	// BusinessStatusOperational is the provider's open-for-business marker.
	BusinessStatusOperational = "OPERATIONAL"

	// hoursUnavailable fills the opening-hours field when detail lookup
	// yields nothing.
	hoursUnavailable = "Not available"
)

// GeoPoint is a WGS84 coordinate pair.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// SearchRequest describes one discovery run. Coordinates, when set, take
// precedence over Origin and skip geocoding entirely.
type SearchRequest struct {
	// Category is the business category as the user typed it.
	Category string `json:"category"`

	// Origin is free-form location text, e.g. "Austin, TX".
	Origin string `json:"origin"`

	// Coordinates pins the search center directly.
	Coordinates *GeoPoint `json:"coordinates,omitempty"`

	// RadiusMiles is the search radius. Zero means DefaultRadiusMiles.
	RadiusMiles float64 `json:"radius_miles"`

	// ReviewCeiling discards enriched leads with more reviews than this.
	// Zero disables the cut.
	ReviewCeiling int `json:"review_ceiling"`

	// LowCompetition narrows qualification to operational businesses with
	// no website and few reviews.
	LowCompetition bool `json:"low_competition"`

	// Caller identifies who is asking, for quota accounting.
	Caller quota.Identity `json:"-"`
}

func (r SearchRequest) validate() error {
	if strings.TrimSpace(r.Category) == "" {
		return eris.Wrap(ErrInvalidRequest, "category is required")
	}
	if r.Coordinates == nil && strings.TrimSpace(r.Origin) == "" {
		return eris.Wrap(ErrInvalidRequest, "an origin or coordinates are required")
	}
	if r.RadiusMiles < 0 {
		return eris.Wrap(ErrInvalidRequest, "radius must not be negative")
	}
	return nil
}

func (r SearchRequest) radiusMeters() float64 {
	miles := r.RadiusMiles
	if miles == 0 {
		miles = DefaultRadiusMiles
	}
	return miles * MetersPerMile
}

// PlaceCandidate is a coarse search hit, pre-qualification.
type PlaceCandidate struct {
	ID             string
	Name           string
	Vicinity       string
	Location       GeoPoint
	Rating         float64
	ReviewCount    int
	BusinessStatus string
	Website        string
}

func candidateFromResult(r places.SearchResult) PlaceCandidate {
	return PlaceCandidate{
		ID:       r.PlaceID,
		Name:     r.Name,
		Vicinity: r.Vicinity,
		Location: GeoPoint{
			Lat: r.Geometry.Location.Lat,
			Lng: r.Geometry.Location.Lng,
		},
		Rating:         r.Rating,
		ReviewCount:    r.UserRatingsTotal,
		BusinessStatus: r.BusinessStatus,
	}
}

// Lead is a qualified, enriched business record.
type Lead struct {
	PlaceID        string   `json:"place_id"`
	Name           string   `json:"name"`
	Address        string   `json:"address"`
	Location       GeoPoint `json:"location"`
	Rating         float64  `json:"rating"`
	ReviewCount    int      `json:"review_count"`
	Phone          string   `json:"phone,omitempty"`
	Website        string   `json:"website,omitempty"`
	OpeningHours   string   `json:"opening_hours"`
	Category       string   `json:"category"`
	BusinessStatus string   `json:"business_status"`
	DistanceMeters float64  `json:"distance_meters"`
}
