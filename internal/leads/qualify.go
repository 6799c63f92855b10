package leads

// DefaultLowCompetitionReviews is the review count at which a business is
// no longer considered under-served.
const DefaultLowCompetitionReviews = 15

// Qualifier decides whether a candidate is worth enriching. Implementations
// must be pure: no I/O, no provider calls.
type Qualifier interface {
	Qualifies(c PlaceCandidate) bool
}

// Operational admits any candidate the provider reports as open for
// business. The default qualifier.
type Operational struct{}

func (Operational) Qualifies(c PlaceCandidate) bool {
	return c.BusinessStatus == BusinessStatusOperational
}

// LowCompetition admits operational businesses with no website and fewer
// than MaxReviews reviews. Candidates from a nearby search carry no website
// field, so this qualifier is re-applied after enrichment fills it in.
type LowCompetition struct {
	MaxReviews int
}

func (q LowCompetition) Qualifies(c PlaceCandidate) bool {
	if c.BusinessStatus != BusinessStatusOperational {
		return false
	}
	if c.Website != "" {
		return false
	}
	max := q.MaxReviews
	if max <= 0 {
		max = DefaultLowCompetitionReviews
	}
	return c.ReviewCount < max
}
