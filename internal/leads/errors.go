package leads

import "github.com/rotisserie/eris"

// Sentinel errors returned by the discovery pipeline. The web layer
// translates these into user-facing responses; only ErrRequestDenied and
// ErrUpstreamUnavailable indicate a system fault worth alerting on.
var (
	// ErrInvalidRequest marks a caller error: missing category or no
	// location signal. Rejected before any provider call.
	ErrInvalidRequest = eris.New("invalid search request")

	// ErrLocationNotFound marks an origin that geocoding could not resolve.
	// Expected and user-correctable.
	ErrLocationNotFound = eris.New("location not found")

	// ErrQuotaExceeded marks a caller over their search ceiling.
	ErrQuotaExceeded = eris.New("search quota exceeded")

	// ErrUpstreamUnavailable marks a total provider failure with zero
	// partial results.
	ErrUpstreamUnavailable = eris.New("places provider unavailable")

	// ErrRequestDenied marks a provider credential or configuration
	// problem. Fatal; never retried.
	ErrRequestDenied = eris.New("places provider denied request")
)
