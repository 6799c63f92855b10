// Package places provides a client for the Google Maps Geocoding, Nearby
// Search and Place Details APIs.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/leadfinder/internal/resilience"
)

const defaultBaseURL = "https://maps.googleapis.com/maps/api"

// Client performs Google Maps API operations. A non-OK Status in a response
// body is not an error; callers interpret statuses. Errors are reserved for
// transport failures and malformed payloads.
type Client interface {
	Geocode(ctx context.Context, address string) (*GeocodeResponse, error)
	SearchNearby(ctx context.Context, req NearbySearchRequest) (*NearbySearchResponse, error)
	FetchDetails(ctx context.Context, req DetailsRequest) (*DetailsResponse, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimSuffix(u, "/")
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets the requests-per-second limit shared by all endpoints.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithRetry overrides the transient-failure retry configuration.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *httpClient) {
		c.retry = cfg
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates a Google Maps API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 15 * time.Second,
		},
		limiter: rate.NewLimiter(10, 1),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Geocode resolves a free-text address to coordinates.
func (c *httpClient) Geocode(ctx context.Context, address string) (*GeocodeResponse, error) {
	params := url.Values{
		"address": {address},
		"key":     {c.apiKey},
	}

	var resp GeocodeResponse
	if err := c.getJSON(ctx, "/geocode/json", params, &resp); err != nil {
		return nil, eris.Wrap(err, "places: geocode")
	}
	return &resp, nil
}

// SearchNearby fetches one page of nearby-search results. A request bearing
// a page token carries only the token and the key.
func (c *httpClient) SearchNearby(ctx context.Context, req NearbySearchRequest) (*NearbySearchResponse, error) {
	params := url.Values{"key": {c.apiKey}}
	if req.PageToken != "" {
		params.Set("pagetoken", req.PageToken)
	} else {
		params.Set("location", fmt.Sprintf("%f,%f", req.Location.Lat, req.Location.Lng))
		params.Set("radius", fmt.Sprintf("%.0f", req.RadiusMeters))
		params.Set("keyword", req.Keyword)
	}

	var resp NearbySearchResponse
	if err := c.getJSON(ctx, "/place/nearbysearch/json", params, &resp); err != nil {
		return nil, eris.Wrap(err, "places: nearby search")
	}
	return &resp, nil
}

// FetchDetails fetches the extended payload for a place.
func (c *httpClient) FetchDetails(ctx context.Context, req DetailsRequest) (*DetailsResponse, error) {
	fields := req.Fields
	if len(fields) == 0 {
		fields = DetailFields
	}
	params := url.Values{
		"place_id": {req.PlaceID},
		"fields":   {strings.Join(fields, ",")},
		"key":      {c.apiKey},
	}

	var resp DetailsResponse
	if err := c.getJSON(ctx, "/place/details/json", params, &resp); err != nil {
		return nil, eris.Wrap(err, "places: fetch details")
	}
	return &resp, nil
}

// statusCarrier lets getJSON see the body status without knowing the
// concrete response type.
type statusCarrier interface{ bodyStatus() Status }

func (r *GeocodeResponse) bodyStatus() Status      { return r.Status }
func (r *NearbySearchResponse) bodyStatus() Status { return r.Status }
func (r *DetailsResponse) bodyStatus() Status      { return r.Status }

// getJSON issues a rate-limited GET and decodes the JSON body into out,
// retrying transient failures. HTTP 429/5xx and a body status of
// OVER_QUERY_LIMIT are treated as transient.
func (c *httpClient) getJSON(ctx context.Context, path string, params url.Values, out statusCarrier) error {
	return resilience.Do(ctx, c.retry, func(ctx context.Context) error {
		if err := c.limiter.Wait(ctx); err != nil {
			return eris.Wrap(err, "rate limit wait")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
		if err != nil {
			return eris.Wrap(err, "build request")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return resilience.NewTransientError(err, 0)
		}
		defer resp.Body.Close() //nolint:errcheck

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return resilience.NewTransientError(err, resp.StatusCode)
		}

		if resp.StatusCode != http.StatusOK {
			err := eris.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return resilience.NewTransientError(err, resp.StatusCode)
			}
			return err
		}

		if err := json.Unmarshal(body, out); err != nil {
			return eris.Wrap(err, "decode response")
		}

		if out.bodyStatus() == StatusOverQueryLimit {
			return resilience.NewTransientError(eris.New("over query limit"), http.StatusTooManyRequests)
		}
		return nil
	})
}
