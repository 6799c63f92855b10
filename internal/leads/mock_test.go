package leads

import (
	"context"
	"sync"

	"github.com/sells-group/leadfinder/pkg/places"
)

// mockPlaces scripts provider responses. Search pages are served in call
// order; detail responses are keyed by place ID.
type mockPlaces struct {
	mu sync.Mutex

	geocodeResp  *places.GeocodeResponse
	geocodeErr   error
	geocodeCalls int

	pages       []*places.NearbySearchResponse
	pageErrs    map[int]error
	searchCalls int
	searchReqs  []places.NearbySearchRequest

	details      map[string]*places.DetailsResponse
	detailErrs   map[string]error
	detailsCalls int
}

func (m *mockPlaces) Geocode(_ context.Context, _ string) (*places.GeocodeResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.geocodeCalls++
	if m.geocodeErr != nil {
		return nil, m.geocodeErr
	}
	return m.geocodeResp, nil
}

func (m *mockPlaces) SearchNearby(_ context.Context, req places.NearbySearchRequest) (*places.NearbySearchResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	idx := m.searchCalls
	m.searchCalls++
	m.searchReqs = append(m.searchReqs, req)
	if err, ok := m.pageErrs[idx]; ok {
		return nil, err
	}
	if idx >= len(m.pages) {
		return &places.NearbySearchResponse{Status: places.StatusZeroResults}, nil
	}
	return m.pages[idx], nil
}

func (m *mockPlaces) FetchDetails(_ context.Context, req places.DetailsRequest) (*places.DetailsResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.detailsCalls++
	if err, ok := m.detailErrs[req.PlaceID]; ok {
		return nil, err
	}
	if resp, ok := m.details[req.PlaceID]; ok {
		return resp, nil
	}
	return &places.DetailsResponse{Status: places.StatusNotFound}, nil
}

func geocodeOK(lat, lng float64) *places.GeocodeResponse {
	return &places.GeocodeResponse{
		Status: places.StatusOK,
		Results: []places.GeocodeResult{{
			Geometry: places.Geometry{Location: places.LatLng{Lat: lat, Lng: lng}},
		}},
	}
}

func searchPage(nextToken string, results ...places.SearchResult) *places.NearbySearchResponse {
	return &places.NearbySearchResponse{
		Status:        places.StatusOK,
		NextPageToken: nextToken,
		Results:       results,
	}
}

func hit(id, name string, reviews int) places.SearchResult {
	return places.SearchResult{
		PlaceID:          id,
		Name:             name,
		UserRatingsTotal: reviews,
		BusinessStatus:   BusinessStatusOperational,
		Geometry:         places.Geometry{Location: places.LatLng{Lat: 30.27, Lng: -97.74}},
	}
}

func detailOK(name, address, phone, website string) *places.DetailsResponse {
	return &places.DetailsResponse{
		Status: places.StatusOK,
		Result: &places.PlaceDetail{
			Name:                 name,
			FormattedAddress:     address,
			FormattedPhoneNumber: phone,
			Website:              website,
			BusinessStatus:       BusinessStatusOperational,
		},
	}
}
