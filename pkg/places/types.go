package places

// Status is the application-level status code carried in every Google Maps
// API response body, independent of the HTTP status.
type Status string

const (
	StatusOK             Status = "OK"
	StatusZeroResults    Status = "ZERO_RESULTS"
	StatusOverQueryLimit Status = "OVER_QUERY_LIMIT"
	StatusRequestDenied  Status = "REQUEST_DENIED"
	StatusInvalidRequest Status = "INVALID_REQUEST"
	StatusNotFound       Status = "NOT_FOUND"
	StatusUnknownError   Status = "UNKNOWN_ERROR"
)

// LatLng is a coordinate pair in double-precision degrees.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Geometry holds the location portion of a result's geometry.
type Geometry struct {
	Location LatLng `json:"location"`
}

// GeocodeResponse is the response from the Geocoding API.
type GeocodeResponse struct {
	Status       Status          `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
	Results      []GeocodeResult `json:"results"`
}

// GeocodeResult is a single geocoding match.
type GeocodeResult struct {
	FormattedAddress string   `json:"formatted_address"`
	Geometry         Geometry `json:"geometry"`
}

// NearbySearchRequest describes one nearby-search page request. When
// PageToken is set the other fields are ignored; a token-only request
// fetches the next page of the original search.
type NearbySearchRequest struct {
	Location     LatLng
	RadiusMeters float64
	Keyword      string
	PageToken    string
}

// NearbySearchResponse is the response from the Places Nearby Search API.
type NearbySearchResponse struct {
	Status        Status         `json:"status"`
	ErrorMessage  string         `json:"error_message,omitempty"`
	NextPageToken string         `json:"next_page_token,omitempty"`
	Results       []SearchResult `json:"results"`
}

// SearchResult is a coarse place record from a single search page.
type SearchResult struct {
	PlaceID          string   `json:"place_id"`
	Name             string   `json:"name"`
	Vicinity         string   `json:"vicinity"`
	Geometry         Geometry `json:"geometry"`
	Rating           float64  `json:"rating"`
	UserRatingsTotal int      `json:"user_ratings_total"`
	BusinessStatus   string   `json:"business_status"`
}

// DetailsRequest describes a place-details fetch.
type DetailsRequest struct {
	PlaceID string
	Fields  []string
}

// DetailsResponse is the response from the Place Details API.
type DetailsResponse struct {
	Status       Status       `json:"status"`
	ErrorMessage string       `json:"error_message,omitempty"`
	Result       *PlaceDetail `json:"result,omitempty"`
}

// OpeningHours carries the human-readable weekly hours lines.
type OpeningHours struct {
	WeekdayText []string `json:"weekday_text"`
}

// PlaceDetail is the extended payload for a single place.
type PlaceDetail struct {
	Name                 string        `json:"name"`
	FormattedAddress     string        `json:"formatted_address"`
	FormattedPhoneNumber string        `json:"formatted_phone_number"`
	Website              string        `json:"website"`
	Rating               float64       `json:"rating"`
	UserRatingsTotal     int           `json:"user_ratings_total"`
	BusinessStatus       string        `json:"business_status"`
	OpeningHours         *OpeningHours `json:"opening_hours,omitempty"`
	Geometry             Geometry      `json:"geometry"`
}

// DetailFields is the field selection used by the lead enricher. It mirrors
// the columns a lead record carries.
var DetailFields = []string{
	"name",
	"formatted_address",
	"formatted_phone_number",
	"website",
	"rating",
	"user_ratings_total",
	"opening_hours",
	"business_status",
	"geometry",
}
