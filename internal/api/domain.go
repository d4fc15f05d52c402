package api

import "github.com/FACorreiaa/go-coffee-finder/internal/types"

// Response is the envelope every endpoint answers with.
type Response struct {
	Success   bool        `json:"success" example:"true"`
	Data      interface{} `json:"data,omitempty"`
	Message   string      `json:"message,omitempty" example:"Discovery completed"`
	Error     string      `json:"error,omitempty" example:"Coffee shop not found"`
	RequestID string      `json:"request_id,omitempty" example:"host/abc-000001"`
}

// DiscoverRequest is the body of POST /coffee-shops/discover.
type DiscoverRequest struct {
	Query    string            `json:"query" example:"blue bottle"`
	Location *types.Coordinate `json:"location,omitempty"`
	Radius   *float64          `json:"radius,omitempty" example:"5000"` // meters
}

// DiscoverByLocationRequest is the body of POST /coffee-shops/discover-by-location.
// Location is geocoded before searching.
type DiscoverByLocationRequest struct {
	Query    string   `json:"query" example:"espresso"`
	Location string   `json:"location" example:"Austin, TX"`
	Radius   *float64 `json:"radius,omitempty" example:"5000"` // meters
}

// DiscoverResponse is the data payload of the discover endpoints.
type DiscoverResponse struct {
	Message          string            `json:"message" example:"Discovery completed: 12 added, 3 updated"`
	Added            int               `json:"added" example:"12"`
	Updated          int               `json:"updated" example:"3"`
	Errors           []string          `json:"errors"`
	GeocodedLocation *types.Coordinate `json:"geocoded_location,omitempty"`
}
