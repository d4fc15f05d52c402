package types

type Intent string

const (
	IntentSpecific Intent = "specific"
	IntentGeneral  Intent = "general"
)

type SearchType string

const (
	SearchTypeSpecificShop SearchType = "specific_shop"
	SearchTypeGeneralArea  SearchType = "general_area"
	SearchTypeLocalRadius  SearchType = "local_radius"
)

const (
	DefaultRadiusMeters = 50000.0
	DefaultLimit        = 20
	MaxLimit            = 100
)

// SearchFilters carries everything a caller can constrain a search with.
// RadiusMeters nil means DefaultRadiusMeters; zero is a literal zero-meter radius.
type SearchFilters struct {
	Query        string      `json:"query"`
	Coordinates  *Coordinate `json:"coordinates,omitempty"`
	LocationText string      `json:"location_string,omitempty"`
	RadiusMeters *float64    `json:"radius,omitempty"`
	MinRating    *float64    `json:"min_rating,omitempty"`
	MaxRating    *float64    `json:"max_rating,omitempty"`
	PriceLevels  []int       `json:"price_level,omitempty"`
	Categories   []string    `json:"categories,omitempty"`
	Limit        int         `json:"limit"`
	Offset       int         `json:"offset"`
}

// RadiusOr returns the requested radius in meters, or def when none was given.
func (f SearchFilters) RadiusOr(def float64) float64 {
	if f.RadiusMeters == nil {
		return def
	}
	return *f.RadiusMeters
}

// Normalize applies the pagination defaults and bounds.
func (f SearchFilters) Normalize(defaultLimit, maxLimit int) SearchFilters {
	if f.Limit <= 0 {
		f.Limit = defaultLimit
	}
	if f.Limit > maxLimit {
		f.Limit = maxLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

type DiscoveryResult struct {
	Added    int         `json:"added"`
	Updated  int         `json:"updated"`
	Errors   []string    `json:"errors"`
	Location *Coordinate `json:"geocoded_location,omitempty"`
}

type SearchResult struct {
	Shops          []ShopWithDistance `json:"coffee_shops"`
	TotalCount     int                `json:"total_count"`
	HasMore        bool               `json:"has_more"`
	SearchType     SearchType         `json:"search_type"`
	DetectedIntent Intent             `json:"detected_intent"`
	Discovery      *DiscoveryResult   `json:"discovery,omitempty"`
}
