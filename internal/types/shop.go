package types

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Weekdays lists the day keys used in Hours, Monday first.
var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

// Coordinate is a WGS84 point in decimal degrees.
type Coordinate struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

func (c Coordinate) Valid() bool {
	return !math.IsNaN(c.Latitude) && !math.IsNaN(c.Longitude) &&
		c.Latitude >= -90 && c.Latitude <= 90 &&
		c.Longitude >= -180 && c.Longitude <= 180
}

func (c Coordinate) String() string {
	return fmt.Sprintf("%f,%f", c.Latitude, c.Longitude)
}

type DayHours struct {
	Open     string `json:"open"`
	Close    string `json:"close"`
	IsClosed bool   `json:"is_closed"`
}

// Hours maps a lower-case weekday name to its opening hours. A nil map means
// the hours are unknown.
type Hours map[string]DayHours

// Shop is a coffee shop as persisted in the coffee_shops table.
type Shop struct {
	ID            uuid.UUID  `json:"id"`
	GooglePlaceID *string    `json:"google_place_id,omitempty"`
	Name          string     `json:"name"`
	Address       string     `json:"address"`
	City          string     `json:"city"`
	State         string     `json:"state"`
	ZipCode       string     `json:"zip_code"`
	Country       string     `json:"country"`
	Latitude      *float64   `json:"latitude,omitempty"`
	Longitude     *float64   `json:"longitude,omitempty"`
	Phone         *string    `json:"phone,omitempty"`
	Website       *string    `json:"website,omitempty"`
	Email         *string    `json:"email,omitempty"`
	Rating        *float64   `json:"rating,omitempty"`
	ReviewCount   int        `json:"review_count"`
	PriceLevel    *int       `json:"price_level,omitempty"`
	Hours         Hours      `json:"hours,omitempty"`
	Categories    []string   `json:"categories"`
	Photos        []string   `json:"photos"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	LastSyncedAt  *time.Time `json:"last_synced_at,omitempty"`
}

// Coordinate returns the shop position, or nil when the shop has none.
func (s Shop) Coordinate() *Coordinate {
	if s.Latitude == nil || s.Longitude == nil {
		return nil
	}
	return &Coordinate{Latitude: *s.Latitude, Longitude: *s.Longitude}
}

func (s Shop) ExternalID() string {
	if s.GooglePlaceID == nil {
		return ""
	}
	return *s.GooglePlaceID
}

// Validate checks the invariants every stored shop must satisfy.
func (s Shop) Validate() error {
	switch {
	case s.Name == "":
		return NewInputError("shop name is required")
	case s.ReviewCount < 0:
		return NewInputError(fmt.Sprintf("review_count must not be negative, got %d", s.ReviewCount))
	case s.PriceLevel != nil && (*s.PriceLevel < 1 || *s.PriceLevel > 4):
		return NewInputError(fmt.Sprintf("price_level must be between 1 and 4, got %d", *s.PriceLevel))
	case s.Rating != nil && (*s.Rating < 0 || *s.Rating > 5):
		return NewInputError(fmt.Sprintf("rating must be between 0 and 5, got %.1f", *s.Rating))
	case (s.Latitude == nil) != (s.Longitude == nil):
		return NewInputError("latitude and longitude must be set together")
	}
	if c := s.Coordinate(); c != nil && !c.Valid() {
		return NewInputError(fmt.Sprintf("invalid coordinates: lat=%f, lon=%f", c.Latitude, c.Longitude))
	}
	return nil
}

// ShopWithDistance is a shop annotated with its distance from a search center.
type ShopWithDistance struct {
	Shop
	DistanceMeters float64 `json:"-"`
	DistanceKm     float64 `json:"distance_km"`
}

type AutocompleteSuggestion struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Address string    `json:"address"`
}
