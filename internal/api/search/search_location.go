package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/FACorreiaa/go-coffee-finder/internal/types"
)

// Geocoder turns free text into a point. It returns nil, nil for text that
// resolves to nothing.
type Geocoder interface {
	Geocode(ctx context.Context, text string) (*types.Coordinate, error)
}

// LocationResolver yields the center a search runs around.
type LocationResolver interface {
	Resolve(ctx context.Context) (*types.Coordinate, error)
}

var (
	_ LocationResolver = DirectCoordinates{}
	_ LocationResolver = GeocodeText{}
)

type DirectCoordinates struct {
	Coordinate types.Coordinate
}

func (d DirectCoordinates) Resolve(context.Context) (*types.Coordinate, error) {
	c := d.Coordinate
	return &c, nil
}

type GeocodeText struct {
	Text     string
	Geocoder Geocoder
}

func (g GeocodeText) Resolve(ctx context.Context) (*types.Coordinate, error) {
	c, err := g.Geocoder.Geocode(ctx, g.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to geocode %q: %w", g.Text, err)
	}
	return c, nil
}

// ResolverFor prefers direct coordinates over location text. It returns nil
// when the filters carry neither.
func ResolverFor(coords *types.Coordinate, locationText string, geocoder Geocoder) LocationResolver {
	if coords != nil {
		return DirectCoordinates{Coordinate: *coords}
	}
	if text := strings.TrimSpace(locationText); text != "" && geocoder != nil {
		return GeocodeText{Text: text, Geocoder: geocoder}
	}
	return nil
}
