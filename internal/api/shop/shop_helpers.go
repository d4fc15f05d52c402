package shop

import (
	"context"
	"math"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FACorreiaa/go-coffee-finder/internal/types"
)

// DB is the subset of *pgxpool.Pool the repository needs; pgxmock pools
// satisfy it too.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const earthRadiusKm = 6371

// HaversineKm returns the great-circle distance between two points in kilometers.
func HaversineKm(a, b types.Coordinate) float64 {
	lat1Rad := a.Latitude * math.Pi / 180
	lat2Rad := b.Latitude * math.Pi / 180
	dlat := (b.Latitude - a.Latitude) * math.Pi / 180
	dlon := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

func HaversineMeters(a, b types.Coordinate) float64 {
	return HaversineKm(a, b) * 1000
}

const metersPerDegreeLatitude = earthRadiusKm * 1000 * math.Pi / 180

// BoundingBox is a latitude/longitude rectangle in degrees.
type BoundingBox struct {
	MinLatitude, MaxLatitude   float64
	MinLongitude, MaxLongitude float64
}

// BoundingBoxFor returns the rectangle enclosing the circle of radiusMeters
// around center. Longitude spans the full range when the circle reaches a
// pole or crosses the antimeridian.
func BoundingBoxFor(center types.Coordinate, radiusMeters float64) BoundingBox {
	dLat := radiusMeters / metersPerDegreeLatitude
	box := BoundingBox{
		MinLatitude:  math.Max(center.Latitude-dLat, -90),
		MaxLatitude:  math.Min(center.Latitude+dLat, 90),
		MinLongitude: -180,
		MaxLongitude: 180,
	}
	if box.MinLatitude <= -90 || box.MaxLatitude >= 90 {
		return box
	}
	// degrees of longitude shrink toward the poles, so size by the poleward edge
	edge := math.Max(math.Abs(box.MinLatitude), math.Abs(box.MaxLatitude))
	dLng := radiusMeters / (metersPerDegreeLatitude * math.Cos(edge*math.Pi/180))
	if center.Longitude-dLng < -180 || center.Longitude+dLng > 180 {
		return box
	}
	box.MinLongitude = center.Longitude - dLng
	box.MaxLongitude = center.Longitude + dLng
	return box
}
