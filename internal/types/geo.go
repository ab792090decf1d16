// README: Geographic value objects and pure distance helpers shared across modules.
package types

import "math"

const earthRadiusKm = 6371.0

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// BoundingBox is a south/west/north/east rectangle in decimal degrees.
type BoundingBox struct {
	South float64
	West  float64
	North float64
	East  float64
}

// HaversineKm returns the great-circle distance in kilometres between two points.
func HaversineKm(a, b Point) float64 {
	dLat := degreesToRadians(b.Lat - a.Lat)
	dLon := degreesToRadians(b.Lon - a.Lon)

	rLat1 := degreesToRadians(a.Lat)
	rLat2 := degreesToRadians(b.Lat)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rLat1)*math.Cos(rLat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// BoundsAround returns the box enclosing a circle of radiusMeters around center.
// Longitude span widens with latitude; near the poles it is capped to the full range.
func BoundsAround(center Point, radiusMeters int) BoundingBox {
	dLat := float64(radiusMeters) / 1000.0 / earthRadiusKm * 180.0 / math.Pi
	cosLat := math.Cos(degreesToRadians(center.Lat))
	dLon := 180.0
	if cosLat > 1e-6 {
		dLon = math.Min(dLat/cosLat, 180.0)
	}
	return BoundingBox{
		South: math.Max(center.Lat-dLat, -90),
		West:  math.Max(center.Lon-dLon, -180),
		North: math.Min(center.Lat+dLat, 90),
		East:  math.Min(center.Lon+dLon, 180),
	}
}

func degreesToRadians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
