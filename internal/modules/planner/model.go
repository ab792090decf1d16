// README: Provider query model produced by the planner and consumed by the executor.
package planner

import (
	"vibe/internal/modules/activity"
	"vibe/internal/modules/taxonomy"
	"vibe/internal/modules/venue"
	"vibe/internal/types"
)

// Shape is the kind of result a query is expected to return.
type Shape string

const (
	ShapeVenues Shape = "venues"
	ShapeRoutes Shape = "routes"
	ShapeAreas  Shape = "areas"
	ShapePoints Shape = "points"
)

const (
	MinPriority = 1
	MaxPriority = 5

	DefaultRadiusMeters = 25000
	MaxRadiusMeters     = 50000
)

// Area is the search area of one request.
type Area struct {
	Center       types.Point
	RadiusMeters int
	// Label names the area in free-text queries, e.g. "Brasov".
	Label string
}

// Query is a concrete request to one provider for one intent.
type Query struct {
	ID           string         `json:"id"`
	IntentID     string         `json:"intentId"`
	Provider     venue.Provider `json:"provider"`
	Priority     int            `json:"priority"`
	Location     types.Point    `json:"location"`
	RadiusMeters int            `json:"radius"`
	TextQuery    string         `json:"textQuery,omitempty"`
	Keywords     []string       `json:"keywords,omitempty"`
	PlaceType    string         `json:"placeType,omitempty"`
	OverpassQL   string         `json:"overpassQL,omitempty"`
	Kinds        []string       `json:"kinds,omitempty"`
	MinRate      int            `json:"minRate,omitempty"`
	Shape        Shape          `json:"shape"`
}

// Lookup is the slice of the taxonomy the planner reads.
type Lookup interface {
	Mapping(subtype string) (taxonomy.Mapping, bool)
	Reliability(p venue.Provider, c activity.Category) float64
}
