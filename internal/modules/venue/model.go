// README: Venue candidate model shared by providers, executor, weather and curation.
package venue

import (
	"strings"

	"vibe/internal/modules/activity"
	"vibe/internal/types"
)

// Provider identifies an external venue data source.
type Provider string

const (
	ProviderCommercialPlaces Provider = "commercial-places"
	ProviderOpenGeodata      Provider = "open-geodata"
	ProviderPOIIndex         Provider = "poi-index"
)

var Providers = []Provider{ProviderCommercialPlaces, ProviderOpenGeodata, ProviderPOIIndex}

func (p Provider) Valid() bool {
	switch p {
	case ProviderCommercialPlaces, ProviderOpenGeodata, ProviderPOIIndex:
		return true
	}
	return false
}

// Short is the prefix used in qualified candidate ids.
func (p Provider) Short() string {
	switch p {
	case ProviderCommercialPlaces:
		return "google"
	case ProviderOpenGeodata:
		return "osm"
	case ProviderPOIIndex:
		return "otm"
	}
	return string(p)
}

// Provenance records which call produced a candidate.
type Provenance struct {
	Provider Provider `json:"provider"`
	QueryID  string   `json:"queryId,omitempty"`
	IntentID string   `json:"intentId,omitempty"`
}

// Candidate is a normalized venue returned by any provider.
type Candidate struct {
	ID           string            `json:"id" validate:"required"`
	ProviderID   string            `json:"providerId"`
	Provider     Provider          `json:"provider"`
	Name         string            `json:"name" validate:"required"`
	Location     types.Point       `json:"location"`
	Rating       *float64          `json:"rating,omitempty" validate:"omitempty,gte=0,lte=5"`
	ReviewCount  *int              `json:"reviewCount,omitempty" validate:"omitempty,gte=0"`
	Tags         []string          `json:"tags,omitempty"`
	Category     activity.Category `json:"category,omitempty"`
	Description  string            `json:"description,omitempty"`
	Provenance   []Provenance      `json:"provenance,omitempty"`
	Aliases      []string          `json:"aliases,omitempty"`
	WeatherScore *float64          `json:"weatherScore,omitempty" validate:"omitempty,gte=0,lte=1"`
}

// QualifiedID builds the id used across the pipeline, e.g. "osm:node/123".
func QualifiedID(p Provider, providerID string) string {
	return p.Short() + ":" + providerID
}

// New returns a candidate with its qualified id set.
func New(p Provider, providerID, name string, loc types.Point) Candidate {
	return Candidate{
		ID:         QualifiedID(p, providerID),
		ProviderID: providerID,
		Provider:   p,
		Name:       strings.TrimSpace(name),
		Location:   loc,
	}
}

// Suitability is the weather score, 1 when none was assigned.
func (c Candidate) Suitability() float64 {
	if c.WeatherScore == nil {
		return 1
	}
	return *c.WeatherScore
}

func (c *Candidate) SetWeatherScore(s float64) {
	c.WeatherScore = &s
}

// HasTag reports whether any of tags is present, ignoring case.
func (c Candidate) HasTag(tags ...string) bool {
	for _, have := range c.Tags {
		for _, want := range tags {
			if strings.EqualFold(have, want) {
				return true
			}
		}
	}
	return false
}

var foodTags = []string{
	"restaurant", "cafe", "food", "bakery", "meal_takeaway", "meal_delivery",
	"fast_food", "foods", "amenity=restaurant", "amenity=cafe", "amenity=fast_food",
}

// IsFood reports whether the venue is primarily somewhere to eat.
func (c Candidate) IsFood() bool {
	return c.Category == activity.CategoryCulinary || c.HasTag(foodTags...)
}

// Float and Int build optional fields.
func Float(v float64) *float64 { return &v }

func Int(v int) *int { return &v }
