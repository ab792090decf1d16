// README: Taxonomy model (intents, per-provider mapping hints, provider reliability).
package taxonomy

import (
	"errors"

	"vibe/internal/modules/activity"
	"vibe/internal/modules/venue"
)

var (
	ErrDuplicateIntent = errors.New("duplicate intent id")
	ErrInvalidIntent   = errors.New("invalid intent")
	ErrUnknownIntent   = errors.New("unknown intent")
)

// GoogleHint drives commercial-places queries. TextQueries may contain a {region} placeholder.
type GoogleHint struct {
	Types        []string `json:"types,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
	TextQueries  []string `json:"textQueries,omitempty"`
	RadiusMeters int      `json:"radius,omitempty"`
}

// OSMHint drives open-geodata queries. Tags maps an OSM key to accepted values.
type OSMHint struct {
	Tags         map[string][]string `json:"tags,omitempty"`
	ElementTypes []string            `json:"elementTypes,omitempty"`
	RadiusMeters int                 `json:"searchRadius,omitempty"`
}

// OTMHint drives poi-index queries.
type OTMHint struct {
	Kinds        []string `json:"kinds,omitempty"`
	RadiusMeters int      `json:"searchRadius,omitempty"`
	MinRate      int      `json:"minRate,omitempty"`
}

// Mapping holds the provider hints for one subtype. A nil hint means the
// provider has no mapping for the subtype.
type Mapping struct {
	Subtype string      `json:"subtype"`
	Google  *GoogleHint `json:"google,omitempty"`
	OSM     *OSMHint    `json:"osm,omitempty"`
	OTM     *OTMHint    `json:"otm,omitempty"`
}

// Supports reports whether the mapping carries a usable hint for p.
func (m Mapping) Supports(p venue.Provider) bool {
	switch p {
	case venue.ProviderCommercialPlaces:
		return m.Google != nil && (len(m.Google.Types) > 0 || len(m.Google.Keywords) > 0 || len(m.Google.TextQueries) > 0)
	case venue.ProviderOpenGeodata:
		return m.OSM != nil && len(m.OSM.Tags) > 0
	case venue.ProviderPOIIndex:
		return m.OTM != nil && len(m.OTM.Kinds) > 0
	}
	return false
}

// Reliability scores how well a provider historically serves a category, in [0,1].
type Reliability map[venue.Provider]map[activity.Category]float64

// Document is the serialized taxonomy form used by the file loader.
type Document struct {
	Intents     []activity.Intent `json:"intents"`
	Mappings    []Mapping         `json:"mappings"`
	Reliability Reliability       `json:"reliability,omitempty"`
}
