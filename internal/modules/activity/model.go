// README: Activity intent model (categories, energy, indoor/outdoor preference).
package activity

import (
	"errors"
	"strings"
)

var ErrUnknownCategory = errors.New("unknown category")

// Category is the diversity axis ("bucket") of an activity.
type Category string

const (
	CategoryTrails     Category = "trails"
	CategoryAdrenaline Category = "adrenaline"
	CategoryNature     Category = "nature"
	CategoryWater      Category = "water"
	CategoryCulture    Category = "culture"
	CategoryWellness   Category = "wellness"
	CategoryNightlife  Category = "nightlife"
	CategoryCulinary   Category = "culinary"
	CategoryCreative   Category = "creative"
	CategoryLearning   Category = "learning"
)

// Categories lists every bucket in a stable order.
var Categories = []Category{
	CategoryTrails,
	CategoryAdrenaline,
	CategoryNature,
	CategoryWater,
	CategoryCulture,
	CategoryWellness,
	CategoryNightlife,
	CategoryCulinary,
	CategoryCreative,
	CategoryLearning,
}

func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// ParseCategory accepts any casing and surrounding whitespace.
func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", ErrUnknownCategory
	}
	return c, nil
}

type Energy string

const (
	EnergyChill  Energy = "chill"
	EnergyMedium Energy = "medium"
	EnergyHigh   Energy = "high"
)

type IndoorOutdoor string

const (
	Indoor  IndoorOutdoor = "indoor"
	Outdoor IndoorOutdoor = "outdoor"
	Either  IndoorOutdoor = "either"
)

// DefaultConfidence is assigned to intents proposed without an explicit confidence.
const DefaultConfidence = 0.7

// Intent is an abstract thing-to-do, prior to venue verification.
type Intent struct {
	ID            string        `json:"id"`
	Label         string        `json:"label"`
	Category      Category      `json:"category"`
	Subtypes      []string      `json:"subtypes"`
	Regions       []string      `json:"regions,omitempty"`
	Energy        Energy        `json:"energy"`
	IndoorOutdoor IndoorOutdoor `json:"indoorOutdoor"`
	Confidence    float64       `json:"confidence,omitempty"`
}

// WithConfidence returns a copy of the intent carrying the given confidence, clamped to [0,1].
func (i Intent) WithConfidence(c float64) Intent {
	switch {
	case c < 0:
		c = 0
	case c > 1:
		c = 1
	}
	i.Confidence = c
	return i
}

// EffectiveConfidence falls back to DefaultConfidence when unset.
func (i Intent) EffectiveConfidence() float64 {
	if i.Confidence <= 0 {
		return DefaultConfidence
	}
	return i.Confidence
}

// FilterSpec is the caller's advisory curation preference.
type FilterSpec struct {
	Buckets   []Category `json:"buckets"`
	Energy    Energy     `json:"energy,omitempty"`
	AvoidFood bool       `json:"avoidFood"`
}
