package weather

import (
	"vibe/internal/modules/activity"
	"vibe/internal/modules/venue"
)

var (
	indoorTags = []string{
		"museum", "museums", "art_gallery", "library", "shopping_mall", "movie_theater",
		"cinema", "theatre", "theatres_and_entertainment", "gym", "spa", "casino",
		"bowling_alley", "aquarium", "indoor", "tourism=museum", "tourism=gallery",
		"amenity=theatre", "amenity=cinema", "amenity=library", "leisure=sports_centre",
		"leisure=fitness_centre", "amenity=spa",
	}
	coveredTags = []string{
		"restaurant", "cafe", "bar", "night_club", "church", "churches",
		"place_of_worship", "religion", "stadium", "market", "amenity=place_of_worship",
		"amenity=restaurant", "amenity=cafe", "amenity=bar", "amenity=pub",
	}
	outdoorTags = []string{
		"park", "tourist_attraction", "natural_feature", "beach", "beaches", "trail",
		"campground", "hiking", "natural", "natural_springs", "mountain_peaks",
		"viewpoint", "zoo", "amusement_park", "route=hiking", "route=bicycle",
		"tourism=viewpoint", "leisure=park", "leisure=nature_reserve", "natural=peak",
		"natural=beach", "natural=water",
	}
)

var categoryEnv = map[activity.Category]Environment{
	activity.CategoryTrails:     EnvOutdoor,
	activity.CategoryNature:     EnvOutdoor,
	activity.CategoryWater:      EnvOutdoor,
	activity.CategoryAdrenaline: EnvOutdoor,
	activity.CategoryCulture:    EnvIndoor,
	activity.CategoryLearning:   EnvIndoor,
	activity.CategoryCreative:   EnvIndoor,
	activity.CategoryWellness:   EnvIndoor,
	activity.CategoryNightlife:  EnvCovered,
	activity.CategoryCulinary:   EnvCovered,
}

// multipliers[environment][gating]
var multipliers = map[Environment]map[Gating]float64{
	EnvOutdoor: {GatingIndoor: 0.2, GatingCovered: 0.5, GatingOutdoor: 1.0},
	EnvCovered: {GatingIndoor: 0.6, GatingCovered: 1.0, GatingOutdoor: 1.0},
	EnvIndoor:  {GatingIndoor: 1.2, GatingCovered: 1.1, GatingOutdoor: 1.0},
	EnvUnknown: {GatingIndoor: 0.8, GatingCovered: 0.9, GatingOutdoor: 1.0},
}

// Classify uses tags first (indoor, then covered, then outdoor) and falls
// back to the bucket category.
func Classify(c venue.Candidate) Environment {
	switch {
	case c.HasTag(indoorTags...):
		return EnvIndoor
	case c.HasTag(coveredTags...):
		return EnvCovered
	case c.HasTag(outdoorTags...):
		return EnvOutdoor
	}
	if env, ok := categoryEnv[c.Category]; ok {
		return env
	}
	return EnvUnknown
}

// Score returns the suitability of c under w, clamped to [0,1]. Nil weather scores 1.
func Score(c venue.Candidate, w *Condition) float64 {
	if w == nil {
		return 1
	}
	m := multipliers[Classify(c)][Assess(w).Gating]
	switch {
	case m < 0:
		return 0
	case m > 1:
		return 1
	}
	return m
}

// Annotate returns a copy of cands with weather scores assigned.
func Annotate(cands []venue.Candidate, w *Condition) []venue.Candidate {
	out := make([]venue.Candidate, len(cands))
	for i, c := range cands {
		c.SetWeatherScore(Score(c, w))
		out[i] = c
	}
	return out
}
