// README: Weather conditions, gating and environment classes.
package weather

import "time"

// Condition is a current-weather observation. Units: °C, mm/h, km/h, km.
type Condition struct {
	TemperatureC    float64   `json:"temperature"`
	PrecipitationMM float64   `json:"precipitation"`
	WindSpeedKmh    float64   `json:"windSpeed"`
	VisibilityKm    *float64  `json:"visibility,omitempty"`
	HumidityPct     float64   `json:"humidity,omitempty"`
	Conditions      string    `json:"conditions"`
	WeatherCode     int       `json:"weatherCode"`
	ObservedAt      time.Time `json:"observedAt,omitempty"`
}

// Gating is the venue recommendation derived from the weather.
type Gating string

const (
	GatingIndoor  Gating = "indoor-recommended"
	GatingCovered Gating = "covered-recommended"
	GatingOutdoor Gating = "outdoor-ok"
)

// Environment is how exposed a venue is to the weather.
type Environment string

const (
	EnvIndoor  Environment = "indoor"
	EnvCovered Environment = "covered"
	EnvOutdoor Environment = "outdoor"
	EnvUnknown Environment = "unknown"
)

// Factors lists which thresholds a condition crossed.
type Factors struct {
	HeavyRain      bool `json:"heavyRain"`
	ModerateRain   bool `json:"moderateRain"`
	StrongWind     bool `json:"strongWind"`
	ExtremeTemp    bool `json:"extremeTemp"`
	PoorVisibility bool `json:"poorVisibility"`
}

type Assessment struct {
	Gating  Gating  `json:"gating"`
	Factors Factors `json:"factors"`
	Advice  string  `json:"advice"`
}
