package weather

import "strings"

const (
	HeavyRainMM       = 5.0
	ModerateRainMM    = 2.0
	StrongWindKmh     = 30.0
	MinComfortTempC   = -5.0
	MaxComfortTempC   = 35.0
	PoorVisibilityKm  = 2.0
	defaultVisibility = 10.0
)

// Assess derives gating from the thresholds. A nil condition is outdoor-ok.
func Assess(c *Condition) Assessment {
	if c == nil {
		return Assessment{Gating: GatingOutdoor}
	}
	vis := defaultVisibility
	if c.VisibilityKm != nil {
		vis = *c.VisibilityKm
	}
	f := Factors{
		HeavyRain:      c.PrecipitationMM > HeavyRainMM,
		ModerateRain:   c.PrecipitationMM > ModerateRainMM,
		StrongWind:     c.WindSpeedKmh > StrongWindKmh,
		ExtremeTemp:    c.TemperatureC < MinComfortTempC || c.TemperatureC > MaxComfortTempC,
		PoorVisibility: vis < PoorVisibilityKm,
	}

	g := GatingOutdoor
	switch {
	case f.HeavyRain || f.PoorVisibility:
		g = GatingIndoor
	case f.StrongWind || f.ExtremeTemp || f.ModerateRain:
		g = GatingCovered
	}
	return Assessment{Gating: g, Factors: f, Advice: advice(c, f)}
}

func advice(c *Condition, f Factors) string {
	var parts []string
	if f.HeavyRain {
		parts = append(parts, "heavy rain, indoor venues recommended")
	} else if f.ModerateRain {
		parts = append(parts, "light rain, bring a jacket or pick covered venues")
	}
	if f.PoorVisibility {
		parts = append(parts, "poor visibility, avoid viewpoints and mountain routes")
	}
	if f.StrongWind {
		parts = append(parts, "strong wind, avoid exposed ridges and water")
	}
	if f.ExtremeTemp {
		if c.TemperatureC > MaxComfortTempC {
			parts = append(parts, "extreme heat, plan outdoor time for early morning")
		} else {
			parts = append(parts, "extreme cold, keep outdoor time short")
		}
	}
	if len(parts) == 0 {
		return "good conditions for outdoor activities"
	}
	s := strings.Join(parts, "; ")
	return strings.ToUpper(s[:1]) + s[1:]
}

// DescribeCode maps a WMO weather code to a short label.
func DescribeCode(code int) string {
	switch {
	case code == 0:
		return "clear"
	case code >= 1 && code <= 3:
		return "partly cloudy"
	case code == 45 || code == 48:
		return "fog"
	case code >= 51 && code <= 57:
		return "drizzle"
	case code >= 61 && code <= 67:
		return "rain"
	case code >= 71 && code <= 77:
		return "snow"
	case code >= 80 && code <= 82:
		return "rain showers"
	case code == 85 || code == 86:
		return "snow showers"
	case code >= 95 && code <= 99:
		return "thunderstorm"
	}
	return "unknown"
}
