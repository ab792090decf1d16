package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	json "github.com/goccy/go-json"

	"vibe/internal/types"
)

const DefaultOpenMeteoURL = "https://api.open-meteo.com/v1/forecast"

var ErrNoCurrentWeather = errors.New("weather: response has no current block")

// OpenMeteo fetches current conditions from the Open-Meteo forecast API.
type OpenMeteo struct {
	baseURL string
	client  *http.Client
}

// NewOpenMeteo uses a 10s client when httpClient is nil.
func NewOpenMeteo(baseURL string, httpClient *http.Client) *OpenMeteo {
	if baseURL == "" {
		baseURL = DefaultOpenMeteoURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &OpenMeteo{baseURL: baseURL, client: httpClient}
}

type openMeteoResponse struct {
	Current *struct {
		Time          string   `json:"time"`
		Temperature   float64  `json:"temperature_2m"`
		Precipitation float64  `json:"precipitation"`
		WindSpeed     float64  `json:"wind_speed_10m"`
		Humidity      float64  `json:"relative_humidity_2m"`
		Visibility    *float64 `json:"visibility"`
		WeatherCode   int      `json:"weather_code"`
	} `json:"current"`
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

// GetCurrentWeather returns the observation at p. Visibility arrives in metres.
func (o *OpenMeteo) GetCurrentWeather(ctx context.Context, p types.Point) (*Condition, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(p.Lat, 'f', 4, 64))
	q.Set("longitude", strconv.FormatFloat(p.Lon, 'f', 4, 64))
	q.Set("current", "temperature_2m,precipitation,wind_speed_10m,relative_humidity_2m,visibility,weather_code")
	q.Set("wind_speed_unit", "kmh")
	q.Set("timezone", "auto")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("weather: build request: %w", err)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("weather: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather: status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var r openMeteoResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("weather: unmarshal response: %w", err)
	}
	if r.Error {
		return nil, fmt.Errorf("weather: api error: %s", r.Reason)
	}
	if r.Current == nil {
		return nil, ErrNoCurrentWeather
	}

	cur := r.Current
	c := &Condition{
		TemperatureC:    cur.Temperature,
		PrecipitationMM: cur.Precipitation,
		WindSpeedKmh:    cur.WindSpeed,
		HumidityPct:     cur.Humidity,
		WeatherCode:     cur.WeatherCode,
		Conditions:      DescribeCode(cur.WeatherCode),
	}
	if cur.Visibility != nil {
		km := *cur.Visibility / 1000
		c.VisibilityKm = &km
	}
	if t, err := time.Parse("2006-01-02T15:04", cur.Time); err == nil {
		c.ObservedAt = t
	}
	return c, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
