package providers

import (
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"vibe/internal/modules/planner"
	"vibe/internal/modules/venue"
	"vibe/internal/types"
)

const (
	DefaultOpenTripMapURL = "https://api.opentripmap.com/0.1/en"
	otmLimit              = 20
	otmMaxRate            = 3.0
)

// OpenTripMap is the poi-index adapter.
type OpenTripMap struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewOpenTripMap(baseURL, apiKey string, httpClient *http.Client) *OpenTripMap {
	if baseURL == "" {
		baseURL = DefaultOpenTripMapURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &OpenTripMap{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, client: httpClient}
}

// OTMPlace is one entry of the radius endpoint in `format=json` mode.
type OTMPlace struct {
	XID      string          `json:"xid"`
	Name     string          `json:"name"`
	Dist     float64         `json:"dist"`
	Rate     json.RawMessage `json:"rate"`
	OSM      string          `json:"osm"`
	Wikidata string          `json:"wikidata"`
	Kinds    string          `json:"kinds"`
	Point    struct {
		Lon float64 `json:"lon"`
		Lat float64 `json:"lat"`
	} `json:"point"`
}

func (o *OpenTripMap) Search(ctx context.Context, q planner.Query) ([]venue.Candidate, error) {
	if len(q.Kinds) == 0 {
		return nil, ErrEmptyQuery
	}
	v := url.Values{}
	v.Set("radius", strconv.Itoa(min(max(q.RadiusMeters, 1), planner.MaxRadiusMeters)))
	v.Set("lon", strconv.FormatFloat(q.Location.Lon, 'f', 6, 64))
	v.Set("lat", strconv.FormatFloat(q.Location.Lat, 'f', 6, 64))
	v.Set("kinds", strings.Join(q.Kinds, ","))
	v.Set("format", "json")
	v.Set("limit", strconv.Itoa(otmLimit))
	if q.MinRate > 0 {
		v.Set("rate", strconv.Itoa(q.MinRate))
	}
	v.Set("apikey", o.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.baseURL+"/places/radius?"+v.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("opentripmap: build request: %w", err)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("opentripmap: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("opentripmap: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("opentripmap: status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var places []OTMPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, fmt.Errorf("opentripmap: unmarshal response: %w", err)
	}

	out := make([]venue.Candidate, 0, len(places))
	for _, p := range places {
		if c, ok := NormalizeOTMPlace(p); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// NormalizeOTMPlace maps one place. The 0..3 rate scale is projected onto 0..5;
// a rate of 0 means unrated.
func NormalizeOTMPlace(p OTMPlace) (venue.Candidate, bool) {
	if p.XID == "" || strings.TrimSpace(p.Name) == "" {
		return venue.Candidate{}, false
	}
	c := venue.New(venue.ProviderPOIIndex, p.XID, p.Name, types.Point{Lat: p.Point.Lat, Lon: p.Point.Lon})
	if rate := parseOTMRate(p.Rate); rate > 0 {
		c.Rating = venue.Float(math.Round(rate/otmMaxRate*5*10) / 10)
	}
	for _, k := range strings.Split(p.Kinds, ",") {
		if k = strings.TrimSpace(k); k != "" {
			c.Tags = append(c.Tags, k)
		}
	}
	return c, true
}

// parseOTMRate accepts 3, "3" and "3h" (heritage-flagged) forms.
func parseOTMRate(raw json.RawMessage) float64 {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	s = strings.TrimSuffix(s, "h")
	if s == "" || s == "null" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || v < 0 {
		return 0
	}
	return math.Min(v, otmMaxRate)
}
