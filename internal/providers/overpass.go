package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
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
	DefaultOverpassURL = "https://overpass-api.de/api/interpreter"
	overpassMaxResults = 40
)

var ErrEmptyQuery = errors.New("query has no filters for this provider")

// descriptive OSM keys copied into candidate tags as both "k=v" and "v".
var overpassTagKeys = []string{"tourism", "leisure", "natural", "amenity", "route", "historic", "sport", "shop", "building", "highway"}

// Overpass is the open-geodata adapter.
type Overpass struct {
	url    string
	client *http.Client
}

func NewOverpass(endpoint string, httpClient *http.Client) *Overpass {
	if endpoint == "" {
		endpoint = DefaultOverpassURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Overpass{url: endpoint, client: httpClient}
}

type overpassResponse struct {
	Elements []OverpassElement `json:"elements"`
	Remark   string            `json:"remark"`
}

// OverpassElement is a node, way or relation from an `out tags center` query.
type OverpassElement struct {
	Type   string   `json:"type"`
	ID     int64    `json:"id"`
	Lat    *float64 `json:"lat"`
	Lon    *float64 `json:"lon"`
	Center *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"center"`
	Tags map[string]string `json:"tags"`
}

func (o *Overpass) Search(ctx context.Context, q planner.Query) ([]venue.Candidate, error) {
	if strings.TrimSpace(q.OverpassQL) == "" {
		return nil, ErrEmptyQuery
	}
	form := url.Values{"data": {q.OverpassQL}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("overpass: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass: do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("overpass: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("overpass: status %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var r overpassResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("overpass: unmarshal response: %w", err)
	}
	if len(r.Elements) == 0 && strings.Contains(r.Remark, "error") {
		return nil, fmt.Errorf("overpass: %s", r.Remark)
	}

	out := make([]venue.Candidate, 0, min(len(r.Elements), overpassMaxResults))
	for _, el := range r.Elements {
		if len(out) == overpassMaxResults {
			break
		}
		if c, ok := NormalizeOverpassElement(el); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// NormalizeOverpassElement maps one element. Elements without a name or
// coordinates are dropped; ways and relations use their center.
func NormalizeOverpassElement(el OverpassElement) (venue.Candidate, bool) {
	name := strings.TrimSpace(el.Tags["name"])
	if name == "" {
		name = strings.TrimSpace(el.Tags["name:en"])
	}
	if name == "" || el.Type == "" {
		return venue.Candidate{}, false
	}

	var p types.Point
	switch {
	case el.Lat != nil && el.Lon != nil:
		p = types.Point{Lat: *el.Lat, Lon: *el.Lon}
	case el.Center != nil:
		p = types.Point{Lat: el.Center.Lat, Lon: el.Center.Lon}
	default:
		return venue.Candidate{}, false
	}

	c := venue.New(venue.ProviderOpenGeodata, el.Type+"/"+strconv.FormatInt(el.ID, 10), name, p)
	for _, k := range overpassTagKeys {
		if v, ok := el.Tags[k]; ok && v != "" {
			c.Tags = append(c.Tags, k+"="+v, v)
		}
	}
	c.Description = strings.TrimSpace(el.Tags["description"])
	return c, true
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
