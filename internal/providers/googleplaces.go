// README: Commercial-places adapter backed by the Google Places API.
package providers

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
	"googlemaps.github.io/maps"

	"vibe/internal/modules/planner"
	"vibe/internal/modules/venue"
	"vibe/internal/types"
)

const (
	googleMaxResults   = 20
	googleDetailsLimit = 5
)

var googleDetailFields = []maps.PlaceDetailsFieldMask{
	"place_id", "name", "geometry", "rating", "user_ratings_total", "types",
}

// PlacesClient is the subset of *maps.Client used by GooglePlaces.
type PlacesClient interface {
	TextSearch(ctx context.Context, r *maps.TextSearchRequest) (maps.PlacesSearchResponse, error)
	NearbySearch(ctx context.Context, r *maps.NearbySearchRequest) (maps.PlacesSearchResponse, error)
	PlaceDetails(ctx context.Context, r *maps.PlaceDetailsRequest) (maps.PlaceDetailsResult, error)
}

// GooglePlaces searches by text first, falls back to nearby search, then
// enriches the top results with a details call each.
type GooglePlaces struct {
	client   PlacesClient
	language string
	logger   *zap.Logger
}

// NewGooglePlaces creates a client with the given API key.
func NewGooglePlaces(apiKey, language string, logger *zap.Logger) (*GooglePlaces, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return NewGooglePlacesWithClient(client, language, logger), nil
}

func NewGooglePlacesWithClient(client PlacesClient, language string, logger *zap.Logger) *GooglePlaces {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GooglePlaces{client: client, language: language, logger: logger}
}

func (g *GooglePlaces) Search(ctx context.Context, q planner.Query) ([]venue.Candidate, error) {
	loc := &maps.LatLng{Lat: q.Location.Lat, Lng: q.Location.Lon}
	radius := uint(max(q.RadiusMeters, 0))

	var results []maps.PlacesSearchResult
	if q.TextQuery != "" {
		resp, err := g.client.TextSearch(ctx, &maps.TextSearchRequest{
			Query:    q.TextQuery,
			Location: loc,
			Radius:   radius,
			Type:     maps.PlaceType(q.PlaceType),
			Language: g.language,
		})
		if err != nil {
			return nil, fmt.Errorf("places text search: %w", err)
		}
		results = resp.Results
	}

	if len(results) == 0 && (q.PlaceType != "" || len(q.Keywords) > 0) {
		resp, err := g.client.NearbySearch(ctx, &maps.NearbySearchRequest{
			Location: loc,
			Radius:   radius,
			Keyword:  strings.Join(q.Keywords, " "),
			Type:     maps.PlaceType(q.PlaceType),
			Language: g.language,
		})
		if err != nil {
			return nil, fmt.Errorf("places nearby search: %w", err)
		}
		results = resp.Results
	}

	out := make([]venue.Candidate, 0, min(len(results), googleMaxResults))
	for _, r := range results {
		if len(out) == googleMaxResults {
			break
		}
		if c, ok := NormalizeGooglePlace(r); ok {
			out = append(out, c)
		}
	}

	for i := 0; i < len(out) && i < googleDetailsLimit; i++ {
		if ctx.Err() != nil {
			break
		}
		d, err := g.client.PlaceDetails(ctx, &maps.PlaceDetailsRequest{
			PlaceID:  out[i].ProviderID,
			Fields:   googleDetailFields,
			Language: g.language,
		})
		if err != nil {
			g.logger.Debug("place details failed; keeping search result",
				zap.String("place_id", out[i].ProviderID), zap.Error(err))
			continue
		}
		out[i] = ApplyGoogleDetails(out[i], d)
	}
	return out, nil
}

// NormalizeGooglePlace maps one search result. Unnamed places are dropped.
func NormalizeGooglePlace(r maps.PlacesSearchResult) (venue.Candidate, bool) {
	if r.PlaceID == "" || strings.TrimSpace(r.Name) == "" {
		return venue.Candidate{}, false
	}
	c := venue.New(venue.ProviderCommercialPlaces, r.PlaceID, r.Name,
		types.Point{Lat: r.Geometry.Location.Lat, Lon: r.Geometry.Location.Lng})
	if r.Rating > 0 {
		c.Rating = venue.Float(roundRating(float64(r.Rating)))
	}
	if r.UserRatingsTotal > 0 {
		c.ReviewCount = venue.Int(r.UserRatingsTotal)
	}
	c.Tags = append([]string(nil), r.Types...)
	return c, true
}

// ApplyGoogleDetails overlays the fields a details call returned.
func ApplyGoogleDetails(c venue.Candidate, d maps.PlaceDetailsResult) venue.Candidate {
	if d.Rating > 0 {
		c.Rating = venue.Float(roundRating(float64(d.Rating)))
	}
	if d.UserRatingsTotal > 0 {
		c.ReviewCount = venue.Int(d.UserRatingsTotal)
	}
	if len(d.Types) > 0 {
		c.Tags = append([]string(nil), d.Types...)
	}
	if d.Geometry.Location.Lat != 0 || d.Geometry.Location.Lng != 0 {
		c.Location = types.Point{Lat: d.Geometry.Location.Lat, Lon: d.Geometry.Location.Lng}
	}
	return c
}

// roundRating trims float32 noise, e.g. 4.699999809 -> 4.7.
func roundRating(v float64) float64 {
	return math.Round(v*10) / 10
}
