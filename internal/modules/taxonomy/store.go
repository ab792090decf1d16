package taxonomy

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/jackc/pgx/v5/pgxpool"

	"vibe/internal/modules/activity"
	"vibe/internal/modules/venue"
)

// Store reads taxonomy tables maintained by the import tooling.
type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Load reads the full taxonomy snapshot.
func (s *Store) Load(ctx context.Context) (*Taxonomy, error) {
	intents, err := s.loadIntents(ctx)
	if err != nil {
		return nil, err
	}
	mappings, err := s.loadMappings(ctx)
	if err != nil {
		return nil, err
	}
	reliability, err := s.loadReliability(ctx)
	if err != nil {
		return nil, err
	}
	return New(intents, mappings, reliability)
}

func (s *Store) loadIntents(ctx context.Context) ([]activity.Intent, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, label, category, subtypes, regions, energy, indoor_outdoor
		FROM taxonomy_intents
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("taxonomy: query intents: %w", err)
	}
	defer rows.Close()

	var out []activity.Intent
	for rows.Next() {
		var in activity.Intent
		var category, energy, indoorOutdoor string
		if err := rows.Scan(&in.ID, &in.Label, &category, &in.Subtypes, &in.Regions, &energy, &indoorOutdoor); err != nil {
			return nil, fmt.Errorf("taxonomy: scan intent: %w", err)
		}
		in.Category = activity.Category(category)
		in.Energy = activity.Energy(energy)
		in.IndoorOutdoor = activity.IndoorOutdoor(indoorOutdoor)
		out = append(out, in)
	}
	return out, rows.Err()
}

func (s *Store) loadMappings(ctx context.Context) ([]Mapping, error) {
	rows, err := s.db.Query(ctx, `
		SELECT subtype, provider, hint
		FROM taxonomy_mappings
		ORDER BY subtype, provider
	`)
	if err != nil {
		return nil, fmt.Errorf("taxonomy: query mappings: %w", err)
	}
	defer rows.Close()

	bySubtype := map[string]*Mapping{}
	var order []string
	for rows.Next() {
		var subtype, provider string
		var hint []byte
		if err := rows.Scan(&subtype, &provider, &hint); err != nil {
			return nil, fmt.Errorf("taxonomy: scan mapping: %w", err)
		}
		m, ok := bySubtype[subtype]
		if !ok {
			m = &Mapping{Subtype: subtype}
			bySubtype[subtype] = m
			order = append(order, subtype)
		}
		if err := decodeHint(m, venue.Provider(provider), hint); err != nil {
			return nil, fmt.Errorf("taxonomy: mapping %s/%s: %w", subtype, provider, err)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]Mapping, 0, len(order))
	for _, subtype := range order {
		out = append(out, *bySubtype[subtype])
	}
	return out, nil
}

func decodeHint(m *Mapping, p venue.Provider, raw []byte) error {
	switch p {
	case venue.ProviderCommercialPlaces:
		m.Google = &GoogleHint{}
		return json.Unmarshal(raw, m.Google)
	case venue.ProviderOpenGeodata:
		m.OSM = &OSMHint{}
		return json.Unmarshal(raw, m.OSM)
	case venue.ProviderPOIIndex:
		m.OTM = &OTMHint{}
		return json.Unmarshal(raw, m.OTM)
	}
	return fmt.Errorf("unknown provider %q", p)
}

func (s *Store) loadReliability(ctx context.Context) (Reliability, error) {
	rows, err := s.db.Query(ctx, `SELECT provider, category, score FROM provider_reliability`)
	if err != nil {
		return nil, fmt.Errorf("taxonomy: query reliability: %w", err)
	}
	defer rows.Close()

	out := Reliability{}
	for rows.Next() {
		var provider, category string
		var score float64
		if err := rows.Scan(&provider, &category, &score); err != nil {
			return nil, fmt.Errorf("taxonomy: scan reliability: %w", err)
		}
		p := venue.Provider(provider)
		if out[p] == nil {
			out[p] = map[activity.Category]float64{}
		}
		out[p][activity.Category(category)] = score
	}
	return out, rows.Err()
}
