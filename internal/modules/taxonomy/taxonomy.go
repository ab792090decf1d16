package taxonomy

import (
	"fmt"
	"os"
	"strings"

	json "github.com/goccy/go-json"

	"vibe/internal/modules/activity"
	"vibe/internal/modules/venue"
)

var providerBaseline = map[venue.Provider]float64{
	venue.ProviderCommercialPlaces: 0.9,
	venue.ProviderPOIIndex:         0.7,
	venue.ProviderOpenGeodata:      0.6,
}

var categoryOverrides = Reliability{
	venue.ProviderOpenGeodata: {
		activity.CategoryTrails: 0.9,
		activity.CategoryNature: 0.8,
		activity.CategoryWater:  0.7,
	},
	venue.ProviderPOIIndex: {
		activity.CategoryCulture:  0.85,
		activity.CategoryLearning: 0.8,
	},
	venue.ProviderCommercialPlaces: {
		activity.CategoryTrails: 0.6,
	},
}

// Taxonomy is an immutable lookup table. Safe for concurrent use.
type Taxonomy struct {
	order       []string
	intents     map[string]activity.Intent
	mappings    map[string]Mapping
	reliability Reliability
}

// New validates and indexes the given content.
func New(intents []activity.Intent, mappings []Mapping, reliability Reliability) (*Taxonomy, error) {
	t := &Taxonomy{
		order:       make([]string, 0, len(intents)),
		intents:     make(map[string]activity.Intent, len(intents)),
		mappings:    make(map[string]Mapping, len(mappings)),
		reliability: Reliability{},
	}
	for _, in := range intents {
		in.ID = strings.TrimSpace(in.ID)
		if in.ID == "" || !in.Category.Valid() {
			return nil, fmt.Errorf("%w: %q", ErrInvalidIntent, in.ID)
		}
		if _, dup := t.intents[in.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateIntent, in.ID)
		}
		in.Subtypes = append([]string(nil), in.Subtypes...)
		in.Regions = append([]string(nil), in.Regions...)
		t.intents[in.ID] = in
		t.order = append(t.order, in.ID)
	}
	for _, m := range mappings {
		key := strings.ToLower(strings.TrimSpace(m.Subtype))
		if key == "" {
			continue
		}
		m.Subtype = key
		t.mappings[key] = m
	}
	for p, byCat := range reliability {
		cp := make(map[activity.Category]float64, len(byCat))
		for c, v := range byCat {
			cp[c] = v
		}
		t.reliability[p] = cp
	}
	return t, nil
}

// FromDocument builds a taxonomy from its serialized form.
func FromDocument(doc Document) (*Taxonomy, error) {
	return New(doc.Intents, doc.Mappings, doc.Reliability)
}

// LoadFile reads a JSON taxonomy document.
func LoadFile(path string) (*Taxonomy, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("taxonomy: read %s: %w", path, err)
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("taxonomy: parse %s: %w", path, err)
	}
	return FromDocument(doc)
}

func (t *Taxonomy) Intent(id string) (activity.Intent, bool) {
	in, ok := t.intents[id]
	return in, ok
}

// Resolve returns the intents for ids, in the given order.
func (t *Taxonomy) Resolve(ids ...string) ([]activity.Intent, error) {
	out := make([]activity.Intent, 0, len(ids))
	for _, id := range ids {
		in, ok := t.intents[strings.TrimSpace(id)]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownIntent, id)
		}
		out = append(out, in)
	}
	return out, nil
}

// Intents returns every intent in load order.
func (t *Taxonomy) Intents() []activity.Intent {
	out := make([]activity.Intent, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.intents[id])
	}
	return out
}

func (t *Taxonomy) Mapping(subtype string) (Mapping, bool) {
	m, ok := t.mappings[strings.ToLower(strings.TrimSpace(subtype))]
	return m, ok
}

// Reliability returns the configured score for (p, c), falling back to
// built-in per-category overrides and then the provider baseline.
func (t *Taxonomy) Reliability(p venue.Provider, c activity.Category) float64 {
	if v, ok := t.reliability[p][c]; ok {
		return clamp01(v)
	}
	if v, ok := categoryOverrides[p][c]; ok {
		return v
	}
	if v, ok := providerBaseline[p]; ok {
		return v
	}
	return 0.5
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
