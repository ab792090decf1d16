package planner

import (
	"math"
	"strings"

	"vibe/internal/modules/activity"
	"vibe/internal/modules/taxonomy"
	"vibe/internal/modules/venue"
)

const maxKeywords = 4

// Planner turns intents into provider queries. It does no I/O.
type Planner struct {
	lookup Lookup
}

func New(lookup Lookup) *Planner {
	return &Planner{lookup: lookup}
}

// Plan emits at most one query per (intent, provider). Providers without a
// mapping for any of the intent's subtypes are skipped.
func (p *Planner) Plan(intents []activity.Intent, area Area) []Query {
	var out []Query
	for _, in := range intents {
		mappings := p.mappingsFor(in)
		if len(mappings) == 0 {
			continue
		}
		for _, prov := range venue.Providers {
			var supported []taxonomy.Mapping
			for _, m := range mappings {
				if m.Supports(prov) {
					supported = append(supported, m)
				}
			}
			if len(supported) == 0 {
				continue
			}

			q := Query{
				ID:       in.ID + "/" + prov.Short(),
				IntentID: in.ID,
				Provider: prov,
				Priority: Priority(in.EffectiveConfidence(), p.lookup.Reliability(prov, in.Category)),
				Location: area.Center,
			}
			switch prov {
			case venue.ProviderCommercialPlaces:
				fillGoogle(&q, supported, regionFor(in, area), area.RadiusMeters)
			case venue.ProviderOpenGeodata:
				fillOSM(&q, supported, area)
			case venue.ProviderPOIIndex:
				fillOTM(&q, supported, area.RadiusMeters)
			}
			out = append(out, q)
		}
	}
	return out
}

func (p *Planner) mappingsFor(in activity.Intent) []taxonomy.Mapping {
	var out []taxonomy.Mapping
	for _, st := range in.Subtypes {
		if m, ok := p.lookup.Mapping(st); ok {
			out = append(out, m)
		}
	}
	return out
}

// Priority maps confidence × reliability onto 1..5.
func Priority(confidence, reliability float64) int {
	v := int(math.Round(1 + 4*clamp01(confidence)*clamp01(reliability)))
	if v < MinPriority {
		return MinPriority
	}
	if v > MaxPriority {
		return MaxPriority
	}
	return v
}

func fillGoogle(q *Query, ms []taxonomy.Mapping, region string, areaRadius int) {
	q.Shape = ShapeVenues
	hintRadius := 0
	var template string
	for _, m := range ms {
		h := m.Google
		if q.PlaceType == "" && len(h.Types) > 0 {
			q.PlaceType = h.Types[0]
		}
		q.Keywords = appendUnique(q.Keywords, h.Keywords...)
		if template == "" && len(h.TextQueries) > 0 {
			template = h.TextQueries[0]
		}
		if hintRadius == 0 {
			hintRadius = h.RadiusMeters
		}
	}
	if len(q.Keywords) > maxKeywords {
		q.Keywords = q.Keywords[:maxKeywords]
	}
	if template == "" && len(q.Keywords) > 0 {
		template = q.Keywords[0] + " near {region}"
	}
	q.TextQuery = expandRegion(template, region)
	q.RadiusMeters = radius(areaRadius, hintRadius)
}

func fillOSM(q *Query, ms []taxonomy.Mapping, area Area) {
	tags := map[string][]string{}
	var elems []string
	hintRadius := 0
	for _, m := range ms {
		for k, vals := range m.OSM.Tags {
			tags[k] = appendUnique(tags[k], vals...)
		}
		elems = appendUnique(elems, m.OSM.ElementTypes...)
		if hintRadius == 0 {
			hintRadius = m.OSM.RadiusMeters
		}
	}
	q.RadiusMeters = radius(area.RadiusMeters, hintRadius)
	q.OverpassQL = BuildOverpassQL(tags, elems, q.Location, q.RadiusMeters)
	q.Shape = osmShape(tags)
}

func fillOTM(q *Query, ms []taxonomy.Mapping, areaRadius int) {
	q.Shape = ShapePoints
	hintRadius := 0
	for _, m := range ms {
		q.Kinds = appendUnique(q.Kinds, m.OTM.Kinds...)
		if m.OTM.MinRate > q.MinRate {
			q.MinRate = m.OTM.MinRate
		}
		if hintRadius == 0 {
			hintRadius = m.OTM.RadiusMeters
		}
	}
	q.RadiusMeters = radius(areaRadius, hintRadius)
}

func osmShape(tags map[string][]string) Shape {
	if _, ok := tags["route"]; ok {
		return ShapeRoutes
	}
	if _, ok := tags["highway"]; ok {
		return ShapeRoutes
	}
	for _, k := range []string{"leisure", "natural", "landuse", "boundary"} {
		if _, ok := tags[k]; ok {
			return ShapeAreas
		}
	}
	return ShapePoints
}

// radius prefers the tighter of the request and hint radii, capped at MaxRadiusMeters.
func radius(area, hint int) int {
	r := DefaultRadiusMeters
	switch {
	case area > 0 && hint > 0:
		r = min(area, hint)
	case area > 0:
		r = area
	case hint > 0:
		r = hint
	}
	return min(r, MaxRadiusMeters)
}

func regionFor(in activity.Intent, area Area) string {
	if len(in.Regions) > 0 && strings.TrimSpace(in.Regions[0]) != "" {
		return strings.TrimSpace(in.Regions[0])
	}
	return strings.TrimSpace(area.Label)
}

func expandRegion(template, region string) string {
	if template == "" {
		return ""
	}
	if region != "" {
		return strings.TrimSpace(strings.ReplaceAll(template, "{region}", region))
	}
	out := strings.TrimSpace(strings.ReplaceAll(template, "{region}", ""))
	for _, suffix := range []string{" near", " in", " around"} {
		out = strings.TrimSuffix(out, suffix)
	}
	return strings.TrimSpace(out)
}

func appendUnique(dst []string, vals ...string) []string {
	for _, v := range vals {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		dup := false
		for _, have := range dst {
			if have == v {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, v)
		}
	}
	return dst
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
