package curation

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"vibe/internal/modules/activity"
	"vibe/internal/modules/venue"
)

const (
	ratingWeight  = 0.7
	weatherWeight = 0.3
	// neutralRating is the normalized rating assumed for unrated venues.
	neutralRating = 0.5
)

const emptyRationale = "No valid curation possible: no eligible venues were provided."

// Score is 0.7 * normalized rating + 0.3 * weather suitability.
func Score(c venue.Candidate) float64 {
	r := neutralRating
	if c.Rating != nil {
		r = min(max(*c.Rating/5, 0), 1)
	}
	return ratingWeight*r + weatherWeight*c.Suitability()
}

type scored struct {
	venue.Candidate
	score float64
}

// rank sorts by score descending, then id ascending.
func rank(cands []venue.Candidate) []scored {
	out := make([]scored, len(cands))
	for i, c := range cands {
		out[i] = scored{Candidate: c, score: Score(c)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// pickDiverse walks the ranking once taking one venue per category, then
// fills remaining slots in rank order regardless of category.
func pickDiverse(ranked []scored, n int) []scored {
	picked := make([]scored, 0, n)
	taken := map[string]bool{}
	usedCategory := map[activity.Category]bool{}

	for _, s := range ranked {
		if len(picked) == n {
			break
		}
		if taken[s.ID] || usedCategory[s.Category] {
			continue
		}
		picked = append(picked, s)
		taken[s.ID] = true
		usedCategory[s.Category] = true
	}
	for _, s := range ranked {
		if len(picked) == n {
			break
		}
		if taken[s.ID] {
			continue
		}
		picked = append(picked, s)
		taken[s.ID] = true
	}
	return picked
}

// Heuristic builds a deterministic curation from eligible candidates. It
// returns fewer than TargetSize venues when fewer exist and never invents any.
func Heuristic(eligible []venue.Candidate) Curation {
	if len(eligible) == 0 {
		return Empty(emptyRationale)
	}
	picked := pickDiverse(rank(eligible), TargetSize)

	c := Curation{Source: SourceHeuristic}
	for _, s := range picked {
		c.TopFiveIDs = append(c.TopFiveIDs, s.ID)
		c.Summaries = append(c.Summaries, Summary{ID: s.ID, Blurb: Blurb(s.Candidate), Bucket: s.Category})
	}
	c.Clusters = clusterByCategory(picked)

	categories := map[activity.Category]bool{}
	for _, s := range picked {
		categories[s.Category] = true
	}
	if len(picked) < TargetSize {
		c.Rationale = fmt.Sprintf("Only %d verified venues were available; returning %d instead of %d.", len(picked), len(picked), TargetSize)
	} else {
		c.Rationale = fmt.Sprintf("Selected the %d highest-scoring verified venues across %d categories, weighting rating 70%% and weather suitability 30%%.", len(picked), len(categories))
	}
	return c
}

// Empty returns a curation with no venues.
func Empty(rationale string) Curation {
	return Curation{
		TopFiveIDs: []string{},
		Clusters:   []Cluster{},
		Summaries:  []Summary{},
		Rationale:  rationale,
		Source:     SourceHeuristic,
	}
}

func clusterByCategory(picked []scored) []Cluster {
	var out []Cluster
	index := map[string]int{}
	for _, s := range picked {
		label := string(s.Category)
		if label == "" {
			label = "other"
		}
		i, ok := index[label]
		if !ok {
			i = len(out)
			index[label] = i
			out = append(out, Cluster{Label: label})
		}
		out[i].IDs = append(out[i].IDs, s.ID)
	}
	return out
}

// Blurb describes a venue from its own fields only.
func Blurb(c venue.Candidate) string {
	var b strings.Builder
	switch {
	case c.Rating != nil && c.ReviewCount != nil && *c.ReviewCount > 0:
		fmt.Fprintf(&b, "%s is rated %.1f/5 across %d reviews.", c.Name, *c.Rating, *c.ReviewCount)
	case c.Rating != nil:
		fmt.Fprintf(&b, "%s is rated %.1f/5.", c.Name, *c.Rating)
	case c.Category != "":
		fmt.Fprintf(&b, "%s is a verified %s spot nearby.", c.Name, c.Category)
	default:
		fmt.Fprintf(&b, "%s is a verified spot nearby.", c.Name)
	}
	if d := strings.TrimSpace(c.Description); d != "" {
		b.WriteString(" ")
		b.WriteString(d)
	}
	return truncateRunes(b.String(), MaxBlurbLength)
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return strings.TrimSpace(string(r[:n-3])) + "..."
}
