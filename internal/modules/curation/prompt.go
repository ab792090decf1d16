package curation

import (
	"fmt"
	"math"

	json "github.com/goccy/go-json"

	"vibe/internal/ai"
	"vibe/internal/modules/activity"
)

const systemPrompt = `You curate exactly 5 venues for a traveller from a list of verified candidates.

Rules:
1. topFiveIds MUST contain exactly 5 distinct ids copied from the candidate list. Never invent ids.
2. Maximise category diversity first, then quality (rating and weatherScore).
3. Write one blurb per selected id, at most 300 characters, using only facts present in that candidate's fields. Do not alter names, ratings or counts.
4. Optionally group the 5 ids into 1 to 5 clusters with short labels (max 50 characters). Cluster ids must be among topFiveIds.
5. rationale is one sentence, at most 200 characters.
6. Output JSON only.`

type promptCandidate struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Rating   *float64          `json:"rating,omitempty"`
	Reviews  *int              `json:"reviews,omitempty"`
	Category activity.Category `json:"category,omitempty"`
	Weather  float64           `json:"weatherScore"`
	Tags     []string          `json:"tags,omitempty"`
}

type promptPayload struct {
	Buckets    []activity.Category `json:"targetBuckets,omitempty"`
	Energy     activity.Energy     `json:"energy,omitempty"`
	Candidates []promptCandidate   `json:"candidates"`
}

// modelResponse is the shape requested from the generator.
type modelResponse struct {
	TopFiveIDs []string  `json:"topFiveIds"`
	Clusters   []Cluster `json:"clusters"`
	Summaries  []struct {
		ID    string `json:"id"`
		Blurb string `json:"blurb"`
	} `json:"summaries"`
	Rationale string `json:"rationale"`
}

var responseSchema = ai.Object(map[string]*ai.Schema{
	"topFiveIds": ai.ArrayOf(ai.String("candidate id")),
	"clusters": ai.ArrayOf(ai.Object(map[string]*ai.Schema{
		"label": ai.String("short cluster label"),
		"ids":   ai.ArrayOf(ai.String("candidate id")),
	}, "label", "ids")),
	"summaries": ai.ArrayOf(ai.Object(map[string]*ai.Schema{
		"id":    ai.String("candidate id"),
		"blurb": ai.String("at most 300 characters"),
	}, "id", "blurb")),
	"rationale": ai.String("one sentence"),
}, "topFiveIds", "summaries", "rationale")

func buildRequest(ranked []scored, spec activity.FilterSpec) (ai.JSONRequest, error) {
	payload := promptPayload{Buckets: spec.Buckets, Energy: spec.Energy}
	for _, s := range ranked {
		tags := s.Tags
		if len(tags) > 5 {
			tags = tags[:5]
		}
		payload.Candidates = append(payload.Candidates, promptCandidate{
			ID:       s.ID,
			Name:     s.Name,
			Rating:   s.Rating,
			Reviews:  s.ReviewCount,
			Category: s.Category,
			Weather:  math.Round(s.Suitability()*100) / 100,
			Tags:     tags,
		})
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return ai.JSONRequest{}, fmt.Errorf("curation: marshal prompt: %w", err)
	}
	return ai.JSONRequest{
		System:      systemPrompt,
		User:        "Curate these candidates:\n" + string(raw),
		Schema:      responseSchema,
		Temperature: 0.3,
	}, nil
}

func (r modelResponse) toCuration() Curation {
	c := Curation{
		TopFiveIDs: r.TopFiveIDs,
		Clusters:   r.Clusters,
		Rationale:  r.Rationale,
		Source:     SourceModel,
	}
	for _, s := range r.Summaries {
		c.Summaries = append(c.Summaries, Summary{ID: s.ID, Blurb: s.Blurb})
	}
	return c
}
