package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"

	json "github.com/goccy/go-json"
	"go.uber.org/zap"

	"vibe/internal/ai"
	"vibe/internal/modules/activity"
	"vibe/internal/modules/taxonomy"
)

const (
	// MaxProposedIntents caps how many intents one vibe expands into.
	MaxProposedIntents = 6
	// KeywordConfidence is assigned to intents matched without the model.
	KeywordConfidence = 0.5
)

const proposeSystemPrompt = `You map a traveller's free-text mood to activity intents.

Rules:
1. Choose between 1 and 6 intent ids from the provided catalogue only.
2. Give each a confidence between 0 and 1 reflecting how well it matches.
3. Prefer variety across categories when the mood is broad.
4. Output JSON only.`

// proposeSchema restricts ids to the catalogue so the model cannot invent one.
func proposeSchema(ids []string) *ai.Schema {
	return ai.Object(map[string]*ai.Schema{
		"intents": ai.ArrayOf(ai.Object(map[string]*ai.Schema{
			"id":         ai.Enum("intent id from the catalogue", ids...),
			"confidence": ai.Number("0 to 1"),
		}, "id", "confidence")),
	}, "intents")
}

type proposal struct {
	Intents []struct {
		ID         string  `json:"id"`
		Confidence float64 `json:"confidence"`
	} `json:"intents"`
}

type catalogueEntry struct {
	ID       string            `json:"id"`
	Label    string            `json:"label"`
	Category activity.Category `json:"category"`
	Subtypes []string          `json:"subtypes"`
}

// Proposer turns a vibe into taxonomy intents.
type Proposer struct {
	gen       ai.Generator
	tax       *taxonomy.Taxonomy
	catalogue []catalogueEntry
	schema    *ai.Schema
	logger    *zap.Logger
}

func NewProposer(gen ai.Generator, tax *taxonomy.Taxonomy, logger *zap.Logger) *Proposer {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Proposer{gen: gen, tax: tax, logger: logger}
	ids := make([]string, 0, len(tax.Intents()))
	for _, in := range tax.Intents() {
		p.catalogue = append(p.catalogue, catalogueEntry{ID: in.ID, Label: in.Label, Category: in.Category, Subtypes: in.Subtypes})
		ids = append(ids, in.ID)
	}
	p.schema = proposeSchema(ids)
	return p
}

// Propose asks the generator for intents and falls back to keyword matching
// when the model is absent, fails, or returns nothing usable.
func (p *Proposer) Propose(ctx context.Context, vibe string, spec activity.FilterSpec) []activity.Intent {
	if p.gen != nil {
		intents, err := p.fromModel(ctx, vibe, spec)
		if err == nil && len(intents) > 0 {
			return intents
		}
		p.logger.Warn("intent proposal fell back to keywords", zap.Error(err), zap.Int("model_intents", len(intents)))
	}
	return p.fromKeywords(vibe, spec)
}

func (p *Proposer) fromModel(ctx context.Context, vibe string, spec activity.FilterSpec) ([]activity.Intent, error) {
	raw, err := json.Marshal(map[string]any{
		"vibe":          vibe,
		"targetBuckets": spec.Buckets,
		"energy":        spec.Energy,
		"catalogue":     p.catalogue,
	})
	if err != nil {
		return nil, fmt.Errorf("propose: marshal prompt: %w", err)
	}

	var out proposal
	err = p.gen.CompleteJSON(ctx, ai.JSONRequest{
		System:      proposeSystemPrompt,
		User:        string(raw),
		Schema:      p.schema,
		Temperature: 0.4,
	}, &out)
	if err != nil {
		return nil, fmt.Errorf("propose: %w", err)
	}

	seen := map[string]bool{}
	var intents []activity.Intent
	for _, got := range out.Intents {
		in, ok := p.tax.Intent(got.ID)
		if !ok || seen[in.ID] {
			continue
		}
		seen[in.ID] = true
		intents = append(intents, in.WithConfidence(got.Confidence))
		if len(intents) == MaxProposedIntents {
			break
		}
	}
	return intents, nil
}

// fromKeywords scores each intent by how many vibe words hit its label,
// subtypes or category, then falls back to the requested buckets.
func (p *Proposer) fromKeywords(vibe string, spec activity.FilterSpec) []activity.Intent {
	words := tokenize(vibe)
	type hit struct {
		intent activity.Intent
		score  int
		order  int
	}
	var hits []hit
	for i, in := range p.tax.Intents() {
		vocab := map[string]bool{string(in.Category): true}
		for _, w := range tokenize(in.Label) {
			vocab[w] = true
		}
		for _, s := range in.Subtypes {
			for _, w := range tokenize(s) {
				vocab[w] = true
			}
		}
		score := 0
		for _, w := range words {
			if vocab[w] || vocab[strings.TrimSuffix(w, "s")] {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, hit{intent: in, score: score, order: i})
		}
	}

	if len(hits) == 0 && len(spec.Buckets) > 0 {
		want := map[activity.Category]bool{}
		for _, b := range spec.Buckets {
			want[b] = true
		}
		for i, in := range p.tax.Intents() {
			if want[in.Category] {
				hits = append(hits, hit{intent: in, score: 1, order: i})
			}
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].order < hits[j].order
	})
	if len(hits) > MaxProposedIntents {
		hits = hits[:MaxProposedIntents]
	}
	out := make([]activity.Intent, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.intent.WithConfidence(KeywordConfidence))
	}
	return out
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= 3 {
			out = append(out, f)
		}
	}
	return out
}
