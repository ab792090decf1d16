package curation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibe/internal/ai"
	"vibe/internal/modules/activity"
	"vibe/internal/modules/venue"
	"vibe/internal/modules/weather"
	"vibe/internal/types"
)

// ---------------------------------------------------------------------------
// Mock generator
// ---------------------------------------------------------------------------

type mockGenerator struct {
	mu    sync.Mutex
	calls int
	// errs is consumed one per call; once exhausted raw is decoded.
	errs []error
	raw  string
	last ai.JSONRequest
}

func (m *mockGenerator) CompleteJSON(ctx context.Context, req ai.JSONRequest, out any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.last = req
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return err
		}
	}
	if err := json.Unmarshal([]byte(m.raw), out); err != nil {
		return fmt.Errorf("%w: %v", ai.ErrInvalidResponse, err)
	}
	return nil
}

func (m *mockGenerator) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func modelJSON(ids ...string) string {
	type sum struct {
		ID    string `json:"id"`
		Blurb string `json:"blurb"`
	}
	resp := struct {
		TopFiveIDs []string  `json:"topFiveIds"`
		Clusters   []Cluster `json:"clusters"`
		Summaries  []sum     `json:"summaries"`
		Rationale  string    `json:"rationale"`
	}{TopFiveIDs: ids, Rationale: "A varied day out."}
	for _, id := range ids {
		resp.Summaries = append(resp.Summaries, sum{ID: id, Blurb: "Worth a visit."})
	}
	if len(ids) > 0 {
		resp.Clusters = []Cluster{{Label: "picks", IDs: ids[:1]}}
	}
	raw, _ := json.Marshal(resp)
	return string(raw)
}

func newTestEngine(gen ai.Generator) *Engine {
	return NewEngine(gen, Config{RetryBackoff: 0}, nil)
}

// eightAcrossFive spans five categories; ranking by score is
// a, b, c, e, f, g, d, h.
func eightAcrossFive() []venue.Candidate {
	return []venue.Candidate{
		cand("a", activity.CategoryTrails, 4.9, 0),
		cand("b", activity.CategoryTrails, 4.8, 1),
		cand("c", activity.CategoryCulture, 4.7, 2),
		cand("d", activity.CategoryCulture, 4.0, 3),
		cand("e", activity.CategoryNature, 4.5, 4),
		cand("f", activity.CategoryWater, 4.2, 5),
		cand("g", activity.CategoryWellness, 4.1, 6),
		cand("h", activity.CategoryWellness, 3.0, 7),
	}
}

var fiveDiverse = []string{"google:a", "google:c", "google:e", "google:f", "google:g"}

// ---------------------------------------------------------------------------
// Model path
// ---------------------------------------------------------------------------

func TestCurate_ModelAccepted(t *testing.T) {
	gen := &mockGenerator{raw: modelJSON("google:b", "google:c", "google:e", "google:f", "google:h")}
	got := newTestEngine(gen).Curate(context.Background(), eightAcrossFive(), activity.FilterSpec{}, DefaultConstraints())

	assert.Equal(t, SourceModel, got.Source)
	assert.Equal(t, FallbackNone, got.FallbackReason)
	assert.Equal(t, []string{"google:b", "google:c", "google:e", "google:f", "google:h"}, got.TopFiveIDs)
	assert.InDelta(t, 1.0, got.DiversityScore, 1e-9)
	assert.Len(t, got.BucketsRepresented, 5)
	assert.Equal(t, activity.CategoryTrails, got.Summaries[0].Bucket)
	assert.Equal(t, 1, gen.callCount())

	assert.Equal(t, systemPrompt, gen.last.System)
	assert.Contains(t, gen.last.User, `"id":"google:a"`)
	require.NotNil(t, gen.last.Schema)
}

func TestCurate_ModelFailureFallsBackToDiverseHeuristic(t *testing.T) {
	down := errors.New("upstream 503")
	gen := &mockGenerator{errs: []error{down, down}}
	got := newTestEngine(gen).Curate(context.Background(), eightAcrossFive(), activity.FilterSpec{}, DefaultConstraints())

	assert.Equal(t, SourceHeuristic, got.Source)
	assert.Equal(t, FallbackModelFailed, got.FallbackReason)
	assert.Equal(t, fiveDiverse, got.TopFiveIDs)
	assert.InDelta(t, 1.0, got.DiversityScore, 1e-9)
	assert.Equal(t, 2, gen.callCount(), "one retry on a transient error")
}

func TestCurate_RetrySucceeds(t *testing.T) {
	gen := &mockGenerator{
		errs: []error{errors.New("timeout")},
		raw:  modelJSON(fiveDiverse...),
	}
	got := newTestEngine(gen).Curate(context.Background(), eightAcrossFive(), activity.FilterSpec{}, DefaultConstraints())

	assert.Equal(t, SourceModel, got.Source)
	assert.Equal(t, 2, gen.callCount())
}

func TestCurate_InvalidResponseNotRetried(t *testing.T) {
	gen := &mockGenerator{raw: "not json"}
	got := newTestEngine(gen).Curate(context.Background(), eightAcrossFive(), activity.FilterSpec{}, DefaultConstraints())

	assert.Equal(t, FallbackValidationFailed, got.FallbackReason)
	assert.Equal(t, fiveDiverse, got.TopFiveIDs)
	assert.Equal(t, 1, gen.callCount())
}

func TestCurate_ModelReturnsTooFew(t *testing.T) {
	gen := &mockGenerator{raw: modelJSON("google:a", "google:b", "google:c")}
	got := newTestEngine(gen).Curate(context.Background(), eightAcrossFive(), activity.FilterSpec{}, DefaultConstraints())

	assert.Equal(t, SourceHeuristic, got.Source)
	assert.Equal(t, FallbackValidationFailed, got.FallbackReason)
	assert.Len(t, got.TopFiveIDs, 5)
}

func TestCurate_ModelInventsID(t *testing.T) {
	gen := &mockGenerator{raw: modelJSON("google:a", "google:c", "google:e", "google:f", "google:made-up")}
	got := newTestEngine(gen).Curate(context.Background(), eightAcrossFive(), activity.FilterSpec{}, DefaultConstraints())

	assert.Equal(t, FallbackValidationFailed, got.FallbackReason)
	assert.NotContains(t, got.TopFiveIDs, "google:made-up")
}

func TestCurate_PromptContextBounded(t *testing.T) {
	var in []venue.Candidate
	for i := 0; i < 40; i++ {
		in = append(in, cand(fmt.Sprintf("v%02d", i), activity.CategoryTrails, 3+float64(i%20)/10, i))
	}
	gen := &mockGenerator{raw: modelJSON()}
	NewEngine(gen, Config{MaxPromptCandidates: 10}, nil).Curate(context.Background(), in, activity.FilterSpec{}, DefaultConstraints())

	assert.Equal(t, 10, strings.Count(gen.last.User, `"id":`))
}

// ---------------------------------------------------------------------------
// Heuristic-only paths
// ---------------------------------------------------------------------------

func TestCurate_NoGenerator(t *testing.T) {
	got := newTestEngine(nil).Curate(context.Background(), eightAcrossFive(), activity.FilterSpec{}, DefaultConstraints())
	assert.Equal(t, FallbackModelUnavailable, got.FallbackReason)
	assert.Equal(t, fiveDiverse, got.TopFiveIDs)
}

func TestCurate_ModelDisabled(t *testing.T) {
	gen := &mockGenerator{raw: modelJSON(fiveDiverse...)}
	got := newTestEngine(gen).Curate(context.Background(), eightAcrossFive(), activity.FilterSpec{}, Constraints{AllowShort: true, DisableModel: true})

	assert.Equal(t, FallbackModelDisabled, got.FallbackReason)
	assert.Zero(t, gen.callCount())
}

func TestCurate_ZeroCandidates(t *testing.T) {
	gen := &mockGenerator{}
	got := newTestEngine(gen).Curate(context.Background(), nil, activity.FilterSpec{}, DefaultConstraints())

	assert.Empty(t, got.TopFiveIDs)
	assert.Equal(t, emptyRationale, got.Rationale)
	assert.Equal(t, FallbackInsufficientCandidates, got.FallbackReason)
	assert.Zero(t, gen.callCount())
}

func TestCurate_ShortInput(t *testing.T) {
	in := eightAcrossFive()[:3]
	gen := &mockGenerator{}

	got := newTestEngine(gen).Curate(context.Background(), in, activity.FilterSpec{}, DefaultConstraints())
	assert.Len(t, got.TopFiveIDs, 3)
	assert.Equal(t, FallbackInsufficientCandidates, got.FallbackReason)
	assert.Contains(t, got.Rationale, "Only 3")

	strict := newTestEngine(gen).Curate(context.Background(), in, activity.FilterSpec{}, Constraints{AllowShort: false})
	assert.Empty(t, strict.TopFiveIDs)
	assert.Equal(t, FallbackInsufficientCandidates, strict.FallbackReason)
	assert.Zero(t, gen.callCount())
}

func TestCurate_AvoidFood(t *testing.T) {
	in := eightAcrossFive()
	food := cand("z", activity.CategoryCulinary, 5, 20)
	in = append(in, food)

	got := newTestEngine(nil).Curate(context.Background(), in, activity.FilterSpec{AvoidFood: true}, DefaultConstraints())
	assert.NotContains(t, got.TopFiveIDs, food.ID)

	withFood := newTestEngine(nil).Curate(context.Background(), in, activity.FilterSpec{}, DefaultConstraints())
	assert.Contains(t, withFood.TopFiveIDs, food.ID)
}

func TestCurate_DedupesBeforeScoring(t *testing.T) {
	a := cand("a", activity.CategoryTrails, 4.9, 0)
	dup := venue.New(venue.ProviderOpenGeodata, "node/9", "PLACE  a", types.Point{Lat: a.Location.Lat + 0.0002, Lon: a.Location.Lon})
	dup.Category = activity.CategoryTrails

	in := append([]venue.Candidate{dup}, eightAcrossFive()...)
	got := newTestEngine(nil).Curate(context.Background(), in, activity.FilterSpec{}, DefaultConstraints())

	assert.Len(t, got.TopFiveIDs, 5)
	assert.Contains(t, got.TopFiveIDs, "google:a")
	assert.NotContains(t, got.TopFiveIDs, dup.ID)
}

func TestCurate_TargetBucketWarning(t *testing.T) {
	spec := activity.FilterSpec{Buckets: []activity.Category{activity.CategoryNightlife}}
	got := newTestEngine(nil).Curate(context.Background(), eightAcrossFive(), spec, DefaultConstraints())

	require.NotEmpty(t, got.Warnings)
	assert.Contains(t, got.Warnings[len(got.Warnings)-1], "nightlife")
}

func TestCurate_HeavyRainReordersRanking(t *testing.T) {
	trail := cand("trail", activity.CategoryTrails, 4.8, 0)
	trail.Tags = []string{"hiking"}
	museum := cand("museum", activity.CategoryTrails, 4.4, 1)
	museum.Tags = []string{"museum"}
	in := []venue.Candidate{trail, museum}

	clear := weather.Annotate(in, &weather.Condition{TemperatureC: 18})
	got := newTestEngine(nil).Curate(context.Background(), clear, activity.FilterSpec{}, DefaultConstraints())
	require.Len(t, got.TopFiveIDs, 2)
	assert.Equal(t, trail.ID, got.TopFiveIDs[0])

	rain := weather.Annotate(in, &weather.Condition{TemperatureC: 12, PrecipitationMM: 8})
	got = newTestEngine(nil).Curate(context.Background(), rain, activity.FilterSpec{}, DefaultConstraints())
	require.Len(t, got.TopFiveIDs, 2)
	assert.Equal(t, museum.ID, got.TopFiveIDs[0])
}

func TestCurate_Idempotent(t *testing.T) {
	e := newTestEngine(nil)
	first := e.Curate(context.Background(), eightAcrossFive(), activity.FilterSpec{}, DefaultConstraints())
	second := e.Curate(context.Background(), eightAcrossFive(), activity.FilterSpec{}, DefaultConstraints())
	assert.Equal(t, first, second)
}

func TestCurate_OutputIsSubsetOfInput(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	e := newTestEngine(nil)
	for round := 0; round < 200; round++ {
		n := rng.Intn(15)
		var in []venue.Candidate
		ids := map[string]bool{}
		for i := 0; i < n; i++ {
			c := cand(fmt.Sprintf("r%d-%d", round, i), activity.Categories[rng.Intn(len(activity.Categories))], rng.Float64()*5, i)
			in = append(in, c)
			ids[c.ID] = true
		}

		got := e.Curate(context.Background(), in, activity.FilterSpec{}, DefaultConstraints())
		require.LessOrEqual(t, len(got.TopFiveIDs), TargetSize)
		require.Equal(t, min(n, TargetSize), len(got.TopFiveIDs), "round %d", round)

		seen := map[string]bool{}
		for _, id := range got.TopFiveIDs {
			require.True(t, ids[id], "round %d: %s not in input", round, id)
			require.False(t, seen[id], "round %d: duplicate %s", round, id)
			seen[id] = true
		}
	}
}

// ---------------------------------------------------------------------------
// Metering
// ---------------------------------------------------------------------------

type mockMeter struct {
	mu      sync.Mutex
	charges int
	err     error
}

func (m *mockMeter) Charge(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.charges++
	return m.err
}

func TestCurate_MeterChargedOnlyBeforeModelCall(t *testing.T) {
	tests := []struct {
		name    string
		gen     ai.Generator
		cands   []venue.Candidate
		disable bool
		charges int
		reason  FallbackReason
	}{
		{"model runs", &mockGenerator{raw: modelJSON(fiveDiverse...)}, eightAcrossFive(), false, 1, FallbackNone},
		{"no generator", nil, eightAcrossFive(), false, 0, FallbackModelUnavailable},
		{"model disabled", &mockGenerator{}, eightAcrossFive(), true, 0, FallbackModelDisabled},
		{"too few eligible", &mockGenerator{}, eightAcrossFive()[:3], false, 0, FallbackInsufficientCandidates},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &mockMeter{}
			cons := Constraints{AllowShort: true, DisableModel: tt.disable, Meter: m}
			got := newTestEngine(tt.gen).Curate(context.Background(), tt.cands, activity.FilterSpec{}, cons)
			assert.Equal(t, tt.reason, got.FallbackReason)
			assert.Equal(t, tt.charges, m.charges)
		})
	}
}

func TestCurate_MeterRefusalDisablesModel(t *testing.T) {
	gen := &mockGenerator{raw: modelJSON(fiveDiverse...)}
	m := &mockMeter{err: errors.New("allowance spent")}
	cons := Constraints{AllowShort: true, Meter: m}

	got := newTestEngine(gen).Curate(context.Background(), eightAcrossFive(), activity.FilterSpec{}, cons)
	assert.Equal(t, SourceHeuristic, got.Source)
	assert.Equal(t, FallbackModelDisabled, got.FallbackReason)
	assert.Equal(t, 1, m.charges)
	assert.Zero(t, gen.callCount())
}

func TestCurate_FailedModelCallStillCharged(t *testing.T) {
	gen := &mockGenerator{errs: []error{errors.New("503"), errors.New("503")}}
	m := &mockMeter{}
	cons := Constraints{AllowShort: true, Meter: m}

	got := newTestEngine(gen).Curate(context.Background(), eightAcrossFive(), activity.FilterSpec{}, cons)
	assert.Equal(t, FallbackModelFailed, got.FallbackReason)
	assert.Equal(t, 1, m.charges)
	assert.Equal(t, 2, gen.callCount())
}
