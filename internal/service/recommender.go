// README: Pipeline orchestration: vibe -> intents -> plan -> execute -> weather -> curate.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"vibe/internal/modules/activity"
	"vibe/internal/modules/curation"
	"vibe/internal/modules/executor"
	"vibe/internal/modules/planner"
	"vibe/internal/modules/quota"
	"vibe/internal/modules/taxonomy"
	"vibe/internal/modules/venue"
	"vibe/internal/modules/weather"
	"vibe/internal/types"
)

// ErrInvalidRequest marks caller input that fails validation.
var ErrInvalidRequest = errors.New("invalid request")

var validate = validator.New()

// MaxCurateItems bounds a caller-supplied candidate list.
const MaxCurateItems = 500

// Executor runs planned provider queries under a budget.
type Executor interface {
	Execute(ctx context.Context, queries []planner.Query, budget executor.Budget) (*executor.Results, error)
}

// WeatherSource reports current conditions at a point.
type WeatherSource interface {
	GetCurrentWeather(ctx context.Context, p types.Point) (*weather.Condition, error)
}

// QuotaSpender charges one model-assisted curation to a caller.
type QuotaSpender interface {
	Use(ctx context.Context, uid string) error
}

// Deps wires a Recommender. Weather and Quota are optional.
type Deps struct {
	Taxonomy *taxonomy.Taxonomy
	Proposer *Proposer
	Executor Executor
	Weather  WeatherSource
	Quota    QuotaSpender
	Curator  *curation.Engine
	Budget   executor.Budget
	Logger   *zap.Logger
}

// Recommender runs the full recommendation pipeline for one request.
type Recommender struct {
	tax      *taxonomy.Taxonomy
	proposer *Proposer
	planner  *planner.Planner
	exec     Executor
	weather  WeatherSource
	quota    QuotaSpender
	curator  *curation.Engine
	budget   executor.Budget
	logger   *zap.Logger
}

func NewRecommender(d Deps) (*Recommender, error) {
	if d.Taxonomy == nil || d.Executor == nil || d.Curator == nil {
		return nil, fmt.Errorf("service: taxonomy, executor and curator are required")
	}
	if err := d.Budget.Validate(); err != nil {
		return nil, err
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	proposer := d.Proposer
	if proposer == nil {
		proposer = NewProposer(nil, d.Taxonomy, logger)
	}
	return &Recommender{
		tax:      d.Taxonomy,
		proposer: proposer,
		planner:  planner.New(d.Taxonomy),
		exec:     d.Executor,
		weather:  d.Weather,
		quota:    d.Quota,
		curator:  d.Curator,
		budget:   d.Budget,
		logger:   logger,
	}, nil
}

// Request is one recommendation request. Either Vibe or IntentIDs is required.
type Request struct {
	RequestID string              `json:"requestId,omitempty"`
	UID       string              `json:"uid,omitempty" validate:"omitempty,max=128"`
	Vibe      string              `json:"vibe" validate:"required_without=IntentIDs,max=500"`
	IntentIDs []string            `json:"intentIds,omitempty" validate:"max=6,dive,required"`
	Lat       float64             `json:"lat" validate:"gte=-90,lte=90"`
	Lon       float64             `json:"lon" validate:"gte=-180,lte=180"`
	RadiusKm  float64             `json:"radiusKm" validate:"gte=0,lte=50"`
	Region    string              `json:"region,omitempty"`
	Filter    activity.FilterSpec `json:"filterSpec"`
}

// Response carries the curation plus what was needed to produce it.
type Response struct {
	RequestID string              `json:"requestId"`
	Intents   []activity.Intent   `json:"intents"`
	Curation  curation.Curation   `json:"curation"`
	Venues    []venue.Candidate   `json:"venues"`
	Weather   *weather.Assessment `json:"weather,omitempty"`
	Queries   int                 `json:"queries"`
	Stats     executor.Stats      `json:"stats"`
}

// Recommend never fails on provider, weather or model trouble; only invalid
// input, unknown intents or an invalid budget return an error.
func (r *Recommender) Recommend(ctx context.Context, req Request) (*Response, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	reqID := req.RequestID
	if reqID == "" {
		reqID = uuid.NewString()
	}
	log := r.logger.With(zap.String("request_id", reqID))

	intents, err := r.intents(ctx, req)
	if err != nil {
		return nil, err
	}

	center := types.Point{Lat: req.Lat, Lon: req.Lon}
	area := planner.Area{Center: center, RadiusMeters: int(req.RadiusKm * 1000), Label: req.Region}
	queries := r.planner.Plan(intents, area)

	results, err := r.exec.Execute(ctx, queries, r.budget)
	if err != nil {
		return nil, err
	}
	cands := flatten(results, intents)

	var cond *weather.Condition
	if r.weather != nil {
		cond, err = r.weather.GetCurrentWeather(ctx, center)
		if err != nil {
			log.Warn("weather unavailable; scoring neutrally", zap.Error(err))
			cond = nil
		}
	}
	cands = weather.Annotate(cands, cond)

	cons := r.constraints(log, req.UID)
	cur := r.curator.Curate(ctx, cands, req.Filter, cons)

	resp := &Response{
		RequestID: reqID,
		Intents:   intents,
		Curation:  cur,
		Venues:    pick(cands, cur.TopFiveIDs),
		Queries:   len(queries),
		Stats:     results.Stats,
	}
	if cond != nil {
		a := weather.Assess(cond)
		resp.Weather = &a
	}
	log.Info("recommendation assembled",
		zap.Int("intents", len(intents)),
		zap.Int("queries", len(queries)),
		zap.Int("candidates", len(cands)),
		zap.String("source", string(cur.Source)),
		zap.String("fallback_reason", string(cur.FallbackReason)))
	return resp, nil
}

// Curate runs only the curation stage over caller-supplied candidates.
func (r *Recommender) Curate(ctx context.Context, uid string, items []venue.Candidate, spec activity.FilterSpec) (curation.Curation, error) {
	if len(items) > MaxCurateItems {
		return curation.Curation{}, fmt.Errorf("%w: %d items exceeds %d", ErrInvalidRequest, len(items), MaxCurateItems)
	}
	// Items without an id or name are ineligible, not invalid; ranges are checked.
	for i := range items {
		if err := validate.StructExcept(items[i], "ID", "Name"); err != nil {
			return curation.Curation{}, fmt.Errorf("%w: item %d: %v", ErrInvalidRequest, i, err)
		}
	}
	for _, c := range spec.Buckets {
		if !c.Valid() {
			return curation.Curation{}, fmt.Errorf("%w: unknown bucket %q", ErrInvalidRequest, c)
		}
	}
	cons := r.constraints(r.logger, uid)
	return r.curator.Curate(ctx, items, spec, cons), nil
}

func (r *Recommender) intents(ctx context.Context, req Request) ([]activity.Intent, error) {
	if len(req.IntentIDs) > 0 {
		intents, err := r.tax.Resolve(req.IntentIDs...)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
		}
		return intents, nil
	}
	return r.proposer.Propose(ctx, req.Vibe, req.Filter), nil
}

// quotaMeter charges one model-assisted curation to uid.
type quotaMeter struct {
	quota QuotaSpender
	uid   string
	log   *zap.Logger
}

func (m quotaMeter) Charge(ctx context.Context) error {
	err := m.quota.Use(ctx, m.uid)
	if err != nil && !errors.Is(err, quota.ErrInsufficientQuota) {
		m.log.Warn("quota check failed; using heuristic curation", zap.Error(err))
	}
	return err
}

// constraints meters model use for identified callers. The curator charges
// the meter only when it is about to call the model, so heuristic-only runs
// cost nothing.
func (r *Recommender) constraints(log *zap.Logger, uid string) curation.Constraints {
	cons := curation.DefaultConstraints()
	if r.quota != nil && uid != "" {
		cons.Meter = quotaMeter{quota: r.quota, uid: uid, log: log}
	}
	return cons
}

func validateRequest(req Request) error {
	if err := validate.Struct(req); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	if strings.TrimSpace(req.Vibe) == "" && len(req.IntentIDs) == 0 {
		return fmt.Errorf("%w: vibe or intentIds required", ErrInvalidRequest)
	}
	for _, c := range req.Filter.Buckets {
		if !c.Valid() {
			return fmt.Errorf("%w: unknown bucket %q", ErrInvalidRequest, c)
		}
	}
	return nil
}

// flatten gathers candidates per intent, tagging each with the intent's
// bucket when the provider gave none.
func flatten(res *executor.Results, intents []activity.Intent) []venue.Candidate {
	var out []venue.Candidate
	for _, in := range intents {
		for _, c := range res.Candidates(in.ID) {
			if c.Category == "" {
				c.Category = in.Category
			}
			out = append(out, c)
		}
	}
	return out
}

// pick returns the merged records for ids, in order.
func pick(cands []venue.Candidate, ids []string) []venue.Candidate {
	out := make([]venue.Candidate, 0, len(ids))
	if len(ids) == 0 {
		return out
	}
	merged := venue.Dedupe(cands)
	byID := make(map[string]venue.Candidate, len(merged))
	for _, c := range merged {
		byID[c.ID] = c
	}
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			out = append(out, c)
		}
	}
	return out
}
