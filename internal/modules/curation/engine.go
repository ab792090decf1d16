package curation

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"vibe/internal/ai"
	"vibe/internal/modules/activity"
	"vibe/internal/modules/venue"
)

// Config tunes the model-assisted path.
type Config struct {
	ModelTimeout        time.Duration `koanf:"model_timeout"`
	RetryBackoff        time.Duration `koanf:"retry_backoff"`
	MaxPromptCandidates int           `koanf:"max_prompt_candidates"`
}

func DefaultConfig() Config {
	return Config{
		ModelTimeout:        20 * time.Second,
		RetryBackoff:        500 * time.Millisecond,
		MaxPromptCandidates: DefaultMaxPromptCandidates,
	}
}

// Engine selects five venues, through the generator when possible and the
// deterministic heuristic otherwise. A nil generator means heuristic only.
type Engine struct {
	gen    ai.Generator
	cfg    Config
	logger *zap.Logger
}

func NewEngine(gen ai.Generator, cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultConfig()
	if cfg.ModelTimeout <= 0 {
		cfg.ModelTimeout = def.ModelTimeout
	}
	if cfg.MaxPromptCandidates <= 0 {
		cfg.MaxPromptCandidates = def.MaxPromptCandidates
	}
	if cfg.RetryBackoff < 0 {
		cfg.RetryBackoff = 0
	}
	return &Engine{gen: gen, cfg: cfg, logger: logger}
}

// Eligible keeps candidates with an id and a name, dropping food venues when
// the caller asked to avoid them.
func Eligible(cands []venue.Candidate, spec activity.FilterSpec) []venue.Candidate {
	out := make([]venue.Candidate, 0, len(cands))
	for _, c := range cands {
		if c.ID == "" || c.Name == "" {
			continue
		}
		if spec.AvoidFood && c.IsFood() {
			continue
		}
		out = append(out, c)
	}
	return out
}

// Curate never fails: every path ends in a valid, possibly short, curation.
func (e *Engine) Curate(ctx context.Context, cands []venue.Candidate, spec activity.FilterSpec, cons Constraints) Curation {
	eligible := Eligible(venue.Dedupe(cands), spec)

	if len(eligible) == 0 {
		cur := Empty(emptyRationale)
		cur.FallbackReason = FallbackInsufficientCandidates
		return cur
	}
	if len(eligible) < TargetSize && !cons.AllowShort {
		cur := Empty("No valid curation possible: fewer than 5 eligible venues and a short result was not allowed.")
		cur.FallbackReason = FallbackInsufficientCandidates
		return cur
	}

	var reason FallbackReason
	switch {
	case len(eligible) < TargetSize:
		reason = FallbackInsufficientCandidates
	case e.gen == nil:
		reason = FallbackModelUnavailable
	case cons.DisableModel:
		reason = FallbackModelDisabled
	case !e.charge(ctx, cons.Meter):
		reason = FallbackModelDisabled
	default:
		cur, r := e.modelAssisted(ctx, eligible, spec)
		if r == FallbackNone {
			return cur
		}
		reason = r
	}

	cur := Heuristic(eligible)
	cur.FallbackReason = reason
	div, err := Validate(cur, eligible, spec.Buckets, true)
	if err != nil {
		// Heuristic output is valid by construction; this indicates a bug.
		e.logger.Error("heuristic curation failed validation", zap.Error(err))
	}
	applyDiversity(&cur, div)
	e.logger.Info("heuristic curation",
		zap.String("fallback_reason", string(reason)),
		zap.Int("eligible", len(eligible)),
		zap.Int("selected", len(cur.TopFiveIDs)))
	return cur
}

// charge reports whether m admits one model call. A nil meter always does.
func (e *Engine) charge(ctx context.Context, m Meter) bool {
	if m == nil {
		return true
	}
	if err := m.Charge(ctx); err != nil {
		e.logger.Info("model curation not admitted by meter", zap.Error(err))
		return false
	}
	return true
}

// modelAssisted returns the validated model curation, or the reason it must
// be discarded. Model output is never repaired.
func (e *Engine) modelAssisted(ctx context.Context, eligible []venue.Candidate, spec activity.FilterSpec) (Curation, FallbackReason) {
	ranked := rank(eligible)
	if len(ranked) > e.cfg.MaxPromptCandidates {
		ranked = ranked[:e.cfg.MaxPromptCandidates]
	}
	req, err := buildRequest(ranked, spec)
	if err != nil {
		e.logger.Warn("curation prompt build failed", zap.Error(err))
		return Curation{}, FallbackModelFailed
	}

	var resp modelResponse
	if err := e.complete(ctx, req, &resp); err != nil {
		if errors.Is(err, ai.ErrInvalidResponse) {
			e.logger.Warn("model curation unparseable", zap.Error(err))
			return Curation{}, FallbackValidationFailed
		}
		e.logger.Warn("model curation call failed", zap.Error(err))
		return Curation{}, FallbackModelFailed
	}

	cur := resp.toCuration()
	div, err := Validate(cur, eligible, spec.Buckets, false)
	if err != nil {
		e.logger.Warn("model curation rejected", zap.Error(err))
		return Curation{}, FallbackValidationFailed
	}

	byID := make(map[string]venue.Candidate, len(eligible))
	for _, c := range eligible {
		byID[c.ID] = c
	}
	for i := range cur.Summaries {
		cur.Summaries[i].Bucket = byID[cur.Summaries[i].ID].Category
	}
	applyDiversity(&cur, div)
	return cur, FallbackNone
}

// complete makes one call plus one retry on transient failure. Invalid
// responses are not retried.
func (e *Engine) complete(ctx context.Context, req ai.JSONRequest, out *modelResponse) error {
	var err error
	for attempt := 0; attempt < 2; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(e.cfg.RetryBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		*out = modelResponse{}
		callCtx, cancel := context.WithTimeout(ctx, e.cfg.ModelTimeout)
		err = e.gen.CompleteJSON(callCtx, req, out)
		cancel()
		if err == nil || errors.Is(err, ai.ErrInvalidResponse) || ctx.Err() != nil {
			return err
		}
		e.logger.Debug("model call failed; retrying", zap.Int("attempt", attempt+1), zap.Error(err))
	}
	return err
}

func applyDiversity(c *Curation, d Diversity) {
	c.DiversityScore = d.Score
	c.BucketsRepresented = d.Represented
	c.Warnings = append(c.Warnings, d.Warnings...)
}
