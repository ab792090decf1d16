package executor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"vibe/internal/modules/planner"
	"vibe/internal/modules/venue"
)

// Adapter performs one provider call and returns normalized candidates.
type Adapter interface {
	Search(ctx context.Context, q planner.Query) ([]venue.Candidate, error)
}

type outcome string

const (
	outcomeSuccess outcome = "success"
	outcomeEmpty   outcome = "empty"
	outcomeError   outcome = "error"
	outcomeTimeout outcome = "timeout"
)

// Executor runs planned queries under a Budget.
type Executor struct {
	adapters map[venue.Provider]Adapter
	metrics  *Metrics
	logger   *zap.Logger
	now      func() time.Time
}

func New(adapters map[venue.Provider]Adapter) *Executor {
	return &Executor{
		adapters: adapters,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
}

// SetMetrics is optional.
func (e *Executor) SetMetrics(m *Metrics) {
	e.metrics = m
}

// SetLogger is optional.
func (e *Executor) SetLogger(l *zap.Logger) {
	if l != nil {
		e.logger = l
	}
}

// Execute admits queries by priority under the budget, runs them in batches of
// MaxConcurrentCalls and merges candidates back to their intents. Individual
// call failures are recorded in Stats, never returned. The only error is an
// invalid budget.
func (e *Executor) Execute(ctx context.Context, queries []planner.Query, budget Budget) (*Results, error) {
	if err := budget.Validate(); err != nil {
		return nil, err
	}

	start := e.now()
	res := &Results{ByIntent: map[string]map[venue.Provider][]venue.Candidate{}}
	res.Stats.Planned = len(queries)

	run, unrouted := e.admit(queries, budget)
	res.Stats.Skipped = len(queries) - len(run)
	e.metrics.dropped(len(queries) - len(run))
	for p, n := range unrouted {
		res.Stats.Unrouted += n
		e.logger.Warn("queries skipped",
			zap.String("provider", string(p)),
			zap.Int("count", n),
			zap.Error(ErrNoAdapter))
	}

	var mu sync.Mutex
	record := func(q planner.Query, cands []venue.Candidate, out outcome) {
		mu.Lock()
		defer mu.Unlock()
		res.Stats.Total++
		if out != outcomeSuccess {
			res.Stats.Failed++
			return
		}
		res.Stats.Succeeded++
		byProvider := res.ByIntent[q.IntentID]
		if byProvider == nil {
			byProvider = map[venue.Provider][]venue.Candidate{}
			res.ByIntent[q.IntentID] = byProvider
		}
		byProvider[q.Provider] = append(byProvider[q.Provider], cands...)
	}

	size := budget.MaxConcurrentCalls
	for i := 0; i < len(run); i += size {
		if i > 0 && e.now().Sub(start) >= budget.MaxTotalExecutionTime {
			res.Stats.DeadlineHit = true
			res.Stats.Skipped += len(run) - i
			e.logger.Warn("execution deadline reached; dropping remaining batches",
				zap.Int("remaining", len(run)-i),
				zap.Duration("elapsed", e.now().Sub(start)))
			break
		}
		if ctx.Err() != nil {
			res.Stats.Skipped += len(run) - i
			break
		}

		batch := run[i:min(i+size, len(run))]
		var wg sync.WaitGroup
		for _, q := range batch {
			wg.Add(1)
			go func(q planner.Query) {
				defer wg.Done()
				cands, out := e.call(ctx, q, budget.TimeoutPerCall)
				record(q, cands, out)
			}(q)
		}
		wg.Wait()
		res.Stats.Batches++
		e.logger.Debug("provider batch complete",
			zap.Int("batch", res.Stats.Batches),
			zap.Int("size", len(batch)))
	}

	res.Stats.Elapsed = e.now().Sub(start)
	e.logger.Info("provider execution finished",
		zap.Int("planned", res.Stats.Planned),
		zap.Int("total", res.Stats.Total),
		zap.Int("succeeded", res.Stats.Succeeded),
		zap.Int("failed", res.Stats.Failed),
		zap.Int("skipped", res.Stats.Skipped),
		zap.Duration("elapsed", res.Stats.Elapsed))
	return res, nil
}

// admit greedily selects queries by descending priority. Equal priorities keep
// input order. Queries for providers without an adapter are never admitted;
// they are counted per provider in unrouted.
func (e *Executor) admit(queries []planner.Query, budget Budget) (run []planner.Query, unrouted map[venue.Provider]int) {
	sorted := append([]planner.Query(nil), queries...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})

	perProvider := map[venue.Provider]int{}
	unrouted = map[venue.Provider]int{}
	run = make([]planner.Query, 0, min(len(sorted), budget.MaxTotalCalls))
	for _, q := range sorted {
		if _, ok := e.adapters[q.Provider]; !ok {
			unrouted[q.Provider]++
			continue
		}
		if len(run) >= budget.MaxTotalCalls {
			continue
		}
		if limit, capped := budget.MaxCallsPerProvider[q.Provider]; capped && perProvider[q.Provider] >= limit {
			continue
		}
		perProvider[q.Provider]++
		run = append(run, q)
	}
	return run, unrouted
}

type reply struct {
	cands []venue.Candidate
	err   error
}

// call races the adapter against the per-call timeout. An adapter that ignores
// cancellation is abandoned; its late reply lands in a buffered channel.
func (e *Executor) call(ctx context.Context, q planner.Query, timeout time.Duration) ([]venue.Candidate, outcome) {
	adapter := e.adapters[q.Provider]
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := e.now()
	ch := make(chan reply, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- reply{err: fmt.Errorf("adapter panic: %v", r)}
			}
		}()
		cands, err := adapter.Search(callCtx, q)
		ch <- reply{cands: cands, err: err}
	}()

	var (
		r   reply
		out outcome
	)
	select {
	case r = <-ch:
		switch {
		case r.err != nil && errors.Is(r.err, context.DeadlineExceeded):
			out = outcomeTimeout
		case r.err != nil:
			out = outcomeError
		case len(r.cands) == 0:
			out, r.err = outcomeEmpty, ErrNoResults
		default:
			out = outcomeSuccess
		}
	case <-callCtx.Done():
		out, r.err = outcomeTimeout, callCtx.Err()
	}
	e.metrics.observe(q.Provider, out, e.now().Sub(started))

	if out != outcomeSuccess {
		e.logger.Warn("provider call failed",
			zap.String("query", q.ID),
			zap.String("provider", string(q.Provider)),
			zap.String("outcome", string(out)),
			zap.Error(r.err))
		return nil, out
	}
	return stamp(r.cands, q), out
}

// stamp records provenance on a copy of the adapter's slice.
func stamp(cands []venue.Candidate, q planner.Query) []venue.Candidate {
	out := make([]venue.Candidate, 0, len(cands))
	for _, c := range cands {
		if c.Provider == "" {
			c.Provider = q.Provider
		}
		if c.ID == "" {
			c.ID = venue.QualifiedID(q.Provider, c.ProviderID)
		}
		c.Provenance = append(append([]venue.Provenance(nil), c.Provenance...),
			venue.Provenance{Provider: q.Provider, QueryID: q.ID, IntentID: q.IntentID})
		out = append(out, c)
	}
	return out
}
