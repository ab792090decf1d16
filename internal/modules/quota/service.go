package quota

import (
	"context"
	"errors"
	"time"
)

// Status is a caller's allowance for the current month.
type Status struct {
	UID       string    `json:"uid"`
	Remaining int       `json:"remaining"`
	Allowance int       `json:"allowance"`
	ResetsAt  time.Time `json:"resetsAt"`
}

// Service orchestrates quota usage.
type Service struct {
	ledger  Ledger
	metrics *Metrics
	now     func() time.Time
}

func NewService(ledger Ledger) *Service {
	return &Service{ledger: ledger, now: time.Now}
}

// SetMetrics is optional.
func (s *Service) SetMetrics(m *Metrics) {
	s.metrics = m
}

// Use deducts one call from the caller's monthly allowance. A caller without a
// row is initialised and charged in the same call.
func (s *Service) Use(ctx context.Context, uid string) error {
	err := s.use(ctx, uid)
	switch {
	case err == nil:
		s.metrics.charge(outcomeCharged)
	case errors.Is(err, ErrInsufficientQuota):
		s.metrics.charge(outcomeExhausted)
	default:
		s.metrics.charge(outcomeError)
	}
	return err
}

func (s *Service) use(ctx context.Context, uid string) error {
	err := s.ledger.UseCall(ctx, uid)
	if !errors.Is(err, ErrInsufficientQuota) {
		return err
	}

	// Row may be missing: create it, then retry the deduction once.
	if initErr := s.ledger.EnsureUser(ctx, uid); initErr != nil {
		return initErr
	}
	return s.ledger.UseCall(ctx, uid)
}

// Remaining reports calls left this month; unknown callers have the full allowance.
func (s *Service) Remaining(ctx context.Context, uid string) (int, error) {
	return s.ledger.Remaining(ctx, uid)
}

// Status reports the caller's remaining calls and when the allowance resets.
func (s *Service) Status(ctx context.Context, uid string) (Status, error) {
	left, err := s.ledger.Remaining(ctx, uid)
	if err != nil {
		return Status{}, err
	}
	return Status{
		UID:       uid,
		Remaining: left,
		Allowance: DefaultCalls,
		ResetsAt:  NextReset(s.now()),
	}, nil
}

// NextReset is the first instant of the month after t, in UTC. Allowances are
// tracked per UTC calendar month.
func NextReset(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}
