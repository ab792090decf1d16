// README: Executor budget, results and statistics.
package executor

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"vibe/internal/modules/venue"
)

var (
	ErrInvalidBudget = errors.New("invalid budget")
	ErrNoResults     = errors.New("no results")
	ErrNoAdapter     = errors.New("no adapter for provider")
)

var validate = validator.New()

// Budget limits one Execute call. A provider missing from
// MaxCallsPerProvider is bounded only by MaxTotalCalls.
type Budget struct {
	MaxTotalCalls         int                    `json:"maxTotalCalls" validate:"gte=0"`
	MaxCallsPerProvider   map[venue.Provider]int `json:"maxCallsPerProvider" validate:"dive,gte=0"`
	MaxConcurrentCalls    int                    `json:"maxConcurrentCalls" validate:"gte=1"`
	TimeoutPerCall        time.Duration          `json:"timeoutPerCall" validate:"gt=0"`
	MaxTotalExecutionTime time.Duration          `json:"maxTotalExecutionTime" validate:"gt=0"`
}

// DefaultBudget mirrors production limits for one recommendation request.
func DefaultBudget() Budget {
	return Budget{
		MaxTotalCalls: 25,
		MaxCallsPerProvider: map[venue.Provider]int{
			venue.ProviderCommercialPlaces: 12,
			venue.ProviderOpenGeodata:      5,
			venue.ProviderPOIIndex:         8,
		},
		MaxConcurrentCalls:    4,
		TimeoutPerCall:        10 * time.Second,
		MaxTotalExecutionTime: 60 * time.Second,
	}
}

func (b Budget) Validate() error {
	if err := validate.Struct(b); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidBudget, err)
	}
	return nil
}

// Stats summarizes one execution.
type Stats struct {
	Planned int `json:"planned"`
	Skipped int `json:"skipped"`
	// Unrouted counts skipped queries whose provider has no adapter.
	Unrouted    int           `json:"unrouted"`
	Total       int           `json:"total"`
	Succeeded   int           `json:"succeeded"`
	Failed      int           `json:"failed"`
	Batches     int           `json:"batches"`
	DeadlineHit bool          `json:"deadlineHit"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Results holds candidates keyed by intent id then provider.
type Results struct {
	ByIntent map[string]map[venue.Provider][]venue.Candidate `json:"byIntent"`
	Stats    Stats                                           `json:"stats"`
}

// Candidates flattens one intent's results in provider order.
func (r *Results) Candidates(intentID string) []venue.Candidate {
	var out []venue.Candidate
	for _, p := range venue.Providers {
		out = append(out, r.ByIntent[intentID][p]...)
	}
	return out
}
