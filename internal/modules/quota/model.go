// README: Monthly allowance of model-assisted curations per caller.
package quota

import (
	"context"
	"errors"
)

// ErrInsufficientQuota is returned when a caller has no model calls left this month.
var ErrInsufficientQuota = errors.New("insufficient quota")

// DefaultCalls is the number of model-assisted curations granted per month.
const DefaultCalls = 100

// Ledger persists per-caller allowances.
type Ledger interface {
	UseCall(ctx context.Context, uid string) error
	EnsureUser(ctx context.Context, uid string) error
	Remaining(ctx context.Context, uid string) (int, error)
}
