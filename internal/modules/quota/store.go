package quota

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const monthLayout = "2006-01"

// Store handles ai_quota persistence.
type Store struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// UseCall atomically checks the monthly allowance and deducts one call,
// resetting it to DefaultCalls when last_reset_month is behind. Returns
// ErrInsufficientQuota when no row is updated (exhausted or absent).
func (s *Store) UseCall(ctx context.Context, uid string) error {
	month := s.now().Format(monthLayout)

	tag, err := s.db.Exec(ctx, `
		UPDATE ai_quota SET
			calls_remaining = CASE WHEN last_reset_month != $1 THEN $2 - 1 ELSE calls_remaining - 1 END,
			last_reset_month = $1
		WHERE uid = $3 AND (last_reset_month < $1 OR calls_remaining > 0)
	`, month, DefaultCalls, uid)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInsufficientQuota
	}
	return nil
}

// EnsureUser inserts a row with the default allowance unless one exists.
func (s *Store) EnsureUser(ctx context.Context, uid string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO ai_quota (uid, calls_remaining, last_reset_month)
		VALUES ($1, $2, $3)
		ON CONFLICT (uid) DO NOTHING
	`, uid, DefaultCalls, s.now().Format(monthLayout))
	return err
}

func (s *Store) Remaining(ctx context.Context, uid string) (int, error) {
	month := s.now().Format(monthLayout)

	var remaining int
	var last string
	err := s.db.QueryRow(ctx,
		`SELECT calls_remaining, last_reset_month FROM ai_quota WHERE uid = $1`, uid,
	).Scan(&remaining, &last)
	if errors.Is(err, pgx.ErrNoRows) {
		return DefaultCalls, nil
	}
	if err != nil {
		return 0, err
	}
	if last < month {
		return DefaultCalls, nil
	}
	return remaining, nil
}
