// README: Quota module tests (lazy monthly reset and allowance boundary).
package quota

import (
	"bufio"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---------------------------------------------------------------------------
// Service logic against an in-memory ledger
// ---------------------------------------------------------------------------

type memLedger struct {
	mu      sync.Mutex
	calls   map[string]int
	ensured int
	failUse error
}

func (m *memLedger) UseCall(_ context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failUse != nil {
		return m.failUse
	}
	left, ok := m.calls[uid]
	if !ok || left <= 0 {
		return ErrInsufficientQuota
	}
	m.calls[uid] = left - 1
	return nil
}

func (m *memLedger) EnsureUser(_ context.Context, uid string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ensured++
	if _, ok := m.calls[uid]; !ok {
		m.calls[uid] = DefaultCalls
	}
	return nil
}

func (m *memLedger) Remaining(_ context.Context, uid string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if left, ok := m.calls[uid]; ok {
		return left, nil
	}
	return DefaultCalls, nil
}

func TestServiceUse_InitialisesNewCaller(t *testing.T) {
	l := &memLedger{calls: map[string]int{}}
	svc := NewService(l)

	require.NoError(t, svc.Use(context.Background(), "u1"))
	left, err := svc.Remaining(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, DefaultCalls-1, left)
	assert.Equal(t, 1, l.ensured)
}

func TestServiceUse_Exhausted(t *testing.T) {
	l := &memLedger{calls: map[string]int{"u1": 0}}
	err := NewService(l).Use(context.Background(), "u1")
	assert.ErrorIs(t, err, ErrInsufficientQuota)
}

func TestServiceUse_StoreErrorNotRetried(t *testing.T) {
	boom := errors.New("connection reset")
	l := &memLedger{calls: map[string]int{}, failUse: boom}
	err := NewService(l).Use(context.Background(), "u1")
	assert.ErrorIs(t, err, boom)
	assert.Zero(t, l.ensured)
}

func TestServiceUse_RecordsChargeOutcomes(t *testing.T) {
	reg := prometheus.NewRegistry()
	l := &memLedger{calls: map[string]int{"u1": 1, "u2": 0}}
	svc := NewService(l)
	svc.SetMetrics(NewMetrics(reg))

	require.NoError(t, svc.Use(context.Background(), "u1"))
	assert.ErrorIs(t, svc.Use(context.Background(), "u1"), ErrInsufficientQuota)
	assert.ErrorIs(t, svc.Use(context.Background(), "u2"), ErrInsufficientQuota)
	l.failUse = errors.New("connection reset")
	assert.Error(t, svc.Use(context.Background(), "u1"))

	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.charges.WithLabelValues(outcomeCharged)))
	assert.Equal(t, 2.0, testutil.ToFloat64(svc.metrics.charges.WithLabelValues(outcomeExhausted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(svc.metrics.charges.WithLabelValues(outcomeError)))
}

func TestServiceUse_NilMetrics(t *testing.T) {
	svc := NewService(&memLedger{calls: map[string]int{"u1": 1}})
	assert.NotPanics(t, func() { _ = svc.Use(context.Background(), "u1") })
}

func TestServiceStatus(t *testing.T) {
	l := &memLedger{calls: map[string]int{"u1": 7}}
	svc := NewService(l)
	svc.now = func() time.Time { return time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC) }

	st, err := svc.Status(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, Status{
		UID:       "u1",
		Remaining: 7,
		Allowance: DefaultCalls,
		ResetsAt:  time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC),
	}, st)

	st, err = svc.Status(context.Background(), "new")
	require.NoError(t, err)
	assert.Equal(t, DefaultCalls, st.Remaining)
}

func TestNextReset(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want time.Time
	}{
		{"mid month", time.Date(2026, time.June, 10, 12, 0, 0, 0, time.UTC), time.Date(2026, time.July, 1, 0, 0, 0, 0, time.UTC)},
		{"december rolls the year", time.Date(2026, time.December, 31, 23, 59, 0, 0, time.UTC), time.Date(2027, time.January, 1, 0, 0, 0, 0, time.UTC)},
		{"offset zone uses utc month", time.Date(2026, time.May, 1, 1, 0, 0, 0, time.FixedZone("EEST", 3*3600)), time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextReset(tt.in))
		})
	}
}

// ---------------------------------------------------------------------------
// Postgres-backed store
// ---------------------------------------------------------------------------

// TestUseCrossMonthReset verifies that a caller with 0 calls left from a
// previous month is reset and the request succeeds.
func TestUseCrossMonthReset(t *testing.T) {
	svc, db := setupTestService(t)
	ctx := context.Background()

	if _, err := db.Exec(ctx, "INSERT INTO ai_quota VALUES ('user_reset', 0, '2000-01')"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := svc.Use(ctx, "user_reset"); err != nil {
		t.Fatalf("Use after cross-month reset: %v", err)
	}

	var remaining int
	if err := db.QueryRow(ctx, "SELECT calls_remaining FROM ai_quota WHERE uid = 'user_reset'").Scan(&remaining); err != nil {
		t.Fatalf("query: %v", err)
	}
	if remaining != DefaultCalls-1 {
		t.Fatalf("expected %d calls remaining, got %d", DefaultCalls-1, remaining)
	}
}

// TestUseInsufficient verifies that a caller with 0 calls this month is blocked.
func TestUseInsufficient(t *testing.T) {
	svc, db := setupTestService(t)
	ctx := context.Background()

	if _, err := db.Exec(ctx, "INSERT INTO ai_quota (uid, calls_remaining, last_reset_month) VALUES ('user_zero', 0, TO_CHAR(NOW(), 'YYYY-MM'))"); err != nil {
		t.Fatalf("seed: %v", err)
	}

	if err := svc.Use(ctx, "user_zero"); !errors.Is(err, ErrInsufficientQuota) {
		t.Fatalf("expected ErrInsufficientQuota, got %v", err)
	}
	left, err := svc.Remaining(ctx, "user_zero")
	if err != nil || left != 0 {
		t.Fatalf("expected 0 remaining, got %d (%v)", left, err)
	}
}

// TestUseNewUser verifies that an absent caller is initialised on first call.
func TestUseNewUser(t *testing.T) {
	svc, _ := setupTestService(t)
	ctx := context.Background()

	if left, _ := svc.Remaining(ctx, "user_new"); left != DefaultCalls {
		t.Fatalf("expected full allowance before first use, got %d", left)
	}
	if err := svc.Use(ctx, "user_new"); err != nil {
		t.Fatalf("Use for new user: %v", err)
	}
	if left, _ := svc.Remaining(ctx, "user_new"); left != DefaultCalls-1 {
		t.Fatalf("expected %d remaining after first use, got %d", DefaultCalls-1, left)
	}
}

// setupTestService creates a postgres-backed Service. It skips when
// VIBE_TEST_DSN is not set.
func setupTestService(t *testing.T) (*Service, *pgxpool.Pool) {
	t.Helper()

	dsn := os.Getenv("VIBE_TEST_DSN")
	if dsn == "" {
		t.Skip("VIBE_TEST_DSN not set; skipping DB-backed tests")
	}

	ctx := context.Background()
	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := applyMigrations(ctx, db); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	if _, err := db.Exec(ctx, "TRUNCATE TABLE ai_quota"); err != nil {
		t.Fatalf("truncate ai_quota: %v", err)
	}

	return NewService(NewStore(db)), db
}

func applyMigrations(ctx context.Context, db *pgxpool.Pool) error {
	root, err := repoRoot()
	if err != nil {
		return err
	}
	for _, name := range []string{"0001_taxonomy.sql", "0002_ai_quota.sql"} {
		content, err := os.ReadFile(filepath.Join(root, "migrations", name))
		if err != nil {
			return err
		}
		for _, stmt := range splitSQL(stripSQLComments(string(content))) {
			if _, err := db.Exec(ctx, stmt); err != nil {
				return err
			}
		}
	}
	return nil
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for i := 0; i < 6; i++ {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", os.ErrNotExist
}

func stripSQLComments(input string) string {
	var b strings.Builder
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "--") {
			continue
		}
		b.WriteString(scanner.Text())
		b.WriteString("\n")
	}
	return b.String()
}

func splitSQL(input string) []string {
	parts := strings.Split(input, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if stmt := strings.TrimSpace(p); stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}
