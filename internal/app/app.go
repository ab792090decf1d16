// README: Builds the recommendation pipeline from config; shared by vibe-api and vibectl.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"vibe/internal/ai"
	"vibe/internal/config"
	"vibe/internal/infra"
	"vibe/internal/modules/curation"
	"vibe/internal/modules/executor"
	"vibe/internal/modules/quota"
	"vibe/internal/modules/taxonomy"
	"vibe/internal/modules/venue"
	"vibe/internal/modules/weather"
	"vibe/internal/providers"
	"vibe/internal/service"
)

var ErrNoTaxonomy = errors.New("no taxonomy source: set taxonomy.path or db.dsn")

// App holds the long-lived resources of one process.
type App struct {
	Taxonomy    *taxonomy.Taxonomy
	Recommender *service.Recommender
	// Quota is nil when no database is configured.
	Quota *quota.Service
	// Adapters are the decorated provider adapters keyed by provider.
	Adapters map[venue.Provider]executor.Adapter
	Budget   executor.Budget

	closers []func()
}

// Build wires every component enabled in cfg. reg may be nil.
func Build(ctx context.Context, cfg config.Config, logger *zap.Logger, reg prometheus.Registerer) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Budget: BudgetFrom(cfg)}
	ok := false
	defer func() {
		if !ok {
			a.Close()
		}
	}()

	var db *pgxpool.Pool
	if cfg.DB.DSN != "" {
		var err error
		db, err = infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, db.Close)
		a.Quota = quota.NewService(quota.NewStore(db))
		if reg != nil {
			a.Quota.SetMetrics(quota.NewMetrics(reg))
		}
	}

	tax, err := loadTaxonomy(ctx, cfg, db)
	if err != nil {
		return nil, err
	}
	a.Taxonomy = tax

	var rdb redis.UniversalClient
	if cfg.Redis.Addr != "" {
		client, err := infra.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			// The cache is optional; run uncached rather than refuse to start.
			logger.Warn("redis unavailable; provider cache disabled", zap.Error(err))
		} else {
			rdb = client
			a.closers = append(a.closers, func() { _ = client.Close() })
		}
	}

	a.Adapters, err = buildAdapters(cfg, rdb, logger)
	if err != nil {
		return nil, err
	}
	exec := executor.New(a.Adapters)
	exec.SetLogger(logger.Named("executor"))
	if reg != nil {
		exec.SetMetrics(executor.NewMetrics(reg))
	}

	var gen ai.Generator
	if cfg.AI.GeminiKey != "" {
		g, err := ai.NewGeminiProvider(ctx, cfg.AI.GeminiKey, cfg.AI.Model)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, g.Close)
		gen = g
	} else {
		logger.Info("no model key configured; curation is heuristic only")
	}

	deps := service.Deps{
		Taxonomy: tax,
		Proposer: service.NewProposer(gen, tax, logger.Named("propose")),
		Executor: exec,
		Curator: curation.NewEngine(gen, curation.Config{
			ModelTimeout:        cfg.Curation.ModelTimeout,
			RetryBackoff:        cfg.Curation.RetryBackoff,
			MaxPromptCandidates: cfg.Curation.MaxPromptCandidates,
		}, logger.Named("curation")),
		Budget: a.Budget,
		Logger: logger,
	}
	if cfg.Weather.Enabled {
		deps.Weather = weather.NewOpenMeteo(cfg.Weather.URL, &http.Client{Timeout: cfg.Providers.HTTPTimeout})
	}
	if a.Quota != nil {
		deps.Quota = a.Quota
	}

	a.Recommender, err = service.NewRecommender(deps)
	if err != nil {
		return nil, err
	}
	ok = true
	return a, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

// BudgetFrom converts the configured limits to an executor budget.
func BudgetFrom(cfg config.Config) executor.Budget {
	return executor.Budget{
		MaxTotalCalls: cfg.Budget.MaxTotalCalls,
		MaxCallsPerProvider: map[venue.Provider]int{
			venue.ProviderCommercialPlaces: cfg.Providers.Google.MaxCalls,
			venue.ProviderOpenGeodata:      cfg.Providers.Overpass.MaxCalls,
			venue.ProviderPOIIndex:         cfg.Providers.OpenTripMap.MaxCalls,
		},
		MaxConcurrentCalls:    cfg.Budget.MaxConcurrentCalls,
		TimeoutPerCall:        cfg.Budget.TimeoutPerCall,
		MaxTotalExecutionTime: cfg.Budget.MaxTotalExecutionTime,
	}
}

func loadTaxonomy(ctx context.Context, cfg config.Config, db *pgxpool.Pool) (*taxonomy.Taxonomy, error) {
	switch {
	case cfg.Taxonomy.Path != "":
		return taxonomy.LoadFile(cfg.Taxonomy.Path)
	case db != nil:
		tax, err := taxonomy.NewStore(db).Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("taxonomy: %w", err)
		}
		return tax, nil
	}
	return nil, ErrNoTaxonomy
}

// buildAdapters constructs enabled providers. Each is rate limited and
// breaker-guarded; the cache sits outermost so hits cost no quota.
func buildAdapters(cfg config.Config, rdb redis.UniversalClient, logger *zap.Logger) (map[venue.Provider]executor.Adapter, error) {
	client := &http.Client{Timeout: cfg.Providers.HTTPTimeout}
	raw := map[venue.Provider]executor.Adapter{}
	pc := map[venue.Provider]config.ProviderConfig{
		venue.ProviderCommercialPlaces: cfg.Providers.Google,
		venue.ProviderOpenGeodata:      cfg.Providers.Overpass,
		venue.ProviderPOIIndex:         cfg.Providers.OpenTripMap,
	}

	if g := cfg.Providers.Google; g.Enabled && g.APIKey != "" {
		gp, err := providers.NewGooglePlaces(g.APIKey, cfg.Providers.Language, logger.Named("google"))
		if err != nil {
			return nil, err
		}
		raw[venue.ProviderCommercialPlaces] = gp
	}
	if o := cfg.Providers.Overpass; o.Enabled {
		raw[venue.ProviderOpenGeodata] = providers.NewOverpass(o.URL, client)
	}
	if o := cfg.Providers.OpenTripMap; o.Enabled && o.APIKey != "" {
		raw[venue.ProviderPOIIndex] = providers.NewOpenTripMap(o.URL, o.APIKey, client)
	}

	out := make(map[venue.Provider]executor.Adapter, len(raw))
	for p, ad := range raw {
		c := pc[p]
		var wrapped executor.Adapter = providers.NewResilient(string(p), ad, providers.ResilienceConfig{
			RatePerSecond:    c.RatePerSecond,
			Burst:            c.Burst,
			FailureThreshold: c.FailureThreshold,
			OpenTimeout:      c.OpenTimeout,
		}, logger)
		if rdb != nil {
			wrapped = providers.NewCached(wrapped, rdb, cfg.Redis.CacheTTL, logger)
		}
		out[p] = wrapped
		logger.Info("provider enabled", zap.String("provider", string(p)), zap.Bool("cached", rdb != nil))
	}
	return out, nil
}
