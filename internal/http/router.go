// README: HTTP router registration.
package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"vibe/internal/http/handlers"
	"vibe/internal/http/middleware"
)

// RouterDeps wires the routes. Quota is optional; without it /api/quota is not registered.
type RouterDeps struct {
	Recommender    handlers.Recommender
	Quota          handlers.QuotaReader
	Logger         *zap.Logger
	Registry       *prometheus.Registry
	RequestTimeout time.Duration
}

func NewRouter(deps RouterDeps) *gin.Engine {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	reg := deps.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.Logging(logger),
		middleware.NewHTTPMetrics(reg).Middleware(),
		middleware.Recovery(logger),
	)

	rec := handlers.NewRecommendHandler(deps.Recommender, deps.RequestTimeout)
	api := r.Group("/api")
	api.POST("/curate", rec.Curate)
	api.POST("/recommend", rec.Recommend)
	if deps.Quota != nil {
		api.GET("/quota/:uid", handlers.NewQuotaHandler(deps.Quota).Get)
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))

	return r
}
