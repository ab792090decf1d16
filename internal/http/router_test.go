package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"vibe/internal/modules/curation"
	"vibe/internal/modules/executor"
	"vibe/internal/modules/taxonomy"
	"vibe/internal/service"
)

func TestRouter_HealthAndMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tax, err := taxonomy.New(nil, nil, nil)
	assert.NoError(t, err)
	rec, err := service.NewRecommender(service.Deps{
		Taxonomy: tax,
		Executor: executor.New(nil),
		Curator:  curation.NewEngine(nil, curation.Config{}, nil),
		Budget:   executor.DefaultBudget(),
	})
	assert.NoError(t, err)

	reg := prometheus.NewRegistry()
	r := NewRouter(RouterDeps{Recommender: rec, Registry: reg})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "vibe_http_requests_total")

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/quota/u1", nil))
	assert.Equal(t, http.StatusNotFound, w.Code, "quota route needs a quota reader")
}
