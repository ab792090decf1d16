// README: Handler tests for curation, recommendation and quota routes.
package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vibe/internal/http/handlers"
	"vibe/internal/http/middleware"
	"vibe/internal/modules/activity"
	"vibe/internal/modules/curation"
	"vibe/internal/modules/quota"
	"vibe/internal/modules/venue"
	"vibe/internal/service"
)

// stubRecommender records calls and returns canned results.
type stubRecommender struct {
	mu      sync.Mutex
	lastReq service.Request
	lastUID string
	items   int
	err     error
}

func (s *stubRecommender) Recommend(_ context.Context, req service.Request) (*service.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &service.Response{RequestID: req.RequestID, Curation: curation.Empty("none")}, nil
}

func (s *stubRecommender) Curate(_ context.Context, uid string, items []venue.Candidate, _ activity.FilterSpec) (curation.Curation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastUID = uid
	s.items = len(items)
	if s.err != nil {
		return curation.Curation{}, s.err
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	return curation.Curation{TopFiveIDs: ids, Source: curation.SourceHeuristic}, nil
}

type stubQuota struct {
	left int
	err  error
}

func (s stubQuota) Status(_ context.Context, uid string) (quota.Status, error) {
	if s.err != nil {
		return quota.Status{}, s.err
	}
	return quota.Status{
		UID:       uid,
		Remaining: s.left,
		Allowance: quota.DefaultCalls,
		ResetsAt:  time.Date(2026, time.November, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

func buildTestRouter(rec handlers.Recommender, q handlers.QuotaReader) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.RequestID())
	h := handlers.NewRecommendHandler(rec, 0)
	r.POST("/api/curate", h.Curate)
	r.POST("/api/recommend", h.Recommend)
	r.GET("/api/quota/:uid", handlers.NewQuotaHandler(q).Get)
	return r
}

func doRequest(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		_ = json.NewEncoder(&buf).Encode(b)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// ---------------------------------------------------------------------------
// POST /api/curate
// ---------------------------------------------------------------------------

func TestCurate_OK(t *testing.T) {
	rec := &stubRecommender{}
	r := buildTestRouter(rec, stubQuota{})

	w := doRequest(r, http.MethodPost, "/api/curate", map[string]any{
		"uid": "user_1",
		"items": []map[string]any{
			{"id": "google:a", "name": "A", "location": map[string]float64{"lat": 1, "lon": 2}},
			{"id": "osm:node/2", "name": "B"},
		},
		"filterSpec": map[string]any{"buckets": []string{"culture"}, "avoidFood": true},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got struct {
		RequestID string            `json:"requestId"`
		Curation  curation.Curation `json:"curation"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, []string{"google:a", "osm:node/2"}, got.Curation.TopFiveIDs)
	assert.NotEmpty(t, got.RequestID)
	assert.Equal(t, "user_1", rec.lastUID)
	assert.Equal(t, 2, rec.items)
}

func TestCurate_BadInput(t *testing.T) {
	r := buildTestRouter(&stubRecommender{}, stubQuota{})

	w := doRequest(r, http.MethodPost, "/api/curate", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(r, http.MethodPost, "/api/curate", map[string]any{"uid": "bad uid!"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCurate_ServiceValidationError(t *testing.T) {
	rec := &stubRecommender{err: service.ErrInvalidRequest}
	r := buildTestRouter(rec, stubQuota{})

	w := doRequest(r, http.MethodPost, "/api/curate", map[string]any{"items": []any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ---------------------------------------------------------------------------
// POST /api/recommend
// ---------------------------------------------------------------------------

func TestRecommend_PassesRequestID(t *testing.T) {
	rec := &stubRecommender{}
	r := buildTestRouter(rec, stubQuota{})

	req := httptest.NewRequest(http.MethodPost, "/api/recommend",
		bytes.NewBufferString(`{"vibe":"rainy museum day","lat":45.6,"lon":25.6,"radiusKm":10}`))
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-42", rec.lastReq.RequestID)
	assert.Equal(t, "rainy museum day", rec.lastReq.Vibe)
	assert.Contains(t, w.Body.String(), `"requestId":"req-42"`)
}

func TestRecommend_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid request", service.ErrInvalidRequest, http.StatusBadRequest},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := buildTestRouter(&stubRecommender{err: tt.err}, stubQuota{})
			w := doRequest(r, http.MethodPost, "/api/recommend", map[string]any{"vibe": "x"})
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

// ---------------------------------------------------------------------------
// GET /api/quota/:uid
// ---------------------------------------------------------------------------

func TestQuota(t *testing.T) {
	r := buildTestRouter(&stubRecommender{}, stubQuota{left: 42})
	w := doRequest(r, http.MethodGet, "/api/quota/user_1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"uid":"user_1","remaining":42,"allowance":100,"resetsAt":"2026-11-01T00:00:00Z"}`, w.Body.String())

	r = buildTestRouter(&stubRecommender{}, stubQuota{err: errors.New("db down")})
	w = doRequest(r, http.MethodGet, "/api/quota/user_1", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
