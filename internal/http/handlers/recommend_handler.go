// README: Recommendation and curation handlers.
package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"vibe/internal/http/middleware"
	"vibe/internal/modules/activity"
	"vibe/internal/modules/curation"
	"vibe/internal/modules/venue"
	"vibe/internal/service"
)

// Recommender is the pipeline surface the handlers need.
type Recommender interface {
	Recommend(ctx context.Context, req service.Request) (*service.Response, error)
	Curate(ctx context.Context, uid string, items []venue.Candidate, spec activity.FilterSpec) (curation.Curation, error)
}

type RecommendHandler struct {
	svc     Recommender
	timeout time.Duration
}

// NewRecommendHandler bounds each request by timeout; zero means no bound
// beyond the client's own.
func NewRecommendHandler(svc Recommender, timeout time.Duration) *RecommendHandler {
	return &RecommendHandler{svc: svc, timeout: timeout}
}

type curateReq struct {
	UID        string              `json:"uid"`
	Items      []venue.Candidate   `json:"items"`
	FilterSpec activity.FilterSpec `json:"filterSpec"`
}

type curateResp struct {
	RequestID string            `json:"requestId"`
	Curation  curation.Curation `json:"curation"`
}

// Curate handles POST /api/curate.
func (h *RecommendHandler) Curate(c *gin.Context) {
	var req curateReq
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	req.UID = strings.TrimSpace(req.UID)
	if !isValidUID(req.UID) {
		writeError(c, http.StatusBadRequest, "invalid uid")
		return
	}

	ctx, cancel := h.context(c)
	defer cancel()

	cur, err := h.svc.Curate(ctx, req.UID, req.Items, req.FilterSpec)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, curateResp{RequestID: requestID(c), Curation: cur})
}

// Recommend handles POST /api/recommend.
func (h *RecommendHandler) Recommend(c *gin.Context) {
	var req service.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid json")
		return
	}
	req.UID = strings.TrimSpace(req.UID)
	if !isValidUID(req.UID) {
		writeError(c, http.StatusBadRequest, "invalid uid")
		return
	}
	req.RequestID = requestID(c)

	ctx, cancel := h.context(c)
	defer cancel()

	resp, err := h.svc.Recommend(ctx, req)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, resp)
}

func (h *RecommendHandler) context(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.Request.Context())
	}
	return context.WithTimeout(c.Request.Context(), h.timeout)
}

func requestID(c *gin.Context) string {
	return middleware.GetRequestID(c)
}
