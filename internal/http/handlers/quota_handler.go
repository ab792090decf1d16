// README: Quota lookup handler.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"vibe/internal/modules/quota"
)

// QuotaReader reports a caller's monthly model-assisted curation allowance.
type QuotaReader interface {
	Status(ctx context.Context, uid string) (quota.Status, error)
}

type QuotaHandler struct {
	quota QuotaReader
}

func NewQuotaHandler(q QuotaReader) *QuotaHandler {
	return &QuotaHandler{quota: q}
}

// Get handles GET /api/quota/:uid.
func (h *QuotaHandler) Get(c *gin.Context) {
	uid := c.Param("uid")
	if uid == "" || !isValidUID(uid) {
		writeError(c, http.StatusBadRequest, "invalid uid")
		return
	}
	st, err := h.quota.Status(c.Request.Context(), uid)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	writeJSON(c, http.StatusOK, st)
}
