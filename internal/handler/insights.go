package handler

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/purposepath-ai/coaching-engine/internal/service"
)

// InsightsHandler serves the aggregated coaching activity view.
type InsightsHandler struct {
	insights *service.InsightsService
	logger   *zap.Logger
}

// NewInsightsHandler creates a new insights handler.
func NewInsightsHandler(insights *service.InsightsService, logger *zap.Logger) *InsightsHandler {
	return &InsightsHandler{
		insights: insights,
		logger:   logger,
	}
}

// Get handles GET /api/v1/insights
func (h *InsightsHandler) Get(w http.ResponseWriter, r *http.Request) {
	out, err := h.insights.Aggregate(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
