package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/purposepath-ai/coaching-engine/internal/model"
	"github.com/purposepath-ai/coaching-engine/internal/store"
	"github.com/purposepath-ai/coaching-engine/internal/tenant"
)

// BusinessHandler exposes the shared business record: reads plus the manual
// (human) edit path, which goes through the same audited store write as the
// coaching synchronizer.
type BusinessHandler struct {
	business store.BusinessStore
	logger   *zap.Logger
}

// NewBusinessHandler creates a new business data handler.
func NewBusinessHandler(business store.BusinessStore, logger *zap.Logger) *BusinessHandler {
	return &BusinessHandler{
		business: business,
		logger:   logger,
	}
}

// Get handles GET /api/v1/business
func (h *BusinessHandler) Get(w http.ResponseWriter, r *http.Request) {
	data, err := h.business.GetByTenant(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, data)
}

type updateFieldRequest struct {
	Value string `json:"value"`
}

// UpdateField handles PUT /api/v1/business/{field}
func (h *BusinessHandler) UpdateField(w http.ResponseWriter, r *http.Request) {
	field, err := model.ParseBusinessField(chi.URLParam(r, "field"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	var req updateFieldRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if req.Value == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "value cannot be empty")
		return
	}

	tc, err := tenant.Require(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}

	data, err := h.business.UpdateField(r.Context(), model.FieldPatch{
		Field:     field,
		Value:     req.Value,
		UpdatedBy: tc.UserID,
		Source:    "manual_edit",
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	h.logger.Info("business field updated manually",
		zap.String("tenant_id", tc.TenantID),
		zap.String("field", string(field)),
		zap.String("version", data.Version))
	writeJSON(w, http.StatusOK, data)
}

// History handles GET /api/v1/business/history
func (h *BusinessHandler) History(w http.ResponseWriter, r *http.Request) {
	data, err := h.business.GetByTenant(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"version": data.Version,
		"history": data.ChangeHistory,
	})
}
