package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/purposepath-ai/coaching-engine/internal/middleware"
	"github.com/purposepath-ai/coaching-engine/internal/model"
	"github.com/purposepath-ai/coaching-engine/internal/service"
	"github.com/purposepath-ai/coaching-engine/internal/store"
)

// ConversationHandler handles the coaching conversation endpoints.
type ConversationHandler struct {
	orchestrator *service.Orchestrator
	logger       *zap.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(orchestrator *service.Orchestrator, logger *zap.Logger) *ConversationHandler {
	return &ConversationHandler{
		orchestrator: orchestrator,
		logger:       logger,
	}
}

type initiateRequest struct {
	Topic    string            `json:"topic"`
	Context  map[string]string `json:"context,omitempty"`
	Language string            `json:"language,omitempty"`
}

// Initiate handles POST /api/v1/conversations
func (h *ConversationHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if err := middleware.ValidateLanguage(req.Language); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	handle, err := h.orchestrator.Initiate(r.Context(), model.Topic(req.Topic), req.Context, req.Language)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, handle)
}

type messageRequest struct {
	Content  string            `json:"content"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Message handles POST /api/v1/conversations/{id}/messages
func (h *ConversationHandler) Message(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
		return
	}
	if err := middleware.ValidateMessageContent(req.Content); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	reply, err := h.orchestrator.ProcessMessage(r.Context(), conversationID, req.Content, req.Metadata)
	if err != nil {
		h.logger.Warn("failed to process message",
			zap.String("conversation_id", conversationID), zap.Error(err))
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

type completeRequest struct {
	Feedback string `json:"feedback,omitempty"`
	Rating   int    `json:"rating,omitempty"`
}

// Complete handles POST /api/v1/conversations/{id}/complete
func (h *ConversationHandler) Complete(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	var req completeRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body")
			return
		}
	}
	if err := middleware.ValidateRating(req.Rating); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	if err := middleware.ValidateFeedback(req.Feedback); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	summary, err := h.orchestrator.Complete(r.Context(), conversationID, req.Feedback, req.Rating)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// Pause handles POST /api/v1/conversations/{id}/pause
func (h *ConversationHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.orchestrator.Pause, "paused")
}

// Resume handles POST /api/v1/conversations/{id}/resume
func (h *ConversationHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.orchestrator.Resume, "active")
}

// Abandon handles DELETE /api/v1/conversations/{id}
func (h *ConversationHandler) Abandon(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.orchestrator.Abandon, "abandoned")
}

func (h *ConversationHandler) transition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id string) error, status string) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}
	if err := op(r.Context(), conversationID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"conversation_id": conversationID,
		"status":          status,
	})
}

// State handles GET /api/v1/conversations/{id}/state
func (h *ConversationHandler) State(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	state, err := h.orchestrator.SessionState(r.Context(), conversationID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// Get handles GET /api/v1/conversations/{id}
func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "id")
	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error())
		return
	}

	conv, err := h.orchestrator.Get(r.Context(), conversationID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

// List handles GET /api/v1/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	opts := store.ListOptions{Limit: 20}
	if s := r.URL.Query().Get("status"); s != "" {
		opts.Status = model.Status(s)
	}
	if tp := r.URL.Query().Get("topic"); tp != "" {
		opts.Topic = model.Topic(tp)
	}
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 100 {
			opts.Limit = parsed
		}
	}

	convs, err := h.orchestrator.List(r.Context(), opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conversations": convs,
		"count":         len(convs),
	})
}
