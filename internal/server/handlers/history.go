// internal/server/handlers/history.go

package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"spotshare/internal/adapter/storage"
)

// HistoryHandler serves archived terminal outcomes for a user
type HistoryHandler struct {
	history *storage.HistoryStore
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(history *storage.HistoryStore) *HistoryHandler {
	return &HistoryHandler{history: history}
}

// GetUserHistory returns the most recent outcomes for a user
func (h *HistoryHandler) GetUserHistory(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if userID == "" {
		respondWithError(w, http.StatusBadRequest, "Missing user ID", nil)
		return
	}

	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	outcomes, err := h.history.RecentOutcomes(r.Context(), userID, limit)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to get history", err)
		return
	}

	if outcomes == nil {
		outcomes = []storage.Outcome{}
	}

	respondWithJSON(w, http.StatusOK, outcomes)
}
