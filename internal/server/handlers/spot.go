// internal/server/handlers/spot.go

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"spotshare/internal/domain/spot"
)

// SpotHandler handles spot lifecycle and proximity HTTP requests
type SpotHandler struct {
	engine  spot.Engine
	matcher spot.Matcher
}

// NewSpotHandler creates a new spot handler
func NewSpotHandler(engine spot.Engine, matcher spot.Matcher) *SpotHandler {
	return &SpotHandler{
		engine:  engine,
		matcher: matcher,
	}
}

// PublishSpot publishes a new spot
func (h *SpotHandler) PublishSpot(w http.ResponseWriter, r *http.Request) {
	type publishRequest struct {
		OwnerID string     `json:"owner_id"`
		Draft   spot.Draft `json:"spot"`
	}

	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.OwnerID == "" {
		respondWithError(w, http.StatusBadRequest, "Missing owner ID", nil)
		return
	}

	s, err := h.engine.Publish(r.Context(), req.OwnerID, req.Draft)
	if err != nil {
		respondWithEngineError(w, "Failed to publish spot", err)
		return
	}

	respondWithJSON(w, http.StatusCreated, s)
}

// GetSpot returns a specific spot by ID
func (h *SpotHandler) GetSpot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Missing spot ID", nil)
		return
	}

	s, err := h.engine.Get(r.Context(), id)
	if err != nil {
		respondWithEngineError(w, "Failed to get spot", err)
		return
	}

	respondWithJSON(w, http.StatusOK, s)
}

// ClaimSpot claims an available spot for a user
func (h *SpotHandler) ClaimSpot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Missing spot ID", nil)
		return
	}

	type claimRequest struct {
		ClaimantID string `json:"claimant_id"`
	}

	var req claimRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if req.ClaimantID == "" {
		respondWithError(w, http.StatusBadRequest, "Missing claimant ID", nil)
		return
	}

	s, err := h.engine.Claim(r.Context(), id, req.ClaimantID)
	if err != nil {
		respondWithEngineError(w, "Failed to claim spot", err)
		return
	}

	respondWithJSON(w, http.StatusOK, s)
}

// ConfirmSpot records the outcome of a claim
func (h *SpotHandler) ConfirmSpot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Missing spot ID", nil)
		return
	}

	type confirmRequest struct {
		ClaimantID string `json:"claimant_id"`
		Successful bool   `json:"successful"`
		Feedback   string `json:"feedback"`
	}

	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s, err := h.engine.Confirm(r.Context(), id, req.ClaimantID, req.Successful, req.Feedback)
	if err != nil {
		respondWithEngineError(w, "Failed to confirm spot", err)
		return
	}

	respondWithJSON(w, http.StatusOK, s)
}

// ReportSpot flags a spot as not actually free
func (h *SpotHandler) ReportSpot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Missing spot ID", nil)
		return
	}

	type reportRequest struct {
		ReporterID string `json:"reporter_id"`
		Reason     string `json:"reason"`
		Comment    string `json:"comment"`
	}

	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	s, err := h.engine.Report(r.Context(), id, req.ReporterID, req.Reason, req.Comment)
	if err != nil {
		respondWithEngineError(w, "Failed to report spot", err)
		return
	}

	respondWithJSON(w, http.StatusOK, s)
}

// CancelSpot removes a still-available spot; owner only
func (h *SpotHandler) CancelSpot(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondWithError(w, http.StatusBadRequest, "Missing spot ID", nil)
		return
	}

	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		respondWithError(w, http.StatusBadRequest, "Missing owner ID", nil)
		return
	}

	if err := h.engine.Cancel(r.Context(), id, ownerID); err != nil {
		respondWithEngineError(w, "Failed to cancel spot", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetNearbySpots returns ranked spots near a location
func (h *SpotHandler) GetNearbySpots(w http.ResponseWriter, r *http.Request) {
	latStr := r.URL.Query().Get("lat")
	lngStr := r.URL.Query().Get("lng")

	if latStr == "" || lngStr == "" {
		respondWithError(w, http.StatusBadRequest, "Missing location parameters", nil)
		return
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid latitude", err)
		return
	}

	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid longitude", err)
		return
	}

	filter := spot.Filter{}

	if radiusStr := r.URL.Query().Get("radius"); radiusStr != "" {
		radius, err := strconv.ParseFloat(radiusStr, 64)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid radius", err)
			return
		}
		filter.RadiusMeters = radius
	}

	if maxAgeStr := r.URL.Query().Get("max_age_minutes"); maxAgeStr != "" {
		maxAge, err := strconv.Atoi(maxAgeStr)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid max age", err)
			return
		}
		filter.MaxAge = time.Duration(maxAge) * time.Minute
	}

	if paidStr := r.URL.Query().Get("include_paid"); paidStr != "" {
		includePaid, err := strconv.ParseBool(paidStr)
		if err == nil {
			filter.IncludePaid = includePaid
		}
	}

	if priceStr := r.URL.Query().Get("max_price"); priceStr != "" {
		maxPrice, err := strconv.ParseFloat(priceStr, 64)
		if err == nil {
			filter.MaxPrice = maxPrice
		}
	}

	if sizeStr := r.URL.Query().Get("size"); sizeStr != "" {
		filter.SizePreference = spot.Size(sizeStr)
	}

	center := spot.Location{
		Latitude:  lat,
		Longitude: lng,
	}

	matches, err := h.matcher.Query(r.Context(), center, filter)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Failed to query nearby spots", err)
		return
	}

	respondWithJSON(w, http.StatusOK, matches)
}

// respondWithEngineError maps typed lifecycle failures to HTTP statuses
func respondWithEngineError(w http.ResponseWriter, message string, err error) {
	switch {
	case errors.Is(err, spot.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Spot not found", nil)
	case errors.Is(err, spot.ErrNotClaimable):
		respondWithError(w, http.StatusConflict, "Spot not claimable", nil)
	case errors.Is(err, spot.ErrInvalidLocation):
		respondWithError(w, http.StatusBadRequest, "Invalid coordinates", nil)
	case errors.Is(err, spot.ErrSelfClaim):
		respondWithError(w, http.StatusForbidden, "Cannot claim own spot", nil)
	case errors.Is(err, spot.ErrNotAuthorized):
		respondWithError(w, http.StatusForbidden, "Not authorized", nil)
	case errors.Is(err, spot.ErrNotCancelable):
		respondWithError(w, http.StatusForbidden, "Spot not cancelable", nil)
	case errors.Is(err, spot.ErrCapacityExceeded):
		respondWithError(w, http.StatusServiceUnavailable, "Too many active spots", nil)
	default:
		respondWithError(w, http.StatusInternalServerError, message, err)
	}
}
