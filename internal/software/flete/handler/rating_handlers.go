package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"fletea/internal/general/jwt"
	"fletea/internal/ports"
)

// --- Request DTO (HTTP boundary) ---

type rateTripRequest struct {
	Score   int    `json:"score"` // 1..5
	Comment string `json:"comment,omitempty"`
}

// ----- Handler: POST /api/trips/{trip_id}/rating -----

// Rider or driver; the reviewer is whoever holds the token, the reviewee is
// derived by the service from the trip.
func (handler *FleteHTTPHandler) handleRateTrip(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	tripID := strings.TrimSpace(r.PathValue("trip_id"))
	if tripID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "trip_id is required", errors.New("missing trip_id"))
		return
	}
	ctx = handler.logger.WithTripID(ctx, tripID)

	var req rateTripRequest
	if !handler.decodeStrict(ctx, w, r, 64<<10, &req) {
		return
	}

	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.ratings.RateTrip(ctxWithTimeout, ports.RateTripInput{
		TripID:     tripID,
		ReviewerID: strings.TrimSpace(claims.Subject),
		Score:      req.Score,
		Comment:    req.Comment,
	})
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusCreated, res)
}

// ----- Handler: GET /api/trips/{trip_id}/rating -----

func (handler *FleteHTTPHandler) handleGetTripRatings(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	tripID := strings.TrimSpace(r.PathValue("trip_id"))
	if tripID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "trip_id is required", errors.New("missing trip_id"))
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.ratings.GetTripRatings(ctxWithTimeout, tripID)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}
	if len(res) == 0 {
		handler.httpError(ctxWithTimeout, w, http.StatusNotFound, "trip has no ratings", errors.New("ratings not found"))
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, map[string]any{"ratings": res, "count": len(res)})
}
