package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"fletea/internal/domain/trip"
	"fletea/internal/general/jwt"
	"fletea/internal/ports"
)

// --- Request DTOs (HTTP boundary) ---

type createTripRequest struct {
	OriginAddress      string   `json:"origin_address"`
	DestinationAddress string   `json:"destination_address"`
	DistanceKm         float64  `json:"distance_km"`
	VehicleType        string   `json:"vehicle_type"` // flete_chico | flete_mediano | mudancera
	Category           string   `json:"category"`
	Services           []string `json:"services"`
	Photos             []string `json:"photos"`
}

type advanceTripRequest struct {
	Status   string   `json:"status"` // target status; must be the immediate successor
	PhotoURL string   `json:"photo_url,omitempty"`
	Lat      *float64 `json:"lat,omitempty"`
	Lng      *float64 `json:"lng,omitempty"`
}

type completeTripRequest struct {
	PhotoURL string   `json:"photo_url,omitempty"`
	Lat      *float64 `json:"lat,omitempty"`
	Lng      *float64 `json:"lng,omitempty"`
}

// ----- Handler: POST /api/trips -----

func (handler *FleteHTTPHandler) handleCreateTrip(w http.ResponseWriter, r *http.Request) {
	// generate a context with request ID
	ctx := handler.withReqID(r.Context(), r)

	// decode strictly
	var req createTripRequest
	if !handler.decodeStrict(ctx, w, r, 1<<20, &req) {
		return
	}

	// obtain the JWT claims; identity comes from the token, never the body
	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	// parse the vehicle type
	vt, err := trip.ParseVehicleType(req.VehicleType)
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "vehicle_type must be one of: flete_chico, flete_mediano, mudancera", errors.New("invalid vehicle_type"))
		return
	}

	// map to service DTO defined in ports
	in := ports.CreateTripInput{
		RiderID:            strings.TrimSpace(claims.Subject),
		OriginAddress:      strings.TrimSpace(req.OriginAddress),
		DestinationAddress: strings.TrimSpace(req.DestinationAddress),
		DistanceKm:         req.DistanceKm,
		VehicleType:        vt,
		Category:           strings.TrimSpace(req.Category),
		Services:           req.Services,
		Photos:             req.Photos,
	}

	// bound service call
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.trips.CreateTrip(ctxWithTimeout, in)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}
	ctxWithTimeout = handler.logger.WithTripID(ctxWithTimeout, res.TripID)

	handler.jsonResponse(ctxWithTimeout, w, http.StatusCreated, res)
}

// ----- Handler: POST /api/trips/{trip_id}/accept -----

func (handler *FleteHTTPHandler) handleAcceptTrip(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	tripID := strings.TrimSpace(r.PathValue("trip_id"))
	if tripID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "trip_id is required", errors.New("missing trip_id"))
		return
	}
	ctx = handler.logger.WithTripID(ctx, tripID)

	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.trips.AcceptTrip(ctxWithTimeout, ports.AcceptTripInput{
		TripID:   tripID,
		DriverID: strings.TrimSpace(claims.Subject),
	})
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}

// ----- Handler: POST /api/trips/{trip_id}/status -----

func (handler *FleteHTTPHandler) handleAdvanceTrip(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	tripID := strings.TrimSpace(r.PathValue("trip_id"))
	if tripID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "trip_id is required", errors.New("missing trip_id"))
		return
	}
	ctx = handler.logger.WithTripID(ctx, tripID)

	var req advanceTripRequest
	if !handler.decodeStrict(ctx, w, r, 256<<10, &req) {
		return
	}

	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	next, err := trip.ParseStatus(req.Status)
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "status must be one of: loading, in_progress, completed", errors.New("invalid status"))
		return
	}

	var loc *trip.Location
	if req.Lat != nil && req.Lng != nil {
		loc = &trip.Location{Latitude: *req.Lat, Longitude: *req.Lng}
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.trips.AdvanceTrip(ctxWithTimeout, ports.AdvanceTripInput{
		TripID:   tripID,
		DriverID: strings.TrimSpace(claims.Subject),
		Next:     next,
		PhotoURL: req.PhotoURL,
		Location: loc,
	})
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}

// ----- Handler: POST /api/trips/{trip_id}/complete -----

// Legacy completion endpoint kept for older driver clients; it is a thin
// alias for advancing to completed, so all transition guards apply.
func (handler *FleteHTTPHandler) handleCompleteTrip(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	tripID := strings.TrimSpace(r.PathValue("trip_id"))
	if tripID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "trip_id is required", errors.New("missing trip_id"))
		return
	}
	ctx = handler.logger.WithTripID(ctx, tripID)

	// the body is optional here; older clients post without one
	var req completeTripRequest
	if r.ContentLength != 0 {
		if !handler.decodeStrict(ctx, w, r, 256<<10, &req) {
			return
		}
	}

	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	var loc *trip.Location
	if req.Lat != nil && req.Lng != nil {
		loc = &trip.Location{Latitude: *req.Lat, Longitude: *req.Lng}
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.trips.AdvanceTrip(ctxWithTimeout, ports.AdvanceTripInput{
		TripID:   tripID,
		DriverID: strings.TrimSpace(claims.Subject),
		Next:     trip.StatusCompleted,
		PhotoURL: req.PhotoURL,
		Location: loc,
	})
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}

// ----- Handler: POST /api/trips/{trip_id}/cancel -----

func (handler *FleteHTTPHandler) handleCancelTrip(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	tripID := strings.TrimSpace(r.PathValue("trip_id"))
	if tripID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "trip_id is required", errors.New("missing trip_id"))
		return
	}
	ctx = handler.logger.WithTripID(ctx, tripID)

	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.trips.CancelTrip(ctxWithTimeout, tripID, strings.TrimSpace(claims.Subject))
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}

// ----- Handler: GET /api/trips/{trip_id} -----

func (handler *FleteHTTPHandler) handleGetTrip(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	tripID := strings.TrimSpace(r.PathValue("trip_id"))
	if tripID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "trip_id is required", errors.New("missing trip_id"))
		return
	}
	ctx = handler.logger.WithTripID(ctx, tripID)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.trips.GetTrip(ctxWithTimeout, tripID)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}

// ----- Handler: GET /api/trips/pending -----

func (handler *FleteHTTPHandler) handleListPending(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.trips.ListPending(ctxWithTimeout)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, map[string]any{"trips": res, "count": len(res)})
}

// ----- Handler: GET /api/trips/mine -----

func (handler *FleteHTTPHandler) handleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.trips.ListMine(ctxWithTimeout, strings.TrimSpace(claims.Subject), claims.Role)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, map[string]any{"trips": res, "count": len(res)})
}

// ----- Handler: GET /api/trips/{trip_id}/events -----

func (handler *FleteHTTPHandler) handleListTripEvents(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	tripID := strings.TrimSpace(r.PathValue("trip_id"))
	if tripID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "trip_id is required", errors.New("missing trip_id"))
		return
	}
	ctx = handler.logger.WithTripID(ctx, tripID)

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.trips.ListEvents(ctxWithTimeout, tripID)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, map[string]any{"trip_id": tripID, "events": res})
}

// ----- Handler: GET /api/trips/active -----

func (handler *FleteHTTPHandler) handleActiveTrip(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.trips.ActiveForDriver(ctxWithTimeout, strings.TrimSpace(claims.Subject))
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}
