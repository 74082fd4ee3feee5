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

type setAvailabilityRequest struct {
	Available   bool   `json:"available"`
	VehicleType string `json:"vehicle_type"` // flete_chico | flete_mediano | mudancera
	Name        string `json:"name,omitempty"`
}

type updateLocationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ----- Handler: POST /api/drivers/availability -----

func (handler *FleteHTTPHandler) handleSetAvailability(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req setAvailabilityRequest
	if !handler.decodeStrict(ctx, w, r, 64<<10, &req) {
		return
	}

	claims := jwt.RequireClaims(r)
	if claims == nil {
		handler.httpError(ctx, w, http.StatusUnauthorized, "missing auth claims", errors.New("no claims"))
		return
	}

	vt, err := trip.ParseVehicleType(req.VehicleType)
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "vehicle_type must be one of: flete_chico, flete_mediano, mudancera", errors.New("invalid vehicle_type"))
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.drivers.SetAvailability(ctxWithTimeout, ports.SetAvailabilityInput{
		DriverID:    strings.TrimSpace(claims.Subject),
		Available:   req.Available,
		VehicleType: vt,
		Name:        strings.TrimSpace(req.Name),
	})
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}

// ----- Handler: POST /api/drivers/location -----

func (handler *FleteHTTPHandler) handleUpdateLocation(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req updateLocationRequest
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

	err := handler.drivers.UpdateLocation(ctxWithTimeout, ports.UpdateLocationInput{
		DriverID:  strings.TrimSpace(claims.Subject),
		Latitude:  req.Lat,
		Longitude: req.Lng,
	})
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, map[string]string{"status": "ok"})
}

// ----- Handler: GET /api/drivers/{driver_id} -----

func (handler *FleteHTTPHandler) handleGetDriver(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	driverID := strings.TrimSpace(r.PathValue("driver_id"))
	if driverID == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "driver_id is required", errors.New("missing driver_id"))
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.drivers.GetDriver(ctxWithTimeout, driverID)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}

// ----- Handler: GET /api/drivers?vehicle_type=... -----

func (handler *FleteHTTPHandler) handleListAvailableDrivers(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	vt, err := trip.ParseVehicleType(r.URL.Query().Get("vehicle_type"))
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "vehicle_type query parameter must be one of: flete_chico, flete_mediano, mudancera", errors.New("invalid vehicle_type"))
		return
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.drivers.ListAvailable(ctxWithTimeout, vt)
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, map[string]any{"drivers": res, "count": len(res)})
}
