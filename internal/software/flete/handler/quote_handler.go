package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"fletea/internal/domain/trip"
	"fletea/internal/ports"
)

// --- Request DTO (HTTP boundary) ---

type quoteRequest struct {
	DistanceKm  float64  `json:"distance_km"`
	VehicleType string   `json:"vehicle_type"` // flete_chico | flete_mediano | mudancera
	Services    []string `json:"services"`
}

// ----- Handler: POST /api/quotes -----

func (handler *FleteHTTPHandler) handleQuote(w http.ResponseWriter, r *http.Request) {
	// generate a context with request ID
	ctx := handler.withReqID(r.Context(), r)

	// decode strictly
	var req quoteRequest
	if !handler.decodeStrict(ctx, w, r, 64<<10, &req) {
		return
	}

	// parse the vehicle type
	vt, err := trip.ParseVehicleType(req.VehicleType)
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "vehicle_type must be one of: flete_chico, flete_mediano, mudancera", errors.New("invalid vehicle_type"))
		return
	}

	// normalize service ids
	services := make([]string, 0, len(req.Services))
	for _, s := range req.Services {
		if s = strings.TrimSpace(s); s != "" {
			services = append(services, s)
		}
	}

	// bound service call
	ctxWithTimeout, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	res, err := handler.trips.Quote(ctxWithTimeout, ports.QuoteInput{
		DistanceKm:  req.DistanceKm,
		VehicleType: vt,
		Services:    services,
	})
	if err != nil {
		handler.serviceError(ctxWithTimeout, w, err)
		return
	}

	handler.jsonResponse(ctxWithTimeout, w, http.StatusOK, res)
}
