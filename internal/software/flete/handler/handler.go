package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fletea/internal/domain/driver"
	"fletea/internal/domain/pricing"
	"fletea/internal/domain/rating"
	"fletea/internal/domain/trip"
	"fletea/internal/domain/user"
	"fletea/internal/general/jwt"
	"fletea/internal/general/logger"
	"fletea/internal/observability"
	"fletea/internal/ports"

	"github.com/jackc/pgx/v5/pgconn"
)

// FleteHTTPHandler adapts HTTP requests to the trip, driver and rating services.
type FleteHTTPHandler struct {
	trips   ports.TripService
	drivers ports.DriverService
	ratings ports.RatingService
	logger  *logger.Logger
	auth    *jwt.Manager
}

// NewFleteHTTPHandler wires an HTTP handler around the API services.
func NewFleteHTTPHandler(
	trips ports.TripService,
	drivers ports.DriverService,
	ratings ports.RatingService,
	logger *logger.Logger,
	auth *jwt.Manager,
) *FleteHTTPHandler {
	return &FleteHTTPHandler{trips: trips, drivers: drivers, ratings: ratings, logger: logger, auth: auth}
}

// RegisterRoutes mounts API endpoints on the provided mux.
func (handler *FleteHTTPHandler) RegisterRoutes(mux *http.ServeMux) {
	rider := jwt.AuthMiddlewareFunc(handler.auth, user.RoleRider)
	driverOnly := jwt.AuthMiddlewareFunc(handler.auth, user.RoleDriver)
	anyRole := jwt.AuthMiddlewareFunc(handler.auth, user.RoleRider, user.RoleDriver)

	// quoting has no side effects and needs no identity
	mux.HandleFunc("POST /api/quotes", instrument("/api/quotes", handler.handleQuote))

	mux.HandleFunc("POST /api/trips", instrument("/api/trips", rider(handler.handleCreateTrip)))
	mux.HandleFunc("GET /api/trips/pending", instrument("/api/trips/pending", driverOnly(handler.handleListPending)))
	mux.HandleFunc("GET /api/trips/mine", instrument("/api/trips/mine", anyRole(handler.handleListMine)))
	mux.HandleFunc("GET /api/trips/active", instrument("/api/trips/active", driverOnly(handler.handleActiveTrip)))
	mux.HandleFunc("GET /api/trips/{trip_id}", instrument("/api/trips/{trip_id}", anyRole(handler.handleGetTrip)))
	mux.HandleFunc("GET /api/trips/{trip_id}/events", instrument("/api/trips/{trip_id}/events", anyRole(handler.handleListTripEvents)))
	mux.HandleFunc("POST /api/trips/{trip_id}/accept", instrument("/api/trips/{trip_id}/accept", driverOnly(handler.handleAcceptTrip)))
	mux.HandleFunc("POST /api/trips/{trip_id}/status", instrument("/api/trips/{trip_id}/status", driverOnly(handler.handleAdvanceTrip)))
	mux.HandleFunc("POST /api/trips/{trip_id}/complete", instrument("/api/trips/{trip_id}/complete", driverOnly(handler.handleCompleteTrip)))
	mux.HandleFunc("POST /api/trips/{trip_id}/cancel", instrument("/api/trips/{trip_id}/cancel", rider(handler.handleCancelTrip)))
	mux.HandleFunc("POST /api/trips/{trip_id}/rating", instrument("/api/trips/{trip_id}/rating", anyRole(handler.handleRateTrip)))
	mux.HandleFunc("GET /api/trips/{trip_id}/rating", instrument("/api/trips/{trip_id}/rating", anyRole(handler.handleGetTripRatings)))

	mux.HandleFunc("POST /api/drivers/availability", instrument("/api/drivers/availability", driverOnly(handler.handleSetAvailability)))
	mux.HandleFunc("POST /api/drivers/location", instrument("/api/drivers/location", driverOnly(handler.handleUpdateLocation)))
	mux.HandleFunc("GET /api/drivers/{driver_id}", instrument("/api/drivers/{driver_id}", anyRole(handler.handleGetDriver)))
	mux.HandleFunc("GET /api/drivers", instrument("/api/drivers", anyRole(handler.handleListAvailableDrivers)))

	mux.HandleFunc("GET /api/health", handler.handleHealth)
	mux.HandleFunc("POST /api/tokens", handler.handleCreateToken)
}

// instrument records request count and latency per route pattern.
func instrument(pattern string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(sw, r)
		status := strconv.Itoa(sw.status)
		observability.HTTPRequestsTotal.WithLabelValues(r.Method, pattern, status).Inc()
		observability.HTTPRequestDuration.WithLabelValues(r.Method, pattern, status).Observe(time.Since(start).Seconds())
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// ----- auth token minting (development helper) -----

type TokenRequest struct {
	UserID string    `json:"user_id"`
	Role   user.Role `json:"role"`
}

// TokenResponse represents the response for token generation
type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	UserID    string    `json:"user_id"`
	Role      user.Role `json:"role"`
}

func (handler *FleteHTTPHandler) handleCreateToken(w http.ResponseWriter, r *http.Request) {
	ctx := handler.withReqID(r.Context(), r)

	var req TokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if strings.TrimSpace(req.UserID) == "" {
		handler.httpError(ctx, w, http.StatusBadRequest, "user_id is required", nil)
		return
	}

	tokenString, claims, err := handler.auth.IssueUserToken(req.UserID, req.Role)
	if err != nil {
		handler.httpError(ctx, w, http.StatusBadRequest, "Failed to generate token: "+err.Error(), err)
		return
	}

	handler.logger.Info(ctx, "token_generated", "JWT token generated successfully",
		map[string]any{"user_id": req.UserID, "role": req.Role.String()})

	handler.jsonResponse(ctx, w, http.StatusCreated, TokenResponse{
		Token:     tokenString,
		ExpiresAt: claims.ExpiresAt.Time,
		UserID:    req.UserID,
		Role:      req.Role,
	})
}

func (handler *FleteHTTPHandler) handleHealth(w http.ResponseWriter, r *http.Request) {
	handler.jsonResponse(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
}

// ----- general helpers -----

func (handler *FleteHTTPHandler) jsonResponse(ctx context.Context, w http.ResponseWriter, status int, data any) {
	// encode to buffer first so we can control status on failure
	var buf []byte
	var err error

	if data != nil {
		buf, err = json.Marshal(data)
		if err != nil {
			handler.logger.Error(ctx, "response_encode_failed", "Failed to encode response", err, nil)
			http.Error(w, `{"error":"failed to encode response"}`, http.StatusInternalServerError)
			return
		}
	} else {
		buf = []byte("{}")
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

// httpError sends a JSON error response with a message.
func (handler *FleteHTTPHandler) httpError(ctx context.Context, w http.ResponseWriter, status int, msg string, err error) {
	action := "request_failed"
	if status >= 500 {
		action = "http_internal_error"
	} else if status == http.StatusBadRequest {
		action = "validation_failed"
	} else if status == http.StatusUnsupportedMediaType {
		action = "unsupported_media_type"
	}
	handler.logger.Error(ctx, action, msg, err, nil)

	type errBody struct {
		Error string `json:"error"`
	}
	handler.jsonResponse(ctx, w, status, errBody{Error: msg})
}

// serviceError maps domain errors to HTTP responses.
func (handler *FleteHTTPHandler) serviceError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, trip.ErrNotFound), errors.Is(err, driver.ErrNotFound):
		handler.httpError(ctx, w, http.StatusNotFound, err.Error(), err)

	case errors.Is(err, trip.ErrAlreadyAccepted),
		errors.Is(err, trip.ErrInvalidTransition),
		errors.Is(err, trip.ErrNotCancellable),
		errors.Is(err, rating.ErrAlreadyRated),
		errors.Is(err, rating.ErrTripNotCompleted):
		handler.httpError(ctx, w, http.StatusConflict, err.Error(), err)

	case errors.Is(err, rating.ErrNotParticipant):
		handler.httpError(ctx, w, http.StatusForbidden, err.Error(), err)

	case errors.Is(err, pricing.ErrUnknownService):
		msg := err.Error() + " (valid services: " + strings.Join(pricing.KnownServices(), ", ") + ")"
		handler.httpError(ctx, w, http.StatusBadRequest, msg, err)

	case errors.Is(err, pricing.ErrInvalidDistance),
		errors.Is(err, trip.ErrInvalidVehicleType),
		errors.Is(err, trip.ErrInvalidStatus):
		handler.httpError(ctx, w, http.StatusBadRequest, err.Error(), err)

	default:
		// distinguish DB failures from validation errors
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			handler.httpError(ctx, w, http.StatusInternalServerError, "database error", err)
			return
		}
		handler.httpError(ctx, w, http.StatusBadRequest, err.Error(), err)
	}
}

// decodeStrict enforces JSON content type, a body size cap, and strict decoding.
func (handler *FleteHTTPHandler) decodeStrict(ctx context.Context, w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) bool {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		handler.httpError(ctx, w, http.StatusUnsupportedMediaType, "Content-Type must be application/json", nil)
		return false
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			handler.httpError(ctx, w, http.StatusRequestEntityTooLarge, "request body too large", err)
			return false
		}
		handler.httpError(ctx, w, http.StatusBadRequest, "invalid JSON: "+err.Error(), err)
		return false
	}
	return true
}

// withReqID extracts or generates a request ID and adds it to the context.
func (handler *FleteHTTPHandler) withReqID(ctx context.Context, r *http.Request) context.Context {
	reqID := r.Header.Get("X-Request-ID")
	if strings.TrimSpace(reqID) == "" {
		reqID = randID()
	}
	return handler.logger.WithRequestID(ctx, reqID)
}

// randID generates a random 24-char hex string suitable for request IDs.
func randID() string {
	var b [12]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
