package ports

import (
	"context"
	"time"

	"fletea/internal/domain/trip"
	"fletea/internal/domain/user"
)

// ----- DTOs for Trip Service -----

// QuoteInput is the validated input for POST /api/quotes.
type QuoteInput struct {
	DistanceKm  float64
	VehicleType trip.VehicleType
	Services    []string
}

// QuoteResult matches the API response for a quote, including the breakdown
// the price was computed from.
type QuoteResult struct {
	Price       int64            `json:"price"`
	BaseFare    int64            `json:"base_fare"`
	PerKmRate   float64          `json:"per_km_rate"`
	VehicleType string           `json:"vehicle_type"`
	DistanceKm  float64          `json:"distance_km"`
	Services    []string         `json:"services"`
	ServiceFees map[string]int64 `json:"service_fees,omitempty"`
}

// CreateTripInput is the validated input required to create a trip.
type CreateTripInput struct {
	RiderID            string
	OriginAddress      string
	DestinationAddress string
	DistanceKm         float64
	VehicleType        trip.VehicleType
	Category           string
	Services           []string
	Photos             []string
}

// CreateTripResult is returned by TripService.CreateTrip() function.
type CreateTripResult struct {
	TripID string `json:"trip_id"`
	Status string `json:"status"`
	Price  int64  `json:"price"`
}

// AcceptTripInput is the validated input for POST /api/trips/{trip_id}/accept.
type AcceptTripInput struct {
	TripID   string // from path
	DriverID string // from JWT claims
}

// AcceptTripResult matches the API response for accepting a trip.
type AcceptTripResult struct {
	TripID     string `json:"trip_id"`
	Status     string `json:"status"`
	DriverID   string `json:"driver_id"`
	AcceptedAt string `json:"accepted_at"`
}

// AdvanceTripInput is the validated input for POST /api/trips/{trip_id}/status.
type AdvanceTripInput struct {
	TripID   string         // from path
	DriverID string         // from JWT claims
	Next     trip.Status    // target status, must be the immediate successor
	PhotoURL string         // optional evidence photo
	Location *trip.Location // optional last-known position
}

// AdvanceTripResult matches the API response for a status transition.
type AdvanceTripResult struct {
	TripID    string `json:"trip_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
	UpdatedAt string `json:"updated_at"`
}

// CancelTripResult matches the API response for cancelling a trip.
type CancelTripResult struct {
	TripID      string `json:"trip_id"`
	Status      string `json:"status"`
	CancelledAt string `json:"cancelled_at"`
}

// TripView is the read-model projection of a trip returned by queries.
type TripView struct {
	TripID             string         `json:"trip_id"`
	RiderID            string         `json:"rider_id"`
	DriverID           *string        `json:"driver_id,omitempty"`
	OriginAddress      string         `json:"origin_address"`
	DestinationAddress string         `json:"destination_address"`
	DistanceKm         float64        `json:"distance_km"`
	VehicleType        string         `json:"vehicle_type"`
	Category           string         `json:"category,omitempty"`
	Services           []string       `json:"services,omitempty"`
	Photos             []string       `json:"photos,omitempty"`
	Price              int64          `json:"price"`
	Status             string         `json:"status"`
	LoadingPhotoURL    *string        `json:"loading_photo_url,omitempty"`
	DeliveryPhotoURL   *string        `json:"delivery_photo_url,omitempty"`
	LastLocation       *trip.Location `json:"last_location,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// TripEventView is one entry of a trip's audit trail.
type TripEventView struct {
	EventID   string    `json:"event_id"`
	OldStatus string    `json:"old_status,omitempty"`
	NewStatus string    `json:"new_status"`
	ActorID   string    `json:"actor_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ----- Trip Service Interface -----

// TripService exposes the boundary for the trip lifecycle and queries.
type TripService interface {
	Quote(ctx context.Context, in QuoteInput) (QuoteResult, error)
	CreateTrip(ctx context.Context, in CreateTripInput) (CreateTripResult, error)
	AcceptTrip(ctx context.Context, in AcceptTripInput) (AcceptTripResult, error)
	AdvanceTrip(ctx context.Context, in AdvanceTripInput) (AdvanceTripResult, error)
	CancelTrip(ctx context.Context, tripID, riderID string) (CancelTripResult, error)
	GetTrip(ctx context.Context, tripID string) (TripView, error)
	ListPending(ctx context.Context) ([]TripView, error)
	ListMine(ctx context.Context, userID string, role user.Role) ([]TripView, error)
	ListEvents(ctx context.Context, tripID string) ([]TripEventView, error)
	ActiveForDriver(ctx context.Context, driverID string) (TripView, error)
}

// ---------------------------------------------------------------------------------------------------------------

// ----- DTOs for Driver Service -----

// SetAvailabilityInput is the validated input for POST /api/drivers/availability.
type SetAvailabilityInput struct {
	DriverID    string // from JWT claims
	Available   bool
	VehicleType trip.VehicleType // required on first upsert
	Name        string
}

// SetAvailabilityResult matches the API response for an availability change.
type SetAvailabilityResult struct {
	DriverID  string `json:"driver_id"`
	Available bool   `json:"available"`
	UpdatedAt string `json:"updated_at"`
}

// UpdateLocationInput is the validated input for POST /api/drivers/location.
type UpdateLocationInput struct {
	DriverID  string // from JWT claims
	Latitude  float64
	Longitude float64
}

// DriverView is the read-model projection of a driver profile.
type DriverView struct {
	DriverID     string         `json:"driver_id"`
	Name         string         `json:"name,omitempty"`
	VehicleType  string         `json:"vehicle_type"`
	Available    bool           `json:"available"`
	LastLocation *trip.Location `json:"last_location,omitempty"`
	Rating       float64        `json:"rating"`
	RatingCount  int64          `json:"rating_count"`
}

// ----- Driver Service Interface -----

// DriverService exposes availability and profile operations for drivers.
type DriverService interface {
	SetAvailability(ctx context.Context, in SetAvailabilityInput) (SetAvailabilityResult, error)
	UpdateLocation(ctx context.Context, in UpdateLocationInput) error
	GetDriver(ctx context.Context, driverID string) (DriverView, error)
	ListAvailable(ctx context.Context, vt trip.VehicleType) ([]DriverView, error)
}

// ---------------------------------------------------------------------------------------------------------------

// ----- DTOs for Rating Service -----

// RateTripInput is the validated input for POST /api/trips/{trip_id}/rating.
// Either party of a completed trip may review the other; the counterpart is
// derived from the trip itself.
type RateTripInput struct {
	TripID     string // from path
	ReviewerID string // from JWT claims
	Score      int
	Comment    string
}

// RateTripResult matches the API response for recording a rating.
type RateTripResult struct {
	RatingID   string `json:"rating_id"`
	TripID     string `json:"trip_id"`
	ReviewerID string `json:"reviewer_id"`
	RevieweeID string `json:"reviewee_id"`
	Score      int    `json:"score"`
}

// ----- Rating Service Interface -----

// RatingService exposes the once-per-reviewer trip rating operations.
type RatingService interface {
	RateTrip(ctx context.Context, in RateTripInput) (RateTripResult, error)
	GetTripRatings(ctx context.Context, tripID string) ([]RateTripResult, error)
}
