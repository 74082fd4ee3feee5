package trip

import (
	"errors"
	"strings"
	"time"
)

// Trip is the domain entity corresponding to the `trips` table.
type Trip struct {
	// Identity & audit
	ID        string
	CreatedAt time.Time
	UpdatedAt time.Time

	// Parties
	RiderID  string
	DriverID *string // nil until accepted

	// Route (immutable after creation)
	OriginAddress      string
	DestinationAddress string
	DistanceKm         float64

	// Classification
	VehicleType VehicleType
	Category    string
	Services    []string // add-on service ids chosen at creation
	Photos      []string // cargo evidence images, appendable

	// Commercial. Computed once at creation; never re-priced.
	Price int64

	// Lifecycle
	Status           Status
	LoadingPhotoURL  *string // set on accepted -> loading
	DeliveryPhotoURL *string // set on in_progress -> completed
	LastLocation     *Location

	// Lifecycle timestamps
	AcceptedAt  *time.Time
	LoadingAt   *time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time
}

// Location is a last-known driver position, recorded opportunistically.
type Location struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
}

var (
	ErrRiderRequired       = errors.New("rider id is required")
	ErrOriginRequired      = errors.New("origin address is required")
	ErrDestinationRequired = errors.New("destination address is required")
	ErrDistanceInvalid     = errors.New("distance_km must be a positive number")
	ErrPriceInvalid        = errors.New("price must be a positive amount")
	ErrDriverRequired      = errors.New("driver id is required")
	ErrInvalidTransition   = errors.New("invalid trip status transition")
	ErrAlreadyAccepted     = errors.New("trip already accepted by another driver")
	ErrNotFound            = errors.New("trip not found")
	ErrNotCancellable      = errors.New("trip can no longer be cancelled")
)

// NewTrip creates a new trip in pending state. The price is accepted as
// provided by the caller (computed up front via the pricing engine); it is
// deliberately not recomputed here.
func NewTrip(riderID, origin, destination string, distanceKm float64, vt VehicleType, price int64, category string, photos, services []string) (*Trip, error) {
	if riderID = strings.TrimSpace(riderID); riderID == "" {
		return nil, ErrRiderRequired
	}
	if origin = strings.TrimSpace(origin); origin == "" {
		return nil, ErrOriginRequired
	}
	if destination = strings.TrimSpace(destination); destination == "" {
		return nil, ErrDestinationRequired
	}
	if distanceKm <= 0 {
		return nil, ErrDistanceInvalid
	}
	if !vt.Valid() {
		return nil, ErrInvalidVehicleType
	}
	if price <= 0 {
		return nil, ErrPriceInvalid
	}

	now := time.Now().UTC()
	return &Trip{
		CreatedAt:          now,
		UpdatedAt:          now,
		RiderID:            riderID,
		OriginAddress:      origin,
		DestinationAddress: destination,
		DistanceKm:         distanceKm,
		VehicleType:        vt,
		Category:           strings.TrimSpace(category),
		Services:           dedupe(services),
		Photos:             photos,
		Price:              price,
		Status:             StatusPending,
	}, nil
}

// Accept sets the driver and moves pending -> accepted.
// The store-level claim is a conditional update; this guard exists for
// in-memory use and mirrors the same rules.
func (t *Trip) Accept(driverID string) error {
	if strings.TrimSpace(driverID) == "" {
		return ErrDriverRequired
	}
	if t.DriverID != nil && *t.DriverID != "" {
		return ErrAlreadyAccepted
	}
	if t.Status != StatusPending {
		return ErrAlreadyAccepted
	}

	t.DriverID = &driverID
	now := time.Now().UTC()
	t.AcceptedAt = &now
	t.setStatus(StatusAccepted)
	return nil
}

// Advance moves the trip exactly one step forward through the linear
// lifecycle. A photo attached while entering loading becomes the
// proof-of-loading record; a photo attached at completion becomes the
// proof-of-delivery record. A location, if supplied, is recorded regardless
// of which transition is occurring.
func (t *Trip) Advance(next Status, photoURL string, loc *Location) error {
	expected, ok := t.Status.Next()
	if !ok || next != expected {
		return ErrInvalidTransition
	}

	now := time.Now().UTC()
	switch next {
	case StatusLoading:
		t.LoadingAt = &now
		if p := strings.TrimSpace(photoURL); p != "" {
			t.LoadingPhotoURL = &p
		}
	case StatusInProgress:
		t.StartedAt = &now
	case StatusCompleted:
		t.CompletedAt = &now
		if p := strings.TrimSpace(photoURL); p != "" {
			t.DeliveryPhotoURL = &p
		}
	default:
		// pending -> accepted goes through Accept, never Advance
		return ErrInvalidTransition
	}

	if loc != nil {
		t.LastLocation = loc
	}
	t.setStatus(next)
	return nil
}

// Cancel transitions to cancelled; allowed only from pending or accepted.
func (t *Trip) Cancel() error {
	if !t.Status.Cancellable() {
		return ErrNotCancellable
	}
	now := time.Now().UTC()
	t.CancelledAt = &now
	t.setStatus(StatusCancelled)
	return nil
}

// ----- internal helpers -----

func (t *Trip) setStatus(status Status) {
	t.Status = status
	t.touch()
}

func (t *Trip) touch() {
	t.UpdatedAt = time.Now().UTC()
}

// dedupe preserves order while dropping repeated service ids.
func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
