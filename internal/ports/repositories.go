package ports

import (
	"context"
	"time"

	"fletea/internal/domain/driver"
	"fletea/internal/domain/rating"
	"fletea/internal/domain/trip"
)

// UnitOfWork interface is used to manage transactions across multiple repository operations.
type UnitOfWork interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// TripRepository defines the methods for managing trip data.
type TripRepository interface {
	CreateTrip(ctx context.Context, t *trip.Trip) error
	GetByID(ctx context.Context, id string) (*trip.Trip, error)
	GetActiveForDriver(ctx context.Context, driverID string) (*trip.Trip, error)
	ListPending(ctx context.Context, limit int) ([]*trip.Trip, error)
	ListByRider(ctx context.Context, riderID string, limit int) ([]*trip.Trip, error)
	ListByDriver(ctx context.Context, driverID string, limit int) ([]*trip.Trip, error)

	// AcceptPending claims a pending trip for a driver with a single
	// conditional update. It returns trip.ErrAlreadyAccepted when the row
	// exists but is no longer pending, trip.ErrNotFound when it does not.
	AcceptPending(ctx context.Context, tripID, driverID string, acceptedAt time.Time) error

	// AdvanceStatus performs a conditional from->to update, optionally
	// attaching a photo URL and last-known location. It returns
	// trip.ErrInvalidTransition when the row is not in `from`.
	AdvanceStatus(ctx context.Context, tripID string, from, to trip.Status, photoURL *string, loc *trip.Location, ts time.Time) error

	// Cancel marks the trip cancelled; only pending or accepted rows match.
	Cancel(ctx context.Context, tripID string, cancelledAt time.Time) error
}

// TripEventRepository defines the methods for appending the trip audit trail.
type TripEventRepository interface {
	Append(ctx context.Context, e *trip.Event) error
	ListByTrip(ctx context.Context, tripID string) ([]*trip.Event, error)
}

// DriverRepository defines the methods for managing driver availability data.
type DriverRepository interface {
	Upsert(ctx context.Context, d *driver.Driver) error
	GetByID(ctx context.Context, driverID string) (*driver.Driver, error)
	SetAvailability(ctx context.Context, driverID string, available bool) error
	ListAvailable(ctx context.Context, vt trip.VehicleType, limit int) ([]*driver.Driver, error)
	UpdateLocation(ctx context.Context, driverID string, loc trip.Location) error
}

// RatingRepository defines the methods for managing rating data.
type RatingRepository interface {
	Create(ctx context.Context, r *rating.Rating) error
	ListByTrip(ctx context.Context, tripID string) ([]*rating.Rating, error)
	SummaryForDriver(ctx context.Context, driverID string) (*rating.Summary, error)
}

// TripCache is a read-through cache in front of hot trip queries.
type TripCache interface {
	GetTrip(ctx context.Context, id string) (*trip.Trip, bool)
	SetTrip(ctx context.Context, t *trip.Trip)
	GetPending(ctx context.Context) ([]*trip.Trip, bool)
	SetPending(ctx context.Context, trips []*trip.Trip)
	Invalidate(ctx context.Context, tripID string)
}

// EventPublisher publishes domain events to the message broker.
type EventPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, body []byte) error
}
