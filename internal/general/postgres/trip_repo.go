package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fletea/internal/domain/trip"
	"fletea/internal/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// TripRepo persists trips using pgx and plain SQL.
type TripRepo struct{}

// NewTripRepo constructs a new TripRepo.
func NewTripRepo() ports.TripRepository {
	return &TripRepo{}
}

// tripColumns is the shared select list; keep in sync with scanTrip.
const tripColumns = `
	id, created_at, updated_at, rider_id, driver_id,
	origin_address, destination_address, distance_km,
	vehicle_type, category, services, photos, price, status,
	loading_photo_url, delivery_photo_url, last_lat, last_lng,
	accepted_at, loading_at, started_at, completed_at, cancelled_at`

// CreateTrip inserts a new trip row.
func (repo *TripRepo) CreateTrip(ctx context.Context, t *trip.Trip) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	if t.ID == "" {
		t.ID = uuid.NewString()
	}

	// insert only the columns we actually have values for at creation time
	err = tx.QueryRow(ctx, `
		INSERT INTO trips (
			id, rider_id, origin_address, destination_address, distance_km,
			vehicle_type, category, services, photos, price, status
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`,
		t.ID,
		t.RiderID,
		t.OriginAddress,
		t.DestinationAddress,
		t.DistanceKm,
		t.VehicleType.String(),
		t.Category,
		t.Services,
		t.Photos,
		t.Price,
		t.Status.String(), // always "pending"
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	return err
}

// GetByID fetches a trip by primary key (uuid).
func (repo *TripRepo) GetByID(ctx context.Context, id string) (*trip.Trip, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `SELECT`+tripColumns+` FROM trips WHERE id = $1`, id)
	out, err := scanTrip(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, trip.ErrNotFound
		}
		return nil, err
	}
	return out, nil
}

// GetActiveForDriver fetches the driver's current non-terminal trip, if any.
func (repo *TripRepo) GetActiveForDriver(ctx context.Context, driverID string) (*trip.Trip, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(ctx, `
		SELECT`+tripColumns+`
		FROM trips
		WHERE driver_id = $1
		  AND status IN ('accepted', 'loading', 'in_progress')
		ORDER BY accepted_at DESC
		LIMIT 1
	`, driverID)
	out, err := scanTrip(row)
	if err != nil {
		// no active trip found
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return out, nil
}

// ListPending returns the open trip pool, newest first.
func (repo *TripRepo) ListPending(ctx context.Context, limit int) ([]*trip.Trip, error) {
	return repo.list(ctx, `
		SELECT`+tripColumns+`
		FROM trips
		WHERE status = 'pending'
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
}

// ListByRider returns a rider's trips, newest first.
func (repo *TripRepo) ListByRider(ctx context.Context, riderID string, limit int) ([]*trip.Trip, error) {
	return repo.list(ctx, `
		SELECT`+tripColumns+`
		FROM trips
		WHERE rider_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, riderID, limit)
}

// ListByDriver returns a driver's trips, newest first.
func (repo *TripRepo) ListByDriver(ctx context.Context, driverID string, limit int) ([]*trip.Trip, error) {
	return repo.list(ctx, `
		SELECT`+tripColumns+`
		FROM trips
		WHERE driver_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, driverID, limit)
}

// AcceptPending claims a pending trip for a driver with a single conditional
// update. Exactly one concurrent caller can win; losers get a conflict error
// without ever having observed stale state.
func (repo *TripRepo) AcceptPending(ctx context.Context, tripID, driverID string, acceptedAt time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE trips
		SET driver_id = $1,
		    status = 'accepted',
		    accepted_at = $2,
		    updated_at = now()
		WHERE id = $3
		  AND status = 'pending'
		  AND driver_id IS NULL
	`, driverID, acceptedAt, tripID)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		// distinguish "gone" from "lost the race"
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM trips WHERE id = $1)`, tripID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return trip.ErrNotFound
		}
		return trip.ErrAlreadyAccepted
	}

	return nil
}

// AdvanceStatus performs a conditional from->to update, stamping the matching
// timeline column and optionally attaching an evidence photo and location.
func (repo *TripRepo) AdvanceStatus(ctx context.Context, tripID string, from, to trip.Status, photoURL *string, loc *trip.Location, ts time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	query := `
		UPDATE trips
		SET status = $1,
		    ` + timelineColumnFor(to) + ` = $2,
		    updated_at = now()`
	args := []any{to.String(), ts}

	switch to {
	case trip.StatusLoading:
		if photoURL != nil {
			query += fmt.Sprintf(", loading_photo_url = $%d", len(args)+1)
			args = append(args, *photoURL)
		}
	case trip.StatusCompleted:
		if photoURL != nil {
			query += fmt.Sprintf(", delivery_photo_url = $%d", len(args)+1)
			args = append(args, *photoURL)
		}
	}
	if loc != nil {
		query += fmt.Sprintf(", last_lat = $%d, last_lng = $%d", len(args)+1, len(args)+2)
		args = append(args, loc.Latitude, loc.Longitude)
	}

	query += fmt.Sprintf(" WHERE id = $%d AND status = $%d", len(args)+1, len(args)+2)
	args = append(args, tripID, from.String())

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		var exists bool
		if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM trips WHERE id = $1)`, tripID).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return trip.ErrNotFound
		}
		return trip.ErrInvalidTransition
	}

	return nil
}

// Cancel marks the trip cancelled; only pending or accepted rows match.
func (repo *TripRepo) Cancel(ctx context.Context, tripID string, cancelledAt time.Time) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	// lock the row and read current status to enforce transitions
	var oldStatus string
	err = tx.QueryRow(ctx, `
		SELECT status
		FROM trips
		WHERE id = $1
		FOR UPDATE
	`, tripID).Scan(&oldStatus)
	if errors.Is(err, pgx.ErrNoRows) {
		return trip.ErrNotFound
	}
	if err != nil {
		return err
	}

	if !trip.Status(oldStatus).Cancellable() {
		return trip.ErrNotCancellable
	}

	_, err = tx.Exec(ctx, `
		UPDATE trips
		SET status = 'cancelled',
		    cancelled_at = $1,
		    updated_at = now()
		WHERE id = $2
	`, cancelledAt, tripID)
	return err
}

// --- helpers ---

func (repo *TripRepo) list(ctx context.Context, query string, args ...any) ([]*trip.Trip, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query trips: %w", err)
	}
	defer rows.Close()

	var trips []*trip.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trip: %w", err)
		}
		trips = append(trips, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return trips, nil
}

// scanTrip reads one row in tripColumns order.
func scanTrip(row pgx.Row) (*trip.Trip, error) {
	var out trip.Trip
	var vehicleType, status string
	var lastLat, lastLng *float64

	err := row.Scan(
		&out.ID, &out.CreatedAt, &out.UpdatedAt, &out.RiderID, &out.DriverID,
		&out.OriginAddress, &out.DestinationAddress, &out.DistanceKm,
		&vehicleType, &out.Category, &out.Services, &out.Photos, &out.Price, &status,
		&out.LoadingPhotoURL, &out.DeliveryPhotoURL, &lastLat, &lastLng,
		&out.AcceptedAt, &out.LoadingAt, &out.StartedAt, &out.CompletedAt, &out.CancelledAt,
	)
	if err != nil {
		return nil, err
	}

	out.VehicleType = trip.VehicleType(vehicleType)
	out.Status = trip.Status(status)
	if lastLat != nil && lastLng != nil {
		out.LastLocation = &trip.Location{Latitude: *lastLat, Longitude: *lastLng}
	}

	return &out, nil
}

// timelineColumnFor maps a status to the timeline column that must be stamped.
func timelineColumnFor(status trip.Status) string {
	switch status {
	case trip.StatusAccepted:
		return "accepted_at"
	case trip.StatusLoading:
		return "loading_at"
	case trip.StatusInProgress:
		return "started_at"
	case trip.StatusCompleted:
		return "completed_at"
	case trip.StatusCancelled:
		return "cancelled_at"
	default:
		return "updated_at"
	}
}
