package postgres

import (
	"context"
	"errors"
	"fmt"

	"fletea/internal/domain/driver"
	"fletea/internal/domain/trip"
	"fletea/internal/ports"

	"github.com/jackc/pgx/v5"
)

// DriverRepo persists driver availability records using pgx and plain SQL.
type DriverRepo struct{}

// NewDriverRepo constructs a new DriverRepo.
func NewDriverRepo() ports.DriverRepository {
	return &DriverRepo{}
}

// Upsert inserts or refreshes a driver profile row.
func (repo *DriverRepo) Upsert(ctx context.Context, d *driver.Driver) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO drivers (id, name, vehicle_type, available, updated_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE
		SET name = COALESCE(NULLIF(EXCLUDED.name, ''), drivers.name),
		    vehicle_type = EXCLUDED.vehicle_type,
		    available = EXCLUDED.available,
		    updated_at = now()
	`, d.ID, d.Name, d.VehicleType.String(), d.Available)
	return err
}

// GetByID fetches a driver profile by id.
func (repo *DriverRepo) GetByID(ctx context.Context, driverID string) (*driver.Driver, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	var out driver.Driver
	var vehicleType string
	var lastLat, lastLng *float64

	err = tx.QueryRow(ctx, `
		SELECT id, name, vehicle_type, available, last_lat, last_lng, updated_at
		FROM drivers
		WHERE id = $1
	`, driverID).Scan(&out.ID, &out.Name, &vehicleType, &out.Available, &lastLat, &lastLng, &out.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, driver.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	out.VehicleType = trip.VehicleType(vehicleType)
	if lastLat != nil && lastLng != nil {
		out.LastLocation = &trip.Location{Latitude: *lastLat, Longitude: *lastLng}
	}

	return &out, nil
}

// SetAvailability flips the availability flag for an existing driver.
func (repo *DriverRepo) SetAvailability(ctx context.Context, driverID string, available bool) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE drivers
		SET available = $1,
		    updated_at = now()
		WHERE id = $2
	`, available, driverID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return driver.ErrNotFound
	}
	return nil
}

// ListAvailable returns drivers currently marked available for a vehicle tier.
func (repo *DriverRepo) ListAvailable(ctx context.Context, vt trip.VehicleType, limit int) ([]*driver.Driver, error) {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT id, name, vehicle_type, available, last_lat, last_lng, updated_at
		FROM drivers
		WHERE available = true
		  AND vehicle_type = $1
		ORDER BY updated_at DESC
		LIMIT $2
	`, vt.String(), limit)
	if err != nil {
		return nil, fmt.Errorf("query available drivers: %w", err)
	}
	defer rows.Close()

	var drivers []*driver.Driver
	for rows.Next() {
		var d driver.Driver
		var vehicleType string
		var lastLat, lastLng *float64
		if err := rows.Scan(&d.ID, &d.Name, &vehicleType, &d.Available, &lastLat, &lastLng, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan driver: %w", err)
		}
		d.VehicleType = trip.VehicleType(vehicleType)
		if lastLat != nil && lastLng != nil {
			d.LastLocation = &trip.Location{Latitude: *lastLat, Longitude: *lastLng}
		}
		drivers = append(drivers, &d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return drivers, nil
}

// UpdateLocation records the driver's last reported position.
func (repo *DriverRepo) UpdateLocation(ctx context.Context, driverID string, loc trip.Location) error {
	tx, err := MustTxFromContext(ctx)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE drivers
		SET last_lat = $1,
		    last_lng = $2,
		    updated_at = now()
		WHERE id = $3
	`, loc.Latitude, loc.Longitude, driverID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return driver.ErrNotFound
	}
	return nil
}
