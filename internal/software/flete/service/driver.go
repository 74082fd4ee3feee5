package service

import (
	"context"
	"strings"
	"time"

	"fletea/internal/domain/driver"
	"fletea/internal/domain/trip"
	"fletea/internal/ports"
)

// SetAvailability upserts the driver profile and flips the availability flag.
func (service *driverService) SetAvailability(ctx context.Context, in ports.SetAvailabilityInput) (ports.SetAvailabilityResult, error) {
	if strings.TrimSpace(in.DriverID) == "" {
		return ports.SetAvailabilityResult{}, trip.ErrDriverRequired
	}
	if !in.VehicleType.Valid() {
		return ports.SetAvailabilityResult{}, trip.ErrInvalidVehicleType
	}

	d := &driver.Driver{
		ID:          in.DriverID,
		Name:        in.Name,
		VehicleType: in.VehicleType,
		Available:   in.Available,
	}

	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		return service.driverRepo.Upsert(txCtx, d)
	})
	if err != nil {
		service.logger.Error(ctx, "driver_availability_failed", "Failed to update driver availability", err, map[string]any{
			"driver_id": in.DriverID,
		})
		return ports.SetAvailabilityResult{}, err
	}

	service.logger.Info(ctx, "driver_availability_changed", "Driver availability updated", map[string]any{
		"driver_id": in.DriverID,
		"available": in.Available,
	})

	return ports.SetAvailabilityResult{
		DriverID:  in.DriverID,
		Available: in.Available,
		UpdatedAt: time.Now().UTC().Format(time.RFC3339),
	}, nil
}

// UpdateLocation records the driver's last reported position.
func (service *driverService) UpdateLocation(ctx context.Context, in ports.UpdateLocationInput) error {
	if strings.TrimSpace(in.DriverID) == "" {
		return trip.ErrDriverRequired
	}

	loc := trip.Location{Latitude: in.Latitude, Longitude: in.Longitude}
	return service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		return service.driverRepo.UpdateLocation(txCtx, in.DriverID, loc)
	})
}

// GetDriver returns a driver profile with their rating summary.
func (service *driverService) GetDriver(ctx context.Context, driverID string) (ports.DriverView, error) {
	var view ports.DriverView
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		d, err := service.driverRepo.GetByID(txCtx, driverID)
		if err != nil {
			return err
		}
		summary, err := service.ratingRepo.SummaryForDriver(txCtx, driverID)
		if err != nil {
			return err
		}
		view = toDriverView(d, summary.Average, summary.Count)
		return nil
	})
	if err != nil {
		return ports.DriverView{}, err
	}
	return view, nil
}

// ListAvailable returns drivers currently available for a vehicle tier.
func (service *driverService) ListAvailable(ctx context.Context, vt trip.VehicleType) ([]ports.DriverView, error) {
	if !vt.Valid() {
		return nil, trip.ErrInvalidVehicleType
	}

	var views []ports.DriverView
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		drivers, err := service.driverRepo.ListAvailable(txCtx, vt, listLimit)
		if err != nil {
			return err
		}
		views = make([]ports.DriverView, 0, len(drivers))
		for _, d := range drivers {
			summary, err := service.ratingRepo.SummaryForDriver(txCtx, d.ID)
			if err != nil {
				return err
			}
			views = append(views, toDriverView(d, summary.Average, summary.Count))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

func toDriverView(d *driver.Driver, avg float64, count int64) ports.DriverView {
	return ports.DriverView{
		DriverID:     d.ID,
		Name:         d.Name,
		VehicleType:  d.VehicleType.String(),
		Available:    d.Available,
		LastLocation: d.LastLocation,
		Rating:       avg,
		RatingCount:  count,
	}
}
