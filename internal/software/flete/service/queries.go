package service

import (
	"context"
	"strings"

	"fletea/internal/domain/trip"
	"fletea/internal/domain/user"
	"fletea/internal/ports"
)

const listLimit = 100

// GetTrip returns a single trip, read-through the cache.
func (service *tripService) GetTrip(ctx context.Context, tripID string) (ports.TripView, error) {
	tripID = strings.TrimSpace(tripID)
	if tripID == "" {
		return ports.TripView{}, trip.ErrNotFound
	}

	if t, ok := service.cache.GetTrip(ctx, tripID); ok {
		return toTripView(t), nil
	}

	var t *trip.Trip
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		t, err = service.tripRepo.GetByID(txCtx, tripID)
		return err
	})
	if err != nil {
		return ports.TripView{}, err
	}

	service.cache.SetTrip(ctx, t)
	return toTripView(t), nil
}

// ListPending returns the open trip pool drivers can pick from, newest first,
// read-through the cache.
func (service *tripService) ListPending(ctx context.Context) ([]ports.TripView, error) {
	if trips, ok := service.cache.GetPending(ctx); ok {
		return toTripViews(trips), nil
	}

	var trips []*trip.Trip
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		trips, err = service.tripRepo.ListPending(txCtx, listLimit)
		return err
	})
	if err != nil {
		return nil, err
	}

	service.cache.SetPending(ctx, trips)
	return toTripViews(trips), nil
}

// ListMine returns the caller's trips, newest first. Riders see the trips
// they requested, drivers the trips they worked.
func (service *tripService) ListMine(ctx context.Context, userID string, role user.Role) ([]ports.TripView, error) {
	var trips []*trip.Trip
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		if role == user.RoleDriver {
			trips, err = service.tripRepo.ListByDriver(txCtx, userID, listLimit)
		} else {
			trips, err = service.tripRepo.ListByRider(txCtx, userID, listLimit)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return toTripViews(trips), nil
}

// ListEvents returns a trip's audit trail, oldest first.
func (service *tripService) ListEvents(ctx context.Context, tripID string) ([]ports.TripEventView, error) {
	tripID = strings.TrimSpace(tripID)
	if tripID == "" {
		return nil, trip.ErrNotFound
	}

	var events []*trip.Event
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		if _, err := service.tripRepo.GetByID(txCtx, tripID); err != nil {
			return err
		}
		var err error
		events, err = service.eventRepo.ListByTrip(txCtx, tripID)
		return err
	})
	if err != nil {
		return nil, err
	}

	views := make([]ports.TripEventView, 0, len(events))
	for _, e := range events {
		views = append(views, ports.TripEventView{
			EventID:   e.ID,
			OldStatus: e.OldStatus.String(),
			NewStatus: e.NewStatus.String(),
			ActorID:   e.ActorID,
			CreatedAt: e.CreatedAt,
		})
	}
	return views, nil
}

// ActiveForDriver returns the driver's current non-terminal trip.
func (service *tripService) ActiveForDriver(ctx context.Context, driverID string) (ports.TripView, error) {
	var t *trip.Trip
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		t, err = service.tripRepo.GetActiveForDriver(txCtx, driverID)
		return err
	})
	if err != nil {
		return ports.TripView{}, err
	}
	if t == nil {
		return ports.TripView{}, trip.ErrNotFound
	}
	return toTripView(t), nil
}
