package service

import (
	"context"
	"fmt"
	"time"

	"fletea/internal/domain/pricing"
	"fletea/internal/domain/trip"
	"fletea/internal/general/contracts"
	"fletea/internal/observability"
	"fletea/internal/ports"
)

// CreateTrip prices and persists a new trip in pending state, then publishes
// the pending status so the feed can offer it to drivers.
func (service *tripService) CreateTrip(ctx context.Context, in ports.CreateTripInput) (ports.CreateTripResult, error) {
	correlationID := generateCorrelationID()

	// price the trip once, up front; the stored price never changes
	price, err := pricing.Quote(in.DistanceKm, in.VehicleType, in.Services)
	if err != nil {
		return ports.CreateTripResult{}, err
	}

	// build the entity (validates required fields)
	t, err := trip.NewTrip(
		in.RiderID,
		in.OriginAddress,
		in.DestinationAddress,
		in.DistanceKm,
		in.VehicleType,
		price,
		in.Category,
		in.Photos,
		in.Services,
	)
	if err != nil {
		return ports.CreateTripResult{}, err
	}

	// persist trip + initial audit event in one transaction
	err = service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		if err := service.tripRepo.CreateTrip(txCtx, t); err != nil {
			return err
		}
		return service.eventRepo.Append(txCtx, trip.NewEvent(t.ID, "", trip.StatusPending, t.RiderID))
	})
	if err != nil {
		service.logger.Error(ctx, "trip_create_failed", "Failed to create trip", err, map[string]any{
			"rider_id":   in.RiderID,
			"request_id": correlationID,
		})
		return ports.CreateTripResult{}, err
	}

	observability.TripsCreatedTotal.Inc()
	service.cache.Invalidate(ctx, t.ID) // new pending trip changes the pool snapshot

	// fan-out: publish pending status (best-effort, outside tx)
	if err := service.publishTripStatus(ctx, contracts.TripStatusMessage{
		TripID:    t.ID,
		Status:    trip.StatusPending.String(),
		RiderID:   t.RiderID,
		Price:     t.Price,
		Timestamp: time.Now().UTC(),
		Envelope: contracts.Envelope{
			CorrelationID: correlationID,
			Producer:      "api-service",
		},
	}); err != nil {
		service.logger.Error(ctx, "trip_status_publish_failed", "Failed to publish pending status", err, map[string]any{
			"trip_id":    t.ID,
			"request_id": correlationID,
		})
	}

	service.logger.Info(ctx, "trip_created", fmt.Sprintf("Trip %s created", t.ID), map[string]any{
		"trip_id":      t.ID,
		"rider_id":     t.RiderID,
		"vehicle_type": t.VehicleType.String(),
		"price":        t.Price,
		"request_id":   correlationID,
	})

	return ports.CreateTripResult{
		TripID: t.ID,
		Status: t.Status.String(),
		Price:  t.Price,
	}, nil
}
