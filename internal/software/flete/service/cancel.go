package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fletea/internal/domain/trip"
	"fletea/internal/general/contracts"
	"fletea/internal/ports"
)

// CancelTrip cancels a trip on behalf of its rider. Cancellation is allowed
// only while the trip is pending or accepted; once loading starts the trip
// must run to completion.
func (service *tripService) CancelTrip(ctx context.Context, tripID, riderID string) (ports.CancelTripResult, error) {
	tripID = strings.TrimSpace(tripID)
	if tripID == "" {
		return ports.CancelTripResult{}, trip.ErrNotFound
	}
	correlationID := generateCorrelationID()
	cancelledAt := time.Now().UTC()

	var (
		oldStatus trip.Status
		driverID  string
	)
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		t, err := service.tripRepo.GetByID(txCtx, tripID)
		if err != nil {
			return err
		}

		// only the trip's rider may cancel it
		if t.RiderID != riderID {
			return trip.ErrNotFound
		}
		oldStatus = t.Status
		if t.DriverID != nil {
			driverID = *t.DriverID
		}

		if err := service.tripRepo.Cancel(txCtx, tripID, cancelledAt); err != nil {
			return err
		}
		if err := service.eventRepo.Append(txCtx, trip.NewEvent(tripID, oldStatus, trip.StatusCancelled, riderID)); err != nil {
			return err
		}

		// a cancelled accepted trip frees its driver
		if driverID != "" {
			if err := service.driverRepo.SetAvailability(txCtx, driverID, true); err != nil {
				service.logger.Debug(txCtx, "driver_availability_skip", "Could not restore driver availability", map[string]any{
					"driver_id": driverID,
				})
			}
		}
		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "trip_cancel_failed", "Failed to cancel trip", err, map[string]any{
			"trip_id":    tripID,
			"request_id": correlationID,
		})
		return ports.CancelTripResult{}, err
	}

	service.cache.Invalidate(ctx, tripID)

	// fan-out: publish cancelled status (best-effort, outside tx)
	if err := service.publishTripStatus(ctx, contracts.TripStatusMessage{
		TripID:    tripID,
		Status:    trip.StatusCancelled.String(),
		OldStatus: oldStatus.String(),
		RiderID:   riderID,
		DriverID:  driverID, // empty if none
		Timestamp: cancelledAt,
		Envelope: contracts.Envelope{
			CorrelationID: correlationID,
			Producer:      "api-service",
		},
	}); err != nil {
		service.logger.Error(ctx, "trip_status_publish_failed", "Failed to publish cancelled status", err, map[string]any{
			"trip_id":    tripID,
			"request_id": correlationID,
		})
	}

	service.logger.Info(ctx, "trip_cancelled",
		fmt.Sprintf("Trip %s cancelled", tripID),
		map[string]any{
			"trip_id":    tripID,
			"rider_id":   riderID,
			"request_id": correlationID,
		},
	)

	return ports.CancelTripResult{
		TripID:      tripID,
		Status:      trip.StatusCancelled.String(),
		CancelledAt: cancelledAt.Format(time.RFC3339),
	}, nil
}
