package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fletea/internal/domain/trip"
	"fletea/internal/general/contracts"
	"fletea/internal/observability"
	"fletea/internal/ports"
)

// AcceptTrip claims a pending trip for a driver. The claim is a single
// conditional update in the store, so when several drivers race for the same
// trip exactly one wins; the rest get trip.ErrAlreadyAccepted.
func (service *tripService) AcceptTrip(ctx context.Context, in ports.AcceptTripInput) (ports.AcceptTripResult, error) {
	if strings.TrimSpace(in.TripID) == "" {
		return ports.AcceptTripResult{}, trip.ErrNotFound
	}
	if strings.TrimSpace(in.DriverID) == "" {
		return ports.AcceptTripResult{}, trip.ErrDriverRequired
	}
	correlationID := generateCorrelationID()
	acceptedAt := time.Now().UTC()

	var riderID string
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		// a driver can only work one trip at a time
		active, err := service.tripRepo.GetActiveForDriver(txCtx, in.DriverID)
		if err != nil {
			return err
		}
		if active != nil {
			return fmt.Errorf("%w: driver already on trip %s", trip.ErrAlreadyAccepted, active.ID)
		}

		if err := service.tripRepo.AcceptPending(txCtx, in.TripID, in.DriverID, acceptedAt); err != nil {
			return err
		}
		if err := service.eventRepo.Append(txCtx, trip.NewEvent(in.TripID, trip.StatusPending, trip.StatusAccepted, in.DriverID)); err != nil {
			return err
		}

		// driver leaves the available pool while on a trip
		if err := service.driverRepo.SetAvailability(txCtx, in.DriverID, false); err != nil {
			// the driver row may not exist yet for ad-hoc drivers; not fatal
			service.logger.Debug(txCtx, "driver_availability_skip", "Could not flip driver availability", map[string]any{
				"driver_id": in.DriverID,
			})
		}

		t, err := service.tripRepo.GetByID(txCtx, in.TripID)
		if err != nil {
			return err
		}
		riderID = t.RiderID
		return nil
	})
	if err != nil {
		if errors.Is(err, trip.ErrAlreadyAccepted) {
			observability.AcceptConflictsTotal.Inc()
		}
		service.logger.Error(ctx, "trip_accept_failed", "Failed to accept trip", err, map[string]any{
			"trip_id":    in.TripID,
			"driver_id":  in.DriverID,
			"request_id": correlationID,
		})
		return ports.AcceptTripResult{}, err
	}

	observability.TripsAcceptedTotal.Inc()
	service.cache.Invalidate(ctx, in.TripID)

	// fan-out: publish accepted status (best-effort, outside tx)
	if err := service.publishTripStatus(ctx, contracts.TripStatusMessage{
		TripID:    in.TripID,
		Status:    trip.StatusAccepted.String(),
		OldStatus: trip.StatusPending.String(),
		RiderID:   riderID,
		DriverID:  in.DriverID,
		Timestamp: acceptedAt,
		Envelope: contracts.Envelope{
			CorrelationID: correlationID,
			Producer:      "api-service",
		},
	}); err != nil {
		service.logger.Error(ctx, "trip_status_publish_failed", "Failed to publish accepted status", err, map[string]any{
			"trip_id":    in.TripID,
			"request_id": correlationID,
		})
	}

	service.logger.Info(ctx, "trip_accepted", fmt.Sprintf("Trip %s accepted by driver %s", in.TripID, in.DriverID), map[string]any{
		"trip_id":    in.TripID,
		"driver_id":  in.DriverID,
		"request_id": correlationID,
	})

	return ports.AcceptTripResult{
		TripID:     in.TripID,
		Status:     trip.StatusAccepted.String(),
		DriverID:   in.DriverID,
		AcceptedAt: acceptedAt.Format(time.RFC3339),
	}, nil
}
