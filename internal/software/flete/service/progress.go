package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"fletea/internal/domain/trip"
	"fletea/internal/general/contracts"
	"fletea/internal/observability"
	"fletea/internal/ports"
)

// AdvanceTrip moves a trip exactly one step forward through the linear
// lifecycle: accepted -> loading -> in_progress -> completed. Only the
// assigned driver may advance; skipping a step is rejected.
func (service *tripService) AdvanceTrip(ctx context.Context, in ports.AdvanceTripInput) (ports.AdvanceTripResult, error) {
	if strings.TrimSpace(in.TripID) == "" {
		return ports.AdvanceTripResult{}, trip.ErrNotFound
	}
	if !in.Next.Valid() {
		return ports.AdvanceTripResult{}, trip.ErrInvalidStatus
	}
	correlationID := generateCorrelationID()
	ts := time.Now().UTC()

	var (
		from    trip.Status
		riderID string
	)
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		t, err := service.tripRepo.GetByID(txCtx, in.TripID)
		if err != nil {
			return err
		}
		riderID = t.RiderID

		// only the assigned driver may advance the trip
		if t.DriverID == nil || *t.DriverID != in.DriverID {
			return trip.ErrInvalidTransition
		}

		// exactly one step forward, no skipping
		expected, ok := t.Status.Next()
		if !ok || in.Next != expected {
			return trip.ErrInvalidTransition
		}
		from = t.Status

		var photo *string
		if p := strings.TrimSpace(in.PhotoURL); p != "" {
			photo = &p
		}

		if err := service.tripRepo.AdvanceStatus(txCtx, in.TripID, from, in.Next, photo, in.Location, ts); err != nil {
			return err
		}

		// a completed trip returns its driver to the available pool
		if in.Next == trip.StatusCompleted {
			if err := service.driverRepo.SetAvailability(txCtx, in.DriverID, true); err != nil {
				service.logger.Debug(txCtx, "driver_availability_skip", "Could not restore driver availability", map[string]any{
					"driver_id": in.DriverID,
				})
			}
		}

		return service.eventRepo.Append(txCtx, trip.NewEvent(in.TripID, from, in.Next, in.DriverID))
	})
	if err != nil {
		service.logger.Error(ctx, "trip_advance_failed", "Failed to advance trip status", err, map[string]any{
			"trip_id":    in.TripID,
			"driver_id":  in.DriverID,
			"next":       in.Next.String(),
			"request_id": correlationID,
		})
		return ports.AdvanceTripResult{}, err
	}

	if in.Next == trip.StatusCompleted {
		observability.TripsCompletedTotal.Inc()
	}
	service.cache.Invalidate(ctx, in.TripID)

	// fan-out: publish new status (best-effort, outside tx)
	if err := service.publishTripStatus(ctx, contracts.TripStatusMessage{
		TripID:    in.TripID,
		Status:    in.Next.String(),
		OldStatus: from.String(),
		RiderID:   riderID,
		DriverID:  in.DriverID,
		Timestamp: ts,
		Envelope: contracts.Envelope{
			CorrelationID: correlationID,
			Producer:      "api-service",
		},
	}); err != nil {
		service.logger.Error(ctx, "trip_status_publish_failed", "Failed to publish trip status", err, map[string]any{
			"trip_id":    in.TripID,
			"request_id": correlationID,
		})
	}

	service.logger.Info(ctx, "trip_advanced",
		fmt.Sprintf("Trip %s moved %s -> %s", in.TripID, from, in.Next),
		map[string]any{
			"trip_id":    in.TripID,
			"driver_id":  in.DriverID,
			"old_status": from.String(),
			"new_status": in.Next.String(),
			"request_id": correlationID,
		},
	)

	return ports.AdvanceTripResult{
		TripID:    in.TripID,
		OldStatus: from.String(),
		NewStatus: in.Next.String(),
		UpdatedAt: ts.Format(time.RFC3339),
	}, nil
}
