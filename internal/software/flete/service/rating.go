package service

import (
	"context"
	"fmt"
	"strings"

	"fletea/internal/domain/rating"
	"fletea/internal/domain/trip"
	"fletea/internal/ports"
)

// RateTrip records a rating for a completed trip. Either party may review
// the other: the rider scores the driver and the driver scores the rider.
// Each reviewer rates a trip at most once; the unique index on
// (trip_id, reviewer_id) backs the once-only rule under concurrency.
func (service *ratingService) RateTrip(ctx context.Context, in ports.RateTripInput) (ports.RateTripResult, error) {
	if strings.TrimSpace(in.TripID) == "" {
		return ports.RateTripResult{}, rating.ErrTripRequired
	}

	var (
		ratingID   string
		revieweeID string
	)
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		t, err := service.tripRepo.GetByID(txCtx, in.TripID)
		if err != nil {
			return err
		}

		// derive the counterpart from the trip itself
		switch {
		case t.RiderID == in.ReviewerID:
			if t.DriverID == nil {
				return fmt.Errorf("trip %s has no driver to review", t.ID)
			}
			revieweeID = *t.DriverID
		case t.DriverID != nil && *t.DriverID == in.ReviewerID:
			revieweeID = t.RiderID
		default:
			return rating.ErrNotParticipant
		}

		if t.Status != trip.StatusCompleted {
			return rating.ErrTripNotCompleted
		}

		r, err := rating.New(in.TripID, in.ReviewerID, revieweeID, in.Score, in.Comment)
		if err != nil {
			return err
		}

		if err := service.ratingRepo.Create(txCtx, r); err != nil {
			return err
		}
		ratingID = r.ID
		return nil
	})
	if err != nil {
		service.logger.Error(ctx, "trip_rate_failed", "Failed to rate trip", err, map[string]any{
			"trip_id":     in.TripID,
			"reviewer_id": in.ReviewerID,
		})
		return ports.RateTripResult{}, err
	}

	service.logger.Info(ctx, "trip_rated", fmt.Sprintf("Trip %s rated %d/5", in.TripID, in.Score), map[string]any{
		"trip_id":     in.TripID,
		"reviewer_id": in.ReviewerID,
		"score":       in.Score,
	})

	return ports.RateTripResult{
		RatingID:   ratingID,
		TripID:     in.TripID,
		ReviewerID: in.ReviewerID,
		RevieweeID: revieweeID,
		Score:      in.Score,
	}, nil
}

// GetTripRatings returns the ratings recorded for a trip, oldest first.
// A trip has at most two: one per party.
func (service *ratingService) GetTripRatings(ctx context.Context, tripID string) ([]ports.RateTripResult, error) {
	var list []*rating.Rating
	err := service.uow.WithinTx(ctx, func(txCtx context.Context) error {
		var err error
		list, err = service.ratingRepo.ListByTrip(txCtx, tripID)
		return err
	})
	if err != nil {
		return nil, err
	}

	out := make([]ports.RateTripResult, 0, len(list))
	for _, r := range list {
		out = append(out, ports.RateTripResult{
			RatingID:   r.ID,
			TripID:     r.TripID,
			ReviewerID: r.ReviewerID,
			RevieweeID: r.RevieweeID,
			Score:      r.Score,
		})
	}
	return out, nil
}
