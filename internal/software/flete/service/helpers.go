package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"fletea/internal/domain/trip"
	"fletea/internal/general/contracts"
	"fletea/internal/ports"
)

// generateCorrelationID creates a simple correlation ID for tracing requests.
func generateCorrelationID() string {
	var b [3]byte // 6 hex chars
	_, _ = rand.Read(b[:])
	ts := time.Now().UTC().Format("20060102T150405") // e.g., 20251028T184523
	return "req_" + ts + "_" + hex.EncodeToString(b[:])
}

// publishTripStatus sends a trip status update to the trip topic exchange using
// routing key trip.status.{status}, e.g., trip.status.accepted.
// Publishing is best-effort and always happens after the transaction commits.
func (service *tripService) publishTripStatus(ctx context.Context, msg contracts.TripStatusMessage) error {
	// construct routing key (e.g., "trip.status.accepted")
	routingKey := contracts.RouteTripStatusPrefix + strings.ToLower(msg.Status)

	// marshal and publish
	body, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := service.pub.Publish(ctx, contracts.ExchangeTripTopic, routingKey, body); err != nil {
		return err
	}

	// log successful publication
	service.logger.Info(ctx, "trip_status_published", "Published trip status to RabbitMQ", map[string]any{
		"routing_key": routingKey,
	})

	return nil
}

// toTripView projects a domain trip into the API read model.
func toTripView(t *trip.Trip) ports.TripView {
	return ports.TripView{
		TripID:             t.ID,
		RiderID:            t.RiderID,
		DriverID:           t.DriverID,
		OriginAddress:      t.OriginAddress,
		DestinationAddress: t.DestinationAddress,
		DistanceKm:         t.DistanceKm,
		VehicleType:        t.VehicleType.String(),
		Category:           t.Category,
		Services:           t.Services,
		Photos:             t.Photos,
		Price:              t.Price,
		Status:             t.Status.String(),
		LoadingPhotoURL:    t.LoadingPhotoURL,
		DeliveryPhotoURL:   t.DeliveryPhotoURL,
		LastLocation:       t.LastLocation,
		CreatedAt:          t.CreatedAt,
		UpdatedAt:          t.UpdatedAt,
	}
}

func toTripViews(trips []*trip.Trip) []ports.TripView {
	views := make([]ports.TripView, 0, len(trips))
	for _, t := range trips {
		views = append(views, toTripView(t))
	}
	return views
}
