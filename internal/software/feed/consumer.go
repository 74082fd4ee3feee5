// Package feed consumes trip status events from the broker and pushes them
// to connected WebSocket clients. The event payload carries the new status
// explicitly, so the feed never re-fetches the trip to learn what changed.
package feed

import (
	"context"
	"encoding/json"
	"fmt"

	"fletea/internal/domain/trip"
	"fletea/internal/general/contracts"
	"fletea/internal/general/logger"
	"fletea/internal/general/rabbitmq"
	"fletea/internal/general/websocket"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Consumer bridges the trip_feed queue to the WebSocket gateway.
type Consumer struct {
	logger  *logger.Logger
	client  *rabbitmq.Client
	gateway *websocket.Gateway
}

// NewConsumer creates a feed consumer over the given broker client and gateway.
func NewConsumer(logger *logger.Logger, client *rabbitmq.Client, gateway *websocket.Gateway) *Consumer {
	return &Consumer{logger: logger, client: client, gateway: gateway}
}

// Run consumes the trip feed queue until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context, prefetch int) error {
	return c.client.ConsumeTripFeed(ctx, "feed-service", prefetch, c.handleDelivery)
}

// handleDelivery dispatches one trip status message. Returning an error nacks
// the message; the broker layer retries it once and then drops it.
func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) error {
	var msg contracts.TripStatusMessage
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		c.logger.Error(ctx, "feed_bad_payload", "Failed to decode trip status message", err, map[string]any{
			"routing_key": d.RoutingKey,
			"size":        len(d.Body),
		})
		return fmt.Errorf("decode trip status: %w", err)
	}
	if msg.TripID == "" || msg.Status == "" {
		c.logger.Error(ctx, "feed_bad_payload", "Trip status message missing required fields", nil, map[string]any{
			"routing_key": d.RoutingKey,
		})
		return fmt.Errorf("trip status message missing trip_id or status")
	}

	ctx = c.logger.WithTripID(ctx, msg.TripID)

	update := contracts.WSTripStatusUpdate{
		Type:     "trip_status_update",
		TripID:   msg.TripID,
		Status:   msg.Status,
		DriverID: msg.DriverID,
		Envelope: contracts.Envelope{CorrelationID: msg.CorrelationID},
	}

	// the rider always hears about their own trip; not being connected is fine
	if msg.RiderID != "" {
		if err := c.gateway.NotifyRider(ctx, msg.RiderID, update); err != nil {
			c.logger.Debug(ctx, "feed_rider_offline", "Rider not reachable for status push", map[string]any{
				"rider_id": msg.RiderID,
				"status":   msg.Status,
			})
		}
	}

	// the assigned driver hears about transitions on their active trip
	if msg.DriverID != "" {
		if err := c.gateway.NotifyDriver(ctx, msg.DriverID, update); err != nil {
			c.logger.Debug(ctx, "feed_driver_offline", "Driver not reachable for status push", map[string]any{
				"driver_id": msg.DriverID,
				"status":    msg.Status,
			})
		}
	}

	// a new pending trip is offered to every connected driver
	if msg.Status == trip.StatusPending.String() {
		sent := c.gateway.BroadcastOffer(ctx, contracts.WSTripOffer{
			Type:     "trip_offer",
			TripID:   msg.TripID,
			Price:    msg.Price,
			Envelope: contracts.Envelope{CorrelationID: msg.CorrelationID},
		})
		c.logger.Info(ctx, "feed_offer_broadcast", "Broadcast trip offer to connected drivers", map[string]any{
			"drivers_reached": sent,
		})
	}

	return nil
}
