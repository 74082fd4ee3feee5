package feed

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"fletea/internal/general/contracts"
	"fletea/internal/general/jwt"
	"fletea/internal/general/logger"
	"fletea/internal/general/websocket"

	amqp "github.com/rabbitmq/amqp091-go"
)

func newTestConsumer() *Consumer {
	log := logger.New("test")
	gw := websocket.NewGateway(log, jwt.NewManager("test-secret", time.Hour))
	return NewConsumer(log, nil, gw)
}

func delivery(t *testing.T, msg contracts.TripStatusMessage) amqp.Delivery {
	t.Helper()
	body, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal message: %v", err)
	}
	return amqp.Delivery{Body: body, RoutingKey: "trip.status." + msg.Status}
}

func TestHandleDeliveryMalformedPayload(t *testing.T) {
	c := newTestConsumer()
	if err := c.handleDelivery(context.Background(), amqp.Delivery{Body: []byte("{not json")}); err == nil {
		t.Fatal("malformed payload should be rejected")
	}
}

func TestHandleDeliveryMissingFields(t *testing.T) {
	c := newTestConsumer()
	if err := c.handleDelivery(context.Background(), delivery(t, contracts.TripStatusMessage{TripID: "trip-1"})); err == nil {
		t.Fatal("message without status should be rejected")
	}
	if err := c.handleDelivery(context.Background(), delivery(t, contracts.TripStatusMessage{Status: "pending"})); err == nil {
		t.Fatal("message without trip_id should be rejected")
	}
}

func TestHandleDeliveryOfflineClientsNotFatal(t *testing.T) {
	c := newTestConsumer()
	// nobody is connected; the delivery must still ack so it is not redelivered
	msg := contracts.TripStatusMessage{
		TripID:    "trip-1",
		Status:    "accepted",
		OldStatus: "pending",
		RiderID:   "rider-1",
		DriverID:  "driver-1",
		Timestamp: time.Now().UTC(),
	}
	if err := c.handleDelivery(context.Background(), delivery(t, msg)); err != nil {
		t.Fatalf("handleDelivery() error = %v", err)
	}
}

func TestHandleDeliveryPendingBroadcastsToNoDrivers(t *testing.T) {
	c := newTestConsumer()
	msg := contracts.TripStatusMessage{
		TripID:    "trip-1",
		Status:    "pending",
		RiderID:   "rider-1",
		Price:     10380,
		Timestamp: time.Now().UTC(),
	}
	if err := c.handleDelivery(context.Background(), delivery(t, msg)); err != nil {
		t.Fatalf("handleDelivery() error = %v", err)
	}
}
