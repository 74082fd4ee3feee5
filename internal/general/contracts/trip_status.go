package contracts

import "time"

// TripStatusMessage is published by the API service on every trip status
// change. Routing key: "trip.status.{status}" on ExchangeTripTopic.
// It carries the new status explicitly so consumers never have to re-fetch
// the trip to learn what happened.
type TripStatusMessage struct {
	TripID    string    `json:"trip_id"`
	Status    string    `json:"status"` // pending|accepted|loading|in_progress|completed|cancelled
	OldStatus string    `json:"old_status,omitempty"`
	RiderID   string    `json:"rider_id"`
	DriverID  string    `json:"driver_id,omitempty"`
	Price     int64     `json:"price,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Envelope
}
