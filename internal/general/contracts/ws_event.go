package contracts

// WSTripStatusUpdate mirrors messages pushed to rider and driver WebSockets.
type WSTripStatusUpdate struct {
	Type     string `json:"type"` // "trip_status_update"
	TripID   string `json:"trip_id"`
	Status   string `json:"status"`
	DriverID string `json:"driver_id,omitempty"`
	Envelope        // allows correlation_id reuse
}

// WSTripOffer mirrors "trip_offer" broadcast to available drivers when a
// new trip enters the pending pool.
type WSTripOffer struct {
	Type               string  `json:"type"` // "trip_offer"
	TripID             string  `json:"trip_id"`
	OriginAddress      string  `json:"origin_address"`
	DestinationAddress string  `json:"destination_address"`
	DistanceKm         float64 `json:"distance_km"`
	VehicleType        string  `json:"vehicle_type"`
	Price              int64   `json:"price"`
	Envelope
}
