package contracts

// Exchanges
const (
	ExchangeTripTopic = "trip_topic"
)

// Queues
const (
	QueueTripFeed = "trip_feed"
)

// Routing patterns
const (
	RouteTripStatusPrefix = "trip.status." // {status}
)
