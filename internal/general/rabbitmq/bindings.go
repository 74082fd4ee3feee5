package rabbitmq

import (
	"fmt"

	"fletea/internal/general/contracts"

	amqp "github.com/rabbitmq/amqp091-go"
)

func declareTopology(ch *amqp.Channel) error {
	// 1. Exchanges
	if err := ch.ExchangeDeclare(contracts.ExchangeTripTopic, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange %s: %w", contracts.ExchangeTripTopic, err)
	}

	// 2. Queues
	if _, err := ch.QueueDeclare(contracts.QueueTripFeed, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", contracts.QueueTripFeed, err)
	}

	// 3. Bindings: the feed consumes every status change
	if err := ch.QueueBind(contracts.QueueTripFeed, contracts.RouteTripStatusPrefix+"*", contracts.ExchangeTripTopic, false, nil); err != nil {
		return fmt.Errorf("bind queue %s to %s: %w", contracts.QueueTripFeed, contracts.ExchangeTripTopic, err)
	}

	return nil
}
