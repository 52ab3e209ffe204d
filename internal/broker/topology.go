// Package broker wraps the RabbitMQ connection handling shared by every
// service: topology declaration, a publisher safe for concurrent use, and a
// sequential consumption loop with reconnect and dead-lettering.
package broker

import (
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/cruise-reservation/internal/event"
)

// deadLetterArgs route nacked deliveries from a consumer queue to the shared
// dead-letter queue through the default exchange.
func deadLetterArgs() amqp.Table {
	return amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": event.QueueDeadLetter,
	}
}

// DeclareTopology declares every exchange and the shared queues. The
// declarations are idempotent, so each binary that touches the broker calls
// this on connect and no startup ordering is required between services.
func DeclareTopology(ch *amqp.Channel) error {
	for _, ex := range []string{event.ExchangePayments, event.ExchangeTickets, event.ExchangeMarketing} {
		if err := ch.ExchangeDeclare(ex, "direct", true, false, false, false, nil); err != nil {
			return err
		}
	}
	if _, err := ch.QueueDeclare(event.QueueDeadLetter, true, false, false, false, nil); err != nil {
		return err
	}
	for _, q := range []string{event.QueueReservationCreated, event.QueueReservationClosed} {
		if _, err := ch.QueueDeclare(q, true, false, false, false, deadLetterArgs()); err != nil {
			return err
		}
	}
	return nil
}
