package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cruise-reservation/internal/metrics"
)

// Binding describes one queue a service consumes together with its handler.
// A binding with an exchange is bound to that exchange by Key; a binding
// with Exclusive set gets a server-named exclusive queue, used for the
// per-process promotion fanout.
type Binding struct {
	Queue     string
	Exchange  string
	Key       string
	Exclusive bool
	Handle    func(body []byte) error
}

type taggedDelivery struct {
	delivery amqp.Delivery
	binding  *Binding
	queue    string
}

// Consume runs the consumption loop for a service until ctx is cancelled.
// Deliveries from all bound queues are processed one at a time on a single
// goroutine, and each is acked only after its handler has applied the state
// mutation. A handler error nacks the delivery without requeueing, which
// routes it to the dead-letter queue; the loop itself never stops over a bad
// message. Connection loss triggers a reconnect with exponential backoff.
func Consume(ctx context.Context, url, name string, bindings []Binding, log *logrus.Entry) error {
	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.WithError(err).Warnf("%s: broker dial failed; retrying in %s", name, backoff)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		err = consumeLoop(ctx, conn, name, bindings, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.WithError(err).Warnf("%s: consume loop ended; reconnecting", name)
		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// forward relays one queue's deliveries into the merged channel. It returns
// when the delivery stream closes or when done is closed, so a forwarder
// never blocks on a send after the consumption loop has stopped receiving.
func forward(msgs <-chan amqp.Delivery, b *Binding, queue string, merged chan<- taggedDelivery, done <-chan struct{}) {
	for d := range msgs {
		select {
		case merged <- taggedDelivery{delivery: d, binding: b, queue: queue}:
		case <-done:
			return
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, name string, bindings []Binding, log *logrus.Entry) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	// One unacked delivery at a time keeps processing strictly sequential.
	if err := ch.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	if err := DeclareTopology(ch); err != nil {
		return fmt.Errorf("topology declare: %w", err)
	}

	merged := make(chan taggedDelivery)
	done := make(chan struct{})
	defer close(done)
	var wg sync.WaitGroup

	for i := range bindings {
		b := &bindings[i]
		queueName := b.Queue
		if b.Exclusive {
			q, err := ch.QueueDeclare("", false, true, true, false, nil)
			if err != nil {
				return fmt.Errorf("exclusive queue declare: %w", err)
			}
			queueName = q.Name
		} else {
			if _, err := ch.QueueDeclare(queueName, true, false, false, false, deadLetterArgs()); err != nil {
				return fmt.Errorf("queue declare %s: %w", queueName, err)
			}
		}
		if b.Exchange != "" {
			if err := ch.QueueBind(queueName, b.Key, b.Exchange, false, nil); err != nil {
				return fmt.Errorf("queue bind %s: %w", queueName, err)
			}
		}
		msgs, err := ch.Consume(queueName, name+"."+queueName, false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("consume %s: %w", queueName, err)
		}
		wg.Add(1)
		go func(qn string) {
			defer wg.Done()
			forward(msgs, b, qn, merged, done)
		}(queueName)
	}
	go func() {
		wg.Wait()
		close(merged)
	}()

	// The final receiver of merged is this loop. done is closed on return so
	// forwarders holding a delivery exit instead of blocking forever, which
	// would otherwise leak goroutines on every reconnect.

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case td, ok := <-merged:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := td.binding.Handle(td.delivery.Body); err != nil {
				log.WithError(err).WithField("queue", td.queue).Warnf("%s: handler rejected delivery, dead-lettering", name)
				metrics.DeadLettered.WithLabelValues(td.queue).Inc()
				_ = td.delivery.Nack(false, false)
				continue
			}
			_ = td.delivery.Ack(false)
		}
	}
}
