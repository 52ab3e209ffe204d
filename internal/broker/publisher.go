package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// Publisher publishes JSON events to the broker. An amqp channel must not be
// shared unsynchronized across goroutines, and both the HTTP handlers and
// the consumption loop publish, so every publish runs under the mutex. A
// closed channel is reopened transparently on the next call.
type Publisher struct {
	url string
	log *logrus.Entry

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewPublisher dials the broker, opens a channel and declares the topology.
func NewPublisher(url string, log *logrus.Entry) (*Publisher, error) {
	p := &Publisher{url: url, log: log}
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ensureLocked(); err != nil {
		return nil, err
	}
	return p, nil
}

// ensureLocked (re)establishes the connection and channel. Callers must hold
// the mutex.
func (p *Publisher) ensureLocked() error {
	if p.ch != nil && p.conn != nil && !p.conn.IsClosed() && !p.ch.IsClosed() {
		return nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := amqp.Dial(p.url)
		if err != nil {
			return fmt.Errorf("broker dial: %w", err)
		}
		p.conn = conn
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("broker channel open: %w", err)
	}
	if err := DeclareTopology(ch); err != nil {
		_ = ch.Close()
		return fmt.Errorf("broker topology declare: %w", err)
	}
	p.ch = ch
	return nil
}

// Publish marshals v as JSON and publishes it persistently. Exchange may be
// empty for default-exchange delivery straight to a queue named by key.
func (p *Publisher) Publish(ctx context.Context, exchange, key string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ensureLocked(); err != nil {
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, exchange, key, false, false, pub); err != nil {
		p.log.WithError(err).WithFields(logrus.Fields{"exchange": exchange, "key": key}).Error("publish failed")
		return fmt.Errorf("publish %s/%s: %w", exchange, key, err)
	}
	return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
