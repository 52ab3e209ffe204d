// Package ticket consumes verified approved-payment events and emits
// ticket-issued events. Verification failures are dead-lettered, never
// silently dropped, and the issuer deduplicates by transaction id so a
// redelivered approval cannot issue a second ticket.
package ticket

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cruise-reservation/internal/broker"
	"github.com/iliyamo/cruise-reservation/internal/errs"
	"github.com/iliyamo/cruise-reservation/internal/event"
	"github.com/iliyamo/cruise-reservation/internal/metrics"
	"github.com/iliyamo/cruise-reservation/internal/signing"
)

// Publisher is the broker surface the issuer needs.
type Publisher interface {
	Publish(ctx context.Context, exchange, key string, v any) error
}

// Issuer verifies approved payments and publishes tickets.
type Issuer struct {
	key *rsa.PublicKey
	pub Publisher
	log *logrus.Entry

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewIssuer constructs an Issuer with the gateway's public key.
func NewIssuer(key *rsa.PublicKey, pub Publisher, log *logrus.Entry) *Issuer {
	if key == nil || pub == nil {
		panic("nil dependency passed to NewIssuer")
	}
	return &Issuer{key: key, pub: pub, log: log, seen: make(map[string]struct{})}
}

// Bindings returns the queue the issuer consumes: its own copy of approved
// payments bound to the payments exchange.
func (i *Issuer) Bindings() []broker.Binding {
	return []broker.Binding{{
		Queue:    event.QueuePaymentApprovedTicket,
		Exchange: event.ExchangePayments,
		Key:      event.KeyPaymentApproved,
		Handle:   i.HandleApproved,
	}}
}

// HandleApproved processes one approved-payment delivery. Returning an
// error dead-letters the delivery; duplicates are acked without effect.
func (i *Issuer) HandleApproved(body []byte) error {
	var outcome event.PaymentOutcome
	if err := json.Unmarshal(body, &outcome); err != nil {
		return fmt.Errorf("%w: payment outcome: %v", errs.ErrValidation, err)
	}
	if err := outcome.Validate(); err != nil {
		return err
	}

	if err := signing.Verify(i.key, signing.Canonical(outcome.Timestamp, outcome.Message), outcome.Signature); err != nil {
		metrics.SignatureFailures.WithLabelValues("ticket-issuer").Inc()
		i.log.WithField("transaction_id", outcome.TransactionID).Warn("approved payment failed signature verification")
		return err
	}

	i.mu.Lock()
	if _, dup := i.seen[outcome.TransactionID]; dup {
		i.mu.Unlock()
		metrics.DuplicateDeliveries.Inc()
		i.log.WithField("transaction_id", outcome.TransactionID).Info("duplicate approval, ticket already issued")
		return nil
	}
	i.seen[outcome.TransactionID] = struct{}{}
	i.mu.Unlock()

	issued := event.TicketIssued{
		Version:       event.SchemaVersion,
		TransactionID: outcome.TransactionID,
		ClientID:      outcome.ClientID,
		ItineraryID:   outcome.ItineraryID,
		Details:       outcome.Message,
		IssuedAt:      time.Now().UTC(),
	}
	if err := i.pub.Publish(context.Background(), event.ExchangeTickets, event.KeyTicketIssued, issued); err != nil {
		// Publish failed after dedup marked the transaction; unmark so a
		// redelivery can retry the whole step.
		i.mu.Lock()
		delete(i.seen, outcome.TransactionID)
		i.mu.Unlock()
		return err
	}

	metrics.TicketsIssued.Inc()
	i.log.WithFields(logrus.Fields{
		"transaction_id": outcome.TransactionID,
		"client_id":      outcome.ClientID,
	}).Info("ticket issued")
	return nil
}
