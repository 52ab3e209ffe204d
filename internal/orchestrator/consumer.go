package orchestrator

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cruise-reservation/internal/broker"
	"github.com/iliyamo/cruise-reservation/internal/errs"
	"github.com/iliyamo/cruise-reservation/internal/event"
	"github.com/iliyamo/cruise-reservation/internal/metrics"
	"github.com/iliyamo/cruise-reservation/internal/model"
	"github.com/iliyamo/cruise-reservation/internal/signing"
)

// Consumer applies broker deliveries to the saga state: settlement outcomes
// flip reservations into their terminal state, tickets and promotions are
// relayed to connected clients. Every payment outcome is verified against the
// gateway's public key before any state changes.
type Consumer struct {
	key     *rsa.PublicKey
	service *Service
	store   *Store
	hub     *Hub
	subs    *SubscriberSet
	log     *logrus.Entry
}

// NewConsumer constructs a Consumer and panics on nil dependencies.
func NewConsumer(key *rsa.PublicKey, service *Service, store *Store, hub *Hub, subs *SubscriberSet, log *logrus.Entry) *Consumer {
	if key == nil || service == nil || store == nil || hub == nil || subs == nil {
		panic("nil dependency passed to NewConsumer")
	}
	return &Consumer{key: key, service: service, store: store, hub: hub, subs: subs, log: log}
}

// Bindings declares the queues the orchestrator consumes. The promotion
// queue is exclusive and server-named so each orchestrator instance gets its
// own copy of every broadcast.
func (c *Consumer) Bindings() []broker.Binding {
	return []broker.Binding{
		{
			Queue:    event.QueuePaymentApprovedOrchestrator,
			Exchange: event.ExchangePayments,
			Key:      event.KeyPaymentApproved,
			Handle:   c.HandleOutcome,
		},
		{
			Queue:    event.QueuePaymentDeclinedOrchestrator,
			Exchange: event.ExchangePayments,
			Key:      event.KeyPaymentDeclined,
			Handle:   c.HandleOutcome,
		},
		{
			Queue:    event.QueueTicketIssuedOrchestrator,
			Exchange: event.ExchangeTickets,
			Key:      event.KeyTicketIssued,
			Handle:   c.HandleTicketIssued,
		},
		{
			Exchange:  event.ExchangeMarketing,
			Key:       event.KeyPromotions,
			Exclusive: true,
			Handle:    c.HandlePromotion,
		},
	}
}

// HandleOutcome verifies and applies one settlement notification. A payload
// with a bad signature is rejected before any reservation state is touched.
func (c *Consumer) HandleOutcome(body []byte) error {
	var outcome event.PaymentOutcome
	if err := json.Unmarshal(body, &outcome); err != nil {
		return fmt.Errorf("%w: malformed payment outcome: %v", errs.ErrValidation, err)
	}
	if err := outcome.Validate(); err != nil {
		return err
	}
	if err := signing.Verify(c.key, signing.Canonical(outcome.Timestamp, outcome.Message), outcome.Signature); err != nil {
		metrics.SignatureFailures.WithLabelValues("orchestrator").Inc()
		c.log.WithFields(logrus.Fields{
			"transaction_id": outcome.TransactionID,
			"client_id":      outcome.ClientID,
		}).Warn("rejected payment outcome with invalid signature")
		return err
	}

	next := model.ReservationDeclined
	if outcome.Status == string(model.TransactionApproved) {
		next = model.ReservationConfirmed
	}

	res, ok := c.store.ByTransaction(outcome.TransactionID)
	if !ok {
		// The outcome may have raced ahead of AttachTransaction, or belong
		// to another orchestrator instance. The client still gets notified;
		// nothing here can release cabins without a reservation id.
		c.log.WithField("transaction_id", outcome.TransactionID).
			Warn("settlement outcome for unknown transaction")
		c.push(outcome.ClientID, next, outcome)
		return nil
	}

	if err := c.store.Transition(res.ID, next); err != nil {
		if errors.Is(err, errs.ErrConflict) {
			// Redelivery after the state already flipped; ack and move on.
			metrics.DuplicateDeliveries.Inc()
			return nil
		}
		return err
	}

	if next == model.ReservationDeclined {
		c.service.closeReservation(context.Background(), res.ID, model.ReservationDeclined)
	}

	c.log.WithFields(logrus.Fields{
		"reservation_id": res.ID,
		"transaction_id": outcome.TransactionID,
		"status":         next,
	}).Info("reservation finalized")
	c.push(res.ClientID, next, outcome)
	return nil
}

func (c *Consumer) push(clientID string, status model.ReservationStatus, outcome event.PaymentOutcome) {
	typ := "payment_declined"
	if status == model.ReservationConfirmed {
		typ = "payment_approved"
	}
	c.hub.Send(clientID, PushEvent{Type: typ, Data: outcome})
}

// HandleTicketIssued relays an issued ticket to the owning client's status
// channel.
func (c *Consumer) HandleTicketIssued(body []byte) error {
	var ev event.TicketIssued
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: malformed ticket.issued: %v", errs.ErrValidation, err)
	}
	if err := ev.Validate(); err != nil {
		return err
	}
	c.hub.Send(ev.ClientID, PushEvent{Type: "ticket_issued", Data: ev})
	return nil
}

// HandlePromotion fans a promotional broadcast out to every subscribed
// client, unmodified.
func (c *Consumer) HandlePromotion(body []byte) error {
	var promo event.Promotion
	if err := json.Unmarshal(body, &promo); err != nil {
		return fmt.Errorf("%w: malformed promotion: %v", errs.ErrValidation, err)
	}
	if err := promo.Validate(); err != nil {
		return err
	}
	for _, clientID := range c.subs.List() {
		c.hub.Send(clientID, PushEvent{Type: "promotion", Data: promo})
	}
	return nil
}
