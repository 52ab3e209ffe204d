// Package event defines the broker topology and the versioned payloads
// exchanged between services. Every payload carries a schema version and is
// validated at the consumption boundary before any state is touched.
package event

import (
	"fmt"
	"time"

	"github.com/iliyamo/cruise-reservation/internal/errs"
	"github.com/iliyamo/cruise-reservation/internal/model"
)

// SchemaVersion is stamped on every published event. Consumers reject
// payloads from a different major schema.
const SchemaVersion = 1

// Queue and exchange names. Reservation lifecycle events travel through the
// default exchange straight to their queue; payment, ticket and marketing
// events go through direct exchanges so several consumers can bind their own
// queues to the same routing key.
const (
	QueueReservationCreated = "reservation.created"
	QueueReservationClosed  = "reservation.closed"

	ExchangePayments   = "payments"
	KeyPaymentApproved = "payment.approved"
	KeyPaymentDeclined = "payment.declined"

	ExchangeTickets = "tickets"
	KeyTicketIssued = "ticket.issued"

	ExchangeMarketing = "marketing"
	KeyPromotions     = "promotions"

	// QueueDeadLetter receives deliveries nacked by any consumer so
	// integrity failures stay inspectable instead of vanishing.
	QueueDeadLetter = "saga.dead-letter"
)

// Per-consumer queues bound to the direct exchanges. The orchestrator and
// the ticket issuer each need their own copy of approved payments.
const (
	QueuePaymentApprovedOrchestrator = "payment.approved.orchestrator"
	QueuePaymentApprovedTicket       = "payment.approved.ticket"
	QueuePaymentDeclinedOrchestrator = "payment.declined.orchestrator"
	QueueTicketIssuedOrchestrator    = "ticket.issued.orchestrator"
)

// ReservationCreated is published by the orchestrator when a reservation
// passes validation and the advisory availability check. The inventory
// service decrements cabin counts when it consumes this event.
type ReservationCreated struct {
	Version       int       `json:"version"`
	ReservationID string    `json:"reservation_id"`
	ItineraryID   int64     `json:"itinerary_id"`
	Passengers    int       `json:"passengers"`
	ClientID      string    `json:"client_id"`
	TotalPrice    float64   `json:"total_price"`
	CreatedAt     time.Time `json:"created_at"`
}

// Validate checks the schema version and required fields.
func (e ReservationCreated) Validate() error {
	if e.Version != SchemaVersion {
		return fmt.Errorf("%w: unsupported reservation.created version %d", errs.ErrValidation, e.Version)
	}
	if e.ReservationID == "" || e.ItineraryID <= 0 || e.Passengers <= 0 || e.ClientID == "" {
		return fmt.Errorf("%w: incomplete reservation.created payload", errs.ErrValidation)
	}
	return nil
}

// ReservationClosed is published when a reservation leaves the pending state
// without being confirmed: cancelled by the client or declined by the
// payment system. The inventory service restores cabins from its side table
// keyed by the reservation id alone.
type ReservationClosed struct {
	Version       int                     `json:"version"`
	ReservationID string                  `json:"reservation_id"`
	Status        model.ReservationStatus `json:"status"`
	Timestamp     time.Time               `json:"timestamp"`
}

// Validate checks the schema version and that the status is terminal.
func (e ReservationClosed) Validate() error {
	if e.Version != SchemaVersion {
		return fmt.Errorf("%w: unsupported reservation.closed version %d", errs.ErrValidation, e.Version)
	}
	if e.ReservationID == "" {
		return fmt.Errorf("%w: reservation.closed without reservation_id", errs.ErrValidation)
	}
	if e.Status != model.ReservationCancelled && e.Status != model.ReservationDeclined {
		return fmt.Errorf("%w: reservation.closed with status %q", errs.ErrValidation, e.Status)
	}
	return nil
}

// PaymentOutcome is the signed settlement notification published by the
// payment gateway. Signature covers the canonical form timestamp|message and
// is hex encoded. The client identity travels as a structured field; no
// consumer parses it out of the human-readable message.
type PaymentOutcome struct {
	Version       int    `json:"version"`
	Timestamp     string `json:"timestamp"`
	Message       string `json:"message"`
	Signature     string `json:"signature"`
	TransactionID string `json:"transaction_id"`
	ReservationID string `json:"reservation_id,omitempty"`
	ClientID      string `json:"client_id"`
	ItineraryID   int64  `json:"itinerary_id"`
	Status        string `json:"status"`
}

// Validate checks the schema version, the settlement status and that the
// fields needed for verification and routing are present.
func (e PaymentOutcome) Validate() error {
	if e.Version != SchemaVersion {
		return fmt.Errorf("%w: unsupported payment outcome version %d", errs.ErrValidation, e.Version)
	}
	if e.Timestamp == "" || e.Message == "" || e.Signature == "" {
		return fmt.Errorf("%w: payment outcome missing signed fields", errs.ErrValidation)
	}
	if e.TransactionID == "" || e.ClientID == "" {
		return fmt.Errorf("%w: payment outcome missing identity fields", errs.ErrValidation)
	}
	if e.Status != string(model.TransactionApproved) && e.Status != string(model.TransactionDeclined) {
		return fmt.Errorf("%w: payment outcome with status %q", errs.ErrValidation, e.Status)
	}
	return nil
}

// TicketIssued is published by the ticket issuer after a verified approved
// payment. The orchestrator relays it to the client's status channel.
type TicketIssued struct {
	Version       int       `json:"version"`
	TransactionID string    `json:"transaction_id"`
	ClientID      string    `json:"client_id"`
	ItineraryID   int64     `json:"itinerary_id"`
	Details       string    `json:"details"`
	IssuedAt      time.Time `json:"issued_at"`
}

// Validate checks the schema version and required routing fields.
func (e TicketIssued) Validate() error {
	if e.Version != SchemaVersion {
		return fmt.Errorf("%w: unsupported ticket.issued version %d", errs.ErrValidation, e.Version)
	}
	if e.TransactionID == "" || e.ClientID == "" {
		return fmt.Errorf("%w: incomplete ticket.issued payload", errs.ErrValidation)
	}
	return nil
}

// Promotion is broadcast by the marketing publisher and fanned out by the
// orchestrator to every subscribed client, unmodified.
type Promotion struct {
	Version     int       `json:"version"`
	Destination string    `json:"destination,omitempty"`
	Message     string    `json:"message"`
	PublishedAt time.Time `json:"published_at"`
}

// Validate checks the schema version and that a message is present.
func (e Promotion) Validate() error {
	if e.Version != SchemaVersion {
		return fmt.Errorf("%w: unsupported promotion version %d", errs.ErrValidation, e.Version)
	}
	if e.Message == "" {
		return fmt.Errorf("%w: promotion without message", errs.ErrValidation)
	}
	return nil
}
