// Package metrics exposes Prometheus instrumentation for the reservation
// saga. Silent drops are the failure mode this system guards against, so
// every discarded or dead-lettered message increments a counter here.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ReservationsCreated counts reservation.created events published by
	// the orchestrator.
	ReservationsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cruise_reservations_created_total",
		Help: "Total number of reservation.created events published",
	})

	// ReservationsClosed counts reservation.closed events by terminal
	// status (cancelled or declined).
	ReservationsClosed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cruise_reservations_closed_total",
		Help: "Total number of reservation.closed events published",
	}, []string{"status"})

	// InventoryShortfalls counts reservation.created events that could not
	// be applied because fewer cabins were available than requested.
	InventoryShortfalls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cruise_inventory_shortfalls_total",
		Help: "Reservation events skipped because of insufficient cabins",
	})

	// PaymentOutcomes counts signed settlement notifications published by
	// the gateway, by status.
	PaymentOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cruise_payment_outcomes_total",
		Help: "Settlement notifications published by the payment gateway",
	}, []string{"status"})

	// SignatureFailures counts messages whose signature verification
	// failed, by consuming component.
	SignatureFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cruise_signature_failures_total",
		Help: "Messages rejected because of an invalid signature",
	}, []string{"consumer"})

	// DeadLettered counts deliveries nacked to the dead-letter queue, by
	// source queue.
	DeadLettered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cruise_dead_lettered_total",
		Help: "Deliveries routed to the dead-letter queue",
	}, []string{"queue"})

	// TicketsIssued counts tickets emitted by the issuer.
	TicketsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cruise_tickets_issued_total",
		Help: "Tickets issued after verified approved payments",
	})

	// DuplicateDeliveries counts redeliveries suppressed by idempotent
	// consumers (same transaction id seen twice).
	DuplicateDeliveries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "cruise_duplicate_deliveries_total",
		Help: "Redelivered events suppressed by deduplication",
	})
)
