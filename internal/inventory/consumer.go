package inventory

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cruise-reservation/internal/broker"
	"github.com/iliyamo/cruise-reservation/internal/errs"
	"github.com/iliyamo/cruise-reservation/internal/event"
	"github.com/iliyamo/cruise-reservation/internal/metrics"
)

// Consumer applies reservation lifecycle events to the store. Deliveries are
// acked only after the mutation landed; malformed payloads are dead-lettered
// by the broker layer when a handler returns an error.
type Consumer struct {
	store *Store
	log   *logrus.Entry
}

// NewConsumer constructs a Consumer for the given store.
func NewConsumer(store *Store, log *logrus.Entry) *Consumer {
	if store == nil {
		panic("nil store passed to NewConsumer")
	}
	return &Consumer{store: store, log: log}
}

// Bindings returns the queues the inventory service consumes.
func (c *Consumer) Bindings() []broker.Binding {
	return []broker.Binding{
		{Queue: event.QueueReservationCreated, Handle: c.HandleReservationCreated},
		{Queue: event.QueueReservationClosed, Handle: c.HandleReservationClosed},
	}
}

// HandleReservationCreated decrements cabin availability for a new
// reservation. A shortfall is logged and counted but acked: the reference
// saga emits no compensating rejection, the payment outcome decides the
// reservation's fate either way.
func (c *Consumer) HandleReservationCreated(body []byte) error {
	var ev event.ReservationCreated
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: reservation.created: %v", errs.ErrValidation, err)
	}
	if err := ev.Validate(); err != nil {
		return err
	}
	err := c.store.ApplyReserved(ev.ReservationID, ev.ItineraryID, ev.Passengers)
	switch {
	case errors.Is(err, errs.ErrConflict):
		metrics.InventoryShortfalls.Inc()
		c.log.WithFields(logrus.Fields{
			"reservation_id": ev.ReservationID,
			"itinerary_id":   ev.ItineraryID,
			"passengers":     ev.Passengers,
		}).Warn("cabin shortfall, reservation not applied")
		return nil
	case err != nil:
		return err
	}
	c.log.WithFields(logrus.Fields{
		"reservation_id": ev.ReservationID,
		"itinerary_id":   ev.ItineraryID,
		"passengers":     ev.Passengers,
	}).Info("cabins reserved")
	return nil
}

// HandleReservationClosed restores cabins for a cancelled or declined
// reservation. An unknown reservation id is a no-op, not an error: the
// cancel path is fire-and-forget and may reference ids this process never
// saw.
func (c *Consumer) HandleReservationClosed(body []byte) error {
	var ev event.ReservationClosed
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("%w: reservation.closed: %v", errs.ErrValidation, err)
	}
	if err := ev.Validate(); err != nil {
		return err
	}
	if !c.store.ApplyReleased(ev.ReservationID) {
		c.log.WithField("reservation_id", ev.ReservationID).Info("close event for unknown reservation, ignoring")
		return nil
	}
	c.log.WithFields(logrus.Fields{
		"reservation_id": ev.ReservationID,
		"status":         ev.Status,
	}).Info("cabins restored")
	return nil
}
