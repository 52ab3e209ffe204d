// Package orchestrator drives the reservation saga: it validates booking
// requests against inventory, publishes lifecycle events, brokers payment
// links and relays verified settlement outcomes back to waiting clients.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cruise-reservation/internal/errs"
	"github.com/iliyamo/cruise-reservation/internal/event"
	"github.com/iliyamo/cruise-reservation/internal/inventory"
	"github.com/iliyamo/cruise-reservation/internal/metrics"
	"github.com/iliyamo/cruise-reservation/internal/model"
	"github.com/iliyamo/cruise-reservation/internal/payment"
)

// Publisher is the broker surface the service needs. Satisfied by
// broker.Publisher; tests substitute a recorder.
type Publisher interface {
	Publish(ctx context.Context, exchange, key string, v any) error
}

// ReserveRequest is the client's booking request.
type ReserveRequest struct {
	ItineraryID int64           `json:"itinerary_id"`
	Passengers  int             `json:"passengers"`
	ClientID    string          `json:"client_id"`
	BuyerInfo   model.BuyerInfo `json:"buyer_info"`
}

// Validate rejects incomplete requests before any state is created.
func (r ReserveRequest) Validate() error {
	if r.ItineraryID <= 0 {
		return fmt.Errorf("%w: itinerary_id must be positive", errs.ErrValidation)
	}
	if r.Passengers <= 0 {
		return fmt.Errorf("%w: passengers must be positive", errs.ErrValidation)
	}
	if r.ClientID == "" {
		return fmt.Errorf("%w: client_id is required", errs.ErrValidation)
	}
	return nil
}

// ReserveResult is handed back to the client once the saga is underway. The
// reservation stays pending until the settlement outcome arrives on the
// status channel.
type ReserveResult struct {
	ReservationID string  `json:"reservation_id"`
	TransactionID string  `json:"transaction_id"`
	PaymentLink   string  `json:"payment_link"`
	TotalPrice    float64 `json:"total_price"`
	Status        string  `json:"status"`
	StatusChannel string  `json:"status_channel"`
}

// Service owns the reservation saga. All broker and collaborator failures
// surface as sentinel errors from the errs package so the HTTP layer can map
// them without inspecting messages.
type Service struct {
	inv      InventoryClient
	pay      PaymentClient
	pub      Publisher
	store    *Store
	hub      *Hub
	subs     *SubscriberSet
	currency string
	log      *logrus.Entry
}

// NewService constructs a Service and panics on nil dependencies.
func NewService(inv InventoryClient, pay PaymentClient, pub Publisher, store *Store, hub *Hub, subs *SubscriberSet, currency string, log *logrus.Entry) *Service {
	if inv == nil || pay == nil || pub == nil || store == nil || hub == nil || subs == nil {
		panic("nil dependency passed to NewService")
	}
	return &Service{
		inv:      inv,
		pay:      pay,
		pub:      pub,
		store:    store,
		hub:      hub,
		subs:     subs,
		currency: currency,
		log:      log,
	}
}

// ListItineraries forwards a search to the inventory service.
func (s *Service) ListItineraries(ctx context.Context, f inventory.Filter) ([]model.Itinerary, error) {
	return s.inv.Query(ctx, f)
}

// CreateReservation runs the forward half of the saga: advisory availability
// check, reservation record, reservation.created event and payment link. The
// availability check is advisory only; the authoritative decrement happens
// when the inventory service consumes the event, so a concurrent burst can
// still be caught there.
func (s *Service) CreateReservation(ctx context.Context, req ReserveRequest) (ReserveResult, error) {
	if err := req.Validate(); err != nil {
		return ReserveResult{}, err
	}

	it, err := s.inv.Get(ctx, req.ItineraryID)
	if err != nil {
		return ReserveResult{}, err
	}
	if it.AvailableCabins < req.Passengers {
		return ReserveResult{}, fmt.Errorf("%w: itinerary %d has %d cabins available, %d requested",
			errs.ErrConflict, it.ID, it.AvailableCabins, req.Passengers)
	}

	res := model.Reservation{
		ID:          uuid.NewString(),
		ItineraryID: it.ID,
		Passengers:  req.Passengers,
		ClientID:    req.ClientID,
		TotalPrice:  it.Price * float64(req.Passengers),
		Status:      model.ReservationPending,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.Create(res); err != nil {
		return ReserveResult{}, err
	}

	created := event.ReservationCreated{
		Version:       event.SchemaVersion,
		ReservationID: res.ID,
		ItineraryID:   res.ItineraryID,
		Passengers:    res.Passengers,
		ClientID:      res.ClientID,
		TotalPrice:    res.TotalPrice,
		CreatedAt:     res.CreatedAt,
	}
	if err := s.pub.Publish(ctx, "", event.QueueReservationCreated, created); err != nil {
		return ReserveResult{}, fmt.Errorf("%w: broker: %v", errs.ErrUpstreamUnavailable, err)
	}
	metrics.ReservationsCreated.Inc()

	link, err := s.pay.RequestLink(ctx, payment.LinkRequest{
		ItineraryID: res.ItineraryID,
		Passengers:  res.Passengers,
		TotalPrice:  res.TotalPrice,
		BuyerInfo:   req.BuyerInfo,
		ClientID:    res.ClientID,
		Currency:    s.currency,
	})
	if err != nil {
		// The created event may already have reserved cabins; close the
		// reservation so inventory restores them.
		_ = s.store.Transition(res.ID, model.ReservationCancelled)
		s.closeReservation(ctx, res.ID, model.ReservationCancelled)
		return ReserveResult{}, err
	}

	if err := s.store.AttachTransaction(res.ID, link.TransactionID); err != nil {
		return ReserveResult{}, err
	}

	s.log.WithFields(logrus.Fields{
		"reservation_id": res.ID,
		"itinerary_id":   res.ItineraryID,
		"client_id":      res.ClientID,
		"transaction_id": link.TransactionID,
	}).Info("reservation created")

	return ReserveResult{
		ReservationID: res.ID,
		TransactionID: link.TransactionID,
		PaymentLink:   link.PaymentLink,
		TotalPrice:    res.TotalPrice,
		Status:        string(model.ReservationPending),
		StatusChannel: StatusChannelName(res.ClientID),
	}, nil
}

// CancelReservation closes a pending reservation on the client's request. A
// reservation that already reached a terminal state cannot be cancelled and
// answers with a conflict; an unknown id still publishes the closed event so
// a reservation lost from this instance's memory can be released downstream.
func (s *Service) CancelReservation(ctx context.Context, reservationID string) error {
	if reservationID == "" {
		return fmt.Errorf("%w: reservation id is required", errs.ErrValidation)
	}
	err := s.store.Transition(reservationID, model.ReservationCancelled)
	switch {
	case err == nil, errors.Is(err, errs.ErrNotFound):
	default:
		return err
	}
	s.closeReservation(ctx, reservationID, model.ReservationCancelled)

	if res, getErr := s.store.Get(reservationID); getErr == nil {
		s.hub.Send(res.ClientID, PushEvent{
			Type: "reservation_cancelled",
			Data: res,
		})
	}
	return nil
}

// closeReservation publishes reservation.closed. Publish failures are logged
// rather than surfaced; the reservation state has already moved on and the
// delivery will be retried by whoever notices the missing release.
func (s *Service) closeReservation(ctx context.Context, reservationID string, status model.ReservationStatus) {
	closed := event.ReservationClosed{
		Version:       event.SchemaVersion,
		ReservationID: reservationID,
		Status:        status,
		Timestamp:     time.Now().UTC(),
	}
	if err := s.pub.Publish(ctx, "", event.QueueReservationClosed, closed); err != nil {
		s.log.WithError(err).WithField("reservation_id", reservationID).
			Error("failed to publish reservation.closed")
		return
	}
	metrics.ReservationsClosed.WithLabelValues(string(status)).Inc()
}

// Reservation returns the current state of a reservation.
func (s *Service) Reservation(id string) (model.Reservation, error) {
	return s.store.Get(id)
}

// SubscribePromotions registers a client for promotional broadcasts.
func (s *Service) SubscribePromotions(clientID string) error {
	if clientID == "" {
		return fmt.Errorf("%w: client_id is required", errs.ErrValidation)
	}
	s.subs.Subscribe(clientID)
	return nil
}

// UnsubscribePromotions removes a client from the promotion list.
func (s *Service) UnsubscribePromotions(clientID string) error {
	if clientID == "" {
		return fmt.Errorf("%w: client_id is required", errs.ErrValidation)
	}
	if !s.subs.Unsubscribe(clientID) {
		return fmt.Errorf("%w: client %s is not subscribed", errs.ErrNotFound, clientID)
	}
	return nil
}
