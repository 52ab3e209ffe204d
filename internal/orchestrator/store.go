// Package orchestrator implements the client-facing saga driver: it
// validates reservation requests, initiates the saga, and relays
// asynchronous settlement status back to the originating client.
package orchestrator

import (
	"fmt"
	"sync"

	"github.com/iliyamo/cruise-reservation/internal/errs"
	"github.com/iliyamo/cruise-reservation/internal/model"
)

// Store keeps the orchestrator's in-memory reservation records, indexed by
// reservation id and by payment transaction id. It enforces the monotonic
// status machine: pending may move to any terminal state, terminal states
// are immutable.
type Store struct {
	mu    sync.Mutex
	byID  map[string]*model.Reservation
	byTxn map[string]string
}

// NewStore returns an empty reservation store.
func NewStore() *Store {
	return &Store{
		byID:  make(map[string]*model.Reservation),
		byTxn: make(map[string]string),
	}
}

// Create records a new reservation. The id must be unused.
func (s *Store) Create(r model.Reservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[r.ID]; exists {
		return fmt.Errorf("%w: reservation %s already exists", errs.ErrConflict, r.ID)
	}
	stored := r
	s.byID[r.ID] = &stored
	if r.TransactionID != "" {
		s.byTxn[r.TransactionID] = r.ID
	}
	return nil
}

// AttachTransaction links a payment transaction to a reservation so
// settlement events, which carry only the transaction id, can be routed
// back.
func (s *Store) AttachTransaction(reservationID, transactionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[reservationID]
	if !ok {
		return fmt.Errorf("%w: reservation %s", errs.ErrNotFound, reservationID)
	}
	r.TransactionID = transactionID
	s.byTxn[transactionID] = reservationID
	return nil
}

// Get returns a copy of the reservation or errs.ErrNotFound.
func (s *Store) Get(id string) (model.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok {
		return model.Reservation{}, errs.ErrNotFound
	}
	return *r, nil
}

// ByTransaction resolves a payment transaction id to its reservation.
func (s *Store) ByTransaction(transactionID string) (model.Reservation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byTxn[transactionID]
	if !ok {
		return model.Reservation{}, false
	}
	r, ok := s.byID[id]
	if !ok {
		return model.Reservation{}, false
	}
	return *r, true
}

// Transition moves a reservation to a new status, enforcing monotonicity.
// Moving an already-terminal reservation reports errs.ErrConflict.
func (s *Store) Transition(id string, next model.ReservationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("%w: reservation %s", errs.ErrNotFound, id)
	}
	if !r.Status.CanTransition(next) {
		return fmt.Errorf("%w: reservation %s is %s, cannot become %s", errs.ErrConflict, id, r.Status, next)
	}
	r.Status = next
	return nil
}
