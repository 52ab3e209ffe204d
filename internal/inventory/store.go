// Package inventory owns the itinerary catalog and its cabin-availability
// counters. The catalog is mutated exclusively by the event-consumption
// loop; the HTTP query handlers only read. A reader/writer mutex guards the
// shared maps so the two execution contexts never race.
package inventory

import (
	"fmt"
	"strings"
	"sync"

	"github.com/iliyamo/cruise-reservation/internal/errs"
	"github.com/iliyamo/cruise-reservation/internal/model"
)

// Filter restricts a catalog query. Zero-valued fields are ignored; string
// fields match case-insensitively, Departure matches the exact ISO date.
type Filter struct {
	Destination  string
	Departure    string
	BoardingPort string
}

func (f Filter) empty() bool {
	return f.Destination == "" && f.Departure == "" && f.BoardingPort == ""
}

// reservationEntry is the side table mapping a reservation id to what it
// took from the catalog. The entry must survive until the reservation
// reaches a terminal state, because cancellation and decline events carry
// only the reservation id.
type reservationEntry struct {
	itineraryID int64
	passengers  int
}

// Store is the in-memory catalog plus the reservation side table.
type Store struct {
	mu           sync.RWMutex
	itineraries  map[int64]*model.Itinerary
	order        []int64
	reservations map[string]reservationEntry
}

// NewStore builds a store from catalog entries, preserving listing order.
func NewStore(items []model.Itinerary) *Store {
	s := &Store{
		itineraries:  make(map[int64]*model.Itinerary, len(items)),
		reservations: make(map[string]reservationEntry),
	}
	for i := range items {
		it := items[i]
		s.itineraries[it.ID] = &it
		s.order = append(s.order, it.ID)
	}
	return s
}

// Get returns a copy of the itinerary or errs.ErrNotFound.
func (s *Store) Get(id int64) (model.Itinerary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.itineraries[id]
	if !ok {
		return model.Itinerary{}, errs.ErrNotFound
	}
	return *it, nil
}

// Query returns itineraries matching every supplied predicate. When no
// predicate is supplied, itineraries without available cabins are excluded
// from the listing.
func (s *Store) Query(f Filter) []model.Itinerary {
	s.mu.RLock()
	defer s.mu.RUnlock()
	results := make([]model.Itinerary, 0)
	for _, id := range s.order {
		it := s.itineraries[id]
		if f.Destination != "" && !strings.EqualFold(it.Destination, f.Destination) {
			continue
		}
		if f.BoardingPort != "" && !strings.EqualFold(it.BoardingPort, f.BoardingPort) {
			continue
		}
		if f.Departure != "" && it.Departure != f.Departure {
			continue
		}
		if f.empty() && it.AvailableCabins <= 0 {
			continue
		}
		results = append(results, *it)
	}
	return results
}

// ApplyReserved applies a reservation.created event. When enough cabins are
// free it decrements the count and records the side-table entry; otherwise
// it records nothing and reports errs.ErrConflict so the caller can log the
// shortfall. An unknown itinerary id reports errs.ErrNotFound.
func (s *Store) ApplyReserved(reservationID string, itineraryID int64, passengers int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.itineraries[itineraryID]
	if !ok {
		return fmt.Errorf("%w: itinerary %d", errs.ErrNotFound, itineraryID)
	}
	if it.AvailableCabins < passengers {
		return fmt.Errorf("%w: itinerary %d has %d cabins, %d requested",
			errs.ErrConflict, itineraryID, it.AvailableCabins, passengers)
	}
	it.AvailableCabins -= passengers
	s.reservations[reservationID] = reservationEntry{itineraryID: itineraryID, passengers: passengers}
	return nil
}

// ApplyReleased applies a reservation.closed event: the side-table entry is
// looked up by reservation id, cabins are restored capped at the total, and
// the entry is removed because the reservation is now terminal. An unknown
// reservation id is a no-op and returns false.
func (s *Store) ApplyReleased(reservationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.reservations[reservationID]
	if !ok {
		return false
	}
	delete(s.reservations, reservationID)
	it, ok := s.itineraries[entry.itineraryID]
	if !ok {
		return false
	}
	it.AvailableCabins += entry.passengers
	if it.AvailableCabins > it.TotalCabins {
		it.AvailableCabins = it.TotalCabins
	}
	return true
}
