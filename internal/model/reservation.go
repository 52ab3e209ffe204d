package model

import "time"

// ReservationStatus is the lifecycle state of a reservation. Transitions are
// monotonic: a pending reservation may become confirmed, cancelled or
// declined; the three terminal states are immutable.
type ReservationStatus string

const (
	// ReservationPending – created, waiting for the payment outcome.
	ReservationPending ReservationStatus = "pending"
	// ReservationConfirmed – payment approved.
	ReservationConfirmed ReservationStatus = "confirmed"
	// ReservationCancelled – cancelled by the client before settlement.
	ReservationCancelled ReservationStatus = "cancelled"
	// ReservationDeclined – payment declined by the external system.
	ReservationDeclined ReservationStatus = "declined"
)

// Terminal reports whether the status admits no further transitions.
func (s ReservationStatus) Terminal() bool {
	return s == ReservationConfirmed || s == ReservationCancelled || s == ReservationDeclined
}

// CanTransition reports whether moving from s to next respects the monotonic
// state machine.
func (s ReservationStatus) CanTransition(next ReservationStatus) bool {
	if s != ReservationPending {
		return false
	}
	return next.Terminal()
}

// Reservation records one client's booking attempt against an itinerary.
//
// Fields:
//  ID            – collision-resistant identifier generated at creation time.
//  ItineraryID   – itinerary being booked.
//  Passengers    – number of cabins requested, one per passenger.
//  ClientID      – the originating client; carried as a structured field in
//                  every downstream event.
//  TransactionID – payment transaction attached after the gateway answered.
//  TotalPrice    – price per passenger multiplied by passenger count.
//  Status        – current lifecycle state.
//  CreatedAt     – creation timestamp.
type Reservation struct {
	ID            string            `json:"id"`
	ItineraryID   int64             `json:"itinerary_id"`
	Passengers    int               `json:"passengers"`
	ClientID      string            `json:"client_id"`
	TransactionID string            `json:"transaction_id,omitempty"`
	TotalPrice    float64           `json:"total_price"`
	Status        ReservationStatus `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
}
