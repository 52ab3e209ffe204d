package model

import "time"

// Ticket is the artifact issued after an approved payment passed signature
// verification. It references the settlement message and is immutable once
// issued. The issuer deduplicates by transaction id, so redelivery of the
// same approved event never produces a second ticket.
type Ticket struct {
	TransactionID string    `json:"transaction_id"`
	ClientID      string    `json:"client_id"`
	ItineraryID   int64     `json:"itinerary_id"`
	Details       string    `json:"details"`
	IssuedAt      time.Time `json:"issued_at"`
}
