package model

import "time"

// TransactionStatus is the settlement state of a payment transaction.
type TransactionStatus string

const (
	// TransactionPending – link issued, waiting for the external system's
	// webhook callback.
	TransactionPending TransactionStatus = "pending_external_confirmation"
	// TransactionApproved – settled successfully.
	TransactionApproved TransactionStatus = "approved"
	// TransactionDeclined – rejected by the external system.
	TransactionDeclined TransactionStatus = "declined"
)

// BuyerInfo is the purchaser identity forwarded to the external payment
// system together with the charge request.
type BuyerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// PaymentTransaction is created by the gateway when a payment link is
// requested and finalized exactly once by the webhook callback. Once
// finalized it is immutable; a second webhook for the same transaction is
// rejected.
type PaymentTransaction struct {
	TransactionID string            `json:"transaction_id"`
	ItineraryID   int64             `json:"itinerary_id"`
	ClientID      string            `json:"client_id"`
	Amount        float64           `json:"amount"`
	Currency      string            `json:"currency"`
	Status        TransactionStatus `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	FinalizedAt   *time.Time        `json:"finalized_at,omitempty"`
}
