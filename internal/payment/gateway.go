// Package payment implements the gateway that brokers between the
// reservation saga and the external payment system. It issues payment
// links, receives the settlement webhook, signs every outcome with its
// private key and publishes the signed notification to the payments
// exchange.
package payment

import (
	"bytes"
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cruise-reservation/internal/errs"
	"github.com/iliyamo/cruise-reservation/internal/event"
	"github.com/iliyamo/cruise-reservation/internal/metrics"
	"github.com/iliyamo/cruise-reservation/internal/model"
	"github.com/iliyamo/cruise-reservation/internal/signing"
)

// Publisher is the broker surface the gateway needs. Satisfied by
// broker.Publisher; tests substitute a recorder.
type Publisher interface {
	Publish(ctx context.Context, exchange, key string, v any) error
}

// LinkRequest is the orchestrator's synchronous request for a payment link.
type LinkRequest struct {
	ItineraryID int64           `json:"itinerary_id"`
	Passengers  int             `json:"passengers"`
	TotalPrice  float64         `json:"total_price"`
	BuyerInfo   model.BuyerInfo `json:"buyer_info"`
	ClientID    string          `json:"client_id"`
	Currency    string          `json:"currency"`
}

// Validate rejects incomplete link requests before any transaction state is
// created.
func (r LinkRequest) Validate() error {
	if r.ItineraryID <= 0 || r.Passengers <= 0 || r.TotalPrice <= 0 || r.ClientID == "" || r.Currency == "" {
		return fmt.Errorf("%w: itinerary_id, passengers, total_price, client_id and currency are required", errs.ErrValidation)
	}
	return nil
}

// LinkResponse is returned to the orchestrator once the external system
// handed back a link.
type LinkResponse struct {
	Message       string `json:"message"`
	PaymentLink   string `json:"payment_link"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

// WebhookPayload is the settlement callback posted by the external payment
// system. Status must be exactly approved or declined.
type WebhookPayload struct {
	TransactionID string          `json:"transaction_id"`
	Amount        float64         `json:"amount"`
	Currency      string          `json:"currency"`
	ClientID      string          `json:"client_id"`
	ItineraryID   int64           `json:"itinerary_id"`
	Status        string          `json:"status"`
	BuyerInfo     model.BuyerInfo `json:"buyer_info"`
}

// externalCharge is the payload forwarded to the external system when a
// link is requested.
type externalCharge struct {
	TransactionID string          `json:"transaction_id"`
	Amount        float64         `json:"amount"`
	Currency      string          `json:"currency"`
	ClientID      string          `json:"client_id"`
	ItineraryID   int64           `json:"itinerary_id"`
	Status        string          `json:"status"`
	BuyerInfo     model.BuyerInfo `json:"buyer_info"`
}

// externalResponse is what the external system answers synchronously.
type externalResponse struct {
	Message       string `json:"message"`
	PaymentLink   string `json:"payment_link"`
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
}

// Gateway holds the transaction table and the signing key. Transactions are
// created on link request and finalized exactly once by the webhook; a
// duplicate webhook for a finalized transaction is rejected with a conflict
// instead of re-publishing the outcome.
type Gateway struct {
	key         *rsa.PrivateKey
	pub         Publisher
	client      *http.Client
	externalURL string
	log         *logrus.Entry

	mu           sync.Mutex
	transactions map[string]*model.PaymentTransaction
}

// NewGateway constructs a Gateway. The HTTP client must carry a timeout so a
// stalled external system cannot pin a request forever.
func NewGateway(key *rsa.PrivateKey, pub Publisher, client *http.Client, externalURL string, log *logrus.Entry) *Gateway {
	if key == nil || pub == nil || client == nil {
		panic("nil dependency passed to NewGateway")
	}
	return &Gateway{
		key:          key,
		pub:          pub,
		client:       client,
		externalURL:  externalURL,
		log:          log,
		transactions: make(map[string]*model.PaymentTransaction),
	}
}

// RequestLink creates a pending transaction, forwards the charge to the
// external system and relays back its payment link. Collaborator failures
// surface as errs.ErrUpstreamUnavailable.
func (g *Gateway) RequestLink(ctx context.Context, req LinkRequest) (LinkResponse, error) {
	if err := req.Validate(); err != nil {
		return LinkResponse{}, err
	}

	txn := &model.PaymentTransaction{
		TransactionID: uuid.NewString(),
		ItineraryID:   req.ItineraryID,
		ClientID:      req.ClientID,
		Amount:        req.TotalPrice,
		Currency:      req.Currency,
		Status:        model.TransactionPending,
		CreatedAt:     time.Now().UTC(),
	}

	// The transaction must be visible before the charge is forwarded: the
	// external system may deliver its webhook before the link response is
	// read, and that callback has to find the pending transaction.
	g.mu.Lock()
	g.transactions[txn.TransactionID] = txn
	g.mu.Unlock()

	ext, err := g.forwardCharge(ctx, txn, req.BuyerInfo)
	if err != nil {
		g.removeIfPending(txn.TransactionID)
		return LinkResponse{}, err
	}
	if ext.PaymentLink == "" {
		g.removeIfPending(txn.TransactionID)
		return LinkResponse{}, fmt.Errorf("%w: external system returned no payment link", errs.ErrUpstreamUnavailable)
	}

	g.log.WithFields(logrus.Fields{
		"transaction_id": txn.TransactionID,
		"itinerary_id":   txn.ItineraryID,
		"client_id":      txn.ClientID,
	}).Info("payment link issued")

	return LinkResponse{
		Message:       fmt.Sprintf("Payment processing initiated for transaction %s.", txn.TransactionID),
		PaymentLink:   ext.PaymentLink,
		TransactionID: txn.TransactionID,
		Status:        string(model.TransactionPending),
	}, nil
}

// removeIfPending drops a transaction created for a link request that
// failed. A transaction the webhook already finalized is kept.
func (g *Gateway) removeIfPending(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if txn, ok := g.transactions[id]; ok && txn.Status == model.TransactionPending {
		delete(g.transactions, id)
	}
}

func (g *Gateway) forwardCharge(ctx context.Context, txn *model.PaymentTransaction, buyer model.BuyerInfo) (externalResponse, error) {
	payload := externalCharge{
		TransactionID: txn.TransactionID,
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		ClientID:      txn.ClientID,
		ItineraryID:   txn.ItineraryID,
		Status:        string(model.TransactionPending),
		BuyerInfo:     buyer,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return externalResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.externalURL+"/ext/process", bytes.NewReader(body))
	if err != nil {
		return externalResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return externalResponse{}, fmt.Errorf("%w: external payment system: %v", errs.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return externalResponse{}, fmt.Errorf("%w: external payment system answered %d", errs.ErrUpstreamUnavailable, resp.StatusCode)
	}
	var ext externalResponse
	if err := json.NewDecoder(resp.Body).Decode(&ext); err != nil {
		return externalResponse{}, fmt.Errorf("%w: invalid external response: %v", errs.ErrUpstreamUnavailable, err)
	}
	return ext, nil
}

// HandleWebhook finalizes a transaction and publishes the signed settlement
// notification to the routing key selected by status. The transaction is
// finalized exactly once; a repeated callback gets errs.ErrConflict.
func (g *Gateway) HandleWebhook(ctx context.Context, p WebhookPayload) error {
	if p.TransactionID == "" {
		return fmt.Errorf("%w: transaction_id is required", errs.ErrValidation)
	}
	status := model.TransactionStatus(p.Status)
	if status != model.TransactionApproved && status != model.TransactionDeclined {
		return fmt.Errorf("%w: status must be approved or declined, got %q", errs.ErrValidation, p.Status)
	}

	g.mu.Lock()
	txn, ok := g.transactions[p.TransactionID]
	if !ok {
		g.mu.Unlock()
		return fmt.Errorf("%w: transaction %s", errs.ErrNotFound, p.TransactionID)
	}
	if txn.Status != model.TransactionPending {
		g.mu.Unlock()
		return fmt.Errorf("%w: transaction %s already finalized as %s", errs.ErrConflict, txn.TransactionID, txn.Status)
	}
	now := time.Now().UTC()
	txn.Status = status
	txn.FinalizedAt = &now
	outcome := *txn
	g.mu.Unlock()

	return g.publishOutcome(ctx, outcome)
}

func (g *Gateway) publishOutcome(ctx context.Context, txn model.PaymentTransaction) error {
	message := fmt.Sprintf("Payment %s for itinerary %d, %s %.2f, transaction %s.",
		txn.Status, txn.ItineraryID, txn.Currency, txn.Amount, txn.TransactionID)
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	sig, err := signing.Sign(g.key, signing.Canonical(timestamp, message))
	if err != nil {
		return fmt.Errorf("sign outcome: %w", err)
	}

	routingKey := event.KeyPaymentDeclined
	if txn.Status == model.TransactionApproved {
		routingKey = event.KeyPaymentApproved
	}
	outcome := event.PaymentOutcome{
		Version:       event.SchemaVersion,
		Timestamp:     timestamp,
		Message:       message,
		Signature:     sig,
		TransactionID: txn.TransactionID,
		ClientID:      txn.ClientID,
		ItineraryID:   txn.ItineraryID,
		Status:        string(txn.Status),
	}
	if err := g.pub.Publish(ctx, event.ExchangePayments, routingKey, outcome); err != nil {
		return err
	}
	metrics.PaymentOutcomes.WithLabelValues(string(txn.Status)).Inc()
	g.log.WithFields(logrus.Fields{
		"transaction_id": txn.TransactionID,
		"status":         txn.Status,
	}).Info("settlement outcome published")
	return nil
}

// Transaction returns a copy of a stored transaction, mainly for tests and
// introspection.
func (g *Gateway) Transaction(id string) (model.PaymentTransaction, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	txn, ok := g.transactions[id]
	if !ok {
		return model.PaymentTransaction{}, false
	}
	return *txn, true
}
