package ticket

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cruise-reservation/internal/errs"
	"github.com/iliyamo/cruise-reservation/internal/event"
	"github.com/iliyamo/cruise-reservation/internal/model"
	"github.com/iliyamo/cruise-reservation/internal/signing"
)

type recordingPublisher struct {
	failNext  bool
	published []event.TicketIssued
}

func (p *recordingPublisher) Publish(_ context.Context, exchange, key string, v any) error {
	if p.failNext {
		p.failNext = false
		return errors.New("broker unavailable")
	}
	if exchange != event.ExchangeTickets || key != event.KeyTicketIssued {
		return errors.New("unexpected routing")
	}
	p.published = append(p.published, v.(event.TicketIssued))
	return nil
}

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

type issuerFixture struct {
	issuer *Issuer
	pub    *recordingPublisher
	key    *rsa.PrivateKey
}

func newIssuerFixture(t *testing.T) *issuerFixture {
	t.Helper()
	key, err := signing.GenerateKey()
	require.NoError(t, err)
	pub := &recordingPublisher{}
	return &issuerFixture{
		issuer: NewIssuer(&key.PublicKey, pub, testLogger()),
		pub:    pub,
		key:    key,
	}
}

func (f *issuerFixture) approvedOutcome(t *testing.T, txnID string) []byte {
	t.Helper()
	message := "Payment approved for itinerary 3, USD 750.00, transaction " + txnID + "."
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)
	sig, err := signing.Sign(f.key, signing.Canonical(timestamp, message))
	require.NoError(t, err)

	body, err := json.Marshal(event.PaymentOutcome{
		Version:       event.SchemaVersion,
		Timestamp:     timestamp,
		Message:       message,
		Signature:     sig,
		TransactionID: txnID,
		ClientID:      "client-1",
		ItineraryID:   3,
		Status:        string(model.TransactionApproved),
	})
	require.NoError(t, err)
	return body
}

func TestHandleApprovedIssuesTicket(t *testing.T) {
	f := newIssuerFixture(t)

	require.NoError(t, f.issuer.HandleApproved(f.approvedOutcome(t, "txn-1")))

	require.Len(t, f.pub.published, 1)
	ticket := f.pub.published[0]
	assert.Equal(t, "txn-1", ticket.TransactionID)
	assert.Equal(t, "client-1", ticket.ClientID)
	assert.Equal(t, int64(3), ticket.ItineraryID)
	assert.Contains(t, ticket.Details, "txn-1")
	require.NoError(t, ticket.Validate())
}

func TestHandleApprovedDeduplicatesByTransaction(t *testing.T) {
	f := newIssuerFixture(t)
	body := f.approvedOutcome(t, "txn-1")

	require.NoError(t, f.issuer.HandleApproved(body))
	require.NoError(t, f.issuer.HandleApproved(body))

	assert.Len(t, f.pub.published, 1, "redelivery must not issue a second ticket")
}

func TestHandleApprovedRejectsForgedOutcome(t *testing.T) {
	f := newIssuerFixture(t)

	var outcome event.PaymentOutcome
	require.NoError(t, json.Unmarshal(f.approvedOutcome(t, "txn-1"), &outcome))
	outcome.Message = "Payment approved for itinerary 3, USD 1.00, transaction txn-1."
	forged, err := json.Marshal(outcome)
	require.NoError(t, err)

	assert.ErrorIs(t, f.issuer.HandleApproved(forged), errs.ErrBadSignature)
	assert.Empty(t, f.pub.published)
}

func TestHandleApprovedRejectsMalformedPayloads(t *testing.T) {
	f := newIssuerFixture(t)

	assert.ErrorIs(t, f.issuer.HandleApproved([]byte("not json")), errs.ErrValidation)

	missing, err := json.Marshal(event.PaymentOutcome{Version: event.SchemaVersion})
	require.NoError(t, err)
	assert.ErrorIs(t, f.issuer.HandleApproved(missing), errs.ErrValidation)
}

func TestHandleApprovedRetriesAfterPublishFailure(t *testing.T) {
	f := newIssuerFixture(t)
	body := f.approvedOutcome(t, "txn-1")

	f.pub.failNext = true
	require.Error(t, f.issuer.HandleApproved(body))

	// The dedup mark was rolled back, so a redelivery issues the ticket.
	require.NoError(t, f.issuer.HandleApproved(body))
	assert.Len(t, f.pub.published, 1)
}
