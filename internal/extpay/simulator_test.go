package extpay

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cruise-reservation/internal/model"
)

func testLogger() *logrus.Entry {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return logrus.NewEntry(log)
}

func postCharge(t *testing.T, sim *Simulator, body string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/ext/process", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return rec, sim.Process(e.NewContext(req, rec))
}

func TestProcessReturnsLinkAndDeliversWebhook(t *testing.T) {
	received := make(chan Charge, 1)
	webhook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var charge Charge
		require.NoError(t, json.NewDecoder(r.Body).Decode(&charge))
		received <- charge
		w.WriteHeader(http.StatusOK)
	}))
	defer webhook.Close()

	sim := NewSimulator(FixedDecider(model.TransactionApproved),
		&http.Client{Timeout: 2 * time.Second}, webhook.URL, "http://extpay.example", testLogger())

	rec, err := postCharge(t, sim, `{"transaction_id":"txn-1","amount":500,"currency":"USD","client_id":"client-1","itinerary_id":1}`)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "http://extpay.example/w/txn-1", resp["payment_link"])
	assert.Equal(t, "txn-1", resp["transaction_id"])

	select {
	case charge := <-received:
		assert.Equal(t, "txn-1", charge.TransactionID)
		assert.Equal(t, string(model.TransactionApproved), charge.Status)
		assert.Equal(t, "client-1", charge.ClientID)
	case <-time.After(3 * time.Second):
		t.Fatal("webhook was not delivered")
	}
}

func TestProcessRejectsMissingTransactionID(t *testing.T) {
	sim := NewSimulator(FixedDecider(model.TransactionDeclined),
		&http.Client{Timeout: time.Second}, "http://unused.invalid", "http://extpay.example", testLogger())

	rec, err := postCharge(t, sim, `{"amount":500}`)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFixedDecider(t *testing.T) {
	assert.Equal(t, model.TransactionApproved, FixedDecider(model.TransactionApproved).Decide(Charge{}))
	assert.Equal(t, model.TransactionDeclined, FixedDecider(model.TransactionDeclined).Decide(Charge{}))
}
