// Package extpay simulates the external payment collaborator. It answers
// charge requests with a payment link and later posts the settlement
// webhook back to the gateway. The approve/decline decision sits behind the
// Decider interface so the simulation policy stays separate from the
// gateway's signing logic and can be fixed in tests.
package extpay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cruise-reservation/internal/model"
)

// Charge is the payload the gateway forwards when requesting a link. The
// simulator echoes it back through the webhook with a settled status.
type Charge struct {
	TransactionID string          `json:"transaction_id"`
	Amount        float64         `json:"amount"`
	Currency      string          `json:"currency"`
	ClientID      string          `json:"client_id"`
	ItineraryID   int64           `json:"itinerary_id"`
	Status        string          `json:"status"`
	BuyerInfo     model.BuyerInfo `json:"buyer_info"`
}

// Decider decides the settlement outcome for a charge.
type Decider interface {
	Decide(c Charge) model.TransactionStatus
}

// RandomDecider approves or declines with equal probability, mirroring the
// original simulation behaviour.
type RandomDecider struct{}

// Decide returns approved or declined at random.
func (RandomDecider) Decide(Charge) model.TransactionStatus {
	if rand.Intn(2) == 0 {
		return model.TransactionApproved
	}
	return model.TransactionDeclined
}

// FixedDecider always answers with the wrapped status. Used in tests and
// for deterministic demos.
type FixedDecider model.TransactionStatus

// Decide returns the fixed status.
func (d FixedDecider) Decide(Charge) model.TransactionStatus {
	return model.TransactionStatus(d)
}

// Simulator is the external payment system stand-in.
type Simulator struct {
	decider    Decider
	client     *http.Client
	webhookURL string
	baseURL    string
	log        *logrus.Entry
}

// NewSimulator constructs a Simulator. baseURL is used to build the payment
// links returned to the gateway.
func NewSimulator(decider Decider, client *http.Client, webhookURL, baseURL string, log *logrus.Entry) *Simulator {
	if decider == nil || client == nil {
		panic("nil dependency passed to NewSimulator")
	}
	return &Simulator{decider: decider, client: client, webhookURL: webhookURL, baseURL: baseURL, log: log}
}

// Register wires the simulator routes onto an Echo instance.
func (s *Simulator) Register(e *echo.Echo) {
	e.POST("/ext/process", s.Process)
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
}

// Process handles POST /ext/process: decide the outcome, answer with the
// payment link immediately and deliver the settlement webhook out of band.
func (s *Simulator) Process(c echo.Context) error {
	var charge Charge
	if err := c.Bind(&charge); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if charge.TransactionID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "transaction_id is required"})
	}

	charge.Status = string(s.decider.Decide(charge))
	go s.sendWebhook(charge)

	return c.JSON(http.StatusOK, echo.Map{
		"message":                 fmt.Sprintf("Payment processing initiated for transaction %s.", charge.TransactionID),
		"payment_link":            fmt.Sprintf("%s/w/%s", s.baseURL, charge.TransactionID),
		"transaction_id":          charge.TransactionID,
		"external_transaction_id": charge.TransactionID,
		"status":                  charge.Status,
	})
}

// sendWebhook posts the settled charge to the gateway's webhook endpoint,
// retrying a few times before giving up.
func (s *Simulator) sendWebhook(charge Charge) {
	body, err := json.Marshal(charge)
	if err != nil {
		s.log.WithError(err).Error("marshal webhook payload")
		return
	}
	for attempt := 1; attempt <= 3; attempt++ {
		resp, err := s.client.Post(s.webhookURL, "application/json", bytes.NewReader(body))
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode < 300 {
				s.log.WithFields(logrus.Fields{
					"transaction_id": charge.TransactionID,
					"status":         charge.Status,
				}).Info("webhook delivered")
				return
			}
			err = fmt.Errorf("webhook answered %d", resp.StatusCode)
		}
		s.log.WithError(err).WithField("attempt", attempt).Warn("webhook delivery failed")
		time.Sleep(time.Duration(attempt) * time.Second)
	}
}
