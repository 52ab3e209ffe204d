package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/iliyamo/cruise-reservation/internal/errs"
	"github.com/iliyamo/cruise-reservation/internal/inventory"
	"github.com/iliyamo/cruise-reservation/internal/model"
	"github.com/iliyamo/cruise-reservation/internal/payment"
)

// InventoryClient is the orchestrator's view of the inventory service.
type InventoryClient interface {
	Get(ctx context.Context, id int64) (model.Itinerary, error)
	Query(ctx context.Context, f inventory.Filter) ([]model.Itinerary, error)
}

// PaymentClient is the orchestrator's view of the payment gateway.
type PaymentClient interface {
	RequestLink(ctx context.Context, req payment.LinkRequest) (payment.LinkResponse, error)
}

// httpInventory talks to the inventory service over HTTP. Connection
// failures and server errors surface as errs.ErrUpstreamUnavailable so the
// HTTP layer can answer 503 instead of a silent empty result.
type httpInventory struct {
	base   string
	client *http.Client
}

// NewHTTPInventory returns an InventoryClient for the given base URL. The
// client must carry a timeout.
func NewHTTPInventory(base string, client *http.Client) InventoryClient {
	return &httpInventory{base: base, client: client}
}

func (h *httpInventory) Get(ctx context.Context, id int64) (model.Itinerary, error) {
	var it model.Itinerary
	err := h.getJSON(ctx, fmt.Sprintf("%s/itineraries/%d", h.base, id), &it)
	return it, err
}

func (h *httpInventory) Query(ctx context.Context, f inventory.Filter) ([]model.Itinerary, error) {
	q := url.Values{}
	if f.Destination != "" {
		q.Set("destination", f.Destination)
	}
	if f.Departure != "" {
		q.Set("departure", f.Departure)
	}
	if f.BoardingPort != "" {
		q.Set("boarding_port", f.BoardingPort)
	}
	endpoint := h.base + "/itineraries"
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	var items []model.Itinerary
	if err := h.getJSON(ctx, endpoint, &items); err != nil {
		return nil, err
	}
	return items, nil
}

func (h *httpInventory) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: inventory service: %v", errs.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errs.ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: inventory service answered %d", errs.ErrUpstreamUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: invalid inventory response: %v", errs.ErrUpstreamUnavailable, err)
	}
	return nil
}

// httpPayment talks to the payment gateway over HTTP.
type httpPayment struct {
	base   string
	client *http.Client
}

// NewHTTPPayment returns a PaymentClient for the given base URL.
func NewHTTPPayment(base string, client *http.Client) PaymentClient {
	return &httpPayment{base: base, client: client}
}

func (h *httpPayment) RequestLink(ctx context.Context, linkReq payment.LinkRequest) (payment.LinkResponse, error) {
	body, err := json.Marshal(linkReq)
	if err != nil {
		return payment.LinkResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.base+"/payments/request-link", bytes.NewReader(body))
	if err != nil {
		return payment.LinkResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return payment.LinkResponse{}, fmt.Errorf("%w: payment gateway: %v", errs.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return payment.LinkResponse{}, fmt.Errorf("%w: payment gateway answered %d", errs.ErrUpstreamUnavailable, resp.StatusCode)
	}
	var link payment.LinkResponse
	if err := json.NewDecoder(resp.Body).Decode(&link); err != nil {
		return payment.LinkResponse{}, fmt.Errorf("%w: invalid gateway response: %v", errs.ErrUpstreamUnavailable, err)
	}
	return link, nil
}
