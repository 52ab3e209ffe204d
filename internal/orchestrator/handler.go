package orchestrator

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/cruise-reservation/internal/errs"
	"github.com/iliyamo/cruise-reservation/internal/inventory"
	"github.com/iliyamo/cruise-reservation/internal/middleware"
)

// Handler exposes the orchestrator's HTTP API: itinerary search, the
// reservation lifecycle, promotion subscriptions and the per-client status
// stream.
type Handler struct {
	svc    *Service
	hub    *Hub
	tokens *middleware.TokenIssuer
}

// NewHandler constructs a Handler and panics on nil dependencies.
func NewHandler(svc *Service, hub *Hub, tokens *middleware.TokenIssuer) *Handler {
	if svc == nil || hub == nil || tokens == nil {
		panic("nil dependency passed to NewHandler")
	}
	return &Handler{svc: svc, hub: hub, tokens: tokens}
}

// Register wires the routes. The search cache and rate limiter are attached
// by the caller so tests can register bare routes.
func (h *Handler) Register(e *echo.Echo, searchMW ...echo.MiddlewareFunc) {
	e.GET("/itineraries", h.Search, searchMW...)
	e.POST("/reserve", h.Reserve)
	e.GET("/reserve/:id", h.GetReservation)
	e.DELETE("/reserve/:id", h.Cancel)
	e.POST("/promotions/subscribe", h.Subscribe)
	e.POST("/promotions/unsubscribe", h.Unsubscribe)
	e.GET("/events/:client_id", h.Stream, h.tokens.ChannelAuth)
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// Search looks up itineraries. The boarding date arrives in the DD/MM/YYYY
// form clients use and is converted to the ISO date the inventory service
// stores. An empty result answers 404 so clients can tell "no match" from an
// empty catalog page.
func (h *Handler) Search(c echo.Context) error {
	f := inventory.Filter{
		Destination:  c.QueryParam("destination"),
		BoardingPort: c.QueryParam("boarding_port"),
	}
	if raw := c.QueryParam("boarding_date"); raw != "" {
		t, err := time.Parse("02/01/2006", raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "boarding_date must be DD/MM/YYYY"})
		}
		f.Departure = t.Format("2006-01-02")
	}

	items, err := h.svc.ListItineraries(c.Request().Context(), f)
	if err != nil {
		return jsonError(c, err)
	}
	if len(items) == 0 {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "no itineraries match the given criteria"})
	}
	return c.JSON(http.StatusOK, items)
}

// Reserve starts the booking saga and answers with the payment link, the
// status channel name and a token scoped to it.
func (h *Handler) Reserve(c echo.Context) error {
	var req ReserveRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}

	result, err := h.svc.CreateReservation(c.Request().Context(), req)
	if err != nil {
		return jsonError(c, err)
	}

	token, err := h.tokens.Mint(req.ClientID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to mint channel token"})
	}
	return c.JSON(http.StatusCreated, echo.Map{
		"reservation_id": result.ReservationID,
		"transaction_id": result.TransactionID,
		"payment_link":   result.PaymentLink,
		"total_price":    result.TotalPrice,
		"status":         result.Status,
		"status_channel": result.StatusChannel,
		"channel_token":  token,
	})
}

// GetReservation returns the current saga state of one reservation.
func (h *Handler) GetReservation(c echo.Context) error {
	res, err := h.svc.Reservation(c.Param("id"))
	if err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Cancel closes a pending reservation.
func (h *Handler) Cancel(c echo.Context) error {
	if err := h.svc.CancelReservation(c.Request().Context(), c.Param("id")); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "reservation cancelled"})
}

type subscribeRequest struct {
	ClientID string `json:"client_id"`
}

// Subscribe registers a client for promotional broadcasts.
func (h *Handler) Subscribe(c echo.Context) error {
	var req subscribeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.svc.SubscribePromotions(req.ClientID); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "subscribed to promotions"})
}

// Unsubscribe removes a client from the promotion list.
func (h *Handler) Unsubscribe(c echo.Context) error {
	var req subscribeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.svc.UnsubscribePromotions(req.ClientID); err != nil {
		return jsonError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "unsubscribed from promotions"})
}

// Stream holds an SSE connection open and relays every event pushed to the
// client's status channel until the client disconnects.
func (h *Handler) Stream(c echo.Context) error {
	clientID := c.Param("client_id")
	if clientID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "client_id is required"})
	}

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	events := h.hub.Attach(clientID)
	defer h.hub.Detach(clientID, events)

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			data, err := json.Marshal(ev.Data)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

// jsonError maps the sentinel errors to HTTP statuses.
func jsonError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, errs.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, errs.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errs.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, errs.ErrUpstreamUnavailable):
		status = http.StatusServiceUnavailable
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}
