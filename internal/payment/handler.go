package payment

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iliyamo/cruise-reservation/internal/errs"
)

// Handler exposes the gateway over HTTP: the orchestrator calls
// request-link synchronously, the external payment system posts the
// settlement webhook.
type Handler struct {
	Gateway *Gateway
}

// NewHandler constructs a Handler and panics when the gateway is missing.
func NewHandler(gw *Gateway) *Handler {
	if gw == nil {
		panic("nil gateway passed to NewHandler")
	}
	return &Handler{Gateway: gw}
}

// Register wires the gateway routes onto an Echo instance.
func (h *Handler) Register(e *echo.Echo) {
	e.POST("/payments/request-link", h.RequestLink)
	e.POST("/payments/webhook", h.Webhook)
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RequestLink handles POST /payments/request-link.
func (h *Handler) RequestLink(c echo.Context) error {
	var req LinkRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	resp, err := h.Gateway.RequestLink(c.Request().Context(), req)
	if err != nil {
		return c.JSON(statusFor(err), echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, resp)
}

// Webhook handles POST /payments/webhook. A duplicate callback for an
// already finalized transaction answers 409 without re-publishing.
func (h *Handler) Webhook(c echo.Context) error {
	var p WebhookPayload
	if err := c.Bind(&p); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := h.Gateway.HandleWebhook(c.Request().Context(), p); err != nil {
		return c.JSON(statusFor(err), echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "settlement processed"})
}

// statusFor maps sentinel errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errs.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, errs.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
