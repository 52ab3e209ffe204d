package inventory

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler exposes the catalog over HTTP. The query endpoints only read the
// store; every mutation flows through the event consumers.
type Handler struct {
	Store *Store
}

// NewHandler constructs a Handler and panics when the store is missing.
func NewHandler(store *Store) *Handler {
	if store == nil {
		panic("nil store passed to NewHandler")
	}
	return &Handler{Store: store}
}

// Register wires the inventory routes onto an Echo instance.
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/itineraries", h.List)
	e.GET("/itineraries/:id", h.Get)
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// List handles GET /itineraries. Filters arrive as query parameters:
// destination and boarding_port match case-insensitively, departure matches
// the exact ISO date. A query with no matches returns an empty list, never
// an error.
func (h *Handler) List(c echo.Context) error {
	f := Filter{
		Destination:  c.QueryParam("destination"),
		Departure:    c.QueryParam("departure"),
		BoardingPort: c.QueryParam("boarding_port"),
	}
	return c.JSON(http.StatusOK, h.Store.Query(f))
}

// Get handles GET /itineraries/:id and returns 404 for unknown ids.
func (h *Handler) Get(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid itinerary id"})
	}
	it, err := h.Store.Get(id)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "itinerary not found"})
	}
	return c.JSON(http.StatusOK, it)
}
