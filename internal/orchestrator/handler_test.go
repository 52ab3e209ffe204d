package orchestrator

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/cruise-reservation/internal/middleware"
)

func newHandlerFixture(t *testing.T) (*Handler, *serviceFixture, *echo.Echo) {
	t.Helper()
	f := newServiceFixture(t, &fakePayment{})
	tokens := middleware.NewTokenIssuer("test-secret", time.Minute)
	h := NewHandler(f.svc, f.hub, tokens)
	e := echo.New()
	h.Register(e)
	return h, f, e
}

func doJSON(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestReserveEndpoint(t *testing.T) {
	_, f, e := newHandlerFixture(t)

	rec := doJSON(e, http.MethodPost, "/reserve",
		`{"itinerary_id":1,"passengers":2,"client_id":"client-1","buyer_info":{"name":"Dana Reyes","email":"dana@example.com"}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp["reservation_id"])
	assert.Equal(t, "txn-1", resp["transaction_id"])
	assert.Equal(t, "http://pay.example/w/txn-1", resp["payment_link"])
	assert.Equal(t, StatusChannelName("client-1"), resp["status_channel"])
	assert.NotEmpty(t, resp["channel_token"])

	_, ok := f.store.ByTransaction("txn-1")
	assert.True(t, ok)
}

func TestReserveEndpointErrorMapping(t *testing.T) {
	_, _, e := newHandlerFixture(t)

	// Validation failure.
	rec := doJSON(e, http.MethodPost, "/reserve", `{"itinerary_id":1,"passengers":0,"client_id":"c"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown itinerary.
	rec = doJSON(e, http.MethodPost, "/reserve", `{"itinerary_id":42,"passengers":1,"client_id":"c"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// More passengers than available cabins.
	rec = doJSON(e, http.MethodPost, "/reserve", `{"itinerary_id":1,"passengers":99,"client_id":"c"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSearchEndpoint(t *testing.T) {
	_, _, e := newHandlerFixture(t)

	rec := doJSON(e, http.MethodGet, "/itineraries?destination=Bahamas", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodGet, "/itineraries?boarding_date=31/02/2026", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelEndpoint(t *testing.T) {
	_, f, e := newHandlerFixture(t)

	rec := doJSON(e, http.MethodPost, "/reserve", `{"itinerary_id":1,"passengers":1,"client_id":"client-1"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	id := resp["reservation_id"].(string)

	rec = doJSON(e, http.MethodDelete, "/reserve/"+id, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	// A second cancel hits the terminal state.
	rec = doJSON(e, http.MethodDelete, "/reserve/"+id, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	res, err := f.store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", string(res.Status))
}

func TestPromotionEndpoints(t *testing.T) {
	_, f, e := newHandlerFixture(t)

	rec := doJSON(e, http.MethodPost, "/promotions/subscribe", `{"client_id":"client-1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, f.subs.List(), "client-1")

	rec = doJSON(e, http.MethodPost, "/promotions/unsubscribe", `{"client_id":"client-1"}`)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(e, http.MethodPost, "/promotions/unsubscribe", `{"client_id":"client-1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStreamRequiresChannelToken(t *testing.T) {
	_, _, e := newHandlerFixture(t)

	rec := doJSON(e, http.MethodGet, "/events/client-1", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
