package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func streamHandler(c echo.Context) error {
	return c.String(http.StatusOK, "stream")
}

func streamRequest(t *testing.T, issuer *TokenIssuer, clientID, token string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	target := "/events/" + clientID
	if token != "" {
		target += "?token=" + token
	}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/events/:client_id")
	c.SetParamNames("client_id")
	c.SetParamValues(clientID)

	require.NoError(t, issuer.ChannelAuth(streamHandler)(c))
	return rec
}

func TestMintAndVerify(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute)

	token, err := issuer.Mint("client-1")
	require.NoError(t, err)

	subject, err := issuer.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "client-1", subject)
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	token, err := NewTokenIssuer("secret-a", time.Minute).Mint("client-1")
	require.NoError(t, err)

	_, err = NewTokenIssuer("secret-b", time.Minute).Verify(token)
	assert.Error(t, err)
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	issuer := NewTokenIssuer("secret", -time.Minute)
	token, err := issuer.Mint("client-1")
	require.NoError(t, err)

	_, err = issuer.Verify(token)
	assert.Error(t, err)
}

func TestChannelAuth(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute)
	token, err := issuer.Mint("client-1")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, streamRequest(t, issuer, "client-1", token).Code)

	// A token minted for one client cannot open another client's stream.
	assert.Equal(t, http.StatusForbidden, streamRequest(t, issuer, "client-2", token).Code)

	assert.Equal(t, http.StatusUnauthorized, streamRequest(t, issuer, "client-1", "").Code)
	assert.Equal(t, http.StatusUnauthorized, streamRequest(t, issuer, "client-1", "garbage").Code)
}

func TestChannelAuthAcceptsBearerHeader(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute)
	token, err := issuer.Mint("client-1")
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/events/client-1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("client_id")
	c.SetParamValues("client-1")

	require.NoError(t, issuer.ChannelAuth(streamHandler)(c))
	assert.Equal(t, http.StatusOK, rec.Code)
}
