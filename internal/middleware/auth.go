// Package middleware holds the HTTP cross-cutting pieces of the
// orchestrator: channel token auth for the push stream, a Redis-backed
// response cache for itinerary searches and a fixed-window rate limiter.
package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// TokenIssuer mints and verifies the short-lived tokens that protect a
// client's status channel. The subject claim pins the token to one client id
// so a token cannot be replayed against another client's stream.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenIssuer constructs a TokenIssuer. The secret must not be empty.
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if secret == "" {
		panic("empty channel token secret")
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Mint returns a signed channel token for the given client.
func (t *TokenIssuer) Mint(clientID string) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   clientID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Verify parses a channel token and returns the client id it was minted for.
func (t *TokenIssuer) Verify(raw string) (string, error) {
	token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(tok *jwt.Token) (any, error) {
		if _, ok := tok.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", tok.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return "", fmt.Errorf("invalid channel token")
	}
	return claims.Subject, nil
}

// ChannelAuth guards the status stream endpoint. The token travels either in
// the Authorization header or, since EventSource cannot set headers, in the
// token query parameter. The token subject must match the client id in the
// route.
func (t *TokenIssuer) ChannelAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := c.QueryParam("token")
		if raw == "" {
			header := c.Request().Header.Get("Authorization")
			raw = strings.TrimPrefix(header, "Bearer ")
		}
		if raw == "" {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing channel token"})
		}
		subject, err := t.Verify(raw)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid channel token"})
		}
		if clientID := c.Param("client_id"); clientID != "" && clientID != subject {
			return c.JSON(http.StatusForbidden, echo.Map{"error": "token does not match client"})
		}
		return next(c)
	}
}
