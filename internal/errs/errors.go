// Package errs defines sentinel error values shared by every service in the
// system. These values let higher layers such as HTTP handlers distinguish
// between failure scenarios without inspecting error strings. For example,
// ErrNotFound maps to a 404 response, ErrConflict to 409 and
// ErrUpstreamUnavailable to 503. Consumer loops use ErrBadSignature to
// decide that a delivery must be dead-lettered rather than retried.
package errs

import "errors"

// ErrValidation is returned when a request carries missing or malformed
// fields. Handlers should translate this into an HTTP 400 response.
var ErrValidation = errors.New("validation failed")

// ErrNotFound is returned when an itinerary, reservation or subscriber does
// not exist. Handlers should translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when an operation cannot proceed because of the
// current state, such as reserving an itinerary without free cabins or
// finalizing a payment transaction twice. Handlers should translate this
// into an HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrUpstreamUnavailable is returned when a collaborator service (inventory,
// payment gateway or the external payment system) cannot be reached or
// answers with a server error. Handlers should translate this into an HTTP
// 503 response.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// ErrBadSignature is returned when a signed notification fails verification.
// Consumers must never crash on it; the delivery is dead-lettered and the
// failure is counted so integrity problems stay observable.
var ErrBadSignature = errors.New("invalid signature")
