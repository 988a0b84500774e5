package httpserver

import (
	"errors"

	"github.com/indigo-web/loop/stream"
	"github.com/indigo-web/loop/http/status"
)

// class tags every error the connection loop can produce against §7's
// taxonomy: critical, recoverable, timeout, disconnect, cancelled or
// defect. Only the first three ever produce a response; disconnect exits
// the loop silently and defect propagates to the caller instead of being
// caught here.
type class uint8

const (
	classCritical class = iota
	classRecoverable
	classTimeout
	classDisconnect
	classCancelled
)

// serverError pairs a taxonomy class with the status it maps to, so the
// connection loop can produce its best-effort error response without a
// type switch duplicated at every call site.
type serverError struct {
	class   class
	code    status.Code
	message string
}

func (e serverError) Error() string {
	return e.message
}

func (e serverError) Status() status.Code {
	return e.code
}

func newError(class class, code status.Code, message string) serverError {
	return serverError{class: class, code: code, message: message}
}

var (
	// ErrDisconnect marks the peer having closed the connection before a
	// complete request-head arrived; the loop exits silently.
	ErrDisconnect = newError(classDisconnect, status.CloseConnection, "peer disconnected")
	// ErrHeadersTimeout maps to 408 per §4.4 step 1.
	ErrHeadersTimeout = newError(classTimeout, status.RequestTimeout, "headers not received in time")
	// ErrHeadersTooLarge maps to 413 when maxHeadersSize is exceeded.
	ErrHeadersTooLarge = newError(classCritical, status.RequestEntityTooLarge, "request headers too large")
	// ErrMalformedRequest maps to 400.
	ErrMalformedRequest = newError(classRecoverable, status.BadRequest, "malformed request")
	// ErrUnsupportedVersion maps to 505.
	ErrUnsupportedVersion = newError(classCritical, status.HTTPVersionNotSupported, "unsupported HTTP version")
)

// Statuser is implemented by any error that carries its own mapped HTTP
// status, e.g. http/status.HTTPError and serverError.
type Statuser interface {
	Status() status.Code
}

// statusFor maps any error surfacing out of the per-connection loop to a
// response status, per §4.4 step 4 and §7: a Statuser is trusted first,
// then a handful of stream-layer sentinels are recognized, and anything
// unclassified maps to 503 as the propagation policy requires.
func statusFor(err error) status.Code {
	var s Statuser
	if errors.As(err, &s) {
		return s.Status()
	}

	switch {
	case errors.Is(err, stream.ErrProtocol):
		return status.BadRequest
	case errors.Is(err, stream.ErrLimitExceeded):
		return status.RequestEntityTooLarge
	case errors.Is(err, stream.ErrIncomplete):
		return status.BadRequest
	default:
		return status.ServiceUnavailable
	}
}

func isDisconnect(err error) bool {
	var se serverError
	if errors.As(err, &se) {
		return se.class == classDisconnect
	}

	return false
}
