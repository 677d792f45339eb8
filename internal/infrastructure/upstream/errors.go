package upstream

import (
	"fmt"
	"net/http"
)

// TransportError is returned for every failed upstream call: a non-2xx
// status, a network failure, cancellation or an unreadable body.
type TransportError struct {
	// StatusCode is the HTTP status, or 0 when no response was received
	// or the response could not be used.
	StatusCode int

	// Cause is the underlying error.
	Cause error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream request failed: status %d", e.StatusCode)
	}
	if e.Cause == nil {
		return "upstream request failed"
	}
	return "upstream request failed: " + e.Cause.Error()
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

// statusError describes a non-2xx response.
type statusError struct {
	code int
}

func (e statusError) Error() string {
	return fmt.Sprintf("%d %s", e.code, http.StatusText(e.code))
}
