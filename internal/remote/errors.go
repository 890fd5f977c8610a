package remote

import (
	"errors"
	"fmt"
)

// ErrCodeTransportFailure marks any failed remote request.
const ErrCodeTransportFailure = "TRANSPORT_FAILURE"

// TransportError describes a remote request that did not succeed.
//
// Status is 0 when no HTTP response was received (dial failure, cancelled
// context, unreadable body). Reason carries the backend's error message when
// the response body had one, e.g. "Permission denied" or "EMAIL_NOT_FOUND".
type TransportError struct {
	Code   string
	Method string
	URL    string // query string stripped
	Status int
	Reason string
	Err    error
}

func (e *TransportError) Error() string {
	msg := fmt.Sprintf("%s: %s %s", e.Code, e.Method, e.URL)
	if e.Status != 0 {
		msg += fmt.Sprintf(" returned %d", e.Status)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportFailure reports whether err is (or wraps) a TransportError.
func IsTransportFailure(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// StatusCode returns the HTTP status of a wrapped TransportError, or 0.
func StatusCode(err error) int {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Status
	}
	return 0
}

// Reason returns the backend reason of a wrapped TransportError, or "".
func Reason(err error) string {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Reason
	}
	return ""
}
