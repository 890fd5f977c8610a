package action

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse marks a successful response whose body does not have
// the expected shape. Nothing is committed.
var ErrMalformedResponse = errors.New("malformed response")

// ErrMissingID is returned by Update for a post that was never created.
var ErrMissingID = errors.New("post has no id")

// ErrCodeAuthFailure marks a rejected or failed sign-in/sign-up.
const ErrCodeAuthFailure = "AUTH_FAILURE"

// AuthError is returned by Authenticate when no session was established.
// The session store is unchanged.
type AuthError struct {
	Code    string
	Email   string
	IsLogin bool
	// Reason is the identity service's reason, e.g. "INVALID_PASSWORD".
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	op := "sign-up"
	if e.IsLogin {
		op = "sign-in"
	}
	msg := fmt.Sprintf("%s: %s for %s failed", e.Code, op, e.Email)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// IsAuthFailure reports whether err is (or wraps) an AuthError.
func IsAuthFailure(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}
