package identity

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrTransport        = errors.New("identity: transport failure")
	ErrInvalidConfig    = errors.New("identity: invalid configuration")
	ErrUnknownDriver    = errors.New("identity: unknown driver")
	ErrNoSession        = errors.New("identity: no active session")
	ErrMissingVerifier  = errors.New("identity: missing PKCE code verifier")
	ErrSessionTooLarge  = errors.New("identity: session does not fit in a cookie")
	ErrMissingRecipient = errors.New("identity: email or phone is required")
)

// Error is a rejection reported by the identity provider. Message is meant
// for end users and is shown as is.
type Error struct {
	Status  int
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("identity: %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("identity: %d: %s", e.Status, e.Message)
}

// AsError extracts a provider rejection from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsUnauthorized reports whether the provider rejected the presented token.
func IsUnauthorized(err error) bool {
	e, ok := AsError(err)
	return ok && (e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden)
}

// IsRejected reports whether the provider refused the request itself, as
// opposed to failing to serve it.
func IsRejected(err error) bool {
	e, ok := AsError(err)
	if !ok {
		return false
	}
	switch e.Status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return true
	}
	return false
}

func newError(status int, code, msg string) *Error {
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &Error{Status: status, Code: code, Message: msg}
}
