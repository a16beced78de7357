package auth

import "errors"

var (
	ErrUnknownMethod   = errors.New("auth: unknown sign-in method")
	ErrUnknownProvider = errors.New("auth: unknown oauth provider")
	ErrInvalidConfig   = errors.New("auth: invalid configuration")
	ErrUnknownForm     = errors.New("auth: unknown form")
)

// ErrorType is the tag carried in ?error= after a failed callback and the
// key of the matching user facing message.
type ErrorType string

const (
	ErrorInvalidEmail         ErrorType = "INVALID_EMAIL"
	ErrorInvalidPhone         ErrorType = "INVALID_PHONE"
	ErrorPasswordMismatch     ErrorType = "PASSWORD_MISMATCH"
	ErrorPasswordUpdateFailed ErrorType = "PASSWORD_UPDATE_FAILED"
	ErrorSignInFailed         ErrorType = "SIGN_IN_FAILED"
	ErrorUnexpected           ErrorType = "UNEXPECTED_ERROR"
	ErrorInvalidCredentials   ErrorType = "INVALID_CREDENTIALS"
	ErrorAuthenticationFailed ErrorType = "AUTHENTICATION_FAILED"
)

// Key is the dictionary key of the message.
func (e ErrorType) Key() string { return "errors." + string(e) }

// ParseErrorType accepts only known tags, so arbitrary query values are
// never echoed back to the page.
func ParseErrorType(s string) (ErrorType, bool) {
	switch e := ErrorType(s); e {
	case ErrorInvalidEmail, ErrorInvalidPhone, ErrorPasswordMismatch, ErrorPasswordUpdateFailed,
		ErrorSignInFailed, ErrorUnexpected, ErrorInvalidCredentials, ErrorAuthenticationFailed:
		return e, true
	}
	return "", false
}
