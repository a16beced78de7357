package handler

import (
	"errors"
	"net/http"
)

var (
	ErrNilResponse         = errors.New("handler returned nil response")
	ErrBinderNotApplicable = errors.New("binder not applicable to request")
	ErrNotDataStar         = errors.New("endpoint requires a Datastar request")
)

// HTTPError carries a status code and a message key.
type HTTPError struct {
	Code int
	Key  string
}

func (e HTTPError) Error() string { return e.Key }

func NewHTTPError(code int, key string) HTTPError {
	return HTTPError{Code: code, Key: key}
}

var (
	ErrBadRequest      = HTTPError{Code: http.StatusBadRequest, Key: "bad_request"}
	ErrUnauthorized    = HTTPError{Code: http.StatusUnauthorized, Key: "unauthorized"}
	ErrForbidden       = HTTPError{Code: http.StatusForbidden, Key: "forbidden"}
	ErrNotFound        = HTTPError{Code: http.StatusNotFound, Key: "not_found"}
	ErrTooManyRequests = HTTPError{Code: http.StatusTooManyRequests, Key: "too_many_requests"}
	ErrInternal        = HTTPError{Code: http.StatusInternalServerError, Key: "internal_server_error"}
)

// Error hands err to the ErrorHandler passed to Wrap.
func Error(err error) Response {
	return ResponseFunc(func(http.ResponseWriter, *http.Request) error { return err })
}
