package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dmitrymomot/authstarter/pkg/validator"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Data  any          `json:"data,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

type ErrorDetail struct {
	Code    string            `json:"code,omitempty"`
	Message string            `json:"message,omitempty"`
	Details map[string]string `json:"details,omitempty"`
}

type jsonResponse struct {
	status int
	body   Envelope
}

func (j jsonResponse) Render(w http.ResponseWriter, _ *http.Request) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(j.status)
	return json.NewEncoder(w).Encode(j.body)
}

func JSON(v any) Response {
	return jsonResponse{status: http.StatusOK, body: Envelope{Data: v}}
}

// JSONError maps validation failures to 422 and HTTPError to its own code;
// anything else is a 500 without details.
func JSONError(err error) Response {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make(map[string]string, len(verrs))
		for _, e := range verrs {
			details[e.Field] = e.Message
		}
		return jsonResponse{status: http.StatusUnprocessableEntity, body: Envelope{Error: &ErrorDetail{
			Code:    "validation_error",
			Message: verrs[0].Message,
			Details: details,
		}}}
	}

	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return jsonResponse{status: httpErr.Code, body: Envelope{Error: &ErrorDetail{
			Code:    httpErr.Key,
			Message: http.StatusText(httpErr.Code),
		}}}
	}

	return jsonResponse{status: http.StatusInternalServerError, body: Envelope{Error: &ErrorDetail{
		Code:    ErrInternal.Key,
		Message: http.StatusText(http.StatusInternalServerError),
	}}}
}

// Empty answers 204 No Content.
func Empty() Response {
	return ResponseFunc(func(w http.ResponseWriter, _ *http.Request) error {
		w.WriteHeader(http.StatusNoContent)
		return nil
	})
}
