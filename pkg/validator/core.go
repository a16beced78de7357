package validator

import (
	"errors"
	"strings"
)

var ErrValidationFailed = errors.New("validation failed")

// ValidationError describes one failed rule. Key is a stable, translatable
// identifier; Message is the default English text.
type ValidationError struct {
	Field   string
	Key     string
	Message string
	Params  map[string]any
}

// ValidationErrors is returned by Apply when at least one rule fails.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ErrValidationFailed.Error()
	}
	parts := make([]string, 0, len(ve))
	for _, e := range ve {
		parts = append(parts, e.Field+": "+e.Message)
	}
	return ErrValidationFailed.Error() + ": " + strings.Join(parts, "; ")
}

func (ve ValidationErrors) Is(target error) bool {
	return target == ErrValidationFailed
}

// Has reports whether field failed any rule.
func (ve ValidationErrors) Has(field string) bool {
	for _, e := range ve {
		if e.Field == field {
			return true
		}
	}
	return false
}

// First returns the first error for field.
func (ve ValidationErrors) First(field string) (ValidationError, bool) {
	for _, e := range ve {
		if e.Field == field {
			return e, true
		}
	}
	return ValidationError{}, false
}

// Rule is a deferred check with the error it produces.
type Rule struct {
	Check func() bool
	Error ValidationError
}

// Apply evaluates every rule. At most one error is kept per field, so the
// first failing rule of a field wins.
func Apply(rules ...Rule) error {
	var errs ValidationErrors
	for _, r := range rules {
		if errs.Has(r.Error.Field) {
			continue
		}
		if !r.Check() {
			errs = append(errs, r.Error)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// Extract returns the ValidationErrors inside err, or nil.
func Extract(err error) ValidationErrors {
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return ve
	}
	return nil
}
