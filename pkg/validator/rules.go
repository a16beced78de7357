package validator

import (
	"fmt"
	"net/mail"
	"regexp"
	"slices"
	"strings"
	"unicode/utf8"
)

var phoneRegex = regexp.MustCompile(`^\+[1-9]\d{6,14}$`)

func Required(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.TrimSpace(value) != "" },
		Error: ValidationError{Field: field, Key: "validation.required", Message: "is required"},
	}
}

// ValidEmail accepts a bare RFC 5322 address whose domain has at least one dot.
func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool {
			addr, err := mail.ParseAddress(value)
			if err != nil || addr.Address != value {
				return false
			}
			local, domain, ok := strings.Cut(addr.Address, "@")
			if !ok || local == "" {
				return false
			}
			labels := strings.Split(domain, ".")
			if len(labels) < 2 {
				return false
			}
			for _, l := range labels {
				if l == "" {
					return false
				}
			}
			return true
		},
		Error: ValidationError{Field: field, Key: "validation.email", Message: "must be a valid email address"},
	}
}

// ValidPhone accepts E.164 numbers; spaces, dashes and parentheses are ignored.
func ValidPhone(field, value string) Rule {
	return Rule{
		Check: func() bool { return phoneRegex.MatchString(NormalizePhone(value)) },
		Error: ValidationError{Field: field, Key: "validation.phone", Message: "must be a valid phone number in international format"},
	}
}

// NormalizePhone strips formatting characters from a phone number.
func NormalizePhone(value string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '-', '(', ')', '.':
			return -1
		}
		return r
	}, strings.TrimSpace(value))
}

// MinLen counts runes, not bytes.
func MinLen(field, value string, min int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) >= min },
		Error: ValidationError{
			Field:   field,
			Key:     "validation.min_length",
			Message: fmt.Sprintf("must be at least %d characters", min),
			Params:  map[string]any{"min": min},
		},
	}
}

// Len requires exactly n runes.
func Len(field, value string, n int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) == n },
		Error: ValidationError{
			Field:   field,
			Key:     "validation.length",
			Message: fmt.Sprintf("must be exactly %d characters", n),
			Params:  map[string]any{"length": n},
		},
	}
}

// Equal checks that value matches other, e.g. a password confirmation.
func Equal(field, value, other string) Rule {
	return Rule{
		Check: func() bool { return value == other },
		Error: ValidationError{Field: field, Key: "validation.mismatch", Message: "does not match"},
	}
}

func OneOf(field, value string, allowed []string) Rule {
	return Rule{
		Check: func() bool { return slices.Contains(allowed, value) },
		Error: ValidationError{
			Field:   field,
			Key:     "validation.one_of",
			Message: "must be one of: " + strings.Join(allowed, ", "),
			Params:  map[string]any{"allowed": allowed},
		},
	}
}

// WithMessage overrides the default message of r.
func WithMessage(r Rule, message string) Rule {
	r.Error.Message = message
	return r
}
