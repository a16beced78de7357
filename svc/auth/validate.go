package auth

import (
	"strconv"

	"github.com/dmitrymomot/authstarter/pkg/validator"
)

// Field names used for inline errors.
const (
	fieldEmail           = "email"
	fieldPhone           = "phone"
	fieldPassword        = "password"
	fieldPasswordConfirm = "passwordConfirm"
	fieldOTP             = "otp"
)

func emailRule(t translateFunc, email string) validator.Rule {
	return validator.WithMessage(validator.ValidEmail(fieldEmail, email), t(ErrorInvalidEmail.Key()))
}

func phoneRule(t translateFunc, phone string) validator.Rule {
	return validator.WithMessage(validator.ValidPhone(fieldPhone, phone), t(ErrorInvalidPhone.Key()))
}

func passwordRule(t translateFunc, password string) validator.Rule {
	return validator.WithMessage(
		validator.MinLen(fieldPassword, password, MinPasswordLength),
		t(keyPasswordTooShort, "min", strconv.Itoa(MinPasswordLength)),
	)
}

// otpRules checks the code length only; the provider decides what a valid
// code looks like.
func otpRules(t translateFunc, otp string) []validator.Rule {
	return []validator.Rule{validator.WithMessage(validator.Len(fieldOTP, otp, OTPLength), t(keyOTPLength))}
}

func checkEmail(t translateFunc, email string) validator.ValidationErrors {
	return validator.Extract(validator.Apply(emailRule(t, email)))
}

func checkPhone(t translateFunc, phone string) validator.ValidationErrors {
	return validator.Extract(validator.Apply(phoneRule(t, phone)))
}

func checkOTP(t translateFunc, otp string) validator.ValidationErrors {
	return validator.Extract(validator.Apply(otpRules(t, otp)...))
}

func checkCredentials(t translateFunc, email, password string) validator.ValidationErrors {
	return validator.Extract(validator.Apply(emailRule(t, email), passwordRule(t, password)))
}

// checkNewPassword validates the update password form. While typing
// (strict false) empty fields are not reported yet.
func checkNewPassword(t translateFunc, password, confirm string, strict bool) validator.ValidationErrors {
	var rules []validator.Rule
	if strict || password != "" {
		rules = append(rules, passwordRule(t, password))
	}
	if strict || confirm != "" {
		rules = append(rules, validator.WithMessage(
			validator.Equal(fieldPasswordConfirm, confirm, password),
			t(keyPasswordMismatch),
		))
	}
	return validator.Extract(validator.Apply(rules...))
}

// firstMessage returns the message of the first failed rule.
func firstMessage(errs validator.ValidationErrors) string {
	if len(errs) == 0 {
		return ""
	}
	return errs[0].Message
}

// fieldErrors indexes messages by field for rendering.
func fieldErrors(errs validator.ValidationErrors) map[string]string {
	if len(errs) == 0 {
		return nil
	}
	out := make(map[string]string, len(errs))
	for _, e := range errs {
		out[e.Field] = e.Message
	}
	return out
}
