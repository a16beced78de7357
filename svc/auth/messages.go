package auth

import (
	"context"
	"embed"
	"sync"

	"github.com/dmitrymomot/authstarter/pkg/i18n"
)

//go:embed locales/*.yaml
var localeFS embed.FS

// DefaultLocale is the dictionary every other locale falls back to.
const DefaultLocale = "en"

// NewTranslator loads the embedded UI dictionaries.
func NewTranslator(ctx context.Context, opts ...i18n.TranslatorOption) (*i18n.Translator, error) {
	return i18n.NewTranslator(ctx,
		i18n.NewEmbeddedFsAdapter(i18n.NewYAMLParser(), localeFS, "locales"),
		append([]i18n.TranslatorOption{i18n.WithDefaultLanguage(DefaultLocale)}, opts...)...,
	)
}

// Messages is the shared translator used when none is configured. A broken
// dictionary is a build defect, so the error is only reported to the first
// caller that checks it.
var Messages = sync.OnceValues(func() (*i18n.Translator, error) {
	return NewTranslator(context.Background())
})

// Info message keys shown after a successful action.
const (
	InfoEmailLinkSent         = "info.EMAIL_OTP_SENT"
	InfoEmailCodeSent         = "info.EMAIL_CODE_SENT"
	InfoPhoneCodeSent         = "info.PHONE_OTP_SENT"
	InfoPasswordResetLinkSent = "info.PASSWORD_RESET_LINK_SENT"
	InfoConfirmationEmailSent = "info.CONFIRMATION_EMAIL_SENT"
	InfoSignInSuccessful      = "info.SIGN_IN_SUCCESSFUL"
	InfoPasswordUpdated       = "info.PASSWORD_UPDATED"
	InfoSignedOut             = "info.SIGNED_OUT"
)

const (
	keyTooManyRequests  = "errors.TOO_MANY_REQUESTS"
	keyPasswordTooShort = "validation.password_too_short"
	keyPasswordMismatch = "validation.password_mismatch"
	keyOTPLength        = "validation.otp_length"
	keyUnknownProvider  = "validation.unknown_provider"
)

func mustMessages() *i18n.Translator {
	tr, err := Messages()
	if err != nil {
		panic(err)
	}
	return tr
}

// translateFunc is a translator bound to one locale.
type translateFunc func(key string, args ...string) string

func bind(tr *i18n.Translator, locale string) translateFunc {
	return func(key string, args ...string) string { return tr.T(locale, key, args...) }
}

// bindContext follows the locale stored in ctx.
func bindContext(ctx context.Context, tr *i18n.Translator) translateFunc {
	return func(key string, args ...string) string { return tr.Tc(ctx, key, args...) }
}
