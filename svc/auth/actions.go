package auth

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/dmitrymomot/authstarter/pkg/i18n"
	"github.com/dmitrymomot/authstarter/pkg/identity"
	"github.com/dmitrymomot/authstarter/pkg/logger"
	"github.com/dmitrymomot/authstarter/pkg/ratelimiter"
	"github.com/dmitrymomot/authstarter/pkg/validator"
)

// IdentityClient is the per request identity client. *identity.Client
// satisfies it.
type IdentityClient interface {
	GetUser(ctx context.Context) (*identity.User, error)
	SendOTP(ctx context.Context, req identity.OTPRequest) error
	VerifyOTP(ctx context.Context, req identity.VerifyRequest) error
	SignInWithPassword(ctx context.Context, creds identity.Credentials) error
	SignUp(ctx context.Context, req identity.SignUpRequest) (bool, error)
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	UpdatePassword(ctx context.Context, password string) error
	SignInWithOAuth(provider, redirectTo string) (string, error)
	ExchangeCodeForSession(ctx context.Context, code string) error
	SignOut(ctx context.Context) error
}

// Actions are the server side of the auth forms. Every method validates its
// input before touching the provider and returns "" on success or a message
// for the user. Expected failures are never returned as errors.
type Actions struct {
	client    IdentityClient
	settings  Settings
	locale    string
	tr        *i18n.Translator
	t         translateFunc
	limiter   ratelimiter.Limiter
	clientKey string
	log       *slog.Logger
}

// ActionsOption configures Actions.
type ActionsOption func(*Actions)

// WithActionsLocale selects the message language and the locale used in
// callback URLs.
func WithActionsLocale(locale string) ActionsOption {
	return func(a *Actions) {
		if locale != "" {
			a.locale = locale
		}
	}
}

// WithActionsTranslator replaces the embedded dictionaries.
func WithActionsTranslator(tr *i18n.Translator) ActionsOption {
	return func(a *Actions) {
		if tr != nil {
			a.tr = tr
		}
	}
}

// WithOTPLimiter rate limits code sends per client key and identifier.
func WithOTPLimiter(l ratelimiter.Limiter, clientKey string) ActionsOption {
	return func(a *Actions) {
		a.limiter = l
		a.clientKey = clientKey
	}
}

// WithActionsLogger sets the logger. A nil logger is ignored.
func WithActionsLogger(l *slog.Logger) ActionsOption {
	return func(a *Actions) {
		if l != nil {
			a.log = l
		}
	}
}

// NewActions binds the auth operations to one identity client. Messages
// default to English from the embedded dictionaries.
func NewActions(client IdentityClient, settings Settings, opts ...ActionsOption) *Actions {
	a := &Actions{
		client:   client,
		settings: settings,
		locale:   DefaultLocale,
		log:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.tr == nil {
		a.tr = mustMessages()
	}
	a.t = bind(a.tr, a.locale)
	a.log = a.log.With(logger.Component("auth.actions"))
	return a
}

func (a *Actions) SignOut(ctx context.Context) string {
	if err := a.client.SignOut(ctx); err != nil {
		return a.fail(ctx, "sign out", err)
	}
	return ""
}

// SignInWithEmail sends a magic link or a one-time code, depending on the
// configured email mode.
func (a *Actions) SignInWithEmail(ctx context.Context, email string) string {
	if errs := checkEmail(a.t, email); errs != nil {
		return firstMessage(errs)
	}
	if msg := a.throttle(ctx, email); msg != "" {
		return msg
	}
	err := a.client.SendOTP(ctx, identity.OTPRequest{
		Email:      email,
		CreateUser: a.settings.CreateUser,
		RedirectTo: a.settings.AbsoluteURL(a.locale, PathCallbackEmailSignin),
	})
	if err != nil {
		return a.fail(ctx, "send email otp", err)
	}
	return ""
}

// VerifyEmailOTP completes the email code flow for the address the code was
// sent to.
func (a *Actions) VerifyEmailOTP(ctx context.Context, email, otp string) string {
	if errs := validator.Extract(validator.Apply(append([]validator.Rule{emailRule(a.t, email)}, otpRules(a.t, otp)...)...)); errs != nil {
		return firstMessage(errs)
	}
	if err := a.client.VerifyOTP(ctx, identity.VerifyRequest{Type: identity.OTPEmail, Email: email, Token: otp}); err != nil {
		return a.fail(ctx, "verify email otp", err)
	}
	return ""
}

// SignInWithPhone sends a code over channel. An empty channel uses the
// configured one.
func (a *Actions) SignInWithPhone(ctx context.Context, phone string, channel identity.Channel) string {
	if errs := checkPhone(a.t, phone); errs != nil {
		return firstMessage(errs)
	}
	if channel == "" {
		channel = a.settings.Channel
	}
	phone = validator.NormalizePhone(phone)
	if msg := a.throttle(ctx, phone); msg != "" {
		return msg
	}
	err := a.client.SendOTP(ctx, identity.OTPRequest{
		Phone:      phone,
		Channel:    channel,
		CreateUser: a.settings.CreateUser,
	})
	if err != nil {
		return a.fail(ctx, "send phone otp", err)
	}
	return ""
}

func (a *Actions) VerifyPhoneOTP(ctx context.Context, phone, otp string) string {
	if errs := validator.Extract(validator.Apply(append([]validator.Rule{phoneRule(a.t, phone)}, otpRules(a.t, otp)...)...)); errs != nil {
		return firstMessage(errs)
	}
	req := identity.VerifyRequest{Type: identity.OTPSMS, Phone: validator.NormalizePhone(phone), Token: otp}
	if err := a.client.VerifyOTP(ctx, req); err != nil {
		return a.fail(ctx, "verify phone otp", err)
	}
	return ""
}

func (a *Actions) SignInWithPassword(ctx context.Context, email, password string) string {
	if errs := checkCredentials(a.t, email, password); errs != nil {
		return firstMessage(errs)
	}
	if err := a.client.SignInWithPassword(ctx, identity.Credentials{Email: email, Password: password}); err != nil {
		return a.fail(ctx, "password sign in", err)
	}
	return ""
}

// SignUp registers an account. The confirmation link points at the email
// sign-in callback.
func (a *Actions) SignUp(ctx context.Context, email, password string) string {
	if errs := checkCredentials(a.t, email, password); errs != nil {
		return firstMessage(errs)
	}
	pending, err := a.client.SignUp(ctx, identity.SignUpRequest{
		Email:      email,
		Password:   password,
		RedirectTo: a.settings.AbsoluteURL(a.locale, PathCallbackEmailSignin),
	})
	if err != nil {
		return a.fail(ctx, "sign up", err)
	}
	a.log.DebugContext(ctx, "account registered", slog.Bool("confirmation_pending", pending))
	return ""
}

func (a *Actions) ForgotPassword(ctx context.Context, email string) string {
	if errs := checkEmail(a.t, email); errs != nil {
		return firstMessage(errs)
	}
	if msg := a.throttle(ctx, email); msg != "" {
		return msg
	}
	if err := a.client.ResetPasswordForEmail(ctx, email, a.settings.AbsoluteURL(a.locale, PathCallbackPasswordReset)); err != nil {
		return a.fail(ctx, "reset password", err)
	}
	return ""
}

// UpdatePassword sets a new password for the signed in user.
func (a *Actions) UpdatePassword(ctx context.Context, password, confirm string) string {
	if password != confirm {
		return a.t(ErrorPasswordMismatch.Key())
	}
	if errs := validator.Extract(validator.Apply(passwordRule(a.t, password))); errs != nil {
		return firstMessage(errs)
	}
	if err := a.client.UpdatePassword(ctx, password); err != nil {
		if errors.Is(err, identity.ErrNoSession) {
			a.log.WarnContext(ctx, "password update without session")
			return a.t(ErrorPasswordUpdateFailed.Key())
		}
		return a.fail(ctx, "update password", err)
	}
	return ""
}

// SignInWithOAuth returns the provider URL to send the browser to, or a
// message when the handshake cannot start.
func (a *Actions) SignInWithOAuth(ctx context.Context, provider string) (string, string) {
	p, ok := a.provider(provider)
	if !ok {
		return "", a.t(keyUnknownProvider)
	}
	target, err := a.client.SignInWithOAuth(p.ID, a.settings.AbsoluteURL(a.locale, PathCallbackOpenID))
	if err != nil {
		return "", a.fail(ctx, "oauth sign in", err, logger.Provider(p.ID))
	}
	return target, ""
}

func (a *Actions) provider(id string) (OAuthProvider, bool) {
	if !a.settings.Methods.Has(OAuthSignin) {
		return OAuthProvider{}, false
	}
	for _, p := range a.settings.Providers {
		if p.ID == id {
			return p, true
		}
	}
	return OAuthProvider{}, false
}

// throttle consumes a token for identifier. Limiter failures let the
// request through.
func (a *Actions) throttle(ctx context.Context, identifier string) string {
	if a.limiter == nil {
		return ""
	}
	res, err := a.limiter.Allow(ctx, "otp:"+a.clientKey+":"+identifier)
	if err != nil {
		a.log.ErrorContext(ctx, "otp rate limit check failed", logger.Error(err))
		return ""
	}
	if res.Allowed() {
		return ""
	}
	seconds := int(math.Ceil(res.RetryAfter().Seconds()))
	a.log.InfoContext(ctx, "otp send throttled", slog.Int("retry_after", seconds))
	return a.t(keyTooManyRequests, "seconds", strconv.Itoa(max(seconds, 1)))
}

// fail turns an error into the message shown to the user. Provider
// rejections are shown verbatim; anything else is logged and hidden. The
// result is never empty.
func (a *Actions) fail(ctx context.Context, op string, err error, attrs ...any) string {
	if e, ok := identity.AsError(err); ok && e.Status < http.StatusInternalServerError && e.Message != "" {
		a.log.InfoContext(ctx, op+" rejected", append(attrs, logger.Error(err))...)
		return e.Message
	}
	a.log.ErrorContext(ctx, op+" failed", append(attrs, logger.Error(err))...)
	return a.t(ErrorUnexpected.Key())
}
