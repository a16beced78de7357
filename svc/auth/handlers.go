package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/authstarter/handler"
	"github.com/dmitrymomot/authstarter/pkg/clientip"
	"github.com/dmitrymomot/authstarter/pkg/cookie"
	"github.com/dmitrymomot/authstarter/pkg/i18n"
	"github.com/dmitrymomot/authstarter/pkg/logger"
	"github.com/dmitrymomot/authstarter/pkg/ratelimiter"
	"github.com/dmitrymomot/authstarter/pkg/validator"
)

const flashKey = "toast"

// Handler serves the auth pages, their Datastar actions and the provider
// callbacks.
type Handler struct {
	settings  Settings
	locales   i18n.Locales
	cookies   *cookie.Manager
	newClient ClientFactory
	limiter   ratelimiter.Limiter
	tr        *i18n.Translator
	log       *slog.Logger
	onError   handler.ErrorHandler[handler.Context]
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithHandlerLogger sets the logger. A nil logger is ignored.
func WithHandlerLogger(l *slog.Logger) HandlerOption {
	return func(h *Handler) {
		if l != nil {
			h.log = l
		}
	}
}

// WithTranslator replaces the embedded dictionaries.
func WithTranslator(tr *i18n.Translator) HandlerOption {
	return func(h *Handler) {
		if tr != nil {
			h.tr = tr
		}
	}
}

// WithSendLimiter throttles email, phone and reset sends.
func WithSendLimiter(l ratelimiter.Limiter) HandlerOption {
	return func(h *Handler) { h.limiter = l }
}

// NewHandler wires the auth pages and actions. Messages come from the
// embedded dictionaries unless WithTranslator is given.
func NewHandler(settings Settings, locales i18n.Locales, cookies *cookie.Manager, newClient ClientFactory, opts ...HandlerOption) *Handler {
	h := &Handler{
		settings:  settings,
		locales:   locales,
		cookies:   cookies,
		newClient: newClient,
		log:       logger.Nop(),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.tr == nil {
		h.tr = mustMessages()
	}
	h.log = h.log.With(logger.Component("auth"))
	h.onError = handler.NewErrorHandler(h.log, handler.ErrorHandlerConfig{
		ErrorPage:   ErrorPage,
		ErrorToast:  ErrorToast,
		ToastTarget: ToastsSelector,
	})
	return h
}

// Routes mounts everything on r, which is expected to be scoped to the
// locale prefix.
func (h *Handler) Routes(r chi.Router) {
	r.Get(PathRoot, h.page(h.Home))
	r.Route(PathAuth, func(r chi.Router) {
		r.Get("/", h.page(h.AuthPage))
		r.Get("/forgot-password", h.page(h.ForgotPasswordPage))
		r.Get("/update-password", h.page(h.UpdatePasswordPage))

		r.Get("/callbacks/openid", h.page(h.OpenIDCallback))
		r.Get("/callbacks/email-signin", h.page(h.EmailSigninCallback))
		r.Get("/callbacks/password-reset", h.page(h.PasswordResetCallback))

		r.Route("/actions", func(r chi.Router) {
			r.Post("/switch", h.action(h.Switch))
			r.Post("/email", h.action(h.SendEmail))
			r.Post("/email/verify", h.action(h.VerifyEmail))
			r.Post("/phone", h.action(h.SendPhone))
			r.Post("/phone/verify", h.action(h.VerifyPhone))
			r.Post("/password", h.action(h.SignInWithPassword))
			r.Post("/signup", h.action(h.SignUp))
			r.Post("/forgot-password", h.action(h.ForgotPassword))
			r.Post("/update-password", h.action(h.UpdatePassword))
			r.Post("/update-password/validate", h.action(h.ValidateUpdatePassword))
			r.Post("/oauth/{provider}", h.action(h.OAuth))
			r.Post("/signout", h.action(h.SignOut))
		})
	})
}

func (h *Handler) page(fn handler.HandlerFunc[handler.Context, struct{}]) http.HandlerFunc {
	return handler.Wrap(fn, handler.WithErrorHandler[handler.Context, struct{}](h.onError))
}

func (h *Handler) action(fn handler.HandlerFunc[handler.Context, Signals]) http.HandlerFunc {
	return handler.Wrap(fn,
		handler.WithBinders[handler.Context, Signals](handler.BindSignals),
		handler.WithErrorHandler[handler.Context, Signals](h.onError),
	)
}

func (h *Handler) locale(ctx handler.Context) string {
	return i18n.LocaleOr(ctx, h.locales.Default())
}

// t translates into the locale RedirectMiddleware stored in ctx.
func (h *Handler) t(ctx handler.Context) translateFunc {
	return bindContext(ctx, h.tr)
}

func (h *Handler) path(ctx handler.Context, p string) string {
	return i18n.PrefixPath(h.locale(ctx), p)
}

// root is the landing page of the current locale.
func (h *Handler) root(ctx handler.Context) string {
	return i18n.LocalizedPath(h.locale(ctx), PathRoot)
}

func (h *Handler) client(ctx handler.Context) (IdentityClient, error) {
	if c, ok := ClientFromContext(ctx); ok {
		return c, nil
	}
	return h.newClient(cookie.NewJar(ctx.ResponseWriter(), ctx.Request()))
}

func (h *Handler) actions(ctx handler.Context) (*Actions, error) {
	client, err := h.client(ctx)
	if err != nil {
		return nil, err
	}
	return NewActions(client, h.settings,
		WithActionsLocale(h.locale(ctx)),
		WithActionsTranslator(h.tr),
		WithOTPLimiter(h.limiter, clientip.FromRequest(ctx.Request())),
		WithActionsLogger(h.log),
	), nil
}

func (h *Handler) card(ctx handler.Context, f Form, sig Signals) CardData {
	return CardData{
		Locale:        h.locale(ctx),
		Form:          f,
		Links:         Visibility(f, h.settings.Methods),
		EmailMode:     h.settings.EmailMode,
		Channel:       h.settings.Channel,
		Providers:     h.settings.Providers,
		Email:         sig.Email,
		Phone:         sig.Phone,
		OTPSent:       sig.OTPSent,
		OTPIdentifier: sig.OTPIdentifier,
		OAuthError:    sig.OAuthError,
		t:             h.t(ctx),
	}
}

// flash pops the toast queued before the last redirect.
func (h *Handler) flash(ctx handler.Context) []Toast {
	var t Toast
	if err := h.cookies.GetFlash(ctx.ResponseWriter(), ctx.Request(), flashKey, &t); err != nil || t.Message == "" {
		return nil
	}
	return []Toast{t}
}

// done queues a success toast and navigates. The flash cookie is written
// before the redirect response starts.
func (h *Handler) done(ctx handler.Context, infoKey, target string) handler.Response {
	msg := h.t(ctx)(infoKey)
	if err := h.cookies.SetFlash(ctx.ResponseWriter(), flashKey, Toast{Message: msg, Level: toastLevelSuccess}); err != nil {
		h.log.WarnContext(ctx, "set flash", logger.Error(err))
	}
	return handler.Redirect(target)
}

func toastStream(msg, level string) *handler.Stream {
	return handler.NewStream().Element(ToastView(Toast{Message: msg, Level: level}),
		handler.WithTarget(ToastsSelector),
		handler.WithPatchMode(handler.PatchAppend),
	)
}

func errorToast(msg string) handler.Response { return toastStream(msg, toastLevelError) }

func cardStream(d CardData) *handler.Stream {
	return handler.NewStream().Element(Card(d), handler.WithTarget("#"+CardID))
}

// invalid re-renders the card with inline field errors.
func invalid(d CardData, errs validator.ValidationErrors) handler.Response {
	d.Errors = fieldErrors(errs)
	return cardStream(d)
}

// Home is a minimal landing page showing the session state.
func (h *Handler) Home(ctx handler.Context, _ struct{}) handler.Response {
	return handler.Templ(HomePage(HomeData{
		Locale: h.locale(ctx),
		User:   GetUserFromContext(ctx),
		Toasts: h.flash(ctx),
		t:      h.t(ctx),
	}))
}

// AuthPage renders the initial form. A known ?error= tag is shown as a
// notification.
func (h *Handler) AuthPage(ctx handler.Context, _ struct{}) handler.Response {
	if GetUserFromContext(ctx) != nil {
		return handler.Redirect(h.root(ctx))
	}
	return h.authPage(ctx, InitialForm(h.settings.Methods))
}

func (h *Handler) ForgotPasswordPage(ctx handler.Context, _ struct{}) handler.Response {
	if !h.settings.Methods.Has(PasswordSignin) {
		return handler.Redirect(h.path(ctx, PathAuth))
	}
	return h.authPage(ctx, FormForgotPassword)
}

func (h *Handler) authPage(ctx handler.Context, f Form) handler.Response {
	toasts := h.flash(ctx)
	if e, ok := ParseErrorType(ctx.Request().URL.Query().Get("error")); ok {
		toasts = append(toasts, Toast{Message: h.t(ctx)(e.Key()), Level: toastLevelError})
	}
	return handler.Templ(Page(PageData{Card: h.card(ctx, f, Signals{}), Toasts: toasts}))
}

// UpdatePasswordPage is reached from the password reset callback, which
// leaves a session behind.
func (h *Handler) UpdatePasswordPage(ctx handler.Context, _ struct{}) handler.Response {
	if GetUserFromContext(ctx) == nil {
		return handler.Redirect(h.path(ctx, PathAuth))
	}
	return handler.Templ(UpdatePasswordPage(UpdatePasswordData{
		Locale: h.locale(ctx),
		Toasts: h.flash(ctx),
		t:      h.t(ctx),
	}))
}

// Switch moves the card to another form when the transition is offered.
func (h *Handler) Switch(ctx handler.Context, sig Signals) handler.Response {
	from, err := ParseForm(sig.Form)
	if err != nil {
		from = InitialForm(h.settings.Methods)
	}
	to, err := Transition(from, Trigger(ctx.Request().URL.Query().Get("to")), h.settings.Methods)
	if err != nil {
		h.log.DebugContext(ctx, "form switch rejected", logger.Form(from.String()), logger.Error(err))
		return handler.Error(handler.ErrBadRequest)
	}

	sig.OTPSent, sig.OTPIdentifier, sig.OAuthError = false, "", ""
	return handler.NewStream().
		Signals(formPatch{Form: to.String()}).
		Element(Card(h.card(ctx, to, sig)), handler.WithTarget("#"+CardID))
}

func (h *Handler) SendEmail(ctx handler.Context, sig Signals) handler.Response {
	t := h.t(ctx)
	d := h.card(ctx, FormEmailSignin, sig)
	if errs := checkEmail(t, sig.Email); errs != nil {
		return invalid(d, errs)
	}
	a, err := h.actions(ctx)
	if err != nil {
		return handler.Error(err)
	}
	if msg := a.SignInWithEmail(ctx, sig.Email); msg != "" {
		return errorToast(msg)
	}

	if h.settings.EmailMode == EmailModeMagicLink {
		return cardStream(d).Element(ToastView(Toast{Message: t(InfoEmailLinkSent), Level: toastLevelInfo}),
			handler.WithTarget(ToastsSelector), handler.WithPatchMode(handler.PatchAppend))
	}
	return h.codeSent(d, sig.Email, t(InfoEmailCodeSent))
}

// codeSent freezes identifier as the target of the verification step.
func (h *Handler) codeSent(d CardData, identifier, msg string) handler.Response {
	d.OTPSent, d.OTPIdentifier = true, identifier
	return handler.NewStream().
		Signals(otpSentPatch{OTPSent: true, OTPIdentifier: identifier}).
		Element(Card(d), handler.WithTarget("#"+CardID)).
		Element(ToastView(Toast{Message: msg, Level: toastLevelInfo}),
			handler.WithTarget(ToastsSelector), handler.WithPatchMode(handler.PatchAppend))
}

func (h *Handler) VerifyEmail(ctx handler.Context, sig Signals) handler.Response {
	return h.verify(ctx, FormEmailSignin, sig, func(a *Actions) string {
		return a.VerifyEmailOTP(ctx, sig.OTPIdentifier, sig.OTP)
	})
}

func (h *Handler) SendPhone(ctx handler.Context, sig Signals) handler.Response {
	t := h.t(ctx)
	d := h.card(ctx, FormPhoneSignin, sig)
	if errs := checkPhone(t, sig.Phone); errs != nil {
		return invalid(d, errs)
	}
	a, err := h.actions(ctx)
	if err != nil {
		return handler.Error(err)
	}
	if msg := a.SignInWithPhone(ctx, sig.Phone, h.settings.Channel); msg != "" {
		return errorToast(msg)
	}
	return h.codeSent(d, validator.NormalizePhone(sig.Phone), t(InfoPhoneCodeSent))
}

func (h *Handler) VerifyPhone(ctx handler.Context, sig Signals) handler.Response {
	return h.verify(ctx, FormPhoneSignin, sig, func(a *Actions) string {
		return a.VerifyPhoneOTP(ctx, sig.OTPIdentifier, sig.OTP)
	})
}

func (h *Handler) verify(ctx handler.Context, f Form, sig Signals, call func(*Actions) string) handler.Response {
	t := h.t(ctx)
	if errs := checkOTP(t, sig.OTP); errs != nil {
		return invalid(h.card(ctx, f, sig), errs)
	}
	a, err := h.actions(ctx)
	if err != nil {
		return handler.Error(err)
	}
	if msg := call(a); msg != "" {
		return errorToast(msg)
	}
	return h.done(ctx, InfoSignInSuccessful, h.root(ctx))
}

func (h *Handler) SignInWithPassword(ctx handler.Context, sig Signals) handler.Response {
	t := h.t(ctx)
	if errs := checkCredentials(t, sig.Email, sig.Password); errs != nil {
		return invalid(h.card(ctx, FormPasswordSignin, sig), errs)
	}
	a, err := h.actions(ctx)
	if err != nil {
		return handler.Error(err)
	}
	if msg := a.SignInWithPassword(ctx, sig.Email, sig.Password); msg != "" {
		return errorToast(msg)
	}
	return h.done(ctx, InfoSignInSuccessful, h.root(ctx))
}

func (h *Handler) SignUp(ctx handler.Context, sig Signals) handler.Response {
	t := h.t(ctx)
	if errs := checkCredentials(t, sig.Email, sig.Password); errs != nil {
		return invalid(h.card(ctx, FormSignup, sig), errs)
	}
	a, err := h.actions(ctx)
	if err != nil {
		return handler.Error(err)
	}
	if msg := a.SignUp(ctx, sig.Email, sig.Password); msg != "" {
		return errorToast(msg)
	}
	return h.done(ctx, InfoConfirmationEmailSent, h.root(ctx))
}

func (h *Handler) ForgotPassword(ctx handler.Context, sig Signals) handler.Response {
	t := h.t(ctx)
	if errs := checkEmail(t, sig.Email); errs != nil {
		return invalid(h.card(ctx, FormForgotPassword, sig), errs)
	}
	a, err := h.actions(ctx)
	if err != nil {
		return handler.Error(err)
	}
	if msg := a.ForgotPassword(ctx, sig.Email); msg != "" {
		return errorToast(msg)
	}
	return h.done(ctx, InfoPasswordResetLinkSent, h.root(ctx))
}

func (h *Handler) updatePasswordData(ctx handler.Context, sig Signals, strict bool) UpdatePasswordData {
	t := h.t(ctx)
	return UpdatePasswordData{
		Locale:          h.locale(ctx),
		Password:        sig.Password,
		PasswordConfirm: sig.PasswordConfirm,
		Errors:          fieldErrors(checkNewPassword(t, sig.Password, sig.PasswordConfirm, strict)),
		t:               t,
	}
}

// ValidateUpdatePassword re-renders the form while the user types.
func (h *Handler) ValidateUpdatePassword(ctx handler.Context, sig Signals) handler.Response {
	return handler.NewStream().Element(UpdatePasswordCard(h.updatePasswordData(ctx, sig, false)),
		handler.WithTarget("#"+UpdatePasswordID))
}

func (h *Handler) UpdatePassword(ctx handler.Context, sig Signals) handler.Response {
	d := h.updatePasswordData(ctx, sig, true)
	if len(d.Errors) > 0 {
		return handler.NewStream().Element(UpdatePasswordCard(d), handler.WithTarget("#"+UpdatePasswordID))
	}
	a, err := h.actions(ctx)
	if err != nil {
		return handler.Error(err)
	}
	if msg := a.UpdatePassword(ctx, sig.Password, sig.PasswordConfirm); msg != "" {
		return errorToast(msg)
	}
	return h.done(ctx, InfoPasswordUpdated, h.root(ctx))
}

// OAuth starts the provider handshake. Failures stay inside the OAuth
// block instead of raising a toast.
func (h *Handler) OAuth(ctx handler.Context, _ Signals) handler.Response {
	provider := chi.URLParam(ctx.Request(), "provider")
	a, err := h.actions(ctx)
	if err != nil {
		return handler.Error(err)
	}
	target, msg := a.SignInWithOAuth(ctx, provider)
	if msg != "" {
		return handler.NewStream().Signals(oauthErrorPatch{OAuthError: msg})
	}
	return handler.NewStream().Signals(oauthErrorPatch{}).Redirect(target)
}

func (h *Handler) SignOut(ctx handler.Context, _ Signals) handler.Response {
	a, err := h.actions(ctx)
	if err != nil {
		return handler.Error(err)
	}
	if msg := a.SignOut(ctx); msg != "" {
		return errorToast(msg)
	}
	return h.done(ctx, InfoSignedOut, h.path(ctx, PathAuth))
}
