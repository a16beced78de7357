package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/authstarter/pkg/i18n"
	"github.com/dmitrymomot/authstarter/pkg/identity"
)

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.924 generate -f views.templ

// DatastarScript is the client bundle the pages load.
const DatastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0-RC.6/bundles/datastar.js"

// Element ids targeted by patches.
const (
	CardID             = "auth-card"
	UpdatePasswordID   = "update-password-card"
	ToastsID           = "toasts"
	ToastsSelector     = "#" + ToastsID
	toastLevelError    = "error"
	toastLevelInfo     = "info"
	toastLevelSuccess  = "success"
	actionsPathSegment = "/auth/actions/"
)

// Toast is a transient notification.
type Toast struct {
	Message string `json:"message"`
	Level   string `json:"level"`
}

func (t Toast) Class() string { return "toast toast-" + t.Level }

// CardData is everything the auth card needs to render one form.
type CardData struct {
	Locale    string
	Form      Form
	Links     Links
	EmailMode EmailMode
	Channel   identity.Channel
	Providers []OAuthProvider

	Email         string
	Phone         string
	OTPSent       bool
	OTPIdentifier string
	OAuthError    string
	Errors        map[string]string

	t translateFunc
}

func (d CardData) T(key string, pairs ...string) string { return d.t(key, pairs...) }

// Action is the URL of a Datastar action endpoint.
func (d CardData) Action(name string) string {
	return i18n.PrefixPath(d.Locale, actionsPathSegment+name)
}

func (d CardData) Switch(t Trigger) string {
	return d.Action("switch") + "?to=" + string(t)
}

// SwitchAction is the Datastar expression posting t to the switch endpoint.
func (d CardData) SwitchAction(t Trigger) string { return post(d.Switch(t)) }

func (d CardData) FieldError(field string) string { return d.Errors[field] }

func (d CardData) Title() string { return d.t(d.Form.TitleKey()) }

// EmailButton labels the email submit button for the configured mode.
func (d CardData) EmailButton() string {
	if d.EmailMode == EmailModeMagicLink {
		return d.t("auth.button.send_link")
	}
	return d.t("auth.button.send_code")
}

func (d CardData) EmailLink() string {
	if d.EmailMode == EmailModeMagicLink {
		return d.t("auth.link.email")
	}
	return d.t("auth.link.email_otp")
}

func (d CardData) PhoneButton() string {
	if d.Channel == identity.ChannelWhatsApp {
		return d.t("auth.button.send_whatsapp_otp")
	}
	return d.t("auth.button.send_otp")
}

// CodeStep reports whether the form has a second, code entry step.
func (d CardData) CodeStep() bool {
	switch d.Form {
	case FormEmailSignin:
		return d.EmailMode == EmailModeOTP
	case FormPhoneSignin:
		return true
	}
	return false
}

// Button describes a submit button with an already translated label.
func (d CardData) Button(label string) submitData {
	return submitData{Label: label, Busy: d.t("auth.busy")}
}

// VerifyAction is the endpoint of the code entry step.
func (d CardData) VerifyAction() string {
	if d.Form == FormPhoneSignin {
		return d.Action("phone/verify")
	}
	return d.Action("email/verify")
}

func (d CardData) PasswordAutocomplete() string {
	if d.Form == FormSignup {
		return "new-password"
	}
	return "current-password"
}

type submitData struct {
	Label    string
	Busy     string
	Disabled bool
	Guard    string
}

// DisabledExpr is the client side expression that disables the button.
func (s submitData) DisabledExpr() string {
	if s.Guard != "" {
		return s.Guard
	}
	return "$busy"
}

// PageData wraps a card with the document shell.
type PageData struct {
	Card   CardData
	Toasts []Toast
}

func (p PageData) head() pageHead {
	return pageHead{
		Locale:  p.Card.Locale,
		Title:   p.Card.Title(),
		Signals: signalsAttr(initialSignals(p.Card.Form)),
		Toasts:  p.Toasts,
	}
}

// pageHead is what document needs besides the body.
type pageHead struct {
	Locale  string
	Title   string
	Signals string
	Toasts  []Toast
}

// UpdatePasswordData renders the update password form.
type UpdatePasswordData struct {
	Locale          string
	Password        string
	PasswordConfirm string
	Errors          map[string]string
	Toasts          []Toast

	t translateFunc
}

func (d UpdatePasswordData) T(key string, pairs ...string) string { return d.t(key, pairs...) }

func (d UpdatePasswordData) Action(name string) string {
	return i18n.PrefixPath(d.Locale, actionsPathSegment+name)
}

func (d UpdatePasswordData) FieldError(field string) string { return d.Errors[field] }

func (d UpdatePasswordData) head() pageHead {
	return pageHead{
		Locale:  d.Locale,
		Title:   d.t("auth.title.update_password"),
		Signals: signalsAttr(Signals{}),
		Toasts:  d.Toasts,
	}
}

// Submit is disabled while the server knows the input is invalid.
func (d UpdatePasswordData) Submit() submitData {
	return submitData{
		Label:    d.t("auth.button.update_password"),
		Busy:     d.t("auth.busy"),
		Disabled: len(d.Errors) > 0 || d.Password == "" || d.Password != d.PasswordConfirm,
		Guard:    fmt.Sprintf("$busy || $password.length < %d || $password !== $passwordConfirm", MinPasswordLength),
	}
}

// HomeData renders the landing page.
type HomeData struct {
	Locale string
	User   *identity.User
	Toasts []Toast

	t translateFunc
}

func (d HomeData) T(key string, pairs ...string) string { return d.t(key, pairs...) }

func (d HomeData) Action(name string) string {
	return i18n.PrefixPath(d.Locale, actionsPathSegment+name)
}

func (d HomeData) AuthPath() string { return i18n.PrefixPath(d.Locale, PathAuth) }

func (d HomeData) head() pageHead {
	return pageHead{
		Locale:  d.Locale,
		Title:   d.t("auth.title.home"),
		Signals: `{"busy":false}`,
		Toasts:  d.Toasts,
	}
}

func post(url string) string { return "@post('" + url + "')" }

func signalsAttr(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// formView picks the component of the current form.
func formView(d CardData) (templ.Component, error) {
	switch d.Form {
	case FormEmailSignin:
		return emailForm(d), nil
	case FormPhoneSignin:
		return phoneForm(d), nil
	case FormPasswordSignin:
		return passwordForm(d), nil
	case FormSignup:
		return signupForm(d), nil
	case FormForgotPassword:
		return forgotPasswordForm(d), nil
	case FormOAuthOnly:
		return templ.NopComponent, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownForm, d.Form)
}

// Card renders the auth card around the current form.
func Card(d CardData) templ.Component {
	form, err := formView(d)
	if err != nil {
		return templ.ComponentFunc(func(context.Context, io.Writer) error { return err })
	}
	return card(d, form)
}

