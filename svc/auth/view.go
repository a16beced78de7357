package auth

import (
	"fmt"

	"github.com/dmitrymomot/authstarter/pkg/statemachine"
)

// Form is the form currently shown on the auth page.
type Form int

const (
	FormEmailSignin Form = iota + 1
	FormPhoneSignin
	FormPasswordSignin
	FormSignup
	FormForgotPassword
	// FormOAuthOnly shows only the social login block. It is the initial
	// form when no email, phone or password method is enabled.
	FormOAuthOnly
)

var allForms = []Form{FormEmailSignin, FormPhoneSignin, FormPasswordSignin, FormSignup, FormForgotPassword, FormOAuthOnly}

func (f Form) String() string {
	switch f {
	case FormEmailSignin:
		return "emailSignin"
	case FormPhoneSignin:
		return "phoneSignin"
	case FormPasswordSignin:
		return "passwordSignin"
	case FormSignup:
		return "signup"
	case FormForgotPassword:
		return "forgotPassword"
	case FormOAuthOnly:
		return "oauthOnly"
	}
	return fmt.Sprintf("Form(%d)", int(f))
}

func ParseForm(s string) (Form, error) {
	for _, f := range allForms {
		if f.String() == s {
			return f, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownForm, s)
}

// TitleKey is the dictionary key of the card title.
func (f Form) TitleKey() string {
	switch f {
	case FormSignup:
		return "auth.title.signup"
	case FormForgotPassword:
		return "auth.title.forgot_password"
	case FormEmailSignin, FormPhoneSignin, FormPasswordSignin, FormOAuthOnly:
		return "auth.title.signin"
	}
	return "auth.title.signin"
}

// Trigger is a navigation link the user can click.
type Trigger string

const (
	TriggerSignup         Trigger = "signup"
	TriggerForgotPassword Trigger = "forgotPassword"
	TriggerEmail          Trigger = "email"
	TriggerPhone          Trigger = "phone"
	TriggerPassword       Trigger = "password"
)

// InitialForm picks the first enabled of email, phone and password.
func InitialForm(m Methods) Form {
	switch {
	case m.Has(EmailSignin):
		return FormEmailSignin
	case m.Has(PhoneSignin):
		return FormPhoneSignin
	case m.Has(PasswordSignin):
		return FormPasswordSignin
	}
	return FormOAuthOnly
}

func enabled(methods ...Method) statemachine.Guard[Form, Trigger, Methods] {
	return func(_ Form, _ Trigger, m Methods) bool {
		for _, method := range methods {
			if m.Has(method) {
				return true
			}
		}
		return false
	}
}

func except(skip Form) []Form {
	out := make([]Form, 0, len(allForms)-1)
	for _, f := range allForms {
		if f != skip {
			out = append(out, f)
		}
	}
	return out
}

var transitions = statemachine.NewBuilder[Form, Trigger, Methods]().
	From(FormEmailSignin, FormPhoneSignin, FormPasswordSignin).On(TriggerSignup).To(FormSignup).When(enabled(EmailSignin, PhoneSignin)).
	From(FormPasswordSignin).On(TriggerForgotPassword).To(FormForgotPassword).When(enabled(PasswordSignin)).
	From(except(FormEmailSignin)...).On(TriggerEmail).To(FormEmailSignin).When(enabled(EmailSignin)).
	From(except(FormPhoneSignin)...).On(TriggerPhone).To(FormPhoneSignin).When(enabled(PhoneSignin)).
	From(except(FormPasswordSignin)...).On(TriggerPassword).To(FormPasswordSignin).When(enabled(PasswordSignin)).
	Build()

// Transition returns the form reached from from by t. It fails when t is
// not offered in from under the enabled methods.
func Transition(from Form, t Trigger, m Methods) (Form, error) {
	return transitions.Next(from, t, m)
}

// Links are the navigation affordances rendered under a form.
type Links struct {
	Signup         bool
	ForgotPassword bool
	Email          bool
	Phone          bool
	Password       bool
	OAuth          bool
}

// Visibility derives the links for a form. Every link except OAuth is shown
// exactly when its transition is allowed.
func Visibility(f Form, m Methods) Links {
	return Links{
		Signup:         transitions.CanFire(f, TriggerSignup, m),
		ForgotPassword: transitions.CanFire(f, TriggerForgotPassword, m),
		Email:          transitions.CanFire(f, TriggerEmail, m),
		Phone:          transitions.CanFire(f, TriggerPhone, m),
		Password:       transitions.CanFire(f, TriggerPassword, m),
		OAuth:          m.Has(OAuthSignin),
	}
}
