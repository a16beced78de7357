package auth

import (
	"fmt"
	"slices"
	"strings"
)

// Method is an enabled way of signing in.
type Method string

// Values accepted in AUTH_METHODS.
const (
	// EmailSignin sends a magic link or a code, see EmailMode.
	EmailSignin Method = "EMAIL_SIGNIN"
	// PasswordSignin enables email and password sign in and sign up.
	PasswordSignin Method = "PASSWORD_SIGNIN"
	// PhoneSignin sends a code by SMS or WhatsApp.
	PhoneSignin Method = "PHONE_SIGNIN"
	// OAuthSignin shows the social login buttons.
	OAuthSignin Method = "OAUTH_SIGNIN"
)

const (
	// MinPasswordLength applies to new passwords only.
	MinPasswordLength = 8
	// OTPLength is the number of characters in a one time code.
	OTPLength = 6
)

// ParseMethod accepts a method name in any case, surrounding spaces
// ignored.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	switch m {
	case EmailSignin, PasswordSignin, PhoneSignin, OAuthSignin:
		return m, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

// Methods is the read only set of enabled methods. It has no mutators;
// build it once at startup.
type Methods struct {
	list []Method
}

// NewMethods builds a set from ms, dropping duplicates and keeping the
// first position of each method.
func NewMethods(ms ...Method) Methods {
	var list []Method
	for _, m := range ms {
		if !slices.Contains(list, m) {
			list = append(list, m)
		}
	}
	return Methods{list: list}
}

// ParseMethods builds a set from configuration values.
func ParseMethods(values []string) (Methods, error) {
	ms := make([]Method, 0, len(values))
	for _, v := range values {
		if strings.TrimSpace(v) == "" {
			continue
		}
		m, err := ParseMethod(v)
		if err != nil {
			return Methods{}, err
		}
		ms = append(ms, m)
	}
	return NewMethods(ms...), nil
}

func (m Methods) Has(method Method) bool { return slices.Contains(m.list, method) }

func (m Methods) List() []Method { return slices.Clone(m.list) }

// EmailMode selects what the email form sends.
type EmailMode string

const (
	EmailModeMagicLink EmailMode = "magic_link"
	EmailModeOTP       EmailMode = "otp"
)

// ParseEmailMode defaults to EmailModeOTP when s is empty.
func ParseEmailMode(s string) (EmailMode, error) {
	switch m := EmailMode(strings.ToLower(strings.TrimSpace(s))); m {
	case EmailModeMagicLink, EmailModeOTP:
		return m, nil
	case "":
		return EmailModeOTP, nil
	}
	return "", fmt.Errorf("%w: email mode %q", ErrInvalidConfig, s)
}

// OAuthProvider is a configured social login button.
type OAuthProvider struct {
	ID   string
	Name string
}

var oauthProviderNames = map[string]string{
	"apple":     "Apple",
	"azure":     "Microsoft",
	"bitbucket": "Bitbucket",
	"discord":   "Discord",
	"facebook":  "Facebook",
	"github":    "GitHub",
	"gitlab":    "GitLab",
	"google":    "Google",
	"linkedin":  "LinkedIn",
	"slack":     "Slack",
	"twitter":   "Twitter",
}

// ParseOAuthProviders resolves display names. Unknown ids fail with
// ErrUnknownProvider; duplicates are dropped.
func ParseOAuthProviders(ids []string) ([]OAuthProvider, error) {
	var out []OAuthProvider
	for _, raw := range ids {
		id := strings.ToLower(strings.TrimSpace(raw))
		if id == "" {
			continue
		}
		name, ok := oauthProviderNames[id]
		if !ok {
			return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, raw)
		}
		if !slices.ContainsFunc(out, func(p OAuthProvider) bool { return p.ID == id }) {
			out = append(out, OAuthProvider{ID: id, Name: name})
		}
	}
	return out, nil
}
