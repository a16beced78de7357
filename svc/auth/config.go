package auth

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrymomot/authstarter/pkg/i18n"
	"github.com/dmitrymomot/authstarter/pkg/identity"
)

// Paths relative to the locale prefix.
const (
	PathRoot                  = "/"
	PathAuth                  = "/auth"
	PathForgotPassword        = "/auth/forgot-password"
	PathUpdatePassword        = "/auth/update-password"
	PathCallbackOpenID        = "/auth/callbacks/openid"
	PathCallbackEmailSignin   = "/auth/callbacks/email-signin"
	PathCallbackPasswordReset = "/auth/callbacks/password-reset"
)

// Config is read from SITE_URL and AUTH_* variables. Use NewSettings to
// validate it.
type Config struct {
	SiteURL          string        `env:"SITE_URL" envDefault:"http://localhost:8080"`
	Methods          []string      `env:"AUTH_METHODS" envSeparator:"," envDefault:"EMAIL_SIGNIN,OAUTH_SIGNIN,PASSWORD_SIGNIN"`
	EmailMode        string        `env:"AUTH_EMAIL_MODE" envDefault:"otp"`
	PhoneChannel     string        `env:"AUTH_PHONE_CHANNEL" envDefault:"sms"`
	OAuthProviders   []string      `env:"AUTH_OAUTH_PROVIDERS" envSeparator:"," envDefault:"google,github"`
	ProtectedRoutes  []string      `env:"AUTH_PROTECTED_ROUTES" envSeparator:"," envDefault:"/dashboard,/settings"`
	ShouldCreateUser bool          `env:"AUTH_SHOULD_CREATE_USER" envDefault:"true"`
	OTPBurst         int           `env:"AUTH_OTP_BURST" envDefault:"3"`
	OTPInterval      time.Duration `env:"AUTH_OTP_INTERVAL" envDefault:"1m"`
}

// Settings is the validated, immutable form of Config.
type Settings struct {
	SiteURL    *url.URL
	Methods    Methods
	EmailMode  EmailMode
	Channel    identity.Channel
	Providers  []OAuthProvider
	Protected  []string
	CreateUser bool
}

// NewSettings validates cfg. Unknown methods, modes, channels and
// providers fail with ErrInvalidConfig or the matching parse error.
func NewSettings(cfg Config) (Settings, error) {
	site, err := url.Parse(strings.TrimRight(cfg.SiteURL, "/"))
	if err != nil || site.Scheme == "" || site.Host == "" {
		return Settings{}, fmt.Errorf("%w: site url %q", ErrInvalidConfig, cfg.SiteURL)
	}

	methods, err := ParseMethods(cfg.Methods)
	if err != nil {
		return Settings{}, err
	}
	mode, err := ParseEmailMode(cfg.EmailMode)
	if err != nil {
		return Settings{}, err
	}

	channel := identity.Channel(strings.ToLower(strings.TrimSpace(cfg.PhoneChannel)))
	switch channel {
	case identity.ChannelSMS, identity.ChannelWhatsApp:
	case "":
		channel = identity.ChannelSMS
	default:
		return Settings{}, fmt.Errorf("%w: phone channel %q", ErrInvalidConfig, cfg.PhoneChannel)
	}

	var providers []OAuthProvider
	if methods.Has(OAuthSignin) {
		if providers, err = ParseOAuthProviders(cfg.OAuthProviders); err != nil {
			return Settings{}, err
		}
	}

	var protected []string
	for _, p := range cfg.ProtectedRoutes {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		protected = append(protected, "/"+strings.Trim(p, "/"))
	}

	return Settings{
		SiteURL:    site,
		Methods:    methods,
		EmailMode:  mode,
		Channel:    channel,
		Providers:  providers,
		Protected:  protected,
		CreateUser: cfg.ShouldCreateUser,
	}, nil
}

// AbsoluteURL joins the site URL, the locale and p.
func (s Settings) AbsoluteURL(locale, p string) string {
	return s.SiteURL.String() + i18n.PrefixPath(locale, p)
}

// IsProtected reports whether a locale stripped path needs a signed in
// user. Auth pages are never protected.
func (s Settings) IsProtected(p string) bool {
	if underPrefix(p, PathAuth) {
		return false
	}
	for _, prefix := range s.Protected {
		if underPrefix(p, prefix) {
			return true
		}
	}
	return false
}

func underPrefix(p, prefix string) bool {
	if prefix == "/" {
		return true
	}
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}
