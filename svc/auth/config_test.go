package auth_test

import (
	"testing"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authstarter/pkg/identity"
	"github.com/dmitrymomot/authstarter/svc/auth"
)

func defaultConfig() auth.Config {
	return auth.Config{
		SiteURL:          "https://app.example.com/",
		Methods:          []string{"EMAIL_SIGNIN", "OAUTH_SIGNIN", "PASSWORD_SIGNIN"},
		EmailMode:        "otp",
		PhoneChannel:     "sms",
		OAuthProviders:   []string{"google", "github"},
		ProtectedRoutes:  []string{"/dashboard", "settings/", "/api"},
		ShouldCreateUser: true,
	}
}

func TestParseMethods(t *testing.T) {
	t.Parallel()

	t.Run("normalizes and deduplicates", func(t *testing.T) {
		t.Parallel()
		m, err := auth.ParseMethods([]string{" email_signin", "PASSWORD_SIGNIN", "EMAIL_SIGNIN", ""})
		require.NoError(t, err)
		assert.Equal(t, []auth.Method{auth.EmailSignin, auth.PasswordSignin}, m.List())
		assert.True(t, m.Has(auth.EmailSignin))
		assert.False(t, m.Has(auth.PhoneSignin))
	})

	t.Run("rejects unknown", func(t *testing.T) {
		t.Parallel()
		_, err := auth.ParseMethods([]string{"SMOKE_SIGNAL"})
		assert.ErrorIs(t, err, auth.ErrUnknownMethod)
	})

	t.Run("list is a copy", func(t *testing.T) {
		t.Parallel()
		m := auth.NewMethods(auth.EmailSignin)
		list := m.List()
		list[0] = auth.PhoneSignin
		assert.True(t, m.Has(auth.EmailSignin))
		assert.False(t, m.Has(auth.PhoneSignin))
	})
}

func TestParseEmailMode(t *testing.T) {
	t.Parallel()

	mode, err := auth.ParseEmailMode("")
	require.NoError(t, err)
	assert.Equal(t, auth.EmailModeOTP, mode)

	mode, err = auth.ParseEmailMode("Magic_Link")
	require.NoError(t, err)
	assert.Equal(t, auth.EmailModeMagicLink, mode)

	_, err = auth.ParseEmailMode("carrier-pigeon")
	assert.ErrorIs(t, err, auth.ErrInvalidConfig)
}

func TestParseOAuthProviders(t *testing.T) {
	t.Parallel()

	ps, err := auth.ParseOAuthProviders([]string{"Google", "github", "google"})
	require.NoError(t, err)
	assert.Equal(t, []auth.OAuthProvider{{ID: "google", Name: "Google"}, {ID: "github", Name: "GitHub"}}, ps)

	_, err = auth.ParseOAuthProviders([]string{"myspace"})
	assert.ErrorIs(t, err, auth.ErrUnknownProvider)
}

func TestNewSettings(t *testing.T) {
	t.Parallel()

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		s, err := auth.NewSettings(defaultConfig())
		require.NoError(t, err)
		assert.Equal(t, "https://app.example.com", s.SiteURL.String())
		assert.Equal(t, auth.EmailModeOTP, s.EmailMode)
		assert.Equal(t, identity.ChannelSMS, s.Channel)
		assert.Len(t, s.Providers, 2)
		assert.Equal(t, []string{"/dashboard", "/settings", "/api"}, s.Protected)
		assert.True(t, s.CreateUser)
	})

	t.Run("providers ignored without oauth", func(t *testing.T) {
		t.Parallel()
		cfg := defaultConfig()
		cfg.Methods = []string{"PASSWORD_SIGNIN"}
		cfg.OAuthProviders = []string{"not-a-provider"}
		s, err := auth.NewSettings(cfg)
		require.NoError(t, err)
		assert.Empty(t, s.Providers)
	})

	tests := []struct {
		name   string
		mutate func(*auth.Config)
	}{
		{"relative site url", func(c *auth.Config) { c.SiteURL = "/app" }},
		{"unknown method", func(c *auth.Config) { c.Methods = []string{"FAX"} }},
		{"unknown email mode", func(c *auth.Config) { c.EmailMode = "letter" }},
		{"unknown channel", func(c *auth.Config) { c.PhoneChannel = "telegram" }},
		{"unknown provider", func(c *auth.Config) { c.OAuthProviders = []string{"myspace"} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := defaultConfig()
			tt.mutate(&cfg)
			_, err := auth.NewSettings(cfg)
			assert.Error(t, err)
		})
	}
}

func TestConfig_DefaultProtectedRoutes(t *testing.T) {
	t.Parallel()

	var cfg auth.Config
	require.NoError(t, env.ParseWithOptions(&cfg, env.Options{Environment: map[string]string{}}))
	assert.Equal(t, []string{"/dashboard", "/settings"}, cfg.ProtectedRoutes)

	// JSON endpoints gate themselves with RequireUser and answer 401.
	s, err := auth.NewSettings(cfg)
	require.NoError(t, err)
	assert.False(t, s.IsProtected("/api/uploads"))
}

func TestSettings_IsProtected(t *testing.T) {
	t.Parallel()

	s, err := auth.NewSettings(defaultConfig())
	require.NoError(t, err)

	tests := []struct {
		path string
		want bool
	}{
		{"/dashboard", true},
		{"/dashboard/projects/1", true},
		{"/settings", true},
		{"/api/uploads", true},
		{"/dashboards", false},
		{"/", false},
		{"/pricing", false},
		{"/auth", false},
		{"/auth/update-password", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, s.IsProtected(tt.path))
		})
	}
}

func TestSettings_AbsoluteURL(t *testing.T) {
	t.Parallel()

	s, err := auth.NewSettings(defaultConfig())
	require.NoError(t, err)
	assert.Equal(t, "https://app.example.com/de/auth/callbacks/openid", s.AbsoluteURL("de", auth.PathCallbackOpenID))
}

func TestParseErrorType(t *testing.T) {
	t.Parallel()

	e, ok := auth.ParseErrorType("AUTHENTICATION_FAILED")
	require.True(t, ok)
	assert.Equal(t, "errors.AUTHENTICATION_FAILED", e.Key())

	_, ok = auth.ParseErrorType("<script>")
	assert.False(t, ok)
}

func TestMessages(t *testing.T) {
	t.Parallel()

	tr, err := auth.Messages()
	require.NoError(t, err)
	assert.Equal(t, []string{"de", "en"}, tr.SupportedLanguages())
	assert.Equal(t, "An unexpected error occurred.", tr.T("en", auth.ErrorUnexpected.Key()))
	assert.Equal(t, "Passwords do not match. Please try again.", tr.T("en", auth.ErrorPasswordMismatch.Key()))
	assert.Equal(t, "Anmelden", tr.T("de", "auth.title.signin"))
	assert.Equal(t, "Zu viele Versuche. Bitte warte 5 Sekunden.", tr.T("de", "errors.TOO_MANY_REQUESTS", "seconds", "5"))

	for _, key := range []string{auth.InfoSignInSuccessful, auth.ErrorAuthenticationFailed.Key(), "auth.button.verify"} {
		assert.True(t, tr.HasTranslation("de", key), key)
	}
}
