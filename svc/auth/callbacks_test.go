package auth_test

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authstarter/pkg/identity"
	"github.com/dmitrymomot/authstarter/svc/auth"
)

// follow requests the path and query of an absolute callback link.
func (a *app) follow(link string) *http.Response {
	a.t.Helper()
	u, err := url.Parse(link)
	require.NoError(a.t, err)
	return a.get(u.RequestURI()).Result()
}

func TestOpenIDCallback(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		target   string
		location string
	}{
		{"missing code", "/en/auth/callbacks/openid", "/en/auth?error=INVALID_CREDENTIALS"},
		{"unknown code", "/en/auth/callbacks/openid?code=nope", "/en/auth?error=UNEXPECTED_ERROR"},
		{"provider error", "/en/auth/callbacks/openid?error=access_denied&error_description=denied", "/en/auth?error=AUTHENTICATION_FAILED"},
		{"keeps locale", "/de/auth/callbacks/openid", "/de/auth?error=INVALID_CREDENTIALS"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			a := newApp(t)
			w := a.get(tt.target)
			assert.Equal(t, http.StatusSeeOther, w.Code)
			assert.Equal(t, tt.location, w.Header().Get("Location"))
			assert.False(t, a.signedIn())
		})
	}
}

func TestEmailSigninCallback(t *testing.T) {
	t.Parallel()

	t.Run("magic link signs in", func(t *testing.T) {
		t.Parallel()
		s := testSettings(t, func(c *auth.Config) { c.EmailMode = "magic_link" })
		a := newApp(t, withSettings(s))

		w := a.action("/en/auth/actions/email", auth.Signals{Form: "emailSignin", Email: "link@example.com"})
		require.Equal(t, http.StatusOK, w.Code)
		d, ok := a.provider.LastDelivery("link@example.com")
		require.True(t, ok)
		require.NotEmpty(t, d.Link)

		res := a.follow(d.Link)
		assert.Equal(t, http.StatusSeeOther, res.StatusCode)
		assert.Equal(t, "/en", res.Header.Get("Location"))
		assert.True(t, a.signedIn())
	})

	t.Run("link is single use", func(t *testing.T) {
		t.Parallel()
		s := testSettings(t, func(c *auth.Config) { c.EmailMode = "magic_link" })
		a := newApp(t, withSettings(s))
		a.action("/en/auth/actions/email", auth.Signals{Form: "emailSignin", Email: "link@example.com"})
		d, _ := a.provider.LastDelivery("link@example.com")

		a.follow(d.Link)
		delete(a.carried, identity.DefaultSessionCookie)

		res := a.follow(d.Link)
		assert.Equal(t, "/en/auth?error=UNEXPECTED_ERROR", res.Header.Get("Location"))
		assert.False(t, a.signedIn())
	})

	t.Run("missing token hash", func(t *testing.T) {
		t.Parallel()
		w := newApp(t).get("/en/auth/callbacks/email-signin?type=signup")
		assert.Equal(t, "/en/auth?error=INVALID_CREDENTIALS", w.Header().Get("Location"))
	})
}

func TestPasswordResetCallback(t *testing.T) {
	t.Parallel()

	requestReset := func(t *testing.T) (*app, identity.Delivery) {
		t.Helper()
		a := newApp(t)
		_, err := a.provider.CreateUser("reset@example.com", "password123")
		require.NoError(t, err)

		w := a.action("/en/auth/actions/forgot-password", auth.Signals{Form: "forgotPassword", Email: "reset@example.com"})
		require.Equal(t, http.StatusOK, w.Code)
		d, ok := a.provider.LastDelivery("reset@example.com")
		require.True(t, ok)
		require.Equal(t, identity.OTPRecovery, d.Kind)
		return a, d
	}

	t.Run("signs in and opens the update form", func(t *testing.T) {
		t.Parallel()
		a, d := requestReset(t)

		res := a.follow(d.Link)
		assert.Equal(t, http.StatusSeeOther, res.StatusCode)
		assert.Equal(t, "/en/auth/update-password", res.Header.Get("Location"))
		assert.True(t, a.signedIn())

		w := a.get("/en/auth/update-password")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, text(w), `id="update-password-card"`)
	})

	t.Run("other browser has no verifier", func(t *testing.T) {
		t.Parallel()
		a, d := requestReset(t)
		delete(a.carried, identity.DefaultVerifierCookie)

		res := a.follow(d.Link)
		assert.Equal(t, "/en/auth/forgot-password?error=UNEXPECTED_ERROR", res.Header.Get("Location"))
		assert.False(t, a.signedIn())
	})

	t.Run("missing code", func(t *testing.T) {
		t.Parallel()
		w := newApp(t).get("/en/auth/callbacks/password-reset")
		assert.Equal(t, "/en/auth/forgot-password?error=UNEXPECTED_ERROR", w.Header().Get("Location"))
	})
}
