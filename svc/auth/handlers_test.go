package auth_test

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authstarter/pkg/identity"
	"github.com/dmitrymomot/authstarter/svc/auth"
)

func TestAuthPage(t *testing.T) {
	t.Parallel()

	t.Run("renders the initial form", func(t *testing.T) {
		t.Parallel()
		a := newApp(t)
		w := a.get("/en/auth")
		require.Equal(t, http.StatusOK, w.Code)

		body := text(w)
		assert.Contains(t, body, `id="auth-card"`)
		assert.Contains(t, body, `data-form="emailSignin"`)
		assert.Contains(t, body, "<h1>Sign in</h1>")
		assert.Contains(t, body, "Don't have an account? Sign up")
		assert.Contains(t, body, "Sign in with password")
		assert.Contains(t, body, "Or sign in with")
		assert.Contains(t, body, ">Google</button>")
		assert.Contains(t, body, ">GitHub</button>")
		assert.Contains(t, body, `"form":"emailSignin"`)
		assert.NotContains(t, body, "Forgot password?")
	})

	t.Run("localized", func(t *testing.T) {
		t.Parallel()
		w := newApp(t).get("/de/auth")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, text(w), "<h1>Anmelden</h1>")
		assert.Contains(t, text(w), "/de/auth/actions/email")
	})

	t.Run("shows known error tags", func(t *testing.T) {
		t.Parallel()
		w := newApp(t).get("/en/auth?error=AUTHENTICATION_FAILED")
		assert.Contains(t, text(w), "Authentication failed.")
	})

	t.Run("ignores unknown error tags", func(t *testing.T) {
		t.Parallel()
		w := newApp(t).get("/en/auth?error=%3Cscript%3E")
		assert.NotContains(t, w.Body.String(), "<script>")
		assert.NotContains(t, w.Body.String(), "toast-error")
	})

	t.Run("oauth only", func(t *testing.T) {
		t.Parallel()
		s := testSettings(t, func(c *auth.Config) { c.Methods = []string{"OAUTH_SIGNIN"} })
		body := text(newApp(t, withSettings(s)).get("/en/auth"))
		assert.Contains(t, body, `data-form="oauthOnly"`)
		assert.Contains(t, body, ">Google</button>")
		assert.NotContains(t, body, `id="email"`)
	})

	t.Run("whatsapp button label", func(t *testing.T) {
		t.Parallel()
		s := testSettings(t, func(c *auth.Config) {
			c.Methods = []string{"PHONE_SIGNIN"}
			c.PhoneChannel = "whatsapp"
		})
		body := text(newApp(t, withSettings(s)).get("/en/auth"))
		assert.Contains(t, body, `data-form="phoneSignin"`)
		assert.Contains(t, body, "Send WhatsApp OTP")
	})

	t.Run("missing locale redirects", func(t *testing.T) {
		t.Parallel()
		a := newApp(t)
		r := httptest.NewRequest(http.MethodGet, "/auth?x=1", nil)
		r.Header.Set("Accept-Language", "de-DE,de;q=0.9")
		w := a.serve(r)
		assert.Equal(t, http.StatusTemporaryRedirect, w.Code)
		assert.Equal(t, "/de/auth?x=1", w.Header().Get("Location"))
	})
}

func TestSwitch(t *testing.T) {
	t.Parallel()

	t.Run("allowed transition", func(t *testing.T) {
		t.Parallel()
		w := newApp(t).action("/en/auth/actions/switch?to=signup", auth.Signals{Form: "emailSignin", Email: "test@example.com"})
		require.Equal(t, http.StatusOK, w.Code)

		body := text(w)
		assert.Contains(t, body, "datastar-patch-signals")
		assert.Contains(t, body, `"form":"signup"`)
		assert.Contains(t, body, "datastar-patch-elements")
		assert.Contains(t, body, `data-form="signup"`)
		assert.Contains(t, body, `value="test@example.com"`)
	})

	t.Run("to forgot password", func(t *testing.T) {
		t.Parallel()
		w := newApp(t).action("/en/auth/actions/switch?to=forgotPassword", auth.Signals{Form: "passwordSignin"})
		assert.Contains(t, text(w), "<h1>Forgot password</h1>")
	})

	t.Run("rejected transition", func(t *testing.T) {
		t.Parallel()
		w := newApp(t).action("/en/auth/actions/switch?to=forgotPassword", auth.Signals{Form: "emailSignin"})
		body := text(w)
		assert.NotContains(t, body, `data-form="forgotPassword"`)
		assert.Contains(t, body, `class="toast toast-error"`)
	})
}

func TestEmailOTPFlow(t *testing.T) {
	t.Parallel()

	t.Run("round trip signs in", func(t *testing.T) {
		t.Parallel()
		a := newApp(t)

		w := a.action("/en/auth/actions/email", auth.Signals{Form: "emailSignin", Email: "test@example.com"})
		require.Equal(t, http.StatusOK, w.Code)
		body := text(w)
		assert.Contains(t, body, `"otpSent":true`)
		assert.Contains(t, body, `"otpIdentifier":"test@example.com"`)
		assert.Contains(t, body, "Please check your email for a one-time code.")

		d, ok := a.provider.LastDelivery("test@example.com")
		require.True(t, ok)

		// The visible field was edited after the code was sent.
		w = a.action("/en/auth/actions/email/verify", auth.Signals{
			Form:          "emailSignin",
			Email:         "someone-else@example.com",
			OTPSent:       true,
			OTPIdentifier: "test@example.com",
			OTP:           d.Code,
		})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "/en")
		assert.True(t, a.signedIn())

		w = a.get("/en/")
		assert.Contains(t, text(w), "test@example.com")
		assert.Contains(t, text(w), "You are now signed in.")
	})

	t.Run("verifies exactly the identifier from step one", func(t *testing.T) {
		t.Parallel()
		client := &mockClient{}
		client.On("GetUser", mock.Anything).Return(nil, nil)
		client.On("SendOTP", mock.Anything, mock.MatchedBy(func(r identity.OTPRequest) bool {
			return r.Email == "test@example.com"
		})).Return(nil).Once()
		client.On("VerifyOTP", mock.Anything, identity.VerifyRequest{
			Type:  identity.OTPEmail,
			Email: "test@example.com",
			Token: "482913",
		}).Return(nil).Once()

		a := newApp(t, withClient(client))
		a.action("/en/auth/actions/email", auth.Signals{Form: "emailSignin", Email: "test@example.com"})
		w := a.action("/en/auth/actions/email/verify", auth.Signals{
			Form:          "emailSignin",
			Email:         "test@example.co",
			OTPSent:       true,
			OTPIdentifier: "test@example.com",
			OTP:           "482913",
		})
		require.Equal(t, http.StatusOK, w.Code)
		client.AssertExpectations(t)
	})

	t.Run("provider failure keeps the input", func(t *testing.T) {
		t.Parallel()
		client := &mockClient{}
		client.On("GetUser", mock.Anything).Return(nil, nil)
		client.On("SendOTP", mock.Anything, mock.Anything).
			Return(&identity.Error{Status: http.StatusTooManyRequests, Message: "Failed to send OTP"}).Once()

		w := newApp(t, withClient(client)).action("/en/auth/actions/email",
			auth.Signals{Form: "emailSignin", Email: "test@example.com"})
		body := text(w)
		assert.Contains(t, body, `<div class="toast toast-error" role="alert" data-on:click="el.remove()">Failed to send OTP</div>`)
		assert.NotContains(t, body, `"otpSent":true`)
		assert.NotContains(t, body, `id="auth-card"`, "the card, and the typed address, stay untouched")
	})

	t.Run("invalid email never reaches the provider", func(t *testing.T) {
		t.Parallel()
		client := &mockClient{}
		client.On("GetUser", mock.Anything).Return(nil, nil)

		w := newApp(t, withClient(client)).action("/en/auth/actions/email",
			auth.Signals{Form: "emailSignin", Email: "test@example"})
		body := text(w)
		assert.Contains(t, body, "Invalid email address.")
		assert.Contains(t, body, `value="test@example"`)
		client.AssertNotCalled(t, "SendOTP", mock.Anything, mock.Anything)
	})

	t.Run("short otp is rejected inline", func(t *testing.T) {
		t.Parallel()
		client := &mockClient{}
		client.On("GetUser", mock.Anything).Return(nil, nil)

		w := newApp(t, withClient(client)).action("/en/auth/actions/email/verify",
			auth.Signals{Form: "emailSignin", OTPSent: true, OTPIdentifier: "test@example.com", OTP: "123"})
		assert.Contains(t, text(w), "OTP must be 6 digits")
		client.AssertNotCalled(t, "VerifyOTP", mock.Anything, mock.Anything)
	})

	t.Run("magic link mode only confirms", func(t *testing.T) {
		t.Parallel()
		s := testSettings(t, func(c *auth.Config) { c.EmailMode = "magic_link" })
		w := newApp(t, withSettings(s)).action("/en/auth/actions/email", auth.Signals{Form: "emailSignin", Email: "test@example.com"})
		body := text(w)
		assert.Contains(t, body, "Please check your email for a magic link. You may now close this tab.")
		assert.NotContains(t, body, `"otpSent":true`)
	})
}

func TestPhoneOTPFlow(t *testing.T) {
	t.Parallel()

	a := newApp(t)

	w := a.action("/en/auth/actions/phone", auth.Signals{Form: "phoneSignin", Phone: "+49 170 1234567"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, text(w), `"otpIdentifier":"+491701234567"`)

	d, ok := a.provider.LastDelivery("+491701234567")
	require.True(t, ok)

	w = a.action("/en/auth/actions/phone/verify", auth.Signals{
		Form:          "phoneSignin",
		OTPSent:       true,
		OTPIdentifier: "+491701234567",
		OTP:           d.Code,
	})
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, a.signedIn())

	t.Run("invalid phone", func(t *testing.T) {
		w := a.action("/en/auth/actions/phone", auth.Signals{Form: "phoneSignin", Phone: "0170"})
		assert.Contains(t, text(w), "Invalid phone number.")
	})
}

func TestPasswordSignin(t *testing.T) {
	t.Parallel()

	t.Run("success navigates to the root", func(t *testing.T) {
		t.Parallel()
		a := newApp(t)
		_, err := a.provider.CreateUser("test@example.com", "password123")
		require.NoError(t, err)

		w := a.action("/en/auth/actions/password", auth.Signals{Form: "passwordSignin", Email: "test@example.com", Password: "password123"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "window.location")
		assert.Contains(t, w.Body.String(), "/en")
		assert.True(t, a.signedIn())
	})

	t.Run("wrong password stays on the form", func(t *testing.T) {
		t.Parallel()
		a := newApp(t)
		_, err := a.provider.CreateUser("test@example.com", "password123")
		require.NoError(t, err)

		w := a.action("/en/auth/actions/password", auth.Signals{Form: "passwordSignin", Email: "test@example.com", Password: "password999"})
		assert.Contains(t, text(w), "Invalid login credentials")
		assert.NotContains(t, w.Body.String(), "window.location")
		assert.False(t, a.signedIn())
	})

	t.Run("short password is inline", func(t *testing.T) {
		t.Parallel()
		w := newApp(t).action("/en/auth/actions/password", auth.Signals{Form: "passwordSignin", Email: "test@example.com", Password: "short"})
		assert.Contains(t, text(w), "Password must be at least 8 characters")
	})
}

func TestSignUpAndForgotPassword(t *testing.T) {
	t.Parallel()

	a := newApp(t)

	w := a.action("/en/auth/actions/signup", auth.Signals{Form: "signup", Email: "new@example.com", Password: "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "window.location")

	w = a.get("/en/")
	assert.Contains(t, text(w), "Confirmation email sent. Please check your mailbox.")

	w = a.action("/en/auth/actions/signout", auth.Signals{})
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, a.signedIn())

	w = a.action("/en/auth/actions/forgot-password", auth.Signals{Form: "forgotPassword", Email: "new@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "window.location")

	d, ok := a.provider.LastDelivery("new@example.com")
	require.True(t, ok)
	assert.Equal(t, identity.OTPRecovery, d.Kind)
	assert.Contains(t, d.Link, "https://app.example.com/en/auth/callbacks/password-reset?code=")
}

func TestUpdatePassword(t *testing.T) {
	t.Parallel()

	signedIn := func(t *testing.T) *app {
		a := newApp(t)
		_, err := a.provider.CreateUser("test@example.com", "password123")
		require.NoError(t, err)
		a.action("/en/auth/actions/password", auth.Signals{Email: "test@example.com", Password: "password123"})
		require.True(t, a.signedIn())
		return a
	}

	t.Run("page requires a session", func(t *testing.T) {
		t.Parallel()
		w := newApp(t).get("/en/auth/update-password")
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/en/auth", w.Header().Get("Location"))
	})

	t.Run("mismatch is shown while typing", func(t *testing.T) {
		t.Parallel()
		a := signedIn(t)
		w := a.action("/en/auth/actions/update-password/validate", auth.Signals{Password: "password123", PasswordConfirm: "password456"})
		body := text(w)
		assert.Contains(t, body, "Passwords don't match")
		assert.Regexp(t, `<button type="submit" [^>]*disabled>`, body)
	})

	t.Run("matching passwords enable submit", func(t *testing.T) {
		t.Parallel()
		a := signedIn(t)
		w := a.action("/en/auth/actions/update-password/validate", auth.Signals{Password: "password123", PasswordConfirm: "password123"})
		body := text(w)
		assert.NotContains(t, body, "Passwords don't match")
		assert.NotRegexp(t, `<button type="submit" [^>]*disabled>`, body)
	})

	t.Run("submit updates the password", func(t *testing.T) {
		t.Parallel()
		a := signedIn(t)
		require.Equal(t, http.StatusOK, a.get("/en/auth/update-password").Code)

		w := a.action("/en/auth/actions/update-password", auth.Signals{Password: "new-password", PasswordConfirm: "new-password"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "window.location")

		_, err := a.provider.SignInWithPassword(t.Context(), identity.Credentials{Email: "test@example.com", Password: "new-password"})
		assert.NoError(t, err)
	})
}

func TestOAuth(t *testing.T) {
	t.Parallel()

	t.Run("unknown provider stays inline", func(t *testing.T) {
		t.Parallel()
		w := newApp(t).action("/en/auth/actions/oauth/apple", auth.Signals{})
		body := text(w)
		assert.Contains(t, body, `"oauthError":"Unknown sign-in provider."`)
		assert.NotContains(t, body, "toast")
	})

	t.Run("handshake and callback", func(t *testing.T) {
		t.Parallel()
		a := newApp(t)

		w := a.action("/en/auth/actions/oauth/github", auth.Signals{})
		require.Equal(t, http.StatusOK, w.Code)
		body := w.Body.String()
		start := strings.Index(body, "https://app.example.com/en/auth/callbacks/openid?code=")
		require.GreaterOrEqual(t, start, 0, body)
		_, ok := a.carried[identity.DefaultVerifierCookie]
		require.True(t, ok, "verifier cookie is set before the stream starts")

		callback, err := url.Parse(strings.Fields(strings.NewReplacer(`"`, " ", `'`, " ", `\`, " ").Replace(body[start:]))[0])
		require.NoError(t, err)

		w = a.get(callback.RequestURI())
		assert.Equal(t, http.StatusSeeOther, w.Code)
		assert.Equal(t, "/en", w.Header().Get("Location"))
		assert.True(t, a.signedIn())
	})
}

func TestActionsRequireDatastar(t *testing.T) {
	t.Parallel()

	a := newApp(t)
	r := httptest.NewRequest(http.MethodPost, "/en/auth/actions/switch?to=signup", strings.NewReader(`{}`))
	w := a.serve(r)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
