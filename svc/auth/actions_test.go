package auth_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authstarter/pkg/cookie"
	"github.com/dmitrymomot/authstarter/pkg/identity"
	"github.com/dmitrymomot/authstarter/pkg/ratelimiter"
	"github.com/dmitrymomot/authstarter/svc/auth"
)

func testSettings(t *testing.T, mutate ...func(*auth.Config)) auth.Settings {
	t.Helper()
	cfg := defaultConfig()
	cfg.Methods = []string{"EMAIL_SIGNIN", "PHONE_SIGNIN", "PASSWORD_SIGNIN", "OAUTH_SIGNIN"}
	for _, fn := range mutate {
		fn(&cfg)
	}
	s, err := auth.NewSettings(cfg)
	require.NoError(t, err)
	return s
}

func TestActions_ValidationNeverCallsProvider(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := &mockClient{}
	a := auth.NewActions(client, testSettings(t))

	tests := []struct {
		name string
		call func() string
		want string
	}{
		{"email otp", func() string { return a.SignInWithEmail(ctx, "not-an-email") }, "Invalid email address."},
		{"email verify", func() string { return a.VerifyEmailOTP(ctx, "test@", "123456") }, "Invalid email address."},
		{"phone otp", func() string { return a.SignInWithPhone(ctx, "12345", "") }, "Invalid phone number."},
		{"phone verify", func() string { return a.VerifyPhoneOTP(ctx, "call me", "123456") }, "Invalid phone number."},
		{"password", func() string { return a.SignInWithPassword(ctx, "a@b", "password123") }, "Invalid email address."},
		{"signup", func() string { return a.SignUp(ctx, "@example.com", "password123") }, "Invalid email address."},
		{"forgot password", func() string { return a.ForgotPassword(ctx, "") }, "Invalid email address."},
		{"short password", func() string { return a.SignInWithPassword(ctx, "test@example.com", "short") }, "Password must be at least 8 characters"},
		{"short otp", func() string { return a.VerifyEmailOTP(ctx, "test@example.com", "123") }, "OTP must be 6 digits"},
		{"long otp", func() string { return a.VerifyPhoneOTP(ctx, "+491701234567", "1234567") }, "OTP must be 6 digits"},
		{"password mismatch", func() string { return a.UpdatePassword(ctx, "password123", "password456") }, "Passwords do not match. Please try again."},
		{"short new password", func() string { return a.UpdatePassword(ctx, "short", "short") }, "Password must be at least 8 characters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.call())
		})
	}

	assert.Empty(t, client.Calls)
}

func TestActions_SignInWithEmail(t *testing.T) {
	t.Parallel()

	t.Run("sends with callback and signup flag", func(t *testing.T) {
		t.Parallel()
		client := &mockClient{}
		client.On("SendOTP", mock.Anything, identity.OTPRequest{
			Email:      "test@example.com",
			CreateUser: true,
			RedirectTo: "https://app.example.com/de/auth/callbacks/email-signin",
		}).Return(nil).Once()

		a := auth.NewActions(client, testSettings(t), auth.WithActionsLocale("de"))
		assert.Empty(t, a.SignInWithEmail(context.Background(), "test@example.com"))
		client.AssertExpectations(t)
	})

	t.Run("provider message passes through", func(t *testing.T) {
		t.Parallel()
		client := &mockClient{}
		client.On("SendOTP", mock.Anything, mock.Anything).
			Return(&identity.Error{Status: 429, Message: "Failed to send OTP"}).Once()

		a := auth.NewActions(client, testSettings(t))
		assert.Equal(t, "Failed to send OTP", a.SignInWithEmail(context.Background(), "test@example.com"))
	})

	t.Run("transport failure is hidden", func(t *testing.T) {
		t.Parallel()
		client := &mockClient{}
		client.On("SendOTP", mock.Anything, mock.Anything).
			Return(errors.Join(identity.ErrTransport, errors.New("dial tcp: connection refused"))).Once()

		a := auth.NewActions(client, testSettings(t))
		assert.Equal(t, "An unexpected error occurred.", a.SignInWithEmail(context.Background(), "test@example.com"))
	})

	t.Run("server errors are hidden", func(t *testing.T) {
		t.Parallel()
		for _, e := range []*identity.Error{
			{Status: http.StatusInternalServerError, Message: "pq: connection reset"},
			{Status: http.StatusUnprocessableEntity},
		} {
			client := &mockClient{}
			client.On("SendOTP", mock.Anything, mock.Anything).Return(e).Once()
			a := auth.NewActions(client, testSettings(t))
			assert.Equal(t, "An unexpected error occurred.", a.SignInWithEmail(context.Background(), "test@example.com"))
		}
	})

	t.Run("signups can be disabled", func(t *testing.T) {
		t.Parallel()
		client := &mockClient{}
		client.On("SendOTP", mock.Anything, mock.MatchedBy(func(r identity.OTPRequest) bool { return !r.CreateUser })).
			Return(nil).Once()

		s := testSettings(t, func(c *auth.Config) { c.ShouldCreateUser = false })
		assert.Empty(t, auth.NewActions(client, s).SignInWithEmail(context.Background(), "test@example.com"))
		client.AssertExpectations(t)
	})
}

func TestActions_ProxyErrorPageIsNotSuccess(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(520)
		_, _ = w.Write([]byte("<html><body>Web server is returning an unknown error</body></html>"))
	}))
	t.Cleanup(srv.Close)

	g, err := identity.NewGoTrue(srv.URL, "anon-key", identity.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	cookies, err := cookie.New([]string{strings.Repeat("s", 32)})
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodPost, "/en/auth/actions/password", nil)
	w := httptest.NewRecorder()
	a := auth.NewActions(identity.NewClient(g, cookies, cookie.NewJar(w, r)), testSettings(t))

	ctx := context.Background()
	assert.Equal(t, "An unexpected error occurred.", a.SignInWithPassword(ctx, "user@example.com", "password123"))
	assert.Equal(t, "An unexpected error occurred.", a.SignInWithEmail(ctx, "user@example.com"))
	assert.Equal(t, "An unexpected error occurred.", a.SignInWithPhone(ctx, "+491701234567", ""))
	assert.Empty(t, w.Result().Cookies())
}

func TestActions_VerifyEmailOTP(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	client.On("VerifyOTP", mock.Anything, identity.VerifyRequest{
		Type:  identity.OTPEmail,
		Email: "test@example.com",
		Token: "123456",
	}).Return(nil).Once()

	a := auth.NewActions(client, testSettings(t))
	assert.Empty(t, a.VerifyEmailOTP(context.Background(), "test@example.com", "123456"))
	client.AssertExpectations(t)
}

func TestActions_Phone(t *testing.T) {
	t.Parallel()

	client := &mockClient{}
	client.On("SendOTP", mock.Anything, identity.OTPRequest{
		Phone:      "+491701234567",
		Channel:    identity.ChannelWhatsApp,
		CreateUser: true,
	}).Return(nil).Once()
	client.On("VerifyOTP", mock.Anything, identity.VerifyRequest{
		Type:  identity.OTPSMS,
		Phone: "+491701234567",
		Token: "654321",
	}).Return(nil).Once()

	client.On("VerifyOTP", mock.Anything, identity.VerifyRequest{
		Type:  identity.OTPSMS,
		Phone: "+491701234567",
		Token: "AB12cd",
	}).Return(nil).Once()

	a := auth.NewActions(client, testSettings(t))
	assert.Empty(t, a.SignInWithPhone(context.Background(), "+49 170 1234567", identity.ChannelWhatsApp))
	assert.Empty(t, a.VerifyPhoneOTP(context.Background(), "+491701234567", "654321"))
	assert.Empty(t, a.VerifyPhoneOTP(context.Background(), "+491701234567", "AB12cd"), "codes are checked for length only")
	client.AssertExpectations(t)
}

func TestActions_PasswordFlows(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("sign in rejection", func(t *testing.T) {
		t.Parallel()
		client := &mockClient{}
		client.On("SignInWithPassword", mock.Anything, identity.Credentials{Email: "test@example.com", Password: "password123"}).
			Return(&identity.Error{Status: 400, Code: "invalid_credentials", Message: "Invalid login credentials"}).Once()
		assert.Equal(t, "Invalid login credentials",
			auth.NewActions(client, testSettings(t)).SignInWithPassword(ctx, "test@example.com", "password123"))
	})

	t.Run("sign up", func(t *testing.T) {
		t.Parallel()
		client := &mockClient{}
		client.On("SignUp", mock.Anything, identity.SignUpRequest{
			Email:      "new@example.com",
			Password:   "password123",
			RedirectTo: "https://app.example.com/en/auth/callbacks/email-signin",
		}).Return(true, nil).Once()
		assert.Empty(t, auth.NewActions(client, testSettings(t)).SignUp(ctx, "new@example.com", "password123"))
		client.AssertExpectations(t)
	})

	t.Run("forgot password", func(t *testing.T) {
		t.Parallel()
		client := &mockClient{}
		client.On("ResetPasswordForEmail", mock.Anything, "test@example.com",
			"https://app.example.com/en/auth/callbacks/password-reset").Return(nil).Once()
		assert.Empty(t, auth.NewActions(client, testSettings(t)).ForgotPassword(ctx, "test@example.com"))
		client.AssertExpectations(t)
	})

	t.Run("update without session", func(t *testing.T) {
		t.Parallel()
		client := &mockClient{}
		client.On("UpdatePassword", mock.Anything, "password123").Return(identity.ErrNoSession).Once()
		assert.Equal(t, "Your password could not be updated. Please try again.",
			auth.NewActions(client, testSettings(t)).UpdatePassword(ctx, "password123", "password123"))
	})

	t.Run("sign out", func(t *testing.T) {
		t.Parallel()
		client := &mockClient{}
		client.On("SignOut", mock.Anything).Return(nil).Once()
		assert.Empty(t, auth.NewActions(client, testSettings(t)).SignOut(ctx))
	})
}

func TestActions_SignInWithOAuth(t *testing.T) {
	t.Parallel()

	t.Run("returns provider url", func(t *testing.T) {
		t.Parallel()
		client := &mockClient{}
		client.On("SignInWithOAuth", "github", "https://app.example.com/en/auth/callbacks/openid").
			Return("https://idp.example.com/authorize?provider=github", nil).Once()

		target, msg := auth.NewActions(client, testSettings(t)).SignInWithOAuth(context.Background(), "github")
		assert.Empty(t, msg)
		assert.Equal(t, "https://idp.example.com/authorize?provider=github", target)
	})

	t.Run("unconfigured provider", func(t *testing.T) {
		t.Parallel()
		client := &mockClient{}
		target, msg := auth.NewActions(client, testSettings(t)).SignInWithOAuth(context.Background(), "apple")
		assert.Empty(t, target)
		assert.Equal(t, "Unknown sign-in provider.", msg)
		assert.Empty(t, client.Calls)
	})

	t.Run("oauth disabled", func(t *testing.T) {
		t.Parallel()
		client := &mockClient{}
		s := testSettings(t, func(c *auth.Config) { c.Methods = []string{"PASSWORD_SIGNIN"} })
		_, msg := auth.NewActions(client, s).SignInWithOAuth(context.Background(), "google")
		assert.NotEmpty(t, msg)
		assert.Empty(t, client.Calls)
	})
}

func TestActions_OTPRateLimit(t *testing.T) {
	t.Parallel()

	limiter, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), ratelimiter.Config{
		Capacity:       1,
		RefillRate:     1,
		RefillInterval: time.Hour,
	})
	require.NoError(t, err)

	client := &mockClient{}
	client.On("SendOTP", mock.Anything, mock.Anything).Return(nil).Twice()

	a := auth.NewActions(client, testSettings(t), auth.WithOTPLimiter(limiter, "203.0.113.7"))
	ctx := context.Background()

	assert.Empty(t, a.SignInWithEmail(ctx, "test@example.com"))
	assert.Contains(t, a.SignInWithEmail(ctx, "test@example.com"), "Too many attempts")
	assert.Empty(t, a.SignInWithEmail(ctx, "other@example.com"), "limit is per identifier")

	client.AssertNumberOfCalls(t, "SendOTP", 2)
}
