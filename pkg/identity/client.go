package identity

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/dmitrymomot/authstarter/pkg/cookie"
	"github.com/dmitrymomot/authstarter/pkg/logger"
)

const (
	DefaultSessionCookie  = "sb-auth-session"
	DefaultVerifierCookie = "sb-auth-verifier"

	defaultSessionMaxAge = 30 * 24 * 60 * 60
	verifierMaxAge       = 10 * 60
	defaultRefreshLeeway = 30 * time.Second
)

// CookieJar is the request scoped cookie store the client reads and writes
// through. Writes must reach the response immediately.
type CookieJar interface {
	Get(name string) (*http.Cookie, bool)
	Set(c *http.Cookie)
}

// Client is the identity client for one request. It keeps the session in an
// encrypted cookie and rotates it when the access token expires. Not safe for
// concurrent use.
type Client struct {
	provider Provider
	cookies  *cookie.Manager
	jar      CookieJar
	log      *slog.Logger
	now      func() time.Time

	sessionName   string
	verifierName  string
	sessionMaxAge int
	leeway        time.Duration

	loaded  bool
	current *storedSession
}

type storedSession struct {
	AccessToken  string `json:"a"`
	RefreshToken string `json:"r"`
	ExpiresAt    int64  `json:"e"`
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClientLogger sets the logger. A nil logger is ignored.
func WithClientLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithClientClock replaces time.Now when checking token expiry.
func WithClientClock(now func() time.Time) ClientOption {
	return func(c *Client) { c.now = now }
}

// WithSessionCookie overrides the session cookie name and lifetime in seconds.
func WithSessionCookie(name string, maxAge int) ClientOption {
	return func(c *Client) {
		if name != "" {
			c.sessionName = name
		}
		if maxAge > 0 {
			c.sessionMaxAge = maxAge
		}
	}
}

// WithRefreshLeeway refreshes tokens this long before they expire.
func WithRefreshLeeway(d time.Duration) ClientOption {
	return func(c *Client) { c.leeway = d }
}

// NewClient keeps the session of one request in jar, sealed by cookies.
func NewClient(p Provider, cookies *cookie.Manager, jar CookieJar, opts ...ClientOption) *Client {
	c := &Client{
		provider:      p,
		cookies:       cookies,
		jar:           jar,
		log:           logger.Nop(),
		now:           time.Now,
		sessionName:   DefaultSessionCookie,
		verifierName:  DefaultVerifierCookie,
		sessionMaxAge: defaultSessionMaxAge,
		leeway:        defaultRefreshLeeway,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With(logger.Component("identity.client"))
	return c
}

// GetUser returns the signed in user or nil. Expired access tokens are
// refreshed first and the rotated session is written back to the jar. A
// session the provider no longer accepts is cleared; any other failure is
// returned and the cookie is kept.
func (c *Client) GetUser(ctx context.Context) (*User, error) {
	s, err := c.session(ctx)
	if err != nil || s == nil {
		return nil, err
	}

	u, err := c.provider.GetUser(ctx, s.AccessToken)
	if err != nil {
		if IsUnauthorized(err) {
			c.log.DebugContext(ctx, "session rejected by provider", logger.Error(err))
			c.clear()
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func (c *Client) SendOTP(ctx context.Context, req OTPRequest) error {
	return c.provider.SendOTP(ctx, req)
}

func (c *Client) VerifyOTP(ctx context.Context, req VerifyRequest) error {
	s, err := c.provider.VerifyOTP(ctx, req)
	if err != nil {
		return err
	}
	return c.save(s)
}

func (c *Client) SignInWithPassword(ctx context.Context, creds Credentials) error {
	s, err := c.provider.SignInWithPassword(ctx, creds)
	if err != nil {
		return err
	}
	return c.save(s)
}

// SignUp reports whether the account still has to be confirmed by email.
func (c *Client) SignUp(ctx context.Context, req SignUpRequest) (bool, error) {
	s, err := c.provider.SignUp(ctx, req)
	if err != nil {
		return false, err
	}
	if s == nil {
		return true, nil
	}
	return false, c.save(s)
}

// ResetPasswordForEmail sends a reset link whose code is bound to a fresh
// PKCE verifier stored in a short lived cookie.
func (c *Client) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	challenge, err := c.newVerifier()
	if err != nil {
		return err
	}
	return c.provider.Recover(ctx, RecoverRequest{Email: email, RedirectTo: redirectTo, CodeChallenge: challenge})
}

// UpdatePassword changes the password of the signed in user.
func (c *Client) UpdatePassword(ctx context.Context, password string) error {
	s, err := c.session(ctx)
	if err != nil {
		return err
	}
	if s == nil {
		return ErrNoSession
	}
	_, err = c.provider.UpdateUser(ctx, s.AccessToken, UserUpdate{Password: password})
	return err
}

// SignInWithOAuth returns the provider URL the browser must be sent to.
func (c *Client) SignInWithOAuth(provider, redirectTo string) (string, error) {
	challenge, err := c.newVerifier()
	if err != nil {
		return "", err
	}
	return c.provider.AuthorizeURL(AuthorizeRequest{
		Provider:      provider,
		RedirectTo:    redirectTo,
		CodeChallenge: challenge,
	})
}

// ExchangeCodeForSession trades a callback code for a session using the
// stored verifier. The verifier cookie is consumed either way.
func (c *Client) ExchangeCodeForSession(ctx context.Context, code string) error {
	verifier := c.takeVerifier()
	s, err := c.provider.ExchangeCode(ctx, code, verifier)
	if err != nil {
		if verifier == "" {
			return errors.Join(ErrMissingVerifier, err)
		}
		return err
	}
	return c.save(s)
}

// SignOut revokes the session at the provider and always clears the cookie.
func (c *Client) SignOut(ctx context.Context) error {
	s := c.load()
	if s == nil {
		return nil
	}
	c.clear()
	if err := c.provider.Logout(ctx, s.AccessToken); err != nil && !IsUnauthorized(err) {
		return err
	}
	return nil
}

func (c *Client) session(ctx context.Context) (*storedSession, error) {
	s := c.load()
	if s == nil {
		return nil, nil
	}
	if c.now().Add(c.leeway).Before(time.Unix(s.ExpiresAt, 0)) {
		return s, nil
	}

	fresh, err := c.provider.Refresh(ctx, s.RefreshToken)
	if err != nil {
		if IsRejected(err) {
			c.log.DebugContext(ctx, "refresh rejected", logger.Error(err))
			c.clear()
			return nil, nil
		}
		return nil, err
	}
	if err := c.save(fresh); err != nil {
		return nil, err
	}
	return c.current, nil
}

func (c *Client) load() *storedSession {
	if c.loaded {
		return c.current
	}
	c.loaded = true

	ck, ok := c.jar.Get(c.sessionName)
	if !ok || ck.Value == "" {
		return nil
	}
	plain, err := c.cookies.Open(c.sessionName, ck.Value)
	if err != nil {
		c.log.Warn("discarding unreadable session cookie", logger.Error(err))
		c.jar.Set(c.cookies.Expired(c.sessionName))
		return nil
	}
	var s storedSession
	if err := json.Unmarshal([]byte(plain), &s); err != nil || s.AccessToken == "" {
		c.jar.Set(c.cookies.Expired(c.sessionName))
		return nil
	}
	c.current = &s
	return c.current
}

func (c *Client) save(s *Session) error {
	if s == nil || s.AccessToken == "" {
		return nil
	}
	stored := &storedSession{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		ExpiresAt:    s.Expiry(c.now()).Unix(),
	}
	raw, err := json.Marshal(stored)
	if err != nil {
		return err
	}
	sealed, err := c.cookies.Seal(c.sessionName, string(raw))
	if err != nil {
		return err
	}
	if len(sealed) > cookie.MaxValueLength {
		return ErrSessionTooLarge
	}
	c.jar.Set(c.cookies.Cookie(c.sessionName, sealed, cookie.WithMaxAge(c.sessionMaxAge)))
	c.loaded, c.current = true, stored
	return nil
}

func (c *Client) clear() {
	c.jar.Set(c.cookies.Expired(c.sessionName))
	c.loaded, c.current = true, nil
}

func (c *Client) newVerifier() (string, error) {
	verifier := oauth2.GenerateVerifier()
	sealed, err := c.cookies.Seal(c.verifierName, verifier)
	if err != nil {
		return "", err
	}
	c.jar.Set(c.cookies.Cookie(c.verifierName, sealed, cookie.WithMaxAge(verifierMaxAge)))
	return oauth2.S256ChallengeFromVerifier(verifier), nil
}

func (c *Client) takeVerifier() string {
	ck, ok := c.jar.Get(c.verifierName)
	if !ok {
		return ""
	}
	c.jar.Set(c.cookies.Expired(c.verifierName))
	v, err := c.cookies.Open(c.verifierName, ck.Value)
	if err != nil {
		return ""
	}
	return v
}
