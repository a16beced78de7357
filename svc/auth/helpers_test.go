package auth_test

import (
	"encoding/json"
	"html"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authstarter/handler"
	"github.com/dmitrymomot/authstarter/pkg/cookie"
	"github.com/dmitrymomot/authstarter/pkg/i18n"
	"github.com/dmitrymomot/authstarter/pkg/identity"
	"github.com/dmitrymomot/authstarter/svc/auth"
)

var testLocales = i18n.MustLocales([]string{"en", "de"}, "en")

// app is the full auth stack over an in-memory provider. It carries cookies
// between requests like a browser.
type app struct {
	t        *testing.T
	provider *identity.Memory
	cookies  *cookie.Manager
	router   http.Handler
	now      time.Time
	carried  map[string]string
}

type appOption func(*appConfig)

type appConfig struct {
	settings auth.Settings
	factory  auth.ClientFactory
}

func withSettings(s auth.Settings) appOption {
	return func(c *appConfig) { c.settings = s }
}

// withClient replaces the identity client of every request.
func withClient(client auth.IdentityClient) appOption {
	return func(c *appConfig) {
		c.factory = func(identity.CookieJar) (auth.IdentityClient, error) { return client, nil }
	}
}

func newApp(t *testing.T, opts ...appOption) *app {
	t.Helper()

	a := &app{t: t, now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC), carried: map[string]string{}}
	a.provider = identity.NewMemory(
		identity.WithMemoryClock(func() time.Time { return a.now }),
		identity.WithTokenTTL(time.Hour),
	)
	m, err := cookie.New([]string{strings.Repeat("k", 32)})
	require.NoError(t, err)
	a.cookies = m

	cfg := &appConfig{settings: testSettings(t)}
	handle := identity.NewHandle(func() (identity.Provider, error) { return a.provider, nil })
	cfg.factory = auth.NewClientFactory(handle, a.cookies, identity.WithClientClock(func() time.Time { return a.now }))
	for _, opt := range opts {
		opt(cfg)
	}

	h := auth.NewHandler(cfg.settings, testLocales, a.cookies, cfg.factory)
	r := chi.NewRouter()
	r.Use(i18n.RedirectMiddleware(testLocales))
	r.Use(auth.SessionMiddleware(cfg.settings, testLocales, cfg.factory, nil))
	r.Route("/{lang}", func(r chi.Router) {
		h.Routes(r)
		r.Get("/dashboard", func(w http.ResponseWriter, r *http.Request) {
			if u := auth.GetUserFromContext(r.Context()); u != nil {
				_, _ = w.Write([]byte("dashboard of " + u.Email))
			}
		})
	})
	a.router = r
	return a
}

// get issues a plain browser request.
func (a *app) get(target string) *httptest.ResponseRecorder {
	return a.serve(httptest.NewRequest(http.MethodGet, target, nil))
}

// action issues a Datastar action with the given signals.
func (a *app) action(target string, sig auth.Signals) *httptest.ResponseRecorder {
	body, err := json.Marshal(sig)
	require.NoError(a.t, err)
	r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(string(body)))
	r.Header.Set(handler.DataStarHeader, "true")
	r.Header.Set("Content-Type", "application/json")
	return a.serve(r)
}

func (a *app) serve(r *http.Request) *httptest.ResponseRecorder {
	r.RemoteAddr = "203.0.113.7:41000"
	for name, value := range a.carried {
		r.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, r)
	for _, c := range w.Result().Cookies() {
		if c.MaxAge < 0 || c.Value == "" {
			delete(a.carried, c.Name)
			continue
		}
		a.carried[c.Name] = c.Value
	}
	return w
}

func (a *app) signedIn() bool {
	_, ok := a.carried[identity.DefaultSessionCookie]
	return ok
}

// text returns the body with HTML entities decoded.
func text(w *httptest.ResponseRecorder) string {
	return html.UnescapeString(w.Body.String())
}
