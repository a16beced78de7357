package i18n_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authstarter/pkg/i18n"
)

func TestLocales_Negotiate(t *testing.T) {
	t.Parallel()

	multi := i18n.MustLocales([]string{"en", "fr", "de"}, "en")
	single := i18n.MustLocales([]string{"en"}, "en")

	tests := []struct {
		name    string
		locales i18n.Locales
		header  string
		want    string
	}{
		{name: "weighted preference", locales: multi, header: "fr,en;q=0.8", want: "fr"},
		{name: "quality ordering", locales: multi, header: "en;q=0.5,de;q=0.9", want: "de"},
		{name: "region falls back to base", locales: multi, header: "de-CH", want: "de"},
		{name: "unsupported falls back to default", locales: multi, header: "ja,zh;q=0.9", want: "en"},
		{name: "empty header", locales: multi, header: "", want: "en"},
		{name: "garbage header", locales: multi, header: ";;;q=abc", want: "en"},
		{name: "single locale ignores header", locales: single, header: "fr,en;q=0.8", want: "en"},
		{name: "single locale without header", locales: single, header: "", want: "en"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.locales.Negotiate(tt.header))
		})
	}
}

func TestNewLocales(t *testing.T) {
	t.Parallel()

	l, err := i18n.NewLocales([]string{" EN ", "de", "de"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"en", "de"}, l.Supported())
	assert.Equal(t, "en", l.Default())

	l, err = i18n.NewLocales([]string{"de"}, "en")
	require.NoError(t, err)
	assert.True(t, l.IsSupported("en"), "default joins the supported set")

	_, err = i18n.NewLocales(nil, "")
	assert.ErrorIs(t, err, i18n.ErrNoLocales)

	_, err = i18n.NewLocales([]string{"not a locale!"}, "en")
	var invalid *i18n.InvalidLocaleError
	assert.ErrorAs(t, err, &invalid)
}

func TestLocales_SplitPath(t *testing.T) {
	t.Parallel()
	l := i18n.MustLocales([]string{"en", "de"}, "en")

	tests := []struct {
		path   string
		locale string
		rest   string
		ok     bool
	}{
		{"/en", "en", "/", true},
		{"/en/", "en", "/", true},
		{"/de/auth/callbacks/openid", "de", "/auth/callbacks/openid", true},
		{"/", "", "/", false},
		{"/english", "", "/english", false},
		{"/fr/auth", "", "/fr/auth", false},
		{"/auth", "", "/auth", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			t.Parallel()
			locale, rest, ok := l.SplitPath(tt.path)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.locale, locale)
			assert.Equal(t, tt.rest, rest)
		})
	}
}

func TestPaths(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "/en/", i18n.PrefixPath("en", "/"))
	assert.Equal(t, "/en/some-path", i18n.PrefixPath("en", "/some-path"))
	assert.Equal(t, "/en/a", i18n.PrefixPath("en", "//a"))
	assert.Equal(t, "/en", i18n.LocalizedPath("en", "/"))
	assert.Equal(t, "/de/auth", i18n.LocalizedPath("de", "auth"))
}

func TestRedirectMiddleware(t *testing.T) {
	t.Parallel()

	var reached int
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached++
		assert.NotEmpty(t, i18n.GetLocale(r.Context()))
		w.WriteHeader(http.StatusOK)
	})

	tests := []struct {
		name     string
		locales  []string
		target   string
		header   string
		code     int
		location string
	}{
		{name: "root", locales: []string{"en"}, target: "/", code: http.StatusTemporaryRedirect, location: "/en/"},
		{
			name:     "path and query preserved",
			locales:  []string{"en"},
			target:   "/some-path?param1=value1&param2=value2",
			code:     http.StatusTemporaryRedirect,
			location: "/en/some-path?param1=value1&param2=value2",
		},
		{name: "negotiated", locales: []string{"en", "fr", "de"}, target: "/", header: "fr,en;q=0.8", code: http.StatusTemporaryRedirect, location: "/fr/"},
		{name: "encoded question mark", locales: []string{"en"}, target: "/docs/a%3Fb", code: http.StatusTemporaryRedirect, location: "/en/docs/a%3Fb"},
		{name: "encoded slash", locales: []string{"en"}, target: "/files/a%2Fb?v=1", code: http.StatusTemporaryRedirect, location: "/en/files/a%2Fb?v=1"},
		{name: "encoded percent", locales: []string{"en"}, target: "/q/100%25", code: http.StatusTemporaryRedirect, location: "/en/q/100%25"},
		{name: "already prefixed", locales: []string{"en"}, target: "/en/auth", code: http.StatusOK},
		{name: "bare locale", locales: []string{"en", "de"}, target: "/de", code: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mw := i18n.RedirectMiddleware(i18n.MustLocales(tt.locales, "en"))(next)

			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Accept-Language", tt.header)
			}
			rec := httptest.NewRecorder()
			mw.ServeHTTP(rec, req)

			assert.Equal(t, tt.code, rec.Code)
			assert.Equal(t, tt.location, rec.Header().Get("Location"))
		})
	}
	assert.Equal(t, 2, reached, "redirects short-circuit the chain")
}

func TestRedirectMiddleware_Idempotent(t *testing.T) {
	t.Parallel()

	mw := i18n.RedirectMiddleware(i18n.MustLocales([]string{"en", "de"}, "en"))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) }),
	)

	for range 2 {
		rec := httptest.NewRecorder()
		mw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/de/dashboard?tab=1", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Empty(t, rec.Header().Get("Location"))
	}
}

func TestRedirectMiddleware_Skipper(t *testing.T) {
	t.Parallel()

	mw := i18n.RedirectMiddleware(
		i18n.MustLocales([]string{"en"}, "en"),
		i18n.WithSkipper(func(r *http.Request) bool { return r.URL.Path == "/favicon.ico" }),
	)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) }))

	rec := httptest.NewRecorder()
	mw.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	extract := i18n.LoggerExtractor()

	_, ok := extract(context.Background())
	assert.False(t, ok)

	attr, ok := extract(i18n.SetLocale(context.Background(), "de"))
	require.True(t, ok)
	assert.Equal(t, "locale", attr.Key)
	assert.Equal(t, "de", attr.Value.String())
}
