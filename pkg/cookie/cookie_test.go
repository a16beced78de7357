package cookie_test

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authstarter/pkg/cookie"
)

const (
	secret    = "this-is-a-very-long-secret-key-32-chars-long"
	oldSecret = "this-is-old-very-long-secret-key-32-chars-ok"
)

func newManager(t *testing.T, secrets ...string) *cookie.Manager {
	t.Helper()
	if len(secrets) == 0 {
		secrets = []string{secret}
	}
	m, err := cookie.New(secrets)
	require.NoError(t, err)
	return m
}

// roundTrip copies Set-Cookie headers from rec onto a new request.
func roundTrip(rec *httptest.ResponseRecorder) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range rec.Result().Cookies() {
		req.AddCookie(c)
	}
	return req
}

func TestNew(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		secrets []string
		wantErr error
	}{
		{name: "no secrets", secrets: nil, wantErr: cookie.ErrNoSecret},
		{name: "empty secrets", secrets: []string{"", ""}, wantErr: cookie.ErrNoSecret},
		{name: "short secret", secrets: []string{"short"}, wantErr: cookie.ErrSecretTooShort},
		{name: "valid", secrets: []string{secret}},
		{name: "rotation", secrets: []string{secret, oldSecret}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := cookie.New(tt.secrets)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNewFromConfig(t *testing.T) {
	t.Parallel()

	m, err := cookie.NewFromConfig(cookie.Config{Secrets: " " + secret + " , ", Path: "/app", Secure: true, SameSite: "strict"})
	require.NoError(t, err)

	c := m.Cookie("sid", "v")
	assert.Equal(t, "/app", c.Path)
	assert.True(t, c.Secure)
	assert.True(t, c.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, c.SameSite)
}

func TestSigned(t *testing.T) {
	t.Parallel()
	m := newManager(t)

	rec := httptest.NewRecorder()
	require.NoError(t, m.SetSigned(rec, "locale", "en"))

	value, err := m.GetSigned(roundTrip(rec), "locale")
	require.NoError(t, err)
	assert.Equal(t, "en", value)

	_, sig, ok := strings.Cut(m.Sign("en"), ".")
	require.True(t, ok)
	_, err = m.Verify(base64.RawURLEncoding.EncodeToString([]byte("fr")) + "." + sig)
	assert.ErrorIs(t, err, cookie.ErrInvalidSignature)
}

func TestEncrypted(t *testing.T) {
	t.Parallel()

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		m := newManager(t)
		rec := httptest.NewRecorder()
		require.NoError(t, m.SetEncrypted(rec, "session", `{"access_token":"a"}`))

		raw := rec.Result().Cookies()[0].Value
		assert.NotContains(t, raw, "access_token")

		value, err := m.GetEncrypted(roundTrip(rec), "session")
		require.NoError(t, err)
		assert.Equal(t, `{"access_token":"a"}`, value)
	})

	t.Run("bound to name", func(t *testing.T) {
		t.Parallel()
		m := newManager(t)
		sealed, err := m.Seal("session", "secret")
		require.NoError(t, err)

		_, err = m.Open("other", sealed)
		assert.ErrorIs(t, err, cookie.ErrDecryptionFailed)
		assert.True(t, cookie.IsTampered(err))
	})

	t.Run("old secret still reads", func(t *testing.T) {
		t.Parallel()
		old := newManager(t, oldSecret)
		sealed, err := old.Seal("session", "v1")
		require.NoError(t, err)

		rotated := newManager(t, secret, oldSecret)
		value, err := rotated.Open("session", sealed)
		require.NoError(t, err)
		assert.Equal(t, "v1", value)
	})

	t.Run("missing cookie", func(t *testing.T) {
		t.Parallel()
		m := newManager(t)
		_, err := m.GetEncrypted(httptest.NewRequest(http.MethodGet, "/", nil), "session")
		assert.ErrorIs(t, err, cookie.ErrCookieNotFound)
		assert.False(t, cookie.IsTampered(err))
	})
}

func TestFlash(t *testing.T) {
	t.Parallel()
	m := newManager(t)

	rec := httptest.NewRecorder()
	require.NoError(t, m.SetFlash(rec, "notice", map[string]string{"kind": "success"}))

	read := httptest.NewRecorder()
	var got map[string]string
	require.NoError(t, m.GetFlash(read, roundTrip(rec), "notice", &got))
	assert.Equal(t, "success", got["kind"])

	deleted := read.Result().Cookies()
	require.Len(t, deleted, 1)
	assert.Equal(t, -1, deleted[0].MaxAge)
}

func TestJar(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "keep", Value: "1"})
	req.AddCookie(&http.Cookie{Name: "rotate", Value: "old"})
	req.AddCookie(&http.Cookie{Name: "drop", Value: "x"})
	rec := httptest.NewRecorder()

	jar := cookie.NewJar(rec, req)

	c, ok := jar.Get("rotate")
	require.True(t, ok)
	assert.Equal(t, "old", c.Value)

	jar.Set(&http.Cookie{Name: "rotate", Value: "new"})
	jar.Set(&http.Cookie{Name: "drop", MaxAge: -1})

	c, ok = jar.Get("rotate")
	require.True(t, ok)
	assert.Equal(t, "new", c.Value)
	_, ok = jar.Get("drop")
	assert.False(t, ok)

	assert.Len(t, rec.Result().Cookies(), 2, "writes are mirrored on the response")
	assert.Len(t, jar.Written(), 2)

	downstream := jar.Request()
	got, err := downstream.Cookie("rotate")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Value)
	_, err = downstream.Cookie("drop")
	assert.Error(t, err)
	_, err = downstream.Cookie("keep")
	assert.NoError(t, err)
}
