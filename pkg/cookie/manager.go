package cookie

import (
	"errors"
	"fmt"
	"net/http"
	"slices"
	"time"
)

const (
	minSecretLength = 32
	// MaxValueLength bounds a cookie value; browsers drop cookies above ~4KB
	// including attributes.
	MaxValueLength = 3800
)

// Manager writes plain, signed and encrypted cookies with shared defaults.
type Manager struct {
	keys     []keyPair
	defaults Options
}

// New requires at least one secret of 32+ characters. Extra secrets are
// accepted for reading so keys can be rotated without logging users out.
func New(secrets []string, opts ...Option) (*Manager, error) {
	secrets = slices.DeleteFunc(slices.Clone(secrets), func(s string) bool { return s == "" })
	if len(secrets) == 0 {
		return nil, ErrNoSecret
	}

	keys := make([]keyPair, 0, len(secrets))
	for i, s := range secrets {
		if len(s) < minSecretLength {
			return nil, fmt.Errorf("%w: secret %d has %d chars, need %d", ErrSecretTooShort, i, len(s), minSecretLength)
		}
		kp, err := deriveKeys(s)
		if err != nil {
			return nil, err
		}
		keys = append(keys, kp)
	}

	return &Manager{
		keys: keys,
		defaults: apply(Options{
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		}, opts),
	}, nil
}

func NewFromConfig(cfg Config, opts ...Option) (*Manager, error) {
	base := []Option{
		WithSecure(cfg.Secure),
		WithSameSite(parseSameSite(cfg.SameSite)),
	}
	if cfg.Path != "" {
		base = append(base, WithPath(cfg.Path))
	}
	if cfg.Domain != "" {
		base = append(base, WithDomain(cfg.Domain))
	}
	if cfg.MaxAge != 0 {
		base = append(base, WithMaxAge(cfg.MaxAge))
	}
	return New(splitSecrets(cfg.Secrets), append(base, opts...)...)
}

// Cookie builds a cookie with the manager defaults.
func (m *Manager) Cookie(name, value string, opts ...Option) *http.Cookie {
	o := apply(m.defaults, opts)
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     o.Path,
		Domain:   o.Domain,
		MaxAge:   o.MaxAge,
		Secure:   o.Secure,
		HttpOnly: o.HttpOnly,
		SameSite: o.SameSite,
	}
}

// Expired builds a deletion cookie matching the defaults' path and domain.
func (m *Manager) Expired(name string) *http.Cookie {
	c := m.Cookie(name, "")
	c.MaxAge = -1
	c.Expires = time.Unix(0, 0)
	return c
}

func (m *Manager) Set(w http.ResponseWriter, name, value string, opts ...Option) error {
	if len(value) > MaxValueLength {
		return ErrValueTooLarge
	}
	http.SetCookie(w, m.Cookie(name, value, opts...))
	return nil
}

func (m *Manager) Get(r *http.Request, name string) (string, error) {
	c, err := r.Cookie(name)
	if err != nil {
		if errors.Is(err, http.ErrNoCookie) {
			return "", ErrCookieNotFound
		}
		return "", err
	}
	return c.Value, nil
}

func (m *Manager) Delete(w http.ResponseWriter, name string) {
	http.SetCookie(w, m.Expired(name))
}

func (m *Manager) SetSigned(w http.ResponseWriter, name, value string, opts ...Option) error {
	return m.Set(w, name, m.Sign(value), opts...)
}

func (m *Manager) GetSigned(r *http.Request, name string) (string, error) {
	v, err := m.Get(r, name)
	if err != nil {
		return "", err
	}
	return m.Verify(v)
}

// SetEncrypted stores value AES-GCM sealed and bound to the cookie name.
func (m *Manager) SetEncrypted(w http.ResponseWriter, name, value string, opts ...Option) error {
	sealed, err := m.Seal(name, value)
	if err != nil {
		return err
	}
	return m.Set(w, name, sealed, opts...)
}

func (m *Manager) GetEncrypted(r *http.Request, name string) (string, error) {
	v, err := m.Get(r, name)
	if err != nil {
		return "", err
	}
	return m.Open(name, v)
}
