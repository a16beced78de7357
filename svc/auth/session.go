package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/authstarter/pkg/cookie"
	"github.com/dmitrymomot/authstarter/pkg/i18n"
	"github.com/dmitrymomot/authstarter/pkg/identity"
	"github.com/dmitrymomot/authstarter/pkg/logger"
)

// ClientFactory builds the identity client bound to one request's cookies.
type ClientFactory func(jar identity.CookieJar) (IdentityClient, error)

// NewClientFactory binds the process wide provider handle and cookie
// manager. The provider is resolved on first use.
func NewClientFactory(h *identity.Handle, cookies *cookie.Manager, opts ...identity.ClientOption) ClientFactory {
	return func(jar identity.CookieJar) (IdentityClient, error) {
		p, err := h.Get()
		if err != nil {
			return nil, err
		}
		return identity.NewClient(p, cookies, jar, opts...), nil
	}
}

type clientContextKey struct{}

func withClient(ctx context.Context, c IdentityClient) context.Context {
	return context.WithValue(ctx, clientContextKey{}, c)
}

// ClientFromContext returns the client built by SessionMiddleware.
func ClientFromContext(ctx context.Context) (IdentityClient, bool) {
	c, ok := ctx.Value(clientContextKey{}).(IdentityClient)
	return c, ok
}

// SessionMiddleware loads the signed in user and gates protected routes.
//
// The identity client writes through a cookie.Jar that mirrors every cookie
// onto w at once, so a session rotated during GetUser survives both the
// pass-through and the redirect. The same writer is handed downstream.
func SessionMiddleware(settings Settings, locales i18n.Locales, newClient ClientFactory, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.Nop()
	}
	log = log.With(logger.Component("auth.session"))

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			jar := cookie.NewJar(w, r)
			client, err := newClient(jar)
			if err != nil {
				log.ErrorContext(r.Context(), "identity client unavailable", logger.Error(err))
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
			user, err := client.GetUser(r.Context())
			if err != nil {
				log.WarnContext(r.Context(), "load user failed, continuing anonymously", logger.Error(err))
				user = nil
			}

			locale, rest, ok := locales.SplitPath(r.URL.Path)
			if !ok {
				locale, rest = i18n.LocaleOr(r.Context(), locales.Default()), r.URL.Path
			}

			if user == nil && settings.IsProtected(rest) {
				log.DebugContext(r.Context(), "protected route requires sign in", logger.Path(r.URL.Path))
				http.Redirect(w, r, i18n.PrefixPath(locale, PathAuth), http.StatusSeeOther)
				return
			}

			req := jar.Request()
			ctx := withClient(req.Context(), client)
			if user != nil {
				ctx = SetUserToContext(ctx, user)
			}
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

// RequireUser rejects anonymous requests with 401. Use it on JSON APIs,
// where a redirect to the auth page is not useful.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetUserFromContext(r.Context()) == nil {
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
