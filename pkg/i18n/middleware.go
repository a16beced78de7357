package i18n

import (
	"log/slog"
	"net/http"

	"github.com/dmitrymomot/authstarter/pkg/logger"
)

type middlewareOptions struct {
	log    *slog.Logger
	status int
	skip   func(*http.Request) bool
}

type MiddlewareOption func(*middlewareOptions)

func WithLogger(l *slog.Logger) MiddlewareOption {
	return func(o *middlewareOptions) {
		if l != nil {
			o.log = l
		}
	}
}

// WithRedirectStatus overrides the default 307 Temporary Redirect.
func WithRedirectStatus(code int) MiddlewareOption {
	return func(o *middlewareOptions) { o.status = code }
}

// WithSkipper bypasses the middleware for matching requests.
func WithSkipper(skip func(*http.Request) bool) MiddlewareOption {
	return func(o *middlewareOptions) { o.skip = skip }
}

// RedirectMiddleware makes every URL carry a locale segment. Requests
// without one are redirected to the same path and query prefixed with the
// negotiated locale, and nothing downstream runs. The path keeps its
// original encoding. Prefixed requests pass
// through unchanged with the locale stored in the context.
func RedirectMiddleware(locales Locales, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	o := &middlewareOptions{log: logger.Nop(), status: http.StatusTemporaryRedirect}
	for _, opt := range opts {
		opt(o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if o.skip != nil && o.skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			if locale, _, ok := locales.SplitPath(r.URL.Path); ok {
				next.ServeHTTP(w, r.WithContext(SetLocale(r.Context(), locale)))
				return
			}

			locale := locales.Negotiate(r.Header.Get("Accept-Language"))
			target := PrefixPath(locale, r.URL.EscapedPath())
			if r.URL.RawQuery != "" {
				target += "?" + r.URL.RawQuery
			}

			o.log.DebugContext(r.Context(), "locale redirect",
				logger.Component("i18n"),
				logger.Path(r.URL.Path),
				logger.Locale(locale),
			)
			http.Redirect(w, r, target, o.status)
		})
	}
}
