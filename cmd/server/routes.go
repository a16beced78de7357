package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/authstarter/pkg/clientip"
	"github.com/dmitrymomot/authstarter/pkg/httpserver"
	"github.com/dmitrymomot/authstarter/pkg/i18n"
	"github.com/dmitrymomot/authstarter/pkg/ratelimiter"
	"github.com/dmitrymomot/authstarter/pkg/requestid"
	"github.com/dmitrymomot/authstarter/pkg/routematch"
	"github.com/dmitrymomot/authstarter/svc/auth"
	"github.com/dmitrymomot/authstarter/svc/files"
)

type routerDeps struct {
	log        *slog.Logger
	settings   auth.Settings
	locales    i18n.Locales
	excluded   routematch.Matcher
	clientIP   clientip.Resolver
	auth       *auth.Handler
	clients    auth.ClientFactory
	uploads    *files.Service
	apiLimiter ratelimiter.Limiter
	checks     []httpserver.HealthCheck
}

// newRouter wires the locale redirect and then the session gate, both
// skipped for paths the matcher excludes.
func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(clientip.Middleware(d.clientIP), requestid.Middleware, middleware.Recoverer)

	// Middlewares mounted at the top so unmatched paths such as "/" are
	// still redirected to their locale.
	r.Use(
		d.excluded.Wrap(i18n.RedirectMiddleware(d.locales, i18n.WithLogger(d.log))),
		d.excluded.Wrap(auth.SessionMiddleware(d.settings, d.locales, d.clients, d.log)),
	)

	r.Get("/health/live", httpserver.HealthHandler(d.log))
	r.Get("/health/ready", httpserver.HealthHandler(d.log, d.checks...))

	r.Route("/{lang}", func(r chi.Router) {
		d.auth.Routes(r)
		if d.uploads != nil {
			r.With(
				auth.RequireUser,
				ratelimiter.Middleware(d.apiLimiter, ratelimiter.ByClientIP("uploads:"), d.log),
			).Mount("/api", d.uploads.Handle())
		}
	})
	return r
}
