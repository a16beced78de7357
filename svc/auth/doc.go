// Package auth is the sign-in experience: the form state machine, the
// Datastar actions behind each form, the provider callbacks and the session
// middleware that gates protected routes.
//
// Routes are mounted under a locale prefix:
//
//	r.Route("/{lang}", func(r chi.Router) {
//		auth.NewHandler(settings, locales, cookies, clients).Routes(r)
//	})
package auth
