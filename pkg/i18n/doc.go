// Package i18n resolves the request locale and serves UI dictionaries.
//
// Every application URL carries its locale as the first path segment
// ("/en/auth"). RedirectMiddleware enforces this: a request without a
// supported prefix is redirected to the same path and query under the
// locale negotiated from Accept-Language (golang.org/x/text/language), or
// the default locale when only one is supported or nothing matches.
//
//	locales := i18n.MustLocales([]string{"en", "de"}, "en")
//	r.Use(i18n.RedirectMiddleware(locales))
//
// Translator serves YAML dictionaries loaded through an adapter and falls
// back to the default language key by key. Tc reads the locale the
// middleware stored in the request context:
//
//	tr, err := i18n.NewTranslator(ctx,
//		i18n.NewEmbeddedFsAdapter(i18n.NewYAMLParser(), localeFS, "locales"),
//		i18n.WithDefaultLanguage("en"),
//	)
//	title := tr.Tc(r.Context(), "auth.title.signin")
package i18n
