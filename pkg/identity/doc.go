// Package identity is the client side of the hosted identity provider.
//
// A Provider is the transport: GoTrue speaks the Supabase Auth REST API and
// Memory keeps accounts in process for development and tests. A Client binds
// a Provider to one request's cookie jar, persisting the session in an
// encrypted cookie and rotating it when the access token expires.
//
//	jar := cookie.NewJar(w, r)
//	client := identity.NewClient(provider, cookies, jar)
//	user, err := client.GetUser(ctx)
//
// Handle wraps provider construction in a lazily evaluated, process scoped
// value with a Reset hook for tests.
package identity
