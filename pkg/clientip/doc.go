// Package clientip resolves the originating client address of a request
// served behind reverse proxies.
//
// A Resolver checks the configured headers in order and falls back to the
// TCP peer address. Only list headers your proxy overwrites; anything else
// can be forged by the client.
//
//	res := clientip.New(cfg)
//	r.Use(clientip.Middleware(res))
//
//	// later, in a handler or rate limit key
//	ip := clientip.FromContext(r.Context())
package clientip
