// Package handler provides typed HTTP handlers and the responses they
// return: templ components, Datastar SSE streams, redirects and JSON.
//
// A HandlerFunc receives a Context and a request value filled by binders,
// and returns a Response:
//
//	type signals struct {
//		Email string `json:"email"`
//	}
//
//	func send(ctx handler.Context, req signals) handler.Response {
//		return handler.NewStream().Signals(map[string]any{"otpSent": true})
//	}
//
//	r.Post("/actions/email", handler.Wrap(send,
//		handler.WithBinders[handler.Context, signals](handler.BindSignals),
//	))
//
// Responses adapt to the caller: Datastar requests receive SSE patches,
// regular requests receive HTML or an HTTP redirect.
package handler
