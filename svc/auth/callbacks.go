package auth

import (
	"errors"
	"net/url"

	"github.com/dmitrymomot/authstarter/handler"
	"github.com/dmitrymomot/authstarter/pkg/identity"
	"github.com/dmitrymomot/authstarter/pkg/logger"
)

var (
	errMissingCode       = errors.New("callback without code")
	errMissingTokenHash  = errors.New("callback without token_hash")
	errProviderCancelled = errors.New("provider returned an error")
)

// OpenIDCallback finishes an OAuth handshake.
func (h *Handler) OpenIDCallback(ctx handler.Context, _ struct{}) handler.Response {
	q := ctx.Request().URL.Query()
	if reason := q.Get("error"); reason != "" {
		return h.callbackFailed(ctx, ErrorAuthenticationFailed,
			errors.Join(errProviderCancelled, errors.New(reason+": "+q.Get("error_description"))), PathAuth)
	}
	code := q.Get("code")
	if code == "" {
		return h.callbackFailed(ctx, ErrorInvalidCredentials, errMissingCode, PathAuth)
	}
	if err := h.exchange(ctx, code); err != nil {
		return h.callbackFailed(ctx, ErrorUnexpected, err, PathAuth)
	}
	return handler.Redirect(h.root(ctx))
}

// EmailSigninCallback verifies a magic link or signup confirmation.
func (h *Handler) EmailSigninCallback(ctx handler.Context, _ struct{}) handler.Response {
	q := ctx.Request().URL.Query()
	hash := q.Get("token_hash")
	if hash == "" {
		return h.callbackFailed(ctx, ErrorInvalidCredentials, errMissingTokenHash, PathAuth)
	}
	typ := identity.OTPType(q.Get("type"))
	if typ == "" {
		typ = identity.OTPMagicLink
	}

	client, err := h.client(ctx)
	if err != nil {
		return h.callbackFailed(ctx, ErrorUnexpected, err, PathAuth)
	}
	if err := client.VerifyOTP(ctx, identity.VerifyRequest{Type: typ, TokenHash: hash}); err != nil {
		return h.callbackFailed(ctx, ErrorUnexpected, err, PathAuth)
	}
	return handler.Redirect(h.root(ctx))
}

// PasswordResetCallback signs the user in with the recovery code and sends
// them to the update password page.
func (h *Handler) PasswordResetCallback(ctx handler.Context, _ struct{}) handler.Response {
	code := ctx.Request().URL.Query().Get("code")
	err := errMissingCode
	if code != "" {
		err = h.exchange(ctx, code)
	}
	if err != nil {
		return h.callbackFailed(ctx, ErrorUnexpected, err, PathForgotPassword)
	}
	return handler.Redirect(h.path(ctx, PathUpdatePassword))
}

func (h *Handler) exchange(ctx handler.Context, code string) error {
	client, err := h.client(ctx)
	if err != nil {
		return err
	}
	return client.ExchangeCodeForSession(ctx, code)
}

// callbackFailed logs the cause and redirects with only the error tag.
func (h *Handler) callbackFailed(ctx handler.Context, tag ErrorType, err error, target string) handler.Response {
	h.log.ErrorContext(ctx, string(tag)+": "+err.Error(),
		logger.ErrorType(string(tag)),
		logger.Path(ctx.Request().URL.Path),
	)
	return handler.Redirect(h.path(ctx, target) + "?error=" + url.QueryEscape(string(tag)))
}
