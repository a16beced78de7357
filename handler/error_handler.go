package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/a-h/templ"

	"github.com/dmitrymomot/authstarter/pkg/logger"
	"github.com/dmitrymomot/authstarter/pkg/requestid"
	"github.com/dmitrymomot/authstarter/pkg/validator"
)

type ErrorPageParams struct {
	Status    int
	Message   string
	RequestID string
}

type ErrorToastParams struct {
	Message   string
	Level     string
	RequestID string
}

// ErrorHandlerConfig holds the components used to present errors.
type ErrorHandlerConfig struct {
	ErrorPage   func(ErrorPageParams) templ.Component
	ErrorToast  func(ErrorToastParams) templ.Component
	ToastTarget string
}

type errorInfo struct {
	status  int
	message string
}

func classify(err error) errorInfo {
	if verrs := validator.Extract(err); len(verrs) > 0 {
		return errorInfo{status: http.StatusUnprocessableEntity, message: verrs[0].Message}
	}
	var httpErr HTTPError
	if errors.As(err, &httpErr) {
		return errorInfo{status: httpErr.Code, message: http.StatusText(httpErr.Code)}
	}
	return errorInfo{status: http.StatusInternalServerError, message: "An unexpected error occurred."}
}

// NewErrorHandler answers Datastar requests with a toast and everything else
// with an error page. Server errors log at error level, client errors at warn.
func NewErrorHandler(log *slog.Logger, cfg ErrorHandlerConfig) ErrorHandler[Context] {
	if log == nil {
		log = slog.Default()
	}
	if cfg.ToastTarget == "" {
		cfg.ToastTarget = "#toasts"
	}
	log = log.With(logger.Component("error_handler"))

	return func(ctx Context, err error) {
		r := ctx.Request()
		info := classify(err)
		reqID := requestid.FromContext(r.Context())

		level := slog.LevelWarn
		if info.status >= http.StatusInternalServerError {
			level = slog.LevelError
		}
		log.LogAttrs(r.Context(), level, "request failed",
			logger.Error(err),
			logger.Status(info.status),
			logger.Method(r.Method),
			logger.Path(r.URL.Path),
		)

		if IsDataStar(r) {
			if cfg.ErrorToast == nil {
				return
			}
			toast := cfg.ErrorToast(ErrorToastParams{Message: info.message, Level: "error", RequestID: reqID})
			if rerr := Templ(toast, WithTarget(cfg.ToastTarget), WithPatchMode(PatchAppend)).Render(ctx.ResponseWriter(), r); rerr != nil {
				log.ErrorContext(r.Context(), "render error toast", logger.Error(rerr))
			}
			return
		}

		if cfg.ErrorPage == nil {
			http.Error(ctx.ResponseWriter(), info.message, info.status)
			return
		}
		page := cfg.ErrorPage(ErrorPageParams{Status: info.status, Message: info.message, RequestID: reqID})
		if rerr := TemplStatus(info.status, page).Render(ctx.ResponseWriter(), r); rerr != nil {
			log.ErrorContext(r.Context(), "render error page", logger.Error(rerr))
		}
	}
}
