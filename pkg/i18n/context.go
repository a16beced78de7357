package i18n

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/authstarter/pkg/logger"
)

type localeKey struct{}

func SetLocale(ctx context.Context, locale string) context.Context {
	return context.WithValue(ctx, localeKey{}, locale)
}

// GetLocale returns an empty string when no locale was resolved.
func GetLocale(ctx context.Context) string {
	locale, _ := ctx.Value(localeKey{}).(string)
	return locale
}

// LocaleOr returns the context locale or def.
func LocaleOr(ctx context.Context, def string) string {
	if locale := GetLocale(ctx); locale != "" {
		return locale
	}
	return def
}

// LoggerExtractor adds the resolved locale to records logged with ctx.
func LoggerExtractor() logger.ContextExtractor {
	return func(ctx context.Context) (slog.Attr, bool) {
		if locale := GetLocale(ctx); locale != "" {
			return logger.Locale(locale), true
		}
		return slog.Attr{}, false
	}
}
