package i18n

import (
	"log/slog"
	"strings"
)

// DefaultLanguage is used when no default is configured.
const DefaultLanguage = "en"

// TranslatorOption configures a Translator.
type TranslatorOption func(*Translator)

// WithDefaultLanguage sets the language every other one falls back to.
func WithDefaultLanguage(lang string) TranslatorOption {
	return func(t *Translator) {
		if lang != "" {
			t.defaultLang = strings.ToLower(lang)
		}
	}
}

// WithFallbackToKey returns the key when a message is missing everywhere.
// Enabled by default.
func WithFallbackToKey(fallback bool) TranslatorOption {
	return func(t *Translator) { t.fallbackToKey = fallback }
}

func WithTranslatorLogger(l *slog.Logger) TranslatorOption {
	return func(t *Translator) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithMissingTranslationsLogging logs lookups that miss the requested
// language. Off by default.
func WithMissingTranslationsLogging(enabled bool) TranslatorOption {
	return func(t *Translator) { t.missingLogMode = enabled }
}
