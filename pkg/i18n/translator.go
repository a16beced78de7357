package i18n

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/dmitrymomot/authstarter/pkg/logger"
)

// Translator looks up messages in dictionaries loaded through an adapter.
// Keys are dot separated paths into nested maps, e.g. "auth.title.signin".
type Translator struct {
	translations   map[string]map[string]any
	defaultLang    string
	fallbackToKey  bool
	missingLogMode bool
	logger         *slog.Logger
	mu             sync.RWMutex
}

// NewTranslator loads the dictionaries from adapter. The dictionary of the
// default language must be present; other languages fall back to it per key.
func NewTranslator(ctx context.Context, adapter TranslationAdapter, opts ...TranslatorOption) (*Translator, error) {
	if adapter == nil {
		return nil, ErrNilAdapter
	}

	t := &Translator{
		defaultLang:   DefaultLanguage,
		fallbackToKey: true,
		logger:        logger.Nop(),
	}
	for _, opt := range opts {
		opt(t)
	}

	translations, err := adapter.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateTranslations(translations, t.defaultLang); err != nil {
		return nil, err
	}

	t.translations = translations
	t.logger.DebugContext(ctx, "translations loaded", slog.Any("languages", t.supportedLanguages()))
	return t, nil
}

func validateTranslations(trans map[string]map[string]any, def string) error {
	if len(trans) == 0 {
		return ErrNoTranslations
	}
	for lang, messages := range trans {
		if lang == "" {
			return errors.Join(ErrInvalidTranslations, errors.New("empty language code"))
		}
		if messages == nil {
			return errors.Join(ErrInvalidTranslations, fmt.Errorf("nil dictionary for %q", lang))
		}
	}
	if _, ok := trans[def]; !ok {
		return fmt.Errorf("%w: %s", ErrMissingDefault, def)
	}
	return nil
}

func (t *Translator) supportedLanguages() []string {
	langs := make([]string, 0, len(t.translations))
	for lang := range t.translations {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// SupportedLanguages lists the languages that have a dictionary.
func (t *Translator) SupportedLanguages() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.supportedLanguages()
}

// HasTranslation reports whether lang itself defines key.
func (t *Translator) HasTranslation(lang, key string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	messages, ok := t.translations[strings.ToLower(lang)]
	if !ok {
		return false
	}
	_, ok = lookup(messages, key)
	return ok
}

// lookup walks a nested dictionary along a dotted key.
func lookup(m map[string]any, key string) (string, bool) {
	parts := strings.Split(key, ".")
	current := m
	for i, part := range parts {
		val, ok := current[part]
		if !ok {
			return "", false
		}
		if i == len(parts)-1 {
			switch v := val.(type) {
			case string:
				return v, true
			case fmt.Stringer:
				return v.String(), true
			case int, float64, bool:
				return fmt.Sprint(v), true
			}
			return "", false
		}
		next, ok := val.(map[string]any)
		if !ok {
			return "", false
		}
		current = next
	}
	return "", false
}

// Named parameters in the form %{name}.
var paramRegex = regexp.MustCompile(`%\{([^}]+)\}`)

// format substitutes %{name} placeholders from key, value pairs. Unknown
// placeholders are kept and an odd trailing argument is ignored.
func format(tmpl string, args []string) string {
	if len(args) < 2 {
		return tmpl
	}
	params := make(map[string]string, len(args)/2)
	for i := 0; i+1 < len(args); i += 2 {
		params[args[i]] = args[i+1]
	}
	return paramRegex.ReplaceAllStringFunc(tmpl, func(match string) string {
		if val, ok := params[match[2:len(match)-1]]; ok {
			return val
		}
		return match
	})
}

// T translates key for lang, falling back to the default language and then
// to the key itself (or "" when key fallback is off).
//
//	// "auth.greeting": "Hello, %{name}!"
//	t.T("en", "auth.greeting", "name", "Ada") // "Hello, Ada!"
func (t *Translator) T(lang, key string, args ...string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	lang = strings.ToLower(lang)
	if msg, ok := lookup(t.translations[lang], key); ok {
		return format(msg, args)
	}
	if msg, ok := lookup(t.translations[t.defaultLang], key); ok {
		if t.missingLogMode && lang != "" && lang != t.defaultLang {
			t.logger.Warn("translation falls back to default language",
				logger.Locale(lang), slog.String("key", key))
		}
		return format(msg, args)
	}

	if t.missingLogMode {
		t.logger.Warn("translation not found", logger.Locale(lang), slog.String("key", key))
	}
	if t.fallbackToKey {
		return format(key, args)
	}
	return ""
}

// Tc translates key into the locale stored in ctx by RedirectMiddleware.
func (t *Translator) Tc(ctx context.Context, key string, args ...string) string {
	return t.T(GetLocale(ctx), key, args...)
}

// Td translates key or formats defaultValue when lang and the default
// language both lack it.
func (t *Translator) Td(lang, key, defaultValue string, args ...string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if msg, ok := lookup(t.translations[strings.ToLower(lang)], key); ok {
		return format(msg, args)
	}
	if msg, ok := lookup(t.translations[t.defaultLang], key); ok {
		return format(msg, args)
	}
	return format(defaultValue, args)
}
