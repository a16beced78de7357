package i18n

import (
	"slices"
	"strings"

	"golang.org/x/text/language"
)

// maxAcceptLanguageLength bounds the header we are willing to parse.
const maxAcceptLanguageLength = 4096

// Config lists supported locales; the first entry is used when
// I18N_DEFAULT_LOCALE is empty.
type Config struct {
	Locales       []string `env:"I18N_LOCALES" envSeparator:"," envDefault:"en"`
	DefaultLocale string   `env:"I18N_DEFAULT_LOCALE" envDefault:"en"`
}

// Locales is the fixed set of locales the application serves.
type Locales struct {
	supported []string
	def       string
	order     []string
	matcher   language.Matcher
}

// NewLocales normalizes codes to lower case and drops duplicates. The
// default is added to the supported set when missing.
func NewLocales(supported []string, def string) (Locales, error) {
	var list []string
	for _, code := range supported {
		code = strings.ToLower(strings.TrimSpace(code))
		if code == "" || slices.Contains(list, code) {
			continue
		}
		list = append(list, code)
	}

	def = strings.ToLower(strings.TrimSpace(def))
	if def == "" && len(list) > 0 {
		def = list[0]
	}
	if def == "" {
		return Locales{}, ErrNoLocales
	}
	if !slices.Contains(list, def) {
		list = append([]string{def}, list...)
	}

	// The matcher falls back to its first tag, so the default goes first.
	order := append([]string{def}, slices.DeleteFunc(slices.Clone(list), func(c string) bool { return c == def })...)
	tags := make([]language.Tag, 0, len(order))
	for _, code := range order {
		tag, err := language.Parse(code)
		if err != nil {
			return Locales{}, &InvalidLocaleError{Code: code, Err: err}
		}
		tags = append(tags, tag)
	}

	return Locales{
		supported: list,
		def:       def,
		order:     order,
		matcher:   language.NewMatcher(tags),
	}, nil
}

func NewLocalesFromConfig(cfg Config) (Locales, error) {
	return NewLocales(cfg.Locales, cfg.DefaultLocale)
}

// MustLocales panics on invalid input; meant for tests and static setup.
func MustLocales(supported []string, def string) Locales {
	l, err := NewLocales(supported, def)
	if err != nil {
		panic(err)
	}
	return l
}

func (l Locales) Supported() []string { return slices.Clone(l.supported) }

func (l Locales) Default() string { return l.def }

func (l Locales) IsSupported(code string) bool {
	return slices.Contains(l.supported, strings.ToLower(code))
}

// Negotiate picks the best supported locale for an Accept-Language header.
// With a single supported locale the header is ignored entirely.
func (l Locales) Negotiate(acceptLanguage string) string {
	if len(l.supported) < 2 {
		return l.def
	}
	if len(acceptLanguage) > maxAcceptLanguageLength {
		acceptLanguage = acceptLanguage[:maxAcceptLanguageLength]
	}

	desired, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(desired) == 0 {
		return l.def
	}

	_, idx, confidence := l.matcher.Match(desired...)
	if confidence == language.No {
		return l.def
	}
	return l.order[idx]
}
