package i18n

import (
	"errors"
	"fmt"
)

var (
	ErrNoLocales           = errors.New("i18n: no supported locales configured")
	ErrNilAdapter          = errors.New("i18n: translation adapter is nil")
	ErrNoTranslations      = errors.New("i18n: no translations found")
	ErrInvalidTranslations = errors.New("i18n: invalid translations")
	ErrMissingDefault      = errors.New("i18n: dictionary for default language is missing")

	ErrYAMLParsingCancelled = errors.New("i18n: yaml parsing cancelled")
	ErrFailedToParseYAML    = errors.New("i18n: failed to parse YAML content")

	ErrLoadingTranslationsCancelled  = errors.New("i18n: loading translations cancelled")
	ErrFailedToReadEmbeddedDirectory = errors.New("i18n: failed to read embedded directory")
	ErrFailedToReadEmbeddedFile      = errors.New("i18n: failed to read embedded translation file")
	ErrFailedToParseEmbeddedFile     = errors.New("i18n: failed to parse embedded translation file")
)

type InvalidLocaleError struct {
	Code string
	Err  error
}

func (e *InvalidLocaleError) Error() string {
	return fmt.Sprintf("i18n: invalid locale %q: %v", e.Code, e.Err)
}

func (e *InvalidLocaleError) Unwrap() error { return e.Err }
