package i18n_test

import (
	"context"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authstarter/pkg/i18n"
)

var dictionaries = fstest.MapFS{
	"locales/en.yaml": {Data: []byte("en:\n  auth:\n    title:\n      signin: Sign in\n    greeting: \"Hello, %{name}!\"\n  notice: Done\n  retries: 3\n")},
	"locales/de.yml":  {Data: []byte("de:\n  auth:\n    title:\n      signin: Anmelden\n")},
	"locales/README":  {Data: []byte("ignored")},
}

func newTranslator(t *testing.T, opts ...i18n.TranslatorOption) *i18n.Translator {
	t.Helper()
	tr, err := i18n.NewTranslator(context.Background(),
		i18n.NewEmbeddedFsAdapter(i18n.NewYAMLParser(), dictionaries, "locales"),
		append([]i18n.TranslatorOption{i18n.WithDefaultLanguage("en")}, opts...)...,
	)
	require.NoError(t, err)
	return tr
}

func TestTranslator_T(t *testing.T) {
	t.Parallel()

	tr := newTranslator(t)

	tests := []struct {
		name string
		lang string
		key  string
		args []string
		want string
	}{
		{name: "nested key", lang: "de", key: "auth.title.signin", want: "Anmelden"},
		{name: "falls back to default language", lang: "de", key: "notice", want: "Done"},
		{name: "unknown language uses default", lang: "fr", key: "auth.title.signin", want: "Sign in"},
		{name: "language is case insensitive", lang: "DE", key: "auth.title.signin", want: "Anmelden"},
		{name: "named parameters", lang: "en", key: "auth.greeting", args: []string{"name", "Ada"}, want: "Hello, Ada!"},
		{name: "unknown parameter is kept", lang: "en", key: "auth.greeting", args: []string{"who", "Ada"}, want: "Hello, %{name}!"},
		{name: "non string scalar", lang: "en", key: "retries", want: "3"},
		{name: "missing key", lang: "en", key: "missing.key", want: "missing.key"},
		{name: "map is not a message", lang: "en", key: "auth.title", want: "auth.title"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tr.T(tt.lang, tt.key, tt.args...))
		})
	}
}

func TestTranslator_Tc(t *testing.T) {
	t.Parallel()

	tr := newTranslator(t)
	assert.Equal(t, "Anmelden", tr.Tc(i18n.SetLocale(context.Background(), "de"), "auth.title.signin"))
	assert.Equal(t, "Sign in", tr.Tc(context.Background(), "auth.title.signin"), "no locale in context")
}

func TestTranslator_Options(t *testing.T) {
	t.Parallel()

	tr := newTranslator(t, i18n.WithFallbackToKey(false))
	assert.Empty(t, tr.T("en", "missing.key"))
	assert.Equal(t, "Default", tr.Td("en", "missing.key", "Default"))
	assert.Equal(t, "Anmelden", tr.Td("de", "auth.title.signin", "Default"))

	assert.Equal(t, []string{"de", "en"}, tr.SupportedLanguages())
	assert.True(t, tr.HasTranslation("de", "auth.title.signin"))
	assert.False(t, tr.HasTranslation("de", "notice"))
}

func TestNewTranslator_Errors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	yaml := i18n.NewYAMLParser()

	_, err := i18n.NewTranslator(ctx, nil)
	require.ErrorIs(t, err, i18n.ErrNilAdapter)

	_, err = i18n.NewTranslator(ctx, i18n.NewEmbeddedFsAdapter(yaml, dictionaries, "locales"), i18n.WithDefaultLanguage("fr"))
	require.ErrorIs(t, err, i18n.ErrMissingDefault)

	_, err = i18n.NewTranslator(ctx, &i18n.MapAdapter{})
	require.ErrorIs(t, err, i18n.ErrNoTranslations)

	broken := fstest.MapFS{"locales/en.yaml": {Data: []byte("en: [1, 2]\n")}}
	_, err = i18n.NewTranslator(ctx, i18n.NewEmbeddedFsAdapter(yaml, broken, "locales"))
	require.ErrorIs(t, err, i18n.ErrFailedToParseEmbeddedFile)
	require.ErrorIs(t, err, i18n.ErrFailedToParseYAML)

	_, err = i18n.NewTranslator(ctx, i18n.NewEmbeddedFsAdapter(yaml, dictionaries, "missing"))
	require.ErrorIs(t, err, i18n.ErrFailedToReadEmbeddedDirectory)
}

func TestMapAdapter(t *testing.T) {
	t.Parallel()

	tr, err := i18n.NewTranslator(context.Background(), &i18n.MapAdapter{Data: map[string]map[string]any{
		"en": {"info": map[string]any{"saved": "Saved"}},
	}})
	require.NoError(t, err)
	assert.Equal(t, "Saved", tr.T("en", "info.saved"))
}

func TestYAMLParser_SupportsFileExtension(t *testing.T) {
	t.Parallel()

	p := i18n.NewYAMLParser()
	assert.True(t, p.SupportsFileExtension(".yaml"))
	assert.True(t, p.SupportsFileExtension("YML"))
	assert.False(t, p.SupportsFileExtension("json"))
}
