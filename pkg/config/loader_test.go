package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authstarter/pkg/config"
)

type siteConfig struct {
	URL   string `env:"TEST_SITE_URL" envDefault:"http://localhost:8080"`
	Debug bool   `env:"TEST_DEBUG" envDefault:"false"`
	Port  int    `env:"TEST_PORT" envDefault:"8080"`
}

type requiredConfig struct {
	Key string `env:"TEST_REQUIRED_KEY,required"`
}

type cachedConfig struct {
	Value string `env:"TEST_CACHED_VALUE" envDefault:"initial"`
}

func TestLoad(t *testing.T) {
	t.Run("reads environment values", func(t *testing.T) {
		config.ResetCache()
		t.Setenv("TEST_SITE_URL", "https://example.com")
		t.Setenv("TEST_DEBUG", "true")

		var cfg siteConfig
		require.NoError(t, config.Load(&cfg))
		assert.Equal(t, "https://example.com", cfg.URL)
		assert.True(t, cfg.Debug)
		assert.Equal(t, 8080, cfg.Port)
	})

	t.Run("missing required value", func(t *testing.T) {
		config.ResetCache()
		os.Unsetenv("TEST_REQUIRED_KEY")

		var cfg requiredConfig
		err := config.Load(&cfg)
		require.Error(t, err)
		assert.ErrorIs(t, err, config.ErrParsingConfig)
	})

	t.Run("nil pointer", func(t *testing.T) {
		var cfg *siteConfig
		assert.ErrorIs(t, config.Load(cfg), config.ErrNilPointer)
	})

	t.Run("non struct type", func(t *testing.T) {
		var s string
		assert.ErrorIs(t, config.Load(&s), config.ErrInvalidConfigType)
	})
}

func TestLoad_ReadsOnce(t *testing.T) {
	config.ResetCache()
	t.Setenv("TEST_CACHED_VALUE", "first")

	var first cachedConfig
	require.NoError(t, config.Load(&first))

	t.Setenv("TEST_CACHED_VALUE", "second")

	var second cachedConfig
	require.NoError(t, config.Load(&second))
	assert.Equal(t, "first", second.Value, "cached value must not change")

	var reloaded cachedConfig
	require.NoError(t, config.ForceReloadConfig(&reloaded))
	assert.Equal(t, "second", reloaded.Value)
}

func TestMustLoad_Panics(t *testing.T) {
	config.ResetCache()
	os.Unsetenv("TEST_REQUIRED_KEY")

	assert.Panics(t, func() {
		var cfg requiredConfig
		config.MustLoad(&cfg)
	})
}

func TestLoadEnv(t *testing.T) {
	t.Run("loads file", func(t *testing.T) {
		config.ResetCache()
		dir := t.TempDir()
		path := filepath.Join(dir, ".env.test")
		require.NoError(t, os.WriteFile(path, []byte("TEST_ENV_FILE_VALUE=from-file\n"), 0o600))
		t.Cleanup(func() { os.Unsetenv("TEST_ENV_FILE_VALUE") })

		require.NoError(t, config.LoadEnv(path))
		assert.Equal(t, "from-file", os.Getenv("TEST_ENV_FILE_VALUE"))
	})

	t.Run("missing explicit file", func(t *testing.T) {
		config.ResetCache()
		err := config.LoadEnv(filepath.Join(t.TempDir(), "absent.env"))
		assert.ErrorIs(t, err, config.ErrLoadingEnvFile)
	})

	t.Run("must load env panics", func(t *testing.T) {
		config.ResetCache()
		assert.Panics(t, func() {
			config.MustLoadEnv(filepath.Join(t.TempDir(), "absent.env"))
		})
	})
}
