package config

import (
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// registry keeps one parsed value per configuration type.
type registry struct {
	mu     sync.Mutex
	values map[reflect.Type]any
}

var (
	cache = &registry{values: make(map[reflect.Type]any)}

	envMu     sync.Mutex
	envLoaded bool
)

// LoadEnv loads the given .env files into the process environment.
// Without arguments the default .env in the working directory is used.
// Missing files are not an error: deployments usually inject real env vars.
// Only the first call has an effect until ResetCache is called.
func LoadEnv(files ...string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if envLoaded {
		return nil
	}
	envLoaded = true

	if len(files) == 0 {
		_ = godotenv.Load()
		return nil
	}

	if err := godotenv.Load(files...); err != nil {
		return errors.Join(ErrLoadingEnvFile, err)
	}
	return nil
}

// MustLoadEnv is LoadEnv that panics on failure.
func MustLoadEnv(files ...string) {
	if err := LoadEnv(files...); err != nil {
		panic(fmt.Sprintf("config: load env files: %v", err))
	}
}

// Load parses environment variables into v using `env` struct tags.
// Every configuration type is parsed once; subsequent calls copy the cached
// value, so settings stay fixed for the process lifetime.
//
//	type SiteConfig struct {
//		URL string `env:"SITE_URL" envDefault:"http://localhost:8080"`
//	}
//
//	var cfg SiteConfig
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
func Load[T any](v *T) error {
	if v == nil {
		return ErrNilPointer
	}
	_ = LoadEnv()

	typ := typeOf[T]()
	if typ.Kind() != reflect.Struct {
		return fmt.Errorf("%w: %s", ErrInvalidConfigType, typ)
	}

	cache.mu.Lock()
	defer cache.mu.Unlock()

	if cached, ok := cache.values[typ]; ok {
		*v = cached.(T)
		return nil
	}

	var parsed T
	if err := env.Parse(&parsed); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	cache.values[typ] = parsed
	*v = parsed

	return nil
}

// MustLoad is Load that panics on failure. Use it for settings the
// application cannot start without.
func MustLoad[T any](v *T) {
	if err := Load(v); err != nil {
		panic(fmt.Sprintf("config: load %s: %v", typeOf[T](), err))
	}
}

// ForceReloadConfig drops the cached value of T and parses the environment again.
func ForceReloadConfig[T any](v *T) error {
	cache.mu.Lock()
	delete(cache.values, typeOf[T]())
	cache.mu.Unlock()

	return Load(v)
}

// ResetCache forgets every parsed configuration and the .env load state.
// Intended for tests.
func ResetCache() {
	cache.mu.Lock()
	cache.values = make(map[reflect.Type]any)
	cache.mu.Unlock()

	envMu.Lock()
	envLoaded = false
	envMu.Unlock()
}

func typeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
