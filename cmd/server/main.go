package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"slices"

	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/authstarter/pkg/clientip"
	"github.com/dmitrymomot/authstarter/pkg/config"
	"github.com/dmitrymomot/authstarter/pkg/cookie"
	"github.com/dmitrymomot/authstarter/pkg/httpserver"
	"github.com/dmitrymomot/authstarter/pkg/i18n"
	"github.com/dmitrymomot/authstarter/pkg/identity"
	"github.com/dmitrymomot/authstarter/pkg/logger"
	"github.com/dmitrymomot/authstarter/pkg/ratelimiter"
	"github.com/dmitrymomot/authstarter/pkg/redis"
	"github.com/dmitrymomot/authstarter/pkg/requestid"
	"github.com/dmitrymomot/authstarter/pkg/routematch"
	"github.com/dmitrymomot/authstarter/pkg/storage"
	"github.com/dmitrymomot/authstarter/svc/auth"
	"github.com/dmitrymomot/authstarter/svc/files"
)

type appConfig struct {
	Log      logger.Config
	HTTP     httpserver.Config
	Auth     auth.Config
	Identity identity.Config
	Cookie   cookie.Config
	I18n     i18n.Config
	Routes   routematch.Config
	ClientIP clientip.Config
	Redis    redis.Config
	Limit    ratelimiter.Config
	Storage  storage.Config
	Upload   files.Config
}

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("server stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var cfg appConfig
	if err := config.Load(&cfg); err != nil {
		return err
	}

	log := logger.NewFromConfig(cfg.Log,
		logger.WithContextExtractors(requestid.LoggerExtractor(), i18n.LoggerExtractor(), auth.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	settings, err := auth.NewSettings(cfg.Auth)
	if err != nil {
		return err
	}
	locales, err := i18n.NewLocalesFromConfig(cfg.I18n)
	if err != nil {
		return err
	}
	tr, err := auth.NewTranslator(ctx,
		i18n.WithTranslatorLogger(log),
		i18n.WithMissingTranslationsLogging(true),
	)
	if err != nil {
		return err
	}
	for _, locale := range locales.Supported() {
		if !slices.Contains(tr.SupportedLanguages(), locale) {
			log.Warn("no dictionary for locale, messages fall back to the default", logger.Locale(locale))
		}
	}
	cookies, err := cookie.NewFromConfig(cfg.Cookie)
	if err != nil {
		return err
	}
	// Built on first request so a missing provider does not block startup.
	provider := identity.NewHandle(func() (identity.Provider, error) {
		return identity.NewFromConfig(cfg.Identity, log)
	})

	store, checks, closeStore, err := limiterStore(ctx, cfg.Redis, log)
	if err != nil {
		return err
	}
	defer closeStore()

	sendLimiter, err := ratelimiter.NewBucket(store, ratelimiter.Config{
		Capacity:       cfg.Auth.OTPBurst,
		RefillRate:     1,
		RefillInterval: cfg.Auth.OTPInterval,
	})
	if err != nil {
		return err
	}
	apiLimiter, err := ratelimiter.NewBucket(store, cfg.Limit)
	if err != nil {
		return err
	}

	var uploads *files.Service
	if cfg.Storage.Bucket != "" {
		s, err := storage.New(ctx, cfg.Storage)
		if err != nil {
			return err
		}
		uploads = files.NewService(s, cfg.Upload.Limits(), files.WithLogger(log))
	} else {
		log.Warn("S3_BUCKET is not set, uploads are disabled")
	}

	clients := auth.NewClientFactory(provider, cookies, identity.WithClientLogger(log))
	router := newRouter(routerDeps{
		log:      log,
		settings: settings,
		locales:  locales,
		excluded: routematch.New(cfg.Routes),
		clientIP: clientip.New(cfg.ClientIP),
		auth: auth.NewHandler(settings, locales, cookies, clients,
			auth.WithHandlerLogger(log),
			auth.WithTranslator(tr),
			auth.WithSendLimiter(sendLimiter),
		),
		clients:    clients,
		uploads:    uploads,
		apiLimiter: apiLimiter,
		checks:     checks,
	})

	srv := httpserver.NewFromConfig(cfg.HTTP, httpserver.WithLogger(log))
	return srv.Run(ctx, router)
}

// limiterStore uses Redis when REDIS_URL is set so limits hold across
// replicas, and process memory otherwise.
func limiterStore(ctx context.Context, cfg redis.Config, log *slog.Logger) (ratelimiter.Store, []httpserver.HealthCheck, func(), error) {
	if !cfg.Enabled() {
		log.Info("REDIS_URL is not set, rate limits are per process")
		mem := ratelimiter.NewMemoryStore()
		return mem, nil, mem.Close, nil
	}
	client, err := redis.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, nil, errors.Join(errors.New("connect rate limit store"), err)
	}
	checks := []httpserver.HealthCheck{{Name: "redis", Check: redis.Healthcheck(client)}}
	return ratelimiter.NewRedisStore(client), checks, func() { closeRedis(client, log) }, nil
}

func closeRedis(client *goredis.Client, log *slog.Logger) {
	if err := client.Close(); err != nil {
		log.Error("close redis", logger.Error(err))
	}
}
