// Package config loads typed application settings from environment variables.
//
// Values come from the process environment, optionally seeded from `.env`
// files through github.com/joho/godotenv, and are decoded into structs with
// github.com/caarlos0/env/v11 tags:
//
//	type Config struct {
//		SiteURL string `env:"SITE_URL" envDefault:"http://localhost:8080"`
//		Debug   bool   `env:"DEBUG" envDefault:"false"`
//	}
//
//	var cfg Config
//	config.MustLoad(&cfg)
//
// Each struct type is parsed once and cached, so configuration is read a
// single time and stays immutable while the process runs. Tests can call
// ResetCache or ForceReloadConfig to observe changed variables.
package config
