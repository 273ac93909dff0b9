package config

import (
	"fmt"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all runtime configuration for the client kit. It is read once
// from the environment at startup and treated as immutable afterwards.
type Config struct {
	AppName string `env:"APP_NAME" env-default:"AuthKit"`

	// API
	BaseURL     string        `env:"API_BASE_URL" env-default:"https://api.escuelajs.co/api/v1"`
	HTTPTimeout time.Duration `env:"HTTP_TIMEOUT" env-default:"15s"`

	// Outbound rate limiting (requests per second, 0 disables)
	RequestsPerSecond float64 `env:"REQUESTS_PER_SECOND" env-default:"0"`

	// Storage
	StoragePath string `env:"STORAGE_PATH" env-default:"./data/auth-storage.json"`

	// Localization
	DefaultLanguage string `env:"APP_LANGUAGE" env-default:"en"`

	// Signup
	DefaultAvatarURL string `env:"DEFAULT_AVATAR_URL" env-default:"https://api.lorem.space/image/face?w=640&h=480"`

	// Logging
	LogLevel string `env:"LOG_LEVEL" env-default:"info"`

	// Embedded demo backend
	DemoPort string `env:"DEMO_PORT" env-default:"8089"`
}

// Load reads the configuration from environment variables, applying defaults
// for anything unset.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("[config.Load] cleanenv.ReadEnv: %w", err)
	}
	return cfg, nil
}
