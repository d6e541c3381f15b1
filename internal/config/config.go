package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"

	"github.com/mokabook/bookstore/pkg/db"
)

type Config struct {
	HTTPAddr        string        `env:"HTTP_ADDR,default=:8080"`
	Debug           bool          `env:"DEBUG,default=false"`
	LogLevel        string        `env:"LOG_LEVEL,default=info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT,default=15s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT,default=30s"`

	DB      db.PostgresConfig
	Gateway GatewayConfig
	Session SessionConfig
	Events  EventsConfig

	// CheckoutRPS limits /checkout calls per user (or remote address).
	CheckoutRPS   int `env:"CHECKOUT_RPS,default=2"`
	CheckoutBurst int `env:"CHECKOUT_BURST,default=5"`

	BookCacheSize int           `env:"BOOK_CACHE_SIZE,default=512"`
	BookCacheTTL  time.Duration `env:"BOOK_CACHE_TTL,default=5m"`
}

type GatewayConfig struct {
	BaseURL     string        `env:"GATEWAY_BASE_URL,default=https://sandbox.zarinpal.com/pg/v4"`
	StartPayURL string        `env:"GATEWAY_STARTPAY_URL,default=https://sandbox.zarinpal.com/pg/StartPay"`
	MerchantID  string        `env:"GATEWAY_MERCHANT_ID"`
	CallbackURL string        `env:"GATEWAY_CALLBACK_URL,default=http://127.0.0.1:8080/checkout/verify"`
	Description string        `env:"GATEWAY_DESCRIPTION,default=MoKa bookstore order payment"`
	Timeout     time.Duration `env:"GATEWAY_TIMEOUT,default=10s"`
}

type SessionConfig struct {
	RedisAddr     string        `env:"REDIS_ADDR"`
	RedisPassword string        `env:"REDIS_PASSWORD"`
	RedisDB       int           `env:"REDIS_DB,default=0"`
	TTL           time.Duration `env:"SESSION_TTL,default=168h"`
	CookieName    string        `env:"SESSION_COOKIE,default=bookstore_session"`
	SecureCookie  bool          `env:"SESSION_SECURE_COOKIE,default=false"`
}

type EventsConfig struct {
	RabbitURL string `env:"RABBIT_URL"`
	Exchange  string `env:"BOOKSTORE_EXCHANGE,default=bookstore.events"`
	Workers   int    `env:"EVENT_WORKERS,default=2"`
	QueueSize int    `env:"EVENT_QUEUE_SIZE,default=256"`
}

// Load reads an optional .env file and then decodes the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	if err := envdecode.Decode(&cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return Config{}, fmt.Errorf("decode env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.Gateway.MerchantID == "" {
		return errors.New("GATEWAY_MERCHANT_ID is required")
	}
	if c.Gateway.Timeout <= 0 {
		return errors.New("GATEWAY_TIMEOUT must be positive")
	}
	if c.Events.Workers <= 0 {
		return errors.New("EVENT_WORKERS must be positive")
	}
	return nil
}
