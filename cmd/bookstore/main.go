package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mokabook/bookstore/internal/api"
	"github.com/mokabook/bookstore/internal/api/middleware"
	"github.com/mokabook/bookstore/internal/cache"
	"github.com/mokabook/bookstore/internal/config"
	"github.com/mokabook/bookstore/internal/events"
	"github.com/mokabook/bookstore/internal/gateway"
	"github.com/mokabook/bookstore/internal/metrics"
	"github.com/mokabook/bookstore/internal/repository"
	"github.com/mokabook/bookstore/internal/service"
	"github.com/mokabook/bookstore/internal/session"
	"github.com/mokabook/bookstore/pkg/db"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		boot := zerolog.New(os.Stderr).With().Timestamp().Logger()
		boot.Fatal().Err(err).Msg("load config")
	}
	log := newLogger(cfg)

	conn, err := db.NewPostgresConnection(cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("db connect")
	}
	defer conn.Close()

	if err := db.RunMigrations(conn); err != nil {
		log.Fatal().Err(err).Msg("run migrations")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sessions := newSessionStore(ctx, cfg.Session, log)

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.RabbitURL != "" {
		rabbit, err := events.NewRabbit(cfg.Events.RabbitURL, cfg.Events.Exchange)
		if err != nil {
			log.Fatal().Err(err).Msg("connect rabbitmq")
		}
		defer rabbit.Close()
		publisher = rabbit
	} else {
		log.Warn().Msg("RABBIT_URL not set, order events are discarded")
	}
	dispatcher := events.NewDispatcher(publisher, cfg.Events.Workers, cfg.Events.QueueSize, log)
	dispatcher.Start(context.Background())

	m := metrics.New()
	bookCache := cache.NewBookCache(cfg.BookCacheSize, cfg.BookCacheTTL)
	gw := gateway.NewClient(gateway.Config{
		BaseURL:     cfg.Gateway.BaseURL,
		StartPayURL: cfg.Gateway.StartPayURL,
		MerchantID:  cfg.Gateway.MerchantID,
		CallbackURL: cfg.Gateway.CallbackURL,
		Description: cfg.Gateway.Description,
		Timeout:     cfg.Gateway.Timeout,
	}, log)

	bookRepo := repository.NewBookRepo(conn)
	cartRepo := repository.NewCartRepo(conn)
	orderRepo := repository.NewOrderRepo(conn)
	reviewRepo := repository.NewReviewRepo(conn)
	wishlistRepo := repository.NewWishlistRepo(conn)
	userRepo := repository.NewUserRepo(conn)

	checkout := service.NewCheckoutService(conn, service.CheckoutDeps{
		Carts:    cartRepo,
		Orders:   orderRepo,
		Users:    userRepo,
		Gateway:  gw,
		Sessions: sessions,
		Books:    bookCache,
		Events:   dispatcher,
		Metrics:  m,
	}, cfg.Debug, log)

	limiter := middleware.NewRateLimiter(cfg.CheckoutRPS, cfg.CheckoutBurst, log)
	limiter.StartCleanup(ctx, 10*time.Minute)

	handler := api.NewRouter(api.Deps{
		Checkout: checkout,
		Catalog:  service.NewCatalogService(bookRepo, bookCache, wishlistRepo, reviewRepo, log),
		Cart:     service.NewCartService(cartRepo, bookRepo),
		Orders:   service.NewOrderService(orderRepo),
		Reviews:  service.NewReviewService(reviewRepo, bookRepo),
		Wishlist: service.NewWishlistService(wishlistRepo, bookRepo),
		Profiles: service.NewProfileService(userRepo),
		Sessions: sessions,
		SessionOptions: middleware.SessionOptions{
			CookieName: cfg.Session.CookieName,
			TTL:        cfg.Session.TTL,
			Secure:     cfg.Session.SecureCookie,
		},
		Metrics:         m,
		CheckoutLimiter: limiter,
		RequestTimeout:  cfg.RequestTimeout,
		Debug:           cfg.Debug,
		Log:             log,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// graceful shutdown
	idleConnsClosed := make(chan struct{})
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP server shutdown")
		}
		close(idleConnsClosed)
	}()

	log.Info().Str("addr", cfg.HTTPAddr).Bool("debug", cfg.Debug).Msg("starting bookstore")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("listen")
	}

	<-idleConnsClosed
	dispatcher.Close()
	log.Info().Msg("server stopped")
}

func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339
	if cfg.Debug {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).Level(level).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stdout).Level(level).With().Timestamp().Logger()
}

// newSessionStore uses Redis when configured and falls back to process memory.
func newSessionStore(ctx context.Context, cfg config.SessionConfig, log zerolog.Logger) session.Store {
	if cfg.RedisAddr == "" {
		log.Warn().Msg("REDIS_ADDR not set, sessions are kept in memory")
		mem := session.NewMemoryStore(cfg.TTL)
		mem.StartJanitor(ctx, time.Minute)
		return mem
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("connect redis")
	}
	return session.NewRedisStore(client, cfg.TTL)
}
