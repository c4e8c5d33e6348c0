package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	amqpad "hotel_booking/internal/adapters/amqp"
	server "hotel_booking/internal/adapters/http_server"
	"hotel_booking/internal/adapters/objectstore"
	"hotel_booking/internal/adapters/observability"
	redisad "hotel_booking/internal/adapters/redis"
	"hotel_booking/internal/app"
	"hotel_booking/internal/domain"
	"hotel_booking/internal/shared"
	"hotel_booking/internal/storage/memory"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	reg := observability.InitRegistry()
	metricsSrv := observability.Serve(cfg.MetricsAddr, reg)

	// store
	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	store, err := shared.OpenStore(connectCtx, cfg)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("store connection failed")
	}
	defer store.Close()

	// cache + idempotency
	var cache domain.Cache
	var idem domain.IdempotencyStore = memory.NewIdempotency()
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err := rc.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis unreachable; continuing without cache")
			_ = rc.Close()
		} else {
			cache = rc
			idem = redisad.NewIdempotency(rc.Client())
			defer rc.Close()
		}
	}

	// events
	var events domain.EventPublisher = amqpad.Noop{}
	if cfg.AMQPURL != "" {
		pub, err := amqpad.Connect(cfg.AMQPURL, 5)
		if err != nil {
			log.Fatal().Err(err).Msg("rabbitmq connection failed")
		}
		defer pub.Close()
		events = pub
	}

	opts := app.Options{
		StoreTimeout: cfg.StoreTimeout,
		CacheTTL:     cfg.CacheTTL,
		Retry:        app.DefaultRetryPolicy(),
	}
	opts.Retry.MaxAttempts = cfg.StoreRetries

	h := &server.Handlers{
		Bookings: app.NewBookingService(store, cache, events, idem, opts),
		Payments: app.NewPaymentService(store, events, idem, opts),
		Q:        app.NewQueryService(store, cache, opts),
		Catalog:  app.NewCatalogService(store, cache, opts),
	}
	if cfg.ObjectStoreURL != "" {
		objects, err := objectstore.New(cfg.ObjectStoreURL, cfg.ObjectStorePublicURL, cfg.ObjectStoreKey, cfg.ObjectStoreRPS)
		if err != nil {
			log.Fatal().Err(err).Msg("object store client")
		}
		h.Uploads = objects
	}

	// http
	srv := server.New(15 * time.Second)
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHandlers(h)

	httpSrv := &http.Server{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Str("store", cfg.StoreDriver).Msg("API listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
}
