package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"hotel_booking/internal/adapters/observability"
	redisad "hotel_booking/internal/adapters/redis"
	"hotel_booking/internal/app"
	"hotel_booking/internal/domain"
	"hotel_booking/internal/shared"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()
	file := flag.String("file", cfg.SeedFile, "YAML or JSON catalog to import")
	workers := flag.Int("workers", cfg.SeedWorkers, "concurrent upserts")
	flag.Parse()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)
	if cfg.StoreDriver == shared.DriverMemory {
		log.Warn().Msg("STORE_DRIVER=memory: the import only lives as long as this process")
	}

	log.Info().Str("file", *file).Int("workers", *workers).Str("store", cfg.StoreDriver).Msg("seeder starting")

	data, err := os.ReadFile(*file)
	if err != nil {
		log.Fatal().Err(err).Msg("read catalog failed")
	}
	records, err := app.ParseCatalog(data)
	if err != nil {
		log.Fatal().Err(err).Msg("catalog is not valid")
	}

	connectCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	store, err := shared.OpenStore(connectCtx, cfg)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("store connection failed")
	}
	defer store.Close()

	// evict cached hotel views the API may still be serving
	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rc.Close()
		cache = rc
	}

	catalog := app.NewCatalogService(store, cache, app.Options{StoreTimeout: cfg.StoreTimeout})
	if *workers < 1 {
		*workers = 1
	}
	sem := semaphore.NewWeighted(int64(*workers))
	var wg sync.WaitGroup
	var ok, failed atomic.Int64

	for i, rec := range records {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Warn().Err(err).Msg("import interrupted")
			break
		}

		wg.Add(1)
		go func(i int, rec map[string]any) {
			defer wg.Done()
			defer sem.Release(1)

			id, err := catalog.IngestRecord(ctx, rec)
			if err != nil {
				failed.Add(1)
				log.Warn().Int("record", i).Err(err).Msg("ingest failed")
				return
			}
			ok.Add(1)
			log.Debug().Int("record", i).Str("hotel_id", id).Msg("ingest ok")
		}(i, rec)
	}

	wg.Wait()
	log.Info().Int64("ok", ok.Load()).Int64("failed", failed.Load()).Int("records", len(records)).Msg("seeding completed")
	if failed.Load() > 0 {
		stop()
		os.Exit(1)
	}
}
