// Command publishdue promotes scheduled articles whose publish time has passed.
// It runs once by default, or repeatedly with -interval until interrupted.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/cache"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/config"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/database"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/repository"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/service"
	"github.com/sathwikreddy17/Common-Strange-sub000/pkg/logger"
)

func main() {
	interval := flag.Duration("interval", 0, "repeat every interval until interrupted; 0 runs once")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(config.LogConfig{})
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log := logger.New(cfg.Log).With().Str("component", "publish_due").Logger()

	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	// Without redis, invalidation only matters to the server's own in-process cache
	var readCache cache.Cache = cache.Nop{}
	if cfg.Redis.URL != "" {
		rc, err := cache.Connect(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to redis")
		}
		defer rc.Close()
		readCache = rc
	}

	services := service.NewServices(service.Deps{
		Repos:  repository.New(db),
		Config: cfg,
		Cache:  readCache,
		Log:    log,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *interval <= 0 {
		if err := run(ctx, services.Pipeline, log); err != nil {
			log.Error().Err(err).Msg("Publish-due run failed")
			os.Exit(1)
		}
		return
	}

	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	log.Info().Dur("interval", *interval).Msg("Publish-due worker started")
	for {
		if err := run(ctx, services.Pipeline, log); err != nil {
			log.Error().Err(err).Msg("Publish-due run failed")
		}
		select {
		case <-ctx.Done():
			log.Info().Msg("Publish-due worker stopped")
			return
		case <-ticker.C:
		}
	}
}

func run(ctx context.Context, pipeline service.PipelineService, log zerolog.Logger) error {
	published, err := pipeline.PublishDue(ctx, time.Now())
	if published > 0 {
		log.Info().Int("published", published).Msg("Published due articles")
	}
	return err
}
