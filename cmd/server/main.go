package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/api"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/auth"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/cache"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/config"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/database"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/metrics"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/repository"
	"github.com/sathwikreddy17/Common-Strange-sub000/internal/service"
	"github.com/sathwikreddy17/Common-Strange-sub000/pkg/logger"
)

func main() {
	migrateDown := flag.Bool("migrate-down", false, "roll back the last migration and exit")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		bootLog := logger.New(config.LogConfig{})
		bootLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(cfg.Log)
	log.Info().Str("env", cfg.Env).Msg("Starting editorial API server...")

	// Initialize database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if *migrateDown {
		if err := db.MigrateDown(); err != nil {
			log.Fatal().Err(err).Msg("Failed to roll back migration")
		}
		return
	}

	if err := db.RunMigrations(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	health := map[string]api.HealthCheck{"database": db.HealthCheck}

	// Public read cache: Redis when configured, in-process otherwise
	var readCache cache.Cache = cache.NewMemory()
	if cfg.Redis.URL != "" {
		rc, err := cache.Connect(cfg.Redis.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to redis")
		}
		defer rc.Close()
		readCache = rc
		health["redis"] = rc.Ping
		log.Info().Msg("Redis cache enabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewCollector(registry)

	services := service.NewServices(service.Deps{
		Repos:   repository.New(db),
		Config:  cfg,
		Cache:   readCache,
		Metrics: recorder,
		Log:     log,
	})

	limiter := api.NewRateLimiter(cfg.RateLimit, log)
	defer limiter.Stop()

	router := api.NewRouter(services, cfg, log, api.Options{
		Resolver: auth.NewResolver(cfg.Auth.JWTSecret, cfg.Auth.Issuer),
		Limiter:  limiter,
		Metrics:  recorder,
		Gatherer: registry,
		Health:   health,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.ReadTimeout,
	}

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
		return
	}

	log.Info().Msg("Server exited gracefully")
}
