package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	redisdriver "github.com/redis/go-redis/v9"
	mongodriver "go.mongodb.org/mongo-driver/mongo"

	"github.com/clearport/import-console/internal/api"
	"github.com/clearport/import-console/internal/core/ports"
	"github.com/clearport/import-console/internal/core/service"
	mongodb "github.com/clearport/import-console/internal/infrastructure/db/mongo"
	redisdb "github.com/clearport/import-console/internal/infrastructure/db/redis"
	"github.com/clearport/import-console/internal/infrastructure/store"
	"github.com/clearport/import-console/internal/pkg/config"
	"github.com/clearport/import-console/pkg/logger"
)

func main() {
	cfg := config.Load()

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.Env == "development",
		Service: "import-console",
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Optional Redis: status cache + operator notifications ---
	var (
		rdb      *redisdriver.Client
		cache    ports.StatusCache
		notifier ports.Notifier
	)
	if cfg.Redis.Enabled {
		client, err := redisdb.Connect(ctx, redisdb.Config{Addr: cfg.Redis.Addr, DB: cfg.Redis.DB})
		if err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		defer client.Close()
		rdb = client
		cache = redisdb.NewStatusCache(client)
		notifier = redisdb.NewNotifier(client, logger.WithComponent("notifier"))
	}

	// --- Shipment store: remote REST backend or embedded MongoDB ---
	var (
		shipmentStore ports.ShipmentStore
		audit         ports.UpdateAuditLog
		db            *mongodriver.Database
	)
	switch cfg.Store.Mode {
	case "mongo":
		client, database, err := mongodb.Connect(ctx, mongodb.Config{URI: cfg.Mongo.URI, Database: cfg.Mongo.Database})
		if err != nil {
			log.Fatal().Err(err).Msg("mongo connection failed")
		}
		defer func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(disconnectCtx)
		}()
		db = database

		mongoStore := mongodb.NewShipmentStore(database)
		if err := mongoStore.EnsureIndexes(ctx); err != nil {
			log.Fatal().Err(err).Msg("mongo index creation failed")
		}
		shipmentStore = mongoStore
		audit = mongodb.NewAuditRepository(database)
	case "http":
		shipmentStore = store.NewClient(cfg.Store.BaseURL, cfg.Store.RequestTimeout, logger.WithComponent("store"))
	default:
		log.Fatal().Str("mode", cfg.Store.Mode).Msg("unknown store mode, expected http or mongo")
	}

	// --- Core services ---
	coordinator := service.NewCoordinator(shipmentStore, notifier, audit, logger.WithComponent("coordinator"), service.CoordinatorOptions{
		RequestTimeout: cfg.Store.RequestTimeout,
		RetryBackoff:   cfg.Store.RetryBackoff,
	})
	coordinator.Start(ctx)

	sessions := service.NewSessionManager(shipmentStore, coordinator, cache, logger.WithComponent("sessions"))

	// --- HTTP server ---
	e := api.NewRouter(sessions, db, rdb, log)

	go func() {
		log.Info().Str("port", cfg.Port).Str("store_mode", cfg.Store.Mode).Msg("import console listening")
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}
