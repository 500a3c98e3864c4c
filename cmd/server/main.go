package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	httpapi "strdep/internal/http"
	"strdep/internal/platform/config"
	"strdep/internal/platform/httpserver"
	"strdep/internal/platform/logger"
	"strdep/internal/platform/postgres"
	platformredis "strdep/internal/platform/redis"
	"strdep/internal/registry/cache"
	"strdep/internal/registry/events"
	"strdep/internal/registry/handler"
	"strdep/internal/registry/metrics"
	"strdep/internal/registry/service"
	"strdep/internal/registry/store"
	"strdep/internal/token"
)

// main wires high-level dependencies and keeps the server lifecycle small.
// Business logic lives in the internal service packages.
func main() {
	cfg := config.FromEnv()
	log, err := logger.New()
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()

	var st store.Store
	var ready httpapi.ReadyCheck
	if cfg.Postgres.DSN != "" {
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			log.Fatal("failed to connect to postgres", zap.Error(err))
		}
		defer func() { _ = db.Close() }()

		pg := store.NewPostgres(db)
		if err := pg.Migrate(ctx); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
		st = pg
		ready = db.PingContext
		log.Info("using postgres store")
	} else {
		st = store.NewInMemory()
		log.Warn("POSTGRES_DSN not set, using in-memory store")
	}

	var blobs cache.BlobCache
	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
		blobs = cache.NewRedis(redisClient, cfg.Redis.CacheTTL)
		log.Info("using redis blob cache")
	} else {
		blobs = cache.NewMemory(cfg.Redis.CacheTTL)
		log.Warn("REDIS_URL not set, using in-process blob cache")
	}

	var publisher events.Publisher = events.Noop{}
	if len(cfg.Kafka.Brokers) > 0 {
		kafka, err := events.NewKafka(ctx, cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		if err != nil {
			log.Fatal("failed to connect to kafka", zap.Error(err))
		}
		publisher = kafka
		log.Info("publishing lifecycle events", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))
	} else {
		log.Warn("KAFKA_BROKERS not set, lifecycle events disabled")
	}
	defer publisher.Close()

	svc := service.New(st,
		service.WithEvents(publisher),
		service.WithBlobCache(blobs),
		service.WithMetrics(metrics.New(prometheus.DefaultRegisterer)),
		service.WithLogger(log),
	)

	tokens := token.NewService(cfg.Server.JWTSigningKey, "strdep")
	router := httpapi.NewRouter(handler.New(svc, log), tokens, log, ready)
	srv := httpserver.New(cfg.Server.Addr, router)

	log.Info("starting registry server", zap.String("addr", cfg.Server.Addr))
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
