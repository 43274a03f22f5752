// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Command api is the entry point for the textbook HTTP API server.
//
// # Startup Sequence
//
//  1. Initialize structured logger.
//  2. Load configuration from environment variables (and .env).
//  3. Open the selected store: PostgreSQL (migrated when AUTO_MIGRATE) or memory.
//  4. Connect to Redis when REDIS_URL is set.
//  5. Connect to S3 when S3_BUCKET is set.
//  6. Wire HTTP handlers.
//  7. Start HTTP server with graceful shutdown.
//
// No business logic lives here. All wiring is explicit constructor injection.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/taibuivan/textbook/internal/api"
	"github.com/taibuivan/textbook/internal/core/book"
	"github.com/taibuivan/textbook/internal/core/chapter"
	"github.com/taibuivan/textbook/internal/core/content"
	"github.com/taibuivan/textbook/internal/platform/cache"
	"github.com/taibuivan/textbook/internal/platform/config"
	"github.com/taibuivan/textbook/internal/platform/constants"
	"github.com/taibuivan/textbook/internal/platform/migration"
	"github.com/taibuivan/textbook/internal/platform/objectstore"
	pgstore "github.com/taibuivan/textbook/internal/platform/postgres"
	redisstore "github.com/taibuivan/textbook/internal/platform/redis"
)

func main() {
	// ── 1. Logger ──────────────────────────────────────────────────────────
	// Initialize first so that subsequent startup errors are structured JSON.
	log := newLogger(slog.LevelInfo)
	slog.SetDefault(log)

	log.Info("service_initializing")

	// ── 2. Configuration ──────────────────────────────────────────────────
	cfg, err := config.Load()
	must(log, err, "load configuration")

	if cfg.Debug {
		log = newLogger(slog.LevelDebug)
		slog.SetDefault(log)
		log.Debug("debug_logging_enabled")
	}

	log.Info("configuration_loaded",
		slog.String("environment", cfg.Environment),
		slog.String("port", cfg.ServerPort),
		slog.String("storage_driver", cfg.StorageDriver),
		slog.Bool("cache_enabled", cfg.CacheEnabled()),
		slog.Bool("uploads_enabled", cfg.UploadsEnabled()),
	)

	// Lives until shutdown; background workers (rate limiter eviction) stop with it.
	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Root context for startup. Use a 30s deadline so misconfiguration is
	// caught quickly rather than hanging indefinitely.
	startupCtx, startupCancel := context.WithTimeout(rootCtx, 30*time.Second)
	defer startupCancel()

	var health api.HealthDependencies

	// ── 3. Storage ────────────────────────────────────────────────────────
	var store book.Store
	if cfg.UsesPostgres() {
		if cfg.AutoMigrate {
			must(log, migration.RunUp(cfg.DatabaseURL, cfg.MigrationPath, log), "run migrations")
		}

		pool, err := pgstore.NewPool(startupCtx, cfg.DatabaseURL, log)
		must(log, err, "connect to postgres")
		defer func() {
			log.Info("closing_postgres_pool")
			pool.Close()
		}()

		store = book.NewPostgresStore(pool)
		health.Database = func(ctx context.Context) error { return pgstore.Ping(ctx, pool) }
	} else {
		log.Warn("memory_store_selected", slog.String("detail", "data is lost on restart"))
		store = book.NewMemoryStore()
	}

	// ── 4. Redis ──────────────────────────────────────────────────────────
	var readerCache cache.Cache = cache.Noop{}
	if cfg.CacheEnabled() {
		rdb, err := redisstore.NewClient(startupCtx, cfg.RedisURL, log)
		must(log, err, "connect to redis")
		defer func() {
			log.Info("closing_redis_client")
			if cerr := rdb.Close(); cerr != nil {
				log.Error("redis_close_failed", slog.Any("error", cerr))
			}
		}()

		readerCache = cache.NewRedis(rdb)
		health.Cache = func(ctx context.Context) error { return redisstore.Ping(ctx, rdb) }
	}

	// ── 5. Object Storage ─────────────────────────────────────────────────
	var media content.MediaStore
	if cfg.UploadsEnabled() {
		s3, err := objectstore.NewS3(startupCtx, objectstore.Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			PublicBaseURL:   cfg.S3PublicBaseURL,
			UsePathStyle:    cfg.S3UsePathStyle,
		})
		must(log, err, "configure object storage")

		media = s3
		health.ObjectStore = s3.Ping
		log.Info("object_store_configured", slog.String("bucket", cfg.S3Bucket))
	}

	// ── 6. Domain Wiring ──────────────────────────────────────────────────
	chapterCache := chapter.NewReaderCache(readerCache, cfg.PublishedCacheTTL)
	chapterService := chapter.NewService(store, log)
	contentService := content.NewService(store, media, log)

	liveness, readiness := api.NewHealthHandlers(health, log)

	handlers := api.Handlers{
		Liveness:  liveness,
		Readiness: readiness,
		Chapter:   chapter.NewHandler(chapterService, chapterCache),
		Content:   content.NewHandler(contentService, chapterCache, cfg.MaxUploadBytes),
	}

	// ── 7. HTTP Server ────────────────────────────────────────────────────
	server := api.NewServer(rootCtx, cfg, log, handlers)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Block until OS signal or server error.
	select {
	case sig := <-quit:
		log.Info("shutdown_signal_received", slog.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server_startup_failed", slog.Any("error", err))
	}

	// Give in-flight requests enough time to complete.
	shutdownTimeout := constants.ShutdownTimeout
	log.Info("server_shutting_down", slog.Duration("timeout", shutdownTimeout))

	if err := server.Shutdown(shutdownTimeout); err != nil {
		log.Error("shutdown_failed", slog.Any("error", err))
		os.Exit(1)
	}

	log.Info("server_stopped_cleanly")
}

func newLogger(level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("app", constants.AppName))
}

// must logs a structured fatal error and terminates the process if err is non-nil.
//
// It is limited to startup wiring. After startup, all errors are returned and
// handled explicitly.
func must(log *slog.Logger, err error, context string) {
	if err != nil {
		log.Error("startup_failure",
			slog.String("context", context),
			slog.Any("error", err),
		)
		os.Exit(1)
	}
}
