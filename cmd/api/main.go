package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"briefapi/docs"
	"briefapi/internal/config"
	"briefapi/internal/database"
	"briefapi/internal/database/migration"
	handlers "briefapi/internal/http/handler"
	"briefapi/internal/http/middleware"
	"briefapi/internal/ingest"
	"briefapi/internal/lock"
	"briefapi/internal/logger"
	"briefapi/internal/otel"
	"briefapi/internal/repository/postgres"
	"briefapi/internal/service"
	"briefapi/internal/storage"
)

const shutdownTimeout = 15 * time.Second

// @title Brief API
// @version 1.0
// @description Media ingestion for briefs and assets.
// @BasePath /
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.Location())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error().Err(err).Msg("server exited")
		stop()
		os.Exit(1)
	}
}

// run wires the service and blocks until ctx is done or the listener fails.
// Deferred cleanup runs on every return path.
func run(ctx context.Context, cfg *config.AppConfig, log zerolog.Logger) error {
	shutdownTracing, err := otel.Init(ctx, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		tctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownTracing(tctx); err != nil {
			log.Error().Err(err).Msg("tracing shutdown failed")
		}
	}()

	// PostgreSQL connection (pooled via database/sql, traced via otelsql)
	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, log, cfg.Database.Host); err != nil {
		return fmt.Errorf("migrate database: %w", err)
	}

	// S3-compatible object storage (MinIO)
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		return fmt.Errorf("init object storage: %w", err)
	}

	locker, closeLocker, err := newLocker(ctx, cfg.Lock, log)
	if err != nil {
		return fmt.Errorf("init upload lock: %w", err)
	}
	defer closeLocker()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	ingestMetrics, err := ingest.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("register ingest metrics: %w", err)
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		return fmt.Errorf("register http metrics: %w", err)
	}

	// Ingestion pipeline, repositories and services
	mediaRepo := postgres.NewMediaPostgres(db)
	opt := ingest.OptionsFromConfig(cfg.Media)
	coordinator := ingest.NewCoordinator(objStore, mediaRepo, locker, log,
		ingest.WithRetryPolicy(ingest.RetryPolicyFromConfig(cfg.Media)),
		ingest.WithMetrics(ingestMetrics),
	)

	var thumbs service.Thumbnailer
	if cfg.Thumbnail.Enabled {
		extractor := ingest.FFmpegExtractor{Path: cfg.Thumbnail.FFmpegPath, Timeout: cfg.Thumbnail.Timeout}
		thumbs = ingest.NewThumbnailDeriver(coordinator, extractor, opt, ingestMetrics, log)
	}
	mediaSvc := service.NewMediaService(coordinator, mediaRepo, thumbs, cfg.Media.Bucket, opt, log)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		// Leave room for multipart framing around the largest accepted file.
		BodyLimit:             int(opt.MaxSizeBytes()) + 1<<20,
		DisableStartupMessage: true,
	})

	// Register global middleware
	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger(log))
	app.Use(httpMetrics.Handler())

	// Register HTTP routes with injected service
	handlers.RegisterRoutes(app, db, mediaSvc)
	handlers.RegisterMetrics(app, reg)

	// Swagger UI with dynamic host and scheme
	app.Get("/swagger/*", func(c *fiber.Ctx) error {
		scheme := c.Protocol()
		if proto := c.Get("X-Forwarded-Proto"); proto != "" {
			scheme = strings.Split(proto, ",")[0]
		}

		docs.SwaggerInfo.Host = c.Get("Host")
		docs.SwaggerInfo.Schemes = []string{scheme}

		return swagger.HandlerDefault(c)
	})

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("bucket", cfg.Media.Bucket).Str("lock_backend", cfg.Lock.Backend).Msg("server starting")
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
		log.Info().Msg("shutdown requested")
		if err := app.ShutdownWithTimeout(shutdownTimeout); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	}
}

// newLocker builds the upload lock for the configured backend.
func newLocker(ctx context.Context, cfg config.LockConfig, log zerolog.Logger) (lock.Locker, func(), error) {
	switch strings.ToLower(cfg.Backend) {
	case "", "local":
		return lock.NewLocal(), func() {}, nil
	case "redis":
		l, err := lock.NewRedis(ctx, cfg.RedisURL, cfg.TTL, log)
		if err != nil {
			return nil, nil, err
		}
		return l, func() {
			if err := l.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close redis lock client")
			}
		}, nil
	default:
		log.Warn().Str("backend", cfg.Backend).Msg("unknown lock backend, using local")
		return lock.NewLocal(), func() {}, nil
	}
}
