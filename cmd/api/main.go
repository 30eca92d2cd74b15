package main

import (
	"context"
	"database/sql"
	"log/slog"
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

	"doccatalog/docs"
	"doccatalog/internal/config"
	"doccatalog/internal/database"
	"doccatalog/internal/database/migration"
	handlers "doccatalog/internal/http/handler"
	"doccatalog/internal/http/middleware"
	"doccatalog/internal/identity"
	"doccatalog/internal/lock"
	"doccatalog/internal/logging"
	"doccatalog/internal/otel"
	"doccatalog/internal/repository"
	"doccatalog/internal/repository/memory"
	"doccatalog/internal/repository/postgres"
	"doccatalog/internal/service"
	"doccatalog/internal/storage"
)

// @title Document Catalog API
// @version 1.0
// @description Per-owner catalog of uploaded documents backed by object storage.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()
	loc := cfg.Location()
	logger := logging.New(os.Stdout, cfg.LogLevel, loc)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := otel.Init(ctx, logger)
	if err != nil {
		fatal(logger, "failed to initialize tracing", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	var (
		docRepo repository.DocumentRepository
		pinger  handlers.Pinger
	)
	switch cfg.StoreDriver {
	case "memory":
		docRepo = memory.NewDocumentMemory()
		logger.Warn("metadata_store", "driver", "memory", "durable", false)
	default:
		var db *sql.DB
		db, err = database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			fatal(logger, "failed to connect to database", err)
		}
		defer db.Close()

		if cfg.Database.AutoMigrate {
			if err := migration.EnsureMigrated(ctx, db, logger, cfg.Database.Host); err != nil {
				fatal(logger, "failed to migrate database", err)
			}
		}
		docRepo = postgres.NewDocumentPostgres(db)
		pinger = db
	}

	// Initialize reusable S3-compatible object storage client (MinIO-supported)
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		fatal(logger, "failed to initialize object storage", err)
	}

	var locker lock.Locker = lock.NewKeyedMutex()
	if cfg.Redis.Addr != "" {
		rdb, err := lock.NewRedisClient(cfg.Redis)
		if err != nil {
			fatal(logger, "failed to connect to redis", err)
		}
		defer rdb.Close()
		locker = lock.NewRedisLocker(rdb, cfg.Reconcile.LockTTL, cfg.Reconcile.LockWait)
	}

	verifier, err := identity.NewJWTVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.Audience, cfg.Auth.Leeway)
	if err != nil {
		fatal(logger, "failed to initialize token verifier", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	svcMetrics, err := service.NewMetrics(reg)
	if err != nil {
		fatal(logger, "failed to register service metrics", err)
	}
	httpMetrics, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		fatal(logger, "failed to register http metrics", err)
	}

	layout := storage.Layout{
		DocumentsBucket: cfg.MinIO.DocumentsBucket,
		ImagesBucket:    cfg.MinIO.ImagesBucket,
	}
	docSvc := service.NewDocumentService(objStore, docRepo,
		service.WithLayout(layout),
		service.WithLocker(locker),
		service.WithLogger(logger.With("component", "service")),
		service.WithMetrics(svcMetrics),
		service.WithPresignExpiry(cfg.MinIO.PresignExpiry),
	)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
		BodyLimit:    int(cfg.MaxUploadSize),
	})

	app.Use(otelfiber.Middleware())
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	app.Use(middleware.AccessLog(logger.With("component", "http")))
	app.Use(httpMetrics.Handler())

	handlers.RegisterRoutes(app, handlers.Dependencies{
		DB:       pinger,
		Storage:  objStore,
		Buckets:  layout.Buckets(),
		Service:  docSvc,
		Verifier: verifier,
		Metrics:  reg,
	})

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

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error("server_shutdown_failed", "error", err.Error())
		}
	}()

	addr := ":" + cfg.Port
	logger.Info("server_starting", "addr", addr, "store_driver", cfg.StoreDriver, "distributed_lock", cfg.Redis.Addr != "")
	if err := app.Listen(addr); err != nil {
		fatal(logger, "failed to start server", err)
	}
}

func fatal(logger *slog.Logger, msg string, err error) {
	logger.Error(msg, "error", err.Error())
	os.Exit(1)
}
