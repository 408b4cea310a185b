package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	invoicingapp "github.com/FelixFunesFS/train-catering-creations-sub005/internal/application/invoicing"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/infrastructure/cache"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/infrastructure/config"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/infrastructure/event"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/infrastructure/logger"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/infrastructure/persistence"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/infrastructure/telemetry"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/interfaces/http/handler"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/interfaces/http/middleware"
	"github.com/FelixFunesFS/train-catering-creations-sub005/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	_ "github.com/FelixFunesFS/train-catering-creations-sub005/docs"
)

const serviceVersion = "1.0.0"

//go:generate swag init -g cmd/server/main.go -d ../.. -o ../../docs --parseInternal

//	@title			Catering Invoicing API
//	@version		1.0
//	@description	Invoice line item editing with totals reconciliation and optimistic notes writes.

//	@BasePath	/

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	baseLog, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := telemetry.NewProviders(ctx, telemetry.Config{
		ServiceName:       cfg.App.Name,
		ServiceVersion:    serviceVersion,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		Insecure:          cfg.Telemetry.Insecure,
		TracingEnabled:    cfg.Telemetry.TracingEnabled,
		MetricsEnabled:    cfg.Telemetry.MetricsEnabled,
		LogsEnabled:       cfg.Telemetry.LogsEnabled,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ExportInterval:    cfg.Telemetry.ExportInterval,
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		if err := providers.Shutdown(context.Background()); err != nil {
			baseLog.Error("Error shutting down telemetry", zap.Error(err))
		}
	}()

	// Log records also go to the collector when log export is enabled
	log := providers.BridgeLogger(baseLog)
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting catering invoicing API",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	// Initialize database connection with zap-backed GORM logging
	db, err := persistence.NewDatabase(&cfg.Database,
		persistence.WithZapLogger(log, logger.MapGormLogLevel(cfg.Log.GormLevel)))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if db.Driver() == "sqlite" {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate sqlite schema", zap.Error(err))
		}
	}
	if cfg.Telemetry.DBTracingEnabled && providers.TracingEnabled() {
		dbTracing := telemetry.DefaultDBTracingConfig()
		if db.Driver() == "sqlite" {
			dbTracing.DBSystem = "sqlite"
		}
		if err := telemetry.InstrumentGorm(db.DB, dbTracing, log); err != nil {
			log.Warn("Database tracing disabled", zap.Error(err))
		}
	}
	log.Info("Database connected successfully", zap.String("driver", db.Driver()))

	// Shared Redis client for cache invalidation fan-out and idempotency
	var redisClient *redis.Client
	if cfg.Cache.RedisInvalidation {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := redisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			log.Fatal("Failed to connect to Redis", zap.String("addr", cfg.Redis.Addr()), zap.Error(err))
		}
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing Redis client", zap.Error(err))
			}
		}()
	}

	// Dependent-view cache
	views := cache.NewQueryCache(
		cache.WithTTL(cfg.Cache.TTL),
		cache.WithCleanupInterval(cfg.Cache.CleanupInterval),
		cache.WithLogger(log),
	)
	if redisClient != nil {
		broadcaster := cache.NewRedisInvalidationBroadcasterWithClient(redisClient,
			cache.WithChannel(cfg.Cache.Channel),
			cache.WithBroadcasterLogger(log),
		)
		views.SetBroadcaster(broadcaster)
		go func() {
			if err := broadcaster.Run(ctx, views); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Cache invalidation listener stopped", zap.Error(err))
			}
		}()
		defer func() {
			_ = broadcaster.Close()
		}()
	}

	// Repositories and services
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	lineItemRepo := persistence.NewGormLineItemRepository(db.DB)

	invoiceService := invoicingapp.NewInvoiceService(invoiceRepo, lineItemRepo,
		invoicingapp.WithInvoiceLogger(log),
		invoicingapp.WithInvoiceViews(views),
		invoicingapp.WithDefaultTaxRate(decimal.NewFromFloat(cfg.Invoicing.DefaultTaxRate)),
	)
	lineItemService := invoicingapp.NewLineItemService(lineItemRepo, invoiceRepo,
		invoicingapp.WithLineItemLogger(log),
		invoicingapp.WithLineItemViews(views),
	)

	// Event bus: item changes trigger recalculation, recalculation
	// invalidates the cached views
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(invoicingapp.NewTotalsTrigger(invoiceService, log))
	eventBus.Subscribe(invoicingapp.NewViewInvalidationHandler(views, log))
	invoiceService.SetEventPublisher(eventBus)
	lineItemService.SetEventPublisher(eventBus)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		_ = eventBus.Stop(context.Background())
	}()

	// Idempotency records are shared through Redis when it is configured
	var idempotencyStore cache.IdempotencyStore
	if redisClient != nil {
		idempotencyStore = cache.NewRedisIdempotencyStoreWithClient(redisClient, "")
	} else {
		idempotencyStore = cache.NewInMemoryIdempotencyStore(cfg.Cache.CleanupInterval)
	}
	defer func() {
		_ = idempotencyStore.Close()
	}()

	// Setup Gin
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	if cfg.HTTP.EnableOTelTracing && providers.TracingEnabled() {
		tracingCfg := middleware.DefaultTracingConfig()
		tracingCfg.ServiceName = cfg.App.Name
		engine.Use(middleware.TracingWithConfig(tracingCfg))
		engine.Use(middleware.SpanErrorMarker())
		engine.Use(middleware.SpanAttributes())
	}
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.HTTPMetrics(providers.Meter("http.server"), log))
	engine.Use(middleware.Secure())

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	engine.Use(middleware.CORSWithConfig(corsCfg))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.RequestTimeout(cfg.HTTP.RequestTimeout))

	if cfg.HTTP.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateLimitWindow)
		defer limiter.Stop()
		engine.Use(middleware.RateLimit(limiter))
	}

	// Setup API routes using router
	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Use(middleware.Idempotency(middleware.IdempotencyConfig{
		Store:  idempotencyStore,
		TTL:    cfg.HTTP.IdempotencyTTL,
		Logger: log,
	}))

	invoiceHandler := handler.NewInvoiceHandler(invoiceService)
	lineItemHandler := handler.NewLineItemHandler(lineItemService)
	for _, routes := range router.InvoicingRoutes(invoiceHandler, lineItemHandler) {
		r.Register(routes)
	}

	checks := map[string]handler.HealthCheck{
		"database": func(ctx context.Context) error { return db.Ping() },
	}
	if redisClient != nil {
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}
	router.HealthRoutes(r, handler.NewHealthHandler(checks))
	router.SwaggerRoutes(r, middleware.SwaggerConfig{
		Enabled:    cfg.Swagger.Enabled,
		AllowedIPs: cfg.Swagger.AllowedIPs,
	})

	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      engine,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Graceful shutdown
	select {
	case <-ctx.Done():
	case err := <-serverErr:
		log.Error("Server failed", zap.Error(err))
	}
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
