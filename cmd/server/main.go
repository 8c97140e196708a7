package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	integrationapp "github.com/g-aniketh/coxistai-startup-acc-sub003/internal/application/integration"
	tradeapp "github.com/g-aniketh/coxistai-startup-acc-sub003/internal/application/trade"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/infrastructure/banking"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/infrastructure/cache"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/infrastructure/config"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/infrastructure/crypto"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/infrastructure/logger"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/infrastructure/payment"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/infrastructure/persistence"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/infrastructure/scheduler"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/infrastructure/telemetry"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/interfaces/http/handler"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/interfaces/http/middleware"
	"github.com/g-aniketh/coxistai-startup-acc-sub003/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting CFO sync engine",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.App.Name,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(context.Background(), telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.App.Name,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}

	logProvider, err := telemetry.NewLoggerProvider(context.Background(), telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.App.Name,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	if logProvider.IsEnabled() {
		log = telemetry.NewBridgedLogger(log,
			telemetry.NewZapOTELCore(cfg.App.Name, logProvider, logger.ParseLevel(cfg.Log.Level)))
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.SlowQueryThresh))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected", zap.String("driver", cfg.Database.Driver))

	if cfg.Database.AutoMigrate {
		if err := db.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate schema", zap.Error(err))
		}
	}

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTracing,
		SlowQueryThresh: cfg.Telemetry.SlowQueryThresh,
		DBSystem:        dbSystem(cfg.Database.Driver),
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}

	vault, err := crypto.NewVault(cfg.Vault.EncryptionKey)
	if err != nil {
		log.Fatal("Failed to initialize credential vault", zap.Error(err))
	}

	plaid, err := banking.NewPlaidAdapter(&banking.PlaidConfig{
		ClientID:     cfg.Plaid.ClientID,
		Secret:       cfg.Plaid.Secret,
		Environment:  cfg.Plaid.Environment,
		BaseURL:      cfg.Plaid.BaseURL,
		WebhookURL:   cfg.Plaid.WebhookURL,
		ClientName:   cfg.Plaid.ClientName,
		Products:     cfg.Plaid.Products,
		CountryCodes: cfg.Plaid.CountryCodes,
		Language:     cfg.Plaid.Language,
		Timeout:      cfg.Plaid.Timeout,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize aggregator client", zap.Error(err))
	}

	stripe, err := payment.NewStripeProcessor(&payment.StripeConfig{
		SecretKey:         cfg.Stripe.SecretKey,
		BaseURL:           cfg.Stripe.BaseURL,
		Timeout:           cfg.Stripe.Timeout,
		PageSize:          cfg.Stripe.PageSize,
		MaxNetworkRetries: cfg.Stripe.MaxNetworkRetries,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize payment processor client", zap.Error(err))
	}

	dedup, err := cache.NewDeliveryStoreFactory(cfg.Redis, cache.WithLogger(log)).CreateStore(context.Background())
	if err != nil {
		log.Fatal("Failed to initialize webhook delivery store", zap.Error(err))
	}
	defer func() {
		if err := dedup.Close(); err != nil {
			log.Warn("Error closing webhook delivery store", zap.Error(err))
		}
	}()

	// Repositories
	itemRepo := persistence.NewGormConnectionItemRepository(db.DB)
	accountRepo := persistence.NewGormAccountRepository(db.DB)
	categoryRepo := persistence.NewGormCategoryRepository(db.DB)
	customerRepo := persistence.NewGormCustomerRepository(db.DB)
	reconciler := persistence.NewGormReconciler(db.DB)

	// Application services
	bankingService := integrationapp.NewBankingSyncService(integrationapp.BankingSyncDeps{
		Items:      itemRepo,
		Accounts:   accountRepo,
		Categories: categoryRepo,
		Reconciler: reconciler,
		Client:     plaid,
		Vault:      vault,
		Dedup:      dedup,
	}, integrationapp.BankingSyncConfig{
		DefaultWindowDays: cfg.Sync.DefaultWindowDays,
		WebhookDedupTTL:   cfg.Sync.WebhookDedupTTL,
	}, log)
	processorService := integrationapp.NewProcessorSyncService(integrationapp.ProcessorSyncDeps{
		Items:      itemRepo,
		Customers:  customerRepo,
		Reconciler: reconciler,
		Client:     stripe,
		Vault:      vault,
	}, int(cfg.Stripe.PageSize), log)
	saleService := tradeapp.NewSaleService(persistence.NewGormSaleTransactionScope(db.DB), log)

	syncScheduler, err := scheduler.NewSyncScheduler(scheduler.SyncSchedulerConfig{
		Schedule:    cfg.Sync.Schedule,
		WindowDays:  cfg.Sync.ScheduledWindowDays,
		HistorySize: cfg.Sync.HistorySize,
	}, bankingService, persistence.NewGormSyncStatsReader(db.DB), log)
	if err != nil {
		log.Fatal("Failed to initialize sync scheduler", zap.Error(err))
	}
	syncMetrics, err := telemetry.NewSyncMetrics(meterProvider.Meter(telemetry.MeterName))
	if err != nil {
		log.Fatal("Failed to register sync metrics", zap.Error(err))
	}
	syncScheduler.WithMetrics(syncMetrics)
	if cfg.Sync.Enabled {
		if err := syncScheduler.Start(); err != nil {
			log.Fatal("Failed to start sync scheduler", zap.Error(err))
		}
	} else {
		log.Info("Scheduled sync disabled")
	}

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	// Order matters: the request id and logger come first so that recovery,
	// tracing and error responses can all read them.
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.App.Name,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.Secure())
	engine.Use(middleware.CORS(cfg.HTTP.CORSOrigins...))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	engine.GET("/health", healthHandler(db))

	cfoHandler := handler.NewCFOHandler(bankingService, processorService, syncScheduler, saleService)
	webhookHandler := handler.NewWebhookHandler(bankingService)

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	r.Register(handler.CFORoutes(cfoHandler, webhookHandler,
		[]gin.HandlerFunc{middleware.Identity(), middleware.TracingAttributeInjector()},
	))
	r.Setup()

	engine.GET("/api/v1/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	syncScheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(ctx); err != nil {
		log.Warn("Error shutting down tracer provider", zap.Error(err))
	}
	if err := meterProvider.Shutdown(ctx); err != nil {
		log.Warn("Error shutting down meter provider", zap.Error(err))
	}
	if err := logProvider.Shutdown(ctx); err != nil {
		log.Warn("Error shutting down log provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

func dbSystem(driver string) string {
	if driver == "sqlite" {
		return "sqlite"
	}
	return "postgresql"
}

// healthHandler reports database reachability
func healthHandler(db *persistence.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			logger.L(c.Request.Context()).Warn("Health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"time":     time.Now().Format(time.RFC3339),
				"database": "error",
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": "ok",
		})
	}
}
