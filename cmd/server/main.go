package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	eventapp "github.com/erp/purchasing/internal/application/event"
	inventoryapp "github.com/erp/purchasing/internal/application/inventory"
	appprocurement "github.com/erp/purchasing/internal/application/procurement"
	"github.com/erp/purchasing/internal/domain/shared"
	"github.com/erp/purchasing/internal/infrastructure/auth"
	"github.com/erp/purchasing/internal/infrastructure/cache"
	"github.com/erp/purchasing/internal/infrastructure/config"
	"github.com/erp/purchasing/internal/infrastructure/event"
	"github.com/erp/purchasing/internal/infrastructure/export"
	"github.com/erp/purchasing/internal/infrastructure/inventorystore"
	"github.com/erp/purchasing/internal/infrastructure/logger"
	"github.com/erp/purchasing/internal/infrastructure/notification"
	"github.com/erp/purchasing/internal/infrastructure/persistence"
	"github.com/erp/purchasing/internal/infrastructure/printing"
	"github.com/erp/purchasing/internal/infrastructure/storage"
	"github.com/erp/purchasing/internal/infrastructure/telemetry"
	"github.com/erp/purchasing/internal/interfaces/http/handler"
	"github.com/erp/purchasing/internal/interfaces/http/middleware"
	"github.com/erp/purchasing/internal/interfaces/http/router"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"

	_ "github.com/erp/purchasing/docs"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

//	@title			Purchasing API
//	@version		1.0
//	@description	Purchase order lifecycle and inventory fulfillment service

//	@contact.name	API Support
//	@contact.url	https://github.com/erp/purchasing

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx := context.Background()

	// Log export has to exist before the logger so the bridge core can be teed in
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	})
	if err != nil {
		panic("Failed to initialize log exporter: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}, logger.WithCore(logProvider.Core(logger.ParseLevel(cfg.Log.Level))))
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting purchasing service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled && cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.ExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.PyroscopeAddress,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level),
		logger.WithSlowThreshold(cfg.Telemetry.DBSlowQueryThresh))
	db, err := persistence.NewDatabase(&cfg.Database, persistence.WithLogger(gormLog))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBName:          cfg.Database.DBName,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	stockStore, err := inventorystore.Open(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to open inventory store", zap.Error(err))
	}
	defer func() {
		_ = stockStore.Close()
	}()

	idempotencyStore, err := cache.NewIdempotencyStore(ctx, cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.App.IsProduction()),
	)
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}
	defer func() {
		_ = idempotencyStore.Close()
	}()

	// Events raised by order changes are written to the outbox in the same transaction
	serializer := event.NewEventSerializer()
	event.RegisterAllEvents(serializer)
	outboxPublisher := event.NewOutboxPublisher(serializer)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	orderRepo := persistence.NewGormPurchaseOrderRepository(db.DB)
	orderRepo.SetOutboxEventSaver(outboxPublisher)
	adjustmentRepo := persistence.NewGormStockAdjustmentRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB, outboxPublisher)

	var meter metric.Meter
	var procurementMetrics *telemetry.ProcurementMetrics
	if meterProvider.IsEnabled() {
		meter = meterProvider.Meter("purchasing")
		procurementMetrics, err = telemetry.NewProcurementMetrics(meter,
			telemetry.NewGormAdjustmentBacklogProvider(db.DB), log)
		if err != nil {
			log.Fatal("Failed to register procurement metrics", zap.Error(err))
		}
		procurementMetrics.StartBacklogCollection(ctx, cfg.Inventory.PollInterval)
	}

	adjuster := appprocurement.NewInventoryAdjuster(stockStore, adjustmentRepo, idempotencyStore, log)
	adjuster.SetClaimTTL(cfg.Inventory.ClaimTTL)
	fulfillmentService := appprocurement.NewFulfillmentService(orderRepo, adjustmentRepo, txScope, adjuster, log)
	if procurementMetrics != nil {
		adjuster.SetMetrics(procurementMetrics)
		fulfillmentService.SetMetrics(procurementMetrics)
	}

	renderer, pdfRenderer, err := printing.NewOrderRendererFromConfig(cfg.Printing, log)
	if err != nil {
		log.Fatal("Failed to initialize document renderer", zap.Error(err))
	}
	if pdfRenderer != nil {
		defer func() {
			if err := pdfRenderer.Close(); err != nil {
				log.Warn("Error closing PDF renderer", zap.Error(err))
			}
		}()
	}
	documentService := appprocurement.NewDocumentService(orderRepo, adjustmentRepo, renderer, export.NewXLSXExporter())

	documentStore, err := storage.NewDocumentStore(ctx, cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to initialize document storage", zap.Error(err))
	}
	sender, err := notification.NewSender(cfg.Notification, log)
	if err != nil {
		log.Fatal("Failed to initialize notification sender", zap.Error(err))
	}

	eventBus := event.NewInMemoryEventBus(log)
	notifier := event.NewIdempotentHandler(
		appprocurement.NewNotificationHandler(orderRepo, renderer, documentStore, sender, log),
		idempotencyStore,
		log,
		event.WithHandlerName("supplier_notification"),
		event.WithIdempotencyConfig(shared.IdempotencyConfig{
			TTL:     cfg.Event.IdempotencyTTL,
			Enabled: true,
		}),
	)
	eventBus.Subscribe(notifier, notifier.EventTypes()...)
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	var outboxProcessor *event.OutboxProcessor
	if cfg.Event.ProcessorEnabled {
		outboxCfg := event.DefaultOutboxProcessorConfig()
		outboxCfg.BatchSize = cfg.Event.BatchSize
		outboxCfg.PollInterval = cfg.Event.PollInterval
		outboxCfg.CleanupEnabled = cfg.Event.CleanupEnabled
		outboxCfg.CleanupRetention = cfg.Event.CleanupRetention
		outboxProcessor = event.NewOutboxProcessor(outboxRepo, eventBus, serializer, outboxCfg, log)
		if err := outboxProcessor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
	}

	var adjustmentProcessor *appprocurement.AdjustmentProcessor
	if cfg.Inventory.RetryEnabled {
		adjustmentProcessor = appprocurement.NewAdjustmentProcessor(adjustmentRepo, adjuster, appprocurement.AdjustmentProcessorConfig{
			BatchSize:    cfg.Inventory.BatchSize,
			PollInterval: cfg.Inventory.PollInterval,
			GracePeriod:  cfg.Inventory.GracePeriod,
		}, log)
		if err := adjustmentProcessor.Start(ctx); err != nil {
			log.Fatal("Failed to start adjustment processor", zap.Error(err))
		}
	}

	stockQuery := inventoryapp.NewStockQueryService(stockStore, stockStore)
	stockQuery.SetDefaultLimit(cfg.Inventory.MovementLimit)

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version).
		AddCheck("database", func(ctx context.Context) error {
			sqlDB, err := db.DB.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}).
		AddCheck("inventory_store", func(ctx context.Context) error {
			return stockStore.DB.PingContext(ctx)
		})
	if pinger, ok := idempotencyStore.(interface{ Ping(context.Context) error }); ok {
		systemHandler.AddCheck("redis", pinger.Ping)
	}

	var tokenValidator middleware.TokenValidator
	if cfg.JWT.Enabled {
		tokenValidator = auth.NewJWTService(cfg.JWT)
	}

	engine := router.NewEngine(router.EngineOptions{
		Config:         cfg,
		Logger:         log,
		Meter:          meter,
		TokenValidator: tokenValidator,
	}, router.Handlers{
		PurchaseOrders: handler.NewPurchaseOrderHandler(fulfillmentService, documentService),
		Inventory:      handler.NewInventoryHandler(stockQuery),
		Outbox:         handler.NewOutboxHandler(eventapp.NewOutboxService(outboxRepo, log)),
		System:         systemHandler,
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
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}

	// Workers stop after the server so in-flight requests can still enqueue
	if adjustmentProcessor != nil {
		if err := adjustmentProcessor.Stop(shutdownCtx); err != nil {
			log.Warn("Error stopping adjustment processor", zap.Error(err))
		}
	}
	if outboxProcessor != nil {
		if err := outboxProcessor.Stop(shutdownCtx); err != nil {
			log.Warn("Error stopping outbox processor", zap.Error(err))
		}
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Warn("Error stopping event bus", zap.Error(err))
	}
	if procurementMetrics != nil {
		procurementMetrics.Stop()
	}

	if err := profiler.Stop(); err != nil {
		log.Warn("Error stopping profiler", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Error shutting down tracer provider", zap.Error(err))
	}
	if err := logProvider.Shutdown(shutdownCtx, log); err != nil {
		log.Warn("Error shutting down log provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
