package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	assistantapp "github.com/flipflop/backend/internal/application/assistant"
	billingapp "github.com/flipflop/backend/internal/application/billing"
	catalogapp "github.com/flipflop/backend/internal/application/catalog"
	eventapp "github.com/flipflop/backend/internal/application/event"
	healthapp "github.com/flipflop/backend/internal/application/health"
	identityapp "github.com/flipflop/backend/internal/application/identity"
	inventoryapp "github.com/flipflop/backend/internal/application/inventory"
	salesapp "github.com/flipflop/backend/internal/application/sales"
	supplierapp "github.com/flipflop/backend/internal/application/supplier"
	"github.com/flipflop/backend/internal/domain/shared"
	"github.com/flipflop/backend/internal/infrastructure/ai"
	"github.com/flipflop/backend/internal/infrastructure/auth"
	"github.com/flipflop/backend/internal/infrastructure/cache"
	"github.com/flipflop/backend/internal/infrastructure/config"
	"github.com/flipflop/backend/internal/infrastructure/event"
	"github.com/flipflop/backend/internal/infrastructure/imaging"
	"github.com/flipflop/backend/internal/infrastructure/inventory"
	"github.com/flipflop/backend/internal/infrastructure/logger"
	"github.com/flipflop/backend/internal/infrastructure/metrics"
	"github.com/flipflop/backend/internal/infrastructure/migration"
	"github.com/flipflop/backend/internal/infrastructure/notification"
	"github.com/flipflop/backend/internal/infrastructure/payment"
	"github.com/flipflop/backend/internal/infrastructure/persistence"
	"github.com/flipflop/backend/internal/infrastructure/printing"
	"github.com/flipflop/backend/internal/infrastructure/storage"
	"github.com/flipflop/backend/internal/infrastructure/supplierapi"
	"github.com/flipflop/backend/internal/infrastructure/telemetry"
	"github.com/flipflop/backend/internal/interfaces/http/handler"
	"github.com/flipflop/backend/internal/interfaces/http/middleware"
	"github.com/flipflop/backend/internal/interfaces/http/router"
	"github.com/flipflop/backend/migrations"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "github.com/flipflop/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			FlipFlop API
//	@version		1.0
//	@description	E-commerce backend for the FlipFlop shop: catalogue, cart, order sagas, invoices and supplier dropshipping.

//	@contact.name	FlipFlop Support
//	@contact.email	podpora@flipflop.cz

//	@host		localhost:8080
//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

// version is stamped at build time with -ldflags "-X main.version=..."
var version = "dev"

const shutdownTimeout = 30 * time.Second

func main() {
	sinkLevel := zap.NewAtomicLevel()
	reload := newReloader(sinkLevel)

	// Load configuration and watch the file for log level and rate limit changes
	cfg, err := config.LoadAndWatch(reload.apply, reload.failed)
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}
	if lvl, err := zapcore.ParseLevel(cfg.Log.Level); err == nil {
		sinkLevel.SetLevel(lvl)
	}

	logCfg := &logger.Config{
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cfg.Log.Output,
		Service: cfg.App.Name,
	}
	bootLog, err := logger.New(logCfg)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// Telemetry first so its log bridge can join the final logger
	providers, err := telemetry.Setup(ctx, cfg.Telemetry, bootLog)
	if err != nil {
		bootLog.Fatal("Failed to start telemetry", zap.Error(err))
	}

	var sink *logger.RemoteSink
	var sinkCore zapcore.Core
	if cfg.Logging.Enabled {
		sink = logger.NewRemoteSink(logger.RemoteConfig{
			URL:         cfg.Logging.ServiceURL,
			Service:     cfg.App.Name,
			Timeout:     cfg.Logging.Timeout,
			BufferSize:  cfg.Logging.BufferSize,
			FallbackDir: cfg.Logging.FallbackDir,
			Level:       sinkLevel,
		})
		sinkCore = sink.Core()
	}

	log, err := logger.Build(logCfg, sinkCore, providers.ZapCore(sinkLevel))
	if err != nil {
		bootLog.Fatal("Failed to initialize logger", zap.Error(err))
	}
	_ = bootLog.Sync()

	log.Info("Starting FlipFlop backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
		zap.Bool("remote_logging", sink != nil),
	)

	// Database with the zap-backed GORM logger
	gormLog := logger.NewGormLogger(log.Logger, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	log.Info("Database connected successfully")

	sqlDB, err := db.SQL()
	if err != nil {
		log.Fatal("Failed to access database handle", zap.Error(err))
	}
	if err := migration.ApplyEmbedded(sqlDB, migrations.FS, log.Logger); err != nil {
		log.Fatal("Failed to apply migrations", zap.Error(err))
	}

	dbInstruments, err := telemetry.InstrumentDB(db.DB, providers.Meter("flipflop/db"), telemetry.DBOptions{
		Tracing:       cfg.Telemetry.DBTraceEnabled,
		SlowThreshold: cfg.Telemetry.DBSlowQueryThresh,
		DBName:        cfg.Database.DBName,
	}, log.Logger)
	if err != nil {
		log.Fatal("Failed to instrument database", zap.Error(err))
	}

	// Stock reservations run on pgx directly for row-level locking
	pool, err := inventory.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal("Failed to open reservation pool", zap.Error(err))
	}
	reservations := inventory.NewPgReservationStore(pool, log.Named("reservations"))

	// Redis backs idempotency, the token blacklist and the L2 product cache
	backend, err := cache.Connect(ctx, cfg.Redis, log.Named("redis"), !cfg.IsProduction())
	if err != nil {
		log.Fatal("Failed to connect to redis", zap.Error(err))
	}
	idemStore := backend.Idempotency

	var blacklist auth.TokenBlacklist = auth.NewInMemoryTokenBlacklist()
	var invalidator *cache.Invalidator
	var l2 redis.Cmdable
	if backend.Distributed() {
		blacklist = auth.NewRedisTokenBlacklist(backend.Client, "")
		invalidator = cache.NewInvalidator(backend.Client, uuid.NewString(), log.Logger)
		l2 = backend.Client
	}

	registry := metrics.New()

	productCache := cache.NewTieredProductCache(time.Minute, 10*time.Minute, l2, invalidator, log.Logger)
	productCache.SetRecorder(registry)
	cacheCtx, stopCache := context.WithCancel(ctx)
	go func() {
		if err := productCache.Run(cacheCtx); err != nil && !errors.Is(err, context.Canceled) {
			log.Warn("Product cache invalidation loop stopped", zap.Error(err))
		}
	}()

	// Repositories
	userRepo := persistence.NewGormUserRepository(db.DB)
	addressRepo := persistence.NewGormAddressRepository(db.DB)
	methodRepo := persistence.NewGormPaymentMethodRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	categoryRepo := persistence.NewGormCategoryRepository(db.DB)
	cartRepo := persistence.NewGormCartRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	settingsRepo := persistence.NewGormSettingsRepository(db.DB)
	supplierRepo := persistence.NewGormSupplierRepository(db.DB)
	outboxRepo := event.NewGormOutboxRepository(db.DB)

	// Domain events are written to the outbox in the same transaction as the aggregate
	eventSerializer := event.NewEventSerializer()
	event.RegisterAllEvents(eventSerializer)
	outboxPublisher := event.NewOutboxPublisher(eventSerializer)
	userRepo.SetOutboxEventSaver(outboxPublisher)
	productRepo.SetOutboxEventSaver(outboxPublisher)
	categoryRepo.SetOutboxEventSaver(outboxPublisher)
	orderRepo.SetOutboxEventSaver(outboxPublisher)
	supplierRepo.SetOutboxEventSaver(outboxPublisher)

	// Object storage for product images and invoice PDFs
	store, err := storage.New(ctx, &cfg.Storage, log.Logger)
	if err != nil {
		log.Fatal("Failed to initialize storage", zap.Error(err))
	}
	images := imaging.NewProcessor(store, cfg.Image, log.Logger)

	var printer billingapp.DocumentPrinter
	var renderer *printing.ChromeRenderer
	if cfg.Order.InvoicePDFEnabled {
		renderer = printing.NewChromeRenderer(printing.ChromeConfig{
			RemoteURL: cfg.Order.ChromeURL,
			Timeout:   30 * time.Second,
			NoSandbox: true,
		}, log.Logger)
		printer = printing.NewInvoicePrinter(renderer, store, log.Logger)
	}

	// External services
	notifier := notification.NewClient(cfg.Notification, log.Logger, notification.WithRecorder(registry))
	gateway, err := payment.New(cfg.Payment, log.Logger)
	if err != nil {
		log.Fatal("Failed to initialize payment gateway", zap.Error(err))
	}
	supplierClient := supplierapi.NewClient(cfg.Supplier, log.Logger)
	llm, err := ai.NewOllamaClient(cfg.AI, log.Logger)
	if err != nil {
		log.Fatal("Failed to initialize assistant model client", zap.Error(err))
	}

	// Application services
	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(userRepo, jwtService, blacklist, log.Logger)
	userService := identityapp.NewUserService(userRepo, addressRepo, methodRepo, log.Logger)
	productService := catalogapp.NewProductService(productRepo, categoryRepo, images, productCache, log.Logger)
	categoryService := catalogapp.NewCategoryService(categoryRepo, log.Logger)
	cartService := salesapp.NewCartService(cartRepo, productRepo, log.Logger)
	settingsService := billingapp.NewSettingsService(settingsRepo, log.Logger)
	invoiceService := billingapp.NewInvoiceService(invoiceRepo, settingsRepo, orderRepo, userRepo, addressRepo, printer, log.Logger)
	supplierService := supplierapp.NewSupplierService(supplierRepo, productRepo, addressRepo, supplierClient, productCache, log.Logger)
	outboxService := eventapp.NewOutboxService(outboxRepo, log.Logger)
	assistantService := assistantapp.NewService(llm, productService, log.Logger)
	orderService := salesapp.NewOrderService(salesapp.OrderServiceDeps{
		Orders:      orderRepo,
		Carts:       cartRepo,
		Products:    productRepo,
		Users:       userRepo,
		Addresses:   addressRepo,
		Stock:       reservations,
		Invoices:    invoiceService,
		Gateway:     gateway,
		Notifier:    notifier,
		Forwarder:   supplierService,
		Idempotency: idemStore,
		Recorder:    registry,
		Config:      cfg.Order,
		Logger:      log.Logger,
	})

	// Event bus and outbox relay
	eventBus := event.NewInMemoryEventBus(log.Logger)
	lowStock := inventoryapp.NewLowStockHandler(reservations, productRepo, notifier, inventoryapp.LowStockConfig{
		Threshold: cfg.Order.LowStockThreshold,
		Recipient: cfg.Notification.AlertEmail,
	}, log.Logger)
	idemCfg := shared.DefaultIdempotencyConfig()
	if cfg.Event.IdempotencyTTL > 0 {
		idemCfg.TTL = cfg.Event.IdempotencyTTL
	}
	eventBus.Subscribe(event.NewIdempotentHandler(lowStock, idemStore, log.Logger, event.WithIdempotencyConfig(idemCfg)))
	log.Info("Event handlers registered", zap.Strings("low_stock_events", lowStock.EventTypes()))

	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	var outboxProcessor *event.OutboxProcessor
	if cfg.Event.ProcessorEnabled {
		processorCfg := event.DefaultOutboxProcessorConfig()
		if cfg.Event.BatchSize > 0 {
			processorCfg.BatchSize = cfg.Event.BatchSize
		}
		if cfg.Event.PollInterval > 0 {
			processorCfg.PollInterval = cfg.Event.PollInterval
		}
		processorCfg.CleanupEnabled = cfg.Event.CleanupEnabled
		if cfg.Event.CleanupRetention > 0 {
			processorCfg.CleanupRetention = cfg.Event.CleanupRetention
		}
		outboxProcessor = event.NewOutboxProcessor(outboxRepo, eventBus, eventSerializer, processorCfg, log.Logger)
		outboxProcessor.SetRecorder(registry)
		if err := outboxProcessor.Start(ctx); err != nil {
			log.Fatal("Failed to start outbox processor", zap.Error(err))
		}
	}

	// Health report: only the database is critical
	checks := []healthapp.Check{
		{Name: "database", Critical: true, Probe: db.Ping},
		{Name: "storage", Probe: store.Ping},
		{Name: "redis"},
		{Name: "logging"},
		{Name: "notification"},
		{Name: "assistant"},
	}
	if backend.Distributed() {
		checks[2].Probe = backend.Ping
	}
	if sink != nil {
		checks[3].Probe = func(context.Context) error {
			if !sink.Healthy() {
				return errors.New("logging service unreachable, writing to fallback files")
			}
			return nil
		}
	}
	if cfg.Notification.Enabled {
		checks[4].Probe = notifier.Ping
	}
	if llm.Enabled() {
		checks[5].Probe = llm.Ping
	}
	healthService := healthapp.NewService(cfg.App.Name, version, log.Logger, checks...)

	// HTTP
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Warn("Invalid trusted proxy list", zap.Error(err))
	}

	var limiter, authLimiter *middleware.RateLimiter
	if cfg.HTTP.RateLimitEnabled {
		limiter = middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
	}
	if cfg.HTTP.AuthRateLimitEnabled {
		authLimiter = middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
	}
	reload.attach(log, limiter, authLimiter)

	engine.Use(
		middleware.RequestID(),
		logger.Recovery(log.Logger),
		logger.GinMiddleware(log.Logger),
		middleware.TracingWithConfig(middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
			SkipPaths:   middleware.DefaultTracingConfig().SkipPaths,
		}),
		middleware.SpanErrorMarker(),
		middleware.TracingAttributeInjector(),
		middleware.HTTPMetrics(registry, providers.Meter("flipflop/http")),
		middleware.ProfilingWithConfig(middleware.ProfilingConfig{
			Enabled:   cfg.Telemetry.ProfilingEnabled,
			SkipPaths: []string{"/health", "/metrics"},
		}),
		middleware.SecureWithConfig(middleware.DefaultSecurityConfig()),
		middleware.CORSWithConfig(corsConfig(cfg.HTTP)),
		middleware.BodyLimitWithConfig(middleware.BodyLimitConfig{
			MaxBytes:       cfg.HTTP.MaxBodySize,
			MaxUploadBytes: cfg.Image.MaxUploadBytes,
		}),
	)
	if limiter != nil {
		engine.Use(middleware.RateLimit(limiter))
	}

	jwtCfg := middleware.JWTMiddlewareConfig{
		JWTService:                jwtService,
		TokenBlacklist:            blacklist,
		Users:                     userRepo,
		TrustTokenOnLookupFailure: cfg.Auth.TrustTokenOnLookupFailure,
		Logger:                    log.Logger,
	}
	guards := router.Guards{
		Auth:         middleware.JWTAuthMiddlewareWithConfig(jwtCfg),
		OptionalAuth: middleware.OptionalJWTAuthMiddleware(jwtCfg),
		Admin:        middleware.RequireAdmin(log.Logger),
	}
	if authLimiter != nil {
		guards.AuthRateLimit = middleware.AuthRateLimit(authLimiter)
	}

	systemHandler := handler.NewSystemHandler(healthService, cfg.App.Name, version)
	handlers := router.Handlers{
		Auth:            handler.NewAuthHandler(authService),
		User:            handler.NewUserHandler(userService),
		Product:         handler.NewProductHandler(productService, cfg.Image.MaxUploadBytes),
		Category:        handler.NewCategoryHandler(categoryService),
		Cart:            handler.NewCartHandler(cartService),
		Order:           handler.NewOrderHandler(orderService, invoiceService),
		PaymentWebhook:  handler.NewPaymentWebhookHandler(orderService),
		CompanySettings: handler.NewCompanySettingsHandler(settingsService),
		Supplier:        handler.NewSupplierHandler(supplierService),
		Assistant:       handler.NewAssistantHandler(assistantService),
		Outbox:          handler.NewOutboxHandler(outboxService),
		System:          systemHandler,
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))
	routes := 0
	for _, g := range router.APIGroups(handlers, guards) {
		r.Register(g)
		routes += len(g.Routes(r.BasePath()))
	}
	r.Setup()
	log.Info("API routes mounted", zap.String("base_path", r.BasePath()), zap.Int("routes", routes))

	engine.GET("/health", systemHandler.Health)
	if cfg.HTTP.MetricsEnabled {
		engine.GET("/metrics", gin.WrapH(registry.Handler()))
	}
	engine.GET("/swagger/*any",
		middleware.SwaggerProtection(middleware.SwaggerConfig{
			Enabled:     cfg.Swagger.Enabled,
			RequireAuth: cfg.IsProduction(),
			AllowedIPs:  cfg.Swagger.AllowedIPs,
		}, log.Logger, guards.Auth, guards.Admin),
		ginSwagger.WrapHandler(swaggerFiles.Handler),
	)
	if cfg.Storage.Backend == "" || cfg.Storage.Backend == "local" {
		engine.Static(cfg.Storage.PublicPrefix, cfg.Storage.LocalDir)
	}

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

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if outboxProcessor != nil {
		if err := outboxProcessor.Stop(shutdownCtx); err != nil {
			log.Error("Error stopping outbox processor", zap.Error(err))
		}
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if err := notifier.Wait(shutdownCtx); err != nil {
		log.Warn("Pending notifications dropped", zap.Error(err))
	}
	if renderer != nil {
		_ = renderer.Close()
	}
	if limiter != nil {
		limiter.Close()
	}
	if authLimiter != nil {
		authLimiter.Close()
	}

	stopCache()
	productCache.Close()
	if invalidator != nil {
		invalidator.Close()
	}
	if err := backend.Close(); err != nil {
		log.Error("Error closing redis", zap.Error(err))
	}
	pool.Close()

	if err := dbInstruments.Close(); err != nil {
		log.Warn("Error removing database instruments", zap.Error(err))
	}
	if err := db.Close(); err != nil {
		log.Error("Error closing database", zap.Error(err))
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Warn("Telemetry shutdown incomplete", zap.Error(err))
	}

	log.Info("Server exited gracefully")
	if sink != nil {
		_ = sink.Close(shutdownCtx)
	}
	_ = log.Sync()
}

// corsConfig overrides the default CORS policy with whatever the
// environment lists
func corsConfig(hc config.HTTPConfig) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = hc.CORSAllowOrigins
	if len(hc.CORSAllowMethods) > 0 {
		cors.AllowMethods = hc.CORSAllowMethods
	}
	if len(hc.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = hc.CORSAllowHeaders
	}
	return cors
}
