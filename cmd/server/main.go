package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	cartapp "github.com/onlinekart/backend/internal/application/cart"
	catalogapp "github.com/onlinekart/backend/internal/application/catalog"
	identityapp "github.com/onlinekart/backend/internal/application/identity"
	orderapp "github.com/onlinekart/backend/internal/application/order"
	"github.com/onlinekart/backend/internal/infrastructure/auth"
	"github.com/onlinekart/backend/internal/infrastructure/config"
	"github.com/onlinekart/backend/internal/infrastructure/invoice"
	"github.com/onlinekart/backend/internal/infrastructure/logger"
	"github.com/onlinekart/backend/internal/infrastructure/persistence"
	"github.com/onlinekart/backend/internal/infrastructure/storage"
	"github.com/onlinekart/backend/internal/infrastructure/telemetry"
	"github.com/onlinekart/backend/internal/interfaces/http/handler"
	"github.com/onlinekart/backend/internal/interfaces/http/middleware"
	"github.com/onlinekart/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	_ "github.com/onlinekart/backend/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

//	@title			Online Kart API
//	@version		1.0
//	@description	E-commerce backend API: catalog, cart, checkout, and order management

//	@contact.name	API Support
//	@contact.url	https://github.com/onlinekart/backend

//	@license.name	Apache 2.0
//	@license.url	http://www.apache.org/licenses/LICENSE-2.0.html

//	@host		localhost:8080
//	@BasePath	/api

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

const redocPage = `<!DOCTYPE html>
<html>
  <head>
    <title>Online Kart API Reference</title>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <style>body { margin: 0; padding: 0; }</style>
  </head>
  <body>
    <redoc spec-url="/docs/doc.json"></redoc>
    <script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>
  </body>
</html>`

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
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

	log.Info("Starting Online Kart backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Initialize OpenTelemetry providers (no-ops when telemetry is disabled)
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
	defer shutdownWithTimeout(tracerProvider.Shutdown, log, "tracer provider")

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	defer shutdownWithTimeout(meterProvider.Shutdown, log, "meter provider")

	logsProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logs provider", zap.Error(err))
	}
	defer shutdownWithTimeout(logsProvider.Shutdown, log, "logs provider")

	// Bridge zap output to the OTEL collector alongside stdout
	if cfg.Telemetry.Enabled {
		otelCore := telemetry.NewZapOTELCore(telemetry.ZapBridgeConfig{
			ServiceName:    cfg.Telemetry.ServiceName,
			LoggerProvider: logsProvider,
			Level:          zapcore.InfoLevel,
		})
		log = telemetry.NewBridgedLogger(log.Core(), otelCore,
			zap.AddCaller(),
			zap.AddStacktrace(zapcore.ErrorLevel),
		)
	}

	// Continuous profiling via Pyroscope
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:           cfg.Telemetry.ProfilingEnabled,
		ServerAddress:     cfg.Telemetry.ProfilingServerAddr,
		ApplicationName:   cfg.Telemetry.ServiceName,
		ProfileCPU:        true,
		ProfileAllocSpace: true,
		ProfileInuseSpace: true,
		ProfileGoroutines: true,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	defer func() {
		if err := profiler.Stop(); err != nil {
			log.Error("Error stopping profiler", zap.Error(err))
		}
	}()

	// Create GORM logger backed by zap
	gormLogLevel := logger.MapGormLogLevel(cfg.Log.Level)
	gormLog := logger.NewGormLogger(log, gormLogLevel)

	// Initialize database connection with custom logger
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Database observability plugins
	if cfg.Telemetry.DBTraceEnabled {
		tracingPlugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
			Enabled:         true,
			LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
			SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		}, log)
		if err := db.DB.Use(tracingPlugin); err != nil {
			log.Warn("Failed to register DB tracing plugin", zap.Error(err))
		}
	}
	if cfg.Telemetry.Enabled {
		dbMetrics, err := telemetry.NewDBMetrics(
			meterProvider.Meter("onlinekart/db"),
			telemetry.DefaultDBMetricsConfig(),
			log,
		)
		if err != nil {
			log.Warn("Failed to initialize DB metrics", zap.Error(err))
		} else if err := db.DB.Use(telemetry.NewDBMetricsPlugin(dbMetrics, log)); err != nil {
			log.Warn("Failed to register DB metrics plugin", zap.Error(err))
		} else {
			if sqlDB, err := db.DB.DB(); err != nil {
				log.Warn("Failed to access SQL pool for metrics", zap.Error(err))
			} else {
				dbMetrics.SetSQLDB(sqlDB)
				dbMetrics.StartPoolStatsCollection(ctx)
				defer dbMetrics.Stop()
			}
		}
	}

	// Token blacklist backed by Redis; logout still works in-process
	// when Redis is unreachable
	var blacklist auth.TokenBlacklist
	redisBlacklist, err := auth.NewRedisTokenBlacklist(auth.RedisTokenBlacklistConfig{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		log.Warn("Redis unavailable, falling back to in-memory token blacklist", zap.Error(err))
		blacklist = auth.NewInMemoryTokenBlacklist()
	} else {
		blacklist = redisBlacklist
		log.Info("Redis token blacklist connected")
	}

	// Initialize repositories
	userRepo := persistence.NewGormUserRepository(db.DB)
	categoryRepo := persistence.NewGormCategoryRepository(db.DB)
	productRepo := persistence.NewGormProductRepository(db.DB)
	cartRepo := persistence.NewGormCartRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)

	// Transactional scopes for checkout and order cancellation
	checkoutScope := persistence.NewGormCheckoutScope(db.DB)
	orderScope := persistence.NewGormOrderScope(db.DB)

	// Object storage for product images
	var imageStore catalogapp.ImageStore
	if cfg.Storage.Bucket == "" {
		log.Warn("No storage bucket configured, product images use the local stub store")
		imageStore = storage.NewStubImageStore()
	} else {
		s3Store, err := storage.NewS3ImageStore(&cfg.Storage)
		if err != nil {
			log.Fatal("Failed to initialize S3 image store", zap.Error(err))
		}
		imageStore = s3Store
	}

	// Invoice PDF rendering via headless Chrome
	pdfRenderer, err := invoice.NewChromedpRenderer(&invoice.ChromedpConfig{
		NoSandbox: true,
		Logger:    log,
	})
	if err != nil {
		log.Fatal("Failed to initialize PDF renderer", zap.Error(err))
	}
	defer func() {
		if err := pdfRenderer.Close(); err != nil {
			log.Error("Error closing PDF renderer", zap.Error(err))
		}
	}()
	invoiceGenerator := invoice.NewGenerator(pdfRenderer)

	// Initialize application services
	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(userRepo, jwtService, blacklist, log)
	categoryService := catalogapp.NewCategoryService(categoryRepo, productRepo)
	productService := catalogapp.NewProductService(productRepo, categoryRepo, imageStore)
	cartService := cartapp.NewCartService(cartRepo, productRepo, checkoutScope, log)
	orderService := orderapp.NewOrderService(orderRepo, userRepo, orderScope, log)

	// Business metrics (registrations, orders, stock levels)
	businessMetrics, err := telemetry.NewBusinessMetrics(telemetry.BusinessMetricsConfig{
		Meter:           meterProvider.Meter("onlinekart/business"),
		Logger:          log,
		CatalogProvider: telemetry.NewGormCatalogMetricsProvider(db.DB),
	})
	if err != nil {
		log.Warn("Failed to initialize business metrics", zap.Error(err))
	} else {
		authService.SetBusinessMetrics(businessMetrics)
		cartService.SetBusinessMetrics(businessMetrics)
		businessMetrics.StartPeriodicCollection(ctx, 5*time.Minute, 5)
		defer businessMetrics.Stop()
	}

	// Initialize HTTP handlers
	systemHandler := handler.NewSystemHandler(db)
	authHandler := handler.NewAuthHandler(authService)
	categoryHandler := handler.NewCategoryHandler(categoryService)
	productHandler := handler.NewProductHandler(productService)
	cartHandler := handler.NewCartHandler(cartService)
	orderHandler := handler.NewOrderHandler(orderService, invoiceGenerator)

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup validation
	middleware.SetupValidator()

	engine := gin.New()

	// Configure trusted proxies
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	// Configure CORS from config
	engine.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     cfg.HTTP.CORSAllowOrigins,
		AllowMethods:     cfg.HTTP.CORSAllowMethods,
		AllowHeaders:     cfg.HTTP.CORSAllowHeaders,
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Body size limit
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	// Rate limiting (if enabled)
	if cfg.HTTP.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		defer rateLimiter.Stop()
		engine.Use(middleware.RateLimit(rateLimiter))
		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimitRequests),
			zap.Duration("window", cfg.HTTP.RateLimitWindow),
		)
	}

	// Request observability
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.HTTPMetricsWithMeter(meterProvider.Meter("onlinekart/http"), cfg.Telemetry.Enabled))

	profilingConfig := middleware.DefaultProfilingConfig()
	profilingConfig.Enabled = cfg.Telemetry.ProfilingEnabled
	engine.Use(middleware.ProfilingWithConfig(profilingConfig))

	// Authentication middleware variants
	jwtConfig := middleware.DefaultJWTConfig(jwtService)
	jwtConfig.TokenBlacklist = blacklist
	jwtConfig.Logger = log
	jwtAuth := middleware.JWTAuthMiddlewareWithConfig(jwtConfig)
	optionalAuth := middleware.OptionalJWTAuthMiddleware(jwtService)
	staffOnly := middleware.StaffOnly()

	// API documentation: Swagger UI at /docs, Redoc at /redoc
	docsProtection := middleware.SwaggerProtection(middleware.SwaggerConfig{
		Enabled:     cfg.Swagger.Enabled,
		RequireAuth: cfg.Swagger.RequireAuth,
		AllowedIPs:  cfg.Swagger.AllowedIPs,
	}, jwtAuth)
	engine.GET("/docs/*any", docsProtection, ginSwagger.WrapHandler(swaggerFiles.Handler))
	engine.GET("/redoc", docsProtection, func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(redocPage))
	})

	r := router.NewRouter(engine)

	// System routes (health check, build info)
	systemRoutes := router.NewDomainGroup("system", "")
	systemRoutes.GET("/health/", systemHandler.Health)
	systemRoutes.GET("/system/info/", systemHandler.GetSystemInfo)

	// Auth routes: registration, login, and refresh are public
	authRoutes := router.NewDomainGroup("auth", "/auth")

	// Stricter rate limit on credential endpoints
	if cfg.HTTP.AuthRateLimitEnabled {
		authLimiter := middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
		defer authLimiter.Stop()
		authRoutes.Use(middleware.AuthRateLimit(authLimiter))
	}

	authRoutes.POST("/register/", authHandler.Register)
	authRoutes.POST("/login/", authHandler.Login)
	authRoutes.POST("/refresh/", authHandler.RefreshToken)
	authRoutes.POST("/logout/", jwtAuth, authHandler.Logout)
	authRoutes.GET("/me/", jwtAuth, authHandler.GetCurrentUser)
	authRoutes.PUT("/password/", jwtAuth, authHandler.ChangePassword)

	// Category routes: public reads, staff writes
	categoryRoutes := router.NewDomainGroup("categories", "/categories")
	categoryRoutes.GET("/", optionalAuth, categoryHandler.List)
	categoryRoutes.GET("/:slug/", optionalAuth, categoryHandler.Get)
	categoryRoutes.POST("/", jwtAuth, staffOnly, categoryHandler.Create)
	categoryRoutes.PUT("/:slug/", jwtAuth, staffOnly, categoryHandler.Update)
	categoryRoutes.DELETE("/:slug/", jwtAuth, staffOnly, categoryHandler.Delete)

	// Product routes: public reads, staff writes and image upload
	productRoutes := router.NewDomainGroup("products", "/products")
	productRoutes.GET("/", optionalAuth, productHandler.List)
	productRoutes.GET("/:slug/", optionalAuth, productHandler.Get)
	productRoutes.POST("/", jwtAuth, staffOnly, productHandler.Create)
	productRoutes.PUT("/:slug/", jwtAuth, staffOnly, productHandler.Update)
	productRoutes.DELETE("/:slug/", jwtAuth, staffOnly, productHandler.Delete)
	productRoutes.POST("/:slug/image/", jwtAuth, staffOnly, productHandler.UploadImage)

	// Cart routes: always owned by the authenticated user
	cartRoutes := router.NewDomainGroup("cart", "/cart")
	cartRoutes.Use(jwtAuth)
	cartRoutes.GET("/", cartHandler.Get)
	cartRoutes.POST("/add_item/", cartHandler.AddItem)
	cartRoutes.POST("/remove_item/", cartHandler.RemoveItem)
	cartRoutes.POST("/clear/", cartHandler.Clear)
	cartRoutes.POST("/checkout/", cartHandler.Checkout)

	// Order routes: customers see their own orders, staff manage fulfillment
	orderRoutes := router.NewDomainGroup("orders", "/orders")
	orderRoutes.Use(jwtAuth)
	orderRoutes.GET("/", orderHandler.List)
	orderRoutes.GET("/:id/", orderHandler.Get)
	orderRoutes.GET("/:id/invoice/", orderHandler.Invoice)
	orderRoutes.POST("/:id/ship/", staffOnly, orderHandler.Ship)
	orderRoutes.POST("/:id/deliver/", staffOnly, orderHandler.Deliver)
	orderRoutes.POST("/:id/cancel/", staffOnly, orderHandler.Cancel)

	r.Register(systemRoutes).
		Register(authRoutes).
		Register(categoryRoutes).
		Register(productRoutes).
		Register(cartRoutes).
		Register(orderRoutes)

	r.Setup()

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// shutdownWithTimeout flushes a telemetry provider during shutdown
func shutdownWithTimeout(shutdown func(context.Context) error, log *zap.Logger, name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Error("Error shutting down "+name, zap.Error(err))
	}
}
