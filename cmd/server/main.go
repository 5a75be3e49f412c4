package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	bulkapp "github.com/marv/gateway/internal/application/bulk"
	"github.com/marv/gateway/internal/application/dashboard"
	warrantyapp "github.com/marv/gateway/internal/application/warranty"
	"github.com/marv/gateway/internal/domain/calendar"
	"github.com/marv/gateway/internal/infrastructure/cache"
	"github.com/marv/gateway/internal/infrastructure/config"
	"github.com/marv/gateway/internal/infrastructure/logger"
	"github.com/marv/gateway/internal/infrastructure/marvapi"
	"github.com/marv/gateway/internal/infrastructure/metrics"
	"github.com/marv/gateway/internal/infrastructure/persistence"
	"github.com/marv/gateway/internal/infrastructure/session"
	"github.com/marv/gateway/internal/infrastructure/telemetry"
	"github.com/marv/gateway/internal/interfaces/http/handler"
	"github.com/marv/gateway/internal/interfaces/http/middleware"
	"github.com/marv/gateway/internal/interfaces/http/router"
)

//	@title			Marv Gateway API
//	@version		1.0
//	@description	Serial range provisioning, Persian calendar conversion and warranty lookups in front of the Marv warranty backend

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	SessionID
//	@in							header
//	@name						X-Session-ID

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

	telemetryCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		LogsEnabled:       cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}
	tracerProvider, err := telemetry.NewTracerProvider(context.Background(), telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize tracing", zap.Error(err))
	}
	defer func() {
		_ = tracerProvider.Shutdown(context.Background())
	}()
	logsProvider, err := telemetry.NewLoggerProvider(context.Background(), telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize log export", zap.Error(err))
	}
	defer func() {
		_ = logsProvider.Shutdown(context.Background())
	}()
	log = logger.WithOTEL(log, cfg.Telemetry.ServiceName, logsProvider.Provider(), logger.ParseLevel(cfg.Log.Level))

	log.Info("Starting Marv Gateway",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("upstream", cfg.Upstream.BaseURL),
	)

	// Bulk run history
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	dbOpts := []persistence.Option{persistence.WithLogger(gormLog)}
	if cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled {
		dbOpts = append(dbOpts, persistence.WithTracing(nil, cfg.Telemetry.DBLogFullSQL))
	}
	db, err := persistence.NewDatabase(&cfg.Database, dbOpts...)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to migrate database", zap.Error(err))
	}
	log.Info("Database ready", zap.String("driver", db.Driver()))

	// Session tokens and warranty lookups live in Redis when configured
	storeFactory := cache.NewStoreFactory(cfg.Redis, cache.WithLogger(log))

	sessionBackend, err := storeFactory.CreateStore(cfg.Session.Store == "redis", cfg.Session.KeyPrefix)
	if err != nil {
		log.Fatal("Failed to create session store", zap.Error(err))
	}
	sessions := session.NewStore(sessionBackend, cfg.Session.TTL)
	defer func() {
		_ = sessions.Close()
	}()

	lookupCache, err := storeFactory.CreateStore(cfg.Redis.Enabled, "marv:warranty:")
	if err != nil {
		log.Fatal("Failed to create warranty cache", zap.Error(err))
	}
	defer func() {
		_ = lookupCache.Close()
	}()

	m := metrics.New()

	client, err := marvapi.New(marvapi.Config{
		BaseURL:          cfg.Upstream.BaseURL,
		Timeout:          cfg.Upstream.Timeout,
		MaxResponseBytes: cfg.Upstream.MaxResponseBytes,
		UserAgent:        cfg.Upstream.UserAgent,
	},
		marvapi.WithTokenSource(session.NewProvider(sessions)),
		marvapi.WithObserver(m.ObserveUpstream),
	)
	if err != nil {
		log.Fatal("Failed to create upstream client", zap.Error(err))
	}

	// Services
	bulkService := bulkapp.NewService(client, persistence.NewGormBulkRunRepository(db.DB),
		bulkapp.Config{MaxRangeSize: cfg.Bulk.MaxRangeSize, Concurrency: cfg.Bulk.Concurrency},
		bulkapp.WithLogger(log),
		bulkapp.WithObserver(m),
	)
	warrantyService := warrantyapp.NewService(client,
		warrantyapp.WithCache(lookupCache, cfg.Warranty.CacheTTL),
		warrantyapp.WithLogger(log),
		warrantyapp.WithObserver(m),
	)
	dashboardService := dashboard.NewService(dashboard.Sources{
		Persons:  client.Persons(),
		Products: client.Products(),
		Devices:  client.Devices(),
		Repairs:  client.Repairs(),
		Tests:    client.Tests(),
	}, log)

	recoverCtx, cancelRecover := context.WithTimeout(context.Background(), 10*time.Second)
	if _, err := bulkService.RecoverInterrupted(recoverCtx); err != nil {
		log.Error("Failed to recover interrupted bulk runs", zap.Error(err))
	}
	cancelRecover()

	// Handlers
	serialHandler := handler.NewSerialHandler(bulkService)
	calendarHandler := handler.NewCalendarHandler(calendar.NewConverter(nil))
	bulkHandler := handler.NewBulkHandler(bulkService)
	warrantyHandler := handler.NewWarrantyHandler(warrantyService)
	dashboardHandler := handler.NewDashboardHandler(dashboardService)
	authHandler := handler.NewAuthHandler(client)
	systemHandler := handler.NewSystemHandler(cfg.App.Name, map[string]handler.HealthCheck{
		"database": func(context.Context) error { return db.Ping() },
	})

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

	// Apply middleware stack in order:
	// 1. RequestID - Generate/propagate request ID
	// 2. Recovery - Catch panics
	// 3. Logger - Log requests
	// 4. Security - Add security headers
	// 5. CORS - Handle cross-origin requests
	// 6. BodyLimit - Limit request body size
	// 7. Metrics - Count and time requests
	// 8. Session - Resolve the caller's upstream session
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Tracing(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     tracerProvider.IsEnabled(),
	}))
	engine.Use(logger.Recovery(log))
	engine.Use(logger.GinMiddleware(log))
	engine.Use(middleware.Secure())

	corsConfig := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))

	var recorder middleware.HTTPRecorder
	if cfg.Metrics.Enabled {
		recorder = m
	}
	engine.Use(middleware.HTTPMetrics(recorder))
	engine.Use(middleware.Session())
	engine.Use(middleware.TraceAttributes())

	engine.GET("/health", systemHandler.Health)
	if cfg.Metrics.Enabled {
		engine.GET(cfg.Metrics.Path, gin.WrapH(m.Handler()))
	}

	r := router.NewRouter(engine, router.WithAPIVersion("v1"))

	serialRoutes := router.NewDomainGroup("serials", "/serials")
	serialRoutes.POST("/expand", serialHandler.Expand)

	calendarRoutes := router.NewDomainGroup("calendar", "/calendar")
	calendarRoutes.GET("/to-persian", calendarHandler.ToPersian)
	calendarRoutes.GET("/to-gregorian", calendarHandler.ToGregorian)
	calendarRoutes.GET("/today", calendarHandler.Today)

	bulkRoutes := router.NewDomainGroup("bulk", "/bulk")
	bulkRoutes.POST("/devices", bulkHandler.CreateDevices)
	bulkRoutes.POST("/tests", bulkHandler.CreateTests)
	runRoutes := bulkRoutes.Group("runs", "/runs")
	runRoutes.GET("", bulkHandler.ListRuns)
	runRoutes.GET("/:id", bulkHandler.GetRun)

	warrantyRoutes := router.NewDomainGroup("warranty", "/warranty")
	authRoutes := router.NewDomainGroup("auth", "/auth")
	if cfg.HTTP.RateLimit > 0 {
		lookupLimiter := middleware.NewRateLimiter(cfg.HTTP.RateLimit, cfg.HTTP.RateWindow)
		defer lookupLimiter.Stop()
		warrantyRoutes.Use(middleware.RateLimit(lookupLimiter))

		loginLimiter := middleware.NewRateLimiter(max(cfg.HTTP.RateLimit/10, 5), cfg.HTTP.RateWindow)
		defer loginLimiter.Stop()
		authRoutes.POST("/login", middleware.AuthRateLimit(loginLimiter), authHandler.Login)

		log.Info("Rate limiting enabled",
			zap.Int("requests", cfg.HTTP.RateLimit),
			zap.Duration("window", cfg.HTTP.RateWindow),
		)
	} else {
		authRoutes.POST("/login", authHandler.Login)
	}
	warrantyRoutes.GET("/:serial", warrantyHandler.Lookup)
	authRoutes.GET("/me", authHandler.Me)
	authRoutes.POST("/logout", authHandler.Logout)
	authRoutes.Handle(http.MethodDelete, "/sessions", authHandler.ClearSessions)

	dashboardRoutes := router.NewDomainGroup("dashboard", "/dashboard")
	dashboardRoutes.GET("/stats", dashboardHandler.Stats)

	systemRoutes := router.NewDomainGroup("system", "/system")
	systemRoutes.GET("/info", systemHandler.GetSystemInfo)
	systemRoutes.GET("/ping", systemHandler.Ping)

	r.Register(serialRoutes).
		Register(calendarRoutes).
		Register(bulkRoutes).
		Register(warrantyRoutes).
		Register(authRoutes).
		Register(dashboardRoutes).
		Register(systemRoutes)
	r.Setup()
	log.Debug("Routes registered", zap.Any("routes", r.Routes()))

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

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}
