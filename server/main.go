package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"raffle/api/routes"
	"raffle/internal/access"
	"raffle/internal/checkout"
	"raffle/internal/notifications"
	"raffle/internal/payments"
	"raffle/internal/reservations"
	"raffle/internal/sales"
	"raffle/internal/shared/clock"
	"raffle/internal/shared/config"
	"raffle/internal/shared/database"
	"raffle/internal/tickets"
	"raffle/pkg/logger"
	"raffle/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	appLogger := logger.GetDefault()

	// Smart environment loading
	if err := godotenv.Load(); err != nil {
		if os.Getenv("GIN_MODE") == "release" || os.Getenv("DOCKER_CONTAINER") == "true" {
			appLogger.Info("Production environment: using container environment variables")
		} else {
			appLogger.Info("No .env file found, using system environment variables")
		}
	} else {
		appLogger.Info("Development environment: loaded .env file")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		appLogger.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}
	gin.SetMode(cfg.GinMode)

	// Rebuild the logger now that mode and level are known
	appLogger = logger.NewWithWriter(os.Stdout, cfg.LogLevel)
	logger.SetDefault(appLogger)

	// Optional stores: Postgres for the sales ledger, Redis for rate limiting
	// and idempotent retries
	db, err := database.InitDB(cfg)
	if err != nil {
		appLogger.Error("failed to connect", slog.Any("error", err))
		os.Exit(1)
	}
	defer db.Close()

	// Ticket inventory and hold scheduler
	clk := clock.NewSystem()
	store := tickets.NewStore(cfg.Raffle.TicketCount, cfg.Raffle.TicketWidth, clk)
	scheduler := reservations.NewScheduler(store, clk,
		reservations.WithHoldDuration(cfg.Raffle.HoldDuration),
		reservations.WithMaxHold(cfg.Raffle.MaxHold),
	)

	// Payment processor
	if cfg.MercadoPago.AccessToken == "" {
		appLogger.Warn("MERCADO_PAGO_ACCESS_TOKEN is not set, payments will fail")
	}
	gateway, err := payments.NewMercadoPagoClient(payments.MercadoPagoConfig{
		AccessToken: cfg.MercadoPago.AccessToken,
		BaseURL:     cfg.MercadoPago.BaseURL,
		Timeout:     cfg.MercadoPago.Timeout,
	})
	if err != nil {
		appLogger.Error("failed to initialize payment gateway", slog.Any("error", err))
		os.Exit(1)
	}

	// Ticket events
	publisher := initPublisher(cfg, appLogger)
	defer func() {
		if err := publisher.Close(); err != nil {
			appLogger.Error("Error closing ticket event publisher", slog.Any("error", err))
		}
	}()

	// Sales ledger
	var salesRepo sales.Repository
	if pg := db.GetPostgreSQL(); pg != nil {
		salesRepo = sales.NewRepository(pg)
	} else {
		salesRepo = sales.NewMemoryRepository()
		appLogger.Info("Database disabled, sales ledger kept in memory")
	}
	salesService := sales.NewService(salesRepo)

	checkoutService := checkout.NewService(store, scheduler, gateway, publisher, salesService, checkout.Config{
		UnitPrice:        cfg.Raffle.UnitPrice,
		PayerEmailDomain: cfg.Raffle.PayerEmailDomain,
		PollInterval:     cfg.Raffle.PollInterval,
	})
	scheduler.SetReleaseHook(checkoutService.HandleExpired)

	if err := checkout.RegisterValidators(); err != nil {
		appLogger.Error("failed to register request validators", slog.Any("error", err))
		os.Exit(1)
	}

	accessService, err := access.NewService(cfg, clk)
	if err != nil {
		appLogger.Error("failed to initialize access gate", slog.Any("error", err))
		os.Exit(1)
	}

	// Initialize Rate Limiter
	var rateLimiter *ratelimit.RateLimiter
	if cfg.RateLimit.Enabled && db.GetRedisClient() != nil {
		rateLimiterConfig := &ratelimit.Config{
			Enabled:          cfg.RateLimit.Enabled,
			WindowDuration:   cfg.RateLimit.WindowDuration,
			DefaultRequests:  cfg.RateLimit.DefaultRequests,
			PublicRequests:   cfg.RateLimit.PublicRequests,
			CheckoutRequests: cfg.RateLimit.CheckoutRequests,
			AccessRequests:   cfg.RateLimit.AccessRequests,
			AdminRequests:    cfg.RateLimit.AdminRequests,
			HealthRequests:   cfg.RateLimit.HealthRequests,
			WhitelistedIPs:   cfg.RateLimit.WhitelistedIPs,
		}

		rateLimiter = ratelimit.NewRateLimiter(db.GetRedisClient(), rateLimiterConfig)
		appLogger.Info("Rate limiter initialized",
			slog.Duration("window", cfg.RateLimit.WindowDuration),
			slog.Int("checkout_requests", cfg.RateLimit.CheckoutRequests),
		)
	} else {
		appLogger.Info("Rate limiting disabled")
	}

	router := setupRouter(cfg, db, rateLimiter, routes.Services{
		Checkout: checkoutService,
		Sales:    salesService,
		Access:   accessService,
	})

	// HTTP server
	srv := &http.Server{
		Addr:           cfg.GetServerAddress(),
		Handler:        router,
		ReadTimeout:    cfg.ReadTimeout,
		WriteTimeout:   cfg.WriteTimeout,
		IdleTimeout:    cfg.IdleTimeout,
		MaxHeaderBytes: cfg.MaxHeaderBytes,
	}

	go func() {
		appLogger.Info("Server running",
			slog.String("address", cfg.GetServerAddress()),
			slog.String("health_check", fmt.Sprintf("http://localhost:%s/health", cfg.Port)),
			slog.String("version", Version),
			slog.String("commit", GitCommit),
			slog.String("build_time", BuildTime),
			slog.Int("tickets", cfg.Raffle.TicketCount),
			slog.Duration("hold", scheduler.HoldDuration()),
			slog.Bool("sales_ledger_db", db.GetPostgreSQL() != nil),
			slog.Bool("redis", db.GetRedisClient() != nil),
			slog.Bool("kafka", cfg.Kafka.Enabled),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			appLogger.Error("Server failed", slog.Any("error", err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	appLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		appLogger.Error("Forced shutdown", slog.Any("error", err))
	}

	// In-flight holds are dropped; nothing about a reservation is persisted
	checkoutService.Shutdown()
	scheduler.Stop()

	appLogger.Info("Server exited gracefully")
}

func initPublisher(cfg *config.Config, appLogger *logger.Logger) notifications.Publisher {
	if !cfg.Kafka.Enabled {
		appLogger.Info("Kafka disabled, ticket events are not published")
		return notifications.NoopPublisher{}
	}

	producerConfig := notifications.DefaultKafkaProducerConfig()
	producerConfig.Brokers = cfg.Kafka.Brokers
	producerConfig.TicketTopic = cfg.Kafka.TicketTopic

	publisher, err := notifications.NewKafkaPublisher(producerConfig)
	if err != nil {
		appLogger.Error("Failed to initialize Kafka publisher", slog.Any("error", err))
		appLogger.Info("Continuing without ticket events")
		return notifications.NoopPublisher{}
	}

	appLogger.Info("Kafka publisher initialized",
		slog.Any("brokers", cfg.Kafka.Brokers),
		slog.String("topic", cfg.Kafka.TicketTopic),
	)
	return publisher
}

func setupRouter(cfg *config.Config, db *database.DB, rateLimiter *ratelimit.RateLimiter, services routes.Services) *gin.Engine {
	engine := gin.New()
	appLogger := logger.GetDefault()

	// Built-in middleware: logs requests + recovers from panics
	engine.Use(RequestLoggerMiddleware(appLogger), gin.Recovery())

	corsConfig := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", "X-Idempotency-Key"},
		ExposeHeaders:    []string{"Content-Length", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Idempotent-Replayed"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsConfig.AllowOriginFunc = func(origin string) bool {
			return true
		}
	} else {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	}
	engine.Use(cors.New(corsConfig))

	// Global rate limiting middleware (applied to all routes)
	if rateLimiter != nil {
		engine.Use(ratelimit.Middleware(rateLimiter))
		appLogger.Info("Rate limiting middleware applied to all routes")
	}

	appRouter := routes.NewRouter(cfg, db, services)
	appRouter.SetupRoutes(engine)

	return engine
}

func RequestLoggerMiddleware(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start)
		l.LogHTTPRequest(c, duration)
	}
}
