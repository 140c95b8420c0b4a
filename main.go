package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Badr070118/lupeti-project-sub000/common/auth"
	apperrors "github.com/Badr070118/lupeti-project-sub000/common/errors"
	"github.com/Badr070118/lupeti-project-sub000/common/logger"
	"github.com/Badr070118/lupeti-project-sub000/common/middleware"
	"github.com/Badr070118/lupeti-project-sub000/common/tracing"
	"github.com/Badr070118/lupeti-project-sub000/config"
	"github.com/Badr070118/lupeti-project-sub000/controllers"
	"github.com/Badr070118/lupeti-project-sub000/database"
	aws_pkg "github.com/Badr070118/lupeti-project-sub000/pkg/aws"
	"github.com/Badr070118/lupeti-project-sub000/providers"
	"github.com/Badr070118/lupeti-project-sub000/repository"
	"github.com/Badr070118/lupeti-project-sub000/routes"
	"github.com/Badr070118/lupeti-project-sub000/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"
)

const serviceName = "checkout-service"

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig(ctx)
	if err != nil {
		logger.Initialize(os.Getenv("ENV"))
		logger.Log.Fatal("Failed to load configuration", zap.Error(err))
	}

	log := logger.Initialize(cfg.Env)
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	shutdownTracer, err := tracing.InitTracer(ctx, serviceName, cfg.OTELEndpoint)
	if err != nil {
		log.Warn("Tracing disabled", zap.Error(err))
		shutdownTracer = func(context.Context) error { return nil }
	}

	db, err := database.ConnectPostgres(cfg.Postgres, log, database.Models()...)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	store := repository.NewGormStore(db)

	// Idempotency keys are optional; without Redis checkout ignores them.
	var idem repository.IdempotencyStore
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn("Redis unavailable, idempotency keys disabled", zap.Error(err))
		} else {
			idem = repository.NewRedisIdempotencyStore(redisClient)
		}
	}

	var snsPublisher aws_pkg.SNSPublisher
	if cfg.SNSTopicARN != "" {
		awsCfg, err := aws_pkg.LoadAWSConfig(ctx)
		if err != nil {
			log.Warn("AWS config unavailable, domain events disabled", zap.Error(err))
		} else {
			snsPublisher = aws_pkg.NewSNSClient(awsCfg)
		}
	}
	events := services.NewSNSEventPublisher(snsPublisher, cfg.SNSTopicARN, log)

	provider := providers.NewPayTRProvider(cfg.PayTR)

	catalogService := services.NewCatalogService(store, log, nil)
	cartService := services.NewCartService(store, cfg.StoreCurrency, log, nil)
	checkoutService := services.NewCheckoutService(store, idem, events, cfg.StoreCurrency, log, nil,
		services.WithIdempotencyTTL(cfg.IdempotencyTTL))
	paymentService := services.NewPaymentService(store, provider, log, nil)
	callbackService := services.NewCallbackService(store, provider, events, log, nil)
	orderService := services.NewOrderService(store, events, log, nil)

	validator := controllers.NewRequestValidator()
	ctrl := routes.Controllers{
		Products: controllers.NewProductController(catalogService),
		Cart:     controllers.NewCartController(cartService),
		Orders:   controllers.NewOrderController(checkoutService, orderService, validator),
		Payments: controllers.NewPaymentController(paymentService, callbackService),
		Admin:    controllers.NewAdminController(orderService, paymentService, validator),
	}

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.RequestLogger())
	r.Use(middleware.RequestLogger(log))
	r.Use(middleware.PrometheusMiddleware())
	r.Use(middleware.SecurityHeaders())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Idempotency-Key", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(otelgin.Middleware(serviceName))
	r.Use(apperrors.ErrorMiddleware())

	verifier := auth.NewTokenVerifier(cfg.JWTSecret)
	if !verifier.Enabled() && !cfg.TrustGatewayHeaders {
		log.Warn("JWT_SECRET unset and gateway headers untrusted; authenticated routes will reject every request")
	}

	routes.RegisterRoutes(r, ctrl, routes.Options{
		Verifier:          verifier,
		TrustGatewayAuth:  cfg.TrustGatewayHeaders,
		CallbackPerMinute: cfg.CallbackRateLimit,
		CheckoutPerMinute: cfg.CheckoutRateLimit,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Checkout service starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down checkout service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		log.Error("Failed to flush traces", zap.Error(err))
	}
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis", zap.Error(err))
		}
	}
	if err := database.Close(db); err != nil {
		log.Error("Failed to close database", zap.Error(err))
	}

	log.Info("Checkout service stopped gracefully")
}
