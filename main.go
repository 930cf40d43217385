package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backoffice-service/cache"
	"backoffice-service/common/auth"
	apperrors "backoffice-service/common/errors"
	"backoffice-service/common/logger"
	commonmw "backoffice-service/common/middleware"
	"backoffice-service/controllers"
	"backoffice-service/database"
	"backoffice-service/events"
	"backoffice-service/middleware"
	awspkg "backoffice-service/pkg/aws"
	"backoffice-service/repository"
	"backoffice-service/routes"
	"backoffice-service/services"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const serviceName = "backoffice-service"

func main() {
	_ = godotenv.Load()

	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	rootCtx, stop := context.WithCancel(context.Background())
	defer stop()

	// AWS clients are optional locally; everything that needs them degrades.
	awsCfg, awsErr := awspkg.LoadAWSConfig(rootCtx)

	var cwWriter io.Writer
	if cfg.CloudWatchEnabled && awsErr == nil {
		if w, err := awspkg.NewCloudWatchLogsClient(rootCtx, awsCfg, cfg.LogGroup, serviceName); err != nil {
			log.Printf("CloudWatch Logs unavailable, logging to stdout only: %v", err)
		} else {
			cwWriter = w
		}
	}

	zl, err := logger.InitializeWithWriter(cfg.AppEnv, cwWriter)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer zl.Sync() //nolint:errcheck

	if awsErr != nil {
		zl.Warn("AWS config unavailable, SNS/SQS/metrics disabled", zap.Error(awsErr))
	}

	db, err := database.Connect(database.Settings{
		Host:     cfg.PostgresHost,
		Port:     cfg.PostgresPort,
		User:     cfg.PostgresUser,
		Password: cfg.PostgresPassword,
		Name:     cfg.PostgresDB,
		SSLMode:  cfg.PostgresSSLMode,
		TimeZone: cfg.PostgresTimeZone,
	}, zl)
	if err != nil {
		zl.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db) //nolint:errcheck

	metrics := awspkg.NewMetricsClientWithAPI(nil, cfg.MetricsNamespace, false)
	if awsErr == nil {
		metrics = awspkg.NewMetricsClient(awsCfg, cfg.MetricsNamespace, cfg.MetricsEnabled)
	}

	var categoryCache services.CategoryCache
	if cfg.RedisAddr != "" {
		rdb, err := database.ConnectRedis(rootCtx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			zl.Warn("Redis unavailable, category cache disabled", zap.Error(err))
		} else {
			defer rdb.Close() //nolint:errcheck
			categoryCache = cache.NewCategoryCache(rdb, cfg.CategoryCacheTTL, zl).WithMetrics(metrics)
		}
	}

	publisher, closePublisher := newPublisher(cfg, awsCfg, awsErr, zl)
	defer closePublisher()

	// Repositories and services
	categoryRepo := repository.NewGormCategoryRepository(db)
	productRepo := repository.NewGormProductRepository(db)
	paymentRepo := repository.NewGormPaymentRepository(db)

	categoryService := services.NewCategoryService(categoryRepo, productRepo, categoryCache, zl)
	productService := services.NewProductService(productRepo, categoryRepo, categoryCache, zl)

	var (
		strategies []services.PaymentStrategy
		verifier   services.WebhookVerifier
	)
	if cfg.CashEnabled {
		strategies = append(strategies, services.NewCashStrategy(paymentRepo, zl))
	}
	if cfg.StripeEnabled {
		stripeSvc := services.NewStripeService(cfg.StripeSecretKey, cfg.StripeWebhookKey)
		strategies = append(strategies, services.NewStripeStrategy(stripeSvc, paymentRepo, cfg.StripeSuccessURL, cfg.StripeCancelURL, zl))
		verifier = stripeSvc
	}
	paymentService := services.NewPaymentService(paymentRepo, publisher, metrics, zl, strategies...)

	// Start consuming payment requests in the background
	consumerDone := make(chan struct{})
	if cfg.PaymentRequestQueueURL != "" && awsErr == nil {
		consumer := services.NewPaymentRequestConsumer(
			awspkg.NewSQSConsumer(awsCfg, cfg.PaymentRequestQueueURL, zl),
			paymentService,
			metrics,
			zl,
		)
		go func() {
			defer close(consumerDone)
			consumer.Start(rootCtx)
		}()
	} else {
		close(consumerDone)
	}

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(commonmw.RequestID(), commonmw.RequestLogger(zl))
	r.Use(commonmw.Timeout(30 * time.Second))
	r.Use(commonmw.SecurityHeaders())
	r.Use(commonmw.CORSMiddleware(cfg.CORSOrigins))
	r.Use(commonmw.RateLimitMiddleware(commonmw.NewRateLimiter(rootCtx, rate.Limit(cfg.RateLimit), cfg.RateBurst, 10*time.Minute)))
	r.Use(commonmw.MetricsMiddleware(metrics, serviceName))
	r.Use(apperrors.ErrorMiddleware())

	r.GET("/health", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "service": serviceName})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": serviceName})
	})

	admin := middleware.AdminAuth(auth.NewTokenVerifier(cfg.JWTSecret))
	routes.RegisterCategoryRoutes(r, controllers.NewCategoryController(categoryService), admin)
	routes.RegisterProductRoutes(r, controllers.NewProductController(productService), admin)
	routes.RegisterPaymentRoutes(r, controllers.NewPaymentController(paymentService, verifier, zl))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("Server failed", zap.Error(err))
		}
	}()

	zl.Info("Back-office service started",
		zap.String("port", cfg.Port),
		zap.Int("payment_strategies", len(strategies)),
		zap.String("event_bus", cfg.EventBus),
	)
	<-quit
	zl.Info("Shutting down back-office service...")

	stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		zl.Error("Server forced to shutdown", zap.Error(err))
	}
	select {
	case <-consumerDone:
	case <-ctx.Done():
		zl.Warn("Payment request consumer did not stop in time")
	}
	zl.Info("Server exited cleanly")
}

// newPublisher builds the payment event bus selected by EVENT_BUS. A bus that
// cannot be built is logged and replaced by no publisher at all.
func newPublisher(cfg *Config, awsCfg sdkaws.Config, awsErr error, zl *zap.Logger) (services.EventPublisher, func()) {
	noop := func() {}

	switch cfg.EventBus {
	case "kafka":
		p, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			zl.Warn("Kafka publisher disabled", zap.Error(err))
			return nil, noop
		}
		return p, func() {
			if err := p.Close(); err != nil {
				zl.Warn("Failed to close Kafka writer", zap.Error(err))
			}
		}
	case "sns":
		if awsErr != nil {
			return nil, noop
		}
		p, err := events.NewSNSPublisher(awspkg.NewSNSClient(awsCfg), cfg.PaymentSNSTopicARN)
		if err != nil {
			zl.Warn("SNS publisher disabled", zap.Error(err))
			return nil, noop
		}
		return p, noop
	default:
		return nil, noop
	}
}
