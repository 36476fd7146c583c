package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
	redisClient "github.com/redis/go-redis/v9"
	"github.com/sakashimaa/marketplace/internal/notification"
	"github.com/sakashimaa/marketplace/internal/notification/email"
	"github.com/sakashimaa/marketplace/internal/repository"
	"github.com/sakashimaa/marketplace/internal/service"
	transportHTTP "github.com/sakashimaa/marketplace/internal/transport/http"
	"github.com/sakashimaa/marketplace/internal/transport/http/handler"
	transportKafka "github.com/sakashimaa/marketplace/internal/transport/kafka"
	"github.com/sakashimaa/marketplace/pkg/config"
	"github.com/sakashimaa/marketplace/pkg/db"
	pkgKafka "github.com/sakashimaa/marketplace/pkg/kafka"
	"github.com/sakashimaa/marketplace/pkg/mylogger"
	outboxRepository "github.com/sakashimaa/marketplace/pkg/outbox/repository"
	"github.com/sakashimaa/marketplace/pkg/outbox/worker"
	"github.com/sakashimaa/marketplace/pkg/utils"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfg := config.MustLoad()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := utils.InitTracer(ctx, "marketplace")
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}

	pool, err := db.NewPostgresDB(cfg.Postgres.URL)
	if err != nil {
		log.Fatalf("failed to create pool: %v", err)
	}

	logger, err := config.NewLogger(config.LoggerConfig{
		Level: "Info",
		Env:   cfg.Env,
	})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	rdb := redisClient.NewClient(&redisClient.Options{
		Addr: cfg.Redis.Addr,
	})

	productRepo := repository.NewProductRepository(pool, logger)
	vendorRepo := repository.NewVendorRepository(pool, logger)
	orderRepo := repository.NewOrderRepository(pool, logger)
	reviewRepo := repository.NewReviewRepository(pool, logger)
	userRepo := repository.NewUserRepository(pool, logger)
	outboxRepo := outboxRepository.NewOutboxRepository(pool, logger)

	catalogService := service.NewCachedCatalogService(
		service.NewCatalogService(productRepo, vendorRepo, logger),
		rdb,
		cfg.Checkout.CacheTTL,
	)
	orderService := service.NewOrderService(pool, logger, orderRepo, productRepo, vendorRepo, outboxRepo)
	vendorService := service.NewVendorService(vendorRepo, logger)
	reviewService := service.NewReviewService(pool, reviewRepo, productRepo, vendorRepo, logger)

	kafkaProducer, err := pkgKafka.NewProducer(cfg.Kafka.Brokers)
	if err != nil {
		log.Fatalf("error creating kafka producer: %v", err)
	}

	outboxProcessor := worker.NewOutboxProcessor(pool, outboxRepo, kafkaProducer, logger)
	go outboxProcessor.Start(ctx)

	emailSender := email.NewSMTPSender(logger)
	notificationService := notification.NewService(emailSender, userRepo, logger, pool)
	consumer := transportKafka.NewConsumer(notificationService, logger)
	go consumer.Start(ctx, cfg.Kafka.Brokers, cfg.Kafka.OrderTopic, cfg.Kafka.GroupID)

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTP.Timeout,
		WriteTimeout: cfg.HTTP.Timeout,
	})

	handlers := &transportHTTP.Handlers{
		Order:   handler.NewOrderHandler(orderService, userRepo, logger),
		Product: handler.NewProductHandler(catalogService, logger),
		Vendor:  handler.NewVendorHandler(vendorService, logger),
		Review:  handler.NewReviewHandler(reviewService, logger),
	}
	transportHTTP.RegisterRoutes(app, handlers, cfg.Auth.JWTSecret)

	go func() {
		log.Printf("HTTP server listening on %s 🔥", cfg.HTTP.Port)
		if err := app.Listen(cfg.HTTP.Port); err != nil {
			log.Fatalf("Error serving HTTP: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, exit := context.WithTimeout(context.WithoutCancel(ctx), time.Second*5)
	defer exit()

	mylogger.Info(
		shutdownCtx,
		logger,
		"Shutting down marketplace server",
	)

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		mylogger.Warn(
			shutdownCtx,
			logger,
			"Failed to shut down HTTP server",
			zap.Error(err),
		)
	} else {
		log.Println("✅ HTTP server stopped")
	}

	if err := rdb.Close(); err != nil {
		mylogger.Warn(
			shutdownCtx,
			logger,
			"Failed to close redis client",
			zap.Error(err),
		)
	}

	if err := tp.Shutdown(shutdownCtx); err != nil {
		mylogger.Warn(
			shutdownCtx,
			logger,
			"Failed to shut down telemetry",
			zap.Error(err),
		)
	} else {
		mylogger.Info(
			shutdownCtx,
			logger,
			"Successfully down telemetry",
		)
	}

	pool.Close()
}
