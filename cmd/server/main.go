package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"linkmarket/config"
	"linkmarket/internal/api"
	"linkmarket/internal/auction"
	"linkmarket/internal/broker"
	"linkmarket/internal/mailer"
	"linkmarket/internal/payments"
	"linkmarket/internal/redisclient"
	"linkmarket/internal/service"
	"linkmarket/internal/store"
	"linkmarket/internal/util"
	"linkmarket/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting linkmarket service")

	tp, err := util.InitTracer("linkmarket", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	redisClient, err := redisclient.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Redis connected")

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	paymentsClient := payments.NewClient(cfg.Payments.BaseURL, cfg.Payments.APIKey)
	mail := mailer.New(
		cfg.SMTP.Host, cfg.SMTP.Port,
		cfg.SMTP.Username, cfg.SMTP.Password,
		cfg.SMTP.FromEmail, cfg.SMTP.FromName,
		cfg.SMTP.Enabled,
	)

	followupExpiry := time.Duration(cfg.Business.FollowupExpiryHours) * time.Hour
	finalizer := auction.NewFinalizer(db, mail, cfg.Business.BaseURL, followupExpiry)
	auctionService := auction.NewService(db, finalizer, eventPublisher, cfg.Business.RecentBidsLimit)

	linkService := service.NewLinkService(db, redisClient, eventPublisher, cfg.Business.DefaultMinIncrementCents)
	productService := service.NewProductService(db)
	sellerService := service.NewSellerService(db, paymentsClient, cfg.Business.BaseURL)
	checkoutService := service.NewCheckoutService(db, paymentsClient, auctionService, cfg.Business.BaseURL)
	orderService := service.NewOrderService(db, paymentsClient, mail, eventPublisher, cfg.Business.BaseURL)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	orderConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicEvents, cfg.Kafka.ConsumerGroup)
	orderWorker := worker.NewOrderWorker(orderConsumer, orderService)
	go func() {
		if err := orderWorker.Start(workerCtx); err != nil {
			log.Printf("Order worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	handler := api.NewHandler(
		linkService,
		productService,
		sellerService,
		checkoutService,
		auctionService,
		eventPublisher,
		redisClient,
	)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	orderWorker.Stop()

	log.Println("Server exited")
}
