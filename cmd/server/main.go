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

	"pizza-platform/config"
	"pizza-platform/internal/api"
	"pizza-platform/internal/broker"
	"pizza-platform/internal/realtime"
	"pizza-platform/internal/redisclient"
	"pizza-platform/internal/service"
	"pizza-platform/internal/status"
	"pizza-platform/internal/store"
	"pizza-platform/internal/syncbridge"
	"pizza-platform/internal/util"
	"pizza-platform/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting pizza platform order core")

	tp, err := util.InitTracer("pizza-platform", cfg.Observ.JaegerEndpoint)
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

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	machine := status.Machine{AllowRollback: cfg.Business.AllowStatusRollback}

	hub := realtime.NewHub()
	relay := realtime.NewRelay(hub, redisClient)

	snapshot := syncbridge.NewRedisSnapshot(redisClient)
	bridge := syncbridge.New(db, snapshot, machine,
		time.Duration(cfg.Business.SyncPollSeconds)*time.Second)

	orderService := service.NewOrderService(db, relay, bridge, eventPublisher, machine,
		time.Duration(cfg.Business.DeliveryEstimateMinutes)*time.Minute)

	bgCtx, bgCancel := context.WithCancel(context.Background())
	defer bgCancel()

	go relay.Run(bgCtx)
	go bridge.Run(bgCtx)

	notificationConsumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
	notificationWorker := worker.NewNotificationWorker(notificationConsumer, worker.NewLogDispatcher())
	go func() {
		if err := notificationWorker.Start(bgCtx); err != nil {
			log.Printf("Notification worker error: %v", err)
		}
	}()

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	streamHandler := api.NewStreamHandler(hub, orderService)
	handler := api.NewHandler(orderService, streamHandler, db)
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

	bgCancel()
	notificationWorker.Stop()

	log.Println("Server exited")
}
