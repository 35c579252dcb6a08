package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"taskflow/contracts/event"
	"taskflow/internal/config"
	"taskflow/internal/notification"
	"taskflow/pkg/logger"
	"taskflow/pkg/mq"
	"taskflow/pkg/redis"
	"taskflow/pkg/util"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting notification service...",
		zap.String("mq_url", cfg.MQ.URL),
		zap.String("redis_addr", cfg.Redis.Addr),
	)

	// Redis (dedup). The deduper fails open, so a missing redis only costs
	// duplicate suppression, not the service.
	rdb, err := redis.NewClient(cfg.Redis)
	if err != nil {
		log.Warn("Redis unavailable, continuing without dedup", zap.Error(err))
		rdb = nil
	}
	deduper := util.NewDeduper(rdb, 24*time.Hour, log)

	handler := notification.NewHandler(deduper, log)

	// DLQ publisher for poison pills arriving over the queue
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()
	if err := publisher.DeclareDLQ(); err != nil {
		log.Fatal("Failed to declare DLQ exchange", zap.Error(err))
	}

	// MQ consumer bridging reminder.triggered deliveries into the handler
	consumer, err := mq.NewConsumer(cfg.MQ.URL, "reminders.q", event.TypeReminderTriggered, log)
	if err != nil {
		log.Fatal("Failed to init consumer", zap.Error(err))
	}
	defer consumer.Close()

	consumer.SetHandler(func(ctx context.Context, raw json.RawMessage) error {
		return handler.HandleMQ(ctx, raw)
	})
	consumer.SetDLQ(publisher)

	go func() {
		if err := consumer.StartConsuming(); err != nil {
			log.Fatal("Reminder consumer failed", zap.Error(err))
		}
	}()

	// HTTP server
	port := cfg.Server.Port
	if port == "" {
		port = "8082"
	}

	router := notification.NewRouter(handler, log, consumer)
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("notification service is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down notification service gracefully...")

	consumer.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	publisher.Close()

	log.Info("notification service shutdown complete")
}
