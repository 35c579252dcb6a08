package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskflow/internal/config"
	"taskflow/internal/httpserver"
	"taskflow/internal/repository"
	"taskflow/internal/scheduler"
	"taskflow/pkg/db"
	"taskflow/pkg/logger"
	"taskflow/pkg/mq"
)

func main() {
	cfg := config.Load()

	log := logger.NewLogger()
	defer log.Sync()

	log.Info("Starting scheduler service...",
		zap.String("db_host", cfg.DB.Host),
		zap.String("mq_url", cfg.MQ.URL),
		zap.Int("poll_interval_seconds", cfg.Scheduler.PollInterval()),
		zap.Bool("enabled", cfg.Scheduler.IsEnabled()),
	)

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	// MQ Publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Reminder scheduler
	taskRepo := repository.NewTaskRepository(dbConn, log)
	sched := scheduler.New(cfg.Scheduler, taskRepo, publisher, log)
	sched.Start()

	// HTTP server (health checks and metrics)
	port := cfg.Server.Port
	if port == "" {
		port = "8081"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpserver.Trace())
	r.Use(httpserver.RequestLogger(log))
	httpserver.RegisterProbes(r, dbConn, nil)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	go func() {
		log.Info("HTTP server starting", zap.String("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("scheduler service is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down scheduler service gracefully...")

	sched.Stop()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	}

	publisher.Close()
	dbConn.Close()

	log.Info("scheduler service shutdown complete")
}
