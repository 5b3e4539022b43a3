// cmd/worker/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"openpayflow/pkg/container"
	"openpayflow/pkg/logger"
)

func main() {
	// Load .env if present (containers inject env directly)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize container
	c, err := container.NewContainer()
	if err != nil {
		log.Fatalf("[Container] Failed to initialize: %v", err)
	}
	defer c.Close()

	logger.Init(c.Config.App.Environment)

	// Initialize handlers
	handlers := initializeHandlers(c)

	// Setup Asynq server
	srv := setupAsynqServer(c, handlers)

	// Setup scheduler
	scheduler := setupScheduler(c)

	// Start the webhook delivery consumer
	consumerCtx, stopConsumer := context.WithCancel(context.Background())
	consumer := startDeliveryConsumer(consumerCtx, c)

	// Perform health checks and expose the probe endpoint
	if err := startServices(c); err != nil {
		stopConsumer()
		log.Fatalf("[Startup] Health check failed: %v", err)
	}

	// Wait for shutdown signal
	waitForShutdown(srv, scheduler, consumer, stopConsumer)
}

func waitForShutdown(srv *asynqServer, scheduler *asynqScheduler, consumer *deliveryConsumer, stopConsumer context.CancelFunc) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Println("[Shutdown] Gracefully stopping...")
	stopConsumer()
	consumer.Wait()
	scheduler.Shutdown()
	srv.Shutdown()
	log.Println("[Shutdown] Stopped")
}
