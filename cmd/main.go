package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"

	"reminder-service/internal/api"
	"reminder-service/internal/config"
	"reminder-service/internal/db"
	"reminder-service/internal/dispatch"
	"reminder-service/internal/kafka"
	"reminder-service/internal/logging"
	"reminder-service/internal/providers"
	"reminder-service/internal/resolver"
	"reminder-service/internal/scheduler"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	dbConn, err := db.New(ctx, cfg.DB.DSN, logger)
	if err != nil {
		logger.Errorf("Failed to connect to database: %v", err)
		log.Fatalf("Database connection failed: %v", err)
	}
	defer dbConn.Close()

	// Outbound email transport
	sender, err := providers.NewEmailSender(cfg, logger)
	if err != nil {
		logger.Errorf("Failed to configure email transport: %v", err)
		log.Fatalf("Email transport failed: %v", err)
	}

	// Dispatch pipeline
	taskResolver := resolver.New(dbConn, logger)
	dispatcher := dispatch.New(dbConn, taskResolver, sender, logger, dispatch.Options{
		BatchSize: cfg.Dispatch.BatchSize,
		SendDelay: cfg.Dispatch.SendDelay,
		AppURL:    cfg.Dispatch.AppURL,
	})

	var wg sync.WaitGroup

	// Periodic dispatch trigger
	hub := api.NewSummaryHub(logger)
	sched := scheduler.New(dispatcher, hub, cfg, logger)
	sched.Start(ctx, &wg)

	// Task event ingestion (optional)
	var consumer *kafka.Consumer
	if cfg.Kafka.Broker != "" {
		consumer = kafka.NewConsumer(strings.Split(cfg.Kafka.Broker, ","), cfg.Kafka.Topic, cfg.Kafka.GroupID, dbConn, logger)
		consumer.Start(ctx, &wg)
	}

	// Start API server
	handler := api.NewHandler(dbConn, dispatcher, hub, logger)
	router := api.NewRouter(handler, logger, cfg)
	go func() {
		logger.Infof("Starting API server on %s", cfg.API.Port)
		if err := router.Run(cfg.API.Port); err != nil {
			logger.Errorf("API server failed: %v", err)
		}
	}()

	// Handle graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c
	logger.Info("Shutting down...")
	cancel()
	if consumer != nil {
		consumer.Close()
	}
	wg.Wait()
	logger.Info("Service stopped")
}
