package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/werewolf-engine/internal/archive"
	"github.com/jwebster45206/werewolf-engine/internal/config"
	"github.com/jwebster45206/werewolf-engine/internal/gm"
	"github.com/jwebster45206/werewolf-engine/internal/logger"
	"github.com/jwebster45206/werewolf-engine/internal/services"
	"github.com/jwebster45206/werewolf-engine/internal/services/queue"
	"github.com/jwebster45206/werewolf-engine/internal/storage"
	"github.com/jwebster45206/werewolf-engine/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	log.Info("Starting Werewolf Worker",
		"environment", cfg.Environment,
		"redis_url", cfg.RedisURL)

	// Initialize queue service
	queueClient, err := queue.NewClient(cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to create queue client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := queueClient.Close(); err != nil {
			log.Error("Error closing queue client", "error", err)
		}
	}()
	log.Info("Queue service initialized successfully")

	// Initialize storage service
	storageService := storage.NewRedisStorage(cfg.RedisURL, cfg.StateDir, log)
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()

	if err := storageService.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := storageService.Close(); err != nil {
			log.Error("Error closing storage", "error", err)
		}
	}()
	log.Info("Storage service initialized successfully")

	opts := gm.ConfigOptions(cfg)
	if cfg.ArchivePath != "" {
		arc, err := archive.Open(cfg.ArchivePath)
		if err != nil {
			log.Warn("Scene archive disabled", "path", cfg.ArchivePath, "error", err)
		} else {
			defer arc.Close()
			opts = append(opts, gm.WithArchive(arc))
			log.Info("Scene archive opened", "path", cfg.ArchivePath)
		}
	}

	// Initialize generation backend
	initCtx, initCancel := context.WithTimeout(context.Background(), time.Minute)
	defer initCancel()
	gen, closeGen, err := services.NewFromConfig(initCtx, cfg, log)
	if err != nil {
		log.Error("Failed to initialize generation backend", "error", err, "provider", cfg.LLMProvider)
		os.Exit(1)
	}
	defer func() {
		if err := closeGen(); err != nil {
			log.Error("Error closing generation backend", "error", err)
		}
	}()

	processor := worker.NewProcessor(storageService, gen, queue.NewLineQueue(queueClient), log, opts...)
	w := worker.New(queue.NewRequestQueue(queueClient), processor, queueClient.GetRedisClient(), log, cfg.WorkerID)

	// Handle graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := w.Start(); err != nil {
			log.Error("Worker error", "error", err)
		}
	}()

	log.Info("Worker started, waiting for requests...", "worker_id", w.ID())

	<-quit
	log.Info("Worker shutdown signal received")
	w.Stop()

	select {
	case <-done:
	case <-time.After(10 * time.Second):
		log.Warn("Worker did not stop in time")
	}
	log.Info("Worker exited")
}
