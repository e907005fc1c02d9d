// Command api is the HTTP front door of worker mode. It deals games, queues
// requests for cmd/worker and relays the workers' events over SSE.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/werewolf-engine/internal/config"
	"github.com/jwebster45206/werewolf-engine/internal/handlers"
	"github.com/jwebster45206/werewolf-engine/internal/logger"
	"github.com/jwebster45206/werewolf-engine/internal/services/events"
	"github.com/jwebster45206/werewolf-engine/internal/services/queue"
	"github.com/jwebster45206/werewolf-engine/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)
	log.Info("Starting werewolf API",
		"port", cfg.Port,
		"environment", cfg.Environment)

	store := storage.NewRedisStorage(cfg.RedisURL, cfg.StateDir, log)
	storageCtx, storageCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer storageCancel()
	if err := store.WaitForConnection(storageCtx); err != nil {
		log.Error("Failed to connect to storage", "error", err)
		os.Exit(1)
	}
	log.Info("Storage connection established successfully")

	queueClient, err := queue.NewClient(cfg.RedisURL, log)
	if err != nil {
		log.Error("Failed to create queue client", "error", err)
		os.Exit(1)
	}
	rdb := queueClient.GetRedisClient()

	games := handlers.NewGameStateHandler(store, log, nil)
	games.DebugViews = cfg.DebugViews
	requests := handlers.NewRequestHandler(store,
		queue.NewRequestQueue(queueClient),
		queue.NewLineQueue(queueClient),
		events.NewBroadcaster(rdb, log),
		log)

	mux := http.NewServeMux()
	mux.Handle("GET /health", handlers.NewHealthHandler(map[string]handlers.Pinger{
		"storage": store,
		"queue":   queueClient,
	}, log))
	mux.HandleFunc("POST /v1/games", games.Create)
	mux.HandleFunc("GET /v1/games/{id}", games.Read)
	mux.HandleFunc("DELETE /v1/games/{id}", games.Delete)
	mux.HandleFunc("GET /v1/games/{id}/view/{name}", games.ReadView)
	mux.HandleFunc("GET /v1/games/{id}/scenes", games.ListScenes)
	mux.HandleFunc("GET /v1/games/{id}/scenes/{key}", games.ReadScene)
	mux.HandleFunc("POST /v1/games/{id}/requests", requests.Enqueue)
	mux.HandleFunc("POST /v1/games/{id}/lines", requests.QueueLine)
	mux.Handle("GET /v1/games/{id}/events", handlers.NewEventsHandler(rdb, log))

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handlers.Logger(log, mux),
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: the event stream is long-lived
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if err := queueClient.Close(); err != nil {
		log.Error("Error closing queue client", "error", err)
	}
	if err := store.Close(); err != nil {
		log.Error("Error closing storage connection", "error", err)
	}
	log.Info("Server exited")
}
