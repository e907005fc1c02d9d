package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/jwebster45206/werewolf-engine/internal/services/events"
	"github.com/jwebster45206/werewolf-engine/internal/services/queue"
	queuePkg "github.com/jwebster45206/werewolf-engine/pkg/queue"
)

// Enqueues a morning scene and a discussion for an existing game, then
// follows the game's event channel until the discussion completes.
func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <game-id> [player line]\n", os.Args[0])
		os.Exit(1)
	}
	gameID, err := uuid.Parse(os.Args[1])
	if err != nil {
		log.Fatal("Invalid game id:", err)
	}
	line := "おはよう、みんな。"
	if len(os.Args) > 2 {
		line = os.Args[2]
	}

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "localhost:6379"
	}
	client, err := queue.NewClient(redisURL, slog.Default())
	if err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	defer client.Close()

	ctx := context.Background()
	sub := client.GetRedisClient().Subscribe(ctx, events.Channel(gameID))
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		log.Fatal("Failed to subscribe:", err)
	}

	requests := queue.NewRequestQueue(client)
	morning := &queuePkg.Request{
		RequestID:   uuid.New().String(),
		Type:        queuePkg.RequestTypeScene,
		GameStateID: gameID,
		Scene:       "morning",
	}
	discussion := &queuePkg.Request{
		RequestID:   uuid.New().String(),
		Type:        queuePkg.RequestTypeDiscussion,
		GameStateID: gameID,
		Message:     line,
	}
	for _, req := range []*queuePkg.Request{morning, discussion} {
		if err := requests.EnqueueRequest(ctx, req); err != nil {
			log.Fatal("Failed to enqueue request:", err)
		}
		fmt.Printf("Enqueued %s request: %s\n", req.Type, req.RequestID)
	}

	depth, err := requests.RequestQueueDepth(ctx)
	if err != nil {
		log.Fatal("Failed to get queue depth:", err)
	}
	fmt.Printf("\nQueue depth: %d requests\n", depth)
	fmt.Println("Waiting for a worker (go run ./cmd/worker) ...")

	timeout := time.After(5 * time.Minute)
	for {
		select {
		case msg := <-sub.Channel():
			var ev events.Event
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				continue
			}
			fmt.Printf("[%s] %v\n", ev.Type, ev.Data)
			if ev.RequestID != discussion.RequestID {
				continue
			}
			if ev.Type == events.EventTypeRequestCompleted || ev.Type == events.EventTypeRequestFailed {
				return
			}
		case <-timeout:
			log.Fatal("Timed out waiting for the discussion")
		}
	}
}
